// Package tui renders a live stage view while the pipeline runs.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ocrkit/ocrprep/internal/catalog"
	"github.com/ocrkit/ocrprep/internal/pipeline"
)

type eventMsg pipeline.Event

type doneMsg struct {
	res *pipeline.Result
	err error
}

// Run executes start under a live stage view and returns its result.
// start receives an emit function and must forward every pipeline
// event through it.
func Run(set *catalog.Set, start func(emit func(pipeline.Event)) (*pipeline.Result, error)) (*pipeline.Result, error) {
	m := newModel(set)
	go func() {
		res, err := start(func(e pipeline.Event) { m.events <- eventMsg(e) })
		m.events <- doneMsg{res: res, err: err}
	}()
	p := tea.NewProgram(m)
	out, err := p.Run()
	if err != nil {
		return nil, err
	}
	final := out.(*model)
	if final.interrupted {
		return nil, fmt.Errorf("interrupted")
	}
	return final.res, final.err
}

// row is one pipeline stage line in the view.
type row struct {
	role   string
	stage  string
	status pipeline.Status
	detail string
}

type model struct {
	title       string
	rows        []*row
	events      chan tea.Msg
	res         *pipeline.Result
	err         error
	finished    bool
	interrupted bool
}

func newModel(set *catalog.Set) *model {
	m := &model{
		title:  fmt.Sprintf("ocrprep: PP-OCR %s (%s)", set.Version, set.Source),
		events: make(chan tea.Msg, 64),
	}
	for _, mod := range set.Models {
		m.rows = append(m.rows,
			&row{role: mod.Role, stage: pipeline.StageFetch},
			&row{role: mod.Role, stage: pipeline.StageExtract},
			&row{role: mod.Role, stage: pipeline.StageOptimize},
		)
	}
	m.rows = append(m.rows,
		&row{stage: pipeline.StageDict},
		&row{stage: pipeline.StageCleanup},
	)
	return m
}

func (m *model) waitEvent() tea.Cmd {
	return func() tea.Msg { return <-m.events }
}

func (m *model) Init() tea.Cmd {
	return m.waitEvent()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.apply(pipeline.Event(msg))
		return m, m.waitEvent()
	case doneMsg:
		m.res = msg.res
		m.err = msg.err
		m.finished = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.interrupted = true
			return m, tea.Quit
		}
		return m, nil
	}
	return m, nil
}

func (m *model) apply(e pipeline.Event) {
	for _, r := range m.rows {
		if r.role == e.Role && r.stage == e.Stage {
			r.status = e.Status
			if e.Detail != "" {
				r.detail = e.Detail
			}
			if e.Err != nil {
				r.detail = e.Err.Error()
			}
			return
		}
	}
}
