package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ocrkit/ocrprep/internal/pipeline"
)

var (
	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	styleDim   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleRun   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	styleOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleFail  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

func (m *model) View() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render(m.title))
	b.WriteString("\n\n")
	for _, r := range m.rows {
		b.WriteString(renderRow(r))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	switch {
	case m.finished && m.err != nil:
		b.WriteString(styleFail.Render("failed: " + m.err.Error()))
		b.WriteByte('\n')
	case m.finished:
		b.WriteString(styleOK.Render("all models optimized"))
		b.WriteByte('\n')
	default:
		b.WriteString(styleDim.Render("ctrl+c to abort"))
		b.WriteByte('\n')
	}
	return b.String()
}

func renderRow(r *row) string {
	label := r.stage
	if r.role != "" {
		label = r.role + "/" + r.stage
	}
	line := fmt.Sprintf("  %s %-24s", glyph(r.status), label)
	if r.detail != "" {
		line += " " + styleDim.Render(r.detail)
	}
	switch r.status {
	case pipeline.StatusPending:
		return styleDim.Render(line)
	case pipeline.StatusFailed:
		return styleFail.Render(line)
	default:
		return line
	}
}

func glyph(s pipeline.Status) string {
	switch s {
	case pipeline.StatusRunning:
		return styleRun.Render(">")
	case pipeline.StatusDone:
		return styleOK.Render("+")
	case pipeline.StatusFailed:
		return styleFail.Render("x")
	case pipeline.StatusSkipped:
		return styleDim.Render("-")
	default:
		return styleDim.Render(".")
	}
}
