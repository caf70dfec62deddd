// Package pipeline runs the sequential prepare flow: for each model,
// fetch, extract, optimize, stage; then the dictionary, the run
// manifest, and staging cleanup. Each model is processed to completion
// before the next begins; any model-stage failure aborts the run.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ocrkit/ocrprep/internal/archive"
	"github.com/ocrkit/ocrprep/internal/catalog"
	"github.com/ocrkit/ocrprep/internal/dict"
	"github.com/ocrkit/ocrprep/internal/fetch"
	"github.com/ocrkit/ocrprep/internal/optimizer"
)

// Stage names used in events and error messages.
const (
	StageFetch    = "fetch"
	StageExtract  = "extract"
	StageOptimize = "optimize"
	StageDict     = "dictionary"
	StageCleanup  = "cleanup"
)

// Status of one stage as reported through events.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusDone
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Event reports progress of one pipeline stage. Role is empty for the
// dictionary and cleanup stages.
type Event struct {
	Role   string
	Stage  string
	Status Status
	Detail string
	Err    error
}

// Config configures a run. Events may be nil.
type Config struct {
	Set         *catalog.Set
	OutDir      string
	StagingDir  string
	KeepStaging bool
	DictURL     string
	Events      func(Event)
}

// Artifact is one staged, optimized model file.
type Artifact struct {
	Role      string `yaml:"role"`
	Name      string `yaml:"name"`
	Path      string `yaml:"path"`
	SizeBytes int64  `yaml:"size_bytes"`
	Legacy    bool   `yaml:"legacy_layout,omitempty"`
}

// Result summarizes a completed run.
type Result struct {
	RunID        string
	Version      string
	Source       string
	Artifacts    []Artifact
	Dict         *dict.Result
	ManifestPath string
	Elapsed      time.Duration
}

// ManifestName is the run manifest written next to the artifacts.
const ManifestName = "ocrprep_run.yaml"

// Pipeline executes one prepare run.
type Pipeline struct {
	cfg Config
	opt *optimizer.Optimizer
}

// New builds a pipeline. opt must already have passed its Probe.
func New(cfg Config, opt *optimizer.Optimizer) *Pipeline {
	return &Pipeline{cfg: cfg, opt: opt}
}

func (p *Pipeline) emit(e Event) {
	if p.cfg.Events != nil {
		p.cfg.Events(e)
	}
}

// Run executes the full pipeline. On success the staging directory is
// removed (unless KeepStaging) and a manifest is written to OutDir.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	if err := os.MkdirAll(p.cfg.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	if err := os.MkdirAll(p.cfg.StagingDir, 0755); err != nil {
		return nil, fmt.Errorf("staging dir: %w", err)
	}

	res := &Result{
		RunID:   uuid.NewString(),
		Version: p.cfg.Set.Version,
		Source:  p.cfg.Set.Source,
	}
	for _, m := range p.cfg.Set.Models {
		art, err := p.processModel(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Role, err)
		}
		res.Artifacts = append(res.Artifacts, *art)
	}

	dictURL := p.cfg.DictURL
	if dictURL == "" {
		dictURL = dict.DefaultURL
	}
	p.emit(Event{Stage: StageDict, Status: StatusRunning})
	d, err := dict.Fetch(ctx, dictURL, p.cfg.OutDir)
	if err != nil {
		p.emit(Event{Stage: StageDict, Status: StatusFailed, Err: err})
		return nil, fmt.Errorf("dictionary: %w", err)
	}
	detail := ""
	if d.Fallback {
		detail = "download failed, wrote 62-character fallback"
	}
	p.emit(Event{Stage: StageDict, Status: StatusDone, Detail: detail})
	res.Dict = d

	manifestPath, err := p.writeManifest(res)
	if err != nil {
		return nil, err
	}
	res.ManifestPath = manifestPath

	p.emit(Event{Stage: StageCleanup, Status: StatusRunning})
	if p.cfg.KeepStaging {
		p.emit(Event{Stage: StageCleanup, Status: StatusSkipped, Detail: "keeping " + p.cfg.StagingDir})
	} else {
		if err := os.RemoveAll(p.cfg.StagingDir); err != nil {
			p.emit(Event{Stage: StageCleanup, Status: StatusFailed, Err: err})
			return nil, fmt.Errorf("cleanup: %w", err)
		}
		p.emit(Event{Stage: StageCleanup, Status: StatusDone})
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

func (p *Pipeline) processModel(ctx context.Context, m catalog.Model) (*Artifact, error) {
	var modelDir string
	p.emit(Event{Role: m.Role, Stage: StageFetch, Status: StatusRunning, Detail: m.URL})
	if m.Repo {
		dir, err := fetch.RepoFiles(ctx, m.URL, m.Name, p.cfg.StagingDir)
		if err != nil {
			p.emit(Event{Role: m.Role, Stage: StageFetch, Status: StatusFailed, Err: err})
			return nil, fmt.Errorf("%s: %w", StageFetch, err)
		}
		modelDir = dir
		p.emit(Event{Role: m.Role, Stage: StageFetch, Status: StatusDone})
		p.emit(Event{Role: m.Role, Stage: StageExtract, Status: StatusSkipped, Detail: "repository fetch"})
	} else {
		archivePath, err := fetch.Archive(ctx, m.URL, p.cfg.StagingDir)
		if err != nil {
			p.emit(Event{Role: m.Role, Stage: StageFetch, Status: StatusFailed, Err: err})
			return nil, fmt.Errorf("%s: %w", StageFetch, err)
		}
		p.emit(Event{Role: m.Role, Stage: StageFetch, Status: StatusDone})

		p.emit(Event{Role: m.Role, Stage: StageExtract, Status: StatusRunning})
		if err := archive.Unpack(archivePath, p.cfg.StagingDir); err != nil {
			p.emit(Event{Role: m.Role, Stage: StageExtract, Status: StatusFailed, Err: err})
			return nil, fmt.Errorf("%s: %w", StageExtract, err)
		}
		p.emit(Event{Role: m.Role, Stage: StageExtract, Status: StatusDone})
		modelDir = filepath.Join(p.cfg.StagingDir, m.Name)
	}

	p.emit(Event{Role: m.Role, Stage: StageOptimize, Status: StatusRunning})
	mf, err := optimizer.Resolve(modelDir, m.Name)
	if err != nil {
		p.emit(Event{Role: m.Role, Stage: StageOptimize, Status: StatusFailed, Err: err})
		return nil, fmt.Errorf("%s: %w", StageOptimize, err)
	}
	if mf.Legacy {
		p.emit(Event{Role: m.Role, Stage: StageOptimize, Status: StatusRunning,
			Detail: "warning: using legacy model file layout " + m.Name + ".pdmodel"})
	}
	outStem := filepath.Join(p.cfg.OutDir, m.Output)
	if err := p.opt.Run(ctx, mf, outStem); err != nil {
		p.emit(Event{Role: m.Role, Stage: StageOptimize, Status: StatusFailed, Err: err})
		return nil, fmt.Errorf("%s: %w", StageOptimize, err)
	}
	art := &Artifact{
		Role:   m.Role,
		Name:   m.Name,
		Path:   optimizer.OutputPath(outStem),
		Legacy: mf.Legacy,
	}
	if info, err := os.Stat(art.Path); err == nil {
		art.SizeBytes = info.Size()
	}
	p.emit(Event{Role: m.Role, Stage: StageOptimize, Status: StatusDone, Detail: filepath.Base(art.Path)})
	return art, nil
}

type manifest struct {
	RunID      string     `yaml:"run_id"`
	OCRVersion string     `yaml:"ocr_version"`
	Source     string     `yaml:"source"`
	CreatedAt  time.Time  `yaml:"created_at"`
	Artifacts  []Artifact `yaml:"artifacts"`
	Dictionary struct {
		Path     string `yaml:"path"`
		Fallback bool   `yaml:"fallback"`
	} `yaml:"dictionary"`
}

func (p *Pipeline) writeManifest(res *Result) (string, error) {
	m := manifest{
		RunID:      res.RunID,
		OCRVersion: res.Version,
		Source:     res.Source,
		CreatedAt:  time.Now().UTC(),
		Artifacts:  res.Artifacts,
	}
	m.Dictionary.Path = res.Dict.Path
	m.Dictionary.Fallback = res.Dict.Fallback
	out, err := yaml.Marshal(&m)
	if err != nil {
		return "", fmt.Errorf("manifest: %w", err)
	}
	path := filepath.Join(p.cfg.OutDir, ManifestName)
	if err := os.WriteFile(path, out, 0644); err != nil {
		return "", fmt.Errorf("manifest: %w", err)
	}
	return path, nil
}
