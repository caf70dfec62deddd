package display

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ocrkit/ocrprep/internal/catalog"
	"github.com/ocrkit/ocrprep/internal/dict"
	"github.com/ocrkit/ocrprep/internal/pipeline"
	"github.com/ocrkit/ocrprep/internal/preflight"
)

func sampleSet() *catalog.Set {
	return &catalog.Set{
		Version: "v4",
		Source:  catalog.SourceHF,
		Models: []catalog.Model{
			{Role: catalog.RoleDetection, URL: "https://host/det", Name: "det", Output: "ppocr_det_v4", Repo: true},
			{Role: catalog.RoleClassifier, URL: "https://host/cls.tar", Name: "cls", Output: "ppocr_cls"},
		},
	}
}

func sampleResult() *pipeline.Result {
	return &pipeline.Result{
		RunID:   "run-1",
		Version: "v3",
		Source:  catalog.SourceBOS,
		Artifacts: []pipeline.Artifact{
			{Role: catalog.RoleDetection, Name: "det", Path: "optimized_models/ppocr_det_v3.nb", SizeBytes: 2_400_000},
			{Role: catalog.RoleRecognition, Name: "rec", Path: "optimized_models/ppocr_rec_v3.nb", SizeBytes: 9_100_000},
		},
		Dict:         &dict.Result{Path: "optimized_models/ppocr_keys_v1.txt"},
		ManifestPath: "optimized_models/ocrprep_run.yaml",
		Elapsed:      4200 * time.Millisecond,
	}
}

func TestModels_Table(t *testing.T) {
	var buf bytes.Buffer
	Models(&buf, sampleSet(), false)
	out := buf.String()

	for _, want := range []string{"PP-OCR V4", "detection", "ppocr_det_v4.nb", "repo", "tar", "https://host/cls.tar"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestModels_JSON(t *testing.T) {
	var buf bytes.Buffer
	Models(&buf, sampleSet(), true)

	var got struct {
		OCRVersion string `json:"ocr_version"`
		Source     string `json:"source"`
		Models     []struct {
			Role   string `json:"role"`
			Output string `json:"output"`
			Scheme string `json:"scheme"`
		} `json:"models"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if got.OCRVersion != "v4" || got.Source != catalog.SourceHF {
		t.Errorf("header = %q/%q", got.OCRVersion, got.Source)
	}
	if len(got.Models) != 2 {
		t.Fatalf("models = %d, want 2", len(got.Models))
	}
	if got.Models[0].Scheme != "repo" || got.Models[1].Scheme != "tar" {
		t.Errorf("schemes = %q/%q", got.Models[0].Scheme, got.Models[1].Scheme)
	}
	if got.Models[0].Output != "ppocr_det_v4.nb" {
		t.Errorf("output = %q", got.Models[0].Output)
	}
}

func TestReport_Table(t *testing.T) {
	var buf bytes.Buffer
	Report(&buf, sampleResult(), false)
	out := buf.String()

	for _, want := range []string{
		"PP-OCR V3",
		"ppocr_det_v3.nb",
		"2.4 MB",
		"Dictionary: optimized_models/ppocr_keys_v1.txt",
		"Manifest: optimized_models/ocrprep_run.yaml",
		"Done in 4.2s.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "fallback") {
		t.Error("report mentions fallback for a real dictionary")
	}
}

func TestReport_DictFallbackNoted(t *testing.T) {
	res := sampleResult()
	res.Dict.Fallback = true
	var buf bytes.Buffer
	Report(&buf, res, false)
	if !strings.Contains(buf.String(), "fallback") {
		t.Error("report does not mention dictionary fallback")
	}
}

func TestReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	Report(&buf, sampleResult(), true)

	var got map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if got["run_id"] != "run-1" {
		t.Errorf("run_id = %v", got["run_id"])
	}
	arts, ok := got["artifacts"].([]interface{})
	if !ok || len(arts) != 2 {
		t.Fatalf("artifacts = %v", got["artifacts"])
	}
	if sec := got["elapsed_seconds"].(float64); sec < 4.19 || sec > 4.21 {
		t.Errorf("elapsed_seconds = %v", sec)
	}
}

func TestCheck_Template(t *testing.T) {
	specs := &preflight.Specs{
		TotalRAMGB:     16.0,
		AvailableRAMGB: 8.5,
		CPUName:        "Test CPU",
		CPUCores:       8,
		StagingFreeGB:  1.2,
		Warnings:       []string{"low disk space for staging"},
	}
	var buf bytes.Buffer
	Check(&buf, "/usr/local/bin/paddle_lite_opt", specs, false)
	out := buf.String()

	for _, want := range []string{
		"Optimizer: /usr/local/bin/paddle_lite_opt",
		"Test CPU (8 cores)",
		"16.00 GB",
		"Warnings:",
		"low disk space",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("check output missing %q:\n%s", want, out)
		}
	}
}

func TestCheck_NoWarningsBlockWhenClean(t *testing.T) {
	var buf bytes.Buffer
	Check(&buf, "opt", &preflight.Specs{CPUName: "x", CPUCores: 1}, false)
	if strings.Contains(buf.String(), "Warnings:") {
		t.Error("warnings block printed with no warnings")
	}
}

func TestCheck_JSON(t *testing.T) {
	var buf bytes.Buffer
	Check(&buf, "opt", &preflight.Specs{CPUName: "x", CPUCores: 4}, true)

	var got struct {
		Optimizer string `json:"optimizer"`
		Host      struct {
			CPUCores int `json:"cpu_cores"`
		} `json:"host"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if got.Optimizer != "opt" || got.Host.CPUCores != 4 {
		t.Errorf("got %+v", got)
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name string
		e    pipeline.Event
		want string
	}{
		{"running", pipeline.Event{Role: "detection", Stage: "fetch", Status: pipeline.StatusRunning}, "[detection/fetch] ...\n"},
		{"running detail", pipeline.Event{Role: "detection", Stage: "fetch", Status: pipeline.StatusRunning, Detail: "https://host/x.tar"}, "[detection/fetch] https://host/x.tar\n"},
		{"done", pipeline.Event{Role: "detection", Stage: "optimize", Status: pipeline.StatusDone, Detail: "det.nb"}, "[detection/optimize] ok (det.nb)\n"},
		{"skipped", pipeline.Event{Role: "recognition", Stage: "extract", Status: pipeline.StatusSkipped, Detail: "repository fetch"}, "[recognition/extract] skipped (repository fetch)\n"},
		{"failed", pipeline.Event{Role: "detection", Stage: "fetch", Status: pipeline.StatusFailed, Err: errors.New("boom")}, "[detection/fetch] failed: boom\n"},
		{"no role", pipeline.Event{Stage: "dictionary", Status: pipeline.StatusDone}, "[dictionary] ok\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Progress(&buf, tt.e)
			if buf.String() != tt.want {
				t.Errorf("Progress = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}
