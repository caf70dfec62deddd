package optimizer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestResolve_PrimaryLayout(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "inference.pdmodel"))
	writeFile(t, filepath.Join(dir, "inference.pdiparams"))

	mf, err := Resolve(dir, "ch_PP-OCRv3_det_infer")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if mf.Legacy {
		t.Error("Legacy = true for primary layout")
	}
	if filepath.Base(mf.Model) != "inference.pdmodel" {
		t.Errorf("Model = %q", mf.Model)
	}
}

func TestResolve_LegacyFallback(t *testing.T) {
	dir := t.TempDir()
	name := "ch_PP-OCRv3_det_infer"
	writeFile(t, filepath.Join(dir, name+".pdmodel"))
	writeFile(t, filepath.Join(dir, name+".pdiparams"))

	mf, err := Resolve(dir, name)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !mf.Legacy {
		t.Error("Legacy = false for legacy layout")
	}
	if filepath.Base(mf.Model) != name+".pdmodel" {
		t.Errorf("Model = %q", mf.Model)
	}
}

func TestResolve_MissingModelFile(t *testing.T) {
	_, err := Resolve(t.TempDir(), "some_model")
	if err == nil {
		t.Fatal("expected error for missing model file")
	}
	if !strings.Contains(err.Error(), "model file not found") {
		t.Errorf("err = %v, want model-file-not-found", err)
	}
}

func TestRun_BuildsFixedCommandLine(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "inference.pdmodel"))
	writeFile(t, filepath.Join(dir, "inference.pdiparams"))
	mf, err := Resolve(dir, "m")
	if err != nil {
		t.Fatal(err)
	}

	var gotBin string
	var gotArgs []string
	o := &Optimizer{Bin: DefaultBin, Runner: func(ctx context.Context, bin string, args []string) error {
		gotBin = bin
		gotArgs = args
		return nil
	}}
	outStem := filepath.Join(t.TempDir(), "ppocr_det_v3")
	if err := o.Run(context.Background(), mf, outStem); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotBin != DefaultBin {
		t.Errorf("bin = %q", gotBin)
	}
	want := []string{
		"--model_file=" + mf.Model,
		"--param_file=" + mf.Param,
		"--optimize_out=" + outStem,
		"--valid_targets=arm",
		"--optimize_out_type=naive_buffer",
		"--enable_fp16=true",
	}
	if len(gotArgs) != len(want) {
		t.Fatalf("args = %v, want %v", gotArgs, want)
	}
	for i := range want {
		if gotArgs[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, gotArgs[i], want[i])
		}
	}
}

func TestRun_HaltsBeforeRunnerWhenModelFileMissing(t *testing.T) {
	called := false
	o := &Optimizer{Bin: DefaultBin, Runner: func(ctx context.Context, bin string, args []string) error {
		called = true
		return nil
	}}
	mf := &ModelFiles{
		Model: filepath.Join(t.TempDir(), "inference.pdmodel"),
		Param: filepath.Join(t.TempDir(), "inference.pdiparams"),
	}
	if err := o.Run(context.Background(), mf, "out"); err == nil {
		t.Fatal("expected error for missing model file")
	}
	if called {
		t.Error("runner invoked despite missing model file")
	}
}

func TestProbe_AbsentBinary(t *testing.T) {
	o := &Optimizer{Bin: "definitely-not-a-real-optimizer-binary"}
	if _, err := o.Probe(); err == nil {
		t.Fatal("expected error for absent binary")
	}
}

func TestProbe_ResolvesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "paddle_lite_opt")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexit 0\n"), 0755); err != nil {
		t.Fatal(err)
	}
	o := &Optimizer{Bin: bin}
	path, err := o.Probe()
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if path != bin {
		t.Errorf("path = %q, want %q", path, bin)
	}
}

func TestOutputPath(t *testing.T) {
	if got := OutputPath("optimized_models/ppocr_cls"); got != "optimized_models/ppocr_cls.nb" {
		t.Errorf("OutputPath = %q", got)
	}
}

func TestLastLines(t *testing.T) {
	in := "a\nb\nc\nd\ne\nf\ng"
	got := lastLines(in, 3)
	if got != "e\nf\ng" {
		t.Errorf("lastLines = %q", got)
	}
	if got := lastLines("one", 5); got != "one" {
		t.Errorf("lastLines(short) = %q", got)
	}
}
