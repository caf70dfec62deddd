// Package optimizer drives the external paddle_lite_opt binary that
// converts Paddle inference models into mobile naive-buffer format.
// The binary is an opaque dependency: success is its exit status.
package optimizer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ocrkit/ocrprep/internal/fetch"
)

// DefaultBin is the optimizer binary expected on PATH.
const DefaultBin = "paddle_lite_opt"

// Fixed conversion flags: arm target, naive-buffer output, fp16 weights.
var fixedFlags = []string{
	"--valid_targets=arm",
	"--optimize_out_type=naive_buffer",
	"--enable_fp16=true",
}

// Runner executes the optimizer process. Swapped out in tests.
type Runner func(ctx context.Context, bin string, args []string) error

// Optimizer invokes paddle_lite_opt with the fixed mobile flags.
type Optimizer struct {
	Bin    string
	Runner Runner
}

// New returns an Optimizer for the default binary name.
func New() *Optimizer {
	return &Optimizer{Bin: DefaultBin, Runner: runCommand}
}

// Probe verifies the optimizer binary is reachable and returns its
// resolved path. Called before any network work begins; absence is a
// fatal precondition failure.
func (o *Optimizer) Probe() (string, error) {
	path, err := exec.LookPath(o.Bin)
	if err != nil {
		return "", fmt.Errorf("%s not found on PATH (install with: pip install paddlelite): %w", o.Bin, err)
	}
	return path, nil
}

// ModelFiles locates a model's graph and parameter files inside its
// extracted directory. Legacy is set when the old <name>.pdmodel layout
// was used instead of the primary inference.pdmodel layout.
type ModelFiles struct {
	Model  string
	Param  string
	Legacy bool
}

// Resolve finds the model files for name under modelDir, trying the
// primary inference.* layout first and falling back to the legacy
// <name>.* layout. A missing graph file in both layouts is an error:
// processing must halt before the optimizer is invoked.
func Resolve(modelDir, name string) (*ModelFiles, error) {
	primary := &ModelFiles{
		Model: filepath.Join(modelDir, fetch.ModelFileName),
		Param: filepath.Join(modelDir, fetch.ParamFileName),
	}
	if fileExists(primary.Model) {
		return primary, nil
	}
	legacy := &ModelFiles{
		Model:  filepath.Join(modelDir, name+".pdmodel"),
		Param:  filepath.Join(modelDir, name+".pdiparams"),
		Legacy: true,
	}
	if fileExists(legacy.Model) {
		return legacy, nil
	}
	return nil, fmt.Errorf("model file not found: %s", primary.Model)
}

// Run converts one model, writing outStem + ".nb". The command line is
// fixed apart from the three paths; any non-zero exit aborts the run.
func (o *Optimizer) Run(ctx context.Context, mf *ModelFiles, outStem string) error {
	if !fileExists(mf.Model) {
		return fmt.Errorf("model file not found: %s", mf.Model)
	}
	if !fileExists(mf.Param) {
		return fmt.Errorf("param file not found: %s", mf.Param)
	}
	args := append([]string{
		"--model_file=" + mf.Model,
		"--param_file=" + mf.Param,
		"--optimize_out=" + outStem,
	}, fixedFlags...)
	runner := o.Runner
	if runner == nil {
		runner = runCommand
	}
	if err := runner(ctx, o.Bin, args); err != nil {
		return fmt.Errorf("%s: %w", o.Bin, err)
	}
	return nil
}

// OutputPath returns the artifact path the optimizer produces for a
// given output stem.
func OutputPath(outStem string) string {
	return outStem + ".nb"
}

func runCommand(ctx context.Context, bin string, args []string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if tail := lastLines(string(out), 5); tail != "" {
			return fmt.Errorf("%w\n%s", err, tail)
		}
		return err
	}
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
