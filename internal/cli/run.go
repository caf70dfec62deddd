package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ocrkit/ocrprep/internal/display"
	"github.com/ocrkit/ocrprep/internal/optimizer"
	"github.com/ocrkit/ocrprep/internal/pipeline"
	"github.com/ocrkit/ocrprep/internal/preflight"
	"github.com/ocrkit/ocrprep/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, optimize, and stage all models (same as the bare command)",
	RunE:  runPrepare,
}

func runPrepare(cmd *cobra.Command, args []string) error {
	// The optimizer must exist before any download starts.
	opt := optimizer.New()
	if _, err := opt.Probe(); err != nil {
		return err
	}
	set, err := resolveSet()
	if err != nil {
		return err
	}
	specs := preflight.Gather(flagStaging)
	for _, w := range specs.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	cfg := pipeline.Config{
		Set:         set,
		OutDir:      flagOut,
		StagingDir:  flagStaging,
		KeepStaging: flagKeepStaging,
	}
	ctx := cmd.Context()
	var res *pipeline.Result
	if flagTUI {
		res, err = tui.Run(set, func(emit func(pipeline.Event)) (*pipeline.Result, error) {
			cfg.Events = emit
			return pipeline.New(cfg, opt).Run(ctx)
		})
	} else {
		cfg.Events = func(e pipeline.Event) { display.Progress(os.Stderr, e) }
		res, err = pipeline.New(cfg, opt).Run(ctx)
	}
	if err != nil {
		return err
	}
	display.Report(os.Stdout, res, flagJSON)
	return nil
}
