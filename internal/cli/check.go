package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ocrkit/ocrprep/internal/display"
	"github.com/ocrkit/ocrprep/internal/optimizer"
	"github.com/ocrkit/ocrprep/internal/preflight"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Preflight only: optimizer binary, disk space, host summary",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	opt := optimizer.New()
	path, perr := opt.Probe()
	specs := preflight.Gather(flagStaging)
	if perr != nil {
		display.Check(os.Stdout, "not found", specs, flagJSON)
		return perr
	}
	display.Check(os.Stdout, path, specs, flagJSON)
	return nil
}
