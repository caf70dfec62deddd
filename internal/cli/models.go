package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ocrkit/ocrprep/internal/display"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show the resolved model table for the selected version and source",
	RunE:  runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	set, err := resolveSet()
	if err != nil {
		return err
	}
	display.Models(os.Stdout, set, flagJSON)
	return nil
}
