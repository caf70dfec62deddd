package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ocrkit/ocrprep/internal/dict"
)

var dictCmd = &cobra.Command{
	Use:   "dict",
	Short: "Fetch only the character dictionary (with alphanumeric fallback)",
	RunE:  runDict,
}

func runDict(cmd *cobra.Command, args []string) error {
	res, err := dict.Fetch(cmd.Context(), dict.DefaultURL, flagOut)
	if err != nil {
		return err
	}
	if res.Fallback {
		fmt.Printf("Dictionary download failed; wrote 62-character fallback to %s\n", res.Path)
	} else {
		fmt.Printf("Dictionary saved to %s\n", res.Path)
	}
	return nil
}
