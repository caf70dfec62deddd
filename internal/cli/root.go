package cli

import (
	"github.com/spf13/cobra"

	"github.com/ocrkit/ocrprep/internal/catalog"
)

// Version is set by main from ldflags or "dev". Used for --version / -v.
var Version string

var (
	flagOCRVersion  string
	flagHF          bool
	flagOut         string
	flagStaging     string
	flagCatalogFile string
	flagKeepStaging bool
	flagJSON        bool
	flagTUI         bool
)

var rootCmd = &cobra.Command{
	Use:   "ocrprep",
	Short: "Prepare PP-OCR models for mobile deployment",
	Long: "ocrprep downloads pretrained PP-OCR detection/recognition/classification models, " +
		"converts them to Paddle Lite naive-buffer format with paddle_lite_opt (arm target, fp16), " +
		"and stages the .nb artifacts plus the character dictionary for an Android app. " +
		"Version and source backend come from --ocr-version/--hf or the OCR_VERSION/USE_HF environment variables.",
	RunE: runPrepare,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagOCRVersion, "ocr-version", envDefault("OCR_VERSION", catalog.DefaultVersion), "OCR model version (v3, v4, v5)")
	pf.BoolVar(&flagHF, "hf", envBool("USE_HF"), "Download from Hugging Face instead of Baidu BOS")
	pf.StringVar(&flagOut, "out", "optimized_models", "Output directory for optimized artifacts")
	pf.StringVar(&flagStaging, "staging", "downloads", "Staging directory for raw downloads")
	pf.StringVar(&flagCatalogFile, "catalog", "", "YAML catalog overlay file")
	pf.BoolVar(&flagKeepStaging, "keep-staging", false, "Keep the staging directory after a successful run")
	pf.BoolVar(&flagTUI, "tui", false, "Render a live stage view instead of plain log lines")
	pf.BoolVar(&flagJSON, "json", false, "Output results as JSON")

	rootCmd.AddCommand(runCmd, modelsCmd, checkCmd, dictCmd)
}

// Execute runs the root command. Returns error for exit code handling.
// The version is wired here rather than in init because main assigns
// cli.Version after package initialization; cobra then provides
// --version/-v itself.
func Execute() error {
	if Version == "" {
		Version = "dev"
	}
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	return rootCmd.Execute()
}
