// Package display handles CLI table and JSON output for the catalog, preflight checks, and run reports.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/ocrkit/ocrprep/internal/catalog"
	"github.com/ocrkit/ocrprep/internal/pipeline"
	"github.com/ocrkit/ocrprep/internal/preflight"
)

var checkTpl *template.Template

func init() {
	checkTpl = template.Must(template.New("check").Parse(
		`
=== Preflight ===
Optimizer: {{.Optimizer}}
CPU: {{.CPUName}} ({{.CPUCores}} cores)
Total RAM: {{.TotalRAMGB}}
Available RAM: {{.AvailableRAMGB}}
Staging free space: {{.StagingFreeGB}}
{{if .WarningsBlock}}
Warnings:
{{.WarningsBlock}}
{{end}}
`))
}

// Check prints the preflight summary to out (template or JSON).
// optimizerPath is the resolved binary path, or empty when absent.
func Check(out io.Writer, optimizerPath string, specs *preflight.Specs, useJSON bool) {
	if useJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]interface{}{
			"optimizer": optimizerPath,
			"host":      specs,
		})
		return
	}
	warnings := ""
	if len(specs.Warnings) > 0 {
		warnings = "  " + strings.Join(specs.Warnings, "\n  ")
	}
	data := struct {
		Optimizer, CPUName                        string
		CPUCores                                  int
		TotalRAMGB, AvailableRAMGB, StagingFreeGB string
		WarningsBlock                             string
	}{
		Optimizer:      optimizerPath,
		CPUName:        specs.CPUName,
		CPUCores:       specs.CPUCores,
		TotalRAMGB:     fmt.Sprintf("%.2f GB", specs.TotalRAMGB),
		AvailableRAMGB: fmt.Sprintf("%.2f GB", specs.AvailableRAMGB),
		StagingFreeGB:  fmt.Sprintf("%.2f GB", specs.StagingFreeGB),
		WarningsBlock:  warnings,
	}
	_ = checkTpl.Execute(out, data)
}

// Models prints the resolved model table to out (table or JSON).
func Models(out io.Writer, set *catalog.Set, useJSON bool) {
	if useJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]interface{}{
			"ocr_version": set.Version,
			"source":      set.Source,
			"models":      modelsJSON(set),
		})
		return
	}
	fmt.Fprintf(out, "\n=== PP-OCR %s models (%s) ===\n\n", strings.ToUpper(set.Version), set.Source)
	tbl := tablewriter.NewWriter(out)
	tbl.Header("Role", "Name", "Output", "Scheme", "URL")
	for _, m := range set.Models {
		tbl.Append([]string{m.Role, m.Name, m.Output + ".nb", scheme(m), m.URL})
	}
	_ = tbl.Render()
}

func scheme(m catalog.Model) string {
	if m.Repo {
		return "repo"
	}
	return "tar"
}

func modelsJSON(set *catalog.Set) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(set.Models))
	for _, m := range set.Models {
		out = append(out, map[string]interface{}{
			"role":   m.Role,
			"name":   m.Name,
			"url":    m.URL,
			"output": m.Output + ".nb",
			"scheme": scheme(m),
		})
	}
	return out
}

// Report prints the post-run artifact summary to out (table or JSON).
func Report(out io.Writer, res *pipeline.Result, useJSON bool) {
	if useJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]interface{}{
			"run_id":      res.RunID,
			"ocr_version": res.Version,
			"source":      res.Source,
			"artifacts":   artifactsJSON(res),
			"dictionary": map[string]interface{}{
				"path":     res.Dict.Path,
				"fallback": res.Dict.Fallback,
			},
			"manifest":        res.ManifestPath,
			"elapsed_seconds": res.Elapsed.Seconds(),
		})
		return
	}
	fmt.Fprintf(out, "\n=== Optimized models (PP-OCR %s, %s) ===\n\n", strings.ToUpper(res.Version), res.Source)
	tbl := tablewriter.NewWriter(out)
	tbl.Header("Role", "Artifact", "Size")
	for _, a := range res.Artifacts {
		tbl.Append([]string{a.Role, a.Path, humanize.Bytes(uint64(a.SizeBytes))})
	}
	_ = tbl.Render()
	if res.Dict.Fallback {
		fmt.Fprintf(out, "\nDictionary: %s (fallback: download failed, 62-character alphanumeric set)\n", res.Dict.Path)
	} else {
		fmt.Fprintf(out, "\nDictionary: %s\n", res.Dict.Path)
	}
	fmt.Fprintf(out, "Manifest: %s\n", res.ManifestPath)
	fmt.Fprintf(out, "Done in %s.\n", res.Elapsed.Round(10*time.Millisecond))
}

func artifactsJSON(res *pipeline.Result) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(res.Artifacts))
	for _, a := range res.Artifacts {
		out = append(out, map[string]interface{}{
			"role":          a.Role,
			"name":          a.Name,
			"path":          a.Path,
			"size_bytes":    a.SizeBytes,
			"legacy_layout": a.Legacy,
		})
	}
	return out
}

// Progress writes one plain log line for a pipeline event. Used when
// the TUI is off.
func Progress(out io.Writer, e pipeline.Event) {
	subject := e.Stage
	if e.Role != "" {
		subject = e.Role + "/" + e.Stage
	}
	switch e.Status {
	case pipeline.StatusRunning:
		if e.Detail != "" {
			fmt.Fprintf(out, "[%s] %s\n", subject, e.Detail)
		} else {
			fmt.Fprintf(out, "[%s] ...\n", subject)
		}
	case pipeline.StatusDone:
		if e.Detail != "" {
			fmt.Fprintf(out, "[%s] ok (%s)\n", subject, e.Detail)
		} else {
			fmt.Fprintf(out, "[%s] ok\n", subject)
		}
	case pipeline.StatusSkipped:
		fmt.Fprintf(out, "[%s] skipped (%s)\n", subject, e.Detail)
	case pipeline.StatusFailed:
		fmt.Fprintf(out, "[%s] failed: %v\n", subject, e.Err)
	}
}
