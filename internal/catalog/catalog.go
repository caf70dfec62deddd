// Package catalog resolves the PP-OCR model table for a given OCR version and source backend.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/ocrkit/ocrprep/data"

	"gopkg.in/yaml.v3"
)

// Model roles in pipeline processing order.
const (
	RoleDetection   = "detection"
	RoleRecognition = "recognition"
	RoleClassifier  = "classifier"
)

// RoleOrder fixes the sequence in which models are processed.
var RoleOrder = []string{RoleDetection, RoleRecognition, RoleClassifier}

// Versions lists the supported OCR version tags. DefaultVersion is the
// most stable one and the fallback for unrecognized tags.
var Versions = []string{"v3", "v4", "v5"}

const DefaultVersion = "v3"

// Source backend names as they appear in the catalog file.
const (
	SourceBOS = "bos"
	SourceHF  = "hf"
)

// Model is one catalog entry: where a model lives and what its staged
// artifact is called. Repo marks Hugging Face repositories that are
// fetched file-by-file instead of as a tar archive.
type Model struct {
	Role   string `yaml:"role"`
	URL    string `yaml:"url"`
	Name   string `yaml:"name"`
	Output string `yaml:"output"`
	Repo   bool   `yaml:"repo,omitempty"`
}

// Validate reports the first well-formedness problem, or nil.
func (m *Model) Validate() error {
	if !validRole(m.Role) {
		return fmt.Errorf("invalid role %q", m.Role)
	}
	if m.URL == "" {
		return fmt.Errorf("%s: empty url", m.Role)
	}
	if !strings.HasPrefix(m.URL, "http://") && !strings.HasPrefix(m.URL, "https://") {
		return fmt.Errorf("%s: url must start with http:// or https://", m.Role)
	}
	if m.Name == "" {
		return fmt.Errorf("%s: empty name", m.Role)
	}
	if m.Output == "" {
		return fmt.Errorf("%s: empty output", m.Role)
	}
	return nil
}

func validRole(role string) bool {
	for _, r := range RoleOrder {
		if r == role {
			return true
		}
	}
	return false
}

// Set is the resolved model selection for one version/source combination.
type Set struct {
	Version string
	Source  string
	Models  []Model
}

type sourceTable struct {
	BOS []Model `yaml:"bos"`
	HF  []Model `yaml:"hf"`
}

type catalogFile struct {
	Versions map[string]sourceTable `yaml:"versions"`
}

// Catalog is the loaded model table (embedded defaults, optionally
// overlaid by a user file).
type Catalog struct {
	versions map[string]sourceTable
}

// Load parses the embedded default catalog.
func Load() (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data.CatalogYAML, &f); err != nil {
		return nil, fmt.Errorf("embedded catalog: %w", err)
	}
	if len(f.Versions) == 0 {
		return nil, fmt.Errorf("embedded catalog: no versions")
	}
	return &Catalog{versions: f.Versions}, nil
}

// ApplyOverlayFile merges a user catalog file on top of the defaults.
// Overlay entries replace default entries with the same role; new roles
// are appended. Versions or sources absent from the overlay keep their
// defaults.
func (c *Catalog) ApplyOverlayFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("catalog overlay: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("catalog overlay %s: %w", path, err)
	}
	for version, tbl := range f.Versions {
		base := c.versions[version]
		base.BOS = mergeModels(base.BOS, tbl.BOS)
		base.HF = mergeModels(base.HF, tbl.HF)
		c.versions[version] = base
	}
	return nil
}

// mergeModels merges overlay into base by role (overlay overwrites or appends). Returns a new slice.
func mergeModels(base, overlay []Model) []Model {
	if len(overlay) == 0 {
		return base
	}
	byRole := make(map[string]Model, len(base)+len(overlay))
	for _, m := range base {
		byRole[m.Role] = m
	}
	for _, m := range overlay {
		byRole[m.Role] = m
	}
	out := make([]Model, 0, len(byRole))
	seen := make(map[string]bool, len(byRole))
	for _, m := range base {
		if !seen[m.Role] {
			out = append(out, byRole[m.Role])
			seen[m.Role] = true
		}
	}
	for _, m := range overlay {
		if !seen[m.Role] {
			out = append(out, m)
			seen[m.Role] = true
		}
	}
	return out
}

// NormalizeVersion lowercases a version tag and maps anything
// unrecognized to the default.
func NormalizeVersion(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, known := range Versions {
		if v == known {
			return v
		}
	}
	return DefaultVersion
}

// Resolve returns the validated model set for a version/source
// combination, ordered by RoleOrder.
func (c *Catalog) Resolve(version string, useHF bool) (*Set, error) {
	version = NormalizeVersion(version)
	tbl, ok := c.versions[version]
	if !ok {
		return nil, fmt.Errorf("catalog: no entries for version %s", version)
	}
	source := SourceBOS
	models := tbl.BOS
	if useHF {
		source = SourceHF
		models = tbl.HF
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("catalog: no %s entries for version %s", source, version)
	}
	seen := make(map[string]bool, len(models))
	for _, m := range models {
		if seen[m.Role] {
			return nil, fmt.Errorf("catalog %s/%s: duplicate role %q", version, source, m.Role)
		}
		seen[m.Role] = true
	}
	ordered := make([]Model, 0, len(models))
	for _, role := range RoleOrder {
		for _, m := range models {
			if m.Role == role {
				ordered = append(ordered, m)
			}
		}
	}
	if len(ordered) != len(models) {
		for _, m := range models {
			if !validRole(m.Role) {
				return nil, fmt.Errorf("catalog %s/%s: invalid role %q", version, source, m.Role)
			}
		}
	}
	for i := range ordered {
		if err := ordered[i].Validate(); err != nil {
			return nil, fmt.Errorf("catalog %s/%s: %w", version, source, err)
		}
	}
	return &Set{Version: version, Source: source, Models: ordered}, nil
}
