package cli

import (
	"os"
	"strings"

	"github.com/ocrkit/ocrprep/internal/catalog"
)

func envDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "true" || v == "1" || v == "yes"
}

// resolveSet loads the catalog (plus the optional overlay file) and
// resolves the model set for the selected version/source.
func resolveSet() (*catalog.Set, error) {
	c, err := catalog.Load()
	if err != nil {
		return nil, err
	}
	if flagCatalogFile != "" {
		if err := c.ApplyOverlayFile(flagCatalogFile); err != nil {
			return nil, err
		}
	}
	return c.Resolve(flagOCRVersion, flagHF)
}
