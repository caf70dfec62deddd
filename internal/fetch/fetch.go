// Package fetch downloads model archives and Hugging Face repository files into the staging area.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"
)

const (
	userAgent = "ocrprep/0.1.0"
	// Large recognition models run past a minute on slow links.
	downloadTimeout = 300 * time.Second
	maxRedirects    = 10
)

// ModelFileName and ParamFileName are the primary Paddle inference
// layout. Hugging Face repositories ship the graph as inference.json;
// Paddle Lite wants it under the legacy .pdmodel name, so repo fetches
// copy it over.
const (
	ModelFileName = "inference.pdmodel"
	ParamFileName = "inference.pdiparams"
	graphJSONName = "inference.json"
)

// repoFiles are fetched from {repo}/resolve/main/ for every repository-scheme model.
var repoFiles = []string{ParamFileName, graphJSONName}

var client = &http.Client{
	Timeout: downloadTimeout,
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("too many redirects")
		}
		return nil
	},
}

// Archive downloads a tar archive into destDir, named after the URL's
// last path segment. Returns the local archive path. Any transport or
// HTTP error propagates to the caller.
func Archive(ctx context.Context, rawURL, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("staging dir: %w", err)
	}
	name, err := archiveName(rawURL)
	if err != nil {
		return "", err
	}
	destPath := filepath.Join(destDir, name)
	if err := download(ctx, rawURL, destPath); err != nil {
		return "", err
	}
	return destPath, nil
}

// RepoFiles downloads a model's parameter and graph files from a
// Hugging Face repository into destDir/name, then copies the JSON graph
// to the legacy .pdmodel name. Failure of any single file aborts the
// whole operation. Returns the model directory.
func RepoFiles(ctx context.Context, repoURL, name, destDir string) (string, error) {
	modelDir := filepath.Join(destDir, name)
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return "", fmt.Errorf("model dir: %w", err)
	}
	for _, f := range repoFiles {
		fileURL := repoURL + "/resolve/main/" + f
		if err := download(ctx, fileURL, filepath.Join(modelDir, f)); err != nil {
			return "", fmt.Errorf("%s: %w", f, err)
		}
	}
	src := filepath.Join(modelDir, graphJSONName)
	dst := filepath.Join(modelDir, ModelFileName)
	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("%s: %w", ModelFileName, err)
	}
	return modelDir, nil
}

func download(ctx context.Context, rawURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: HTTP %s", rawURL, resp.Status)
	}
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(destPath) // no partial files in staging
		return fmt.Errorf("save %s: %w", destPath, err)
	}
	return out.Close()
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

func archiveName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %s: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("no file name in url %s", rawURL)
	}
	return name, nil
}
