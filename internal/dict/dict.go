// Package dict fetches the character dictionary the recognition model
// needs, with a static alphanumeric fallback when the network fetch
// fails. Dictionary problems never abort a run.
package dict

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultURL is the English dictionary in the upstream PaddleOCR repo.
const DefaultURL = "https://raw.githubusercontent.com/PaddlePaddle/PaddleOCR/main/ppocr/utils/dict/en_dict.txt"

// FileName is the staged dictionary name the mobile app expects.
const FileName = "ppocr_keys_v1.txt"

// fallbackChars is the minimal character set written when the download
// fails: the 62 alphanumerics, one per line.
const fallbackChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const fetchTimeout = 30 * time.Second

// Result reports where the dictionary ended up and whether the
// fallback was used.
type Result struct {
	Path     string
	Fallback bool
}

// Fetch downloads the dictionary from url into outDir/FileName. On any
// failure it writes the fallback set instead; the only error case is
// being unable to write the fallback file itself.
func Fetch(ctx context.Context, url, outDir string) (*Result, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	path := filepath.Join(outDir, FileName)
	if err := download(ctx, url, path); err != nil {
		if werr := writeFallback(path); werr != nil {
			return nil, fmt.Errorf("dictionary fallback: %w", werr)
		}
		return &Result{Path: path, Fallback: true}, nil
	}
	return &Result{Path: path}, nil
}

func download(ctx context.Context, url, destPath string) error {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "ocrprep/0.1.0")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %s", resp.Status)
	}
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(destPath)
		return err
	}
	return out.Close()
}

func writeFallback(path string) error {
	var b strings.Builder
	for _, c := range fallbackChars {
		b.WriteRune(c)
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}
