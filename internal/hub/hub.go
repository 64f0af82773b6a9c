// Package hub resolves pretrained model files from a local cache,
// downloading them from the configured model hub when missing.
package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/unhoang/nlp-recipes/internal/config"
	"github.com/unhoang/nlp-recipes/internal/logging"
)

const (
	modelFile = "model.onnx"
	vocabFile = "vocab.txt"

	maxRetries = 3
)

// Paths locates the files of one cached pretrained model.
type Paths struct {
	Model string
	Vocab string
}

// Fetch resolves the ONNX model and vocabulary for the named pretrained
// model under cacheDir, downloading whichever files are missing. A file
// already present in the cache is never re-downloaded.
func Fetch(ctx context.Context, name, cacheDir string) (Paths, error) {
	dir := filepath.Join(cacheDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("hub: create cache dir: %w", err)
	}

	p := Paths{
		Model: filepath.Join(dir, modelFile),
		Vocab: filepath.Join(dir, vocabFile),
	}
	endpoint := config.Load().HubEndpoint

	for _, f := range []struct{ path, file string }{
		{p.Model, modelFile},
		{p.Vocab, vocabFile},
	} {
		if _, err := os.Stat(f.path); err == nil {
			continue
		}
		url := fmt.Sprintf("%s/%s/resolve/main/%s", endpoint, name, f.file)
		if err := download(ctx, url, f.path); err != nil {
			return Paths{}, fmt.Errorf("hub: fetch %s: %w", f.file, err)
		}
	}
	return p, nil
}

// download fetches url into path, writing through a temp file and renaming
// so a partial transfer never poisons the cache. Server errors are retried
// with exponential backoff (1s, 2s, 4s).
func download(ctx context.Context, url, path string) error {
	logging.Default().Info("downloading pretrained file", "url", url, "dest", path)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<(attempt-1)) * time.Second
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}

		err := fetchOnce(ctx, url, path)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) {
			return err
		}
		logging.Default().Warn("download failed, retrying", "url", url, "attempt", attempt+1, "error", err)
	}
	return lastErr
}

// statusError reports a non-2xx response.
type statusError int

func (s statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", int(s))
}

func retryable(err error) bool {
	if s, ok := err.(statusError); ok {
		return int(s) == http.StatusTooManyRequests || int(s) >= 500
	}
	// Transport-level failures are worth another attempt.
	return true
}

func fetchOnce(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".partial-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
