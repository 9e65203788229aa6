package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

const acceptHeader = "application/schema+json, application/json;q=0.9, application/yaml;q=0.8, */*;q=0.1"

func (l *Loader) readFile(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("jsonschema loader: file path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return l.readLimited(file, abs)
}

func (l *Loader) readFS(name string) ([]byte, error) {
	if name == "" {
		return nil, errors.New("jsonschema loader: fs path is required")
	}
	if l.fs == nil {
		return nil, errors.New("jsonschema loader: fs is nil")
	}
	file, err := l.fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return l.readLimited(file, name)
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("jsonschema loader: url is required")
	}
	reqCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", acceptHeader)

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("jsonschema loader: %s: unexpected status %s", url, resp.Status)
	}
	if resp.ContentLength > l.maxBytes {
		return nil, fmt.Errorf("%w: %s (%d bytes)", ErrTooLarge, url, resp.ContentLength)
	}
	return l.readLimited(resp.Body, url)
}

// readLimited reads at most maxBytes and fails when r holds more.
func (l *Loader) readLimited(r io.Reader, location string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, location, l.maxBytes)
	}
	return data, nil
}
