// Package source provides the readable-byte-source capability used to locate
// rule files and build logs, and line-oriented decoding of log streams.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Opener opens a named byte source for reading. Names are interpreted by the
// implementation: a filesystem path, a workspace-relative path, or a path on
// a remote agent. Callers must close the returned reader.
type Opener interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// ErrOutsideRoot is returned when a relative name resolves outside the opener's root.
var ErrOutsideRoot = errors.New("path escapes root")

// FileOpener opens files on the local filesystem. Relative names are
// resolved against Root when it is set (a build workspace, for example).
type FileOpener struct {
	Root string
}

// Open opens the named file.
func (o FileOpener) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := o.Resolve(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}

// Resolve returns the filesystem path Open would use for name.
func (o FileOpener) Resolve(name string) (string, error) {
	if o.Root == "" || filepath.IsAbs(name) {
		return name, nil
	}

	path := filepath.Join(o.Root, name)
	rel, err := filepath.Rel(o.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", name, ErrOutsideRoot)
	}
	return path, nil
}

// DefaultHTTPTimeout bounds a remote open when the caller's context has no deadline.
const DefaultHTTPTimeout = 30 * time.Second

// HTTPOpener reads sources from a remote agent that serves its workspace
// over HTTP. Names are joined onto BaseURL.
type HTTPOpener struct {
	BaseURL string
	Token   string // Bearer token (optional)
	Client  *http.Client
}

// Open issues a GET for name and returns the response body.
func (o HTTPOpener) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	target, err := url.JoinPath(o.BaseURL, name)
	if err != nil {
		return nil, fmt.Errorf("building url for %s: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "logparse")
	if o.Token != "" {
		req.Header.Set("Authorization", "Bearer "+o.Token)
	}

	client := o.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetching %s: unexpected status %d", target, resp.StatusCode)
	}

	return resp.Body, nil
}
