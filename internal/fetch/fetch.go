// Package fetch retrieves the published patch manifest.
//
// The HTTP source bounds every request with its own timeout, independent of
// whatever defaults the underlying transport has, so a hung connection cannot
// stall verification indefinitely. Manifests are never cached here; callers
// that want memoization own it explicitly.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/danieljhkim/launchcheck/internal/fsops"
	"github.com/danieljhkim/launchcheck/internal/manifest"
)

const (
	// DefaultTimeout bounds a single manifest fetch.
	DefaultTimeout = 30 * time.Second

	// maxManifestBytes caps the response body read from the server.
	maxManifestBytes = 64 << 20
)

var (
	// ErrMalformed indicates the manifest body could not be decoded or failed validation.
	ErrMalformed = errors.New("malformed manifest")

	// ErrTimeout indicates the fetch exceeded its timeout.
	ErrTimeout = errors.New("manifest fetch timed out")
)

// StatusError is returned when the server answers with a non-success status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("manifest server returned %d %s for %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// Source provides the patch manifest for a verification run.
type Source interface {
	// FetchPatchManifest retrieves and validates the manifest.
	FetchPatchManifest(ctx context.Context) (*manifest.PatchManifest, error)
}

// HTTPSource fetches the manifest over HTTP(S).
type HTTPSource struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration

	// UserAgent is sent with every request when non-empty.
	UserAgent string
}

// NewHTTPSource creates an HTTPSource with the default client and timeout.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		URL:     url,
		Client:  http.DefaultClient,
		Timeout: DefaultTimeout,
	}
}

// FetchPatchManifest performs a single bounded GET.
func (s *HTTPSource) FetchPatchManifest(ctx context.Context) (*manifest.PatchManifest, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build manifest request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, err)
		}
		return nil, fmt.Errorf("failed to fetch manifest: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: s.URL, StatusCode: resp.StatusCode}
	}

	m, err := manifest.DecodePublished(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return m, nil
}

// FileSource reads the manifest from a local file.
type FileSource struct {
	Path string

	// FS reads the file; nil means the real filesystem.
	FS fsops.FS
}

// FetchPatchManifest reads and validates the manifest file.
func (s *FileSource) FetchPatchManifest(ctx context.Context) (*manifest.PatchManifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fs := s.FS
	if fs == nil {
		fs = fsops.NewRealFS()
	}
	data, err := fs.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := manifest.DecodePublished(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return m, nil
}

// NewSource picks an HTTPSource for http(s) locations and a FileSource
// otherwise.
func NewSource(location string, timeout time.Duration) (Source, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.New("manifest location not configured")
	}

	lower := strings.ToLower(location)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		src := NewHTTPSource(location)
		if timeout > 0 {
			src.Timeout = timeout
		}
		return src, nil
	case strings.HasPrefix(lower, "file://"):
		return &FileSource{Path: location[len("file://"):]}, nil
	default:
		return &FileSource{Path: location}, nil
	}
}
