// Package integration exercises manifest generation and client verification
// end to end against real files and a local HTTP manifest server.
package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/danieljhkim/launchcheck/internal/classify"
	"github.com/danieljhkim/launchcheck/internal/clock"
	"github.com/danieljhkim/launchcheck/internal/fetch"
	"github.com/danieljhkim/launchcheck/internal/fsops"
	"github.com/danieljhkim/launchcheck/internal/generator"
	"github.com/danieljhkim/launchcheck/internal/hash"
	"github.com/danieljhkim/launchcheck/internal/inspect"
	"github.com/danieljhkim/launchcheck/internal/install"
	"github.com/danieljhkim/launchcheck/internal/sanitize"
)

// writeTree creates files under root, keyed by forward-slash relative path.
func writeTree(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir %s: %v", rel, err)
		}
		if err := os.WriteFile(path, content, 0644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

// copyTree duplicates src into a fresh temp directory.
func copyTree(t *testing.T, src string) string {
	t.Helper()
	dst := filepath.Join(t.TempDir(), "install")
	err := filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0644)
	})
	if err != nil {
		t.Fatalf("copy tree: %v", err)
	}
	return dst
}

// generate runs the real generator over root into a temp output directory.
func generate(t *testing.T, root string, req generator.GenerateRequest) (*generator.GenerateResult, string) {
	t.Helper()
	out := t.TempDir()
	req.Root = root
	req.OutputDir = out

	hasher := hash.NewSHA256Hasher()
	gen := generator.New(fsops.NewRealFS(), hasher, hasher, &clock.RealClock{}, classify.DefaultRules(), nil, nil)
	result, err := gen.Generate(context.Background(), &req)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return result, out
}

// serveDir publishes dir over HTTP for the lifetime of the test.
func serveDir(t *testing.T, dir string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	t.Cleanup(srv.Close)
	return srv
}

// newOrchestrator wires real collaborators around source.
func newOrchestrator(source fetch.Source, opts sanitize.Options) *inspect.Orchestrator {
	fs := fsops.NewRealFS()
	hasher := hash.NewSHA256Hasher()
	checker := sanitize.New(fs, hasher, hasher, opts, nil)
	presence := install.NewExecutablePresence(install.DefaultExecutables()...)
	return inspect.New(source, checker, presence, fs, &clock.RealClock{}, nil)
}
