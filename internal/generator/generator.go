package generator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danieljhkim/launchcheck/internal/classify"
	"github.com/danieljhkim/launchcheck/internal/clock"
	"github.com/danieljhkim/launchcheck/internal/fsops"
	"github.com/danieljhkim/launchcheck/internal/hash"
	"github.com/danieljhkim/launchcheck/internal/logging"
	"github.com/danieljhkim/launchcheck/internal/manifest"
)

// Generator turns an install tree into manifest artifacts.
type Generator struct {
	fs            fsops.FS
	hasher        hash.Hasher
	fingerprinter hash.Fingerprinter
	clock         clock.Clock
	rules         classify.Rules
	ignore        *classify.IgnoreSet
	logger        *zap.Logger
}

// New creates a new Generator with the given dependencies.
func New(
	fs fsops.FS,
	hasher hash.Hasher,
	fingerprinter hash.Fingerprinter,
	clk clock.Clock,
	rules classify.Rules,
	ignore *classify.IgnoreSet,
	logger *zap.Logger,
) *Generator {
	if ignore == nil {
		ignore = classify.DefaultIgnoreSet()
	}
	return &Generator{
		fs:            fs,
		hasher:        hasher,
		fingerprinter: fingerprinter,
		clock:         clk,
		rules:         rules,
		ignore:        ignore,
		logger:        logging.OrNop(logger),
	}
}

// scannedFile is a file discovered by the walk.
type scannedFile struct {
	absPath string
	relPath string
	size    int64
	kind    manifest.Kind
}

// hashedFile is the digest output for one scanned file.
type hashedFile struct {
	fullHash    string
	fingerprint string
	ok          bool
}

// Generate scans req.Root and writes the manifest artifacts.
func (g *Generator) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	start := g.clock.Now()

	root, err := filepath.Abs(req.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve client directory: %w", err)
	}
	exists, err := g.fs.Exists(root)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect client directory: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s does not exist", ErrRootNotDir, req.Root)
	}
	if !g.fs.IsDir(root) {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootNotDir, req.Root)
	}

	outDir := req.OutputDir
	if outDir == "" {
		outDir = "."
	}
	outDir, err = filepath.Abs(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	g.logger.Info("scanning client directory",
		zap.String("root", root),
		zap.String("output", outDir),
		zap.Bool("strict", req.Strict))

	result := &GenerateResult{}
	files, err := g.scan(ctx, root, outDir, req, result)
	if err != nil {
		return nil, err
	}

	hashed, err := g.hashAll(ctx, files, req, result)
	if err != nil {
		return nil, err
	}

	result.Base, result.Patch, result.Client = g.assemble(files, hashed, req)
	result.FileCount = len(result.Base.Files)
	result.PatchCount = len(result.Patch.Patches)
	for _, f := range result.Base.Files {
		result.TotalBytes += f.Size
	}

	if !req.DryRun {
		if err := g.write(outDir, result); err != nil {
			return nil, err
		}
	}

	result.Duration = g.clock.Since(start)
	g.logger.Info("manifest generation complete",
		zap.Int("files", result.FileCount),
		zap.Int("patches", result.PatchCount),
		zap.Int("skipped", len(result.Skipped)),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// scan walks root and returns every shipped regular file.
func (g *Generator) scan(ctx context.Context, root, outDir string, req *GenerateRequest, result *GenerateResult) ([]scannedFile, error) {
	outputs := map[string]struct{}{
		filepath.Join(outDir, BaseManifestFile):   {},
		filepath.Join(outDir, PatchManifestFile):  {},
		filepath.Join(outDir, ClientManifestFile): {},
	}

	var files []scannedFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if walkErr != nil {
			if path == root {
				return walkErr
			}
			if err := g.skip(req, result, relOrAbs(root, path), walkErr); err != nil {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && g.ignore.SkipDir(d.Name()) {
				g.logger.Debug("skipping ignored directory", zap.String("path", path))
				return filepath.SkipDir
			}
			return nil
		}

		if _, ok := outputs[path]; ok {
			return nil
		}

		rel, err := fsops.ToSlashRel(root, path)
		if err != nil {
			return err
		}
		if g.ignore.SkipFile(rel) {
			return nil
		}

		// Stat follows symlinks; symlinked directories are not descended into.
		info, err := g.fs.Stat(path)
		if err != nil {
			return g.skip(req, result, rel, err)
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		files = append(files, scannedFile{
			absPath: path,
			relPath: rel,
			size:    info.Size(),
			kind:    g.rules.Classify(rel),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan client directory: %w", err)
	}

	return files, nil
}

// relOrAbs returns path relative to root, falling back to path itself.
func relOrAbs(root, path string) string {
	rel, err := fsops.ToSlashRel(root, path)
	if err != nil {
		return path
	}
	return rel
}

// skip records an unreadable file, or fails the run in strict mode.
func (g *Generator) skip(req *GenerateRequest, result *GenerateResult, rel string, err error) error {
	wrapped := fmt.Errorf("%w %s: %w", ErrUnreadable, rel, err)
	if req.Strict {
		return wrapped
	}

	g.logger.Warn("skipping unreadable file", zap.String("path", rel), zap.Error(err))
	result.Skipped = append(result.Skipped, SkippedFile{Path: rel, Err: wrapped, Reason: err.Error()})
	return nil
}

// hashAll digests the files that need it on a bounded worker pool.
func (g *Generator) hashAll(ctx context.Context, files []scannedFile, req *GenerateRequest, result *GenerateResult) ([]hashedFile, error) {
	workers := req.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	hashed := make([]hashedFile, len(files))
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, f := range files {
		i, f := i, f
		isPatch := f.kind == manifest.KindPatch
		if !isPatch && !req.IncludeClientManifest {
			continue
		}

		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}

			full, err := g.hasher.HashFile(f.absPath)
			var fp string
			if err == nil && isPatch {
				fp, err = g.fingerprinter.Fingerprint(f.absPath)
			}
			if err != nil {
				mu.Lock()
				defer mu.Unlock()
				return g.skip(req, result, f.relPath, err)
			}

			g.logger.Debug("hashed file", zap.String("path", f.relPath), zap.String("kind", string(f.kind)))
			hashed[i] = hashedFile{fullHash: full, fingerprint: fp, ok: true}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to hash client files: %w", err)
	}

	sort.Slice(result.Skipped, func(i, j int) bool { return result.Skipped[i].Path < result.Skipped[j].Path })
	return hashed, nil
}

// assemble builds the manifests from the scan and hash results.
func (g *Generator) assemble(files []scannedFile, hashed []hashedFile, req *GenerateRequest) (*manifest.BaseManifest, *manifest.PatchManifest, *manifest.ClientManifest) {
	now := g.clock.Now()

	base := &manifest.BaseManifest{Files: make([]manifest.FileEntry, 0, len(files))}
	patch := &manifest.PatchManifest{
		Version: now.Unix(),
		BaseURL: req.BaseURL,
		Patches: []manifest.PatchEntry{},
	}

	var client *manifest.ClientManifest
	if req.IncludeClientManifest {
		client = &manifest.ClientManifest{
			Version:           now.Unix(),
			LastUpdated:       now.UTC(),
			BaseURL:           req.BaseURL,
			ClientDownloadURL: req.ClientDownloadURL,
			Components:        []manifest.ClassifiedFile{},
		}
	}

	for i, f := range files {
		base.Files = append(base.Files, manifest.FileEntry{RelativePath: f.relPath, Size: f.size})

		h := hashed[i]
		if !h.ok {
			continue
		}

		if f.kind == manifest.KindPatch {
			patch.Patches = append(patch.Patches, manifest.PatchEntry{
				RelativePath: f.relPath,
				DownloadName: filepath.Base(f.absPath),
				Size:         f.size,
				Fingerprint:  h.fingerprint,
				FullHash:     h.fullHash,
				Action:       manifest.ActionAdd,
			})
		}

		if client != nil {
			client.Components = append(client.Components, manifest.ClassifiedFile{
				RelativePath: f.relPath,
				FullHash:     h.fullHash,
				Size:         f.size,
				Kind:         f.kind,
				DownloadURL:  downloadURL(req.BaseURL, f.relPath),
			})
		}
	}

	base.Sort()
	patch.Sort()
	if client != nil {
		client.Sort()
	}
	return base, patch, client
}

func downloadURL(baseURL, relPath string) string {
	if baseURL == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/" + relPath
}

// write encodes and atomically writes each artifact.
func (g *Generator) write(outDir string, result *GenerateResult) error {
	artifacts := []struct {
		name  string
		value any
	}{
		{BaseManifestFile, result.Base},
		{PatchManifestFile, result.Patch},
	}
	if result.Client != nil {
		artifacts = append(artifacts, struct {
			name  string
			value any
		}{ClientManifestFile, result.Client})
	}

	for _, a := range artifacts {
		data, err := manifest.Marshal(a.value)
		if err != nil {
			return err
		}
		path := filepath.Join(outDir, a.name)
		if err := g.fs.AtomicWrite(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", a.name, err)
		}
		result.Written = append(result.Written, path)
		g.logger.Debug("wrote manifest", zap.String("path", path), zap.Int("bytes", len(data)))
	}

	return nil
}
