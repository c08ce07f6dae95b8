// Package sanitize compares local files against a patch manifest.
//
// The full digest is authoritative: an add entry passes only when its full
// digest equals the manifest's fullHash. The sampled fingerprint may be used
// as a cheap pre-filter to reject a file early, but a fingerprint match never
// skips the full digest.
//
// A missing or unreadable file is the expected signal that repair is needed,
// so it is reported as a mismatch rather than failing the scan.
package sanitize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/danieljhkim/launchcheck/internal/fsops"
	"github.com/danieljhkim/launchcheck/internal/hash"
	"github.com/danieljhkim/launchcheck/internal/logging"
	"github.com/danieljhkim/launchcheck/internal/manifest"
	"github.com/danieljhkim/launchcheck/internal/pause"
)

// ErrInstallNotFound indicates the install root does not exist.
var ErrInstallNotFound = errors.New("install directory not found")

// Options configures a Sanitizer.
type Options struct {
	// FingerprintPrefilter rejects files whose fingerprint differs before
	// computing the full digest.
	FingerprintPrefilter bool

	// Gate is checked between files. Nil never pauses.
	Gate *pause.Gate
}

// Sanitizer is the default Checker.
type Sanitizer struct {
	fs            fsops.FS
	hasher        hash.Hasher
	fingerprinter hash.Fingerprinter
	opts          Options
	logger        *zap.Logger
}

// New creates a new Sanitizer.
func New(fs fsops.FS, hasher hash.Hasher, fingerprinter hash.Fingerprinter, opts Options, logger *zap.Logger) *Sanitizer {
	return &Sanitizer{
		fs:            fs,
		hasher:        hasher,
		fingerprinter: fingerprinter,
		opts:          opts,
		logger:        logging.OrNop(logger),
	}
}

// CheckPatches implements Checker.
func (s *Sanitizer) CheckPatches(ctx context.Context, installPath string, m *manifest.PatchManifest, onProgress ProgressFunc) (*Result, error) {
	if !s.fs.IsDir(installPath) {
		return nil, fmt.Errorf("%w: %s", ErrInstallNotFound, installPath)
	}

	result := &Result{MismatchedFiles: []Mismatch{}}
	progress := VerificationProgress{Total: len(m.Patches)}
	report := func() {
		if onProgress != nil {
			onProgress(progress)
		}
	}
	report()

	for _, entry := range m.Patches {
		if err := s.opts.Gate.WaitWhilePaused(ctx); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		progress.CurrentFile = entry.RelativePath
		if reason, bad := s.check(installPath, entry); bad {
			s.logger.Debug("file mismatch",
				zap.String("path", entry.RelativePath),
				zap.String("reason", string(reason)))
			result.MismatchedFiles = append(result.MismatchedFiles, Mismatch{Entry: entry, Reason: reason})
		}

		result.Checked++
		progress.Processed++
		report()
	}

	return result, nil
}

// check compares a single entry and returns the reason it fails, if it does.
func (s *Sanitizer) check(installPath string, entry manifest.PatchEntry) (Reason, bool) {
	path, err := fsops.Resolve(installPath, entry.RelativePath)
	if err != nil {
		// Unresolvable paths cannot be satisfied by the local install.
		return ReasonUnreadable, true
	}

	info, err := s.fs.Stat(path)
	if entry.Action == manifest.ActionDelete {
		switch {
		case err == nil:
			return ReasonUnexpected, true
		case errors.Is(err, os.ErrNotExist):
			return "", false
		}
		s.logger.Warn("cannot stat file", zap.String("path", entry.RelativePath), zap.Error(err))
		return ReasonUnreadable, true
	}

	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ReasonMissing, true
		}
		s.logger.Warn("cannot stat file", zap.String("path", entry.RelativePath), zap.Error(err))
		return ReasonUnreadable, true
	}
	if !info.Mode().IsRegular() {
		return ReasonUnreadable, true
	}
	if entry.Size > 0 && info.Size() != entry.Size {
		return ReasonSize, true
	}

	if s.opts.FingerprintPrefilter && entry.Fingerprint != "" {
		fp, err := s.fingerprinter.Fingerprint(path)
		if err != nil {
			return readFailure(err), true
		}
		if !strings.EqualFold(fp, entry.Fingerprint) {
			return ReasonFingerprint, true
		}
	}

	full, err := s.hasher.HashFile(path)
	if err != nil {
		s.logger.Warn("cannot hash file", zap.String("path", entry.RelativePath), zap.Error(err))
		return readFailure(err), true
	}
	if !strings.EqualFold(full, entry.FullHash) {
		return ReasonHash, true
	}
	return "", false
}

func readFailure(err error) Reason {
	if errors.Is(err, hash.ErrNotFound) {
		return ReasonMissing
	}
	return ReasonUnreadable
}
