// Package inspect decides whether a local client is ready to launch.
//
// The Orchestrator fetches the published patch manifest, delegates per-file
// comparison to a sanitize.Checker and reduces the outcome to one of a small
// set of Report variants. Nothing escapes its public entry points: every
// failure resolves to a Report.
//
// A fetch failure yields NetworkError and skips local scanning entirely. This
// fail-fast policy means a transient network problem blocks launch even when
// the local files are fine; callers retry by running verification again.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danieljhkim/launchcheck/internal/clock"
	"github.com/danieljhkim/launchcheck/internal/fetch"
	"github.com/danieljhkim/launchcheck/internal/fsops"
	"github.com/danieljhkim/launchcheck/internal/install"
	"github.com/danieljhkim/launchcheck/internal/logging"
	"github.com/danieljhkim/launchcheck/internal/manifest"
	"github.com/danieljhkim/launchcheck/internal/sanitize"
)

// ProgressFunc receives a human-readable step and an overall percentage in
// [0, 100]. It may be called from a background goroutine.
type ProgressFunc func(message string, percent int)

// Orchestrator runs verification for one install.
//
// The fetched manifest is memoized for the lifetime of the instance; a new
// instance always refetches. The fetch-and-cache step is serialized by an
// internal lock, so concurrent VerifyClient calls fetch at most once.
type Orchestrator struct {
	source   fetch.Source
	checker  sanitize.Checker
	presence install.Presence
	fs       fsops.FS
	clock    clock.Clock
	logger   *zap.Logger

	mu     sync.Mutex
	cached *manifest.PatchManifest
}

// New creates a new Orchestrator with the given dependencies.
func New(
	source fetch.Source,
	checker sanitize.Checker,
	presence install.Presence,
	fs fsops.FS,
	clk clock.Clock,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		source:   source,
		checker:  checker,
		presence: presence,
		fs:       fs,
		clock:    clk,
		logger:   logging.OrNop(logger),
	}
}

// QuickCheck inspects the local filesystem only. It never touches the network
// and never fails.
func (o *Orchestrator) QuickCheck(installPath string) (report Report) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("quick check panicked", zap.Any("panic", r))
			report = MissingExecutable{Path: installPath}
		}
	}()

	if installPath == "" || !o.fs.IsDir(installPath) {
		return NotInstalled{Path: installPath}
	}
	if !o.presence.IsInstalled(installPath) {
		return MissingExecutable{Path: installPath}
	}
	return ReadyToLaunch{}
}

// VerifyClient runs the full verification flow. onProgress may be nil.
func (o *Orchestrator) VerifyClient(ctx context.Context, installPath string, onProgress ProgressFunc) (report Report) {
	runID := uuid.NewString()
	logger := o.logger.With(zap.String("run", runID), zap.String("install", installPath))
	start := o.clock.Now()

	progress := func(message string, percent int) {
		if onProgress != nil {
			onProgress(message, percent)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("verification panicked", zap.Any("panic", r))
			report = RequiresRepair{Reason: fmt.Sprintf("Verification failed unexpectedly: %v", r)}
		}
		logger.Info("verification finished",
			zap.String("status", string(report.Status())),
			zap.Duration("duration", o.clock.Since(start)))
	}()

	progress("Fetching manifest", 0)
	m, err := o.manifest(ctx)
	if err != nil {
		logger.Warn("manifest fetch failed", zap.Error(err))
		return NetworkError{Reason: describeFetchError(err)}
	}
	logger.Debug("manifest ready", zap.Int64("version", m.Version), zap.Int("patches", len(m.Patches)))

	if installPath == "" || !o.fs.IsDir(installPath) {
		return NotInstalled{Path: installPath}
	}

	progress("Checking files", 50)
	result, err := o.checker.CheckPatches(ctx, installPath, m, func(p sanitize.VerificationProgress) {
		msg := "Checking files"
		if p.CurrentFile != "" {
			msg = fmt.Sprintf("Checking %s", p.CurrentFile)
		}
		progress(msg, 50+p.Percentage()/2)
	})
	if err != nil {
		logger.Warn("file check failed", zap.Error(err))
		switch {
		case errors.Is(err, sanitize.ErrInstallNotFound):
			return NotInstalled{Path: installPath}
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return RequiresRepair{Reason: "Verification was interrupted before it completed"}
		default:
			return RequiresRepair{Reason: fmt.Sprintf("Could not check local files: %v", err)}
		}
	}

	if len(result.MismatchedFiles) > 0 {
		update := RequiresUpdate{Manifest: m, Sanitization: result}
		progress(update.Message(), 100)
		return update
	}

	progress("Verification complete", 100)
	return ReadyToLaunch{Manifest: m}
}

// Invalidate drops the memoized manifest so the next verification refetches.
func (o *Orchestrator) Invalidate() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cached = nil
}

// manifest returns the memoized manifest, fetching it on first use. Failures
// are not cached.
func (o *Orchestrator) manifest(ctx context.Context) (*manifest.PatchManifest, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cached != nil {
		return o.cached, nil
	}

	m, err := o.source.FetchPatchManifest(ctx)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: empty response", fetch.ErrMalformed)
	}
	o.cached = m
	return m, nil
}

// describeFetchError renders a fetch failure for the user.
func describeFetchError(err error) string {
	var statusErr *fetch.StatusError
	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf("Update server returned an error (%d). Please try again later.", statusErr.StatusCode)
	case errors.Is(err, fetch.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "Timed out contacting the update server. Please check your connection and try again."
	case errors.Is(err, fetch.ErrMalformed), errors.Is(err, manifest.ErrInvalidManifest):
		return "The update server sent an invalid manifest. Please try again later."
	case errors.Is(err, context.Canceled):
		return "Manifest download was cancelled."
	default:
		return fmt.Sprintf("Could not reach the update server: %v", err)
	}
}
