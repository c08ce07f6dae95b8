package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/danieljhkim/launchcheck/internal/clock"
	"github.com/danieljhkim/launchcheck/internal/config"
	"github.com/danieljhkim/launchcheck/internal/fetch"
	"github.com/danieljhkim/launchcheck/internal/fsops"
	"github.com/danieljhkim/launchcheck/internal/generator"
	"github.com/danieljhkim/launchcheck/internal/hash"
	"github.com/danieljhkim/launchcheck/internal/inspect"
	"github.com/danieljhkim/launchcheck/internal/install"
	"github.com/danieljhkim/launchcheck/internal/logging"
	"github.com/danieljhkim/launchcheck/internal/pause"
	"github.com/danieljhkim/launchcheck/internal/sanitize"
)

// Output formats accepted by --output.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	settings *config.Settings
	logger   = zap.NewNop()
)

// ExitError carries a process exit code for a command that already reported
// its outcome.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// setup loads settings and builds the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	paths, err := config.DefaultPaths()
	if err != nil {
		return err
	}
	path := configFile
	if path == "" {
		path = paths.Config
	}

	s, err := config.Load(config.NewViper(), path)
	if err != nil {
		return err
	}

	opts := logging.Options{Level: s.LogLevel, JSON: s.LogJSON, Writer: cmd.ErrOrStderr()}
	if verbose {
		opts.Level = "debug"
	}
	if s.LogToFile {
		if err := paths.EnsureDirectories(); err != nil {
			return err
		}
		opts.File = filepath.Join(paths.Logs, logging.LogFile)
	}
	l, err := logging.New(opts)
	if err != nil {
		return err
	}

	settings = s
	logger = l
	return nil
}

// currentSettings returns the loaded settings, or defaults when setup has
// not run.
func currentSettings() *config.Settings {
	if settings != nil {
		return settings
	}
	s, err := config.Load(config.NewViper(), "")
	if err != nil {
		panic(fmt.Sprintf("default settings are invalid: %v", err))
	}
	return s
}

// newOrchestrator creates an orchestrator with real implementations of all
// dependencies. manifestURL may be empty for local-only checks.
func newOrchestrator(s *config.Settings, manifestURL string, gate *pause.Gate) (*inspect.Orchestrator, error) {
	var source fetch.Source
	if manifestURL != "" {
		src, err := fetch.NewSource(manifestURL, s.FetchTimeout)
		if err != nil {
			return nil, err
		}
		source = src
	}

	fs := fsops.NewRealFS()
	hasher := hash.NewSHA256Hasher()
	checker := sanitize.New(fs, hasher, hasher, sanitize.Options{
		FingerprintPrefilter: s.FingerprintPrefilter,
		Gate:                 gate,
	}, logger)
	presence := install.NewExecutablePresence(s.Executables...)

	return inspect.New(source, checker, presence, fs, &clock.RealClock{}, logger), nil
}

// newGenerator creates a generator with real implementations of all
// dependencies.
func newGenerator(s *config.Settings) *generator.Generator {
	hasher := hash.NewSHA256Hasher()
	return generator.New(fsops.NewRealFS(), hasher, hasher, &clock.RealClock{}, s.Rules(), s.IgnoreSet(), logger)
}

// resolveInstallDir picks the install directory from args, settings, then the
// working directory.
func resolveInstallDir(args []string, s *config.Settings) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if s.InstallDir != "" {
		return s.InstallDir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return cwd, nil
}

// outputFormat resolves --output against the global --json flag.
func outputFormat(flag string) (string, error) {
	if jsonOutput {
		return formatJSON, nil
	}
	switch flag {
	case "", formatText:
		return formatText, nil
	case formatJSON, formatYAML:
		return flag, nil
	}
	return "", fmt.Errorf("unsupported output format %q (want text, json or yaml)", flag)
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputYAML writes v as YAML.
func outputYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// PrintCommandError writes err to w. Errors from commands that already
// printed their outcome write nothing.
func PrintCommandError(w io.Writer, err error) {
	if err == nil {
		return
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == errReported {
		return
	}
	PrintError(w, err.Error())
}

// errReported marks a non-zero exit whose reason was already printed.
var errReported = errors.New("reported")
