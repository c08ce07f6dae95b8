// Package config manages launchcheck configuration and filesystem paths.
//
// The data root defaults to ~/.launchcheck and can be moved with the
// LAUNCHCHECK_ROOT environment variable. It holds config.yaml and the logs
// directory. Settings are layered with viper: defaults, then config.yaml,
// then LAUNCHCHECK_* environment variables, then command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// RootEnv overrides the data root directory.
const RootEnv = "LAUNCHCHECK_ROOT"

// Paths contains all the filesystem paths used by launchcheck.
type Paths struct {
	// Root is the base directory for launchcheck data (default: ~/.launchcheck)
	Root string

	// Logs is the directory for run logs
	Logs string

	// Config is the path to the config file
	Config string
}

// DefaultPaths returns the default paths for launchcheck.
func DefaultPaths() (*Paths, error) {
	root := os.Getenv(RootEnv)
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		root = filepath.Join(home, ".launchcheck")
	}

	return &Paths{
		Root:   root,
		Logs:   filepath.Join(root, "logs"),
		Config: filepath.Join(root, "config.yaml"),
	}, nil
}

// EnsureDirectories creates all necessary directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.Root, p.Logs} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
