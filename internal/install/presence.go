// Package install answers whether a client is present in a directory.
package install

import (
	"os"
	"strings"
)

// Presence reports whether a usable client is installed at path.
type Presence interface {
	IsInstalled(path string) bool
}

// DefaultExecutables are the client binaries looked for in the install root.
func DefaultExecutables() []string {
	return []string{"Wow.exe", "WowClassic.exe", "Wow-64.exe"}
}

// ExecutablePresence considers a client installed when one of Names exists as
// a regular file directly under the install root. Names are matched
// case-insensitively.
type ExecutablePresence struct {
	Names []string
}

// NewExecutablePresence creates an ExecutablePresence, using the default
// executables when names is empty.
func NewExecutablePresence(names ...string) *ExecutablePresence {
	if len(names) == 0 {
		names = DefaultExecutables()
	}
	return &ExecutablePresence{Names: names}
}

// IsInstalled implements Presence.
func (p *ExecutablePresence) IsInstalled(path string) bool {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		for _, name := range p.Names {
			if !strings.EqualFold(entry.Name(), name) {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.Mode().IsRegular() {
				return true
			}
		}
	}
	return false
}

// PresenceFunc adapts a function to Presence.
type PresenceFunc func(path string) bool

// IsInstalled implements Presence.
func (f PresenceFunc) IsInstalled(path string) bool {
	return f(path)
}
