// Package classify decides what role a file plays in a client install.
//
// Classification is a pure function of the forward-slash relative path so it
// can be tested without touching a filesystem.
package classify

import (
	"path"
	"strings"

	"github.com/danieljhkim/launchcheck/internal/manifest"
)

// Rules configures classification.
type Rules struct {
	// DataDir is the top-level game data directory (e.g. "Data").
	DataDir string

	// Locale is the locale code used both as a directory and inside patch
	// archive names (e.g. "enUS").
	Locale string

	// Extension is the patch archive extension without the dot (e.g. "MPQ").
	Extension string

	// ConfigFiles are base names classified as Config.
	ConfigFiles []string

	// OptionalDirs are top-level directories whose files are Optional.
	OptionalDirs []string
}

// DefaultRules returns the rules for an enUS client.
func DefaultRules() Rules {
	return Rules{
		DataDir:     "Data",
		Locale:      "enUS",
		Extension:   "MPQ",
		ConfigFiles: []string{"realmlist.wtf"},
	}
}

// LocaleDir returns the directory patch archives must live in.
func (r Rules) LocaleDir() string {
	return r.DataDir + "/" + r.Locale
}

// Classify returns the kind of the file at relPath.
func (r Rules) Classify(relPath string) manifest.Kind {
	p := manifest.NormalizePath(relPath)
	if r.IsPatchFile(p) {
		return manifest.KindPatch
	}

	base := path.Base(p)
	for _, name := range r.ConfigFiles {
		if strings.EqualFold(base, name) {
			return manifest.KindConfig
		}
	}

	first, _, _ := strings.Cut(p, "/")
	if first != p {
		for _, dir := range r.OptionalDirs {
			if strings.EqualFold(first, dir) {
				return manifest.KindOptional
			}
		}
	}

	return manifest.KindCore
}

// IsPatchFile reports whether relPath is a locale patch archive: it must sit
// directly in the locale data directory and be named
// Patch-<Locale>-<letter>.<Extension>, compared case-insensitively.
func (r Rules) IsPatchFile(relPath string) bool {
	p := manifest.NormalizePath(relPath)
	dir, name := path.Split(p)
	if !strings.EqualFold(strings.TrimSuffix(dir, "/"), r.LocaleDir()) {
		return false
	}

	prefix := "patch-" + strings.ToLower(r.Locale) + "-"
	suffix := "." + strings.ToLower(r.Extension)
	if len(name) != len(prefix)+1+len(suffix) {
		return false
	}

	lower := strings.ToLower(name)
	if !strings.HasPrefix(lower, prefix) || !strings.HasSuffix(lower, suffix) {
		return false
	}

	letter := lower[len(prefix)]
	return letter >= 'a' && letter <= 'z'
}
