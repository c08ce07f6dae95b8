package classify

import (
	"path"
	"strings"

	"github.com/danieljhkim/launchcheck/internal/manifest"
)

// DefaultIgnoreDirs returns directory names that are user-mutable or never
// shipped with the client.
func DefaultIgnoreDirs() []string {
	return []string{
		"Interface",
		"WTF",
		"Screenshots",
		"Logs",
		"Errors",
		"Cache",
		"Quarantine",
		".git",
		".svn",
	}
}

// DefaultIgnoreFiles returns base names of tooling binaries that live in the
// install root but are not part of the client.
func DefaultIgnoreFiles() []string {
	return []string{
		"launchcheck",
		"launchcheck.exe",
		"Launcher.exe",
	}
}

// IgnoreSet matches paths against ignored directory and file names.
// Matching is case-insensitive.
type IgnoreSet struct {
	dirs  map[string]struct{}
	files map[string]struct{}
}

// NewIgnoreSet builds an IgnoreSet.
func NewIgnoreSet(dirs, files []string) *IgnoreSet {
	s := &IgnoreSet{
		dirs:  make(map[string]struct{}, len(dirs)),
		files: make(map[string]struct{}, len(files)),
	}
	for _, d := range dirs {
		s.dirs[strings.ToLower(d)] = struct{}{}
	}
	for _, f := range files {
		s.files[strings.ToLower(f)] = struct{}{}
	}
	return s
}

// DefaultIgnoreSet returns an IgnoreSet with the default names.
func DefaultIgnoreSet() *IgnoreSet {
	return NewIgnoreSet(DefaultIgnoreDirs(), DefaultIgnoreFiles())
}

// SkipDir reports whether a directory with the given base name is ignored.
func (s *IgnoreSet) SkipDir(name string) bool {
	_, ok := s.dirs[strings.ToLower(name)]
	return ok
}

// SkipFile reports whether relPath is ignored, either by its base name or
// because any of its parent directories is ignored.
func (s *IgnoreSet) SkipFile(relPath string) bool {
	p := manifest.NormalizePath(relPath)
	dir, name := path.Split(p)
	if _, ok := s.files[strings.ToLower(name)]; ok {
		return true
	}
	for _, segment := range strings.Split(strings.TrimSuffix(dir, "/"), "/") {
		if segment != "" && s.SkipDir(segment) {
			return true
		}
	}
	return false
}
