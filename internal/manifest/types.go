// Package manifest defines the declarative description of a correct client
// install.
//
// Two granularities are published. A BaseManifest lists every shipped file with
// its size and is cheap to regenerate because it needs no hashing. A
// PatchManifest covers the locale archives that change release to release and
// carries both a sampled fingerprint and a full digest for each of them.
// ClientManifest folds classification and download locations into a single
// richer artifact.
//
// Manifests are produced offline by the generator and consumed read-only. All
// paths are relative to the install root and use forward slashes.
package manifest

import (
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Action describes what a patch entry asks the client to do with a file.
type Action string

const (
	// ActionAdd means the file must exist with the declared digest.
	ActionAdd Action = "add"

	// ActionDelete means the file must not exist.
	ActionDelete Action = "delete"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a == ActionAdd || a == ActionDelete
}

// Kind classifies a file in the install tree.
type Kind string

const (
	KindCore     Kind = "Core"
	KindPatch    Kind = "Patch"
	KindConfig   Kind = "Config"
	KindOptional Kind = "Optional"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindCore, KindPatch, KindConfig, KindOptional:
		return true
	}
	return false
}

// FileEntry is an existence-only record: a path and its expected size.
type FileEntry struct {
	RelativePath string `json:"relativePath" yaml:"relativePath"`
	Size         int64  `json:"size" yaml:"size"`
}

// PatchEntry is a hash-verified record for a file that changes between releases.
type PatchEntry struct {
	RelativePath string `json:"relativePath" yaml:"relativePath"`

	// DownloadName is the server-side name, which may differ from the local layout.
	DownloadName string `json:"downloadName" yaml:"downloadName"`

	Size        int64  `json:"size" yaml:"size"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
	FullHash    string `json:"fullHash" yaml:"fullHash"`
	Action      Action `json:"action" yaml:"action"`
}

// BaseManifest is the complete expected file list.
type BaseManifest struct {
	Files []FileEntry `json:"files" yaml:"files"`
}

// PatchManifest is published by the server and fetched at verification time.
type PatchManifest struct {
	// Version is monotonically increasing but only used for display and
	// cache busting, never for integrity decisions.
	Version int64        `json:"version" yaml:"version"`
	BaseURL string       `json:"baseUrl" yaml:"baseUrl"`
	Patches []PatchEntry `json:"patches" yaml:"patches"`

	// LauncherUpdate is carried over when the manifest was projected from a
	// client manifest that advertises one.
	LauncherUpdate *LauncherUpdate `json:"launcherUpdate,omitempty" yaml:"launcherUpdate,omitempty"`
}

// Lookup returns the entry for relPath, if any.
func (m *PatchManifest) Lookup(relPath string) (PatchEntry, bool) {
	want := NormalizePath(relPath)
	for _, p := range m.Patches {
		if p.RelativePath == want {
			return p, true
		}
	}
	return PatchEntry{}, false
}

// DownloadURL returns the repair location for an entry.
func (m *PatchManifest) DownloadURL(e PatchEntry) string {
	name := e.DownloadName
	if name == "" {
		name = e.RelativePath
	}
	if m.BaseURL == "" {
		return name
	}
	return strings.TrimRight(m.BaseURL, "/") + "/" + strings.TrimLeft(name, "/")
}

// LauncherUpdate describes an available self-update of the launcher.
type LauncherUpdate struct {
	Version     string `json:"version" yaml:"version"`
	FullHash    string `json:"fullHash" yaml:"fullHash"`
	DownloadURL string `json:"downloadUrl" yaml:"downloadUrl"`
	Mandatory   bool   `json:"mandatory" yaml:"mandatory"`
}

// Newer reports whether the advertised launcher version is newer than current.
func (u *LauncherUpdate) Newer(current string) (bool, error) {
	advertised, err := semver.NewVersion(u.Version)
	if err != nil {
		return false, fmt.Errorf("invalid launcher update version %q: %w", u.Version, err)
	}
	installed, err := semver.NewVersion(current)
	if err != nil {
		return false, fmt.Errorf("invalid current launcher version %q: %w", current, err)
	}
	return advertised.GreaterThan(installed), nil
}

// ClassifiedFile is a component of a ClientManifest.
type ClassifiedFile struct {
	RelativePath string `json:"relativePath" yaml:"relativePath"`
	FullHash     string `json:"fullHash" yaml:"fullHash"`
	Size         int64  `json:"size" yaml:"size"`
	Kind         Kind   `json:"kind" yaml:"kind"`
	DownloadURL  string `json:"downloadUrl" yaml:"downloadUrl"`
}

// ClientManifest is the superset form carrying every classified component.
type ClientManifest struct {
	Version           int64            `json:"version" yaml:"version"`
	LastUpdated       time.Time        `json:"lastUpdated" yaml:"lastUpdated"`
	BaseURL           string           `json:"baseUrl" yaml:"baseUrl"`
	ClientDownloadURL string           `json:"clientDownloadUrl" yaml:"clientDownloadUrl"`
	LauncherUpdate    *LauncherUpdate  `json:"launcherUpdate,omitempty" yaml:"launcherUpdate,omitempty"`
	Components        []ClassifiedFile `json:"components" yaml:"components"`
}

// PatchManifest projects the Patch components into a PatchManifest. The
// superset form carries no fingerprints, so the projected entries only
// support full-digest comparison.
func (m *ClientManifest) PatchManifest() *PatchManifest {
	pm := &PatchManifest{
		Version:        m.Version,
		BaseURL:        m.BaseURL,
		Patches:        []PatchEntry{},
		LauncherUpdate: m.LauncherUpdate,
	}
	for _, c := range m.Components {
		if c.Kind != KindPatch {
			continue
		}
		pm.Patches = append(pm.Patches, PatchEntry{
			RelativePath: c.RelativePath,
			DownloadName: c.RelativePath,
			Size:         c.Size,
			FullHash:     c.FullHash,
			Action:       ActionAdd,
		})
	}
	return pm
}
