package generator

import (
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/danieljhkim/launchcheck/internal/manifest"
)

// Artifact file names written into the output directory.
const (
	BaseManifestFile   = "base_manifest.json"
	PatchManifestFile  = "patch_manifest.json"
	ClientManifestFile = "client_manifest.json"
)

// GenerateRequest represents a request to generate manifests.
type GenerateRequest struct {
	// Root is the install tree to scan.
	Root string

	// OutputDir receives the manifest artifacts (default: current directory).
	OutputDir string

	// BaseURL is the download origin recorded in the manifests.
	BaseURL string

	// ClientDownloadURL is recorded in the client manifest.
	ClientDownloadURL string

	// Workers bounds concurrent hashing (default: GOMAXPROCS).
	Workers int

	// Strict aborts on the first unreadable file instead of skipping it.
	Strict bool

	// IncludeClientManifest also hashes every file and writes the client
	// manifest.
	IncludeClientManifest bool

	// DryRun builds the manifests without writing them.
	DryRun bool
}

// SkippedFile records a file left out of the hashed manifests.
type SkippedFile struct {
	Path string `json:"path"`
	Err  error  `json:"-"`

	// Reason is Err rendered for JSON output.
	Reason string `json:"reason"`
}

// GenerateResult represents the outcome of a generation run.
type GenerateResult struct {
	Base   *manifest.BaseManifest   `json:"-"`
	Patch  *manifest.PatchManifest  `json:"-"`
	Client *manifest.ClientManifest `json:"-"`

	// FileCount is the number of files in the base manifest.
	FileCount int `json:"fileCount"`

	// PatchCount is the number of patch entries.
	PatchCount int `json:"patchCount"`

	// TotalBytes is the sum of base manifest sizes.
	TotalBytes int64 `json:"totalBytes"`

	// Written lists the artifact paths written (empty on dry run).
	Written []string `json:"written"`

	// Skipped lists files that could not be read.
	Skipped []SkippedFile `json:"skipped"`

	Duration time.Duration `json:"duration"`
}

// Err aggregates the skipped-file errors, or returns nil if none were skipped.
func (r *GenerateResult) Err() error {
	var result *multierror.Error
	for _, s := range r.Skipped {
		result = multierror.Append(result, s.Err)
	}
	return result.ErrorOrNil()
}
