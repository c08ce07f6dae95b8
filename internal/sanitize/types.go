package sanitize

import (
	"context"

	"github.com/danieljhkim/launchcheck/internal/manifest"
)

// Reason explains why an entry failed comparison.
type Reason string

const (
	// ReasonMissing means the file does not exist.
	ReasonMissing Reason = "missing"

	// ReasonUnreadable means the file exists but could not be read.
	ReasonUnreadable Reason = "unreadable"

	// ReasonSize means the file size differs from the manifest.
	ReasonSize Reason = "size"

	// ReasonFingerprint means the sampled fingerprint differs.
	ReasonFingerprint Reason = "fingerprint"

	// ReasonHash means the full digest differs.
	ReasonHash Reason = "hash"

	// ReasonUnexpected means a delete entry's file is still present.
	ReasonUnexpected Reason = "unexpected"
)

// Mismatch is a manifest entry that failed comparison.
type Mismatch struct {
	Entry  manifest.PatchEntry `json:"entry" yaml:"entry"`
	Reason Reason              `json:"reason" yaml:"reason"`
}

// Result is the outcome of a sanitization pass.
type Result struct {
	MismatchedFiles []Mismatch `json:"mismatchedFiles" yaml:"mismatchedFiles"`

	// Checked is the number of entries compared.
	Checked int `json:"checked" yaml:"checked"`
}

// Entries returns the mismatched manifest entries.
func (r *Result) Entries() []manifest.PatchEntry {
	out := make([]manifest.PatchEntry, 0, len(r.MismatchedFiles))
	for _, m := range r.MismatchedFiles {
		out = append(out, m.Entry)
	}
	return out
}

// VerificationProgress describes how far a scan has come.
type VerificationProgress struct {
	Processed   int    `json:"processedCount"`
	Total       int    `json:"totalCount"`
	CurrentFile string `json:"currentFile"`
}

// Percentage returns Processed/Total*100, or 0 when Total is 0.
func (p VerificationProgress) Percentage() int {
	if p.Total <= 0 {
		return 0
	}
	return p.Processed * 100 / p.Total
}

// ProgressFunc receives scan progress. It may be called from a background
// goroutine.
type ProgressFunc func(VerificationProgress)

// Checker compares an install against a patch manifest.
type Checker interface {
	// CheckPatches reports every manifest entry the install fails to match.
	CheckPatches(ctx context.Context, installPath string, m *manifest.PatchManifest, onProgress ProgressFunc) (*Result, error)
}
