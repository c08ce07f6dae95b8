package planner

import (
	"sort"

	"github.com/danieljhkim/launchcheck/internal/fsops"
	"github.com/danieljhkim/launchcheck/internal/manifest"
	"github.com/danieljhkim/launchcheck/internal/sanitize"
)

// RepairPlan is the ordered set of operations that brings an install back to
// the manifest's expected state.
type RepairPlan struct {
	// ManifestVersion is the version of the manifest the plan was built from.
	ManifestVersion int64 `json:"manifestVersion" yaml:"manifestVersion"`

	// Operations is the ordered list of operations to execute
	Operations []Operation `json:"operations" yaml:"operations"`

	// Conflicts lists entries that could not be planned safely
	Conflicts []Conflict `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`

	// DownloadBytes is the sum of sizes of all download operations.
	DownloadBytes int64 `json:"downloadBytes" yaml:"downloadBytes"`
}

// Operation is a single repair step.
type Operation struct {
	// Type is the operation type: "download" or "remove"
	Type string `json:"type" yaml:"type"`

	// RelPath is the manifest path, forward-slash and install-relative
	RelPath string `json:"relativePath" yaml:"relativePath"`

	// DestPath is the absolute local path the operation targets
	DestPath string `json:"destPath" yaml:"destPath"`

	// URL is the download location (empty for removals)
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Size is the expected size after download
	Size int64 `json:"size,omitempty" yaml:"size,omitempty"`

	// FullHash is the digest the downloaded file must match
	FullHash string `json:"fullHash,omitempty" yaml:"fullHash,omitempty"`

	// Reason is why the entry failed comparison
	Reason sanitize.Reason `json:"reason" yaml:"reason"`
}

// Conflict is an entry the planner refused to act on.
type Conflict struct {
	// Path is the manifest path
	Path string `json:"path" yaml:"path"`

	// Reason is a human-readable explanation
	Reason string `json:"reason" yaml:"reason"`
}

// Operation type constants
const (
	OpDownload = "download"
	OpRemove   = "remove"
)

// NewRepairPlan creates a new empty RepairPlan.
func NewRepairPlan(version int64) *RepairPlan {
	return &RepairPlan{
		ManifestVersion: version,
		Operations:      []Operation{},
		Conflicts:       []Conflict{},
	}
}

// HasConflicts returns true if the plan has any conflicts.
func (p *RepairPlan) HasConflicts() bool {
	return len(p.Conflicts) > 0
}

// Empty reports whether the plan has nothing to do.
func (p *RepairPlan) Empty() bool {
	return len(p.Operations) == 0 && len(p.Conflicts) == 0
}

// AddOperation adds an operation to the plan.
func (p *RepairPlan) AddOperation(op Operation) {
	p.Operations = append(p.Operations, op)
	if op.Type == OpDownload {
		p.DownloadBytes += op.Size
	}
}

// AddConflict adds a conflict to the plan.
func (p *RepairPlan) AddConflict(conflict Conflict) {
	p.Conflicts = append(p.Conflicts, conflict)
}

// BuildRepairPlan plans the repair of installRoot for every mismatch in
// result. Entries are looked up in m for their download location.
func BuildRepairPlan(installRoot string, m *manifest.PatchManifest, result *sanitize.Result) *RepairPlan {
	var version int64
	if m != nil {
		version = m.Version
	}
	plan := NewRepairPlan(version)
	if result == nil {
		return plan
	}

	mismatches := make([]sanitize.Mismatch, len(result.MismatchedFiles))
	copy(mismatches, result.MismatchedFiles)
	sort.SliceStable(mismatches, func(i, j int) bool {
		ri, rj := mismatches[i].Entry.Action == manifest.ActionDelete, mismatches[j].Entry.Action == manifest.ActionDelete
		if ri != rj {
			return ri
		}
		return mismatches[i].Entry.RelativePath < mismatches[j].Entry.RelativePath
	})

	for _, mm := range mismatches {
		entry := mm.Entry
		dest, err := fsops.Resolve(installRoot, entry.RelativePath)
		if err != nil {
			plan.AddConflict(Conflict{Path: entry.RelativePath, Reason: err.Error()})
			continue
		}

		if entry.Action == manifest.ActionDelete {
			plan.AddOperation(Operation{
				Type:     OpRemove,
				RelPath:  entry.RelativePath,
				DestPath: dest,
				Reason:   mm.Reason,
			})
			continue
		}

		var url string
		if m != nil {
			url = m.DownloadURL(entry)
		}
		plan.AddOperation(Operation{
			Type:     OpDownload,
			RelPath:  entry.RelativePath,
			DestPath: dest,
			URL:      url,
			Size:     entry.Size,
			FullHash: entry.FullHash,
			Reason:   mm.Reason,
		})
	}

	return plan
}
