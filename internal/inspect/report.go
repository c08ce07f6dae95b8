package inspect

import (
	"fmt"

	"github.com/danieljhkim/launchcheck/internal/manifest"
	"github.com/danieljhkim/launchcheck/internal/sanitize"
)

// Status names a launch-readiness state.
type Status string

const (
	StatusReadyToLaunch     Status = "ReadyToLaunch"
	StatusNotInstalled      Status = "NotInstalled"
	StatusMissingExecutable Status = "MissingExecutable"
	StatusRequiresUpdate    Status = "RequiresUpdate"
	StatusRequiresRepair    Status = "RequiresRepair"
	StatusNetworkError      Status = "NetworkError"
)

// Report is the outcome of an inspection. It is a closed set of variants:
// only the types in this package implement it, and each carries exactly the
// data that makes sense for its state.
type Report interface {
	Status() Status
	Message() string

	isReport()
}

// ReadyToLaunch means the install matches the manifest.
type ReadyToLaunch struct {
	// Manifest is the manifest verified against; nil after a quick check.
	Manifest *manifest.PatchManifest
}

// NotInstalled means the install path is empty or absent.
type NotInstalled struct {
	Path string
}

// MissingExecutable means the directory exists but holds no client.
type MissingExecutable struct {
	Path string
}

// RequiresUpdate means at least one file failed comparison.
type RequiresUpdate struct {
	Manifest     *manifest.PatchManifest
	Sanitization *sanitize.Result
}

// RequiresRepair means verification could not complete against the local
// install and should be retried after repair.
type RequiresRepair struct {
	Reason string
}

// NetworkError means the manifest could not be fetched or trusted. It is
// retryable by running verification again.
type NetworkError struct {
	Reason string
}

func (ReadyToLaunch) Status() Status     { return StatusReadyToLaunch }
func (NotInstalled) Status() Status      { return StatusNotInstalled }
func (MissingExecutable) Status() Status { return StatusMissingExecutable }
func (RequiresUpdate) Status() Status    { return StatusRequiresUpdate }
func (RequiresRepair) Status() Status    { return StatusRequiresRepair }
func (NetworkError) Status() Status      { return StatusNetworkError }

func (ReadyToLaunch) isReport()     {}
func (NotInstalled) isReport()      {}
func (MissingExecutable) isReport() {}
func (RequiresUpdate) isReport()    {}
func (RequiresRepair) isReport()    {}
func (NetworkError) isReport()      {}

func (r ReadyToLaunch) Message() string {
	return "Client is up to date"
}

func (r NotInstalled) Message() string {
	if r.Path == "" {
		return "No install directory configured"
	}
	return fmt.Sprintf("Client is not installed at %s", r.Path)
}

func (r MissingExecutable) Message() string {
	return fmt.Sprintf("Client executable not found in %s", r.Path)
}

func (r RequiresUpdate) Message() string {
	n := 0
	if r.Sanitization != nil {
		n = len(r.Sanitization.MismatchedFiles)
	}
	if n == 1 {
		return "1 file needs to be updated"
	}
	return fmt.Sprintf("%d files need to be updated", n)
}

func (r RequiresRepair) Message() string { return r.Reason }

func (r NetworkError) Message() string { return r.Reason }

// Summary is a flat, serializable view of a Report for output.
type Summary struct {
	Status          Status              `json:"status" yaml:"status"`
	Message         string              `json:"message" yaml:"message"`
	ManifestVersion int64               `json:"manifestVersion,omitempty" yaml:"manifestVersion,omitempty"`
	MismatchedFiles []sanitize.Mismatch `json:"mismatchedFiles,omitempty" yaml:"mismatchedFiles,omitempty"`
}

// Summarize flattens r.
func Summarize(r Report) Summary {
	s := Summary{Status: r.Status(), Message: r.Message()}
	switch v := r.(type) {
	case ReadyToLaunch:
		if v.Manifest != nil {
			s.ManifestVersion = v.Manifest.Version
		}
	case RequiresUpdate:
		if v.Manifest != nil {
			s.ManifestVersion = v.Manifest.Version
		}
		if v.Sanitization != nil {
			s.MismatchedFiles = v.Sanitization.MismatchedFiles
		}
	}
	return s
}
