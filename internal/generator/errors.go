package generator

import "errors"

var (
	// ErrRootNotDir indicates the scan root is missing or not a directory.
	ErrRootNotDir = errors.New("client directory not found")

	// ErrUnreadable indicates a file could not be read during a strict run.
	ErrUnreadable = errors.New("unreadable file")
)
