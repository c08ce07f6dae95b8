package manifest

import "errors"

var (
	// ErrInvalidManifest indicates a manifest failed validation.
	ErrInvalidManifest = errors.New("invalid manifest")

	// ErrInvalidPath indicates a manifest path is not a clean relative path.
	ErrInvalidPath = errors.New("invalid manifest path")

	// ErrDuplicatePath indicates the same path appears twice in one manifest.
	ErrDuplicatePath = errors.New("duplicate manifest path")
)
