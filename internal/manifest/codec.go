package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

// NormalizePath converts p to the canonical manifest form: forward slashes,
// cleaned, with no leading "./" or "/".
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimLeft(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// validatePath checks that p is already in canonical form and stays inside
// the install root.
func validatePath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if strings.Contains(p, "\\") {
		return fmt.Errorf("%w: %q uses backslashes", ErrInvalidPath, p)
	}
	if strings.HasPrefix(p, "/") || (len(p) > 1 && p[1] == ':') {
		return fmt.Errorf("%w: %q must be relative", ErrInvalidPath, p)
	}
	if path.Clean(p) != p {
		return fmt.Errorf("%w: %q is not normalized", ErrInvalidPath, p)
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return fmt.Errorf("%w: %q escapes the install root", ErrInvalidPath, p)
	}
	return nil
}

// pathSet tracks uniqueness of paths within a single manifest. Comparison is
// case-insensitive because install trees commonly live on case-insensitive
// filesystems.
type pathSet map[string]struct{}

func (s pathSet) add(p string) error {
	if err := validatePath(p); err != nil {
		return err
	}
	key := strings.ToLower(p)
	if _, ok := s[key]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicatePath, p)
	}
	s[key] = struct{}{}
	return nil
}

// Validate checks the base manifest invariants.
func (m *BaseManifest) Validate() error {
	seen := pathSet{}
	for _, f := range m.Files {
		if err := seen.add(f.RelativePath); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
		}
		if f.Size < 0 {
			return fmt.Errorf("%w: negative size for %q", ErrInvalidManifest, f.RelativePath)
		}
	}
	return nil
}

// Validate checks the patch manifest invariants.
func (m *PatchManifest) Validate() error {
	seen := pathSet{}
	for _, p := range m.Patches {
		if err := seen.add(p.RelativePath); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
		}
		if !p.Action.Valid() {
			return fmt.Errorf("%w: unknown action %q for %q", ErrInvalidManifest, p.Action, p.RelativePath)
		}
		if p.Action == ActionAdd && p.FullHash == "" {
			return fmt.Errorf("%w: missing fullHash for %q", ErrInvalidManifest, p.RelativePath)
		}
		if p.Size < 0 {
			return fmt.Errorf("%w: negative size for %q", ErrInvalidManifest, p.RelativePath)
		}
	}
	return validateLauncherUpdate(m.LauncherUpdate)
}

// Validate checks the client manifest invariants.
func (m *ClientManifest) Validate() error {
	seen := pathSet{}
	for _, c := range m.Components {
		if err := seen.add(c.RelativePath); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
		}
		if !c.Kind.Valid() {
			return fmt.Errorf("%w: unknown kind %q for %q", ErrInvalidManifest, c.Kind, c.RelativePath)
		}
	}
	return validateLauncherUpdate(m.LauncherUpdate)
}

func validateLauncherUpdate(u *LauncherUpdate) error {
	if u != nil && u.Version == "" {
		return fmt.Errorf("%w: launcher update without version", ErrInvalidManifest)
	}
	return nil
}

// readDocument decodes exactly one JSON object from r. A top-level null,
// a non-object value or trailing data is rejected.
func readDocument(r io.Reader) (json.RawMessage, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(r)
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, fmt.Errorf("%w: trailing data after document", ErrInvalidManifest)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, nil, fmt.Errorf("%w: document is not an object: %w", ErrInvalidManifest, err)
	}
	if fields == nil {
		return nil, nil, fmt.Errorf("%w: document is null", ErrInvalidManifest)
	}
	return raw, fields, nil
}

// hasField reports whether fields holds name with a non-null value. Keys
// match case-insensitively, as encoding/json does for struct fields.
func hasField(fields map[string]json.RawMessage, name string) bool {
	for k, v := range fields {
		if strings.EqualFold(k, name) && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return true
		}
	}
	return false
}

// decodeObject unmarshals raw into v after checking that the list key is
// present, then validates the result.
func decodeObject(raw json.RawMessage, fields map[string]json.RawMessage, listKey string, v interface{ Validate() error }) error {
	if !hasField(fields, listKey) {
		return fmt.Errorf("%w: missing %q", ErrInvalidManifest, listKey)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	return v.Validate()
}

// DecodePatchManifest reads and validates a patch manifest. The "patches"
// key must be present; an empty list is valid.
func DecodePatchManifest(r io.Reader) (*PatchManifest, error) {
	raw, fields, err := readDocument(r)
	if err != nil {
		return nil, err
	}
	var m PatchManifest
	if err := decodeObject(raw, fields, "patches", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DecodeBaseManifest reads and validates a base manifest.
func DecodeBaseManifest(r io.Reader) (*BaseManifest, error) {
	raw, fields, err := readDocument(r)
	if err != nil {
		return nil, err
	}
	var m BaseManifest
	if err := decodeObject(raw, fields, "files", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DecodeClientManifest reads and validates a client manifest.
func DecodeClientManifest(r io.Reader) (*ClientManifest, error) {
	raw, fields, err := readDocument(r)
	if err != nil {
		return nil, err
	}
	var m ClientManifest
	if err := decodeObject(raw, fields, "components", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DecodePublished reads whichever manifest form the update server publishes.
// A document with "components" is a client manifest and is projected to its
// Patch entries; otherwise it must be a patch manifest.
func DecodePublished(r io.Reader) (*PatchManifest, error) {
	raw, fields, err := readDocument(r)
	if err != nil {
		return nil, err
	}
	if hasField(fields, "components") {
		if hasField(fields, "patches") {
			return nil, fmt.Errorf("%w: both \"patches\" and \"components\" present", ErrInvalidManifest)
		}
		var cm ClientManifest
		if err := decodeObject(raw, fields, "components", &cm); err != nil {
			return nil, err
		}
		return cm.PatchManifest(), nil
	}
	var m PatchManifest
	if err := decodeObject(raw, fields, "patches", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Sort orders entries by path so encoded output is stable.
func (m *BaseManifest) Sort() {
	sort.Slice(m.Files, func(i, j int) bool { return m.Files[i].RelativePath < m.Files[j].RelativePath })
}

// Sort orders entries by path so encoded output is stable.
func (m *PatchManifest) Sort() {
	sort.Slice(m.Patches, func(i, j int) bool { return m.Patches[i].RelativePath < m.Patches[j].RelativePath })
}

// Sort orders components by path so encoded output is stable.
func (m *ClientManifest) Sort() {
	sort.Slice(m.Components, func(i, j int) bool { return m.Components[i].RelativePath < m.Components[j].RelativePath })
}

// Marshal encodes v as indented JSON with a trailing newline.
func Marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return append(data, '\n'), nil
}
