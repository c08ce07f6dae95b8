// Package hash provides the content digests used to verify a client install.
//
// Two primitives are offered. HashFile streams the whole file and is the
// authoritative equality check: two files are the same iff their full digests
// match. Fingerprint samples three fixed windows of large archives so that
// truncation, zero-fill and interrupted downloads are caught at constant cost;
// it is an optimization hint and never a substitute for the full digest.
//
// Both return lowercase hex SHA-256 and open files read-only without taking
// any lock, since the game client may hold the same files open.
package hash

import (
	_ "crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/opencontainers/go-digest"
)

const (
	// BufferSize is the fixed read buffer used when streaming a file.
	BufferSize = 64 * 1024

	// WindowSize is the size of each sampled fingerprint window.
	WindowSize = 64 * 1024

	// SampleThreshold is the size at or below which a fingerprint
	// degenerates to the full digest.
	SampleThreshold = 3 * WindowSize
)

// ErrNotFound indicates the file to hash does not exist.
var ErrNotFound = errors.New("file not found")

// Hasher provides an abstraction for whole-file hashing.
type Hasher interface {
	// HashFile computes the full digest of the file at the given path.
	HashFile(path string) (string, error)
}

// Fingerprinter provides an abstraction for sampled fingerprints.
type Fingerprinter interface {
	// Fingerprint computes the sampled digest of the file at the given path.
	Fingerprint(path string) (string, error)
}

// SHA256Hasher implements Hasher and Fingerprinter using SHA-256.
type SHA256Hasher struct{}

// NewSHA256Hasher creates a new SHA256Hasher.
func NewSHA256Hasher() *SHA256Hasher {
	return &SHA256Hasher{}
}

// open opens path for shared reading and maps a missing file to ErrNotFound.
func open(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// HashFile computes the SHA-256 hash of the file at the given path.
func (h *SHA256Hasher) HashFile(path string) (string, error) {
	file, err := open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()

	return hashReader(file)
}

func hashReader(r io.Reader) (string, error) {
	digester := digest.Canonical.Digester()
	buf := make([]byte, BufferSize)
	if _, err := io.CopyBuffer(digester.Hash(), r, buf); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return digester.Digest().Encoded(), nil
}

// Fingerprint computes the sampled digest of the file at the given path.
//
// Files of at most SampleThreshold bytes are digested whole, so the result
// equals HashFile. Larger files contribute three WindowSize windows read at
// offsets 0, len/2-WindowSize/2 and len-WindowSize, concatenated in that order.
func (h *SHA256Hasher) Fingerprint(path string) (string, error) {
	file, err := open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}

	size := info.Size()
	if size <= SampleThreshold {
		return hashReader(file)
	}

	buf := make([]byte, SampleThreshold)
	for i, off := range WindowOffsets(size) {
		window := buf[i*WindowSize : (i+1)*WindowSize]
		if _, err := file.ReadAt(window, off); err != nil {
			return "", fmt.Errorf("failed to read window at offset %d: %w", off, err)
		}
	}

	return digest.Canonical.FromBytes(buf).Encoded(), nil
}

// WindowOffsets returns the start offsets of the three sampled windows for a
// file of the given size. It is only meaningful when size > SampleThreshold.
func WindowOffsets(size int64) [3]int64 {
	return [3]int64{
		0,
		size/2 - WindowSize/2,
		size - WindowSize,
	}
}

// InWindow reports whether byte offset off of a file of the given size is
// covered by one of the sampled windows.
func InWindow(size, off int64) bool {
	if size <= SampleThreshold {
		return off >= 0 && off < size
	}
	for _, start := range WindowOffsets(size) {
		if off >= start && off < start+WindowSize {
			return true
		}
	}
	return false
}

// FakeHasher implements Hasher and Fingerprinter with deterministic values
// for testing.
type FakeHasher struct {
	mu           sync.Mutex
	hashes       map[string]string
	fingerprints map[string]string
	errs         map[string]error
	calls        map[string]int
}

// NewFakeHasher creates a new FakeHasher.
func NewFakeHasher() *FakeHasher {
	return &FakeHasher{
		hashes:       make(map[string]string),
		fingerprints: make(map[string]string),
		errs:         make(map[string]error),
		calls:        make(map[string]int),
	}
}

// SetHash sets the full hash for a specific path.
func (h *FakeHasher) SetHash(path, hash string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hashes[path] = hash
}

// SetFingerprint sets the fingerprint for a specific path.
func (h *FakeHasher) SetFingerprint(path, fp string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fingerprints[path] = fp
}

// SetError makes both operations fail for path.
func (h *FakeHasher) SetError(path string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs[path] = err
}

// HashCalls returns how many times HashFile was called for path.
func (h *FakeHasher) HashCalls(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[path]
}

// HashFile returns the predetermined hash for the given path.
func (h *FakeHasher) HashFile(path string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls[path]++
	if err, ok := h.errs[path]; ok {
		return "", err
	}
	if hash, ok := h.hashes[path]; ok {
		return hash, nil
	}
	return "fakehash", nil
}

// Fingerprint returns the predetermined fingerprint for the given path.
func (h *FakeHasher) Fingerprint(path string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err, ok := h.errs[path]; ok {
		return "", err
	}
	if fp, ok := h.fingerprints[path]; ok {
		return fp, nil
	}
	return "fakefingerprint", nil
}
