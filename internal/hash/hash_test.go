package hash

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

// writeRandomFile writes size pseudo-random bytes to a new file under dir.
func writeRandomFile(t *testing.T, dir, name string, size int) (string, []byte) {
	t.Helper()
	data := make([]byte, size)
	rng := rand.New(rand.NewSource(int64(size)))
	_, _ = rng.Read(data)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path, data
}

// flipByte rewrites path with the byte at off inverted.
func flipByte(t *testing.T, path string, data []byte, off int64) {
	t.Helper()
	mutated := append([]byte(nil), data...)
	mutated[off] ^= 0xFF
	if err := os.WriteFile(path, mutated, 0644); err != nil {
		t.Fatalf("failed to rewrite file: %v", err)
	}
}

func TestSHA256Hasher_HashFile(t *testing.T) {
	tmpDir := t.TempDir()
	hasher := NewSHA256Hasher()

	t.Run("hash of existing file is deterministic", func(t *testing.T) {
		testFile := filepath.Join(tmpDir, "test.txt")
		if err := os.WriteFile(testFile, []byte("hello world"), 0644); err != nil {
			t.Fatalf("failed to write test file: %v", err)
		}

		hash1, err := hasher.HashFile(testFile)
		if err != nil {
			t.Fatalf("HashFile failed: %v", err)
		}
		hash2, err := hasher.HashFile(testFile)
		if err != nil {
			t.Fatalf("HashFile failed on second call: %v", err)
		}

		if hash1 != hash2 {
			t.Errorf("HashFile inconsistent: got %s and %s", hash1, hash2)
		}

		want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
		if hash1 != want {
			t.Errorf("HashFile = %s, want %s", hash1, want)
		}
	})

	t.Run("different files have different hashes", func(t *testing.T) {
		file1 := filepath.Join(tmpDir, "file1.txt")
		file2 := filepath.Join(tmpDir, "file2.txt")
		if err := os.WriteFile(file1, []byte("content A"), 0644); err != nil {
			t.Fatalf("failed to write file1: %v", err)
		}
		if err := os.WriteFile(file2, []byte("content B"), 0644); err != nil {
			t.Fatalf("failed to write file2: %v", err)
		}

		hash1, _ := hasher.HashFile(file1)
		hash2, _ := hasher.HashFile(file2)
		if hash1 == hash2 {
			t.Error("Different files produced same hash")
		}
	})

	t.Run("large file spanning many buffers", func(t *testing.T) {
		path, _ := writeRandomFile(t, tmpDir, "large.bin", 5*BufferSize+123)
		first, err := hasher.HashFile(path)
		if err != nil {
			t.Fatalf("HashFile failed: %v", err)
		}
		second, _ := hasher.HashFile(path)
		if first != second {
			t.Errorf("HashFile inconsistent for large file")
		}
	})

	t.Run("non-existent file returns ErrNotFound", func(t *testing.T) {
		_, err := hasher.HashFile(filepath.Join(tmpDir, "does-not-exist.txt"))
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("empty file can be hashed", func(t *testing.T) {
		emptyFile := filepath.Join(tmpDir, "empty.txt")
		if err := os.WriteFile(emptyFile, []byte{}, 0644); err != nil {
			t.Fatalf("failed to write empty file: %v", err)
		}

		hash, err := hasher.HashFile(emptyFile)
		if err != nil {
			t.Fatalf("HashFile failed for empty file: %v", err)
		}

		expectedEmptyHash := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
		if hash != expectedEmptyHash {
			t.Errorf("Empty file hash incorrect: got %s, want %s", hash, expectedEmptyHash)
		}
	})
}

func TestSHA256Hasher_FingerprintSmallFilesEqualFullHash(t *testing.T) {
	tmpDir := t.TempDir()
	hasher := NewSHA256Hasher()

	for _, size := range []int{0, 1, WindowSize, SampleThreshold - 1, SampleThreshold} {
		path, _ := writeRandomFile(t, tmpDir, "small.bin", size)

		full, err := hasher.HashFile(path)
		if err != nil {
			t.Fatalf("HashFile(%d bytes) failed: %v", size, err)
		}
		fp, err := hasher.Fingerprint(path)
		if err != nil {
			t.Fatalf("Fingerprint(%d bytes) failed: %v", size, err)
		}
		if fp != full {
			t.Errorf("size %d: fingerprint %s != full hash %s", size, fp, full)
		}
	}
}

func TestSHA256Hasher_FingerprintWindows(t *testing.T) {
	tmpDir := t.TempDir()
	hasher := NewSHA256Hasher()

	const size = 1 << 20
	path, data := writeRandomFile(t, tmpDir, "archive.MPQ", size)

	original, err := hasher.Fingerprint(path)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}

	full, _ := hasher.HashFile(path)
	if original == full {
		t.Fatalf("fingerprint of a large file should differ from its full hash")
	}

	offsets := WindowOffsets(size)
	tests := []struct {
		name    string
		off     int64
		changes bool
	}{
		{name: "first byte", off: 0, changes: true},
		{name: "end of head window", off: WindowSize - 1, changes: true},
		{name: "just past head window", off: WindowSize, changes: false},
		{name: "just before middle window", off: offsets[1] - 1, changes: false},
		{name: "start of middle window", off: offsets[1], changes: true},
		{name: "end of middle window", off: offsets[1] + WindowSize - 1, changes: true},
		{name: "just past middle window", off: offsets[1] + WindowSize, changes: false},
		{name: "just before tail window", off: offsets[2] - 1, changes: false},
		{name: "start of tail window", off: offsets[2], changes: true},
		{name: "last byte", off: size - 1, changes: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if InWindow(size, tt.off) != tt.changes {
				t.Fatalf("InWindow(%d) = %v, want %v", tt.off, !tt.changes, tt.changes)
			}

			flipByte(t, path, data, tt.off)
			t.Cleanup(func() { _ = os.WriteFile(path, data, 0644) })

			got, err := hasher.Fingerprint(path)
			if err != nil {
				t.Fatalf("Fingerprint failed: %v", err)
			}
			if changed := got != original; changed != tt.changes {
				t.Errorf("offset %d: fingerprint changed = %v, want %v", tt.off, changed, tt.changes)
			}

			mutatedFull, _ := hasher.HashFile(path)
			if mutatedFull == full {
				t.Errorf("offset %d: full hash did not change", tt.off)
			}
		})
	}
}

func TestSHA256Hasher_FingerprintMissingFile(t *testing.T) {
	_, err := NewSHA256Hasher().Fingerprint(filepath.Join(t.TempDir(), "missing.MPQ"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestWindowOffsets(t *testing.T) {
	const size = 10 * 1024 * 1024
	got := WindowOffsets(size)
	want := [3]int64{0, size/2 - 32*1024, size - 64*1024}
	if got != want {
		t.Errorf("WindowOffsets(%d) = %v, want %v", size, got, want)
	}
}

func TestFakeHasher(t *testing.T) {
	hasher := NewFakeHasher()

	t.Run("returns default hash for unknown path", func(t *testing.T) {
		hash, err := hasher.HashFile("/some/path")
		if err != nil {
			t.Errorf("FakeHasher should not return error, got: %v", err)
		}
		if hash != "fakehash" {
			t.Errorf("Expected default hash 'fakehash', got: %s", hash)
		}
	})

	t.Run("returns configured values", func(t *testing.T) {
		hasher.SetHash("/test/file.MPQ", "custom-hash-123")
		hasher.SetFingerprint("/test/file.MPQ", "custom-fp")

		hash, _ := hasher.HashFile("/test/file.MPQ")
		fp, _ := hasher.Fingerprint("/test/file.MPQ")
		if hash != "custom-hash-123" || fp != "custom-fp" {
			t.Errorf("got hash=%s fp=%s", hash, fp)
		}
		if calls := hasher.HashCalls("/test/file.MPQ"); calls != 1 {
			t.Errorf("HashCalls = %d, want 1", calls)
		}
	})

	t.Run("configured error", func(t *testing.T) {
		hasher.SetError("/broken", ErrNotFound)
		if _, err := hasher.HashFile("/broken"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}
