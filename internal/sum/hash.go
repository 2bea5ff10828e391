package sum

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"martianoff/sandbox/internal/metadata"
)

// HashDir computes a hash over every module image below dir. File paths take
// part in the hash; the result does not depend on walk order.
func HashDir(dir string) (string, error) {
	h := sha256.New()

	files, err := Images(dir)
	if err != nil {
		return "", err
	}

	for _, relPath := range files {
		// Write file path (normalized to forward slashes)
		h.Write([]byte(filepath.ToSlash(relPath)))
		h.Write([]byte{0}) // null separator

		content, err := os.ReadFile(filepath.Join(dir, relPath))
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", relPath, err)
		}
		h.Write(content)
		h.Write([]byte{0})
	}

	return encode(h.Sum(nil)), nil
}

// Images returns the module images below dir, relative to it and sorted.
// Hidden directories are skipped.
func Images(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if _, err := metadata.FormatOf(path); err != nil {
			return nil
		}
		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, relPath)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// HashFile computes a hash of a single file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return encode(h.Sum(nil)), nil
}

func encode(sum []byte) string {
	return "h1:" + base64.StdEncoding.EncodeToString(sum)
}

// Verify checks if a directory's hash matches the expected hash.
func Verify(dir, expected string) error {
	actual, err := HashDir(dir)
	if err != nil {
		return err
	}

	if actual != expected {
		return &HashMismatchError{
			Path:     dir,
			Expected: expected,
			Actual:   actual,
		}
	}

	return nil
}

// HashMismatchError is returned when a hash verification fails.
type HashMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}
