// Package locate finds module images and the project configuration on disk.
package locate

import (
	"os"
	"path/filepath"
	"strings"

	"martianoff/sandbox/internal/metadata"
)

// ConfigFile is the name of the project configuration file.
const ConfigFile = "sandbox.yaml"

// Resolver maps module names to image files inside a list of search
// directories.
//
// Example usage:
//
//	resolver := NewResolver([]string{"lib", "/opt/refs"})
//	path, err := resolver.Locate("corlib")
type Resolver struct {
	searchDirs []string // Directories searched in order
}

// NewResolver creates a Resolver over searchDirs. Duplicate entries are dropped.
func NewResolver(searchDirs []string) *Resolver {
	r := &Resolver{}
	for _, d := range searchDirs {
		r.AddSearchDirectory(d)
	}
	return r
}

// AddSearchDirectory appends dir to the search list unless already present.
func (r *Resolver) AddSearchDirectory(dir string) {
	dir = filepath.Clean(dir)
	for _, d := range r.searchDirs {
		if d == dir {
			return
		}
	}
	r.searchDirs = append(r.searchDirs, dir)
}

// SearchDirectories returns the search list.
func (r *Resolver) SearchDirectories() []string {
	return r.searchDirs
}

// Missing returns the search directories that do not exist.
func (r *Resolver) Missing() []string {
	var missing []string
	for _, d := range r.searchDirs {
		if !isDir(d) {
			missing = append(missing, d)
		}
	}
	return missing
}

// Locate returns the image file of the named module.
//
// Resolution strategy:
// 1. If name is itself a path to an image file, use it
// 2. Otherwise try "<dir>/<name><ext>" for each search directory, then each
// known image extension
func (r *Resolver) Locate(name string) (string, error) {
	// Strategy 1: explicit path
	if hasImageExt(name) && isFile(name) {
		return name, nil
	}

	// Strategy 2: search directories
	var tried []string
	for _, dir := range r.searchDirs {
		for _, ext := range metadata.Extensions {
			path := filepath.Join(dir, name+ext)
			if isFile(path) {
				return path, nil
			}
			tried = append(tried, path)
		}
	}

	return "", &ModuleNotFoundError{Name: name, Tried: tried}
}

// ModuleNotFoundError is returned when no image exists for a module.
type ModuleNotFoundError struct {
	Name  string
	Tried []string
}

func (e *ModuleNotFoundError) Error() string {
	if len(e.Tried) == 0 {
		return "module not found: " + e.Name + " (no search directories)"
	}
	return "module not found: " + e.Name + " (tried " + strings.Join(e.Tried, ", ") + ")"
}

// FindConfig walks up from startPath looking for sandbox.yaml.
// Returns the path of the file, or an empty string if not found.
func FindConfig(startPath string) string {
	dir := startPath

	// If startPath is a file, use its directory
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		path := filepath.Join(dir, ConfigFile)
		if isFile(path) {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return ""
}

func hasImageExt(path string) bool {
	_, err := metadata.FormatOf(path)
	return err == nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
