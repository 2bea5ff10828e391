// Package fetch retrieves proxy module images from git repositories and keeps
// them in a local cache.
package fetch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"martianoff/sandbox/internal/sum"
)

// Cache manages the local proxy cache. Each fetched repository ref lives in
// its own directory:
//
//	<dir>/<repo>@<ref>/<image>
type Cache struct {
	dir string
}

// NewCache creates a Cache rooted at dir.
func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	return c.dir
}

// RefPath returns the directory a repository ref is cached in.
func (c *Cache) RefPath(repo, ref string) string {
	return filepath.Join(c.dir, filepath.FromSlash(repo)+"@"+ref)
}

// ImagePath returns the cached location of an image inside a repository ref.
func (c *Cache) ImagePath(repo, ref, image string) string {
	return filepath.Join(c.RefPath(repo, ref), filepath.FromSlash(image))
}

// IsCached returns true if a repository ref is already cached.
func (c *Cache) IsCached(repo, ref string) bool {
	info, err := os.Stat(c.RefPath(repo, ref))
	return err == nil && info.IsDir()
}

// Store copies the module images found in sourceDir into the cache entry of
// repo at ref. Anything else in the checkout is left behind.
func (c *Cache) Store(repo, ref, sourceDir string) error {
	destDir := c.RefPath(repo, ref)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	images, err := sum.Images(sourceDir)
	if err != nil {
		return err
	}
	for _, relPath := range images {
		destPath := filepath.Join(destDir, relPath)
		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return err
		}
		content, err := os.ReadFile(filepath.Join(sourceDir, relPath))
		if err != nil {
			return err
		}
		if err := os.WriteFile(destPath, content, 0644); err != nil {
			return err
		}
	}
	return nil
}

// Remove removes a repository ref from the cache.
func (c *Cache) Remove(repo, ref string) error {
	return os.RemoveAll(c.RefPath(repo, ref))
}

// Clean removes everything cached.
func (c *Cache) Clean() error {
	return os.RemoveAll(c.dir)
}

// Hash computes the hash of a cached repository ref.
func (c *Cache) Hash(repo, ref string) (string, error) {
	if !c.IsCached(repo, ref) {
		return "", fmt.Errorf("not cached: %s@%s", repo, ref)
	}
	return sum.HashDir(c.RefPath(repo, ref))
}

// Verify verifies a cached repository ref against an expected hash.
func (c *Cache) Verify(repo, ref, expectedHash string) error {
	return sum.Verify(c.RefPath(repo, ref), expectedHash)
}

// Entry describes one cached repository ref.
type Entry struct {
	Repo   string
	Ref    string
	Path   string
	Images []string
}

// List returns the cached repository refs sorted by repository and ref.
func (c *Cache) List() ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == c.dir {
				return filepath.SkipAll
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		idx := strings.LastIndex(d.Name(), "@")
		if idx <= 0 {
			return nil
		}
		rel, err := filepath.Rel(c.dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		at := strings.LastIndex(rel, "@")
		images, err := sum.Images(path)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Repo: rel[:at], Ref: rel[at+1:], Path: path, Images: images})
		return filepath.SkipDir
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Repo != entries[j].Repo {
			return entries[i].Repo < entries[j].Repo
		}
		return entries[i].Ref < entries[j].Ref
	})
	return entries, nil
}
