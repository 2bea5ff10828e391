// Package sum provides parsing, writing, and verification of sandbox.sum files.
//
// Each line pins one fetched proxy repository or one image inside it:
//
//	github.com/acme/proxies v1.2.0 h1:...
//	github.com/acme/proxies v1.2.0/out/proxies.smod h1:...
package sum

// File represents a parsed sandbox.sum file.
type File struct {
	Entries []Entry
}

// Entry represents a single checksum line.
type Entry struct {
	Repo   string // Repository (e.g., "github.com/acme/proxies")
	Ref    string // Tag, branch or commit (e.g., "v1.2.0")
	Suffix string // Optional image path (e.g., "/out/proxies.smod")
	Hash   string // Hash value (e.g., "h1:abc123...")
}

// Key returns a unique key for this entry (repo + ref + suffix).
func (e Entry) Key() string {
	return key(e.Repo, e.Ref, e.Suffix)
}

func key(repo, ref, suffix string) string {
	return repo + " " + ref + suffix
}

// ImageSuffix returns the suffix recorded for an image path inside a
// repository.
func ImageSuffix(image string) string {
	if image == "" {
		return ""
	}
	return "/" + image
}

// NewFile creates a new empty sum file.
func NewFile() *File {
	return &File{
		Entries: make([]Entry, 0),
	}
}

// Add adds or updates an entry.
func (f *File) Add(repo, ref, suffix, hash string) {
	k := key(repo, ref, suffix)
	for i := range f.Entries {
		if f.Entries[i].Key() == k {
			f.Entries[i].Hash = hash
			return
		}
	}

	f.Entries = append(f.Entries, Entry{
		Repo:   repo,
		Ref:    ref,
		Suffix: suffix,
		Hash:   hash,
	})
}

// Get retrieves an entry by repo, ref, and suffix.
func (f *File) Get(repo, ref, suffix string) *Entry {
	k := key(repo, ref, suffix)
	for i := range f.Entries {
		if f.Entries[i].Key() == k {
			return &f.Entries[i]
		}
	}
	return nil
}

// RefEntries returns all entries for a repository at a ref.
func (f *File) RefEntries(repo, ref string) []Entry {
	entries := make([]Entry, 0)
	for _, e := range f.Entries {
		if e.Repo == repo && e.Ref == ref {
			entries = append(entries, e)
		}
	}
	return entries
}

// Remove removes all entries for a repository at a ref.
func (f *File) Remove(repo, ref string) bool {
	removed := false
	kept := make([]Entry, 0, len(f.Entries))
	for _, e := range f.Entries {
		if e.Repo == repo && e.Ref == ref {
			removed = true
		} else {
			kept = append(kept, e)
		}
	}
	f.Entries = kept
	return removed
}

// Check compares hash against the recorded entry. It returns false when no
// entry exists and a *HashMismatchError when the entry differs.
func (f *File) Check(repo, ref, suffix, hash string) (bool, error) {
	e := f.Get(repo, ref, suffix)
	if e == nil {
		return false, nil
	}
	if e.Hash != hash {
		return true, &HashMismatchError{Path: e.Key(), Expected: e.Hash, Actual: hash}
	}
	return true, nil
}
