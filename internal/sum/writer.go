package sum

import (
	"os"
	"sort"
	"strings"
)

// Format formats a File in sandbox.sum syntax.
func Format(f *File) string {
	if len(f.Entries) == 0 {
		return ""
	}

	// Sort entries for deterministic output
	entries := make([]Entry, len(f.Entries))
	copy(entries, f.Entries)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Repo != entries[j].Repo {
			return entries[i].Repo < entries[j].Repo
		}
		if entries[i].Ref != entries[j].Ref {
			return entries[i].Ref < entries[j].Ref
		}
		return entries[i].Suffix < entries[j].Suffix
	})

	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(e.Repo)
		sb.WriteString(" ")
		sb.WriteString(e.Ref)
		sb.WriteString(e.Suffix)
		sb.WriteString(" ")
		sb.WriteString(e.Hash)
		sb.WriteString("\n")
	}

	return sb.String()
}

// WriteFile writes a File to a filesystem path.
func WriteFile(f *File, path string) error {
	return os.WriteFile(path, []byte(Format(f)), 0644)
}
