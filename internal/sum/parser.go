package sum

import (
	"fmt"
	"os"
	"strings"
)

// ParseError represents an error during sandbox.sum parsing.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sandbox.sum:%d: %s", e.Line, e.Message)
}

// Parse parses a sum file from a string.
func Parse(content string) (*File, error) {
	f := NewFile()
	lines := strings.Split(content, "\n")

	for lineNum, line := range lines {
		lineNum++ // 1-indexed for error messages

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry, err := parseLine(line)
		if err != nil {
			return nil, &ParseError{Line: lineNum, Message: err.Error()}
		}

		f.Entries = append(f.Entries, entry)
	}

	return f, nil
}

// ParseFile parses a sum file from a filesystem path. A missing file is an
// empty one.
func ParseFile(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewFile(), nil
		}
		return nil, fmt.Errorf("failed to read sandbox.sum: %w", err)
	}
	return Parse(string(content))
}

// parseLine parses a single line of the form "repo ref[/image] hash".
// Refs never contain a slash, so the first slash starts the image path.
func parseLine(line string) (Entry, error) {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return Entry{}, fmt.Errorf("invalid format: expected 'repo ref hash'")
	}

	hash := parts[2]
	if !strings.HasPrefix(hash, "h1:") {
		return Entry{}, fmt.Errorf("invalid hash format: expected 'h1:...'")
	}

	ref, suffix := parts[1], ""
	if slashIdx := strings.Index(ref, "/"); slashIdx > 0 {
		ref, suffix = parts[1][:slashIdx], parts[1][slashIdx:]
	}

	return Entry{
		Repo:   parts[0],
		Ref:    ref,
		Suffix: suffix,
		Hash:   hash,
	}, nil
}
