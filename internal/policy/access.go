// Package policy decides whether a reference to a foreign symbol is allowed.
//
// An AccessList is an ordered list of allow and deny entries. The first entry
// that matches a symbol decides; a symbol no entry matches is allowed. Order
// therefore matters: allowing "System.IO.Path" after denying the "System.IO"
// namespace has no effect.
package policy

import (
	"fmt"
	"regexp"
	"strings"

	"martianoff/sandbox/sandboxerr"
)

// MatchKind selects what an entry's pattern is compared against.
type MatchKind int

const (
	// MatchRegex searches the symbol's full name with a regular expression.
	MatchRegex MatchKind = iota
	// MatchNamespace compares the containing namespace for equality.
	MatchNamespace
	// MatchNamespacePrefix tests whether the containing namespace starts with the pattern.
	MatchNamespacePrefix
)

func (k MatchKind) String() string {
	switch k {
	case MatchNamespace:
		return "namespace"
	case MatchNamespacePrefix:
		return "namespacestart"
	default:
		return "regex"
	}
}

// ParseMatchKind parses a configured entry type. Matching is case-insensitive;
// an empty string means MatchRegex.
func ParseMatchKind(s string) (MatchKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "regex", "pattern":
		return MatchRegex, nil
	case "namespace":
		return MatchNamespace, nil
	case "namespacestart", "namespace-start", "namespace-prefix", "prefix":
		return MatchNamespacePrefix, nil
	}
	return 0, fmt.Errorf("invalid access list entry type: %s", s)
}

// Mode is the decision an entry makes when it matches.
type Mode int

const (
	Allow Mode = iota
	Deny
)

func (m Mode) String() string {
	if m == Deny {
		return "deny"
	}
	return "allow"
}

// ParseMode parses "allow" or "deny", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allow":
		return Allow, nil
	case "deny":
		return Deny, nil
	}
	return 0, fmt.Errorf("invalid access list entry: %s", s)
}

type entry struct {
	kind    MatchKind
	mode    Mode
	pattern *regexp.Regexp
	value   string
}

// AccessList is an ordered sequence of allow and deny entries.
type AccessList struct {
	name    string
	sink    sandboxerr.Sink
	entries []entry
}

// NewAccessList creates an empty list. Invalid patterns added later are
// reported to sink.
func NewAccessList(name string, sink sandboxerr.Sink) *AccessList {
	if sink == nil {
		sink = sandboxerr.Discard
	}
	return &AccessList{name: name, sink: sink}
}

// Name returns the list name used in diagnostics.
func (l *AccessList) Name() string { return l.name }

// Len returns the number of entries.
func (l *AccessList) Len() int { return len(l.entries) }

// Add appends an entry. A regular expression that does not compile is
// reported as a PatternError and the entry is skipped.
func (l *AccessList) Add(kind MatchKind, mode Mode, pattern string) bool {
	switch kind {
	case MatchRegex:
		re, err := regexp.Compile(pattern)
		if err != nil {
			l.sink.Report(sandboxerr.NewPatternError(pattern, err))
			return false
		}
		l.entries = append(l.entries, entry{kind: kind, mode: mode, pattern: re, value: pattern})
	case MatchNamespace, MatchNamespacePrefix:
		l.entries = append(l.entries, entry{kind: kind, mode: mode, value: pattern})
	default:
		panic(fmt.Sprintf("policy: unknown match kind %d", kind))
	}
	return true
}

// IsBlacklisted returns the mode of the first entry matching the symbol, or
// false when none matches. fullName is tested by regex entries, namespace by
// the others.
func (l *AccessList) IsBlacklisted(fullName, namespace string) bool {
	for _, e := range l.entries {
		switch e.kind {
		case MatchRegex:
			if !e.pattern.MatchString(fullName) {
				continue
			}
		case MatchNamespace:
			if namespace != e.value {
				continue
			}
		case MatchNamespacePrefix:
			if !strings.HasPrefix(namespace, e.value) {
				continue
			}
		}
		return e.mode == Deny
	}
	return false
}

// Collection is a set of access lists. A symbol is blacklisted when any list
// blacklists it.
type Collection struct {
	lists []*AccessList
}

// Add appends a list.
func (c *Collection) Add(l *AccessList) {
	c.lists = append(c.lists, l)
}

// Len returns the number of lists.
func (c *Collection) Len() int { return len(c.lists) }

// IsBlacklisted reports whether any list blacklists the symbol.
func (c *Collection) IsBlacklisted(fullName, namespace string) bool {
	for _, l := range c.lists {
		if l.IsBlacklisted(fullName, namespace) {
			return true
		}
	}
	return false
}
