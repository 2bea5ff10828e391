// Package sandboxerr defines the diagnostics produced while weaving a module.
//
// Every diagnostic is a typed error. Apart from configuration problems, none of
// them stops a weaving pass: they are handed to a Sink and the pass continues,
// leaving the offending reference unsubstituted.
package sandboxerr

import (
	"fmt"
	"strings"
)

// ErrorType defines the category of the error.
type ErrorType string

const (
	TypeUnresolved        ErrorType = "UnresolvedSymbol"
	TypeIncompatibleProxy ErrorType = "IncompatibleProxy"
	TypeDuplicateProxy    ErrorType = "DuplicateProxy"
	TypeMissingMember     ErrorType = "MissingMember"
	TypeAmbiguousMember   ErrorType = "AmbiguousMember"
	TypePolicy            ErrorType = "PolicyViolation"
	TypePattern           ErrorType = "InvalidPattern"
	TypeConfig            ErrorType = "ConfigError"
)

// SymbolKind names the kind of symbol a diagnostic is about.
type SymbolKind string

const (
	KindType   SymbolKind = "type"
	KindMethod SymbolKind = "method"
	KindField  SymbolKind = "field"
	KindModule SymbolKind = "module"
)

// SandboxError is the interface for all weaving diagnostics.
type SandboxError interface {
	error
	Type() ErrorType
}

// BaseError provides common fields for sandbox errors.
type BaseError struct {
	Msg     string
	ErrType ErrorType
}

func (e *BaseError) Error() string {
	return fmt.Sprintf("[%s] %s", e.ErrType, e.Msg)
}

func (e *BaseError) Type() ErrorType {
	return e.ErrType
}

// UnresolvedSymbolError reports a reference that could not be traced to a definition.
type UnresolvedSymbolError struct {
	BaseError
	Kind   SymbolKind
	Symbol string
	Cause  error
}

func (e *UnresolvedSymbolError) Unwrap() error { return e.Cause }

// IncompatibleProxyError reports a proxy candidate whose shape differs from its original.
type IncompatibleProxyError struct {
	BaseError
	Original string
	Proxy    string
	Reason   string
}

// DuplicateProxyError reports a second proxy registered for the same original type.
type DuplicateProxyError struct {
	BaseError
	Original string
	Existing string
	Proxy    string
}

// MissingMemberError reports a member of a proxied type that has no counterpart
// in the proxy type.
type MissingMemberError struct {
	BaseError
	Kind      SymbolKind
	Member    string
	ProxyType string
}

// AmbiguousMemberError reports a member of a proxied type that matches more than
// one member of the proxy type.
type AmbiguousMemberError struct {
	BaseError
	Kind      SymbolKind
	Member    string
	ProxyType string
	Matches   int
}

// PolicyViolationError reports a reference to a foreign symbol denied by an access list.
// Member is set when the symbol is only reached through the signature of that member.
type PolicyViolationError struct {
	BaseError
	Kind   SymbolKind
	Symbol string
	Member string
}

// PatternError reports an access list pattern that failed to compile.
type PatternError struct {
	BaseError
	Pattern string
	Cause   error
}

func (e *PatternError) Unwrap() error { return e.Cause }

// ConfigError reports an invalid configuration entry that was skipped.
type ConfigError struct {
	BaseError
}

// NewUnresolvedError creates an UnresolvedSymbolError.
func NewUnresolvedError(kind SymbolKind, symbol string, cause error) *UnresolvedSymbolError {
	return &UnresolvedSymbolError{
		BaseError: BaseError{
			Msg:     fmt.Sprintf("failed to resolve %s '%s'", kind, symbol),
			ErrType: TypeUnresolved,
		},
		Kind:   kind,
		Symbol: symbol,
		Cause:  cause,
	}
}

// NewIncompatibleProxyError creates an IncompatibleProxyError.
func NewIncompatibleProxyError(original, proxy, reason string) *IncompatibleProxyError {
	return &IncompatibleProxyError{
		BaseError: BaseError{
			Msg:     fmt.Sprintf("type '%s' is not compatible with '%s' (%s)", original, proxy, reason),
			ErrType: TypeIncompatibleProxy,
		},
		Original: original,
		Proxy:    proxy,
		Reason:   reason,
	}
}

// NewDuplicateProxyError creates a DuplicateProxyError.
func NewDuplicateProxyError(original, existing, proxy string) *DuplicateProxyError {
	return &DuplicateProxyError{
		BaseError: BaseError{
			Msg:     fmt.Sprintf("type '%s' is already proxied by '%s', cannot add '%s'", original, existing, proxy),
			ErrType: TypeDuplicateProxy,
		},
		Original: original,
		Existing: existing,
		Proxy:    proxy,
	}
}

// NewMissingMemberError creates a MissingMemberError.
func NewMissingMemberError(kind SymbolKind, member, proxyType string) *MissingMemberError {
	return &MissingMemberError{
		BaseError: BaseError{
			Msg:     fmt.Sprintf("%s '%s' doesn't exist in its proxy type ('%s')", kind, member, proxyType),
			ErrType: TypeMissingMember,
		},
		Kind:      kind,
		Member:    member,
		ProxyType: proxyType,
	}
}

// NewAmbiguousMemberError creates an AmbiguousMemberError.
func NewAmbiguousMemberError(kind SymbolKind, member, proxyType string, matches int) *AmbiguousMemberError {
	return &AmbiguousMemberError{
		BaseError: BaseError{
			Msg:     fmt.Sprintf("%s '%s' matches %d %ss in its proxy type ('%s')", kind, member, matches, kind, proxyType),
			ErrType: TypeAmbiguousMember,
		},
		Kind:      kind,
		Member:    member,
		ProxyType: proxyType,
		Matches:   matches,
	}
}

// NewPolicyViolation creates a PolicyViolationError for a directly referenced symbol.
func NewPolicyViolation(kind SymbolKind, symbol string) *PolicyViolationError {
	return &PolicyViolationError{
		BaseError: BaseError{
			Msg:     fmt.Sprintf("referenced blacklisted %s '%s'", kind, symbol),
			ErrType: TypePolicy,
		},
		Kind:   kind,
		Symbol: symbol,
	}
}

// NewSignatureViolation creates a PolicyViolationError for a blacklisted type
// appearing in the signature of member.
func NewSignatureViolation(kind SymbolKind, member, typeName string) *PolicyViolationError {
	return &PolicyViolationError{
		BaseError: BaseError{
			Msg:     fmt.Sprintf("%s '%s' references blacklisted type '%s'", kind, member, typeName),
			ErrType: TypePolicy,
		},
		Kind:   KindType,
		Symbol: typeName,
		Member: member,
	}
}

// NewPatternError creates a PatternError.
func NewPatternError(pattern string, cause error) *PatternError {
	return &PatternError{
		BaseError: BaseError{
			Msg:     fmt.Sprintf("invalid access list pattern: %s: %v", pattern, cause),
			ErrType: TypePattern,
		},
		Pattern: pattern,
		Cause:   cause,
	}
}

// NewConfigError creates a ConfigError.
func NewConfigError(msg string) *ConfigError {
	return &ConfigError{
		BaseError: BaseError{
			Msg:     msg,
			ErrType: TypeConfig,
		},
	}
}

// ContextError attaches the definition being visited to a diagnostic.
type ContextError struct {
	Err     error
	Context string
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("%s in '%s'", e.Err.Error(), e.Context)
}

func (e *ContextError) Unwrap() error { return e.Err }

func (e *ContextError) Type() ErrorType {
	if se, ok := e.Err.(SandboxError); ok {
		return se.Type()
	}
	return ""
}

// MultiError collects multiple sandbox errors.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d error(s) occurred:\n", len(m.Errors)))
	for _, err := range m.Errors {
		sb.WriteString(fmt.Sprintf("- %v\n", err))
	}
	return sb.String()
}

func (m *MultiError) Type() ErrorType {
	if len(m.Errors) > 0 {
		if se, ok := m.Errors[0].(SandboxError); ok {
			return se.Type()
		}
	}
	return "MultiError"
}

// TypeOf returns the category of err, or "" when err is not a sandbox error.
func TypeOf(err error) ErrorType {
	if se, ok := err.(SandboxError); ok {
		return se.Type()
	}
	return ""
}
