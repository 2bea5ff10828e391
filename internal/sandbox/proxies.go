package sandbox

import (
	"fmt"
	"strings"

	"martianoff/sandbox/internal/metadata"
	"martianoff/sandbox/sandboxerr"
)

// ProxyPair associates an original type with the type replacing it.
type ProxyPair struct {
	Original *metadata.TypeDef
	Proxy    *metadata.TypeDef
}

// ProxyTable maps original types to their proxies.
//
// Originals are keyed by structural identity (namespace, name, arity and
// enclosing types) since the definition passed to Lookup comes from a
// different module load than the one the proxy attribute named.
//
// Not thread-safe: it is populated before a pass and only read during it.
type ProxyTable struct {
	// index maps the original's structural key to its pair
	index map[string]*ProxyPair

	// pairs keeps registration order for reporting
	pairs []*ProxyPair
}

// NewProxyTable creates an empty table.
func NewProxyTable() *ProxyTable {
	return &ProxyTable{index: make(map[string]*ProxyPair)}
}

// Add registers proxy as the replacement of original. The pair is rejected
// when the two types differ in shape or original already has a proxy.
func (p *ProxyTable) Add(original, proxy *metadata.TypeDef) error {
	if reasons := incompatibilities(original, proxy); len(reasons) > 0 {
		return sandboxerr.NewIncompatibleProxyError(original.FullName(), proxy.FullName(), strings.Join(reasons, ", "))
	}

	key := original.StructuralKey()
	if existing, ok := p.index[key]; ok {
		return sandboxerr.NewDuplicateProxyError(original.FullName(), existing.Proxy.FullName(), proxy.FullName())
	}

	pair := &ProxyPair{Original: original, Proxy: proxy}
	p.index[key] = pair
	p.pairs = append(p.pairs, pair)
	return nil
}

// Lookup returns the proxy registered for def.
func (p *ProxyTable) Lookup(def *metadata.TypeDef) (*metadata.TypeDef, bool) {
	pair, ok := p.index[def.StructuralKey()]
	if !ok {
		return nil, false
	}
	return pair.Proxy, true
}

// Len returns the number of registered proxies.
func (p *ProxyTable) Len() int {
	return len(p.pairs)
}

// Pairs returns the registered pairs in registration order.
func (p *ProxyTable) Pairs() []*ProxyPair {
	result := make([]*ProxyPair, len(p.pairs))
	copy(result, p.pairs)
	return result
}

func incompatibilities(a, b *metadata.TypeDef) []string {
	var reasons []string
	check := func(what string, x, y bool) {
		if x != y {
			reasons = append(reasons, fmt.Sprintf("%s: %t vs %t", what, x, y))
		}
	}
	check("value type", a.IsValueType, b.IsValueType)
	check("interface", a.IsInterface, b.IsInterface)
	check("abstract", a.IsAbstract, b.IsAbstract)
	check("sealed", a.IsSealed, b.IsSealed)
	if a.GenericArity() != b.GenericArity() {
		reasons = append(reasons, fmt.Sprintf("generic parameters: %d vs %d", a.GenericArity(), b.GenericArity()))
	}
	return reasons
}
