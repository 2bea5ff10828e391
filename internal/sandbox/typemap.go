package sandbox

import (
	"martianoff/sandbox/internal/metadata"
	"martianoff/sandbox/internal/policy"
	"martianoff/sandbox/sandboxerr"
)

// Proxy marker attribute names. The first attribute argument is the type
// being replaced.
var ProxyAttributes = []string{"FodyProxyAttribute", "ProxyAttribute"}

// TypeMap computes the substituted form of type, method and field references
// for one target module.
//
// Results are memoized per reference object. A cached nil means no
// substitution applies, so the reference is returned unchanged. The caches
// are valid for one module; switching modules clears them.
type TypeMap struct {
	universe *metadata.Universe
	access   *policy.Collection
	proxies  *ProxyTable
	sink     sandboxerr.Sink
	module   *metadata.Module

	types   map[metadata.TypeRef]metadata.TypeRef
	methods map[*metadata.MethodRef]*metadata.MethodRef
	fields  map[*metadata.FieldRef]*metadata.FieldRef
}

// NewTypeMap creates a TypeMap resolving references through universe and
// consulting access for foreign symbols without a proxy.
func NewTypeMap(universe *metadata.Universe, access *policy.Collection, sink sandboxerr.Sink) *TypeMap {
	if sink == nil {
		sink = sandboxerr.Discard
	}
	if access == nil {
		access = &policy.Collection{}
	}
	return &TypeMap{
		universe: universe,
		access:   access,
		proxies:  NewProxyTable(),
		sink:     sink,
		types:    make(map[metadata.TypeRef]metadata.TypeRef),
		methods:  make(map[*metadata.MethodRef]*metadata.MethodRef),
		fields:   make(map[*metadata.FieldRef]*metadata.FieldRef),
	}
}

// Proxies returns the proxy table.
func (tm *TypeMap) Proxies() *ProxyTable { return tm.proxies }

// Module returns the module being rewritten.
func (tm *TypeMap) Module() *metadata.Module { return tm.module }

// SetModule selects the module being rewritten.
func (tm *TypeMap) SetModule(m *metadata.Module) {
	if tm.module == m {
		return
	}
	tm.module = m
	clear(tm.types)
	clear(tm.methods)
	clear(tm.fields)
}

// AddProxyModule registers every type of m marked with a proxy attribute.
// Failures are reported and the offending type is skipped.
func (tm *TypeMap) AddProxyModule(m *metadata.Module) {
	for _, t := range m.AllTypes() {
		attr := proxyAttribute(t)
		if attr == nil {
			continue
		}
		if len(attr.Arguments) == 0 || attr.Arguments[0].Type == nil {
			tm.sink.Report(sandboxerr.NewConfigError("proxy attribute on '" + t.FullName() + "' does not name a type"))
			continue
		}
		target := attr.Arguments[0].Type
		original, err := tm.universe.ResolveType(target)
		if err != nil {
			tm.sink.Report(sandboxerr.NewUnresolvedError(sandboxerr.KindType, target.FullName(), err))
			continue
		}
		if err := tm.proxies.Add(original, t); err != nil {
			tm.sink.Report(err)
		}
	}
}

func proxyAttribute(t *metadata.TypeDef) *metadata.CustomAttribute {
	for _, name := range ProxyAttributes {
		if a := t.Attribute(name); a != nil {
			return a
		}
	}
	return nil
}

// Type returns the substituted form of t. Generic parameters are never
// substituted. References are never modified: a reference whose parts change
// is rebuilt, so a decoded reference shared by several use sites keeps its
// meaning everywhere it is not substituted itself.
func (tm *TypeMap) Type(t metadata.TypeRef) metadata.TypeRef {
	switch t.(type) {
	case nil, *metadata.GenericParameter:
		return t
	}

	if cached, ok := tm.types[t]; ok {
		if cached == nil {
			return t
		}
		return cached
	}

	switch t.(type) {
	case *metadata.ArrayType, *metadata.PointerType, *metadata.ByRefType, *metadata.ModifiedType:
		return tm.remember(t, tm.composite(t))
	}

	def, err := tm.universe.ResolveType(t)
	if err != nil {
		tm.sink.Report(sandboxerr.NewUnresolvedError(sandboxerr.KindType, t.FullName(), err))
		tm.types[t] = nil
		return t
	}

	substituted := tm.substituteChain(t)

	proxy, ok := tm.proxies.Lookup(def)
	if !ok {
		if tm.foreign(def.Module()) && tm.access.IsBlacklisted(def.FullName(), def.OuterNamespace()) {
			tm.sink.Report(sandboxerr.NewPolicyViolation(sandboxerr.KindType, t.FullName()))
		}
		return tm.remember(t, substituted)
	}

	result := tm.instantiate(tm.module.ImportType(proxy), substituted)
	tm.types[t] = result
	return result
}

// remember caches r as the substitution of t, or "none" when they are the
// same reference.
func (tm *TypeMap) remember(t, r metadata.TypeRef) metadata.TypeRef {
	if r == t {
		tm.types[t] = nil
	} else {
		tm.types[t] = r
	}
	return r
}

// composite rebuilds an array, pointer, by-ref or modified type around
// its substituted element.
func (tm *TypeMap) composite(t metadata.TypeRef) metadata.TypeRef {
	switch v := t.(type) {
	case *metadata.ArrayType:
		if e := tm.Type(v.Element); e != v.Element {
			return &metadata.ArrayType{Element: e, Rank: v.Rank}
		}
	case *metadata.PointerType:
		if e := tm.Type(v.Element); e != v.Element {
			return &metadata.PointerType{Element: e}
		}
	case *metadata.ByRefType:
		if e := tm.Type(v.Element); e != v.Element {
			return &metadata.ByRefType{Element: e}
		}
	case *metadata.ModifiedType:
		e, mod := tm.Type(v.Element), tm.Type(v.Modifier)
		if e != v.Element || mod != v.Modifier {
			return &metadata.ModifiedType{Element: e, Modifier: mod, Required: v.Required}
		}
	}
	return t
}

// typeList substitutes every reference of list into a new slice. It returns
// list itself and false when nothing changes.
func (tm *TypeMap) typeList(list []metadata.TypeRef) ([]metadata.TypeRef, bool) {
	var out []metadata.TypeRef
	for i, t := range list {
		r := tm.Type(t)
		if r != t && out == nil {
			out = append([]metadata.TypeRef(nil), list...)
		}
		if out != nil {
			out[i] = r
		}
	}
	if out == nil {
		return list, false
	}
	return out, true
}

// Method returns the substituted form of m.
func (tm *TypeMap) Method(m *metadata.MethodRef) *metadata.MethodRef {
	if cached, ok := tm.methods[m]; ok {
		if cached == nil {
			return m
		}
		return cached
	}

	owner, err := tm.universe.ResolveType(m.DeclaringType)
	if err != nil {
		tm.sink.Report(unresolvedOwner(sandboxerr.KindMethod, m.DeclaringType, m.FullName(), err))
		tm.methods[m] = nil
		return m
	}

	// the reference as seen through the substituted declaring chain and
	// generic-method arguments
	substituted := m
	declaring := tm.substituteChain(m.DeclaringType)
	genericArgs, argsChanged := tm.typeList(m.GenericArguments)
	if declaring != m.DeclaringType || argsChanged {
		c := *m
		c.DeclaringType, c.GenericArguments = declaring, genericArgs
		substituted = &c
	}

	proxy, ok := tm.proxies.Lookup(owner)
	if !ok {
		if owner.Module() == tm.module {
			// Keep references to local methods in step with their rewritten definitions.
			ret := tm.Type(m.ReturnType)
			params, paramsChanged := tm.typeList(m.Parameters)
			if ret != m.ReturnType || paramsChanged {
				if substituted == m {
					c := *m
					substituted = &c
				}
				substituted.ReturnType, substituted.Parameters = ret, params
			}
		} else {
			tm.checkMethod(substituted)
		}
		return tm.rememberMethod(m, substituted)
	}

	sig := m.Signature()
	var matches []*metadata.MethodDef
	for _, md := range proxy.Methods {
		if metadata.MethodMatch(md.Signature(), sig) {
			matches = append(matches, md)
		}
	}
	switch len(matches) {
	case 0:
		tm.sink.Report(sandboxerr.NewMissingMemberError(sandboxerr.KindMethod, m.FullName(), proxy.FullName()))
		return tm.rememberMethod(m, substituted)
	case 1:
	default:
		tm.sink.Report(sandboxerr.NewAmbiguousMemberError(sandboxerr.KindMethod, m.FullName(), proxy.FullName(), len(matches)))
		return tm.rememberMethod(m, substituted)
	}

	result := tm.instantiateMethod(tm.module.ImportMethod(matches[0]), substituted)
	tm.methods[m] = result
	return result
}

func (tm *TypeMap) rememberMethod(m, r *metadata.MethodRef) *metadata.MethodRef {
	if r == m {
		tm.methods[m] = nil
	} else {
		tm.methods[m] = r
	}
	return r
}

// Field returns the substituted form of f.
func (tm *TypeMap) Field(f *metadata.FieldRef) *metadata.FieldRef {
	if cached, ok := tm.fields[f]; ok {
		if cached == nil {
			return f
		}
		return cached
	}

	owner, err := tm.universe.ResolveType(f.DeclaringType)
	if err != nil {
		tm.sink.Report(unresolvedOwner(sandboxerr.KindField, f.DeclaringType, f.FullName(), err))
		tm.fields[f] = nil
		return f
	}

	substituted := f
	if declaring := tm.substituteChain(f.DeclaringType); declaring != f.DeclaringType {
		c := *f
		c.DeclaringType = declaring
		substituted = &c
	}

	proxy, ok := tm.proxies.Lookup(owner)
	if !ok {
		if owner.Module() == tm.module {
			if ft := tm.Type(f.FieldType); ft != f.FieldType {
				if substituted == f {
					c := *f
					substituted = &c
				}
				substituted.FieldType = ft
			}
		} else {
			tm.checkField(substituted)
		}
		return tm.rememberField(f, substituted)
	}

	var matches []*metadata.FieldDef
	for _, fd := range proxy.Fields {
		if metadata.FieldMatch(fd.Name, fd.FieldType, f.Name, f.FieldType) {
			matches = append(matches, fd)
		}
	}
	switch len(matches) {
	case 0:
		tm.sink.Report(sandboxerr.NewMissingMemberError(sandboxerr.KindField, f.FullName(), proxy.FullName()))
		return tm.rememberField(f, substituted)
	case 1:
	default:
		tm.sink.Report(sandboxerr.NewAmbiguousMemberError(sandboxerr.KindField, f.FullName(), proxy.FullName(), len(matches)))
		return tm.rememberField(f, substituted)
	}

	result := tm.instantiateField(tm.module.ImportField(matches[0]), substituted)
	tm.fields[f] = result
	return result
}

func (tm *TypeMap) rememberField(f, r *metadata.FieldRef) *metadata.FieldRef {
	if r == f {
		tm.fields[f] = nil
	} else {
		tm.fields[f] = r
	}
	return r
}

// unresolvedOwner reports a member whose declaring type cannot be resolved,
// naming the declaring type when there is one.
func unresolvedOwner(kind sandboxerr.SymbolKind, owner metadata.TypeRef, member string, err error) error {
	if owner == nil {
		return sandboxerr.NewUnresolvedError(kind, member, err)
	}
	return sandboxerr.NewUnresolvedError(sandboxerr.KindType, owner.FullName(), err)
}

// substituteChain returns t with the generic arguments of t and of every
// instantiated type enclosing it substituted. The types themselves are not
// proxied. t is returned when nothing changes.
func (tm *TypeMap) substituteChain(t metadata.TypeRef) metadata.TypeRef {
	switch v := t.(type) {
	case *metadata.NamedType:
		if v.DeclaringType == nil {
			return t
		}
		declaring := tm.substituteChain(v.DeclaringType)
		if declaring == v.DeclaringType {
			return t
		}
		c := *v
		c.DeclaringType = declaring
		return &c
	case *metadata.GenericInstance:
		element := tm.substituteChain(v.Element).(*metadata.NamedType)
		args, argsChanged := tm.typeList(v.Arguments)
		if element == v.Element && !argsChanged {
			return t
		}
		return &metadata.GenericInstance{Element: element, Arguments: args}
	}
	return t
}

// instantiate re-attaches the instantiation of src, including instantiated
// enclosing types of matching arity, to the proxy reference dest.
func (tm *TypeMap) instantiate(dest *metadata.NamedType, src metadata.TypeRef) metadata.TypeRef {
	var srcNamed *metadata.NamedType
	var args []metadata.TypeRef
	switch v := src.(type) {
	case *metadata.GenericInstance:
		srcNamed, args = v.Element, v.Arguments
	case *metadata.NamedType:
		srcNamed = v
	default:
		return dest
	}

	if outer := srcNamed.DeclaringType; outer != nil && hasInstance(outer) {
		if destOuter, ok := dest.DeclaringType.(*metadata.NamedType); ok && destOuter.GenericArity == arity(outer) {
			c := *dest
			c.DeclaringType = tm.instantiate(destOuter, outer)
			dest = &c
		}
	}

	if len(args) == 0 {
		return dest
	}
	return &metadata.GenericInstance{Element: dest, Arguments: append([]metadata.TypeRef(nil), args...)}
}

func (tm *TypeMap) instantiateMethod(dest, src *metadata.MethodRef) *metadata.MethodRef {
	if hasInstance(src.DeclaringType) {
		if owner, ok := dest.DeclaringType.(*metadata.NamedType); ok {
			n := &metadata.MethodRef{
				DeclaringType: tm.instantiate(owner, src.DeclaringType),
				Name:          dest.Name,
				ReturnType:    tm.Type(dest.ReturnType),
				GenericArity:  dest.GenericArity,
				HasThis:       dest.HasThis,
			}
			for _, p := range dest.Parameters {
				n.Parameters = append(n.Parameters, tm.Type(p))
			}
			dest = n
		}
	}

	if !src.IsGenericInstance() {
		return dest
	}
	n := *dest
	n.GenericArguments = append([]metadata.TypeRef(nil), src.GenericArguments...)
	return &n
}

func (tm *TypeMap) instantiateField(dest, src *metadata.FieldRef) *metadata.FieldRef {
	if !hasInstance(src.DeclaringType) {
		return dest
	}
	owner, ok := dest.DeclaringType.(*metadata.NamedType)
	if !ok {
		return dest
	}
	return &metadata.FieldRef{
		DeclaringType: tm.instantiate(owner, src.DeclaringType),
		Name:          dest.Name,
		FieldType:     tm.Type(dest.FieldType),
	}
}

// checkMethod reports a foreign method denied by the access lists, and each
// denied type in its signature.
func (tm *TypeMap) checkMethod(m *metadata.MethodRef) {
	md, err := tm.universe.ResolveMethod(m)
	if err != nil {
		tm.sink.Report(sandboxerr.NewUnresolvedError(sandboxerr.KindMethod, m.FullName(), err))
	} else if tm.foreign(md.Module()) && tm.access.IsBlacklisted(md.FullName(), md.DeclaringType().OuterNamespace()) {
		tm.sink.Report(sandboxerr.NewPolicyViolation(sandboxerr.KindMethod, m.FullName()))
	}

	signature := append([]metadata.TypeRef(nil), m.Parameters...)
	signature = append(signature, m.ReturnType)
	if md != nil {
		for _, gp := range md.GenericParameters {
			signature = append(signature, gp.Constraints...)
		}
	}
	for _, t := range signature {
		if tm.blacklisted(t) {
			tm.sink.Report(sandboxerr.NewSignatureViolation(sandboxerr.KindMethod, m.FullName(), t.FullName()))
		}
	}
}

// checkField reports a foreign field denied by the access lists, and its type
// when that is denied.
func (tm *TypeMap) checkField(f *metadata.FieldRef) {
	fd, err := tm.universe.ResolveField(f)
	if err != nil {
		tm.sink.Report(sandboxerr.NewUnresolvedError(sandboxerr.KindField, f.FullName(), err))
	} else if tm.foreign(fd.Module()) && tm.access.IsBlacklisted(fd.FullName(), fd.DeclaringType().OuterNamespace()) {
		tm.sink.Report(sandboxerr.NewPolicyViolation(sandboxerr.KindField, f.FullName()))
	}

	if tm.blacklisted(f.FieldType) {
		tm.sink.Report(sandboxerr.NewSignatureViolation(sandboxerr.KindField, f.FullName(), f.FieldType.FullName()))
	}
}

// blacklisted reports whether t names a foreign type the access lists deny.
// Unresolvable types are reported as such, not as violations.
func (tm *TypeMap) blacklisted(t metadata.TypeRef) bool {
	if t == nil {
		return false
	}
	if _, ok := metadata.ElementType(t).(*metadata.GenericParameter); ok {
		return false
	}
	def, err := tm.universe.ResolveType(t)
	if err != nil {
		tm.sink.Report(sandboxerr.NewUnresolvedError(sandboxerr.KindType, t.FullName(), err))
		return false
	}
	if !tm.foreign(def.Module()) {
		return false
	}
	return tm.access.IsBlacklisted(def.FullName(), def.OuterNamespace())
}

func (tm *TypeMap) foreign(m *metadata.Module) bool {
	return m != tm.module
}

func hasInstance(t metadata.TypeRef) bool {
	for current := t; current != nil; current = metadata.DeclaringTypeOf(current) {
		if _, ok := current.(*metadata.GenericInstance); ok {
			return true
		}
	}
	return false
}

func arity(t metadata.TypeRef) int {
	if n, ok := metadata.ElementType(t).(*metadata.NamedType); ok {
		return n.GenericArity
	}
	return 0
}
