package metadata

// TypeMatch reports whether a and b denote the same type by shape. Scopes are
// ignored, so references into different modules can match.
func TypeMatch(a, b TypeRef) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a == b {
		return true
	}
	switch x := a.(type) {
	case *GenericParameter:
		y, ok := b.(*GenericParameter)
		return ok && x.Position == y.Position
	case *GenericInstance:
		y, ok := b.(*GenericInstance)
		if !ok || !TypeMatch(x.Element, y.Element) || len(x.Arguments) != len(y.Arguments) {
			return false
		}
		for i := range x.Arguments {
			if !TypeMatch(x.Arguments[i], y.Arguments[i]) {
				return false
			}
		}
		return true
	case *ArrayType:
		y, ok := b.(*ArrayType)
		return ok && rank(x) == rank(y) && TypeMatch(x.Element, y.Element)
	case *PointerType:
		y, ok := b.(*PointerType)
		return ok && TypeMatch(x.Element, y.Element)
	case *ByRefType:
		y, ok := b.(*ByRefType)
		return ok && TypeMatch(x.Element, y.Element)
	case *ModifiedType:
		y, ok := b.(*ModifiedType)
		return ok && x.Required == y.Required &&
			TypeMatch(x.Element, y.Element) && TypeMatch(x.Modifier, y.Modifier)
	case *NamedType:
		y, ok := b.(*NamedType)
		return ok && x.Name == y.Name && x.Namespace == y.Namespace &&
			x.GenericArity == y.GenericArity &&
			declaringMatch(x.DeclaringType, y.DeclaringType)
	}
	return false
}

// declaringMatch compares enclosing types, ignoring any instantiation.
func declaringMatch(a, b TypeRef) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return TypeMatch(ElementType(a), ElementType(b))
}

func rank(a *ArrayType) int {
	if a.Rank < 1 {
		return 1
	}
	return a.Rank
}

// DefMatch reports whether the reference t names the definition d by shape.
func DefMatch(d *TypeDef, t TypeRef) bool {
	n, ok := ElementType(t).(*NamedType)
	if !ok || n.Name != d.Name || n.Namespace != d.Namespace || n.GenericArity != len(d.GenericParameters) {
		return false
	}
	outer := DeclaringTypeOf(n)
	if d.declaringType == nil || outer == nil {
		return d.declaringType == nil && outer == nil
	}
	return DefMatch(d.declaringType, outer)
}

// MethodMatch reports whether two method signatures match: same name, generic
// arity and parameter count, with return and parameter types matching by shape.
func MethodMatch(a, b Signature) bool {
	if a.Name != b.Name ||
		a.GenericArity != b.GenericArity ||
		len(a.Parameters) != len(b.Parameters) ||
		!TypeMatch(a.ReturnType, b.ReturnType) {
		return false
	}
	for i := range a.Parameters {
		if !TypeMatch(a.Parameters[i], b.Parameters[i]) {
			return false
		}
	}
	return true
}

// FieldMatch reports whether two fields have the same name and matching types.
func FieldMatch(aName string, aType TypeRef, bName string, bType TypeRef) bool {
	return aName == bName && TypeMatch(aType, bType)
}
