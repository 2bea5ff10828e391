package metadata

// ImportType returns a reference to def usable from m. Imports are memoized,
// so importing the same definition twice yields the same reference.
func (m *Module) ImportType(def *TypeDef) *NamedType {
	if ref, ok := m.importedTypes[def]; ok {
		return ref
	}
	ref := &NamedType{
		Namespace:    def.Namespace,
		Name:         def.Name,
		GenericArity: len(def.GenericParameters),
		IsValueType:  def.IsValueType,
	}
	if def.declaringType != nil {
		ref.DeclaringType = m.ImportType(def.declaringType)
	}
	if def.module != nil {
		ref.Scope = def.module.Name
		m.AddReference(ref.Scope)
	}
	if m.importedTypes == nil {
		m.importedTypes = make(map[*TypeDef]*NamedType)
	}
	m.importedTypes[def] = ref
	return ref
}

// ImportMethod returns a reference to def usable from m. The signature is
// copied so later rewrites of m never reach into the defining module.
func (m *Module) ImportMethod(def *MethodDef) *MethodRef {
	if ref, ok := m.importedMethods[def]; ok {
		return ref
	}
	ref := &MethodRef{
		Name:         def.Name,
		ReturnType:   m.importSignatureType(def.ReturnType),
		GenericArity: len(def.GenericParameters),
		HasThis:      !def.IsStatic,
	}
	if def.declaringType != nil {
		ref.DeclaringType = m.ImportType(def.declaringType)
	}
	ref.Parameters = make([]TypeRef, len(def.Parameters))
	for i, p := range def.Parameters {
		ref.Parameters[i] = m.importSignatureType(p.Type)
	}
	if m.importedMethods == nil {
		m.importedMethods = make(map[*MethodDef]*MethodRef)
	}
	m.importedMethods[def] = ref
	return ref
}

// ImportField returns a reference to def usable from m.
func (m *Module) ImportField(def *FieldDef) *FieldRef {
	if ref, ok := m.importedFields[def]; ok {
		return ref
	}
	ref := &FieldRef{
		Name:      def.Name,
		FieldType: m.importSignatureType(def.FieldType),
	}
	if def.declaringType != nil {
		ref.DeclaringType = m.ImportType(def.declaringType)
	}
	if m.importedFields == nil {
		m.importedFields = make(map[*FieldDef]*FieldRef)
	}
	m.importedFields[def] = ref
	return ref
}

func (m *Module) importSignatureType(t TypeRef) TypeRef {
	if t == nil {
		return nil
	}
	c := CloneType(t)
	Walk(c, func(n *NamedType) {
		m.AddReference(n.Scope)
	})
	return c
}

// CloneType returns a deep copy of t.
func CloneType(t TypeRef) TypeRef {
	switch v := t.(type) {
	case nil:
		return nil
	case *NamedType:
		c := *v
		c.DeclaringType = CloneType(v.DeclaringType)
		return &c
	case *GenericInstance:
		args := make([]TypeRef, len(v.Arguments))
		for i, a := range v.Arguments {
			args[i] = CloneType(a)
		}
		return &GenericInstance{Element: CloneType(v.Element).(*NamedType), Arguments: args}
	case *GenericParameter:
		c := *v
		return &c
	case *ArrayType:
		return &ArrayType{Element: CloneType(v.Element), Rank: v.Rank}
	case *PointerType:
		return &PointerType{Element: CloneType(v.Element)}
	case *ByRefType:
		return &ByRefType{Element: CloneType(v.Element)}
	case *ModifiedType:
		return &ModifiedType{Element: CloneType(v.Element), Modifier: CloneType(v.Modifier), Required: v.Required}
	}
	return t
}

// Walk calls fn for every named type reachable from t, including declaring
// types, generic arguments and modifiers.
func Walk(t TypeRef, fn func(*NamedType)) {
	switch v := t.(type) {
	case *NamedType:
		fn(v)
		if v.DeclaringType != nil {
			Walk(v.DeclaringType, fn)
		}
	case *GenericInstance:
		Walk(v.Element, fn)
		for _, a := range v.Arguments {
			Walk(a, fn)
		}
	case *ArrayType:
		Walk(v.Element, fn)
	case *PointerType:
		Walk(v.Element, fn)
	case *ByRefType:
		Walk(v.Element, fn)
	case *ModifiedType:
		Walk(v.Element, fn)
		Walk(v.Modifier, fn)
	}
}
