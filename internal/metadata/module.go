// Package metadata is the in-memory model of a compiled module: type
// definitions with their members and method bodies, and the references that
// use sites hold to types, methods and fields of this or other modules.
//
// Definitions form an arena owned by their Module. References are lightweight
// descriptors that are resolved to definitions on demand through a Universe.
package metadata

import "strconv"

// Module is a unit of compiled code. It owns its type definitions, which own
// their members and method bodies.
type Module struct {
	Name       string
	References []string // names of the modules this module refers to
	Types      []*TypeDef

	index           map[string]*TypeDef
	importedTypes   map[*TypeDef]*NamedType
	importedMethods map[*MethodDef]*MethodRef
	importedFields  map[*FieldDef]*FieldRef
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// AddType appends a top-level type and attaches it, and everything nested
// inside it, to the module.
func (m *Module) AddType(t *TypeDef) *TypeDef {
	t.declaringType = nil
	t.attach(m)
	m.Types = append(m.Types, t)
	if m.index != nil {
		m.index[typeKey(t.Namespace, t.Name, len(t.GenericParameters))] = t
	}
	return t
}

// FindType looks up a top-level type by namespace, name and generic arity.
func (m *Module) FindType(namespace, name string, arity int) *TypeDef {
	if m.index == nil {
		m.index = make(map[string]*TypeDef, len(m.Types))
		for _, t := range m.Types {
			m.index[typeKey(t.Namespace, t.Name, len(t.GenericParameters))] = t
		}
	}
	return m.index[typeKey(namespace, name, arity)]
}

// AllTypes returns every type of the module in declaration order, each type
// followed by its nested types.
func (m *Module) AllTypes() []*TypeDef {
	var out []*TypeDef
	var visit func(t *TypeDef)
	visit = func(t *TypeDef) {
		out = append(out, t)
		for _, n := range t.NestedTypes {
			visit(n)
		}
	}
	for _, t := range m.Types {
		visit(t)
	}
	return out
}

// AddReference records that the module refers to the named module.
func (m *Module) AddReference(name string) {
	if name == "" || name == m.Name {
		return
	}
	for _, r := range m.References {
		if r == name {
			return
		}
	}
	m.References = append(m.References, name)
}

func typeKey(namespace, name string, arity int) string {
	return namespace + "|" + name + "`" + strconv.Itoa(arity)
}

// TypeDef is a type definition.
type TypeDef struct {
	Namespace         string
	Name              string
	IsValueType       bool
	IsInterface       bool
	IsAbstract        bool
	IsSealed          bool
	GenericParameters []*GenericParam
	BaseType          TypeRef
	Interfaces        []TypeRef
	Fields            []*FieldDef
	Methods           []*MethodDef
	NestedTypes       []*TypeDef
	CustomAttributes  []*CustomAttribute

	module        *Module
	declaringType *TypeDef
}

// Module returns the module the type belongs to, or nil when detached.
func (t *TypeDef) Module() *Module { return t.module }

// DeclaringType returns the enclosing type of a nested type.
func (t *TypeDef) DeclaringType() *TypeDef { return t.declaringType }

// GenericArity returns the number of generic parameters.
func (t *TypeDef) GenericArity() int { return len(t.GenericParameters) }

func (t *TypeDef) FullName() string {
	name := arityName(t.Name, len(t.GenericParameters))
	if t.declaringType != nil {
		return t.declaringType.FullName() + "/" + name
	}
	if t.Namespace == "" {
		return name
	}
	return t.Namespace + "." + name
}

// OuterNamespace returns the namespace of the outermost enclosing type.
// Nested types carry no namespace of their own.
func (t *TypeDef) OuterNamespace() string {
	outer := t
	for outer.declaringType != nil {
		outer = outer.declaringType
	}
	return outer.Namespace
}

// StructuralKey identifies the type by namespace, name, arity and enclosing
// types, independently of the module defining it.
func (t *TypeDef) StructuralKey() string {
	key := typeKey(t.Namespace, t.Name, len(t.GenericParameters))
	if t.declaringType != nil {
		return t.declaringType.StructuralKey() + "/" + key
	}
	return key
}

// AddNestedType appends n as a type nested in t.
func (t *TypeDef) AddNestedType(n *TypeDef) *TypeDef {
	n.declaringType = t
	if t.module != nil {
		n.attach(t.module)
	}
	t.NestedTypes = append(t.NestedTypes, n)
	return n
}

// FindNestedType looks up a directly nested type by name and arity.
func (t *TypeDef) FindNestedType(name string, arity int) *TypeDef {
	for _, n := range t.NestedTypes {
		if n.Name == name && len(n.GenericParameters) == arity {
			return n
		}
	}
	return nil
}

// AddField appends a field definition.
func (t *TypeDef) AddField(f *FieldDef) *FieldDef {
	f.declaringType = t
	t.Fields = append(t.Fields, f)
	return f
}

// AddMethod appends a method definition.
func (t *TypeDef) AddMethod(m *MethodDef) *MethodDef {
	m.declaringType = t
	t.Methods = append(t.Methods, m)
	return m
}

// Attribute returns the first custom attribute whose type has the given
// simple name, or nil.
func (t *TypeDef) Attribute(name string) *CustomAttribute {
	for _, a := range t.CustomAttributes {
		if n, ok := ElementType(a.Type).(*NamedType); ok && n.Name == name {
			return a
		}
	}
	return nil
}

func (t *TypeDef) attach(m *Module) {
	t.module = m
	for _, f := range t.Fields {
		f.declaringType = t
	}
	for _, md := range t.Methods {
		md.declaringType = t
	}
	for _, n := range t.NestedTypes {
		n.declaringType = t
		n.attach(m)
	}
}

// GenericParam is a generic parameter declared by a type or method.
type GenericParam struct {
	Name        string
	Constraints []TypeRef
}

// FieldDef is a field definition.
type FieldDef struct {
	Name      string
	FieldType TypeRef
	IsStatic  bool

	declaringType *TypeDef
}

// DeclaringType returns the type declaring the field.
func (f *FieldDef) DeclaringType() *TypeDef { return f.declaringType }

// Module returns the module the field belongs to.
func (f *FieldDef) Module() *Module {
	if f.declaringType == nil {
		return nil
	}
	return f.declaringType.module
}

func (f *FieldDef) FullName() string {
	return nameOf(f.FieldType) + " " + defName(f.declaringType) + "::" + f.Name
}

// MethodDef is a method definition. Body is nil for methods without an
// executable body.
type MethodDef struct {
	Name              string
	ReturnType        TypeRef
	Parameters        []*Parameter
	GenericParameters []*GenericParam
	IsStatic          bool
	Body              *MethodBody

	declaringType *TypeDef
}

// DeclaringType returns the type declaring the method.
func (m *MethodDef) DeclaringType() *TypeDef { return m.declaringType }

// Module returns the module the method belongs to.
func (m *MethodDef) Module() *Module {
	if m.declaringType == nil {
		return nil
	}
	return m.declaringType.module
}

// Signature returns the structural signature of the method.
func (m *MethodDef) Signature() Signature {
	params := make([]TypeRef, len(m.Parameters))
	for i, p := range m.Parameters {
		params[i] = p.Type
	}
	return Signature{
		Name:         m.Name,
		ReturnType:   m.ReturnType,
		Parameters:   params,
		GenericArity: len(m.GenericParameters),
	}
}

func (m *MethodDef) FullName() string {
	params := make([]TypeRef, len(m.Parameters))
	for i, p := range m.Parameters {
		params[i] = p.Type
	}
	return methodName(m.ReturnType, defName(m.declaringType), m.Name, nil, params)
}

// Parameter is a method parameter.
type Parameter struct {
	Name string
	Type TypeRef
}

// MethodBody holds the executable body of a method.
type MethodBody struct {
	Variables    []*Variable
	Instructions []*Instruction
}

// Variable is a local variable of a method body.
type Variable struct {
	Name string
	Type TypeRef
}

// CustomAttribute is an attribute attached to a type.
type CustomAttribute struct {
	Type      TypeRef
	Arguments []Argument
}

// Argument is a custom attribute argument: either a type or a literal value.
type Argument struct {
	Type  TypeRef
	Value string
}

func defName(t *TypeDef) string {
	if t == nil {
		return "?"
	}
	return t.FullName()
}
