package metadata

import (
	"strconv"
	"strings"
)

// TypeRef is a reference to a type as it appears at a use site.
// The set of implementations is closed: *NamedType, *GenericInstance,
// *GenericParameter, *ArrayType, *PointerType, *ByRefType and *ModifiedType.
type TypeRef interface {
	// FullName is the display name used in diagnostics and matched by
	// pattern access list entries.
	FullName() string
	typeRef()
}

// NamedType refers to a type definition by its structural identity.
type NamedType struct {
	Scope         string  // name of the module defining the type
	Namespace     string  // empty for nested types
	Name          string  // simple name, without arity suffix
	DeclaringType TypeRef // enclosing type of a nested type, possibly instantiated
	GenericArity  int
	IsValueType   bool
}

// GenericInstance binds type arguments to a generic type.
type GenericInstance struct {
	Element   *NamedType
	Arguments []TypeRef
}

// GenericOwner tells whether a generic parameter belongs to a type or a method.
type GenericOwner int

const (
	OwnerType GenericOwner = iota
	OwnerMethod
)

// GenericParameter refers to a generic parameter by position.
type GenericParameter struct {
	Owner    GenericOwner
	Position int
	Name     string
}

// ArrayType is an array of Element. Rank 0 and 1 both denote a vector.
type ArrayType struct {
	Element TypeRef
	Rank    int
}

// PointerType is an unmanaged pointer to Element.
type PointerType struct {
	Element TypeRef
}

// ByRefType is a managed reference to Element.
type ByRefType struct {
	Element TypeRef
}

// ModifiedType is Element decorated with a required or optional custom modifier.
type ModifiedType struct {
	Element  TypeRef
	Modifier TypeRef
	Required bool
}

func (*NamedType) typeRef()        {}
func (*GenericInstance) typeRef()  {}
func (*GenericParameter) typeRef() {}
func (*ArrayType) typeRef()        {}
func (*PointerType) typeRef()      {}
func (*ByRefType) typeRef()        {}
func (*ModifiedType) typeRef()     {}

func (t *NamedType) FullName() string {
	name := arityName(t.Name, t.GenericArity)
	if t.DeclaringType != nil {
		return t.DeclaringType.FullName() + "/" + name
	}
	if t.Namespace == "" {
		return name
	}
	return t.Namespace + "." + name
}

func (t *GenericInstance) FullName() string {
	var sb strings.Builder
	sb.WriteString(t.Element.FullName())
	sb.WriteByte('<')
	writeTypeList(&sb, t.Arguments)
	sb.WriteByte('>')
	return sb.String()
}

func (t *GenericParameter) FullName() string {
	if t.Name != "" {
		return t.Name
	}
	if t.Owner == OwnerMethod {
		return "!!" + strconv.Itoa(t.Position)
	}
	return "!" + strconv.Itoa(t.Position)
}

func (t *ArrayType) FullName() string {
	if t.Rank <= 1 {
		return nameOf(t.Element) + "[]"
	}
	return nameOf(t.Element) + "[" + strings.Repeat(",", t.Rank-1) + "]"
}

func (t *PointerType) FullName() string { return nameOf(t.Element) + "*" }

func (t *ByRefType) FullName() string { return nameOf(t.Element) + "&" }

func (t *ModifiedType) FullName() string {
	mod := "modopt"
	if t.Required {
		mod = "modreq"
	}
	return nameOf(t.Element) + " " + mod + "(" + nameOf(t.Modifier) + ")"
}

// MethodRef is a reference to a method. A reference to an instantiation of a
// generic method carries its type arguments in GenericArguments.
type MethodRef struct {
	DeclaringType    TypeRef
	Name             string
	ReturnType       TypeRef
	Parameters       []TypeRef
	GenericArity     int
	HasThis          bool
	GenericArguments []TypeRef
}

// IsGenericInstance reports whether the reference instantiates a generic method.
func (m *MethodRef) IsGenericInstance() bool {
	return len(m.GenericArguments) > 0
}

// Signature returns the structural signature of the referenced method.
func (m *MethodRef) Signature() Signature {
	return Signature{
		Name:         m.Name,
		ReturnType:   m.ReturnType,
		Parameters:   m.Parameters,
		GenericArity: m.GenericArity,
	}
}

func (m *MethodRef) FullName() string {
	return methodName(m.ReturnType, nameOf(m.DeclaringType), m.Name, m.GenericArguments, m.Parameters)
}

// FieldRef is a reference to a field.
type FieldRef struct {
	DeclaringType TypeRef
	Name          string
	FieldType     TypeRef
}

func (f *FieldRef) FullName() string {
	return nameOf(f.FieldType) + " " + nameOf(f.DeclaringType) + "::" + f.Name
}

// Signature is the shape of a method used for structural matching.
type Signature struct {
	Name         string
	ReturnType   TypeRef
	Parameters   []TypeRef
	GenericArity int
}

// ElementType strips type specifications and instantiations, returning the
// named type or generic parameter underneath.
func ElementType(t TypeRef) TypeRef {
	for {
		switch v := t.(type) {
		case *GenericInstance:
			return v.Element
		case *ArrayType:
			t = v.Element
		case *PointerType:
			t = v.Element
		case *ByRefType:
			t = v.Element
		case *ModifiedType:
			t = v.Element
		default:
			return t
		}
	}
}

// DeclaringTypeOf returns the enclosing type reference of t, or nil.
func DeclaringTypeOf(t TypeRef) TypeRef {
	switch v := t.(type) {
	case *NamedType:
		return v.DeclaringType
	case *GenericInstance:
		return v.Element.DeclaringType
	}
	return nil
}

// Key returns a canonical string identifying the reference, scopes included.
// Structurally identical references have equal keys.
func Key(t TypeRef) string {
	var sb strings.Builder
	writeKey(&sb, t)
	return sb.String()
}

func writeKey(sb *strings.Builder, t TypeRef) {
	switch v := t.(type) {
	case nil:
		sb.WriteString("?")
	case *NamedType:
		if v.DeclaringType != nil {
			writeKey(sb, v.DeclaringType)
			sb.WriteByte('/')
		} else {
			sb.WriteString("[" + v.Scope + "]")
			if v.Namespace != "" {
				sb.WriteString(v.Namespace + ".")
			}
		}
		sb.WriteString(arityName(v.Name, v.GenericArity))
		if v.IsValueType {
			sb.WriteString("(v)")
		}
	case *GenericInstance:
		writeKey(sb, v.Element)
		sb.WriteByte('<')
		for i, a := range v.Arguments {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeKey(sb, a)
		}
		sb.WriteByte('>')
	case *GenericParameter:
		if v.Owner == OwnerMethod {
			sb.WriteString("!!")
		} else {
			sb.WriteString("!")
		}
		sb.WriteString(strconv.Itoa(v.Position))
		if v.Name != "" {
			sb.WriteString("=" + v.Name)
		}
	case *ArrayType:
		writeKey(sb, v.Element)
		sb.WriteString("[" + strconv.Itoa(v.Rank) + "]")
	case *PointerType:
		writeKey(sb, v.Element)
		sb.WriteByte('*')
	case *ByRefType:
		writeKey(sb, v.Element)
		sb.WriteByte('&')
	case *ModifiedType:
		writeKey(sb, v.Element)
		if v.Required {
			sb.WriteString(" modreq(")
		} else {
			sb.WriteString(" modopt(")
		}
		writeKey(sb, v.Modifier)
		sb.WriteByte(')')
	}
}

func arityName(name string, arity int) string {
	if arity == 0 {
		return name
	}
	return name + "`" + strconv.Itoa(arity)
}

func nameOf(t TypeRef) string {
	if t == nil {
		return "?"
	}
	return t.FullName()
}

func returnName(t TypeRef) string {
	if t == nil {
		return "System.Void"
	}
	return t.FullName()
}

func methodName(ret TypeRef, declaring, name string, genericArgs, params []TypeRef) string {
	var sb strings.Builder
	sb.WriteString(returnName(ret))
	sb.WriteByte(' ')
	sb.WriteString(declaring)
	sb.WriteString("::")
	sb.WriteString(name)
	if len(genericArgs) > 0 {
		sb.WriteByte('<')
		writeTypeList(&sb, genericArgs)
		sb.WriteByte('>')
	}
	sb.WriteByte('(')
	writeTypeList(&sb, params)
	sb.WriteByte(')')
	return sb.String()
}

func writeTypeList(sb *strings.Builder, types []TypeRef) {
	for i, t := range types {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(nameOf(t))
	}
}
