package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeMatch(t *testing.T) {
	i32a := named("corlib", "System", "Int32")
	i32b := named("other", "System", "Int32")
	str := named("corlib", "System", "String")
	listA := &NamedType{Scope: "corlib", Namespace: "System", Name: "List", GenericArity: 1}
	listB := &NamedType{Scope: "proxies", Namespace: "System", Name: "List", GenericArity: 1}
	outerA := named("a", "N", "Outer")
	outerB := named("b", "N", "Outer")
	mod := named("corlib", "System.Runtime.CompilerServices", "IsConst")

	tests := []struct {
		name string
		a, b TypeRef
		want bool
	}{
		{"nil pair", nil, nil, true},
		{"nil and type", nil, i32a, false},
		{"same named across scopes", i32a, i32b, true},
		{"different names", i32a, str, false},
		{"different arity", listA, named("corlib", "System", "List"), false},
		{"generic parameter position", &GenericParameter{Position: 1}, &GenericParameter{Owner: OwnerMethod, Position: 1, Name: "U"}, true},
		{"generic parameter mismatch", &GenericParameter{Position: 0}, &GenericParameter{Position: 1}, false},
		{"parameter versus named", &GenericParameter{Position: 0}, i32a, false},
		{"instances", &GenericInstance{Element: listA, Arguments: []TypeRef{i32a}}, &GenericInstance{Element: listB, Arguments: []TypeRef{i32b}}, true},
		{"instance argument mismatch", &GenericInstance{Element: listA, Arguments: []TypeRef{i32a}}, &GenericInstance{Element: listB, Arguments: []TypeRef{str}}, false},
		{"vector and rank one", &ArrayType{Element: i32a}, &ArrayType{Element: i32b, Rank: 1}, true},
		{"rank mismatch", &ArrayType{Element: i32a, Rank: 2}, &ArrayType{Element: i32b}, false},
		{"array versus pointer", &ArrayType{Element: i32a}, &PointerType{Element: i32a}, false},
		{"byref", &ByRefType{Element: i32a}, &ByRefType{Element: i32b}, true},
		{"modifier", &ModifiedType{Element: i32a, Modifier: mod, Required: true}, &ModifiedType{Element: i32b, Modifier: mod, Required: true}, true},
		{"modifier kind", &ModifiedType{Element: i32a, Modifier: mod, Required: true}, &ModifiedType{Element: i32b, Modifier: mod}, false},
		{"nested", &NamedType{Name: "In", DeclaringType: outerA}, &NamedType{Name: "In", DeclaringType: outerB}, true},
		{"nested versus top level", &NamedType{Name: "In", DeclaringType: outerA}, named("a", "", "In"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeMatch(tt.a, tt.b))
			assert.Equal(t, tt.want, TypeMatch(tt.b, tt.a))
		})
	}
}

func TestMethodMatch(t *testing.T) {
	i32 := named("corlib", "System", "Int32")
	str := named("corlib", "System", "String")
	base := Signature{Name: "M", ReturnType: str, Parameters: []TypeRef{i32}}

	assert.True(t, MethodMatch(base, Signature{Name: "M", ReturnType: named("x", "System", "String"), Parameters: []TypeRef{named("x", "System", "Int32")}}))
	assert.False(t, MethodMatch(base, Signature{Name: "N", ReturnType: str, Parameters: []TypeRef{i32}}))
	assert.False(t, MethodMatch(base, Signature{Name: "M", ReturnType: str}))
	assert.False(t, MethodMatch(base, Signature{Name: "M", ReturnType: i32, Parameters: []TypeRef{i32}}))
	assert.False(t, MethodMatch(base, Signature{Name: "M", ReturnType: str, Parameters: []TypeRef{i32}, GenericArity: 1}))
	assert.False(t, MethodMatch(base, Signature{Name: "M", Parameters: []TypeRef{i32}}))
}

func TestFieldMatch(t *testing.T) {
	i32 := named("corlib", "System", "Int32")
	assert.True(t, FieldMatch("x", i32, "x", named("other", "System", "Int32")))
	assert.False(t, FieldMatch("x", i32, "y", i32))
	assert.False(t, FieldMatch("x", i32, "x", named("corlib", "System", "Int64")))
}

func TestDefMatch(t *testing.T) {
	m := NewModule("app")
	outer := m.AddType(&TypeDef{Namespace: "App", Name: "Outer"})
	inner := outer.AddNestedType(&TypeDef{Name: "Inner", GenericParameters: []*GenericParam{{Name: "T"}}})

	innerRef := &NamedType{Name: "Inner", GenericArity: 1, DeclaringType: named("elsewhere", "App", "Outer")}
	assert.True(t, DefMatch(inner, innerRef))
	assert.True(t, DefMatch(inner, &GenericInstance{Element: innerRef, Arguments: []TypeRef{named("c", "System", "Int32")}}))
	assert.False(t, DefMatch(inner, named("app", "", "Inner")))
	assert.True(t, DefMatch(outer, named("x", "App", "Outer")))
	assert.False(t, DefMatch(outer, &GenericParameter{}))
}
