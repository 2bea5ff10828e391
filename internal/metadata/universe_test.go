package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dirLocator struct {
	dir   string
	calls int
}

func (l *dirLocator) Locate(name string) (string, error) {
	l.calls++
	path := filepath.Join(l.dir, name+".yaml")
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

func testCorlib() *Module {
	m := NewModule("corlib")
	m.AddType(&TypeDef{Namespace: "System", Name: "Object"})
	m.AddType(&TypeDef{Namespace: "System", Name: "Int32", IsValueType: true, IsSealed: true})
	m.AddType(&TypeDef{Namespace: "System", Name: "String", IsSealed: true})
	list := m.AddType(&TypeDef{Namespace: "System.Collections", Name: "List", GenericParameters: []*GenericParam{{Name: "T"}}})
	list.AddMethod(&MethodDef{Name: "Add", Parameters: []*Parameter{{Name: "item", Type: &GenericParameter{Position: 0, Name: "T"}}}})
	list.AddField(&FieldDef{Name: "count", FieldType: &NamedType{Scope: "corlib", Namespace: "System", Name: "Int32", IsValueType: true}})
	enum := list.AddNestedType(&TypeDef{Name: "Enumerator", IsValueType: true})
	enum.AddMethod(&MethodDef{Name: "MoveNext"})
	return m
}

func TestUniverseResolveType(t *testing.T) {
	u := NewUniverse(nil)
	u.Add(testCorlib())

	def, err := u.ResolveType(named("corlib", "System", "String"))
	require.NoError(t, err)
	assert.Equal(t, "System.String", def.FullName())

	list := &NamedType{Scope: "corlib", Namespace: "System.Collections", Name: "List", GenericArity: 1}
	inst := &GenericInstance{Element: list, Arguments: []TypeRef{named("corlib", "System", "Int32")}}
	def, err = u.ResolveType(&ArrayType{Element: inst})
	require.NoError(t, err)
	assert.Equal(t, "System.Collections.List`1", def.FullName())

	nested := &NamedType{Scope: "corlib", Name: "Enumerator", DeclaringType: inst, IsValueType: true}
	def, err = u.ResolveType(nested)
	require.NoError(t, err)
	assert.Equal(t, "System.Collections.List`1/Enumerator", def.FullName())
	assert.Equal(t, "System.Collections", def.OuterNamespace())

	_, err = u.ResolveType(named("corlib", "System", "Missing"))
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = u.ResolveType(named("nowhere", "System", "String"))
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = u.ResolveType(&GenericParameter{Position: 0})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUniverseResolveMembers(t *testing.T) {
	u := NewUniverse(nil)
	u.Add(testCorlib())
	list := &NamedType{Scope: "corlib", Namespace: "System.Collections", Name: "List", GenericArity: 1}
	inst := &GenericInstance{Element: list, Arguments: []TypeRef{named("corlib", "System", "String")}}

	md, err := u.ResolveMethod(&MethodRef{DeclaringType: inst, Name: "Add", Parameters: []TypeRef{&GenericParameter{Position: 0}}, HasThis: true})
	require.NoError(t, err)
	assert.Equal(t, "Add", md.Name)

	_, err = u.ResolveMethod(&MethodRef{DeclaringType: inst, Name: "Add"})
	assert.True(t, errors.Is(err, ErrNotFound))

	fd, err := u.ResolveField(&FieldRef{DeclaringType: inst, Name: "count", FieldType: named("corlib", "System", "Int32")})
	require.NoError(t, err)
	assert.Equal(t, "count", fd.Name)
	assert.Equal(t, "corlib", fd.Module().Name)

	_, err = u.ResolveField(&FieldRef{DeclaringType: inst, Name: "size", FieldType: named("corlib", "System", "Int32")})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUniverseLoadsThroughLocator(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveFile(filepath.Join(dir, "corlib.yaml"), testCorlib()))

	loc := &dirLocator{dir: dir}
	u := NewUniverse(loc)

	def, err := u.ResolveType(named("corlib", "System", "Object"))
	require.NoError(t, err)
	assert.Equal(t, "System.Object", def.FullName())
	assert.Equal(t, 1, u.Modules())

	_, err = u.Module("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = u.Module("missing")
	assert.Error(t, err)
	assert.Equal(t, 2, loc.calls, "failed lookups are remembered")
}

func TestUniverseRejectsMisnamedImage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveFile(filepath.Join(dir, "other.yaml"), testCorlib()))

	u := NewUniverse(&dirLocator{dir: dir})
	_, err := u.Module("other")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declares module corlib")
}
