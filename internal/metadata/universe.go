package metadata

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by every resolution failure caused by a missing
// module, type or member.
var ErrNotFound = errors.New("not found")

// Locator finds the image file of a module by name.
type Locator interface {
	Locate(name string) (string, error)
}

// Universe is the set of modules visible to a weaving run. Modules are added
// explicitly or loaded on first use through the Locator.
type Universe struct {
	locator Locator
	modules map[string]*Module
	failed  map[string]error
}

// NewUniverse creates a universe. locator may be nil, in which case only
// explicitly added modules are visible.
func NewUniverse(locator Locator) *Universe {
	return &Universe{
		locator: locator,
		modules: make(map[string]*Module),
		failed:  make(map[string]error),
	}
}

// Add registers a module, replacing any module with the same name.
func (u *Universe) Add(m *Module) {
	u.modules[m.Name] = m
	delete(u.failed, m.Name)
}

// Load reads a module image from path and adds it.
func (u *Universe) Load(path string) (*Module, error) {
	m, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	u.Add(m)
	return m, nil
}

// Modules returns the number of loaded modules.
func (u *Universe) Modules() int {
	return len(u.modules)
}

// Module returns the named module, loading it through the locator if needed.
// Failures are remembered so a missing module is only searched for once.
func (u *Universe) Module(name string) (*Module, error) {
	if m, ok := u.modules[name]; ok {
		return m, nil
	}
	if err, ok := u.failed[name]; ok {
		return nil, err
	}
	m, err := u.load(name)
	if err != nil {
		u.failed[name] = err
		return nil, err
	}
	u.modules[name] = m
	return m, nil
}

func (u *Universe) load(name string) (*Module, error) {
	if u.locator == nil {
		return nil, fmt.Errorf("module %s: %w", name, ErrNotFound)
	}
	path, err := u.locator.Locate(name)
	if err != nil {
		return nil, fmt.Errorf("module %s: %w: %v", name, ErrNotFound, err)
	}
	m, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if m.Name != name {
		return nil, fmt.Errorf("module %s: image %s declares module %s", name, path, m.Name)
	}
	return m, nil
}

// ResolveType returns the definition a type reference denotes. Instantiations
// and type specifications resolve to their element type's definition.
func (u *Universe) ResolveType(t TypeRef) (*TypeDef, error) {
	n, ok := ElementType(t).(*NamedType)
	if !ok {
		return nil, fmt.Errorf("type %s: %w", nameOf(t), ErrNotFound)
	}
	if n.DeclaringType != nil {
		outer, err := u.ResolveType(n.DeclaringType)
		if err != nil {
			return nil, err
		}
		if def := outer.FindNestedType(n.Name, n.GenericArity); def != nil {
			return def, nil
		}
		return nil, fmt.Errorf("type %s: %w", n.FullName(), ErrNotFound)
	}
	m, err := u.Module(n.Scope)
	if err != nil {
		return nil, err
	}
	if def := m.FindType(n.Namespace, n.Name, n.GenericArity); def != nil {
		return def, nil
	}
	return nil, fmt.Errorf("type %s in module %s: %w", n.FullName(), n.Scope, ErrNotFound)
}

// ResolveMethod returns the method definition a reference denotes.
func (u *Universe) ResolveMethod(ref *MethodRef) (*MethodDef, error) {
	owner, err := u.ResolveType(ref.DeclaringType)
	if err != nil {
		return nil, err
	}
	sig := ref.Signature()
	for _, md := range owner.Methods {
		if MethodMatch(md.Signature(), sig) {
			return md, nil
		}
	}
	return nil, fmt.Errorf("method %s: %w", ref.FullName(), ErrNotFound)
}

// ResolveField returns the field definition a reference denotes.
func (u *Universe) ResolveField(ref *FieldRef) (*FieldDef, error) {
	owner, err := u.ResolveType(ref.DeclaringType)
	if err != nil {
		return nil, err
	}
	for _, fd := range owner.Fields {
		if FieldMatch(fd.Name, fd.FieldType, ref.Name, ref.FieldType) {
			return fd, nil
		}
	}
	return nil, fmt.Errorf("field %s: %w", ref.FullName(), ErrNotFound)
}
