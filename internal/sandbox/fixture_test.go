package sandbox

import (
	"martianoff/sandbox/internal/metadata"
)

func ref(scope, ns, name string) *metadata.NamedType {
	return &metadata.NamedType{Scope: scope, Namespace: ns, Name: name}
}

func generic(scope, ns, name string, arity int) *metadata.NamedType {
	return &metadata.NamedType{Scope: scope, Namespace: ns, Name: name, GenericArity: arity}
}

func int32Ref() *metadata.NamedType {
	return &metadata.NamedType{Scope: "corlib", Namespace: "System", Name: "Int32", IsValueType: true}
}

func stringRef() *metadata.NamedType {
	return ref("corlib", "System", "String")
}

func objectRef() *metadata.NamedType {
	return ref("corlib", "System", "Object")
}

func typeParam(pos int) *metadata.GenericParameter {
	return &metadata.GenericParameter{Position: pos}
}

func methodParam(pos int) *metadata.GenericParameter {
	return &metadata.GenericParameter{Owner: metadata.OwnerMethod, Position: pos}
}

func proxyFor(target metadata.TypeRef) []*metadata.CustomAttribute {
	return []*metadata.CustomAttribute{{
		Type:      ref("sandbox", "Sandbox", "FodyProxyAttribute"),
		Arguments: []metadata.Argument{{Type: target}},
	}}
}

func corlib() *metadata.Module {
	m := metadata.NewModule("corlib")
	m.AddType(&metadata.TypeDef{Namespace: "System", Name: "Object"})
	m.AddType(&metadata.TypeDef{Namespace: "System", Name: "Int32", IsValueType: true, IsSealed: true})
	m.AddType(&metadata.TypeDef{Namespace: "System", Name: "String", IsSealed: true})
	return m
}

func body(instrs ...*metadata.Instruction) *metadata.MethodBody {
	return &metadata.MethodBody{Instructions: instrs}
}

func instr(op metadata.OpCode, operand any) *metadata.Instruction {
	return &metadata.Instruction{OpCode: op, Operand: operand}
}

// simpleWorld builds the classic scenario: app declares App.T with
// M(int) -> string, App.Program uses it, and proxies declares Proxies.P
// replacing App.T.
type simpleWorld struct {
	universe *metadata.Universe
	app      *metadata.Module
	proxies  *metadata.Module
	t        *metadata.TypeDef
	program  *metadata.TypeDef
	p        *metadata.TypeDef

	tRef    *metadata.NamedType
	mRef    *metadata.MethodRef
	holder  *metadata.FieldDef
	main    *metadata.MethodDef
	factory *metadata.MethodDef
}

func newSimpleWorld(sealedProxy bool) *simpleWorld {
	w := &simpleWorld{universe: metadata.NewUniverse(nil)}
	w.universe.Add(corlib())

	w.app = metadata.NewModule("app")
	w.app.References = []string{"corlib"}
	w.t = w.app.AddType(&metadata.TypeDef{Namespace: "App", Name: "T", BaseType: objectRef()})
	w.t.AddMethod(&metadata.MethodDef{
		Name:       "M",
		ReturnType: stringRef(),
		Parameters: []*metadata.Parameter{{Name: "x", Type: int32Ref()}},
		Body:       body(instr(metadata.Ldstr, "t"), instr(metadata.Ret, nil)),
	})

	w.tRef = ref("app", "App", "T")
	w.mRef = &metadata.MethodRef{
		DeclaringType: w.tRef,
		Name:          "M",
		ReturnType:    stringRef(),
		Parameters:    []metadata.TypeRef{int32Ref()},
		HasThis:       true,
	}

	w.program = w.app.AddType(&metadata.TypeDef{Namespace: "App", Name: "Program", BaseType: objectRef()})
	w.holder = w.program.AddField(&metadata.FieldDef{Name: "holder", FieldType: w.tRef})
	w.factory = w.program.AddMethod(&metadata.MethodDef{Name: "Make", ReturnType: w.tRef, IsStatic: true})
	w.main = w.program.AddMethod(&metadata.MethodDef{
		Name:     "Main",
		IsStatic: true,
		Body: &metadata.MethodBody{
			Variables: []*metadata.Variable{{Name: "t", Type: w.tRef}},
			Instructions: []*metadata.Instruction{
				instr(metadata.Ldnull, nil),
				instr(metadata.Castclass, w.tRef),
				instr(metadata.LdcI4, int64(1)),
				instr(metadata.Callvirt, w.mRef),
				instr(metadata.Pop, nil),
				instr(metadata.Ldtoken, w.tRef),
				instr(metadata.Pop, nil),
				instr(metadata.Ret, nil),
			},
		},
	})
	w.universe.Add(w.app)

	w.proxies = metadata.NewModule("proxies")
	w.p = w.proxies.AddType(&metadata.TypeDef{
		Namespace:        "Proxies",
		Name:             "P",
		IsSealed:         sealedProxy,
		BaseType:         objectRef(),
		CustomAttributes: proxyFor(ref("app", "App", "T")),
	})
	w.p.AddMethod(&metadata.MethodDef{
		Name:       "M",
		ReturnType: stringRef(),
		Parameters: []*metadata.Parameter{{Name: "x", Type: int32Ref()}},
	})
	return w
}

func opcodes(md *metadata.MethodDef) []string {
	var out []string
	for _, i := range md.Body.Instructions {
		out = append(out, i.OpCode.Name())
	}
	return out
}
