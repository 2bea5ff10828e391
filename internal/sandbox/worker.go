// Package sandbox rewrites a module so that references to proxied types and
// their members point at the proxies, and reports references to foreign
// symbols that the access lists deny.
//
// Example usage:
//
//	w := sandbox.NewWorker(universe, sink)
//	w.AddProxyModule(proxies)
//	w.AddAccessList(list)
//	stats := w.Process(module)
package sandbox

import (
	"martianoff/sandbox/internal/metadata"
	"martianoff/sandbox/internal/policy"
	"martianoff/sandbox/sandboxerr"
)

// Stats counts what a pass visited and rewrote.
type Stats struct {
	Types         int `yaml:"types"`
	Methods       int `yaml:"methods"`
	Instructions  int `yaml:"instructions"`
	Substitutions int `yaml:"substitutions"`
}

// Worker drives a rewrite over every symbol-bearing slot of a module.
type Worker struct {
	universe *metadata.Universe
	access   *policy.Collection
	context  *contextSink
	typeMap  *TypeMap
	stats    Stats
}

// NewWorker creates a Worker. Diagnostics go to sink, annotated with the
// definition being visited.
func NewWorker(universe *metadata.Universe, sink sandboxerr.Sink) *Worker {
	if sink == nil {
		sink = sandboxerr.Discard
	}
	ctx := &contextSink{next: sink}
	access := &policy.Collection{}
	return &Worker{
		universe: universe,
		access:   access,
		context:  ctx,
		typeMap:  NewTypeMap(universe, access, ctx),
	}
}

// TypeMap returns the resolver shared by the worker.
func (w *Worker) TypeMap() *TypeMap { return w.typeMap }

// AddProxyModule adds m to the universe and registers its proxy types.
func (w *Worker) AddProxyModule(m *metadata.Module) {
	w.universe.Add(m)
	w.typeMap.AddProxyModule(m)
}

// AddAccessList adds an access list consulted for foreign symbols.
func (w *Worker) AddAccessList(l *policy.AccessList) {
	w.access.Add(l)
}

// Process rewrites m in place. Every type, nested ones included, is visited
// once in declaration order; diagnostics never stop the pass.
func (w *Worker) Process(m *metadata.Module) Stats {
	w.universe.Add(m)
	w.typeMap.SetModule(m)
	w.stats = Stats{}

	for _, t := range m.AllTypes() {
		w.walkType(t)
	}
	return w.stats
}

func (w *Worker) walkType(t *metadata.TypeDef) {
	w.context.push(t)
	defer w.context.pop()
	w.stats.Types++

	// base type
	if t.BaseType != nil {
		t.BaseType = w.typ(t.BaseType)
	}

	// interfaces
	for i, iface := range t.Interfaces {
		t.Interfaces[i] = w.typ(iface)
	}

	w.constraints(t.GenericParameters)

	for _, f := range t.Fields {
		f.FieldType = w.typ(f.FieldType)
	}

	for _, md := range t.Methods {
		w.walkMethod(md)
	}
}

func (w *Worker) walkMethod(md *metadata.MethodDef) {
	w.context.push(md)
	defer w.context.pop()
	w.stats.Methods++

	md.ReturnType = w.typ(md.ReturnType)
	for _, p := range md.Parameters {
		p.Type = w.typ(p.Type)
	}
	w.constraints(md.GenericParameters)

	if md.Body == nil {
		return
	}

	// locals
	for _, v := range md.Body.Variables {
		v.Type = w.typ(v.Type)
	}

	// instructions
	for _, instr := range md.Body.Instructions {
		w.stats.Instructions++
		switch instr.OpCode.Class() {
		case metadata.OperandTypeRef, metadata.OperandMethodRef, metadata.OperandFieldRef, metadata.OperandToken:
			instr.Operand = w.operand(instr.Operand)
		}
	}
}

func (w *Worker) constraints(params []*metadata.GenericParam) {
	for _, gp := range params {
		for i, c := range gp.Constraints {
			gp.Constraints[i] = w.typ(c)
		}
	}
}

func (w *Worker) operand(op any) any {
	switch v := op.(type) {
	case metadata.TypeRef:
		return w.typ(v)
	case *metadata.MethodRef:
		r := w.typeMap.Method(v)
		if r != v {
			w.stats.Substitutions++
		}
		return r
	case *metadata.FieldRef:
		r := w.typeMap.Field(v)
		if r != v {
			w.stats.Substitutions++
		}
		return r
	}
	return op
}

func (w *Worker) typ(t metadata.TypeRef) metadata.TypeRef {
	r := w.typeMap.Type(t)
	if r != t {
		w.stats.Substitutions++
	}
	return r
}
