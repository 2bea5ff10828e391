package metadata

import "fmt"

// OperandType describes the encoding of an instruction operand.
type OperandType int

const (
	InlineNone OperandType = iota
	InlineI
	ShortInlineI
	InlineI8
	InlineR
	ShortInlineR
	InlineString
	InlineBrTarget
	ShortInlineBrTarget
	InlineSwitch
	InlineVar
	ShortInlineVar
	InlineArg
	ShortInlineArg
	InlineSig
	InlineType
	InlineMethod
	InlineField
	InlineTok
)

// OperandClass is the symbol-bearing category of an instruction.
type OperandClass int

const (
	// OperandOther carries no symbol reference.
	OperandOther OperandClass = iota
	// OperandTypeRef carries a TypeRef.
	OperandTypeRef
	// OperandMethodRef carries a *MethodRef.
	OperandMethodRef
	// OperandFieldRef carries a *FieldRef.
	OperandFieldRef
	// OperandToken carries any of the three.
	OperandToken
)

// OpCode is an instruction opcode.
type OpCode struct {
	name    string
	operand OperandType
}

func (o OpCode) Name() string             { return o.name }
func (o OpCode) OperandType() OperandType { return o.operand }
func (o OpCode) String() string           { return o.name }

// Class classifies the opcode by the kind of symbol its operand holds.
func (o OpCode) Class() OperandClass {
	switch o.operand {
	case InlineType:
		return OperandTypeRef
	case InlineMethod:
		return OperandMethodRef
	case InlineField:
		return OperandFieldRef
	case InlineTok:
		return OperandToken
	default:
		return OperandOther
	}
}

// Instruction is a single instruction of a method body. Operand holds a
// TypeRef, *MethodRef or *FieldRef for symbol-bearing opcodes and a plain
// value (number, string, branch label) otherwise.
type Instruction struct {
	OpCode  OpCode
	Operand any
}

func (i *Instruction) String() string {
	switch v := i.Operand.(type) {
	case nil:
		return i.OpCode.name
	case TypeRef:
		return i.OpCode.name + " " + v.FullName()
	case *MethodRef:
		return i.OpCode.name + " " + v.FullName()
	case *FieldRef:
		return i.OpCode.name + " " + v.FullName()
	default:
		return fmt.Sprintf("%s %v", i.OpCode.name, v)
	}
}

var (
	Nop         = op("nop", InlineNone)
	Break       = op("break", InlineNone)
	Ldarg0      = op("ldarg.0", InlineNone)
	Ldarg1      = op("ldarg.1", InlineNone)
	Ldarg2      = op("ldarg.2", InlineNone)
	Ldarg3      = op("ldarg.3", InlineNone)
	Ldloc0      = op("ldloc.0", InlineNone)
	Ldloc1      = op("ldloc.1", InlineNone)
	Ldloc2      = op("ldloc.2", InlineNone)
	Ldloc3      = op("ldloc.3", InlineNone)
	Stloc0      = op("stloc.0", InlineNone)
	Stloc1      = op("stloc.1", InlineNone)
	Stloc2      = op("stloc.2", InlineNone)
	Stloc3      = op("stloc.3", InlineNone)
	LdargS      = op("ldarg.s", ShortInlineArg)
	LdargaS     = op("ldarga.s", ShortInlineArg)
	StargS      = op("starg.s", ShortInlineArg)
	LdlocS      = op("ldloc.s", ShortInlineVar)
	LdlocaS     = op("ldloca.s", ShortInlineVar)
	StlocS      = op("stloc.s", ShortInlineVar)
	Ldnull      = op("ldnull", InlineNone)
	LdcI4M1     = op("ldc.i4.m1", InlineNone)
	LdcI40      = op("ldc.i4.0", InlineNone)
	LdcI41      = op("ldc.i4.1", InlineNone)
	LdcI4S      = op("ldc.i4.s", ShortInlineI)
	LdcI4       = op("ldc.i4", InlineI)
	LdcI8       = op("ldc.i8", InlineI8)
	LdcR4       = op("ldc.r4", ShortInlineR)
	LdcR8       = op("ldc.r8", InlineR)
	Dup         = op("dup", InlineNone)
	Pop         = op("pop", InlineNone)
	Jmp         = op("jmp", InlineMethod)
	Call        = op("call", InlineMethod)
	Calli       = op("calli", InlineSig)
	Ret         = op("ret", InlineNone)
	BrS         = op("br.s", ShortInlineBrTarget)
	BrfalseS    = op("brfalse.s", ShortInlineBrTarget)
	BrtrueS     = op("brtrue.s", ShortInlineBrTarget)
	Br          = op("br", InlineBrTarget)
	Brfalse     = op("brfalse", InlineBrTarget)
	Brtrue      = op("brtrue", InlineBrTarget)
	Beq         = op("beq", InlineBrTarget)
	Bne         = op("bne.un", InlineBrTarget)
	Switch      = op("switch", InlineSwitch)
	Add         = op("add", InlineNone)
	Sub         = op("sub", InlineNone)
	Mul         = op("mul", InlineNone)
	Div         = op("div", InlineNone)
	Rem         = op("rem", InlineNone)
	And         = op("and", InlineNone)
	Or          = op("or", InlineNone)
	Xor         = op("xor", InlineNone)
	Neg         = op("neg", InlineNone)
	Not         = op("not", InlineNone)
	ConvI4      = op("conv.i4", InlineNone)
	ConvI8      = op("conv.i8", InlineNone)
	Ceq         = op("ceq", InlineNone)
	Cgt         = op("cgt", InlineNone)
	Clt         = op("clt", InlineNone)
	Callvirt    = op("callvirt", InlineMethod)
	Cpobj       = op("cpobj", InlineType)
	Ldobj       = op("ldobj", InlineType)
	Ldstr       = op("ldstr", InlineString)
	Newobj      = op("newobj", InlineMethod)
	Castclass   = op("castclass", InlineType)
	Isinst      = op("isinst", InlineType)
	Unbox       = op("unbox", InlineType)
	Throw       = op("throw", InlineNone)
	Ldfld       = op("ldfld", InlineField)
	Ldflda      = op("ldflda", InlineField)
	Stfld       = op("stfld", InlineField)
	Ldsfld      = op("ldsfld", InlineField)
	Ldsflda     = op("ldsflda", InlineField)
	Stsfld      = op("stsfld", InlineField)
	Stobj       = op("stobj", InlineType)
	Box         = op("box", InlineType)
	Newarr      = op("newarr", InlineType)
	Ldlen       = op("ldlen", InlineNone)
	Ldelema     = op("ldelema", InlineType)
	LdelemRef   = op("ldelem.ref", InlineNone)
	StelemRef   = op("stelem.ref", InlineNone)
	LdelemAny   = op("ldelem.any", InlineType)
	StelemAny   = op("stelem.any", InlineType)
	UnboxAny    = op("unbox.any", InlineType)
	Refanyval   = op("refanyval", InlineType)
	Mkrefany    = op("mkrefany", InlineType)
	Ldtoken     = op("ldtoken", InlineTok)
	Leave       = op("leave", InlineBrTarget)
	LeaveS      = op("leave.s", ShortInlineBrTarget)
	Endfinally  = op("endfinally", InlineNone)
	Ldftn       = op("ldftn", InlineMethod)
	Ldvirtftn   = op("ldvirtftn", InlineMethod)
	Ldarg       = op("ldarg", InlineArg)
	Ldarga      = op("ldarga", InlineArg)
	Starg       = op("starg", InlineArg)
	Ldloc       = op("ldloc", InlineVar)
	Ldloca      = op("ldloca", InlineVar)
	Stloc       = op("stloc", InlineVar)
	Initobj     = op("initobj", InlineType)
	Constrained = op("constrained.", InlineType)
	Sizeof      = op("sizeof", InlineType)
	Rethrow     = op("rethrow", InlineNone)
)

var opcodes = map[string]OpCode{}

func op(name string, operand OperandType) OpCode {
	o := OpCode{name: name, operand: operand}
	opcodes[name] = o
	return o
}

// OpCodeByName looks up an opcode by its mnemonic.
func OpCodeByName(name string) (OpCode, bool) {
	o, ok := opcodes[name]
	return o, ok
}
