package metadata

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a module image.
type Format int

const (
	FormatYAML Format = iota
	FormatMsgpack
)

func (f Format) String() string {
	if f == FormatMsgpack {
		return "msgpack"
	}
	return "yaml"
}

// Extensions lists the recognised module image extensions in lookup order.
var Extensions = []string{".yaml", ".yml", ".smod", ".msgpack"}

// FormatOf picks the image format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".smod", ".msgpack":
		return FormatMsgpack, nil
	}
	return 0, fmt.Errorf("unknown module image extension: %s", path)
}

// LoadFile reads a module image, choosing the format by extension.
func LoadFile(path string) (*Module, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read module image: %w", err)
	}
	m, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// SaveFile writes m as a module image, choosing the format by extension.
func SaveFile(path string, m *Module) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, m, format); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write module image: %w", err)
	}
	return nil
}

// Decode reads a module image. Structurally identical references within the
// image decode to one shared reference.
func Decode(r io.Reader, format Format) (*Module, error) {
	var img moduleImage
	switch format {
	case FormatMsgpack:
		dec := msgpack.NewDecoder(r)
		dec.SetCustomStructTag("yaml")
		if err := dec.Decode(&img); err != nil {
			return nil, fmt.Errorf("failed to decode module image: %w", err)
		}
	default:
		if err := yaml.NewDecoder(r).Decode(&img); err != nil {
			return nil, fmt.Errorf("failed to decode module image: %w", err)
		}
	}
	d := &decoder{
		types:   make(map[string]TypeRef),
		methods: make(map[string]*MethodRef),
		fields:  make(map[string]*FieldRef),
	}
	return d.module(&img)
}

// Encode writes m as a module image.
func Encode(w io.Writer, m *Module, format Format) error {
	img := encodeModule(m)
	switch format {
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("yaml")
		if err := enc.Encode(img); err != nil {
			return fmt.Errorf("failed to encode module image: %w", err)
		}
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(img); err != nil {
			return fmt.Errorf("failed to encode module image: %w", err)
		}
		return enc.Close()
	}
	return nil
}

type moduleImage struct {
	Name       string       `yaml:"name"`
	References []string     `yaml:"references,omitempty"`
	Types      []*typeImage `yaml:"types,omitempty"`
}

type typeImage struct {
	Namespace     string               `yaml:"namespace,omitempty"`
	Name          string               `yaml:"name"`
	ValueType     bool                 `yaml:"value_type,omitempty"`
	Interface     bool                 `yaml:"interface,omitempty"`
	Abstract      bool                 `yaml:"abstract,omitempty"`
	Sealed        bool                 `yaml:"sealed,omitempty"`
	GenericParams []*genericParamImage `yaml:"generic_params,omitempty"`
	Base          *typeRefImage        `yaml:"base,omitempty"`
	Interfaces    []*typeRefImage      `yaml:"interfaces,omitempty"`
	Attributes    []*attributeImage    `yaml:"attributes,omitempty"`
	Fields        []*fieldImage        `yaml:"fields,omitempty"`
	Methods       []*methodImage       `yaml:"methods,omitempty"`
	Nested        []*typeImage         `yaml:"nested,omitempty"`
}

type genericParamImage struct {
	Name        string          `yaml:"name"`
	Constraints []*typeRefImage `yaml:"constraints,omitempty"`
}

type attributeImage struct {
	Type *typeRefImage     `yaml:"type"`
	Args []*attributeValue `yaml:"args,omitempty"`
}

type attributeValue struct {
	Type  *typeRefImage `yaml:"type,omitempty"`
	Value string        `yaml:"value,omitempty"`
}

type fieldImage struct {
	Name   string        `yaml:"name"`
	Type   *typeRefImage `yaml:"type"`
	Static bool          `yaml:"static,omitempty"`
}

type methodImage struct {
	Name          string               `yaml:"name"`
	Static        bool                 `yaml:"static,omitempty"`
	Return        *typeRefImage        `yaml:"return,omitempty"`
	Params        []*paramImage        `yaml:"params,omitempty"`
	GenericParams []*genericParamImage `yaml:"generic_params,omitempty"`
	Body          *bodyImage           `yaml:"body,omitempty"`
}

type paramImage struct {
	Name string        `yaml:"name,omitempty"`
	Type *typeRefImage `yaml:"type"`
}

type bodyImage struct {
	Locals       []*paramImage       `yaml:"locals,omitempty"`
	Instructions []*instructionImage `yaml:"instructions,omitempty"`
}

type instructionImage struct {
	Op     string          `yaml:"op"`
	Type   *typeRefImage   `yaml:"type,omitempty"`
	Method *methodRefImage `yaml:"method,omitempty"`
	Field  *fieldRefImage  `yaml:"field,omitempty"`
	Value  any             `yaml:"value,omitempty"`
}

// Reference kinds. The zero kind is a named type.
const (
	kindNamed    = ""
	kindInstance = "instance"
	kindParam    = "param"
	kindArray    = "array"
	kindPointer  = "pointer"
	kindByRef    = "byref"
	kindModifier = "modifier"
)

type typeRefImage struct {
	Kind      string          `yaml:"kind,omitempty"`
	Scope     string          `yaml:"scope,omitempty"`
	Namespace string          `yaml:"namespace,omitempty"`
	Name      string          `yaml:"name,omitempty"`
	Arity     int             `yaml:"arity,omitempty"`
	ValueType bool            `yaml:"value_type,omitempty"`
	Declaring *typeRefImage   `yaml:"declaring,omitempty"`
	Element   *typeRefImage   `yaml:"element,omitempty"`
	Args      []*typeRefImage `yaml:"args,omitempty"`
	Position  int             `yaml:"position,omitempty"`
	Method    bool            `yaml:"method,omitempty"`
	Rank      int             `yaml:"rank,omitempty"`
	Modifier  *typeRefImage   `yaml:"modifier,omitempty"`
	Required  bool            `yaml:"required,omitempty"`
}

type methodRefImage struct {
	Declaring   *typeRefImage   `yaml:"declaring"`
	Name        string          `yaml:"name"`
	Return      *typeRefImage   `yaml:"return,omitempty"`
	Params      []*typeRefImage `yaml:"params,omitempty"`
	Arity       int             `yaml:"arity,omitempty"`
	HasThis     bool            `yaml:"has_this,omitempty"`
	GenericArgs []*typeRefImage `yaml:"generic_args,omitempty"`
}

type fieldRefImage struct {
	Declaring *typeRefImage `yaml:"declaring"`
	Name      string        `yaml:"name"`
	Type      *typeRefImage `yaml:"type"`
}

type decoder struct {
	types   map[string]TypeRef
	methods map[string]*MethodRef
	fields  map[string]*FieldRef
}

func (d *decoder) module(img *moduleImage) (*Module, error) {
	if img.Name == "" {
		return nil, fmt.Errorf("module image has no name")
	}
	m := NewModule(img.Name)
	m.References = append(m.References, img.References...)
	for _, ti := range img.Types {
		t, err := d.typeDef(ti)
		if err != nil {
			return nil, err
		}
		m.AddType(t)
	}
	return m, nil
}

func (d *decoder) typeDef(img *typeImage) (*TypeDef, error) {
	t := &TypeDef{
		Namespace:   img.Namespace,
		Name:        img.Name,
		IsValueType: img.ValueType,
		IsInterface: img.Interface,
		IsAbstract:  img.Abstract,
		IsSealed:    img.Sealed,
	}
	var err error
	if t.GenericParameters, err = d.genericParams(img.GenericParams); err != nil {
		return nil, err
	}
	if t.BaseType, err = d.typeRef(img.Base); err != nil {
		return nil, err
	}
	if t.Interfaces, err = d.typeRefs(img.Interfaces); err != nil {
		return nil, err
	}
	for _, ai := range img.Attributes {
		a := &CustomAttribute{}
		if a.Type, err = d.typeRef(ai.Type); err != nil {
			return nil, err
		}
		for _, v := range ai.Args {
			arg := Argument{Value: v.Value}
			if arg.Type, err = d.typeRef(v.Type); err != nil {
				return nil, err
			}
			a.Arguments = append(a.Arguments, arg)
		}
		t.CustomAttributes = append(t.CustomAttributes, a)
	}
	for _, fi := range img.Fields {
		ft, err := d.typeRef(fi.Type)
		if err != nil {
			return nil, err
		}
		t.AddField(&FieldDef{Name: fi.Name, FieldType: ft, IsStatic: fi.Static})
	}
	for _, mi := range img.Methods {
		md, err := d.methodDef(mi)
		if err != nil {
			return nil, fmt.Errorf("%s::%s: %w", img.Name, mi.Name, err)
		}
		t.AddMethod(md)
	}
	for _, ni := range img.Nested {
		n, err := d.typeDef(ni)
		if err != nil {
			return nil, err
		}
		t.AddNestedType(n)
	}
	return t, nil
}

func (d *decoder) genericParams(imgs []*genericParamImage) ([]*GenericParam, error) {
	var out []*GenericParam
	for _, gi := range imgs {
		cs, err := d.typeRefs(gi.Constraints)
		if err != nil {
			return nil, err
		}
		out = append(out, &GenericParam{Name: gi.Name, Constraints: cs})
	}
	return out, nil
}

func (d *decoder) methodDef(img *methodImage) (*MethodDef, error) {
	md := &MethodDef{Name: img.Name, IsStatic: img.Static}
	var err error
	if md.ReturnType, err = d.typeRef(img.Return); err != nil {
		return nil, err
	}
	for _, pi := range img.Params {
		pt, err := d.typeRef(pi.Type)
		if err != nil {
			return nil, err
		}
		md.Parameters = append(md.Parameters, &Parameter{Name: pi.Name, Type: pt})
	}
	if md.GenericParameters, err = d.genericParams(img.GenericParams); err != nil {
		return nil, err
	}
	if img.Body == nil {
		return md, nil
	}
	md.Body = &MethodBody{}
	for _, li := range img.Body.Locals {
		lt, err := d.typeRef(li.Type)
		if err != nil {
			return nil, err
		}
		md.Body.Variables = append(md.Body.Variables, &Variable{Name: li.Name, Type: lt})
	}
	for i, ii := range img.Body.Instructions {
		instr, err := d.instruction(ii)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		md.Body.Instructions = append(md.Body.Instructions, instr)
	}
	return md, nil
}

func (d *decoder) instruction(img *instructionImage) (*Instruction, error) {
	op, ok := OpCodeByName(img.Op)
	if !ok {
		return nil, fmt.Errorf("unknown opcode %q", img.Op)
	}
	symbols := 0
	for _, set := range []bool{img.Type != nil, img.Method != nil, img.Field != nil} {
		if set {
			symbols++
		}
	}
	instr := &Instruction{OpCode: op}
	var err error
	switch op.Class() {
	case OperandTypeRef:
		if img.Type == nil || symbols != 1 {
			return nil, fmt.Errorf("%s requires a type operand", op)
		}
		instr.Operand, err = d.typeRef(img.Type)
	case OperandMethodRef:
		if img.Method == nil || symbols != 1 {
			return nil, fmt.Errorf("%s requires a method operand", op)
		}
		instr.Operand, err = d.methodRef(img.Method)
	case OperandFieldRef:
		if img.Field == nil || symbols != 1 {
			return nil, fmt.Errorf("%s requires a field operand", op)
		}
		instr.Operand, err = d.fieldRef(img.Field)
	case OperandToken:
		switch {
		case symbols != 1:
			return nil, fmt.Errorf("%s requires exactly one type, method or field operand", op)
		case img.Type != nil:
			instr.Operand, err = d.typeRef(img.Type)
		case img.Method != nil:
			instr.Operand, err = d.methodRef(img.Method)
		default:
			instr.Operand, err = d.fieldRef(img.Field)
		}
	default:
		if symbols != 0 {
			return nil, fmt.Errorf("%s takes no symbol operand", op)
		}
		instr.Operand, err = normalizeValue(op, img.Value)
	}
	if err != nil {
		return nil, err
	}
	return instr, nil
}

// normalizeValue converts a decoded plain operand to the Go type its operand
// encoding implies, since YAML and MessagePack decode numbers differently.
func normalizeValue(op OpCode, v any) (any, error) {
	switch op.OperandType() {
	case InlineNone:
		if v != nil {
			return nil, fmt.Errorf("%s takes no operand", op)
		}
		return nil, nil
	case InlineI, ShortInlineI, InlineI8, InlineBrTarget, ShortInlineBrTarget,
		InlineVar, ShortInlineVar, InlineArg, ShortInlineArg:
		n, ok := toInt64(v)
		if !ok {
			return nil, fmt.Errorf("%s requires an integer operand, got %v", op, v)
		}
		return n, nil
	case InlineR, ShortInlineR:
		f, ok := toFloat64(v)
		if !ok {
			return nil, fmt.Errorf("%s requires a float operand, got %v", op, v)
		}
		return f, nil
	case InlineString, InlineSig:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s requires a string operand, got %v", op, v)
		}
		return s, nil
	case InlineSwitch:
		var targets []int64
		switch list := v.(type) {
		case []any:
			for _, e := range list {
				n, ok := toInt64(e)
				if !ok {
					return nil, fmt.Errorf("%s requires integer targets, got %v", op, e)
				}
				targets = append(targets, n)
			}
		case []int64:
			targets = list
		default:
			return nil, fmt.Errorf("%s requires a target list, got %v", op, v)
		}
		return targets, nil
	}
	return v, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

func (d *decoder) typeRefs(imgs []*typeRefImage) ([]TypeRef, error) {
	if len(imgs) == 0 {
		return nil, nil
	}
	out := make([]TypeRef, len(imgs))
	for i, img := range imgs {
		t, err := d.typeRef(img)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func (d *decoder) typeRef(img *typeRefImage) (TypeRef, error) {
	if img == nil {
		return nil, nil
	}
	t, err := d.buildTypeRef(img)
	if err != nil {
		return nil, err
	}
	key := Key(t)
	if shared, ok := d.types[key]; ok {
		return shared, nil
	}
	d.types[key] = t
	return t, nil
}

func (d *decoder) buildTypeRef(img *typeRefImage) (TypeRef, error) {
	switch img.Kind {
	case kindNamed:
		if img.Name == "" {
			return nil, fmt.Errorf("type reference has no name")
		}
		decl, err := d.typeRef(img.Declaring)
		if err != nil {
			return nil, err
		}
		if decl == nil && img.Scope == "" {
			return nil, fmt.Errorf("type reference %s has no scope", img.Name)
		}
		return &NamedType{
			Scope:         img.Scope,
			Namespace:     img.Namespace,
			Name:          img.Name,
			DeclaringType: decl,
			GenericArity:  img.Arity,
			IsValueType:   img.ValueType,
		}, nil
	case kindInstance:
		el, err := d.typeRef(img.Element)
		if err != nil {
			return nil, err
		}
		named, ok := el.(*NamedType)
		if !ok {
			return nil, fmt.Errorf("generic instance element must be a named type")
		}
		args, err := d.typeRefs(img.Args)
		if err != nil {
			return nil, err
		}
		if len(args) != named.GenericArity {
			return nil, fmt.Errorf("%s expects %d type arguments, got %d", named.FullName(), named.GenericArity, len(args))
		}
		return &GenericInstance{Element: named, Arguments: args}, nil
	case kindParam:
		owner := OwnerType
		if img.Method {
			owner = OwnerMethod
		}
		return &GenericParameter{Owner: owner, Position: img.Position, Name: img.Name}, nil
	case kindArray, kindPointer, kindByRef, kindModifier:
		el, err := d.typeRef(img.Element)
		if err != nil {
			return nil, err
		}
		if el == nil {
			return nil, fmt.Errorf("%s reference has no element", img.Kind)
		}
		switch img.Kind {
		case kindArray:
			return &ArrayType{Element: el, Rank: img.Rank}, nil
		case kindPointer:
			return &PointerType{Element: el}, nil
		case kindByRef:
			return &ByRefType{Element: el}, nil
		}
		mod, err := d.typeRef(img.Modifier)
		if err != nil {
			return nil, err
		}
		return &ModifiedType{Element: el, Modifier: mod, Required: img.Required}, nil
	}
	return nil, fmt.Errorf("unknown type reference kind %q", img.Kind)
}

func (d *decoder) methodRef(img *methodRefImage) (*MethodRef, error) {
	decl, err := d.typeRef(img.Declaring)
	if err != nil {
		return nil, err
	}
	if decl == nil {
		return nil, fmt.Errorf("method reference %s has no declaring type", img.Name)
	}
	ref := &MethodRef{DeclaringType: decl, Name: img.Name, GenericArity: img.Arity, HasThis: img.HasThis}
	if ref.ReturnType, err = d.typeRef(img.Return); err != nil {
		return nil, err
	}
	if ref.Parameters, err = d.typeRefs(img.Params); err != nil {
		return nil, err
	}
	if ref.GenericArguments, err = d.typeRefs(img.GenericArgs); err != nil {
		return nil, err
	}
	if len(ref.GenericArguments) > 0 && len(ref.GenericArguments) != ref.GenericArity {
		return nil, fmt.Errorf("method %s expects %d type arguments, got %d", img.Name, ref.GenericArity, len(ref.GenericArguments))
	}
	key := methodKey(ref)
	if shared, ok := d.methods[key]; ok {
		return shared, nil
	}
	d.methods[key] = ref
	return ref, nil
}

func (d *decoder) fieldRef(img *fieldRefImage) (*FieldRef, error) {
	decl, err := d.typeRef(img.Declaring)
	if err != nil {
		return nil, err
	}
	if decl == nil {
		return nil, fmt.Errorf("field reference %s has no declaring type", img.Name)
	}
	ft, err := d.typeRef(img.Type)
	if err != nil {
		return nil, err
	}
	ref := &FieldRef{DeclaringType: decl, Name: img.Name, FieldType: ft}
	key := Key(decl) + "::" + img.Name + ":" + Key(ft)
	if shared, ok := d.fields[key]; ok {
		return shared, nil
	}
	d.fields[key] = ref
	return ref, nil
}

func methodKey(m *MethodRef) string {
	var sb strings.Builder
	writeKey(&sb, m.DeclaringType)
	sb.WriteString("::" + m.Name + "`" + strconv.Itoa(m.GenericArity))
	if m.HasThis {
		sb.WriteString(" this")
	}
	sb.WriteByte('(')
	for i, p := range m.Parameters {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeKey(&sb, p)
	}
	sb.WriteString(")")
	writeKey(&sb, m.ReturnType)
	if len(m.GenericArguments) > 0 {
		sb.WriteByte('<')
		for i, a := range m.GenericArguments {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeKey(&sb, a)
		}
		sb.WriteByte('>')
	}
	return sb.String()
}

func encodeModule(m *Module) *moduleImage {
	img := &moduleImage{Name: m.Name, References: m.References}
	for _, t := range m.Types {
		img.Types = append(img.Types, encodeType(t))
	}
	return img
}

func encodeType(t *TypeDef) *typeImage {
	img := &typeImage{
		Namespace:     t.Namespace,
		Name:          t.Name,
		ValueType:     t.IsValueType,
		Interface:     t.IsInterface,
		Abstract:      t.IsAbstract,
		Sealed:        t.IsSealed,
		GenericParams: encodeGenericParams(t.GenericParameters),
		Base:          encodeTypeRef(t.BaseType),
		Interfaces:    encodeTypeRefs(t.Interfaces),
	}
	for _, a := range t.CustomAttributes {
		ai := &attributeImage{Type: encodeTypeRef(a.Type)}
		for _, arg := range a.Arguments {
			ai.Args = append(ai.Args, &attributeValue{Type: encodeTypeRef(arg.Type), Value: arg.Value})
		}
		img.Attributes = append(img.Attributes, ai)
	}
	for _, f := range t.Fields {
		img.Fields = append(img.Fields, &fieldImage{Name: f.Name, Type: encodeTypeRef(f.FieldType), Static: f.IsStatic})
	}
	for _, md := range t.Methods {
		img.Methods = append(img.Methods, encodeMethod(md))
	}
	for _, n := range t.NestedTypes {
		img.Nested = append(img.Nested, encodeType(n))
	}
	return img
}

func encodeGenericParams(ps []*GenericParam) []*genericParamImage {
	var out []*genericParamImage
	for _, p := range ps {
		out = append(out, &genericParamImage{Name: p.Name, Constraints: encodeTypeRefs(p.Constraints)})
	}
	return out
}

func encodeMethod(md *MethodDef) *methodImage {
	img := &methodImage{
		Name:          md.Name,
		Static:        md.IsStatic,
		Return:        encodeTypeRef(md.ReturnType),
		GenericParams: encodeGenericParams(md.GenericParameters),
	}
	for _, p := range md.Parameters {
		img.Params = append(img.Params, &paramImage{Name: p.Name, Type: encodeTypeRef(p.Type)})
	}
	if md.Body == nil {
		return img
	}
	img.Body = &bodyImage{}
	for _, v := range md.Body.Variables {
		img.Body.Locals = append(img.Body.Locals, &paramImage{Name: v.Name, Type: encodeTypeRef(v.Type)})
	}
	for _, instr := range md.Body.Instructions {
		ii := &instructionImage{Op: instr.OpCode.Name()}
		switch v := instr.Operand.(type) {
		case TypeRef:
			ii.Type = encodeTypeRef(v)
		case *MethodRef:
			ii.Method = encodeMethodRef(v)
		case *FieldRef:
			ii.Field = &fieldRefImage{Declaring: encodeTypeRef(v.DeclaringType), Name: v.Name, Type: encodeTypeRef(v.FieldType)}
		default:
			ii.Value = v
		}
		img.Body.Instructions = append(img.Body.Instructions, ii)
	}
	return img
}

func encodeMethodRef(m *MethodRef) *methodRefImage {
	return &methodRefImage{
		Declaring:   encodeTypeRef(m.DeclaringType),
		Name:        m.Name,
		Return:      encodeTypeRef(m.ReturnType),
		Params:      encodeTypeRefs(m.Parameters),
		Arity:       m.GenericArity,
		HasThis:     m.HasThis,
		GenericArgs: encodeTypeRefs(m.GenericArguments),
	}
}

func encodeTypeRefs(ts []TypeRef) []*typeRefImage {
	var out []*typeRefImage
	for _, t := range ts {
		out = append(out, encodeTypeRef(t))
	}
	return out
}

func encodeTypeRef(t TypeRef) *typeRefImage {
	switch v := t.(type) {
	case *NamedType:
		return &typeRefImage{
			Scope:     v.Scope,
			Namespace: v.Namespace,
			Name:      v.Name,
			Arity:     v.GenericArity,
			ValueType: v.IsValueType,
			Declaring: encodeTypeRef(v.DeclaringType),
		}
	case *GenericInstance:
		return &typeRefImage{Kind: kindInstance, Element: encodeTypeRef(v.Element), Args: encodeTypeRefs(v.Arguments)}
	case *GenericParameter:
		return &typeRefImage{Kind: kindParam, Position: v.Position, Name: v.Name, Method: v.Owner == OwnerMethod}
	case *ArrayType:
		return &typeRefImage{Kind: kindArray, Element: encodeTypeRef(v.Element), Rank: v.Rank}
	case *PointerType:
		return &typeRefImage{Kind: kindPointer, Element: encodeTypeRef(v.Element)}
	case *ByRefType:
		return &typeRefImage{Kind: kindByRef, Element: encodeTypeRef(v.Element)}
	case *ModifiedType:
		return &typeRefImage{Kind: kindModifier, Element: encodeTypeRef(v.Element), Modifier: encodeTypeRef(v.Modifier), Required: v.Required}
	}
	return nil
}
