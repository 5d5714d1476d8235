package module

import (
	"fmt"

	"github.com/davidkellis/mir-interp/pkg/mir"
	"github.com/davidkellis/mir-interp/pkg/types"
	"github.com/davidkellis/mir-interp/pkg/value"
)

// builder accumulates conversion issues into one ValidationError, so a
// malformed fixture reports every problem at once.
type builder struct {
	issues []string
}

func (b *builder) fail(format string, args ...any) {
	b.issues = append(b.issues, fmt.Sprintf(format, args...))
}

func (f *moduleFileYAML) build() (*StaticTree, error) {
	if f.PointerWidth != 0 && f.PointerWidth != types.PointerWidth {
		return nil, fmt.Errorf("module: module tree was compiled for pointer width %d, interpreter uses %d", f.PointerWidth, types.PointerWidth)
	}

	b := &builder{}
	tree := NewStaticTree()

	for _, c := range f.Composites {
		comp, err := b.buildComposite(c)
		if err != nil {
			b.fail("composite %q: %v", c.Name, err)
			continue
		}
		tree.Composites[comp.Name] = comp
	}

	for _, s := range f.Statics {
		ty, err := b.buildType(s.Type)
		if err != nil {
			b.fail("static %q: %v", s.Path, err)
			continue
		}
		bytes := make([]byte, len(s.Bytes))
		for i, n := range s.Bytes {
			bytes[i] = byte(n)
		}
		size, err := types.SizeOf(tree, ty)
		if err != nil {
			b.fail("static %q: %v", s.Path, err)
			continue
		}
		if uint64(len(bytes)) != size {
			b.fail("static %q: declared %d bytes but type %s is %d bytes", s.Path, len(bytes), types.Describe(ty), size)
			continue
		}
		tree.Statics[mir.Path(s.Path)] = value.FromBytes(bytes)
		tree.StaticTypes[mir.Path(s.Path)] = ty
	}

	for _, fn := range f.Functions {
		def, err := b.buildFunction(fn)
		if err != nil {
			b.fail("function %q: %v", fn.Path, err)
			continue
		}
		tree.Functions[def.Path] = def
	}

	for name, path := range f.LangItems {
		tree.LangItems[name] = mir.Path(path)
	}

	if len(b.issues) > 0 {
		return nil, &ValidationError{Issues: b.issues}
	}
	return tree, nil
}

func (b *builder) buildType(t typeYAML) (types.Type, error) {
	out := types.Type{Ref: t.Ref}
	for _, w := range t.Wrappers {
		var kind types.WrapperKind
		switch w.Kind {
		case "borrow":
			kind = types.WBorrow
		case "pointer":
			kind = types.WPointer
		case "array":
			kind = types.WArray
		case "slice":
			kind = types.WSlice
		default:
			return types.Type{}, fmt.Errorf("unknown wrapper kind %q", w.Kind)
		}
		out.Wrappers = append(out.Wrappers, types.Wrapper{Kind: kind, Len: w.Len})
	}
	prim, err := parsePrimKind(t.Prim)
	if err != nil {
		return types.Type{}, err
	}
	out.Prim = prim
	return out, nil
}

func parsePrimKind(s string) (types.PrimKind, error) {
	switch s {
	case "unreachable", "!":
		return types.Unreachable, nil
	case "unit", "()":
		return types.Unit, nil
	case "bool":
		return types.Bool, nil
	case "char":
		return types.Char, nil
	case "u8":
		return types.U8, nil
	case "u16":
		return types.U16, nil
	case "u32":
		return types.U32, nil
	case "u64":
		return types.U64, nil
	case "u128":
		return types.U128, nil
	case "i8":
		return types.I8, nil
	case "i16":
		return types.I16, nil
	case "i32":
		return types.I32, nil
	case "i64":
		return types.I64, nil
	case "i128":
		return types.I128, nil
	case "usize":
		return types.USize, nil
	case "isize":
		return types.ISize, nil
	case "f32":
		return types.F32, nil
	case "f64":
		return types.F64, nil
	case "str":
		return types.Str, nil
	case "composite":
		return types.Composite, nil
	case "dyn", "trait_object":
		return types.TraitObject, nil
	case "fn", "function":
		return types.Function, nil
	default:
		return 0, fmt.Errorf("unknown primitive kind %q", s)
	}
}

func (b *builder) buildComposite(c compositeYAML) (*types.Composite, error) {
	comp := &types.Composite{Name: c.Name, Size: c.Size}
	for i, f := range c.Fields {
		ty, err := b.buildType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		comp.Fields = append(comp.Fields, types.Field{Offset: f.Offset, Type: ty})
	}
	defaults := 0
	for i, v := range c.Variants {
		tag := make([]byte, len(v.Tag))
		for j, n := range v.Tag {
			tag[j] = byte(n)
		}
		if len(tag) == 0 {
			defaults++
		}
		comp.Variants = append(comp.Variants, types.Variant{
			DataField: v.DataField,
			BaseField: v.BaseField,
			FieldPath: append([]int(nil), v.FieldPath...),
			TagData:   tag,
		})
		_ = i
	}
	if defaults > 1 {
		return nil, fmt.Errorf("composite has %d default (otherwise) variants, at most one is allowed", defaults)
	}
	return comp, nil
}

func (b *builder) buildLValue(l *lvalueYAML) (*mir.LValue, error) {
	if l == nil {
		return nil, nil
	}
	out := &mir.LValue{Index: l.Index, Static: mir.Path(l.Static), VariantIdx: l.VariantIdx}
	switch l.Kind {
	case "return":
		out.Kind = mir.LVReturn
	case "local":
		out.Kind = mir.LVLocal
	case "arg":
		out.Kind = mir.LVArg
	case "static":
		out.Kind = mir.LVStatic
	case "field":
		out.Kind = mir.LVField
		base, err := b.buildLValue(l.Base)
		if err != nil {
			return nil, err
		}
		out.Base = base
	case "downcast":
		out.Kind = mir.LVDowncast
		base, err := b.buildLValue(l.Base)
		if err != nil {
			return nil, err
		}
		out.Base = base
	case "index":
		out.Kind = mir.LVIndex
		base, err := b.buildLValue(l.Base)
		if err != nil {
			return nil, err
		}
		idx, err := b.buildLValue(l.IdxLValue)
		if err != nil {
			return nil, err
		}
		out.Base = base
		out.IdxLValue = idx
	case "deref":
		out.Kind = mir.LVDeref
		base, err := b.buildLValue(l.Base)
		if err != nil {
			return nil, err
		}
		out.Base = base
	default:
		return nil, fmt.Errorf("unknown lvalue kind %q", l.Kind)
	}
	return out, nil
}

func (b *builder) buildConstant(c *constantYAML) (*mir.Constant, error) {
	if c == nil {
		return nil, fmt.Errorf("missing constant")
	}
	ty, err := b.buildType(c.Type)
	if err != nil && c.Kind != "static_string" && c.Kind != "item_addr" {
		return nil, err
	}
	out := &mir.Constant{Type: ty}
	switch c.Kind {
	case "int":
		out.Kind = mir.CInt
		out.IntVal = c.Int
	case "uint":
		out.Kind = mir.CUint
		out.UintVal = c.Uint
	case "bool":
		out.Kind = mir.CBool
		out.BoolVal = c.Bool
	case "float":
		out.Kind = mir.CFloat
		out.FloatVal = c.Float
	case "static_string":
		out.Kind = mir.CStaticString
		out.Bytes = []byte(c.Str)
	case "item_addr":
		out.Kind = mir.CItemAddr
		out.Path = mir.Path(c.Path)
	default:
		return nil, fmt.Errorf("unknown constant kind %q", c.Kind)
	}
	return out, nil
}

func (b *builder) buildRValue(r *rvalueYAML) (*mir.RValue, error) {
	if r == nil {
		return nil, fmt.Errorf("missing rvalue")
	}
	out := &mir.RValue{
		VariantPath:  mir.Path(r.VariantPath),
		VariantIndex: r.VariantIndex,
		SizedCount:   r.SizedCount,
	}

	convLV := func(l *lvalueYAML) (*mir.LValue, error) { return b.buildLValue(l) }
	convRV := func(rv *rvalueYAML) (*mir.RValue, error) {
		if rv == nil {
			return nil, nil
		}
		return b.buildRValue(rv)
	}

	switch r.Kind {
	case "use":
		out.Kind = mir.RVUse
		lv, err := convLV(r.Use)
		if err != nil {
			return nil, err
		}
		out.Use = lv
	case "constant":
		out.Kind = mir.RVConstant
		c, err := b.buildConstant(r.Const)
		if err != nil {
			return nil, err
		}
		out.Const = c
	case "borrow":
		out.Kind = mir.RVBorrow
		switch r.Borrow {
		case "shared", "":
			out.Borrow = mir.BorrowShared
		case "unique":
			out.Borrow = mir.BorrowUnique
		case "raw":
			out.Borrow = mir.BorrowRaw
		default:
			return nil, fmt.Errorf("unknown borrow kind %q", r.Borrow)
		}
		lv, err := convLV(r.Place)
		if err != nil {
			return nil, err
		}
		out.Place = lv
	case "cast":
		out.Kind = mir.RVCast
		src, err := convRV(r.CastSrc)
		if err != nil {
			return nil, err
		}
		dst, err := b.buildType(r.CastDst)
		if err != nil {
			return nil, err
		}
		out.CastSrc = src
		out.CastDst = dst
	case "binop":
		out.Kind = mir.RVBinOp
		op, err := parseBinOp(r.BinOp)
		if err != nil {
			return nil, err
		}
		left, err := convRV(r.Left)
		if err != nil {
			return nil, err
		}
		right, err := convRV(r.Right)
		if err != nil {
			return nil, err
		}
		out.BinOp, out.Left, out.Right = op, left, right
	case "uniop":
		out.Kind = mir.RVUniOp
		op, err := parseUniOp(r.UniOp)
		if err != nil {
			return nil, err
		}
		left, err := convRV(r.Left)
		if err != nil {
			return nil, err
		}
		out.UniOp, out.Left = op, left
	case "tuple", "array", "struct":
		switch r.Kind {
		case "tuple":
			out.Kind = mir.RVTuple
		case "array":
			out.Kind = mir.RVArray
		case "struct":
			out.Kind = mir.RVStruct
		}
		for i, e := range r.Elems {
			ev, err := convRV(e)
			if err != nil {
				return nil, fmt.Errorf("elem %d: %w", i, err)
			}
			out.Elems = append(out.Elems, ev)
		}
	case "sized_array":
		out.Kind = mir.RVSizedArray
		elem, err := convRV(r.SizedElem)
		if err != nil {
			return nil, err
		}
		out.SizedElem = elem
	case "variant":
		out.Kind = mir.RVVariant
		val, err := convRV(r.VariantVal)
		if err != nil {
			return nil, err
		}
		out.VariantVal = val
	case "dst_meta":
		out.Kind = mir.RVDstMeta
		lv, err := convLV(r.Place)
		if err != nil {
			return nil, err
		}
		out.Place = lv
	case "dst_ptr":
		out.Kind = mir.RVDstPtr
		lv, err := convLV(r.Place)
		if err != nil {
			return nil, err
		}
		out.Place = lv
	case "make_dst":
		out.Kind = mir.RVMakeDst
		left, err := convRV(r.Left)
		if err != nil {
			return nil, err
		}
		right, err := convRV(r.Right)
		if err != nil {
			return nil, err
		}
		out.Left, out.Right = left, right
	default:
		return nil, fmt.Errorf("unknown rvalue kind %q", r.Kind)
	}
	return out, nil
}

func parseBinOp(s string) (mir.BinOpKind, error) {
	switch s {
	case "eq":
		return mir.OpEQ, nil
	case "ne":
		return mir.OpNE, nil
	case "lt":
		return mir.OpLT, nil
	case "le":
		return mir.OpLE, nil
	case "gt":
		return mir.OpGT, nil
	case "ge":
		return mir.OpGE, nil
	case "add":
		return mir.OpAdd, nil
	case "sub":
		return mir.OpSub, nil
	case "mul":
		return mir.OpMul, nil
	case "div":
		return mir.OpDiv, nil
	case "mod":
		return mir.OpMod, nil
	case "shl":
		return mir.OpShl, nil
	case "shr":
		return mir.OpShr, nil
	default:
		return 0, fmt.Errorf("unknown binop %q", s)
	}
}

func parseUniOp(s string) (mir.UniOpKind, error) {
	switch s {
	case "inv":
		return mir.OpInv, nil
	case "neg":
		return mir.OpNeg, nil
	default:
		return 0, fmt.Errorf("unknown uniop %q", s)
	}
}

func (b *builder) buildStatement(s statementYAML) (mir.Statement, error) {
	out := mir.Statement{FlagIdx: s.FlagIdx, NewVal: s.NewVal, DropFlagIdx: s.DropFlagIdx}
	out.OtherIdx = mir.DropFlagNone
	if s.OtherIdx != nil {
		out.OtherIdx = *s.OtherIdx
	}
	switch s.Kind {
	case "assign":
		out.Kind = mir.SAssign
		dest, err := b.buildLValue(s.Dest)
		if err != nil {
			return out, err
		}
		src, err := b.buildRValue(s.Source)
		if err != nil {
			return out, err
		}
		out.Dest, out.Source = dest, src
	case "set_drop_flag":
		out.Kind = mir.SSetDropFlag
	case "drop":
		out.Kind = mir.SDrop
		slot, err := b.buildLValue(s.DropSlot)
		if err != nil {
			return out, err
		}
		out.DropSlot = slot
		switch s.Drop {
		case "composite", "":
			out.Drop = mir.DropComposite
		case "move_borrow":
			out.Drop = mir.DropMoveBorrow
		case "trait_object":
			out.Drop = mir.DropTraitObject
		case "other":
			out.Drop = mir.DropOther
		default:
			return out, fmt.Errorf("unknown drop kind %q", s.Drop)
		}
	case "asm":
		out.Kind = mir.SAsm
	case "scope_end":
		out.Kind = mir.SScopeEnd
	default:
		return out, fmt.Errorf("unknown statement kind %q", s.Kind)
	}
	return out, nil
}

func (b *builder) buildTerminator(t terminatorYAML) (mir.Terminator, error) {
	out := mir.Terminator{Target: t.Target, IfTrue: t.IfTrue, IfFalse: t.IfFalse, RetBlock: t.RetBlock}
	out.Otherwise = -1
	if t.Otherwise != nil {
		out.Otherwise = *t.Otherwise
	}
	switch t.Kind {
	case "goto":
		out.Kind = mir.TGoto
	case "return":
		out.Kind = mir.TReturn
	case "if":
		out.Kind = mir.TIf
		cond, err := b.buildLValue(t.Cond)
		if err != nil {
			return out, err
		}
		out.Cond = cond
	case "switch":
		out.Kind = mir.TSwitch
		sv, err := b.buildLValue(t.SwitchVal)
		if err != nil {
			return out, err
		}
		out.SwitchVal = sv
		for _, st := range t.SwitchTargets {
			out.SwitchTargets = append(out.SwitchTargets, mir.SwitchTarget{VariantIdx: st.VariantIdx, Block: st.Block})
		}
	case "call":
		out.Kind = mir.TCall
		if t.Call == nil {
			return out, fmt.Errorf("call terminator missing call target")
		}
		ct, err := b.buildCallTarget(*t.Call)
		if err != nil {
			return out, err
		}
		out.Call = ct
		for i, a := range t.Args {
			arg, err := b.buildCallArg(a)
			if err != nil {
				return out, fmt.Errorf("arg %d: %w", i, err)
			}
			out.Args = append(out.Args, arg)
		}
		rv, err := b.buildLValue(t.RetVal)
		if err != nil {
			return out, err
		}
		out.RetVal = rv
	case "switch_value":
		out.Kind = mir.TSwitchValue
	case "panic":
		out.Kind = mir.TPanic
	case "diverge":
		out.Kind = mir.TDiverge
	case "incomplete":
		out.Kind = mir.TIncomplete
	default:
		return out, fmt.Errorf("unknown terminator kind %q", t.Kind)
	}
	return out, nil
}

func (b *builder) buildCallTarget(c callTargetYAML) (mir.CallTarget, error) {
	out := mir.CallTarget{Name: c.Name, Path: mir.Path(c.Path)}
	switch c.Kind {
	case "intrinsic":
		out.Kind = mir.CallIntrinsic
	case "path":
		out.Kind = mir.CallPath
	case "value":
		out.Kind = mir.CallValue
		lv, err := b.buildLValue(c.Value)
		if err != nil {
			return out, err
		}
		out.Value = lv
	default:
		return out, fmt.Errorf("unknown call target kind %q", c.Kind)
	}
	return out, nil
}

func (b *builder) buildCallArg(a callArgYAML) (mir.CallArg, error) {
	out := mir.CallArg{IsConst: a.IsConst}
	if a.IsConst {
		c, err := b.buildConstant(a.Const)
		if err != nil {
			return out, err
		}
		out.Const = c
		return out, nil
	}
	lv, err := b.buildLValue(a.Place)
	if err != nil {
		return out, err
	}
	out.Place = lv
	return out, nil
}

func (b *builder) buildFunction(fn functionYAML) (*mir.FunctionDef, error) {
	def := &mir.FunctionDef{Path: mir.Path(fn.Path), NumDropFlags: fn.DropFlags}
	for i, p := range fn.Params {
		ty, err := b.buildType(p)
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", i, err)
		}
		def.ParamTypes = append(def.ParamTypes, ty)
	}
	ret, err := b.buildType(fn.Ret)
	if err != nil {
		return nil, fmt.Errorf("ret: %w", err)
	}
	def.RetType = ret
	for i, l := range fn.Locals {
		ty, err := b.buildType(l)
		if err != nil {
			return nil, fmt.Errorf("local %d: %w", i, err)
		}
		def.LocalTypes = append(def.LocalTypes, ty)
	}
	if fn.Extern != nil {
		def.Extern = mir.ExternDesc{Name: fn.Extern.Name, ABI: fn.Extern.ABI}
	}
	for i, bl := range fn.Blocks {
		block := mir.Block{}
		for j, s := range bl.Statements {
			st, err := b.buildStatement(s)
			if err != nil {
				return nil, fmt.Errorf("block %d statement %d: %w", i, j, err)
			}
			block.Statements = append(block.Statements, st)
		}
		term, err := b.buildTerminator(bl.Terminator)
		if err != nil {
			return nil, fmt.Errorf("block %d terminator: %w", i, err)
		}
		block.Term = term
		def.Blocks = append(def.Blocks, block)
	}
	return def, nil
}
