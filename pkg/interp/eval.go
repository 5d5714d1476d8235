package interp

import (
	"fmt"
	"math"

	"github.com/davidkellis/mir-interp/pkg/mir"
	"github.com/davidkellis/mir-interp/pkg/types"
	"github.com/davidkellis/mir-interp/pkg/value"
)

// Eval evaluates an RValue, producing a freshly owned Value and its static
// type. destTy is the type of the LValue the result will be assigned into;
// it is only consulted by the composite-construction variants (Tuple,
// Struct, Array, SizedArray), which otherwise have no way to learn which
// composite or array shape they are building, and by MakeDst, which uses
// it as the result type when it carries wrappers.
func (e *Engine) Eval(fr *Frame, rv *mir.RValue, destTy types.Type) (*value.Value, types.Type, error) {
	switch rv.Kind {
	case mir.RVUse:
		ref, ty, err := e.Project(fr, rv.Use)
		if err != nil {
			return nil, types.Type{}, err
		}
		v, err := ref.Read()
		if err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
		return v, ty, nil

	case mir.RVConstant:
		return e.evalConstant(rv.Const)

	case mir.RVBorrow:
		return e.evalBorrow(fr, rv.Borrow, rv.Place)

	case mir.RVCast:
		src, srcTy, err := e.Eval(fr, rv.CastSrc, types.Type{})
		if err != nil {
			return nil, types.Type{}, err
		}
		dst, err := e.castValue(src, srcTy, rv.CastDst)
		if err != nil {
			return nil, types.Type{}, err
		}
		return dst, rv.CastDst, nil

	case mir.RVBinOp:
		return e.evalBinOp(fr, rv)

	case mir.RVUniOp:
		return e.evalUniOp(fr, rv)

	case mir.RVTuple, mir.RVStruct:
		return e.evalComposite(fr, destTy, rv.Elems)

	case mir.RVArray:
		return e.evalArray(fr, destTy, rv.Elems)

	case mir.RVSizedArray:
		return e.evalSizedArray(fr, destTy, rv.SizedElem, rv.SizedCount)

	case mir.RVVariant:
		return e.evalVariant(fr, rv.VariantPath, rv.VariantIndex, rv.VariantVal)

	case mir.RVDstMeta:
		ref, ty, err := e.Project(fr, rv.Place)
		if err != nil {
			return nil, types.Type{}, err
		}
		if !types.HasSliceMetadata(ty) {
			return nil, types.Type{}, typeModelErr("dst_meta of non-fat pointer type %s", types.Describe(ty))
		}
		metaRef, err := ref.Sub(types.PointerWidth, types.PointerWidth)
		if err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
		v, err := metaRef.Read()
		if err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
		return v, types.Prim(types.USize), nil

	case mir.RVDstPtr:
		ref, ty, err := e.Project(fr, rv.Place)
		if err != nil {
			return nil, types.Type{}, err
		}
		thin, err := ref.Sub(0, types.PointerWidth)
		if err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
		v, err := thin.Read()
		if err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
		inner, err := types.Inner(ty)
		if err != nil {
			return nil, types.Type{}, typeModelErr("%v", err)
		}
		outTy := types.Type{Wrappers: append([]types.Wrapper{{Kind: types.WPointer}}, inner.Wrappers...), Prim: inner.Prim, Ref: inner.Ref}
		return v, outTy, nil

	case mir.RVMakeDst:
		ptrVal, ptrTy, err := e.Eval(fr, rv.Left, types.Type{})
		if err != nil {
			return nil, types.Type{}, err
		}
		metaVal, _, err := e.Eval(fr, rv.Right, types.Type{})
		if err != nil {
			return nil, types.Type{}, err
		}
		if ptrVal.Size() != types.PointerWidth {
			return nil, types.Type{}, typeModelErr("make_dst pointer operand is %d bytes, want %d", ptrVal.Size(), types.PointerWidth)
		}
		metaBytes, err := metaVal.ReadBytes(0, types.PointerWidth)
		if err != nil {
			return nil, types.Type{}, valueErr("make_dst metadata operand shorter than a pointer: %v", err)
		}
		out := value.Zero(2 * types.PointerWidth)
		if err := out.WriteValue(0, ptrVal); err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
		if err := out.WriteBytes(types.PointerWidth, metaBytes); err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
		outTy := destTy
		if len(outTy.Wrappers) == 0 {
			outTy = ptrTy
		}
		return out, outTy, nil

	default:
		return nil, types.Type{}, typeModelErr("unknown rvalue kind %d", rv.Kind)
	}
}

func (e *Engine) evalConstant(c *mir.Constant) (*value.Value, types.Type, error) {
	switch c.Kind {
	case mir.CInt:
		size, err := types.SizeOf(e, c.Type)
		if err != nil {
			return nil, types.Type{}, typeModelErr("%v", err)
		}
		v := value.Zero(size)
		if err := writeIntBytes(v, uint64(c.IntVal), size); err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
		return v, c.Type, nil

	case mir.CUint:
		size, err := types.SizeOf(e, c.Type)
		if err != nil {
			return nil, types.Type{}, typeModelErr("%v", err)
		}
		v := value.Zero(size)
		if err := writeIntBytes(v, c.UintVal, size); err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
		return v, c.Type, nil

	case mir.CBool:
		v := value.Zero(1)
		b := uint8(0)
		if c.BoolVal {
			b = 1
		}
		if err := v.WriteU8(0, b); err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
		return v, c.Type, nil

	case mir.CFloat:
		size, err := types.SizeOf(e, c.Type)
		if err != nil {
			return nil, types.Type{}, typeModelErr("%v", err)
		}
		v := value.Zero(size)
		if err := writeFloatSized(v, c.FloatVal, size); err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
		return v, c.Type, nil

	case mir.CStaticString:
		alloc := value.NewAllocation(uint64(len(c.Bytes)))
		if err := alloc.WriteBytes(0, c.Bytes); err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
		v := value.Zero(2 * types.PointerWidth)
		v.AddReloc(value.Reloc{Offset: 0, Target: alloc})
		if err := v.WriteUSize(types.PointerWidth, uint64(len(c.Bytes))); err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
		strRefTy := types.Type{Wrappers: []types.Wrapper{{Kind: types.WBorrow}}, Prim: types.Str}
		return v, strRefTy, nil

	case mir.CItemAddr:
		v := value.Zero(types.PointerWidth)
		v.AddReloc(value.Reloc{Offset: 0, FuncPath: string(c.Path)})
		fnTy := types.Type{Wrappers: []types.Wrapper{{Kind: types.WPointer}}, Prim: types.Function}
		return v, fnTy, nil

	default:
		return nil, types.Type{}, typeModelErr("unknown constant kind %d", c.Kind)
	}
}

func (e *Engine) evalBorrow(fr *Frame, bk mir.BorrowKind, place *mir.LValue) (*value.Value, types.Type, error) {
	baseRef, placeTy, err := e.Project(fr, place)
	if err != nil {
		return nil, types.Type{}, err
	}
	alloc := baseRef.Promote()

	wk := types.WBorrow
	if bk == mir.BorrowRaw {
		wk = types.WPointer
	}
	outTy := types.Type{Wrappers: append([]types.Wrapper{{Kind: wk}}, placeTy.Wrappers...), Prim: placeTy.Prim, Ref: placeTy.Ref}

	fat := types.HasSliceMetadata(outTy)
	size := uint64(types.PointerWidth)
	if fat {
		size = 2 * types.PointerWidth
	}
	v := value.Zero(size)
	if err := v.WriteUSize(0, baseRef.Offset); err != nil {
		return nil, types.Type{}, valueErr("%v", err)
	}
	v.AddReloc(value.Reloc{Offset: 0, Target: alloc})

	if fat {
		var meta uint64
		if placeTy.Prim == types.Str && len(placeTy.Wrappers) == 0 {
			meta = baseRef.Size
		} else {
			innerOuter, ok := placeTy.Outer()
			if !ok || innerOuter.Kind != types.WSlice {
				return nil, types.Type{}, typeModelErr("borrow of %s claims slice metadata but is not str/slice", types.Describe(placeTy))
			}
			elemTy, err := types.Inner(placeTy)
			if err != nil {
				return nil, types.Type{}, typeModelErr("%v", err)
			}
			stride, err := types.SizeOf(e, elemTy)
			if err != nil {
				return nil, types.Type{}, typeModelErr("%v", err)
			}
			if stride > 0 {
				meta = baseRef.Size / stride
			}
		}
		if err := v.WriteUSize(types.PointerWidth, meta); err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
	}
	return v, outTy, nil
}

func (e *Engine) evalComposite(fr *Frame, destTy types.Type, elems []*mir.RValue) (*value.Value, types.Type, error) {
	if destTy.Prim != types.Composite || len(destTy.Wrappers) != 0 {
		return nil, types.Type{}, typeModelErr("tuple/struct construction requires a composite destination type, found %s", types.Describe(destTy))
	}
	comp, err := e.Tree.Composite(destTy.Ref)
	if err != nil {
		return nil, types.Type{}, typeModelErr("%v", err)
	}
	v := value.Zero(comp.Size)
	for i, elemRV := range elems {
		offset, fieldTy, err := comp.FieldOffset(i)
		if err != nil {
			return nil, types.Type{}, typeModelErr("%v", err)
		}
		fv, _, err := e.Eval(fr, elemRV, fieldTy)
		if err != nil {
			return nil, types.Type{}, err
		}
		if err := v.WriteValue(offset, fv); err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
	}
	return v, destTy, nil
}

func (e *Engine) evalArray(fr *Frame, destTy types.Type, elems []*mir.RValue) (*value.Value, types.Type, error) {
	outer, ok := destTy.Outer()
	if !ok || outer.Kind != types.WArray {
		return nil, types.Type{}, typeModelErr("array construction requires an array destination type, found %s", types.Describe(destTy))
	}
	elemTy, err := types.Inner(destTy)
	if err != nil {
		return nil, types.Type{}, typeModelErr("%v", err)
	}
	stride, err := types.SizeOf(e, elemTy)
	if err != nil {
		return nil, types.Type{}, typeModelErr("%v", err)
	}
	v := value.Zero(uint64(len(elems)) * stride)
	for i, elemRV := range elems {
		fv, _, err := e.Eval(fr, elemRV, elemTy)
		if err != nil {
			return nil, types.Type{}, err
		}
		if err := v.WriteValue(uint64(i)*stride, fv); err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
	}
	return v, destTy, nil
}

func (e *Engine) evalSizedArray(fr *Frame, destTy types.Type, elemRV *mir.RValue, count uint64) (*value.Value, types.Type, error) {
	outer, ok := destTy.Outer()
	if !ok || outer.Kind != types.WArray {
		return nil, types.Type{}, typeModelErr("sized array construction requires an array destination type, found %s", types.Describe(destTy))
	}
	elemTy, err := types.Inner(destTy)
	if err != nil {
		return nil, types.Type{}, typeModelErr("%v", err)
	}
	stride, err := types.SizeOf(e, elemTy)
	if err != nil {
		return nil, types.Type{}, typeModelErr("%v", err)
	}
	v := value.Zero(count * stride)
	for i := uint64(0); i < count; i++ {
		fv, _, err := e.Eval(fr, elemRV, elemTy)
		if err != nil {
			return nil, types.Type{}, err
		}
		if err := v.WriteValue(i*stride, fv); err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
	}
	return v, destTy, nil
}

func (e *Engine) evalVariant(fr *Frame, path mir.Path, vidx int, payload *mir.RValue) (*value.Value, types.Type, error) {
	comp, err := e.Tree.Composite(string(path))
	if err != nil {
		return nil, types.Type{}, typeModelErr("%v", err)
	}
	if vidx < 0 || vidx >= len(comp.Variants) {
		return nil, types.Type{}, typeModelErr("variant index %d out of range for %s (%d variants)", vidx, path, len(comp.Variants))
	}
	v := value.Zero(comp.Size)
	variant := comp.Variants[vidx]
	if len(variant.TagData) > 0 {
		tagOff, _, err := types.FieldPathOffset(e, comp, variant.BaseField, variant.FieldPath)
		if err != nil {
			return nil, types.Type{}, typeModelErr("%v", err)
		}
		if err := v.WriteBytes(tagOff, variant.TagData); err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
	}
	if payload != nil {
		if variant.DataField < 0 {
			return nil, types.Type{}, typeModelErr("variant %d of %s carries a payload rvalue but declares no payload field", vidx, path)
		}
		offset, payloadTy, err := comp.VariantPayload(vidx)
		if err != nil {
			return nil, types.Type{}, typeModelErr("%v", err)
		}
		pv, _, err := e.Eval(fr, payload, payloadTy)
		if err != nil {
			return nil, types.Type{}, err
		}
		if err := v.WriteValue(offset, pv); err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
	}
	return v, types.CompositeRef(string(path)), nil
}

// --- casts --------------------------------------------------------------

func isThinPointer(t types.Type) bool {
	outer, ok := t.Outer()
	return ok && (outer.Kind == types.WBorrow || outer.Kind == types.WPointer) && !types.HasSliceMetadata(t)
}

func (e *Engine) castValue(src *value.Value, srcTy, dstTy types.Type) (*value.Value, error) {
	if _, wrapped := dstTy.Outer(); !wrapped {
		switch dstTy.Prim {
		case types.Composite, types.TraitObject, types.Str, types.Unit, types.Bool:
			return nil, castErr("unsupported cast target %s", types.Describe(dstTy))
		}
	}

	dstSize, err := types.SizeOf(e, dstTy)
	if err != nil {
		return nil, typeModelErr("%v", err)
	}

	if isThinPointer(srcTy) || isThinPointer(dstTy) {
		out := value.Zero(dstSize)
		n := dstSize
		if srcSize := src.Size(); n > srcSize {
			n = srcSize
		}
		b, err := src.ReadBytes(0, n)
		if err != nil {
			return nil, valueErr("%v", err)
		}
		if err := out.WriteBytes(0, b); err != nil {
			return nil, valueErr("%v", err)
		}
		if reloc, ok := src.RelocAt(0); ok && dstSize >= types.PointerWidth {
			out.AddReloc(reloc)
		}
		return out, nil
	}

	if dstTy.Prim.IsFloat() {
		f, err := e.toFloat(src, srcTy)
		if err != nil {
			return nil, err
		}
		out := value.Zero(dstSize)
		if err := writeFloatSized(out, f, dstSize); err != nil {
			return nil, valueErr("%v", err)
		}
		return out, nil
	}

	var raw uint64
	switch {
	case srcTy.Prim.IsFloat():
		f, err := e.readFloat(src, srcTy)
		if err != nil {
			return nil, err
		}
		if dstTy.Prim.IsSigned() {
			raw = uint64(int64(f))
		} else {
			raw = uint64(f)
		}
	case srcTy.Prim.IsSigned():
		li, err := e.readSigned(src, srcTy)
		if err != nil {
			return nil, err
		}
		raw = uint64(li)
	default:
		lu, err := e.readUnsigned(src, srcTy)
		if err != nil {
			return nil, err
		}
		raw = lu
	}
	out := value.Zero(dstSize)
	if err := writeIntBytes(out, raw, dstSize); err != nil {
		return nil, valueErr("%v", err)
	}
	return out, nil
}

func (e *Engine) toFloat(v *value.Value, ty types.Type) (float64, error) {
	if ty.Prim.IsFloat() {
		return e.readFloat(v, ty)
	}
	if ty.Prim.IsSigned() {
		li, err := e.readSigned(v, ty)
		return float64(li), err
	}
	lu, err := e.readUnsigned(v, ty)
	return float64(lu), err
}

// --- binary/unary operators ----------------------------------------------

func (e *Engine) evalBinOp(fr *Frame, rv *mir.RValue) (*value.Value, types.Type, error) {
	lv, lty, err := e.Eval(fr, rv.Left, types.Type{})
	if err != nil {
		return nil, types.Type{}, err
	}
	rvv, rty, err := e.Eval(fr, rv.Right, types.Type{})
	if err != nil {
		return nil, types.Type{}, err
	}

	switch rv.BinOp {
	case mir.OpEQ, mir.OpNE, mir.OpLT, mir.OpLE, mir.OpGT, mir.OpGE:
		return e.evalCompare(rv.BinOp, lv, lty, rvv, rty)
	case mir.OpAdd, mir.OpSub, mir.OpMul, mir.OpDiv, mir.OpMod:
		return e.evalArith(rv.BinOp, lv, lty, rvv)
	case mir.OpShl, mir.OpShr:
		return e.evalShift(rv.BinOp, lv, lty, rvv, rty)
	default:
		return nil, types.Type{}, typeModelErr("unknown binop %d", rv.BinOp)
	}
}

func pointerIdentity(v *value.Value) (string, uint64, error) {
	off, err := v.ReadUSize(0)
	if err != nil {
		return "", 0, err
	}
	reloc, ok := v.RelocAt(0)
	if !ok {
		// The empty key orders dangling/raw pointers before every
		// allocation ("alloc:") and function ("fn:") pointer.
		return "", off, nil
	}
	if reloc.FuncPath != "" {
		return "fn:" + reloc.FuncPath, off, nil
	}
	return fmt.Sprintf("alloc:%d", reloc.Target.Handle()), off, nil
}

func compareResult(op mir.BinOpKind, cmp int) bool {
	switch op {
	case mir.OpLT:
		return cmp < 0
	case mir.OpLE:
		return cmp <= 0
	case mir.OpGT:
		return cmp > 0
	case mir.OpGE:
		return cmp >= 0
	}
	return false
}

func boolValue(b bool) *value.Value {
	v := value.Zero(1)
	if b {
		v.WriteU8(0, 1)
	}
	return v
}

func (e *Engine) evalCompare(op mir.BinOpKind, lv *value.Value, lty types.Type, rvv *value.Value, rty types.Type) (*value.Value, types.Type, error) {
	boolTy := types.Prim(types.Bool)

	switch {
	case isThinPointer(lty) && isThinPointer(rty):
		lk, loff, err := pointerIdentity(lv)
		if err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
		rk, roff, err := pointerIdentity(rvv)
		if err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
		eq := lk == rk && loff == roff
		switch op {
		case mir.OpEQ:
			return boolValue(eq), boolTy, nil
		case mir.OpNE:
			return boolValue(!eq), boolTy, nil
		default:
			cmp := 0
			if lk != rk {
				if lk < rk {
					cmp = -1
				} else {
					cmp = 1
				}
			} else if loff != roff {
				if loff < roff {
					cmp = -1
				} else {
					cmp = 1
				}
			}
			return boolValue(compareResult(op, cmp)), boolTy, nil
		}

	case lty.Prim.IsFloat() || rty.Prim.IsFloat():
		lf, err := e.readFloat(lv, lty)
		if err != nil {
			return nil, types.Type{}, err
		}
		rf, err := e.readFloat(rvv, rty)
		if err != nil {
			return nil, types.Type{}, err
		}
		switch op {
		case mir.OpEQ:
			return boolValue(lf == rf), boolTy, nil
		case mir.OpNE:
			return boolValue(lf != rf), boolTy, nil
		default:
			cmp := 0
			if lf < rf {
				cmp = -1
			} else if lf > rf {
				cmp = 1
			}
			return boolValue(compareResult(op, cmp)), boolTy, nil
		}

	case lty.Prim.IsSigned():
		li, err := e.readSigned(lv, lty)
		if err != nil {
			return nil, types.Type{}, err
		}
		ri, err := e.readSigned(rvv, rty)
		if err != nil {
			return nil, types.Type{}, err
		}
		switch op {
		case mir.OpEQ:
			return boolValue(li == ri), boolTy, nil
		case mir.OpNE:
			return boolValue(li != ri), boolTy, nil
		default:
			cmp := 0
			if li < ri {
				cmp = -1
			} else if li > ri {
				cmp = 1
			}
			return boolValue(compareResult(op, cmp)), boolTy, nil
		}

	default:
		lu, err := e.readUnsigned(lv, lty)
		if err != nil {
			return nil, types.Type{}, err
		}
		ru, err := e.readUnsigned(rvv, rty)
		if err != nil {
			return nil, types.Type{}, err
		}
		switch op {
		case mir.OpEQ:
			return boolValue(lu == ru), boolTy, nil
		case mir.OpNE:
			return boolValue(lu != ru), boolTy, nil
		default:
			cmp := 0
			if lu < ru {
				cmp = -1
			} else if lu > ru {
				cmp = 1
			}
			return boolValue(compareResult(op, cmp)), boolTy, nil
		}
	}
}

func (e *Engine) evalArith(op mir.BinOpKind, lv *value.Value, lty types.Type, rvv *value.Value) (*value.Value, types.Type, error) {
	size, err := types.SizeOf(e, lty)
	if err != nil {
		return nil, types.Type{}, typeModelErr("%v", err)
	}

	if lty.Prim.IsFloat() {
		lf, err := e.readFloat(lv, lty)
		if err != nil {
			return nil, types.Type{}, err
		}
		rf, err := e.readFloat(rvv, lty)
		if err != nil {
			return nil, types.Type{}, err
		}
		var res float64
		switch op {
		case mir.OpAdd:
			res = lf + rf
		case mir.OpSub:
			res = lf - rf
		case mir.OpMul:
			res = lf * rf
		case mir.OpDiv:
			res = lf / rf
		case mir.OpMod:
			res = math.Mod(lf, rf)
		}
		out := value.Zero(size)
		if err := writeFloatSized(out, res, size); err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
		return out, lty, nil
	}

	if lty.Prim.IsSigned() {
		li, err := e.readSigned(lv, lty)
		if err != nil {
			return nil, types.Type{}, err
		}
		ri, err := e.readSigned(rvv, lty)
		if err != nil {
			return nil, types.Type{}, err
		}
		var res int64
		switch op {
		case mir.OpAdd:
			res = li + ri
		case mir.OpSub:
			res = li - ri
		case mir.OpMul:
			res = li * ri
		case mir.OpDiv:
			if ri == 0 {
				return nil, types.Type{}, valueErr("integer division by zero")
			}
			res = li / ri
		case mir.OpMod:
			if ri == 0 {
				return nil, types.Type{}, valueErr("integer division by zero")
			}
			res = li % ri
		}
		out := value.Zero(size)
		if err := writeIntBytes(out, uint64(res), size); err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
		return out, lty, nil
	}

	lu, err := e.readUnsigned(lv, lty)
	if err != nil {
		return nil, types.Type{}, err
	}
	ru, err := e.readUnsigned(rvv, lty)
	if err != nil {
		return nil, types.Type{}, err
	}
	var res uint64
	switch op {
	case mir.OpAdd:
		res = lu + ru
	case mir.OpSub:
		res = lu - ru
	case mir.OpMul:
		res = lu * ru
	case mir.OpDiv:
		if ru == 0 {
			return nil, types.Type{}, valueErr("integer division by zero")
		}
		res = lu / ru
	case mir.OpMod:
		if ru == 0 {
			return nil, types.Type{}, valueErr("integer division by zero")
		}
		res = lu % ru
	}
	out := value.Zero(size)
	if err := writeIntBytes(out, res, size); err != nil {
		return nil, types.Type{}, valueErr("%v", err)
	}
	return out, lty, nil
}

// evalShift masks the shift amount to the operand's bit width, matching
// the defined (rather than undefined) behavior a real CPU would give for
// an in-range shift.
func (e *Engine) evalShift(op mir.BinOpKind, lv *value.Value, lty types.Type, rvv *value.Value, rty types.Type) (*value.Value, types.Type, error) {
	size, err := types.SizeOf(e, lty)
	if err != nil {
		return nil, types.Type{}, typeModelErr("%v", err)
	}
	bits := size * 8

	var shiftAmt uint64
	if rty.Prim.IsSigned() {
		ri, err := e.readSigned(rvv, rty)
		if err != nil {
			return nil, types.Type{}, err
		}
		shiftAmt = uint64(ri)
	} else {
		ru, err := e.readUnsigned(rvv, rty)
		if err != nil {
			return nil, types.Type{}, err
		}
		shiftAmt = ru
	}
	shiftAmt %= bits

	out := value.Zero(size)
	if lty.Prim.IsSigned() {
		li, err := e.readSigned(lv, lty)
		if err != nil {
			return nil, types.Type{}, err
		}
		var res int64
		if op == mir.OpShl {
			res = li << shiftAmt
		} else {
			res = li >> shiftAmt
		}
		if err := writeIntBytes(out, uint64(res), size); err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
		return out, lty, nil
	}

	lu, err := e.readUnsigned(lv, lty)
	if err != nil {
		return nil, types.Type{}, err
	}
	var res uint64
	if op == mir.OpShl {
		res = lu << shiftAmt
	} else {
		res = lu >> shiftAmt
	}
	if err := writeIntBytes(out, res, size); err != nil {
		return nil, types.Type{}, valueErr("%v", err)
	}
	return out, lty, nil
}

func (e *Engine) evalUniOp(fr *Frame, rv *mir.RValue) (*value.Value, types.Type, error) {
	v, ty, err := e.Eval(fr, rv.Left, types.Type{})
	if err != nil {
		return nil, types.Type{}, err
	}
	size, err := types.SizeOf(e, ty)
	if err != nil {
		return nil, types.Type{}, typeModelErr("%v", err)
	}

	switch rv.UniOp {
	case mir.OpInv:
		if ty.Prim == types.Bool {
			b, err := v.ReadU8(0)
			if err != nil {
				return nil, types.Type{}, valueErr("%v", err)
			}
			out := value.Zero(size)
			if b == 0 {
				if err := out.WriteU8(0, 1); err != nil {
					return nil, types.Type{}, valueErr("%v", err)
				}
			}
			return out, ty, nil
		}
		if ty.Prim.IsSigned() {
			li, err := e.readSigned(v, ty)
			if err != nil {
				return nil, types.Type{}, err
			}
			out := value.Zero(size)
			if err := writeIntBytes(out, uint64(^li), size); err != nil {
				return nil, types.Type{}, valueErr("%v", err)
			}
			return out, ty, nil
		}
		lu, err := e.readUnsigned(v, ty)
		if err != nil {
			return nil, types.Type{}, err
		}
		out := value.Zero(size)
		if err := writeIntBytes(out, ^lu, size); err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
		return out, ty, nil

	case mir.OpNeg:
		if ty.Prim.IsFloat() {
			lf, err := e.readFloat(v, ty)
			if err != nil {
				return nil, types.Type{}, err
			}
			out := value.Zero(size)
			if err := writeFloatSized(out, -lf, size); err != nil {
				return nil, types.Type{}, valueErr("%v", err)
			}
			return out, ty, nil
		}
		li, err := e.readSigned(v, ty)
		if err != nil {
			return nil, types.Type{}, err
		}
		out := value.Zero(size)
		if err := writeIntBytes(out, uint64(-li), size); err != nil {
			return nil, types.Type{}, valueErr("%v", err)
		}
		return out, ty, nil

	default:
		return nil, types.Type{}, typeModelErr("unknown uniop %d", rv.UniOp)
	}
}

// --- sized scalar helpers --------------------------------------------
//
// These operate on a freshly evaluated, exactly-type-sized Value at offset
// 0, dispatching on byte width rather than PrimKind so the 128-bit kinds
// fall through to the same 64-bit accessors as everything else: values
// wider than 64 bits are read/written through their low 8 bytes only, with
// the remaining high bytes left zero.

func readUnsignedSized(v *value.Value, size uint64) (uint64, error) {
	switch size {
	case 1:
		x, err := v.ReadU8(0)
		return uint64(x), err
	case 2:
		x, err := v.ReadU16(0)
		return uint64(x), err
	case 4:
		x, err := v.ReadU32(0)
		return uint64(x), err
	default:
		return v.ReadU64(0)
	}
}

func readSignedSized(v *value.Value, size uint64) (int64, error) {
	switch size {
	case 1:
		x, err := v.ReadI8(0)
		return int64(x), err
	case 2:
		x, err := v.ReadI16(0)
		return int64(x), err
	case 4:
		x, err := v.ReadI32(0)
		return int64(x), err
	default:
		return v.ReadI64(0)
	}
}

func readFloatSized(v *value.Value, size uint64) (float64, error) {
	switch size {
	case 4:
		x, err := v.ReadF32(0)
		return float64(x), err
	case 8:
		return v.ReadF64(0)
	default:
		return 0, typeModelErr("unsupported float width %d bytes", size)
	}
}

func writeFloatSized(v *value.Value, f float64, size uint64) error {
	switch size {
	case 4:
		return v.WriteF32(0, float32(f))
	case 8:
		return v.WriteF64(0, f)
	default:
		return typeModelErr("unsupported float width %d bytes", size)
	}
}

// writeIntBytes writes raw's bit pattern into v, truncated to size bytes.
// Signed and unsigned values share this path: two's complement truncation
// is the same operation either way, and the caller's later read (as signed
// or unsigned) is what gives the bytes their interpretation.
func writeIntBytes(v *value.Value, raw uint64, size uint64) error {
	if size < 8 {
		raw &= (uint64(1) << (size * 8)) - 1
	}
	switch {
	case size == 1:
		return v.WriteU8(0, uint8(raw))
	case size == 2:
		return v.WriteU16(0, uint16(raw))
	case size == 4:
		return v.WriteU32(0, uint32(raw))
	default:
		return v.WriteU64(0, raw)
	}
}

func (e *Engine) readUnsigned(v *value.Value, ty types.Type) (uint64, error) {
	size, err := types.SizeOf(e, ty)
	if err != nil {
		return 0, typeModelErr("%v", err)
	}
	return readUnsignedSized(v, size)
}

func (e *Engine) readSigned(v *value.Value, ty types.Type) (int64, error) {
	size, err := types.SizeOf(e, ty)
	if err != nil {
		return 0, typeModelErr("%v", err)
	}
	return readSignedSized(v, size)
}

func (e *Engine) readFloat(v *value.Value, ty types.Type) (float64, error) {
	size, err := types.SizeOf(e, ty)
	if err != nil {
		return 0, typeModelErr("%v", err)
	}
	return readFloatSized(v, size)
}
