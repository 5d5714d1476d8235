package interp

import (
	"github.com/davidkellis/mir-interp/pkg/mir"
	"github.com/davidkellis/mir-interp/pkg/types"
	"github.com/davidkellis/mir-interp/pkg/value"
)

// Project resolves an LValue into a (ValueRef, static type) pair.
// Projection never allocates and never writes; it only narrows an
// existing ref or, for Deref, follows a relocation that must already
// exist.
func (e *Engine) Project(fr *Frame, lv *mir.LValue) (value.Ref, types.Type, error) {
	switch lv.Kind {
	case mir.LVReturn:
		return value.RefIntoValue(fr.ret, 0, fr.ret.Size()), fr.fn.RetType, nil

	case mir.LVLocal:
		ty, err := fr.localType(lv.Index)
		if err != nil {
			return value.Ref{}, types.Type{}, err
		}
		v := fr.locals[lv.Index]
		return value.RefIntoValue(v, 0, v.Size()), ty, nil

	case mir.LVArg:
		ty, err := fr.argType(lv.Index)
		if err != nil {
			return value.Ref{}, types.Type{}, err
		}
		if lv.Index >= len(fr.args) {
			return value.Ref{}, types.Type{}, projectionErr("arg index %d out of range (%d bound args)", lv.Index, len(fr.args))
		}
		v := fr.args[lv.Index]
		return value.RefIntoValue(v, 0, v.Size()), ty, nil

	case mir.LVStatic:
		v, err := e.Tree.Static(lv.Static)
		if err != nil {
			return value.Ref{}, types.Type{}, projectionErr("static %s: %v", lv.Static, err)
		}
		ty, err := e.Tree.StaticType(lv.Static)
		if err != nil {
			return value.Ref{}, types.Type{}, typeModelErr("static %s: %v", lv.Static, err)
		}
		return value.RefIntoValue(v, 0, v.Size()), ty, nil

	case mir.LVField:
		baseRef, baseTy, err := e.Project(fr, lv.Base)
		if err != nil {
			return value.Ref{}, types.Type{}, err
		}
		if baseTy.Prim != types.Composite || len(baseTy.Wrappers) != 0 {
			return value.Ref{}, types.Type{}, projectionErr("field projection requires a composite, found %s", types.Describe(baseTy))
		}
		comp, err := e.Tree.Composite(baseTy.Ref)
		if err != nil {
			return value.Ref{}, types.Type{}, typeModelErr("%v", err)
		}
		offset, fieldTy, err := comp.FieldOffset(lv.Index)
		if err != nil {
			return value.Ref{}, types.Type{}, typeModelErr("%v", err)
		}
		size, err := types.SizeOf(e, fieldTy)
		if err != nil {
			return value.Ref{}, types.Type{}, typeModelErr("%v", err)
		}
		ref, err := baseRef.Sub(offset, size)
		if err != nil {
			return value.Ref{}, types.Type{}, valueErr("%v", err)
		}
		return ref, fieldTy, nil

	case mir.LVDowncast:
		baseRef, baseTy, err := e.Project(fr, lv.Base)
		if err != nil {
			return value.Ref{}, types.Type{}, err
		}
		if baseTy.Prim != types.Composite || len(baseTy.Wrappers) != 0 {
			return value.Ref{}, types.Type{}, projectionErr("downcast requires a composite, found %s", types.Describe(baseTy))
		}
		comp, err := e.Tree.Composite(baseTy.Ref)
		if err != nil {
			return value.Ref{}, types.Type{}, typeModelErr("%v", err)
		}
		offset, payloadTy, err := comp.VariantPayload(lv.VariantIdx)
		if err != nil {
			return value.Ref{}, types.Type{}, typeModelErr("%v", err)
		}
		size, err := types.SizeOf(e, payloadTy)
		if err != nil {
			return value.Ref{}, types.Type{}, typeModelErr("%v", err)
		}
		ref, err := baseRef.Sub(offset, size)
		if err != nil {
			return value.Ref{}, types.Type{}, valueErr("%v", err)
		}
		return ref, payloadTy, nil

	case mir.LVIndex:
		baseRef, baseTy, err := e.Project(fr, lv.Base)
		if err != nil {
			return value.Ref{}, types.Type{}, err
		}
		outer, ok := baseTy.Outer()
		if !ok || (outer.Kind != types.WArray && outer.Kind != types.WSlice) {
			return value.Ref{}, types.Type{}, projectionErr("index requires an array or slice, found %s", types.Describe(baseTy))
		}
		elemTy, err := types.Inner(baseTy)
		if err != nil {
			return value.Ref{}, types.Type{}, typeModelErr("%v", err)
		}
		stride, err := types.SizeOf(e, elemTy)
		if err != nil {
			return value.Ref{}, types.Type{}, typeModelErr("%v", err)
		}
		idxRef, idxTy, err := e.Project(fr, lv.IdxLValue)
		if err != nil {
			return value.Ref{}, types.Type{}, err
		}
		if idxTy.Prim != types.USize || len(idxTy.Wrappers) != 0 {
			return value.Ref{}, types.Type{}, projectionErr("index operand must be usize, found %s", types.Describe(idxTy))
		}
		idx, err := idxRef.ReadUSize()
		if err != nil {
			return value.Ref{}, types.Type{}, valueErr("%v", err)
		}
		ref, err := baseRef.Sub(idx*stride, stride)
		if err != nil {
			return value.Ref{}, types.Type{}, valueErr("index %d out of bounds: %v", idx, err)
		}
		return ref, elemTy, nil

	case mir.LVDeref:
		baseRef, baseTy, err := e.Project(fr, lv.Base)
		if err != nil {
			return value.Ref{}, types.Type{}, err
		}
		outer, ok := baseTy.Outer()
		if !ok || (outer.Kind != types.WBorrow && outer.Kind != types.WPointer) {
			return value.Ref{}, types.Type{}, projectionErr("deref requires a pointer or borrow, found %s", types.Describe(baseTy))
		}
		reloc, ok := baseRef.RelocAtBase()
		if !ok {
			return value.Ref{}, types.Type{}, projectionErr("deref of a pointer with no relocation at its offset (dangling or non-pointer bits)")
		}
		if reloc.FuncPath != "" {
			return value.Ref{}, types.Type{}, projectionErr("deref of a function pointer relocation (%s) as data", reloc.FuncPath)
		}
		pointeeOff, err := baseRef.ReadUSize()
		if err != nil {
			return value.Ref{}, types.Type{}, valueErr("%v", err)
		}
		pointeeTy, err := types.Inner(baseTy)
		if err != nil {
			return value.Ref{}, types.Type{}, typeModelErr("%v", err)
		}

		if types.HasSliceMetadata(baseTy) {
			metaRef, err := baseRef.Sub(types.PointerWidth, types.PointerWidth)
			if err != nil {
				return value.Ref{}, types.Type{}, valueErr("%v", err)
			}
			meta, err := metaRef.ReadUSize()
			if err != nil {
				return value.Ref{}, types.Type{}, valueErr("%v", err)
			}
			if pointeeTy.Prim == types.Str && len(pointeeTy.Wrappers) == 0 {
				size := meta
				if size+pointeeOff > uint64(len(reloc.Target.Bytes)) {
					return value.Ref{}, types.Type{}, valueErr("deref out of bounds: str of length %d at offset %d exceeds allocation of size %d", size, pointeeOff, len(reloc.Target.Bytes))
				}
				return value.RefIntoAllocation(reloc.Target, pointeeOff, size), pointeeTy, nil
			}
			// Slice: the second word is an element count, not a byte
			// size; scale it by the element stride so the resulting ref
			// is byte-addressed like every other ref.
			innerOuter, ok := pointeeTy.Outer()
			if !ok || innerOuter.Kind != types.WSlice {
				return value.Ref{}, types.Type{}, typeModelErr("pointee %s claims slice metadata but is not a slice", types.Describe(pointeeTy))
			}
			elemTy, err := types.Inner(pointeeTy)
			if err != nil {
				return value.Ref{}, types.Type{}, typeModelErr("%v", err)
			}
			stride, err := types.SizeOf(e, elemTy)
			if err != nil {
				return value.Ref{}, types.Type{}, typeModelErr("%v", err)
			}
			ref, err := value.RefIntoAllocation(reloc.Target, 0, uint64(len(reloc.Target.Bytes))).Sub(pointeeOff, meta*stride)
			if err != nil {
				return value.Ref{}, types.Type{}, valueErr("%v", err)
			}
			return ref, pointeeTy, nil
		}

		size, err := types.SizeOf(e, pointeeTy)
		if err != nil {
			return value.Ref{}, types.Type{}, typeModelErr("%v", err)
		}
		ref, err := value.RefIntoAllocation(reloc.Target, 0, uint64(len(reloc.Target.Bytes))).Sub(pointeeOff, size)
		if err != nil {
			return value.Ref{}, types.Type{}, valueErr("deref out of bounds: %v", err)
		}
		return ref, pointeeTy, nil

	default:
		return value.Ref{}, types.Type{}, projectionErr("unknown lvalue kind %d", lv.Kind)
	}
}
