package interp

import (
	"github.com/davidkellis/mir-interp/pkg/mir"
	"github.com/davidkellis/mir-interp/pkg/types"
	"github.com/davidkellis/mir-interp/pkg/value"
)

// Call invokes fn with the given argument values, running the block
// executor to completion and returning the function's return value. args
// must already match fn.ParamTypes in count and size.
func (e *Engine) Call(fn *mir.FunctionDef, args []*value.Value) (*value.Value, error) {
	if fn.IsExtern() {
		if e.Extern == nil {
			return nil, withPath(externErr("no extern handler registered"), string(fn.Path))
		}
		ret, err := e.Extern.Call(fn.Path, fn.Extern, args, fn.ParamTypes, fn.RetType)
		if err != nil {
			return nil, withPath(externErr("%v", err), string(fn.Path))
		}
		return ret, nil
	}

	if err := e.enter(); err != nil {
		return nil, withPath(err, string(fn.Path))
	}
	defer e.leave()

	fr, err := newFrame(fn, e, args)
	if err != nil {
		return nil, withPath(err, string(fn.Path))
	}

	for {
		if fr.block < 0 || fr.block >= len(fn.Blocks) {
			return nil, withPath(projectionErr("block index %d out of range (%d blocks)", fr.block, len(fn.Blocks)), string(fn.Path))
		}
		block := fn.Blocks[fr.block]

		for _, stmt := range block.Statements {
			if err := e.execStatement(fr, &stmt); err != nil {
				return nil, withPath(err, string(fn.Path))
			}
		}

		next, ret, err := e.execTerminator(fr, &block.Term)
		if err != nil {
			return nil, withPath(err, string(fn.Path))
		}
		if ret {
			return fr.ret, nil
		}
		fr.block = next
	}
}

func (e *Engine) execStatement(fr *Frame, stmt *mir.Statement) error {
	switch stmt.Kind {
	case mir.SAssign:
		destRef, destTy, err := e.Project(fr, stmt.Dest)
		if err != nil {
			return err
		}
		v, _, err := e.Eval(fr, stmt.Source, destTy)
		if err != nil {
			return err
		}
		if err := destRef.Write(v); err != nil {
			return valueErr("%v", err)
		}
		return nil

	case mir.SSetDropFlag:
		if stmt.FlagIdx < 0 || stmt.FlagIdx >= len(fr.dropFlags) {
			return projectionErr("drop flag index %d out of range (%d flags)", stmt.FlagIdx, len(fr.dropFlags))
		}
		if stmt.OtherIdx == mir.DropFlagNone {
			fr.dropFlags[stmt.FlagIdx] = stmt.NewVal
			return nil
		}
		if stmt.OtherIdx < 0 || stmt.OtherIdx >= len(fr.dropFlags) {
			return projectionErr("drop flag index %d out of range (%d flags)", stmt.OtherIdx, len(fr.dropFlags))
		}
		// flags[idx] = flags[other] XOR new_val: NewVal inverts the other
		// flag's value rather than selecting it as-is.
		other := fr.dropFlags[stmt.OtherIdx]
		fr.dropFlags[stmt.FlagIdx] = other != stmt.NewVal
		return nil

	case mir.SDrop:
		return e.execDrop(fr, stmt)

	case mir.SAsm, mir.SScopeEnd:
		// Inline assembly has no observable effect on the byte-level
		// value model this interpreter tracks; scope-end markers exist
		// only to bound borrow lifetimes for a static checker.
		return nil

	default:
		return typeModelErr("unknown statement kind %d", stmt.Kind)
	}
}

// execDrop runs destructor dispatch for a single drop point, gated by the
// statement's own drop flag when it has one. The statement's DropKind
// selects the dispatch, and the static type of the dropped slot must agree
// with it: a composite with drop glue recurses into its own Drop statement
// sequence (supplied by the loader as an ordinary function), a
// move-borrow's destructor runs against its pointee, and a trait object
// drop is a no-op. A DropKind whose slot type does not match, or a
// DropOther, is a no-op.
func (e *Engine) execDrop(fr *Frame, stmt *mir.Statement) error {
	if stmt.DropFlagIdx != mir.DropFlagNone {
		if stmt.DropFlagIdx < 0 || stmt.DropFlagIdx >= len(fr.dropFlags) {
			return projectionErr("drop flag index %d out of range (%d flags)", stmt.DropFlagIdx, len(fr.dropFlags))
		}
		if !fr.dropFlags[stmt.DropFlagIdx] {
			return nil
		}
	}

	ref, ty, err := e.Project(fr, stmt.DropSlot)
	if err != nil {
		return err
	}

	switch stmt.Drop {
	case mir.DropComposite:
		if ty.Prim != types.Composite || len(ty.Wrappers) != 0 {
			return nil
		}
		dropFn, ok := e.Tree.FunctionOpt(mir.Path(ty.Ref + "#drop"))
		if !ok {
			return nil
		}
		v, err := ref.Read()
		if err != nil {
			return valueErr("%v", err)
		}
		_, err = e.Call(dropFn, []*value.Value{v})
		return err

	case mir.DropMoveBorrow:
		outer, ok := ty.Outer()
		if !ok || outer.Kind != types.WBorrow {
			return nil
		}
		reloc, ok := ref.RelocAtBase()
		if !ok || reloc.FuncPath != "" {
			return nil
		}
		inner, err := types.Inner(ty)
		if err != nil {
			return typeModelErr("%v", err)
		}
		if inner.Prim != types.Composite || len(inner.Wrappers) != 0 {
			return nil
		}
		dropFn, ok := e.Tree.FunctionOpt(mir.Path(inner.Ref + "#drop"))
		if !ok {
			return nil
		}
		off, err := ref.ReadUSize()
		if err != nil {
			return valueErr("%v", err)
		}
		size, err := types.SizeOf(e, inner)
		if err != nil {
			return typeModelErr("%v", err)
		}
		pointee, err := value.RefIntoAllocation(reloc.Target, off, size).Read()
		if err != nil {
			return valueErr("%v", err)
		}
		_, err = e.Call(dropFn, []*value.Value{pointee})
		return err

	case mir.DropTraitObject:
		// A trait object's drop slot is the first vtable entry; since the
		// module tree has no vtable-as-data representation here, trait
		// object values never carry live destructors to run.
		return nil

	default:
		return nil
	}
}

// execTerminator runs one block's terminator, returning either the next
// block index or (ok=true) signaling that the frame's return slot already
// holds the final result.
func (e *Engine) execTerminator(fr *Frame, term *mir.Terminator) (int, bool, error) {
	switch term.Kind {
	case mir.TGoto:
		return term.Target, false, nil

	case mir.TReturn:
		return 0, true, nil

	case mir.TIf:
		ref, ty, err := e.Project(fr, term.Cond)
		if err != nil {
			return 0, false, err
		}
		if ty.Prim != types.Bool || len(ty.Wrappers) != 0 {
			return 0, false, typeModelErr("if condition must be bool, found %s", types.Describe(ty))
		}
		b, err := ref.ReadU8()
		if err != nil {
			return 0, false, valueErr("%v", err)
		}
		if b != 0 {
			return term.IfTrue, false, nil
		}
		return term.IfFalse, false, nil

	case mir.TSwitch:
		ref, ty, err := e.Project(fr, term.SwitchVal)
		if err != nil {
			return 0, false, err
		}
		if ty.Prim != types.Composite || len(ty.Wrappers) != 0 {
			return 0, false, typeModelErr("switch value must be a composite, found %s", types.Describe(ty))
		}
		comp, err := e.Tree.Composite(ty.Ref)
		if err != nil {
			return 0, false, typeModelErr("%v", err)
		}
		vidx, err := e.resolveVariant(ref, comp)
		if err != nil {
			return 0, false, err
		}
		for _, t := range term.SwitchTargets {
			if t.VariantIdx == vidx {
				return t.Block, false, nil
			}
		}
		if term.Otherwise >= 0 {
			return term.Otherwise, false, nil
		}
		return 0, false, switchErr("no arm matches variant %d of %s and no default block is set", vidx, ty.Ref)

	case mir.TCall:
		return e.execCall(fr, term)

	case mir.TSwitchValue:
		return 0, false, switchErr("switch_value terminator reached with no matching arm (exhaustive value switches are not modeled)")

	case mir.TPanic:
		return 0, false, switchErr("panic terminator reached")

	case mir.TDiverge:
		return 0, false, switchErr("diverge terminator reached: control flow should never return here")

	case mir.TIncomplete:
		return 0, false, switchErr("incomplete terminator reached: block has no defined successor")

	default:
		return 0, false, typeModelErr("unknown terminator kind %d", term.Kind)
	}
}

// resolveVariant scans the composite's variant table for the arm whose
// TagData matches the bytes found at the tag's resolved location. A
// variant with an empty TagData is the default arm and matches only if
// nothing else does; if several have an empty TagData, the last one is
// the default.
func (e *Engine) resolveVariant(ref value.Ref, comp *types.Composite) (int, error) {
	defaultIdx := -1
	for i, v := range comp.Variants {
		if len(v.TagData) == 0 {
			defaultIdx = i
			continue
		}
		tagOff, _, err := types.FieldPathOffset(e, comp, v.BaseField, v.FieldPath)
		if err != nil {
			return 0, typeModelErr("%v", err)
		}
		tagRef, err := ref.Sub(tagOff, uint64(len(v.TagData)))
		if err != nil {
			return 0, valueErr("%v", err)
		}
		tagVal, err := tagRef.Read()
		if err != nil {
			return 0, valueErr("%v", err)
		}
		if bytesEqual(tagVal.AllBytes(), v.TagData) {
			return i, nil
		}
	}
	if defaultIdx >= 0 {
		return defaultIdx, nil
	}
	return 0, switchErr("no variant of %s matches the tag bytes at this slot", comp.Name)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (e *Engine) execCall(fr *Frame, term *mir.Terminator) (int, bool, error) {
	args := make([]*value.Value, len(term.Args))
	argTypes := make([]types.Type, len(term.Args))
	for i, a := range term.Args {
		if a.IsConst {
			v, ty, err := e.evalConstant(a.Const)
			if err != nil {
				return 0, false, err
			}
			args[i] = v
			argTypes[i] = ty
			continue
		}
		ref, ty, err := e.Project(fr, a.Place)
		if err != nil {
			return 0, false, err
		}
		v, err := ref.Read()
		if err != nil {
			return 0, false, valueErr("%v", err)
		}
		args[i] = v
		argTypes[i] = ty
	}

	var ret *value.Value
	switch term.Call.Kind {
	case mir.CallIntrinsic:
		var destTy types.Type
		if term.RetVal != nil {
			_, ty, err := e.Project(fr, term.RetVal)
			if err != nil {
				return 0, false, err
			}
			destTy = ty
		}
		v, err := e.callIntrinsic(term.Call.Name, args, argTypes, destTy)
		if err != nil {
			return 0, false, err
		}
		ret = v

	case mir.CallPath:
		fn, err := e.Tree.Function(term.Call.Path)
		if err != nil {
			return 0, false, typeModelErr("%v", err)
		}
		v, err := e.Call(fn, args)
		if err != nil {
			return 0, false, err
		}
		ret = v

	case mir.CallValue:
		fnRef, fnTy, err := e.Project(fr, term.Call.Value)
		if err != nil {
			return 0, false, err
		}
		if outer, ok := fnTy.Outer(); !ok || (outer.Kind != types.WBorrow && outer.Kind != types.WPointer) {
			return 0, false, typeModelErr("indirect call target must be a function pointer, found %s", types.Describe(fnTy))
		}
		reloc, ok := fnRef.RelocAtBase()
		if !ok || reloc.FuncPath == "" {
			return 0, false, valueErr("indirect call through a pointer with no function relocation")
		}
		fn, err := e.Tree.Function(mir.Path(reloc.FuncPath))
		if err != nil {
			return 0, false, typeModelErr("%v", err)
		}
		v, err := e.Call(fn, args)
		if err != nil {
			return 0, false, err
		}
		ret = v

	default:
		return 0, false, typeModelErr("unknown call target kind %d", term.Call.Kind)
	}

	if term.RetVal != nil {
		destRef, _, err := e.Project(fr, term.RetVal)
		if err != nil {
			return 0, false, err
		}
		if err := destRef.Write(ret); err != nil {
			return 0, false, valueErr("%v", err)
		}
	}
	return term.RetBlock, false, nil
}
