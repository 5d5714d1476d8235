package interp

import (
	"github.com/davidkellis/mir-interp/pkg/types"
	"github.com/davidkellis/mir-interp/pkg/value"
)

// callIntrinsic implements the fixed, closed set of compiler intrinsics
// the executor recognizes directly rather than routing through the module
// tree. An unrecognized name is fatal: there is no silent fallback.
func (e *Engine) callIntrinsic(name string, args []*value.Value, argTypes []types.Type, destTy types.Type) (*value.Value, error) {
	switch name {
	case "transmute":
		return e.intrinsicTransmute(args, destTy)
	case "atomic_load":
		return e.intrinsicAtomicLoad(args, argTypes, destTy)
	case "atomic_store":
		return e.intrinsicAtomicStore(args, argTypes)
	case "offset":
		return e.intrinsicOffset(args, argTypes)
	case "assume":
		return e.intrinsicAssume(args, argTypes)
	default:
		return nil, intrinsicErr("unknown intrinsic %q", name)
	}
}

// intrinsicTransmute reinterprets an operand's bytes as destTy without
// touching them. Source and destination must be exactly the same size;
// relocations carry over untouched, at whatever offsets they already sit
// at, so a transmuted pointer keeps its provenance.
func (e *Engine) intrinsicTransmute(args []*value.Value, destTy types.Type) (*value.Value, error) {
	if len(args) != 1 {
		return nil, intrinsicErr("transmute takes exactly one argument, got %d", len(args))
	}
	dstSize, err := types.SizeOf(e, destTy)
	if err != nil {
		return nil, typeModelErr("%v", err)
	}
	if args[0].Size() != dstSize {
		return nil, intrinsicErr("transmute size mismatch: source is %d bytes, destination %s is %d bytes", args[0].Size(), types.Describe(destTy), dstSize)
	}
	out := value.Zero(dstSize)
	if err := out.WriteValue(0, args[0]); err != nil {
		return nil, valueErr("%v", err)
	}
	return out, nil
}

// thinPointerTarget resolves a thin-pointer Value (as an already-evaluated
// argument, not a place) to its target allocation and byte offset.
func thinPointerTarget(v *value.Value) (*value.Allocation, uint64, error) {
	off, err := v.ReadUSize(0)
	if err != nil {
		return nil, 0, err
	}
	reloc, ok := v.RelocAt(0)
	if !ok {
		return nil, 0, valueErr("pointer argument carries no relocation (dangling or non-pointer bits)")
	}
	if reloc.FuncPath != "" {
		return nil, 0, valueErr("pointer argument names a function (%s), not data", reloc.FuncPath)
	}
	return reloc.Target, off, nil
}

// intrinsicAtomicLoad reads through a pointer argument. Atomicity is moot
// in this single-threaded interpreter; the operation is a plain read.
func (e *Engine) intrinsicAtomicLoad(args []*value.Value, argTypes []types.Type, destTy types.Type) (*value.Value, error) {
	if len(args) != 1 {
		return nil, intrinsicErr("atomic_load takes exactly one argument, got %d", len(args))
	}
	size, err := types.SizeOf(e, destTy)
	if err != nil {
		return nil, typeModelErr("%v", err)
	}
	alloc, off, err := thinPointerTarget(args[0])
	if err != nil {
		return nil, valueErr("%v", err)
	}
	return value.RefIntoAllocation(alloc, off, size).Read()
}

// intrinsicAtomicStore writes through a pointer argument; like the load
// side, atomicity has no observable effect here.
func (e *Engine) intrinsicAtomicStore(args []*value.Value, argTypes []types.Type) (*value.Value, error) {
	if len(args) != 2 {
		return nil, intrinsicErr("atomic_store takes exactly two arguments, got %d", len(args))
	}
	alloc, off, err := thinPointerTarget(args[0])
	if err != nil {
		return nil, valueErr("%v", err)
	}
	ref := value.RefIntoAllocation(alloc, off, args[1].Size())
	if err := ref.Write(args[1]); err != nil {
		return nil, valueErr("%v", err)
	}
	return value.Zero(0), nil
}

// intrinsicOffset computes ptr + count elements, where the element type is
// the pointee type of the first argument. The resulting pointer carries
// the same relocation target as the input; no bounds check is performed
// here, matching the raw-pointer-arithmetic contract intrinsics expose.
func (e *Engine) intrinsicOffset(args []*value.Value, argTypes []types.Type) (*value.Value, error) {
	if len(args) != 2 {
		return nil, intrinsicErr("offset takes exactly two arguments, got %d", len(args))
	}
	ptrTy := argTypes[0]
	if outer, ok := ptrTy.Outer(); !ok || (outer.Kind != types.WBorrow && outer.Kind != types.WPointer) {
		return nil, typeModelErr("offset's first argument must be a pointer, found %s", types.Describe(ptrTy))
	}
	elemTy, err := types.Inner(ptrTy)
	if err != nil {
		return nil, typeModelErr("%v", err)
	}
	stride, err := types.SizeOf(e, elemTy)
	if err != nil {
		return nil, typeModelErr("%v", err)
	}

	count, err := e.readSigned(args[1], argTypes[1])
	if err != nil {
		return nil, err
	}

	base, err := args[0].ReadUSize(0)
	if err != nil {
		return nil, valueErr("%v", err)
	}
	newOff := uint64(int64(base) + count*int64(stride))

	out := value.Zero(args[0].Size())
	if err := out.WriteUSize(0, newOff); err != nil {
		return nil, valueErr("%v", err)
	}
	if reloc, ok := args[0].RelocAt(0); ok {
		out.AddReloc(reloc)
	}
	if args[0].Size() > types.PointerWidth {
		metaBytes, err := args[0].ReadBytes(types.PointerWidth, args[0].Size()-types.PointerWidth)
		if err != nil {
			return nil, valueErr("%v", err)
		}
		if err := out.WriteBytes(types.PointerWidth, metaBytes); err != nil {
			return nil, valueErr("%v", err)
		}
	}
	return out, nil
}

// intrinsicAssume is a compiler hint with no runtime effect in this
// interpreter: it neither checks nor enforces its operand.
func (e *Engine) intrinsicAssume(args []*value.Value, argTypes []types.Type) (*value.Value, error) {
	if len(args) != 1 {
		return nil, intrinsicErr("assume takes exactly one argument, got %d", len(args))
	}
	return value.Zero(0), nil
}
