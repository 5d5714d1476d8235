package value

import "fmt"

// Ref is a non-owning (allocation-handle-or-value, offset, size) view
// into storage, produced by LValue projection. Reads and writes against a
// Ref never allocate and go straight through to the backing allocation or
// value; only Promote creates a backing allocation.
type Ref struct {
	alloc  *Allocation
	val    *Value
	Offset uint64
	Size   uint64
}

// RefIntoAllocation builds a Ref into an existing allocation.
func RefIntoAllocation(a *Allocation, offset, size uint64) Ref {
	return Ref{alloc: a, Offset: offset, Size: size}
}

// RefIntoValue builds a Ref into a value slot (a local, argument, return
// slot, or static), promoted or not; accesses through a promoted value go
// to its backing allocation.
func RefIntoValue(v *Value, offset, size uint64) Ref {
	return Ref{val: v, Offset: offset, Size: size}
}

// Allocation returns the backing allocation if the ref points directly
// at one.
func (r Ref) Allocation() *Allocation { return r.alloc }

// HasAllocation reports whether the ref is backed by a real allocation
// (as opposed to an inline, never-borrowed value slot).
func (r Ref) HasAllocation() bool {
	return r.alloc != nil || (r.val != nil && r.val.IsPromoted())
}

// resolvedAllocation returns the ref's backing allocation, promoting the
// underlying value first if necessary.
func (r Ref) resolvedAllocation() *Allocation {
	if r.alloc != nil {
		return r.alloc
	}
	return r.val.Allocation()
}

func (r Ref) checkWithin(off, size uint64) error {
	if off+size > r.Size {
		return fmt.Errorf("value: ref access [%d,%d) exceeds projected size %d", off, off+size, r.Size)
	}
	return nil
}

// Read materializes the Ref's contents as a freshly owned Value.
func (r Ref) Read() (*Value, error) {
	if r.alloc != nil {
		return r.alloc.ReadValue(r.Offset, r.Size)
	}
	if r.val.IsPromoted() {
		return r.val.Allocation().ReadValue(r.Offset, r.Size)
	}
	b, err := r.val.ReadBytes(r.Offset, r.Size)
	if err != nil {
		return nil, err
	}
	out := &Value{Bytes: b}
	for _, rl := range r.val.AllRelocs() {
		if rl.Offset >= r.Offset && rl.Offset < r.Offset+r.Size {
			shifted := rl
			shifted.Offset -= r.Offset
			out.Relocs = append(out.Relocs, shifted)
		}
	}
	return out, nil
}

// Write splices src into the Ref's location, per the write_value
// contract (destination relocations in range are removed; src's
// relocations are appended, shifted by the ref's offset).
func (r Ref) Write(src *Value) error {
	if src.Size() != r.Size {
		return fmt.Errorf("value: write size mismatch: ref wants %d bytes, value has %d", r.Size, src.Size())
	}
	if r.alloc != nil {
		return r.alloc.WriteValue(r.Offset, src)
	}
	return r.val.WriteValue(r.Offset, src)
}

// RelocAtBase returns the relocation located exactly at the ref's own
// offset (used by Deref, which requires the projected place to itself
// carry a relocation).
func (r Ref) RelocAtBase() (Reloc, bool) {
	if r.alloc != nil {
		return r.alloc.RelocAt(r.Offset)
	}
	return r.val.RelocAt(r.Offset)
}

// Sub returns a narrower ref at relOff (relative to r) with the given
// size, used by Field/Downcast/Index projection steps.
func (r Ref) Sub(relOff, size uint64) (Ref, error) {
	if err := r.checkWithin(relOff, size); err != nil {
		return Ref{}, err
	}
	out := r
	out.Offset += relOff
	out.Size = size
	return out, nil
}

// Promote ensures the ref's storage has a backing allocation, returning
// it. Used by Borrow, which must produce a stable address.
func (r Ref) Promote() *Allocation {
	return r.resolvedAllocation()
}

// ReadUSize and ReadU8 read a scalar at the ref's base offset directly,
// without going through a full Value round-trip: ReadUSize serves the
// projector's Index and Deref steps, ReadU8 the executor's If condition.

func (r Ref) ReadUSize() (uint64, error) {
	if r.alloc != nil {
		return r.alloc.ReadUSize(r.Offset)
	}
	return r.val.ReadUSize(r.Offset)
}

func (r Ref) ReadU8() (uint8, error) {
	if r.alloc != nil {
		return r.alloc.ReadU8(r.Offset)
	}
	return r.val.ReadU8(r.Offset)
}
