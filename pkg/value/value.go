package value

import (
	"fmt"
	"math"
)

// Value is an owned byte buffer with relocations, sized to a type. Small
// values stay inline; Borrow promotes a Value to own a backing
// Allocation the first time its address is taken, so that later borrows
// of the same Value observe a stable address.
type Value struct {
	Bytes  []byte
	Relocs []Reloc
	// alloc is non-nil once the value has been promoted; Bytes/Relocs
	// hold the contents as of promotion time and are no longer
	// authoritative: all subsequent reads/writes against a promoted Value
	// go through alloc so that shared borrows observe each other's
	// mutations.
	alloc *Allocation
}

// Zero constructs a zeroed, unpromoted Value of the given size.
func Zero(size uint64) *Value {
	return &Value{Bytes: make([]byte, size)}
}

// FromBytes constructs an unpromoted Value directly from a byte slice
// (copied) with no relocations.
func FromBytes(b []byte) *Value {
	out := make([]byte, len(b))
	copy(out, b)
	return &Value{Bytes: out}
}

// Size returns the value's size in bytes.
func (v *Value) Size() uint64 {
	if v.alloc != nil {
		return uint64(len(v.alloc.Bytes))
	}
	return uint64(len(v.Bytes))
}

// IsPromoted reports whether the value already owns a backing
// allocation.
func (v *Value) IsPromoted() bool { return v.alloc != nil }

// Allocation returns the value's backing allocation, promoting it first
// if necessary. This is the Borrow promotion step: a value with no
// backing allocation is mutated to own a fresh one whose bytes and
// relocations mirror its inline buffer, so that subsequent borrows of
// the same Value share that allocation and observe each other's writes.
func (v *Value) Allocation() *Allocation {
	if v.alloc == nil {
		a := &Allocation{handle: nextHandle(), Bytes: v.Bytes, Relocs: v.Relocs, Mutable: true}
		v.alloc = a
	}
	return v.alloc
}

// ReadBytes returns a copy of the value's bytes at [off, off+size).
func (v *Value) ReadBytes(off, size uint64) ([]byte, error) {
	if v.alloc != nil {
		return v.alloc.ReadBytes(off, size)
	}
	if off+size > uint64(len(v.Bytes)) {
		return nil, fmt.Errorf("value: access [%d, %d) out of bounds for value of size %d", off, off+size, len(v.Bytes))
	}
	out := make([]byte, size)
	copy(out, v.Bytes[off:off+size])
	return out, nil
}

// AllBytes returns the value's full byte buffer (read-only view).
func (v *Value) AllBytes() []byte {
	if v.alloc != nil {
		return v.alloc.Bytes
	}
	return v.Bytes
}

// AllRelocs returns the value's full relocation list.
func (v *Value) AllRelocs() []Reloc {
	if v.alloc != nil {
		return v.alloc.Relocs
	}
	return v.Relocs
}

// RelocAt returns the relocation at exactly offset off, if any.
func (v *Value) RelocAt(off uint64) (Reloc, bool) {
	for _, r := range v.AllRelocs() {
		if r.Offset == off {
			return r, true
		}
	}
	return Reloc{}, false
}

// WriteBytes writes raw bytes into the value at off, removing any
// relocations the write spans.
func (v *Value) WriteBytes(off uint64, data []byte) error {
	if v.alloc != nil {
		return v.alloc.WriteBytes(off, data)
	}
	if off+uint64(len(data)) > uint64(len(v.Bytes)) {
		return fmt.Errorf("value: write [%d, %d) out of bounds for value of size %d", off, off+uint64(len(data)), len(v.Bytes))
	}
	kept := v.Relocs[:0:0]
	for _, r := range v.Relocs {
		if r.Offset >= off && r.Offset < off+uint64(len(data)) {
			continue
		}
		kept = append(kept, r)
	}
	v.Relocs = kept
	copy(v.Bytes[off:], data)
	return nil
}

// WriteValue splices src into the value at dstOff: copies src's bytes,
// removes destination relocations the write spans, and appends a
// shifted copy of src's relocations.
func (v *Value) WriteValue(dstOff uint64, src *Value) error {
	if v.alloc != nil {
		return v.alloc.WriteValue(dstOff, src)
	}
	if err := v.WriteBytes(dstOff, src.AllBytes()); err != nil {
		return err
	}
	for _, r := range src.AllRelocs() {
		shifted := r
		shifted.Offset += dstOff
		v.Relocs = append(v.Relocs, shifted)
	}
	return nil
}

// AddReloc appends a relocation at the given offset, shadowing the
// low-level allocation/inline split.
func (v *Value) AddReloc(r Reloc) {
	if v.alloc != nil {
		v.alloc.Relocs = append(v.alloc.Relocs, r)
		return
	}
	v.Relocs = append(v.Relocs, r)
}

// Equal reports whether two values have identical bytes and identical
// relocation sets (order-independent).
func Equal(a, b *Value) bool {
	if a.Size() != b.Size() {
		return false
	}
	ab, bb := a.AllBytes(), b.AllBytes()
	for i := range ab {
		if ab[i] != bb[i] {
			return false
		}
	}
	ar, br := a.AllRelocs(), b.AllRelocs()
	if len(ar) != len(br) {
		return false
	}
	used := make([]bool, len(br))
	for _, r1 := range ar {
		found := false
		for j, r2 := range br {
			if used[j] {
				continue
			}
			if r1 == r2 {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// --- scalar accessors, deferring to the allocation when promoted -----
//
// Each pair mirrors the Allocation accessor of the same name: when the
// value has been promoted, reads/writes go through the shared
// allocation; otherwise they operate on the inline buffer directly via
// WriteBytes/ReadBytes so relocations in the written range are still
// invalidated correctly.

func (v *Value) ReadU8(off uint64) (uint8, error) {
	if v.alloc != nil {
		return v.alloc.ReadU8(off)
	}
	b, err := v.ReadBytes(off, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (v *Value) WriteU8(off uint64, x uint8) error {
	if v.alloc != nil {
		return v.alloc.WriteU8(off, x)
	}
	return v.WriteBytes(off, []byte{x})
}

func (v *Value) ReadU16(off uint64) (uint16, error) {
	if v.alloc != nil {
		return v.alloc.ReadU16(off)
	}
	a := &Allocation{Bytes: v.Bytes}
	return a.ReadU16(off)
}

func (v *Value) WriteU16(off uint64, x uint16) error {
	tmp := &Allocation{Bytes: make([]byte, 2)}
	tmp.WriteU16(0, x)
	return v.WriteBytes(off, tmp.Bytes)
}

func (v *Value) ReadU32(off uint64) (uint32, error) {
	if v.alloc != nil {
		return v.alloc.ReadU32(off)
	}
	a := &Allocation{Bytes: v.Bytes}
	return a.ReadU32(off)
}

func (v *Value) WriteU32(off uint64, x uint32) error {
	tmp := &Allocation{Bytes: make([]byte, 4)}
	tmp.WriteU32(0, x)
	return v.WriteBytes(off, tmp.Bytes)
}

func (v *Value) ReadU64(off uint64) (uint64, error) {
	if v.alloc != nil {
		return v.alloc.ReadU64(off)
	}
	a := &Allocation{Bytes: v.Bytes}
	return a.ReadU64(off)
}

func (v *Value) WriteU64(off uint64, x uint64) error {
	tmp := &Allocation{Bytes: make([]byte, 8)}
	tmp.WriteU64(0, x)
	return v.WriteBytes(off, tmp.Bytes)
}

func (v *Value) ReadI8(off uint64) (int8, error)  { u, err := v.ReadU8(off); return int8(u), err }
func (v *Value) WriteI8(off uint64, x int8) error { return v.WriteU8(off, uint8(x)) }

func (v *Value) ReadI16(off uint64) (int16, error)  { u, err := v.ReadU16(off); return int16(u), err }
func (v *Value) WriteI16(off uint64, x int16) error { return v.WriteU16(off, uint16(x)) }

func (v *Value) ReadI32(off uint64) (int32, error)  { u, err := v.ReadU32(off); return int32(u), err }
func (v *Value) WriteI32(off uint64, x int32) error { return v.WriteU32(off, uint32(x)) }

func (v *Value) ReadI64(off uint64) (int64, error)  { u, err := v.ReadU64(off); return int64(u), err }
func (v *Value) WriteI64(off uint64, x int64) error { return v.WriteU64(off, uint64(x)) }

func (v *Value) ReadUSize(off uint64) (uint64, error) { return v.ReadU64(off) }
func (v *Value) WriteUSize(off uint64, x uint64) error { return v.WriteU64(off, x) }
func (v *Value) ReadISize(off uint64) (int64, error)   { return v.ReadI64(off) }
func (v *Value) WriteISize(off uint64, x int64) error  { return v.WriteI64(off, x) }

func (v *Value) ReadF32(off uint64) (float32, error) {
	u, err := v.ReadU32(off)
	return math.Float32frombits(u), err
}
func (v *Value) WriteF32(off uint64, x float32) error { return v.WriteU32(off, math.Float32bits(x)) }

func (v *Value) ReadF64(off uint64) (float64, error) {
	u, err := v.ReadU64(off)
	return math.Float64frombits(u), err
}
func (v *Value) WriteF64(off uint64, x float64) error { return v.WriteU64(off, math.Float64bits(x)) }
