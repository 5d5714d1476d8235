package value

import "testing"

func TestWriteValueSplicesRelocations(t *testing.T) {
	dst := Zero(16)
	staleAlloc := NewAllocation(4)
	dst.AddReloc(Reloc{Offset: 4, Target: staleAlloc})
	dst.AddReloc(Reloc{Offset: 12, Target: staleAlloc})

	srcAlloc := NewAllocation(4)
	src := Zero(8)
	if err := src.WriteU32(0, 0xAABBCCDD); err != nil {
		t.Fatal(err)
	}
	src.AddReloc(Reloc{Offset: 0, Target: srcAlloc})

	if err := dst.WriteValue(4, src); err != nil {
		t.Fatalf("WriteValue: %v", err)
	}

	// The stale relocation overlapping [4,12) must be gone...
	if _, ok := dst.RelocAt(4); !ok {
		t.Fatal("expected src's relocation to land at offset 4")
	}
	// ...but src's relocation, now shifted to 4, should be the one there.
	r, _ := dst.RelocAt(4)
	if r.Target != srcAlloc {
		t.Fatalf("relocation at 4 targets %v, want srcAlloc", r.Target)
	}
	// The relocation at 12 (outside [4,12)) must survive untouched.
	if r2, ok := dst.RelocAt(12); !ok || r2.Target != staleAlloc {
		t.Fatal("relocation at 12 should have survived the write")
	}

	got, err := dst.ReadU32(4)
	if err != nil || got != 0xAABBCCDD {
		t.Fatalf("ReadU32(4) = %d, %v, want 0xAABBCCDD", got, err)
	}
}

func TestWriteBytesInvalidatesOverlappingRelocations(t *testing.T) {
	v := Zero(8)
	a := NewAllocation(4)
	v.AddReloc(Reloc{Offset: 2, Target: a})
	if err := v.WriteBytes(0, []byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	if _, ok := v.RelocAt(2); ok {
		t.Fatal("relocation at offset 2 should have been removed by an overlapping write")
	}
}

func TestPromotionSharesAllocation(t *testing.T) {
	v := Zero(4)
	if v.IsPromoted() {
		t.Fatal("freshly zeroed value should not be promoted")
	}
	a1 := v.Allocation()
	if !v.IsPromoted() {
		t.Fatal("Allocation() should promote the value")
	}
	a2 := v.Allocation()
	if a1 != a2 {
		t.Fatal("repeated Allocation() calls should return the same backing allocation")
	}
	if err := a1.WriteU32(0, 42); err != nil {
		t.Fatal(err)
	}
	got, err := v.ReadU32(0)
	if err != nil || got != 42 {
		t.Fatalf("write through the promoted allocation should be visible via the value, got %d, %v", got, err)
	}
}

func TestEqualComparesBytesAndRelocsOrderIndependent(t *testing.T) {
	a := NewAllocation(4)
	b := NewAllocation(4)

	v1 := Zero(8)
	v1.AddReloc(Reloc{Offset: 0, Target: a})
	v1.AddReloc(Reloc{Offset: 4, Target: b})

	v2 := Zero(8)
	v2.AddReloc(Reloc{Offset: 4, Target: b})
	v2.AddReloc(Reloc{Offset: 0, Target: a})

	if !Equal(v1, v2) {
		t.Fatal("values with the same bytes and relocations in different order should be Equal")
	}

	v3 := Zero(8)
	v3.AddReloc(Reloc{Offset: 0, Target: a})
	if Equal(v1, v3) {
		t.Fatal("values with different relocation sets should not be Equal")
	}
}

func TestScalarRoundTrip(t *testing.T) {
	v := Zero(8)
	if err := v.WriteI64(0, -1); err != nil {
		t.Fatal(err)
	}
	got, err := v.ReadU64(0)
	if err != nil || got != 0xFFFFFFFFFFFFFFFF {
		t.Fatalf("ReadU64 after WriteI64(-1) = %#x, %v, want all-ones", got, err)
	}

	f := Zero(4)
	if err := f.WriteF32(0, 3.5); err != nil {
		t.Fatal(err)
	}
	gotF, err := f.ReadF32(0)
	if err != nil || gotF != 3.5 {
		t.Fatalf("ReadF32 after WriteF32(3.5) = %v, %v", gotF, err)
	}
}
