package value

import "testing"

func TestRefIntoValueReadWrite(t *testing.T) {
	v := Zero(8)
	if err := v.WriteU32(4, 7); err != nil {
		t.Fatal(err)
	}
	r := RefIntoValue(v, 4, 4)

	got, err := r.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	gotU, err := got.ReadU32(0)
	if err != nil || gotU != 7 {
		t.Fatalf("Read() contents = %d, %v, want 7", gotU, err)
	}

	repl := Zero(4)
	if err := repl.WriteU32(0, 99); err != nil {
		t.Fatal(err)
	}
	if err := r.Write(repl); err != nil {
		t.Fatalf("Write: %v", err)
	}
	gotAfter, err := v.ReadU32(4)
	if err != nil || gotAfter != 99 {
		t.Fatalf("after Write, v[4:8] = %d, %v, want 99", gotAfter, err)
	}
}

func TestRefIntoAllocationReadWrite(t *testing.T) {
	a := NewAllocation(8)
	r := RefIntoAllocation(a, 0, 8)
	if !r.HasAllocation() {
		t.Fatal("RefIntoAllocation should report HasAllocation")
	}
	v := Zero(8)
	if err := v.WriteU64(0, 0x1122334455667788); err != nil {
		t.Fatal(err)
	}
	if err := r.Write(v); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := a.ReadU64(0)
	if err != nil || got != 0x1122334455667788 {
		t.Fatalf("a.ReadU64(0) = %#x, %v", got, err)
	}
}

func TestRefWriteSizeMismatch(t *testing.T) {
	v := Zero(8)
	r := RefIntoValue(v, 0, 4)
	wrong := Zero(8)
	if err := r.Write(wrong); err == nil {
		t.Fatal("Write with mismatched size should error")
	}
}

func TestRefSubBoundsChecking(t *testing.T) {
	v := Zero(16)
	r := RefIntoValue(v, 0, 8)
	sub, err := r.Sub(4, 4)
	if err != nil {
		t.Fatalf("Sub(4,4) within bounds: %v", err)
	}
	if sub.Offset != 4 || sub.Size != 4 {
		t.Fatalf("Sub(4,4) = offset %d size %d, want 4,4", sub.Offset, sub.Size)
	}
	if _, err := r.Sub(6, 4); err == nil {
		t.Fatal("Sub(6,4) should exceed the projected size of 8 and error")
	}
}

func TestRefPromoteAndPrimitiveAccessors(t *testing.T) {
	v := Zero(8)
	r := RefIntoValue(v, 0, 8)
	if r.HasAllocation() {
		t.Fatal("a fresh unpromoted value ref should not report HasAllocation")
	}
	a := r.Promote()
	if a == nil {
		t.Fatal("Promote should return a non-nil allocation")
	}
	if !v.IsPromoted() {
		t.Fatal("Promote should promote the underlying value")
	}

	if err := v.WriteU8(0, 5); err != nil {
		t.Fatal(err)
	}
	if got, err := r.ReadU8(); err != nil || got != 5 {
		t.Fatalf("ReadU8() = %d, %v, want 5", got, err)
	}

	v2 := Zero(8)
	if err := v2.WriteUSize(0, 42); err != nil {
		t.Fatal(err)
	}
	r2 := RefIntoValue(v2, 0, 8)
	if got, err := r2.ReadUSize(); err != nil || got != 42 {
		t.Fatalf("ReadUSize() = %d, %v, want 42", got, err)
	}
}

func TestRefAtBase(t *testing.T) {
	v := Zero(16)
	a := NewAllocation(4)
	v.AddReloc(Reloc{Offset: 8, Target: a})

	r := RefIntoValue(v, 8, 8)
	reloc, ok := r.RelocAtBase()
	if !ok || reloc.Target != a {
		t.Fatalf("RelocAtBase() = %+v, %v, want a relocation targeting a", reloc, ok)
	}

	r2 := RefIntoValue(v, 0, 8)
	if _, ok := r2.RelocAtBase(); ok {
		t.Fatal("RelocAtBase() at an offset with no relocation should report false")
	}
}
