package types

import "testing"

type fakeRegistry map[string]*Composite

func (r fakeRegistry) Composite(name string) (*Composite, error) {
	c, ok := r[name]
	if !ok {
		return nil, errNotFound(name)
	}
	return c, nil
}

type errNotFound string

func (e errNotFound) Error() string { return "no composite " + string(e) }

func TestSizeOfScalars(t *testing.T) {
	cases := []struct {
		ty   Type
		want uint64
	}{
		{Prim(Unreachable), 0},
		{Prim(Unit), 0},
		{Prim(Bool), 1},
		{Prim(U8), 1},
		{Prim(I8), 1},
		{Prim(Char), 2},
		{Prim(U16), 2},
		{Prim(U32), 4},
		{Prim(F32), 4},
		{Prim(U64), 8},
		{Prim(F64), 8},
		{Prim(U128), 16},
		{Prim(I128), 16},
		{Prim(USize), 8},
		{Prim(ISize), 8},
		{Prim(Function), 8},
	}
	for _, c := range cases {
		got, err := SizeOf(fakeRegistry{}, c.ty)
		if err != nil {
			t.Fatalf("SizeOf(%s): %v", Describe(c.ty), err)
		}
		if got != c.want {
			t.Errorf("SizeOf(%s) = %d, want %d", Describe(c.ty), got, c.want)
		}
	}
}

func TestSizeOfWrappers(t *testing.T) {
	thinPtr := Type{Wrappers: []Wrapper{{Kind: WBorrow}}, Prim: U32}
	if got, err := SizeOf(fakeRegistry{}, thinPtr); err != nil || got != PointerWidth {
		t.Fatalf("SizeOf(&u32) = %d, %v, want %d", got, err, PointerWidth)
	}

	fatPtr := Type{Wrappers: []Wrapper{{Kind: WBorrow}}, Prim: Str}
	if got, err := SizeOf(fakeRegistry{}, fatPtr); err != nil || got != 2*PointerWidth {
		t.Fatalf("SizeOf(&str) = %d, %v, want %d", got, err, 2*PointerWidth)
	}

	arr := Type{Wrappers: []Wrapper{{Kind: WArray, Len: 4}}, Prim: U32}
	if got, err := SizeOf(fakeRegistry{}, arr); err != nil || got != 16 {
		t.Fatalf("SizeOf([u32;4]) = %d, %v, want 16", got, err)
	}

	slice := Type{Wrappers: []Wrapper{{Kind: WSlice}}, Prim: U32}
	if _, err := SizeOf(fakeRegistry{}, slice); err == nil {
		t.Fatal("SizeOf([u32]) should be an error: slice has no standalone size")
	}
}

func TestInnerAndOuter(t *testing.T) {
	ty := Type{Wrappers: []Wrapper{{Kind: WPointer}, {Kind: WArray, Len: 3}}, Prim: U8}
	outer, ok := ty.Outer()
	if !ok || outer.Kind != WPointer {
		t.Fatalf("Outer() = %+v, %v, want WPointer", outer, ok)
	}
	inner, err := Inner(ty)
	if err != nil {
		t.Fatalf("Inner: %v", err)
	}
	if outer2, ok := inner.Outer(); !ok || outer2.Kind != WArray || outer2.Len != 3 {
		t.Fatalf("Inner().Outer() = %+v, %v, want WArray(3)", outer2, ok)
	}
	if _, err := Inner(Prim(U8)); err == nil {
		t.Fatal("Inner() of a bare primitive should error")
	}
}

func TestHasSliceMetadata(t *testing.T) {
	cases := []struct {
		ty   Type
		want bool
	}{
		{Type{Wrappers: []Wrapper{{Kind: WBorrow}}, Prim: Str}, true},
		{Type{Wrappers: []Wrapper{{Kind: WBorrow}, {Kind: WSlice}}, Prim: U8}, true},
		{Type{Wrappers: []Wrapper{{Kind: WBorrow}}, Prim: U32}, false},
		{Prim(U32), false},
	}
	for _, c := range cases {
		if got := HasSliceMetadata(c.ty); got != c.want {
			t.Errorf("HasSliceMetadata(%s) = %v, want %v", Describe(c.ty), got, c.want)
		}
	}
}

func TestCompositeFieldOffset(t *testing.T) {
	comp := &Composite{
		Name: "Point",
		Size: 8,
		Fields: []Field{
			{Offset: 0, Type: Prim(U32)},
			{Offset: 4, Type: Prim(U32)},
		},
	}
	off, ty, err := comp.FieldOffset(1)
	if err != nil {
		t.Fatalf("FieldOffset(1): %v", err)
	}
	if off != 4 || ty.Prim != U32 {
		t.Errorf("FieldOffset(1) = (%d, %s), want (4, u32)", off, Describe(ty))
	}
	if _, _, err := comp.FieldOffset(5); err == nil {
		t.Fatal("FieldOffset(5) should be out of range")
	}
}

func TestCompositeVariantPayload(t *testing.T) {
	comp := &Composite{
		Name: "Option",
		Size: 16,
		Fields: []Field{
			{Offset: 0, Type: Prim(U8)},
			{Offset: 8, Type: Prim(U64)},
		},
		Variants: []Variant{
			{DataField: -1, BaseField: 0, TagData: []byte{0x00}},
			{DataField: 1, BaseField: 0, TagData: []byte{0x01}},
		},
	}
	off, ty, err := comp.VariantPayload(1)
	if err != nil {
		t.Fatalf("VariantPayload(1): %v", err)
	}
	if off != 8 || ty.Prim != U64 {
		t.Errorf("VariantPayload(1) = (%d, %s), want (8, u64)", off, Describe(ty))
	}
	if _, _, err := comp.VariantPayload(0); err == nil {
		t.Fatal("VariantPayload of a payloadless variant should error")
	}
}

func TestFieldPathOffset(t *testing.T) {
	inner := &Composite{
		Name:   "Header",
		Size:   4,
		Fields: []Field{{Offset: 0, Type: Prim(U8)}, {Offset: 1, Type: Prim(U8)}},
	}
	outer := &Composite{
		Name:   "Frame",
		Size:   8,
		Fields: []Field{{Offset: 0, Type: CompositeRef("Header")}, {Offset: 4, Type: Prim(U32)}},
	}
	reg := fakeRegistry{"Header": inner, "Frame": outer}

	off, ty, err := FieldPathOffset(reg, outer, 0, []int{1})
	if err != nil {
		t.Fatalf("FieldPathOffset: %v", err)
	}
	if off != 1 || ty.Prim != U8 {
		t.Errorf("FieldPathOffset(outer, 0, [1]) = (%d, %s), want (1, u8)", off, Describe(ty))
	}

	if _, _, err := FieldPathOffset(reg, outer, 1, []int{0}); err == nil {
		t.Fatal("stepping into a non-composite field should error")
	}
}
