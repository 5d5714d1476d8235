package interp

import (
	"testing"

	"github.com/davidkellis/mir-interp/pkg/mir"
	"github.com/davidkellis/mir-interp/pkg/module"
	"github.com/davidkellis/mir-interp/pkg/types"
	"github.com/davidkellis/mir-interp/pkg/value"
)

// S1: arithmetic — return (3 + 4) * 2 as i32.
func TestArithmeticReturnsComputedValue(t *testing.T) {
	fn := &mir.FunctionDef{
		Path:    "test::arith",
		RetType: types.Prim(types.I32),
		Blocks: []mir.Block{
			{
				Term: mir.Terminator{
					Kind: mir.TReturn,
					RetVal: &mir.LValue{Kind: mir.LVReturn},
				},
			},
		},
	}
	// Build the block's single assign statement separately: return = (3+4)*2
	sum := &mir.RValue{
		Kind:  mir.RVBinOp,
		BinOp: mir.OpAdd,
		Left:  &mir.RValue{Kind: mir.RVConstant, Const: &mir.Constant{Kind: mir.CInt, IntVal: 3, Type: types.Prim(types.I32)}},
		Right: &mir.RValue{Kind: mir.RVConstant, Const: &mir.Constant{Kind: mir.CInt, IntVal: 4, Type: types.Prim(types.I32)}},
	}
	product := &mir.RValue{
		Kind:  mir.RVBinOp,
		BinOp: mir.OpMul,
		Left:  sum,
		Right: &mir.RValue{Kind: mir.RVConstant, Const: &mir.Constant{Kind: mir.CInt, IntVal: 2, Type: types.Prim(types.I32)}},
	}
	fn.Blocks[0].Statements = []mir.Statement{
		{Kind: mir.SAssign, Dest: &mir.LValue{Kind: mir.LVReturn}, Source: product},
	}

	tree := module.NewStaticTree()
	engine := NewEngine(tree, nil)
	ret, err := engine.Call(fn, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	got, err := ret.ReadI32(0)
	if err != nil || got != 14 {
		t.Fatalf("result = %d, %v, want 14", got, err)
	}
}

// S2: pointer round trip — borrow a local, write through the deref, read
// back the local directly.
func TestPointerRoundTrip(t *testing.T) {
	u32 := types.Prim(types.U32)
	ptrTy := types.Type{Wrappers: []types.Wrapper{{Kind: types.WBorrow}}, Prim: types.U32}

	fn := &mir.FunctionDef{
		Path:       "test::ptr_roundtrip",
		RetType:    u32,
		LocalTypes: []types.Type{u32, ptrTy},
		Blocks: []mir.Block{
			{
				Statements: []mir.Statement{
					// local0 = 10
					{Kind: mir.SAssign, Dest: &mir.LValue{Kind: mir.LVLocal, Index: 0}, Source: &mir.RValue{
						Kind: mir.RVConstant, Const: &mir.Constant{Kind: mir.CInt, IntVal: 10, Type: u32},
					}},
					// local1 = &local0
					{Kind: mir.SAssign, Dest: &mir.LValue{Kind: mir.LVLocal, Index: 1}, Source: &mir.RValue{
						Kind: mir.RVBorrow, Borrow: mir.BorrowUnique, Place: &mir.LValue{Kind: mir.LVLocal, Index: 0},
					}},
					// *local1 = 99
					{Kind: mir.SAssign, Dest: &mir.LValue{Kind: mir.LVDeref, Base: &mir.LValue{Kind: mir.LVLocal, Index: 1}}, Source: &mir.RValue{
						Kind: mir.RVConstant, Const: &mir.Constant{Kind: mir.CInt, IntVal: 99, Type: u32},
					}},
					// return = local0
					{Kind: mir.SAssign, Dest: &mir.LValue{Kind: mir.LVReturn}, Source: &mir.RValue{
						Kind: mir.RVUse, Use: &mir.LValue{Kind: mir.LVLocal, Index: 0},
					}},
				},
				Term: mir.Terminator{Kind: mir.TReturn},
			},
		},
	}

	tree := module.NewStaticTree()
	engine := NewEngine(tree, nil)
	ret, err := engine.Call(fn, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	got, err := ret.ReadU32(0)
	if err != nil || got != 99 {
		t.Fatalf("result = %d, %v, want 99 (the write through the pointer should be visible at local0)", got, err)
	}
}

// S3: variant tag switch — a two-variant composite (None/Some(u32)),
// switching on the tag picks the matching block.
func TestVariantTagSwitch(t *testing.T) {
	optionTy := types.CompositeRef("Option")
	comp := &types.Composite{
		Name: "Option",
		Size: 8,
		Fields: []types.Field{
			{Offset: 0, Type: types.Prim(types.U8)},
			{Offset: 4, Type: types.Prim(types.U32)},
		},
		Variants: []types.Variant{
			{DataField: -1, BaseField: 0, TagData: []byte{0}}, // None
			{DataField: 1, BaseField: 0, TagData: []byte{1}},  // Some
		},
	}

	fn := &mir.FunctionDef{
		Path:       "test::variant_switch",
		RetType:    types.Prim(types.U32),
		LocalTypes: []types.Type{optionTy},
		Blocks: []mir.Block{
			{
				Statements: []mir.Statement{
					{Kind: mir.SAssign, Dest: &mir.LValue{Kind: mir.LVLocal, Index: 0}, Source: &mir.RValue{
						Kind:         mir.RVVariant,
						VariantPath:  "Option",
						VariantIndex: 1,
						VariantVal:   &mir.RValue{Kind: mir.RVConstant, Const: &mir.Constant{Kind: mir.CInt, IntVal: 77, Type: types.Prim(types.U32)}},
					}},
				},
				Term: mir.Terminator{
					Kind:      mir.TSwitch,
					SwitchVal: &mir.LValue{Kind: mir.LVLocal, Index: 0},
					SwitchTargets: []mir.SwitchTarget{
						{VariantIdx: 0, Block: 1},
						{VariantIdx: 1, Block: 2},
					},
					Otherwise: -1,
				},
			},
			{ // block 1: None arm, unreachable in this test
				Statements: []mir.Statement{
					{Kind: mir.SAssign, Dest: &mir.LValue{Kind: mir.LVReturn}, Source: &mir.RValue{
						Kind: mir.RVConstant, Const: &mir.Constant{Kind: mir.CInt, IntVal: 0, Type: types.Prim(types.U32)},
					}},
				},
				Term: mir.Terminator{Kind: mir.TReturn},
			},
			{ // block 2: Some arm, downcast to the payload and return it
				Statements: []mir.Statement{
					{Kind: mir.SAssign, Dest: &mir.LValue{Kind: mir.LVReturn}, Source: &mir.RValue{
						Kind: mir.RVUse, Use: &mir.LValue{
							Kind: mir.LVDowncast, Base: &mir.LValue{Kind: mir.LVLocal, Index: 0}, VariantIdx: 1,
						},
					}},
				},
				Term: mir.Terminator{Kind: mir.TReturn},
			},
		},
	}

	tree := module.NewStaticTree()
	tree.Composites["Option"] = comp
	engine := NewEngine(tree, nil)
	ret, err := engine.Call(fn, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	got, err := ret.ReadU32(0)
	if err != nil || got != 77 {
		t.Fatalf("result = %d, %v, want 77 (switch should select the Some arm)", got, err)
	}
}

// S4: fat pointer — build a &str from a static string constant, read its
// dst_meta (length), and return it as usize.
func TestFatPointerMetadata(t *testing.T) {
	strTy := types.Type{Wrappers: []types.Wrapper{{Kind: types.WBorrow}}, Prim: types.Str}
	ptrLocalTy := strTy

	fn := &mir.FunctionDef{
		Path:       "test::fat_ptr_meta",
		RetType:    types.Prim(types.USize),
		LocalTypes: []types.Type{ptrLocalTy},
		Blocks: []mir.Block{
			{
				Statements: []mir.Statement{
					{Kind: mir.SAssign, Dest: &mir.LValue{Kind: mir.LVLocal, Index: 0}, Source: &mir.RValue{
						Kind: mir.RVConstant, Const: &mir.Constant{Kind: mir.CStaticString, Bytes: []byte("hello")},
					}},
					{Kind: mir.SAssign, Dest: &mir.LValue{Kind: mir.LVReturn}, Source: &mir.RValue{
						Kind: mir.RVDstMeta, Place: &mir.LValue{Kind: mir.LVLocal, Index: 0},
					}},
				},
				Term: mir.Terminator{Kind: mir.TReturn},
			},
		},
	}

	tree := module.NewStaticTree()
	engine := NewEngine(tree, nil)
	ret, err := engine.Call(fn, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	got, err := ret.ReadUSize(0)
	if err != nil || got != 5 {
		t.Fatalf("result = %d, %v, want 5 (len of \"hello\")", got, err)
	}
}

// S5: cast numeric sign extension — i8(-1) cast to i32 should read back as
// -1, not 255.
func TestCastSignExtension(t *testing.T) {
	fn := &mir.FunctionDef{
		Path:    "test::cast_sext",
		RetType: types.Prim(types.I32),
		Blocks: []mir.Block{
			{
				Statements: []mir.Statement{
					{Kind: mir.SAssign, Dest: &mir.LValue{Kind: mir.LVReturn}, Source: &mir.RValue{
						Kind:    mir.RVCast,
						CastSrc: &mir.RValue{Kind: mir.RVConstant, Const: &mir.Constant{Kind: mir.CInt, IntVal: -1, Type: types.Prim(types.I8)}},
						CastDst: types.Prim(types.I32),
					}},
				},
				Term: mir.Terminator{Kind: mir.TReturn},
			},
		},
	}
	tree := module.NewStaticTree()
	engine := NewEngine(tree, nil)
	ret, err := engine.Call(fn, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	got, err := ret.ReadI32(0)
	if err != nil || got != -1 {
		t.Fatalf("result = %d, %v, want -1", got, err)
	}
}

// S6: switch default — a three-variant composite where only variant 0 has
// an explicit arm besides the default block; a variant with no explicit
// target falls through to the default.
func TestSwitchDefaultArm(t *testing.T) {
	comp := &types.Composite{
		Name:   "Tri",
		Size:   1,
		Fields: []types.Field{{Offset: 0, Type: types.Prim(types.U8)}},
		Variants: []types.Variant{
			{DataField: -1, BaseField: 0, TagData: []byte{0}},
			{DataField: -1, BaseField: 0, TagData: []byte{1}},
			{DataField: -1, BaseField: 0}, // default (empty TagData)
		},
	}
	triTy := types.CompositeRef("Tri")

	fn := &mir.FunctionDef{
		Path:       "test::switch_default",
		RetType:    types.Prim(types.U32),
		LocalTypes: []types.Type{triTy},
		Blocks: []mir.Block{
			{
				Statements: []mir.Statement{
					{Kind: mir.SAssign, Dest: &mir.LValue{Kind: mir.LVLocal, Index: 0}, Source: &mir.RValue{
						Kind: mir.RVVariant, VariantPath: "Tri", VariantIndex: 1,
					}},
				},
				Term: mir.Terminator{
					Kind:      mir.TSwitch,
					SwitchVal: &mir.LValue{Kind: mir.LVLocal, Index: 0},
					SwitchTargets: []mir.SwitchTarget{
						{VariantIdx: 0, Block: 1},
					},
					Otherwise: 2,
				},
			},
			{
				Statements: []mir.Statement{
					{Kind: mir.SAssign, Dest: &mir.LValue{Kind: mir.LVReturn}, Source: &mir.RValue{
						Kind: mir.RVConstant, Const: &mir.Constant{Kind: mir.CInt, IntVal: 0, Type: types.Prim(types.U32)},
					}},
				},
				Term: mir.Terminator{Kind: mir.TReturn},
			},
			{ // default block
				Statements: []mir.Statement{
					{Kind: mir.SAssign, Dest: &mir.LValue{Kind: mir.LVReturn}, Source: &mir.RValue{
						Kind: mir.RVConstant, Const: &mir.Constant{Kind: mir.CInt, IntVal: 1, Type: types.Prim(types.U32)},
					}},
				},
				Term: mir.Terminator{Kind: mir.TReturn},
			},
		},
	}

	tree := module.NewStaticTree()
	tree.Composites["Tri"] = comp
	engine := NewEngine(tree, nil)
	ret, err := engine.Call(fn, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	got, err := ret.ReadU32(0)
	if err != nil || got != 1 {
		t.Fatalf("result = %d, %v, want 1 (variant 1 has no explicit arm, so the switch falls to the default block)", got, err)
	}
}

// Property: projecting the same lvalue twice and writing through the first
// ref must be visible through the second (projection doesn't copy storage).
func TestProjectionRoundTripSharesStorage(t *testing.T) {
	u32 := types.Prim(types.U32)
	fn := &mir.FunctionDef{
		Path:       "test::proj_roundtrip",
		RetType:    u32,
		LocalTypes: []types.Type{u32},
	}
	tree := module.NewStaticTree()
	engine := NewEngine(tree, nil)
	fr, err := newFrame(fn, engine, nil)
	if err != nil {
		t.Fatal(err)
	}

	lv := &mir.LValue{Kind: mir.LVLocal, Index: 0}
	ref1, _, err := engine.Project(fr, lv)
	if err != nil {
		t.Fatal(err)
	}
	v := value.Zero(4)
	v.WriteU32(0, 123)
	if err := ref1.Write(v); err != nil {
		t.Fatal(err)
	}

	ref2, _, err := engine.Project(fr, lv)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ref2.Read()
	if err != nil {
		t.Fatal(err)
	}
	gotU, err := got.ReadU32(0)
	if err != nil || gotU != 123 {
		t.Fatalf("second projection read = %d, %v, want 123", gotU, err)
	}
}

// SetDropFlag: the none-other case assigns NewVal directly; the
// other-present case XORs the other flag's value with NewVal, per
// drop_flags[idx] = drop_flags[other] != new_val.
func TestSetDropFlagSemantics(t *testing.T) {
	fn := &mir.FunctionDef{
		Path:         "test::set_drop_flag",
		RetType:      types.Prim(types.Unit),
		NumDropFlags: 2,
	}
	tree := module.NewStaticTree()
	engine := NewEngine(tree, nil)
	fr, err := newFrame(fn, engine, nil)
	if err != nil {
		t.Fatal(err)
	}

	none := func(idx int, newVal bool) error {
		return engine.execStatement(fr, &mir.Statement{
			Kind: mir.SSetDropFlag, FlagIdx: idx, NewVal: newVal, OtherIdx: mir.DropFlagNone,
		})
	}
	other := func(idx, otherIdx int, newVal bool) error {
		return engine.execStatement(fr, &mir.Statement{
			Kind: mir.SSetDropFlag, FlagIdx: idx, NewVal: newVal, OtherIdx: otherIdx,
		})
	}

	if err := none(0, true); err != nil {
		t.Fatal(err)
	}
	if !fr.dropFlags[0] {
		t.Fatalf("dropFlags[0] = false, want true after SetDropFlag(none, true)")
	}

	// other present, NewVal=false: idx should copy other's value (true).
	if err := other(1, 0, false); err != nil {
		t.Fatal(err)
	}
	if !fr.dropFlags[1] {
		t.Fatalf("dropFlags[1] = false, want true (other=true XOR new_val=false = true)")
	}

	// other present, NewVal=true: idx should invert other's value (true -> false).
	if err := other(1, 0, true); err != nil {
		t.Fatal(err)
	}
	if fr.dropFlags[1] {
		t.Fatalf("dropFlags[1] = true, want false (other=true XOR new_val=true = false)")
	}
}

// Property: a cast from a type to itself must be the identity.
func TestCastIdentity(t *testing.T) {
	tree := module.NewStaticTree()
	engine := NewEngine(tree, nil)
	src := value.Zero(4)
	src.WriteU32(0, 0xDEADBEEF)
	out, err := engine.castValue(src, types.Prim(types.U32), types.Prim(types.U32))
	if err != nil {
		t.Fatal(err)
	}
	got, err := out.ReadU32(0)
	if err != nil || got != 0xDEADBEEF {
		t.Fatalf("identity cast = %#x, %v, want 0xDEADBEEF", got, err)
	}
}

// Property: casting to a non-numeric, non-pointer target is rejected
// rather than silently truncated.
func TestCastRejectsUnsupportedTargets(t *testing.T) {
	tree := module.NewStaticTree()
	tree.Composites["SomeStruct"] = &types.Composite{Name: "SomeStruct", Size: 4}
	engine := NewEngine(tree, nil)
	src := value.Zero(4)
	src.WriteU32(0, 1)

	for _, dstTy := range []types.Type{
		types.Prim(types.Bool),
		types.Prim(types.Unit),
		types.Prim(types.Str),
		types.CompositeRef("SomeStruct"),
	} {
		_, err := engine.castValue(src, types.Prim(types.U32), dstTy)
		if err == nil {
			t.Fatalf("castValue(u32 -> %s) = nil error, want a cast error", types.Describe(dstTy))
		}
		execErr, ok := err.(*ExecError)
		if !ok || execErr.Category != CategoryCast {
			t.Fatalf("castValue(u32 -> %s) error = %v, want a CategoryCast *ExecError", types.Describe(dstTy), err)
		}
	}
}
