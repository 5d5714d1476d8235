// Package mir defines the tagged-variant node types of the mid-level IR
// that the interpreter walks: LValue place expressions, RValue
// expressions, statements, and block terminators. Every node is an
// exhaustively-matched tagged union; an unrecognized Kind is a fatal
// load-time error rather than a silent no-op.
package mir

import "github.com/davidkellis/mir-interp/pkg/types"

// Path names a function, static, or composite in the module tree.
type Path string

// --- LValue -------------------------------------------------------

// LValueKind tags the variant of an LValue node.
type LValueKind int

const (
	LVReturn LValueKind = iota
	LVLocal
	LVArg
	LVStatic
	LVField
	LVDowncast
	LVIndex
	LVDeref
)

// LValue is a syntactic place expression. Local/Arg/Field carry their
// operand in Index; Downcast carries VariantIdx; Field/Downcast/Index/Deref
// nest a Base place; Index reads its index operand from IdxLValue.
type LValue struct {
	Kind      LValueKind
	Index     int     // Local i / Arg i / Field i
	Static    Path    // LVStatic
	Base      *LValue // Field/Downcast/Index/Deref
	VariantIdx int    // LVDowncast
	IdxLValue *LValue // LVIndex: the place holding the index operand
}

// --- Constant -------------------------------------------------------

// ConstKind tags the variant of a Constant node.
type ConstKind int

const (
	CInt ConstKind = iota
	CUint
	CBool
	CFloat
	CStaticString
	CItemAddr
)

// Constant is a literal RValue operand.
type Constant struct {
	Kind    ConstKind
	IntVal  int64
	UintVal uint64
	BoolVal bool
	FloatVal float64
	Type    types.Type // target numeric/bool/float type for Int/Uint/Bool/Float
	Bytes   []byte     // CStaticString payload
	Path    Path       // CItemAddr target
}

// --- RValue -------------------------------------------------------

// BinOpKind enumerates the binary operators.
type BinOpKind int

const (
	OpEQ BinOpKind = iota
	OpNE
	OpLT
	OpLE
	OpGT
	OpGE
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpShl
	OpShr
)

// UniOpKind enumerates the unary operators.
type UniOpKind int

const (
	OpInv UniOpKind = iota
	OpNeg
)

// BorrowKind distinguishes a shared borrow from a raw pointer-producing
// borrow; both follow the same projection and promotion steps.
type BorrowKind int

const (
	BorrowShared BorrowKind = iota
	BorrowUnique
	BorrowRaw
)

// RValueKind tags the variant of an RValue node.
type RValueKind int

const (
	RVUse RValueKind = iota
	RVConstant
	RVBorrow
	RVCast
	RVBinOp
	RVUniOp
	RVTuple
	RVArray
	RVSizedArray
	RVVariant
	RVStruct
	RVDstMeta
	RVDstPtr
	RVMakeDst
)

// RValue is a syntactic expression that produces a Value. The fields
// populated depend on Kind; see the evaluator in pkg/interp for the
// exact contract of each variant.
type RValue struct {
	Kind RValueKind

	Use     *LValue    // RVUse
	Const   *Constant  // RVConstant
	Borrow  BorrowKind // RVBorrow
	Place   *LValue    // RVBorrow / RVDstMeta / RVDstPtr operand

	CastSrc  *RValue    // RVCast
	CastDst  types.Type // RVCast

	BinOp BinOpKind // RVBinOp
	Left  *RValue   // RVBinOp / RVUniOp operand / RVMakeDst ptr
	Right *RValue   // RVBinOp / RVMakeDst meta

	UniOp UniOpKind // RVUniOp

	Elems []*RValue // RVTuple / RVArray / RVStruct field initializers (in field order)

	SizedElem  *RValue // RVSizedArray
	SizedCount uint64  // RVSizedArray

	VariantPath  Path    // RVVariant: composite name
	VariantIndex int     // RVVariant
	VariantVal   *RValue // RVVariant payload, nil for payloadless variants
}
