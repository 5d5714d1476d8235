package mir

import "github.com/davidkellis/mir-interp/pkg/types"

// Block is a single basic block: a straight-line list of statements
// followed by exactly one terminator.
type Block struct {
	Statements []Statement
	Term       Terminator
}

// ExternDesc describes a function's foreign-ABI linkage. A FunctionDef
// with a non-empty Name bypasses the block executor entirely and is
// routed to the extern handler instead of being recursed into.
type ExternDesc struct {
	Name string // link name; empty for ordinary MIR functions
	ABI  string
}

// FunctionDef is the loader's view of a function: its signature, its
// basic blocks (empty for extern functions), its local slots, and its
// drop-flag count.
type FunctionDef struct {
	Path       Path
	ParamTypes []types.Type
	RetType    types.Type
	LocalTypes []types.Type
	NumDropFlags int
	Blocks     []Block
	Extern     ExternDesc
}

// IsExtern reports whether this function is implemented outside the MIR
// interpreter and must be routed to the extern handler.
func (f *FunctionDef) IsExtern() bool {
	return f.Extern.Name != ""
}
