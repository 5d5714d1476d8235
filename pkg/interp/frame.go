// Package interp is the execution engine: the LValue projector, the
// RValue evaluator, and the basic-block executor that together walk a
// module tree starting from its entry function.
package interp

import (
	"fmt"

	"github.com/davidkellis/mir-interp/pkg/mir"
	"github.com/davidkellis/mir-interp/pkg/module"
	"github.com/davidkellis/mir-interp/pkg/types"
	"github.com/davidkellis/mir-interp/pkg/value"
)

// Frame is the per-call activation record: the return slot, the moved-in
// argument values, the local slots (created zeroed at entry), and the
// drop-flag bits that gate Drop statements. Unreachable locals are
// allocated a zero-size Value and are never otherwise accessed.
type Frame struct {
	fn        *mir.FunctionDef
	ret       *value.Value
	args      []*value.Value
	locals    []*value.Value
	dropFlags []bool
	block     int
}

func newFrame(fn *mir.FunctionDef, reg types.Registry, args []*value.Value) (*Frame, error) {
	retSize, err := types.SizeOf(reg, fn.RetType)
	if err != nil {
		return nil, typeModelErr("return type %s: %v", types.Describe(fn.RetType), err)
	}
	fr := &Frame{
		fn:        fn,
		ret:       value.Zero(retSize),
		args:      args,
		dropFlags: make([]bool, fn.NumDropFlags),
	}
	fr.locals = make([]*value.Value, len(fn.LocalTypes))
	for i, lt := range fn.LocalTypes {
		if lt.Prim == types.Unreachable && len(lt.Wrappers) == 0 {
			fr.locals[i] = value.Zero(0)
			continue
		}
		size, err := types.SizeOf(reg, lt)
		if err != nil {
			return nil, typeModelErr("local %d type %s: %v", i, types.Describe(lt), err)
		}
		fr.locals[i] = value.Zero(size)
	}
	return fr, nil
}

// localType returns the declared type of local i.
func (fr *Frame) localType(i int) (types.Type, error) {
	if i < 0 || i >= len(fr.fn.LocalTypes) {
		return types.Type{}, projectionErr("local index %d out of range (%d locals)", i, len(fr.fn.LocalTypes))
	}
	return fr.fn.LocalTypes[i], nil
}

func (fr *Frame) argType(i int) (types.Type, error) {
	if i < 0 || i >= len(fr.fn.ParamTypes) {
		return types.Type{}, projectionErr("arg index %d out of range (%d args)", i, len(fr.fn.ParamTypes))
	}
	return fr.fn.ParamTypes[i], nil
}

// Engine holds the module tree and the extern/intrinsic tables used to
// drive recursion into the block executor.
type Engine struct {
	Tree     module.Tree
	Extern   ExternHandler
	Printer  func(v *value.Value, ty types.Type)
	maxDepth int
	depth    int
}

// ExternHandler is the out-of-scope collaborator that implements
// functions whose descriptor carries a non-empty link name.
type ExternHandler interface {
	Call(path mir.Path, extern mir.ExternDesc, args []*value.Value, argTypes []types.Type, retType types.Type) (*value.Value, error)
}

// NewEngine builds an Engine over a module tree. extern may be nil, in
// which case any call to a function with a link name is a fatal extern
// error.
func NewEngine(tree module.Tree, extern ExternHandler) *Engine {
	return &Engine{Tree: tree, Extern: extern, maxDepth: 10000}
}

// Composite implements types.Registry by delegating to the module tree.
func (e *Engine) Composite(name string) (*types.Composite, error) {
	return e.Tree.Composite(name)
}

var _ types.Registry = (*Engine)(nil)

func (e *Engine) enter() error {
	e.depth++
	if e.depth > e.maxDepth {
		e.depth--
		return fmt.Errorf("interp: recursion depth exceeded %d", e.maxDepth)
	}
	return nil
}

func (e *Engine) leave() { e.depth-- }
