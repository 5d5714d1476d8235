// Package module defines the module-tree loader interface the
// interpreter consumes (FunctionDef, CompositeDescriptor, and static
// lookup by path, plus lang-item resolution) and a concrete YAML-backed
// loader that implements it for standalone use and testing.
package module

import (
	"fmt"

	"github.com/davidkellis/mir-interp/pkg/mir"
	"github.com/davidkellis/mir-interp/pkg/types"
	"github.com/davidkellis/mir-interp/pkg/value"
)

// Tree is the parsed module tree: the contract the interpreter's core
// consumes from whatever produced it (in this repo, the YAML loader in
// this package; in a production toolchain, a binary deserializer
// outside this module's scope).
type Tree interface {
	// Function looks up a function definition by path. A missing path
	// is a load-time error.
	Function(path mir.Path) (*mir.FunctionDef, error)
	// FunctionOpt looks up a function definition by path, returning
	// ok=false rather than an error when absent. Used by drop dispatch
	// to find optional `<composite>#drop` glue; ItemAddr constants do
	// not consult it and do not check that their target exists.
	FunctionOpt(path mir.Path) (*mir.FunctionDef, bool)
	// Static returns the Value backing a process-wide static.
	Static(path mir.Path) (*value.Value, error)
	// StaticType returns the declared type of a process-wide static.
	StaticType(path mir.Path) (types.Type, error)
	// Composite resolves a composite descriptor by name. Composite
	// implements types.Registry so the type model can be driven
	// directly by a Tree.
	Composite(name string) (*types.Composite, error)
	// LangItem resolves a well-known path by name (e.g. "start").
	LangItem(name string) (mir.Path, error)
}

// StaticTree is a plain in-memory implementation of Tree, built either
// directly (NewStaticTree plus map assignments) or by decoding a YAML
// module-tree file (see yaml.go and build.go).
type StaticTree struct {
	Functions   map[mir.Path]*mir.FunctionDef
	Statics     map[mir.Path]*value.Value
	StaticTypes map[mir.Path]types.Type
	Composites  map[string]*types.Composite
	LangItems   map[string]mir.Path
}

// NewStaticTree returns an empty tree ready to be populated.
func NewStaticTree() *StaticTree {
	return &StaticTree{
		Functions:   make(map[mir.Path]*mir.FunctionDef),
		Statics:     make(map[mir.Path]*value.Value),
		StaticTypes: make(map[mir.Path]types.Type),
		Composites:  make(map[string]*types.Composite),
		LangItems:   make(map[string]mir.Path),
	}
}

func (t *StaticTree) Function(path mir.Path) (*mir.FunctionDef, error) {
	fn, ok := t.Functions[path]
	if !ok {
		return nil, fmt.Errorf("module: no function %q in module tree", path)
	}
	return fn, nil
}

func (t *StaticTree) FunctionOpt(path mir.Path) (*mir.FunctionDef, bool) {
	fn, ok := t.Functions[path]
	return fn, ok
}

func (t *StaticTree) Static(path mir.Path) (*value.Value, error) {
	v, ok := t.Statics[path]
	if !ok {
		return nil, fmt.Errorf("module: no static %q in module tree", path)
	}
	return v, nil
}

func (t *StaticTree) StaticType(path mir.Path) (types.Type, error) {
	ty, ok := t.StaticTypes[path]
	if !ok {
		return types.Type{}, fmt.Errorf("module: no static %q in module tree", path)
	}
	return ty, nil
}

func (t *StaticTree) Composite(name string) (*types.Composite, error) {
	c, ok := t.Composites[name]
	if !ok {
		return nil, fmt.Errorf("module: no composite %q in module tree", name)
	}
	return c, nil
}

func (t *StaticTree) LangItem(name string) (mir.Path, error) {
	p, ok := t.LangItems[name]
	if !ok {
		return "", fmt.Errorf("module: lang item %q not found", name)
	}
	return p, nil
}
