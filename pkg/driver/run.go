// Package driver wires a loaded module tree to the interpreter engine:
// it resolves the "start" lang item, invokes it with the fixed argc/argv
// entry arguments, and reports the result or a fatal error to the user.
package driver

import (
	"github.com/davidkellis/mir-interp/pkg/interp"
	"github.com/davidkellis/mir-interp/pkg/module"
	"github.com/davidkellis/mir-interp/pkg/types"
	"github.com/davidkellis/mir-interp/pkg/value"
)

// Run loads the module tree at path, executes its entry function, and
// reports the outcome. It returns the process exit code.
func Run(path string) int {
	tree, err := module.LoadYAMLFile(path)
	if err != nil {
		printFatal("load error", err)
		return 1
	}

	engine := interp.NewEngine(tree, nil)

	startPath, err := tree.LangItem("start")
	if err != nil {
		printFatal("lang item error", err)
		return 1
	}
	fn, err := tree.Function(startPath)
	if err != nil {
		printFatal("lang item error", err)
		return 1
	}

	ret, err := engine.Call(fn, entryArgs())
	if err != nil {
		printFatal("execution error", err)
		return 1
	}

	rendered, err := FormatValue(engine, ret, fn.RetType)
	if err != nil {
		printFatal("display error", err)
		return 1
	}
	printResult(rendered)
	return 0
}

// entryArgs builds the fixed entry signature: argc: i32 = 0 and
// argv: **i8 = null. The interpreter never parses its own argv through
// the interpreted program, so the values are always this pair.
func entryArgs() []*value.Value {
	argc := value.Zero(4) // i32
	argv := value.Zero(types.PointerWidth)
	return []*value.Value{argc, argv}
}
