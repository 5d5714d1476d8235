package module

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/davidkellis/mir-interp/pkg/mir"
	"github.com/davidkellis/mir-interp/pkg/types"
)

// ValidationError aggregates every structural problem found while
// converting a decoded YAML module-tree file into a StaticTree, so a
// malformed fixture reports everything wrong with it in one pass rather
// than forcing a fix-and-rerun cycle for each issue.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "module: invalid module tree"
	}
	var b strings.Builder
	b.WriteString("module: invalid module tree:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// LoadYAMLFile reads and decodes a YAML module-tree file from disk.
func LoadYAMLFile(path string) (*StaticTree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("module: read %s: %w", path, err)
	}
	return LoadYAML(data)
}

// LoadYAML decodes a YAML module-tree document into a StaticTree.
func LoadYAML(data []byte) (*StaticTree, error) {
	var file moduleFileYAML
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("module: parse module tree: %w", err)
	}
	return file.build()
}

// --- YAML-facing schema ------------------------------------------------
//
// The schema mirrors the mir/types node shapes directly but spells enum
// tags as lowercase strings so fixtures stay readable; build() below
// converts every node into its mir/types/value equivalent and collects
// every conversion failure into a single ValidationError.

type moduleFileYAML struct {
	PointerWidth uint64                `yaml:"pointer_width"`
	LangItems    map[string]string     `yaml:"lang_items"`
	Statics      []staticYAML          `yaml:"statics"`
	Composites   []compositeYAML       `yaml:"composites"`
	Functions    []functionYAML        `yaml:"functions"`
}

type typeYAML struct {
	Wrappers []wrapperYAML `yaml:"wrappers,omitempty"`
	Prim     string        `yaml:"prim"`
	Ref      string        `yaml:"ref,omitempty"`
}

type wrapperYAML struct {
	Kind string `yaml:"kind"`
	Len  uint64 `yaml:"len,omitempty"`
}

type fieldYAML struct {
	Offset uint64   `yaml:"offset"`
	Type   typeYAML `yaml:"type"`
}

type variantYAML struct {
	DataField int    `yaml:"data_field"`
	BaseField int    `yaml:"base_field"`
	FieldPath []int  `yaml:"field_path,omitempty"`
	Tag       []int  `yaml:"tag,omitempty"`
}

type compositeYAML struct {
	Name     string          `yaml:"name"`
	Size     uint64          `yaml:"size"`
	Fields   []fieldYAML     `yaml:"fields,omitempty"`
	Variants []variantYAML   `yaml:"variants,omitempty"`
}

type staticYAML struct {
	Path  string   `yaml:"path"`
	Type  typeYAML `yaml:"type"`
	Bytes []int    `yaml:"bytes,omitempty"`
}

type lvalueYAML struct {
	Kind       string      `yaml:"kind"`
	Index      int         `yaml:"index,omitempty"`
	Static     string      `yaml:"static,omitempty"`
	Base       *lvalueYAML `yaml:"base,omitempty"`
	VariantIdx int         `yaml:"variant_idx,omitempty"`
	IdxLValue  *lvalueYAML `yaml:"idx_lvalue,omitempty"`
}

type constantYAML struct {
	Kind  string   `yaml:"kind"`
	Int   int64    `yaml:"int,omitempty"`
	Uint  uint64   `yaml:"uint,omitempty"`
	Bool  bool     `yaml:"bool,omitempty"`
	Float float64  `yaml:"float,omitempty"`
	Type  typeYAML `yaml:"type,omitempty"`
	Str   string   `yaml:"str,omitempty"`
	Path  string   `yaml:"path,omitempty"`
}

type rvalueYAML struct {
	Kind string `yaml:"kind"`

	Use    *lvalueYAML   `yaml:"use,omitempty"`
	Const  *constantYAML `yaml:"const,omitempty"`
	Borrow string        `yaml:"borrow,omitempty"`
	Place  *lvalueYAML   `yaml:"place,omitempty"`

	CastSrc *rvalueYAML `yaml:"cast_src,omitempty"`
	CastDst typeYAML    `yaml:"cast_dst,omitempty"`

	BinOp string      `yaml:"binop,omitempty"`
	Left  *rvalueYAML `yaml:"left,omitempty"`
	Right *rvalueYAML `yaml:"right,omitempty"`

	UniOp string `yaml:"uniop,omitempty"`

	Elems []*rvalueYAML `yaml:"elems,omitempty"`

	SizedElem  *rvalueYAML `yaml:"sized_elem,omitempty"`
	SizedCount uint64      `yaml:"sized_count,omitempty"`

	VariantPath  string      `yaml:"variant_path,omitempty"`
	VariantIndex int         `yaml:"variant_index,omitempty"`
	VariantVal   *rvalueYAML `yaml:"variant_val,omitempty"`
}

type statementYAML struct {
	Kind string `yaml:"kind"`

	Dest   *lvalueYAML `yaml:"dest,omitempty"`
	Source *rvalueYAML `yaml:"source,omitempty"`

	FlagIdx  int  `yaml:"flag_idx,omitempty"`
	NewVal   bool `yaml:"new_val,omitempty"`
	OtherIdx *int `yaml:"other_idx,omitempty"`

	DropSlot    *lvalueYAML `yaml:"drop_slot,omitempty"`
	DropFlagIdx int         `yaml:"drop_flag_idx,omitempty"`
	Drop        string      `yaml:"drop,omitempty"`
}

type switchTargetYAML struct {
	VariantIdx int `yaml:"variant_idx"`
	Block      int `yaml:"block"`
}

type callTargetYAML struct {
	Kind  string      `yaml:"kind"`
	Name  string      `yaml:"name,omitempty"`
	Path  string      `yaml:"path,omitempty"`
	Value *lvalueYAML `yaml:"value,omitempty"`
}

type callArgYAML struct {
	IsConst bool          `yaml:"is_const,omitempty"`
	Place   *lvalueYAML   `yaml:"place,omitempty"`
	Const   *constantYAML `yaml:"const,omitempty"`
}

type terminatorYAML struct {
	Kind string `yaml:"kind"`

	Target int `yaml:"target,omitempty"`

	Cond    *lvalueYAML `yaml:"cond,omitempty"`
	IfTrue  int         `yaml:"if_true,omitempty"`
	IfFalse int         `yaml:"if_false,omitempty"`

	SwitchVal     *lvalueYAML        `yaml:"switch_val,omitempty"`
	SwitchTargets []switchTargetYAML `yaml:"switch_targets,omitempty"`
	Otherwise     *int               `yaml:"otherwise,omitempty"`

	Call     *callTargetYAML `yaml:"call,omitempty"`
	Args     []callArgYAML   `yaml:"args,omitempty"`
	RetVal   *lvalueYAML     `yaml:"ret_val,omitempty"`
	RetBlock int             `yaml:"ret_block,omitempty"`
}

type blockYAML struct {
	Statements []statementYAML `yaml:"statements,omitempty"`
	Terminator terminatorYAML  `yaml:"terminator"`
}

type externYAML struct {
	Name string `yaml:"name,omitempty"`
	ABI  string `yaml:"abi,omitempty"`
}

type functionYAML struct {
	Path      string       `yaml:"path"`
	Params    []typeYAML   `yaml:"params,omitempty"`
	Ret       typeYAML     `yaml:"ret"`
	Locals    []typeYAML   `yaml:"locals,omitempty"`
	DropFlags int          `yaml:"drop_flags,omitempty"`
	Extern    *externYAML  `yaml:"extern,omitempty"`
	Blocks    []blockYAML  `yaml:"blocks,omitempty"`
}
