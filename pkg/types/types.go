// Package types implements the MIR type model: primitive kinds, the
// wrapper sequence (Borrow/Pointer/Array/Slice) applied over a primitive,
// and the composite descriptor used for struct and enum layout.
package types

import "fmt"

// PointerWidth is the fixed configuration constant used for every
// pointer-sized field in the interpreter. The loader is responsible for
// producing a module tree that was compiled against the same width.
const PointerWidth = 8

// PrimKind enumerates the closed set of primitive scalar kinds.
type PrimKind int

const (
	Unreachable PrimKind = iota
	Unit
	Bool
	Char
	U8
	U16
	U32
	U64
	U128
	I8
	I16
	I32
	I64
	I128
	USize
	ISize
	F32
	F64
	Str
	Composite
	TraitObject
	Function
)

func (k PrimKind) String() string {
	switch k {
	case Unreachable:
		return "!"
	case Unit:
		return "()"
	case Bool:
		return "bool"
	case Char:
		return "char"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case U128:
		return "u128"
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case I128:
		return "i128"
	case USize:
		return "usize"
	case ISize:
		return "isize"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case Str:
		return "str"
	case Composite:
		return "composite"
	case TraitObject:
		return "dyn"
	case Function:
		return "fn"
	default:
		return fmt.Sprintf("PrimKind(%d)", int(k))
	}
}

// IsInteger reports whether k is one of the fixed-width or pointer-sized
// integer kinds.
func (k PrimKind) IsInteger() bool {
	switch k {
	case U8, U16, U32, U64, U128, I8, I16, I32, I64, I128, USize, ISize:
		return true
	default:
		return false
	}
}

// IsSigned reports whether k is a signed integer kind.
func (k PrimKind) IsSigned() bool {
	switch k {
	case I8, I16, I32, I64, I128, ISize:
		return true
	default:
		return false
	}
}

// IsFloat reports whether k is a floating point kind.
func (k PrimKind) IsFloat() bool {
	return k == F32 || k == F64
}

// WrapperKind enumerates the type wrapper constructors that can be
// layered, outer-to-inner, over a primitive kind.
type WrapperKind int

const (
	WBorrow WrapperKind = iota
	WPointer
	WArray
	WSlice
)

// Wrapper is a single element of a type's wrapper sequence. Len is only
// meaningful for WArray.
type Wrapper struct {
	Kind WrapperKind
	Len  uint64
}

// Type is a fully wrapped MIR type: an ordered sequence of wrappers
// applied outer-to-inner over a primitive kind. When Prim is Composite or
// TraitObject, Ref names the composite/trait descriptor the primitive
// refers to.
type Type struct {
	Wrappers []Wrapper
	Prim     PrimKind
	Ref      string
}

// Prim constructs a bare primitive type with no wrappers.
func Prim(k PrimKind) Type { return Type{Prim: k} }

// CompositeRef constructs a named composite type.
func CompositeRef(name string) Type { return Type{Prim: Composite, Ref: name} }

// Outer returns the outermost wrapper, if any.
func (t Type) Outer() (Wrapper, bool) {
	if len(t.Wrappers) == 0 {
		return Wrapper{}, false
	}
	return t.Wrappers[0], true
}

// Inner strips the outermost wrapper, returning the type one layer down.
// Calling Inner on a bare primitive is an error: there is nothing left to
// strip.
func Inner(t Type) (Type, error) {
	if len(t.Wrappers) == 0 {
		return Type{}, fmt.Errorf("types: inner() of unwrapped type %s has no inner type", Describe(t))
	}
	return Type{Wrappers: t.Wrappers[1:], Prim: t.Prim, Ref: t.Ref}, nil
}

// HasSliceMetadata reports whether t's outermost wrapper is a pointer or
// borrow whose pointee requires a second metadata word -- i.e. the
// pointee (after stripping the wrapper) is a bare Str or has Slice as its
// outermost wrapper.
func HasSliceMetadata(t Type) bool {
	outer, ok := t.Outer()
	if !ok {
		return false
	}
	if outer.Kind != WBorrow && outer.Kind != WPointer {
		return false
	}
	inner, err := Inner(t)
	if err != nil {
		return false
	}
	if innerOuter, ok := inner.Outer(); ok {
		return innerOuter.Kind == WSlice
	}
	return inner.Prim == Str
}

// Registry resolves named composite descriptors during size and offset
// computation. It is implemented by the module loader.
type Registry interface {
	Composite(name string) (*Composite, error)
}

// SizeOf computes the byte size of t. Slice is not independently sized:
// it is only ever reachable through a fat pointer, so asking for its
// size directly is a type-model error.
func SizeOf(reg Registry, t Type) (uint64, error) {
	if outer, ok := t.Outer(); ok {
		switch outer.Kind {
		case WBorrow, WPointer:
			if HasSliceMetadata(t) {
				return 2 * PointerWidth, nil
			}
			return PointerWidth, nil
		case WArray:
			inner, err := Inner(t)
			if err != nil {
				return 0, err
			}
			innerSize, err := SizeOf(reg, inner)
			if err != nil {
				return 0, err
			}
			return outer.Len * innerSize, nil
		case WSlice:
			return 0, fmt.Errorf("types: size of unsized slice type %s is undefined", Describe(t))
		}
	}

	switch t.Prim {
	case Unreachable, Unit:
		return 0, nil
	case Bool, U8, I8:
		return 1, nil
	case Char, U16, I16:
		return 2, nil
	case U32, I32, F32:
		return 4, nil
	case U64, I64, F64:
		return 8, nil
	case U128, I128:
		return 16, nil
	case USize, ISize, Function:
		return PointerWidth, nil
	case Str:
		return 0, fmt.Errorf("types: size of unsized type str is undefined")
	case Composite:
		comp, err := reg.Composite(t.Ref)
		if err != nil {
			return 0, err
		}
		return comp.Size, nil
	case TraitObject:
		return 2 * PointerWidth, nil
	default:
		return 0, fmt.Errorf("types: size of unknown primitive kind %v", t.Prim)
	}
}

// Field describes one field of a composite descriptor: its byte offset
// within the composite and its declared type.
type Field struct {
	Offset uint64
	Type   Type
}

// Variant describes one arm of an enum-like composite. DataField, when
// non-negative, names the field index holding the variant's payload.
// BaseField/FieldPath locate the tag storage: BaseField names a field
// whose type is itself projected through FieldPath (nested field
// indices) to reach the byte range holding TagData. A variant with an
// empty TagData is the default ("otherwise") arm.
type Variant struct {
	DataField int
	BaseField int
	FieldPath []int
	TagData   []byte
}

// Composite is the shared, read-only descriptor for a struct or enum
// layout: an ordered field list plus an optional variant table.
type Composite struct {
	Name     string
	Size     uint64
	Fields   []Field
	Variants []Variant
}

// FieldOffset returns the offset and type of field i.
func (c *Composite) FieldOffset(i int) (uint64, Type, error) {
	if i < 0 || i >= len(c.Fields) {
		return 0, Type{}, fmt.Errorf("types: field index %d out of range for composite %s (%d fields)", i, c.Name, len(c.Fields))
	}
	f := c.Fields[i]
	return f.Offset, f.Type, nil
}

// VariantPayload returns the offset and type of variant vidx's payload
// field, resolved through Downcast. A variant with no DataField (a
// payloadless variant) has no projectable offset.
func (c *Composite) VariantPayload(vidx int) (uint64, Type, error) {
	if vidx < 0 || vidx >= len(c.Variants) {
		return 0, Type{}, fmt.Errorf("types: variant index %d out of range for composite %s (%d variants)", vidx, c.Name, len(c.Variants))
	}
	v := c.Variants[vidx]
	if v.DataField < 0 {
		return 0, Type{}, fmt.Errorf("types: variant %d of composite %s has no payload field", vidx, c.Name)
	}
	return c.FieldOffset(v.DataField)
}

// FieldPathOffset resolves a nested field projection starting at
// baseField and walking path, returning the accumulated offset and the
// type at the end of the walk. This is how a variant's tag location
// (BaseField + FieldPath) is resolved against the common prefix shared
// by every arm.
func FieldPathOffset(reg Registry, c *Composite, baseField int, path []int) (uint64, Type, error) {
	offset, ty, err := c.FieldOffset(baseField)
	if err != nil {
		return 0, Type{}, err
	}
	for _, idx := range path {
		if ty.Prim != Composite || len(ty.Wrappers) != 0 {
			return 0, Type{}, fmt.Errorf("types: field path step %d requires a composite type, found %s", idx, Describe(ty))
		}
		inner, err := reg.Composite(ty.Ref)
		if err != nil {
			return 0, Type{}, err
		}
		stepOffset, stepTy, err := inner.FieldOffset(idx)
		if err != nil {
			return 0, Type{}, err
		}
		offset += stepOffset
		ty = stepTy
	}
	return offset, ty, nil
}

// Describe renders t in a short human-readable form, used in diagnostics.
func Describe(t Type) string {
	s := ""
	for _, w := range t.Wrappers {
		switch w.Kind {
		case WBorrow:
			s += "&"
		case WPointer:
			s += "*"
		case WArray:
			s += fmt.Sprintf("[%d]", w.Len)
		case WSlice:
			s += "[]"
		}
	}
	if t.Prim == Composite || t.Prim == TraitObject {
		return s + t.Ref
	}
	return s + t.Prim.String()
}
