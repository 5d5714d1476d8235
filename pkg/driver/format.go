package driver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/davidkellis/mir-interp/pkg/types"
	"github.com/davidkellis/mir-interp/pkg/value"
)

// FormatValue renders v according to its static type ty for display on
// the interpreter's standard output. It walks composites and arrays
// recursively, resolving enum variants by tag the same way the executor
// does, so the printed form is exact rather than a generic byte dump.
func FormatValue(reg types.Registry, v *value.Value, ty types.Type) (string, error) {
	if outer, ok := ty.Outer(); ok {
		switch outer.Kind {
		case types.WBorrow, types.WPointer:
			return formatPointer(v, ty)
		case types.WArray:
			return formatArray(reg, v, ty, outer.Len)
		case types.WSlice:
			return "", fmt.Errorf("driver: cannot format unsized slice type %s directly", types.Describe(ty))
		}
	}

	switch ty.Prim {
	case types.Unreachable:
		return "<unreachable>", nil
	case types.Unit:
		return "()", nil
	case types.Bool:
		b, err := v.ReadU8(0)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(b != 0), nil
	case types.Char:
		c, err := v.ReadU16(0)
		if err != nil {
			return "", err
		}
		return strconv.QuoteRune(rune(c)), nil
	case types.U8, types.U16, types.U32, types.U64, types.U128, types.USize:
		n, err := formatUnsigned(v, ty)
		if err != nil {
			return "", err
		}
		return n, nil
	case types.I8, types.I16, types.I32, types.I64, types.I128, types.ISize:
		n, err := formatSigned(v, ty)
		if err != nil {
			return "", err
		}
		return n, nil
	case types.F32:
		f, err := v.ReadF32(0)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(float64(f), 'g', -1, 32), nil
	case types.F64:
		f, err := v.ReadF64(0)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case types.Str:
		return string(v.AllBytes()), nil
	case types.Composite:
		return formatComposite(reg, v, ty)
	case types.TraitObject:
		return "<dyn>", nil
	case types.Function:
		return formatPointer(v, ty)
	default:
		return "", fmt.Errorf("driver: cannot format value of kind %v", ty.Prim)
	}
}

func formatPointer(v *value.Value, ty types.Type) (string, error) {
	reloc, ok := v.RelocAt(0)
	if !ok {
		off, err := v.ReadUSize(0)
		if err != nil {
			return "", err
		}
		if off == 0 {
			return "null", nil
		}
		return fmt.Sprintf("0x%x (dangling)", off), nil
	}
	if reloc.FuncPath != "" {
		return fmt.Sprintf("fn:%s", reloc.FuncPath), nil
	}
	off, err := v.ReadUSize(0)
	if err != nil {
		return "", err
	}
	base := fmt.Sprintf("alloc#%d+%d", reloc.Target.Handle(), off)
	if types.HasSliceMetadata(ty) {
		meta, err := v.ReadUSize(types.PointerWidth)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s[len=%d]", base, meta), nil
	}
	return base, nil
}

func formatArray(reg types.Registry, v *value.Value, ty types.Type, length uint64) (string, error) {
	elemTy, err := types.Inner(ty)
	if err != nil {
		return "", err
	}
	stride, err := types.SizeOf(reg, elemTy)
	if err != nil {
		return "", err
	}
	elems := make([]string, 0, length)
	for i := uint64(0); i < length; i++ {
		bytes, err := v.ReadBytes(i*stride, stride)
		if err != nil {
			return "", err
		}
		elemVal := value.FromBytes(bytes)
		for _, r := range v.AllRelocs() {
			if r.Offset >= i*stride && r.Offset < (i+1)*stride {
				elemVal.AddReloc(value.Reloc{Offset: r.Offset - i*stride, Target: r.Target, FuncPath: r.FuncPath})
			}
		}
		s, err := FormatValue(reg, elemVal, elemTy)
		if err != nil {
			return "", err
		}
		elems = append(elems, s)
	}
	return "[" + strings.Join(elems, ", ") + "]", nil
}

func formatComposite(reg types.Registry, v *value.Value, ty types.Type) (string, error) {
	comp, err := reg.Composite(ty.Ref)
	if err != nil {
		return "", err
	}
	if len(comp.Variants) > 0 {
		idx, ok := resolveVariantTag(reg, v, comp)
		if !ok {
			return fmt.Sprintf("%s{<unrecognized tag>}", comp.Name), nil
		}
		variant := comp.Variants[idx]
		if variant.DataField < 0 {
			return fmt.Sprintf("%s::%d", comp.Name, idx), nil
		}
		offset, payloadTy, err := comp.VariantPayload(idx)
		if err != nil {
			return "", err
		}
		size, err := types.SizeOf(reg, payloadTy)
		if err != nil {
			return "", err
		}
		payloadVal, err := value.RefIntoValue(v, offset, size).Read()
		if err != nil {
			return "", err
		}
		payload, err := FormatValue(reg, payloadVal, payloadTy)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s::%d(%s)", comp.Name, idx, payload), nil
	}

	fields := make([]string, 0, len(comp.Fields))
	for i, f := range comp.Fields {
		size, err := types.SizeOf(reg, f.Type)
		if err != nil {
			return "", err
		}
		fieldVal, err := value.RefIntoValue(v, f.Offset, size).Read()
		if err != nil {
			return "", err
		}
		s, err := FormatValue(reg, fieldVal, f.Type)
		if err != nil {
			return "", err
		}
		fields = append(fields, fmt.Sprintf(".%d=%s", i, s))
	}
	return fmt.Sprintf("%s{%s}", comp.Name, strings.Join(fields, ", ")), nil
}

// resolveVariantTag mirrors the executor's tag resolution: the first
// variant whose TagData matches the bytes at BaseField+FieldPath wins,
// and a variant with an empty TagData is the default arm.
func resolveVariantTag(reg types.Registry, v *value.Value, comp *types.Composite) (int, bool) {
	fallback := -1
	for i, variant := range comp.Variants {
		if len(variant.TagData) == 0 {
			fallback = i
			continue
		}
		offset, _, err := types.FieldPathOffset(reg, comp, variant.BaseField, variant.FieldPath)
		if err != nil {
			continue
		}
		bytes, err := v.ReadBytes(offset, uint64(len(variant.TagData)))
		if err != nil {
			continue
		}
		if string(bytes) == string(variant.TagData) {
			return i, true
		}
	}
	if fallback >= 0 {
		return fallback, true
	}
	return 0, false
}

func formatUnsigned(v *value.Value, ty types.Type) (string, error) {
	size, err := types.SizeOf(nil, ty)
	if err != nil {
		// SizeOf never needs the registry for non-composite prims, so a
		// nil Registry is safe for every kind reachable here.
		return "", err
	}
	switch {
	case size <= 1:
		n, err := v.ReadU8(0)
		return strconv.FormatUint(uint64(n), 10), err
	case size == 2:
		n, err := v.ReadU16(0)
		return strconv.FormatUint(uint64(n), 10), err
	case size == 4:
		n, err := v.ReadU32(0)
		return strconv.FormatUint(uint64(n), 10), err
	default:
		n, err := v.ReadU64(0)
		return strconv.FormatUint(n, 10), err
	}
}

func formatSigned(v *value.Value, ty types.Type) (string, error) {
	size, err := types.SizeOf(nil, ty)
	if err != nil {
		return "", err
	}
	switch {
	case size <= 1:
		n, err := v.ReadI8(0)
		return strconv.FormatInt(int64(n), 10), err
	case size == 2:
		n, err := v.ReadI16(0)
		return strconv.FormatInt(int64(n), 10), err
	case size == 4:
		n, err := v.ReadI32(0)
		return strconv.FormatInt(int64(n), 10), err
	default:
		n, err := v.ReadI64(0)
		return strconv.FormatInt(n, 10), err
	}
}
