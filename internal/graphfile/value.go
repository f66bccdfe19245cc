package graphfile

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/born-ml/graphgrad/internal/tensor"
)

// decodeTensor converts a number or a rectangular nest of number lists into
// a tensor. A bare number becomes a scalar of shape ().
func decodeTensor(val cty.Value, dtype tensor.DataType) (*tensor.RawTensor, error) {
	shape, err := inferShape(val)
	if err != nil {
		return nil, err
	}

	data := make([]float64, 0, shape.NumElements())
	data, err = flatten(val, shape, 0, data)
	if err != nil {
		return nil, err
	}

	switch dtype {
	case tensor.Float32:
		f32 := make([]float32, len(data))
		for i, v := range data {
			f32[i] = float32(v)
		}
		return tensor.FromSlice(f32, shape)
	default:
		return tensor.FromSlice(data, shape)
	}
}

// inferShape follows the first element at every nesting level.
func inferShape(val cty.Value) (tensor.Shape, error) {
	shape := tensor.Shape{}
	for isSequence(val) {
		if !val.IsWhollyKnown() || val.IsNull() {
			return nil, fmt.Errorf("value must be known and non-null")
		}
		n := val.LengthInt()
		if n == 0 {
			return nil, fmt.Errorf("empty list at depth %d", len(shape))
		}
		shape = append(shape, n)
		val = val.Index(cty.NumberIntVal(0))
	}
	return shape, nil
}

func flatten(val cty.Value, shape tensor.Shape, depth int, out []float64) ([]float64, error) {
	if val.IsNull() || !val.IsKnown() {
		return nil, fmt.Errorf("value must be known and non-null")
	}

	if depth == len(shape) {
		if val.Type() != cty.Number {
			return nil, fmt.Errorf("expected a number at depth %d, got %s", depth, val.Type().FriendlyName())
		}
		f, _ := val.AsBigFloat().Float64()
		return append(out, f), nil
	}

	if !isSequence(val) {
		return nil, fmt.Errorf("expected a list at depth %d, got %s", depth, val.Type().FriendlyName())
	}
	if n := val.LengthInt(); n != shape[depth] {
		return nil, fmt.Errorf("ragged value: list at depth %d has %d elements, want %d", depth, n, shape[depth])
	}

	var err error
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		out, err = flatten(elem, shape, depth+1, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func isSequence(val cty.Value) bool {
	ty := val.Type()
	return ty.IsTupleType() || ty.IsListType()
}
