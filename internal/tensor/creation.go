package tensor

import (
	"math"
	"math/rand"
)

// FromSlice creates a CPU tensor holding a copy of data.
// len(data) must equal shape.NumElements().
//
// Example:
//
//	a, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	if len(data) != shape.NumElements() {
		return nil, &ShapeError{
			Op:     "from_slice",
			Left:   shape,
			Reason: "data length does not match shape",
		}
	}
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), CPU)
	if err != nil {
		return nil, err
	}
	switch raw.DType() {
	case Float32:
		out := raw.AsFloat32()
		for i, v := range data {
			out[i] = float32(v)
		}
	case Float64:
		out := raw.AsFloat64()
		for i, v := range data {
			out[i] = float64(v)
		}
	}
	return raw, nil
}

// MustFromSlice is FromSlice that panics on error. Intended for tests and
// literals whose shape is known to be right.
func MustFromSlice[T DType](data []T, shape Shape) *RawTensor {
	raw, err := FromSlice(data, shape)
	if err != nil {
		panic(err)
	}
	return raw
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape, dtype DataType) (*RawTensor, error) {
	return NewRaw(shape, dtype, CPU)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape, dtype DataType) (*RawTensor, error) {
	return Full(shape, dtype, 1)
}

// OnesLike creates a tensor of ones with t's shape and dtype.
func OnesLike(t *RawTensor) *RawTensor {
	ones, err := Ones(t.Shape(), t.DType())
	if err != nil {
		panic(err) // t's shape is already valid
	}
	return ones
}

// Full creates a tensor filled with a specific value.
func Full(shape Shape, dtype DataType, value float64) (*RawTensor, error) {
	raw, err := NewRaw(shape, dtype, CPU)
	if err != nil {
		return nil, err
	}
	switch dtype {
	case Float32:
		data := raw.AsFloat32()
		for i := range data {
			data[i] = float32(value)
		}
	case Float64:
		data := raw.AsFloat64()
		for i := range data {
			data[i] = value
		}
	}
	return raw, nil
}

// Randn creates a tensor with values drawn from N(0, 1) using rng.
// Uses Box-Muller transform for generating normal distribution.
func Randn(shape Shape, dtype DataType, rng *rand.Rand) (*RawTensor, error) {
	raw, err := NewRaw(shape, dtype, CPU)
	if err != nil {
		return nil, err
	}

	n := raw.NumElements()
	values := make([]float64, n)
	for i := 0; i < n; i += 2 {
		u1 := 1 - rng.Float64() // (0, 1] keeps Log finite
		u2 := rng.Float64()
		values[i] = math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
		if i+1 < n {
			values[i+1] = math.Sqrt(-2.0*math.Log(u1)) * math.Sin(2.0*math.Pi*u2)
		}
	}

	switch dtype {
	case Float32:
		data := raw.AsFloat32()
		for i, v := range values {
			data[i] = float32(v)
		}
	case Float64:
		copy(raw.AsFloat64(), values)
	}
	return raw, nil
}
