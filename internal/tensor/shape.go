package tensor

import "fmt"

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions > 0).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// BatchDims returns the leading axes of a matrix-shaped tensor,
// i.e. everything except the last two dimensions.
// Returns nil for shapes of rank < 2.
func (s Shape) BatchDims() Shape {
	if len(s) < 2 {
		return nil
	}
	return s[:len(s)-2]
}

// SwapLastTwo returns the axis permutation that exchanges the last two
// axes and leaves all leading axes in place.
//
// Example:
//
//	Shape{4, 2, 3}.SwapLastTwo() // [0 2 1]
func (s Shape) SwapLastTwo() []int {
	axes := make([]int, len(s))
	for i := range axes {
		axes[i] = i
	}
	if n := len(axes); n >= 2 {
		axes[n-2], axes[n-1] = axes[n-1], axes[n-2]
	}
	return axes
}

// String formats the shape as (d0, d1, ...).
func (s Shape) String() string {
	if len(s) == 0 {
		return "()"
	}
	out := "("
	for i, d := range s {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprint(d)
	}
	if len(s) == 1 {
		out += ","
	}
	return out + ")"
}
