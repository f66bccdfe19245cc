// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the value buffers and backend contract used by
// the autodiff engine.
//
// A RawTensor is a contiguous row-major buffer of float32 or float64
// elements with a Shape. Shape violations are reported as *ShapeError,
// which matches ErrShapeMismatch under errors.Is.
//
// Example:
//
//	a, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(a.Shape()) // (2, 2)
package tensor

import (
	"math/rand"

	"github.com/born-ml/graphgrad/internal/tensor"
)

// RawTensor is the low-level tensor representation.
type RawTensor = tensor.RawTensor

// Shape represents the dimensions of a tensor.
type Shape = tensor.Shape

// DType is a constraint for supported element types.
type DType = tensor.DType

// DataType represents runtime type information for tensors.
type DataType = tensor.DataType

// Device identifies where tensor memory lives.
type Device = tensor.Device

// ShapeError describes incompatible operand shapes.
type ShapeError = tensor.ShapeError

// Backend is the set of array primitives the engine computes with.
type Backend = tensor.Backend

// Data types and devices.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	CPU     = tensor.CPU
)

// Errors reported by shape and type checks.
var (
	ErrShapeMismatch = tensor.ErrShapeMismatch
	ErrDTypeMismatch = tensor.ErrDTypeMismatch
)

// NewRaw creates a zero-filled tensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// FromSlice creates a CPU tensor holding a copy of data.
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	return tensor.FromSlice(data, shape)
}

// MustFromSlice is FromSlice that panics on error.
func MustFromSlice[T DType](data []T, shape Shape) *RawTensor {
	return tensor.MustFromSlice(data, shape)
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.Zeros(shape, dtype)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.Ones(shape, dtype)
}

// Full creates a tensor filled with value.
func Full(shape Shape, dtype DataType, value float64) (*RawTensor, error) {
	return tensor.Full(shape, dtype, value)
}

// Randn creates a tensor of standard normal samples drawn from rng.
func Randn(shape Shape, dtype DataType, rng *rand.Rand) (*RawTensor, error) {
	return tensor.Randn(shape, dtype, rng)
}
