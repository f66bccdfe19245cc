// Package ops defines the differentiable operator catalog.
//
// Each operation implements the Operation interface, which pairs:
//   - Forward: validates operand shapes and computes the output through the backend
//   - Backward: computes one gradient per input given the output gradient
//
// Supported operations:
//   - AddOp: element-wise addition (d(a+b)/da = 1, d(a+b)/db = 1)
//   - SubOp: element-wise subtraction (d(a-b)/da = 1, d(a-b)/db = -1)
//   - ScaleOp: multiplication by a constant (d(a*k)/da = k)
//   - ScaleByOp: multiplication by a scalar node (d(a*k)/da = k, d(a*k)/dk = sum(a))
//   - MatMulOp: matrix multiplication (d(A@B)/dA = grad@B^T, d(A@B)/dB = A^T@grad)
//
// Operations are stateless apart from constants (ScaleOp's factor), so a
// single value can be shared by many graph nodes.
package ops

import (
	"fmt"

	"github.com/born-ml/graphgrad/internal/tensor"
)

// Kind identifies which operator produced a node.
type Kind string

// Operator kinds.
const (
	KindLeaf    Kind = "leaf"
	KindAdd     Kind = "add"
	KindSub     Kind = "sub"
	KindScale   Kind = "scale"
	KindScaleBy Kind = "scale_by"
	KindMatMul  Kind = "matmul"
)

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// Operation represents a differentiable operation in the computation graph.
type Operation interface {
	// Kind returns the operator tag.
	Kind() Kind

	// Arity returns the number of inputs the operation takes.
	Arity() int

	// Forward validates inputs and computes the output value.
	// Returns a *tensor.ShapeError for incompatible operand shapes.
	Forward(inputs []*tensor.RawTensor, backend tensor.Backend) (*tensor.RawTensor, error)

	// Backward computes gradients for inputs given the output gradient.
	// Returns a slice of gradients corresponding positionally to inputs.
	//
	// Example for AddOp:
	//   inputs: [a, b]
	//   outputGrad: dL/d(a+b)
	//   returns: [dL/d(a+b), dL/d(a+b)] (gradient flows equally to both inputs)
	Backward(outputGrad *tensor.RawTensor, inputs []*tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor
}

// checkArity panics if the wrong number of inputs reaches an operation.
// Graph construction always passes the registered parents, so a mismatch
// is a programming error.
func checkArity(op Operation, inputs []*tensor.RawTensor) {
	if len(inputs) != op.Arity() {
		panic(fmt.Sprintf("%s: expected %d inputs, got %d", op.Kind(), op.Arity(), len(inputs)))
	}
}

// checkGradShape panics if a computed gradient does not match its input's shape.
func checkGradShape(kind Kind, grad *tensor.RawTensor, input *tensor.RawTensor) {
	if !grad.Shape().Equal(input.Shape()) {
		panic(fmt.Sprintf("%s: gradient shape %v does not match input shape %v",
			kind, grad.Shape(), input.Shape()))
	}
}

// checkElementwise validates two operands for an equal-shape element-wise op.
func checkElementwise(kind Kind, a, b *tensor.RawTensor) error {
	if err := tensor.CheckSameShape(string(kind), a.Shape(), b.Shape()); err != nil {
		return err
	}
	return tensor.CheckSameDType(string(kind), a.DType(), b.DType())
}
