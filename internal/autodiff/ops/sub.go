package ops

import "github.com/born-ml/graphgrad/internal/tensor"

// SubOp represents an element-wise subtraction operation: output = a - b.
//
// Backward pass:
//   - d(a-b)/da = 1, so grad_a = outputGrad
//   - d(a-b)/db = -1, so grad_b = -outputGrad
type SubOp struct{}

// NewSubOp creates a new SubOp.
func NewSubOp() *SubOp {
	return &SubOp{}
}

// Kind returns KindSub.
func (op *SubOp) Kind() Kind { return KindSub }

// Arity returns 2.
func (op *SubOp) Arity() int { return 2 }

// Forward computes a - b.
func (op *SubOp) Forward(inputs []*tensor.RawTensor, backend tensor.Backend) (*tensor.RawTensor, error) {
	checkArity(op, inputs)
	a, b := inputs[0], inputs[1]
	if err := checkElementwise(KindSub, a, b); err != nil {
		return nil, err
	}
	return backend.Sub(a, b), nil
}

// Backward computes input gradients for subtraction.
func (op *SubOp) Backward(outputGrad *tensor.RawTensor, inputs []*tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	checkArity(op, inputs)
	return []*tensor.RawTensor{outputGrad, backend.MulScalar(outputGrad, -1)}
}
