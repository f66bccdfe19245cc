package ops

import "github.com/born-ml/graphgrad/internal/tensor"

// AddOp represents an element-wise addition operation: output = a + b.
//
// Backward pass:
//   - d(a+b)/da = 1, so grad_a = outputGrad
//   - d(a+b)/db = 1, so grad_b = outputGrad
//
// Shapes must be equal; no broadcasting is performed.
type AddOp struct{}

// NewAddOp creates a new AddOp.
func NewAddOp() *AddOp {
	return &AddOp{}
}

// Kind returns KindAdd.
func (op *AddOp) Kind() Kind { return KindAdd }

// Arity returns 2.
func (op *AddOp) Arity() int { return 2 }

// Forward computes a + b.
func (op *AddOp) Forward(inputs []*tensor.RawTensor, backend tensor.Backend) (*tensor.RawTensor, error) {
	checkArity(op, inputs)
	a, b := inputs[0], inputs[1]
	if err := checkElementwise(KindAdd, a, b); err != nil {
		return nil, err
	}
	return backend.Add(a, b), nil
}

// Backward computes input gradients for addition.
// Since d(a+b)/da = d(a+b)/db = 1, the gradient flows unchanged to both inputs.
// The same buffer is returned twice; callers accumulate, never mutate it.
func (op *AddOp) Backward(outputGrad *tensor.RawTensor, inputs []*tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	checkArity(op, inputs)
	return []*tensor.RawTensor{outputGrad, outputGrad}
}
