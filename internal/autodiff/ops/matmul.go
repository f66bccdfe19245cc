package ops

import "github.com/born-ml/graphgrad/internal/tensor"

// MatMulOp represents a matrix multiplication operation: output = a @ b.
//
// Backward pass:
//   - d(A@B)/dA = outputGrad @ B^T
//   - d(A@B)/dB = A^T @ outputGrad
//
// Where @ denotes matrix multiplication and ^T swaps the last two axes only;
// leading batch axes are left in place. Operand order matters: swapping it
// still yields shape-compatible but wrong gradients for square matrices.
type MatMulOp struct{}

// NewMatMulOp creates a new MatMulOp.
func NewMatMulOp() *MatMulOp {
	return &MatMulOp{}
}

// Kind returns KindMatMul.
func (op *MatMulOp) Kind() Kind { return KindMatMul }

// Arity returns 2.
func (op *MatMulOp) Arity() int { return 2 }

// Forward computes a @ b.
func (op *MatMulOp) Forward(inputs []*tensor.RawTensor, backend tensor.Backend) (*tensor.RawTensor, error) {
	checkArity(op, inputs)
	a, b := inputs[0], inputs[1]
	if _, err := tensor.CheckMatMul(a.Shape(), b.Shape()); err != nil {
		return nil, err
	}
	if err := tensor.CheckSameDType(string(KindMatMul), a.DType(), b.DType()); err != nil {
		return nil, err
	}
	return backend.MatMul(a, b), nil
}

// Backward computes input gradients for matrix multiplication.
func (op *MatMulOp) Backward(outputGrad *tensor.RawTensor, inputs []*tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	checkArity(op, inputs)
	a, b := inputs[0], inputs[1]

	// grad_a = outputGrad @ b^T
	bT := backend.Transpose(b, b.Shape().SwapLastTwo()...)
	gradA := backend.MatMul(outputGrad, bT)
	checkGradShape(KindMatMul, gradA, a)

	// grad_b = a^T @ outputGrad
	aT := backend.Transpose(a, a.Shape().SwapLastTwo()...)
	gradB := backend.MatMul(aT, outputGrad)
	checkGradShape(KindMatMul, gradB, b)

	return []*tensor.RawTensor{gradA, gradB}
}
