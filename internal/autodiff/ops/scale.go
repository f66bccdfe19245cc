package ops

import (
	"fmt"

	"github.com/born-ml/graphgrad/internal/tensor"
)

// ScaleOp multiplies its single input by a constant: output = a * k.
// The constant is not part of the graph and receives no gradient.
//
// Backward pass:
//   - d(a*k)/da = k, so grad_a = k * outputGrad
type ScaleOp struct {
	factor float64
}

// NewScaleOp creates a ScaleOp with the constant factor k.
func NewScaleOp(k float64) *ScaleOp {
	return &ScaleOp{factor: k}
}

// Factor returns the constant multiplier.
func (op *ScaleOp) Factor() float64 { return op.factor }

// Kind returns KindScale.
func (op *ScaleOp) Kind() Kind { return KindScale }

// Arity returns 1.
func (op *ScaleOp) Arity() int { return 1 }

// Forward computes a * k.
func (op *ScaleOp) Forward(inputs []*tensor.RawTensor, backend tensor.Backend) (*tensor.RawTensor, error) {
	checkArity(op, inputs)
	return backend.MulScalar(inputs[0], op.factor), nil
}

// Backward computes the input gradient k * outputGrad.
func (op *ScaleOp) Backward(outputGrad *tensor.RawTensor, inputs []*tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	checkArity(op, inputs)
	return []*tensor.RawTensor{backend.MulScalar(outputGrad, op.factor)}
}

// ScaleByOp multiplies a tensor by a differentiable scalar: output = a * k,
// where k is a single-element tensor (shape (), (1,), (1, 1), ...).
//
// Backward pass:
//   - d(a*k)/da = k, so grad_a = k * outputGrad
//   - d(a*k)/dk = a, so grad_k = sum(a * outputGrad), shaped like k
//
// The sum is computed as a (1xN)@(Nx1) matrix product of the flattened
// operands so that only backend primitives are needed.
type ScaleByOp struct{}

// NewScaleByOp creates a new ScaleByOp.
func NewScaleByOp() *ScaleByOp {
	return &ScaleByOp{}
}

// Kind returns KindScaleBy.
func (op *ScaleByOp) Kind() Kind { return KindScaleBy }

// Arity returns 2.
func (op *ScaleByOp) Arity() int { return 2 }

// Forward computes a * k.
func (op *ScaleByOp) Forward(inputs []*tensor.RawTensor, backend tensor.Backend) (*tensor.RawTensor, error) {
	checkArity(op, inputs)
	a, k := inputs[0], inputs[1]
	if k.NumElements() != 1 {
		return nil, &tensor.ShapeError{
			Op:     string(KindScaleBy),
			Left:   a.Shape(),
			Right:  k.Shape(),
			Reason: "multiplier must hold exactly one element",
		}
	}
	if err := tensor.CheckSameDType(string(KindScaleBy), a.DType(), k.DType()); err != nil {
		return nil, err
	}
	return backend.MulScalar(a, scalarOf(k)), nil
}

// Backward computes [k * outputGrad, sum(a * outputGrad)].
func (op *ScaleByOp) Backward(outputGrad *tensor.RawTensor, inputs []*tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	checkArity(op, inputs)
	a, k := inputs[0], inputs[1]

	gradA := backend.MulScalar(outputGrad, scalarOf(k))

	n := a.NumElements()
	row := mustReshape(a, tensor.Shape{1, n})
	col := mustReshape(outputGrad, tensor.Shape{n, 1})
	gradK := mustReshape(backend.MatMul(row, col), k.Shape())

	return []*tensor.RawTensor{gradA, gradK}
}

// scalarOf reads the single element of t as float64.
func scalarOf(t *tensor.RawTensor) float64 {
	switch t.DType() {
	case tensor.Float32:
		return float64(t.AsFloat32()[0])
	case tensor.Float64:
		return t.AsFloat64()[0]
	default:
		panic(fmt.Sprintf("scalarOf: unsupported dtype %s", t.DType()))
	}
}

// mustReshape reshapes a tensor whose element count is known to match.
func mustReshape(t *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	out, err := t.Reshape(shape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return out
}
