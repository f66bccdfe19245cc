package tensor

// Backend defines the array operations the autodiff engine depends on.
// Implementations own the numeric kernels; callers are expected to have
// validated shapes already, so implementations panic on contract
// violations rather than returning errors.
//
// Implementations:
//   - CPU: pure Go, see internal/backend/cpu
type Backend interface {
	// Element-wise binary operations on equal shapes.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor

	// MulScalar multiplies every element by scalar.
	MulScalar(x *RawTensor, scalar float64) *RawTensor

	// MatMul multiplies over the last two axes: [..., M, K] @ [..., K, N] -> [..., M, N].
	// Leading (batch) axes must be equal.
	MatMul(a, b *RawTensor) *RawTensor

	// Transpose permutes axes. With no axes it reverses all dimensions.
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// ZerosLike allocates a zero tensor with t's shape and dtype.
	ZerosLike(t *RawTensor) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
