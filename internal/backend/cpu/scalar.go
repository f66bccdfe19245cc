package cpu

import (
	"fmt"

	"github.com/born-ml/graphgrad/internal/tensor"
)

// MulScalar multiplies each element of the tensor by a scalar value.
// The scalar is converted to the tensor's dtype.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("mulScalar: failed to create result tensor: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		mulScalarKernel(result.AsFloat32(), x.AsFloat32(), float32(scalar))
	case tensor.Float64:
		mulScalarKernel(result.AsFloat64(), x.AsFloat64(), scalar)
	default:
		panic(fmt.Sprintf("mulScalar: unsupported dtype %v", x.DType()))
	}

	return result
}
