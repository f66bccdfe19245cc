package cpu

import (
	"fmt"

	"github.com/born-ml/graphgrad/internal/parallel"
	"github.com/born-ml/graphgrad/internal/tensor"
)

// MatMul performs matrix multiplication over the last two axes.
// For 2D tensors: (M, K) @ (K, N) -> (M, N).
// For batched tensors the leading axes must match and are iterated over:
// (B..., M, K) @ (B..., K, N) -> (B..., M, N).
//
// Output rows are distributed across goroutines when there are enough of them.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	outShape, err := tensor.CheckMatMul(a.Shape(), b.Shape())
	if err != nil {
		panic(err.Error())
	}
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("matmul: dtype mismatch %s vs %s", a.DType(), b.DType()))
	}

	aShape := a.Shape()
	rank := len(aShape)
	m, k := aShape[rank-2], aShape[rank-1]
	n := outShape[rank-1]
	batch := aShape.BatchDims().NumElements()

	result, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("matmul: failed to create result tensor: %v", err))
	}

	switch a.DType() {
	case tensor.Float32:
		matmulKernel(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), batch, m, k, n, cpu.parallel)
	case tensor.Float64:
		matmulKernel(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), batch, m, k, n, cpu.parallel)
	default:
		panic(fmt.Sprintf("matmul: unsupported dtype %s", a.DType()))
	}

	return result
}

// matmulKernel computes C[b,i,j] = sum_k A[b,i,k] * B[b,k,j].
// Each output row is owned by exactly one iteration, so rows can run in parallel.
func matmulKernel[T tensor.DType](c, a, b []T, batch, m, k, n int, cfg parallel.Config) {
	parallel.For(batch*m, func(row int) {
		bi, i := row/m, row%m
		aOff := bi*m*k + i*k
		bOff := bi * k * n
		cOff := bi*m*n + i*n
		for j := 0; j < n; j++ {
			var sum T
			for kIdx := 0; kIdx < k; kIdx++ {
				sum += a[aOff+kIdx] * b[bOff+kIdx*n+j]
			}
			c[cOff+j] = sum
		}
	}, cfg)
}
