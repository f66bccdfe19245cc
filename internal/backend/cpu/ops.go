package cpu

import "github.com/born-ml/graphgrad/internal/tensor"

// addKernel computes dst = a + b.
func addKernel[T tensor.DType](dst, a, b []T) {
	for i := range dst {
		dst[i] = a[i] + b[i]
	}
}

// subKernel computes dst = a - b.
func subKernel[T tensor.DType](dst, a, b []T) {
	for i := range dst {
		dst[i] = a[i] - b[i]
	}
}

// mulScalarKernel computes dst = x * s.
func mulScalarKernel[T tensor.DType](dst, x []T, s T) {
	for i := range dst {
		dst[i] = x[i] * s
	}
}
