// Package cpu implements the CPU backend in pure Go.
package cpu

import (
	"fmt"

	"github.com/born-ml/graphgrad/internal/parallel"
	"github.com/born-ml/graphgrad/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
type CPUBackend struct {
	device   tensor.Device
	parallel parallel.Config
}

// Option configures a CPUBackend.
type Option func(*CPUBackend)

// WithParallel overrides the parallel execution settings used by MatMul.
func WithParallel(cfg parallel.Config) Option {
	return func(cpu *CPUBackend) {
		cpu.parallel = cfg
	}
}

// New creates a new CPU backend.
func New(opts ...Option) *CPUBackend {
	cpu := &CPUBackend{
		device:   tensor.CPU,
		parallel: parallel.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(cpu)
	}
	return cpu
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition. Shapes must be equal.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	result := cpu.newBinaryResult("add", a, b)
	switch a.DType() {
	case tensor.Float32:
		addKernel(result.AsFloat32(), a.AsFloat32(), b.AsFloat32())
	case tensor.Float64:
		addKernel(result.AsFloat64(), a.AsFloat64(), b.AsFloat64())
	default:
		panic(fmt.Sprintf("add: unsupported dtype %s", a.DType()))
	}
	return result
}

// Sub performs element-wise subtraction. Shapes must be equal.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	result := cpu.newBinaryResult("sub", a, b)
	switch a.DType() {
	case tensor.Float32:
		subKernel(result.AsFloat32(), a.AsFloat32(), b.AsFloat32())
	case tensor.Float64:
		subKernel(result.AsFloat64(), a.AsFloat64(), b.AsFloat64())
	default:
		panic(fmt.Sprintf("sub: unsupported dtype %s", a.DType()))
	}
	return result
}

// ZerosLike allocates a zero tensor with t's shape and dtype.
func (cpu *CPUBackend) ZerosLike(t *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(t.Shape(), t.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("zerosLike: %v", err))
	}
	return result
}

// newBinaryResult validates an element-wise operand pair and allocates the output.
func (cpu *CPUBackend) newBinaryResult(op string, a, b *tensor.RawTensor) *tensor.RawTensor {
	if err := tensor.CheckSameShape(op, a.Shape(), b.Shape()); err != nil {
		panic(err.Error())
	}
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", op, a.DType(), b.DType()))
	}
	result, err := tensor.NewRaw(a.Shape(), a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}
	return result
}
