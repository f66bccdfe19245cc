// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for the autodiff engine.
//
// Elementwise kernels run sequentially. MatMul splits output rows across
// goroutines once the problem is large enough. The backend holds no
// mutable state and is safe for concurrent use.
package cpu

import (
	internalcpu "github.com/born-ml/graphgrad/internal/backend/cpu"
	"github.com/born-ml/graphgrad/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	g := autodiff.NewGraph(cpu.New())
func New() *Backend {
	return internalcpu.New()
}
