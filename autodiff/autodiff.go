// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation over an
// explicit computation graph.
//
// Nodes are appended to a Graph as operators are applied. Each node records
// its forward value, its parents and the operator that produced it. Backward
// replays the graph in reverse topological order and accumulates gradients
// into every reachable node.
//
// Example:
//
//	import (
//	    "github.com/born-ml/graphgrad/autodiff"
//	    "github.com/born-ml/graphgrad/backend/cpu"
//	    "github.com/born-ml/graphgrad/tensor"
//	)
//
//	func main() {
//	    g := autodiff.NewGraph(cpu.New())
//	    a := g.Leaf(tensor.MustFromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2}))
//	    b := g.Leaf(tensor.MustFromSlice([]float64{5, 6, 7, 8}, tensor.Shape{2, 2}))
//
//	    p, err := g.MatMul(a, b)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := g.Backward(p); err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(g.Grad(a).AsFloat64()) // [11 15 11 15]
//	}
//
// A second Backward without ZeroGrad adds to the existing gradients.
// A Graph is not safe for concurrent use.
package autodiff

import (
	"github.com/born-ml/graphgrad/internal/autodiff"
	"github.com/born-ml/graphgrad/internal/autodiff/ops"
	"github.com/born-ml/graphgrad/tensor"
)

// Graph is an append-only arena of computation nodes.
type Graph = autodiff.Graph

// NodeID is a stable handle to a node in a Graph.
type NodeID = autodiff.NodeID

// Kind names the operator that produced a node.
type Kind = ops.Kind

// Operation is the forward and backward rule of one operator.
// Custom operators can be added to a graph with Graph.Apply.
type Operation = ops.Operation

// LeafOption configures a leaf created by Graph.Leaf or Graph.NamedLeaf.
type LeafOption = autodiff.LeafOption

// CycleError reports a node reachable from itself.
type CycleError = autodiff.CycleError

// Errors returned by Graph methods.
var (
	ErrInvalidNode = autodiff.ErrInvalidNode
	ErrCycle       = autodiff.ErrCycle
)

// Operator kinds.
const (
	KindLeaf    = ops.KindLeaf
	KindAdd     = ops.KindAdd
	KindSub     = ops.KindSub
	KindScale   = ops.KindScale
	KindScaleBy = ops.KindScaleBy
	KindMatMul  = ops.KindMatMul
)

// WithRequiresGrad controls whether a leaf receives a gradient.
// Leaves require gradients by default.
func WithRequiresGrad(requiresGrad bool) LeafOption {
	return autodiff.WithRequiresGrad(requiresGrad)
}

// NewGraph creates an empty graph computing on backend.
func NewGraph(backend tensor.Backend) *Graph {
	return autodiff.NewGraph(backend)
}
