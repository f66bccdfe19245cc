// Package autodiff implements reverse-mode automatic differentiation over an
// explicit computation graph.
//
// Architecture:
//   - Graph: an arena of nodes addressed by NodeID handles
//   - Node: a forward value, an accumulated gradient, ordered parents and the
//     ops.Operation that produced it
//   - TopoOrder: depth-first post-order over parent edges, each node once
//   - Backward: seeds the root and replays the order in reverse, accumulating
//     each operation's input gradients into its parents
//
// Usage:
//
//	g := autodiff.NewGraph(cpu.New())
//	a := g.Leaf(tensor.MustFromSlice([]float32{1, 2, 3}, tensor.Shape{3}))
//	b := g.Leaf(tensor.MustFromSlice([]float32{4, 5, 6}, tensor.Shape{3}))
//	c, err := g.Add(a, b)
//	if err != nil { ... }
//	if err := g.Backward(c); err != nil { ... }
//	fmt.Println(g.Grad(a).AsFloat32()) // [1 1 1]
//
// A Graph is not safe for concurrent use. Gradients accumulate across
// Backward calls until ZeroGrad is called.
package autodiff

import (
	"fmt"

	"github.com/born-ml/graphgrad/internal/autodiff/ops"
	"github.com/born-ml/graphgrad/internal/tensor"
)

// NodeID is a stable handle to a node inside a Graph.
// Handles are assigned in creation order, so every parent of a node has a
// smaller id than the node itself.
type NodeID int

// node is one arena entry.
type node struct {
	name    string
	value   *tensor.RawTensor // immutable after construction
	grad    *tensor.RawTensor // nil until first accumulated into
	parents []NodeID
	op      ops.Operation // nil for leaves

	// requiresGrad is set per leaf and inherited by a derived node when
	// any of its parents has it.
	requiresGrad bool
}

// Graph owns every node of a computation and the backend used to compute
// forward values and gradients.
type Graph struct {
	backend tensor.Backend
	nodes   []*node
}

// NewGraph creates an empty graph computing on backend.
func NewGraph(backend tensor.Backend) *Graph {
	return &Graph{
		backend: backend,
		nodes:   make([]*node, 0, 64), // Pre-allocate for common case
	}
}

// Backend returns the backend used by the graph.
func (g *Graph) Backend() tensor.Backend {
	return g.backend
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// LeafOption configures a leaf created by Leaf or NamedLeaf.
type LeafOption func(*node)

// WithRequiresGrad controls whether a leaf receives a gradient.
// Leaves require gradients by default. A frozen leaf, and every node built
// only from frozen nodes, keeps a nil gradient through Backward.
func WithRequiresGrad(requiresGrad bool) LeafOption {
	return func(n *node) {
		n.requiresGrad = requiresGrad
	}
}

// Leaf adds an input node with no parents.
func (g *Graph) Leaf(value *tensor.RawTensor, opts ...LeafOption) NodeID {
	return g.NamedLeaf("", value, opts...)
}

// NamedLeaf adds an input node carrying a label.
func (g *Graph) NamedLeaf(name string, value *tensor.RawTensor, opts ...LeafOption) NodeID {
	n := &node{name: name, value: value, requiresGrad: true}
	for _, opt := range opts {
		opt(n)
	}
	return g.push(n)
}

// Add returns a node computing a + b. Shapes must be equal.
func (g *Graph) Add(a, b NodeID) (NodeID, error) {
	return g.Apply(ops.NewAddOp(), a, b)
}

// Sub returns a node computing a - b. Shapes must be equal.
func (g *Graph) Sub(a, b NodeID) (NodeID, error) {
	return g.Apply(ops.NewSubOp(), a, b)
}

// Scale returns a node computing a * k for a constant k.
// Only a receives a gradient.
func (g *Graph) Scale(a NodeID, k float64) (NodeID, error) {
	return g.Apply(ops.NewScaleOp(k), a)
}

// ScaleBy returns a node computing a * k where k is a single-element node.
// Both a and k receive gradients.
func (g *Graph) ScaleBy(a, k NodeID) (NodeID, error) {
	return g.Apply(ops.NewScaleByOp(), a, k)
}

// MatMul returns a node computing a @ b over the last two axes.
func (g *Graph) MatMul(a, b NodeID) (NodeID, error) {
	return g.Apply(ops.NewMatMulOp(), a, b)
}

// Apply runs op's forward pass on the given parents and, on success,
// appends the result node. Parents are recorded in the order given, which is
// the order op.Backward returns gradients in.
//
// On error nothing is appended to the graph.
func (g *Graph) Apply(op ops.Operation, parents ...NodeID) (NodeID, error) {
	if len(parents) != op.Arity() {
		return -1, fmt.Errorf("%s: expected %d inputs, got %d", op.Kind(), op.Arity(), len(parents))
	}
	inputs := make([]*tensor.RawTensor, len(parents))
	requiresGrad := false
	for i, p := range parents {
		n, err := g.lookup(p)
		if err != nil {
			return -1, fmt.Errorf("%s: %w", op.Kind(), err)
		}
		inputs[i] = n.value
		requiresGrad = requiresGrad || n.requiresGrad
	}

	value, err := op.Forward(inputs, g.backend)
	if err != nil {
		return -1, err
	}

	return g.push(&node{
		value:   value,
		parents:      append([]NodeID(nil), parents...),
		op:           op,
		requiresGrad: requiresGrad,
	}), nil
}

// SetName labels an existing node.
func (g *Graph) SetName(id NodeID, name string) error {
	n, err := g.lookup(id)
	if err != nil {
		return err
	}
	n.name = name
	return nil
}

// Value returns the forward value of id, or nil for an unknown handle.
func (g *Graph) Value(id NodeID) *tensor.RawTensor {
	if n, err := g.lookup(id); err == nil {
		return n.value
	}
	return nil
}

// Grad returns the accumulated gradient of id, or nil if nothing has been
// accumulated yet (or the handle is unknown).
func (g *Graph) Grad(id NodeID) *tensor.RawTensor {
	if n, err := g.lookup(id); err == nil {
		return n.grad
	}
	return nil
}

// RequiresGrad reports whether Backward computes a gradient for id.
func (g *Graph) RequiresGrad(id NodeID) bool {
	if n, err := g.lookup(id); err == nil {
		return n.requiresGrad
	}
	return false
}

// Parents returns a copy of id's parent handles in registration order.
func (g *Graph) Parents(id NodeID) []NodeID {
	if n, err := g.lookup(id); err == nil {
		return append([]NodeID(nil), n.parents...)
	}
	return nil
}

// Kind returns the operator tag of id (ops.KindLeaf for inputs).
func (g *Graph) Kind(id NodeID) ops.Kind {
	n, err := g.lookup(id)
	if err != nil || n.op == nil {
		return ops.KindLeaf
	}
	return n.op.Kind()
}

// Name returns the label of id, if any.
func (g *Graph) Name(id NodeID) string {
	if n, err := g.lookup(id); err == nil {
		return n.name
	}
	return ""
}

// push appends n and returns its handle.
func (g *Graph) push(n *node) NodeID {
	g.nodes = append(g.nodes, n)
	return NodeID(len(g.nodes) - 1)
}

// lookup resolves a handle.
func (g *Graph) lookup(id NodeID) (*node, error) {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil, fmt.Errorf("node %d: %w", id, ErrInvalidNode)
	}
	return g.nodes[id], nil
}

// accumulate adds contribution into id's gradient. It is the only place a
// gradient buffer is written; the first contribution is copied so that no
// two nodes ever share a gradient buffer.
func (g *Graph) accumulate(id NodeID, contribution *tensor.RawTensor) {
	n := g.nodes[id]
	if !contribution.Shape().Equal(n.value.Shape()) {
		panic(fmt.Sprintf("accumulate: node %d: gradient shape %v does not match value shape %v",
			id, contribution.Shape(), n.value.Shape()))
	}
	if n.grad == nil {
		n.grad = contribution.Clone()
		return
	}
	n.grad = g.backend.Add(n.grad, contribution)
}
