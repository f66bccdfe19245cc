package autodiff

import (
	"fmt"

	"github.com/born-ml/graphgrad/internal/tensor"
)

// Backward computes gradients of root with respect to every node reachable
// from it, seeding root with ones shaped like its value.
//
// Algorithm:
//  1. Order reachable nodes with TopoOrder
//  2. Seed root with the output gradient
//  3. Walk the order from last to first; for each non-leaf node that
//     requires a gradient call its operation's Backward and add the results
//     to the parents that require one
//  4. Accumulate this pass's gradients into every node's stored gradient
//
// Backward on a root that does not require a gradient is a no-op.
//
// Stored gradients are never reset here: calling Backward twice without
// ZeroGrad leaves every gradient at exactly twice the single-pass value.
func (g *Graph) Backward(root NodeID) error {
	n, err := g.lookup(root)
	if err != nil {
		return fmt.Errorf("backward: %w", err)
	}
	return g.BackwardWithSeed(root, tensor.OnesLike(n.value))
}

// BackwardWithSeed is Backward with a caller-supplied output gradient.
// The seed must have root's shape and dtype.
func (g *Graph) BackwardWithSeed(root NodeID, seed *tensor.RawTensor) error {
	rootNode, err := g.lookup(root)
	if err != nil {
		return fmt.Errorf("backward: %w", err)
	}
	if err := tensor.CheckSameShape("backward", seed.Shape(), rootNode.value.Shape()); err != nil {
		return err
	}
	if err := tensor.CheckSameDType("backward", seed.DType(), rootNode.value.DType()); err != nil {
		return err
	}

	order, err := g.TopoOrder(root)
	if err != nil {
		return fmt.Errorf("backward: %w", err)
	}

	if !rootNode.requiresGrad {
		return nil
	}

	// Gradients produced during this pass only.
	grads := make(map[NodeID]*tensor.RawTensor, len(order))
	grads[root] = seed

	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		n := g.nodes[id]
		outputGrad, ok := grads[id]
		if !ok || n.op == nil || !n.requiresGrad {
			continue
		}

		inputGrads := n.op.Backward(outputGrad, g.parentValues(n), g.backend)
		for j, p := range n.parents {
			if j >= len(inputGrads) || inputGrads[j] == nil || !g.nodes[p].requiresGrad {
				continue
			}
			g.addPassGrad(grads, p, inputGrads[j])
		}
	}

	for _, id := range order {
		if grad, ok := grads[id]; ok {
			g.accumulate(id, grad)
		}
	}
	return nil
}

// ZeroGrad resets the gradient of root and of every node reachable from it
// to zeros of the node's shape. Each node is visited once. Nodes that do not
// require a gradient are left with a nil gradient.
func (g *Graph) ZeroGrad(root NodeID) error {
	order, err := g.TopoOrder(root)
	if err != nil {
		return fmt.Errorf("zero grad: %w", err)
	}
	for _, id := range order {
		n := g.nodes[id]
		if !n.requiresGrad {
			continue
		}
		n.grad = g.backend.ZerosLike(n.value)
	}
	return nil
}

// parentValues collects the forward values of n's parents in order.
func (g *Graph) parentValues(n *node) []*tensor.RawTensor {
	values := make([]*tensor.RawTensor, len(n.parents))
	for i, p := range n.parents {
		values[i] = g.nodes[p].value
	}
	return values
}

// addPassGrad sums a contribution into the pass-local gradient of id.
// Buffers in grads are never mutated, so storing the first contribution by
// reference is safe even when an operation returns the same buffer twice.
func (g *Graph) addPassGrad(grads map[NodeID]*tensor.RawTensor, id NodeID, contribution *tensor.RawTensor) {
	if existing, ok := grads[id]; ok {
		grads[id] = g.backend.Add(existing, contribution)
		return
	}
	grads[id] = contribution
}
