package autodiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphgrad/internal/backend/cpu"
	"github.com/born-ml/graphgrad/internal/tensor"
)

func scalarLeaf(g *Graph, v float64) NodeID {
	return g.Leaf(tensor.MustFromSlice([]float64{v}, tensor.Shape{1}))
}

// position returns the index of id within order, or -1.
func position(order []NodeID, id NodeID) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return -1
}

func TestTopoOrder_ParentsBeforeChildren(t *testing.T) {
	g := NewGraph(cpu.New())
	a := scalarLeaf(g, 1)
	b := scalarLeaf(g, 2)
	c, err := g.Add(a, b)
	require.NoError(t, err)
	d, err := g.Scale(c, 2)
	require.NoError(t, err)
	e, err := g.Sub(d, a)
	require.NoError(t, err)

	order, err := g.TopoOrder(e)
	require.NoError(t, err)
	require.Len(t, order, 5)
	assert.Equal(t, e, order[len(order)-1], "root is emitted last")

	seen := map[NodeID]int{}
	for _, id := range order {
		seen[id]++
		for _, p := range g.nodes[id].parents {
			assert.Less(t, position(order, p), position(order, id),
				"parent %d must precede child %d", p, id)
		}
	}
	for id, count := range seen {
		assert.Equalf(t, 1, count, "node %d emitted more than once", id)
	}
}

func TestTopoOrder_OnlyReachableNodes(t *testing.T) {
	g := NewGraph(cpu.New())
	a := scalarLeaf(g, 1)
	b := scalarLeaf(g, 2)
	_ = scalarLeaf(g, 3)
	c, err := g.Add(a, b)
	require.NoError(t, err)

	order, err := g.TopoOrder(c)
	require.NoError(t, err)
	assert.ElementsMatch(t, []NodeID{a, b, c}, order)
}

func TestTopoOrder_LeafRoot(t *testing.T) {
	g := NewGraph(cpu.New())
	a := scalarLeaf(g, 1)

	order, err := g.TopoOrder(a)
	require.NoError(t, err)
	assert.Equal(t, []NodeID{a}, order)
}

func TestTopoOrder_DeepChainDoesNotOverflow(t *testing.T) {
	g := NewGraph(cpu.New())
	x := scalarLeaf(g, 1)
	cur := x
	for i := 0; i < 100_000; i++ {
		next, err := g.Scale(cur, 1)
		require.NoError(t, err)
		cur = next
	}

	order, err := g.TopoOrder(cur)
	require.NoError(t, err)
	assert.Len(t, order, 100_001)
	assert.Equal(t, x, order[0])
}

func TestTopoOrder_DetectsCycle(t *testing.T) {
	g := NewGraph(cpu.New())
	a := scalarLeaf(g, 1)
	b, err := g.Scale(a, 2)
	require.NoError(t, err)
	c, err := g.Scale(b, 3)
	require.NoError(t, err)

	// Corrupt the arena: make b depend on c.
	g.nodes[b].parents = []NodeID{c}

	_, err = g.TopoOrder(c)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCycle)

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, c, cycleErr.Node)

	assert.ErrorIs(t, g.Backward(c), ErrCycle)
	assert.ErrorIs(t, g.ZeroGrad(c), ErrCycle)
}

func TestTopoOrder_DetectsSelfLoop(t *testing.T) {
	g := NewGraph(cpu.New())
	a := scalarLeaf(g, 1)
	b, err := g.Scale(a, 2)
	require.NoError(t, err)
	g.nodes[b].parents = []NodeID{b}

	_, err = g.TopoOrder(b)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestTopoOrder_DanglingParent(t *testing.T) {
	g := NewGraph(cpu.New())
	a := scalarLeaf(g, 1)
	b, err := g.Scale(a, 2)
	require.NoError(t, err)
	g.nodes[b].parents = []NodeID{17}

	_, err = g.TopoOrder(b)
	assert.ErrorIs(t, err, ErrInvalidNode)
}

func TestAccumulate_RejectsWrongShape(t *testing.T) {
	g := NewGraph(cpu.New())
	a := scalarLeaf(g, 1)
	assert.Panics(t, func() {
		g.accumulate(a, tensor.MustFromSlice([]float64{1, 2}, tensor.Shape{2}))
	})
}
