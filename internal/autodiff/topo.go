package autodiff

// Visit states for TopoOrder.
const (
	unvisited uint8 = iota
	visiting        // on the current DFS path
	done            // emitted
)

// frame is one level of the explicit DFS stack.
type frame struct {
	id   NodeID
	next int // index of the next parent to visit
}

// TopoOrder returns every node reachable from root through parent edges,
// in depth-first post-order: each node appears exactly once, after all of
// its parents. Replaying the result from last to first therefore visits
// every consumer before any of its producers, which is the order Backward
// needs.
//
// Nodes reachable through several paths (diamonds) are emitted once. A node
// reachable from itself yields a *CycleError instead of looping.
func (g *Graph) TopoOrder(root NodeID) ([]NodeID, error) {
	if _, err := g.lookup(root); err != nil {
		return nil, err
	}

	state := make(map[NodeID]uint8)
	order := make([]NodeID, 0, len(g.nodes))
	stack := []frame{{id: root}}
	state[root] = visiting

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		parents := g.nodes[top.id].parents

		if top.next < len(parents) {
			p := parents[top.next]
			top.next++

			if _, err := g.lookup(p); err != nil {
				return nil, err
			}
			switch state[p] {
			case visiting:
				return nil, &CycleError{Node: p}
			case done:
				continue
			}
			state[p] = visiting
			stack = append(stack, frame{id: p})
			continue
		}

		// All parents emitted.
		state[top.id] = done
		order = append(order, top.id)
		stack = stack[:len(stack)-1]
	}

	return order, nil
}
