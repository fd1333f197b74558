package graph

// Dependencies returns the distinct nodes id reads from, in reference order.
func (m *Model) Dependencies(id NodeID) []NodeID {
	n, ok := m.index[id]
	if !ok {
		return nil
	}
	var deps []NodeID
	seen := make(map[NodeID]bool)
	for _, in := range n.InputPorts() {
		for _, ref := range in.refs {
			if !seen[ref.Node] {
				seen[ref.Node] = true
				deps = append(deps, ref.Node)
			}
		}
	}
	return deps
}

// Dependents returns the nodes reading at least one output of id, in
// construction order.
func (m *Model) Dependents(id NodeID) []NodeID {
	var out []NodeID
	for _, n := range m.nodes {
		if n.ID() == id {
			continue
		}
		if readsFrom(n, id) {
			out = append(out, n.ID())
		}
	}
	return out
}

func readsFrom(n Node, id NodeID) bool {
	for _, in := range n.InputPorts() {
		for _, ref := range in.refs {
			if ref.Node == id {
				return true
			}
		}
	}
	return false
}

// TopologicalOrder returns the nodes ordered so that every node follows the
// nodes it reads from. Ties keep construction order. It uses Kahn's
// algorithm, so graph depth never grows the call stack.
//
// A reference to a missing node yields *UnresolvedReferenceError and a cycle
// yields *CyclicGraphError.
func (m *Model) TopologicalOrder() ([]Node, error) {
	indegree := make(map[NodeID]int, len(m.nodes))
	dependents := make(map[NodeID][]NodeID, len(m.nodes))
	for _, n := range m.nodes {
		indegree[n.ID()] += 0
		for _, in := range n.InputPorts() {
			for _, ref := range in.refs {
				if _, ok := m.index[ref.Node]; !ok {
					return nil, &UnresolvedReferenceError{Node: n.ID(), Input: in.name, Reference: ref}
				}
			}
		}
		for _, dep := range m.Dependencies(n.ID()) {
			indegree[n.ID()]++
			dependents[dep] = append(dependents[dep], n.ID())
		}
	}

	queue := make([]NodeID, 0, len(m.nodes))
	for _, n := range m.nodes {
		if indegree[n.ID()] == 0 {
			queue = append(queue, n.ID())
		}
	}

	order := make([]Node, 0, len(m.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, m.index[id])
		for _, next := range dependents[id] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(m.nodes) {
		var stuck []NodeID
		for _, n := range m.nodes {
			if indegree[n.ID()] > 0 {
				stuck = append(stuck, n.ID())
			}
		}
		return nil, &CyclicGraphError{Nodes: stuck}
	}
	return order, nil
}

// IsDAG reports whether the model is acyclic with every reference pointing
// at an existing node.
func (m *Model) IsDAG() bool {
	_, err := m.TopologicalOrder()
	return err == nil
}

// Prune removes every node whose outputs nobody consumes, repeating until
// only consumed nodes and sinks remain. The sweep walks the reverse
// topological order once, decrementing consumer counts as nodes die, and
// returns the removed ids in removal order.
func (m *Model) Prune() ([]NodeID, error) {
	order, err := m.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	consumers := make(map[NodeID]int, len(m.nodes))
	for _, n := range m.nodes {
		for _, in := range n.InputPorts() {
			for _, ref := range in.refs {
				consumers[ref.Node]++
			}
		}
	}

	var removed []NodeID
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		if isSink(n) || consumers[n.ID()] > 0 {
			continue
		}
		for _, in := range n.InputPorts() {
			for _, ref := range in.refs {
				consumers[ref.Node]--
			}
		}
		removed = append(removed, n.ID())
	}

	for _, id := range removed {
		m.detach(id)
	}
	m.RecomputeReferenced()
	return removed, nil
}

func isSink(n Node) bool {
	s, ok := n.(Sink)
	return ok && s.IsSink()
}
