package mir

// Walk computes the set of definitions reachable from roots.  successors
// returns the definitions directly referenced by a definition.  The item graph
// may be cyclic: every definition is visited at most once, and the walk uses an
// explicit work queue so that deep graphs cannot exhaust the stack.  The result
// is in breadth-first discovery order, which is deterministic as long as roots
// and successors are.
func Walk(roots []DefID, successors func(DefID) ([]DefID, error)) ([]DefID, error) {
	visited := make(map[DefID]struct{})
	var order []DefID

	queue := make([]DefID, 0, len(roots))
	for _, root := range roots {
		if _, ok := visited[root]; !ok {
			visited[root] = struct{}{}
			queue = append(queue, root)
		}
	}

	for len(queue) > 0 {
		def := queue[0]
		queue = queue[1:]
		order = append(order, def)

		succs, err := successors(def)
		if err != nil {
			return nil, err
		}

		for _, succ := range succs {
			if _, ok := visited[succ]; ok {
				continue
			}

			visited[succ] = struct{}{}
			queue = append(queue, succ)
		}
	}

	return order, nil
}
