package workflow

import "fmt"

// dagNode tracks scheduling state for one step during DAG execution.
type dagNode struct {
	step       *Step
	index      int
	dependents []string // steps that list this step in depends_on
	remaining  int       // count of not-yet-satisfied dependencies
}

// buildDAG validates depends_on references and computes each step's
// in-degree, the same shape as the teacher's topoSort (inDegree +
// adjacency maps) but keyed by step name instead of node ID.
func buildDAG(steps []Step) (map[string]*dagNode, error) {
	nodes := make(map[string]*dagNode, len(steps))
	for i := range steps {
		s := &steps[i]
		if s.Name == "" {
			return nil, fmt.Errorf("step at index %d has no name", i)
		}
		if _, dup := nodes[s.Name]; dup {
			return nil, fmt.Errorf("duplicate step name %q", s.Name)
		}
		nodes[s.Name] = &dagNode{step: s, index: i}
	}

	for name, n := range nodes {
		for _, dep := range n.step.DependsOn {
			depNode, ok := nodes[dep]
			if !ok {
				return nil, fmt.Errorf("step %q depends_on unknown step %q", name, dep)
			}
			depNode.dependents = append(depNode.dependents, name)
			n.remaining++
		}
	}

	if err := detectCycle(nodes); err != nil {
		return nil, err
	}

	return nodes, nil
}

// detectCycle runs Kahn's algorithm purely to confirm a full topological
// order exists; the actual dispatch in Engine.Run recomputes remaining
// counts live so concurrently-completing predecessors unblock dependents
// as soon as they finish, rather than waiting for a precomputed batch.
func detectCycle(nodes map[string]*dagNode) error {
	remaining := make(map[string]int, len(nodes))
	for name, n := range nodes {
		remaining[name] = n.remaining
	}

	var queue []string
	for name, r := range remaining {
		if r == 0 {
			queue = append(queue, name)
		}
	}

	visitedCount := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		visitedCount++
		for _, dep := range nodes[cur].dependents {
			remaining[dep]--
			if remaining[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if visitedCount != len(nodes) {
		return fmt.Errorf("workflow graph contains a depends_on cycle")
	}
	return nil
}
