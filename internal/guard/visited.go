package guard

// Visited tracks fully-qualified names seen during a single traversal, so a
// self-referencing proto message or OpenAPI schema terminates instead of
// recursing forever.
type Visited struct {
	seen map[string]bool
}

// NewVisited returns an empty visited set.
func NewVisited() *Visited {
	return &Visited{seen: make(map[string]bool)}
}

// Visit reports whether name was already visited, and marks it visited.
func (v *Visited) Visit(name string) (alreadySeen bool) {
	if v.seen[name] {
		return true
	}
	v.seen[name] = true
	return false
}

// Leave un-marks name, allowing it to be visited again on a sibling branch
// of the traversal (cycles are only disallowed along a single root-to-leaf path).
func (v *Visited) Leave(name string) {
	delete(v.seen, name)
}
