package eldamo

import "fmt"

// Link attaches r to root and to every entity reachable from it through ChildNodes.
// Each entity is visited once even if it is reachable along several paths. Reaching an
// entity that already carries a Resolver aborts with ErrAlreadyLinked.
func Link(root Node, r Resolver) error {
	if r == nil {
		return fmt.Errorf("link: nil resolver")
	}
	if isNil(root) {
		return nil
	}

	seen := make(map[Node]struct{})
	stack := []Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}

		if err := n.attach(r); err != nil {
			return fmt.Errorf("link %T: %w", n, err)
		}

		children := n.ChildNodes()
		// push in reverse so children are visited in document order
		for i := len(children) - 1; i >= 0; i-- {
			if c := children[i]; !isNil(c) {
				stack = append(stack, c)
			}
		}
	}
	return nil
}
