package structure

import "strings"

// FirstWithValues returns the first value-bearing node in pre-order,
// starting with n itself.
func FirstWithValues(n *Node) (*Node, bool) {
	return first(n, func(c *Node) bool { return c.HasValues() })
}

// FirstEmptyWithCount returns the first node in pre-order that has no value
// statistics and occurs exactly count times.
func FirstEmptyWithCount(n *Node, count int) (*Node, bool) {
	return first(n, func(c *Node) bool { return !c.HasValues() && c.Count == count })
}

// FindByPath returns the node whose Path equals path.
func FindByPath(n *Node, path string) (*Node, bool) {
	if path == "" {
		return nil, false
	}
	return first(n, func(c *Node) bool { return c.Path == path })
}

// FindByTagPath resolves a route such as "/records/record/title" by
// following, segment by segment, the first kid whose tag matches. The first
// segment is matched against root itself.
func FindByTagPath(root *Node, route string) (*Node, bool) {
	route = strings.TrimPrefix(route, "/")
	if root == nil || route == "" {
		return nil, false
	}
	cur := &Node{Kids: []*Node{root}}
	for _, tag := range strings.Split(route, "/") {
		var next *Node
		for _, kid := range cur.Kids {
			if kid.Tag == tag {
				next = kid
				break
			}
		}
		if next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func first(n *Node, match func(*Node) bool) (*Node, bool) {
	var found *Node
	Walk(n, func(c *Node) bool {
		if match(c) {
			found = c
			return false
		}
		return true
	})
	return found, found != nil
}
