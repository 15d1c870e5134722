package structure

import (
	"slices"
	"strings"
)

// Normalize sorts every node's kids by case-insensitive tag, in place.
// The sort is stable, so kids sharing a tag keep their relative order.
// A parent's kids are sorted before its subtrees are visited.
func Normalize(n *Node) {
	if n == nil || len(n.Kids) == 0 {
		return
	}
	slices.SortStableFunc(n.Kids, func(a, b *Node) int {
		return strings.Compare(strings.ToLower(a.Tag), strings.ToLower(b.Tag))
	})
	for _, kid := range n.Kids {
		Normalize(kid)
	}
}
