package structure

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Validation errors.
var (
	ErrNilKid        = errors.New("nil kid")
	ErrNegativeCount = errors.New("negative count")
	ErrDuplicatePath = errors.New("duplicate path")
	ErrTooDeep       = errors.New("tree too deep")
	errNilTree       = errors.New("nil tree")
)

// MaxDepth bounds how deep a decoded tree may nest.
const MaxDepth = 512

// Validate checks a decoded tree for the shape the algorithms in this
// package rely on: no nil kids, non-negative counts, unique non-empty paths
// and bounded depth.
func Validate(root *Node) error {
	if root == nil {
		return errNilTree
	}
	seen := make(map[string]bool)
	var check func(n *Node, depth int) error
	check = func(n *Node, depth int) error {
		if depth > MaxDepth {
			return fmt.Errorf("%w: %s", ErrTooDeep, n.Path)
		}
		if n.Count < 0 {
			return fmt.Errorf("%w: %s (%d)", ErrNegativeCount, n.Path, n.Count)
		}
		if n.Path != "" {
			if seen[n.Path] {
				return fmt.Errorf("%w: %s", ErrDuplicatePath, n.Path)
			}
			seen[n.Path] = true
		}
		for i, kid := range n.Kids {
			if kid == nil {
				return fmt.Errorf("%w: %s[%d]", ErrNilKid, n.Path, i)
			}
			if err := check(kid, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return check(root, 0)
}

// Decode reads a JSON tree and validates it.
func Decode(r io.Reader) (*Node, error) {
	var root Node
	if err := json.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	if err := Validate(&root); err != nil {
		return nil, fmt.Errorf("invalid tree: %w", err)
	}
	return &root, nil
}
