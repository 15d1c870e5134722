package structure

import (
	"encoding/json"
	"fmt"
)

// Node is one element or attribute in the structure tree of a dataset.
type Node struct {
	Tag        string         `json:"tag"`                  // Element or attribute name
	Path       string         `json:"path"`                 // Absolute locator, unique within the tree
	Kids       []*Node        `json:"kids"`                 // Children (empty for leaves)
	Lengths    []LengthBucket `json:"lengths"`              // Value-length statistics; non-empty for value-bearing leaves
	Count      int            `json:"count"`                // Occurrences across the dataset
	SourcePath string         `json:"sourcePath,omitempty"` // Optional annotation; empty means absent
	Outside    bool           `json:"outside,omitempty"`    // Lies outside the known record container
}

// HasValues reports whether the node carries observed value statistics.
func (n *Node) HasValues() bool {
	return len(n.Lengths) > 0
}

// LengthBucket is one entry of a node's value-length histogram.
type LengthBucket struct {
	Range string // e.g. "6-10"; empty when the source only sent a count
	Count int
}

// UnmarshalJSON accepts either a bare number or a [range, count] pair.
func (b *LengthBucket) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*b = LengthBucket{Count: n}
		return nil
	}
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("length bucket: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("length bucket: expected 2 elements, got %d", len(pair))
	}
	var rng any
	if err := json.Unmarshal(pair[0], &rng); err != nil {
		return fmt.Errorf("length bucket range: %w", err)
	}
	switch v := rng.(type) {
	case string:
		b.Range = v
	case float64:
		b.Range = fmt.Sprintf("%g", v)
	default:
		return fmt.Errorf("length bucket range: unexpected %T", rng)
	}
	if err := json.Unmarshal(pair[1], &b.Count); err != nil {
		return fmt.Errorf("length bucket count: %w", err)
	}
	return nil
}

// MarshalJSON writes the [range, count] pair form.
func (b LengthBucket) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{b.Range, b.Count})
}

// Delimiter is the (record root, unique id) pair that segments a dataset
// into records.
type Delimiter struct {
	RecordRoot  string `json:"recordRoot"`
	UniqueID    string `json:"uniqueId"`
	RecordCount int    `json:"recordCount"`
}

// Walk visits n and its descendants depth-first, pre-order. Returning false
// from fn stops the walk; Walk then returns false as well.
func Walk(n *Node, fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, kid := range n.Kids {
		if !Walk(kid, fn) {
			return false
		}
	}
	return true
}
