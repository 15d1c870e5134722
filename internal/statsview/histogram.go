package statsview

import (
	"encoding/json"
	"fmt"
)

// MaxForVocabulary is the distinct-value ceiling below which a histogram
// is offered as a vocabulary.
const MaxForVocabulary = 12500

// Status describes the statistics available for one node.
type Status struct {
	Samples     []int `json:"samples"`    // Ascending sample size tiers
	Histograms  []int `json:"histograms"` // Ascending histogram size tiers
	UniqueCount int   `json:"uniqueCount"`
}

// Entry is one histogram row. On the wire it is a [count, value] pair, with
// percent appended as a third element once computed.
type Entry struct {
	Count   int
	Value   string
	Percent float64
}

// UnmarshalJSON reads a [count, value] or [count, value, percent] array.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("histogram entry: %w", err)
	}
	if len(raw) < 2 {
		return fmt.Errorf("histogram entry: expected at least 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &e.Count); err != nil {
		return fmt.Errorf("histogram entry count: %w", err)
	}
	if err := json.Unmarshal(raw[1], &e.Value); err != nil {
		return fmt.Errorf("histogram entry value: %w", err)
	}
	if len(raw) > 2 {
		if err := json.Unmarshal(raw[2], &e.Percent); err != nil {
			return fmt.Errorf("histogram entry percent: %w", err)
		}
	}
	return nil
}

// MarshalJSON writes [count, value, percent].
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Count, e.Value, e.Percent})
}

// Histogram is a post-processed histogram for the selected node.
type Histogram struct {
	Entries    []Entry `json:"histogram"`
	Unique     bool    `json:"unique"`     // Even the most frequent value occurs once
	Vocabulary bool    `json:"vocabulary"` // Small enough to offer as a term list
}

// BuildHistogram appends percentages relative to nodeCount, the selected
// node's total occurrence count, and derives the unique and vocabulary
// flags. The input slice is not modified.
func BuildHistogram(entries []Entry, nodeCount int, status *Status) Histogram {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		e.Percent = 0
		if nodeCount > 0 {
			e.Percent = 100 * float64(e.Count) / float64(nodeCount)
		}
		out[i] = e
	}
	h := Histogram{Entries: out}
	h.Unique = len(out) > 0 && out[0].Count == 1
	if !h.Unique && status != nil {
		h.Vocabulary = status.UniqueCount < MaxForVocabulary
	}
	return h
}
