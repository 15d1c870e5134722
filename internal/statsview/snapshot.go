package statsview

// Snapshot is a JSON-safe copy of the controller state.
type Snapshot struct {
	View          Kind       `json:"view,omitempty"`
	Pending       bool       `json:"pending"`
	SampleSize    int        `json:"sampleSize"`
	HistogramSize int        `json:"histogramSize"`
	MoreSample    bool       `json:"moreSample"`
	MoreHistogram bool       `json:"moreHistogram"`
	TermsSize     int        `json:"termsSize,omitempty"`
	Status        *Status    `json:"status,omitempty"`
	Sample        []string   `json:"sample,omitempty"`
	Histogram     *Histogram `json:"histogram,omitempty"`
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{
		SampleSize:    c.sampleSize,
		HistogramSize: c.histogramSize,
		MoreSample:    c.IsMoreSample(),
		MoreHistogram: c.IsMoreHistogram(),
	}
	if size, ok := c.TermsSize(); ok {
		snap.TermsSize = size
	}
	if c.status != nil {
		st := *c.status
		snap.Status = &st
	}
	switch v := c.view.(type) {
	case LengthsView:
		snap.View = KindLengths
	case SampleView:
		snap.View = KindSample
		snap.Pending = !v.Loaded
		snap.Sample = append([]string(nil), v.Values...)
	case HistogramView:
		snap.View = KindHistogram
		snap.Pending = v.Histogram == nil
		if v.Histogram != nil {
			h := *v.Histogram
			h.Entries = append([]Entry(nil), v.Histogram.Entries...)
			snap.Histogram = &h
		}
	}
	return snap
}
