// Package statsview tracks which statistics view is active for the selected
// structure node and steps its sample and histogram sizes through the tiers
// offered by the statistics service.
//
// The controller performs no I/O. Entering the sample or histogram view
// returns a Request; the caller fetches it and hands the result back through
// ApplySample or ApplyHistogram. Every request carries a token, and only the
// most recently issued token is accepted, so a slow response for an earlier
// selection or size never overwrites a newer view.
package statsview

import (
	"slices"

	"github.com/dgallion1/xmlray/internal/structure"
)

// DefaultSize is the initial sample and histogram size after a selection.
const DefaultSize = 100

// Kind names a statistics view.
type Kind string

const (
	KindLengths   Kind = "lengths"
	KindSample    Kind = "sample"
	KindHistogram Kind = "histogram"
)

// ParseKind maps a route or request value to a Kind. Unknown and empty
// values map to the histogram view.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindLengths:
		return KindLengths
	case KindSample:
		return KindSample
	default:
		return KindHistogram
	}
}

// View is the active view together with its payload. Exactly one of
// LengthsView, SampleView and HistogramView is active at a time.
type View interface {
	Kind() Kind
}

// LengthsView shows the node's own length statistics; it has no payload.
type LengthsView struct{}

// SampleView holds raw values fetched at Size. Loaded is false while the
// fetch is outstanding.
type SampleView struct {
	Size   int
	Values []string
	Loaded bool
}

// HistogramView holds a post-processed histogram fetched at Size. Histogram
// is nil while the fetch is outstanding.
type HistogramView struct {
	Size      int
	Histogram *Histogram
}

func (LengthsView) Kind() Kind   { return KindLengths }
func (SampleView) Kind() Kind    { return KindSample }
func (HistogramView) Kind() Kind { return KindHistogram }

// Request describes a fetch the caller must perform.
type Request struct {
	Token uint64
	Kind  Kind
	Path  string
	Size  int
}

// Controller is the view state machine for one selected node.
type Controller struct {
	node          *structure.Node
	status        *Status
	sampleSize    int
	histogramSize int
	view          View
	token         uint64
}

func NewController() *Controller {
	return &Controller{
		sampleSize:    DefaultSize,
		histogramSize: DefaultSize,
	}
}

// Select makes node the selected node, discarding every payload and
// resetting both sizes, then enters the requested view. It reports whether
// the returned Request must be fetched.
func (c *Controller) Select(node *structure.Node, status *Status, requested Kind) (Request, bool) {
	c.node = node
	c.status = status
	c.sampleSize = DefaultSize
	c.histogramSize = DefaultSize
	c.view = nil
	c.token++

	switch requested {
	case KindLengths:
		c.ShowLengths()
		return Request{}, false
	case KindSample:
		return c.ShowSample()
	default:
		return c.ShowHistogram()
	}
}

// ShowLengths enters the lengths view and drops any sample or histogram.
func (c *Controller) ShowLengths() bool {
	if c.node == nil {
		return false
	}
	c.token++
	c.view = LengthsView{}
	return true
}

// ShowSample enters the sample view at the current sample size.
func (c *Controller) ShowSample() (Request, bool) {
	if c.node == nil {
		return Request{}, false
	}
	c.token++
	c.view = SampleView{Size: c.sampleSize}
	return c.request(KindSample, c.sampleSize), true
}

// ShowHistogram enters the histogram view at the current histogram size.
func (c *Controller) ShowHistogram() (Request, bool) {
	if c.node == nil {
		return Request{}, false
	}
	c.token++
	c.view = HistogramView{Size: c.histogramSize}
	return c.request(KindHistogram, c.histogramSize), true
}

// IsMoreSample reports whether a larger sample tier exists.
func (c *Controller) IsMoreSample() bool {
	if c.status == nil {
		return false
	}
	_, ok := nextTier(c.status.Samples, c.sampleSize)
	return ok
}

// IsMoreHistogram reports whether a larger histogram tier exists.
func (c *Controller) IsMoreHistogram() bool {
	if c.status == nil {
		return false
	}
	_, ok := nextTier(c.status.Histograms, c.histogramSize)
	return ok
}

// MoreSample advances to the next sample tier and re-enters the sample view.
func (c *Controller) MoreSample() (Request, bool) {
	if c.node == nil || c.status == nil {
		return Request{}, false
	}
	next, ok := nextTier(c.status.Samples, c.sampleSize)
	if !ok {
		return Request{}, false
	}
	c.sampleSize = next
	return c.ShowSample()
}

// MoreHistogram advances to the next histogram tier and re-enters the
// histogram view.
func (c *Controller) MoreHistogram() (Request, bool) {
	if c.node == nil || c.status == nil {
		return Request{}, false
	}
	next, ok := nextTier(c.status.Histograms, c.histogramSize)
	if !ok {
		return Request{}, false
	}
	c.histogramSize = next
	return c.ShowHistogram()
}

// ApplySample stores fetched sample values. It returns false, leaving the
// state unchanged, when req is no longer the latest request.
func (c *Controller) ApplySample(req Request, values []string) bool {
	if !c.current(req, KindSample) {
		return false
	}
	c.view = SampleView{Size: req.Size, Values: values, Loaded: true}
	return true
}

// ApplyHistogram post-processes and stores fetched histogram entries. It
// returns false, leaving the state unchanged, when req is no longer the
// latest request.
func (c *Controller) ApplyHistogram(req Request, entries []Entry) bool {
	if !c.current(req, KindHistogram) {
		return false
	}
	h := BuildHistogram(entries, c.node.Count, c.status)
	c.view = HistogramView{Size: req.Size, Histogram: &h}
	return true
}

// TermsSize returns the largest histogram tier, used by the full term list.
func (c *Controller) TermsSize() (int, bool) {
	if c.status == nil || len(c.status.Histograms) == 0 {
		return 0, false
	}
	return c.status.Histograms[len(c.status.Histograms)-1], true
}

func (c *Controller) Node() *structure.Node { return c.node }
func (c *Controller) SampleSize() int        { return c.sampleSize }
func (c *Controller) HistogramSize() int     { return c.histogramSize }

// View returns the active view, or nil before the first selection.
func (c *Controller) View() View { return c.view }

func (c *Controller) request(kind Kind, size int) Request {
	return Request{Token: c.token, Kind: kind, Path: c.node.Path, Size: size}
}

func (c *Controller) current(req Request, kind Kind) bool {
	return c.node != nil && req.Token == c.token && req.Kind == kind && c.view != nil && c.view.Kind() == kind
}

// nextTier returns the tier following current. It fails when current is
// not a tier or is already the last one.
func nextTier(tiers []int, current int) (int, bool) {
	i, found := slices.BinarySearch(tiers, current)
	if !found || i >= len(tiers)-1 {
		return 0, false
	}
	return tiers[i+1], true
}
