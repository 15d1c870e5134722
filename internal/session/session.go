package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/xmlray/internal/narthex"
	"github.com/dgallion1/xmlray/internal/statsview"
	"github.com/dgallion1/xmlray/internal/structure"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNodeNotFound    = errors.New("node not found")
	ErrNoSelection     = errors.New("no node selected")
	ErrUniqueIDLocked  = errors.New("unique id cannot be changed for this dataset")
	ErrSuperseded      = errors.New("superseded by a newer selection")
)

// Harvested datasets always use this delimiter.
const (
	harvestRecordRoot = "/pockets/pocket"
	harvestUniqueID   = "/pockets/pocket/@id"
)

// Collaborator is the dataset service a session reads from and stores
// delimiters to.
type Collaborator interface {
	DatasetInfo(ctx context.Context, name string) (narthex.DatasetInfo, error)
	Tree(ctx context.Context, name string) (*structure.Node, error)
	NodeStatus(ctx context.Context, name, path string) (statsview.Status, error)
	Sample(ctx context.Context, name, path string, size int) ([]string, error)
	Histogram(ctx context.Context, name, path string, size int) ([]statsview.Entry, error)
	SourcePaths(ctx context.Context, name string) ([]string, error)
	SetRecordDelimiter(ctx context.Context, name string, d structure.Delimiter) error
}

// Recorder is told about every delimiter stored upstream.
type Recorder interface {
	Record(ctx context.Context, dataset string, d structure.Delimiter) error
}

// Options are the per-session inputs taken from the caller's route.
type Options struct {
	OrgID        string         // Prefix of source path annotations
	PublicPrefix string         // Base of the download links in snapshots
	Path         string         // Tag route to select initially, e.g. "/records/record/title"
	View         statsview.Kind // View to enter on selection; histogram when empty
}

// Session is one dataset-view session: a normalized tree, the delimiter
// state and the statistics view of the selected node.
type Session struct {
	mu sync.Mutex

	ID        string
	Dataset   string
	CreatedAt time.Time
	updatedAt time.Time

	coll     Collaborator
	recorder Recorder
	log      *slog.Logger
	opts     Options

	tree             *structure.Node
	origin           string
	allowUniqueIDSet bool
	delimiter        *structure.Delimiter
	recordRoot       *structure.Node
	uniqueID         *structure.Node

	view          *statsview.Controller
	requestedView statsview.Kind
	selectSeq     uint64
}

// Open loads a dataset and prepares its tree: it is normalized, annotated
// against any known delimiter and pruned of stale source paths before Open
// returns. The initial selection is the node named by opts.Path, or the
// first node with values when no path is given.
func Open(ctx context.Context, id, dataset string, coll Collaborator, rec Recorder, log *slog.Logger, opts Options) (*Session, error) {
	now := time.Now()
	s := &Session{
		ID:            id,
		Dataset:       dataset,
		CreatedAt:     now,
		updatedAt:     now,
		coll:          coll,
		recorder:      rec,
		log:           log.With("session_id", id, "dataset", dataset),
		opts:          opts,
		view:          statsview.NewController(),
		requestedView: statsview.ParseKind(string(opts.View)),
	}

	var info narthex.DatasetInfo
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info, err = coll.DatasetInfo(gctx, dataset)
		return err
	})
	g.Go(func() error {
		var err error
		s.tree, err = coll.Tree(gctx, dataset)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("open %s: %w", dataset, err)
	}

	structure.Normalize(s.tree)
	s.applyDatasetInfo(ctx, info)

	if err := s.RefreshSourcePaths(ctx); err != nil {
		s.log.Warn("source paths unavailable, clearing annotations", "error", err)
		structure.PruneSourcePaths(s.tree, nil)
	}

	var initial *structure.Node
	if opts.Path != "" {
		initial, _ = structure.FindByTagPath(s.tree, opts.Path)
	} else {
		initial, _ = structure.FirstWithValues(s.tree)
	}
	if initial != nil {
		if _, err := s.SelectNode(ctx, initial.Path); err != nil {
			s.log.Warn("initial selection failed", "path", initial.Path, "error", err)
		}
	}
	return s, nil
}

func (s *Session) applyDatasetInfo(ctx context.Context, info narthex.DatasetInfo) {
	s.origin = info.Origin.Type

	var (
		known     structure.Delimiter
		container string
	)
	switch {
	case info.Origin.Type == narthex.OriginHarvest:
		// Harvested records sit directly under the record root.
		known = structure.Delimiter{RecordRoot: harvestRecordRoot, UniqueID: harvestUniqueID}
		container = harvestRecordRoot
		s.allowUniqueIDSet = false
	case info.Delimit != nil && info.Delimit.RecordRoot != "":
		known = structure.Delimiter{
			RecordRoot:  info.Delimit.RecordRoot,
			UniqueID:    info.Delimit.UniqueID,
			RecordCount: int(info.Delimit.RecordCount),
		}
		container = structure.RecordContainer(known.RecordRoot)
		s.allowUniqueIDSet = info.Origin.Type == narthex.OriginDrop
	default:
		s.allowUniqueIDSet = true
		return
	}

	found := structure.AnnotateDelimiter(s.tree, known, container, s.opts.OrgID+"/"+s.Dataset)
	s.recordRoot = found.RecordRoot
	s.uniqueID = found.UniqueID
	s.delimiter = &known

	// A stored delimiter without a record count is completed from the tree.
	// Only the count reported upstream counts; the harvest delimiter carries
	// none of its own.
	if info.Delimit != nil && int(info.Delimit.RecordCount) <= 0 && found.UniqueID != nil {
		if _, ok, err := s.storeUniqueID(ctx, found.UniqueID); err != nil {
			s.log.Warn("could not complete record count", "error", err)
		} else if !ok {
			s.log.Info("no record root matches stored unique id", "unique_id", known.UniqueID)
		}
	}
}

// SelectNode makes the node at path the selected node and fetches its
// statistics. Container nodes, the search root (empty path) and nodes
// outside the record container cannot be selected; SelectNode then returns
// false and changes nothing.
func (s *Session) SelectNode(ctx context.Context, path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	s.mu.Lock()
	node, ok := structure.FindByPath(s.tree, path)
	if !ok {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrNodeNotFound, path)
	}
	if !selectable(node) {
		s.mu.Unlock()
		return false, nil
	}
	s.selectSeq++
	seq := s.selectSeq
	s.touchLocked()
	s.mu.Unlock()

	status, err := s.coll.NodeStatus(ctx, s.Dataset, node.Path)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if seq != s.selectSeq {
		s.mu.Unlock()
		return false, ErrSuperseded
	}
	req, fetch := s.view.Select(node, &status, s.requestedView)
	s.mu.Unlock()

	if fetch {
		if err := s.fetch(ctx, req); err != nil {
			return true, err
		}
	}
	return true, nil
}

func selectable(n *structure.Node) bool {
	return n.HasValues() && n.Path != "" && !n.Outside
}

// ShowView switches the selected node to the given view, fetching its
// payload when needed.
func (s *Session) ShowView(ctx context.Context, kind statsview.Kind) error {
	s.mu.Lock()
	var (
		req   statsview.Request
		ok    bool
		fetch = true
	)
	switch kind {
	case statsview.KindLengths:
		ok = s.view.ShowLengths()
		fetch = false
	case statsview.KindSample:
		req, ok = s.view.ShowSample()
	default:
		kind = statsview.KindHistogram
		req, ok = s.view.ShowHistogram()
	}
	if !ok {
		s.mu.Unlock()
		return ErrNoSelection
	}
	s.requestedView = kind
	s.touchLocked()
	s.mu.Unlock()

	if !fetch {
		return nil
	}
	return s.fetch(ctx, req)
}

// More advances the sample or histogram view to its next size tier. It
// returns false when there is no larger tier.
func (s *Session) More(ctx context.Context, kind statsview.Kind) (bool, error) {
	s.mu.Lock()
	var (
		req statsview.Request
		ok  bool
	)
	switch kind {
	case statsview.KindSample:
		req, ok = s.view.MoreSample()
	case statsview.KindHistogram:
		req, ok = s.view.MoreHistogram()
	}
	if ok {
		s.requestedView = kind
		s.touchLocked()
	}
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	return true, s.fetch(ctx, req)
}

func (s *Session) fetch(ctx context.Context, req statsview.Request) error {
	switch req.Kind {
	case statsview.KindSample:
		values, err := s.coll.Sample(ctx, s.Dataset, req.Path, req.Size)
		if err != nil {
			return err
		}
		s.mu.Lock()
		applied := s.view.ApplySample(req, values)
		s.mu.Unlock()
		if !applied {
			s.log.Debug("discarded stale sample", "path", req.Path, "size", req.Size)
		}
	case statsview.KindHistogram:
		entries, err := s.coll.Histogram(ctx, s.Dataset, req.Path, req.Size)
		if err != nil {
			return err
		}
		s.mu.Lock()
		applied := s.view.ApplyHistogram(req, entries)
		s.mu.Unlock()
		if !applied {
			s.log.Debug("discarded stale histogram", "path", req.Path, "size", req.Size)
		}
	}
	return nil
}

// SetUniqueID proposes a delimiter using the node at path as unique id and
// stores it upstream. It returns false, changing nothing, when no container
// node occurs exactly as often as the candidate.
func (s *Session) SetUniqueID(ctx context.Context, path string) (structure.Delimiter, bool, error) {
	s.mu.Lock()
	if !s.allowUniqueIDSet {
		s.mu.Unlock()
		return structure.Delimiter{}, false, ErrUniqueIDLocked
	}
	node, ok := structure.FindByPath(s.tree, path)
	s.mu.Unlock()
	if !ok {
		return structure.Delimiter{}, false, fmt.Errorf("%w: %s", ErrNodeNotFound, path)
	}
	return s.storeUniqueID(ctx, node)
}

func (s *Session) storeUniqueID(ctx context.Context, node *structure.Node) (structure.Delimiter, bool, error) {
	s.mu.Lock()
	proposal, ok := structure.ProposeDelimiter(s.tree, node)
	s.mu.Unlock()
	if !ok {
		return structure.Delimiter{}, false, nil
	}

	if err := s.coll.SetRecordDelimiter(ctx, s.Dataset, proposal); err != nil {
		return structure.Delimiter{}, false, err
	}

	s.mu.Lock()
	s.recordRoot, _ = structure.FindByPath(s.tree, proposal.RecordRoot)
	s.uniqueID = node
	s.delimiter = &proposal
	s.touchLocked()
	s.mu.Unlock()
	s.log.Info("record delimiter set", "record_root", proposal.RecordRoot, "unique_id", proposal.UniqueID, "record_count", proposal.RecordCount)

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, s.Dataset, proposal); err != nil {
			s.log.Warn("delimiter history write failed", "error", err)
		}
	}
	return proposal, true, nil
}

// RefreshSourcePaths fetches the authoritative source paths and clears
// every annotation outside them.
func (s *Session) RefreshSourcePaths(ctx context.Context) error {
	paths, err := s.coll.SourcePaths(ctx, s.Dataset)
	if err != nil {
		return err
	}
	valid := structure.SourcePathSet(paths)
	s.mu.Lock()
	structure.PruneSourcePaths(s.tree, valid)
	s.touchLocked()
	s.mu.Unlock()
	return nil
}

// TreeJSON encodes the tree in its current state.
func (s *Session) TreeJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Marshal(s.tree)
}

// LastActive returns the time of the last state change or selection.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) touchLocked() {
	s.updatedAt = time.Now()
}

// NodeSummary identifies a node in snapshots.
type NodeSummary struct {
	Tag   string `json:"tag"`
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// Links are download locations for the selected node's values.
type Links struct {
	Unique    string `json:"unique"`
	Histogram string `json:"histogram"`
}

// Snapshot is a JSON-safe copy of the session state, without the tree.
type Snapshot struct {
	ID               string               `json:"id"`
	Dataset          string               `json:"dataset"`
	Origin           string               `json:"origin,omitempty"`
	AllowUniqueIDSet bool                 `json:"allowUniqueIdSet"`
	Delimiter        *structure.Delimiter `json:"delimiter,omitempty"`
	RecordRoot       *NodeSummary         `json:"recordRoot,omitempty"`
	UniqueID         *NodeSummary         `json:"uniqueId,omitempty"`
	Selected         *NodeSummary         `json:"selected,omitempty"`
	Links            *Links               `json:"links,omitempty"`
	Stats            statsview.Snapshot   `json:"stats"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:               s.ID,
		Dataset:          s.Dataset,
		Origin:           s.origin,
		AllowUniqueIDSet: s.allowUniqueIDSet,
		RecordRoot:       summarize(s.recordRoot),
		UniqueID:         summarize(s.uniqueID),
		Stats:            s.view.Snapshot(),
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.updatedAt,
	}
	if s.delimiter != nil {
		d := *s.delimiter
		snap.Delimiter = &d
	}
	if node := s.view.Node(); node != nil {
		snap.Selected = summarize(node)
		filePath := FilePath(node.Path)
		base := s.opts.PublicPrefix + "/" + s.Dataset
		snap.Links = &Links{
			Unique:    base + "/unique" + filePath,
			Histogram: base + "/histogram" + filePath,
		}
	}
	return snap
}

func summarize(n *structure.Node) *NodeSummary {
	if n == nil {
		return nil
	}
	return &NodeSummary{Tag: n.Tag, Path: n.Path, Count: n.Count}
}

// FilePath turns a node path into the file-safe form used by the download
// endpoints: the first ':' and the first '@' become '_'.
func FilePath(path string) string {
	path = strings.Replace(path, ":", "_", 1)
	return strings.Replace(path, "@", "_", 1)
}
