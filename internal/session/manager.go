package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/xmlray/internal/statsview"
)

// ManagerConfig holds the settings shared by every session.
type ManagerConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
	OrgID           string
	PublicPrefix    string
}

// Manager opens sessions against one collaborator and evicts idle ones.
type Manager struct {
	sessions *Store
	coll     Collaborator
	recorder Recorder
	log      *slog.Logger
	cfg      ManagerConfig
	newID    func() string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(cfg ManagerConfig, coll Collaborator, rec Recorder, log *slog.Logger) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	return &Manager{
		sessions: NewStore(cfg.TTL),
		coll:     coll,
		recorder: rec,
		log:      log,
		cfg:      cfg,
		newID:    func() string { return uuid.Must(uuid.NewV7()).String() },
	}
}

// Start launches the idle-session cleanup loop.
func (m *Manager) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if n := m.sessions.Cleanup(); n > 0 {
					m.log.Info("evicted idle sessions", "count", n)
				}
			}
		}
	}()
}

// Stop ends the cleanup loop.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// Open creates a session for dataset. path and view are the caller's route
// inputs and may be empty.
func (m *Manager) Open(ctx context.Context, dataset, path string, view statsview.Kind) (*Session, error) {
	if dataset == "" {
		return nil, fmt.Errorf("dataset is required")
	}
	sess, err := Open(ctx, m.newID(), dataset, m.coll, m.recorder, m.log, Options{
		OrgID:        m.cfg.OrgID,
		PublicPrefix: m.cfg.PublicPrefix,
		Path:         path,
		View:         view,
	})
	if err != nil {
		return nil, err
	}
	m.sessions.Put(sess)
	m.log.Info("session opened", "session_id", sess.ID, "dataset", dataset)
	return sess, nil
}

// Get returns an open session.
func (m *Manager) Get(id string) (*Session, error) {
	sess := m.sessions.Get(id)
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Close discards a session.
func (m *Manager) Close(id string) error {
	if !m.sessions.Delete(id) {
		return ErrSessionNotFound
	}
	return nil
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	return m.sessions.Len()
}
