// Package session hands out handles to ingested files. Each session owns
// its tree and a bounded cache of flattened tables, optionally backed by
// a persistent row store.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/robert-malhotra/h5view/cache"
	"github.com/robert-malhotra/h5view/hdf5"
	"github.com/robert-malhotra/h5view/rows"
	"github.com/robert-malhotra/h5view/rowstore"
	"github.com/robert-malhotra/h5view/tree"
)

// ErrNotFound is returned for an unknown session id.
var ErrNotFound = errors.New("session not found")

// DefaultCacheLimit is the per-session table cache capacity.
const DefaultCacheLimit = 16

// Option configures a Manager.
type Option func(*Manager)

// WithCacheLimit sets the per-session cache capacity.
func WithCacheLimit(n int) Option {
	return func(m *Manager) { m.cacheLimit = n }
}

// WithStore backs every session's cache with a persistent store.
func WithStore(s *rowstore.Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithLogger sets the logger for sessions and tree builds.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics reports every session cache to the same collectors.
func WithMetrics(cm *cache.Metrics) Option {
	return func(m *Manager) { m.metrics = cm }
}

// WithFlattenOptions passes options to rows.Flatten on every cache miss.
func WithFlattenOptions(opts ...rows.Option) Option {
	return func(m *Manager) { m.flatten = append(m.flatten, opts...) }
}

// Manager tracks open sessions by id. It is safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	cacheLimit int
	store      *rowstore.Store
	logger     *slog.Logger
	metrics    *cache.Metrics
	flatten    []rows.Option
}

// NewManager creates an empty manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions:   make(map[string]*Session),
		cacheLimit: DefaultCacheLimit,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open builds the tree of src and registers a new session for it.
func (m *Manager) Open(src tree.Source) (*Session, error) {
	cacheOpts := []cache.Option[string, *rows.Table]{}
	if m.metrics != nil {
		cacheOpts = append(cacheOpts, cache.WithMetrics[string, *rows.Table](m.metrics))
	}
	c, err := cache.New(m.cacheLimit, cacheOpts...)
	if err != nil {
		return nil, err
	}

	t, err := tree.Build(src, tree.WithLogger(m.logger))
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	s := &Session{
		id:      id,
		tree:    t,
		cache:   c,
		store:   m.store,
		flatten: m.flatten,
		opened:  time.Now(),
		logger:  m.logger.With("session", id),
	}
	if m.store != nil {
		if s.fingerprint, err = tree.Fingerprint(src); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	s.logger.Info("session opened", "source", src.Name(), "nodes", t.Len())
	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Close drops the session and its cached tables. Persisted tables stay
// in the store.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.cache.Clear()
	s.logger.Info("session closed")
	return nil
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs returns the open session ids, sorted.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Session is one ingested file and its table cache.
type Session struct {
	id     string
	opened time.Time
	logger *slog.Logger

	// mu serializes tree access; Materialize writes into nodes.
	mu   sync.Mutex
	tree *tree.Tree

	cache       *cache.Cache[string, *rows.Table]
	store       *rowstore.Store
	fingerprint uint64
	flatten     []rows.Option
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Opened returns when the session was created.
func (s *Session) Opened() time.Time { return s.opened }

// Tree returns the session's tree.
func (s *Session) Tree() *tree.Tree { return s.tree }

// Cache returns the session's table cache.
func (s *Session) Cache() *cache.Cache[string, *rows.Table] { return s.cache }

// Select returns the table for the node at path. The cache is consulted
// first, then the row store; on a miss the node is flattened and the
// result stored in both.
func (s *Session) Select(ctx context.Context, path string) (*rows.Table, error) {
	path = hdf5.CleanPath(path)

	if t, ok := s.cache.TryGet(path); ok {
		s.logger.Debug("cache hit", "path", path)
		return t, nil
	}
	s.logger.Debug("cache miss", "path", path)

	if s.store != nil {
		t, err := s.store.Get(rowstore.Key(s.fingerprint, path))
		switch {
		case err == nil:
			s.logger.Debug("row store hit", "path", path)
			s.cache.Set(path, t)
			return t, nil
		case !errors.Is(err, rowstore.ErrNotFound):
			s.logger.Warn("row store read failed", "path", path, "error", err)
		}
	}

	t, err := s.load(ctx, path)
	if err != nil {
		return nil, err
	}
	s.cache.Set(path, t)
	if s.store != nil {
		if err := s.store.Put(rowstore.Key(s.fingerprint, path), t); err != nil {
			s.logger.Warn("row store write failed", "path", path, "error", err)
		}
	}
	return t, nil
}

func (s *Session) load(ctx context.Context, path string) (*rows.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.tree.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", tree.ErrNotFound, path)
	}
	if n.Type == tree.Dataset && !n.Dataset.IsDataLoaded() && n.Dataset.Diagnostic == nil {
		if err := s.tree.Materialize(path); err != nil {
			return nil, err
		}
	}
	return rows.Flatten(ctx, s.tree, n, s.flatten...)
}

// Invalidate drops the table for path from the cache and the row store.
func (s *Session) Invalidate(path string) error {
	path = hdf5.CleanPath(path)
	s.cache.Remove(path)
	if s.store != nil {
		return s.store.Delete(rowstore.Key(s.fingerprint, path))
	}
	return nil
}
