package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/valstats/matchcache/internal/models"
)

// DBFile is the database file name inside a scope directory.
const DBFile = "matches.db"

// ManagerConfig configures a Manager
type ManagerConfig struct {
	Root   string
	Logger *zap.Logger
	// Now feeds the wall-clock end of the timestamp chain. Defaults to time.Now.
	Now func() time.Time
}

// Manager hands out one shared Store per scope. Opening or pruning a scope
// locks only that scope.
type Manager struct {
	root   string
	logger *zap.SugaredLogger
	now    func() time.Time

	mu      sync.Mutex
	handles map[string]*Store
	locks   map[string]*sync.Mutex
	closed  bool
}

// NewManager creates a manager rooted at cfg.Root.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{
		root:    cfg.Root,
		logger:  cfg.Logger.Sugar(),
		now:     cfg.Now,
		handles: make(map[string]*Store),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Root returns the directory all scopes live under.
func (m *Manager) Root() string { return m.root }

// lookup returns the open handle of key and the lock that serializes opening
// and pruning it.
func (m *Manager) lookup(key string) (*Store, *sync.Mutex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, nil, models.StoreFailure(key, ErrClosed)
	}
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return m.handles[key], l, nil
}

// Open returns the store for scope, creating its directory and database on
// first use. Concurrent callers for the same scope share one handle.
func (m *Manager) Open(ctx context.Context, scope models.Scope) (*Store, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := scope.Key()
	s, l, err := m.lookup(key)
	if err != nil || s != nil {
		return s, err
	}

	l.Lock()
	defer l.Unlock()

	if s, _, err := m.lookup(key); err != nil || s != nil {
		return s, err
	}

	dir := scope.Dir(m.root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, models.StoreFailure("creating scope directory", err)
	}
	db, err := openDB(filepath.Join(dir, DBFile))
	if err != nil {
		return nil, models.StoreFailure("opening "+dir, err)
	}

	s = &Store{mgr: m, db: db, scope: scope, logger: m.logger.With("scope", key), now: m.now}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		db.Close()
		return nil, models.StoreFailure(key, ErrClosed)
	}
	m.handles[key] = s
	m.mu.Unlock()

	m.logger.Infow("Opened match store", "scope", key, "path", dir)
	return s, nil
}

// Prune deletes the storage directory of a scope. It reports whether anything
// was there to delete. Operations in flight on the scope finish first; later
// ones reopen an empty store.
func (m *Manager) Prune(scope models.Scope) (bool, error) {
	if err := scope.Validate(); err != nil {
		return false, err
	}

	key := scope.Key()
	_, l, err := m.lookup(key)
	if err != nil {
		return false, err
	}
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	s := m.handles[key]
	delete(m.handles, key)
	m.mu.Unlock()

	if s != nil {
		if err := s.Close(); err != nil {
			m.logger.Warnw("Failed to close store before prune", "scope", key, "error", err)
		}
	}

	dir := scope.Dir(m.root)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, models.StoreFailure("pruning "+dir, err)
	}
	m.logger.Infow("Pruned match store", "scope", key, "path", dir)
	return true, nil
}

// Close closes every open store. Open fails afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	handles := m.handles
	m.handles = make(map[string]*Store)
	m.mu.Unlock()

	var errs []error
	for key, s := range handles {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
