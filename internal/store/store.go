// Package store is the persistent, per-scope match cache: compressed match
// blobs plus the by_puuid, riot_to_puuid and latest_by_player indexes.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/valstats/matchcache/internal/codec"
	"github.com/valstats/matchcache/internal/models"
)

//go:embed schema.sql
var schema string

// ErrClosed is returned by a store whose manager has been closed.
var ErrClosed = errors.New("store closed")

// Store is one opened scope. It is safe for concurrent use; writers are
// serialized by the single connection.
//
// Operations hold mu shared and Close holds it exclusively, so a prune waits
// for operations in flight. A store closed by a prune hands later operations
// to a fresh handle from its manager.
type Store struct {
	mgr    *Manager
	scope  models.Scope
	logger *zap.SugaredLogger
	now    func() time.Time

	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA synchronous = FULL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return db, nil
}

// Scope returns the partition this store serves.
func (s *Store) Scope() models.Scope { return s.scope }

// Close closes the database handle once no operation is using it.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// acquire returns an open handle for the scope with its read lock held.
// The caller releases it with release.
func (s *Store) acquire(ctx context.Context) (*Store, error) {
	cur := s
	for {
		cur.mu.RLock()
		if !cur.closed {
			return cur, nil
		}
		cur.mu.RUnlock()

		if cur.mgr == nil {
			return nil, models.StoreFailure(s.scope.Key(), ErrClosed)
		}
		next, err := cur.mgr.Open(ctx, s.scope)
		if err != nil {
			return nil, err
		}
		cur = next
	}
}

func (s *Store) release() { s.mu.RUnlock() }

// LatestForPlayer returns the newest match indexed for a riot id ("name#tag",
// any casing), or nil.
func (s *Store) LatestForPlayer(ctx context.Context, riotID string) (*models.StoredMatch, error) {
	cur, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.release()

	e, err := latest(ctx, cur.db, models.NormalizeRiotKey(riotID))
	if err != nil || e == nil {
		return nil, err
	}
	m, err := match(ctx, cur.db, e.MatchID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		cur.logger.Warnw("latest_by_player points at a missing match", "riot_id", riotID, "match_id", e.MatchID)
		return nil, nil
	}
	m.Timestamp = e.Timestamp
	return m, nil
}

// PuuidForRiot returns the puuid last seen for a riot id, or "".
func (s *Store) PuuidForRiot(ctx context.Context, riotID string) (string, error) {
	cur, err := s.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer cur.release()

	var puuid string
	err = cur.db.QueryRowContext(ctx,
		"SELECT puuid FROM riot_to_puuid WHERE riot_id = ?", models.NormalizeRiotKey(riotID),
	).Scan(&puuid)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", models.StoreFailure("reading riot_to_puuid", err)
	}
	return puuid, nil
}

// History returns the raw newest-first index for a puuid.
func (s *Store) History(ctx context.Context, puuid string) ([]IndexEntry, error) {
	cur, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.release()
	return history(ctx, cur.db, puuid)
}

// Page returns up to limit matches from a puuid's history, newest first,
// starting at offset. An offset past the end yields an empty slice.
func (s *Store) Page(ctx context.Context, puuid string, offset, limit int) ([]*models.StoredMatch, error) {
	if offset < 0 || limit < 0 {
		return nil, models.InvalidArgument("offset and limit must be non-negative")
	}
	cur, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.release()

	h, err := history(ctx, cur.db, puuid)
	if err != nil {
		return nil, err
	}
	out := []*models.StoredMatch{}
	if offset >= len(h) {
		return out, nil
	}
	end := offset + min(limit, len(h)-offset)
	for _, e := range h[offset:end] {
		m, err := match(ctx, cur.db, e.MatchID)
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		m.Timestamp = e.Timestamp
		out = append(out, m)
	}
	return out, nil
}

// Match reads one match by id, or nil.
func (s *Store) Match(ctx context.Context, matchID string) (*models.StoredMatch, error) {
	cur, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.release()
	return match(ctx, cur.db, matchID)
}

// Upsert stores a raw match payload and updates every index for its
// participants inside a single transaction. Writing a match id again replaces it.
func (s *Store) Upsert(ctx context.Context, raw []byte) (*models.StoredMatch, error) {
	doc, err := models.DecodeDocument(raw)
	if err != nil {
		return nil, models.InvalidArgument("match payload: %v", err)
	}
	return s.UpsertDocument(ctx, doc)
}

// UpsertDocument is Upsert over an already decoded payload.
func (s *Store) UpsertDocument(ctx context.Context, doc models.Document) (*models.StoredMatch, error) {
	doc = models.Wrap(doc)
	rec, ok := models.ParseDocument(doc)
	if !ok {
		return nil, models.InvalidArgument("match payload has no match id")
	}
	ts, src := models.MatchTimestamp(models.DataNode(doc), s.now)

	blob, err := codec.EncodeDocument(doc)
	if err != nil {
		return nil, models.StoreFailure("encoding match", err)
	}

	cur, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.release()

	tx, err := cur.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, models.StoreFailure("begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO matches (match_id, blob, ts) VALUES (?, ?, ?)
		ON CONFLICT(match_id) DO UPDATE SET
			blob = excluded.blob,
			ts = excluded.ts,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
	`, rec.MatchID(), blob, ts); err != nil {
		return nil, models.StoreFailure("writing match", err)
	}

	entry := IndexEntry{Timestamp: ts, MatchID: rec.MatchID()}
	indexed := 0
	for _, p := range rec.Players {
		if !p.Indexable() {
			continue
		}
		if err := indexPlayer(ctx, tx, p, entry, src); err != nil {
			return nil, err
		}
		indexed++
	}

	if err := tx.Commit(); err != nil {
		return nil, models.StoreFailure("commit", err)
	}

	cur.logger.Debugw("Stored match",
		"scope", cur.scope.Key(),
		"match_id", rec.MatchID(),
		"ts", ts,
		"ts_source", src,
		"indexed_players", indexed,
	)
	final, err := json.Marshal(doc)
	if err != nil {
		return nil, models.StoreFailure("encoding match", err)
	}
	return &models.StoredMatch{MatchID: rec.MatchID(), Timestamp: ts, Raw: final, Record: rec}, nil
}

func indexPlayer(ctx context.Context, tx *sql.Tx, p models.PlayerEntry, entry IndexEntry, src models.TimestampSource) error {
	riotKey := p.RiotKey()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO riot_to_puuid (riot_id, puuid) VALUES (?, ?)
		ON CONFLICT(riot_id) DO UPDATE SET puuid = excluded.puuid
	`, riotKey, p.PUUID); err != nil {
		return models.StoreFailure("writing riot_to_puuid", err)
	}

	prev, err := latest(ctx, tx, riotKey)
	if err != nil {
		return err
	}
	if supersedes(prev, entry, src) {
		b, err := encodeEntry(newLatestEntry(entry, src))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO latest_by_player (riot_id, entry) VALUES (?, ?)
			ON CONFLICT(riot_id) DO UPDATE SET entry = excluded.entry
		`, riotKey, b); err != nil {
			return models.StoreFailure("writing latest_by_player", err)
		}
	}

	h, err := history(ctx, tx, p.PUUID)
	if err != nil {
		return err
	}
	b, err := encodeHistory(mergeHistory(h, entry))
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO by_puuid (puuid, entries) VALUES (?, ?)
		ON CONFLICT(puuid) DO UPDATE SET entries = excluded.entries
	`, p.PUUID, b); err != nil {
		return models.StoreFailure("writing by_puuid", err)
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func latest(ctx context.Context, q querier, riotKey string) (*latestEntry, error) {
	var raw []byte
	err := q.QueryRowContext(ctx, "SELECT entry FROM latest_by_player WHERE riot_id = ?", riotKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, models.StoreFailure("reading latest_by_player", err)
	}
	e, err := decodeEntry(raw)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func history(ctx context.Context, q querier, puuid string) ([]IndexEntry, error) {
	var raw []byte
	err := q.QueryRowContext(ctx, "SELECT entries FROM by_puuid WHERE puuid = ?", puuid).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, models.StoreFailure("reading by_puuid", err)
	}
	return decodeHistory(raw)
}

func match(ctx context.Context, q querier, matchID string) (*models.StoredMatch, error) {
	var (
		blob []byte
		ts   int64
	)
	err := q.QueryRowContext(ctx, "SELECT blob, ts FROM matches WHERE match_id = ?", matchID).Scan(&blob, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, models.StoreFailure("reading match", err)
	}
	raw, rec, err := codec.DecodeRecord(blob)
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", matchID, err)
	}
	return &models.StoredMatch{MatchID: matchID, Timestamp: ts, Raw: raw, Record: rec}, nil
}
