package logic

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/valstats/matchcache/internal/henrik"
	"github.com/valstats/matchcache/internal/models"
	"github.com/valstats/matchcache/internal/store"
)

var testScope = models.Scope{GuildID: "42", Platform: "pc", Region: "eu", Mode: "custom", ModeVariant: "standard"}

// MockSession implements RemoteSession. Calls go through the gate the
// pipeline handed to the factory, the way henrik.Session does.
type MockSession struct {
	ListMatchesFunc func(ctx context.Context, q henrik.ListQuery) ([]models.MatchSummary, error)
	MatchDetailFunc func(ctx context.Context, region, matchID string) (models.Document, error)
	RankFunc        func(ctx context.Context, region, platform, puuid string) (string, error)
	AccountFunc     func(ctx context.Context, name, tag string) (string, error)

	gate *henrik.RateGate

	listCalls, detailCalls, rankCalls, accountCalls atomic.Int32
}

func (m *MockSession) ListMatches(ctx context.Context, q henrik.ListQuery) ([]models.MatchSummary, error) {
	m.listCalls.Add(1)
	var out []models.MatchSummary
	err := m.gate.Do(ctx, func() error {
		if m.ListMatchesFunc == nil {
			return nil
		}
		var err error
		out, err = m.ListMatchesFunc(ctx, q)
		return err
	})
	return out, err
}

func (m *MockSession) MatchDetail(ctx context.Context, region, matchID string) (models.Document, error) {
	m.detailCalls.Add(1)
	var out models.Document
	err := m.gate.Do(ctx, func() error {
		if m.MatchDetailFunc == nil {
			return &models.RemoteError{Op: "match", StatusCode: 404}
		}
		var err error
		out, err = m.MatchDetailFunc(ctx, region, matchID)
		return err
	})
	return out, err
}

func (m *MockSession) Rank(ctx context.Context, region, platform, puuid string) (string, error) {
	m.rankCalls.Add(1)
	var out string
	err := m.gate.Do(ctx, func() error {
		if m.RankFunc == nil {
			out = "Gold 1"
			return nil
		}
		var err error
		out, err = m.RankFunc(ctx, region, platform, puuid)
		return err
	})
	return out, err
}

func (m *MockSession) Account(ctx context.Context, name, tag string) (string, error) {
	m.accountCalls.Add(1)
	if m.AccountFunc != nil {
		return m.AccountFunc(ctx, name, tag)
	}
	return "", &models.RemoteError{Op: "account", StatusCode: 404}
}

// MockRankCache implements RankCache
type MockRankCache struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMockRankCache() *MockRankCache {
	return &MockRankCache{data: make(map[string]string)}
}

func (c *MockRankCache) Get(ctx context.Context, region, platform, puuid string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.data[region+platform+puuid]
	return r, ok
}

func (c *MockRankCache) Put(ctx context.Context, region, platform, puuid, rank string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[region+platform+puuid] = rank
}

type harness struct {
	pipeline *Pipeline
	manager  *store.Manager
	session  *MockSession
	gates    []*henrik.RateGate
	sessions atomic.Int32
}

func newHarness(t *testing.T, sess *MockSession, ranks RankCache) *harness {
	t.Helper()
	h := &harness{session: sess}
	h.manager = store.NewManager(store.ManagerConfig{Root: t.TempDir(), Logger: zap.NewNop()})
	t.Cleanup(func() { h.manager.Close() })

	var mu sync.Mutex
	h.pipeline = NewPipeline(PipelineConfig{
		Stores: ManagerOpener(h.manager),
		Pruner: h.manager,
		Remote: func(auth string, gate *henrik.RateGate) RemoteSession {
			h.sessions.Add(1)
			mu.Lock()
			h.gates = append(h.gates, gate)
			mu.Unlock()
			sess.gate = gate
			return sess
		},
		Ranks:          ranks,
		RateLimitPause: time.Millisecond,
		Logger:         zap.NewNop(),
	})
	return h
}

func (h *harness) seed(t *testing.T, raw string) {
	t.Helper()
	st, err := h.manager.Open(context.Background(), testScope)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := st.Upsert(context.Background(), []byte(raw)); err != nil {
		t.Fatalf("seed Upsert: %v", err)
	}
}

func (h *harness) store(t *testing.T) *store.Store {
	t.Helper()
	st, err := h.manager.Open(context.Background(), testScope)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return st
}

// detailJSON builds a flat-layout match response whose participants are
// named after their puuids with tag "t".
func detailJSON(id, startedAt string, puuids ...string) string {
	players := make([]map[string]any, 0, len(puuids))
	for i, p := range puuids {
		team := "Red"
		if i%2 == 1 {
			team = "Blue"
		}
		players = append(players, map[string]any{"puuid": p, "name": p, "tag": "t", "team_id": team})
	}
	b, _ := json.Marshal(map[string]any{
		"status": 200,
		"data": map[string]any{
			"metadata": map[string]any{"match_id": id, "started_at": startedAt, "game_length_in_ms": 1900000,
				"queue": map[string]any{"id": "custom", "mode_type": "Standard"}},
			"players": players,
		},
	})
	return string(b)
}

func mustDoc(t testing.TB, raw string) models.Document {
	t.Helper()
	doc, err := models.DecodeDocument([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	return doc
}

func tenPuuids(prefix string) []string {
	out := make([]string, 10)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}

func standard(ids ...string) []models.MatchSummary {
	out := make([]models.MatchSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.MatchSummary{MatchID: id, Participants: 10, ModeType: "Standard"})
	}
	return out
}
