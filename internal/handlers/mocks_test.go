package handlers

import (
	"context"

	"github.com/valstats/matchcache/internal/logic"
	"github.com/valstats/matchcache/internal/models"
	"github.com/valstats/matchcache/internal/worker"
)

// MockMatchService implements logic.MatchService
type MockMatchService struct {
	FetchFunc        func(ctx context.Context, req logic.FetchRequest) (*models.EnrichedMatch, error)
	LatestFunc       func(ctx context.Context, scope models.Scope, riotID string) (*models.EnrichedMatch, error)
	PageFunc         func(ctx context.Context, scope models.Scope, puuid string, offset, limit int) ([]*models.EnrichedMatch, error)
	HistoryFunc      func(ctx context.Context, scope models.Scope, riotID string, offset, limit int) ([]*models.EnrichedMatch, error)
	ResolvePUUIDFunc func(ctx context.Context, scope models.Scope, auth, riotID string) (string, error)
	PruneFunc        func(scope models.Scope) (bool, error)
}

func (m *MockMatchService) Fetch(ctx context.Context, req logic.FetchRequest) (*models.EnrichedMatch, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, req)
	}
	return nil, nil
}

func (m *MockMatchService) Latest(ctx context.Context, scope models.Scope, riotID string) (*models.EnrichedMatch, error) {
	if m.LatestFunc != nil {
		return m.LatestFunc(ctx, scope, riotID)
	}
	return nil, nil
}

func (m *MockMatchService) Page(ctx context.Context, scope models.Scope, puuid string, offset, limit int) ([]*models.EnrichedMatch, error) {
	if m.PageFunc != nil {
		return m.PageFunc(ctx, scope, puuid, offset, limit)
	}
	return []*models.EnrichedMatch{}, nil
}

func (m *MockMatchService) History(ctx context.Context, scope models.Scope, riotID string, offset, limit int) ([]*models.EnrichedMatch, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, scope, riotID, offset, limit)
	}
	return []*models.EnrichedMatch{}, nil
}

func (m *MockMatchService) ResolvePUUID(ctx context.Context, scope models.Scope, auth, riotID string) (string, error) {
	if m.ResolvePUUIDFunc != nil {
		return m.ResolvePUUIDFunc(ctx, scope, auth, riotID)
	}
	return "", nil
}

func (m *MockMatchService) Prune(scope models.Scope) (bool, error) {
	if m.PruneFunc != nil {
		return m.PruneFunc(scope)
	}
	return false, nil
}

// MockBackfillQueue implements BackfillQueue
type MockBackfillQueue struct {
	EnqueueFunc func(req logic.FetchRequest) (string, bool)
	StatusFunc  func(id string) (worker.JobStatus, bool)
}

func (m *MockBackfillQueue) Enqueue(req logic.FetchRequest) (string, bool) {
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(req)
	}
	return "job-1", true
}

func (m *MockBackfillQueue) Status(id string) (worker.JobStatus, bool) {
	if m.StatusFunc != nil {
		return m.StatusFunc(id)
	}
	return worker.JobStatus{}, false
}

func (m *MockBackfillQueue) QueueDepth() int { return 0 }
