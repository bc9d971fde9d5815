package logic

import (
	"context"

	"github.com/valstats/matchcache/internal/henrik"
	"github.com/valstats/matchcache/internal/models"
	"github.com/valstats/matchcache/internal/store"
)

// MatchService is what the HTTP layer and the backfill pool call into.
type MatchService interface {
	Fetch(ctx context.Context, req FetchRequest) (*models.EnrichedMatch, error)
	Latest(ctx context.Context, scope models.Scope, riotID string) (*models.EnrichedMatch, error)
	Page(ctx context.Context, scope models.Scope, puuid string, offset, limit int) ([]*models.EnrichedMatch, error)
	History(ctx context.Context, scope models.Scope, riotID string, offset, limit int) ([]*models.EnrichedMatch, error)
	ResolvePUUID(ctx context.Context, scope models.Scope, auth, riotID string) (string, error)
	Prune(scope models.Scope) (bool, error)
}

// MatchStore is one opened scope of the match cache.
type MatchStore interface {
	LatestForPlayer(ctx context.Context, riotID string) (*models.StoredMatch, error)
	PuuidForRiot(ctx context.Context, riotID string) (string, error)
	Page(ctx context.Context, puuid string, offset, limit int) ([]*models.StoredMatch, error)
	Match(ctx context.Context, matchID string) (*models.StoredMatch, error)
	UpsertDocument(ctx context.Context, doc models.Document) (*models.StoredMatch, error)
}

// StoreOpener opens the store of a scope.
type StoreOpener interface {
	OpenStore(ctx context.Context, scope models.Scope) (MatchStore, error)
}

// OpenerFunc adapts a function to StoreOpener.
type OpenerFunc func(ctx context.Context, scope models.Scope) (MatchStore, error)

func (f OpenerFunc) OpenStore(ctx context.Context, scope models.Scope) (MatchStore, error) {
	return f(ctx, scope)
}

// ManagerOpener serves stores from a store.Manager.
func ManagerOpener(m *store.Manager) StoreOpener {
	return OpenerFunc(func(ctx context.Context, scope models.Scope) (MatchStore, error) {
		s, err := m.Open(ctx, scope)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// Pruner deletes a scope's storage.
type Pruner interface {
	Prune(scope models.Scope) (bool, error)
}

// RemoteSession is the remote API as seen by one fetch.
type RemoteSession interface {
	ListMatches(ctx context.Context, q henrik.ListQuery) ([]models.MatchSummary, error)
	MatchDetail(ctx context.Context, region, matchID string) (models.Document, error)
	Rank(ctx context.Context, region, platform, puuid string) (string, error)
	Account(ctx context.Context, name, tag string) (string, error)
}

// SessionFactory starts a remote session for one caller credential.
type SessionFactory func(auth string, gate *henrik.RateGate) RemoteSession

// HenrikSessions builds sessions on a henrik.Client.
func HenrikSessions(c *henrik.Client) SessionFactory {
	return func(auth string, gate *henrik.RateGate) RemoteSession {
		return c.Session(auth, gate)
	}
}

// RankCache is an optional lookaside cache for rank lookups.
type RankCache interface {
	Get(ctx context.Context, region, platform, puuid string) (string, bool)
	Put(ctx context.Context, region, platform, puuid, rank string)
}
