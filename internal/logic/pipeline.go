package logic

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/valstats/matchcache/internal/henrik"
	"github.com/valstats/matchcache/internal/models"
)

const (
	DefaultRateLimitPause  = 2 * time.Second
	DefaultRankConcurrency = 5
)

// PipelineConfig configures a Pipeline
type PipelineConfig struct {
	Stores StoreOpener
	Pruner Pruner
	Remote SessionFactory
	// Ranks may be nil.
	Ranks RankCache

	RateLimitPause  time.Duration
	RankConcurrency int64
	Logger          *zap.Logger
}

// Pipeline is the cache-first fetch path: local store, then the remote list,
// detail and rank endpoints, then write-back.
type Pipeline struct {
	stores          StoreOpener
	pruner          Pruner
	remote          SessionFactory
	ranks           RankCache
	pause           time.Duration
	rankConcurrency int64
	logger          *zap.SugaredLogger
}

// NewPipeline creates a pipeline. Zero tuning fields take defaults.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.RateLimitPause <= 0 {
		cfg.RateLimitPause = DefaultRateLimitPause
	}
	if cfg.RankConcurrency <= 0 {
		cfg.RankConcurrency = DefaultRankConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pipeline{
		stores:          cfg.Stores,
		pruner:          cfg.Pruner,
		remote:          cfg.Remote,
		ranks:           cfg.Ranks,
		pause:           cfg.RateLimitPause,
		rankConcurrency: cfg.RankConcurrency,
		logger:          cfg.Logger.Sugar(),
	}
}

// Fetch returns the newest eligible match for a player, from the store when
// allowed, otherwise from the remote API. Every match obtained remotely is
// enriched and persisted; the first one in list order is returned. A nil
// match with a nil error means nothing was found anywhere.
func (p *Pipeline) Fetch(ctx context.Context, req FetchRequest) (*models.EnrichedMatch, error) {
	if err := req.Scope.Validate(); err != nil {
		return nil, err
	}
	if req.Player.Name == "" || req.Player.Tag == "" {
		return nil, models.InvalidArgument("riot id needs a name and a tag")
	}
	opts := req.Options.normalized()
	riotKey := req.Player.Key()

	st, err := p.stores.OpenStore(ctx, req.Scope)
	if err != nil {
		return nil, err
	}

	if opts.preferCache() {
		m, err := st.LatestForPlayer(ctx, riotKey)
		if err != nil {
			return nil, err
		}
		if m != nil {
			fetchResults.WithLabelValues("cache").Inc()
			return cached(m), nil
		}
	}

	var gate *henrik.RateGate
	if opts.rateLimited() {
		gate = henrik.NewRateGate(p.pause)
	}
	sess := p.remote(req.Auth, gate)

	summaries, err := sess.ListMatches(ctx, henrik.ListQuery{
		Region:   req.Scope.Region,
		Platform: req.Scope.Platform,
		Name:     req.Player.Name,
		Tag:      req.Player.Tag,
		Mode:     models.ModeCustom,
		Size:     opts.QuerySize,
		Start:    opts.Start,
	})
	if err != nil {
		if errors.Is(err, models.ErrInvalidArgument) || ctx.Err() != nil {
			return nil, err
		}
		p.logger.Warnw("Match list failed, trying cache", "scope", req.Scope.Key(), "player", riotKey, "error", err)
		return p.fallback(ctx, st, riotKey, err)
	}

	candidates := selectCandidates(summaries, req.Scope.IsDeathmatch(), opts.StoreMatches)
	if len(candidates) == 0 {
		p.logger.Debugw("No eligible matches listed", "scope", req.Scope.Key(), "player", riotKey, "listed", len(summaries))
		return p.fallback(ctx, st, riotKey, nil)
	}

	var (
		first   *models.EnrichedMatch
		lastErr error
	)
	for _, id := range candidates {
		if local := p.storedCopy(ctx, st, id); local != nil {
			if opts.SkipStored {
				continue
			}
			if first == nil {
				first = cached(local)
			}
			continue
		}

		m, err := p.fetchOne(ctx, sess, st, req.Scope, id)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, models.ErrStore) || errors.Is(err, models.ErrCorruptRecord) {
				return nil, err
			}
			p.logger.Warnw("Match detail failed", "scope", req.Scope.Key(), "match_id", id, "error", err)
			lastErr = err
			continue
		}
		if first == nil {
			first = m
		}
	}

	if first != nil {
		fetchResults.WithLabelValues(string(first.Source)).Inc()
		return first, nil
	}
	if lastErr != nil {
		return p.fallback(ctx, st, riotKey, lastErr)
	}
	fetchResults.WithLabelValues("skipped").Inc()
	return nil, nil
}

// storedCopy returns the local copy of a match when it is complete enough to
// stand in for a refetch.
func (p *Pipeline) storedCopy(ctx context.Context, st MatchStore, matchID string) *models.StoredMatch {
	m, err := st.Match(ctx, matchID)
	if err != nil {
		p.logger.Warnw("Unreadable stored match, refetching", "match_id", matchID, "error", err)
		return nil
	}
	if m == nil || !m.Record.Complete() {
		return nil
	}
	return m
}

func (p *Pipeline) fetchOne(ctx context.Context, sess RemoteSession, st MatchStore, scope models.Scope, matchID string) (*models.EnrichedMatch, error) {
	doc, err := sess.MatchDetail(ctx, scope.Region, matchID)
	if err != nil {
		return nil, err
	}
	if err := p.enrich(ctx, sess, scope, models.DataNode(doc)); err != nil {
		return nil, err
	}
	stored, err := st.UpsertDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	matchesStored.Inc()
	return &models.EnrichedMatch{
		Source:    models.SourceRemote,
		MatchID:   stored.MatchID,
		Timestamp: stored.Timestamp,
		Record:    stored.Record,
		Raw:       stored.Raw,
	}, nil
}

// fallback serves the cached latest match after a remote miss. cause is
// returned when the cache has nothing either.
func (p *Pipeline) fallback(ctx context.Context, st MatchStore, riotKey string, cause error) (*models.EnrichedMatch, error) {
	m, err := st.LatestForPlayer(ctx, riotKey)
	if err != nil {
		return nil, errors.Join(cause, err)
	}
	if m != nil {
		fetchResults.WithLabelValues("fallback").Inc()
		return cached(m), nil
	}
	if cause != nil {
		fetchResults.WithLabelValues("error").Inc()
		return nil, cause
	}
	fetchResults.WithLabelValues("miss").Inc()
	return nil, nil
}

// Latest reads the newest stored match of a riot id without any remote call.
func (p *Pipeline) Latest(ctx context.Context, scope models.Scope, riotID string) (*models.EnrichedMatch, error) {
	id, err := models.ParseRiotID(riotID)
	if err != nil {
		return nil, err
	}
	st, err := p.stores.OpenStore(ctx, scope)
	if err != nil {
		return nil, err
	}
	m, err := st.LatestForPlayer(ctx, id.Key())
	if err != nil || m == nil {
		return nil, err
	}
	return cached(m), nil
}

// Page returns a slice of a puuid's stored history, newest first.
func (p *Pipeline) Page(ctx context.Context, scope models.Scope, puuid string, offset, limit int) ([]*models.EnrichedMatch, error) {
	if puuid == "" {
		return nil, models.InvalidArgument("puuid is required")
	}
	st, err := p.stores.OpenStore(ctx, scope)
	if err != nil {
		return nil, err
	}
	ms, err := st.Page(ctx, puuid, offset, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*models.EnrichedMatch, 0, len(ms))
	for _, m := range ms {
		out = append(out, cached(m))
	}
	return out, nil
}

// History is Page keyed by riot id. Unknown riot ids yield ErrNotFound.
func (p *Pipeline) History(ctx context.Context, scope models.Scope, riotID string, offset, limit int) ([]*models.EnrichedMatch, error) {
	id, err := models.ParseRiotID(riotID)
	if err != nil {
		return nil, err
	}
	st, err := p.stores.OpenStore(ctx, scope)
	if err != nil {
		return nil, err
	}
	puuid, err := st.PuuidForRiot(ctx, id.Key())
	if err != nil {
		return nil, err
	}
	if puuid == "" {
		return nil, models.ErrNotFound
	}
	return p.Page(ctx, scope, puuid, offset, limit)
}

// ResolvePUUID maps a riot id to a puuid, from the store when it has seen
// the player and from the account endpoint otherwise.
func (p *Pipeline) ResolvePUUID(ctx context.Context, scope models.Scope, auth, riotID string) (string, error) {
	id, err := models.ParseRiotID(riotID)
	if err != nil {
		return "", err
	}
	st, err := p.stores.OpenStore(ctx, scope)
	if err != nil {
		return "", err
	}
	puuid, err := st.PuuidForRiot(ctx, id.Key())
	if err != nil {
		return "", err
	}
	if puuid != "" {
		return puuid, nil
	}
	return p.remote(auth, nil).Account(ctx, id.Name, id.Tag)
}

// Prune deletes every stored match of a scope.
func (p *Pipeline) Prune(scope models.Scope) (bool, error) {
	if p.pruner == nil {
		return false, errors.New("pruning is not configured")
	}
	return p.pruner.Prune(scope)
}

func cached(m *models.StoredMatch) *models.EnrichedMatch {
	return &models.EnrichedMatch{
		Source:    models.SourceCache,
		MatchID:   m.MatchID,
		Timestamp: m.Timestamp,
		Record:    m.Record,
		Raw:       m.Raw,
	}
}
