package logic

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/valstats/matchcache/internal/models"
)

// enrich looks up one rank per participant, at most rankConcurrency at a
// time, and writes each result back into the slot the participant was read
// from. A failed lookup keeps the participant's existing rank or falls back
// to the default; only cancellation aborts.
func (p *Pipeline) enrich(ctx context.Context, sess RemoteSession, scope models.Scope, data models.Document) error {
	start := time.Now()
	set := models.ResolvePlayers(data)
	ranks := make([]string, len(set.Slots))

	sem := semaphore.NewWeighted(p.rankConcurrency)
	g, gctx := errgroup.WithContext(ctx)

	for i, slot := range set.Slots {
		puuid := slot.PUUID()
		if puuid == "" {
			ranks[i] = keepOrDefault(slot.Rank())
			continue
		}
		i, slot := i, slot
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			ranksInFlight.Inc()
			defer ranksInFlight.Dec()

			ranks[i] = p.lookupRank(gctx, sess, scope, puuid, slot.Rank())
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, slot := range set.Slots {
		slot.SetRank(ranks[i])
	}
	enrichDuration.Observe(time.Since(start).Seconds())
	return nil
}

func (p *Pipeline) lookupRank(ctx context.Context, sess RemoteSession, scope models.Scope, puuid, existing string) string {
	if p.ranks != nil {
		if r, ok := p.ranks.Get(ctx, scope.Region, scope.Platform, puuid); ok {
			rankResults.WithLabelValues("cached").Inc()
			return r
		}
	}

	r, err := sess.Rank(ctx, scope.Region, scope.Platform, puuid)
	if err != nil {
		rankResults.WithLabelValues("failed").Inc()
		p.logger.Debugw("Rank lookup failed", "puuid", puuid, "error", err)
		return keepOrDefault(existing)
	}
	rankResults.WithLabelValues("ok").Inc()
	if p.ranks != nil {
		p.ranks.Put(ctx, scope.Region, scope.Platform, puuid, r)
	}
	return r
}

func keepOrDefault(rank string) string {
	if rank != "" {
		return rank
	}
	return models.DefaultRank
}
