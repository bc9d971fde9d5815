package logic

import (
	"strings"

	"github.com/valstats/matchcache/internal/models"
)

const (
	MaxQuerySize    = 10
	MaxStoreMatches = 10
)

// CachePolicy controls the cache-first lookup of a fetch.
type CachePolicy int

const (
	// CacheDefault prefers the cache unless the caller pages or stores several matches.
	CacheDefault CachePolicy = iota
	CachePrefer
	CacheBypass
)

// ParseCachePolicy accepts "", "default", "prefer" and "bypass".
func ParseCachePolicy(s string) (CachePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return CacheDefault, nil
	case "prefer":
		return CachePrefer, nil
	case "bypass":
		return CacheBypass, nil
	}
	return CacheDefault, models.InvalidArgument("unknown cache policy %q", s)
}

// FetchOptions tunes one fetch.
type FetchOptions struct {
	Start        int
	QuerySize    int
	StoreMatches int
	SkipStored   bool
	Cache        CachePolicy
}

// FetchRequest names who to fetch for and where to store it.
type FetchRequest struct {
	Scope   models.Scope
	Auth    string
	Player  models.RiotID
	Options FetchOptions
}

func (o FetchOptions) normalized() FetchOptions {
	if o.QuerySize == 0 {
		o.QuerySize = MaxQuerySize
	}
	if o.StoreMatches == 0 {
		o.StoreMatches = 1
	}
	o.QuerySize = min(max(o.QuerySize, 1), MaxQuerySize)
	o.StoreMatches = min(max(o.StoreMatches, 1), MaxStoreMatches)
	o.Start = max(o.Start, 0)
	return o
}

func (o FetchOptions) preferCache() bool {
	switch o.Cache {
	case CachePrefer:
		return true
	case CacheBypass:
		return false
	}
	return o.Start == 0 && o.StoreMatches == 1
}

// rateLimited reports whether calls for these options go through a rate gate.
func (o FetchOptions) rateLimited() bool {
	return o.StoreMatches >= 2
}

// selectCandidates keeps, in list order, up to quota match ids that fit the mode variant.
func selectCandidates(list []models.MatchSummary, deathmatch bool, quota int) []string {
	var ids []string
	for _, m := range list {
		if len(ids) >= quota {
			break
		}
		if m.Eligible(deathmatch) {
			ids = append(ids, m.MatchID)
		}
	}
	return ids
}
