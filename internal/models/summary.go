package models

import "strings"

// DefaultRank is the value written for participants whose rank lookup failed.
const DefaultRank = "Unrated"

// MatchSummary is one entry of a remote match list.
type MatchSummary struct {
	MatchID      string
	Participants int
	ModeType     string
}

// ParseSummaries reads the "data" array of a match list response. Entries
// without a match id are dropped.
func ParseSummaries(doc Document) []MatchSummary {
	items, _ := array(doc, "data")
	out := make([]MatchSummary, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, ok := MatchIDOf(obj)
		if !ok {
			continue
		}
		out = append(out, MatchSummary{
			MatchID:      id,
			Participants: len(ResolvePlayers(obj).Slots),
			ModeType:     ModeTypeOf(obj),
		})
	}
	return out
}

// Eligible reports whether a listed match fits the scope's mode variant:
// deathmatch lobbies for deathmatch, full 5v5 non-deathmatch lobbies otherwise.
func (m MatchSummary) Eligible(deathmatch bool) bool {
	isDM := strings.EqualFold(m.ModeType, VariantDeathmatch)
	if deathmatch {
		return isDM
	}
	return m.Participants == 10 && !isDM
}

// RankTierPaths are tried in order against a rank response.
var RankTierPaths = [][]string{
	{"data", "current", "tier", "name"},
	{"data", "tier", "name"},
	{"data", "peak", "tier", "name"},
}

// RankTier extracts a tier name from a rank response.
func RankTier(doc Document) (string, bool) {
	for _, path := range RankTierPaths {
		if s, ok := str(doc, path...); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// AccountPUUID extracts the puuid from an account lookup response.
func AccountPUUID(doc Document) (string, bool) {
	s, ok := str(doc, "data", "puuid")
	return s, ok && s != ""
}
