package models

import "time"

// TimestampSource names the extractor that produced a match timestamp.
type TimestampSource string

const (
	TSStartedAt  TimestampSource = "started_at"
	TSGameStart  TimestampSource = "game_start"
	TSGameLength TimestampSource = "game_length"
	TSWallClock  TimestampSource = "wall_clock"
)

// TimestampExtractor returns a millisecond timestamp from a match data node, if it has one.
type TimestampExtractor struct {
	Source  TimestampSource
	Extract func(data Document) (int64, bool)
}

// TimestampChain is tried in order; the wall clock closes the chain.
var TimestampChain = []TimestampExtractor{
	{Source: TSStartedAt, Extract: startedAtMillis},
	{Source: TSGameStart, Extract: func(data Document) (int64, bool) { return integer(data, "metadata", "game_start") }},
	{Source: TSGameLength, Extract: func(data Document) (int64, bool) { return integer(data, "metadata", "game_length_in_ms") }},
}

// MatchTimestamp runs TimestampChain over data, falling back to now.
func MatchTimestamp(data Document, now func() time.Time) (int64, TimestampSource) {
	for _, ex := range TimestampChain {
		if ts, ok := ex.Extract(data); ok {
			return ts, ex.Source
		}
	}
	if now == nil {
		now = time.Now
	}
	return now().UnixMilli(), TSWallClock
}

func startedAtMillis(data Document) (int64, bool) {
	s, ok := firstStr(data, []string{"metadata", "started_at"}, []string{"started_at"})
	if !ok {
		return 0, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, false
	}
	return t.UnixMilli(), true
}
