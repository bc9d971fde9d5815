package store

import (
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/valstats/matchcache/internal/models"
)

// HistoryCap bounds the per-puuid history.
const HistoryCap = 1000

// IndexEntry points at one stored match.
type IndexEntry struct {
	Timestamp int64  `msgpack:"ts"`
	MatchID   string `msgpack:"id"`
}

// latestEntry is the latest_by_player value. WallClock marks a timestamp
// taken from the local clock; any match with a real timestamp replaces it.
type latestEntry struct {
	Timestamp int64  `msgpack:"ts"`
	MatchID   string `msgpack:"id"`
	WallClock bool   `msgpack:"wc,omitempty"`
}

func newLatestEntry(e IndexEntry, src models.TimestampSource) latestEntry {
	return latestEntry{Timestamp: e.Timestamp, MatchID: e.MatchID, WallClock: src == models.TSWallClock}
}

func encodeEntry(e latestEntry) ([]byte, error) {
	b, err := msgpack.Marshal(e)
	if err != nil {
		return nil, models.StoreFailure("encoding index entry", err)
	}
	return b, nil
}

func decodeEntry(b []byte) (latestEntry, error) {
	var e latestEntry
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return latestEntry{}, models.Corrupt("latest_by_player entry", err)
	}
	return e, nil
}

func encodeHistory(h []IndexEntry) ([]byte, error) {
	b, err := msgpack.Marshal(h)
	if err != nil {
		return nil, models.StoreFailure("encoding history", err)
	}
	return b, nil
}

func decodeHistory(b []byte) ([]IndexEntry, error) {
	var h []IndexEntry
	if err := msgpack.Unmarshal(b, &h); err != nil {
		return nil, models.Corrupt("by_puuid history", err)
	}
	return h, nil
}

// mergeHistory inserts e into a newest-first history. An existing entry for the
// same match is replaced, ties on timestamp put e first, and the result is cut
// to HistoryCap.
func mergeHistory(h []IndexEntry, e IndexEntry) []IndexEntry {
	out := make([]IndexEntry, 0, min(len(h)+1, HistoryCap))
	for _, old := range h {
		if old.MatchID != e.MatchID {
			out = append(out, old)
		}
	}
	i := sort.Search(len(out), func(i int) bool { return out[i].Timestamp <= e.Timestamp })
	out = append(out, IndexEntry{})
	copy(out[i+1:], out[i:])
	out[i] = e
	if len(out) > HistoryCap {
		out = out[:HistoryCap]
	}
	return out
}

// supersedes reports whether incoming should replace the latest entry prev.
// Wall-clock timestamps carry no ordering: they only fill an empty slot, and
// a wall-clock entry yields to any match with a real timestamp.
func supersedes(prev *latestEntry, incoming IndexEntry, src models.TimestampSource) bool {
	if prev == nil {
		return true
	}
	if src == models.TSWallClock {
		return prev.MatchID == incoming.MatchID
	}
	if prev.WallClock {
		return true
	}
	return incoming.Timestamp >= prev.Timestamp
}
