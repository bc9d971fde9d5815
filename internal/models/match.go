package models

import (
	"encoding/json"
	"strings"
	"time"
)

// TeamID identifies a side of a match.
type TeamID string

const (
	TeamRed  TeamID = "Red"
	TeamBlue TeamID = "Blue"
)

// ParseTeamID accepts any casing of red/blue and returns "" for anything else.
func ParseTeamID(s string) TeamID {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red":
		return TeamRed
	case "blue":
		return TeamBlue
	}
	return ""
}

// MatchRecord is the canonical representation of one completed match.
// Its JSON form is itself a shape Parse understands.
type MatchRecord struct {
	Metadata MatchMetadata `json:"metadata"`
	Players  []PlayerEntry `json:"players"`
	Teams    Teams         `json:"teams"`
	Kills    []KillEvent   `json:"kills"`
}

type MatchMetadata struct {
	MatchID      string `json:"match_id"`
	Map          MapRef `json:"map"`
	Queue        Queue  `json:"queue"`
	StartedAt    string `json:"started_at"`
	GameLengthMS int64  `json:"game_length_in_ms"`
}

type MapRef struct {
	Name string `json:"name"`
}

type Queue struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ModeType string `json:"mode_type"`
}

type Teams struct {
	Red  TeamResult `json:"red"`
	Blue TeamResult `json:"blue"`
}

type TeamResult struct {
	HasWon     bool `json:"has_won"`
	RoundsWon  int  `json:"rounds_won"`
	RoundsLost int  `json:"rounds_lost"`
}

// PlayerEntry is one participant. Rank stays nil until enrichment fills it.
type PlayerEntry struct {
	PUUID   string      `json:"puuid"`
	Name    string      `json:"name"`
	Tag     string      `json:"tag"`
	TeamID  TeamID      `json:"team_id"`
	Agent   AgentRef    `json:"agent"`
	Rank    *string     `json:"rank,omitempty"`
	Stats   PlayerStats `json:"stats"`
	Economy Economy     `json:"economy"`
}

type AgentRef struct {
	Name string `json:"name"`
}

type PlayerStats struct {
	Score     int    `json:"score"`
	Kills     int    `json:"kills"`
	Deaths    int    `json:"deaths"`
	Assists   int    `json:"assists"`
	Headshots int    `json:"headshots"`
	Bodyshots int    `json:"bodyshots"`
	Legshots  int    `json:"legshots"`
	Damage    Damage `json:"damage"`
}

type Damage struct {
	Dealt    int `json:"dealt"`
	Received int `json:"received"`
}

type Economy struct {
	Spent Spent `json:"spent"`
}

type Spent struct {
	Overall int     `json:"overall"`
	Average float64 `json:"average"`
}

// KillEvent records who killed whom, for head-to-head stats.
type KillEvent struct {
	Killer PlayerRef `json:"killer"`
	Victim PlayerRef `json:"victim"`
}

type PlayerRef struct {
	PUUID string `json:"puuid"`
	Name  string `json:"name"`
	Tag   string `json:"tag"`
}

// MatchID returns the record key.
func (m *MatchRecord) MatchID() string { return m.Metadata.MatchID }

// RiotKey is the index key of the participant, or "" when name or tag is missing.
func (p PlayerEntry) RiotKey() string {
	if p.Name == "" || p.Tag == "" {
		return ""
	}
	return RiotKey(p.Name, p.Tag)
}

// Indexable reports whether the participant carries puuid, name and tag.
func (p PlayerEntry) Indexable() bool {
	return p.PUUID != "" && p.Name != "" && p.Tag != ""
}

// Complete reports whether the record has a start time and a length,
// which is what makes a stored copy good enough to skip refetching.
func (m *MatchRecord) Complete() bool {
	return m.Metadata.StartedAt != "" && m.Metadata.GameLengthMS > 0
}

// Normalize puts the record in the form Parse produces: non-nil collections,
// canonical team ids and no negative counters.
func (m *MatchRecord) Normalize() {
	if m.Players == nil {
		m.Players = []PlayerEntry{}
	}
	if m.Kills == nil {
		m.Kills = []KillEvent{}
	}
	if m.Metadata.GameLengthMS < 0 {
		m.Metadata.GameLengthMS = 0
	}
	for i := range m.Players {
		p := &m.Players[i]
		p.TeamID = ParseTeamID(string(p.TeamID))
		for _, v := range []*int{
			&p.Stats.Score, &p.Stats.Kills, &p.Stats.Deaths, &p.Stats.Assists,
			&p.Stats.Headshots, &p.Stats.Bodyshots, &p.Stats.Legshots,
			&p.Stats.Damage.Dealt, &p.Stats.Damage.Received,
		} {
			if *v < 0 {
				*v = 0
			}
		}
	}
	for _, t := range []*TeamResult{&m.Teams.Red, &m.Teams.Blue} {
		t.RoundsWon = max(t.RoundsWon, 0)
		t.RoundsLost = max(t.RoundsLost, 0)
	}
}

// Source tells where a fetch result came from.
type Source string

const (
	SourceCache  Source = "cache"
	SourceRemote Source = "remote"
)

// StoredMatch is a record read back from a store together with its index timestamp.
type StoredMatch struct {
	MatchID   string
	Timestamp int64
	Raw       json.RawMessage
	Record    *MatchRecord
}

// EnrichedMatch is the result of a fetch.
type EnrichedMatch struct {
	Source    Source          `json:"source"`
	MatchID   string          `json:"match_id"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Record    *MatchRecord    `json:"record"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// StartedAt returns the parsed start time, or the zero time.
func (m *MatchRecord) StartedAt() time.Time {
	t, err := time.Parse(time.RFC3339, m.Metadata.StartedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
