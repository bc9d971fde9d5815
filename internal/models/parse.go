package models

// Parse translates an upstream match payload, wrapped under "data" or bare,
// into a MatchRecord. It fails only when no match id can be found; every
// other missing field takes its zero value.
func Parse(raw []byte) (*MatchRecord, bool) {
	doc, err := DecodeDocument(raw)
	if err != nil {
		return nil, false
	}
	return ParseDocument(doc)
}

// ParseDocument is Parse over an already decoded document.
func ParseDocument(doc Document) (*MatchRecord, bool) {
	data := DataNode(doc)

	matchID, ok := MatchIDOf(data)
	if !ok {
		return nil, false
	}

	rec := &MatchRecord{
		Metadata: MatchMetadata{
			MatchID: matchID,
			Queue:   parseQueue(data),
		},
		Players: []PlayerEntry{},
		Kills:   []KillEvent{},
	}
	rec.Metadata.Map.Name, _ = firstStr(data, []string{"metadata", "map", "name"}, []string{"metadata", "map"}, []string{"map", "name"})
	rec.Metadata.StartedAt, _ = firstStr(data, []string{"metadata", "started_at"}, []string{"started_at"})
	if n, ok := integer(data, "metadata", "game_length_in_ms"); ok {
		rec.Metadata.GameLengthMS = max(n, 0)
	} else if n, ok := integer(data, "game_length_in_ms"); ok {
		rec.Metadata.GameLengthMS = max(n, 0)
	}

	for _, slot := range ResolvePlayers(data).Slots {
		rec.Players = append(rec.Players, parsePlayer(slot))
	}
	rec.Teams = parseTeams(data)

	if kills, ok := array(data, "kills"); ok {
		for _, k := range kills {
			rec.Kills = append(rec.Kills, KillEvent{
				Killer: parseRef(k, "killer"),
				Victim: parseRef(k, "victim"),
			})
		}
	}
	return rec, true
}

// MatchIDOf finds the match id of a payload's data node.
func MatchIDOf(data Document) (string, bool) {
	id, ok := firstStr(data,
		[]string{"metadata", "match_id"},
		[]string{"metadata", "matchid"},
		[]string{"match_id"},
	)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// ModeTypeOf returns the queue mode type of a payload or list summary.
func ModeTypeOf(data Document) string {
	s, _ := firstStr(data, []string{"metadata", "queue", "mode_type"}, []string{"queue", "mode_type"})
	return s
}

func parseQueue(data Document) Queue {
	q, ok := object(data, "metadata", "queue")
	if !ok {
		q, _ = object(data, "queue")
	}
	queue := Queue{}
	queue.ID, _ = str(q, "id")
	queue.Name, _ = str(q, "name")
	queue.ModeType, _ = str(q, "mode_type")
	if queue.ID == "" {
		queue.ID, _ = str(data, "metadata", "mode_id")
	}
	if queue.Name == "" {
		queue.Name, _ = str(data, "metadata", "mode")
	}
	return queue
}

func parsePlayer(slot PlayerSlot) PlayerEntry {
	p := slot.Obj
	entry := PlayerEntry{}
	entry.PUUID, _ = str(p, "puuid")
	entry.Name, _ = str(p, "name")
	entry.Tag, _ = str(p, "tag")

	team, _ := firstStr(p, []string{"team_id"}, []string{"team"})
	if team == "" {
		team = slot.Team
	}
	entry.TeamID = ParseTeamID(team)

	entry.Agent.Name, _ = firstStr(p, []string{"agent", "name"}, []string{"character"})
	if r, ok := str(p, "rank"); ok {
		entry.Rank = &r
	}

	stats, _ := object(p, "stats")
	entry.Stats = PlayerStats{
		Score:     count(stats, "score"),
		Kills:     count(stats, "kills"),
		Deaths:    count(stats, "deaths"),
		Assists:   count(stats, "assists"),
		Headshots: count(stats, "headshots"),
		Bodyshots: count(stats, "bodyshots"),
		Legshots:  count(stats, "legshots"),
		Damage: Damage{
			Dealt:    count(stats, "damage", "dealt"),
			Received: count(stats, "damage", "received"),
		},
	}
	entry.Economy.Spent = Spent{
		Overall: signed(p, "economy", "spent", "overall"),
		Average: float(p, "economy", "spent", "average"),
	}
	return entry
}

// parseTeams accepts an array of team objects keyed by team_id, or an object keyed by red/blue.
func parseTeams(data Document) Teams {
	var teams Teams
	switch raw := data["teams"].(type) {
	case []any:
		for _, t := range raw {
			id, _ := str(t, "team_id")
			result := TeamResult{
				HasWon:     boolean(t, "won"),
				RoundsWon:  count(t, "rounds", "won"),
				RoundsLost: count(t, "rounds", "lost"),
			}
			switch ParseTeamID(id) {
			case TeamRed:
				teams.Red = result
			case TeamBlue:
				teams.Blue = result
			}
		}
	case map[string]any:
		teams.Red = parseTeamObject(raw["red"])
		teams.Blue = parseTeamObject(raw["blue"])
	}
	return teams
}

func parseTeamObject(v any) TeamResult {
	return TeamResult{
		HasWon:     boolean(v, "has_won"),
		RoundsWon:  count(v, "rounds_won"),
		RoundsLost: count(v, "rounds_lost"),
	}
}

func parseRef(v any, key string) PlayerRef {
	ref := PlayerRef{}
	ref.PUUID, _ = str(v, key, "puuid")
	ref.Name, _ = str(v, key, "name")
	ref.Tag, _ = str(v, key, "tag")
	return ref
}
