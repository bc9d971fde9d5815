package models

// PlayerLayout is the upstream shape the player list was found in.
type PlayerLayout int

const (
	LayoutNone  PlayerLayout = iota
	LayoutFlat               // "players": [...]
	LayoutAll                // "players": {"all": [...]}
	LayoutSplit              // "players": {"red": [...], "blue": [...]}
)

func (l PlayerLayout) String() string {
	switch l {
	case LayoutFlat:
		return "flat"
	case LayoutAll:
		return "all"
	case LayoutSplit:
		return "split"
	}
	return "none"
}

// PlayerSlot points at one participant object inside the document it was read from.
// Writes to Obj land in the exact position the player came from.
type PlayerSlot struct {
	Team  string // "red" or "blue" for LayoutSplit, "" otherwise
	Index int
	Obj   map[string]any
}

// PUUID returns the participant's puuid, or "".
func (s PlayerSlot) PUUID() string {
	p, _ := s.Obj["puuid"].(string)
	return p
}

// SetRank stores a rank value on the participant.
func (s PlayerSlot) SetRank(rank string) {
	s.Obj["rank"] = rank
}

// Rank returns the participant's current rank, or "".
func (s PlayerSlot) Rank() string {
	r, _ := s.Obj["rank"].(string)
	return r
}

// PlayerSet is the tagged union of the tolerated player list shapes, resolved once.
type PlayerSet struct {
	Layout PlayerLayout
	Slots  []PlayerSlot
}

// ResolvePlayers locates the player list under data["players"]. For the split
// shape red comes before blue. Entries that are not objects are skipped.
func ResolvePlayers(data Document) PlayerSet {
	switch players := data["players"].(type) {
	case []any:
		return PlayerSet{Layout: LayoutFlat, Slots: slots("", players)}
	case map[string]any:
		if all, ok := players["all"].([]any); ok {
			return PlayerSet{Layout: LayoutAll, Slots: slots("", all)}
		}
		red, hasRed := players["red"].([]any)
		blue, hasBlue := players["blue"].([]any)
		if hasRed || hasBlue {
			set := PlayerSet{Layout: LayoutSplit}
			set.Slots = append(slots("red", red), slots("blue", blue)...)
			return set
		}
	}
	return PlayerSet{Layout: LayoutNone}
}

func slots(team string, arr []any) []PlayerSlot {
	out := make([]PlayerSlot, 0, len(arr))
	for i, v := range arr {
		obj, ok := v.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, PlayerSlot{Team: team, Index: i, Obj: obj})
	}
	return out
}
