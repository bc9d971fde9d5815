package models

import "strings"

// RiotID is the public "name#tag" handle of a player.
type RiotID struct {
	Name string `json:"name"`
	Tag  string `json:"tag"`
}

// ParseRiotID splits "Name#Tag". Both halves must be non-empty.
func ParseRiotID(s string) (RiotID, error) {
	name, tag, ok := strings.Cut(strings.TrimSpace(s), "#")
	if !ok {
		return RiotID{}, InvalidArgument("riot id %q must have the form Name#Tag", s)
	}
	id := RiotID{Name: strings.TrimSpace(name), Tag: strings.TrimSpace(tag)}
	if id.Name == "" || id.Tag == "" {
		return RiotID{}, InvalidArgument("riot id %q must have the form Name#Tag", s)
	}
	return id, nil
}

func (r RiotID) String() string {
	return r.Name + "#" + r.Tag
}

// Key is the lowercased index key used by riot_to_puuid and latest_by_player.
func (r RiotID) Key() string {
	return RiotKey(r.Name, r.Tag)
}

// RiotKey builds the index key for a name and tag.
func RiotKey(name, tag string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "#" + strings.ToLower(strings.TrimSpace(tag))
}

// NormalizeRiotKey lowercases an already joined "name#tag" string.
func NormalizeRiotKey(riotID string) string {
	return strings.ToLower(strings.TrimSpace(riotID))
}
