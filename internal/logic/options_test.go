package logic

import (
	"errors"
	"reflect"
	"testing"

	"github.com/valstats/matchcache/internal/models"
)

func TestFetchOptionsNormalized(t *testing.T) {
	tests := []struct {
		in, want FetchOptions
	}{
		{FetchOptions{}, FetchOptions{QuerySize: 10, StoreMatches: 1}},
		{FetchOptions{QuerySize: 99, StoreMatches: 50, Start: -4}, FetchOptions{QuerySize: 10, StoreMatches: 10}},
		{FetchOptions{QuerySize: -1, StoreMatches: -1, Start: 7}, FetchOptions{QuerySize: 1, StoreMatches: 1, Start: 7}},
		{FetchOptions{QuerySize: 5, StoreMatches: 3, SkipStored: true}, FetchOptions{QuerySize: 5, StoreMatches: 3, SkipStored: true}},
	}
	for _, tt := range tests {
		if got := tt.in.normalized(); got != tt.want {
			t.Errorf("normalized(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestFetchOptionsPreferCache(t *testing.T) {
	tests := []struct {
		name string
		opts FetchOptions
		want bool
	}{
		{"default single", FetchOptions{StoreMatches: 1}, true},
		{"paging", FetchOptions{StoreMatches: 1, Start: 10}, false},
		{"several matches", FetchOptions{StoreMatches: 3}, false},
		{"forced prefer", FetchOptions{StoreMatches: 3, Cache: CachePrefer}, true},
		{"bypass", FetchOptions{StoreMatches: 1, Cache: CacheBypass}, false},
	}
	for _, tt := range tests {
		if got := tt.opts.preferCache(); got != tt.want {
			t.Errorf("%s: preferCache = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParseCachePolicy(t *testing.T) {
	for in, want := range map[string]CachePolicy{"": CacheDefault, "Prefer": CachePrefer, " bypass ": CacheBypass} {
		got, err := ParseCachePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseCachePolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseCachePolicy("sometimes"); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("err = %v", err)
	}
}

func TestSelectCandidates(t *testing.T) {
	list := []models.MatchSummary{
		{MatchID: "std1", Participants: 10, ModeType: "Standard"},
		{MatchID: "dm1", Participants: 14, ModeType: "Deathmatch"},
		{MatchID: "short", Participants: 8, ModeType: "Standard"},
		{MatchID: "std2", Participants: 10, ModeType: ""},
		{MatchID: "dm2", Participants: 3, ModeType: "deathmatch"},
		{MatchID: "dm10", Participants: 10, ModeType: "DEATHMATCH"},
	}
	tests := []struct {
		name       string
		deathmatch bool
		quota      int
		want       []string
	}{
		{"standard quota 1", false, 1, []string{"std1"}},
		{"standard all", false, 10, []string{"std1", "std2"}},
		{"deathmatch", true, 10, []string{"dm1", "dm2", "dm10"}},
		{"deathmatch quota 2", true, 2, []string{"dm1", "dm2"}},
	}
	for _, tt := range tests {
		if got := selectCandidates(list, tt.deathmatch, tt.quota); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: selectCandidates = %v, want %v", tt.name, got, tt.want)
		}
	}
}
