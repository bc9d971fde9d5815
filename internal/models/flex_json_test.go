package models

import "testing"

func TestFlexDecode_StringEncodedNumbers(t *testing.T) {
	input := `{"data": {"metadata": {"match_id": "m-1", "game_length_in_ms": "1834000"},
		"players": [{"puuid": "p1", "name": "Ann", "tag": "1", "stats": {"kills": "21", "deaths": "14.0", "score": "-3"},
		"economy": {"spent": {"overall": "81200", "average": "3248.5"}}}]}}`

	rec, ok := Parse([]byte(input))
	if !ok {
		t.Fatal("Parse returned no record")
	}
	if rec.Metadata.GameLengthMS != 1834000 {
		t.Errorf("GameLengthMS = %d, want 1834000", rec.Metadata.GameLengthMS)
	}
	p := rec.Players[0]
	if p.Stats.Kills != 21 {
		t.Errorf("Kills = %d, want 21", p.Stats.Kills)
	}
	if p.Stats.Deaths != 14 {
		t.Errorf("Deaths = %d, want 14", p.Stats.Deaths)
	}
	if p.Stats.Score != 0 {
		t.Errorf("Score = %d, want negative values clamped to 0", p.Stats.Score)
	}
	if p.Economy.Spent.Overall != 81200 || p.Economy.Spent.Average != 3248.5 {
		t.Errorf("Spent = %+v, want {81200 3248.5}", p.Economy.Spent)
	}
}

func TestFlexDecode_KeepsLargeIntegers(t *testing.T) {
	doc, err := DecodeDocument([]byte(`{"metadata": {"game_start": 1717171717123}}`))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	n, ok := integer(doc, "metadata", "game_start")
	if !ok || n != 1717171717123 {
		t.Errorf("game_start = %d (%v), want 1717171717123", n, ok)
	}
}

func TestDecodeDocument_RejectsNonObjects(t *testing.T) {
	for _, input := range []string{`[]`, `null`, `"x"`, `{`} {
		if _, err := DecodeDocument([]byte(input)); err == nil {
			t.Errorf("DecodeDocument(%s) succeeded, want error", input)
		}
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wrapped bool
	}{
		{"already wrapped", Document{"data": Document{"metadata": Document{}}}, false},
		{"bare with metadata", Document{"metadata": Document{"match_id": "x"}}, true},
		{"bare with players", Document{"players": []any{}}, true},
		{"unknown shape", Document{"status": "ok"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Wrap(tt.doc)
			_, hasData := out["data"]
			_, origHasData := tt.doc["data"]
			if tt.wrapped && (!hasData || origHasData) {
				t.Errorf("Wrap(%v) = %v, want wrapped under data", tt.doc, out)
			}
			if !tt.wrapped && len(out) != len(tt.doc) {
				t.Errorf("Wrap(%v) = %v, want unchanged", tt.doc, out)
			}
		})
	}
}
