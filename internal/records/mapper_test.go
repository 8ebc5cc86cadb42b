package records

import (
	"errors"
	"strings"
	"testing"
)

func gameRow() map[string]any {
	return map[string]any{
		"id":              int64(7),
		"template_id":     nil,
		"name":            "March Madness",
		"owner_user_id":   int64(3),
		"starting_money":  1000.0,
		"pick_count":      int64(5),
		"pick_date":       "2026-03-01",
		"draft_mode":      int64(1),
		"private":         int64(0),
		"allow_selling":   int64(0),
		"update_cadence":  "daily",
		"start_date":      "2026-03-02",
		"end_date":        nil,
		"status":          "open",
		"aggregate_value": 0.0,
		"change_value":    0.0,
		"change_percent":  0.0,
		"created_at":      "2026-02-20 09:00:00",
		"updated_at":      "2026-02-20 09:00:00",
	}
}

func TestGameFromRowAliases(t *testing.T) {
	g, err := GameFromRow(gameRow())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if g.Owner != 3 {
		t.Fatalf("owner_user_id should surface as Owner, got %d", g.Owner)
	}
	if !g.ExclusivePicks {
		t.Fatalf("draft_mode=1 should surface as ExclusivePicks")
	}
	if g.TemplateID != nil {
		t.Fatalf("nil template_id should stay nil")
	}
	if g.PickDate == nil || *g.PickDate != "2026-03-01" {
		t.Fatalf("pick date = %v", g.PickDate)
	}
	if g.EndDate != nil {
		t.Fatalf("nil end_date should stay nil")
	}
}

func TestGameRowRoundTrip(t *testing.T) {
	g, err := GameFromRow(gameRow())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	row := g.Row()
	if _, hasID := row["id"]; hasID {
		t.Fatalf("Row must not include id")
	}
	if row["owner_user_id"] != int64(3) {
		t.Fatalf("owner_user_id = %v", row["owner_user_id"])
	}
	if row["draft_mode"] != int64(1) {
		t.Fatalf("draft_mode = %v", row["draft_mode"])
	}
	if _, hasEnd := row["end_date"]; hasEnd {
		t.Fatalf("nil end date must be omitted, got %v", row["end_date"])
	}
	if row["pick_date"] != "2026-03-01" {
		t.Fatalf("pick_date = %v", row["pick_date"])
	}
}

func TestStrictDecodeRejectsMissingColumn(t *testing.T) {
	row := gameRow()
	delete(row, "status")
	_, err := GameFromRow(row)
	if err == nil || !strings.Contains(err.Error(), `missing column "status"`) {
		t.Fatalf("expected missing column error, got %v", err)
	}
}

func TestStrictDecodeRejectsExtraColumn(t *testing.T) {
	row := gameRow()
	row["surprise"] = 1
	_, err := GameFromRow(row)
	if err == nil || !strings.Contains(err.Error(), "unexpected columns") {
		t.Fatalf("expected unexpected-columns error, got %v", err)
	}
}

func TestStrictDecodeRejectsWrongType(t *testing.T) {
	row := gameRow()
	row["name"] = int64(12)
	_, err := GameFromRow(row)
	if err == nil || !strings.Contains(err.Error(), `column "name"`) {
		t.Fatalf("expected type error, got %v", err)
	}
}

func TestParticipantAliases(t *testing.T) {
	p, err := ParticipantFromRow(map[string]any{
		"id":             int64(1),
		"user_id":        int64(9),
		"game_id":        int64(4),
		"team_name":      nil,
		"status":         "active",
		"joined_at":      "2026-03-02 10:00:00",
		"current_value":  0.0,
		"change_value":   0.0,
		"change_percent": 0.0,
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.User != 9 || p.Game != 4 {
		t.Fatalf("user/game = %d/%d", p.User, p.Game)
	}
	if p.TeamName != nil {
		t.Fatalf("nil team name should stay nil")
	}
	if _, has := p.Row()["team_name"]; has {
		t.Fatalf("nil team name must be omitted from Row")
	}
}

func TestGameColumnReverseLookup(t *testing.T) {
	tests := []struct {
		domain string
		want   string
	}{
		{"owner", "owner_user_id"},
		{"combined_value", "aggregate_value"},
		{"exclusive_picks", "draft_mode"},
		{"name", "name"},
		{"end_date", "end_date"},
	}
	for _, tc := range tests {
		if got := GameColumn(tc.domain); got != tc.want {
			t.Fatalf("GameColumn(%q) = %q, want %q", tc.domain, got, tc.want)
		}
	}
}

func TestOne(t *testing.T) {
	if _, err := One([]User{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty slice: want ErrNotFound, got %v", err)
	}
	if _, err := One([]User{{ID: 1}, {ID: 2}}); !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("two rows: want ErrAmbiguous, got %v", err)
	}
	u, err := One([]User{{ID: 5}})
	if err != nil || u.ID != 5 {
		t.Fatalf("single row: got %+v, %v", u, err)
	}
}

func TestFloatColAcceptsInteger(t *testing.T) {
	// SQLite stores 1000 written as REAL 1000.0, but a raw integer literal
	// arrives as int64; the reader widens it.
	p, err := PriceFromRow(map[string]any{
		"id":         int64(1),
		"stock_id":   int64(2),
		"price":      int64(150),
		"price_time": "2026-03-04 12:00:00",
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Price != 150 {
		t.Fatalf("price = %v", p.Price)
	}
}
