package store

import (
	"errors"
	"testing"
)

func TestFiltersBuildDeterministic(t *testing.T) {
	f := Filters{Eq: map[string]any{"b": 2, "a": 1, "c": nil}}
	where, args, err := f.build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if where != "a = ? AND b = ?" {
		t.Fatalf("where = %q", where)
	}
	if len(args) != 2 || args[0] != 1 || args[1] != 2 {
		t.Fatalf("args = %v", args)
	}
}

func TestFiltersBuildConds(t *testing.T) {
	f := Filters{Conds: []Cond{
		{Col: "price", Op: ">=", Val: 10},
		{Col: "status", Op: "in", Val: []string{"open", "active"}},
		{Col: "name", Op: "LIKE", Val: "a%"},
	}}
	where, args, err := f.build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := "price >= ? AND status IN (?, ?) AND name LIKE ?"
	if where != want {
		t.Fatalf("where = %q, want %q", where, want)
	}
	if len(args) != 4 {
		t.Fatalf("args = %v", args)
	}
}

func TestFiltersEmptyInAndNotIn(t *testing.T) {
	where, _, err := Filters{Conds: []Cond{{Col: "id", Op: "IN", Val: []int64{}}}}.build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if where != "1 = 0" {
		t.Fatalf("empty IN where = %q", where)
	}

	where, _, err = Filters{Conds: []Cond{{Col: "id", Op: "NOT IN", Val: []int64{}}}}.build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if where != "" {
		t.Fatalf("empty NOT IN should drop the term, got %q", where)
	}
}

func TestFiltersRawClause(t *testing.T) {
	f := Filters{
		Eq:      map[string]any{"status": "open"},
		Raw:     "end_date IS NULL OR end_date >= ?",
		RawArgs: []any{"2026-03-04"},
	}
	where, args, err := f.build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := "status = ? AND (end_date IS NULL OR end_date >= ?)"
	if where != want {
		t.Fatalf("where = %q, want %q", where, want)
	}
	if len(args) != 2 {
		t.Fatalf("args = %v", args)
	}
}

func TestFiltersEmpty(t *testing.T) {
	if !(Filters{}).empty() {
		t.Fatalf("zero filters should be empty")
	}
	if !(Filters{Eq: map[string]any{"a": nil}}).empty() {
		t.Fatalf("all-nil Eq should be empty")
	}
	if (Filters{Raw: "id > 0"}).empty() {
		t.Fatalf("raw clause should not be empty")
	}
}

func TestCheckIdentifier(t *testing.T) {
	for _, ok := range []string{"users", "stock_picks", "u.id", "_t"} {
		if err := CheckIdentifier(ok); err != nil {
			t.Fatalf("expected %q to be valid: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "1abc", "users; DROP", "a b"} {
		if err := CheckIdentifier(bad); !errors.Is(err, ErrBadIdentifier) {
			t.Fatalf("expected %q to fail with ErrBadIdentifier, got %v", bad, err)
		}
	}
}

func TestBuildOrder(t *testing.T) {
	got, err := buildOrder([]Order{{Col: "price_time", Dir: "desc"}, {Col: "id", Dir: "ASC"}})
	if err != nil {
		t.Fatalf("buildOrder: %v", err)
	}
	if got != " ORDER BY price_time DESC, id ASC" {
		t.Fatalf("order = %q", got)
	}
	if _, err := buildOrder([]Order{{Col: "id", Dir: "up"}}); !errors.Is(err, ErrBadOrderDirection) {
		t.Fatalf("want ErrBadOrderDirection, got %v", err)
	}
}
