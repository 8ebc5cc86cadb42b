package rules

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/engine"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/provider"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/records"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/store"
)

var testNow = time.Date(2026, 3, 4, 23, 0, 0, 0, time.UTC)

type fixture struct {
	rules  *Rules
	engine *engine.Engine
	owner  records.User
	player records.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), slog.Default())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	quotes := provider.NewStatic(map[string]provider.Quote{
		"AAPL": {Price: 100, DisplayName: "Apple Inc", Exchange: "NASDAQ"},
		"MSFT": {Price: 50, DisplayName: "Microsoft Corp", Exchange: "NASDAQ"},
		"NVDA": {Price: 200, DisplayName: "NVIDIA Corp", Exchange: "NASDAQ"},
	})
	eng := engine.New(st, quotes, slog.Default(), engine.WithClock(func() time.Time { return testNow }))

	ctx := context.Background()
	owner, err := eng.EnsureUser(ctx, "owner", "cli")
	if err != nil {
		t.Fatalf("ensure owner: %v", err)
	}
	player, err := eng.EnsureUser(ctx, "player", "cli")
	if err != nil {
		t.Fatalf("ensure player: %v", err)
	}
	return &fixture{rules: New(eng), engine: eng, owner: owner, player: player}
}

func (f *fixture) game(t *testing.T, modify func(*engine.CreateGameInput)) records.Game {
	t.Helper()
	in := engine.CreateGameInput{
		Name:          "League",
		Owner:         f.owner.ID,
		StartingMoney: 1000,
		PickCount:     2,
		StartDate:     "2026-03-10",
	}
	if modify != nil {
		modify(&in)
	}
	g, err := f.engine.CreateGame(context.Background(), in)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	return g
}

func TestJoinPublicGameIsImmediate(t *testing.T) {
	f := newFixture(t)
	g := f.game(t, nil)

	p, err := f.rules.Join(context.Background(), f.player.ID, g.ID, "The Bulls")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if p.Status != records.ParticipantActive {
		t.Fatalf("status = %q, want active", p.Status)
	}
	if p.TeamName == nil || *p.TeamName != "The Bulls" {
		t.Fatalf("team name = %v", p.TeamName)
	}
}

func TestJoinPrivateGameNeedsApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.game(t, func(in *engine.CreateGameInput) { in.Private = true })

	p, err := f.rules.Join(ctx, f.player.ID, g.ID, "")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if p.Status != records.ParticipantPending {
		t.Fatalf("status = %q, want pending", p.Status)
	}

	// A stranger cannot approve.
	if _, err := f.rules.Approve(ctx, f.player.ID, p.ID); !errors.Is(err, engine.ErrPermissionDenied) {
		t.Fatalf("stranger approve: want ErrPermissionDenied, got %v", err)
	}

	approved, err := f.rules.Approve(ctx, f.owner.ID, p.ID)
	if err != nil {
		t.Fatalf("owner approve: %v", err)
	}
	if approved.Status != records.ParticipantActive {
		t.Fatalf("status = %q, want active", approved.Status)
	}

	// Approving twice is a state error, not a no-op.
	if _, err := f.rules.Approve(ctx, f.owner.ID, p.ID); !errors.Is(err, engine.ErrNotAllowed) {
		t.Fatalf("double approve: want ErrNotAllowed, got %v", err)
	}
}

func TestJoinRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g := f.game(t, nil)
	if _, err := f.rules.Join(ctx, f.player.ID, g.ID, ""); err != nil {
		t.Fatalf("first join: %v", err)
	}
	_, err := f.rules.Join(ctx, f.player.ID, g.ID, "")
	if !errors.Is(err, engine.ErrNotAllowed) || !strings.Contains(err.Error(), "already joined") {
		t.Fatalf("double join: got %v", err)
	}

	// Joining after the pick deadline.
	late := f.game(t, func(in *engine.CreateGameInput) {
		in.Name = "Late"
		in.PickDate = "2026-03-01" // already passed on 2026-03-04
	})
	if _, err := f.rules.Join(ctx, f.player.ID, late.ID, ""); !errors.Is(err, engine.ErrNotAllowed) {
		t.Fatalf("late join: want ErrNotAllowed, got %v", err)
	}

	if _, err := f.rules.Join(ctx, f.player.ID, 999, ""); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("unknown game: want ErrNotFound, got %v", err)
	}
}

func TestBuyEnforcesPickLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.game(t, nil) // pick count 2

	if _, err := f.rules.Join(ctx, f.player.ID, g.ID, ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := f.rules.Buy(ctx, f.player.ID, g.ID, "AAPL"); err != nil {
		t.Fatalf("first buy: %v", err)
	}
	if _, err := f.rules.Buy(ctx, f.player.ID, g.ID, "MSFT"); err != nil {
		t.Fatalf("second buy: %v", err)
	}
	_, err := f.rules.Buy(ctx, f.player.ID, g.ID, "NVDA")
	if !errors.Is(err, engine.ErrNotAllowed) || !strings.Contains(err.Error(), "maximum picks reached (2)") {
		t.Fatalf("third buy: got %v", err)
	}
}

func TestBuyRejectsDuplicateStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.game(t, nil)

	if _, err := f.rules.Join(ctx, f.player.ID, g.ID, ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := f.rules.Buy(ctx, f.player.ID, g.ID, "AAPL"); err != nil {
		t.Fatalf("first buy: %v", err)
	}
	_, err := f.rules.Buy(ctx, f.player.ID, g.ID, "aapl")
	if !errors.Is(err, engine.ErrNotAllowed) || !strings.Contains(err.Error(), "AAPL already picked") {
		t.Fatalf("duplicate buy: got %v", err)
	}
}

func TestBuyExclusivePicks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.game(t, func(in *engine.CreateGameInput) {
		in.ExclusivePicks = true
		in.PickDate = "2026-03-09"
	})

	if _, err := f.rules.Join(ctx, f.player.ID, g.ID, ""); err != nil {
		t.Fatalf("player join: %v", err)
	}
	if _, err := f.rules.Join(ctx, f.owner.ID, g.ID, ""); err != nil {
		t.Fatalf("owner join: %v", err)
	}
	if _, err := f.rules.Buy(ctx, f.player.ID, g.ID, "AAPL"); err != nil {
		t.Fatalf("player buy: %v", err)
	}
	_, err := f.rules.Buy(ctx, f.owner.ID, g.ID, "AAPL")
	if !errors.Is(err, engine.ErrNotAllowed) || !strings.Contains(err.Error(), "already taken") {
		t.Fatalf("exclusive buy: got %v", err)
	}
	if _, err := f.rules.Buy(ctx, f.owner.ID, g.ID, "MSFT"); err != nil {
		t.Fatalf("distinct stock: %v", err)
	}
}

func TestBuyRequiresActiveMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g := f.game(t, nil)
	if _, err := f.rules.Buy(ctx, f.player.ID, g.ID, "AAPL"); !errors.Is(err, engine.ErrNotAllowed) {
		t.Fatalf("non-member buy: want ErrNotAllowed, got %v", err)
	}

	private := f.game(t, func(in *engine.CreateGameInput) {
		in.Name = "Private"
		in.Private = true
	})
	if _, err := f.rules.Join(ctx, f.player.ID, private.ID, ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := f.rules.Buy(ctx, f.player.ID, private.ID, "AAPL"); !errors.Is(err, engine.ErrNotAllowed) {
		t.Fatalf("pending member buy: want ErrNotAllowed, got %v", err)
	}

	if _, err := f.rules.Buy(ctx, f.player.ID, g.ID, "ZZZZ"); !errors.Is(err, engine.ErrNotAllowed) {
		// non-member check fires before the ticker lookup
		t.Fatalf("got %v", err)
	}
}

func TestBuyUnknownTicker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.game(t, nil)
	if _, err := f.rules.Join(ctx, f.player.ID, g.ID, ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := f.rules.Buy(ctx, f.player.ID, g.ID, "ZZZZ"); !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestRemovePick(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.game(t, nil)

	if _, err := f.rules.Join(ctx, f.player.ID, g.ID, ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	pick, err := f.rules.Buy(ctx, f.player.ID, g.ID, "AAPL")
	if err != nil {
		t.Fatalf("buy: %v", err)
	}

	// Another user cannot withdraw it.
	if err := f.rules.RemovePick(ctx, f.owner.ID, pick.ID); !errors.Is(err, engine.ErrPermissionDenied) {
		t.Fatalf("foreign remove: want ErrPermissionDenied, got %v", err)
	}

	if err := f.rules.RemovePick(ctx, f.player.ID, pick.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := f.engine.GetPick(ctx, pick.ID); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("pick should be gone, got %v", err)
	}
}

func TestRemovePickNamesSettledStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.game(t, func(in *engine.CreateGameInput) {
		in.StartDate = "2026-03-04" // starts today, settles on the next pass
	})

	if _, err := f.rules.Join(ctx, f.player.ID, g.ID, ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	pick, err := f.rules.Buy(ctx, f.player.ID, g.ID, "AAPL")
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if err := f.rules.ForceUpdate(ctx, f.owner.ID, g.ID); err != nil {
		t.Fatalf("force update: %v", err)
	}

	err = f.rules.RemovePick(ctx, f.player.ID, pick.ID)
	if !errors.Is(err, engine.ErrNotAllowed) || !strings.Contains(err.Error(), "owned") {
		t.Fatalf("settled remove should name the status, got %v", err)
	}
}

func TestManageGameOwnershipAndImmutability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g := f.game(t, nil) // starts 2026-03-10, still in the future
	if _, err := f.rules.ManageGame(ctx, f.player.ID, g.ID, map[string]any{"name": "Nope"}); !errors.Is(err, engine.ErrPermissionDenied) {
		t.Fatalf("non-owner manage: want ErrPermissionDenied, got %v", err)
	}

	// Before start everything is editable.
	updated, err := f.rules.ManageGame(ctx, f.owner.ID, g.ID, map[string]any{
		"name":           "Renamed",
		"starting_money": 2000.0,
	})
	if err != nil {
		t.Fatalf("pre-start manage: %v", err)
	}
	if updated.Name != "Renamed" || updated.StartingMoney != 2000 {
		t.Fatalf("changes not applied: %+v", updated)
	}

	started := f.game(t, func(in *engine.CreateGameInput) {
		in.Name = "Started"
		in.StartDate = "2026-03-04"
	})
	for _, frozen := range []string{"start_date", "starting_money", "pick_date", "exclusive_picks"} {
		changes := map[string]any{frozen: "2026-04-01"}
		if _, err := f.rules.ManageGame(ctx, f.owner.ID, started.ID, changes); !errors.Is(err, engine.ErrNotAllowed) {
			t.Fatalf("%s after start: want ErrNotAllowed, got %v", frozen, err)
		}
	}

	// Fields outside the frozen set remain editable after start.
	if _, err := f.rules.ManageGame(ctx, f.owner.ID, started.ID, map[string]any{"end_date": "2026-04-01"}); err != nil {
		t.Fatalf("post-start end date: %v", err)
	}

	// Status never routes through manage.
	if _, err := f.rules.ManageGame(ctx, f.owner.ID, g.ID, map[string]any{"status": "ended"}); !errors.Is(err, engine.ErrNotAllowed) {
		t.Fatalf("status change: want ErrNotAllowed, got %v", err)
	}
}

func TestForceUpdateIsOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.game(t, nil)

	if err := f.rules.ForceUpdate(ctx, f.player.ID, g.ID); !errors.Is(err, engine.ErrPermissionDenied) {
		t.Fatalf("want ErrPermissionDenied, got %v", err)
	}
	if err := f.rules.ForceUpdate(ctx, f.owner.ID, g.ID); err != nil {
		t.Fatalf("owner force: %v", err)
	}
}
