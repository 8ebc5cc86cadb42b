package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/engine"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/provider"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/records"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/rules"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), slog.Default())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	quotes := provider.NewStatic(map[string]provider.Quote{
		"AAPL": {Price: 100, DisplayName: "Apple Inc", Exchange: "NASDAQ"},
	})
	clock := func() time.Time { return time.Date(2026, 3, 4, 23, 0, 0, 0, time.UTC) }
	eng := engine.New(st, quotes, slog.Default(), engine.WithClock(clock))
	srv := httptest.NewServer(New(slog.Default(), eng, rules.New(eng)).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path string, body, out any) int {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, srv.URL+path, buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func ensureUser(t *testing.T, srv *httptest.Server, name string) records.User {
	t.Helper()
	var u records.User
	code := call(t, srv, http.MethodPost, "/v1/users", map[string]any{
		"display_name": name,
		"source":       "api",
	}, &u)
	if code != http.StatusOK {
		t.Fatalf("ensure user %q: status %d", name, code)
	}
	return u
}

func createGame(t *testing.T, srv *httptest.Server, owner int64) records.Game {
	t.Helper()
	var g records.Game
	code := call(t, srv, http.MethodPost, "/v1/games", map[string]any{
		"name":           "League",
		"owner":          owner,
		"starting_money": 1000,
		"pick_count":     2,
		"start_date":     "2026-03-10",
	}, &g)
	if code != http.StatusCreated {
		t.Fatalf("create game: status %d", code)
	}
	return g
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	var out map[string]any
	if code := call(t, srv, http.MethodGet, "/healthz", nil, &out); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if out["ok"] != true {
		t.Fatalf("body = %v", out)
	}
}

func TestUserLifecycle(t *testing.T) {
	srv := newTestServer(t)

	u := ensureUser(t, srv, "alice")
	if u.ID == 0 || u.DisplayName != "alice" {
		t.Fatalf("user = %+v", u)
	}
	again := ensureUser(t, srv, "alice")
	if again.ID != u.ID {
		t.Fatalf("ensure not idempotent: %d then %d", u.ID, again.ID)
	}

	var got records.User
	if code := call(t, srv, http.MethodGet, fmt.Sprintf("/v1/users/%d", u.ID), nil, &got); code != http.StatusOK {
		t.Fatalf("get user: status %d", code)
	}
	if got.ID != u.ID {
		t.Fatalf("got = %+v", got)
	}

	var list struct {
		Users []records.User `json:"users"`
	}
	if code := call(t, srv, http.MethodGet, "/v1/users", nil, &list); code != http.StatusOK {
		t.Fatalf("list users: status %d", code)
	}
	if len(list.Users) != 1 {
		t.Fatalf("users = %+v", list.Users)
	}

	var renamed records.User
	if code := call(t, srv, http.MethodPatch, fmt.Sprintf("/v1/users/%d", u.ID), map[string]any{
		"display_name": "alice2",
	}, &renamed); code != http.StatusOK {
		t.Fatalf("rename: status %d", code)
	}
	if renamed.DisplayName != "alice2" {
		t.Fatalf("renamed = %+v", renamed)
	}
	if code := call(t, srv, http.MethodPatch, "/v1/users/999", map[string]any{
		"display_name": "ghost",
	}, nil); code != http.StatusNotFound {
		t.Fatalf("rename unknown: status %d", code)
	}
}

func TestDomainErrorStatusCodes(t *testing.T) {
	srv := newTestServer(t)
	owner := ensureUser(t, srv, "owner")
	player := ensureUser(t, srv, "player")
	g := createGame(t, srv, owner.ID)

	var errBody map[string]string

	// Unknown resources map to 404.
	if code := call(t, srv, http.MethodGet, "/v1/games/999", nil, &errBody); code != http.StatusNotFound {
		t.Fatalf("unknown game: status %d", code)
	}
	if errBody["error"] == "" {
		t.Fatalf("error body missing: %v", errBody)
	}

	// Validation failures map to 400.
	if code := call(t, srv, http.MethodPost, "/v1/games", map[string]any{
		"name":  "Broken",
		"owner": owner.ID,
	}, nil); code != http.StatusBadRequest {
		t.Fatalf("invalid game: status %d", code)
	}

	// Unknown JSON fields are rejected before the engine sees them.
	if code := call(t, srv, http.MethodPost, "/v1/users", map[string]any{
		"display_name": "bob",
		"source":       "api",
		"surprise":     1,
	}, nil); code != http.StatusBadRequest {
		t.Fatalf("unknown field: status %d", code)
	}

	// Rule rejections map to 409.
	if code := call(t, srv, http.MethodPost, fmt.Sprintf("/v1/games/%d/join", g.ID), map[string]any{
		"user_id": player.ID,
	}, nil); code != http.StatusCreated {
		t.Fatalf("join: status %d", code)
	}
	if code := call(t, srv, http.MethodPost, fmt.Sprintf("/v1/games/%d/join", g.ID), map[string]any{
		"user_id": player.ID,
	}, &errBody); code != http.StatusConflict {
		t.Fatalf("double join: status %d", code)
	}

	// Ownership violations map to 403.
	if code := call(t, srv, http.MethodPost, fmt.Sprintf("/v1/games/%d/update", g.ID), map[string]any{
		"user_id": player.ID,
	}, nil); code != http.StatusForbidden {
		t.Fatalf("foreign force update: status %d", code)
	}
}

func TestGameAndPickFlow(t *testing.T) {
	srv := newTestServer(t)
	owner := ensureUser(t, srv, "owner")
	player := ensureUser(t, srv, "player")
	g := createGame(t, srv, owner.ID)

	var p records.Participant
	if code := call(t, srv, http.MethodPost, fmt.Sprintf("/v1/games/%d/join", g.ID), map[string]any{
		"user_id":   player.ID,
		"team_name": "The Bulls",
	}, &p); code != http.StatusCreated {
		t.Fatalf("join: status %d", code)
	}
	if p.Status != records.ParticipantActive {
		t.Fatalf("participant = %+v", p)
	}

	var pick records.Pick
	if code := call(t, srv, http.MethodPost, fmt.Sprintf("/v1/games/%d/buy", g.ID), map[string]any{
		"user_id": player.ID,
		"ticker":  "AAPL",
	}, &pick); code != http.StatusCreated {
		t.Fatalf("buy: status %d", code)
	}
	if pick.Status != records.PickPendingBuy {
		t.Fatalf("pick = %+v", pick)
	}

	var picks struct {
		Picks []records.Pick `json:"picks"`
	}
	if code := call(t, srv, http.MethodGet, fmt.Sprintf("/v1/participants/%d/picks", p.ID), nil, &picks); code != http.StatusOK {
		t.Fatalf("list picks: status %d", code)
	}
	if len(picks.Picks) != 1 || picks.Picks[0].ID != pick.ID {
		t.Fatalf("picks = %+v", picks.Picks)
	}

	// Withdrawing needs the owner of the pick.
	path := fmt.Sprintf("/v1/picks/%d?user_id=%d", pick.ID, owner.ID)
	if code := call(t, srv, http.MethodDelete, path, nil, nil); code != http.StatusForbidden {
		t.Fatalf("foreign remove: status %d", code)
	}
	path = fmt.Sprintf("/v1/picks/%d?user_id=%d", pick.ID, player.ID)
	if code := call(t, srv, http.MethodDelete, path, nil, nil); code != http.StatusOK {
		t.Fatalf("remove: status %d", code)
	}

	var standings struct {
		Standings []records.Participant `json:"standings"`
	}
	if code := call(t, srv, http.MethodGet, fmt.Sprintf("/v1/games/%d/standings", g.ID), nil, &standings); code != http.StatusOK {
		t.Fatalf("standings: status %d", code)
	}
	if len(standings.Standings) != 1 {
		t.Fatalf("standings = %+v", standings.Standings)
	}
}

func TestManageGamePatch(t *testing.T) {
	srv := newTestServer(t)
	owner := ensureUser(t, srv, "owner")
	g := createGame(t, srv, owner.ID)

	var updated records.Game
	code := call(t, srv, http.MethodPatch, fmt.Sprintf("/v1/games/%d", g.ID), map[string]any{
		"user_id": owner.ID,
		"changes": map[string]any{"name": "Renamed"},
	}, &updated)
	if code != http.StatusOK {
		t.Fatalf("patch: status %d", code)
	}
	if updated.Name != "Renamed" {
		t.Fatalf("game = %+v", updated)
	}
}

func TestStockEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var stock records.Stock
	if code := call(t, srv, http.MethodPost, "/v1/stocks", map[string]any{"ticker": "aapl"}, &stock); code != http.StatusCreated {
		t.Fatalf("discover: status %d", code)
	}
	if stock.Ticker != "AAPL" {
		t.Fatalf("stock = %+v", stock)
	}

	var detail struct {
		Stock       records.Stock       `json:"stock"`
		LatestPrice *records.StockPrice `json:"latest_price"`
	}
	if code := call(t, srv, http.MethodGet, "/v1/stocks/AAPL", nil, &detail); code != http.StatusOK {
		t.Fatalf("get stock: status %d", code)
	}
	if detail.Stock.ID != stock.ID {
		t.Fatalf("detail = %+v", detail)
	}
	if detail.LatestPrice == nil || detail.LatestPrice.Price != 100 {
		t.Fatalf("latest price = %+v", detail.LatestPrice)
	}

	if code := call(t, srv, http.MethodGet, "/v1/stocks/ZZZZ", nil, nil); code != http.StatusNotFound {
		t.Fatalf("unknown ticker: status %d", code)
	}

	var list struct {
		Stocks []records.Stock `json:"stocks"`
	}
	if code := call(t, srv, http.MethodGet, "/v1/stocks", nil, &list); code != http.StatusOK {
		t.Fatalf("list stocks: status %d", code)
	}
	if len(list.Stocks) != 1 {
		t.Fatalf("stocks = %+v", list.Stocks)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatal("generated request id missing")
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	resp, err = srv.Client().Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-Id"); got != "abc-123" {
		t.Fatalf("request id = %q, want passthrough", got)
	}
}
