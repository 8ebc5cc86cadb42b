// Package api exposes the engine and rules layers over HTTP for the
// command surfaces and operational tooling. Authentication is left to the
// deployment edge; callers identify themselves by user id.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/engine"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/rules"
)

type Server struct {
	log    *slog.Logger
	engine *engine.Engine
	rules  *rules.Rules
	mux    *chi.Mux
}

func New(logger *slog.Logger, eng *engine.Engine, ruleSet *rules.Rules) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		log:    logger,
		engine: eng,
		rules:  ruleSet,
		mux:    chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/users", s.handleEnsureUser)
		r.Get("/users", s.handleListUsers)
		r.Get("/users/{id}", s.handleGetUser)
		r.Patch("/users/{id}", s.handleUpdateUser)

		r.Post("/games", s.handleCreateGame)
		r.Get("/games", s.handleListGames)
		r.Get("/games/{id}", s.handleGetGame)
		r.Patch("/games/{id}", s.handleManageGame)
		r.Get("/games/{id}/standings", s.handleStandings)
		r.Post("/games/{id}/join", s.handleJoin)
		r.Post("/games/{id}/buy", s.handleBuy)
		r.Post("/games/{id}/update", s.handleForceUpdate)

		r.Post("/participants/{id}/approve", s.handleApprove)
		r.Delete("/picks/{id}", s.handleRemovePick)
		r.Get("/participants/{id}/picks", s.handleListPicks)

		r.Get("/stocks", s.handleListStocks)
		r.Post("/stocks", s.handleDiscoverStock)
		r.Get("/stocks/{ticker}", s.handleGetStock)

		r.Post("/templates", s.handleCreateTemplate)
		r.Get("/templates", s.handleListTemplates)

		r.Post("/update-all", s.handleUpdateAll)
	})
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleEnsureUser(w http.ResponseWriter, r *http.Request) {
	var in struct {
		DisplayName string `json:"display_name"`
		Source      string `json:"source"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := s.engine.EnsureUser(r.Context(), in.DisplayName, in.Source)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.engine.ListUsers(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := s.engine.GetUser(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		DisplayName string `json:"display_name"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.DisplayName) == "" {
		writeError(w, http.StatusBadRequest, "display_name required")
		return
	}
	u, err := s.engine.UpdateUser(r.Context(), id, map[string]any{"display_name": strings.TrimSpace(in.DisplayName)})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name           string  `json:"name"`
		Owner          int64   `json:"owner"`
		StartingMoney  float64 `json:"starting_money"`
		PickCount      int64   `json:"pick_count"`
		PickDate       string  `json:"pick_date"`
		ExclusivePicks bool    `json:"exclusive_picks"`
		Private        bool    `json:"private"`
		AllowSelling   bool    `json:"allow_selling"`
		UpdateCadence  string  `json:"update_cadence"`
		StartDate      string  `json:"start_date"`
		EndDate        string  `json:"end_date"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	g, err := s.engine.CreateGame(r.Context(), engine.CreateGameInput{
		Name:           in.Name,
		Owner:          in.Owner,
		StartingMoney:  in.StartingMoney,
		PickCount:      in.PickCount,
		PickDate:       in.PickDate,
		ExclusivePicks: in.ExclusivePicks,
		Private:        in.Private,
		AllowSelling:   in.AllowSelling,
		UpdateCadence:  in.UpdateCadence,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.engine.ListGames(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": games})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	g, err := s.engine.GetGame(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleManageGame(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		UserID  int64          `json:"user_id"`
		Changes map[string]any `json:"changes"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	g, err := s.rules.ManageGame(r.Context(), in.UserID, id, in.Changes)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	standings, err := s.engine.Standings(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"standings": standings})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		UserID   int64  `json:"user_id"`
		TeamName string `json:"team_name"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.rules.Join(r.Context(), in.UserID, id, in.TeamName)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		UserID int64  `json:"user_id"`
		Ticker string `json:"ticker"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pick, err := s.rules.Buy(r.Context(), in.UserID, id, in.Ticker)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pick)
}

func (s *Server) handleForceUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		UserID int64 `json:"user_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.rules.ForceUpdate(r.Context(), in.UserID, id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		UserID int64 `json:"user_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.rules.Approve(r.Context(), in.UserID, id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleRemovePick(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "user_id query parameter required")
		return
	}
	if err := s.rules.RemovePick(r.Context(), userID, id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleListPicks(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	picks, err := s.engine.ListPicks(r.Context(), id, r.URL.Query().Get("status"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"picks": picks})
}

func (s *Server) handleListStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := s.engine.ListStocks(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stocks": stocks})
}

func (s *Server) handleDiscoverStock(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Ticker string `json:"ticker"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stock, err := s.engine.DiscoverStock(r.Context(), in.Ticker)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stock)
}

func (s *Server) handleGetStock(w http.ResponseWriter, r *http.Request) {
	stock, err := s.engine.FindStock(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	out := map[string]any{"stock": stock}
	if latest, err := s.engine.LatestPrice(r.Context(), stock.ID); err == nil {
		out["latest_price"] = latest
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var in engine.CreateTemplateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := s.engine.CreateTemplate(r.Context(), in)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.engine.ListTemplates(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (s *Server) handleUpdateAll(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.UpdateAll(r.Context(), 0, false); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// writeDomainError maps the engine taxonomy onto status codes without
// leaking internals.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrNotAllowed), errors.Is(err, engine.ErrConstraint):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrProvider):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.log.Error("internal error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
