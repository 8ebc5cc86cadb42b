// Package engine owns the game, participant, and pick lifecycle together
// with the periodic revaluation pipeline. It is handed explicit store and
// provider handles at construction; there is no ambient state.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/provider"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/records"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/store"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "2006-01-02 15:04:05"
)

// Picks of daily-cadence games are not repriced again within this window.
const dailyThrottle = 8 * time.Hour

type Engine struct {
	store    *store.Store
	provider provider.Provider
	log      *slog.Logger
	validate *validator.Validate
	market   Market
	now      func() time.Time
}

type Option func(*Engine)

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMarket overrides the reference market for the hours gate.
func WithMarket(m Market) Option {
	return func(e *Engine) { e.market = m }
}

func New(st *store.Store, p provider.Provider, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		store:    st,
		provider: p,
		log:      logger,
		validate: validator.New(),
		market:   NYSE,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) today() string {
	return e.now().Format(DateLayout)
}

func (e *Engine) timestamp() string {
	return e.now().Format(TimeLayout)
}

// fetch runs a store Get and normalizes the envelope: no rows is an empty
// set, everything else in the error status becomes a typed failure.
func (e *Engine) fetch(ctx context.Context, table string, filters store.Filters, opts store.GetOpts) ([]map[string]any, error) {
	res, err := e.store.Get(ctx, table, filters, opts)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		if res.Reason == store.ReasonNoRows {
			return nil, nil
		}
		return nil, envelopeError(res)
	}
	return res.Rows, nil
}

func validDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// EnsureUser returns the user matching (displayName, source), creating it
// on first interaction. Users are never deleted by the engine.
func (e *Engine) EnsureUser(ctx context.Context, displayName, source string) (records.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return records.User{}, validationError("display name must not be blank")
	}
	rows, err := e.fetch(ctx, "users", store.Filters{Eq: map[string]any{
		"display_name": displayName,
		"source":       source,
	}}, store.GetOpts{})
	if err != nil {
		return records.User{}, err
	}
	if len(rows) > 0 {
		users, err := records.UsersFromRows(rows)
		if err != nil {
			return records.User{}, err
		}
		return records.One(users)
	}

	now := e.timestamp()
	u := records.User{
		DisplayName: displayName,
		Source:      source,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res, err := e.store.Insert(ctx, "users", u.Row())
	if err != nil {
		return records.User{}, err
	}
	if !res.OK() {
		return records.User{}, envelopeError(res)
	}
	u.ID = res.LastInsertID
	return u, nil
}

func (e *Engine) GetUser(ctx context.Context, id int64) (records.User, error) {
	rows, err := e.fetch(ctx, "users", store.Filters{Eq: map[string]any{"id": id}}, store.GetOpts{})
	if err != nil {
		return records.User{}, err
	}
	users, err := records.UsersFromRows(rows)
	if err != nil {
		return records.User{}, err
	}
	return records.One(users)
}

func (e *Engine) ListUsers(ctx context.Context) ([]records.User, error) {
	rows, err := e.fetch(ctx, "users", store.Filters{}, store.GetOpts{
		Order: []store.Order{{Col: "id", Dir: "ASC"}},
	})
	if err != nil {
		return nil, err
	}
	return records.UsersFromRows(rows)
}

// UpdateUser applies the given column changes to a user row.
func (e *Engine) UpdateUser(ctx context.Context, id int64, changes map[string]any) (records.User, error) {
	if len(changes) == 0 {
		return records.User{}, validationError("no changes given")
	}
	changes["updated_at"] = e.timestamp()
	res, err := e.store.Update(ctx, "users", changes, store.Filters{Eq: map[string]any{"id": id}})
	if err != nil {
		return records.User{}, err
	}
	if !res.OK() {
		return records.User{}, envelopeError(res)
	}
	if res.Affected == 0 {
		return records.User{}, ErrNotFound
	}
	return e.GetUser(ctx, id)
}
