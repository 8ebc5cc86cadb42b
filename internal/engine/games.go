package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/records"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/store"
)

type CreateGameInput struct {
	Name           string `validate:"required,max=35"`
	Owner          int64  `validate:"required,gt=0"`
	StartingMoney  float64
	PickCount      int64
	PickDate       string
	ExclusivePicks bool
	Private        bool
	AllowSelling   bool
	UpdateCadence  string `validate:"omitempty,oneof=daily hourly minute realtime"`
	StartDate      string `validate:"required"`
	EndDate        string
	TemplateID     *int64
}

func (e *Engine) CreateGame(ctx context.Context, in CreateGameInput) (records.Game, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := e.validate.Struct(in); err != nil {
		return records.Game{}, validationError("%v", err)
	}
	if in.Name == "" {
		return records.Game{}, validationError("game name must not be blank")
	}
	if in.StartingMoney <= 0 {
		return records.Game{}, validationError("starting money must be > 0")
	}
	if in.PickCount <= 0 {
		return records.Game{}, validationError("pick count must be > 0")
	}
	if !validDate(in.StartDate) {
		return records.Game{}, validationError("start date %q is not YYYY-MM-DD", in.StartDate)
	}
	if in.EndDate != "" {
		if !validDate(in.EndDate) {
			return records.Game{}, validationError("end date %q is not YYYY-MM-DD", in.EndDate)
		}
		if in.EndDate < in.StartDate {
			return records.Game{}, validationError("end date %s before start date %s", in.EndDate, in.StartDate)
		}
	}
	if in.PickDate != "" && !validDate(in.PickDate) {
		return records.Game{}, validationError("pick date %q is not YYYY-MM-DD", in.PickDate)
	}
	if in.ExclusivePicks {
		if in.PickDate == "" {
			return records.Game{}, validationError("exclusive picks require a pick date")
		}
		if in.PickDate > in.StartDate {
			return records.Game{}, validationError("pick date %s after start date %s", in.PickDate, in.StartDate)
		}
	}
	cadence := in.UpdateCadence
	if cadence == "" {
		cadence = records.CadenceDaily
	}

	now := e.timestamp()
	g := records.Game{
		TemplateID:     in.TemplateID,
		Name:           in.Name,
		Owner:          in.Owner,
		StartingMoney:  in.StartingMoney,
		PickCount:      in.PickCount,
		ExclusivePicks: in.ExclusivePicks,
		Private:        in.Private,
		AllowSelling:   in.AllowSelling,
		UpdateCadence:  cadence,
		StartDate:      in.StartDate,
		Status:         records.GameOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.PickDate != "" {
		g.PickDate = &in.PickDate
	}
	if in.EndDate != "" {
		g.EndDate = &in.EndDate
	}

	res, err := e.store.Insert(ctx, "games", g.Row())
	if err != nil {
		return records.Game{}, err
	}
	if !res.OK() {
		return records.Game{}, envelopeError(res)
	}
	g.ID = res.LastInsertID
	return g, nil
}

func (e *Engine) GetGame(ctx context.Context, id int64) (records.Game, error) {
	rows, err := e.fetch(ctx, "games", store.Filters{Eq: map[string]any{"id": id}}, store.GetOpts{})
	if err != nil {
		return records.Game{}, err
	}
	games, err := records.GamesFromRows(rows)
	if err != nil {
		return records.Game{}, err
	}
	return records.One(games)
}

// ListGames returns games, optionally narrowed to one status.
func (e *Engine) ListGames(ctx context.Context, status string) ([]records.Game, error) {
	filters := store.Filters{}
	if status != "" {
		filters.Eq = map[string]any{"status": status}
	}
	rows, err := e.fetch(ctx, "games", filters, store.GetOpts{
		Order: []store.Order{{Col: "id", Dir: "ASC"}},
	})
	if err != nil {
		return nil, err
	}
	return records.GamesFromRows(rows)
}

// UpdateGame applies domain-vocabulary field changes (owner, combined_value,
// exclusive_picks, ...) after translating them to persisted columns. Status
// is engine-owned and rejected here; the sweep is the only writer.
func (e *Engine) UpdateGame(ctx context.Context, id int64, changes map[string]any) (records.Game, error) {
	if len(changes) == 0 {
		return records.Game{}, validationError("no changes given")
	}
	cols := make(map[string]any, len(changes)+1)
	for domain, v := range changes {
		col := records.GameColumn(domain)
		if col == "status" {
			return records.Game{}, fmt.Errorf("%w: game status is engine-owned", ErrNotAllowed)
		}
		cols[col] = v
	}
	return e.updateGameColumns(ctx, id, cols)
}

func (e *Engine) updateGameColumns(ctx context.Context, id int64, cols map[string]any) (records.Game, error) {
	cols["updated_at"] = e.timestamp()
	res, err := e.store.Update(ctx, "games", cols, store.Filters{Eq: map[string]any{"id": id}})
	if err != nil {
		return records.Game{}, err
	}
	if !res.OK() {
		return records.Game{}, envelopeError(res)
	}
	if res.Affected == 0 {
		return records.Game{}, ErrNotFound
	}
	return e.GetGame(ctx, id)
}

// transitionGame moves a game's status forward. The open→active→ended
// ordering is enforced here so no caller can ever step backwards.
func (e *Engine) transitionGame(ctx context.Context, g records.Game, next string) (records.Game, error) {
	allowed := map[string]string{
		records.GameOpen:   records.GameActive,
		records.GameActive: records.GameEnded,
	}
	if allowed[g.Status] != next {
		return records.Game{}, fmt.Errorf("%w: game %d cannot move %s -> %s", ErrNotAllowed, g.ID, g.Status, next)
	}
	return e.updateGameColumns(ctx, g.ID, map[string]any{"status": next})
}

type CreateTemplateInput struct {
	Name            string `validate:"required,max=35"`
	Owner           int64  `validate:"required,gt=0"`
	Cadence         string `validate:"omitempty,oneof=daily hourly minute realtime"`
	PickCount       int64
	StartingMoney   float64
	LeadTimeDays    int64
	RepeatEveryDays int64
	NextStartDate   string
}

func (e *Engine) CreateTemplate(ctx context.Context, in CreateTemplateInput) (records.GameTemplate, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := e.validate.Struct(in); err != nil {
		return records.GameTemplate{}, validationError("%v", err)
	}
	if in.StartingMoney <= 0 || in.PickCount <= 0 {
		return records.GameTemplate{}, validationError("template needs positive starting money and pick count")
	}
	if in.RepeatEveryDays <= 0 {
		return records.GameTemplate{}, validationError("repeat interval must be > 0 days")
	}
	if in.NextStartDate != "" && !validDate(in.NextStartDate) {
		return records.GameTemplate{}, validationError("next start date %q is not YYYY-MM-DD", in.NextStartDate)
	}
	cadence := in.Cadence
	if cadence == "" {
		cadence = records.CadenceDaily
	}

	now := e.timestamp()
	t := records.GameTemplate{
		Name:            in.Name,
		Owner:           in.Owner,
		Cadence:         cadence,
		PickCount:       in.PickCount,
		StartingMoney:   in.StartingMoney,
		LeadTimeDays:    in.LeadTimeDays,
		RepeatEveryDays: in.RepeatEveryDays,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.NextStartDate != "" {
		t.NextStartDate = &in.NextStartDate
	}
	res, err := e.store.Insert(ctx, "game_templates", t.Row())
	if err != nil {
		return records.GameTemplate{}, err
	}
	if !res.OK() {
		return records.GameTemplate{}, envelopeError(res)
	}
	t.ID = res.LastInsertID
	return t, nil
}

func (e *Engine) ListTemplates(ctx context.Context) ([]records.GameTemplate, error) {
	rows, err := e.fetch(ctx, "game_templates", store.Filters{}, store.GetOpts{
		Order: []store.Order{{Col: "id", Dir: "ASC"}},
	})
	if err != nil {
		return nil, err
	}
	return records.TemplatesFromRows(rows)
}

// SpawnDue creates a game for every template whose next start date, minus
// its lead time, has arrived, then advances the template's schedule.
func (e *Engine) SpawnDue(ctx context.Context) ([]records.Game, error) {
	templates, err := e.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	today := e.today()
	var spawned []records.Game
	for _, t := range templates {
		if t.NextStartDate == nil {
			continue
		}
		start, err := time.Parse(DateLayout, *t.NextStartDate)
		if err != nil {
			e.log.Warn("template has malformed next start date", "template_id", t.ID, "next_start_date", *t.NextStartDate)
			continue
		}
		due := start.AddDate(0, 0, -int(t.LeadTimeDays)).Format(DateLayout)
		if due > today {
			continue
		}
		g, err := e.CreateGame(ctx, CreateGameInput{
			Name:          fmt.Sprintf("%s %s", t.Name, *t.NextStartDate),
			Owner:         t.Owner,
			StartingMoney: t.StartingMoney,
			PickCount:     t.PickCount,
			UpdateCadence: t.Cadence,
			StartDate:     *t.NextStartDate,
			TemplateID:    &t.ID,
		})
		if err != nil {
			return spawned, err
		}
		spawned = append(spawned, g)

		next := start.AddDate(0, 0, int(t.RepeatEveryDays)).Format(DateLayout)
		res, err := e.store.Update(ctx, "game_templates", map[string]any{
			"next_start_date": next,
			"updated_at":      e.timestamp(),
		}, store.Filters{Eq: map[string]any{"id": t.ID}})
		if err != nil {
			return spawned, err
		}
		if !res.OK() {
			return spawned, envelopeError(res)
		}
	}
	return spawned, nil
}

// Standings lists a game's participants best-first by current value.
func (e *Engine) Standings(ctx context.Context, gameID int64) ([]records.Participant, error) {
	rows, err := e.fetch(ctx, "game_participants", store.Filters{Eq: map[string]any{"game_id": gameID}}, store.GetOpts{
		Order: []store.Order{{Col: "current_value", Dir: "DESC"}, {Col: "id", Dir: "ASC"}},
	})
	if err != nil {
		return nil, err
	}
	return records.ParticipantsFromRows(rows)
}
