package engine

import (
	"context"

	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/records"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/store"
)

// Today exposes the engine clock's calendar date to the rules layer.
func (e *Engine) Today() string {
	return e.today()
}

// AddParticipant inserts a membership row. Invariant checks (eligibility,
// cutoffs) belong to the rules layer; the (user, game) uniqueness
// constraint is the backstop against racing callers.
func (e *Engine) AddParticipant(ctx context.Context, userID, gameID int64, teamName *string, status string) (records.Participant, error) {
	p := records.Participant{
		User:     userID,
		Game:     gameID,
		TeamName: teamName,
		Status:   status,
		JoinedAt: e.timestamp(),
	}
	res, err := e.store.Insert(ctx, "game_participants", p.Row())
	if err != nil {
		return records.Participant{}, err
	}
	if !res.OK() {
		return records.Participant{}, envelopeError(res)
	}
	p.ID = res.LastInsertID
	return p, nil
}

func (e *Engine) UpdateParticipantStatus(ctx context.Context, id int64, status string) (records.Participant, error) {
	res, err := e.store.Update(ctx, "game_participants", map[string]any{"status": status}, store.Filters{Eq: map[string]any{"id": id}})
	if err != nil {
		return records.Participant{}, err
	}
	if !res.OK() {
		return records.Participant{}, envelopeError(res)
	}
	if res.Affected == 0 {
		return records.Participant{}, ErrNotFound
	}
	return e.GetParticipant(ctx, id)
}

// AddPick inserts a pending-buy pick. The (participant, stock) uniqueness
// constraint is the backstop against double picks.
func (e *Engine) AddPick(ctx context.Context, participantID, stockID int64) (records.Pick, error) {
	now := e.timestamp()
	p := records.Pick{
		Participant: participantID,
		Stock:       stockID,
		Status:      records.PickPendingBuy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res, err := e.store.Insert(ctx, "stock_picks", p.Row())
	if err != nil {
		return records.Pick{}, err
	}
	if !res.OK() {
		return records.Pick{}, envelopeError(res)
	}
	p.ID = res.LastInsertID
	return p, nil
}

// StockPickedInGame reports whether any non-sold pick in the game already
// claims the stock. Backs the exclusive-picks check.
func (e *Engine) StockPickedInGame(ctx context.Context, gameID, stockID int64) (bool, error) {
	res, err := e.store.Get(ctx, "stock_picks", store.Filters{
		Eq: map[string]any{
			"stock_picks.stock_id":      stockID,
			"game_participants.game_id": gameID,
		},
		Conds: []store.Cond{{Col: "stock_picks.status", Op: "!=", Val: records.PickSold}},
	}, store.GetOpts{
		Columns: []string{"stock_picks.id"},
		Join:    "JOIN game_participants ON game_participants.id = stock_picks.participant_id",
	})
	if err != nil {
		return false, err
	}
	if !res.OK() {
		if res.Reason == store.ReasonNoRows {
			return false, nil
		}
		return false, envelopeError(res)
	}
	return len(res.Rows) > 0, nil
}

func (e *Engine) DeletePick(ctx context.Context, id int64) error {
	res, err := e.store.Delete(ctx, "stock_picks", store.Filters{Eq: map[string]any{"id": id}})
	if err != nil {
		return err
	}
	if !res.OK() {
		return envelopeError(res)
	}
	if res.Affected == 0 {
		return ErrNotFound
	}
	return nil
}
