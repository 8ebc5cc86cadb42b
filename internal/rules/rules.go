// Package rules holds the request-time invariant checks the command
// surface runs before mutating state: join eligibility, pick limits,
// cutoffs, ownership. The store's unique and foreign-key constraints
// remain the last line of defense against racing callers; the checks here
// give clean answers in the common case.
package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/engine"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/records"
)

type Rules struct {
	engine *engine.Engine
}

func New(eng *engine.Engine) *Rules {
	return &Rules{engine: eng}
}

// Join adds a user to a game. Private games hold the joiner in pending
// until the owner approves; public games admit immediately.
func (r *Rules) Join(ctx context.Context, userID, gameID int64, teamName string) (records.Participant, error) {
	g, err := r.engine.GetGame(ctx, gameID)
	if err != nil {
		return records.Participant{}, err
	}
	if g.Status == records.GameEnded {
		return records.Participant{}, fmt.Errorf("%w: game %q has ended", engine.ErrNotAllowed, g.Name)
	}
	today := r.engine.Today()
	if g.PickDate != nil && today > *g.PickDate {
		return records.Participant{}, fmt.Errorf("%w: pick date %s has passed", engine.ErrNotAllowed, *g.PickDate)
	}
	if _, err := r.engine.FindParticipant(ctx, userID, gameID); err == nil {
		return records.Participant{}, fmt.Errorf("%w: already joined", engine.ErrNotAllowed)
	} else if !errors.Is(err, engine.ErrNotFound) {
		return records.Participant{}, err
	}

	status := records.ParticipantActive
	if g.Private {
		status = records.ParticipantPending
	}
	var team *string
	if t := strings.TrimSpace(teamName); t != "" {
		team = &t
	}
	p, err := r.engine.AddParticipant(ctx, userID, gameID, team, status)
	if err != nil {
		var cerr *engine.ConstraintError
		if errors.As(err, &cerr) && cerr.Kind == engine.ConstraintUnique {
			return records.Participant{}, fmt.Errorf("%w: already joined", engine.ErrNotAllowed)
		}
		return records.Participant{}, err
	}
	return p, nil
}

// Approve moves a pending participant to active. Only the game owner may
// approve.
func (r *Rules) Approve(ctx context.Context, ownerID, participantID int64) (records.Participant, error) {
	p, err := r.engine.GetParticipant(ctx, participantID)
	if err != nil {
		return records.Participant{}, err
	}
	g, err := r.engine.GetGame(ctx, p.Game)
	if err != nil {
		return records.Participant{}, err
	}
	if g.Owner != ownerID {
		return records.Participant{}, fmt.Errorf("%w: only the game owner may approve", engine.ErrPermissionDenied)
	}
	if p.Status != records.ParticipantPending {
		return records.Participant{}, fmt.Errorf("%w: participant is %s, not pending", engine.ErrNotAllowed, p.Status)
	}
	return r.engine.UpdateParticipantStatus(ctx, participantID, records.ParticipantActive)
}

// Buy registers a pending-buy pick for the user in the game. The pick is
// priced later by the settlement phase, not here.
func (r *Rules) Buy(ctx context.Context, userID, gameID int64, ticker string) (records.Pick, error) {
	g, err := r.engine.GetGame(ctx, gameID)
	if err != nil {
		return records.Pick{}, err
	}
	p, err := r.engine.FindParticipant(ctx, userID, gameID)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return records.Pick{}, fmt.Errorf("%w: not a participant of game %q", engine.ErrNotAllowed, g.Name)
		}
		return records.Pick{}, err
	}
	if p.Status != records.ParticipantActive {
		return records.Pick{}, fmt.Errorf("%w: participant is %s", engine.ErrNotAllowed, p.Status)
	}
	if g.PickDate != nil && r.engine.Today() > *g.PickDate {
		return records.Pick{}, fmt.Errorf("%w: pick date %s has passed", engine.ErrNotAllowed, *g.PickDate)
	}

	picks, err := r.engine.ListPicks(ctx, p.ID, "")
	if err != nil {
		return records.Pick{}, err
	}
	var held int64
	for _, pick := range picks {
		if pick.Status != records.PickSold {
			held++
		}
	}
	if held >= g.PickCount {
		return records.Pick{}, fmt.Errorf("%w: maximum picks reached (%d)", engine.ErrNotAllowed, g.PickCount)
	}

	stock, err := r.engine.DiscoverStock(ctx, ticker)
	if err != nil {
		return records.Pick{}, err
	}
	if g.ExclusivePicks {
		taken, err := r.engine.StockPickedInGame(ctx, g.ID, stock.ID)
		if err != nil {
			return records.Pick{}, err
		}
		if taken {
			return records.Pick{}, fmt.Errorf("%w: %s is already taken in this game", engine.ErrNotAllowed, stock.Ticker)
		}
	}
	pick, err := r.engine.AddPick(ctx, p.ID, stock.ID)
	if err != nil {
		var cerr *engine.ConstraintError
		if errors.As(err, &cerr) && cerr.Kind == engine.ConstraintUnique {
			return records.Pick{}, fmt.Errorf("%w: %s already picked", engine.ErrNotAllowed, stock.Ticker)
		}
		return records.Pick{}, err
	}
	return pick, nil
}

// RemovePick withdraws a pick that has not settled yet. Anything past
// pending_buy stays; the rejection names the pick's current status.
func (r *Rules) RemovePick(ctx context.Context, userID, pickID int64) error {
	pick, err := r.engine.GetPick(ctx, pickID)
	if err != nil {
		return err
	}
	p, err := r.engine.GetParticipant(ctx, pick.Participant)
	if err != nil {
		return err
	}
	if p.User != userID {
		return fmt.Errorf("%w: pick belongs to another participant", engine.ErrPermissionDenied)
	}
	if pick.Status != records.PickPendingBuy {
		return fmt.Errorf("%w: pick is %s and can no longer be removed", engine.ErrNotAllowed, pick.Status)
	}
	return r.engine.DeletePick(ctx, pickID)
}

// Fields that freeze once a game's start date has passed, in domain
// vocabulary.
var immutableAfterStart = []string{"start_date", "starting_money", "pick_date", "exclusive_picks"}

// ManageGame applies owner edits in domain vocabulary. Once the game has
// started, the fields that shaped buying power and the draft window are
// immutable.
func (r *Rules) ManageGame(ctx context.Context, userID, gameID int64, changes map[string]any) (records.Game, error) {
	g, err := r.engine.GetGame(ctx, gameID)
	if err != nil {
		return records.Game{}, err
	}
	if g.Owner != userID {
		return records.Game{}, fmt.Errorf("%w: only the game owner may manage it", engine.ErrPermissionDenied)
	}
	if g.StartDate <= r.engine.Today() {
		for _, field := range immutableAfterStart {
			if _, ok := changes[field]; ok {
				return records.Game{}, fmt.Errorf("%w: %s is immutable after the game starts", engine.ErrNotAllowed, field)
			}
		}
	}
	return r.engine.UpdateGame(ctx, gameID, changes)
}

// ForceUpdate runs the revaluation pipeline for one game outside its
// normal cadence. Owner-only.
func (r *Rules) ForceUpdate(ctx context.Context, userID, gameID int64) error {
	g, err := r.engine.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Owner != userID {
		return fmt.Errorf("%w: only the game owner may force an update", engine.ErrPermissionDenied)
	}
	return r.engine.UpdateAll(ctx, gameID, true)
}
