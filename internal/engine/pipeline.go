package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/records"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/store"
)

// UpdateAll runs the four-phase revaluation pipeline over all games, or
// over the one named by gameID when it is non-zero. Each phase completes
// before the next begins and re-running with no new inputs produces no
// further state change. force bypasses the market-hours gate and the daily
// throttle; privilege for forcing is the caller's concern.
func (e *Engine) UpdateAll(ctx context.Context, gameID int64, force bool) error {
	filters := store.Filters{}
	if gameID != 0 {
		filters.Eq = map[string]any{"id": gameID}
	}
	rows, err := e.fetch(ctx, "games", filters, store.GetOpts{Order: []store.Order{{Col: "id", Dir: "ASC"}}})
	if err != nil {
		return err
	}
	games, err := records.GamesFromRows(rows)
	if err != nil {
		return err
	}
	if gameID != 0 && len(games) == 0 {
		return ErrNotFound
	}

	games, err = e.sweepStatuses(ctx, games)
	if err != nil {
		return err
	}
	if err := e.refreshPrices(ctx, games); err != nil {
		return err
	}
	for _, g := range games {
		if g.Status != records.GameActive {
			continue
		}
		if err := e.settleGame(ctx, g, force); err != nil {
			return err
		}
	}
	for _, g := range games {
		if g.Status != records.GameActive {
			continue
		}
		if err := e.aggregateGame(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

// sweepStatuses advances every game along open -> active -> ended. Ended
// games are frozen; no other transition exists.
func (e *Engine) sweepStatuses(ctx context.Context, games []records.Game) ([]records.Game, error) {
	today := e.today()
	out := make([]records.Game, 0, len(games))
	for _, g := range games {
		if g.Status == records.GameOpen && g.StartDate <= today {
			updated, err := e.transitionGame(ctx, g, records.GameActive)
			if err != nil {
				return nil, err
			}
			g = updated
			e.log.Info("game activated", "game_id", g.ID, "start_date", g.StartDate)
		}
		if g.Status == records.GameActive && g.EndDate != nil && *g.EndDate < today {
			updated, err := e.transitionGame(ctx, g, records.GameEnded)
			if err != nil {
				return nil, err
			}
			g = updated
			e.log.Info("game ended", "game_id", g.ID, "end_date", *g.EndDate)
			if err := e.awardWin(ctx, g); err != nil {
				return nil, err
			}
		}
		out = append(out, g)
	}
	return out, nil
}

// awardWin bumps the aggregate win count of the leading participant of a
// game that just ended.
func (e *Engine) awardWin(ctx context.Context, g records.Game) error {
	standings, err := e.Standings(ctx, g.ID)
	if err != nil {
		return err
	}
	for _, p := range standings {
		if p.Status != records.ParticipantActive {
			continue
		}
		res, err := e.store.Raw(ctx, "UPDATE users SET wins = wins + 1, updated_at = ? WHERE id = ?", e.timestamp(), p.User)
		if err != nil {
			return err
		}
		if !res.OK() {
			return envelopeError(res)
		}
		e.log.Info("win recorded", "game_id", g.ID, "user_id", p.User)
		return nil
	}
	return nil
}

// refreshPrices appends one fresh price row per distinct stock referenced
// by any non-sold pick of any non-ended game. Individual tickers the
// provider cannot resolve are logged and skipped.
func (e *Engine) refreshPrices(ctx context.Context, games []records.Game) error {
	var gameIDs []int64
	for _, g := range games {
		if g.Status != records.GameEnded {
			gameIDs = append(gameIDs, g.ID)
		}
	}
	if len(gameIDs) == 0 {
		return nil
	}

	partRows, err := e.fetch(ctx, "game_participants", store.Filters{
		Conds: []store.Cond{{Col: "game_id", Op: "IN", Val: gameIDs}},
	}, store.GetOpts{})
	if err != nil {
		return err
	}
	participants, err := records.ParticipantsFromRows(partRows)
	if err != nil {
		return err
	}
	var partIDs []int64
	for _, p := range participants {
		partIDs = append(partIDs, p.ID)
	}
	if len(partIDs) == 0 {
		return nil
	}

	pickRows, err := e.fetch(ctx, "stock_picks", store.Filters{
		Conds: []store.Cond{
			{Col: "participant_id", Op: "IN", Val: partIDs},
			{Col: "status", Op: "!=", Val: records.PickSold},
		},
	}, store.GetOpts{})
	if err != nil {
		return err
	}
	picks, err := records.PicksFromRows(pickRows)
	if err != nil {
		return err
	}
	stockSet := make(map[int64]bool, len(picks))
	var stockIDs []int64
	for _, p := range picks {
		if !stockSet[p.Stock] {
			stockSet[p.Stock] = true
			stockIDs = append(stockIDs, p.Stock)
		}
	}
	if len(stockIDs) == 0 {
		return nil
	}

	stockRows, err := e.fetch(ctx, "stocks", store.Filters{
		Conds: []store.Cond{{Col: "id", Op: "IN", Val: stockIDs}},
	}, store.GetOpts{})
	if err != nil {
		return err
	}
	stocks, err := records.StocksFromRows(stockRows)
	if err != nil {
		return err
	}
	tickers := make([]string, 0, len(stocks))
	byTicker := make(map[string]records.Stock, len(stocks))
	for _, s := range stocks {
		tickers = append(tickers, s.Ticker)
		byTicker[s.Ticker] = s
	}

	quotes, err := e.provider.Lookup(ctx, tickers)
	if err != nil {
		return fmt.Errorf("%w: price refresh: %v", ErrProvider, err)
	}
	for _, ticker := range tickers {
		quote, ok := quotes[ticker]
		if !ok || quote.Price <= 0 {
			e.log.Warn("no quote for ticker, skipping", "ticker", ticker)
			continue
		}
		if err := e.AddPrice(ctx, byTicker[ticker].ID, quote.Price); err != nil {
			var cerr *ConstraintError
			if errors.As(err, &cerr) && cerr.Kind == ConstraintUnique {
				// Same-timestamp rerun; the earlier row stands.
				continue
			}
			e.log.Warn("price insert failed", "ticker", ticker, "err", err)
		}
	}
	return nil
}

// settleGame turns pending buys into owned picks and reprices owned picks
// for one active game. Daily-cadence games hold off while the reference
// market is open and skip picks repriced within the throttle window.
func (e *Engine) settleGame(ctx context.Context, g records.Game, force bool) error {
	if g.UpdateCadence == records.CadenceDaily && !force {
		open, err := MarketOpen(e.now(), e.market)
		if err != nil {
			return err
		}
		if open {
			e.log.Info("market open, daily game deferred", "game_id", g.ID)
			return nil
		}
	}
	cutoff := e.now().Add(-dailyThrottle).Format(TimeLayout)
	buyPower := g.StartingMoney / float64(g.PickCount)

	participants, err := e.ListParticipants(ctx, g.ID, records.ParticipantActive)
	if err != nil {
		return err
	}
	for _, p := range participants {
		picks, err := e.ListPicks(ctx, p.ID, "")
		if err != nil {
			return err
		}
		for _, pick := range picks {
			switch pick.Status {
			case records.PickPendingBuy:
				if err := e.settlePick(ctx, g, pick, buyPower); err != nil {
					return err
				}
			case records.PickOwned:
				if g.UpdateCadence == records.CadenceDaily && !force && pick.UpdatedAt > cutoff {
					continue
				}
				if err := e.repricePick(ctx, pick); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// settlePick prices a pending buy against the latest quote and promotes it
// to owned. Missing price data fails this pick alone.
func (e *Engine) settlePick(ctx context.Context, g records.Game, pick records.Pick, buyPower float64) error {
	latest, err := e.LatestPrice(ctx, pick.Stock)
	if err != nil {
		if err == ErrNotFound {
			e.log.Error("no price for pick, settlement skipped", "pick_id", pick.ID, "stock_id", pick.Stock)
			return nil
		}
		return err
	}
	shares := buyPower / latest.Price
	value := shares * latest.Price
	res, err := e.store.Update(ctx, "stock_picks", map[string]any{
		"shares":        shares,
		"start_value":   value,
		"current_value": value,
		"status":        records.PickOwned,
		"updated_at":    e.timestamp(),
	}, store.Filters{Eq: map[string]any{"id": pick.ID}})
	if err != nil {
		return err
	}
	if !res.OK() {
		return envelopeError(res)
	}
	return nil
}

func (e *Engine) repricePick(ctx context.Context, pick records.Pick) error {
	latest, err := e.LatestPrice(ctx, pick.Stock)
	if err != nil {
		if err == ErrNotFound {
			e.log.Error("no price for pick, reprice skipped", "pick_id", pick.ID, "stock_id", pick.Stock)
			return nil
		}
		return err
	}
	current := pick.Shares * latest.Price
	change := current - pick.StartValue
	var pct float64
	if pick.StartValue > 0 {
		pct = change / pick.StartValue * 100
	}
	res, err := e.store.Update(ctx, "stock_picks", map[string]any{
		"current_value":  current,
		"change_value":   change,
		"change_percent": pct,
		"updated_at":     e.timestamp(),
	}, store.Filters{Eq: map[string]any{"id": pick.ID}})
	if err != nil {
		return err
	}
	if !res.OK() {
		return envelopeError(res)
	}
	return nil
}

// aggregateGame recomputes each active participant's value as the sum of
// their owned picks, then the game's aggregate as the sum of participant
// values.
func (e *Engine) aggregateGame(ctx context.Context, g records.Game) error {
	participants, err := e.ListParticipants(ctx, g.ID, records.ParticipantActive)
	if err != nil {
		return err
	}
	var aggregate float64
	for _, p := range participants {
		picks, err := e.ListPicks(ctx, p.ID, records.PickOwned)
		if err != nil {
			return err
		}
		var total float64
		for _, pick := range picks {
			total += pick.CurrentValue
		}
		change := total - g.StartingMoney
		var pct float64
		if g.StartingMoney > 0 {
			pct = change / g.StartingMoney * 100
		}
		res, err := e.store.Update(ctx, "game_participants", map[string]any{
			"current_value":  total,
			"change_value":   change,
			"change_percent": pct,
		}, store.Filters{Eq: map[string]any{"id": p.ID}})
		if err != nil {
			return err
		}
		if !res.OK() {
			return envelopeError(res)
		}
		aggregate += total
	}

	baseline := g.StartingMoney * float64(len(participants))
	change := aggregate - baseline
	var pct float64
	if baseline > 0 {
		pct = change / baseline * 100
	}
	_, err = e.updateGameColumns(ctx, g.ID, map[string]any{
		"aggregate_value": aggregate,
		"change_value":    change,
		"change_percent":  pct,
	})
	return err
}
