package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/records"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/store"
)

func (e *Engine) GetStock(ctx context.Context, id int64) (records.Stock, error) {
	rows, err := e.fetch(ctx, "stocks", store.Filters{Eq: map[string]any{"id": id}}, store.GetOpts{})
	if err != nil {
		return records.Stock{}, err
	}
	stocks, err := records.StocksFromRows(rows)
	if err != nil {
		return records.Stock{}, err
	}
	return records.One(stocks)
}

// FindStock looks a stock up by ticker alone; the (ticker, exchange) pair
// is unique but a ticker rarely lists on two tracked exchanges, so more
// than one match is reported as ambiguous rather than picked arbitrarily.
func (e *Engine) FindStock(ctx context.Context, ticker string) (records.Stock, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	rows, err := e.fetch(ctx, "stocks", store.Filters{Eq: map[string]any{"ticker": ticker}}, store.GetOpts{})
	if err != nil {
		return records.Stock{}, err
	}
	stocks, err := records.StocksFromRows(rows)
	if err != nil {
		return records.Stock{}, err
	}
	return records.One(stocks)
}

func (e *Engine) ListStocks(ctx context.Context) ([]records.Stock, error) {
	rows, err := e.fetch(ctx, "stocks", store.Filters{}, store.GetOpts{
		Order: []store.Order{{Col: "ticker", Dir: "ASC"}},
	})
	if err != nil {
		return nil, err
	}
	return records.StocksFromRows(rows)
}

// DiscoverStock registers an unknown ticker from provider metadata. A
// provider answer with no usable metadata means the ticker does not exist
// and is reported as a validation failure.
func (e *Engine) DiscoverStock(ctx context.Context, ticker string) (records.Stock, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return records.Stock{}, validationError("ticker must not be blank")
	}
	if existing, err := e.FindStock(ctx, ticker); err == nil {
		return existing, nil
	} else if err != ErrNotFound {
		return records.Stock{}, err
	}

	quotes, err := e.provider.Lookup(ctx, []string{ticker})
	if err != nil {
		return records.Stock{}, fmt.Errorf("%w: lookup %s: %v", ErrProvider, ticker, err)
	}
	quote, ok := quotes[ticker]
	if !ok || (quote.DisplayName == "" && quote.Exchange == "") {
		return records.Stock{}, validationError("ticker %s does not exist", ticker)
	}

	now := e.timestamp()
	s := records.Stock{
		Ticker:      ticker,
		Exchange:    strings.ToLower(quote.Exchange),
		CompanyName: quote.DisplayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res, err := e.store.Insert(ctx, "stocks", s.Row())
	if err != nil {
		return records.Stock{}, err
	}
	if !res.OK() {
		return records.Stock{}, envelopeError(res)
	}
	s.ID = res.LastInsertID

	if quote.Price > 0 {
		if err := e.AddPrice(ctx, s.ID, quote.Price); err != nil {
			e.log.Warn("initial price insert failed", "ticker", ticker, "err", err)
		}
	}
	return s, nil
}

// AddPrice appends a price row at the engine clock's current timestamp.
// Prices are append-only: a (stock, timestamp) collision is rejected and
// the prior row is never touched.
func (e *Engine) AddPrice(ctx context.Context, stockID int64, price float64) error {
	if price <= 0 {
		return validationError("price must be > 0")
	}
	p := records.StockPrice{
		StockID:   stockID,
		Price:     price,
		PriceTime: e.timestamp(),
	}
	res, err := e.store.Insert(ctx, "stock_prices", p.Row())
	if err != nil {
		return err
	}
	if !res.OK() {
		return envelopeError(res)
	}
	return nil
}

// LatestPrice returns the most recent quote row for a stock.
func (e *Engine) LatestPrice(ctx context.Context, stockID int64) (records.StockPrice, error) {
	rows, err := e.fetch(ctx, "stock_prices", store.Filters{Eq: map[string]any{"stock_id": stockID}}, store.GetOpts{
		Order: []store.Order{{Col: "price_time", Dir: "DESC"}, {Col: "id", Dir: "DESC"}},
	})
	if err != nil {
		return records.StockPrice{}, err
	}
	if len(rows) == 0 {
		return records.StockPrice{}, ErrNotFound
	}
	return records.PriceFromRow(rows[0])
}

// PriceAt returns the price row recorded exactly at the given timestamp.
func (e *Engine) PriceAt(ctx context.Context, stockID int64, priceTime string) (records.StockPrice, error) {
	rows, err := e.fetch(ctx, "stock_prices", store.Filters{Eq: map[string]any{
		"stock_id":   stockID,
		"price_time": priceTime,
	}}, store.GetOpts{})
	if err != nil {
		return records.StockPrice{}, err
	}
	prices, err := records.PricesFromRows(rows)
	if err != nil {
		return records.StockPrice{}, err
	}
	return records.One(prices)
}

func (e *Engine) GetParticipant(ctx context.Context, id int64) (records.Participant, error) {
	rows, err := e.fetch(ctx, "game_participants", store.Filters{Eq: map[string]any{"id": id}}, store.GetOpts{})
	if err != nil {
		return records.Participant{}, err
	}
	parts, err := records.ParticipantsFromRows(rows)
	if err != nil {
		return records.Participant{}, err
	}
	return records.One(parts)
}

// FindParticipant resolves the unique (user, game) membership.
func (e *Engine) FindParticipant(ctx context.Context, userID, gameID int64) (records.Participant, error) {
	rows, err := e.fetch(ctx, "game_participants", store.Filters{Eq: map[string]any{
		"user_id": userID,
		"game_id": gameID,
	}}, store.GetOpts{})
	if err != nil {
		return records.Participant{}, err
	}
	parts, err := records.ParticipantsFromRows(rows)
	if err != nil {
		return records.Participant{}, err
	}
	return records.One(parts)
}

func (e *Engine) ListParticipants(ctx context.Context, gameID int64, status string) ([]records.Participant, error) {
	filters := store.Filters{Eq: map[string]any{"game_id": gameID}}
	if status != "" {
		filters.Eq["status"] = status
	}
	rows, err := e.fetch(ctx, "game_participants", filters, store.GetOpts{
		Order: []store.Order{{Col: "id", Dir: "ASC"}},
	})
	if err != nil {
		return nil, err
	}
	return records.ParticipantsFromRows(rows)
}

func (e *Engine) GetPick(ctx context.Context, id int64) (records.Pick, error) {
	rows, err := e.fetch(ctx, "stock_picks", store.Filters{Eq: map[string]any{"id": id}}, store.GetOpts{})
	if err != nil {
		return records.Pick{}, err
	}
	picks, err := records.PicksFromRows(rows)
	if err != nil {
		return records.Pick{}, err
	}
	return records.One(picks)
}

// ListPicks returns a participant's picks, optionally filtered by status.
func (e *Engine) ListPicks(ctx context.Context, participantID int64, status string) ([]records.Pick, error) {
	filters := store.Filters{Eq: map[string]any{"participant_id": participantID}}
	if status != "" {
		filters.Eq["status"] = status
	}
	rows, err := e.fetch(ctx, "stock_picks", filters, store.GetOpts{
		Order: []store.Order{{Col: "id", Dir: "ASC"}},
	})
	if err != nil {
		return nil, err
	}
	return records.PicksFromRows(rows)
}
