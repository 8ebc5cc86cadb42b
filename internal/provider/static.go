package provider

import (
	"context"
	"strings"
	"sync"
)

// Static serves quotes from an in-memory table. Used for local development
// and tests; tickers without an entry are omitted, mirroring a live
// provider that fails individual symbols.
type Static struct {
	mu     sync.Mutex
	quotes map[string]Quote
	err    error
}

func NewStatic(quotes map[string]Quote) *Static {
	table := make(map[string]Quote, len(quotes))
	for ticker, q := range quotes {
		table[strings.ToUpper(ticker)] = q
	}
	return &Static{quotes: table}
}

// SetQuote replaces the full quote for a ticker.
func (s *Static) SetQuote(ticker string, q Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[strings.ToUpper(ticker)] = q
}

// SetPrice updates or adds a single quote, keeping existing metadata.
func (s *Static) SetPrice(ticker string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticker = strings.ToUpper(ticker)
	q := s.quotes[ticker]
	q.Price = price
	s.quotes[ticker] = q
}

// Fail makes every subsequent Lookup return err; pass nil to recover.
func (s *Static) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Static) Lookup(_ context.Context, tickers []string) (map[string]Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]Quote, len(tickers))
	for _, ticker := range tickers {
		if q, ok := s.quotes[strings.ToUpper(ticker)]; ok {
			out[strings.ToUpper(ticker)] = q
		}
	}
	return out, nil
}
