// Package provider abstracts the market-data lookup the engine prices
// picks against. Implementations may omit or fail individual tickers
// without failing the whole batch.
package provider

import "context"

// Quote is one ticker's current price plus descriptive metadata.
type Quote struct {
	Price       float64
	DisplayName string
	Exchange    string
}

type Provider interface {
	// Lookup resolves quotes for a set of tickers. Tickers the provider
	// cannot resolve are simply absent from the returned map.
	Lookup(ctx context.Context, tickers []string) (map[string]Quote, error)
}
