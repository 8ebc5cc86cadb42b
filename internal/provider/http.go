package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPProvider fetches quotes from a JSON quote API. The endpoint is
// expected to answer GET {base}/quotes?symbols=AAA,BBB with
// {"quotes": [{"symbol": ..., "price": ..., "name": ..., "exchange": ...}]}.
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTP(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

type quotePayload struct {
	Quotes []struct {
		Symbol   string  `json:"symbol"`
		Price    float64 `json:"price"`
		Name     string  `json:"name"`
		Exchange string  `json:"exchange"`
	} `json:"quotes"`
}

func (p *HTTPProvider) Lookup(ctx context.Context, tickers []string) (map[string]Quote, error) {
	if len(tickers) == 0 {
		return map[string]Quote{}, nil
	}
	q := url.Values{}
	q.Set("symbols", strings.Join(tickers, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/quotes?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("quote status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var payload quotePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode quotes: %w", err)
	}
	out := make(map[string]Quote, len(payload.Quotes))
	for _, item := range payload.Quotes {
		symbol := strings.ToUpper(strings.TrimSpace(item.Symbol))
		if symbol == "" || item.Price <= 0 {
			continue
		}
		out[symbol] = Quote{
			Price:       item.Price,
			DisplayName: strings.TrimSpace(item.Name),
			Exchange:    strings.ToLower(strings.TrimSpace(item.Exchange)),
		}
	}
	return out, nil
}
