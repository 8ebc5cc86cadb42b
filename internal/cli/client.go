package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) EnsureUser(ctx context.Context, displayName, source string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/users", map[string]any{
		"display_name": displayName,
		"source":       source,
	}, &out)
	return out, err
}

func (c *Client) ListUsers(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/users", nil, &out)
	return out, err
}

func (c *Client) GetUser(ctx context.Context, id int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/users/%d", id), nil, &out)
	return out, err
}

func (c *Client) CreateGame(ctx context.Context, body map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games", body, &out)
	return out, err
}

func (c *Client) ListGames(ctx context.Context, status string) (map[string]any, error) {
	path := "/v1/games"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) GetGame(ctx context.Context, id int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/games/%d", id), nil, &out)
	return out, err
}

func (c *Client) ManageGame(ctx context.Context, userID, gameID int64, changes map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPatch, fmt.Sprintf("/v1/games/%d", gameID), map[string]any{
		"user_id": userID,
		"changes": changes,
	}, &out)
	return out, err
}

func (c *Client) Standings(ctx context.Context, gameID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/games/%d/standings", gameID), nil, &out)
	return out, err
}

func (c *Client) Join(ctx context.Context, userID, gameID int64, teamName string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/join", gameID), map[string]any{
		"user_id":   userID,
		"team_name": teamName,
	}, &out)
	return out, err
}

func (c *Client) Buy(ctx context.Context, userID, gameID int64, ticker string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/buy", gameID), map[string]any{
		"user_id": userID,
		"ticker":  ticker,
	}, &out)
	return out, err
}

func (c *Client) ForceUpdate(ctx context.Context, userID, gameID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/games/%d/update", gameID), map[string]any{
		"user_id": userID,
	}, &out)
	return out, err
}

func (c *Client) Approve(ctx context.Context, ownerID, participantID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/participants/%d/approve", participantID), map[string]any{
		"user_id": ownerID,
	}, &out)
	return out, err
}

func (c *Client) RemovePick(ctx context.Context, userID, pickID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodDelete, fmt.Sprintf("/v1/picks/%d?user_id=%d", pickID, userID), nil, &out)
	return out, err
}

func (c *Client) ListPicks(ctx context.Context, participantID int64, status string) (map[string]any, error) {
	path := fmt.Sprintf("/v1/participants/%d/picks", participantID)
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) ListStocks(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/stocks", nil, &out)
	return out, err
}

func (c *Client) DiscoverStock(ctx context.Context, ticker string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/stocks", map[string]any{
		"ticker": ticker,
	}, &out)
	return out, err
}

func (c *Client) StockDetail(ctx context.Context, ticker string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/stocks/"+url.PathEscape(ticker), nil, &out)
	return out, err
}

func (c *Client) CreateTemplate(ctx context.Context, body map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/templates", body, &out)
	return out, err
}

func (c *Client) ListTemplates(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/templates", nil, &out)
	return out, err
}

func (c *Client) UpdateAll(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/update-all", map[string]any{}, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
