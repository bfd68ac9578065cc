package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// APIError is a non-2xx response from the panelprofits API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Health(ctx context.Context) error {
	return c.jsonRequest(ctx, http.MethodGet, "/healthz", nil, nil)
}

type OptionInput struct {
	Underlying float64  `json:"underlying"`
	Strike     float64  `json:"strike"`
	Years      float64  `json:"years"`
	Rate       *float64 `json:"rate,omitempty"`
	Volatility float64  `json:"volatility,omitempty"`
	Type       string   `json:"type"`
}

func (c *Client) OptionPrice(ctx context.Context, in OptionInput) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/options/price", in, &out)
	return out, err
}

func (c *Client) ImpliedVolatility(ctx context.Context, marketPrice float64, in OptionInput) (map[string]any, error) {
	body := map[string]any{
		"market_price": marketPrice,
		"underlying":   in.Underlying,
		"strike":       in.Strike,
		"years":        in.Years,
		"type":         in.Type,
	}
	if in.Rate != nil {
		body["rate"] = *in.Rate
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/options/implied-volatility", body, &out)
	return out, err
}

func (c *Client) Markets(ctx context.Context, at time.Time) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, withAt("/v1/markets", at), nil, &out)
	return out, err
}

func (c *Client) Market(ctx context.Context, code string, at time.Time) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, withAt("/v1/markets/"+url.PathEscape(code), at), nil, &out)
	return out, err
}

func (c *Client) CrossMarket(ctx context.Context, primary, trading string, at time.Time) (map[string]any, error) {
	path := fmt.Sprintf("/v1/markets/%s/cross/%s", url.PathEscape(primary), url.PathEscape(trading))
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, withAt(path, at), nil, &out)
	return out, err
}

func (c *Client) VaultScarcity(ctx context.Context, settings map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/vault/scarcity", settings, &out)
	return out, err
}

func (c *Client) VaultFee(ctx context.Context, settings map[string]any, shares int64, price float64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/vault/fee", map[string]any{
		"settings": settings,
		"shares":   shares,
		"price":    price,
	}, &out)
	return out, err
}

func (c *Client) Tier(ctx context.Context, tier string, publishedAt time.Time) (map[string]any, error) {
	path := "/v1/tiers/" + url.PathEscape(tier)
	if !publishedAt.IsZero() {
		path += "?published_at=" + url.QueryEscape(publishedAt.UTC().Format(time.RFC3339))
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) RunNpcCycle(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/npc/cycle", map[string]any{}, &out)
	return out, err
}

func (c *Client) ListTraders(ctx context.Context, activeOnly bool) (map[string]any, error) {
	path := "/v1/npc/traders"
	if activeOnly {
		path += "?active=1"
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) CreateAsset(ctx context.Context, name, assetType string, metadata map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/assets", map[string]any{
		"name":     name,
		"type":     assetType,
		"metadata": metadata,
	}, &out)
	return out, err
}

func (c *Client) ListAssets(ctx context.Context, assetType string, limit, offset int) (map[string]any, error) {
	q := url.Values{}
	if assetType != "" {
		q.Set("type", assetType)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/v1/assets"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Asset(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/assets/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) SetPrice(ctx context.Context, id, price string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPut, "/v1/assets/"+url.PathEscape(id)+"/price", map[string]any{
		"price": price,
	}, &out)
	return out, err
}

func (c *Client) GenerateSymbol(ctx context.Context, assetType string, params map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/symbols/generate", map[string]any{
		"type":   assetType,
		"params": params,
	}, &out)
	return out, err
}

func (c *Client) RegenerateSymbols(ctx context.Context, assetIDs []string, dryRun bool) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/symbols/regenerate", map[string]any{
		"asset_ids": assetIDs,
		"dry_run":   dryRun,
	}, &out)
	return out, err
}

func (c *Client) RegenerateByType(ctx context.Context, assetType string, limit int, dryRun bool) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/symbols/regenerate-by-type", map[string]any{
		"type":    assetType,
		"limit":   limit,
		"dry_run": dryRun,
	}, &out)
	return out, err
}

func (c *Client) RegenerateAll(ctx context.Context, batchSize int, dryRun bool) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/symbols/regenerate-all", map[string]any{
		"batch_size": batchSize,
		"dry_run":    dryRun,
	}, &out)
	return out, err
}

func (c *Client) Do(ctx context.Context, method, path string, body map[string]any) (map[string]any, error) {
	var out map[string]any
	var in any
	if body != nil {
		in = body
	}
	err := c.jsonRequest(ctx, method, path, in, &out)
	return out, err
}

func withAt(path string, at time.Time) string {
	if at.IsZero() {
		return path
	}
	return path + "?at=" + url.QueryEscape(at.UTC().Format(time.RFC3339))
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
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// errorMessage unwraps the server's {"error": "..."} body, falling back to the raw text.
func errorMessage(raw []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(raw))
}
