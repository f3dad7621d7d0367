package pricing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

type Quote struct {
	AssetID   string          `json:"asset_id"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// ErrRateLimited signals the upstream asked us to back off.
var ErrRateLimited = errors.New("price source rate limited")

// ErrUnavailable means no cached value of any age exists for the asset.
var ErrUnavailable = errors.New("no price available")

type Source interface {
	Fetch(ctx context.Context, assetID string) (Quote, error)
}

type Client struct {
	http *resty.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	if apiKey != "" {
		c.SetHeader("X-API-Key", apiKey)
	}
	return &Client{http: c}
}

type priceResponse struct {
	Price     decimal.Decimal `json:"price"`
	Timestamp int64           `json:"timestamp"`
}

func (c *Client) Fetch(ctx context.Context, assetID string) (Quote, error) {
	var out priceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/prices/" + assetID)
	if err != nil {
		return Quote{}, fmt.Errorf("fetch price %s: %w", assetID, err)
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return Quote{}, ErrRateLimited
	}
	if resp.IsError() {
		return Quote{}, fmt.Errorf("price source returned %d for %s", resp.StatusCode(), assetID)
	}
	ts := time.UnixMilli(out.Timestamp)
	if out.Timestamp == 0 {
		ts = time.Now().UTC()
	}
	return Quote{AssetID: assetID, Price: out.Price, Timestamp: ts}, nil
}

var _ Source = (*Client)(nil)
