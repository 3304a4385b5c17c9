package yfinance

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// HTTPDoer is the subset of *http.Client the client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client reads quote data from the public Yahoo Finance JSON endpoints.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient HTTPDoer
}

// NewClient creates a client for baseURL (e.g. https://query1.finance.yahoo.com).
func NewClient(baseURL, userAgent string, httpClient HTTPDoer) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), userAgent: userAgent, httpClient: httpClient}
}

// NewsItem is one headline of the company news feed.
type NewsItem struct {
	Title     string `json:"title"`
	Publisher string `json:"publisher"`
	Link      string `json:"link"`
	Published int64  `json:"published"`
}

// Price returns the latest regular market price and currency of symbol.
func (c *Client) Price(ctx context.Context, symbol string) (float64, string, error) {
	body, err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), url.Values{"interval": {"1d"}, "range": {"1d"}})
	if err != nil {
		return 0, "", err
	}
	if msg := gjson.GetBytes(body, "chart.error.description"); msg.Exists() && msg.String() != "" {
		return 0, "", fmt.Errorf("chart %s: %s", symbol, msg.String())
	}
	meta := gjson.GetBytes(body, "chart.result.0.meta")
	price := meta.Get("regularMarketPrice")
	if !price.Exists() {
		return 0, "", fmt.Errorf("chart %s: no price in response", symbol)
	}
	return price.Float(), meta.Get("currency").String(), nil
}

// Summary returns the raw quoteSummary result for the given modules, keyed by module.
func (c *Client) Summary(ctx context.Context, symbol string, modules ...string) (gjson.Result, error) {
	body, err := c.get(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), url.Values{"modules": {strings.Join(modules, ",")}})
	if err != nil {
		return gjson.Result{}, err
	}
	if msg := gjson.GetBytes(body, "quoteSummary.error.description"); msg.Exists() && msg.String() != "" {
		return gjson.Result{}, fmt.Errorf("quote summary %s: %s", symbol, msg.String())
	}
	res := gjson.GetBytes(body, "quoteSummary.result.0")
	if !res.Exists() {
		return gjson.Result{}, fmt.Errorf("quote summary %s: empty result", symbol)
	}
	return res, nil
}

// News returns up to count recent headlines for symbol.
func (c *Client) News(ctx context.Context, symbol string, count int) ([]NewsItem, error) {
	body, err := c.get(ctx, "/v1/finance/search", url.Values{
		"q":           {symbol},
		"newsCount":   {fmt.Sprint(count)},
		"quotesCount": {"0"},
	})
	if err != nil {
		return nil, err
	}

	items := []NewsItem{}
	gjson.GetBytes(body, "news").ForEach(func(_, v gjson.Result) bool {
		items = append(items, NewsItem{
			Title:     v.Get("title").String(),
			Publisher: v.Get("publisher").String(),
			Link:      v.Get("link").String(),
			Published: v.Get("providerPublishTime").Int(),
		})
		return count <= 0 || len(items) < count
	})
	return items, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo finance request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("yahoo finance returned status %d", resp.StatusCode)
	}
	return body, nil
}
