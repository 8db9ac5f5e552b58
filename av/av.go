// Copyright 2023 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package av

import (
	"context"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/stockparfait/alphavantage/table"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/iterator"
	"github.com/stockparfait/logging"
)

type contextKey int

const (
	clientContextKey contextKey = iota
)

// URL is the default base URL of the server. It may be overwritten in tests
// or through Config.BaseURL.
var URL = "https://www.alphavantage.co/query"

// Config for creating a Client. The zero value of every field except Key
// selects a reasonable default. The client never reads environment variables
// or files; the key arrives here as an opaque string.
type Config struct {
	Key            string        // API key (required); never logged
	BaseURL        string        // default: URL; override for tests
	QuotaPerMinute int           // default: 5; negative: unlimited
	QuotaPerDay    int           // default: 500; negative: unlimited
	MaxAttempts    int           // transport attempts, default: 3
	RetryBaseDelay time.Duration // backoff base delay, default: 500ms
	Timeout        time.Duration // HTTP timeout, default: 60s
	CleanColumns   bool          // simplify provider column names
	HTTPClient     *http.Client  // override for tests
}

// Client for querying Alpha Vantage endpoints. Safe for concurrent use.
// Separate clients own separate quota states by construction.
type Client struct {
	baseURL     string
	apiKey      string // your very own secret key
	clean       bool
	registry    *Registry
	quota       *quota
	httpClient  *http.Client
	maxAttempts int
	baseDelay   time.Duration

	// Injection points for tests with a controllable clock.
	sleep func(context.Context, time.Duration) error
}

// NewClient creates a new client and validates the endpoint registry.
// A RegistryIntegrityError here is fatal: the process configuration is
// broken, not the call.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Key == "" {
		return nil, errors.Reason("API key is required")
	}
	registry := NewRegistry()
	if err := registry.Validate(); err != nil {
		return nil, err
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = URL
	}
	perMinute := cfg.QuotaPerMinute
	if perMinute == 0 {
		perMinute = 5
	}
	perDay := cfg.QuotaPerDay
	if perDay == 0 {
		perDay = 500
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	baseDelay := cfg.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if perMinute < 0 {
		perMinute = 0
	}
	if perDay < 0 {
		perDay = 0
	}
	return &Client{
		baseURL:     baseURL,
		apiKey:      cfg.Key,
		clean:       cfg.CleanColumns,
		registry:    registry,
		quota:       newQuota(perMinute, perDay, time.Now),
		httpClient:  httpClient,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		sleep:       sleepContext,
	}, nil
}

// GetClient extracts the Client from the context, if any.
func GetClient(ctx context.Context) *Client {
	c, ok := ctx.Value(clientContextKey).(*Client)
	if !ok {
		return nil
	}
	return c
}

// UseClient injects the client into the context.
func UseClient(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, clientContextKey, c)
}

// Registry returns the (read-only) endpoint registry of the client.
func (c *Client) Registry() *Registry { return c.registry }

// Call invokes the logical function with the given arguments and returns the
// normalized table. The function name is case-insensitive; argument
// validation happens before any network call.
func (c *Client) Call(ctx context.Context, function string, args map[string]string) (*table.Table, error) {
	spec, err := c.registry.Lookup(strings.ToUpper(function))
	if err != nil {
		return nil, err
	}
	req, err := build(spec, args)
	if err != nil {
		return nil, err
	}
	body, err := c.dispatch(ctx, req)
	if err != nil {
		return nil, err
	}
	tbl, err := normalize(spec, body)
	if err != nil {
		return nil, err
	}
	if c.clean {
		cleanColumns(tbl)
	}
	logging.Infof(ctx, "Alpha Vantage: %s returned %d rows, %d columns",
		spec.Function, len(tbl.Rows), tbl.NumColumns())
	return tbl, nil
}

// Call invokes the function using the Client from the context.
func Call(ctx context.Context, function string, args map[string]string) (*table.Table, error) {
	c := GetClient(ctx)
	if c == nil {
		return nil, errors.Reason("no client in context")
	}
	return c.Call(ctx, function, args)
}

// CallRequest is one call of a CallMany batch.
type CallRequest struct {
	Function string
	Args     map[string]string
}

// CallResult is the outcome of one call of a CallMany batch.
type CallResult struct {
	Request CallRequest
	Table   *table.Table
	Err     error
}

type indexedResult struct {
	index  int
	result CallResult
}

// CallMany issues the calls concurrently through the shared quota gate and
// returns the results positionally: results[i] corresponds to reqs[i].
func (c *Client) CallMany(ctx context.Context, reqs []CallRequest) []CallResult {
	indices := make([]int, len(reqs))
	for i := range indices {
		indices[i] = i
	}
	f := func(i int) indexedResult {
		tbl, err := c.Call(ctx, reqs[i].Function, reqs[i].Args)
		return indexedResult{index: i, result: CallResult{
			Request: reqs[i], Table: tbl, Err: err}}
	}
	pm := iterator.ParallelMap(ctx, 2*runtime.NumCPU(), iterator.FromSlice(indices), f)
	return iterator.Reduce[indexedResult, []CallResult](
		pm, make([]CallResult, len(reqs)),
		func(r indexedResult, acc []CallResult) []CallResult {
			acc[r.index] = r.result
			return acc
		})
}

// Convenience wrappers over Call for the common requests. Symbols and
// currency codes are upper-cased as the provider expects.

// Intraday fetches an intraday equity time series, e.g. interval="5min".
func (c *Client) Intraday(ctx context.Context, symbol, interval string) (*table.Table, error) {
	return c.Call(ctx, "TIME_SERIES_INTRADAY", map[string]string{
		"symbol":   strings.ToUpper(symbol),
		"interval": interval,
	})
}

// Daily fetches the daily equity time series.
func (c *Client) Daily(ctx context.Context, symbol string) (*table.Table, error) {
	return c.Call(ctx, "TIME_SERIES_DAILY", map[string]string{
		"symbol": strings.ToUpper(symbol),
	})
}

// Quote fetches the latest quote for the symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*table.Table, error) {
	return c.Call(ctx, "GLOBAL_QUOTE", map[string]string{
		"symbol": strings.ToUpper(symbol),
	})
}

// FX fetches the realtime exchange rate between two currencies.
func (c *Client) FX(ctx context.Context, from, to string) (*table.Table, error) {
	return c.Call(ctx, "CURRENCY_EXCHANGE_RATE", map[string]string{
		"from_currency": strings.ToUpper(from),
		"to_currency":   strings.ToUpper(to),
	})
}

// Sectors fetches the sector performance rankings.
func (c *Client) Sectors(ctx context.Context) (*table.Table, error) {
	return c.Call(ctx, "SECTOR", nil)
}

// Digital fetches the daily digital currency series in the given market.
func (c *Client) Digital(ctx context.Context, symbol, market string) (*table.Table, error) {
	return c.Call(ctx, "DIGITAL_CURRENCY_DAILY", map[string]string{
		"symbol": strings.ToUpper(symbol),
		"market": strings.ToUpper(market),
	})
}

// SymbolSearch fetches the best-matching symbols for the keywords.
func (c *Client) SymbolSearch(ctx context.Context, keywords string) (*table.Table, error) {
	return c.Call(ctx, "SYMBOL_SEARCH", map[string]string{"keywords": keywords})
}

// Overview fetches the company overview for the symbol.
func (c *Client) Overview(ctx context.Context, symbol string) (*table.Table, error) {
	return c.Call(ctx, "OVERVIEW", map[string]string{
		"symbol": strings.ToUpper(symbol),
	})
}
