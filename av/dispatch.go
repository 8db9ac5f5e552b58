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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	"golang.org/x/exp/rand"
)

// rawResponse is the transport result handed to the normalizer.
type rawResponse struct {
	status int
	body   []byte
}

// sleepContext waits for the duration or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// acquireQuota blocks cooperatively while the per-minute window is full, and
// fails fast with QuotaExhaustedError on the daily ceiling. The quota
// counters are incremented only when permission is granted, immediately
// before the network call, so abandoning the wait never corrupts the state.
func (c *Client) acquireQuota(ctx context.Context) error {
	for {
		wait, err := c.quota.acquire()
		if err != nil {
			return err
		}
		if wait <= 0 {
			return nil
		}
		logging.Debugf(ctx, "Alpha Vantage: per-minute quota reached, waiting %s", wait)
		if err := c.sleep(ctx, wait); err != nil {
			return errors.Annotate(err, "cancelled while waiting for quota")
		}
	}
}

// retryDelay computes the jittered exponential backoff delay for the n'th
// retry (n starts at 0): uniformly in [base*2^n / 2, base*2^n].
func (c *Client) retryDelay(n int) time.Duration {
	d := c.baseDelay << uint(n)
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

// transientStatus reports whether the HTTP status indicates a transient
// failure worth retrying: a server-side error or a bare 429 throttle.
func transientStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

// providerMessage extracts a provider-formatted error payload, if present.
// The provider reports invalid calls and rate limit notes in the body, often
// with a 200 status, under one of a few well-known top-level keys.
func providerMessage(body []byte) (string, bool) {
	var m struct {
		ErrorMessage string `json:"Error Message"`
		Note         string `json:"Note"`
		Information  string `json:"Information"`
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return "", false
	}
	switch {
	case m.ErrorMessage != "":
		return m.ErrorMessage, true
	case m.Note != "":
		return m.Note, true
	case m.Information != "":
		return m.Information, true
	}
	return "", false
}

// redactKey scrubs the API key from an error's text. Transport errors embed
// the full request URL, which includes the key.
func (c *Client) redactKey(err error) error {
	if err == nil || c.apiKey == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, c.apiKey) {
		return err
	}
	return errors.Reason("%s", strings.ReplaceAll(msg, c.apiKey, "[REDACTED]"))
}

// get performs a single HTTP GET of the request with the key appended last.
func (c *Client) get(ctx context.Context, r *Request) (*rawResponse, error) {
	uri := c.baseURL + "?" + r.encode(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, c.redactKey(err)
	}
	logging.Debugf(ctx, "Alpha Vantage: GET %s?%s", c.baseURL, r)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.redactKey(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.redactKey(err)
	}
	return &rawResponse{status: resp.StatusCode, body: body}, nil
}

// dispatch sends the request through the quota gate and returns the raw
// response body. Transient transport failures (network errors, 5xx) are
// retried with jittered exponential backoff up to the configured number of
// attempts; each attempt re-acquires the quota. Provider-formatted error
// payloads surface immediately as ProviderError and are never retried.
func (c *Client) dispatch(ctx context.Context, r *Request) ([]byte, error) {
	var last error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay(attempt - 1)
			logging.Debugf(ctx, "Alpha Vantage: %s failed transiently, retry %d in %s: %s",
				r.Function(), attempt, delay, last)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, errors.Annotate(err, "cancelled while waiting to retry")
			}
		}
		if err := c.acquireQuota(ctx); err != nil {
			return nil, err
		}
		resp, err := c.get(ctx, r)
		if err != nil {
			last = err
			continue
		}
		if transientStatus(resp.status) {
			last = errors.Reason("HTTP %d from provider", resp.status)
			continue
		}
		if msg, ok := providerMessage(resp.body); ok {
			return nil, &ProviderError{Function: r.Function(), Message: msg}
		}
		if resp.status < 200 || resp.status >= 300 {
			return nil, &ProviderError{
				Function: r.Function(),
				Message:  fmt.Sprintf("HTTP %d %s", resp.status, http.StatusText(resp.status))}
		}
		return resp.body, nil
	}
	return nil, &TransportError{
		Function: r.Function(), Attempts: c.maxAttempts, Last: last}
}
