// Package ciq implements the S&P Global Market Intelligence
// (Capital IQ) clientservice API: token authentication, batched data
// requests, and response flattening into Row records.
package ciq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/decksmithhq/decksmith/internal/common"
	"github.com/decksmithhq/decksmith/internal/config"
)

const (
	authPath    = "/gdsapi/rest/authenticate/api/v1/token"
	refreshPath = authPath + "/refresh"
	dataPath    = "/gdsapi/rest/v3/clientservice.json"

	// batchSize is the maximum number of input requests per POST.
	batchSize = 100

	// maxResponseSize bounds a clientservice response body (8MB).
	maxResponseSize = 8 << 20
)

// ErrNotConfigured is returned when credentials are missing.
var ErrNotConfigured = errors.New("ciq credentials not configured")

// Client communicates with the CIQ REST API.
type Client struct {
	cfg        *config.CIQConfig
	logger     *common.Logger
	httpClient *http.Client

	mu  sync.Mutex
	tok token
}

// NewClient creates a client bound to the given credential config.
// The config pointer is shared with the Config page, so credential
// updates take effect on the next call.
func NewClient(cfg *config.CIQConfig, logger *common.Logger) *Client {
	return &Client{
		cfg:        cfg,
		logger:     logger,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Authenticate obtains a fresh bearer token with the configured
// credentials, replacing any cached token.
func (c *Client) Authenticate(ctx context.Context) error {
	if !c.cfg.Configured() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(authRequest{
		Username: c.cfg.Username,
		Password: c.cfg.Password,
	})
	if err != nil {
		return err
	}

	tok, err := c.postToken(ctx, c.cfg.BaseURL+authPath, body)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.tok = tok
	c.mu.Unlock()
	return nil
}

// TestConnection validates the configured credentials against the token
// endpoint. The obtained token is kept for subsequent calls.
func (c *Client) TestConnection(ctx context.Context) error {
	c.mu.Lock()
	c.tok = token{}
	c.mu.Unlock()
	return c.Authenticate(ctx)
}

// postToken posts a token request and parses the bearer pair.
func (c *Client) postToken(ctx context.Context, url string, body []byte) (token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return token{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return token{}, fmt.Errorf("failed to reach CIQ API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return token{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return token{}, fmt.Errorf("authentication rejected (%d): check username and password", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return token{}, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(respBody))
	}

	var auth authResponse
	if err := json.Unmarshal(respBody, &auth); err != nil {
		return token{}, fmt.Errorf("failed to parse token response: %w", err)
	}
	if auth.AccessToken == "" {
		return token{}, fmt.Errorf("token endpoint returned no access token")
	}

	ttl := time.Duration(auth.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 55 * time.Minute
	}

	return token{
		access:  auth.AccessToken,
		refresh: auth.RefreshToken,
		expires: time.Now().Add(ttl),
	}, nil
}

// ensureToken returns a valid access token, refreshing or
// re-authenticating as needed.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	tok := c.tok
	c.mu.Unlock()

	if tok.valid(time.Now()) {
		return tok.access, nil
	}

	if tok.refresh != "" {
		body, _ := json.Marshal(map[string]string{"refresh_token": tok.refresh})
		refreshed, err := c.postToken(ctx, c.cfg.BaseURL+refreshPath, body)
		if err == nil {
			c.mu.Lock()
			c.tok = refreshed
			c.mu.Unlock()
			return refreshed.access, nil
		}
		c.logger.Debug().Str("error", err.Error()).Msg("token refresh failed, re-authenticating")
	}

	if err := c.Authenticate(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	access := c.tok.access
	c.mu.Unlock()
	return access, nil
}

// FetchFinancials retrieves the given mnemonics for a ticker over the
// last `years` fiscal years and flattens them into Rows ordered by
// metric then year. Empty mnemonics default to the full supported set.
func (c *Client) FetchFinancials(ctx context.Context, ticker string, mnemonics []string, years int) ([]Row, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	if years < 1 {
		years = 1
	}
	if years > 10 {
		years = 10
	}
	if len(mnemonics) == 0 {
		mnemonics = KnownMnemonics()
	}

	requests := buildRequests(ticker, mnemonics, years)

	var responses []sdkResponse
	for start := 0; start < len(requests); start += batchSize {
		end := start + batchSize
		if end > len(requests) {
			end = len(requests)
		}
		chunk, err := c.doData(ctx, requests[start:end])
		if err != nil {
			return nil, err
		}
		responses = append(responses, chunk...)
	}

	rows, errs := c.parseResponses(ticker, responses)
	if len(rows) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("no data returned for %s: %w", ticker, errors.Join(errs...))
	}
	for _, err := range errs {
		c.logger.Warn().Str("ticker", ticker).Str("error", err.Error()).Msg("partial CIQ response")
	}

	sortRows(rows)
	return rows, nil
}

// buildRequests expands (mnemonic x year-offset) into input requests.
func buildRequests(ticker string, mnemonics []string, years int) []inputRequest {
	requests := make([]inputRequest, 0, len(mnemonics)*years)
	for _, m := range mnemonics {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "" {
			continue
		}
		for offset := 0; offset < years; offset++ {
			requests = append(requests, inputRequest{
				Function:   FunctionPoint,
				Identifier: ticker,
				Mnemonic:   m,
				Properties: map[string]string{"periodType": periodType(offset)},
			})
		}
	}
	return requests
}

// doData posts one batch to clientservice.json, re-authenticating once
// on a 401.
func (c *Client) doData(ctx context.Context, requests []inputRequest) ([]sdkResponse, error) {
	body, err := json.Marshal(clientServiceRequest{InputRequests: requests})
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		access, err := c.ensureToken(ctx)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+dataPath, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+access)
		if c.cfg.APIKey != "" {
			req.Header.Set("apikey", c.cfg.APIKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to reach CIQ API: %w", err)
		}

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			// Token expired server-side; force one re-authentication.
			c.mu.Lock()
			c.tok = token{}
			c.mu.Unlock()
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("CIQ API returned %d: %s", resp.StatusCode, truncate(string(respBody), 300))
		}

		var parsed clientServiceResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse CIQ response: %w", err)
		}
		return parsed.Responses, nil
	}
}

// parseResponses flattens sdk responses into rows, collecting hard
// errors and silently skipping unavailable data points.
func (c *Client) parseResponses(ticker string, responses []sdkResponse) ([]Row, []error) {
	now := time.Now()
	var rows []Row
	var errs []error

	for _, r := range responses {
		if r.ErrMsg != "" {
			if isUnavailable(r.ErrMsg) {
				c.logger.Debug().
					Str("ticker", ticker).
					Str("mnemonic", r.Mnemonic).
					Msg("data unavailable")
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %s", r.Mnemonic, r.ErrMsg))
			continue
		}
		if len(r.Rows) == 0 || len(r.Rows[0].Row) == 0 {
			continue
		}

		raw := strings.TrimSpace(r.Rows[0].Row[0])
		value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil {
			// Non-numeric cells ("Data Unavailable", "NM") are skipped.
			continue
		}

		period := ""
		for k, v := range r.Properties {
			if strings.EqualFold(k, "periodType") {
				period = v
				break
			}
		}

		rows = append(rows, Row{
			Ticker:   strings.TrimSuffix(strings.ToUpper(r.Identifier), ":"),
			Mnemonic: strings.ToUpper(r.Mnemonic),
			Metric:   MetricName(r.Mnemonic),
			Year:     resolveYear(period, now),
			Value:    normalizeValue(r.Mnemonic, value),
			Currency: "USD",
		})
	}

	return rows, errs
}

// isUnavailable matches error messages that mean "no data", not "request failed".
func isUnavailable(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "data unavailable") || strings.Contains(m, "no data")
}

// sortRows orders rows by metric presentation order, then year ascending.
func sortRows(rows []Row) {
	rank := make(map[string]int, len(metricOrder))
	for i, m := range metricOrder {
		rank[m] = i
	}
	sort.SliceStable(rows, func(i, j int) bool {
		ri, iOK := rank[rows[i].Mnemonic]
		rj, jOK := rank[rows[j].Mnemonic]
		if !iOK {
			ri = len(metricOrder)
		}
		if !jOK {
			rj = len(metricOrder)
		}
		if ri != rj {
			return ri < rj
		}
		if rows[i].Metric != rows[j].Metric {
			return rows[i].Metric < rows[j].Metric
		}
		return rows[i].Year < rows[j].Year
	})
}

// SeriesFromRows groups rows into per-metric series ordered by year.
// Input order decides series order, so sorted rows yield presentation
// order.
func SeriesFromRows(rows []Row) []Series {
	index := map[string]int{}
	var series []Series

	for _, row := range rows {
		i, ok := index[row.Metric]
		if !ok {
			i = len(series)
			index[row.Metric] = i
			series = append(series, Series{Metric: row.Metric})
		}
		series[i].Years = append(series[i].Years, row.Year)
		series[i].Values = append(series[i].Values, row.Value)
	}

	for i := range series {
		s := &series[i]
		order := make([]int, len(s.Years))
		for j := range order {
			order[j] = j
		}
		sort.SliceStable(order, func(a, b int) bool {
			return s.Years[order[a]] < s.Years[order[b]]
		})
		years := make([]int, len(s.Years))
		values := make([]float64, len(s.Values))
		for j, k := range order {
			years[j] = s.Years[k]
			values[j] = s.Values[k]
		}
		s.Years = years
		s.Values = values
	}

	return series
}

// truncate shortens long bodies for error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
