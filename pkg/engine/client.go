// Package engine provides the public Go SDK for the campaign insights API.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is the public SDK client for the insights API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientConfig holds client configuration.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// NewClient creates a new insights client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8086"
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: hc,
	}, nil
}

// Query is the SQL the engine issued for a question.
type Query struct {
	SQL    string        `json:"sql"`
	Args   []interface{} `json:"args"`
	Inline string        `json:"inline"`
}

// Table is the raw result set.
type Table struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// Answer is the engine's answer to one question.
type Answer struct {
	ID              string          `json:"id"`
	Question        string          `json:"question"`
	Intent          string          `json:"intent"`
	ReportKind      string          `json:"reportKind"`
	Report          string          `json:"report"`
	Query           Query           `json:"query"`
	SummaryKind     string          `json:"summaryKind"`
	Summary         json.RawMessage `json:"summary"`
	Insights        []string        `json:"insights"`
	Recommendations []string        `json:"recommendations"`
	Table           *Table          `json:"table"`
	Ambiguous       []string        `json:"ambiguous,omitempty"`
	QueryError      string          `json:"queryError,omitempty"`
	LatencyMs       int64           `json:"latencyMs"`
}

// HistoryEntry is one previously answered question.
type HistoryEntry struct {
	ID       string    `json:"id"`
	Question string    `json:"question"`
	Intent   string    `json:"intent"`
	SQL      string    `json:"sql"`
	Report   string    `json:"report"`
	At       time.Time `json:"at"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	Detail     string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("insights api: %d %s: %s", e.StatusCode, e.Message, e.Detail)
	}
	return fmt.Sprintf("insights api: %d %s", e.StatusCode, e.Message)
}

// Ask answers a question.
func (c *Client) Ask(ctx context.Context, question string) (*Answer, error) {
	var out Answer
	body := map[string]string{"question": question}
	if err := c.do(ctx, http.MethodPost, "/api/v1/questions", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AskSelection answers a question restricted to the given campaign
// identities. No identities means no campaign filter.
func (c *Client) AskSelection(ctx context.Context, question string, campaigns []string) (*Answer, error) {
	if campaigns == nil {
		campaigns = []string{}
	}
	var out Answer
	body := struct {
		Question  string   `json:"question"`
		Campaigns []string `json:"campaigns"`
	}{question, campaigns}
	if err := c.do(ctx, http.MethodPost, "/api/v1/questions/selection", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MatchingCampaigns lists the campaign identities a question resolves to.
func (c *Client) MatchingCampaigns(ctx context.Context, question string) ([]string, error) {
	var out struct {
		Campaigns []string `json:"campaigns"`
	}
	path := "/api/v1/campaigns/matches?q=" + url.QueryEscape(question)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Campaigns, nil
}

// History returns the server's conversation log, oldest first.
func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	var out struct {
		Entries []HistoryEntry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/history", nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// Ready reports whether the server and its store are up.
func (c *Client) Ready(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/ready", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
