// Package mem0 is a small client for the hosted mem0 memory API.
package mem0

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

	"github.com/shpitdev/dependents-outreach/pkg/httperr"
)

const (
	DefaultBaseURL = "https://api.mem0.ai"

	defaultTimeout = 60 * time.Second
	maxBodyBytes   = 4 << 20
)

// Message is one chat-style entry stored as memory.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Memory is a stored memory returned by search.
type Memory struct {
	ID     string  `json:"id"`
	Memory string  `json:"memory"`
	UserID string  `json:"user_id,omitempty"`
	Score  float64 `json:"score,omitempty"`
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse mem0 base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("mem0 base URL must include a host (got %q)", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/"

	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, fmt.Errorf("mem0 api key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{baseURL: u, apiKey: key, http: &http.Client{Timeout: timeout}}, nil
}

type addRequest struct {
	Messages []Message `json:"messages"`
	UserID   string    `json:"user_id"`
	Infer    bool      `json:"infer"`
	Version  string    `json:"version"`
}

// Add stores messages for userID verbatim (inference disabled).
func (c *Client) Add(ctx context.Context, userID string, messages []Message) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("mem0 add: user id is required")
	}
	body := addRequest{Messages: messages, UserID: userID, Infer: false, Version: "v2"}
	return c.post(ctx, "add", "v1/memories/", body, nil)
}

type searchRequest struct {
	Query   string         `json:"query"`
	Filters map[string]any `json:"filters"`
	TopK    int            `json:"top_k,omitempty"`
}

// Search returns memories of userID ranked against query.
func (c *Client) Search(ctx context.Context, userID, query string, topK int) ([]Memory, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("mem0 search: user id is required")
	}
	body := searchRequest{
		Query:   query,
		Filters: map[string]any{"user_id": userID},
		TopK:    topK,
	}
	var out searchResponse
	if err := c.post(ctx, "search", "v2/memories/search/", body, &out); err != nil {
		return nil, err
	}
	return out.Memories, nil
}

// searchResponse accepts both the bare-array and {"results": [...]} shapes.
type searchResponse struct {
	Memories []Memory
}

func (s *searchResponse) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &s.Memories)
	}
	var env struct {
		Results  []Memory `json:"results"`
		Memories []Memory `json:"memories"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return err
	}
	s.Memories = env.Results
	if len(s.Memories) == 0 {
		s.Memories = env.Memories
	}
	return nil
}

func (c *Client) post(ctx context.Context, op, p string, in any, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	u := c.baseURL.ResolveReference(&url.URL{Path: p})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return httperr.New("mem0", op, resp, b)
	}
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("parse mem0 %s response: %w", op, err)
	}
	return nil
}
