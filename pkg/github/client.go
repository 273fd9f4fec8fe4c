// Package github is a minimal client for the GitHub surfaces the outreach
// pipeline reads: the REST API (users, repos, commits, readme) and the
// dependency-graph "dependents" web pages.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shpitdev/dependents-outreach/pkg/httperr"
)

const (
	DefaultAPIBaseURL = "https://api.github.com"
	DefaultWebBaseURL = "https://github.com"

	defaultUserAgent = "dependents-outreach"
	defaultTimeout   = 60 * time.Second

	// maxBodyBytes bounds how much of a response body is read into memory.
	maxBodyBytes = 4 << 20
)

// Config configures a Client. Only Token is commonly set; the base URLs exist
// for GitHub Enterprise and for tests against a mock upstream.
type Config struct {
	APIBaseURL string
	WebBaseURL string
	Token      string
	UserAgent  string
	Timeout    time.Duration
}

// Client is a minimal HTTP client for the GitHub endpoints used by this module.
type Client struct {
	apiBaseURL *url.URL
	webBaseURL *url.URL
	token      string
	userAgent  string
	http       *http.Client
}

// NewClient constructs a client. Empty base URLs fall back to github.com.
func NewClient(cfg Config) (*Client, error) {
	apiRaw := strings.TrimSpace(cfg.APIBaseURL)
	if apiRaw == "" {
		apiRaw = DefaultAPIBaseURL
	}
	webRaw := strings.TrimSpace(cfg.WebBaseURL)
	if webRaw == "" {
		webRaw = DefaultWebBaseURL
	}
	apiBase, err := parseBaseURL(apiRaw, "github api")
	if err != nil {
		return nil, err
	}
	webBase, err := parseBaseURL(webRaw, "github web")
	if err != nil {
		return nil, err
	}

	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiBaseURL: apiBase,
		webBaseURL: webBase,
		token:      strings.TrimSpace(cfg.Token),
		userAgent:  ua,
		http:       &http.Client{Timeout: timeout},
	}, nil
}

func parseBaseURL(raw string, name string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s base URL: %w", name, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s base URL must include a host (got %q)", name, raw)
	}
	// Ensure the base path ends with a slash so ResolveReference treats it as a directory.
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func (c *Client) resolveAPI(p string, q url.Values) *url.URL {
	u := c.apiBaseURL.ResolveReference(&url.URL{Path: strings.TrimLeft(p, "/")})
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u
}

// getJSON issues an authenticated REST GET and decodes a 2xx body into out.
func (c *Client) getJSON(ctx context.Context, op string, u *url.URL, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

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
		return httperr.New("github", op, resp, b)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("parse %s response: %w", op, err)
	}
	return nil
}

// User fetches a public profile by login.
func (c *Client) User(ctx context.Context, login string) (User, error) {
	login = strings.TrimSpace(login)
	if login == "" || strings.ContainsAny(login, "/?#") {
		return User{}, fmt.Errorf("invalid login %q", login)
	}
	var out User
	if err := c.getJSON(ctx, "getUser", c.resolveAPI("users/"+login, nil), &out); err != nil {
		return User{}, err
	}
	return out, nil
}

// Repo fetches repository metadata by owner and name.
func (c *Client) Repo(ctx context.Context, owner, name string) (Repo, error) {
	p, err := repoPath(owner, name)
	if err != nil {
		return Repo{}, err
	}
	var out Repo
	if err := c.getJSON(ctx, "getRepo", c.resolveAPI(p, nil), &out); err != nil {
		return Repo{}, err
	}
	return out, nil
}

// Commits lists the most recent commits on the default branch.
func (c *Client) Commits(ctx context.Context, owner, name string, perPage int) ([]Commit, error) {
	p, err := repoPath(owner, name)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}
	var out []Commit
	if err := c.getJSON(ctx, "listCommits", c.resolveAPI(p+"/commits", q), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Readme returns the decoded README of a repository.
func (c *Client) Readme(ctx context.Context, owner, name string) (string, error) {
	p, err := repoPath(owner, name)
	if err != nil {
		return "", err
	}
	var out readmeResponse
	if err := c.getJSON(ctx, "getReadme", c.resolveAPI(p+"/readme", nil), &out); err != nil {
		return "", err
	}
	if !strings.EqualFold(strings.TrimSpace(out.Encoding), "base64") {
		return out.Content, nil
	}
	raw := strings.NewReplacer("\n", "", "\r", "").Replace(out.Content)
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("decode readme: %w", err)
	}
	return string(b), nil
}

func repoPath(owner, name string) (string, error) {
	owner = strings.TrimSpace(owner)
	name = strings.TrimSpace(name)
	if owner == "" || name == "" {
		return "", fmt.Errorf("owner and repo name are required")
	}
	if strings.ContainsAny(owner+name, "/?#") || owner == ".." || name == ".." {
		return "", fmt.Errorf("invalid repository %s/%s", owner, name)
	}
	return "repos/" + owner + "/" + name, nil
}

// SplitFullName splits "owner/repo" into its parts.
func SplitFullName(fullName string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(fullName), "/")
	owner = strings.TrimSpace(owner)
	name = strings.TrimSpace(name)
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository %q: use 'owner/repo'", fullName)
	}
	return owner, name, nil
}
