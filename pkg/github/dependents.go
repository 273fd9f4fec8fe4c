package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/shpitdev/dependents-outreach/pkg/httperr"
)

// Dependent is one repository listed on a dependency-graph page.
type Dependent struct {
	Owner string
	Repo  string
}

// FullName returns "owner/repo".
func (d Dependent) FullName() string { return d.Owner + "/" + d.Repo }

// DependentsPage is one parsed page of /{owner}/{repo}/network/dependents.
type DependentsPage struct {
	URL        string
	Dependents []Dependent

	// Next is the absolute URL of the following page, or "" on the last page.
	Next string
}

// DependentsURL returns the first dependents page for a repository.
func (c *Client) DependentsURL(owner, name string) (string, error) {
	owner = strings.TrimSpace(owner)
	name = strings.TrimSpace(name)
	if owner == "" || name == "" || strings.ContainsAny(owner+name, "/?#") {
		return "", fmt.Errorf("invalid repository %s/%s", owner, name)
	}
	u := c.webBaseURL.ResolveReference(&url.URL{Path: owner + "/" + name + "/network/dependents"})
	return u.String(), nil
}

// DependentsPage fetches and parses one dependents page.
//
// The page URL must live on the configured web host; pagination links that
// point elsewhere are dropped.
func (c *Client) DependentsPage(ctx context.Context, pageURL string) (DependentsPage, error) {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return DependentsPage{}, fmt.Errorf("parse dependents page url: %w", err)
	}
	if !strings.EqualFold(u.Host, c.webBaseURL.Host) {
		return DependentsPage{}, fmt.Errorf("dependents page %q is not on %s", pageURL, c.webBaseURL.Host)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return DependentsPage{}, err
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return DependentsPage{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return DependentsPage{}, httperr.New("github", "dependents", resp, b)
	}

	page, err := ParseDependents(io.LimitReader(resp.Body, maxBodyBytes), u)
	if err != nil {
		return DependentsPage{}, err
	}
	if page.Next != "" {
		next, err := url.Parse(page.Next)
		if err != nil || !strings.EqualFold(next.Host, c.webBaseURL.Host) {
			page.Next = ""
		}
	}
	return page, nil
}

// ParseDependents extracts dependent repositories and the "Next" link from a
// dependents page. Rows are div.Box-row elements holding a repository
// hovercard link ("/owner/repo"); pagination lives in div.paginate-container.
func ParseDependents(r io.Reader, pageURL *url.URL) (DependentsPage, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return DependentsPage{}, fmt.Errorf("parse dependents html: %w", err)
	}

	page := DependentsPage{}
	if pageURL != nil {
		page.URL = pageURL.String()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" {
			switch {
			case hasClass(n, "Box-row"):
				if d, ok := parseRow(n); ok {
					page.Dependents = append(page.Dependents, d)
				}
				return
			case hasClass(n, "paginate-container"):
				if href := nextHref(n); href != "" && page.Next == "" {
					page.Next = resolveHref(pageURL, href)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return page, nil
}

func parseRow(row *html.Node) (Dependent, bool) {
	repoLink := findFirst(row, func(n *html.Node) bool {
		return n.Data == "a" && attr(n, "data-hovercard-type") == "repository"
	})
	if repoLink == nil {
		return Dependent{}, false
	}

	// Prefer the href ("/owner/repo"); fall back to the owner + repo link texts.
	if owner, name, ok := splitRepoHref(attr(repoLink, "href")); ok {
		return Dependent{Owner: owner, Repo: name}, true
	}
	ownerLink := findFirst(row, func(n *html.Node) bool {
		if n.Data != "a" {
			return false
		}
		t := attr(n, "data-hovercard-type")
		return t == "user" || t == "organization"
	})
	if ownerLink == nil {
		return Dependent{}, false
	}
	owner := strings.TrimSpace(textOf(ownerLink))
	name := strings.TrimSpace(textOf(repoLink))
	if owner == "" || name == "" {
		return Dependent{}, false
	}
	return Dependent{Owner: owner, Repo: name}, true
}

func splitRepoHref(href string) (string, string, bool) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func nextHref(container *html.Node) string {
	link := findFirst(container, func(n *html.Node) bool {
		return n.Data == "a" && strings.EqualFold(strings.TrimSpace(textOf(n)), "next")
	})
	if link == nil {
		return ""
	}
	return strings.TrimSpace(attr(link, "href"))
}

func resolveHref(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return c
		}
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
