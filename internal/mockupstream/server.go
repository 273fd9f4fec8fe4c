// Package mockupstream serves the upstream surfaces the outreach pipeline
// talks to (GitHub web + REST, mem0, Gemini generateContent) from in-memory
// fixtures, for tests and local harness runs.
package mockupstream

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Call records a request made to the mock service.
type Call struct {
	Method string
	Path   string
}

// User is a GitHub profile fixture.
type User struct {
	Login    string
	Name     string
	Email    string
	Bio      string
	Company  string
	Location string
	Blog     string
	Type     string
}

// Repo is a GitHub repository fixture.
type Repo struct {
	FullName    string
	Description string
	Stars       int
	Language    string
	Topics      []string
	Homepage    string
	Readme      string
	// CommitEmails are returned, newest first, as commit author emails.
	CommitEmails []string
}

// Server implements the mock upstreams.
type Server struct {
	mu    sync.Mutex
	calls []Call

	users      map[string]User
	repos      map[string]Repo
	dependents map[string][]string
	pageSize   int

	userFailures map[string]int
	pageFailures map[string]int

	memories     map[string][]string
	mem0Status   int
	geminiStatus int

	expectedGitHubAuth string
	expectedMem0Auth   string
}

// New constructs an empty mock server.
func New() *Server {
	return &Server{
		users:        make(map[string]User),
		repos:        make(map[string]Repo),
		dependents:   make(map[string][]string),
		pageSize:     30,
		userFailures: make(map[string]int),
		pageFailures: make(map[string]int),
		memories:     make(map[string][]string),
	}
}

func key(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// AddUser registers a profile.
func (s *Server) AddUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Type == "" {
		u.Type = "User"
	}
	s.users[key(u.Login)] = u
}

// AddRepo registers a repository.
func (s *Server) AddRepo(r Repo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repos[key(r.FullName)] = r
}

// SetDependents sets the dependents listed for target, as "owner/repo" values.
func (s *Server) SetDependents(target string, deps ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dependents[key(target)] = append([]string(nil), deps...)
}

// SetPageSize sets how many dependents are rendered per page.
func (s *Server) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.pageSize = n
	}
}

// FailUser makes GET /users/{login} answer with status.
func (s *Server) FailUser(login string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userFailures[key(login)] = status
}

// FailDependentsPage makes the given 1-based dependents page of target answer with status.
func (s *Server) FailDependentsPage(target string, page int, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageFailures[key(target)+"#"+strconv.Itoa(page)] = status
}

// FailMem0 makes every mem0 call answer with status; 0 restores normal behavior.
func (s *Server) FailMem0(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mem0Status = status
}

// FailGemini makes every generateContent call answer with status; 0 restores normal behavior.
func (s *Server) FailGemini(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.geminiStatus = status
}

// RequireGitHubToken enforces "Authorization: Bearer <token>" on REST calls.
func (s *Server) RequireGitHubToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(token) == "" {
		s.expectedGitHubAuth = ""
		return
	}
	s.expectedGitHubAuth = "Bearer " + strings.TrimSpace(token)
}

// RequireMem0Key enforces "Authorization: Token <key>" on mem0 calls.
func (s *Server) RequireMem0Key(apiKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(apiKey) == "" {
		s.expectedMem0Auth = ""
		return
	}
	s.expectedMem0Auth = "Token " + strings.TrimSpace(apiKey)
}

// Memories returns the stored memory texts for userID.
func (s *Server) Memories(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.memories[userID]...)
}

// Calls returns a snapshot of calls made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Handler returns an http.Handler that serves the mock API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Get("/{owner}/{repo}/network/dependents", s.handleDependents)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth(func() string { return s.expectedGitHubAuth }))
		r.Get("/users/{login}", s.handleUser)
		r.Get("/repos/{owner}/{repo}", s.handleRepo)
		r.Get("/repos/{owner}/{repo}/commits", s.handleCommits)
		r.Get("/repos/{owner}/{repo}/readme", s.handleReadme)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth(func() string { return s.expectedMem0Auth }))
		r.Post("/v1/memories/", s.handleMem0Add)
		r.Post("/v2/memories/search/", s.handleMem0Search)
	})

	r.Post("/v1beta/models/*", s.handleGenerateContent)
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(expected func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			want := expected()
			s.mu.Unlock()
			if want != "" && r.Header.Get("Authorization") != want {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) handleDependents(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "repo")
	page := 1
	if v := r.URL.Query().Get("dependents_after"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "bad cursor", http.StatusBadRequest)
			return
		}
		page = n + 1
	}

	s.mu.Lock()
	deps, ok := s.dependents[key(target)]
	status := s.pageFailures[key(target)+"#"+strconv.Itoa(page)]
	size := s.pageSize
	s.mu.Unlock()

	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if !ok {
		if _, repoOK := s.lookupRepo(target); !repoOK {
			http.NotFound(w, r)
			return
		}
	}

	start := (page - 1) * size
	if start > len(deps) {
		start = len(deps)
	}
	end := start + size
	if end > len(deps) {
		end = len(deps)
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><body><div id=\"dependents\"><div class=\"Box\">\n")
	for _, d := range deps[start:end] {
		owner, name, _ := strings.Cut(d, "/")
		fmt.Fprintf(&b, `<div class="Box-row d-flex flex-items-center" data-test-id="dg-repo-pkg-dependent">
  <span class="f5 color-fg-muted">
    <a data-hovercard-type="user" data-repository-hovercards-enabled="" href="/%s">%s</a> /
    <a class="text-bold" data-hovercard-type="repository" href="/%s/%s">%s</a>
  </span>
</div>
`, html.EscapeString(owner), html.EscapeString(owner), html.EscapeString(owner), html.EscapeString(name), html.EscapeString(name))
	}
	b.WriteString("</div>\n<div class=\"paginate-container\"><div class=\"BtnGroup\">")
	if page > 1 {
		b.WriteString(`<a class="btn BtnGroup-item" href="?">Previous</a>`)
	} else {
		b.WriteString(`<button class="btn BtnGroup-item" disabled>Previous</button>`)
	}
	if end < len(deps) {
		fmt.Fprintf(&b, `<a class="btn BtnGroup-item" href="/%s/network/dependents?dependents_after=%d">Next</a>`, html.EscapeString(target), page)
	} else {
		b.WriteString(`<button class="btn BtnGroup-item" disabled>Next</button>`)
	}
	b.WriteString("</div></div></div></body></html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, b.String())
}

func (s *Server) lookupRepo(fullName string) (Repo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repos[key(fullName)]
	return r, ok
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	login := chi.URLParam(r, "login")
	s.mu.Lock()
	u, ok := s.users[key(login)]
	status := s.userFailures[key(login)]
	s.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"login":    u.Login,
		"type":     u.Type,
		"name":     nullable(u.Name),
		"email":    nullable(u.Email),
		"bio":      nullable(u.Bio),
		"company":  nullable(u.Company),
		"location": nullable(u.Location),
		"blog":     u.Blog,
		"html_url": "https://github.com/" + u.Login,
	})
}

func (s *Server) repoFromRequest(w http.ResponseWriter, r *http.Request) (Repo, bool) {
	full := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "repo")
	repo, ok := s.lookupRepo(full)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return Repo{}, false
	}
	return repo, true
}

func (s *Server) handleRepo(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.repoFromRequest(w, r)
	if !ok {
		return
	}
	topics := repo.Topics
	if topics == nil {
		topics = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"full_name":        repo.FullName,
		"description":      nullable(repo.Description),
		"stargazers_count": repo.Stars,
		"language":         nullable(repo.Language),
		"topics":           topics,
		"homepage":         nullable(repo.Homepage),
		"html_url":         "https://github.com/" + repo.FullName,
	})
}

func (s *Server) handleCommits(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.repoFromRequest(w, r)
	if !ok {
		return
	}
	out := make([]map[string]any, 0, len(repo.CommitEmails))
	for i, email := range repo.CommitEmails {
		out = append(out, map[string]any{
			"sha": fmt.Sprintf("%040d", i+1),
			"commit": map[string]any{
				"author":  map[string]string{"name": "committer", "email": email},
				"message": "commit " + strconv.Itoa(i+1),
			},
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReadme(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.repoFromRequest(w, r)
	if !ok {
		return
	}
	if repo.Readme == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"name":     "README.md",
		"encoding": "base64",
		"content":  base64.StdEncoding.EncodeToString([]byte(repo.Readme)),
	})
}

func (s *Server) mem0Failure(w http.ResponseWriter) bool {
	s.mu.Lock()
	status := s.mem0Status
	s.mu.Unlock()
	if status == 0 {
		return false
	}
	writeJSON(w, status, map[string]string{"detail": http.StatusText(status)})
	return true
}

func (s *Server) handleMem0Add(w http.ResponseWriter, r *http.Request) {
	if s.mem0Failure(w) {
		return
	}
	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "user_id and messages are required"})
		return
	}

	out := make([]map[string]string, 0, len(req.Messages))
	s.mu.Lock()
	for _, m := range req.Messages {
		s.memories[req.UserID] = append(s.memories[req.UserID], m.Content)
		out = append(out, map[string]string{
			"id":     fmt.Sprintf("mem-%d", len(s.memories[req.UserID])),
			"memory": m.Content,
			"event":  "ADD",
		})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMem0Search(w http.ResponseWriter, r *http.Request) {
	if s.mem0Failure(w) {
		return
	}
	var req struct {
		Query   string         `json:"query"`
		Filters map[string]any `json:"filters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid body"})
		return
	}
	userID, _ := req.Filters["user_id"].(string)

	s.mu.Lock()
	texts := append([]string(nil), s.memories[userID]...)
	s.mu.Unlock()

	out := make([]map[string]any, 0, len(texts))
	for i, t := range texts {
		out = append(out, map[string]any{
			"id":      fmt.Sprintf("mem-%d", i+1),
			"memory":  t,
			"user_id": userID,
			"score":   1.0,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGenerateContent answers Gemini generateContent calls. Structured
// (JSON) requests get a deterministic {subject, body}; plain requests get a
// short feature list.
func (s *Server) handleGenerateContent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := s.geminiStatus
	s.mu.Unlock()
	if status != 0 {
		writeJSON(w, status, map[string]any{"error": map[string]any{"code": status, "message": http.StatusText(status), "status": "UNAVAILABLE"}})
		return
	}
	if !strings.HasSuffix(r.URL.Path, ":generateContent") {
		http.NotFound(w, r)
		return
	}

	var req struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
		GenerationConfig struct {
			ResponseMIMEType string `json:"responseMimeType"`
		} `json:"generationConfig"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"code": 400, "message": "invalid body"}})
		return
	}
	var prompt strings.Builder
	for _, c := range req.Contents {
		for _, p := range c.Parts {
			prompt.WriteString(p.Text)
		}
	}

	text := "- Persistent memory for AI agents\n- Simple REST API"
	if req.GenerationConfig.ResponseMIMEType == "application/json" {
		b, _ := json.Marshal(map[string]string{
			"subject": "Thanks for building with us",
			"body":    "Hi there,\n\nThanks for using our project. " + firstLine(prompt.String()) + "\n\nFeel free to reach out with any questions or feedback.",
		})
		text = string(b)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"role":  "model",
				"parts": []map[string]string{{"text": text}},
			},
			"finishReason": "STOP",
		}},
		"modelVersion": "mock",
	})
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// Seed loads a small demo dataset: target "mem0ai/mem0" with three
// dependents, one of which has no reachable email.
func (s *Server) Seed() {
	s.AddRepo(Repo{
		FullName:    "mem0ai/mem0",
		Description: "The memory layer for AI agents",
		Stars:       25000,
		Language:    "Python",
		Topics:      []string{"ai", "memory"},
		Homepage:    "https://mem0.ai",
		Readme:      "# mem0\n\nPersistent memory for AI agents.\n",
	})
	s.AddUser(User{Login: "alice", Name: "Alice Liddell", Email: "alice@example.com", Company: "Wonderland Labs"})
	s.AddRepo(Repo{FullName: "alice/agent", Description: "A chat agent", Stars: 12, Language: "Python", Topics: []string{"chatbot"}})
	s.AddUser(User{Login: "bob"})
	s.AddRepo(Repo{FullName: "bob/notes", Description: "Notes app", Language: "TypeScript", CommitEmails: []string{"bob@users.noreply.github.com", "bob@example.org"}})
	s.AddUser(User{Login: "carol", Name: "Carol"})
	s.AddRepo(Repo{FullName: "carol/private", CommitEmails: []string{"1+carol@users.noreply.github.com"}})
	s.SetDependents("mem0ai/mem0", "alice/agent", "bob/notes", "carol/private")
}

// Users returns the registered logins, sorted.
func (s *Server) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Login)
	}
	sort.Strings(out)
	return out
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
