package github

// User is the subset of GET /users/{login} used for enrichment.
// Optional fields decode from JSON null to "".
type User struct {
	Login    string `json:"login"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Bio      string `json:"bio"`
	Company  string `json:"company"`
	Location string `json:"location"`
	Blog     string `json:"blog"`
	Email    string `json:"email"`
	HTMLURL  string `json:"html_url"`
}

// Repo is the subset of GET /repos/{owner}/{repo} used for prompts.
type Repo struct {
	FullName        string   `json:"full_name"`
	Description     string   `json:"description"`
	StargazersCount int      `json:"stargazers_count"`
	Language        string   `json:"language"`
	Topics          []string `json:"topics"`
	Homepage        string   `json:"homepage"`
	HTMLURL         string   `json:"html_url"`
}

// Commit is one entry of GET /repos/{owner}/{repo}/commits.
type Commit struct {
	SHA    string       `json:"sha"`
	Commit CommitDetail `json:"commit"`
}

type CommitDetail struct {
	Author  *CommitAuthor `json:"author"`
	Message string        `json:"message"`
}

type CommitAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type readmeResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}
