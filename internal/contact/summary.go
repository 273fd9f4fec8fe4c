package contact

import (
	"fmt"
	"strings"
)

// Summary renders the free-text memory stored for a profile: who the
// developer is, what their repository does and that it uses targetRepo.
func Summary(p Profile, targetRepo string) string {
	repoName := p.Repo.FullName
	if _, name, ok := strings.Cut(repoName, "/"); ok {
		repoName = name
	}
	desc := strings.TrimSpace(p.Repo.Description)
	if desc == "" {
		desc = "has no description"
	}
	lang := p.Repo.Language
	if lang == "" {
		lang = "not specified"
	}
	topics := "none specified"
	if len(p.Repo.Topics) > 0 {
		topics = strings.Join(p.Repo.Topics, ", ")
	}

	lines := []string{
		fmt.Sprintf("GitHub user @%s is a developer", p.Username),
	}
	if p.DisplayName != "" {
		lines = append(lines, fmt.Sprintf("Their name is %s", p.DisplayName))
	}
	if p.Bio != "" {
		lines = append(lines, fmt.Sprintf("Bio: %s", p.Bio))
	}
	if p.Company != "" {
		lines = append(lines, fmt.Sprintf("They work at %s", p.Company))
	}
	if p.Location != "" {
		lines = append(lines, fmt.Sprintf("They are based in %s", p.Location))
	}
	lines = append(lines,
		fmt.Sprintf("They have a repository called %s which %s", repoName, desc),
		fmt.Sprintf("Their repository is located at https://github.com/%s and has %d stars", p.Repo.FullName, p.Repo.Stars),
		fmt.Sprintf("The primary language used in the repository is %s", lang),
		fmt.Sprintf("Repository topics: %s", topics),
		fmt.Sprintf("They use %s in their project", targetRepo),
	)
	return strings.Join(lines, "\n")
}
