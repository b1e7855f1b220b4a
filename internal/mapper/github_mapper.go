package mapper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/go-github/v72/github"

	"github.com/pawel-modine/AsanaBot/internal/model"
	"github.com/pawel-modine/AsanaBot/internal/service/issue_tracker"
)

var githubEntityKeys = []string{"number", "title", "state", "milestone", "html_url", "body", "assignee"}

type githubEntity struct {
	Number             int               `json:"number"`
	Title              *string           `json:"title"`
	State              string            `json:"state"`
	Milestone          *github.Milestone `json:"milestone"`
	HTMLURL            string            `json:"html_url"`
	Body               *string           `json:"body"`
	Assignee           *github.User      `json:"assignee"`
	RequestedReviewers []*github.User    `json:"requested_reviewers"`
}

type GitHubIssueMapper struct {
	source issue_tracker.GitHubService
}

func NewGitHubIssueMapper(source issue_tracker.GitHubService) *GitHubIssueMapper {
	return &GitHubIssueMapper{source: source}
}

// Map handles "issues" and "pull_request" deliveries, plus backfill payloads
// that carry both objects. A top-level pull_request object selects the PR
// branch.
func (m *GitHubIssueMapper) Map(ctx context.Context, body []byte) (*model.CanonicalIssue, error) {
	top, err := fields(body, "event", "organization", "repository")
	if err != nil {
		return nil, err
	}

	org, err := fields(top["organization"], "organization", "login")
	if err != nil {
		return nil, err
	}
	repo, err := fields(top["repository"], "repository", "name", "milestones_url")
	if err != nil {
		return nil, err
	}

	var login, repoName, milestonesURL string
	if err := decodeString(org["login"], &login); err != nil {
		return nil, malformed("organization.login: %v", err)
	}
	if err := decodeString(repo["name"], &repoName); err != nil {
		return nil, malformed("repository.name: %v", err)
	}
	if err := decodeString(repo["milestones_url"], &milestonesURL); err != nil {
		return nil, malformed("repository.milestones_url: %v", err)
	}

	_, isPR := top["pull_request"]
	nestedKey := "issue"
	if isPR {
		nestedKey = "pull_request"
	}
	if _, err := fields(top[nestedKey], nestedKey, githubEntityKeys...); err != nil {
		return nil, err
	}

	var entity githubEntity
	if err := json.Unmarshal(top[nestedKey], &entity); err != nil {
		return nil, malformed("%s: %v", nestedKey, err)
	}
	if entity.Number <= 0 {
		return nil, malformed("%s.number must be positive, got %d", nestedKey, entity.Number)
	}
	st, err := state(entity.State)
	if err != nil {
		return nil, err
	}

	hasMilestones, err := m.source.HasMilestones(ctx, milestonesURL)
	if err != nil {
		return nil, fmt.Errorf("checking milestones for %s/%s: %w", login, repoName, err)
	}

	assignee, err := m.assignee(ctx, entity)
	if err != nil {
		return nil, err
	}

	return &model.CanonicalIssue{
		Organization:      login,
		Repository:        repoName,
		Number:            entity.Number,
		Title:             deref(entity.Title),
		Body:              deref(entity.Body),
		HTMLURL:           entity.HTMLURL,
		State:             st,
		IsPR:              isPR,
		Milestoned:        entity.Milestone != nil,
		RepoHasMilestones: hasMilestones,
		Assignee:          assignee,
	}, nil
}

func (m *GitHubIssueMapper) assignee(ctx context.Context, entity githubEntity) (*string, error) {
	user := entity.Assignee
	if user == nil && len(entity.RequestedReviewers) > 0 {
		pick := entity.Number % len(entity.RequestedReviewers)
		user = entity.RequestedReviewers[pick]
		slog.DebugContext(ctx, "assigning requested reviewer",
			"number", entity.Number, "reviewers", len(entity.RequestedReviewers), "pick", pick)
	}
	if user == nil {
		return nil, nil
	}

	name, err := m.source.UserDisplayName(ctx, user.GetURL())
	if err != nil {
		return nil, fmt.Errorf("resolving display name of %s: %w", user.GetLogin(), err)
	}
	if name == "" {
		return nil, nil
	}
	return &name, nil
}

func decodeString(raw json.RawMessage, out *string) error {
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		return fmt.Errorf("empty value")
	}
	*out = *s
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
