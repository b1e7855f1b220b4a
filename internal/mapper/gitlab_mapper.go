package mapper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pawel-modine/AsanaBot/internal/model"
	"github.com/pawel-modine/AsanaBot/internal/service/issue_tracker"
)

const (
	gitlabKindIssue        = "issue"
	gitlabKindMergeRequest = "merge_request"
)

type gitlabUser struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

type gitlabHook struct {
	ObjectKind string `json:"object_kind"`
	Project    *struct {
		PathWithNamespace string `json:"path_with_namespace"`
	} `json:"project"`
	ObjectAttributes *struct {
		IID         int     `json:"iid"`
		Title       string  `json:"title"`
		Description *string `json:"description"`
		State       string  `json:"state"`
		URL         string  `json:"url"`
		MilestoneID *int    `json:"milestone_id"`
	} `json:"object_attributes"`
	Assignees []gitlabUser `json:"assignees"`
	Reviewers []gitlabUser `json:"reviewers"`
}

type GitLabIssueMapper struct {
	source issue_tracker.GitLabService
}

func NewGitLabIssueMapper(source issue_tracker.GitLabService) *GitLabIssueMapper {
	return &GitLabIssueMapper{source: source}
}

// Map handles Issue Hook and Merge Request Hook payloads. The first namespace
// segment is the organization and the last path segment is the repository.
func (m *GitLabIssueMapper) Map(ctx context.Context, body []byte) (*model.CanonicalIssue, error) {
	var hook gitlabHook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, malformed("decoding gitlab hook: %v", err)
	}

	var isPR bool
	switch hook.ObjectKind {
	case gitlabKindIssue:
	case gitlabKindMergeRequest:
		isPR = true
	default:
		return nil, malformed("unsupported object_kind %q", hook.ObjectKind)
	}

	if hook.Project == nil || hook.ObjectAttributes == nil {
		return nil, malformed("project or object_attributes is missing")
	}
	segments := strings.Split(strings.Trim(hook.Project.PathWithNamespace, "/"), "/")
	if len(segments) < 2 {
		return nil, malformed("project.path_with_namespace %q has no namespace", hook.Project.PathWithNamespace)
	}
	attrs := hook.ObjectAttributes
	if attrs.IID <= 0 {
		return nil, malformed("object_attributes.iid is missing")
	}
	st, err := state(attrs.State)
	if err != nil {
		if attrs.State == "locked" {
			st = model.IssueStateOpen
		} else {
			return nil, err
		}
	}

	hasMilestones, err := m.source.HasMilestones(ctx, hook.Project.PathWithNamespace)
	if err != nil {
		return nil, fmt.Errorf("checking milestones for %s: %w", hook.Project.PathWithNamespace, err)
	}

	return &model.CanonicalIssue{
		Organization:      segments[0],
		Repository:        segments[len(segments)-1],
		Number:            attrs.IID,
		Title:             attrs.Title,
		Body:              deref(attrs.Description),
		HTMLURL:           attrs.URL,
		State:             st,
		IsPR:              isPR,
		Milestoned:        attrs.MilestoneID != nil && *attrs.MilestoneID != 0,
		RepoHasMilestones: hasMilestones,
		Assignee:          gitlabAssignee(attrs.IID, isPR, hook.Assignees, hook.Reviewers),
	}, nil
}

func gitlabAssignee(iid int, isPR bool, assignees, reviewers []gitlabUser) *string {
	var user *gitlabUser
	switch {
	case len(assignees) > 0:
		user = &assignees[0]
	case isPR && len(reviewers) > 0:
		user = &reviewers[iid%len(reviewers)]
	}
	if user == nil || user.Name == "" {
		return nil
	}
	name := user.Name
	return &name
}
