package issue_tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/pawel-modine/AsanaBot/internal/model"
)

type GitLabTracker struct {
	client *gitlab.Client
}

func NewGitLabTracker(baseURL, token string, httpClient *http.Client) (*GitLabTracker, error) {
	client, err := newGitLabClient(baseURL, token, httpClient)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return &GitLabTracker{client: client}, nil
}

func (s *GitLabTracker) HasMilestones(ctx context.Context, projectPath string) (bool, error) {
	if strings.TrimSpace(projectPath) == "" {
		return false, fmt.Errorf("%w: project path is empty", model.ErrMalformedEvent)
	}

	milestones, _, err := s.client.Milestones.ListMilestones(
		projectPath,
		&gitlab.ListMilestonesOptions{
			ListOptions: gitlab.ListOptions{Page: 1, PerPage: 1},
			State:       gitlab.Ptr("active"),
		},
		gitlab.WithContext(ctx),
	)
	if err != nil {
		return false, classifyGitLabError("listing milestones", err)
	}
	return len(milestones) > 0, nil
}

func newGitLabClient(baseURL, token string, httpClient *http.Client) (*gitlab.Client, error) {
	opts := []gitlab.ClientOptionFunc{}
	if httpClient != nil {
		opts = append(opts, gitlab.WithHTTPClient(httpClient))
	}
	if baseURL != "" {
		apiURL := strings.TrimSuffix(baseURL, "/") + "/api/v4"
		opts = append(opts, gitlab.WithBaseURL(apiURL))
	}
	return gitlab.NewClient(token, opts...)
}

func classifyGitLabError(op string, err error) error {
	if errors.Is(err, gitlab.ErrNotFound) {
		return fmt.Errorf("%s: %w: %v", op, model.ErrSourceNotFound, err)
	}
	var respErr *gitlab.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil &&
		respErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w: %v", op, model.ErrSourceNotFound, err)
	}
	return fmt.Errorf("%s: %w: %v", op, model.ErrRemoteUnavailable, err)
}
