package issue_tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v72/github"

	"github.com/pawel-modine/AsanaBot/internal/model"
)

type GitHubOptions struct {
	Token        string
	APIBaseURL   string // GitHub Enterprise API root; empty for github.com
	AcceptHeader string
	HTTPClient   *http.Client
}

// GitHubTracker implements GitHubService and Backfiller on the GitHub REST API.
type GitHubTracker struct {
	client *github.Client
	accept string
}

func NewGitHubTracker(opts GitHubOptions) (*GitHubTracker, error) {
	client := github.NewClient(opts.HTTPClient)
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}
	if base := strings.TrimSpace(opts.APIBaseURL); base != "" {
		var err error
		client, err = client.WithEnterpriseURLs(base, base)
		if err != nil {
			return nil, fmt.Errorf("configuring github api url: %w", err)
		}
	}
	return &GitHubTracker{client: client, accept: strings.TrimSpace(opts.AcceptHeader)}, nil
}

func (s *GitHubTracker) HasMilestones(ctx context.Context, milestonesURL string) (bool, error) {
	target, err := milestonesListURL(milestonesURL)
	if err != nil {
		return false, err
	}

	req, err := s.client.NewRequest(http.MethodGet, target, nil, s.acceptOption())
	if err != nil {
		return false, fmt.Errorf("building milestones request: %w", err)
	}

	var milestones []*github.Milestone
	if _, err := s.client.Do(ctx, req, &milestones); err != nil {
		return false, classifyGitHubError("listing milestones", err)
	}
	return len(milestones) > 0, nil
}

func (s *GitHubTracker) UserDisplayName(ctx context.Context, userURL string) (string, error) {
	if strings.TrimSpace(userURL) == "" {
		return "", fmt.Errorf("%w: user reference has no url", model.ErrMalformedEvent)
	}

	req, err := s.client.NewRequest(http.MethodGet, userURL, nil, s.acceptOption())
	if err != nil {
		return "", fmt.Errorf("building user request: %w", err)
	}

	var user github.User
	if _, err := s.client.Do(ctx, req, &user); err != nil {
		return "", classifyGitHubError("fetching user", err)
	}
	return user.GetName(), nil
}

// ListEventPayloads pages through every issue and pull request of the
// repository updated since params.Since. Pull requests also carry the full
// pull_request object, which is what marks them as PRs for the normalizer.
func (s *GitHubTracker) ListEventPayloads(ctx context.Context, params BackfillParams) ([]json.RawMessage, error) {
	org, _, err := s.client.Organizations.Get(ctx, params.Organization)
	if err != nil {
		return nil, classifyGitHubError("fetching organization", err)
	}
	repo, _, err := s.client.Repositories.Get(ctx, params.Organization, params.Repository)
	if err != nil {
		return nil, classifyGitHubError("fetching repository", err)
	}

	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Since:       params.Since,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var payloads []json.RawMessage
	for {
		issues, resp, err := s.client.Issues.ListByRepo(ctx, params.Organization, params.Repository, opts)
		if err != nil {
			return nil, classifyGitHubError("listing issues", err)
		}

		for _, issue := range issues {
			issueObj, err := webhookObject(issue)
			if err != nil {
				return nil, fmt.Errorf("encoding issue #%d: %w", issue.GetNumber(), err)
			}
			payload := map[string]any{
				"action":       "backfill",
				"organization": org,
				"repository":   repo,
				"issue":        issueObj,
			}
			if issue.IsPullRequest() {
				pr, _, err := s.client.PullRequests.Get(ctx, params.Organization, params.Repository, issue.GetNumber())
				if err != nil {
					return nil, classifyGitHubError("fetching pull request", err)
				}
				prObj, err := webhookObject(pr)
				if err != nil {
					return nil, fmt.Errorf("encoding pull request #%d: %w", issue.GetNumber(), err)
				}
				payload["pull_request"] = prObj
			}

			raw, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("encoding payload for #%d: %w", issue.GetNumber(), err)
			}
			payloads = append(payloads, raw)
		}

		if resp == nil || resp.NextPage == 0 {
			return payloads, nil
		}
		opts.ListOptions.Page = resp.NextPage
	}
}

// nullableEntityKeys are always present in webhook deliveries, as null when
// unset, but go-github drops them from its own encoding when empty.
var nullableEntityKeys = []string{"milestone", "assignee", "body"}

// webhookObject encodes an API object the way webhooks shape it.
func webhookObject(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	for _, k := range nullableEntityKeys {
		if _, ok := obj[k]; !ok {
			obj[k] = nil
		}
	}
	return obj, nil
}

func (s *GitHubTracker) acceptOption() github.RequestOption {
	return func(req *http.Request) {
		if s.accept != "" {
			req.Header.Set("Accept", s.accept)
		}
	}
}

// milestonesListURL strips the URI template suffix and asks for a single
// milestone, which is enough to know whether any exist.
func milestonesListURL(raw string) (string, error) {
	trimmed, _, _ := strings.Cut(raw, "{")
	if strings.TrimSpace(trimmed) == "" {
		return "", fmt.Errorf("%w: repository has no milestones_url", model.ErrMalformedEvent)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: invalid milestones_url: %v", model.ErrMalformedEvent, err)
	}
	q := u.Query()
	q.Set("per_page", "1")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func classifyGitHubError(op string, err error) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return fmt.Errorf("%s: %w: %v", op, model.ErrRemoteUnavailable, err)
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		if respErr.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w: %v", op, model.ErrSourceNotFound, err)
		}
		return fmt.Errorf("%s: %w: %v", op, model.ErrRemoteUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %v", op, model.ErrRemoteUnavailable, err)
}
