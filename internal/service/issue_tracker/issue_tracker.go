package issue_tracker

import (
	"context"
	"encoding/json"
	"time"
)

// GitHubService looks up the repository and user details a GitHub event
// only references by URL.
type GitHubService interface {
	// HasMilestones reports whether the repository behind milestonesURL has
	// at least one open milestone. The URL template suffix ("{/number}") is
	// tolerated.
	HasMilestones(ctx context.Context, milestonesURL string) (bool, error)
	// UserDisplayName returns the profile name of the user at userURL, or
	// "" when the user has not set one.
	UserDisplayName(ctx context.Context, userURL string) (string, error)
}

// GitLabService looks up project details for GitLab events.
type GitLabService interface {
	HasMilestones(ctx context.Context, projectPath string) (bool, error)
}

type BackfillParams struct {
	Organization string
	Repository   string
	Since        time.Time
}

// Backfiller lists entities updated since a point in time as webhook-shaped
// payloads that the GitHub normalizer accepts.
type Backfiller interface {
	ListEventPayloads(ctx context.Context, params BackfillParams) ([]json.RawMessage, error)
}
