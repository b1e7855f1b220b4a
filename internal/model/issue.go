package model

import "fmt"

// Provider identifies the source system an event came from.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGitLab Provider = "gitlab"
)

type IssueState string

const (
	IssueStateOpen   IssueState = "open"
	IssueStateClosed IssueState = "closed"
)

// CanonicalIssue is a normalized issue or pull request, independent of the
// shape of the event it was parsed from. Organization, Repository and Number
// identify the entity for its whole lifetime.
type CanonicalIssue struct {
	Organization      string     `json:"organization"`
	Repository        string     `json:"repository"`
	Number            int        `json:"number"`
	Title             string     `json:"title"`
	Body              string     `json:"body"`
	HTMLURL           string     `json:"html_url"`
	State             IssueState `json:"state"`
	IsPR              bool       `json:"is_pr"`
	Milestoned        bool       `json:"milestoned"`
	RepoHasMilestones bool       `json:"repo_has_milestones"`

	// Assignee is the source-system display name; nil when nobody is assigned.
	Assignee *string `json:"assignee,omitempty"`
}

// ExternalID is the correlation key stored on the destination task.
func (i CanonicalIssue) ExternalID() string {
	return ExternalID(i.Organization, i.Repository, i.Number)
}

func (i CanonicalIssue) IsOpen() bool {
	return i.State == IssueStateOpen
}

func (i CanonicalIssue) IsClosed() bool {
	return i.State == IssueStateClosed
}

func (i CanonicalIssue) HasAssignee() bool {
	return i.Assignee != nil
}

// TaskName is the destination task title, e.g. "Fix the parser (#42)".
func (i CanonicalIssue) TaskName() string {
	return fmt.Sprintf("%s (#%d)", i.Title, i.Number)
}

// TaskNotes holds the canonical URL followed by the body.
func (i CanonicalIssue) TaskNotes() string {
	return i.HTMLURL + "\n\n" + i.Body
}

// ExternalID derives the stable key for an entity: "{org}-{repo}-{number}".
func ExternalID(organization, repository string, number int) string {
	return fmt.Sprintf("%s-%s-%d", organization, repository, number)
}
