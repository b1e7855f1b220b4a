package model

// Unassigned is the destination user id used when a source identity has no
// destination counterpart. It is a normal outcome, not an error.
const Unassigned = ""

type Workspace struct {
	ID   string `json:"gid"`
	Name string `json:"name"`
}

type Project struct {
	ID   string `json:"gid"`
	Name string `json:"name"`
}

type Tag struct {
	ID   string `json:"gid"`
	Name string `json:"name"`
}

type Section struct {
	ID   string `json:"gid"`
	Name string `json:"name"`
}

type User struct {
	ID   string `json:"gid"`
	Name string `json:"name"`
}

type Membership struct {
	ProjectID string `json:"project_id"`
	SectionID string `json:"section_id,omitempty"`
}

// Task is a destination task as read back from the remote system. It is
// never cached beyond a single sync call.
type Task struct {
	ID          string       `json:"id"`
	ExternalID  string       `json:"external_id"`
	Name        string       `json:"name"`
	AssigneeID  string       `json:"assignee_id,omitempty"`
	Completed   bool         `json:"completed"`
	Memberships []Membership `json:"memberships,omitempty"`
}

func (t Task) IsAssigned() bool {
	return t.AssigneeID != Unassigned
}

// SyncAttributes is the delta applied to a task on every sync. It is always
// recomputed from the current CanonicalIssue.
type SyncAttributes struct {
	AssigneeID string `json:"assignee_id"`
	Completed  bool   `json:"completed"`
}

// NewTask is the payload for creating a destination task.
type NewTask struct {
	ExternalID string
	Name       string
	Notes      string
	ProjectIDs []string
	TagIDs     []string
	AssigneeID string
	Completed  bool
}

// TaskUpdate carries the fields to change on an existing task. A nil
// AssigneeID leaves the assignee untouched; a pointer to Unassigned clears it.
type TaskUpdate struct {
	AssigneeID *string
	Completed  *bool
}
