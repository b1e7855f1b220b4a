package reconcile

import (
	"fmt"

	"github.com/pawel-modine/AsanaBot/internal/model"
)

// AssigneePolicy decides whether an update may replace the assignee already
// set on a destination task.
type AssigneePolicy string

const (
	// AssigneeAlways overwrites the assignee on every update.
	AssigneeAlways AssigneePolicy = "always"
	// AssigneeKeepAssigned never replaces an existing assignee.
	AssigneeKeepAssigned AssigneePolicy = "keep_assigned"
	// AssigneeKeepOpenAssigned keeps an existing assignee only while the
	// task is incomplete.
	AssigneeKeepOpenAssigned AssigneePolicy = "keep_open_assigned"
)

func ParseAssigneePolicy(s string) (AssigneePolicy, error) {
	switch p := AssigneePolicy(s); p {
	case AssigneeAlways, AssigneeKeepAssigned, AssigneeKeepOpenAssigned:
		return p, nil
	case "":
		return AssigneeKeepAssigned, nil
	default:
		return "", fmt.Errorf("unknown assignee policy %q", s)
	}
}

// keepsAssignee reports whether the task's current assignee must stay.
func (p AssigneePolicy) keepsAssignee(task model.Task) bool {
	switch p {
	case AssigneeAlways:
		return false
	case AssigneeKeepOpenAssigned:
		return task.IsAssigned() && !task.Completed
	default:
		return task.IsAssigned()
	}
}

// update builds the delta for an existing task.
func (p AssigneePolicy) update(task model.Task, attrs model.SyncAttributes) model.TaskUpdate {
	completed := attrs.Completed
	u := model.TaskUpdate{Completed: &completed}
	if !p.keepsAssignee(task) {
		assignee := attrs.AssigneeID
		u.AssigneeID = &assignee
	}
	return u
}
