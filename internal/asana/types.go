package asana

import (
	"encoding/json"

	"github.com/pawel-modine/AsanaBot/internal/model"
)

type envelope struct {
	Data any `json:"data"`
}

type responseEnvelope struct {
	Data     json.RawMessage `json:"data"`
	NextPage *nextPage       `json:"next_page"`
}

type nextPage struct {
	Offset string `json:"offset"`
}

type ref struct {
	GID  string `json:"gid"`
	Name string `json:"name,omitempty"`
}

type external struct {
	GID  string `json:"gid"`
	Data string `json:"data,omitempty"`
}

type membership struct {
	Project *ref `json:"project"`
	Section *ref `json:"section"`
}

type task struct {
	GID         string       `json:"gid"`
	Name        string       `json:"name"`
	Completed   bool         `json:"completed"`
	Assignee    *ref         `json:"assignee"`
	External    *external    `json:"external"`
	Memberships []membership `json:"memberships"`
}

func (t task) toModel() *model.Task {
	out := &model.Task{
		ID:        t.GID,
		Name:      t.Name,
		Completed: t.Completed,
	}
	if t.Assignee != nil {
		out.AssigneeID = t.Assignee.GID
	}
	if t.External != nil {
		out.ExternalID = t.External.GID
	}
	for _, m := range t.Memberships {
		var mm model.Membership
		if m.Project != nil {
			mm.ProjectID = m.Project.GID
		}
		if m.Section != nil {
			mm.SectionID = m.Section.GID
		}
		out.Memberships = append(out.Memberships, mm)
	}
	return out
}

const taskOptFields = "name,completed,assignee,external,memberships.project,memberships.section"

type createTaskRequest struct {
	Workspace string    `json:"workspace"`
	Name      string    `json:"name"`
	Notes     string    `json:"notes"`
	Projects  []string  `json:"projects,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Assignee  *string   `json:"assignee"`
	Completed bool      `json:"completed"`
	External  *external `json:"external"`
}

// updateTaskRequest uses raw messages so an explicit null clears the assignee
// while an absent field leaves it untouched.
type updateTaskRequest map[string]json.RawMessage
