package reconcile

import (
	"context"
	"log/slog"

	"github.com/pawel-modine/AsanaBot/internal/model"
)

type Mutator struct {
	api TaskAPI
}

func NewMutator(api TaskAPI) *Mutator {
	return &Mutator{api: api}
}

type CreateTaskParams struct {
	WorkspaceID string
	ProjectID   string
	TagID       string
	Issue       model.CanonicalIssue
	Attrs       model.SyncAttributes
}

// CreateTask binds the issue's external id on a new task in the project.
// It returns model.ErrDuplicateExternalID (wrapped) when the id is taken.
func (m *Mutator) CreateTask(ctx context.Context, params CreateTaskParams) (*model.Task, error) {
	nt := model.NewTask{
		ExternalID: params.Issue.ExternalID(),
		Name:       params.Issue.TaskName(),
		Notes:      params.Issue.TaskNotes(),
		ProjectIDs: []string{params.ProjectID},
		AssigneeID: params.Attrs.AssigneeID,
		Completed:  params.Attrs.Completed,
	}
	if params.TagID != "" {
		nt.TagIDs = []string{params.TagID}
	}
	return m.api.CreateTask(ctx, params.WorkspaceID, nt)
}

func (m *Mutator) UpdateTask(ctx context.Context, taskID string, update model.TaskUpdate) (*model.Task, error) {
	return m.api.UpdateTask(ctx, taskID, update)
}

// MoveToSection is best effort: a failure is logged and reported as false.
func (m *Mutator) MoveToSection(ctx context.Context, taskID, projectID, sectionID string) bool {
	if err := m.api.AddTaskToSection(ctx, sectionID, taskID); err != nil {
		slog.WarnContext(ctx, "failed to move task to section",
			"task_id", taskID, "project_id", projectID, "section_id", sectionID, "error", err)
		return false
	}
	return true
}
