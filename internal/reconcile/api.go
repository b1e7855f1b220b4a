// Package reconcile decides, per canonical issue, whether a destination task
// is created, updated or left alone. Duplicate safety comes only from the
// external-id correlation on destination tasks; there is no local locking.
package reconcile

import (
	"context"

	"github.com/pawel-modine/AsanaBot/internal/model"
)

// TaskAPI is the destination surface used by the resolver, locator and
// mutator. FindTaskByExternalID reports model.ErrTaskNotFound and CreateTask
// reports model.ErrDuplicateExternalID, both possibly wrapped.
type TaskAPI interface {
	ListWorkspaces(ctx context.Context) ([]model.Workspace, error)
	ListProjects(ctx context.Context, workspaceID string) ([]model.Project, error)
	ListTags(ctx context.Context, workspaceID string) ([]model.Tag, error)
	CreateTag(ctx context.Context, workspaceID, name string) (*model.Tag, error)
	ListUsers(ctx context.Context, workspaceID string) ([]model.User, error)
	ListSections(ctx context.Context, projectID string) ([]model.Section, error)
	FindTaskByExternalID(ctx context.Context, externalID string) (*model.Task, error)
	CreateTask(ctx context.Context, workspaceID string, task model.NewTask) (*model.Task, error)
	UpdateTask(ctx context.Context, taskID string, update model.TaskUpdate) (*model.Task, error)
	AddTaskToSection(ctx context.Context, sectionID, taskID string) error
}
