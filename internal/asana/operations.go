package asana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pawel-modine/AsanaBot/internal/model"
)

func (c *Client) ListWorkspaces(ctx context.Context) ([]model.Workspace, error) {
	return list[model.Workspace](ctx, c, "/workspaces", nil)
}

func (c *Client) ListProjects(ctx context.Context, workspaceID string) ([]model.Project, error) {
	return list[model.Project](ctx, c, "/projects", url.Values{"workspace": {workspaceID}, "archived": {"false"}})
}

func (c *Client) ListTags(ctx context.Context, workspaceID string) ([]model.Tag, error) {
	return list[model.Tag](ctx, c, "/tags", url.Values{"workspace": {workspaceID}})
}

func (c *Client) CreateTag(ctx context.Context, workspaceID, name string) (*model.Tag, error) {
	var tag model.Tag
	payload := map[string]string{"workspace": workspaceID, "name": name}
	if _, err := c.do(ctx, http.MethodPost, "/tags", nil, payload, &tag); err != nil {
		return nil, fmt.Errorf("creating tag %q: %w", name, err)
	}
	return &tag, nil
}

func (c *Client) ListUsers(ctx context.Context, workspaceID string) ([]model.User, error) {
	return list[model.User](ctx, c, "/users", url.Values{"workspace": {workspaceID}, "opt_fields": {"name"}})
}

func (c *Client) ListSections(ctx context.Context, projectID string) ([]model.Section, error) {
	return list[model.Section](ctx, c, "/projects/"+url.PathEscape(projectID)+"/sections", nil)
}

// FindTaskByExternalID returns model.ErrTaskNotFound (wrapped) when no task
// carries the external id.
func (c *Client) FindTaskByExternalID(ctx context.Context, externalID string) (*model.Task, error) {
	var t task
	path := "/tasks/external:" + url.PathEscape(externalID)
	if _, err := c.do(ctx, http.MethodGet, path, url.Values{"opt_fields": {taskOptFields}}, nil, &t); err != nil {
		return nil, err
	}
	out := t.toModel()
	if out.ExternalID == "" {
		out.ExternalID = externalID
	}
	return out, nil
}

// CreateTask returns model.ErrDuplicateExternalID (wrapped) when another task
// already holds the external id.
func (c *Client) CreateTask(ctx context.Context, workspaceID string, nt model.NewTask) (*model.Task, error) {
	req := createTaskRequest{
		Workspace: workspaceID,
		Name:      nt.Name,
		Notes:     nt.Notes,
		Projects:  nt.ProjectIDs,
		Tags:      nt.TagIDs,
		Completed: nt.Completed,
		External:  &external{GID: nt.ExternalID},
	}
	if nt.AssigneeID != model.Unassigned {
		assignee := nt.AssigneeID
		req.Assignee = &assignee
	}

	var t task
	_, err := c.do(ctx, http.MethodPost, "/tasks", url.Values{"opt_fields": {taskOptFields}}, req, &t)
	if err != nil {
		if IsDuplicate(err) {
			return nil, fmt.Errorf("creating task %s: %w: %v", nt.ExternalID, model.ErrDuplicateExternalID, err)
		}
		return nil, fmt.Errorf("creating task %s: %w", nt.ExternalID, err)
	}
	out := t.toModel()
	if out.ExternalID == "" {
		out.ExternalID = nt.ExternalID
	}
	return out, nil
}

func (c *Client) UpdateTask(ctx context.Context, taskID string, u model.TaskUpdate) (*model.Task, error) {
	req := updateTaskRequest{}
	if u.AssigneeID != nil {
		if *u.AssigneeID == model.Unassigned {
			req["assignee"] = json.RawMessage("null")
		} else {
			b, _ := json.Marshal(*u.AssigneeID)
			req["assignee"] = b
		}
	}
	if u.Completed != nil {
		b, _ := json.Marshal(*u.Completed)
		req["completed"] = b
	}

	var t task
	path := "/tasks/" + url.PathEscape(taskID)
	if _, err := c.do(ctx, http.MethodPut, path, url.Values{"opt_fields": {taskOptFields}}, req, &t); err != nil {
		return nil, fmt.Errorf("updating task %s: %w", taskID, err)
	}
	return t.toModel(), nil
}

func (c *Client) AddTaskToSection(ctx context.Context, sectionID, taskID string) error {
	path := "/sections/" + url.PathEscape(sectionID) + "/addTask"
	if _, err := c.do(ctx, http.MethodPost, path, nil, map[string]string{"task": taskID}, nil); err != nil {
		return fmt.Errorf("adding task %s to section %s: %w", taskID, sectionID, err)
	}
	return nil
}
