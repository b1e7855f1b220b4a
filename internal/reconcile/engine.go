package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pawel-modine/AsanaBot/common/logger"
	"github.com/pawel-modine/AsanaBot/internal/model"
)

type Outcome string

const (
	OutcomeCreated      Outcome = "created"
	OutcomeUpdated      Outcome = "updated"
	OutcomeNoop         Outcome = "noop"
	OutcomeInconsistent Outcome = "inconsistent"
)

type Result struct {
	Outcome Outcome
	Task    *model.Task
	// Moved is true when a completed task was moved into the done section.
	Moved bool
}

// TaskID is the synced task id, or nil when no task was touched.
func (r Result) TaskID() *string {
	if r.Task == nil {
		return nil
	}
	id := r.Task.ID
	return &id
}

type Options struct {
	TrackingTag    string
	DoneSection    string
	AssigneePolicy AssigneePolicy
}

func (o Options) withDefaults() Options {
	if o.TrackingTag == "" {
		o.TrackingTag = "GitHub"
	}
	if o.DoneSection == "" {
		o.DoneSection = "done"
	}
	if o.AssigneePolicy == "" {
		o.AssigneePolicy = AssigneeKeepAssigned
	}
	return o
}

type Engine struct {
	resolver *Resolver
	locator  *Locator
	mutator  *Mutator
	opts     Options
}

func NewEngine(api TaskAPI, cache *Cache, opts Options) *Engine {
	return &Engine{
		resolver: NewResolver(api, cache),
		locator:  NewLocator(api),
		mutator:  NewMutator(api),
		opts:     opts.withDefaults(),
	}
}

// ShouldCreateTask reports whether an issue without a destination task
// warrants one. Closed entities never do.
func ShouldCreateTask(issue model.CanonicalIssue) bool {
	if !issue.IsOpen() {
		return false
	}
	if issue.IsPR {
		return true
	}
	if !issue.Milestoned && issue.RepoHasMilestones {
		return issue.HasAssignee()
	}
	return true
}

// Sync reconciles one issue against the destination. It is safe to call
// repeatedly with the same issue. Only remote unavailability and unresolvable
// workspaces or projects are returned as errors.
func (e *Engine) Sync(ctx context.Context, issue model.CanonicalIssue) (result Result, err error) {
	externalID := issue.ExternalID()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ExternalID: &externalID,
		Component:  "asanabot.reconcile",
	})

	ctx, span := logger.StartSpan(ctx, "reconcile.sync",
		attribute.String("sync.external_id", externalID),
		attribute.Bool("sync.is_pr", issue.IsPR),
	)
	defer func() {
		span.SetAttributes(attribute.String("sync.outcome", string(result.Outcome)))
		logger.EndSpan(span, err)
	}()

	workspaceID, err := e.resolver.ResolveWorkspace(ctx, issue.Organization)
	if err != nil {
		return Result{}, err
	}
	projectID, err := e.resolver.ResolveProject(ctx, workspaceID, issue.Repository)
	if err != nil {
		return Result{}, err
	}
	attrs, err := e.attributes(ctx, workspaceID, issue)
	if err != nil {
		return Result{}, err
	}

	create := ShouldCreateTask(issue)
	if create {
		task, err := e.create(ctx, workspaceID, projectID, issue, attrs)
		switch {
		case err == nil:
			slog.InfoContext(ctx, "created task", "task_id", task.ID, "project_id", projectID)
			return Result{Outcome: OutcomeCreated, Task: task}, nil
		case errors.Is(err, model.ErrDuplicateExternalID):
			slog.InfoContext(ctx, "task already exists, updating instead")
		default:
			return Result{}, err
		}
	}

	existing, found, err := e.locator.FindTask(ctx, issue)
	if err != nil {
		return Result{}, err
	}
	if !found {
		if create {
			slog.WarnContext(ctx, "task reported as existing but cannot be found",
				"project_id", projectID)
			return Result{Outcome: OutcomeInconsistent}, nil
		}
		slog.InfoContext(ctx, "no task created, none existed and none warranted",
			"state", issue.State, "milestoned", issue.Milestoned, "repo_has_milestones", issue.RepoHasMilestones)
		return Result{Outcome: OutcomeNoop}, nil
	}

	update := e.opts.AssigneePolicy.update(*existing, attrs)
	if update.AssigneeID == nil {
		slog.DebugContext(ctx, "keeping existing assignee",
			"task_id", existing.ID, "assignee_id", existing.AssigneeID, "policy", e.opts.AssigneePolicy)
	}
	updated, err := e.mutator.UpdateTask(ctx, existing.ID, update)
	if err != nil {
		return Result{}, fmt.Errorf("updating task %s: %w", existing.ID, err)
	}
	if updated.Memberships == nil {
		updated.Memberships = existing.Memberships
	}
	result = Result{Outcome: OutcomeUpdated, Task: updated}

	if attrs.Completed {
		result.Moved = e.moveToDone(ctx, projectID, *updated)
	}
	slog.InfoContext(ctx, "updated task",
		"task_id", updated.ID, "completed", attrs.Completed, "moved", result.Moved)
	return result, nil
}

func (e *Engine) attributes(ctx context.Context, workspaceID string, issue model.CanonicalIssue) (model.SyncAttributes, error) {
	attrs := model.SyncAttributes{
		AssigneeID: model.Unassigned,
		Completed:  issue.IsClosed(),
	}
	if issue.HasAssignee() {
		id, err := e.resolver.ResolveUser(ctx, workspaceID, *issue.Assignee)
		if err != nil {
			return attrs, err
		}
		attrs.AssigneeID = id
	}
	return attrs, nil
}

func (e *Engine) create(ctx context.Context, workspaceID, projectID string, issue model.CanonicalIssue, attrs model.SyncAttributes) (*model.Task, error) {
	tagID, err := e.resolver.ResolveTag(ctx, workspaceID, e.opts.TrackingTag)
	if err != nil {
		return nil, err
	}
	return e.mutator.CreateTask(ctx, CreateTaskParams{
		WorkspaceID: workspaceID,
		ProjectID:   projectID,
		TagID:       tagID,
		Issue:       issue,
		Attrs:       attrs,
	})
}

// moveToDone is best effort; a missing section or a failed lookup only logs.
func (e *Engine) moveToDone(ctx context.Context, projectID string, task model.Task) bool {
	sectionID, found, err := e.resolver.ResolveSection(ctx, projectID, e.opts.DoneSection)
	if err != nil {
		slog.WarnContext(ctx, "failed to look up done section", "project_id", projectID, "error", err)
		return false
	}
	if !found {
		return false
	}
	for _, m := range task.Memberships {
		if m.ProjectID == projectID && m.SectionID == sectionID {
			return false
		}
	}
	return e.mutator.MoveToSection(ctx, task.ID, projectID, sectionID)
}
