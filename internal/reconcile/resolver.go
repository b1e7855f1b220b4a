package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pawel-modine/AsanaBot/common"
	"github.com/pawel-modine/AsanaBot/internal/model"
)

// Resolver maps source identifiers onto destination ids. Successful lookups
// are cached; failures are not, so a fixed destination configuration is
// picked up on the next delivery.
type Resolver struct {
	api   TaskAPI
	cache *Cache
}

func NewResolver(api TaskAPI, cache *Cache) *Resolver {
	if cache == nil {
		cache = NewCache()
	}
	return &Resolver{api: api, cache: cache}
}

// ResolveWorkspace finds the workspace whose name equals org, ignoring case.
func (r *Resolver) ResolveWorkspace(ctx context.Context, org string) (string, error) {
	if id, ok := r.cache.workspaces.get(org); ok {
		return id, nil
	}

	workspaces, err := r.api.ListWorkspaces(ctx)
	if err != nil {
		return "", fmt.Errorf("listing workspaces: %w", err)
	}
	for _, w := range workspaces {
		if common.SameName(w.Name, org) {
			r.cache.workspaces.put(org, w.ID)
			return w.ID, nil
		}
	}
	return "", fmt.Errorf("workspace for organization %q: %w", org, model.ErrNotFound)
}

// ResolveProject finds the project whose slug ("Python Gallery" becomes
// "python-gallery") equals the repository name, ignoring case.
func (r *Resolver) ResolveProject(ctx context.Context, workspaceID, repository string) (string, error) {
	key := projectKey{workspaceID, repository}
	if id, ok := r.cache.projects.get(key); ok {
		return id, nil
	}

	projects, err := r.api.ListProjects(ctx, workspaceID)
	if err != nil {
		return "", fmt.Errorf("listing projects: %w", err)
	}
	want := strings.ToLower(repository)
	for _, p := range projects {
		if common.ProjectSlug(p.Name) == want {
			r.cache.projects.put(key, p.ID)
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("project for repository %q: %w", repository, model.ErrNotFound)
}

// ResolveTag returns the tag with the given name, creating it when missing.
func (r *Resolver) ResolveTag(ctx context.Context, workspaceID, name string) (string, error) {
	key := tagKey{workspaceID, name}
	if id, ok := r.cache.tags.get(key); ok {
		return id, nil
	}

	tags, err := r.api.ListTags(ctx, workspaceID)
	if err != nil {
		return "", fmt.Errorf("listing tags: %w", err)
	}
	for _, t := range tags {
		if common.SameName(t.Name, name) {
			r.cache.tags.put(key, t.ID)
			return t.ID, nil
		}
	}

	tag, err := r.api.CreateTag(ctx, workspaceID, name)
	if err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "created tracking tag", "tag", name, "tag_id", tag.ID, "workspace_id", workspaceID)
	r.cache.tags.put(key, tag.ID)
	return tag.ID, nil
}

// ResolveUser maps a source display name to a destination user by exact name.
// An unmapped identity yields model.Unassigned, which is cached as well.
func (r *Resolver) ResolveUser(ctx context.Context, workspaceID, identity string) (string, error) {
	key := userKey{workspaceID, identity}
	if id, ok := r.cache.users.get(key); ok {
		return id, nil
	}

	users, err := r.api.ListUsers(ctx, workspaceID)
	if err != nil {
		return "", fmt.Errorf("listing users: %w", err)
	}
	id := model.Unassigned
	for _, u := range users {
		if u.Name == identity {
			id = u.ID
			break
		}
	}
	if id == model.Unassigned {
		slog.DebugContext(ctx, "no destination user for identity", "identity", identity)
	}
	r.cache.users.put(key, id)
	return id, nil
}

// ResolveSection finds a project section by name, ignoring case. Found is
// false when the project has none.
func (r *Resolver) ResolveSection(ctx context.Context, projectID, name string) (id string, found bool, err error) {
	key := sectionKey{projectID, name}
	if hit, ok := r.cache.sections.get(key); ok {
		return hit.id, hit.found, nil
	}

	sections, err := r.api.ListSections(ctx, projectID)
	if err != nil {
		return "", false, fmt.Errorf("listing sections: %w", err)
	}
	hit := sectionHit{}
	for _, s := range sections {
		if common.SameName(s.Name, name) {
			hit = sectionHit{id: s.ID, found: true}
			break
		}
	}
	r.cache.sections.put(key, hit)
	return hit.id, hit.found, nil
}
