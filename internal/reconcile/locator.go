package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/pawel-modine/AsanaBot/internal/model"
)

// Locator finds the destination task of an entity by external id only.
// Titles change and are not unique, so they are never used for matching.
type Locator struct {
	api TaskAPI
}

func NewLocator(api TaskAPI) *Locator {
	return &Locator{api: api}
}

// FindTask returns found=false when the destination has no task for the
// issue's external id.
func (l *Locator) FindTask(ctx context.Context, issue model.CanonicalIssue) (*model.Task, bool, error) {
	externalID := issue.ExternalID()
	task, err := l.api.FindTaskByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, model.ErrTaskNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("finding task %s: %w", externalID, err)
	}
	return task, true, nil
}
