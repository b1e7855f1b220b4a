package model

import "errors"

var (
	// ErrMalformedEvent means the event does not describe a trackable entity.
	// Callers acknowledge and ignore it.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrNotFound means a workspace or project could not be resolved.
	ErrNotFound = errors.New("not found")

	// ErrSourceNotFound means the source system answered 404 for a
	// repository, project, milestone list or user the event refers to.
	ErrSourceNotFound = errors.New("source entity not found")

	// ErrTaskNotFound means the destination has no task for an external id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrDuplicateExternalID means a task already carries the external id.
	ErrDuplicateExternalID = errors.New("duplicate external id")

	// ErrRemoteUnavailable covers transport and auth failures of either system.
	ErrRemoteUnavailable = errors.New("remote unavailable")
)
