// Package mapper normalizes raw webhook payloads into model.CanonicalIssue.
// Every payload that does not describe a trackable issue or pull request is
// rejected with model.ErrMalformedEvent.
package mapper

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pawel-modine/AsanaBot/internal/model"
)

type IssueMapper interface {
	Map(ctx context.Context, body []byte) (*model.CanonicalIssue, error)
}

// Registry picks the mapper for an event source.
type Registry map[model.Provider]IssueMapper

func (r Registry) For(source model.Provider) (IssueMapper, error) {
	m, ok := r[source]
	if !ok || m == nil {
		return nil, fmt.Errorf("%w: no mapper for source %q", model.ErrMalformedEvent, source)
	}
	return m, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", model.ErrMalformedEvent, fmt.Sprintf(format, args...))
}

// fields decodes a JSON object and checks that every key is present. A key
// holding null counts as present.
func fields(raw json.RawMessage, what string, keys ...string) (map[string]json.RawMessage, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, malformed("%s is missing", what)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, malformed("%s is not an object: %v", what, err)
	}
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return nil, malformed("%s.%s is missing", what, k)
		}
	}
	return obj, nil
}

func state(s string) (model.IssueState, error) {
	switch s {
	case "open", "opened", "reopened":
		return model.IssueStateOpen, nil
	case "closed", "merged":
		return model.IssueStateClosed, nil
	default:
		return "", malformed("unknown state %q", s)
	}
}
