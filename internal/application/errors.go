package application

import (
	"errors"
	"strings"
)

// ErrPullRequestNotFound is returned when a Travis build references a
// (number, head, base) triple with no stored pull request. GitHub events are
// the source of truth for pull request existence; builds can only attach.
var ErrPullRequestNotFound = errors.New("no matching pull request for build")

// ErrRepositoryMismatch is returned when a verified Travis payload reports a
// repository other than the configured target.
var ErrRepositoryMismatch = errors.New("build repository does not match the configured repository")

// ValidationError rejects a webhook payload before any persistence happens.
// Violations lists every missing or malformed field, not just the first.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid payload: " + strings.Join(e.Violations, "; ")
}
