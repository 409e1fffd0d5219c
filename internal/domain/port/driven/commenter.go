package driven

import (
	"context"
	"fmt"
)

// Commenter posts a comment to a pull request, addressed by the PR number
// (GitHub's comment API is number-scoped per repository, not id-scoped).
type Commenter interface {
	PostComment(ctx context.Context, prNumber int, body string) error
}

// CommentError carries the upstream status code and response body of a failed
// comment post, surfaced to the webhook sender unchanged.
type CommentError struct {
	Status int
	Body   string
}

func (e *CommentError) Error() string {
	return fmt.Sprintf("posting comment failed with status %d: %s", e.Status, e.Body)
}
