package driven

import (
	"context"

	"github.com/bobholt/wptdash/internal/domain/model"
)

// SummaryStore is the read side of the entity graph: committed aggregate state
// for the comment dispatcher and the detail page. Lookups return nil when the
// pull request is unknown.
type SummaryStore interface {
	PullRequestByNumber(ctx context.Context, number int) (*model.PullRequestSummary, error)
	PullRequestByID(ctx context.Context, id int64) (*model.PullRequestSummary, error)
}
