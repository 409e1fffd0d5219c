package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bobholt/wptdash/internal/domain/port/driven"
)

// CommentDispatcher regenerates the single summary comment on a pull request
// from its committed aggregate state. Posting is best-effort: the ingestion
// that triggered it has already committed, and a transport failure is surfaced
// to the webhook sender without retrying or touching the data.
type CommentDispatcher struct {
	summaries driven.SummaryStore
	commenter driven.Commenter
	logger    *slog.Logger
}

// NewCommentDispatcher creates a CommentDispatcher.
func NewCommentDispatcher(summaries driven.SummaryStore, commenter driven.Commenter, logger *slog.Logger) *CommentDispatcher {
	return &CommentDispatcher{
		summaries: summaries,
		commenter: commenter,
		logger:    logger,
	}
}

// PostSummary renders and posts the summary comment for the pull request with
// the given number. The number, not the internal id, addresses the comment:
// GitHub's comment API is number-scoped per repository.
func (d *CommentDispatcher) PostSummary(ctx context.Context, prNumber int) error {
	summary, err := d.summaries.PullRequestByNumber(ctx, prNumber)
	if err != nil {
		return fmt.Errorf("load summary for pull request #%d: %w", prNumber, err)
	}
	if summary == nil {
		return fmt.Errorf("pull request #%d vanished before summary dispatch", prNumber)
	}

	body := RenderSummary(summary)

	if err := d.commenter.PostComment(ctx, prNumber, body); err != nil {
		d.logger.Error("summary comment failed",
			"pr", prNumber,
			"error", err,
		)
		return err
	}

	d.logger.Info("summary comment posted", "pr", prNumber)
	return nil
}
