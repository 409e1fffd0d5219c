package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bobholt/wptdash/internal/domain/model"
	"github.com/bobholt/wptdash/internal/domain/port/driven"
)

// PullService folds GitHub pull_request webhook events into the entity graph.
type PullService struct {
	store      driven.EntityStore
	dispatcher *CommentDispatcher
	logger     *slog.Logger
}

// NewPullService creates a PullService.
func NewPullService(store driven.EntityStore, dispatcher *CommentDispatcher, logger *slog.Logger) *PullService {
	return &PullService{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// IngestPullRequest validates the webhook body and reconciles every entity it
// references (users, commits, repositories, and the pull request itself)
// inside one transaction. All mutable pull request fields are overwritten with
// the payload's values: the model tracks the latest reported state, not
// history. After a successful commit the summary comment is regenerated;
// a comment failure is reported but never rolls the data back.
func (s *PullService) IngestPullRequest(ctx context.Context, body []byte) error {
	var event PullRequestEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return &ValidationError{Violations: []string{err.Error()}}
	}
	if violations := event.Validate(); len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	payload := event.PullRequest

	// Validated above; parse cannot fail here.
	state, err := model.ParsePRState(*payload.State)
	if err != nil {
		return &ValidationError{Violations: []string{err.Error()}}
	}

	sess, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	defer func() { _ = sess.Rollback() }()

	// Logins can be renamed upstream, so every resolved user gets its
	// display name refreshed from the payload.
	creator, _, err := resolveUser(ctx, sess, event.Sender)
	if err != nil {
		return err
	}

	var mergedByID *int64
	if payload.MergedBy != nil {
		merger, _, err := resolveUser(ctx, sess, payload.MergedBy)
		if err != nil {
			return err
		}
		mergedByID = &merger.ID
	}

	headCommit, headRepo, err := resolveRef(ctx, sess, payload.Head)
	if err != nil {
		return err
	}
	baseCommit, baseRepo, err := resolveRef(ctx, sess, payload.Base)
	if err != nil {
		return err
	}

	pr, created, err := sess.GetOrCreatePullRequest(ctx, *payload.ID)
	if err != nil {
		return err
	}

	pr.Number = *payload.Number
	pr.Title = *payload.Title
	pr.State = state
	pr.Merged = *payload.Merged
	pr.MergedByID = mergedByID
	pr.CreatorID = creator.ID
	pr.HeadSHA = headCommit.SHA
	pr.BaseSHA = baseCommit.SHA
	pr.HeadRepoID = headRepo.ID
	pr.BaseRepoID = baseRepo.ID
	pr.HeadBranch = *payload.Head.Ref
	pr.BaseBranch = *payload.Base.Ref
	pr.CreatedAt = payload.CreatedAt.Time
	pr.UpdatedAt = payload.UpdatedAt.Time
	pr.MergedAt = timePtr(payload.MergedAt)
	pr.ClosedAt = timePtr(payload.ClosedAt)

	if err := sess.Commit(ctx); err != nil {
		return fmt.Errorf("commit pull request %d: %w", pr.ID, err)
	}

	s.logger.Info("pull request ingested",
		"pr", pr.Number,
		"id", pr.ID,
		"state", pr.State,
		"created", created,
	)

	return s.dispatcher.PostSummary(ctx, pr.Number)
}

// resolveUser upserts a user and refreshes its login.
func resolveUser(ctx context.Context, sess driven.EntitySession, payload *UserPayload) (*model.GitHubUser, bool, error) {
	user, created, err := sess.GetOrCreateUser(ctx, *payload.ID)
	if err != nil {
		return nil, false, err
	}
	if payload.Login != nil {
		user.Login = *payload.Login
	}
	return user, created, nil
}

// resolveRef upserts the commit (with its author) and the repository (with its
// owner) of one side of the pull request. Repository name and owner are
// refreshed because repositories can be renamed or transferred.
func resolveRef(ctx context.Context, sess driven.EntitySession, ref *RefPayload) (*model.Commit, *model.Repository, error) {
	author, _, err := resolveUser(ctx, sess, ref.User)
	if err != nil {
		return nil, nil, err
	}

	commit, _, err := sess.GetOrCreateCommit(ctx, *ref.SHA)
	if err != nil {
		return nil, nil, err
	}
	commit.UserID = &author.ID

	owner, _, err := resolveUser(ctx, sess, ref.Repo.Owner)
	if err != nil {
		return nil, nil, err
	}

	repo, _, err := sess.GetOrCreateRepository(ctx, *ref.Repo.ID)
	if err != nil {
		return nil, nil, err
	}
	if ref.Repo.Name != nil {
		repo.Name = *ref.Repo.Name
	}
	repo.OwnerID = owner.ID

	return commit, repo, nil
}

func timePtr(t *Timestamp) *time.Time {
	if t == nil {
		return nil
	}
	out := t.Time
	return &out
}
