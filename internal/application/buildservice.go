package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/bobholt/wptdash/internal/domain/model"
	"github.com/bobholt/wptdash/internal/domain/port/driven"
)

// BuildService folds Travis build webhook events into the entity graph. It
// only accepts builds for the single configured repository, and only for pull
// requests already known from a prior GitHub webhook.
type BuildService struct {
	store      driven.EntityStore
	verifier   driven.BuildVerifier
	dispatcher *CommentDispatcher
	ownerName  string
	repoName   string
	logger     *slog.Logger
}

// NewBuildService creates a BuildService scoped to owner/repo.
func NewBuildService(
	store driven.EntityStore,
	verifier driven.BuildVerifier,
	dispatcher *CommentDispatcher,
	ownerName, repoName string,
	logger *slog.Logger,
) *BuildService {
	return &BuildService{
		store:      store,
		verifier:   verifier,
		dispatcher: dispatcher,
		ownerName:  ownerName,
		repoName:   repoName,
		logger:     logger,
	}
}

// IngestBuild processes one Travis webhook: structural validation, signature
// verification, repository scope check, and reconciliation of the build and
// its matrix jobs, all before a single transaction commit. Matrix entries
// without a PRODUCT env tag are skipped silently since they cannot be
// attributed to a product. The signature only proves the payload came from Travis, not
// that it belongs to this repository, hence the separate scope check.
func (s *BuildService) IngestBuild(ctx context.Context, payload []byte, signature string) error {
	var event BuildEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return &ValidationError{Violations: []string{err.Error()}}
	}
	if violations := event.Validate(); len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}

	if err := s.verifier.Verify(ctx, payload, signature); err != nil {
		return err
	}

	if *event.Repository.OwnerName != s.ownerName || *event.Repository.Name != s.repoName {
		return ErrRepositoryMismatch
	}

	// Both validated above.
	buildNumber, _ := strconv.Atoi(*event.Number)
	status, _ := model.ParseBuildStatus(*event.StatusMessage)

	sess, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	defer func() { _ = sess.Rollback() }()

	pr, err := sess.FindPullRequestForBuild(ctx, *event.PullRequestNumber, *event.HeadCommit, *event.BaseCommit)
	if err != nil {
		return err
	}
	if pr == nil {
		return ErrPullRequestNotFound
	}

	// Authors are unknown from a build payload; commits may be created bare.
	headCommit, _, err := sess.GetOrCreateCommit(ctx, *event.HeadCommit)
	if err != nil {
		return err
	}
	baseCommit, _, err := sess.GetOrCreateCommit(ctx, *event.BaseCommit)
	if err != nil {
		return err
	}

	build, _, err := sess.GetOrCreateBuild(ctx, *event.ID)
	if err != nil {
		return err
	}
	build.Number = buildNumber
	build.PullRequestID = &pr.ID
	build.HeadSHA = headCommit.SHA
	build.BaseSHA = baseCommit.SHA
	build.Status = status
	build.StartedAt = event.StartedAt.Time
	build.FinishedAt = event.FinishedAt.Ptr()

	var jobCount, skipped int
	for i := range event.Matrix {
		entry := &event.Matrix[i]

		productName, ok := entry.ProductName()
		if !ok {
			skipped++
			continue
		}

		product, _, err := sess.GetOrCreateProduct(ctx, productName)
		if err != nil {
			return err
		}

		job, _, err := sess.GetOrCreateJob(ctx, *entry.ID)
		if err != nil {
			return err
		}

		// Both validated above.
		job.Number, _ = strconv.ParseFloat(*entry.Number, 64)
		job.State, _ = model.ParseJobState(*entry.State)
		job.BuildID = build.ID
		job.ProductID = product.ID
		job.AllowFailure = *entry.AllowFailure
		job.StartedAt = entry.StartedAt.Time
		job.FinishedAt = entry.FinishedAt.Ptr()
		jobCount++
	}

	if err := sess.Commit(ctx); err != nil {
		return fmt.Errorf("commit build %d: %w", build.ID, err)
	}

	s.logger.Info("build ingested",
		"build", build.ID,
		"number", build.Number,
		"pr", pr.Number,
		"status", build.Status,
		"jobs", jobCount,
		"jobs_skipped", skipped,
	)

	return s.dispatcher.PostSummary(ctx, pr.Number)
}
