package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bobholt/wptdash/internal/domain/model"
	"github.com/bobholt/wptdash/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SummaryStore = (*SummaryRepo)(nil)

// SummaryRepo serves committed aggregate state from the reader connection.
type SummaryRepo struct {
	db *DB
}

// NewSummaryRepo creates a SummaryRepo backed by the given DB.
func NewSummaryRepo(db *DB) *SummaryRepo {
	return &SummaryRepo{db: db}
}

// PullRequestByNumber returns the pull request with the given number plus its
// builds and jobs, or nil when no such pull request exists.
func (r *SummaryRepo) PullRequestByNumber(ctx context.Context, number int) (*model.PullRequestSummary, error) {
	return r.loadSummary(ctx, `WHERE number = ?`, number)
}

// PullRequestByID returns the pull request with the given GitHub id plus its
// builds and jobs, or nil when no such pull request exists.
func (r *SummaryRepo) PullRequestByID(ctx context.Context, id int64) (*model.PullRequestSummary, error) {
	return r.loadSummary(ctx, `WHERE id = ?`, id)
}

func (r *SummaryRepo) loadSummary(ctx context.Context, where string, arg any) (*model.PullRequestSummary, error) {
	pr, err := r.scanPullRequest(ctx, where, arg)
	if err != nil {
		return nil, err
	}
	if pr == nil {
		return nil, nil
	}

	builds, err := r.loadBuilds(ctx, pr.ID)
	if err != nil {
		return nil, err
	}

	return &model.PullRequestSummary{PullRequest: *pr, Builds: builds}, nil
}

func (r *SummaryRepo) scanPullRequest(ctx context.Context, where string, arg any) (*model.PullRequest, error) {
	query := `SELECT id, number, title, state, merged, merged_by, creator_id,
		head_sha, base_sha, head_repo_id, base_repo_id, head_branch, base_branch,
		created_at, updated_at, merged_at, closed_at
		FROM pull_requests ` + where

	var pr model.PullRequest
	var merged int
	var mergedBy sql.NullInt64
	var createdAt, updatedAt string
	var mergedAt, closedAt sql.NullString

	err := r.db.Reader.QueryRowContext(ctx, query, arg).Scan(
		&pr.ID, &pr.Number, &pr.Title, (*string)(&pr.State), &merged, &mergedBy,
		&pr.CreatorID, &pr.HeadSHA, &pr.BaseSHA, &pr.HeadRepoID, &pr.BaseRepoID,
		&pr.HeadBranch, &pr.BaseBranch, &createdAt, &updatedAt, &mergedAt, &closedAt,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("load pull request: %w", err)
	}

	pr.Merged = merged != 0
	if mergedBy.Valid {
		pr.MergedByID = &mergedBy.Int64
	}
	if pr.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if pr.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if pr.MergedAt, err = parseTimePtr(mergedAt); err != nil {
		return nil, fmt.Errorf("parse merged_at: %w", err)
	}
	if pr.ClosedAt, err = parseTimePtr(closedAt); err != nil {
		return nil, fmt.Errorf("parse closed_at: %w", err)
	}

	return &pr, nil
}

func (r *SummaryRepo) loadBuilds(ctx context.Context, prID int64) ([]model.BuildDetail, error) {
	rows, err := r.db.Reader.QueryContext(ctx,
		`SELECT id, number, pull_request_id, head_sha, base_sha, status, started_at, finished_at
		 FROM builds WHERE pull_request_id = ? ORDER BY number`, prID,
	)
	if err != nil {
		return nil, fmt.Errorf("load builds for pull request %d: %w", prID, err)
	}
	defer rows.Close()

	var builds []model.BuildDetail
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}

		jobs, err := r.loadJobs(ctx, b.ID)
		if err != nil {
			return nil, err
		}

		builds = append(builds, model.BuildDetail{Build: *b, Jobs: jobs})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builds: %w", err)
	}

	return builds, nil
}

func scanBuild(s scanner) (*model.Build, error) {
	var b model.Build
	var prID sql.NullInt64
	var startedAt string
	var finishedAt sql.NullString

	err := s.Scan(&b.ID, &b.Number, &prID, &b.HeadSHA, &b.BaseSHA,
		(*string)(&b.Status), &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	if prID.Valid {
		b.PullRequestID = &prID.Int64
	}
	if b.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if b.FinishedAt, err = parseTimePtr(finishedAt); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}

	return &b, nil
}

func (r *SummaryRepo) loadJobs(ctx context.Context, buildID int64) ([]model.JobDetail, error) {
	rows, err := r.db.Reader.QueryContext(ctx,
		`SELECT j.id, j.number, j.build_id, j.product_id, j.state, j.allow_failure,
			j.started_at, j.finished_at, p.name
		 FROM jobs j JOIN products p ON p.id = j.product_id
		 WHERE j.build_id = ? ORDER BY j.number`, buildID,
	)
	if err != nil {
		return nil, fmt.Errorf("load jobs for build %d: %w", buildID, err)
	}
	defer rows.Close()

	var jobs []model.JobDetail
	for rows.Next() {
		var j model.Job
		var allowFailure int
		var startedAt string
		var finishedAt sql.NullString
		var productName string

		err := rows.Scan(&j.ID, &j.Number, &j.BuildID, &j.ProductID,
			(*string)(&j.State), &allowFailure, &startedAt, &finishedAt, &productName)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}

		j.AllowFailure = allowFailure != 0
		if j.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if j.FinishedAt, err = parseTimePtr(finishedAt); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}

		jobs = append(jobs, model.JobDetail{Job: j, ProductName: productName})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}

	return jobs, nil
}

// TestChildren returns the direct subtests of the given test, ordered by id.
func (r *SummaryRepo) TestChildren(ctx context.Context, testID string) ([]model.Test, error) {
	rows, err := r.db.Reader.QueryContext(ctx,
		`SELECT id, parent_id FROM tests WHERE parent_id = ? ORDER BY id`, testID,
	)
	if err != nil {
		return nil, fmt.Errorf("load subtests of %q: %w", testID, err)
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		var t model.Test
		var parentID sql.NullString
		if err := rows.Scan(&t.ID, &parentID); err != nil {
			return nil, fmt.Errorf("scan test: %w", err)
		}
		if parentID.Valid {
			t.ParentID = &parentID.String
		}
		tests = append(tests, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tests: %w", err)
	}

	return tests, nil
}

// TestAncestors walks parent links from the given test up to the root,
// returning ancestors nearest-first. The walk is iterative and keeps a visited
// set: a parent cycle in the data terminates the walk with an error instead of
// looping.
func (r *SummaryRepo) TestAncestors(ctx context.Context, testID string) ([]model.Test, error) {
	visited := map[string]bool{testID: true}
	var ancestors []model.Test

	current := testID
	for {
		var parentID sql.NullString
		err := r.db.Reader.QueryRowContext(ctx,
			`SELECT parent_id FROM tests WHERE id = ?`, current,
		).Scan(&parentID)
		switch {
		case errors.Is(err, sql.ErrNoRows), err == nil && !parentID.Valid:
			// Fill in the parent links now that the chain is known: each
			// ancestor's parent is the one that follows it in the slice.
			for i := range ancestors {
				if i+1 < len(ancestors) {
					ancestors[i].ParentID = &ancestors[i+1].ID
				}
			}
			return ancestors, nil
		case err != nil:
			return nil, fmt.Errorf("load test %q: %w", current, err)
		}

		if visited[parentID.String] {
			return nil, fmt.Errorf("test hierarchy cycle at %q", parentID.String)
		}
		visited[parentID.String] = true

		ancestors = append(ancestors, model.Test{ID: parentID.String})
		current = parentID.String
	}
}
