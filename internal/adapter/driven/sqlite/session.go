package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bobholt/wptdash/internal/domain/model"
	"github.com/bobholt/wptdash/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.EntityStore   = (*Store)(nil)
	_ driven.EntitySession = (*Session)(nil)
)

// Store opens entity sessions on the writer connection.
type Store struct {
	db *DB
}

// NewStore creates a Store backed by the given DB.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Begin starts a session wrapping a single transaction. Foreign-key checks are
// deferred to commit so entities can be registered before the rows they
// reference have their final field values.
func (s *Store) Begin(ctx context.Context) (driven.EntitySession, error) {
	tx, err := s.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "PRAGMA defer_foreign_keys = ON"); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("defer foreign keys: %w", err)
	}

	return &Session{
		tx:         tx,
		users:      make(map[int64]*model.GitHubUser),
		commits:    make(map[string]*model.Commit),
		repos:      make(map[int64]*model.Repository),
		pulls:      make(map[int64]*model.PullRequest),
		builds:     make(map[int64]*model.Build),
		jobs:       make(map[int64]*model.Job),
		products:   make(map[string]*model.Product),
		tests:      make(map[string]*model.Test),
		jobResults: make(map[jobResultKey]*model.JobResult),
		stability:  make(map[stabilityKey]*model.StabilityStatus),
	}, nil
}

type jobResultKey struct {
	jobID  int64
	testID string
}

type stabilityKey struct {
	jobID  int64
	testID string
	status model.TestStatus
}

// Session implements the EntitySession port. Each entity type has an identity
// map keyed by its natural key: a second lookup for the same key returns the
// cached instance, which is how callers wire relationships without creating
// duplicates. New entities are registered with the transaction immediately
// (minimal row); their final field values are written by Commit.
type Session struct {
	tx *sql.Tx

	users      map[int64]*model.GitHubUser
	commits    map[string]*model.Commit
	repos      map[int64]*model.Repository
	pulls      map[int64]*model.PullRequest
	builds     map[int64]*model.Build
	jobs       map[int64]*model.Job
	products   map[string]*model.Product
	tests      map[string]*model.Test
	jobResults map[jobResultKey]*model.JobResult
	stability  map[stabilityKey]*model.StabilityStatus
}

// GetOrCreateUser resolves a GitHub user by id.
func (s *Session) GetOrCreateUser(ctx context.Context, id int64) (*model.GitHubUser, bool, error) {
	if u, ok := s.users[id]; ok {
		return u, false, nil
	}

	u := &model.GitHubUser{ID: id}
	err := s.tx.QueryRowContext(ctx,
		`SELECT login FROM github_users WHERE id = ?`, id,
	).Scan(&u.Login)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.tx.ExecContext(ctx,
			`INSERT INTO github_users (id, login) VALUES (?, '')`, id,
		); err != nil {
			return nil, false, fmt.Errorf("insert user %d: %w", id, err)
		}
		s.users[id] = u
		return u, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("lookup user %d: %w", id, err)
	}

	s.users[id] = u
	return u, false, nil
}

// GetOrCreateCommit resolves a commit by sha.
func (s *Session) GetOrCreateCommit(ctx context.Context, sha string) (*model.Commit, bool, error) {
	if c, ok := s.commits[sha]; ok {
		return c, false, nil
	}

	c := &model.Commit{SHA: sha}
	var userID sql.NullInt64
	err := s.tx.QueryRowContext(ctx,
		`SELECT user_id FROM commits WHERE sha = ?`, sha,
	).Scan(&userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.tx.ExecContext(ctx,
			`INSERT INTO commits (sha, user_id) VALUES (?, NULL)`, sha,
		); err != nil {
			return nil, false, fmt.Errorf("insert commit %s: %w", sha, err)
		}
		s.commits[sha] = c
		return c, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("lookup commit %s: %w", sha, err)
	}

	if userID.Valid {
		c.UserID = &userID.Int64
	}
	s.commits[sha] = c
	return c, false, nil
}

// GetOrCreateRepository resolves a repository by id.
func (s *Session) GetOrCreateRepository(ctx context.Context, id int64) (*model.Repository, bool, error) {
	if r, ok := s.repos[id]; ok {
		return r, false, nil
	}

	r := &model.Repository{ID: id}
	err := s.tx.QueryRowContext(ctx,
		`SELECT name, owner_id FROM repositories WHERE id = ?`, id,
	).Scan(&r.Name, &r.OwnerID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.tx.ExecContext(ctx,
			`INSERT INTO repositories (id, name, owner_id) VALUES (?, '', 0)`, id,
		); err != nil {
			return nil, false, fmt.Errorf("insert repository %d: %w", id, err)
		}
		s.repos[id] = r
		return r, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("lookup repository %d: %w", id, err)
	}

	s.repos[id] = r
	return r, false, nil
}

// GetOrCreatePullRequest resolves a pull request by its GitHub id.
func (s *Session) GetOrCreatePullRequest(ctx context.Context, id int64) (*model.PullRequest, bool, error) {
	if pr, ok := s.pulls[id]; ok {
		return pr, false, nil
	}

	pr, err := s.scanPullRequest(ctx, `WHERE id = ?`, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.tx.ExecContext(ctx,
			`INSERT INTO pull_requests (
				id, number, title, state, merged, creator_id,
				head_sha, base_sha, head_repo_id, base_repo_id,
				head_branch, base_branch, created_at, updated_at
			) VALUES (?, 0, '', '', 0, 0, '', '', 0, 0, '', '', '', '')`, id,
		); err != nil {
			return nil, false, fmt.Errorf("insert pull request %d: %w", id, err)
		}
		pr = &model.PullRequest{ID: id}
		s.pulls[id] = pr
		return pr, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("lookup pull request %d: %w", id, err)
	}

	s.pulls[pr.ID] = pr
	return pr, false, nil
}

// FindPullRequestForBuild returns the pull request with the given number and
// head/base commit pair, or nil when none exists. Never creates.
func (s *Session) FindPullRequestForBuild(ctx context.Context, number int, headSHA, baseSHA string) (*model.PullRequest, error) {
	pr, err := s.scanPullRequest(ctx,
		`WHERE number = ? AND head_sha = ? AND base_sha = ?`,
		number, headSHA, baseSHA,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("find pull request #%d (%s..%s): %w", number, baseSHA, headSHA, err)
	}

	// An instance already resolved in this session stays authoritative.
	if cached, ok := s.pulls[pr.ID]; ok {
		return cached, nil
	}
	s.pulls[pr.ID] = pr
	return pr, nil
}

func (s *Session) scanPullRequest(ctx context.Context, where string, args ...any) (*model.PullRequest, error) {
	query := `SELECT id, number, title, state, merged, merged_by, creator_id,
		head_sha, base_sha, head_repo_id, base_repo_id, head_branch, base_branch,
		created_at, updated_at, merged_at, closed_at
		FROM pull_requests ` + where

	var pr model.PullRequest
	var merged int
	var mergedBy sql.NullInt64
	var createdAt, updatedAt string
	var mergedAt, closedAt sql.NullString

	err := s.tx.QueryRowContext(ctx, query, args...).Scan(
		&pr.ID, &pr.Number, &pr.Title, (*string)(&pr.State), &merged, &mergedBy,
		&pr.CreatorID, &pr.HeadSHA, &pr.BaseSHA, &pr.HeadRepoID, &pr.BaseRepoID,
		&pr.HeadBranch, &pr.BaseBranch, &createdAt, &updatedAt, &mergedAt, &closedAt,
	)
	if err != nil {
		return nil, err
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

// GetOrCreateBuild resolves a build by its Travis id.
func (s *Session) GetOrCreateBuild(ctx context.Context, id int64) (*model.Build, bool, error) {
	if b, ok := s.builds[id]; ok {
		return b, false, nil
	}

	b := &model.Build{ID: id}
	var prID sql.NullInt64
	var startedAt string
	var finishedAt sql.NullString
	err := s.tx.QueryRowContext(ctx,
		`SELECT number, pull_request_id, head_sha, base_sha, status, started_at, finished_at
		 FROM builds WHERE id = ?`, id,
	).Scan(&b.Number, &prID, &b.HeadSHA, &b.BaseSHA, (*string)(&b.Status), &startedAt, &finishedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.tx.ExecContext(ctx,
			`INSERT INTO builds (id, number, head_sha, base_sha, status, started_at)
			 VALUES (?, 0, '', '', '', '')`, id,
		); err != nil {
			return nil, false, fmt.Errorf("insert build %d: %w", id, err)
		}
		s.builds[id] = b
		return b, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("lookup build %d: %w", id, err)
	}

	if prID.Valid {
		b.PullRequestID = &prID.Int64
	}
	if b.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, false, fmt.Errorf("parse started_at: %w", err)
	}
	if b.FinishedAt, err = parseTimePtr(finishedAt); err != nil {
		return nil, false, fmt.Errorf("parse finished_at: %w", err)
	}
	s.builds[id] = b
	return b, false, nil
}

// GetOrCreateJob resolves a job by its Travis id.
func (s *Session) GetOrCreateJob(ctx context.Context, id int64) (*model.Job, bool, error) {
	if j, ok := s.jobs[id]; ok {
		return j, false, nil
	}

	j := &model.Job{ID: id}
	var allowFailure int
	var startedAt string
	var finishedAt sql.NullString
	err := s.tx.QueryRowContext(ctx,
		`SELECT number, build_id, product_id, state, allow_failure, started_at, finished_at
		 FROM jobs WHERE id = ?`, id,
	).Scan(&j.Number, &j.BuildID, &j.ProductID, (*string)(&j.State), &allowFailure, &startedAt, &finishedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.tx.ExecContext(ctx,
			`INSERT INTO jobs (id, number, build_id, product_id, state, allow_failure, started_at)
			 VALUES (?, 0, 0, 0, '', 0, '')`, id,
		); err != nil {
			return nil, false, fmt.Errorf("insert job %d: %w", id, err)
		}
		s.jobs[id] = j
		return j, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("lookup job %d: %w", id, err)
	}

	j.AllowFailure = allowFailure != 0
	if j.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, false, fmt.Errorf("parse started_at: %w", err)
	}
	if j.FinishedAt, err = parseTimePtr(finishedAt); err != nil {
		return nil, false, fmt.Errorf("parse finished_at: %w", err)
	}
	s.jobs[id] = j
	return j, false, nil
}

// GetOrCreateProduct resolves a product by name. Products are deduplicated by
// name; the id is assigned by the database on first insert.
func (s *Session) GetOrCreateProduct(ctx context.Context, name string) (*model.Product, bool, error) {
	if p, ok := s.products[name]; ok {
		return p, false, nil
	}

	p := &model.Product{Name: name}
	err := s.tx.QueryRowContext(ctx,
		`SELECT id FROM products WHERE name = ?`, name,
	).Scan(&p.ID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := s.tx.ExecContext(ctx,
			`INSERT INTO products (name) VALUES (?)`, name,
		)
		if err != nil {
			return nil, false, fmt.Errorf("insert product %q: %w", name, err)
		}
		if p.ID, err = res.LastInsertId(); err != nil {
			return nil, false, fmt.Errorf("product %q id: %w", name, err)
		}
		s.products[name] = p
		return p, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("lookup product %q: %w", name, err)
	}

	s.products[name] = p
	return p, false, nil
}

// GetOrCreateTest resolves a stability test by its path id.
func (s *Session) GetOrCreateTest(ctx context.Context, id string) (*model.Test, bool, error) {
	if t, ok := s.tests[id]; ok {
		return t, false, nil
	}

	t := &model.Test{ID: id}
	var parentID sql.NullString
	err := s.tx.QueryRowContext(ctx,
		`SELECT parent_id FROM tests WHERE id = ?`, id,
	).Scan(&parentID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.tx.ExecContext(ctx,
			`INSERT INTO tests (id, parent_id) VALUES (?, NULL)`, id,
		); err != nil {
			return nil, false, fmt.Errorf("insert test %q: %w", id, err)
		}
		s.tests[id] = t
		return t, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("lookup test %q: %w", id, err)
	}

	if parentID.Valid {
		t.ParentID = &parentID.String
	}
	s.tests[id] = t
	return t, false, nil
}

// GetOrCreateJobResult resolves the (job, test) association row. The composite
// primary key guarantees at most one row per pair.
func (s *Session) GetOrCreateJobResult(ctx context.Context, jobID int64, testID string) (*model.JobResult, bool, error) {
	key := jobResultKey{jobID: jobID, testID: testID}
	if jr, ok := s.jobResults[key]; ok {
		return jr, false, nil
	}

	jr := &model.JobResult{JobID: jobID, TestID: testID}
	err := s.tx.QueryRowContext(ctx,
		`SELECT iterations FROM job_results WHERE job_id = ? AND test_id = ?`,
		jobID, testID,
	).Scan(&jr.Iterations)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.tx.ExecContext(ctx,
			`INSERT INTO job_results (job_id, test_id, iterations) VALUES (?, ?, 0)`,
			jobID, testID,
		); err != nil {
			return nil, false, fmt.Errorf("insert job result (%d, %q): %w", jobID, testID, err)
		}
		s.jobResults[key] = jr
		return jr, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("lookup job result (%d, %q): %w", jobID, testID, err)
	}

	s.jobResults[key] = jr
	return jr, false, nil
}

// GetOrCreateStabilityStatus resolves the (status, count) bucket of a job
// result. One bucket exists per (job, test, status) triple.
func (s *Session) GetOrCreateStabilityStatus(ctx context.Context, jobID int64, testID string, status model.TestStatus) (*model.StabilityStatus, bool, error) {
	key := stabilityKey{jobID: jobID, testID: testID, status: status}
	if ss, ok := s.stability[key]; ok {
		return ss, false, nil
	}

	ss := &model.StabilityStatus{JobID: jobID, TestID: testID, Status: status}
	err := s.tx.QueryRowContext(ctx,
		`SELECT id, count FROM stability_statuses WHERE job_id = ? AND test_id = ? AND status = ?`,
		jobID, testID, string(status),
	).Scan(&ss.ID, &ss.Count)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := s.tx.ExecContext(ctx,
			`INSERT INTO stability_statuses (job_id, test_id, status, count) VALUES (?, ?, ?, 0)`,
			jobID, testID, string(status),
		)
		if err != nil {
			return nil, false, fmt.Errorf("insert stability status (%d, %q, %s): %w", jobID, testID, status, err)
		}
		if ss.ID, err = res.LastInsertId(); err != nil {
			return nil, false, fmt.Errorf("stability status id: %w", err)
		}
		s.stability[key] = ss
		return ss, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("lookup stability status (%d, %q, %s): %w", jobID, testID, status, err)
	}

	s.stability[key] = ss
	return ss, false, nil
}

// Commit writes the current field values of every entity resolved during the
// session, then commits the transaction. Deferred foreign-key checks run at
// commit, so an entity left referencing a nonexistent row fails here and the
// whole ingestion is rolled back by the driver.
func (s *Session) Commit(ctx context.Context) error {
	if err := s.flush(ctx); err != nil {
		_ = s.tx.Rollback()
		return err
	}
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards all staged state. Safe to call after Commit; the driver
// reports the transaction as already finished and that error is ignored.
func (s *Session) Rollback() error {
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

func (s *Session) flush(ctx context.Context) error {
	for _, u := range s.users {
		if _, err := s.tx.ExecContext(ctx,
			`UPDATE github_users SET login = ? WHERE id = ?`, u.Login, u.ID,
		); err != nil {
			return fmt.Errorf("flush user %d: %w", u.ID, err)
		}
	}

	for _, c := range s.commits {
		var userID any
		if c.UserID != nil {
			userID = *c.UserID
		}
		if _, err := s.tx.ExecContext(ctx,
			`UPDATE commits SET user_id = ? WHERE sha = ?`, userID, c.SHA,
		); err != nil {
			return fmt.Errorf("flush commit %s: %w", c.SHA, err)
		}
	}

	for _, r := range s.repos {
		if _, err := s.tx.ExecContext(ctx,
			`UPDATE repositories SET name = ?, owner_id = ? WHERE id = ?`,
			r.Name, r.OwnerID, r.ID,
		); err != nil {
			return fmt.Errorf("flush repository %d: %w", r.ID, err)
		}
	}

	for _, pr := range s.pulls {
		var mergedBy any
		if pr.MergedByID != nil {
			mergedBy = *pr.MergedByID
		}
		if _, err := s.tx.ExecContext(ctx,
			`UPDATE pull_requests SET
				number = ?, title = ?, state = ?, merged = ?, merged_by = ?,
				creator_id = ?, head_sha = ?, base_sha = ?, head_repo_id = ?,
				base_repo_id = ?, head_branch = ?, base_branch = ?,
				created_at = ?, updated_at = ?, merged_at = ?, closed_at = ?
			 WHERE id = ?`,
			pr.Number, pr.Title, string(pr.State), boolToInt(pr.Merged), mergedBy,
			pr.CreatorID, pr.HeadSHA, pr.BaseSHA, pr.HeadRepoID,
			pr.BaseRepoID, pr.HeadBranch, pr.BaseBranch,
			fmtTime(pr.CreatedAt), fmtTime(pr.UpdatedAt),
			fmtTimePtr(pr.MergedAt), fmtTimePtr(pr.ClosedAt),
			pr.ID,
		); err != nil {
			return fmt.Errorf("flush pull request %d: %w", pr.ID, err)
		}
	}

	for _, b := range s.builds {
		var prID any
		if b.PullRequestID != nil {
			prID = *b.PullRequestID
		}
		if _, err := s.tx.ExecContext(ctx,
			`UPDATE builds SET
				number = ?, pull_request_id = ?, head_sha = ?, base_sha = ?,
				status = ?, started_at = ?, finished_at = ?
			 WHERE id = ?`,
			b.Number, prID, b.HeadSHA, b.BaseSHA,
			string(b.Status), fmtTime(b.StartedAt), fmtTimePtr(b.FinishedAt),
			b.ID,
		); err != nil {
			return fmt.Errorf("flush build %d: %w", b.ID, err)
		}
	}

	for _, j := range s.jobs {
		if _, err := s.tx.ExecContext(ctx,
			`UPDATE jobs SET
				number = ?, build_id = ?, product_id = ?, state = ?,
				allow_failure = ?, started_at = ?, finished_at = ?
			 WHERE id = ?`,
			j.Number, j.BuildID, j.ProductID, string(j.State),
			boolToInt(j.AllowFailure), fmtTime(j.StartedAt), fmtTimePtr(j.FinishedAt),
			j.ID,
		); err != nil {
			return fmt.Errorf("flush job %d: %w", j.ID, err)
		}
	}

	for _, t := range s.tests {
		var parentID any
		if t.ParentID != nil {
			parentID = *t.ParentID
		}
		if _, err := s.tx.ExecContext(ctx,
			`UPDATE tests SET parent_id = ? WHERE id = ?`, parentID, t.ID,
		); err != nil {
			return fmt.Errorf("flush test %q: %w", t.ID, err)
		}
	}

	for _, jr := range s.jobResults {
		if _, err := s.tx.ExecContext(ctx,
			`UPDATE job_results SET iterations = ? WHERE job_id = ? AND test_id = ?`,
			jr.Iterations, jr.JobID, jr.TestID,
		); err != nil {
			return fmt.Errorf("flush job result (%d, %q): %w", jr.JobID, jr.TestID, err)
		}
	}

	for _, ss := range s.stability {
		if _, err := s.tx.ExecContext(ctx,
			`UPDATE stability_statuses SET count = ? WHERE id = ?`, ss.Count, ss.ID,
		); err != nil {
			return fmt.Errorf("flush stability status %d: %w", ss.ID, err)
		}
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
