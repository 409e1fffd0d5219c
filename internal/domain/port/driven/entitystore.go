// Package driven defines the outbound port interfaces implemented by the
// sqlite, github, and travis adapters.
package driven

import (
	"context"

	"github.com/bobholt/wptdash/internal/domain/model"
)

// EntityStore opens entity sessions. One session corresponds to exactly one
// webhook ingestion and one database transaction.
type EntityStore interface {
	Begin(ctx context.Context) (EntitySession, error)
}

// EntitySession is the upsert engine over the entity graph.
//
// Every GetOrCreate method looks an entity up by its exact natural key and, on
// a miss, registers a new instance with the pending transaction. Repeated
// calls with the same key during one session return the same in-memory
// instance, so callers can wire relationships by mutating the returned struct
// and rely on Commit to persist the final field values. The created flag
// reports whether this session brought the entity into existence.
//
// Nothing is durable until Commit; Rollback discards all staged state.
type EntitySession interface {
	GetOrCreateUser(ctx context.Context, id int64) (*model.GitHubUser, bool, error)
	GetOrCreateCommit(ctx context.Context, sha string) (*model.Commit, bool, error)
	GetOrCreateRepository(ctx context.Context, id int64) (*model.Repository, bool, error)
	GetOrCreatePullRequest(ctx context.Context, id int64) (*model.PullRequest, bool, error)
	GetOrCreateBuild(ctx context.Context, id int64) (*model.Build, bool, error)
	GetOrCreateJob(ctx context.Context, id int64) (*model.Job, bool, error)
	GetOrCreateProduct(ctx context.Context, name string) (*model.Product, bool, error)
	GetOrCreateTest(ctx context.Context, id string) (*model.Test, bool, error)
	GetOrCreateJobResult(ctx context.Context, jobID int64, testID string) (*model.JobResult, bool, error)
	GetOrCreateStabilityStatus(ctx context.Context, jobID int64, testID string, status model.TestStatus) (*model.StabilityStatus, bool, error)

	// FindPullRequestForBuild returns the pull request matching the given
	// number and head/base commit pair, or nil when no such pull request
	// exists. It never creates.
	FindPullRequestForBuild(ctx context.Context, number int, headSHA, baseSHA string) (*model.PullRequest, error)

	Commit(ctx context.Context) error
	Rollback() error
}
