package model

import "time"

// PullRequest is the normalized record of a GitHub pull request. The ID is
// GitHub's global identifier; Number is the human-facing, repository-scoped
// number that Travis payloads and the comment API refer to.
//
// Every field except MergedByID, MergedAt, and ClosedAt is required; a missing
// value is a data-integrity violation, not a soft default. The record always
// reflects the latest webhook-reported state, not history.
type PullRequest struct {
	ID         int64
	Number     int
	Title      string
	State      PRState
	Merged     bool
	MergedByID *int64
	CreatorID  int64
	HeadSHA    string
	BaseSHA    string
	HeadRepoID int64
	BaseRepoID int64
	HeadBranch string
	BaseBranch string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	MergedAt   *time.Time
	ClosedAt   *time.Time
}
