package model

import "time"

// Build is one Travis CI build run against a pull request's head commit.
// PullRequestID is nullable until the build has been attached to a known pull
// request. FinishedAt is nil while the build is still running.
type Build struct {
	ID            int64
	Number        int
	PullRequestID *int64
	HeadSHA       string
	BaseSHA       string
	Status        BuildStatus
	StartedAt     time.Time
	FinishedAt    *time.Time
}
