package model

// JobDetail is a job joined with its product name for display.
type JobDetail struct {
	Job         Job
	ProductName string
}

// BuildDetail is a build with its jobs, ordered by job number.
type BuildDetail struct {
	Build Build
	Jobs  []JobDetail
}

// PullRequestSummary is the aggregate read model handed to the comment
// dispatcher and the detail page: a pull request plus everything built for it.
type PullRequestSummary struct {
	PullRequest PullRequest
	Builds      []BuildDetail
}
