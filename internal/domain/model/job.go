package model

import "time"

// Job is one matrix entry of a Travis build. Number is fractional ("2064.1"):
// the integer part is the build number, the fraction the job's position.
type Job struct {
	ID           int64
	Number       float64
	BuildID      int64
	ProductID    int64
	State        JobState
	AllowFailure bool
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// Product is a named test target (for example a browser/version string such as
// "chrome:unstable"), deduplicated by name. The ID is assigned locally.
type Product struct {
	ID   int64
	Name string
}
