package model

// Test is a stability-run test keyed by its path. Sub-tests point at their
// parent through ParentID (adjacency list); traversal helpers on the store are
// iterative so deep or accidentally cyclic data cannot blow the stack.
type Test struct {
	ID       string
	ParentID *string
}

// JobResult associates a job with a test it executed. The (JobID, TestID) pair
// is the primary key: at most one result row per job and test.
type JobResult struct {
	JobID      int64
	TestID     string
	Iterations int
}

// StabilityStatus is one (status, count) bucket of a JobResult, recording how
// often a test finished with a given outcome across stability iterations.
type StabilityStatus struct {
	ID     int64
	JobID  int64
	TestID string
	Status TestStatus
	Count  int
}
