package model

// Commit is a git commit keyed by its content hash. The author is unknown when
// the commit is first seen through a Travis payload, so UserID is nullable.
type Commit struct {
	SHA    string
	UserID *int64
}
