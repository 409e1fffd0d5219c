package model

// Repository is a GitHub repository acting as the head or base side of a pull
// request. Repositories can be renamed or transferred, so Name and OwnerID are
// refreshed on every webhook that mentions them.
type Repository struct {
	ID      int64
	Name    string
	OwnerID int64
}
