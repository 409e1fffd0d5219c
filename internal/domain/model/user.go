package model

// GitHubUser is a GitHub account referenced as creator, owner, author, or
// merger. The ID is GitHub's stable numeric identifier; the login is a display
// name that can be renamed upstream and is overwritten on every webhook.
type GitHubUser struct {
	ID    int64
	Login string
}
