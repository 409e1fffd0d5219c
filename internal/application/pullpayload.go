package application

import (
	"github.com/bobholt/wptdash/internal/domain/model"
)

// PullRequestEvent is the GitHub pull_request webhook payload. Required fields
// are pointers so a missing key is distinguishable from a zero value; Validate
// collects every violation before any persistence is attempted.
type PullRequestEvent struct {
	PullRequest *PullRequestPayload `json:"pull_request"`
	Sender      *UserPayload        `json:"sender"`
}

// UserPayload is a GitHub user object embedded in webhook payloads.
type UserPayload struct {
	ID    *int64  `json:"id"`
	Login *string `json:"login"`
}

// RepoPayload is a GitHub repository object embedded in webhook payloads.
type RepoPayload struct {
	ID    *int64       `json:"id"`
	Name  *string      `json:"name"`
	Owner *UserPayload `json:"owner"`
}

// RefPayload is the head or base side of a pull request.
type RefPayload struct {
	SHA  *string      `json:"sha"`
	Ref  *string      `json:"ref"`
	User *UserPayload `json:"user"`
	Repo *RepoPayload `json:"repo"`
}

// PullRequestPayload is the pull_request object of the webhook.
type PullRequestPayload struct {
	ID        *int64       `json:"id"`
	Number    *int         `json:"number"`
	Title     *string      `json:"title"`
	State     *string      `json:"state"`
	Merged    *bool        `json:"merged"`
	MergedBy  *UserPayload `json:"merged_by"`
	Head      *RefPayload  `json:"head"`
	Base      *RefPayload  `json:"base"`
	CreatedAt *Timestamp   `json:"created_at"`
	UpdatedAt *Timestamp   `json:"updated_at"`
	MergedAt  *Timestamp   `json:"merged_at"`
	ClosedAt  *Timestamp   `json:"closed_at"`
}

// Validate returns the list of schema violations, empty when the payload is
// acceptable.
func (e *PullRequestEvent) Validate() []string {
	var v []string

	if e.Sender == nil {
		v = append(v, "sender is required")
	} else if e.Sender.ID == nil {
		v = append(v, "sender.id is required")
	}

	pr := e.PullRequest
	if pr == nil {
		return append(v, "pull_request is required")
	}

	if pr.ID == nil {
		v = append(v, "pull_request.id is required")
	}
	if pr.Number == nil {
		v = append(v, "pull_request.number is required")
	}
	if pr.Title == nil {
		v = append(v, "pull_request.title is required")
	}
	if pr.Merged == nil {
		v = append(v, "pull_request.merged is required")
	}
	if pr.State == nil {
		v = append(v, "pull_request.state is required")
	} else if _, err := model.ParsePRState(*pr.State); err != nil {
		v = append(v, "pull_request.state must be one of open, closed")
	}
	if pr.CreatedAt == nil {
		v = append(v, "pull_request.created_at is required")
	}
	if pr.UpdatedAt == nil {
		v = append(v, "pull_request.updated_at is required")
	}
	if pr.MergedBy != nil && pr.MergedBy.ID == nil {
		v = append(v, "pull_request.merged_by.id is required")
	}

	v = append(v, validateRef("pull_request.head", pr.Head)...)
	v = append(v, validateRef("pull_request.base", pr.Base)...)

	return v
}

func validateRef(path string, ref *RefPayload) []string {
	if ref == nil {
		return []string{path + " is required"}
	}

	var v []string
	if ref.SHA == nil {
		v = append(v, path+".sha is required")
	}
	if ref.Ref == nil {
		v = append(v, path+".ref is required")
	}
	if ref.User == nil {
		v = append(v, path+".user is required")
	} else if ref.User.ID == nil {
		v = append(v, path+".user.id is required")
	}
	switch {
	case ref.Repo == nil:
		v = append(v, path+".repo is required")
	default:
		if ref.Repo.ID == nil {
			v = append(v, path+".repo.id is required")
		}
		if ref.Repo.Owner == nil {
			v = append(v, path+".repo.owner is required")
		} else if ref.Repo.Owner.ID == nil {
			v = append(v, path+".repo.owner.id is required")
		}
	}
	return v
}
