package application

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/bobholt/wptdash/internal/domain/model"
)

// productPattern extracts the product name from a job's environment, e.g.
// "PRODUCT=chrome:unstable". Jobs without a product tag cannot be attributed
// and are skipped.
var productPattern = regexp.MustCompile(`PRODUCT=([\w:]+)`)

// BuildEvent is the Travis build webhook payload, carried as a JSON string in
// the "payload" form field.
type BuildEvent struct {
	ID                *int64            `json:"id"`
	Number            *string           `json:"number"`
	HeadCommit        *string           `json:"head_commit"`
	BaseCommit        *string           `json:"base_commit"`
	PullRequest       *bool             `json:"pull_request"`
	PullRequestNumber *int              `json:"pull_request_number"`
	StatusMessage     *string           `json:"status_message"`
	StartedAt         *Timestamp        `json:"started_at"`
	FinishedAt        NullableTimestamp `json:"finished_at"`
	Repository        *BuildRepoPayload `json:"repository"`
	Matrix            []MatrixPayload   `json:"matrix"`
}

// BuildRepoPayload identifies the repository a build ran against.
type BuildRepoPayload struct {
	Name      *string `json:"name"`
	OwnerName *string `json:"owner_name"`
}

// MatrixPayload is one job descriptor of the build's matrix.
type MatrixPayload struct {
	ID           *int64            `json:"id"`
	Number       *string           `json:"number"`
	State        *string           `json:"state"`
	StartedAt    *Timestamp        `json:"started_at"`
	FinishedAt   NullableTimestamp `json:"finished_at"`
	Config       *JobConfigPayload `json:"config"`
	AllowFailure *bool             `json:"allow_failure"`
}

// JobConfigPayload is the subset of the free-form build config this service
// inspects.
type JobConfigPayload struct {
	Env EnvList `json:"env"`
}

// EnvList accepts Travis env configuration in both of its wire shapes: a
// single string or an array of strings.
type EnvList []string

func (e *EnvList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*e = EnvList{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("env must be a string or an array of strings")
	}
	*e = EnvList(many)
	return nil
}

// ProductName scans the job's env entries for a PRODUCT tag and returns the
// product name, or false when the job carries none.
func (m *MatrixPayload) ProductName() (string, bool) {
	if m.Config == nil {
		return "", false
	}
	for _, entry := range m.Config.Env {
		if match := productPattern.FindStringSubmatch(entry); match != nil {
			return match[1], true
		}
	}
	return "", false
}

// Validate returns the list of schema violations, empty when the payload is
// acceptable.
func (e *BuildEvent) Validate() []string {
	var v []string

	if e.ID == nil {
		v = append(v, "id is required")
	}
	if e.Number == nil {
		v = append(v, "number is required")
	} else if _, err := strconv.Atoi(*e.Number); err != nil {
		v = append(v, "number must be an integer")
	}
	if e.HeadCommit == nil {
		v = append(v, "head_commit is required")
	}
	if e.BaseCommit == nil {
		v = append(v, "base_commit is required")
	}
	if e.PullRequest == nil {
		v = append(v, "pull_request is required")
	}
	if e.PullRequestNumber == nil {
		v = append(v, "pull_request_number is required")
	}
	if e.StatusMessage == nil {
		v = append(v, "status_message is required")
	} else if _, err := model.ParseBuildStatus(*e.StatusMessage); err != nil {
		v = append(v, fmt.Sprintf("status_message %q is not a known build status", *e.StatusMessage))
	}
	if e.StartedAt == nil {
		v = append(v, "started_at is required")
	}
	if !e.FinishedAt.Present {
		v = append(v, "finished_at is required")
	}
	switch {
	case e.Repository == nil:
		v = append(v, "repository is required")
	default:
		if e.Repository.Name == nil {
			v = append(v, "repository.name is required")
		}
		if e.Repository.OwnerName == nil {
			v = append(v, "repository.owner_name is required")
		}
	}

	for i := range e.Matrix {
		v = append(v, e.Matrix[i].validate(fmt.Sprintf("matrix[%d]", i))...)
	}

	return v
}

func (m *MatrixPayload) validate(path string) []string {
	var v []string

	if m.ID == nil {
		v = append(v, path+".id is required")
	}
	if m.Number == nil {
		v = append(v, path+".number is required")
	} else if _, err := strconv.ParseFloat(*m.Number, 64); err != nil {
		v = append(v, path+".number must be numeric")
	}
	if m.State == nil {
		v = append(v, path+".state is required")
	} else if _, err := model.ParseJobState(*m.State); err != nil {
		v = append(v, fmt.Sprintf("%s.state %q is not a known job state", path, *m.State))
	}
	if m.StartedAt == nil {
		v = append(v, path+".started_at is required")
	}
	if m.Config == nil {
		v = append(v, path+".config is required")
	}
	if m.AllowFailure == nil {
		v = append(v, path+".allow_failure is required")
	}

	return v
}
