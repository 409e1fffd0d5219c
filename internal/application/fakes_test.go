package application

import (
	"context"
	"errors"

	"github.com/bobholt/wptdash/internal/domain/model"
	"github.com/bobholt/wptdash/internal/domain/port/driven"
)

// --- Fake entity store ---

// fakeStore is an in-memory EntityStore. Committed state lives in the store
// maps; a session stages its own instances and publishes them on Commit, so
// rollback semantics match the real adapter closely enough for service tests.
type fakeStore struct {
	users       map[int64]*model.GitHubUser
	commits     map[string]*model.Commit
	repos       map[int64]*model.Repository
	pulls       map[int64]*model.PullRequest
	builds      map[int64]*model.Build
	jobs        map[int64]*model.Job
	products    map[string]*model.Product
	nextProduct int64

	beginErr    error
	commitErr   error
	commitCount int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[int64]*model.GitHubUser),
		commits:  make(map[string]*model.Commit),
		repos:    make(map[int64]*model.Repository),
		pulls:    make(map[int64]*model.PullRequest),
		builds:   make(map[int64]*model.Build),
		jobs:     make(map[int64]*model.Job),
		products: make(map[string]*model.Product),
	}
}

func (f *fakeStore) Begin(_ context.Context) (driven.EntitySession, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return &fakeSession{
		store:    f,
		users:    make(map[int64]*model.GitHubUser),
		commits:  make(map[string]*model.Commit),
		repos:    make(map[int64]*model.Repository),
		pulls:    make(map[int64]*model.PullRequest),
		builds:   make(map[int64]*model.Build),
		jobs:     make(map[int64]*model.Job),
		products: make(map[string]*model.Product),
	}, nil
}

type fakeSession struct {
	store    *fakeStore
	users    map[int64]*model.GitHubUser
	commits  map[string]*model.Commit
	repos    map[int64]*model.Repository
	pulls    map[int64]*model.PullRequest
	builds   map[int64]*model.Build
	jobs     map[int64]*model.Job
	products map[string]*model.Product
	done     bool
}

func (s *fakeSession) GetOrCreateUser(_ context.Context, id int64) (*model.GitHubUser, bool, error) {
	if u, ok := s.users[id]; ok {
		return u, false, nil
	}
	if stored, ok := s.store.users[id]; ok {
		u := *stored
		s.users[id] = &u
		return &u, false, nil
	}
	u := &model.GitHubUser{ID: id}
	s.users[id] = u
	return u, true, nil
}

func (s *fakeSession) GetOrCreateCommit(_ context.Context, sha string) (*model.Commit, bool, error) {
	if c, ok := s.commits[sha]; ok {
		return c, false, nil
	}
	if stored, ok := s.store.commits[sha]; ok {
		c := *stored
		s.commits[sha] = &c
		return &c, false, nil
	}
	c := &model.Commit{SHA: sha}
	s.commits[sha] = c
	return c, true, nil
}

func (s *fakeSession) GetOrCreateRepository(_ context.Context, id int64) (*model.Repository, bool, error) {
	if r, ok := s.repos[id]; ok {
		return r, false, nil
	}
	if stored, ok := s.store.repos[id]; ok {
		r := *stored
		s.repos[id] = &r
		return &r, false, nil
	}
	r := &model.Repository{ID: id}
	s.repos[id] = r
	return r, true, nil
}

func (s *fakeSession) GetOrCreatePullRequest(_ context.Context, id int64) (*model.PullRequest, bool, error) {
	if pr, ok := s.pulls[id]; ok {
		return pr, false, nil
	}
	if stored, ok := s.store.pulls[id]; ok {
		pr := *stored
		s.pulls[id] = &pr
		return &pr, false, nil
	}
	pr := &model.PullRequest{ID: id}
	s.pulls[id] = pr
	return pr, true, nil
}

func (s *fakeSession) FindPullRequestForBuild(_ context.Context, number int, headSHA, baseSHA string) (*model.PullRequest, error) {
	for _, pr := range s.pulls {
		if pr.Number == number && pr.HeadSHA == headSHA && pr.BaseSHA == baseSHA {
			return pr, nil
		}
	}
	for _, stored := range s.store.pulls {
		if stored.Number == number && stored.HeadSHA == headSHA && stored.BaseSHA == baseSHA {
			pr := *stored
			s.pulls[pr.ID] = &pr
			return &pr, nil
		}
	}
	return nil, nil
}

func (s *fakeSession) GetOrCreateBuild(_ context.Context, id int64) (*model.Build, bool, error) {
	if b, ok := s.builds[id]; ok {
		return b, false, nil
	}
	if stored, ok := s.store.builds[id]; ok {
		b := *stored
		s.builds[id] = &b
		return &b, false, nil
	}
	b := &model.Build{ID: id}
	s.builds[id] = b
	return b, true, nil
}

func (s *fakeSession) GetOrCreateJob(_ context.Context, id int64) (*model.Job, bool, error) {
	if j, ok := s.jobs[id]; ok {
		return j, false, nil
	}
	if stored, ok := s.store.jobs[id]; ok {
		j := *stored
		s.jobs[id] = &j
		return &j, false, nil
	}
	j := &model.Job{ID: id}
	s.jobs[id] = j
	return j, true, nil
}

func (s *fakeSession) GetOrCreateProduct(_ context.Context, name string) (*model.Product, bool, error) {
	if p, ok := s.products[name]; ok {
		return p, false, nil
	}
	if stored, ok := s.store.products[name]; ok {
		p := *stored
		s.products[name] = &p
		return &p, false, nil
	}
	s.store.nextProduct++
	p := &model.Product{ID: s.store.nextProduct, Name: name}
	s.products[name] = p
	return p, true, nil
}

func (s *fakeSession) GetOrCreateTest(_ context.Context, id string) (*model.Test, bool, error) {
	return &model.Test{ID: id}, true, nil
}

func (s *fakeSession) GetOrCreateJobResult(_ context.Context, jobID int64, testID string) (*model.JobResult, bool, error) {
	return &model.JobResult{JobID: jobID, TestID: testID}, true, nil
}

func (s *fakeSession) GetOrCreateStabilityStatus(_ context.Context, jobID int64, testID string, status model.TestStatus) (*model.StabilityStatus, bool, error) {
	return &model.StabilityStatus{JobID: jobID, TestID: testID, Status: status}, true, nil
}

func (s *fakeSession) Commit(_ context.Context) error {
	if s.store.commitErr != nil {
		return s.store.commitErr
	}
	if s.done {
		return errors.New("session already finished")
	}
	s.done = true

	for id, u := range s.users {
		s.store.users[id] = u
	}
	for sha, c := range s.commits {
		s.store.commits[sha] = c
	}
	for id, r := range s.repos {
		s.store.repos[id] = r
	}
	for id, pr := range s.pulls {
		s.store.pulls[id] = pr
	}
	for id, b := range s.builds {
		s.store.builds[id] = b
	}
	for id, j := range s.jobs {
		s.store.jobs[id] = j
	}
	for name, p := range s.products {
		s.store.products[name] = p
	}

	s.store.commitCount++
	return nil
}

func (s *fakeSession) Rollback() error {
	s.done = true
	return nil
}

// --- Fake summary store ---

type fakeSummaryStore struct {
	byNumber map[int]*model.PullRequestSummary
	err      error
}

func (f *fakeSummaryStore) PullRequestByNumber(_ context.Context, number int) (*model.PullRequestSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byNumber[number], nil
}

func (f *fakeSummaryStore) PullRequestByID(_ context.Context, id int64) (*model.PullRequestSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, s := range f.byNumber {
		if s.PullRequest.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

// --- Fake commenter ---

type postedComment struct {
	prNumber int
	body     string
}

type fakeCommenter struct {
	posted []postedComment
	err    error
}

func (f *fakeCommenter) PostComment(_ context.Context, prNumber int, body string) error {
	if f.err != nil {
		return f.err
	}
	f.posted = append(f.posted, postedComment{prNumber: prNumber, body: body})
	return nil
}

// --- Fake verifier ---

type fakeVerifier struct {
	err      error
	payloads [][]byte
}

func (f *fakeVerifier) Verify(_ context.Context, payload []byte, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, payload)
	return nil
}
