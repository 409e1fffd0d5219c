package model

import (
	"fmt"
	"strings"
)

// PRState represents the state of a pull request as reported by GitHub.
type PRState string

const (
	PRStateOpen   PRState = "OPEN"
	PRStateClosed PRState = "CLOSED"
)

// ParsePRState maps a GitHub state string ("open"/"closed", any case) to a
// PRState. Unknown tokens are an error, never a default.
func ParsePRState(s string) (PRState, error) {
	switch PRState(strings.ToUpper(s)) {
	case PRStateOpen:
		return PRStateOpen, nil
	case PRStateClosed:
		return PRStateClosed, nil
	}
	return "", fmt.Errorf("unknown pull request state %q", s)
}

// BuildStatus represents the status of a Travis build.
type BuildStatus string

const (
	BuildPending      BuildStatus = "PENDING"
	BuildPassed       BuildStatus = "PASSED"
	BuildFixed        BuildStatus = "FIXED"
	BuildBroken       BuildStatus = "BROKEN"
	BuildFailed       BuildStatus = "FAILED"
	BuildStillFailing BuildStatus = "STILL_FAILING"
	BuildCancelled    BuildStatus = "CANCELLED"
	BuildErrored      BuildStatus = "ERRORED"
)

// ParseBuildStatus maps a Travis status message ("Passed", "Still Failing", ...)
// to a BuildStatus. Spaces become underscores before uppercasing. Travis spells
// cancellation both "Canceled" and "Cancelled"; both map to BuildCancelled.
func ParseBuildStatus(s string) (BuildStatus, error) {
	token := BuildStatus(strings.ToUpper(strings.ReplaceAll(s, " ", "_")))
	if token == "CANCELED" {
		token = BuildCancelled
	}
	switch token {
	case BuildPending, BuildPassed, BuildFixed, BuildBroken,
		BuildFailed, BuildStillFailing, BuildCancelled, BuildErrored:
		return token, nil
	}
	return "", fmt.Errorf("unknown build status %q", s)
}

// JobState represents the lifecycle state of a single Travis matrix job.
type JobState string

const (
	JobCreated   JobState = "CREATED"
	JobQueued    JobState = "QUEUED"
	JobReceived  JobState = "RECEIVED"
	JobStarted   JobState = "STARTED"
	JobPassed    JobState = "PASSED"
	JobFailed    JobState = "FAILED"
	JobErrored   JobState = "ERRORED"
	JobCancelled JobState = "CANCELLED"
	JobFinished  JobState = "FINISHED"
)

// ParseJobState maps a Travis matrix job state token to a JobState using the
// same normalization as ParseBuildStatus.
func ParseJobState(s string) (JobState, error) {
	token := JobState(strings.ToUpper(strings.ReplaceAll(s, " ", "_")))
	if token == "CANCELED" {
		token = JobCancelled
	}
	switch token {
	case JobCreated, JobQueued, JobReceived, JobStarted,
		JobPassed, JobFailed, JobErrored, JobCancelled, JobFinished:
		return token, nil
	}
	return "", fmt.Errorf("unknown job state %q", s)
}

// TestStatus represents a per-test outcome recorded during a stability run.
type TestStatus string

const (
	TestPass    TestStatus = "PASS"
	TestFail    TestStatus = "FAIL"
	TestOK      TestStatus = "OK"
	TestTimeout TestStatus = "TIMEOUT"
	TestError   TestStatus = "ERROR"
	TestNotRun  TestStatus = "NOTRUN"
	TestCrash   TestStatus = "CRASH"
)

// ParseTestStatus maps a stability result token ("pass", "crash", ...) to a
// TestStatus.
func ParseTestStatus(s string) (TestStatus, error) {
	switch token := TestStatus(strings.ToUpper(s)); token {
	case TestPass, TestFail, TestOK, TestTimeout, TestError, TestNotRun, TestCrash:
		return token, nil
	}
	return "", fmt.Errorf("unknown test status %q", s)
}
