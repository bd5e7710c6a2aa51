package domain

import "errors"

// Sentinel errors forming the shipctl failure taxonomy. Stages wrap these with
// fmt.Errorf("%w") so callers can classify failures with errors.Is.
var (
	// ErrInvalidSpec marks a DeploymentSpec that fails validation. Never retried.
	ErrInvalidSpec = errors.New("invalid spec")
	// ErrBuildFailure marks a failed image build. Builds are deterministic for
	// fixed inputs, so this is never retried.
	ErrBuildFailure = errors.New("build failure")
	// ErrPublishFailure marks a registry push that exhausted its retries.
	ErrPublishFailure = errors.New("publish failure")
	// ErrApplyConflict marks an optimistic-concurrency conflict that survived
	// the single fresh-read retry.
	ErrApplyConflict = errors.New("apply conflict")
	// ErrClusterUnreachable marks a cluster API call that failed at the
	// transport level rather than with a typed API error.
	ErrClusterUnreachable = errors.New("cluster unreachable")
	// ErrPollTimeout marks a poll that hit its deadline before the deployment
	// became healthy. A terminal status, reported distinctly from failure.
	ErrPollTimeout = errors.New("poll timed out")
	// ErrPollFailed marks a poll aborted after repeated query errors.
	ErrPollFailed = errors.New("poll failed")
	// ErrCancelled marks an operation aborted by external cancellation.
	ErrCancelled = errors.New("cancelled")
)
