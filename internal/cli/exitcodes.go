package cli

import (
	"errors"

	"github.com/echoship/shipctl/internal/domain"
)

// Exit codes, one per failure kind, so callers can branch on what went wrong
// without parsing log output.
const (
	ExitOK                 = 0
	ExitGeneric            = 1
	ExitInvalidSpec        = 2
	ExitBuildFailure       = 3
	ExitPublishFailure     = 4
	ExitApplyConflict      = 5
	ExitClusterUnreachable = 6
	ExitPollTimeout        = 7
	ExitPollFailed         = 8
	ExitCancelled          = 9
)

// ExitCode maps an error onto the process exit code for its failure kind.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, domain.ErrInvalidSpec):
		return ExitInvalidSpec
	case errors.Is(err, domain.ErrBuildFailure):
		return ExitBuildFailure
	case errors.Is(err, domain.ErrPublishFailure):
		return ExitPublishFailure
	case errors.Is(err, domain.ErrApplyConflict):
		return ExitApplyConflict
	case errors.Is(err, domain.ErrClusterUnreachable):
		return ExitClusterUnreachable
	case errors.Is(err, domain.ErrPollTimeout):
		return ExitPollTimeout
	case errors.Is(err, domain.ErrPollFailed):
		return ExitPollFailed
	case errors.Is(err, domain.ErrCancelled):
		return ExitCancelled
	default:
		return ExitGeneric
	}
}
