// Package exitcode maps the outcome of a verify run to a process exit code.
package exitcode

import (
	"errors"

	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/verify"
)

// 0 = the gate passed
// 1 = the gate failed (policy or threshold)
// 2 = configuration, network or API error
const (
	Success    = 0
	GateFailed = 1
	Error      = 2
)

// FromError converts the error returned by a command to an exit code.
func FromError(err error) int {
	if err == nil {
		return Success
	}
	var failed *verify.GateFailedError
	if errors.As(err, &failed) {
		return GateFailed
	}
	return Error
}

// Description returns a human-readable description of the exit code.
func Description(code int) string {
	switch code {
	case Success:
		return "Contrast verify gate passed"
	case GateFailed:
		return "Contrast verify gate failed"
	case Error:
		return "Configuration, network or API error"
	default:
		return "Unknown exit code"
	}
}
