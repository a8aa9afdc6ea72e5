package verify

import (
	"time"
)

// Verdict is the outcome of the gate.
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

// Source says what decided the verdict.
type Source string

const (
	// SourcePolicy means a job outcome policy on TeamServer decided.
	SourcePolicy Source = "policy"
	// SourceThreshold means no policy applied and the open vulnerability count was compared to the threshold.
	SourceThreshold Source = "threshold"
)

// Result describes one run of the gate.
type Result struct {
	RunID   string  `json:"run_id"`
	Verdict Verdict `json:"verdict"`
	Source  Source  `json:"source"`
	Message string  `json:"message"`

	AppID       string `json:"app_id"`
	AppName     string `json:"app_name,omitempty"`
	BuildNumber string `json:"build_number,omitempty"`

	PolicyName    string `json:"policy_name,omitempty"`
	PolicyOutcome string `json:"policy_outcome,omitempty"`

	// VulnerabilityCount is only set when the threshold decided.
	VulnerabilityCount *int     `json:"vulnerability_count,omitempty"`
	Threshold          int      `json:"threshold"`
	Severities         []string `json:"severities"`
	JobStartTime       int64    `json:"job_start_time"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

// Passed reports whether the gate passed.
func (r *Result) Passed() bool {
	return r != nil && r.Verdict == VerdictPass
}

// GateFailedError is returned when the build does not meet the policy or the threshold.
type GateFailedError struct {
	Result *Result
}

func (e *GateFailedError) Error() string {
	return e.Result.Message
}
