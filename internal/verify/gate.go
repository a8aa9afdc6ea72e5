// Package verify decides whether a build passes the Contrast verify gate.
//
// A job outcome policy configured on TeamServer is authoritative. When no
// policy applies, the open vulnerability count of the application is compared
// with a threshold instead.
package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/severity"
	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/teamserver"
)

// API is the part of TeamServer the gate uses.
type API interface {
	Profile(ctx context.Context) (*teamserver.Profile, error)
	Organizations(ctx context.Context) ([]teamserver.Organization, error)
	Application(ctx context.Context, appID string) (*teamserver.Application, error)
	ApplicationsByName(ctx context.Context, name string) ([]teamserver.Application, error)
	SecurityCheck(ctx context.Context, req teamserver.SecurityCheckRequest) (*teamserver.SecurityCheck, error)
	QuickFilters(ctx context.Context, appID string, params teamserver.QuickFilterParams) ([]teamserver.QuickFilter, error)
	Origin() string
}

// Options are the validated inputs of one gate run.
type Options struct {
	AppID         string
	AppName       string
	BuildNumber   string
	JobStartTime  *int64
	Severities    []severity.Level
	FailThreshold int
}

// Gate runs the checks against TeamServer. It is not safe for concurrent use.
type Gate struct {
	api    API
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// NewGate creates a gate for a single application.
func NewGate(api API, opts Options, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(opts.Severities) == 0 {
		opts.Severities = severity.Parse(severity.DefaultCSV)
	}
	return &Gate{
		api:    api,
		opts:   opts,
		logger: logger.Named("verify"),
		now:    time.Now,
	}
}

// Run performs the preflight checks, resolves the application and decides
// the verdict. A failing build returns the result together with a
// *GateFailedError; any other error means the verdict could not be reached.
func (g *Gate) Run(ctx context.Context) (*Result, error) {
	start := g.now()
	result := &Result{
		RunID:        uuid.NewString(),
		AppName:      g.opts.AppName,
		BuildNumber:  g.opts.BuildNumber,
		Threshold:    g.opts.FailThreshold,
		Severities:   levelsToStrings(g.opts.Severities),
		JobStartTime: g.jobStartTime(),
		StartedAt:    start,
	}
	logger := g.logger.With(zap.String("run_id", result.RunID))

	appID, err := g.CheckConnection(ctx)
	if err != nil {
		return nil, err
	}
	result.AppID = appID

	if err := g.evaluate(ctx, logger, result); err != nil {
		return nil, err
	}
	result.Duration = g.now().Sub(start)

	if !result.Passed() {
		return result, &GateFailedError{Result: result}
	}
	return result, nil
}

// CheckConnection verifies the credentials and the organization, then
// resolves the application ID.
func (g *Gate) CheckConnection(ctx context.Context) (string, error) {
	if _, err := g.api.Profile(ctx); err != nil {
		return "", fmt.Errorf("%w - %w", ErrConnection, err)
	}
	if _, err := g.api.Organizations(ctx); err != nil {
		return "", fmt.Errorf("%w - %w", ErrOrganization, err)
	}
	return g.ResolveApplication(ctx)
}

// ResolveApplication returns the application ID. A configured ID is checked
// to exist; a name must match exactly one application.
func (g *Gate) ResolveApplication(ctx context.Context) (string, error) {
	if id := g.opts.AppID; id != "" {
		if _, err := g.api.Application(ctx, id); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return "", err
			}
			return "", &appNotFoundError{
				msg: fmt.Sprintf("Unable to find application with ID %s - check the ID and ensure the user account this action uses can access it - %v",
					id, err),
				cause: err,
			}
		}
		g.logger.Info(fmt.Sprintf("Using provided application ID %s", id))
		return id, nil
	}

	name := g.opts.AppName
	apps, err := g.api.ApplicationsByName(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to look up application %q: %w", name, err)
	}

	var matches []teamserver.Application
	for _, app := range apps {
		if app.Name == name {
			matches = append(matches, app)
		}
	}
	if len(matches) != 1 {
		return "", &appNotFoundError{
			msg: fmt.Sprintf("Could not match one app with name %q, found %d, consider using APP_ID input instead.",
				name, len(matches)),
		}
	}

	g.logger.Info(fmt.Sprintf("Application ID for %q is %s", name, matches[0].AppID))
	return matches[0].AppID, nil
}

func (g *Gate) evaluate(ctx context.Context, logger *zap.Logger, result *Result) error {
	if g.opts.BuildNumber != "" {
		logger.Info(fmt.Sprintf("Using app version tags: [%s]", g.opts.BuildNumber))
	}

	req := teamserver.NewSecurityCheckRequest(result.AppID, g.opts.BuildNumber, result.JobStartTime, g.api.Origin())
	check, err := g.api.SecurityCheck(ctx, req)
	if err != nil {
		return fmt.Errorf("security check failed: %w", err)
	}
	logger.Debug("Security check response", zap.Any("security_check", check))

	switch {
	case check.Result != nil && !*check.Result:
		g.policyFailed(logger, result, check.JobOutcomePolicy)
		return nil
	case check.Result != nil && *check.Result:
		result.Verdict = VerdictPass
		result.Source = SourcePolicy
		if policy := check.JobOutcomePolicy; policy != nil {
			result.PolicyName = policy.Name
			result.PolicyOutcome = policy.Outcome
		}
		result.Message = "Step passes matching policy"
		logger.Info(result.Message)
		return nil
	}

	logger.Info("No matching job outcome policy, checking vulnerabilities against threshold...")
	return g.checkThreshold(ctx, logger, result)
}

func (g *Gate) policyFailed(logger *zap.Logger, result *Result, policy *teamserver.JobOutcomePolicy) {
	if policy == nil {
		policy = &teamserver.JobOutcomePolicy{}
	}

	if g.opts.BuildNumber != "" && !policy.OptIntoQuery {
		logger.Info(fmt.Sprintf(`Matching policy %q is not configured to apply the "query vulnerabilities by selection from the plugin when filtering vulnerabilities" option, this means all open vulnerabilities will be considered, not just those from the build_number input.`,
			policy.Name))
	}
	if g.opts.JobStartTime == nil && policy.IsJobStartTime {
		logger.Info(fmt.Sprintf("Matching policy %q has job start time configured, but no job start time was provided, so 0 was passed to consider all open vulnerabilities.",
			policy.Name))
	}

	result.Verdict = VerdictFail
	result.Source = SourcePolicy
	result.PolicyName = policy.Name
	result.PolicyOutcome = policy.Outcome
	result.Message = fmt.Sprintf("Contrast verify gate fails with status %s - policy %q", policy.Outcome, policy.Name)
}

func (g *Gate) checkThreshold(ctx context.Context, logger *zap.Logger, result *Result) error {
	filters, err := g.api.QuickFilters(ctx, result.AppID, teamserver.QuickFilterParams{
		Severities:  severity.Join(g.opts.Severities),
		BuildNumber: g.opts.BuildNumber,
		StartDate:   result.JobStartTime,
	})
	if err != nil {
		return fmt.Errorf("failed to fetch vulnerability count: %w", err)
	}
	logger.Debug("Vulnerability quick filters", zap.Any("filters", filters))

	count, ok := teamserver.OpenCount(filters)
	if !ok {
		return ErrNoOpenFilter
	}

	result.Source = SourceThreshold
	result.VulnerabilityCount = &count
	if count > g.opts.FailThreshold {
		result.Verdict = VerdictFail
		result.Message = fmt.Sprintf("The vulnerability count is %d - Contrast verify gate fails as this is above threshold (threshold allows %d)",
			count, g.opts.FailThreshold)
		return nil
	}

	result.Verdict = VerdictPass
	result.Message = fmt.Sprintf("The vulnerability count is %d (below threshold)", count)
	logger.Info(result.Message)
	return nil
}

func (g *Gate) jobStartTime() int64 {
	if g.opts.JobStartTime == nil {
		return 0
	}
	return *g.opts.JobStartTime
}

func levelsToStrings(levels []severity.Level) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = string(l)
	}
	return out
}

// appNotFoundError carries a user facing message and matches ErrApplicationNotFound.
type appNotFoundError struct {
	msg   string
	cause error
}

func (e *appNotFoundError) Error() string { return e.msg }

func (e *appNotFoundError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrApplicationNotFound}
	}
	return []error{ErrApplicationNotFound, e.cause}
}
