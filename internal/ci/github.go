// Package ci publishes the verdict to the CI system the gate runs in.
package ci

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/config"
	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/verify"
)

// GitHubActions writes step outputs, the step summary and error annotations.
// Every method is a no-op when not running under GitHub Actions.
type GitHubActions struct {
	enabled     bool
	outputPath  string // $GITHUB_OUTPUT
	summaryPath string // $GITHUB_STEP_SUMMARY
	stdout      io.Writer
	logger      *zap.Logger
}

// NewGitHubActions creates the publisher from the runner variables.
// Workflow commands are written to stdout.
func NewGitHubActions(cfg config.GitHubConfig, stdout io.Writer, logger *zap.Logger) *GitHubActions {
	if stdout == nil {
		stdout = os.Stdout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitHubActions{
		enabled:     cfg.Actions,
		outputPath:  cfg.Output,
		summaryPath: cfg.StepSummary,
		stdout:      stdout,
		logger:      logger.Named("github"),
	}
}

// Enabled reports whether the process runs inside GitHub Actions.
func (g *GitHubActions) Enabled() bool {
	return g.enabled
}

// Publish records a verdict. Write failures are logged and never change the verdict.
func (g *GitHubActions) Publish(result *verify.Result) {
	if !g.enabled || result == nil {
		return
	}

	if err := g.writeOutputs(result); err != nil {
		g.logger.Warn("Unable to write step outputs", zap.String("path", g.outputPath), zap.Error(err))
	}

	if g.summaryPath == "" {
		g.logger.Warn("No path when configuring summary writer - no summary will be written")
	} else if err := appendFile(g.summaryPath, Summary(result)); err != nil {
		g.logger.Warn(fmt.Sprintf("Unable to write summary to %s - no summary will be written", g.summaryPath), zap.Error(err))
	}

	if !result.Passed() {
		g.Annotate(result.Message)
	}
}

// Annotate emits an ::error:: workflow command so the message shows on the run.
func (g *GitHubActions) Annotate(message string) {
	if !g.enabled {
		return
	}
	fmt.Fprintf(g.stdout, "::error::%s\n", escapeData(message))
}

func (g *GitHubActions) writeOutputs(result *verify.Result) error {
	if g.outputPath == "" {
		return nil
	}

	count := ""
	if result.VulnerabilityCount != nil {
		count = strconv.Itoa(*result.VulnerabilityCount)
	}

	var sb strings.Builder
	for _, kv := range [][2]string{
		{"result", string(result.Verdict)},
		{"source", string(result.Source)},
		{"vulnerability_count", count},
		{"policy_name", result.PolicyName},
		{"policy_outcome", result.PolicyOutcome},
	} {
		fmt.Fprintf(&sb, "%s=%s\n", kv[0], singleLine(kv[1]))
	}
	return appendFile(g.outputPath, sb.String())
}

// Summary renders the markdown step summary for a verdict.
func Summary(result *verify.Result) string {
	icon := "✅"
	if !result.Passed() {
		icon = "❌"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s Contrast Verify: %s\n\n", icon, strings.ToUpper(string(result.Verdict)))
	sb.WriteString(result.Message + "\n\n")
	sb.WriteString("| | |\n")
	sb.WriteString("|---|---|\n")
	fmt.Fprintf(&sb, "| Application | %s |\n", appLabel(result))
	if result.BuildNumber != "" {
		fmt.Fprintf(&sb, "| Build number | `%s` |\n", result.BuildNumber)
	}

	switch result.Source {
	case verify.SourcePolicy:
		fmt.Fprintf(&sb, "| Job outcome policy | %s |\n", result.PolicyName)
		if result.PolicyOutcome != "" {
			fmt.Fprintf(&sb, "| Policy outcome | %s |\n", result.PolicyOutcome)
		}
	case verify.SourceThreshold:
		if result.VulnerabilityCount != nil {
			fmt.Fprintf(&sb, "| Open vulnerabilities | %d |\n", *result.VulnerabilityCount)
		}
		fmt.Fprintf(&sb, "| Threshold | %d |\n", result.Threshold)
		fmt.Fprintf(&sb, "| Severities | %s |\n", strings.Join(result.Severities, ", "))
	}
	return sb.String()
}

func appLabel(result *verify.Result) string {
	if result.AppName != "" {
		return fmt.Sprintf("%s (`%s`)", result.AppName, result.AppID)
	}
	return "`" + result.AppID + "`"
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}

// escapeData escapes a workflow command message the way @actions/core does.
func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	return strings.ReplaceAll(s, "\n", "%0A")
}

func singleLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
