// File: cmd/verify.go
package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/ci"
	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/config"
	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/gitinfo"
	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/network"
	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/observability"
	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/reporting"
	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/teamserver"
	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/verify"
)

// workDir is where the git repository for --build-number-from-git is looked up.
var workDir = "."

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Run the verify gate against TeamServer",
		Long: `Runs the job outcome policy check for the application and build. When no
policy applies, the open vulnerability count is compared with --fail-threshold.`,
		Args: cobra.NoArgs,
		RunE: runVerify,
	}
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}
	logger := observability.GetLogger()

	resolveBuildNumber(cfg, logger)

	gate, err := newGate(cfg, logger)
	if err != nil {
		return err
	}

	github := ci.NewGitHubActions(cfg.GitHub, cmd.OutOrStdout(), logger)
	result, err := gate.Run(ctx)

	var failed *verify.GateFailedError
	if err != nil && !errors.As(err, &failed) {
		github.Annotate(err.Error())
		return err
	}

	github.Publish(result)
	writeReport(cfg, result, logger)
	renderBanner(cmd.ErrOrStderr(), result)
	return err
}

// newGate wires the transport, the TeamServer client and the gate for cfg.
func newGate(cfg *config.Config, logger *zap.Logger) (*verify.Gate, error) {
	clientCfg, err := network.NewClientConfigFromSettings(cfg.Network, logger)
	if err != nil {
		return nil, err
	}
	httpClient := network.NewClient(clientCfg)

	client, err := teamserver.New(teamserver.Options{
		BaseURL:       cfg.BaseURL,
		APIKey:        cfg.Contrast.APIKey,
		Authorization: cfg.Authorization,
		UserAgent:     teamserver.UserAgent(Version, cfg.GitHub.Actions),
	}, httpClient.Client, logger)
	if err != nil {
		return nil, err
	}

	return verify.NewGate(client, verify.Options{
		AppID:         cfg.Contrast.AppID,
		AppName:       cfg.Contrast.AppName,
		BuildNumber:   cfg.Gate.BuildNumber,
		JobStartTime:  cfg.JobStartTime,
		Severities:    cfg.Severities,
		FailThreshold: cfg.FailThreshold,
	}, logger), nil
}

// resolveBuildNumber fills an empty build number from git HEAD when asked to.
func resolveBuildNumber(cfg *config.Config, logger *zap.Logger) {
	if cfg.Gate.BuildNumber != "" || !cfg.Gate.BuildNumberFromGit {
		return
	}
	commit, err := gitinfo.HeadCommit(workDir)
	if err != nil {
		logger.Warn("Unable to read the build number from git, continuing without one", zap.Error(err))
		return
	}
	logger.Info("Using git HEAD as build number", zap.String("build_number", commit))
	cfg.Gate.BuildNumber = commit
}

// writeReport writes the optional report. Failures are logged and never change the verdict.
func writeReport(cfg *config.Config, result *verify.Result, logger *zap.Logger) {
	if cfg.Report.Path == "" || result == nil {
		return
	}

	reporter, err := reporting.New(cfg.Report.Format, cfg.Report.Path, Version)
	if err != nil {
		logger.Warn("Unable to create report", zap.Error(err))
		return
	}
	if err := reporter.Write(result); err != nil {
		logger.Warn("Unable to write report", zap.Error(err))
	}
	if err := reporter.Close(); err != nil {
		logger.Warn("Unable to write report", zap.Error(err))
		return
	}
	logger.Debug("Report written", zap.String("path", cfg.Report.Path), zap.String("format", cfg.Report.Format))
}
