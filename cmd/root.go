// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/config"
	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/observability"
	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/verify"
)

type contextKey string

const configKey contextKey = "config"

// defaultEnvFile is loaded when present and --env-file is not given.
const defaultEnvFile = ".env"

var (
	cfgFile string
	envFile string
)

// flagBindings maps persistent flags to config keys. Flags win over the
// environment, which wins over the config file.
var flagBindings = []struct {
	flag  string
	key   string
	usage string
}{
	{"api-key", "contrast.api_key", "TeamServer API key (API_KEY)"},
	{"org-id", "contrast.org_id", "organization ID (ORG_ID)"},
	{"auth-header", "contrast.auth_header", "Authorization header value (AUTH_HEADER)"},
	{"user-name", "contrast.user_name", "user name, used with --service-key instead of --auth-header (USER_NAME)"},
	{"service-key", "contrast.service_key", "service key, used with --user-name (SERVICE_KEY)"},
	{"app-id", "contrast.app_id", "application ID (APP_ID)"},
	{"app-name", "contrast.app_name", "application name, resolved to an ID when --app-id is not set (APP_NAME)"},
	{"api-url", "contrast.api_url", "TeamServer URL (API_URL)"},
	{"build-number", "gate.build_number", "app version tag of this build (BUILD_NUMBER)"},
	{"fail-threshold", "gate.fail_threshold", "open vulnerabilities allowed when no policy applies (FAIL_THRESHOLD)"},
	{"severities", "gate.severities", "comma separated severities counted against the threshold (SEVERITIES)"},
	{"job-start-time", "gate.job_start_time", "only consider vulnerabilities first seen after this epoch millis (JOB_START_TIME)"},
	{"ca-file", "network.ca_file", "PEM bundle or path to trust, or FALSE to skip verification (CA_FILE)"},
	{"proxy", "network.proxy", "proxy URL for TeamServer requests (PROXY)"},
	{"report", "report.path", "write a report of the verdict to this path"},
	{"report-format", "report.format", "report format: json or junit"},
	{"log-level", "logger.level", "log level: debug, info, warn, error"},
	{"log-format", "logger.format", "log format: console or json"},
	{"log-file", "logger.log_file", "also write JSON logs to this file"},
}

// NewRootCommand builds the command tree. Running the root command without a
// subcommand runs the verify gate.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contrast-verify",
		Short: "Contrast verify gate for CI pipelines.",
		Long: `contrast-verify checks an application on Contrast TeamServer and fails the
build when a job outcome policy fails, or, when no policy applies, when the
number of open vulnerabilities is above the threshold.

Exit codes: 0 pass, 1 gate failed, 2 configuration, network or API error.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
		RunE:              runVerify,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default is ./.contrast-verify.yaml)")
	flags.StringVar(&envFile, "env-file", "", "dotenv file to load (default is ./.env when present)")
	for _, b := range flagBindings {
		flags.String(b.flag, "", b.usage)
	}
	flags.Bool("build-number-from-git", false, "use the HEAD commit hash when no build number is given")
	flags.Duration("timeout", 0, "timeout of each TeamServer request (default 30s)")

	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newCheckConnectionCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the command line and returns the error the process should exit with.
func Execute(ctx context.Context) error {
	return execute(ctx, NewRootCommand())
}

func execute(ctx context.Context, cmd *cobra.Command) error {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	if !observability.IsInitialized() {
		observability.InitializeLogger(config.NewDefaultConfig().Logger)
	}
	logger := observability.GetLogger()

	var failed *verify.GateFailedError
	switch {
	case errors.As(err, &failed):
		logger.Error(failed.Error())
	case errors.Is(err, context.Canceled):
		logger.Warn("Interrupted")
	default:
		logger.Error(err.Error())
	}
	return err
}

// loadConfig reads the dotenv and config files, binds flags and environment,
// validates the result and sets up logging. The config is stored on the
// command context for the subcommands.
func loadConfig(cmd *cobra.Command, args []string) error {
	if err := loadEnvFile(envFile); err != nil {
		return err
	}

	v := viper.New()
	config.SetDefaults(v)
	if err := initializeConfig(cmd, v); err != nil {
		return err
	}

	cfg, err := config.NewConfigFromViper(v)
	if cfg != nil {
		observability.Initialize(cfg.Logger, zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr())))
	}
	if err != nil {
		return err
	}

	observability.GetLogger().Debug("Starting contrast-verify", zap.String("version", Version))
	cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
	return nil
}

// loadEnvFile loads a dotenv file without overriding variables that are
// already set. A missing default file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); err != nil {
			return nil
		}
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading env file %s: %w", path, err)
	}
	return nil
}

// initializeConfig reads the config file if there is one and binds the flags.
func initializeConfig(cmd *cobra.Command, v *viper.Viper) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(".contrast-verify")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	flags := cmd.Flags()
	bind := func(key, name string) error {
		flag := flags.Lookup(name)
		if flag == nil {
			return nil
		}
		return v.BindPFlag(key, flag)
	}
	for _, b := range flagBindings {
		if err := bind(b.key, b.flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", b.flag, err)
		}
	}
	if err := bind("gate.build_number_from_git", "build-number-from-git"); err != nil {
		return err
	}
	return bind("network.timeout", "timeout")
}

// configFromContext returns the config stored by loadConfig.
func configFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}
