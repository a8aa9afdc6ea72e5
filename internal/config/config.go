// File: internal/config/config.go
package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/severity"
)

// DefaultAPIURL is the SaaS TeamServer API root.
const DefaultAPIURL = "https://app.contrastsecurity.com/Contrast/api/ng/"

// apiPath is the only path TeamServer serves its v4 ("ng") API under.
const apiPath = "/Contrast/api/ng/"

// Config holds the entire application configuration.
//
// The raw fields are filled by viper from flags, the environment and an
// optional config file. The derived fields (tagged `mapstructure:"-"`) are
// populated by Validate and are the ones the rest of the program reads.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Contrast ContrastConfig `mapstructure:"contrast" yaml:"contrast"`
	Gate     GateConfig     `mapstructure:"gate" yaml:"gate"`
	Network  NetworkConfig  `mapstructure:"network" yaml:"network"`
	Report   ReportConfig   `mapstructure:"report" yaml:"report"`
	GitHub   GitHubConfig   `mapstructure:"github" yaml:"github"`

	// Authorization is the value sent in the Authorization header.
	Authorization string `mapstructure:"-" yaml:"-"`
	// BaseURL is the organization scoped API root, always ending in "/".
	BaseURL string `mapstructure:"-" yaml:"-"`
	// Severities are the parsed, ordered severity levels.
	Severities []severity.Level `mapstructure:"-" yaml:"-"`
	// FailThreshold is the parsed vulnerability count threshold.
	FailThreshold int `mapstructure:"-" yaml:"-"`
	// JobStartTime is the parsed cutoff in epoch millis, nil when not given.
	JobStartTime *int64 `mapstructure:"-" yaml:"-"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// ContrastConfig holds the TeamServer credentials and the application reference.
type ContrastConfig struct {
	APIKey     string `mapstructure:"api_key" yaml:"-"`
	OrgID      string `mapstructure:"org_id" yaml:"org_id"`
	AuthHeader string `mapstructure:"auth_header" yaml:"-"`
	UserName   string `mapstructure:"user_name" yaml:"user_name"`
	ServiceKey string `mapstructure:"service_key" yaml:"-"`
	AppID      string `mapstructure:"app_id" yaml:"app_id"`
	AppName    string `mapstructure:"app_name" yaml:"app_name"`
	APIURL     string `mapstructure:"api_url" yaml:"api_url"`
}

// GateConfig holds the filters and the threshold used to judge a build.
// Numeric inputs are kept as strings so that bad values are reported
// together with every other input problem instead of failing the decode.
type GateConfig struct {
	BuildNumber        string `mapstructure:"build_number" yaml:"build_number"`
	BuildNumberFromGit bool   `mapstructure:"build_number_from_git" yaml:"build_number_from_git"`
	FailThreshold      string `mapstructure:"fail_threshold" yaml:"fail_threshold"`
	Severities         string `mapstructure:"severities" yaml:"severities"`
	JobStartTime       string `mapstructure:"job_start_time" yaml:"job_start_time"`
}

// NetworkConfig controls how TeamServer is reached.
type NetworkConfig struct {
	// CAFile is inline PEM, a path to a PEM file, or "FALSE" to disable verification.
	CAFile  string        `mapstructure:"ca_file" yaml:"ca_file"`
	Proxy   string        `mapstructure:"proxy" yaml:"proxy"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ReportConfig controls the optional machine readable verdict report.
type ReportConfig struct {
	Path   string `mapstructure:"path" yaml:"path"`
	Format string `mapstructure:"format" yaml:"format"`
}

// GitHubConfig is read from the variables the GitHub Actions runner exports.
type GitHubConfig struct {
	Actions     bool   `mapstructure:"actions" yaml:"-"`
	StepSummary string `mapstructure:"step_summary" yaml:"-"`
	Output      string `mapstructure:"output" yaml:"-"`
}

// InsecureSkipVerify reports whether the CA file input asks for certificate
// verification to be turned off.
func (n NetworkConfig) InsecureSkipVerify() bool {
	return strings.EqualFold(strings.TrimSpace(n.CAFile), "false")
}

// AppRef returns a human readable reference to the configured application.
func (c *Config) AppRef() string {
	if c.Contrast.AppID != "" {
		return c.Contrast.AppID
	}
	return c.Contrast.AppName
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "contrast-verify")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Contrast --
	v.SetDefault("contrast.api_url", DefaultAPIURL)

	// -- Gate --
	v.SetDefault("gate.fail_threshold", "0")
	v.SetDefault("gate.severities", severity.DefaultCSV)
	v.SetDefault("gate.build_number_from_git", false)

	// -- Network --
	v.SetDefault("network.timeout", "30s")

	// -- Report --
	v.SetDefault("report.format", "json")
}

// NewConfigFromViper creates a new, validated configuration from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	BindInputs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// DEBUG in the environment turns on debug output regardless of config.
	if v.IsSet("debug") {
		cfg.Logger.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return &cfg, err
	}
	return &cfg, nil
}

// Validate checks that every required input is present and well formed,
// and fills in the derived fields. All problems are collected into a single
// *MissingInputsError so the user can fix them in one go.
func (c *Config) Validate() error {
	var missing []string

	if c.Contrast.APIKey == "" {
		missing = append(missing, "apiKey")
	}
	if c.Contrast.OrgID == "" {
		missing = append(missing, "orgId")
	}

	switch {
	case c.Contrast.AuthHeader != "":
		c.Authorization = c.Contrast.AuthHeader
	case c.Contrast.UserName != "" && c.Contrast.ServiceKey != "":
		c.Authorization = base64.StdEncoding.EncodeToString(
			[]byte(c.Contrast.UserName + ":" + c.Contrast.ServiceKey))
	default:
		missing = append(missing, "authHeader or (userName and serviceKey)")
	}

	if c.Contrast.AppID == "" && c.Contrast.AppName == "" {
		missing = append(missing, "appId or appName")
	}

	apiURL := c.Contrast.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if !strings.HasPrefix(apiURL, "https://") && !strings.HasPrefix(apiURL, "http://") {
		missing = append(missing, "apiUrl (must start with http:// or https://)")
	}

	c.JobStartTime = nil
	if raw := strings.TrimSpace(c.Gate.JobStartTime); raw != "" {
		if start, err := strconv.ParseInt(raw, 10, 64); err != nil {
			missing = append(missing, "jobStartTime (must be a number)")
		} else {
			c.JobStartTime = &start
		}
	}

	c.FailThreshold = 0
	if raw := strings.TrimSpace(c.Gate.FailThreshold); raw != "" {
		threshold, err := strconv.Atoi(raw)
		if err != nil || threshold < 0 {
			missing = append(missing, "failThreshold (must be a non-negative number)")
		} else {
			c.FailThreshold = threshold
		}
	}

	if len(missing) > 0 {
		return &MissingInputsError{Inputs: missing}
	}

	baseURL, err := NormalizeBaseURL(apiURL, c.Contrast.OrgID)
	if err != nil {
		return &MissingInputsError{Inputs: []string{fmt.Sprintf("apiUrl (%v)", err)}}
	}
	c.BaseURL = baseURL

	severities := c.Gate.Severities
	if strings.TrimSpace(severities) == "" {
		severities = severity.DefaultCSV
	}
	c.Severities = severity.Parse(severities)

	return nil
}

// NormalizeBaseURL rebuilds the API root as scheme://host/Contrast/api/ng/{orgID}/.
// Users commonly paste the TeamServer UI address or drop the API path, so any
// path on the input is discarded.
func NormalizeBaseURL(apiURL, orgID string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(apiURL))
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", apiURL)
	}
	return fmt.Sprintf("%s://%s%s%s/", u.Scheme, u.Host, apiPath, url.PathEscape(orgID)), nil
}

// MissingInputsError lists every input that is absent or malformed.
type MissingInputsError struct {
	Inputs []string
}

func (e *MissingInputsError) Error() string {
	return fmt.Sprintf("Missing required inputs: %s, please see documentation for correct usage.",
		strings.Join(e.Inputs, ", "))
}
