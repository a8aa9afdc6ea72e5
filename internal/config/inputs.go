package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Input ties a config key to the SCREAMING_SNAKE_CASE name users set it by.
type Input struct {
	Key  string
	Name string
}

// Inputs lists every value that can be supplied through the environment.
var Inputs = []Input{
	{Key: "contrast.api_key", Name: "API_KEY"},
	{Key: "contrast.org_id", Name: "ORG_ID"},
	{Key: "contrast.auth_header", Name: "AUTH_HEADER"},
	{Key: "contrast.user_name", Name: "USER_NAME"},
	{Key: "contrast.service_key", Name: "SERVICE_KEY"},
	{Key: "contrast.app_id", Name: "APP_ID"},
	{Key: "contrast.app_name", Name: "APP_NAME"},
	{Key: "contrast.api_url", Name: "API_URL"},
	{Key: "gate.build_number", Name: "BUILD_NUMBER"},
	{Key: "gate.fail_threshold", Name: "FAIL_THRESHOLD"},
	{Key: "gate.severities", Name: "SEVERITIES"},
	{Key: "gate.job_start_time", Name: "JOB_START_TIME"},
	{Key: "network.ca_file", Name: "CA_FILE"},
	{Key: "network.proxy", Name: "PROXY"},
}

// EnvNames returns the environment variables checked for an input, in
// precedence order. For AUTH_HEADER that is INPUT_AUTHHEADER (the GitHub
// Actions form), AUTH_HEADER, then CONTRAST_AUTH_HEADER.
func EnvNames(name string) []string {
	return []string{
		"INPUT_" + strings.ReplaceAll(name, "_", ""),
		name,
		"CONTRAST_" + name,
	}
}

// BindInputs binds every input, the DEBUG switch and the GitHub runner
// variables to their viper keys. Viper honours the order of the names.
func BindInputs(v *viper.Viper) {
	for _, in := range Inputs {
		_ = v.BindEnv(append([]string{in.Key}, EnvNames(in.Name)...)...)
	}

	_ = v.BindEnv("debug", "DEBUG")
	_ = v.BindEnv("github.actions", "GITHUB_ACTIONS")
	_ = v.BindEnv("github.step_summary", "GITHUB_STEP_SUMMARY")
	_ = v.BindEnv("github.output", "GITHUB_OUTPUT")
}
