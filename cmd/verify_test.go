// File: cmd/verify_test.go
package cmd

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/exitcode"
	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/teamserver"
	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/verify"
)

const failingPolicy = `{"security_check":{"result":false,
	"job_outcome_policy":{"name":"No Criticals","outcome":"FAIL","opt_into_query":true,"is_job_start_time":false}}}`

// -- Policy --

func TestVerify_PolicyFailsRegardlessOfThreshold(t *testing.T) {
	resetForTest(t)
	ts := newFakeTeamServer(t)
	setCredentials(t, ts)
	ts.respond("securityChecks", http.StatusOK, failingPolicy)

	out, err := executeCommand(t, "--fail-threshold", "1000")
	require.Error(t, err)

	var failed *verify.GateFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, exitcode.GateFailed, exitcode.FromError(err))
	assert.Equal(t, `Contrast verify gate fails with status FAIL - policy "No Criticals"`, err.Error())
	assert.Contains(t, out.stderr, `Contrast verify gate fails with status FAIL - policy "No Criticals"`)
	assert.Contains(t, out.stderr, "CONTRAST VERIFY FAILED")

	assert.Equal(t, []string{
		"GET profile/",
		"GET organizations/",
		"GET applications/app-uuid",
		"POST securityChecks",
	}, ts.paths(), "the threshold must not be consulted when a policy decides")
}

func TestVerify_PolicyPassesRegardlessOfCount(t *testing.T) {
	resetForTest(t)
	ts := newFakeTeamServer(t)
	setCredentials(t, ts)
	ts.respond("securityChecks", http.StatusOK, `{"security_check":{"result":true,"job_outcome_policy":{"name":"Lenient","outcome":"SUCCESS"}}}`)
	ts.respond("traces/app-uuid/quick", http.StatusOK, `{"filters":[{"filterType":"OPEN","count":500}]}`)

	out, err := executeCommand(t, "verify")
	require.NoError(t, err)
	assert.Contains(t, out.stderr, "Step passes matching policy")
	assert.Contains(t, out.stderr, "CONTRAST VERIFY PASSED")

	_, queried := ts.request("traces/app-uuid/quick")
	assert.False(t, queried)
}

func TestVerify_SecurityCheckBody(t *testing.T) {
	resetForTest(t)
	ts := newFakeTeamServer(t)
	setCredentials(t, ts)
	t.Setenv("INPUT_BUILDNUMBER", "build-123")
	t.Setenv("JOB_START_TIME", "1700000000000")

	_, err := executeCommand(t)
	require.NoError(t, err)

	req, ok := ts.request("securityChecks")
	require.True(t, ok)

	var body teamserver.SecurityCheckRequest
	require.NoError(t, json.Unmarshal([]byte(req.body), &body))
	assert.Equal(t, "app-uuid", body.ApplicationID)
	assert.Equal(t, int64(1700000000000), body.JobStartTime)
	assert.Equal(t, "APP_VERSION_TAG", body.SecurityCheckFilter.QueryBy)
	assert.Equal(t, []string{"build-123"}, body.SecurityCheckFilter.AppVersionTags)
	assert.Equal(t, "integration-verify/"+Version, body.Origin)
}

// -- Threshold --

func TestVerify_Threshold(t *testing.T) {
	tests := []struct {
		name      string
		count     string
		threshold string
		wantCode  int
		wantLog   string
	}{
		{"below", "2", "2", exitcode.Success, "The vulnerability count is 2 (below threshold)"},
		{"above", "3", "2", exitcode.GateFailed,
			"The vulnerability count is 3 - Contrast verify gate fails as this is above threshold (threshold allows 2)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetForTest(t)
			ts := newFakeTeamServer(t)
			setCredentials(t, ts)
			t.Setenv("FAIL_THRESHOLD", tt.threshold)
			t.Setenv("SEVERITIES", "high,critical,medium")
			ts.respond("traces/app-uuid/quick", http.StatusOK,
				`{"filters":[{"filterType":"ALL","count":99},{"filterType":"OPEN","count":`+tt.count+`}]}`)

			out, err := executeCommand(t)
			assert.Equal(t, tt.wantCode, exitcode.FromError(err))
			assert.Contains(t, out.stderr, tt.wantLog)
			assert.Contains(t, out.stderr, "No matching job outcome policy, checking vulnerabilities against threshold...")

			req, ok := ts.request("traces/app-uuid/quick")
			require.True(t, ok)
			assert.Equal(t, "severities=CRITICAL%2CHIGH%2CMEDIUM&startDate=0&timestampFilter=FIRST", req.query)
		})
	}
}

// -- Application Resolution --

func TestVerify_AppName(t *testing.T) {
	resetForTest(t)
	ts := newFakeTeamServer(t)
	setCredentials(t, ts)
	t.Setenv("APP_ID", "")

	out, err := executeCommand(t, "--app-name", "VerifierTest")
	require.NoError(t, err)
	assert.Contains(t, out.stderr, `Application ID for "VerifierTest" is app-uuid`)

	req, ok := ts.request("applications/name")
	require.True(t, ok)
	assert.Equal(t, "filterText=VerifierTest", req.query)
}

func TestVerify_AppNameAmbiguous(t *testing.T) {
	resetForTest(t)
	ts := newFakeTeamServer(t)
	setCredentials(t, ts)
	t.Setenv("APP_ID", "")
	t.Setenv("APP_NAME", "VerifierTest")
	ts.respond("applications/name", http.StatusOK,
		`{"applications":[{"app_id":"1","name":"VerifierTest"},{"app_id":"2","name":"VerifierTest"}]}`)

	_, err := executeCommand(t)
	require.Error(t, err)
	assert.Equal(t, exitcode.Error, exitcode.FromError(err))
	assert.EqualError(t, err, `Could not match one app with name "VerifierTest", found 2, consider using APP_ID input instead.`)

	_, checked := ts.request("securityChecks")
	assert.False(t, checked)
}

// -- Errors --

func TestVerify_BadCredentials(t *testing.T) {
	resetForTest(t)
	ts := newFakeTeamServer(t)
	setCredentials(t, ts)
	ts.respond("profile/", http.StatusUnauthorized, `{"success":false}`)

	out, err := executeCommand(t)
	require.Error(t, err)
	assert.ErrorIs(t, err, verify.ErrConnection)
	assert.Equal(t, exitcode.Error, exitcode.FromError(err))
	assert.Contains(t, out.stderr, "connection test failed, please verify credentials")
	assert.Equal(t, []string{"GET profile/"}, ts.paths())
}

func TestVerify_UnreachableServer(t *testing.T) {
	resetForTest(t)
	ts := newFakeTeamServer(t)
	setCredentials(t, ts)
	ts.Close()

	_, err := executeCommand(t, "--timeout", "2s")
	require.Error(t, err)
	assert.Equal(t, exitcode.Error, exitcode.FromError(err))
}

// -- CI Integration --

func TestVerify_GitHubActions(t *testing.T) {
	resetForTest(t)
	ts := newFakeTeamServer(t)
	setCredentials(t, ts)
	ts.respond("securityChecks", http.StatusOK, failingPolicy)

	dir := t.TempDir()
	outputPath := filepath.Join(dir, "output")
	summaryPath := filepath.Join(dir, "summary.md")
	t.Setenv("GITHUB_ACTIONS", "true")
	t.Setenv("GITHUB_OUTPUT", outputPath)
	t.Setenv("GITHUB_STEP_SUMMARY", summaryPath)

	out, err := executeCommand(t)
	assert.Equal(t, exitcode.GateFailed, exitcode.FromError(err))
	assert.Contains(t, out.stdout, `::error::Contrast verify gate fails with status FAIL - policy "No Criticals"`)

	outputs, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Contains(t, string(outputs), "result=fail\nsource=policy\n")

	summary, err := os.ReadFile(summaryPath)
	require.NoError(t, err)
	assert.Contains(t, string(summary), "| Job outcome policy | No Criticals |")

	req, _ := ts.request("securityChecks")
	assert.Contains(t, req.body, `"origin":"integration-verify-github-action/`+Version+`"`)
}

func TestVerify_Report(t *testing.T) {
	resetForTest(t)
	ts := newFakeTeamServer(t)
	setCredentials(t, ts)
	ts.respond("traces/app-uuid/quick", http.StatusOK, `{"filters":[{"filterType":"OPEN","count":7}]}`)
	reportPath := filepath.Join(t.TempDir(), "verify.json")

	_, err := executeCommand(t, "--report", reportPath)
	assert.Equal(t, exitcode.GateFailed, exitcode.FromError(err))

	content, err := os.ReadFile(reportPath)
	require.NoError(t, err)

	var report struct {
		Tool   string        `json:"tool"`
		Result verify.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal(content, &report))
	assert.Equal(t, "contrast-verify", report.Tool)
	assert.Equal(t, verify.VerdictFail, report.Result.Verdict)
	assert.Equal(t, verify.SourceThreshold, report.Result.Source)
	require.NotNil(t, report.Result.VulnerabilityCount)
	assert.Equal(t, 7, *report.Result.VulnerabilityCount)
	assert.Equal(t, "app-uuid", report.Result.AppID)
}

func TestVerify_BuildNumberFromGit(t *testing.T) {
	resetForTest(t)
	ts := newFakeTeamServer(t)
	setCredentials(t, ts)

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.txt"), []byte("v1"), 0644))
	_, err = wt.Add("app.txt")
	require.NoError(t, err)
	hash, err := wt.Commit("build", &git.CommitOptions{
		Author: &object.Signature{Name: "CI", Email: "ci@example.com", When: time.Unix(1700000000, 0)},
	})
	require.NoError(t, err)
	workDir = dir

	_, err = executeCommand(t, "--build-number-from-git")
	require.NoError(t, err)

	req, ok := ts.request("securityChecks")
	require.True(t, ok)
	assert.Contains(t, req.body, `"app_version_tags":["`+hash.String()+`"]`)
}

// -- check-connection --

func TestCheckConnection(t *testing.T) {
	resetForTest(t)
	ts := newFakeTeamServer(t)
	setCredentials(t, ts)

	out, err := executeCommand(t, "check-connection")
	require.NoError(t, err)
	assert.Equal(t, "Connection OK, application ID app-uuid\n", out.stdout)
	assert.Equal(t, []string{"GET profile/", "GET organizations/", "GET applications/app-uuid"}, ts.paths())
}

func TestCheckConnection_UnknownApp(t *testing.T) {
	resetForTest(t)
	ts := newFakeTeamServer(t)
	setCredentials(t, ts)
	t.Setenv("APP_ID", "missing-app")

	_, err := executeCommand(t, "check-connection")
	assert.ErrorIs(t, err, verify.ErrApplicationNotFound)
	assert.Contains(t, err.Error(), "Unable to find application with ID missing-app")
}
