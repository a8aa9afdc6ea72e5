// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/config"
	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/observability"
)

// fakeTeamServer stands in for TeamServer. Responses are keyed by the path
// below the organization root, e.g. "securityChecks".
type fakeTeamServer struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]fakeResponse
	requests  []fakeRequest
}

type fakeResponse struct {
	status int
	body   string
}

type fakeRequest struct {
	method string
	path   string
	query  string
	body   string
}

const orgRoot = "/Contrast/api/ng/anOrgId/"

func newFakeTeamServer(t *testing.T) *fakeTeamServer {
	t.Helper()
	ts := &fakeTeamServer{
		responses: map[string]fakeResponse{
			"profile/":              {http.StatusOK, `{"user":{"user_uid":"a_user"}}`},
			"organizations/":        {http.StatusOK, `{"organizations":[{"organization_uuid":"anOrgId"}]}`},
			"applications/app-uuid": {http.StatusOK, `{"application":{"app_id":"app-uuid","name":"VerifierTest"}}`},
			"applications/name":     {http.StatusOK, `{"applications":[{"app_id":"app-uuid","name":"VerifierTest"}]}`},
			"securityChecks":        {http.StatusOK, `{"security_check":{"result":null}}`},
			"traces/app-uuid/quick": {http.StatusOK, `{"filters":[{"filterType":"OPEN","count":0}]}`},
		},
	}
	ts.Server = httptest.NewServer(http.HandlerFunc(ts.handle))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *fakeTeamServer) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	path := strings.TrimPrefix(r.URL.Path, orgRoot)

	ts.mu.Lock()
	ts.requests = append(ts.requests, fakeRequest{method: r.Method, path: path, query: r.URL.RawQuery, body: string(body)})
	resp, ok := ts.responses[path]
	ts.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = io.WriteString(w, resp.body)
}

func (ts *fakeTeamServer) respond(path string, status int, body string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.responses[path] = fakeResponse{status, body}
}

func (ts *fakeTeamServer) hits() []fakeRequest {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]fakeRequest(nil), ts.requests...)
}

func (ts *fakeTeamServer) paths() []string {
	var paths []string
	for _, r := range ts.hits() {
		paths = append(paths, r.method+" "+r.path)
	}
	return paths
}

func (ts *fakeTeamServer) request(path string) (fakeRequest, bool) {
	for _, r := range ts.hits() {
		if r.path == path {
			return r, true
		}
	}
	return fakeRequest{}, false
}

// resetForTest provides the single source of truth for resetting test state.
func resetForTest(t *testing.T) {
	t.Helper()

	cfgFile = ""
	envFile = ""
	workDir = "."

	for _, in := range config.Inputs {
		for _, name := range config.EnvNames(in.Name) {
			t.Setenv(name, "")
		}
	}
	for _, name := range []string{"DEBUG", "GITHUB_ACTIONS", "GITHUB_STEP_SUMMARY", "GITHUB_OUTPUT"} {
		t.Setenv(name, "")
	}

	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)
}

// setCredentials points the environment at the fake server.
func setCredentials(t *testing.T, ts *fakeTeamServer) {
	t.Helper()
	t.Setenv("API_KEY", "An_Api_Key")
	t.Setenv("ORG_ID", "anOrgId")
	t.Setenv("AUTH_HEADER", "Base64Header")
	t.Setenv("APP_ID", "app-uuid")
	t.Setenv("API_URL", ts.URL)
}

type cmdOutput struct {
	stdout string
	stderr string
}

// executeCommand runs a pristine command tree the way main does.
func executeCommand(t *testing.T, args ...string) (cmdOutput, error) {
	t.Helper()
	root := NewRootCommand()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := execute(context.Background(), root)
	observability.Sync()
	return cmdOutput{stdout: stdout.String(), stderr: stderr.String()}, err
}
