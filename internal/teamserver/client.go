// Package teamserver is a small client for the Contrast TeamServer v4 REST API.
package teamserver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

const integrationName = "integration-verify"

// Options carries what every request needs.
type Options struct {
	// BaseURL is the organization scoped API root and must end in "/".
	BaseURL       string
	APIKey        string
	Authorization string
	UserAgent     string
}

// Client talks to a single TeamServer organization.
type Client struct {
	baseURL       string
	apiKey        string
	authorization string
	userAgent     string
	httpClient    *http.Client
	logger        *zap.Logger
}

// New creates a Client. A nil httpClient falls back to http.DefaultClient.
func New(opts Options, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("teamserver base url is required")
	}
	if !strings.HasSuffix(opts.BaseURL, "/") {
		opts.BaseURL += "/"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = UserAgent("dev", false)
	}

	return &Client{
		baseURL:       opts.BaseURL,
		apiKey:        opts.APIKey,
		authorization: opts.Authorization,
		userAgent:     opts.UserAgent,
		httpClient:    httpClient,
		logger:        logger.Named("teamserver"),
	}, nil
}

// UserAgent builds the User-Agent header. Runs inside GitHub Actions are
// reported as integration-verify-github-action.
func UserAgent(version string, githubActions bool) string {
	name := integrationName
	if githubActions {
		name += "-github-action"
	}
	return fmt.Sprintf("%s/%s Go-http-client/1.1 go/%s",
		name, version, strings.TrimPrefix(runtime.Version(), "go"))
}

// Origin is the first token of the User-Agent, sent as the security check origin.
func Origin(userAgent string) string {
	if fields := strings.Fields(userAgent); len(fields) > 0 {
		return fields[0]
	}
	return integrationName
}

// Origin returns the origin this client reports on security checks.
func (c *Client) Origin() string {
	return Origin(c.userAgent)
}

// Profile fetches the profile of the authenticated user.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var resp profileResponse
	if err := c.do(ctx, http.MethodGet, "profile/", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Organizations lists the organizations the user belongs to.
func (c *Client) Organizations(ctx context.Context) ([]Organization, error) {
	var resp organizationsResponse
	if err := c.do(ctx, http.MethodGet, "organizations/", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Organizations, nil
}

// Application fetches a single application by ID.
func (c *Client) Application(ctx context.Context, appID string) (*Application, error) {
	var resp applicationResponse
	if err := c.do(ctx, http.MethodGet, "applications/"+url.PathEscape(appID), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Application, nil
}

// ApplicationsByName returns the applications whose name contains name.
// TeamServer matches on a substring; callers filter for exact matches.
func (c *Client) ApplicationsByName(ctx context.Context, name string) ([]Application, error) {
	query := url.Values{"filterText": []string{name}}
	var resp applicationsResponse
	if err := c.do(ctx, http.MethodGet, "applications/name", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Applications, nil
}

// SecurityCheck asks TeamServer to evaluate the job outcome policies for an application.
func (c *Client) SecurityCheck(ctx context.Context, req SecurityCheckRequest) (*SecurityCheck, error) {
	var resp securityCheckResponse
	if err := c.do(ctx, http.MethodPost, "securityChecks", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp.SecurityCheck, nil
}

// QuickFilters returns the vulnerability counts of an application, grouped by filter.
func (c *Client) QuickFilters(ctx context.Context, appID string, params QuickFilterParams) ([]QuickFilter, error) {
	query := url.Values{}
	query.Set("severities", params.Severities)
	if params.BuildNumber != "" {
		query.Set("appVersionTags", params.BuildNumber)
	}
	query.Set("startDate", strconv.FormatInt(params.StartDate, 10))
	query.Set("timestampFilter", "FIRST")

	var resp quickFiltersResponse
	path := "traces/" + url.PathEscape(appID) + "/quick"
	if err := c.do(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Filters, nil
}

// do sends one request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body for %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request for %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("API-Key", c.apiKey)
	req.Header.Set("Authorization", c.authorization)
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug(method+" "+path, zap.Any("query", query))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response of %s %s: %w", method, path, err)
	}

	c.logger.Debug("TeamServer response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.ByteString("body", respBody),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       truncateBody(respBody),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response of %s %s: %w", method, path, err)
	}
	return nil
}
