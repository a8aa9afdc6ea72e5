package teamserver

// QueryByAppVersionTag filters a security check by application version tags.
const QueryByAppVersionTag = "APP_VERSION_TAG"

// OpenFilterType is the quick filter that counts open vulnerabilities.
const OpenFilterType = "OPEN"

// Profile is the subset of the user profile the connection test reads.
type Profile struct {
	UserUID  string `json:"user_uid"`
	UserName string `json:"user_name"`
}

// Organization is a single organization visible to the user.
type Organization struct {
	OrganizationUUID string `json:"organization_uuid"`
	Name             string `json:"name"`
}

// Application is a TeamServer application.
type Application struct {
	AppID string `json:"app_id"`
	Name  string `json:"name"`
}

type profileResponse struct {
	User Profile `json:"user"`
}

type organizationsResponse struct {
	Organizations []Organization `json:"organizations"`
}

type applicationResponse struct {
	Application Application `json:"application"`
}

type applicationsResponse struct {
	Applications []Application `json:"applications"`
}

// SecurityCheckFilter selects the vulnerabilities a job outcome policy sees.
type SecurityCheckFilter struct {
	QueryBy        string   `json:"query_by"`
	AppVersionTags []string `json:"app_version_tags"`
}

// SecurityCheckRequest is the body of POST securityChecks.
type SecurityCheckRequest struct {
	ApplicationID       string              `json:"application_id"`
	JobStartTime        int64               `json:"job_start_time"`
	SecurityCheckFilter SecurityCheckFilter `json:"security_check_filter"`
	Origin              string              `json:"origin"`
}

// NewSecurityCheckRequest builds a request for appID. An empty build number
// yields an empty tag list, never a single empty tag.
func NewSecurityCheckRequest(appID, buildNumber string, jobStartTime int64, origin string) SecurityCheckRequest {
	tags := []string{}
	if buildNumber != "" {
		tags = append(tags, buildNumber)
	}
	return SecurityCheckRequest{
		ApplicationID: appID,
		JobStartTime:  jobStartTime,
		SecurityCheckFilter: SecurityCheckFilter{
			QueryBy:        QueryByAppVersionTag,
			AppVersionTags: tags,
		},
		Origin: origin,
	}
}

// JobOutcomePolicy is the policy that matched a security check.
type JobOutcomePolicy struct {
	Name           string `json:"name"`
	Outcome        string `json:"outcome"`
	OptIntoQuery   bool   `json:"opt_into_query"`
	IsJobStartTime bool   `json:"is_job_start_time"`
}

// SecurityCheck is the outcome of a security check. Result is nil when no
// job outcome policy applies to the application.
type SecurityCheck struct {
	ID               int64             `json:"id"`
	ApplicationID    string            `json:"application_id"`
	Result           *bool             `json:"result"`
	JobOutcomePolicy *JobOutcomePolicy `json:"job_outcome_policy"`
}

type securityCheckResponse struct {
	SecurityCheck SecurityCheck `json:"security_check"`
}

// QuickFilterParams are the filters sent to the vulnerability quick filter endpoint.
type QuickFilterParams struct {
	Severities  string
	BuildNumber string
	StartDate   int64
}

// QuickFilter is one named vulnerability count.
type QuickFilter struct {
	FilterType string `json:"filterType"`
	Name       string `json:"name"`
	Count      int    `json:"count"`
}

type quickFiltersResponse struct {
	Filters []QuickFilter `json:"filters"`
}

// OpenCount returns the count of the OPEN filter, and false if there is none.
func OpenCount(filters []QuickFilter) (int, bool) {
	for _, f := range filters {
		if f.FilterType == OpenFilterType {
			return f.Count, true
		}
	}
	return 0, false
}
