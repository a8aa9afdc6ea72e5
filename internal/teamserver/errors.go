package teamserver

import (
	"fmt"
	"net/http"
)

// maxErrorBody caps how much of a failed response is kept on an APIError.
const maxErrorBody = 512

// APIError is returned for any response outside the 2xx range.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%d %s for %s %s", e.StatusCode, http.StatusText(e.StatusCode), e.Method, e.Path)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// NotFound reports whether the error is a 404.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Unauthorized reports whether TeamServer rejected the credentials.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func truncateBody(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
