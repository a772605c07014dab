package jira

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// APIError is a non-2xx answer from Jira or a rejected token refresh.
type APIError struct {
	StatusCode int
	Body       string
	// Wait is the Retry-After delay Jira sent with a 429, if any.
	Wait time.Duration
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("jira returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("jira returned status %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) HTTPStatus() int           { return e.StatusCode }
func (e *APIError) RetryAfter() time.Duration { return e.Wait }

// parseRetryAfter reads the delay-seconds form; Jira does not send HTTP dates.
func parseRetryAfter(h string) time.Duration {
	secs, err := strconv.Atoi(h)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// IntegrationRequiredError means the user never linked a Jira account.
type IntegrationRequiredError struct {
	UserID string
	Err    error
}

func (e *IntegrationRequiredError) Error() string {
	return fmt.Sprintf("jira integration required for user %s: %v", e.UserID, e.Err)
}

func (e *IntegrationRequiredError) Unwrap() error          { return e.Err }
func (e *IntegrationRequiredError) NeedsIntegration() bool { return true }

func unauthorized(err error) *APIError {
	return &APIError{StatusCode: http.StatusUnauthorized, Body: err.Error()}
}
