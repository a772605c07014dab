package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrCredentialsNotFound = errors.New("jira credentials not found")
	ErrNoActiveSession     = errors.New("no active session")
)

// FailureKind classifies why a bootstrap pass did not complete.
type FailureKind int

const (
	KindNeedsIntegration   FailureKind = iota + 1 // no resolvable session user
	KindUnauthorized                              // credentials rejected (401)
	KindIntegrationFailure                        // any other failure before authentication
	KindDataCorruption                            // a stored value failed to decode
	KindAncillaryFailure                          // enrichment failed after authentication
)

func (k FailureKind) String() string {
	switch k {
	case KindNeedsIntegration:
		return "needs_integration"
	case KindUnauthorized:
		return "unauthorized"
	case KindIntegrationFailure:
		return "integration_failure"
	case KindDataCorruption:
		return "data_corruption"
	case KindAncillaryFailure:
		return "ancillary_failure"
	default:
		return "unknown"
	}
}

func (k FailureKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// AuthError is the tagged failure produced by the session bootstrapper.
type AuthError struct {
	Kind            FailureKind
	Op              string
	Status          int
	NeedIntegration bool
	Err             error
}

func (e *AuthError) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches another *AuthError by kind, so errors.Is(err, &AuthError{Kind: k}) works.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// IsKind reports whether err wraps an *AuthError of kind k.
func IsKind(err error, k FailureKind) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == k
}

type httpStatuser interface {
	HTTPStatus() int
}

type integrationNeeder interface {
	NeedsIntegration() bool
}

// ClassifyFailure maps a failure from the resolve/settings/identity steps onto a kind.
func ClassifyFailure(err error) *AuthError {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}

	out := &AuthError{Kind: KindIntegrationFailure, Err: err}

	var hs httpStatuser
	if errors.As(err, &hs) {
		out.Status = hs.HTTPStatus()
		if out.Status == http.StatusUnauthorized {
			out.Kind = KindUnauthorized
			return out
		}
	}

	var ni integrationNeeder
	if errors.As(err, &ni) {
		out.NeedIntegration = ni.NeedsIntegration()
	}
	return out
}
