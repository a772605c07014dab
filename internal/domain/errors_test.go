package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr struct{ status int }

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", e.status) }
func (e statusErr) HTTPStatus() int { return e.status }

type integrationErr struct{ need bool }

func (e integrationErr) Error() string          { return "integration" }
func (e integrationErr) NeedsIntegration() bool { return e.need }

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind FailureKind
		wantNeed bool
		wantCode int
	}{
		{"plain error", errors.New("boom"), KindIntegrationFailure, false, 0},
		{"401", statusErr{401}, KindUnauthorized, false, 401},
		{"wrapped 401", fmt.Errorf("identity: %w", statusErr{401}), KindUnauthorized, false, 401},
		{"500 keeps status", statusErr{500}, KindIntegrationFailure, false, 500},
		{"needs integration", integrationErr{true}, KindIntegrationFailure, true, 0},
		{"integration flag false", integrationErr{false}, KindIntegrationFailure, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyFailure(tt.err)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantNeed, got.NeedIntegration)
			assert.Equal(t, tt.wantCode, got.Status)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyFailure_PassesAuthErrorThrough(t *testing.T) {
	original := &AuthError{Kind: KindNeedsIntegration, NeedIntegration: true, Err: ErrNoActiveSession}

	got := ClassifyFailure(fmt.Errorf("resolve: %w", original))
	assert.Same(t, original, got)
}

func TestAuthError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrap: %w", &AuthError{Kind: KindDataCorruption, Op: "page_settings", Err: errors.New("bad json")})

	assert.ErrorIs(t, err, &AuthError{Kind: KindDataCorruption})
	assert.NotErrorIs(t, err, &AuthError{Kind: KindAncillaryFailure})
	assert.True(t, IsKind(err, KindDataCorruption))
	assert.False(t, IsKind(errors.New("x"), KindDataCorruption))
}

func TestAuthError_Message(t *testing.T) {
	err := &AuthError{Kind: KindAncillaryFailure, Op: "dashboards", Err: errors.New("timeout")}
	assert.Equal(t, "dashboards: ancillary_failure: timeout", err.Error())

	bare := &AuthError{Kind: KindUnauthorized}
	assert.Equal(t, "unauthorized", bare.Error())
}

func TestFailureKind_MarshalText(t *testing.T) {
	b, err := KindNeedsIntegration.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "needs_integration", string(b))
	assert.Equal(t, "unknown", FailureKind(0).String())
}
