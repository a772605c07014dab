package app

import (
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
)

// Session is the record one bootstrap pass populates. Only SessionBootstrapper
// mutates it; everything else goes through the read accessors.
type Session struct {
	id       uuid.UUID
	resolver domain.SessionIDResolver

	mu              sync.RWMutex
	currentUser     *domain.CurrentUser
	userSettings    domain.Settings
	userID          string
	rootURL         string
	apiRootURL      string
	hasAPIRootURL   bool
	authenticated   bool
	needIntegration bool
	pageSettings    *domain.PageSettings
	lastFailure     *domain.AuthError
	updatedAt       time.Time
}

// NewSession creates an empty session. resolver may be nil when callers always
// pass an explicit user id.
func NewSession(resolver domain.SessionIDResolver) *Session {
	return &Session{id: uuid.New(), resolver: resolver}
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) RootURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rootURL
}

func (s *Session) APIRootURL() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiRootURL, s.hasAPIRootURL
}

// Authenticated is the only readiness signal; other fields may be partially set.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

func (s *Session) NeedIntegration() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.needIntegration
}

func (s *Session) CurrentUser() *domain.CurrentUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentUser.Clone()
}

func (s *Session) UserSettings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.userSettings)
}

func (s *Session) PageSettings() (domain.PageSettings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pageSettings == nil {
		return domain.PageSettings{}, false
	}
	return *s.pageSettings, true
}

func (s *Session) LastFailure() *domain.AuthError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastFailure
}

// SessionView is the serializable snapshot handed to the HTTP layer.
type SessionView struct {
	ID              string               `json:"id"`
	UserID          string               `json:"userId"`
	RootURL         string               `json:"rootUrl"`
	APIRootURL      *string              `json:"apiRootUrl,omitempty"`
	Authenticated   bool                 `json:"authenticated"`
	NeedIntegration bool                 `json:"needIntegration"`
	CurrentUser     *domain.CurrentUser  `json:"currentUser,omitempty"`
	UserSettings    domain.Settings      `json:"userSettings,omitempty"`
	PageSettings    *domain.PageSettings `json:"pageSettings,omitempty"`
	Failure         string               `json:"failure,omitempty"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

func (s *Session) Snapshot() SessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := SessionView{
		ID:              s.id.String(),
		UserID:          s.userID,
		RootURL:         s.rootURL,
		Authenticated:   s.authenticated,
		NeedIntegration: s.needIntegration,
		CurrentUser:     s.currentUser.Clone(),
		UserSettings:    maps.Clone(s.userSettings),
		UpdatedAt:       s.updatedAt,
	}
	if s.hasAPIRootURL {
		api := s.apiRootURL
		v.APIRootURL = &api
	}
	if s.pageSettings != nil {
		ps := *s.pageSettings
		v.PageSettings = &ps
	}
	if s.lastFailure != nil {
		v.Failure = s.lastFailure.Kind.String()
	}
	return v
}

func (s *Session) commitPartial(userID string, merged, general domain.Settings, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentUser = &domain.CurrentUser{Attributes: merged}
	s.userSettings = maps.Clone(general)
	s.userID = userID
	s.rootURL = stringValue(merged["jiraUrl"])
	s.apiRootURL = stringValue(merged["apiUrl"])
	s.hasAPIRootURL = s.apiRootURL != ""
	s.updatedAt = now
}

func (s *Session) mergeIdentity(id *domain.ExternalIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attrs := s.currentUser.Attributes
	attrs["displayName"] = orNotAvailable(id.DisplayName)
	attrs["name"] = orNotAvailable(id.UserName())
	attrs["emailAddress"] = orNotAvailable(id.EmailAddress)
	s.currentUser.Identity = id
}

func (s *Session) markAuthenticated(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authenticated = true
	s.needIntegration = false
	s.lastFailure = nil
	s.updatedAt = now
}

func (s *Session) markFailed(f *domain.AuthError, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authenticated = false
	if f.Kind != domain.KindUnauthorized {
		s.needIntegration = f.NeedIntegration
	}
	s.lastFailure = f
	s.updatedAt = now
}

// recordPostAuthFailure keeps authenticated as is; enrichment failures are not login failures.
func (s *Session) recordPostAuthFailure(f *domain.AuthError, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastFailure = f
	s.updatedAt = now
}

func (s *Session) attachDashboards(d []domain.Dashboard) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d == nil {
		d = []domain.Dashboard{}
	}
	s.currentUser.Dashboards = d
}

func (s *Session) setPageSettings(p domain.PageSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pageSettings = &p
}

func orNotAvailable(v string) string {
	if v == "" {
		return domain.NotAvailable
	}
	return v
}
