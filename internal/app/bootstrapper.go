package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Marker keys for last-visited bookkeeping.
const (
	MarkerLastVisit   = "LV"
	MarkerLastVisited = "LastVisited"
)

const outcomeSuccess = "success"

// AuthObserver receives one call per Authenticate with the outcome
// ("success" or a failure kind) and its duration.
type AuthObserver interface {
	ObserveAuthentication(outcome string, elapsed time.Duration)
}

type SessionBootstrapper struct {
	users    domain.UserDirectory
	settings domain.SettingsStore
	identity domain.IdentityBridge
	clock    clockwork.Clock
	observer AuthObserver
}

// NewSessionBootstrapper wires the collaborators. observer may be nil.
func NewSessionBootstrapper(users domain.UserDirectory, settings domain.SettingsStore, identity domain.IdentityBridge, clock clockwork.Clock, observer AuthObserver) *SessionBootstrapper {
	return &SessionBootstrapper{
		users:    users,
		settings: settings,
		identity: identity,
		clock:    clock,
		observer: observer,
	}
}

// ResolveUser loads the profile for userID, or for the session's user when userID
// is empty. An unresolvable session yields KindNeedsIntegration; directory errors
// are returned unchanged.
func (b *SessionBootstrapper) ResolveUser(ctx context.Context, sess *Session, userID string) (*domain.UserProfile, error) {
	if userID == "" {
		resolved, err := b.sessionUserID(ctx, sess)
		if err != nil {
			return nil, &domain.AuthError{
				Kind:            domain.KindNeedsIntegration,
				Op:              "resolve_session",
				NeedIntegration: true,
				Err:             err,
			}
		}
		userID = resolved
	}

	return b.users.GetProfile(ctx, userID)
}

func (b *SessionBootstrapper) sessionUserID(ctx context.Context, sess *Session) (string, error) {
	if sess.resolver == nil {
		return "", domain.ErrNoActiveSession
	}
	id, err := sess.resolver.CurrentSessionUserID(ctx)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", domain.ErrNoActiveSession
	}
	return id, nil
}

// Authenticate runs one bootstrap pass over sess.
//
// Failures before authentication are recorded on the session and reported as
// (false, nil). Once the identity is merged the session stays authenticated;
// later enrichment failures return (false, *domain.AuthError) with kind
// KindAncillaryFailure or KindDataCorruption.
func (b *SessionBootstrapper) Authenticate(ctx context.Context, sess *Session, userID string) (ok bool, err error) {
	start := b.clock.Now()
	defer func() { b.observe(ok, err, sess, start) }()

	profile, err := b.ResolveUser(ctx, sess, userID)
	if err != nil {
		return b.fail(ctx, sess, "resolve_user", err), nil
	}
	if profile.UserID != "" {
		userID = profile.UserID
	}

	general, advanced, err := b.fetchSettingsGroups(ctx, userID)
	if err != nil {
		return b.fail(ctx, sess, "fetch_settings", err), nil
	}

	merged := MergeLayers(profile.Layer(), general, advanced)
	sess.commitPartial(userID, merged, general, b.clock.Now())

	apiRoot, _ := sess.APIRootURL()
	identity, err := b.identity.GetCurrentIdentity(ctx, domain.IdentityRequest{
		UserID:     userID,
		RootURL:    sess.RootURL(),
		APIRootURL: apiRoot,
	})
	if err != nil {
		return b.fail(ctx, sess, "fetch_identity", err), nil
	}
	if identity == nil {
		identity = &domain.ExternalIdentity{}
	}

	sess.mergeIdentity(identity)
	sess.markAuthenticated(b.clock.Now())
	slog.InfoContext(ctx, "Session authenticated", "user_id", userID, "session_id", sess.ID().String())

	if err := b.enrich(ctx, sess, userID); err != nil {
		var ae *domain.AuthError
		if !errors.As(err, &ae) {
			ae = &domain.AuthError{Kind: domain.KindAncillaryFailure, Err: err}
		}
		sess.recordPostAuthFailure(ae, b.clock.Now())
		slog.ErrorContext(ctx, "Session enrichment failed", "user_id", userID, "kind", ae.Kind.String(), "error", ae.Err)
		return false, ae
	}

	return true, nil
}

// fetchSettingsGroups loads both groups concurrently; both must succeed.
func (b *SessionBootstrapper) fetchSettingsGroups(ctx context.Context, userID string) (general, advanced domain.Settings, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		general, err = b.settings.GetGeneralSettings(gctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get general settings: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		advanced, err = b.settings.GetAdvancedSettings(gctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get advanced settings: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return general, advanced, nil
}

func (b *SessionBootstrapper) enrich(ctx context.Context, sess *Session, userID string) error {
	dashboards, err := b.settings.GetDashboards(ctx, userID)
	if err != nil {
		return ancillary("dashboards", err)
	}
	sess.attachDashboards(dashboards)

	raw, err := b.settings.GetPageSettingsRaw(ctx, userID)
	if err != nil {
		return ancillary("page_settings", err)
	}
	pages, err := ComposePageSettings(raw)
	if err != nil {
		return err
	}
	sess.setPageSettings(pages)

	return b.updateLastVisited(ctx, userID)
}

// updateLastVisited copies LV into LastVisited the first time a new day starts,
// then always moves LV to now.
func (b *SessionBootstrapper) updateLastVisited(ctx context.Context, userID string) error {
	now := b.clock.Now()

	stored, found, err := b.settings.Get(ctx, userID, MarkerLastVisit)
	if err != nil {
		return ancillary("last_visit", err)
	}

	if found && stored != "" {
		lv, err := time.Parse(time.RFC3339Nano, stored)
		if err != nil {
			return &domain.AuthError{Kind: domain.KindDataCorruption, Op: "last_visit", Err: err}
		}
		if StartOfDay(now).After(lv) {
			if err := b.settings.Set(ctx, userID, MarkerLastVisited, stored); err != nil {
				return ancillary("last_visited", err)
			}
		}
	}

	if err := b.settings.Set(ctx, userID, MarkerLastVisit, now.Format(time.RFC3339Nano)); err != nil {
		return ancillary("last_visit", err)
	}
	return nil
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (b *SessionBootstrapper) fail(ctx context.Context, sess *Session, op string, err error) bool {
	f := domain.ClassifyFailure(err)
	if f.Op == "" {
		c := *f
		c.Op = op
		f = &c
	}
	sess.markFailed(f, b.clock.Now())

	slog.InfoContext(ctx, "Authentication failed",
		"op", f.Op,
		"kind", f.Kind.String(),
		"status", f.Status,
		"need_integration", sess.NeedIntegration(),
		"error", f.Err)
	return false
}

func (b *SessionBootstrapper) observe(ok bool, err error, sess *Session, start time.Time) {
	if b.observer == nil {
		return
	}
	outcome := outcomeSuccess
	if !ok {
		if f := sess.LastFailure(); f != nil {
			outcome = f.Kind.String()
		} else if err != nil {
			outcome = domain.KindAncillaryFailure.String()
		}
	}
	b.observer.ObserveAuthentication(outcome, b.clock.Since(start))
}

func ancillary(op string, err error) *domain.AuthError {
	return &domain.AuthError{Kind: domain.KindAncillaryFailure, Op: op, Err: err}
}
