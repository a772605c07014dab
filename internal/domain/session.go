package domain

import (
	"context"
	"encoding/json"
	"maps"
)

// SessionIDResolver returns the user id bound to the caller's browser session.
// Any error means no session is known and the integration flow must run.
type SessionIDResolver interface {
	CurrentSessionUserID(ctx context.Context) (string, error)
}

// CurrentUser is the merged view of profile, settings and identity.
// It marshals as one flat object with jiraUser and dashboards alongside the attributes.
type CurrentUser struct {
	Attributes Settings
	Identity   *ExternalIdentity
	Dashboards []Dashboard
}

func (u *CurrentUser) Get(key string) (any, bool) {
	v, ok := u.Attributes[key]
	return v, ok
}

func (u *CurrentUser) Clone() *CurrentUser {
	if u == nil {
		return nil
	}
	c := &CurrentUser{Attributes: maps.Clone(u.Attributes)}
	if u.Identity != nil {
		id := *u.Identity
		id.Raw = maps.Clone(u.Identity.Raw)
		c.Identity = &id
	}
	if u.Dashboards != nil {
		c.Dashboards = make([]Dashboard, len(u.Dashboards))
		copy(c.Dashboards, u.Dashboards)
	}
	return c
}

func (u *CurrentUser) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Attributes)+2)
	for k, v := range u.Attributes {
		out[k] = v
	}
	if u.Identity != nil {
		if len(u.Identity.Raw) > 0 {
			out["jiraUser"] = u.Identity.Raw
		} else {
			out["jiraUser"] = u.Identity
		}
	}
	if u.Dashboards != nil {
		out["dashboards"] = u.Dashboards
	}
	return json.Marshal(out)
}
