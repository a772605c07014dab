package domain

import "context"

// UserProfile is the directory record for one user. Fields carries any
// additional attributes the directory stores; the orchestrator treats them as opaque.
type UserProfile struct {
	UserID  string
	JiraURL string
	APIURL  string
	Fields  Settings
}

// Layer renders the profile as the lowest-precedence settings layer.
// Absent URLs are left out so higher layers cannot be shadowed by empty values.
func (p *UserProfile) Layer() Settings {
	layer := make(Settings, len(p.Fields)+3)
	for k, v := range p.Fields {
		layer[k] = v
	}
	layer["userId"] = p.UserID
	if p.JiraURL != "" {
		layer["jiraUrl"] = p.JiraURL
	}
	if p.APIURL != "" {
		layer["apiUrl"] = p.APIURL
	}
	return layer
}

type UserDirectory interface {
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)
}

// UserRepository is the writable side of the directory, used by the Jira integration flow.
type UserRepository interface {
	UserDirectory
	Upsert(ctx context.Context, profile UserProfile) error
}
