package domain

import "context"

// NotAvailable replaces identity fields the external system left empty.
const NotAvailable = "(not available)"

// ExternalIdentity is the current user as reported by Jira.
type ExternalIdentity struct {
	DisplayName  string         `json:"displayName"`
	EmailAddress string         `json:"emailAddress"`
	Name         string         `json:"name,omitempty"`
	AccountID    string         `json:"accountId,omitempty"`
	Raw          map[string]any `json:"-"`
}

// UserName is the label shown for the identity: the server login name when
// present (Jira Server/Data Center), otherwise the cloud account id.
func (i *ExternalIdentity) UserName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.AccountID
}

type IdentityRequest struct {
	UserID     string
	RootURL    string
	APIRootURL string
}

type IdentityBridge interface {
	GetCurrentIdentity(ctx context.Context, req IdentityRequest) (*ExternalIdentity, error)
}
