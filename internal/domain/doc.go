// Package domain defines the session bootstrap types and the collaborator contracts
// the orchestrator in internal/app consumes.
//
// Files are grouped by concept (user.go, settings.go, identity.go, errors.go, ...).
// Adapters implement the interfaces declared here; nothing in this package performs I/O.
package domain
