// Package app holds the session bootstrap use case.
//
// SessionBootstrapper turns an optional user id into an authenticated Session by
// sequencing the user directory, settings store and Jira identity bridge. It depends
// on domain interfaces only; adapters are wired in cmd/server.
package app
