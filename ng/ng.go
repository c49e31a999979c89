// Package ng describes the target ("next gen") side of a migration: scopes,
// rendered documents and the client that imports them.
package ng

import (
	"context"
	"fmt"
	"net/http"

	"github.com/teranos/ngmigrate/errors"
	"github.com/teranos/ngmigrate/identifier"
)

// EntityType is a target resource kind.
type EntityType string

const (
	Service         EntityType = "service"
	Environment     EntityType = "environment"
	Infrastructure  EntityType = "infrastructure"
	ServiceOverride EntityType = "serviceoverride"
	Pipeline        EntityType = "pipeline"
	Template        EntityType = "template"
	Secret          EntityType = "secret"
	File            EntityType = "file"
)

// Scope locates a target resource.
type Scope struct {
	Level     identifier.Level `json:"level"`
	AccountID string           `json:"accountId"`
	OrgID     string           `json:"orgId,omitempty"`
	ProjectID string           `json:"projectId,omitempty"`
}

// AtLevel returns the scope narrowed or widened to level, dropping
// coordinates that level does not use.
func (s Scope) AtLevel(level identifier.Level) Scope {
	out := Scope{Level: level, AccountID: s.AccountID}
	switch level {
	case identifier.Project:
		out.OrgID, out.ProjectID = s.OrgID, s.ProjectID
	case identifier.Org:
		out.OrgID = s.OrgID
	}
	return out
}

// Key is the identifier namespace of t inside this scope.
func (s Scope) Key(t EntityType) string {
	return identifier.ScopeKey(string(t), s.Level, s.OrgID, s.ProjectID)
}

func (s Scope) String() string {
	switch s.Level {
	case identifier.Project:
		return fmt.Sprintf("project %s/%s/%s", s.AccountID, s.OrgID, s.ProjectID)
	case identifier.Org:
		return fmt.Sprintf("org %s/%s", s.AccountID, s.OrgID)
	}
	return "account " + s.AccountID
}

// Document is one rendered target resource ready for import.
type Document struct {
	Type       EntityType
	Scope      Scope
	Identifier string
	Name       string
	YAML       []byte
}

// Client imports documents into the target.
type Client interface {
	// CreateOrUpdate persists doc and returns the identifier the target assigned.
	// Non-2xx responses come back as *StatusError.
	CreateOrUpdate(ctx context.Context, scope Scope, doc Document) (string, error)
	// Get returns the stored YAML of a resource, or nil with no error if it does not exist.
	Get(ctx context.Context, t EntityType, scope Scope, id string) ([]byte, error)
}

// StatusError is a non-2xx answer from the target.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	text := e.Message
	if text == "" {
		text = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("target returned %d %s: %s", e.StatusCode, e.Code, text)
	}
	return fmt.Sprintf("target returned %d: %s", e.StatusCode, text)
}

// StatusCode extracts the HTTP status of a target failure, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
