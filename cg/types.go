// Package cg models the legacy ("current gen") configuration entities that are
// migrated: applications and the services, environments, infrastructure
// definitions, workflows, pipelines, config files, templates and secrets that
// hang off them.
package cg

import (
	"fmt"
	"strings"

	"github.com/teranos/ngmigrate/errors"
)

// EntityType tags a legacy entity kind.
type EntityType string

const (
	Application    EntityType = "APPLICATION"
	Service        EntityType = "SERVICE"
	Environment    EntityType = "ENVIRONMENT"
	Infrastructure EntityType = "INFRA"
	Workflow       EntityType = "WORKFLOW"
	Pipeline       EntityType = "PIPELINE"
	ConfigFile     EntityType = "CONFIG_FILE"
	Template       EntityType = "TEMPLATE"
	Secret         EntityType = "SECRET"
)

// AllTypes lists every entity type in a stable order.
var AllTypes = []EntityType{
	Application, Service, Environment, Infrastructure, Workflow,
	Pipeline, ConfigFile, Template, Secret,
}

// ParseEntityType accepts the canonical tag case-insensitively.
func ParseEntityType(s string) (EntityType, error) {
	candidate := EntityType(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range AllTypes {
		if t == candidate {
			return t, nil
		}
	}
	return "", errors.NewInvalidRequestError("unknown entity type %q", s)
}

// GlobalAppID is the owning-application id of account-wide templates.
const GlobalAppID = "__GLOBAL_APP_ID__"

// EntityRef identifies a legacy entity regardless of how it was reached.
type EntityRef struct {
	ID   string     `json:"id" yaml:"id"`
	Type EntityType `json:"type" yaml:"type"`
}

// Ref builds an EntityRef.
func Ref(t EntityType, id string) EntityRef {
	return EntityRef{ID: id, Type: t}
}

func (r EntityRef) String() string {
	return fmt.Sprintf("%s/%s", r.Type, r.ID)
}

// Less orders refs by type, then id.
func (r EntityRef) Less(o EntityRef) bool {
	if r.Type != o.Type {
		return r.Type < o.Type
	}
	return r.ID < o.ID
}

// Entity is implemented by every legacy entity payload.
type Entity interface {
	EntityRef() EntityRef
	// OwnerAppID is empty for account-level entities.
	OwnerAppID() string
	DisplayName() string
}

// Variable is a named workflow, service or template variable.
type Variable struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
	// Fixed variables keep their value; others become runtime inputs.
	Fixed bool `json:"fixed,omitempty" yaml:"fixed,omitempty"`
}
