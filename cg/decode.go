package cg

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/teranos/ngmigrate/errors"
)

// New returns an empty payload for t.
func New(t EntityType) (Entity, error) {
	switch t {
	case Application:
		return &ApplicationEntity{}, nil
	case Service:
		return &ServiceEntity{}, nil
	case Environment:
		return &EnvironmentEntity{}, nil
	case Infrastructure:
		return &InfrastructureEntity{}, nil
	case Workflow:
		return &WorkflowEntity{}, nil
	case Pipeline:
		return &PipelineEntity{}, nil
	case ConfigFile:
		return &ConfigFileEntity{}, nil
	case Template:
		return &TemplateEntity{}, nil
	case Secret:
		return &SecretEntity{}, nil
	}
	return nil, errors.NewInvalidRequestError("unknown entity type %q", t)
}

// DecodeJSON decodes a stored JSON payload into the typed entity for t.
func DecodeJSON(t EntityType, payload []byte) (Entity, error) {
	e, err := New(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, e); err != nil {
		return nil, errors.Wrapf(err, "decode %s payload", t)
	}
	return e, nil
}

// DecodeYAML decodes a YAML mapping node into the typed entity for t.
func DecodeYAML(t EntityType, node *yaml.Node) (Entity, error) {
	e, err := New(t)
	if err != nil {
		return nil, err
	}
	if err := node.Decode(e); err != nil {
		return nil, errors.Wrapf(err, "decode %s document", t)
	}
	return e, nil
}
