package strategies

import (
	"context"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/expr"
	"github.com/teranos/ngmigrate/identifier"
	"github.com/teranos/ngmigrate/migrate"
	"github.com/teranos/ngmigrate/ng"
)

// HarnessSecretManager is the target's built-in secret manager.
const HarnessSecretManager = "harnessSecretManager"

// Secret migrates a secret's metadata. Inline values cannot be exported and
// are asked for at runtime; external secrets keep their path.
func Secret() migrate.Strategy {
	s := base(cg.Secret)
	s.Discover = func(_ context.Context, _ cg.Store, e cg.Entity) (*migrate.Node, []cg.EntityRef, error) {
		return node(e), nil, nil
	}
	s.Generate = func(mc *migrate.Context, ref cg.EntityRef) (*migrate.Generated, error) {
		sec, err := entity[*cg.SecretEntity](mc, ref)
		if err != nil {
			return nil, err
		}
		manager := HarnessSecretManager
		if sec.SecretManagerID != "" {
			manager = identifier.Generate(sec.SecretManagerID, mc.Params.CaseConvention)
		}
		valueType, value := "Inline", identifier.RuntimeInput
		if sec.Path != "" {
			valueType, value = "Reference", sec.Path
		}
		scope := mc.ScopeFor(ref)
		return single(build(mc, document{
			ref:   ref,
			t:     ng.Secret,
			name:  sec.Name,
			scope: scope,
			body: func(id, name string) expr.Value {
				m := header(name, id, scope)
				m = append(m,
					expr.Field{Key: "type", Value: expr.String("SecretText")},
					expr.Field{Key: "spec", Value: expr.Map{
						{Key: "secretManagerIdentifier", Value: expr.String(manager)},
						{Key: "valueType", Value: expr.String(valueType)},
						{Key: "value", Value: expr.String(value)},
					}},
				)
				return expr.Map{{Key: "secret", Value: m}}
			},
		}))
	}
	return s
}
