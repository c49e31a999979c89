package strategies

import (
	"context"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/expr"
	"github.com/teranos/ngmigrate/migrate"
	"github.com/teranos/ngmigrate/ng"
)

// Environment migrates an environment with its variables and config file overrides.
func Environment() migrate.Strategy {
	s := base(cg.Environment)
	s.Discover = func(_ context.Context, _ cg.Store, e cg.Entity) (*migrate.Node, []cg.EntityRef, error) {
		env := e.(*cg.EnvironmentEntity)
		return node(e), refs(cg.ConfigFile, env.ConfigFileIDs...), nil
	}
	s.Generate = func(mc *migrate.Context, ref cg.EntityRef) (*migrate.Generated, error) {
		env, err := entity[*cg.EnvironmentEntity](mc, ref)
		if err != nil {
			return nil, err
		}
		scope := mc.ScopeFor(ref)
		return single(build(mc, document{
			ref:   ref,
			t:     ng.Environment,
			name:  env.Name,
			scope: scope,
			body: func(id, name string) expr.Value {
				m := withDescription(header(name, id, scope), env.Description)
				m = append(m,
					expr.Field{Key: "type", Value: expr.String(environmentType(env.EnvironmentType))},
					expr.Field{Key: "variables", Value: variables(env.Variables)},
				)
				if files := configFiles(mc, env.ConfigFileIDs); len(files) > 0 {
					m = append(m, expr.Field{Key: "overrides", Value: expr.Map{{Key: "configFiles", Value: files}}})
				}
				return expr.Map{{Key: "environment", Value: m}}
			},
			layers: []expr.Bindings{
				variableBindings(env.Variables, "environmentVariable", "env.variables"),
				{"env.name": env.Name},
			},
		}))
	}
	return s
}

func environmentType(t string) string {
	if t == "PROD" {
		return "Production"
	}
	return "PreProduction"
}
