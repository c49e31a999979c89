package strategies

import (
	"context"
	"fmt"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/expr"
	"github.com/teranos/ngmigrate/identifier"
	"github.com/teranos/ngmigrate/migrate"
	"github.com/teranos/ngmigrate/ng"
)

// Template migrates a shared step template. Templates owned by the global
// application land at account scope unless overridden.
func Template() migrate.Strategy {
	s := base(cg.Template)
	s.Discover = func(ctx context.Context, store cg.Store, e cg.Entity) (*migrate.Node, []cg.EntityRef, error) {
		t := e.(*cg.TemplateEntity)
		named, err := secretChildren(ctx, store, t.AppID, t.Body)
		if err != nil {
			return nil, nil, err
		}
		return node(e), named, nil
	}
	s.Generate = func(mc *migrate.Context, ref cg.EntityRef) (*migrate.Generated, error) {
		t, err := entity[*cg.TemplateEntity](mc, ref)
		if err != nil {
			return nil, err
		}
		scope := mc.ScopeFor(ref)

		envVars := make(expr.List, 0, len(t.Variables))
		varBindings := make(expr.Bindings, len(t.Variables))
		for _, v := range t.Variables {
			value := v.Value
			if value == "" {
				value = identifier.RuntimeInput
			}
			envVars = append(envVars, expr.Map{
				{Key: "name", Value: expr.String(v.Name)},
				{Key: "type", Value: expr.String("String")},
				{Key: "value", Value: expr.String(value)},
			})
			varBindings[v.Name] = fmt.Sprintf("<+spec.environmentVariables.%s>", v.Name)
		}

		return single(build(mc, document{
			ref:   ref,
			t:     ng.Template,
			name:  t.Name,
			scope: scope,
			body: func(id, name string) expr.Value {
				var spec expr.Map
				switch t.TemplateType {
				case "HTTP":
					spec = expr.Map{
						{Key: "url", Value: expr.String(t.Body)},
						{Key: "method", Value: expr.String("GET")},
					}
				default:
					spec = expr.Map{
						{Key: "shell", Value: expr.String("Bash")},
						{Key: "source", Value: expr.Map{
							{Key: "type", Value: expr.String("Inline")},
							{Key: "spec", Value: expr.Map{{Key: "script", Value: expr.String(t.Body)}}},
						}},
						{Key: "environmentVariables", Value: envVars},
					}
				}
				m := header(name, id, scope)
				m = append(m,
					expr.Field{Key: "versionLabel", Value: expr.String("v1")},
					expr.Field{Key: "type", Value: expr.String("Step")},
					expr.Field{Key: "spec", Value: expr.Map{
						{Key: "type", Value: expr.String(templateStepType(t.TemplateType))},
						{Key: "spec", Value: spec},
					}},
				)
				return expr.Map{{Key: "template", Value: m}}
			},
			layers: []expr.Bindings{secretBindings(mc, ref, t.Body), varBindings},
		}))
	}
	return s
}

func templateStepType(t string) string {
	if t == "HTTP" {
		return "Http"
	}
	return "ShellScript"
}
