package strategies

import (
	"context"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/expr"
	"github.com/teranos/ngmigrate/migrate"
	"github.com/teranos/ngmigrate/ng"
)

// Infrastructure migrates an infrastructure definition. It cannot exist
// without its environment, so it is skipped when that was not migrated.
func Infrastructure() migrate.Strategy {
	s := base(cg.Infrastructure)
	s.Discover = func(_ context.Context, _ cg.Store, e cg.Entity) (*migrate.Node, []cg.EntityRef, error) {
		infra := e.(*cg.InfrastructureEntity)
		return node(e), refs(cg.Environment, infra.EnvID), nil
	}
	s.Generate = func(mc *migrate.Context, ref cg.EntityRef) (*migrate.Generated, error) {
		infra, err := entity[*cg.InfrastructureEntity](mc, ref)
		if err != nil {
			return nil, err
		}
		env := mc.Resolve(cg.Ref(cg.Environment, infra.EnvID))
		if env.RuntimeInput {
			return skip(ref, "environment not migrated: %s", infra.EnvID), nil
		}
		envName := ""
		if e := mc.Entity(env.Ref); e != nil {
			envName = e.DisplayName()
		}
		scope := mc.ScopeFor(ref)
		return single(build(mc, document{
			ref:   ref,
			t:     ng.Infrastructure,
			name:  infra.Name,
			scope: scope,
			body: func(id, name string) expr.Value {
				spec := expr.Map{}
				if infra.Namespace != "" {
					spec = append(spec, expr.Field{Key: "namespace", Value: expr.String(infra.Namespace)})
				}
				if infra.ReleaseName != "" {
					spec = append(spec, expr.Field{Key: "releaseName", Value: expr.String(infra.ReleaseName)})
				}
				m := header(name, id, scope)
				m = append(m,
					expr.Field{Key: "environmentRef", Value: expr.String(env.String())},
					expr.Field{Key: "deploymentType", Value: expr.String(deploymentType(infra.DeploymentType))},
					expr.Field{Key: "type", Value: expr.String(infrastructureType(infra.CloudProvider))},
					expr.Field{Key: "spec", Value: spec},
				)
				return expr.Map{{Key: "infrastructureDefinition", Value: m}}
			},
			layers: []expr.Bindings{{
				"infra.name":                 infra.Name,
				"infra.kubernetes.namespace": "<+infra.namespace>",
				"infra.helm.releaseName":     "<+infra.releaseName>",
				"env.name":                   envName,
			}},
		}))
	}
	return s
}

func infrastructureType(provider string) string {
	switch provider {
	case "GCP":
		return "KubernetesGcp"
	case "AZURE":
		return "KubernetesAzure"
	case "AWS":
		return "KubernetesAws"
	case "PHYSICAL_DATA_CENTER":
		return "SshWinRmPdc"
	}
	return "KubernetesDirect"
}
