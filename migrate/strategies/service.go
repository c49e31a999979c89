package strategies

import (
	"context"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/expr"
	"github.com/teranos/ngmigrate/migrate"
	"github.com/teranos/ngmigrate/ng"
)

// Service migrates a service with its variables and config files.
func Service() migrate.Strategy {
	s := base(cg.Service)
	s.Discover = func(_ context.Context, _ cg.Store, e cg.Entity) (*migrate.Node, []cg.EntityRef, error) {
		svc := e.(*cg.ServiceEntity)
		return node(e), refs(cg.ConfigFile, svc.ConfigFileIDs...), nil
	}
	s.Generate = func(mc *migrate.Context, ref cg.EntityRef) (*migrate.Generated, error) {
		svc, err := entity[*cg.ServiceEntity](mc, ref)
		if err != nil {
			return nil, err
		}
		scope := mc.ScopeFor(ref)
		return single(build(mc, document{
			ref:   ref,
			t:     ng.Service,
			name:  svc.Name,
			scope: scope,
			body: func(id, name string) expr.Value {
				spec := expr.Map{{Key: "variables", Value: variables(svc.Variables)}}
				if files := configFiles(mc, svc.ConfigFileIDs); len(files) > 0 {
					spec = append(spec, expr.Field{Key: "configFiles", Value: files})
				}
				if svc.ArtifactType != "" {
					spec = append(spec, expr.Field{Key: "artifactType", Value: expr.String(svc.ArtifactType)})
				}
				m := withDescription(header(name, id, scope), svc.Description)
				m = append(m, expr.Field{Key: "serviceDefinition", Value: expr.Map{
					{Key: "type", Value: expr.String(deploymentType(svc.DeploymentType))},
					{Key: "spec", Value: spec},
				}})
				return expr.Map{{Key: "service", Value: m}}
			},
			layers: []expr.Bindings{
				variableBindings(svc.Variables, "serviceVariable", "serviceVariables"),
				{"service.name": svc.Name},
			},
		}))
	}
	return s
}

// configFiles references the file documents of migrated config files.
func configFiles(mc *migrate.Context, ids []string) expr.List {
	var out expr.List
	for _, ref := range refs(cg.ConfigFile, ids...) {
		res := mc.Resolve(ref)
		file := res.String()
		if !res.RuntimeInput {
			file = "/" + file
		}
		out = append(out, expr.Map{{Key: "configFile", Value: expr.Map{
			{Key: "identifier", Value: expr.String(ref.ID)},
			{Key: "spec", Value: expr.Map{{Key: "store", Value: expr.Map{
				{Key: "type", Value: expr.String("Harness")},
				{Key: "spec", Value: expr.Map{{Key: "files", Value: expr.Strings(file)}}},
			}}}},
		}}})
	}
	return out
}

// deploymentType maps legacy deployment types to target names.
func deploymentType(t string) string {
	switch t {
	case "KUBERNETES", "K8S":
		return "Kubernetes"
	case "HELM":
		return "NativeHelm"
	case "SSH":
		return "Ssh"
	case "WINRM":
		return "WinRm"
	case "ECS":
		return "ECS"
	case "AWS_LAMBDA":
		return "AwsLambda"
	case "":
		return "Kubernetes"
	}
	return t
}
