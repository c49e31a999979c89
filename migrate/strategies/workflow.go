package strategies

import (
	"context"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/expr"
	"github.com/teranos/ngmigrate/identifier"
	"github.com/teranos/ngmigrate/migrate"
	"github.com/teranos/ngmigrate/ng"
)

// Workflow migrates a workflow into a stage template. Service, environment
// and infrastructure that were not migrated become runtime inputs; a step
// template that was not migrated skips the workflow.
func Workflow() migrate.Strategy {
	s := base(cg.Workflow)
	s.Discover = func(ctx context.Context, store cg.Store, e cg.Entity) (*migrate.Node, []cg.EntityRef, error) {
		wf := e.(*cg.WorkflowEntity)
		children := append(refs(cg.Service, wf.ServiceID), refs(cg.Environment, wf.EnvID)...)
		children = append(children, refs(cg.Infrastructure, wf.InfraID)...)
		children = append(children, refs(cg.Template, templateIDs(wf)...)...)

		secretRefs, err := secretChildren(ctx, store, wf.AppID, propertyStrings(wf)...)
		if err != nil {
			return nil, nil, err
		}
		return node(e), append(children, secretRefs...), nil
	}
	s.Generate = func(mc *migrate.Context, ref cg.EntityRef) (*migrate.Generated, error) {
		wf, err := entity[*cg.WorkflowEntity](mc, ref)
		if err != nil {
			return nil, err
		}
		for _, id := range templateIDs(wf) {
			if mc.Resolve(cg.Ref(cg.Template, id)).RuntimeInput {
				return skip(ref, "template not migrated: %s", id), nil
			}
		}

		svc := mc.Resolve(cg.Ref(cg.Service, wf.ServiceID))
		env := mc.Resolve(cg.Ref(cg.Environment, wf.EnvID))
		infra := mc.Resolve(cg.Ref(cg.Infrastructure, wf.InfraID))
		scope := mc.ScopeFor(ref)
		convention := mc.Params.CaseConvention

		return single(build(mc, document{
			ref:   ref,
			t:     ng.Template,
			name:  wf.Name,
			scope: scope,
			body: func(id, name string) expr.Value {
				phases := make(expr.List, 0, len(wf.Phases))
				for _, p := range wf.Phases {
					steps := make(expr.List, 0, len(p.Steps))
					for _, st := range p.Steps {
						steps = append(steps, expr.Map{{Key: "step", Value: stepValue(mc, st, convention)}})
					}
					phases = append(phases, expr.Map{{Key: "stepGroup", Value: expr.Map{
						{Key: "name", Value: expr.String(p.Name)},
						{Key: "identifier", Value: expr.String(identifier.Generate(p.Name, convention))},
						{Key: "steps", Value: steps},
					}}})
				}
				stage := expr.Map{
					{Key: "type", Value: expr.String("Deployment")},
					{Key: "spec", Value: expr.Map{
						{Key: "service", Value: expr.Map{{Key: "serviceRef", Value: expr.String(svc.String())}}},
						{Key: "environment", Value: expr.Map{
							{Key: "environmentRef", Value: expr.String(env.String())},
							{Key: "infrastructureDefinitions", Value: expr.List{
								expr.Map{{Key: "identifier", Value: expr.String(infra.String())}},
							}},
						}},
						{Key: "execution", Value: expr.Map{{Key: "steps", Value: phases}}},
					}},
					{Key: "variables", Value: variables(wf.Variables)},
				}
				m := withDescription(header(name, id, scope), wf.Description)
				m = append(m,
					expr.Field{Key: "versionLabel", Value: expr.String("v1")},
					expr.Field{Key: "type", Value: expr.String("Stage")},
					expr.Field{Key: "spec", Value: stage},
				)
				return expr.Map{{Key: "template", Value: m}}
			},
			layers: []expr.Bindings{
				secretBindings(mc, ref, propertyStrings(wf)...),
				variableBindings(wf.Variables, "workflow.variables", "stage.variables"),
				workflowDefaults(mc, wf),
			},
		}))
	}
	return s
}

func stepValue(mc *migrate.Context, st cg.Step, convention identifier.CaseConvention) expr.Map {
	m := expr.Map{
		{Key: "name", Value: expr.String(st.Name)},
		{Key: "identifier", Value: expr.String(identifier.Generate(st.Name, convention))},
	}
	if st.TemplateID != "" {
		return append(m, expr.Field{Key: "template", Value: expr.Map{
			{Key: "templateRef", Value: expr.String(mc.Resolve(cg.Ref(cg.Template, st.TemplateID)).String())},
			{Key: "versionLabel", Value: expr.String("v1")},
		}})
	}
	spec := toValue(st.Properties)
	if len(st.Properties) == 0 {
		spec = expr.Map{}
	}
	return append(m,
		expr.Field{Key: "type", Value: expr.String(stepType(st.Type))},
		expr.Field{Key: "spec", Value: spec},
	)
}

// workflowDefaults binds the legacy built-in expressions of a workflow.
func workflowDefaults(mc *migrate.Context, wf *cg.WorkflowEntity) expr.Bindings {
	b := expr.Bindings{
		"workflow.name":              wf.Name,
		"infra.kubernetes.namespace": "<+infra.namespace>",
		"infra.helm.releaseName":     "<+infra.releaseName>",
		"service.name":               "<+service.name>",
		"env.name":                   "<+env.name>",
		"infra.name":                 "<+infra.name>",
		"artifact.buildNo":           "<+artifact.tag>",
	}
	if e := mc.Entity(cg.Ref(cg.Service, wf.ServiceID)); e != nil {
		b["service.name"] = e.DisplayName()
	}
	if e := mc.Entity(cg.Ref(cg.Environment, wf.EnvID)); e != nil {
		b["env.name"] = e.DisplayName()
	}
	if e := mc.Entity(cg.Ref(cg.Infrastructure, wf.InfraID)); e != nil {
		b["infra.name"] = e.DisplayName()
	}
	return b
}

func templateIDs(wf *cg.WorkflowEntity) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, p := range wf.Phases {
		for _, st := range p.Steps {
			if st.TemplateID != "" && !seen[st.TemplateID] {
				seen[st.TemplateID] = true
				ids = append(ids, st.TemplateID)
			}
		}
	}
	return ids
}

func propertyStrings(wf *cg.WorkflowEntity) []string {
	var out []string
	for _, p := range wf.Phases {
		for _, st := range p.Steps {
			out = append(out, stringLeaves(st.Properties)...)
		}
	}
	return out
}

func stepType(t string) string {
	switch t {
	case "SHELL_SCRIPT":
		return "ShellScript"
	case "HTTP":
		return "Http"
	case "K8S_ROLLING_DEPLOY", "K8S_DEPLOYMENT_ROLLING":
		return "K8sRollingDeploy"
	case "K8S_ROLLING_ROLLBACK":
		return "K8sRollingRollback"
	case "HELM_DEPLOY":
		return "HelmDeploy"
	case "APPROVAL":
		return "HarnessApproval"
	case "":
		return "ShellScript"
	}
	return t
}
