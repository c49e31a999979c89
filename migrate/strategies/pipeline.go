package strategies

import (
	"context"
	"fmt"
	"sort"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/errors"
	"github.com/teranos/ngmigrate/expr"
	"github.com/teranos/ngmigrate/identifier"
	"github.com/teranos/ngmigrate/migrate"
	"github.com/teranos/ngmigrate/ng"
)

// Pipeline migrates a pipeline whose workflow stages reference the stage
// templates produced by Workflow. It is skipped when any of those workflows
// was not migrated.
func Pipeline() migrate.Strategy {
	s := base(cg.Pipeline)
	s.Discover = func(_ context.Context, _ cg.Store, e cg.Entity) (*migrate.Node, []cg.EntityRef, error) {
		p := e.(*cg.PipelineEntity)
		return node(e), refs(cg.Workflow, workflowIDs(p)...), nil
	}
	s.Generate = func(mc *migrate.Context, ref cg.EntityRef) (*migrate.Generated, error) {
		p, err := entity[*cg.PipelineEntity](mc, ref)
		if err != nil {
			return nil, err
		}
		for _, id := range workflowIDs(p) {
			if mc.Resolve(cg.Ref(cg.Workflow, id)).RuntimeInput {
				return skip(ref, "workflow not migrated: %s", id), nil
			}
		}

		scope := mc.ScopeFor(ref)
		defaults := expr.Bindings{"pipeline.name": "<+pipeline.name>", "app.name": "<+project.name>"}
		stages, err := renderStages(mc, p, defaults)
		if err != nil {
			return nil, migrate.NewFailure(migrate.CategoryCollision, ref, err)
		}

		return single(build(mc, document{
			ref:   ref,
			t:     ng.Pipeline,
			name:  p.Name,
			scope: scope,
			body: func(id, name string) expr.Value {
				m := withDescription(header(name, id, scope), p.Description)
				m = append(m, expr.Field{Key: "stages", Value: stages})
				return expr.Map{{Key: "pipeline", Value: m}}
			},
			layers: []expr.Bindings{defaults},
		}))
	}
	return s
}

// renderStages renders each stage on its own. A stage sees the outputs
// published by earlier stages as context.<name>, the latest stage first,
// then the pipeline defaults. Tokens left unbound here are seen again by the
// pipeline pass, which adds the custom expressions. Stage identifiers share
// the collision limit of the run.
func renderStages(mc *migrate.Context, p *cg.PipelineEntity, defaults expr.Bindings) (expr.List, error) {
	limit := mc.Params.CollisionLimit
	if limit == 0 {
		limit = identifier.DefaultCollisionLimit
	}
	ids := identifier.NewAllocator(limit)
	var published []expr.Bindings

	out := make(expr.List, 0, len(p.Stages))
	for i, st := range p.Stages {
		sid, err := ids.Allocate("stage", identifier.Generate(st.Name, mc.Params.CaseConvention), cg.Ref(cg.Pipeline, fmt.Sprint(i)))
		if err != nil {
			return nil, errors.Wrapf(err, "allocate identifier for stage %q", st.Name)
		}

		layers := make([]expr.Bindings, 0, len(published)+1)
		for j := len(published) - 1; j >= 0; j-- {
			layers = append(layers, published[j])
		}
		layers = append(layers, defaults)
		rendered, _ := expr.Render(stageValue(mc, st, sid), layers...)
		out = append(out, expr.Map{{Key: "stage", Value: rendered}})

		if len(st.Outputs) > 0 {
			published = append(published, functors(sid, st.Outputs))
		}
	}
	return out, nil
}

func stageValue(mc *migrate.Context, st cg.Stage, sid string) expr.Map {
	m := expr.Map{
		{Key: "name", Value: expr.String(st.Name)},
		{Key: "identifier", Value: expr.String(sid)},
	}
	if st.Type == cg.StageApproval {
		return append(m,
			expr.Field{Key: "type", Value: expr.String("Approval")},
			expr.Field{Key: "spec", Value: expr.Map{{Key: "execution", Value: expr.Map{
				{Key: "steps", Value: expr.List{expr.Map{{Key: "step", Value: expr.Map{
					{Key: "name", Value: expr.String(st.Name)},
					{Key: "identifier", Value: expr.String(sid + "_approval")},
					{Key: "type", Value: expr.String("HarnessApproval")},
					{Key: "spec", Value: expr.Map{{Key: "approvers", Value: expr.Map{
						{Key: "userGroups", Value: expr.Strings(identifier.RuntimeInput)},
					}}}},
				}}}}},
			}}}},
		)
	}

	wf := mc.Resolve(cg.Ref(cg.Workflow, st.WorkflowID))
	names := make([]string, 0, len(st.WorkflowVariables))
	for name := range st.WorkflowVariables {
		names = append(names, name)
	}
	sort.Strings(names)
	vars := make(expr.List, 0, len(names))
	for _, name := range names {
		value := st.WorkflowVariables[name]
		if value == "" {
			value = identifier.RuntimeInput
		}
		vars = append(vars, expr.Map{
			{Key: "name", Value: expr.String(name)},
			{Key: "type", Value: expr.String("String")},
			{Key: "value", Value: expr.String(value)},
		})
	}
	return append(m,
		expr.Field{Key: "template", Value: expr.Map{
			{Key: "templateRef", Value: expr.String(wf.String())},
			{Key: "versionLabel", Value: expr.String("v1")},
			{Key: "templateInputs", Value: expr.Map{
				{Key: "type", Value: expr.String("Deployment")},
				{Key: "variables", Value: vars},
			}},
		}},
	)
}

// functors binds the outputs a stage publishes.
func functors(sid string, outputs []string) expr.Bindings {
	b := make(expr.Bindings, len(outputs))
	for _, name := range outputs {
		b["context."+name] = fmt.Sprintf("<+pipeline.stages.%s.variables.%s>", sid, name)
	}
	return b
}

func workflowIDs(p *cg.PipelineEntity) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, st := range p.Stages {
		if st.Type == cg.StageApproval || st.WorkflowID == "" || seen[st.WorkflowID] {
			continue
		}
		seen[st.WorkflowID] = true
		ids = append(ids, st.WorkflowID)
	}
	return ids
}
