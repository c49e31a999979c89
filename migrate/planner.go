package migrate

import (
	"go.uber.org/zap"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/logger"
)

// Plan is the leaves-first processing order of a run.
type Plan struct {
	// Order lists the entities to process; every child precedes its parents.
	Order []cg.EntityRef `json:"order"`
	// Ineligible entities were rejected by their strategy's CanMigrate.
	Ineligible []cg.EntityRef `json:"ineligible"`
	// Existing entities already have a target equivalent.
	Existing []cg.EntityRef `json:"existing"`
	// Unreadable entities failed discovery and are never scheduled.
	Unreadable []cg.EntityRef `json:"unreadable"`
}

// Planner orders a discovered graph.
type Planner struct {
	registry *Registry
	log      *zap.SugaredLogger
}

// NewPlanner creates a planner dispatching eligibility through registry.
func NewPlanner(registry *Registry, log *zap.SugaredLogger) *Planner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Planner{registry: registry, log: log.Named("migrate.planner")}
}

// Plan walks the graph depth first from the context root and emits nodes in
// post-order. Children are visited in (type, id) order so the plan is
// deterministic. Excluded nodes are still traversed.
func (p *Planner) Plan(mc *Context, migrateAll bool) *Plan {
	plan := &Plan{}
	visited := make(map[cg.EntityRef]bool)

	var visit func(ref cg.EntityRef)
	visit = func(ref cg.EntityRef) {
		if visited[ref] {
			return
		}
		visited[ref] = true
		for _, child := range mc.Graph().Children(ref) {
			visit(child)
		}

		if _, ok := mc.Node(ref); !ok {
			plan.Unreadable = append(plan.Unreadable, ref)
			return
		}
		s, ok := p.registry.Get(ref.Type)
		switch {
		case !ok || !s.CanMigrate(ref.ID, mc.Root, migrateAll):
			plan.Ineligible = append(plan.Ineligible, ref)
		case s.IsNGEntityExists(mc, ref):
			plan.Existing = append(plan.Existing, ref)
		default:
			plan.Order = append(plan.Order, ref)
		}
	}
	visit(mc.Root)

	p.log.Debugw("Plan computed",
		logger.FieldEntityType, mc.Root.Type,
		logger.FieldEntityID, mc.Root.ID,
		logger.FieldCount, len(plan.Order),
		"ineligible", len(plan.Ineligible),
		"existing", len(plan.Existing))
	return plan
}
