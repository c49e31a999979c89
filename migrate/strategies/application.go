package strategies

import (
	"context"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/errors"
	"github.com/teranos/ngmigrate/migrate"
)

// applicationChildren are the types listed under an application.
var applicationChildren = []cg.EntityType{
	cg.Service, cg.Environment, cg.Infrastructure, cg.Workflow, cg.Pipeline, cg.Template,
}

// Application only groups its children; it has no target equivalent.
func Application() migrate.Strategy {
	s := base(cg.Application)
	s.Discover = func(ctx context.Context, store cg.Store, e cg.Entity) (*migrate.Node, []cg.EntityRef, error) {
		var children []cg.EntityRef
		for _, t := range applicationChildren {
			list, err := store.ListByApp(ctx, t, e.EntityRef().ID)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "list %s entities", t)
			}
			for _, child := range list {
				children = append(children, child.EntityRef())
			}
		}
		return node(e), children, nil
	}
	s.CanMigrate = migrate.Never
	s.Generate = func(*migrate.Context, cg.EntityRef) (*migrate.Generated, error) {
		return nil, nil
	}
	s.GetExisting = migrate.NoExisting
	return s
}
