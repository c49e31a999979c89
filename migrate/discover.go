package migrate

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/errors"
	"github.com/teranos/ngmigrate/logger"
)

// Discovery is the entity graph below one root.
type Discovery struct {
	Root  cg.EntityRef
	AppID string
	Graph *Graph
	Nodes map[cg.EntityRef]*Node
	// Unreadable holds the refs whose subtree was cut off, with the cause.
	Unreadable map[cg.EntityRef]error
	// Errors lists Unreadable in discovery order.
	Errors []ImportError
}

// Discoverer walks the legacy graph breadth first.
type Discoverer struct {
	registry *Registry
	store    cg.Store
	log      *zap.SugaredLogger
}

// NewDiscoverer creates a discoverer reading through store.
func NewDiscoverer(registry *Registry, store cg.Store, log *zap.SugaredLogger) *Discoverer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Discoverer{registry: registry, store: store, log: log.Named("migrate.discover")}
}

// Discover fetches root and every entity reachable from it. Failure to read
// the root aborts; any other unreadable entity only loses its subtree.
func (d *Discoverer) Discover(ctx context.Context, root cg.EntityRef, appID string) (*Discovery, error) {
	out := &Discovery{
		Root:       root,
		AppID:      appID,
		Graph:      NewGraph(),
		Nodes:      make(map[cg.EntityRef]*Node),
		Unreadable: make(map[cg.EntityRef]error),
	}

	node, children, err := d.visit(ctx, root, appID)
	if err != nil {
		return nil, NewFailure(CategoryContext, root, errors.Wrapf(err, "read root %s", root))
	}
	out.Graph.AddNode(root)
	out.Nodes[root] = node

	seen := map[cg.EntityRef]bool{root: true}
	type item struct {
		parent   cg.EntityRef
		children []cg.EntityRef
	}
	queue := []item{{parent: root, children: children}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, NewFailure(CategoryContext, root, errors.Wrap(err, "discovery interrupted"))
		}
		cur := queue[0]
		queue = queue[1:]

		sortRefs(cur.children)
		for _, child := range cur.children {
			out.Graph.AddEdge(cur.parent, child)
			if seen[child] {
				continue
			}
			seen[child] = true

			n, grand, err := d.visit(ctx, child, appID)
			if err != nil {
				d.log.Warnw("Entity unreadable, subtree skipped",
					logger.FieldEntityType, child.Type,
					logger.FieldEntityID, child.ID,
					logger.FieldError, err)
				out.Unreadable[child] = err
				out.Errors = append(out.Errors, NewFailure(CategoryDiscovery, child, err).ImportError())
				continue
			}
			out.Nodes[child] = n
			if len(grand) > 0 {
				queue = append(queue, item{parent: child, children: grand})
			}
		}
	}

	d.log.Infow("Discovery complete",
		logger.FieldEntityType, root.Type,
		logger.FieldEntityID, root.ID,
		logger.FieldCount, len(out.Nodes),
		"unreadable", len(out.Unreadable))
	return out, nil
}

func (d *Discoverer) visit(ctx context.Context, ref cg.EntityRef, appID string) (*Node, []cg.EntityRef, error) {
	s, ok := d.registry.Get(ref.Type)
	if !ok {
		return nil, nil, errors.NewInvalidRequestError("no strategy registered for %s", ref.Type)
	}
	entity, err := d.store.GetByAppAndID(ctx, ref.Type, appID, ref.ID)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "read %s", ref)
	}
	node, children, err := s.Discover(ctx, d.store, entity)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "discover %s", ref)
	}
	if node == nil {
		node = &Node{Ref: ref, AppID: entity.OwnerAppID(), Entity: entity}
	}
	return node, children, nil
}
