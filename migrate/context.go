package migrate

import (
	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/errors"
	"github.com/teranos/ngmigrate/expr"
	"github.com/teranos/ngmigrate/identifier"
	"github.com/teranos/ngmigrate/ng"
)

// Context is the run-scoped ledger shared by every strategy call.
//
// Entities and Graph are fixed once discovery finishes. The migrated map only
// grows, through InsertIfAbsent.
type Context struct {
	Store  cg.Store
	Root   cg.EntityRef
	AppID  string
	Params Params

	graph      *Graph
	entities   map[cg.EntityRef]*Node
	unreadable map[cg.EntityRef]error

	migrated map[cg.EntityRef]*Artifact
	order    []cg.EntityRef
	alloc    *identifier.Allocator
}

// NewContext builds a context over a discovery result.
func NewContext(store cg.Store, params Params, d *Discovery) *Context {
	limit := params.CollisionLimit
	if limit == 0 {
		limit = identifier.DefaultCollisionLimit
	}
	mc := &Context{
		Store:      store,
		Root:       d.Root,
		AppID:      d.AppID,
		Params:     params,
		graph:      d.Graph,
		entities:   d.Nodes,
		unreadable: d.Unreadable,
		migrated:   make(map[cg.EntityRef]*Artifact),
		alloc:      identifier.NewAllocator(limit),
	}
	if mc.graph == nil {
		mc.graph = NewGraph()
	}
	if mc.entities == nil {
		mc.entities = make(map[cg.EntityRef]*Node)
	}
	return mc
}

// Graph returns the discovered graph.
func (mc *Context) Graph() *Graph {
	return mc.graph
}

// Node returns the discovered node for ref.
func (mc *Context) Node(ref cg.EntityRef) (*Node, bool) {
	n, ok := mc.entities[ref]
	return n, ok
}

// Entity returns the legacy payload for ref, or nil if it was never discovered.
func (mc *Context) Entity(ref cg.EntityRef) cg.Entity {
	if n, ok := mc.entities[ref]; ok {
		return n.Entity
	}
	return nil
}

// Unreadable returns the discovery error recorded for ref.
func (mc *Context) Unreadable(ref cg.EntityRef) error {
	return mc.unreadable[ref]
}

// InsertIfAbsent records art for ref unless an artifact is already present.
// It returns the stored artifact and whether this call inserted it.
func (mc *Context) InsertIfAbsent(ref cg.EntityRef, art *Artifact) (*Artifact, bool) {
	if existing, ok := mc.migrated[ref]; ok {
		return existing, false
	}
	mc.migrated[ref] = art
	mc.order = append(mc.order, ref)
	return art, true
}

// Migrated returns the artifact recorded for ref.
func (mc *Context) Migrated(ref cg.EntityRef) (*Artifact, bool) {
	art, ok := mc.migrated[ref]
	return art, ok
}

// MigratedRefs lists recorded refs in insertion order.
func (mc *Context) MigratedRefs() []cg.EntityRef {
	return append([]cg.EntityRef(nil), mc.order...)
}

// Lookup implements identifier.Lookup over the migrated ledger.
func (mc *Context) Lookup(ref cg.EntityRef) (identifier.Target, bool) {
	art, ok := mc.migrated[ref]
	if !ok {
		return identifier.Target{}, false
	}
	return identifier.Target{Level: art.Scope.Level, Identifier: art.Identifier}, true
}

// Resolve returns the target reference of ref, or runtime input.
func (mc *Context) Resolve(ref cg.EntityRef) identifier.Reference {
	return identifier.Resolve(mc, ref)
}

// ScopeFor is the target scope of ref after overrides. Account-wide
// templates default to the account level.
func (mc *Context) ScopeFor(ref cg.EntityRef) ng.Scope {
	if o, ok := mc.Params.Overrides[ref]; ok && o.Level != "" {
		return mc.Params.Scope.AtLevel(o.Level)
	}
	if t, ok := mc.Entity(ref).(*cg.TemplateEntity); ok && t.AppID == cg.GlobalAppID {
		return mc.Params.Scope.AtLevel(identifier.Account)
	}
	return mc.Params.Scope
}

// NameFor applies a name override to the legacy display name.
func (mc *Context) NameFor(ref cg.EntityRef, name string) string {
	if o, ok := mc.Params.Overrides[ref]; ok && o.Name != "" {
		return o.Name
	}
	return name
}

// IdentifierFor allocates the target identifier of ref inside scope.
// An identifier override is reserved verbatim; otherwise the name is
// normalized and collisions are suffixed.
func (mc *Context) IdentifierFor(ref cg.EntityRef, t ng.EntityType, scope ng.Scope, name string) (string, error) {
	key := scope.Key(t)
	if o, ok := mc.Params.Overrides[ref]; ok && o.Identifier != "" {
		if !identifier.Valid(o.Identifier) {
			return "", NewFailure(CategoryGenerate, ref,
				errors.NewInvalidRequestError("override identifier %q for %s is not valid", o.Identifier, ref))
		}
		if err := mc.alloc.Reserve(key, o.Identifier, ref); err != nil {
			return "", NewFailure(CategoryCollision, ref, err)
		}
		return o.Identifier, nil
	}
	base := identifier.Generate(name, mc.Params.CaseConvention)
	id, err := mc.alloc.Allocate(key, base, ref)
	if err != nil {
		return "", NewFailure(CategoryCollision, ref, errors.Wrapf(err, "allocate identifier for %s", ref))
	}
	return id, nil
}

// Adopt reserves the identifier the target assigned to art. An identifier
// already held by another entity is a collision.
func (mc *Context) Adopt(art *Artifact) error {
	if err := mc.alloc.Reserve(art.Scope.Key(art.Type), art.Identifier, art.Origin); err != nil {
		return NewFailure(CategoryCollision, art.Origin,
			errors.Wrapf(err, "adopt identifier %q assigned by the target", art.Identifier))
	}
	return nil
}

// Render substitutes expression tokens in doc. Layers are consulted
// innermost first; custom expressions are always the outermost layer.
func (mc *Context) Render(doc expr.Value, layers ...expr.Bindings) (expr.Value, []string) {
	all := append(append([]expr.Bindings(nil), layers...), mc.Params.CustomExpressions)
	return expr.Render(doc, all...)
}

// Seed records mappings from earlier runs as already existing artifacts and
// reserves their identifiers, so references to them resolve and they are not
// imported again. Every identifier is reserved in its own scope, but only a
// mapping into the scope this run places the entity in counts as migrated.
func (mc *Context) Seed(records []MappingRecord) error {
	for _, rec := range records {
		scope := rec.Scope()
		if err := mc.alloc.Reserve(scope.Key(rec.NGType), rec.Identifier, rec.Ref()); err != nil {
			return NewFailure(CategoryContext, rec.Ref(), errors.Wrap(err, "seed prior mapping"))
		}
		if scope != mc.ScopeFor(rec.Ref()) {
			continue
		}
		mc.InsertIfAbsent(rec.Ref(), &Artifact{
			Type:           rec.NGType,
			Identifier:     rec.Identifier,
			Scope:          scope,
			Origin:         rec.Ref(),
			AppID:          rec.AppID,
			AlreadyExisted: true,
		})
	}
	return nil
}
