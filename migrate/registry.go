package migrate

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/ng"
)

// Generated is what a strategy produced for one entity: artifacts to import
// (the first is the entity's primary target), or skips, or neither.
type Generated struct {
	Artifacts []*Artifact
	Skips     []SkipDetail
}

// Strategy is the per-type migration contract. Every field must be set;
// inapplicable operations are no-ops.
type Strategy struct {
	Type cg.EntityType

	// Discover reads the children of entity. It must not touch the graph.
	Discover func(ctx context.Context, store cg.Store, entity cg.Entity) (*Node, []cg.EntityRef, error)

	// CanMigrate decides eligibility given the run root.
	CanMigrate func(id string, root cg.EntityRef, migrateAll bool) bool

	// IsNGEntityExists reports an equivalent already known to the run.
	IsNGEntityExists func(mc *Context, ref cg.EntityRef) bool

	// Generate renders the target documents of ref. A nil result with no
	// error means there is nothing to migrate.
	Generate func(mc *Context, ref cg.EntityRef) (*Generated, error)

	// Mapping builds the ledger record of a migrated artifact.
	Mapping func(art *Artifact) MappingRecord

	// Migrate imports one artifact. It runs before the artifact is recorded
	// and may adopt the identifier the target assigned.
	Migrate func(ctx context.Context, client ng.Client, in Inputs, art *Artifact) Summary

	// GetExisting asks the target for the artifact; nil means absent.
	GetExisting func(ctx context.Context, client ng.Client, mc *Context, art *Artifact) ([]byte, error)
}

func (s Strategy) missing() string {
	switch {
	case s.Discover == nil:
		return "Discover"
	case s.CanMigrate == nil:
		return "CanMigrate"
	case s.IsNGEntityExists == nil:
		return "IsNGEntityExists"
	case s.Generate == nil:
		return "Generate"
	case s.Mapping == nil:
		return "Mapping"
	case s.Migrate == nil:
		return "Migrate"
	case s.GetExisting == nil:
		return "GetExisting"
	}
	return ""
}

// Registry maps legacy entity types to strategies.
type Registry struct {
	strategies map[cg.EntityType]Strategy
	mu         sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[cg.EntityType]Strategy)}
}

// Register adds a strategy under its type.
// Panics on a duplicate type or an unset operation.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.Type == "" {
		panic("strategy registered without a type")
	}
	if op := s.missing(); op != "" {
		panic(fmt.Sprintf("strategy for %s has no %s operation", s.Type, op))
	}
	if _, exists := r.strategies[s.Type]; exists {
		panic(fmt.Sprintf("strategy already registered for type: %s", s.Type))
	}
	r.strategies[s.Type] = s
}

// Get returns the strategy for t.
func (r *Registry) Get(t cg.EntityType) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[t]
	return s, ok
}

// Types lists registered types in sorted order.
func (r *Registry) Types() []cg.EntityType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]cg.EntityType, 0, len(r.strategies))
	for t := range r.strategies {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Always is a CanMigrate that accepts every entity.
func Always(string, cg.EntityRef, bool) bool { return true }

// Never is a CanMigrate that rejects every entity.
func Never(string, cg.EntityRef, bool) bool { return false }

// AlreadyMigrated is the default IsNGEntityExists: the ref is in the ledger,
// typically seeded from an earlier run.
func AlreadyMigrated(mc *Context, ref cg.EntityRef) bool {
	_, ok := mc.Migrated(ref)
	return ok
}

// DefaultMapping records the artifact's primary target.
func DefaultMapping(art *Artifact) MappingRecord {
	return MappingRecord{
		CGType:     art.Origin.Type,
		CGID:       art.Origin.ID,
		AppID:      art.AppID,
		NGType:     art.Type,
		Identifier: art.Identifier,
		Level:      art.Scope.Level,
		AccountID:  art.Scope.AccountID,
		OrgID:      art.Scope.OrgID,
		ProjectID:  art.Scope.ProjectID,
		FQN:        art.Scope.String() + "/" + string(art.Type) + "/" + art.Identifier,
	}
}

// ImportArtifact is the default Migrate: one create-or-update call.
func ImportArtifact(ctx context.Context, client ng.Client, _ Inputs, art *Artifact) Summary {
	id, err := client.CreateOrUpdate(ctx, art.Scope, art.NGDocument())
	if err != nil {
		return Failed(NewFailure(CategoryRemoteImport, art.Origin, err).ImportError())
	}
	if id != "" {
		art.Identifier = id
	}
	return Succeeded()
}

// LookupExisting is the default GetExisting.
func LookupExisting(ctx context.Context, client ng.Client, _ *Context, art *Artifact) ([]byte, error) {
	return client.Get(ctx, art.Type, art.Scope, art.Identifier)
}

// NoExisting is a GetExisting for types the target cannot be asked about.
func NoExisting(context.Context, ng.Client, *Context, *Artifact) ([]byte, error) {
	return nil, nil
}
