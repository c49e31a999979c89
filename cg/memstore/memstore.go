// Package memstore is an in-memory cg.Store used by tests and export bundles.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/errors"
)

// Store holds entities keyed by reference.
type Store struct {
	mu       sync.RWMutex
	entities map[cg.EntityRef]cg.Entity
}

// New returns a store preloaded with entities.
func New(entities ...cg.Entity) *Store {
	s := &Store{entities: make(map[cg.EntityRef]cg.Entity)}
	for _, e := range entities {
		s.entities[e.EntityRef()] = e
	}
	return s
}

// Put inserts or replaces an entity.
func (s *Store) Put(_ context.Context, e cg.Entity) error {
	if e.EntityRef().ID == "" {
		return errors.NewInvalidRequestError("%s entity has no id", e.EntityRef().Type)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[e.EntityRef()] = e
	return nil
}

// Delete removes an entity; used by tests to simulate unreadable children.
func (s *Store) Delete(ref cg.EntityRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entities, ref)
}

// Len reports the number of stored entities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

func (s *Store) GetByAppAndID(ctx context.Context, t cg.EntityType, appID, id string) (cg.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[cg.Ref(t, id)]
	if !ok || !cg.Visible(e, appID) {
		return nil, errors.Wrapf(errors.ErrNotFound, "%s %s in app %s", t, id, appID)
	}
	return e, nil
}

func (s *Store) GetByName(ctx context.Context, t cg.EntityType, appID, name string) (cg.Entity, error) {
	matches, err := s.ListByApp(ctx, t, appID)
	if err != nil {
		return nil, err
	}
	for _, e := range matches {
		if strings.EqualFold(e.DisplayName(), name) {
			return e, nil
		}
	}
	return nil, errors.Wrapf(errors.ErrNotFound, "%s named %q in app %s", t, name, appID)
}

// ListByApp returns matches ordered by id.
func (s *Store) ListByApp(ctx context.Context, t cg.EntityType, appID string) ([]cg.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []cg.Entity
	for ref, e := range s.entities {
		if ref.Type == t && cg.Visible(e, appID) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityRef().ID < out[j].EntityRef().ID })
	return out, nil
}

var _ cg.Store = (*Store)(nil)
