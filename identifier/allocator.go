package identifier

import (
	"strconv"
	"strings"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/errors"
)

// DefaultCollisionLimit bounds the numeric suffixes tried for one identifier.
const DefaultCollisionLimit = 10

// ErrCollisionExhausted is returned when every suffix up to the limit is taken.
var ErrCollisionExhausted = errors.New("identifier collision exhausted")

// ScopeKey names one identifier namespace: a target type inside a scope.
func ScopeKey(ngType string, level Level, orgID, projectID string) string {
	parts := []string{ngType, string(level)}
	switch level {
	case Project:
		parts = append(parts, orgID, projectID)
	case Org:
		parts = append(parts, orgID)
	}
	return strings.Join(parts, "/")
}

// Allocator hands out unique identifiers per scope key. The result of a
// sequence of calls depends only on their order.
type Allocator struct {
	limit  int
	owners map[string]map[string]cg.EntityRef
	byRef  map[string]map[cg.EntityRef]string
}

// NewAllocator tries suffixes 1..limit after the base identifier.
// A limit of 0 disables suffixing.
func NewAllocator(limit int) *Allocator {
	if limit < 0 {
		limit = 0
	}
	return &Allocator{
		limit:  limit,
		owners: make(map[string]map[string]cg.EntityRef),
		byRef:  make(map[string]map[cg.EntityRef]string),
	}
}

func (a *Allocator) take(scopeKey, id string, owner cg.EntityRef) {
	if a.owners[scopeKey] == nil {
		a.owners[scopeKey] = make(map[string]cg.EntityRef)
		a.byRef[scopeKey] = make(map[cg.EntityRef]string)
	}
	a.owners[scopeKey][id] = owner
	a.byRef[scopeKey][owner] = id
}

// Owner reports who holds id in scopeKey.
func (a *Allocator) Owner(scopeKey, id string) (cg.EntityRef, bool) {
	owner, ok := a.owners[scopeKey][id]
	return owner, ok
}

// Reserve claims exactly id for owner. It is used for identifiers that must
// not change, such as prior-run mappings and explicit overrides.
func (a *Allocator) Reserve(scopeKey, id string, owner cg.EntityRef) error {
	if holder, ok := a.owners[scopeKey][id]; ok && holder != owner {
		return errors.Wrapf(errors.ErrConflict, "identifier %q in %s already held by %s", id, scopeKey, holder)
	}
	a.take(scopeKey, id, owner)
	return nil
}

// Allocate returns base if it is free in scopeKey, otherwise base followed by
// the smallest free suffix in 1..limit. Calling it again for the same owner
// returns the same identifier.
func (a *Allocator) Allocate(scopeKey, base string, owner cg.EntityRef) (string, error) {
	if id, ok := a.byRef[scopeKey][owner]; ok {
		return id, nil
	}

	if _, taken := a.owners[scopeKey][base]; !taken {
		a.take(scopeKey, base, owner)
		return base, nil
	}
	for n := 1; n <= a.limit; n++ {
		candidate := WithSuffix(base, strconv.Itoa(n))
		if _, taken := a.owners[scopeKey][candidate]; !taken {
			a.take(scopeKey, candidate, owner)
			return candidate, nil
		}
	}
	return "", errors.WithDetailf(
		errors.Wrapf(ErrCollisionExhausted, "%q in %s after %d attempts", base, scopeKey, a.limit),
		"owner %s", owner,
	)
}
