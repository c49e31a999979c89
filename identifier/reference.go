package identifier

import (
	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/errors"
)

// Level is the target scope an entity is created in.
type Level string

const (
	Project Level = "project"
	Org     Level = "org"
	Account Level = "account"
)

// ParseLevel validates a configured scope name.
func ParseLevel(s string) (Level, error) {
	switch l := Level(s); l {
	case Project, Org, Account:
		return l, nil
	case "":
		return Project, nil
	}
	return "", errors.NewInvalidRequestError("unknown scope %q", s)
}

// RuntimeInput is written wherever a reference cannot be resolved; the target
// asks for the value when the pipeline runs.
const RuntimeInput = "<+input>"

// Qualify prefixes id with its scope. Project scope is implicit.
func Qualify(level Level, id string) string {
	switch level {
	case Org:
		return "org." + id
	case Account:
		return "account." + id
	}
	return id
}

// Target is where a legacy entity ended up.
type Target struct {
	Level      Level
	Identifier string
}

// Lookup finds the target of an already migrated legacy entity.
type Lookup interface {
	Lookup(ref cg.EntityRef) (Target, bool)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ref cg.EntityRef) (Target, bool)

func (f LookupFunc) Lookup(ref cg.EntityRef) (Target, bool) { return f(ref) }

// Reference is a resolved cross-entity reference.
type Reference struct {
	Ref          cg.EntityRef
	Identifier   string
	Level        Level
	RuntimeInput bool
}

// String renders the reference for a target document.
func (r Reference) String() string {
	if r.RuntimeInput {
		return RuntimeInput
	}
	return Qualify(r.Level, r.Identifier)
}

// Resolve returns the qualified target of ref, or a runtime-input reference
// when ref has not been migrated. An empty legacy id also resolves to runtime input.
func Resolve(lookup Lookup, ref cg.EntityRef) Reference {
	if ref.ID != "" && lookup != nil {
		if t, ok := lookup.Lookup(ref); ok && t.Identifier != "" {
			return Reference{Ref: ref, Identifier: t.Identifier, Level: t.Level}
		}
	}
	return Reference{Ref: ref, RuntimeInput: true}
}
