package strategies

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/errors"
	"github.com/teranos/ngmigrate/expr"
	"github.com/teranos/ngmigrate/identifier"
	"github.com/teranos/ngmigrate/migrate"
	"github.com/teranos/ngmigrate/ng"
	"github.com/teranos/ngmigrate/secrets"
)

// base fills the operations most types share.
func base(t cg.EntityType) migrate.Strategy {
	return migrate.Strategy{
		Type:             t,
		CanMigrate:       migrate.Always,
		IsNGEntityExists: migrate.AlreadyMigrated,
		Mapping:          migrate.DefaultMapping,
		Migrate:          migrate.ImportArtifact,
		GetExisting:      migrate.LookupExisting,
	}
}

func node(e cg.Entity) *migrate.Node {
	return &migrate.Node{Ref: e.EntityRef(), AppID: e.OwnerAppID(), Entity: e}
}

// entity returns the typed payload of a discovered ref.
func entity[T cg.Entity](mc *migrate.Context, ref cg.EntityRef) (T, error) {
	e, ok := mc.Entity(ref).(T)
	if !ok {
		var zero T
		return zero, errors.AssertionFailedf("%s was not discovered as %T", ref, zero)
	}
	return e, nil
}

func skip(ref cg.EntityRef, format string, args ...interface{}) *migrate.Generated {
	return &migrate.Generated{Skips: []migrate.SkipDetail{{
		Reason: fmt.Sprintf(format, args...),
		Origin: ref,
		Type:   ref.Type,
	}}}
}

// document describes one artifact before identifier allocation.
type document struct {
	ref   cg.EntityRef
	t     ng.EntityType
	name  string
	scope ng.Scope
	// body builds the document once the identifier is known.
	body   func(id, name string) expr.Value
	layers []expr.Bindings
}

// build allocates the identifier, renders and serializes one artifact.
func build(mc *migrate.Context, d document) (*migrate.Artifact, error) {
	name := mc.NameFor(d.ref, d.name)
	id, err := mc.IdentifierFor(d.ref, d.t, d.scope, name)
	if err != nil {
		return nil, err
	}
	d.name = name
	rendered, unresolved := mc.Render(d.body(id, name), d.layers...)
	out, err := expr.Marshal(rendered)
	if err != nil {
		return nil, migrate.NewFailure(migrate.CategoryGenerate, d.ref, err)
	}
	appID := ""
	if n, ok := mc.Node(d.ref); ok {
		appID = n.AppID
	}
	return &migrate.Artifact{
		Type:       d.t,
		Name:       name,
		Identifier: id,
		Scope:      d.scope,
		Document:   rendered,
		YAML:       out,
		Origin:     d.ref,
		AppID:      appID,
		Unresolved: unresolved,
	}, nil
}

func single(art *migrate.Artifact, err error) (*migrate.Generated, error) {
	if err != nil {
		return nil, err
	}
	return &migrate.Generated{Artifacts: []*migrate.Artifact{art}}, nil
}

// header is the common head of every target document.
func header(name, id string, scope ng.Scope) expr.Map {
	m := expr.Map{{Key: "name", Value: expr.String(name)}, {Key: "identifier", Value: expr.String(id)}}
	if scope.OrgID != "" && scope.Level != identifier.Account {
		m = append(m, expr.Field{Key: "orgIdentifier", Value: expr.String(scope.OrgID)})
	}
	if scope.ProjectID != "" && scope.Level == identifier.Project {
		m = append(m, expr.Field{Key: "projectIdentifier", Value: expr.String(scope.ProjectID)})
	}
	return m
}

func withDescription(m expr.Map, description string) expr.Map {
	if description == "" {
		return m
	}
	return append(m, expr.Field{Key: "description", Value: expr.String(description)})
}

// variables converts legacy variables. Values that are not fixed are asked for at runtime.
func variables(vars []cg.Variable) expr.List {
	out := make(expr.List, 0, len(vars))
	for _, v := range vars {
		value := identifier.RuntimeInput
		if v.Fixed {
			value = v.Value
		}
		out = append(out, expr.Map{
			{Key: "name", Value: expr.String(v.Name)},
			{Key: "type", Value: expr.String("String")},
			{Key: "value", Value: expr.String(value)},
		})
	}
	return out
}

// variableBindings maps ${prefix.name} to an expression of the target.
func variableBindings(vars []cg.Variable, prefix, target string) expr.Bindings {
	b := make(expr.Bindings, len(vars))
	for _, v := range vars {
		b[prefix+"."+v.Name] = fmt.Sprintf("<+%s.%s>", target, v.Name)
	}
	return b
}

// secretChildren looks up the secrets named in texts. Names the store does
// not know are left for runtime input at render time.
func secretChildren(ctx context.Context, store cg.Store, appID string, texts ...string) ([]cg.EntityRef, error) {
	var refs []cg.EntityRef
	for _, r := range secrets.ExtractAll(texts...) {
		e, err := store.GetByName(ctx, cg.Secret, appID, r.Name)
		if errors.IsNotFoundError(err) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "look up secret %q", r.Name)
		}
		refs = append(refs, e.EntityRef())
	}
	return refs, nil
}

// secretBindings renders every secret reference in texts: migrated secrets
// become target secret expressions, others runtime input. Names match
// case-insensitively, as the stores look them up.
func secretBindings(mc *migrate.Context, ref cg.EntityRef, texts ...string) expr.Bindings {
	byName := make(map[string]cg.EntityRef)
	for _, child := range mc.Graph().Children(ref) {
		if child.Type != cg.Secret {
			continue
		}
		if e := mc.Entity(child); e != nil {
			byName[strings.ToLower(e.DisplayName())] = child
		}
	}
	b := make(expr.Bindings)
	for _, r := range secrets.ExtractAll(texts...) {
		value := identifier.RuntimeInput
		if child, ok := byName[strings.ToLower(r.Name)]; ok {
			if res := mc.Resolve(child); !res.RuntimeInput {
				value = secrets.Reference(res.String())
			}
		}
		b[expr.Key(r.Token)] = value
	}
	return b
}

// toValue converts decoded step properties. Map keys are sorted.
func toValue(v interface{}) expr.Value {
	switch t := v.(type) {
	case nil:
		return expr.String("")
	case string:
		return expr.String(t)
	case []interface{}:
		out := make(expr.List, 0, len(t))
		for _, item := range t {
			out = append(out, toValue(item))
		}
		return out
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(expr.Map, 0, len(keys))
		for _, k := range keys {
			out = append(out, expr.Field{Key: k, Value: toValue(t[k])})
		}
		return out
	case map[interface{}]interface{}:
		conv := make(map[string]interface{}, len(t))
		for k, item := range t {
			conv[fmt.Sprint(k)] = item
		}
		return toValue(conv)
	}
	return expr.String(fmt.Sprint(v))
}

// stringLeaves collects every string leaf of a property tree.
func stringLeaves(v interface{}) []string {
	var out []string
	expr.Walk(toValue(v), func(s expr.String) { out = append(out, string(s)) })
	return out
}

func refs(t cg.EntityType, ids ...string) []cg.EntityRef {
	var out []cg.EntityRef
	for _, id := range ids {
		if id != "" {
			out = append(out, cg.Ref(t, id))
		}
	}
	return out
}
