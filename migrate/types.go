package migrate

import (
	"sort"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/expr"
	"github.com/teranos/ngmigrate/identifier"
	"github.com/teranos/ngmigrate/ng"
)

// Node is a discovered legacy entity.
type Node struct {
	Ref    cg.EntityRef
	AppID  string
	Entity cg.Entity
}

// Graph is the child adjacency of the discovered entities. An edge
// parent -> child means the parent references the child.
type Graph struct {
	children map[cg.EntityRef]map[cg.EntityRef]struct{}
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{children: make(map[cg.EntityRef]map[cg.EntityRef]struct{})}
}

// AddNode registers ref without edges.
func (g *Graph) AddNode(ref cg.EntityRef) {
	if _, ok := g.children[ref]; !ok {
		g.children[ref] = make(map[cg.EntityRef]struct{})
	}
}

// AddEdge records that parent references child. Self references are ignored.
func (g *Graph) AddEdge(parent, child cg.EntityRef) {
	if parent == child {
		return
	}
	g.AddNode(parent)
	g.AddNode(child)
	g.children[parent][child] = struct{}{}
}

// Has reports whether ref is in the graph.
func (g *Graph) Has(ref cg.EntityRef) bool {
	_, ok := g.children[ref]
	return ok
}

// Children returns the children of ref ordered by type, then id.
func (g *Graph) Children(ref cg.EntityRef) []cg.EntityRef {
	out := make([]cg.EntityRef, 0, len(g.children[ref]))
	for c := range g.children[ref] {
		out = append(out, c)
	}
	sortRefs(out)
	return out
}

// Refs returns every ref ordered by type, then id.
func (g *Graph) Refs() []cg.EntityRef {
	out := make([]cg.EntityRef, 0, len(g.children))
	for r := range g.children {
		out = append(out, r)
	}
	sortRefs(out)
	return out
}

// Len is the number of refs in the graph.
func (g *Graph) Len() int {
	return len(g.children)
}

func sortRefs(refs []cg.EntityRef) {
	sort.Slice(refs, func(i, j int) bool { return refs[i].Less(refs[j]) })
}

// Artifact is a rendered target document produced for one legacy entity.
type Artifact struct {
	Type       ng.EntityType
	Name       string
	Identifier string
	Scope      ng.Scope
	Document   expr.Value
	YAML       []byte
	Origin     cg.EntityRef
	AppID      string
	// AlreadyExisted is set when the target held the document before this run.
	AlreadyExisted bool
	// Unresolved lists expression tokens left for runtime input.
	Unresolved []string
}

// Qualified is the scope-qualified reference to the artifact.
func (a *Artifact) Qualified() string {
	return identifier.Qualify(a.Scope.Level, a.Identifier)
}

// NGDocument converts the artifact for the target client.
func (a *Artifact) NGDocument() ng.Document {
	return ng.Document{Type: a.Type, Scope: a.Scope, Identifier: a.Identifier, Name: a.Name, YAML: a.YAML}
}

// SkipDetail is a deliberate decision not to migrate an entity.
type SkipDetail struct {
	Reason string       `json:"reason"`
	Origin cg.EntityRef `json:"entityRef"`
	Type   cg.EntityType `json:"type"`
}

// ImportError is an entity-scoped failure.
type ImportError struct {
	Message  string       `json:"message"`
	Origin   cg.EntityRef `json:"entityRef"`
	Category Category     `json:"category,omitempty"`
}

// Summary is the outcome of one or more entities. Skips do not affect Success.
type Summary struct {
	Success bool          `json:"success"`
	Errors  []ImportError `json:"errors"`
	Skips   []SkipDetail  `json:"skips"`
}

// Succeeded is an empty successful summary.
func Succeeded() Summary {
	return Summary{Success: true}
}

// Failed builds a failed summary with one error.
func Failed(e ImportError) Summary {
	return Summary{Errors: []ImportError{e}}
}

// Merge combines two summaries; success requires both.
func (s Summary) Merge(o Summary) Summary {
	return Summary{
		Success: s.Success && o.Success,
		Errors:  append(append([]ImportError(nil), s.Errors...), o.Errors...),
		Skips:   append(append([]SkipDetail(nil), s.Skips...), o.Skips...),
	}
}

// MappingRecord links a legacy entity to the target resource created for it.
type MappingRecord struct {
	CGType     cg.EntityType    `json:"cgType"`
	CGID       string           `json:"cgId"`
	AppID      string           `json:"appId,omitempty"`
	NGType     ng.EntityType    `json:"ngType"`
	Identifier string           `json:"identifier"`
	Level      identifier.Level `json:"scope"`
	AccountID  string           `json:"accountId"`
	OrgID      string           `json:"orgId,omitempty"`
	ProjectID  string           `json:"projectId,omitempty"`
	FQN        string           `json:"fqn"`
}

// Ref is the legacy entity of the record.
func (m MappingRecord) Ref() cg.EntityRef {
	return cg.Ref(m.CGType, m.CGID)
}

// Scope is the target scope of the record.
func (m MappingRecord) Scope() ng.Scope {
	return ng.Scope{Level: m.Level, AccountID: m.AccountID, OrgID: m.OrgID, ProjectID: m.ProjectID}
}

// Override replaces generated naming for one entity.
type Override struct {
	Name       string
	Identifier string
	Level      identifier.Level
}

// Params are the run parameters shared by every strategy.
type Params struct {
	CaseConvention identifier.CaseConvention
	// Scope is the default target scope with account, org and project coordinates.
	Scope             ng.Scope
	Overrides         map[cg.EntityRef]Override
	CustomExpressions expr.Bindings
	MigrateAll        bool
	// CollisionLimit is the suffix budget per identifier. Zero selects
	// identifier.DefaultCollisionLimit and a negative value disables suffixing.
	CollisionLimit int
}

// Inputs are passed to Strategy.Migrate.
type Inputs struct {
	RunID string
	Scope ng.Scope
}
