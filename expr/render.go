package expr

import (
	"regexp"
	"strings"
)

var token = regexp.MustCompile(`\$\{([^{}]+)\}`)

// Bindings maps token text (without ${ and }) to its replacement.
type Bindings map[string]string

// Key returns the binding key of a full ${...} token.
func Key(tok string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(tok, "${"), "}"))
}

// Tokens lists the distinct token keys in s in order of appearance.
func Tokens(s string) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, m := range token.FindAllStringSubmatch(s, -1) {
		k := strings.TrimSpace(m[1])
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

type renderer struct {
	layers     []Bindings
	unresolved []string
	seen       map[string]bool
}

func (r *renderer) lookup(key string) (string, bool) {
	for _, layer := range r.layers {
		if v, ok := layer[key]; ok {
			return v, true
		}
	}
	return "", false
}

func (r *renderer) miss(key string) {
	if !r.seen[key] {
		r.seen[key] = true
		r.unresolved = append(r.unresolved, key)
	}
}

func (r *renderer) renderString(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	// Replacements are never scanned again.
	return token.ReplaceAllStringFunc(s, func(tok string) string {
		key := Key(tok)
		if v, ok := r.lookup(key); ok {
			return v
		}
		r.miss(key)
		return tok
	})
}

func (r *renderer) render(v Value) Value {
	switch n := v.(type) {
	case String:
		return String(r.renderString(string(n)))
	case List:
		out := make(List, len(n))
		for i, item := range n {
			out[i] = r.render(item)
		}
		return out
	case Map:
		out := make(Map, len(n))
		for i, f := range n {
			out[i] = Field{Key: f.Key, Value: r.render(f.Value)}
		}
		return out
	}
	return v
}

// Render substitutes tokens in every String leaf of doc. Layers are consulted
// in order and the first layer holding a token's key wins. Tokens without a
// binding are left as written and returned in unresolved, in order of first
// appearance. doc is not modified.
func Render(doc Value, layers ...Bindings) (rendered Value, unresolved []string) {
	r := &renderer{layers: layers, seen: make(map[string]bool)}
	return r.render(doc), r.unresolved
}

// RenderString renders a single string.
func RenderString(s string, layers ...Bindings) (string, []string) {
	r := &renderer{layers: layers, seen: make(map[string]bool)}
	return r.renderString(s), r.unresolved
}
