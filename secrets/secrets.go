// Package secrets finds secret references embedded in legacy text:
// ${secrets.getValue("name")} with single or double quotes.
package secrets

import (
	"regexp"
	"strings"
)

var secretRef = regexp.MustCompile(`\$\{\s*secrets\.getValue\(\s*(?:"([^"]+)"|'([^']+)')\s*\)\s*\}`)

// Ref is one secret reference found in text.
type Ref struct {
	// Name is the secret name as written, trimmed.
	Name string
	// Token is the full expression including ${ and }.
	Token string
}

// Extract returns the distinct secret references in text, in order of first appearance.
func Extract(text string) []Ref {
	if !strings.Contains(text, "secrets.getValue") {
		return nil
	}
	var refs []Ref
	seen := make(map[string]bool)
	for _, m := range secretRef.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1] + m[2])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		refs = append(refs, Ref{Name: name, Token: m[0]})
	}
	return refs
}

// ExtractAll runs Extract over several texts and merges the results by name.
func ExtractAll(texts ...string) []Ref {
	var refs []Ref
	seen := make(map[string]bool)
	for _, text := range texts {
		for _, r := range Extract(text) {
			if !seen[r.Name] {
				seen[r.Name] = true
				refs = append(refs, r)
			}
		}
	}
	return refs
}

// Reference renders the target expression for a migrated secret identifier.
func Reference(qualifiedID string) string {
	return "<+secrets.getValue(\"" + qualifiedID + "\")>"
}
