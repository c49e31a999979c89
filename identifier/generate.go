// Package identifier derives target identifiers from legacy names and turns
// migrated entities into scope-qualified references.
package identifier

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/teranos/ngmigrate/errors"
)

// CaseConvention selects how words of a name are joined.
type CaseConvention string

const (
	CamelCase CaseConvention = "camel_case"
	SnakeCase CaseConvention = "snake_case"
	LowerCase CaseConvention = "lower_case"
)

// ParseCaseConvention validates a configured convention name.
func ParseCaseConvention(s string) (CaseConvention, error) {
	switch c := CaseConvention(strings.ToLower(strings.TrimSpace(s))); c {
	case CamelCase, SnakeCase, LowerCase:
		return c, nil
	case "":
		return SnakeCase, nil
	}
	return "", errors.NewInvalidRequestError("unknown case convention %q", s)
}

// MaxLength is the longest identifier the target accepts.
const MaxLength = 128

// Fallback is used when a name has no usable characters.
const Fallback = "unnamed"

// Pattern matches every valid identifier.
var Pattern = regexp.MustCompile(`^[a-zA-Z_][0-9a-zA-Z_]{0,127}$`)

var reserved = map[string]bool{
	"or": true, "and": true, "eq": true, "ne": true, "lt": true, "gt": true,
	"le": true, "ge": true, "div": true, "mod": true, "not": true, "null": true,
	"true": true, "false": true, "new": true, "var": true, "return": true,
	"class": true, "package": true, "import": true, "input": true,
}

// words splits name on anything that is not a letter or digit. Non-ASCII
// letters and digits are dropped without splitting.
func words(name string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			cur.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
		default:
			flush()
		}
	}
	flush()
	return out
}

// Generate derives an identifier from name. It is a pure function of its
// arguments and its result always matches Pattern.
func Generate(name string, convention CaseConvention) string {
	ws := words(name)
	if len(ws) == 0 {
		return Fallback
	}

	var b strings.Builder
	for i, w := range ws {
		w = strings.ToLower(w)
		switch convention {
		case CamelCase:
			if i > 0 {
				w = strings.ToUpper(w[:1]) + w[1:]
			}
		case LowerCase:
		default:
			if i > 0 {
				b.WriteByte('_')
			}
		}
		b.WriteString(w)
	}

	id := b.String()
	if id[0] >= '0' && id[0] <= '9' {
		id = "_" + id
	}
	if reserved[strings.ToLower(id)] {
		id = "_" + id
	}
	return truncate(id, MaxLength)
}

func truncate(id string, n int) string {
	if len(id) <= n {
		return id
	}
	return id[:n]
}

// WithSuffix appends a numeric suffix, shortening base so the result still fits.
func WithSuffix(base, suffix string) string {
	return truncate(base, MaxLength-len(suffix)) + suffix
}

// Valid reports whether id can be sent to the target as is.
func Valid(id string) bool {
	return Pattern.MatchString(id)
}
