package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "none", text: "echo hello", want: nil},
		{name: "double quotes", text: `curl -H "Authorization: ${secrets.getValue("api-token")}"`, want: []string{"api-token"}},
		{name: "single quotes and spaces", text: `${ secrets.getValue( 'db pass' ) }`, want: []string{"db pass"}},
		{name: "dedup in order", text: `${secrets.getValue("b")} ${secrets.getValue("a")} ${secrets.getValue("b")}`, want: []string{"b", "a"}},
		{name: "other expressions ignored", text: `${env.name} ${workflow.variables.x}`, want: nil},
		{name: "unterminated", text: `${secrets.getValue("x")`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, r := range Extract(tt.text) {
				got = append(got, r.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractToken(t *testing.T) {
	refs := Extract(`pw=${secrets.getValue("db")};`)
	if assert.Len(t, refs, 1) {
		assert.Equal(t, `${secrets.getValue("db")}`, refs[0].Token)
	}
}

func TestExtractAll(t *testing.T) {
	refs := ExtractAll(`${secrets.getValue("a")}`, `${secrets.getValue("a")} ${secrets.getValue("c")}`)
	assert.Equal(t, []Ref{
		{Name: "a", Token: `${secrets.getValue("a")}`},
		{Name: "c", Token: `${secrets.getValue("c")}`},
	}, refs)
}

func TestReference(t *testing.T) {
	assert.Equal(t, `<+secrets.getValue("org.db_pass")>`, Reference("org.db_pass"))
}
