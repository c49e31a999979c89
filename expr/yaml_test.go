package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal(t *testing.T) {
	doc := Map{
		{Key: "service", Value: Map{
			{Key: "name", Value: String("api")},
			{Key: "identifier", Value: String("api")},
			{Key: "enabled", Value: String("true")},
			{Key: "description", Value: String("")},
			{Key: "tags", Value: Strings("a", "b")},
		}},
	}

	out, err := Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, `service:
  name: api
  identifier: api
  enabled: "true"
  description: ""
  tags:
    - a
    - b
`, string(out))
}

func TestMarshalMultiline(t *testing.T) {
	out, err := Marshal(Map{{Key: "script", Value: String("set -e\necho ok\n")}})
	require.NoError(t, err)
	assert.Equal(t, "script: |\n  set -e\n  echo ok\n", string(out))
}

func TestUnmarshal(t *testing.T) {
	v, err := Unmarshal([]byte("a: 1\nb:\n  - x\n  - null\nc: &anchor {d: e}\nf: *anchor\n"))
	require.NoError(t, err)

	want := Map{
		{Key: "a", Value: String("1")},
		{Key: "b", Value: List{String("x"), String("")}},
		{Key: "c", Value: Map{{Key: "d", Value: String("e")}}},
		{Key: "f", Value: Map{{Key: "d", Value: String("e")}}},
	}
	assert.Equal(t, want, v)

	empty, err := Unmarshal(nil)
	require.NoError(t, err)
	assert.Equal(t, Map{}, empty)

	_, err = Unmarshal([]byte("a: [unclosed"))
	assert.Error(t, err)
}
