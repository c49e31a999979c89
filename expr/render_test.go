package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSuffixedToken(t *testing.T) {
	doc := Map{{Key: "name", Value: String("${env.name}-suffix")}}

	got, unresolved := Render(doc, Bindings{"env.name": "prod"})
	assert.Equal(t, Map{{Key: "name", Value: String("prod-suffix")}}, got)
	assert.Empty(t, unresolved)

	got, unresolved = Render(doc)
	assert.Equal(t, doc, got, "unbound tokens pass through untouched")
	assert.Equal(t, []string{"env.name"}, unresolved)
}

func TestRenderIsSinglePass(t *testing.T) {
	bindings := Bindings{
		"a": "${b}",
		"b": "expanded",
	}
	got, unresolved := RenderString("x=${a}", bindings)
	assert.Equal(t, "x=${b}", got, "replacement text is not scanned again")
	assert.Empty(t, unresolved)

	got, _ = RenderString("${loop}", Bindings{"loop": "${loop}${loop}"})
	assert.Equal(t, "${loop}${loop}", got)
}

func TestRenderLayerPrecedence(t *testing.T) {
	stage := Bindings{"context.version": "<+pipeline.stages.build.variables.version>"}
	entity := Bindings{"context.version": "1.0", "service.name": "api"}
	account := Bindings{"service.name": "ignored", "account.region": "eu-west-1"}

	got, unresolved := RenderString("${context.version} ${service.name} ${account.region} ${ missing }", stage, entity, account)
	assert.Equal(t, "<+pipeline.stages.build.variables.version> api eu-west-1 ${ missing }", got)
	assert.Equal(t, []string{"missing"}, unresolved)
}

func TestRenderPreservesShape(t *testing.T) {
	doc := Map{
		{Key: "pipeline", Value: Map{
			{Key: "name", Value: String("Deploy ${app.name}")},
			{Key: "tags", Value: Strings("${env.type}", "static", "${env.type}")},
			{Key: "empty", Value: List{}},
			{Key: "nested", Value: List{Map{{Key: "cmd", Value: String("echo ${x} ${y}")}}}},
		}},
	}
	orig := Map{
		{Key: "pipeline", Value: Map{
			{Key: "name", Value: String("Deploy ${app.name}")},
			{Key: "tags", Value: Strings("${env.type}", "static", "${env.type}")},
			{Key: "empty", Value: List{}},
			{Key: "nested", Value: List{Map{{Key: "cmd", Value: String("echo ${x} ${y}")}}}},
		}},
	}

	got, unresolved := Render(doc, Bindings{"app.name": "payments", "env.type": "PROD", "x": "1"})

	want := Map{
		{Key: "pipeline", Value: Map{
			{Key: "name", Value: String("Deploy payments")},
			{Key: "tags", Value: Strings("PROD", "static", "PROD")},
			{Key: "empty", Value: List{}},
			{Key: "nested", Value: List{Map{{Key: "cmd", Value: String("echo 1 ${y}")}}}},
		}},
	}
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"y"}, unresolved, "each miss is reported once")
	assert.Equal(t, orig, doc, "input is not modified")
}

func TestTokensAndKey(t *testing.T) {
	assert.Equal(t, []string{"a.b", `secrets.getValue("x")`}, Tokens(`${a.b} ${ a.b } ${secrets.getValue("x")}`))
	assert.Equal(t, "env.name", Key("${ env.name }"))
	assert.Nil(t, Tokens("no tokens ${} here"))
}

func TestMapHelpers(t *testing.T) {
	m := Map{{Key: "a", Value: String("1")}}
	m2 := m.With("b", String("2")).With("a", String("3"))

	assert.Equal(t, Map{{Key: "a", Value: String("1")}}, m)
	v, ok := m2.Get("a")
	require.True(t, ok)
	assert.Equal(t, String("3"), v)
	assert.Equal(t, "b", m2[1].Key)

	got, ok := Lookup(Map{{Key: "x", Value: Map{{Key: "y", Value: String("z")}}}}, "x", "y")
	require.True(t, ok)
	assert.Equal(t, String("z"), got)
	_, ok = Lookup(String("s"), "x")
	assert.False(t, ok)

	var leaves []string
	Walk(Map{{Key: "a", Value: List{String("1"), Map{{Key: "b", Value: String("2")}}}}}, func(s String) {
		leaves = append(leaves, string(s))
	})
	assert.Equal(t, []string{"1", "2"}, leaves)
}
