package strategies

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/cg/memstore"
	"github.com/teranos/ngmigrate/errors"
	"github.com/teranos/ngmigrate/expr"
	"github.com/teranos/ngmigrate/identifier"
	"github.com/teranos/ngmigrate/migrate"
	"github.com/teranos/ngmigrate/ng"
)

var scope = ng.Scope{Level: identifier.Project, AccountID: "acc", OrgID: "default", ProjectID: "shop"}

func prepare(t *testing.T, store cg.Store, root cg.EntityRef, params migrate.Params) *migrate.Context {
	t.Helper()
	if params.Scope == (ng.Scope{}) {
		params.Scope = scope
	}
	o := migrate.NewOrchestrator(Default(), store, nil, zaptest.NewLogger(t).Sugar())
	prep, err := o.Prepare(context.Background(), migrate.Request{Root: root, AppID: "app1", Params: params})
	require.NoError(t, err)
	return prep.Context
}

func markMigrated(mc *migrate.Context, ref cg.EntityRef, id string) {
	mc.InsertIfAbsent(ref, &migrate.Artifact{Identifier: id, Scope: scope, Origin: ref})
}

func generate(t *testing.T, mc *migrate.Context, ref cg.EntityRef) *migrate.Generated {
	t.Helper()
	s, ok := Default().Get(ref.Type)
	require.True(t, ok)
	gen, err := s.Generate(mc, ref)
	require.NoError(t, err)
	return gen
}

func yamlOf(t *testing.T, gen *migrate.Generated) string {
	t.Helper()
	require.NotNil(t, gen)
	require.Empty(t, gen.Skips)
	require.Len(t, gen.Artifacts, 1)
	return string(gen.Artifacts[0].YAML)
}

func TestDefaultCoversEveryType(t *testing.T) {
	r := Default()
	for _, typ := range cg.AllTypes {
		_, ok := r.Get(typ)
		assert.True(t, ok, "%s", typ)
	}
	assert.Len(t, r.Types(), len(cg.AllTypes))
}

func TestApplication(t *testing.T) {
	store := memstore.New(
		&cg.ApplicationEntity{ID: "app1", Name: "Shop"},
		&cg.ServiceEntity{ID: "s1", AppID: "app1", Name: "Cart"},
		&cg.ServiceEntity{ID: "s9", AppID: "other", Name: "Elsewhere"},
		&cg.TemplateEntity{ID: "tg", AppID: cg.GlobalAppID, Name: "Global"},
		&cg.SecretEntity{ID: "sec1", Name: "pw"},
	)
	s := Application()

	app, err := store.GetByAppAndID(context.Background(), cg.Application, "app1", "app1")
	require.NoError(t, err)
	_, children, err := s.Discover(context.Background(), store, app)
	require.NoError(t, err)
	assert.Equal(t, []cg.EntityRef{cg.Ref(cg.Service, "s1"), cg.Ref(cg.Template, "tg")}, children)

	assert.False(t, s.CanMigrate("app1", cg.Ref(cg.Application, "app1"), true))
	gen, err := s.Generate(nil, cg.Ref(cg.Application, "app1"))
	assert.NoError(t, err)
	assert.Nil(t, gen)
}

func TestServiceAndEnvironment(t *testing.T) {
	store := memstore.New(
		&cg.ServiceEntity{ID: "s1", AppID: "app1", Name: "Cart", DeploymentType: "HELM", Description: "cart api",
			Variables:     []cg.Variable{{Name: "replicas", Value: "3", Fixed: true}, {Name: "tag"}},
			ConfigFileIDs: []string{"cf1"}},
		&cg.ConfigFileEntity{ID: "cf1", AppID: "app1", OwnerType: cg.OwnerService, OwnerID: "s1", RelativeFilePath: "a.yaml"},
		&cg.EnvironmentEntity{ID: "e1", AppID: "app1", Name: "QA", EnvironmentType: "NON_PROD"},
	)

	mc := prepare(t, store, cg.Ref(cg.Service, "s1"), migrate.Params{})
	doc := yamlOf(t, generate(t, mc, cg.Ref(cg.Service, "s1")))
	assert.Contains(t, doc, "identifier: cart")
	assert.Contains(t, doc, "type: NativeHelm")
	assert.Contains(t, doc, "projectIdentifier: shop")
	assert.Contains(t, doc, "value: \"3\"")
	assert.Contains(t, doc, "value: <+input>")
	assert.Contains(t, doc, "- <+input>", "unmigrated config file is asked for at runtime")

	markMigrated(mc, cg.Ref(cg.ConfigFile, "cf1"), "a_yaml")
	doc = yamlOf(t, generate(t, mc, cg.Ref(cg.Service, "s1")))
	assert.Contains(t, doc, "- /a_yaml")

	mc = prepare(t, store, cg.Ref(cg.Environment, "e1"), migrate.Params{})
	doc = yamlOf(t, generate(t, mc, cg.Ref(cg.Environment, "e1")))
	assert.Contains(t, doc, "type: PreProduction")
	assert.Contains(t, doc, "identifier: qa")
}

func TestInfrastructureNeedsEnvironment(t *testing.T) {
	store := memstore.New(
		&cg.EnvironmentEntity{ID: "e1", AppID: "app1", Name: "Prod"},
		&cg.InfrastructureEntity{ID: "i1", AppID: "app1", EnvID: "e1", Name: "Cluster", Namespace: "${env.name}-ns"},
	)
	ref := cg.Ref(cg.Infrastructure, "i1")
	mc := prepare(t, store, ref, migrate.Params{})

	gen := generate(t, mc, ref)
	require.Len(t, gen.Skips, 1)
	assert.Equal(t, "environment not migrated: e1", gen.Skips[0].Reason)
	assert.Empty(t, gen.Artifacts)

	markMigrated(mc, cg.Ref(cg.Environment, "e1"), "prod")
	doc := yamlOf(t, generate(t, mc, ref))
	assert.Contains(t, doc, "environmentRef: prod")
	assert.Contains(t, doc, "namespace: Prod-ns")
	assert.Contains(t, doc, "type: KubernetesDirect")
}

func TestWorkflow(t *testing.T) {
	store := memstore.New(
		&cg.ServiceEntity{ID: "s1", AppID: "app1", Name: "Cart"},
		&cg.EnvironmentEntity{ID: "e1", AppID: "app1", Name: "Prod"},
		&cg.TemplateEntity{ID: "t1", AppID: "app1", Name: "Notify"},
		&cg.SecretEntity{ID: "sec1", Name: "token"},
		&cg.WorkflowEntity{ID: "w1", AppID: "app1", Name: "Deploy", ServiceID: "s1", EnvID: "e1",
			Variables: []cg.Variable{{Name: "tag"}},
			Phases: []cg.Phase{{Name: "Rollout", Steps: []cg.Step{
				{Name: "Call", Type: "HTTP", Properties: map[string]interface{}{
					"url":     "https://hooks/${workflow.variables.tag}",
					"headers": map[string]interface{}{"auth": `${secrets.getValue("token")}`},
					"retries": 3,
				}},
			}}}},
		&cg.WorkflowEntity{ID: "w2", AppID: "app1", Name: "With Template",
			Phases: []cg.Phase{{Name: "P", Steps: []cg.Step{{Name: "N", TemplateID: "t1"}}}}},
	)

	w1 := cg.Ref(cg.Workflow, "w1")
	mc := prepare(t, store, w1, migrate.Params{})
	assert.Equal(t,
		[]cg.EntityRef{cg.Ref(cg.Environment, "e1"), cg.Ref(cg.Secret, "sec1"), cg.Ref(cg.Service, "s1")},
		mc.Graph().Children(w1))

	doc := yamlOf(t, generate(t, mc, w1))
	assert.Contains(t, doc, "serviceRef: <+input>")
	assert.Contains(t, doc, "environmentRef: <+input>")
	assert.Contains(t, doc, "url: https://hooks/<+stage.variables.tag>")
	assert.Contains(t, doc, "auth: <+input>", "unmigrated secret")
	assert.Contains(t, doc, "retries: \"3\"")
	assert.Contains(t, doc, "type: Http")

	markMigrated(mc, cg.Ref(cg.Service, "s1"), "cart")
	markMigrated(mc, cg.Ref(cg.Secret, "sec1"), "token")
	doc = yamlOf(t, generate(t, mc, w1))
	assert.Contains(t, doc, "serviceRef: cart")
	assert.Contains(t, doc, `auth: <+secrets.getValue("token")>`)

	w2 := cg.Ref(cg.Workflow, "w2")
	gen := generate(t, prepare(t, store, w2, migrate.Params{}), w2)
	require.Len(t, gen.Skips, 1)
	assert.Equal(t, "template not migrated: t1", gen.Skips[0].Reason)
}

func TestPipelineStageFunctors(t *testing.T) {
	store := memstore.New(
		&cg.WorkflowEntity{ID: "w1", AppID: "app1", Name: "Deploy"},
		&cg.PipelineEntity{ID: "p1", AppID: "app1", Name: "Release", Stages: []cg.Stage{
			{Name: "Build", Type: cg.StageEnvState, WorkflowID: "w1", Outputs: []string{"version", "commit"}},
			{Name: "Retag", Type: cg.StageEnvState, WorkflowID: "w1", Outputs: []string{"version"}},
			{Name: "Ship", Type: cg.StageEnvState, WorkflowID: "w1", WorkflowVariables: map[string]string{
				"v":     "${context.version}",
				"c":     "${context.commit}",
				"later": "${context.unknown}",
				"empty": "",
			}},
			{Name: "Ship", Type: cg.StageApproval},
		}},
	)
	ref := cg.Ref(cg.Pipeline, "p1")
	mc := prepare(t, store, ref, migrate.Params{})

	gen := generate(t, mc, ref)
	require.Len(t, gen.Skips, 1)
	assert.Equal(t, "workflow not migrated: w1", gen.Skips[0].Reason)

	markMigrated(mc, cg.Ref(cg.Workflow, "w1"), "deploy")
	gen = generate(t, mc, ref)
	doc := yamlOf(t, gen)
	assert.Contains(t, doc, "value: <+pipeline.stages.retag.variables.version>", "latest stage wins")
	assert.Contains(t, doc, "value: <+pipeline.stages.build.variables.commit>")
	assert.Contains(t, doc, "value: ${context.unknown}")
	assert.Contains(t, doc, "identifier: ship1", "stage identifiers are unique in the pipeline")
	assert.Contains(t, doc, "type: Approval")
	assert.Equal(t, []string{"context.unknown"}, gen.Artifacts[0].Unresolved)
}

func TestPipelineStageIdentifiersExhausted(t *testing.T) {
	store := memstore.New(
		&cg.WorkflowEntity{ID: "w1", AppID: "app1", Name: "Deploy"},
		&cg.PipelineEntity{ID: "p1", AppID: "app1", Name: "Release", Stages: []cg.Stage{
			{Name: "Ship", Type: cg.StageEnvState, WorkflowID: "w1"},
			{Name: "ship", Type: cg.StageApproval},
		}},
	)
	ref := cg.Ref(cg.Pipeline, "p1")
	mc := prepare(t, store, ref, migrate.Params{CollisionLimit: -1})
	markMigrated(mc, cg.Ref(cg.Workflow, "w1"), "deploy")

	s, ok := Default().Get(cg.Pipeline)
	require.True(t, ok)
	gen, err := s.Generate(mc, ref)
	require.Error(t, err)
	assert.Nil(t, gen)
	assert.Equal(t, migrate.CategoryCollision, migrate.CategoryOf(err))
	assert.True(t, errors.Is(err, identifier.ErrCollisionExhausted))
	assert.Contains(t, err.Error(), `stage "ship"`)
}

func TestConfigFile(t *testing.T) {
	s := ConfigFile()
	cases := []struct {
		root       cg.EntityType
		migrateAll bool
		want       bool
	}{
		{cg.Service, false, true},
		{cg.Environment, false, true},
		{cg.Application, false, false},
		{cg.Application, true, true},
		{cg.Workflow, false, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, s.CanMigrate("cf1", cg.Ref(tc.root, "x"), tc.migrateAll), "%s all=%v", tc.root, tc.migrateAll)
	}

	store := memstore.New(
		&cg.ServiceEntity{ID: "s1", AppID: "app1", Name: "Cart", ConfigFileIDs: []string{"plain", "enc"}},
		&cg.SecretEntity{ID: "sec-file", Name: "cert-file"},
		&cg.SecretEntity{ID: "sec-pw", Name: "pw"},
		&cg.ConfigFileEntity{ID: "plain", AppID: "app1", OwnerType: cg.OwnerService, OwnerID: "s1",
			RelativeFilePath: "conf/app.env", Content: "NAME=${service.name}\nPW=${secrets.getValue(\"pw\")}\n"},
		&cg.ConfigFileEntity{ID: "enc", AppID: "app1", OwnerType: cg.OwnerService, OwnerID: "s1",
			RelativeFilePath: "conf/cert.pem", Encrypted: true, EncryptedFileID: "sec-file"},
	)
	mc := prepare(t, store, cg.Ref(cg.Service, "s1"), migrate.Params{})
	assert.Equal(t, []cg.EntityRef{cg.Ref(cg.Secret, "sec-pw")}, mc.Graph().Children(cg.Ref(cg.ConfigFile, "plain")))
	assert.Equal(t, []cg.EntityRef{cg.Ref(cg.Secret, "sec-file")}, mc.Graph().Children(cg.Ref(cg.ConfigFile, "enc")))

	markMigrated(mc, cg.Ref(cg.Secret, "sec-pw"), "pw")
	doc := yamlOf(t, generate(t, mc, cg.Ref(cg.ConfigFile, "plain")))
	assert.Contains(t, doc, "name: app.env")
	assert.Contains(t, doc, "identifier: app_env")
	assert.Contains(t, doc, "NAME=Cart")
	assert.Contains(t, doc, `PW=<+secrets.getValue("pw")>`)

	gen := generate(t, mc, cg.Ref(cg.ConfigFile, "enc"))
	require.Len(t, gen.Skips, 1)
	assert.Equal(t, "encrypted file secret not migrated: sec-file", gen.Skips[0].Reason)

	markMigrated(mc, cg.Ref(cg.Secret, "sec-file"), "cert_file")
	doc = yamlOf(t, generate(t, mc, cg.Ref(cg.ConfigFile, "enc")))
	assert.Contains(t, doc, `content: <+secrets.getValue("cert_file")>`)
}

func TestTemplate(t *testing.T) {
	store := memstore.New(
		&cg.TemplateEntity{ID: "tg", AppID: cg.GlobalAppID, Name: "Cleanup", Body: "rm -rf ${dir}",
			Variables: []cg.Variable{{Name: "dir", Value: "/tmp"}}},
		&cg.TemplateEntity{ID: "th", AppID: "app1", Name: "Ping", TemplateType: "HTTP", Body: "https://x"},
	)

	tg := cg.Ref(cg.Template, "tg")
	mc := prepare(t, store, tg, migrate.Params{})
	gen := generate(t, mc, tg)
	art := gen.Artifacts[0]
	assert.Equal(t, identifier.Account, art.Scope.Level, "global templates live at account scope")
	doc := string(art.YAML)
	assert.Contains(t, doc, "script: rm -rf <+spec.environmentVariables.dir>")
	assert.Contains(t, doc, "value: /tmp")
	assert.NotContains(t, doc, "projectIdentifier")

	mc = prepare(t, store, tg, migrate.Params{Overrides: map[cg.EntityRef]migrate.Override{tg: {Level: identifier.Org}}})
	assert.Equal(t, identifier.Org, generate(t, mc, tg).Artifacts[0].Scope.Level)

	th := cg.Ref(cg.Template, "th")
	mc = prepare(t, store, th, migrate.Params{})
	doc = yamlOf(t, generate(t, mc, th))
	assert.Contains(t, doc, "type: Http")
	assert.Contains(t, doc, "url: https://x")
	assert.Contains(t, doc, "projectIdentifier: shop")
}

func TestSecretNamesMatchIgnoringCase(t *testing.T) {
	store := memstore.New(
		&cg.SecretEntity{ID: "s1", Name: "DB_Pass"},
		&cg.TemplateEntity{ID: "t1", AppID: "app1", Name: "Migrate", Body: `echo ${secrets.getValue("db_pass")}`},
	)
	ref := cg.Ref(cg.Template, "t1")
	mc := prepare(t, store, ref, migrate.Params{})
	require.Equal(t, []cg.EntityRef{cg.Ref(cg.Secret, "s1")}, mc.Graph().Children(ref))

	markMigrated(mc, cg.Ref(cg.Secret, "s1"), "db_pass")
	doc := yamlOf(t, generate(t, mc, ref))
	assert.Contains(t, doc, `script: echo <+secrets.getValue("db_pass")>`)
	assert.NotContains(t, doc, "<+input>")
}

func TestSecret(t *testing.T) {
	store := memstore.New(
		&cg.SecretEntity{ID: "inline", Name: "API Key"},
		&cg.SecretEntity{ID: "vault", Name: "db", SecretManagerID: "Vault Prod", Path: "secret/data/db"},
	)

	mc := prepare(t, store, cg.Ref(cg.Secret, "inline"), migrate.Params{CaseConvention: identifier.CamelCase})
	doc := yamlOf(t, generate(t, mc, cg.Ref(cg.Secret, "inline")))
	assert.Contains(t, doc, "identifier: apiKey")
	assert.Contains(t, doc, "valueType: Inline")
	assert.Contains(t, doc, "secretManagerIdentifier: harnessSecretManager")

	mc = prepare(t, store, cg.Ref(cg.Secret, "vault"), migrate.Params{})
	doc = yamlOf(t, generate(t, mc, cg.Ref(cg.Secret, "vault")))
	assert.Contains(t, doc, "valueType: Reference")
	assert.Contains(t, doc, "value: secret/data/db")
	assert.Contains(t, doc, "secretManagerIdentifier: vault_prod")
}

func TestToValue(t *testing.T) {
	v := toValue(map[string]interface{}{
		"b": []interface{}{"x", 2, true},
		"a": map[interface{}]interface{}{1: "one"},
		"c": nil,
	})
	assert.Equal(t, expr.Map{
		{Key: "a", Value: expr.Map{{Key: "1", Value: expr.String("one")}}},
		{Key: "b", Value: expr.Strings("x", "2", "true")},
		{Key: "c", Value: expr.String("")},
	}, v)
}
