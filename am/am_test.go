package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Source:    SourceConfig{Driver: SourceDriverSQLite, DSN: "cg.db"},
		Target:    TargetConfig{BaseURL: "https://app.example.com/gateway", AccountID: "acc", OrgID: "default", ProjectID: "proj", TimeoutSeconds: 30},
		Migration: MigrationConfig{CaseConvention: "snake_case", Scope: "project", CollisionLimit: 10},
	}
}

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, SourceDriverSQLite, cfg.Source.Driver)
	assert.Equal(t, DefaultTimeoutSeconds, cfg.Target.TimeoutSeconds)
	assert.Equal(t, "snake_case", cfg.Migration.CaseConvention)
	assert.Equal(t, "project", cfg.Migration.Scope)
	assert.Equal(t, DefaultCollisionLimit, cfg.Migration.CollisionLimit)
	assert.False(t, cfg.Target.BlockPrivateIPs)
	assert.Nil(t, cfg.Target.MaxRedirects)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")
	content := `
[target]
base_url = "https://ng.example.com"
account_id = "acc1"
timeout_seconds = 0

[migration]
case_convention = "camel_case"
scope = "org"

[migration.custom_expressions]
"app.name" = "payments"
`
	require.NoError(t, os.WriteFile(path, []byte(content), DefaultFilePermissions))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://ng.example.com", cfg.Target.BaseURL)
	assert.Equal(t, 0, cfg.Target.TimeoutSeconds, "explicit zero disables the timeout")
	assert.Zero(t, cfg.RemoteTimeout())
	assert.Equal(t, "camel_case", cfg.Migration.CaseConvention)
	assert.Equal(t, map[string]string{"app.name": "payments"}, cfg.Migration.CustomExpressions)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path, "defaults fill unset keys")

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero timeout is valid", mutate: func(c *Config) { c.Target.TimeoutSeconds = 0 }},
		{name: "zero collision limit is valid", mutate: func(c *Config) { c.Migration.CollisionLimit = 0 }},
		{name: "negative timeout", mutate: func(c *Config) { c.Target.TimeoutSeconds = -1 }, wantErr: "timeout_seconds"},
		{name: "negative rate", mutate: func(c *Config) { c.Target.RequestsPerSecond = -2 }, wantErr: "requests_per_second"},
		{name: "negative collision limit", mutate: func(c *Config) { c.Migration.CollisionLimit = -1 }, wantErr: "collision_limit"},
		{name: "negative redirects", mutate: func(c *Config) { n := -1; c.Target.MaxRedirects = &n }, wantErr: "max_redirects"},
		{name: "unknown driver", mutate: func(c *Config) { c.Source.Driver = "mongo" }, wantErr: "source.driver"},
		{name: "bundle without source", mutate: func(c *Config) { c.Source.Driver = SourceDriverBundle }, wantErr: "source.bundle"},
		{name: "missing dsn", mutate: func(c *Config) { c.Source.DSN = "" }, wantErr: "source.dsn"},
		{name: "relative base url", mutate: func(c *Config) { c.Target.BaseURL = "ng/api" }, wantErr: "base_url"},
		{name: "bad constraint", mutate: func(c *Config) { c.Target.APIVersion = "not-a-version" }, wantErr: "api_version"},
		{name: "bad case convention", mutate: func(c *Config) { c.Migration.CaseConvention = "kebab" }, wantErr: "case_convention"},
		{name: "bad scope", mutate: func(c *Config) { c.Migration.Scope = "team" }, wantErr: "migration.scope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateTarget(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.ValidateTarget())

	cfg.Target.ProjectID = ""
	assert.ErrorContains(t, cfg.ValidateTarget(), "project scope")

	cfg.Migration.Scope = "org"
	assert.NoError(t, cfg.ValidateTarget())

	cfg.Migration.Scope = "account"
	cfg.Target.OrgID = ""
	assert.NoError(t, cfg.ValidateTarget())

	cfg.Target.BaseURL = ""
	assert.ErrorContains(t, cfg.ValidateTarget(), "base_url")
}

func TestSaveAndBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "am.toml")
	cfg := validConfig()
	cfg.Target.APIKey = "pat.secret"

	require.NoError(t, cfg.Save(path))
	require.NoError(t, cfg.Save(path))
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "pat.secret")
	assert.Contains(t, string(data), "snake_case")

	assert.FileExists(t, path+".back1")
	assert.FileExists(t, path+".back2")
	assert.NoFileExists(t, path+".back3")

	reloaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Target.AccountID, reloaded.Target.AccountID)
	assert.Empty(t, reloaded.Target.APIKey)
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()

	t.Run("decodes entries", func(t *testing.T) {
		path := filepath.Join(dir, "overrides.toml")
		require.NoError(t, os.WriteFile(path, []byte(`
[[override]]
type = "SERVICE"
id = "svc1"
identifier = "payments_api"
scope = "org"

[[override]]
type = "WORKFLOW"
id = "wf1"
name = "Deploy Payments"
`), DefaultFilePermissions))

		overrides, err := LoadOverrides(path)
		require.NoError(t, err)
		require.Len(t, overrides, 2)
		assert.Equal(t, Override{Type: "SERVICE", ID: "svc1", Identifier: "payments_api", Scope: "org"}, overrides[0])
		assert.Equal(t, "Deploy Payments", overrides[1].Name)
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		path := filepath.Join(dir, "typo.toml")
		require.NoError(t, os.WriteFile(path, []byte("[[override]]\ntype = \"SERVICE\"\nid = \"s\"\nidentifer = \"x\"\n"), DefaultFilePermissions))
		_, err := LoadOverrides(path)
		assert.ErrorContains(t, err, "unknown keys")
	})

	t.Run("rejects bad scope", func(t *testing.T) {
		path := filepath.Join(dir, "scope.toml")
		require.NoError(t, os.WriteFile(path, []byte("[[override]]\ntype = \"SERVICE\"\nid = \"s\"\nscope = \"team\"\n"), DefaultFilePermissions))
		_, err := LoadOverrides(path)
		assert.ErrorContains(t, err, "invalid scope")
	})
}

func TestFindProjectConfig(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "a", "b")
	require.NoError(t, os.MkdirAll(subDir, DefaultDirPermissions))

	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd)
	require.NoError(t, os.Chdir(subDir))

	assert.Empty(t, findProjectConfig())

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a", "am.toml"), []byte(""), DefaultFilePermissions))
	found := findProjectConfig()
	assert.Equal(t, "am.toml", filepath.Base(found))
	assert.True(t, filepath.IsAbs(found))
}

func TestIntrospect(t *testing.T) {
	Reset()
	defer Reset()

	v := viper.New()
	SetDefaults(v)
	v.Set("target.api_key", "pat.secret")
	ConfigSources["target.api_key"] = SourceInfo{Source: SourceProject, Path: "/work/am.toml"}

	settings := Introspect(v)
	byKey := map[string]SettingInfo{}
	for _, s := range settings {
		byKey[s.Key] = s
	}

	assert.Equal(t, "********", byKey["target.api_key"].Value)
	assert.Equal(t, SourceProject, byKey["target.api_key"].Source)
	assert.Equal(t, SourceDefault, byKey["migration.scope"].Source)

	t.Setenv("NGMIGRATE_MIGRATION_SCOPE", "org")
	settings = Introspect(v)
	for _, s := range settings {
		if s.Key == "migration.scope" {
			assert.Equal(t, SourceEnvironment, s.Source)
		}
	}
}
