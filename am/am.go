// Package am holds the ngmigrate configuration: where legacy entities are read
// from, which target platform receives them and how a run behaves.
package am

// Config represents the ngmigrate configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database" toml:"database"`
	Source    SourceConfig    `mapstructure:"source" toml:"source"`
	Target    TargetConfig    `mapstructure:"target" toml:"target"`
	Migration MigrationConfig `mapstructure:"migration" toml:"migration"`
	Report    ReportConfig    `mapstructure:"report" toml:"report"`
}

// DatabaseConfig configures the SQLite mapping ledger
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// Source drivers
const (
	SourceDriverSQLite   = "sqlite3"
	SourceDriverPostgres = "pgx"
	SourceDriverBundle   = "bundle"
)

// SourceConfig configures where legacy entities are read from
type SourceConfig struct {
	Driver string `mapstructure:"driver" toml:"driver"` // sqlite3, pgx or bundle
	DSN    string `mapstructure:"dsn" toml:"dsn"`       // database DSN for sqlite3/pgx
	// Bundle is a go-getter source (directory, git::, https://, s3::) for export bundles
	Bundle    string `mapstructure:"bundle" toml:"bundle"`
	AccountID string `mapstructure:"account_id" toml:"account_id"`
}

// TargetConfig configures the target platform API
type TargetConfig struct {
	BaseURL   string `mapstructure:"base_url" toml:"base_url"`
	APIKey    string `mapstructure:"api_key" toml:"api_key,omitempty"`
	AccountID string `mapstructure:"account_id" toml:"account_id"`
	OrgID     string `mapstructure:"org_id" toml:"org_id"`
	ProjectID string `mapstructure:"project_id" toml:"project_id"`

	TimeoutSeconds    int     `mapstructure:"timeout_seconds" toml:"timeout_seconds"`         // per remote call
	RequestsPerSecond float64 `mapstructure:"requests_per_second" toml:"requests_per_second"` // 0 = unlimited
	Burst             int     `mapstructure:"burst" toml:"burst"`
	// APIVersion is a semver constraint the target's reported version must satisfy (empty = unchecked)
	APIVersion      string `mapstructure:"api_version" toml:"api_version"`
	BlockPrivateIPs bool   `mapstructure:"block_private_ips" toml:"block_private_ips"`
	MaxRedirects    *int   `mapstructure:"max_redirects" toml:"max_redirects,omitempty"` // nil = default 10
}

// MigrationConfig configures run behavior
type MigrationConfig struct {
	CaseConvention string `mapstructure:"case_convention" toml:"case_convention"` // camel_case, snake_case, lower_case
	Scope          string `mapstructure:"scope" toml:"scope"`                     // project, org, account
	MigrateAll     bool   `mapstructure:"migrate_all" toml:"migrate_all"`
	// CollisionLimit bounds identifier suffixes (0 = no suffixing, first collision fails)
	CollisionLimit    int               `mapstructure:"collision_limit" toml:"collision_limit"`
	OverridesFile     string            `mapstructure:"overrides_file" toml:"overrides_file"`
	DryRun            bool              `mapstructure:"dry_run" toml:"dry_run"`
	CustomExpressions map[string]string `mapstructure:"custom_expressions" toml:"custom_expressions,omitempty"`
}

// ReportConfig configures where run reports go
type ReportConfig struct {
	// Destination is empty or "-" for stdout, a file path, or s3://bucket/key
	Destination string `mapstructure:"destination" toml:"destination"`
	MetricsFile string `mapstructure:"metrics_file" toml:"metrics_file"` // Prometheus textfile, empty = off
	Region      string `mapstructure:"region" toml:"region"`             // S3 region override
}

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
