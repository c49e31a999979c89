package am

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Defaults referenced outside SetDefaults
const (
	DefaultDatabasePath   = "ngmigrate.db"
	DefaultCaseConvention = "snake_case"
	DefaultScope          = "project"
	DefaultCollisionLimit = 10
	DefaultTimeoutSeconds = 30
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("source.driver", SourceDriverSQLite)
	v.SetDefault("source.dsn", "cg.db")

	v.SetDefault("target.timeout_seconds", DefaultTimeoutSeconds)
	v.SetDefault("target.requests_per_second", 5.0)
	v.SetDefault("target.burst", 1)
	v.SetDefault("target.api_version", ">= 1.0.0")
	// Self-hosted targets usually live on private networks
	v.SetDefault("target.block_private_ips", false)

	v.SetDefault("migration.case_convention", DefaultCaseConvention)
	v.SetDefault("migration.scope", DefaultScope)
	v.SetDefault("migration.migrate_all", false)
	v.SetDefault("migration.collision_limit", DefaultCollisionLimit)

	v.SetDefault("report.destination", "-")
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("target.api_key", "NGMIGRATE_TARGET_API_KEY")
	v.BindEnv("source.dsn", "NGMIGRATE_SOURCE_DSN")
	v.BindEnv("database.path", "NGMIGRATE_DATABASE_PATH")
}

// GetDatabasePath returns the ledger database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return DefaultDatabasePath
	}
	return c.Database.Path
}

// RemoteTimeout is the bound applied to each call against the target.
// Zero means no bound.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Target.TimeoutSeconds) * time.Second
}

// String returns a string representation of the config without secrets
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Source: %s, Target: %s (account %s), Case: %s}",
		c.Database.Path, c.Source.Driver, c.Target.BaseURL, c.Target.AccountID, c.Migration.CaseConvention)
}
