package am

import (
	"net/url"

	"github.com/Masterminds/semver/v3"

	"github.com/teranos/ngmigrate/errors"
)

var (
	validCaseConventions = map[string]bool{"camel_case": true, "snake_case": true, "lower_case": true}
	validScopes          = map[string]bool{"project": true, "org": true, "account": true}
	validSourceDrivers   = map[string]bool{SourceDriverSQLite: true, SourceDriverPostgres: true, SourceDriverBundle: true}
)

// Validate checks that the configuration is valid.
// Zero means zero: 0 disables a limit, negatives are invalid.
func (c *Config) Validate() error {
	if !validSourceDrivers[c.Source.Driver] {
		return errors.Newf("source.driver must be one of sqlite3, pgx, bundle; got %q", c.Source.Driver)
	}
	if c.Source.Driver == SourceDriverBundle && c.Source.Bundle == "" {
		return errors.New("source.bundle cannot be empty when source.driver is bundle")
	}
	if c.Source.Driver != SourceDriverBundle && c.Source.DSN == "" {
		return errors.Newf("source.dsn cannot be empty for driver %s", c.Source.Driver)
	}

	if c.Target.BaseURL != "" {
		u, err := url.Parse(c.Target.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.Newf("target.base_url must be an absolute URL, got %q", c.Target.BaseURL)
		}
	}
	if c.Target.TimeoutSeconds < 0 {
		return errors.Newf("target.timeout_seconds must be >= 0, got %d", c.Target.TimeoutSeconds)
	}
	if c.Target.RequestsPerSecond < 0 {
		return errors.Newf("target.requests_per_second must be >= 0, got %f", c.Target.RequestsPerSecond)
	}
	if c.Target.Burst < 0 {
		return errors.Newf("target.burst must be >= 0, got %d", c.Target.Burst)
	}
	if c.Target.MaxRedirects != nil && *c.Target.MaxRedirects < 0 {
		return errors.Newf("target.max_redirects must be >= 0, got %d (omit for default)", *c.Target.MaxRedirects)
	}
	if c.Target.APIVersion != "" {
		if _, err := semver.NewConstraint(c.Target.APIVersion); err != nil {
			return errors.Wrapf(err, "target.api_version %q is not a valid constraint", c.Target.APIVersion)
		}
	}

	if !validCaseConventions[c.Migration.CaseConvention] {
		return errors.Newf("migration.case_convention must be camel_case, snake_case or lower_case; got %q", c.Migration.CaseConvention)
	}
	if !validScopes[c.Migration.Scope] {
		return errors.Newf("migration.scope must be project, org or account; got %q", c.Migration.Scope)
	}
	if c.Migration.CollisionLimit < 0 {
		return errors.Newf("migration.collision_limit must be >= 0, got %d", c.Migration.CollisionLimit)
	}

	return nil
}

// ValidateTarget checks the settings a run needs to reach the target platform.
func (c *Config) ValidateTarget() error {
	if c.Target.BaseURL == "" {
		return errors.New("target.base_url is required")
	}
	if c.Target.AccountID == "" {
		return errors.New("target.account_id is required")
	}
	switch c.Migration.Scope {
	case "project":
		if c.Target.OrgID == "" || c.Target.ProjectID == "" {
			return errors.New("project scope requires target.org_id and target.project_id")
		}
	case "org":
		if c.Target.OrgID == "" {
			return errors.New("org scope requires target.org_id")
		}
	}
	return nil
}
