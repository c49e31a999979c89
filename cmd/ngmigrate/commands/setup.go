package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teranos/ngmigrate/am"
	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/cg/bundle"
	"github.com/teranos/ngmigrate/cg/memstore"
	"github.com/teranos/ngmigrate/cg/sqlstore"
	"github.com/teranos/ngmigrate/errors"
	"github.com/teranos/ngmigrate/expr"
	"github.com/teranos/ngmigrate/identifier"
	"github.com/teranos/ngmigrate/migrate"
	"github.com/teranos/ngmigrate/ng"
	"github.com/teranos/ngmigrate/ng/client"
)

// loadConfig reads --config when given, otherwise the usual cascade, and
// validates the result.
func loadConfig(cmd *cobra.Command) (*am.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	var (
		cfg *am.Config
		err error
	)
	if path != "" {
		cfg, err = am.LoadFromFile(path)
	} else {
		cfg, err = am.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// parseRoot accepts TYPE/id or TYPE:id.
func parseRoot(s string) (cg.EntityRef, error) {
	sep := strings.IndexAny(s, "/:")
	if sep <= 0 || sep == len(s)-1 {
		return cg.EntityRef{}, errors.WithHint(
			errors.NewInvalidRequestError("invalid root %q", s),
			"use TYPE/id, for example SERVICE/svc-123",
		)
	}
	t, err := cg.ParseEntityType(s[:sep])
	if err != nil {
		return cg.EntityRef{}, err
	}
	return cg.Ref(t, s[sep+1:]), nil
}

// openStore opens the legacy store the configuration names. Bundles are
// loaded into memory.
func openStore(ctx context.Context, cfg *am.Config, log *zap.SugaredLogger) (cg.Store, func(), error) {
	if cfg.Source.Driver == am.SourceDriverBundle {
		store := memstore.New()
		if _, _, err := bundle.Load(ctx, cfg.Source.Bundle, store, log); err != nil {
			return nil, nil, errors.Wrapf(err, "failed to load export bundle %s", cfg.Source.Bundle)
		}
		return store, func() {}, nil
	}
	store, err := sqlstore.Open(ctx, cfg.Source.Driver, cfg.Source.DSN, log)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}

// buildParams turns the migration section and overrides file into run parameters.
func buildParams(cfg *am.Config) (migrate.Params, error) {
	convention, err := identifier.ParseCaseConvention(cfg.Migration.CaseConvention)
	if err != nil {
		return migrate.Params{}, err
	}
	level, err := identifier.ParseLevel(cfg.Migration.Scope)
	if err != nil {
		return migrate.Params{}, err
	}
	scope := ng.Scope{
		AccountID: cfg.Target.AccountID,
		OrgID:     cfg.Target.OrgID,
		ProjectID: cfg.Target.ProjectID,
	}.AtLevel(level)

	// zero in the config file means no suffixing
	limit := cfg.Migration.CollisionLimit
	if limit == 0 {
		limit = -1
	}

	params := migrate.Params{
		CaseConvention:    convention,
		Scope:             scope,
		CustomExpressions: expr.Bindings(cfg.Migration.CustomExpressions),
		MigrateAll:        cfg.Migration.MigrateAll,
		CollisionLimit:    limit,
	}
	if cfg.Migration.OverridesFile == "" {
		return params, nil
	}

	overrides, err := am.LoadOverrides(cfg.Migration.OverridesFile)
	if err != nil {
		return migrate.Params{}, err
	}
	params.Overrides = make(map[cg.EntityRef]migrate.Override, len(overrides))
	for _, o := range overrides {
		t, err := cg.ParseEntityType(o.Type)
		if err != nil {
			return migrate.Params{}, errors.Wrapf(err, "override for %s", o.ID)
		}
		ov := migrate.Override{Name: o.Name, Identifier: o.Identifier}
		if o.Scope != "" {
			if ov.Level, err = identifier.ParseLevel(o.Scope); err != nil {
				return migrate.Params{}, err
			}
		}
		params.Overrides[cg.Ref(t, o.ID)] = ov
	}
	return params, nil
}

// newClient builds the target client and checks its version.
func newClient(ctx context.Context, cfg *am.Config, log *zap.SugaredLogger) (*client.Client, error) {
	if err := cfg.ValidateTarget(); err != nil {
		return nil, err
	}
	c, err := client.New(client.Config{
		BaseURL:           cfg.Target.BaseURL,
		APIKey:            cfg.Target.APIKey,
		Timeout:           cfg.RemoteTimeout(),
		RequestsPerSecond: cfg.Target.RequestsPerSecond,
		Burst:             cfg.Target.Burst,
		BlockPrivateIPs:   cfg.Target.BlockPrivateIPs,
		MaxRedirects:      cfg.Target.MaxRedirects,
	}, log)
	if err != nil {
		return nil, err
	}
	if cfg.Target.APIVersion != "" {
		got, err := c.CheckVersion(ctx, cfg.Target.APIVersion)
		if err != nil {
			return nil, err
		}
		log.Infow("Target version accepted", "version", got, "constraint", cfg.Target.APIVersion)
	}
	return c, nil
}
