package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teranos/ngmigrate/am"
	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/db"
	"github.com/teranos/ngmigrate/errors"
	"github.com/teranos/ngmigrate/logger"
	"github.com/teranos/ngmigrate/migrate"
	"github.com/teranos/ngmigrate/migrate/strategies"
	"github.com/teranos/ngmigrate/ng"
	"github.com/teranos/ngmigrate/report"
)

// MigrateCmd runs a migration rooted at one legacy entity
var MigrateCmd = &cobra.Command{
	Use:   "migrate <TYPE/id>",
	Short: "Migrate a legacy entity and everything it depends on",
	Long: `Discover the entity graph under a root entity, migrate it leaves first
and write the run report.

The report goes to report.destination (stdout by default); a summary is
printed to stderr.

Examples:
  ngmigrate migrate SERVICE/svc-123 --app app-1
  ngmigrate migrate APPLICATION/app-1 --dry-run
  ngmigrate migrate PIPELINE/pl-9 --app app-1 --report s3://reports/ngmigrate/`,
	Args: cobra.ExactArgs(1),
	RunE: runMigrate,
}

func init() {
	addRunFlags(MigrateCmd)
	MigrateCmd.Flags().Bool("dry-run", false, "Render and allocate identifiers without calling the target")
	MigrateCmd.Flags().String("report", "", "Report destination: -, a file path or s3://bucket/key (overrides report.destination)")
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("app", "", "Owning application id (defaults to the root id for APPLICATION roots)")
	cmd.Flags().Bool("migrate-all", false, "Migrate config files even when the root is not their owner")
}

// runEnv is the wiring shared by migrate and plan.
type runEnv struct {
	cfg     *am.Config
	log     *zap.SugaredLogger
	store   cg.Store
	ledger  *migrate.Ledger
	req     migrate.Request
	closers []func()
}

func (e *runEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func setupRun(ctx context.Context, cmd *cobra.Command, root string) (*runEnv, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	ref, err := parseRoot(root)
	if err != nil {
		return nil, err
	}
	params, err := buildParams(cfg)
	if err != nil {
		return nil, err
	}
	if all, _ := cmd.Flags().GetBool("migrate-all"); all {
		params.MigrateAll = true
	}
	appID, _ := cmd.Flags().GetString("app")

	env := &runEnv{
		cfg: cfg,
		log: logger.ComponentLogger("cli"),
		req: migrate.Request{Root: ref, AppID: appID, Params: params, DryRun: cfg.Migration.DryRun},
	}

	store, closeStore, err := openStore(ctx, cfg, env.log)
	if err != nil {
		return nil, err
	}
	env.store = store
	env.closers = append(env.closers, closeStore)

	conn, err := db.OpenWithMigrations(cfg.GetDatabasePath(), env.log)
	if err != nil {
		env.Close()
		return nil, errors.Wrap(err, "failed to open mapping ledger")
	}
	env.closers = append(env.closers, func() { conn.Close() })
	env.ledger = migrate.NewLedger(conn)
	return env, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := setupRun(ctx, cmd, args[0])
	if err != nil {
		return err
	}
	defer env.Close()

	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		env.req.DryRun = true
	}

	// a nil interface, never a typed nil client, marks the dry run
	var target ng.Client
	if !env.req.DryRun {
		c, err := newClient(ctx, env.cfg, env.log)
		if err != nil {
			return err
		}
		target = c
	}

	var metrics *migrate.Metrics
	if env.cfg.Report.MetricsFile != "" {
		metrics = migrate.NewMetrics()
	}

	orch := migrate.NewOrchestrator(strategies.Default(), env.store, target, env.log,
		migrate.WithLedger(env.ledger),
		migrate.WithMetrics(metrics),
		migrate.WithTimeout(env.cfg.RemoteTimeout()),
	)
	rep, runErr := orch.Run(ctx, env.req)
	if rep == nil {
		return runErr
	}

	// the report is written even when the run was interrupted
	out := context.WithoutCancel(ctx)
	if err := printSummary(cmd.ErrOrStderr(), rep); err != nil {
		env.log.Warnw("Failed to print summary", logger.FieldError, err)
	}
	dest := env.cfg.Report.Destination
	if flag, _ := cmd.Flags().GetString("report"); flag != "" {
		dest = flag
	}
	if err := report.Write(out, dest, rep, report.Options{Stdout: cmd.OutOrStdout(), Region: env.cfg.Report.Region}); err != nil {
		return err
	}
	if metrics != nil {
		if err := metrics.WriteTextfile(env.cfg.Report.MetricsFile); err != nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}
	switch {
	case rep.Aborted:
		return errors.Newf("migration of %s aborted", rep.Root)
	case !rep.Success:
		return errors.Newf("migration of %s finished with %d errors", rep.Root, len(rep.Errors))
	}
	return nil
}
