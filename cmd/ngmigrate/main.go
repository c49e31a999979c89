package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/ngmigrate/cmd/ngmigrate/commands"
	"github.com/teranos/ngmigrate/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ngmigrate",
	Short: "ngmigrate - migrate legacy CG configuration to NG",
	Long: `ngmigrate - migrate legacy CG configuration to NG.

ngmigrate discovers everything a legacy entity depends on, migrates it
leaves first and records what it created, so interrupted or partially
failed runs can be repeated safely.

Available commands:
  migrate - Migrate an entity and its dependencies
  plan    - Show the migration order without calling the target
  report  - Show the report of an earlier run
  am      - Manage ngmigrate configuration ("I am")
  version - Show version information

Examples:
  ngmigrate plan SERVICE/svc-123 --app app-1
  ngmigrate migrate SERVICE/svc-123 --app app-1
  ngmigrate am show --sources`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("log-json")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().String("config", "", "Configuration file (default: am.toml cascade)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	rootCmd.AddCommand(commands.MigrateCmd)
	rootCmd.AddCommand(commands.PlanCmd)
	rootCmd.AddCommand(commands.ReportCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	// interrupt aborts the run; entities not yet started are reported as skipped
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
