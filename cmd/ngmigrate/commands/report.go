package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/ngmigrate/db"
	"github.com/teranos/ngmigrate/errors"
	"github.com/teranos/ngmigrate/logger"
	"github.com/teranos/ngmigrate/migrate"
	"github.com/teranos/ngmigrate/report"
)

// ReportCmd prints the stored report of an earlier run
var ReportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Show the report of an earlier run",
	Long:  "Read a finished run's report from the mapping ledger and write it to stdout or --to.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		conn, err := db.OpenWithMigrations(cfg.GetDatabasePath(), logger.ComponentLogger("cli"))
		if err != nil {
			return errors.Wrap(err, "failed to open mapping ledger")
		}
		defer conn.Close()

		rep, err := migrate.NewLedger(conn).Report(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		dest, _ := cmd.Flags().GetString("to")
		return report.Write(cmd.Context(), dest, rep, report.Options{Stdout: cmd.OutOrStdout(), Region: cfg.Report.Region})
	},
}

func init() {
	ReportCmd.Flags().String("to", "-", "Destination: -, a file path or s3://bucket/key")
}
