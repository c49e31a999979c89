package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/ngmigrate/migrate"
	"github.com/teranos/ngmigrate/migrate/strategies"
)

// PlanCmd shows what a migration would do without touching the target
var PlanCmd = &cobra.Command{
	Use:   "plan <TYPE/id>",
	Short: "Show the migration order for a root entity",
	Long: `Discover the entity graph under a root entity and print the order it
would be migrated in, along with entities that are ineligible, already
migrated by an earlier run, or unreadable. No remote calls are made.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	addRunFlags(PlanCmd)
	PlanCmd.Flags().Bool("json", false, "Output the plan as JSON")
}

type planOutput struct {
	Root   string                `json:"root"`
	AppID  string                `json:"appId"`
	Plan   *migrate.Plan         `json:"plan"`
	Errors []migrate.ImportError `json:"errors"`
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := setupRun(ctx, cmd, args[0])
	if err != nil {
		return err
	}
	defer env.Close()

	env.req.DryRun = true
	orch := migrate.NewOrchestrator(strategies.Default(), env.store, nil, env.log, migrate.WithLedger(env.ledger))
	prepared, err := orch.Prepare(ctx, env.req)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		data, err := json.MarshalIndent(planOutput{
			Root:   prepared.Discovery.Root.String(),
			AppID:  prepared.Discovery.AppID,
			Plan:   prepared.Plan,
			Errors: prepared.Discovery.Errors,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	return printPlan(cmd.OutOrStdout(), prepared)
}
