package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/pterm/pterm"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/migrate"
)

func displayName(mc *migrate.Context, ref cg.EntityRef) string {
	if e := mc.Entity(ref); e != nil {
		return e.DisplayName()
	}
	return ""
}

func refRows(mc *migrate.Context, refs []cg.EntityRef) [][]string {
	rows := [][]string{{"#", "Type", "ID", "Name"}}
	for i, ref := range refs {
		rows = append(rows, []string{fmt.Sprint(i + 1), string(ref.Type), ref.ID, displayName(mc, ref)})
	}
	return rows
}

// printPlan renders a prepared run.
func printPlan(w io.Writer, p *migrate.Prepared) error {
	pterm.DefaultHeader.WithWriter(w).WithFullWidth().Printf("Migration plan for %s", p.Discovery.Root)
	pterm.Info.WithWriter(w).Printf("%d entities discovered, %d to migrate\n", p.Discovery.Graph.Len(), len(p.Plan.Order))

	if len(p.Plan.Order) > 0 {
		if err := pterm.DefaultTable.WithWriter(w).WithHasHeader().WithData(refRows(p.Context, p.Plan.Order)).Render(); err != nil {
			return err
		}
	}
	for _, section := range []struct {
		title string
		refs  []cg.EntityRef
	}{
		{"Already in target", p.Plan.Existing},
		{"Not eligible", p.Plan.Ineligible},
		{"Unreadable", p.Plan.Unreadable},
	} {
		if len(section.refs) == 0 {
			continue
		}
		pterm.DefaultSection.WithWriter(w).Println(section.title)
		for _, ref := range section.refs {
			pterm.Fprintln(w, "  "+ref.String())
		}
	}
	for _, e := range p.Discovery.Errors {
		pterm.Warning.WithWriter(w).Printf("%s: %s\n", e.Origin, e.Message)
	}
	return nil
}

// printSummary renders the outcome of a run.
func printSummary(w io.Writer, r *migrate.Report) error {
	elapsed := r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)
	if r.DryRun {
		pterm.Warning.WithWriter(w).Println("DRY RUN: nothing was written to the target")
	}

	existed := 0
	rows := [][]string{{"Type", "CG ID", "Identifier", "Scope", "Status"}}
	for _, m := range r.Migrated {
		status := "created"
		if m.AlreadyExisted {
			status = "existing"
			existed++
		}
		rows = append(rows, []string{string(m.CGType), m.CGID, m.Identifier, string(m.Level), status})
	}
	if len(r.Migrated) > 0 {
		if err := pterm.DefaultTable.WithWriter(w).WithHasHeader().WithData(rows).Render(); err != nil {
			return err
		}
	}

	for _, s := range r.Skips {
		pterm.Warning.WithWriter(w).Printf("skipped %s: %s\n", s.Origin, s.Reason)
	}
	for _, e := range r.Errors {
		pterm.Error.WithWriter(w).Printf("%s [%s]: %s\n", e.Origin, e.Category, e.Message)
	}

	switch {
	case r.Aborted:
		pterm.Error.WithWriter(w).Printf("Run %s aborted after %s\n", r.RunID, elapsed)
	case r.Success:
		pterm.Success.WithWriter(w).Printf("Run %s migrated %d entities (%d already present) in %s\n", r.RunID, len(r.Migrated), existed, elapsed)
	default:
		pterm.Error.WithWriter(w).Printf("Run %s finished with %d errors in %s\n", r.RunID, len(r.Errors), elapsed)
	}
	return nil
}
