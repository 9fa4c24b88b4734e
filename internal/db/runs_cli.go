package db

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// RunRunsCommand handles the 'runs' subcommand: list or delete stored runs.
func RunRunsCommand(ctx context.Context, args []string, dbPath string, out io.Writer) error {
	action := "list"
	if len(args) > 0 {
		action = args[0]
	}
	if action == "help" {
		PrintRunsHelp(out)
		return nil
	}

	database, err := NewDB(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	switch action {
	case "list":
		runs, err := database.ListRuns(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tCREATED\tVERSION\tSOURCE")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.CreatedAt.Format(time.RFC3339), r.EngineVersion, r.Source)
		}
		return tw.Flush()
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("%w: usage: speedfield runs delete <run_id>", ErrMigrateUsage)
		}
		if err := database.DeleteRun(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted run %s\n", args[1])
		return nil
	default:
		fmt.Fprintf(out, "Unknown runs action: %s\n\n", action)
		PrintRunsHelp(out)
		return ErrMigrateUsage
	}
}

// PrintRunsHelp writes the runs subcommand usage.
func PrintRunsHelp(out io.Writer) {
	fmt.Fprint(out, `Usage: speedfield -db <path> runs <action> [args]

Actions:
  list               List stored runs, newest first (default)
  delete <run_id>    Delete a run with its smoothed grid and trajectories
  help               Show this message
`)
}
