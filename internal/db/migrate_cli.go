package db

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ErrMigrateUsage is returned for an unknown or incomplete migrate or runs
// command.
var ErrMigrateUsage = errors.New("invalid migrate command")

// RunMigrateCommand handles the 'migrate' subcommand.
func RunMigrateCommand(args []string, dbPath string, out io.Writer) error {
	if len(args) < 1 {
		PrintMigrateHelp(out)
		return ErrMigrateUsage
	}
	action := args[0]
	if action == "help" {
		PrintMigrateHelp(out)
		return nil
	}

	// Open without migrating; the command manages the schema.
	database, err := OpenDB(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()
	migrationsFS := MigrationsFS()

	switch action {
	case "up":
		if err := database.MigrateUp(migrationsFS); err != nil {
			return err
		}
	case "down":
		if err := database.MigrateDown(migrationsFS); err != nil {
			return err
		}
	case "status":
	case "version":
		if len(args) < 2 {
			return fmt.Errorf("%w: usage: speedfield migrate version <version_number>", ErrMigrateUsage)
		}
		v, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("%w: invalid version number %q", ErrMigrateUsage, args[1])
		}
		if err := database.MigrateTo(migrationsFS, uint(v)); err != nil {
			return err
		}
	case "force":
		if len(args) < 2 {
			return fmt.Errorf("%w: usage: speedfield migrate force <version_number>", ErrMigrateUsage)
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: invalid version number %q", ErrMigrateUsage, args[1])
		}
		if err := database.MigrateForce(migrationsFS, v); err != nil {
			return err
		}
	default:
		fmt.Fprintf(out, "Unknown migrate action: %s\n\n", action)
		PrintMigrateHelp(out)
		return ErrMigrateUsage
	}

	version, dirty, err := database.MigrateVersion(migrationsFS)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	fmt.Fprintf(out, "Current version: %d (dirty: %v)\n", version, dirty)
	if dirty {
		fmt.Fprintln(out, "WARNING: a migration failed mid-execution; inspect the database then run: speedfield migrate force <version>")
	}
	return nil
}

// PrintMigrateHelp writes the migrate subcommand usage.
func PrintMigrateHelp(out io.Writer) {
	fmt.Fprint(out, `Usage: speedfield migrate <action> [args] -db <path>

Actions:
  up                 Apply all pending migrations
  down               Roll back the most recent migration
  status             Show the current schema version
  version <n>        Migrate up or down to version n
  force <n>          Set the version without running migrations
  help               Show this message
`)
}
