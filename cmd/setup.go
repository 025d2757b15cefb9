package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/songdl/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the example configuration to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" {
		return fmt.Errorf("%w: config path", shared.ErrMissingArgument)
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("Wrote %s\n", path)
	r.writePlain("Set output.dir and, for Spotify sources, credentials.spotify before running a download.\n")
	return nil
}

// SetupDatabase creates the resolution cache database and applies pending migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	if err := r.prepare(cmd); err != nil {
		return err
	}

	path := r.config.Cache.Path
	r.logger.Info("initializing database", "path", path)

	db, err := shared.OpenCacheDatabase(r.config.Cache)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	if cmd.Bool("rollback") {
		if err := shared.RollbackMigration(db); err != nil {
			return err
		}
		r.logger.Warn("rolled back latest migration", "path", path)
	}

	states, err := shared.MigrationStatus(db)
	if err != nil {
		return err
	}

	r.writePlainHeader("Database " + path)
	for _, s := range states {
		if s.Applied {
			r.writePlain("%04d %-24s applied %s\n", s.Version, s.Name, s.AppliedAt.Format("2006-01-02 15:04"))
		} else {
			r.writePlain("%04d %-24s pending\n", s.Version, s.Name)
		}
	}
	if !r.config.Cache.Enabled {
		r.writePlain("\nThe cache is disabled; set cache.enabled = true to use it during downloads.\n")
	}
	return nil
}
