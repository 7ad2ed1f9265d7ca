package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/godctl/internal/playback"
	"github.com/desertthunder/godctl/internal/services"
	"github.com/desertthunder/godctl/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	path := r.config.Database.Path
	r.logger.Info("initializing database", "path", path)

	db, err := shared.NewDatabase(path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back the latest migration")
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		return r.writePlain("✓ rolled back the latest migration in %s\n", path)
	}

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", path)
	return r.writePlain("✓ database ready at %s\n", path)
}

// ConfigInit writes the default configuration to the config path.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)

	r.writePlain("✓ wrote %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set [device] host and port to your player's address\n")
	r.writePlain("2. Run 'godctl setup database' to enable enrollment history\n")
	r.writePlain("3. Run 'godctl tui'\n")
	return nil
}

// ConfigShow prints the effective configuration as TOML.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	if err := toml.NewEncoder(r.output).Encode(r.config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Assets downloads the device's toggle icons into a directory.
func (r *Runner) Assets(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.String("output")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	glyphs := services.LoadGlyphs(ctx, r.device, r.logger)
	saved := 0
	for glyph, name := range map[playback.Glyph]string{
		playback.GlyphPlay:  filepath.Base(services.PlayGlyphPath),
		playback.GlyphPause: filepath.Base(services.PauseGlyphPath),
	} {
		data, ok := glyphs.Asset(glyph)
		if !ok {
			continue
		}

		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		r.writePlain("✓ saved %s\n", path)
		saved++
	}

	if saved == 0 {
		return fmt.Errorf("%w: no icons could be downloaded from %s", shared.ErrServiceUnavailable, r.config.BaseURL())
	}
	return nil
}

// Open launches the device's own web page.
func (r *Runner) Open(ctx context.Context, cmd *cli.Command) error {
	url := r.config.BaseURL()
	r.logger.Info("opening device page", "url", url)
	if err := shared.OpenBrowser(url); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
