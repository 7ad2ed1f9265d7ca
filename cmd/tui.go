package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/godctl/internal/enroll"
	"github.com/desertthunder/godctl/internal/repositories"
	"github.com/desertthunder/godctl/internal/shared"
	"github.com/desertthunder/godctl/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive control panel.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	logPath := cmd.String("log-file")
	if logPath == "" {
		logPath = r.config.Log.File
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	if lvl, err := shared.ParseLogLevel(r.config.Log.Level); err == nil {
		shared.SetLogLevel(fileLogger, lvl)
	}
	r.SetLogger(fileLogger)

	var recorder enroll.Recorder
	if db, repo, err := r.openHistory(); err != nil {
		r.logger.Warn("enrollment history unavailable", "error", err)
	} else {
		defer db.Close()
		recorder = repositories.NewRecorder(repo, shared.WithLogger(r.logger, "component", "history"))
	}

	var watcher *shared.ConfigWatcher
	if _, err := os.Stat(r.configPath); err == nil {
		if watcher, err = shared.NewConfigWatcher(r.configPath); err != nil {
			r.logger.Warn("config changes will not be picked up", "error", err)
		} else {
			defer watcher.Close()
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	router := r.newRouter()
	defer r.closeRouter(router)

	model := ui.NewModel(ctx, r.config, r.configPath, router, r.device, recorder, watcher, r.logger)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
