// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

// tuiCommand returns the top-level TUI command for the interactive control panel.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive control panel",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs here instead of the configured log.file",
			},
		},
		Action: r.TUI,
	}
}

// watchCommand streams playback changes until interrupted.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Print playback changes as the device reports them",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "reconnect",
				Usage: "How often to retry a lost connection",
				Value: 5 * time.Second,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print each state as a JSON line",
			},
		},
		Action: r.Watch,
	}
}

// stateCommand prints the current playback state.
func stateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "Show what the device is playing",
		Flags: append(jsonFlags(),
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the device to push its state",
				Value: 3 * time.Second,
			},
		),
		Action: r.State,
	}
}

func toggleCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "toggle",
		Aliases: []string{"pause", "play"},
		Usage:   "Toggle play/pause",
		Action:  r.Toggle,
	}
}

func nextCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "next",
		Usage:  "Skip to the next track",
		Action: r.Next,
	}
}

func previousCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "previous",
		Aliases: []string{"prev"},
		Usage:   "Skip to the previous track",
		Action:  r.Previous,
	}
}

// seekCommand moves playback to a position given as [HH:]MM:SS or plain seconds.
func seekCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "seek",
		Usage: "Seek to a position, e.g. 1:30 or 01:02:03",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "time",
			},
		},
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the device to report the track length",
				Value: 3 * time.Second,
			},
		},
		Action: r.Seek,
	}
}

// learnCommand enrolls an RFID tag for a track.
func learnCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "learn",
		Usage: "Associate the next scanned tag with a track",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "path",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not record the outcome in the database",
			},
		},
		Action: r.Learn,
	}
}

// tracksCommand exports the device's track table.
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tracks",
		Usage: "List the tracks the device knows about",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: csv, md or text",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the track list",
				Value: 5 * time.Second,
			},
		},
		Action: r.Tracks,
	}
}

// historyCommand lists recorded enrollments.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show past tag enrollments",
		Flags: append(jsonFlags(),
			&cli.StringFlag{
				Name:  "path",
				Usage: "Only enrollments for this track",
			},
			&cli.StringFlag{
				Name:  "outcome",
				Usage: "Only this outcome: succeeded, expired, dismissed or superseded",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of enrollments to show",
				Value: 50,
			},
		),
		Action: r.History,
	}
}

// assetsCommand saves the device's toggle glyphs.
func assetsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "assets",
		Usage: "Download the device's play/pause icons",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory to write the icons to",
				Value:   ".",
			},
		},
		Action: r.Assets,
	}
}

func openCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "open",
		Usage:  "Open the device's web page in a browser",
		Action: r.Open,
	}
}

// setupCommand handles setup operations for the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// configCommand manages the configuration file.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write the default config.toml",
				Action: r.ConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration",
				Action: r.ConfigShow,
			},
		},
	}
}
