package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/godctl/internal/formatter"
	"github.com/desertthunder/godctl/internal/models"
	"github.com/desertthunder/godctl/internal/session"
	"github.com/desertthunder/godctl/internal/shared"
	"github.com/urfave/cli/v3"
)

// historyEntry is the JSON form of an enrollment.
type historyEntry struct {
	ID        string         `json:"id"`
	Sequence  int            `json:"sequence"`
	Path      string         `json:"path"`
	Outcome   models.Outcome `json:"outcome"`
	TagID     string         `json:"tag_id,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at"`
}

// Tracks waits for the device's track list and prints or saves it.
func (r *Runner) Tracks(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	timeout := cmd.Duration("timeout")

	var received bool
	s, err := r.openSession(ctx, session.Options{
		Observer: func(event string) {
			if event == session.EventRows {
				received = true
			}
		},
	})
	defer r.closeSession(s)
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.RunUntil(waitCtx, func() bool { return received }); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: device sent no track list within %s", shared.ErrTimeout, timeout)
		}
		return err
	}

	export := formatter.FromTable(s.Table, r.config.DeviceAddr())
	r.logger.Debug("track table received", "groups", len(export.Groups), "tracks", export.Len())

	if output := cmd.String("output"); output != "" {
		path, err := formatter.WriteExport(export, format, output)
		if err != nil {
			return err
		}
		return r.writePlain("✓ wrote %d tracks to %s\n", export.Len(), path)
	}

	data, err := formatter.Render(export, format)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

// History lists recorded enrollments, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	outcome := cmd.String("outcome")
	if outcome != "" && !models.Outcome(outcome).Valid() {
		return fmt.Errorf("%w: unknown outcome %q", shared.ErrInvalidArgument, outcome)
	}

	db, repo, err := r.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	enrollments, err := repo.List(map[string]any{
		"path":    cmd.String("path"),
		"outcome": outcome,
		"limit":   cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		entries := make([]historyEntry, 0, len(enrollments))
		for _, e := range enrollments {
			entries = append(entries, historyEntry{
				ID:        e.ID(),
				Sequence:  e.Sequence(),
				Path:      e.TrackPath(),
				Outcome:   e.Outcome(),
				TagID:     e.TagID(),
				StartedAt: e.StartedAt(),
				EndedAt:   e.EndedAt(),
			})
		}
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}

	if len(enrollments) == 0 {
		return r.writePlain("no enrollments recorded\n")
	}

	data, err := formatter.HistoryToText(enrollments)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}
