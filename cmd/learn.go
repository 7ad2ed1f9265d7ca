package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/desertthunder/godctl/internal/enroll"
	"github.com/desertthunder/godctl/internal/models"
	"github.com/desertthunder/godctl/internal/repositories"
	"github.com/desertthunder/godctl/internal/session"
	"github.com/desertthunder/godctl/internal/shared"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

// barIndicator draws the enrollment countdown as a progress bar that fills as time runs out.
type barIndicator struct {
	w     io.Writer
	bar   *progressbar.ProgressBar
	total int
	label string
}

func newBarIndicator(w io.Writer, total int, label string) *barIndicator {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &barIndicator{w: w, bar: bar, total: total, label: label}
}

func (b *barIndicator) Show(remaining int) {
	b.bar.Describe(fmt.Sprintf("%s (%ds)", b.label, remaining))
	b.bar.Set(b.total - remaining)
}

func (b *barIndicator) Hide() {
	b.bar.Exit()
	fmt.Fprintln(b.w)
}

// lastRecord keeps the final enrollment and forwards it to next when set.
type lastRecord struct {
	next enroll.Recorder
	got  *models.Enrollment
}

func (l *lastRecord) Record(e *models.Enrollment) error {
	l.got = e
	if l.next == nil {
		return nil
	}
	return l.next.Record(e)
}

// openHistory opens the configured database with its migrations applied.
func (r *Runner) openHistory() (*sql.DB, *repositories.EnrollmentRepository, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, repositories.NewEnrollmentRepository(db), nil
}

// Learn asks the device to bind the next scanned tag to a track and waits for the scan, the deadline or an
// interrupt. The outcome is recorded in the enrollment history.
func (r *Runner) Learn(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: learn needs a track path", shared.ErrMissingArgument)
	}

	rec := &lastRecord{}
	if !cmd.Bool("no-history") {
		db, repo, err := r.openHistory()
		if err != nil {
			r.logger.Warn("enrollment history unavailable", "error", err)
		} else {
			defer db.Close()
			rec.next = repositories.NewRecorder(repo, shared.WithLogger(r.logger, "component", "history"))
		}
	}

	timeout := r.config.EnrollTimeout()
	label := "scan a tag for " + models.TrackRow{Path: path}.DisplayName()
	s, err := r.openSession(ctx, session.Options{
		Indicator:     newBarIndicator(r.output, int(timeout/time.Second), label),
		Recorder:      rec,
		EnrollTimeout: timeout,
	})
	defer r.closeSession(s)
	if err != nil {
		return err
	}

	if err := s.Learn(path); err != nil {
		return err
	}

	err = s.RunUntil(ctx, func() bool { return !s.Enroll.Pending() })
	if err != nil {
		s.Dismiss()
		return err
	}

	switch s.Enroll.State() {
	case enroll.Succeeded:
		tag := "(unknown tag)"
		if rec.got != nil && rec.got.TagID() != "" {
			tag = rec.got.TagID()
		}
		return r.writePlain("✓ learned %s for %s\n", tag, path)
	case enroll.Expired:
		return fmt.Errorf("%w: no tag scanned within %s", shared.ErrTimeout, timeout)
	}
	return fmt.Errorf("enrollment ended without a result: %s", s.Enroll.State())
}
