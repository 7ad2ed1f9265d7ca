// Package enroll runs the single outstanding tag enrollment request.
//
// A request asks the device to bind the next scanned tag to a track. It
// stays pending for a bounded time with a once-per-second countdown and ends
// on the device's acknowledgement, a user dismissal or the deadline,
// whichever comes first. Starting a new request supersedes the current one;
// requests never stack.
//
// A Timer is not safe for concurrent use. Scheduler callbacks must be
// delivered on the same event loop that calls the Timer's methods.
package enroll

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/godctl/internal/models"
	"github.com/desertthunder/godctl/internal/shared"
)

// DefaultTimeout is how long a request stays pending.
const DefaultTimeout = 10 * time.Second

// State of the timer.
type State int

const (
	Idle State = iota
	Pending
	Succeeded
	Expired
	Dismissed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Expired:
		return "expired"
	case Dismissed:
		return "dismissed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Scheduler runs fn every d until the returned stop func is called.
type Scheduler interface {
	Every(d time.Duration, fn func()) (stop func())
}

// Indicator displays the countdown.
type Indicator interface {
	Show(remaining int)
	Hide()
}

// Emitter delivers outbound commands to the device.
type Emitter interface {
	Emit(cmd models.Command) error
}

// Recorder persists finished requests.
type Recorder interface {
	Record(e *models.Enrollment) error
}

// Request is one enrollment attempt.
type Request struct {
	ID       string
	Target   models.TrackRow
	Start    time.Time
	Deadline time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures a [Timer].
type Option func(*Timer)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option { return func(t *Timer) { t.clock = c } }

// WithRecorder persists every finished request.
func WithRecorder(r Recorder) Option { return func(t *Timer) { t.recorder = r } }

// WithTimeout overrides [DefaultTimeout]. The countdown runs in whole seconds, so d
// is rounded to the nearest second with a floor of one. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.timeout = max(d.Round(time.Second), time.Second)
		}
	}
}

// Timer owns at most one pending [Request].
type Timer struct {
	emitter   Emitter
	scheduler Scheduler
	indicator Indicator
	clock     Clock
	recorder  Recorder
	logger    *log.Logger
	timeout   time.Duration

	state   State
	request *Request
	stop    func()
}

// New creates an idle timer.
func New(emitter Emitter, scheduler Scheduler, indicator Indicator, logger *log.Logger, opts ...Option) *Timer {
	t := &Timer{
		emitter:   emitter,
		scheduler: scheduler,
		indicator: indicator,
		clock:     systemClock{},
		logger:    logger,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start supersedes any pending request, asks the device to learn a tag for row and begins the countdown.
//
// When the learn command cannot be sent no request is started and the error is returned.
func (t *Timer) Start(row models.TrackRow) error {
	if row.Path == "" {
		return fmt.Errorf("%w: enrollment target has no path", shared.ErrInvalidInput)
	}

	if t.state == Pending {
		t.logger.Info("superseding enrollment", "previous", t.request.Target.Path, "next", row.Path)
		t.finish(Dismissed, models.OutcomeSuperseded, "")
	}

	if err := t.emitter.Emit(models.LearnCommand(row.Path)); err != nil {
		t.logger.Warn("failed to request enrollment", "path", row.Path, "error", err)
		return fmt.Errorf("failed to request enrollment: %w", err)
	}

	now := t.clock.Now()
	t.request = &Request{
		ID:       shared.GenerateID(),
		Target:   row,
		Start:    now,
		Deadline: now.Add(t.timeout),
	}
	t.state = Pending

	t.indicator.Show(t.seconds())
	t.stop = t.scheduler.Every(time.Second, t.Tick)
	t.logger.Info("enrollment started", "id", t.request.ID, "path", row.Path, "deadline", t.request.Deadline.Format(time.TimeOnly))
	return nil
}

// Tick refreshes the countdown and expires the request once no whole seconds remain.
func (t *Timer) Tick() {
	if t.state != Pending {
		return
	}

	remaining := t.Remaining()
	if remaining <= 0 {
		t.logger.Info("enrollment expired", "path", t.request.Target.Path)
		t.finish(Expired, models.OutcomeExpired, "")
		return
	}
	t.indicator.Show(remaining)
}

// OnServerAck completes the pending request. An empty ack path matches any target.
// It reports whether the ack was accepted.
func (t *Timer) OnServerAck(ack models.LearnAck) bool {
	if t.state != Pending {
		return false
	}
	if ack.Path != "" && ack.Path != t.request.Target.Path {
		t.logger.Warn("ignoring enrollment ack for another track", "path", ack.Path, "pending", t.request.Target.Path)
		return false
	}

	t.logger.Info("enrollment succeeded", "path", t.request.Target.Path, "tag", ack.TagID)
	t.finish(Succeeded, models.OutcomeSucceeded, ack.TagID)
	return true
}

// Dismiss cancels the pending request. It does nothing when idle.
func (t *Timer) Dismiss() {
	if t.state != Pending {
		return
	}
	t.logger.Info("enrollment dismissed", "path", t.request.Target.Path)
	t.finish(Dismissed, models.OutcomeDismissed, "")
}

// Remaining returns whole seconds left, or 0 when nothing is pending.
func (t *Timer) Remaining() int {
	if t.state != Pending {
		return 0
	}
	elapsed := t.clock.Now().Sub(t.request.Start)
	return t.seconds() - int(elapsed/time.Second)
}

// State returns the current state. After a request ends the timer reports
// how it ended until the next Start; every ended state behaves as idle.
func (t *Timer) State() State { return t.state }

// Pending reports whether a request is outstanding.
func (t *Timer) Pending() bool { return t.state == Pending }

// Target returns the row of the pending request.
func (t *Timer) Target() (models.TrackRow, bool) {
	if t.state != Pending {
		return models.TrackRow{}, false
	}
	return t.request.Target, true
}

// Request returns the current or most recent request, or nil before the first Start.
func (t *Timer) Request() *Request { return t.request }

func (t *Timer) seconds() int {
	return int(t.timeout / time.Second)
}

func (t *Timer) finish(state State, outcome models.Outcome, tag string) {
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
	t.indicator.Hide()
	t.state = state

	if t.recorder == nil {
		return
	}

	rec := models.NewEnrollment(t.request.Target.Path, outcome, tag, t.request.Start, t.clock.Now())
	rec.SetID(t.request.ID)
	if err := t.recorder.Record(rec); err != nil {
		t.logger.Warn("failed to record enrollment", "id", t.request.ID, "error", err)
	}
}
