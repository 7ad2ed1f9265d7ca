// Package session binds the router, the position model, the track table and
// the enrollment timer into one control panel driven by a single event loop.
//
// In the terminal UI the bubbletea program is the loop: it feeds inbound
// frames to [Session.Dispatch] and calls the intent methods from Update.
// Headless commands use [Session.Run], which selects over inbound frames,
// posted closures and the context.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/godctl/internal/enroll"
	"github.com/desertthunder/godctl/internal/models"
	"github.com/desertthunder/godctl/internal/playback"
	"github.com/desertthunder/godctl/internal/router"
	"github.com/desertthunder/godctl/internal/shared"
	"github.com/desertthunder/godctl/internal/tracktable"
)

// Event names passed to the observer.
const (
	EventState    = "state"
	EventRows     = "rows"
	EventLearned  = "learned"
	EventCommand  = "command"
	EventEnroll   = "enroll"
	EventTable    = "table"
	EventReset    = "reset"
	EventDispatch = "dispatch"
	EventDropped  = "dropped"
)

// Options configures a [Session]. Zero values select loop-driven defaults.
type Options struct {
	Scheduler     enroll.Scheduler
	Indicator     enroll.Indicator
	Recorder      enroll.Recorder
	Clock         enroll.Clock
	EnrollTimeout time.Duration
	Observer      func(event string)
}

// Session is the control panel state. Its methods must be called from the loop goroutine.
type Session struct {
	Router   *router.Router
	Position *playback.PositionModel
	Table    *tracktable.Table
	Enroll   *enroll.Timer

	logger   *log.Logger
	posted   chan func()
	observer func(string)
	dropped  int
}

// New creates a session over r and registers the default handlers on it.
func New(r *router.Router, logger *log.Logger, opts Options) *Session {
	s := &Session{
		Router:   r,
		logger:   logger,
		posted:   make(chan func(), 64),
		observer: opts.Observer,
	}

	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = &loopScheduler{posted: s.posted}
	}
	indicator := opts.Indicator
	if indicator == nil {
		indicator = nopIndicator{}
	}

	var enrollOpts []enroll.Option
	if opts.Clock != nil {
		enrollOpts = append(enrollOpts, enroll.WithClock(opts.Clock))
	}
	if opts.Recorder != nil {
		enrollOpts = append(enrollOpts, enroll.WithRecorder(opts.Recorder))
	}
	if opts.EnrollTimeout > 0 {
		enrollOpts = append(enrollOpts, enroll.WithTimeout(opts.EnrollTimeout))
	}

	s.Position = playback.NewPositionModel(r, shared.WithLogger(logger, "component", "playback"))
	s.Table = tracktable.New(shared.WithLogger(logger, "component", "tracktable"))
	s.Enroll = enroll.New(r, scheduler, &observedIndicator{inner: indicator, notify: s.notify},
		shared.WithLogger(logger, "component", "enroll"), enrollOpts...)

	r.Handle(models.TypeState, s.handleState)
	r.Handle(models.TypeRows, s.handleRows)
	r.Handle(models.TypeLearned, s.handleLearned)
	return s
}

func (s *Session) handleState(payload string) error {
	var state models.PlaybackState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return fmt.Errorf("%w: state: %v", shared.ErrMalformedPayload, err)
	}
	s.Position.OnServerUpdate(state)
	s.notify(EventState)
	return nil
}

func (s *Session) handleRows(payload string) error {
	var rows []models.TrackRow
	if err := json.Unmarshal([]byte(payload), &rows); err != nil {
		return fmt.Errorf("%w: rows: %v", shared.ErrMalformedPayload, err)
	}
	if n := s.Table.Upsert(rows); n > 0 {
		s.logger.Debug("track rows added", "count", n, "total", s.Table.Len())
	}
	s.notify(EventRows)
	return nil
}

func (s *Session) handleLearned(payload string) error {
	ack := models.ParseLearnAck(payload)
	target, pending := s.Enroll.Target()

	if !s.Enroll.OnServerAck(ack) {
		return nil
	}

	p := ack.Path
	if p == "" && pending {
		p = target.Path
	}
	if ack.TagID != "" {
		s.Table.SetTag(p, ack.TagID)
	}
	s.notify(EventLearned)
	return nil
}

// Dispatch handles one inbound frame and returns the router's error for a dropped
// frame. The router has already logged it; callers keep running.
func (s *Session) Dispatch(raw []byte) error {
	if err := s.Router.Dispatch(raw); err != nil {
		s.dropped++
		s.notify(EventDropped)
		return err
	}
	s.notify(EventDispatch)
	return nil
}

// Dropped returns how many inbound frames were dropped so far.
func (s *Session) Dropped() int { return s.dropped }

// Post queues fn to run on the loop. It blocks while the queue is full.
func (s *Session) Post(fn func()) {
	s.posted <- fn
}

// Run processes inbound frames and posted closures until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	return s.RunUntil(ctx, func() bool { return false })
}

// RunUntil is [Session.Run] that also returns nil once done reports true after an event.
func (s *Session) RunUntil(ctx context.Context, done func() bool) error {
	if done() {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw := <-s.Router.Inbound():
			if err := s.Dispatch(raw); err != nil {
				s.logger.Debug("inbound frame dropped", "dropped", s.dropped)
			}
		case fn := <-s.posted:
			fn()
		}
		if done() {
			return nil
		}
	}
}

// Toggle flips play/pause.
func (s *Session) Toggle() error {
	defer s.notify(EventCommand)
	return s.Position.OnToggleRequested()
}

// Next skips to the next track.
func (s *Session) Next() error {
	defer s.notify(EventCommand)
	return s.Position.OnNext()
}

// Previous skips to the previous track.
func (s *Session) Previous() error {
	defer s.notify(EventCommand)
	return s.Position.OnPrevious()
}

// DragStart begins a seek.
func (s *Session) DragStart() { s.Position.OnDragStart() }

// DragInput moves the seek position.
func (s *Session) DragInput(seconds int64) { s.Position.OnDragInput(seconds) }

// Nudge moves the seek position by delta seconds.
func (s *Session) Nudge(delta int64) { s.Position.Nudge(delta) }

// DragEnd commits the seek.
func (s *Session) DragEnd() error {
	defer s.notify(EventCommand)
	return s.Position.OnDragEnd()
}

// DragCancel abandons the seek.
func (s *Session) DragCancel() { s.Position.OnDragCancel() }

// Seek sends one slide to seconds through a full drag cycle so the edit lock rules apply.
func (s *Session) Seek(seconds int64) error {
	s.Position.OnDragStart()
	s.Position.OnDragInput(seconds)
	return s.DragEnd()
}

// ToggleGroup expands or collapses a directory group.
func (s *Session) ToggleGroup(dirName string) bool {
	ok := s.Table.ToggleGroup(dirName)
	if ok {
		s.notify(EventTable)
	}
	return ok
}

// Learn starts enrollment for the track at p. Paths not yet in the table are accepted as they are.
func (s *Session) Learn(p string) error {
	row, ok := s.Table.Row(p)
	if !ok {
		s.logger.Debug("learning track not in table", "path", p)
		row = models.TrackRow{Path: p, DirName: path.Dir(p)}
	}
	defer s.notify(EventEnroll)
	return s.Enroll.Start(row)
}

// Dismiss cancels the pending enrollment.
func (s *Session) Dismiss() {
	s.Enroll.Dismiss()
}

// Reset reconnects to the device.
func (s *Session) Reset(ctx context.Context) error {
	defer s.notify(EventReset)
	return s.Router.Reset(ctx)
}

// ApplyConfig points the router at the configured device, resetting the connection when the address changed.
func (s *Session) ApplyConfig(ctx context.Context, cfg *shared.Config) error {
	url := cfg.WebSocketURL()
	if url == s.Router.URL() {
		return nil
	}
	s.logger.Info("device address changed", "url", url)
	s.Router.SetURL(url)
	return s.Reset(ctx)
}

func (s *Session) notify(event string) {
	if s.observer != nil {
		s.observer(event)
	}
}

// observedIndicator reports countdown changes to the observer.
type observedIndicator struct {
	inner  enroll.Indicator
	notify func(string)
}

func (i *observedIndicator) Show(remaining int) {
	i.inner.Show(remaining)
	i.notify(EventEnroll)
}

func (i *observedIndicator) Hide() {
	i.inner.Hide()
	i.notify(EventEnroll)
}

type nopIndicator struct{}

func (nopIndicator) Show(int) {}
func (nopIndicator) Hide()    {}
