package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/godctl/internal/models"
	"github.com/desertthunder/godctl/internal/playback"
	"github.com/desertthunder/godctl/internal/services"
	"github.com/desertthunder/godctl/internal/session"
	"github.com/desertthunder/godctl/internal/shared"
	"github.com/desertthunder/godctl/internal/timecode"
	"github.com/urfave/cli/v3"
)

// stateOutput is the JSON form printed by the state command.
type stateOutput struct {
	models.PlaybackState
	Source string `json:"source"`
}

func stateFromView(v playback.View) models.PlaybackState {
	return models.PlaybackState{
		Name:            v.Title,
		Duration:        v.SliderMax,
		DurationCurrent: v.SliderValue,
		IsPlaying:       v.Playing,
	}
}

func glyphFor(state models.PlaybackState) string {
	if state.IsPlaying {
		return services.DefaultGlyphs().Symbol(playback.GlyphPause)
	}
	return services.DefaultGlyphs().Symbol(playback.GlyphPlay)
}

// State prints the current playback state, read from the socket or the HTTP state endpoint.
func (r *Runner) State(ctx context.Context, cmd *cli.Command) error {
	state, source, err := r.currentState(ctx, cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(stateOutput{PlaybackState: *state, Source: source}, cmd.Bool("pretty"))
	}

	title := state.Name
	if title == "" {
		title = "Nothing playing"
	}
	r.writePlainHeader(title)
	r.writePlain("%s  %s / %s\n", glyphFor(*state), timecode.MustFormat(state.DurationCurrent), timecode.MustFormat(state.Duration))
	r.writePlain("source: %s (%s)\n", source, r.config.DeviceAddr())
	return nil
}

// currentState waits for the device to push its state and falls back to polling when it does not.
func (r *Runner) currentState(ctx context.Context, timeout time.Duration) (*models.PlaybackState, string, error) {
	s, err := r.awaitState(ctx, timeout)
	r.closeSession(s)
	if err == nil {
		state := stateFromView(s.Position.View())
		return &state, "websocket", nil
	}
	if errors.Is(err, context.Canceled) {
		return nil, "", err
	}

	r.logger.Warn("no state over websocket, polling the state endpoint", "error", err)
	state, err := r.device.FetchState(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read playback state: %w", err)
	}
	return state, "http", nil
}

// awaitState connects and runs the loop until the first state arrives. The caller closes the returned session.
func (r *Runner) awaitState(ctx context.Context, timeout time.Duration) (*session.Session, error) {
	var received bool
	s, err := r.openSession(ctx, session.Options{
		Observer: func(event string) {
			if event == session.EventState {
				received = true
			}
		},
	})
	if err != nil {
		return s, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.RunUntil(waitCtx, func() bool { return received }); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return s, fmt.Errorf("%w: device sent no state within %s", shared.ErrTimeout, timeout)
		}
		return s, err
	}
	return s, nil
}

// sendCommand connects, runs fn on the session and waits for the command to be written.
func (r *Runner) sendCommand(ctx context.Context, name string, fn func(*session.Session) error) error {
	s, err := r.openSession(ctx, session.Options{})
	defer r.closeSession(s)
	if err != nil {
		return err
	}

	if err := fn(s); err != nil {
		return fmt.Errorf("failed to send %s: %w", name, err)
	}
	r.logger.Debug("command sent", "command", name)
	return r.writePlain("✓ %s\n", name)
}

// Toggle flips play/pause.
func (r *Runner) Toggle(ctx context.Context, cmd *cli.Command) error {
	return r.sendCommand(ctx, models.TypeToggle, (*session.Session).Toggle)
}

// Next skips forward.
func (r *Runner) Next(ctx context.Context, cmd *cli.Command) error {
	return r.sendCommand(ctx, models.TypeNext, (*session.Session).Next)
}

// Previous skips back.
func (r *Runner) Previous(ctx context.Context, cmd *cli.Command) error {
	return r.sendCommand(ctx, models.TypePrevious, (*session.Session).Previous)
}

// Seek moves playback to the given position.
//
// The track length is needed to clamp the position, so the command waits for a state push first and asks the
// state endpoint when none arrives.
func (r *Runner) Seek(ctx context.Context, cmd *cli.Command) error {
	arg := cmd.StringArg("time")
	if arg == "" {
		return fmt.Errorf("%w: seek needs a position such as 1:30", shared.ErrMissingArgument)
	}

	seconds, err := timecode.Parse(arg)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	s, err := r.awaitState(ctx, cmd.Duration("timeout"))
	defer r.closeSession(s)
	if err != nil {
		if !s.Router.Connected() || errors.Is(err, context.Canceled) {
			return err
		}
		r.logger.Warn("no state over websocket, polling the state endpoint", "error", err)
		state, err := r.device.FetchState(ctx)
		if err != nil {
			return fmt.Errorf("failed to read track length: %w", err)
		}
		s.Position.OnServerUpdate(*state)
	}

	if v := s.Position.View(); seconds > v.SliderMax {
		r.logger.Warn("position is past the end of the track", "requested", arg, "duration", v.TotalDisplay)
	}

	if err := s.Seek(seconds); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	return r.writePlain("✓ seek to %s\n", timecode.MustFormat(s.Position.Displayed()))
}

// Watch prints every playback change until interrupted, reconnecting when the device goes away and following
// edits to the config file.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	asJSON := cmd.Bool("json")

	var (
		s    *session.Session
		last models.PlaybackState
		seen bool
	)
	observer := func(event string) {
		switch event {
		case session.EventState:
			state := stateFromView(s.Position.View())
			if seen && state == last {
				return
			}
			seen, last = true, state
			r.printWatchLine(state, asJSON)
		case session.EventRows:
			r.logger.Info("track table updated", "tracks", s.Table.Len())
		}
	}

	s, err := r.openSession(ctx, session.Options{Observer: observer})
	defer r.closeSession(s)
	if err != nil {
		r.logger.Warn("device unavailable, will retry", "error", err)
	}

	go r.keepConnected(ctx, s, cmd.Duration("reconnect"))
	if w := r.watchConfig(ctx, s); w != nil {
		defer w.Close()
	}

	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (r *Runner) printWatchLine(state models.PlaybackState, asJSON bool) {
	if asJSON {
		if err := r.writeJSON(state, false); err != nil {
			r.logger.Warn("failed to print state", "error", err)
		}
		return
	}

	r.writePlain("%s  %s  %s / %s  %s\n",
		time.Now().Format(time.TimeOnly),
		glyphFor(state),
		timecode.MustFormat(state.DurationCurrent),
		timecode.MustFormat(state.Duration),
		state.Name,
	)
}

// keepConnected redials whenever the link is down. The router is safe to use off the loop.
func (r *Runner) keepConnected(ctx context.Context, s *session.Session, every time.Duration) {
	if every <= 0 {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.Router.Connected() {
				continue
			}
			if err := s.Router.Reset(ctx); err != nil {
				r.logger.Debug("reconnect failed", "error", err)
			}
		}
	}
}

// watchConfig reloads the config file on change and applies it on the session loop.
func (r *Runner) watchConfig(ctx context.Context, s *session.Session) *shared.ConfigWatcher {
	if r.configPath == "" {
		return nil
	}

	w, err := shared.NewConfigWatcher(r.configPath)
	if err != nil {
		r.logger.Debug("not watching config", "path", r.configPath, "error", err)
		return nil
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.Changes():
				cfg, err := shared.LoadConfig(r.configPath)
				if err != nil {
					r.logger.Warn("ignoring invalid config change", "error", err)
					continue
				}
				s.Post(func() {
					if lvl, err := shared.ParseLogLevel(cfg.Log.Level); err == nil {
						shared.SetLogLevel(r.logger, lvl)
					}
					if err := s.ApplyConfig(ctx, cfg); err != nil {
						r.logger.Warn("failed to apply config", "error", err)
					}
				})
			}
		}
	}()
	return w
}
