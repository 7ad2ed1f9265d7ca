// Package playback arbitrates the displayed playback position between
// authoritative device pushes and in-progress user seeks.
//
// The model has two states. UNLOCKED follows the device; LOCKED follows the
// user, who owns the displayed position until the drag ends or is cancelled.
// Title, duration and the playing flag always follow the device.
//
// A PositionModel is not safe for concurrent use. It is driven from a single
// event loop.
package playback

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/godctl/internal/models"
	"github.com/desertthunder/godctl/internal/timecode"
)

// Emitter delivers outbound commands to the device.
type Emitter interface {
	Emit(cmd models.Command) error
}

// Glyph names the toggle icon to show.
type Glyph string

const (
	GlyphPlay  Glyph = "play"
	GlyphPause Glyph = "pause"
)

// View is a snapshot of everything the panel renders for playback.
type View struct {
	Title          string
	TotalDisplay   string
	CurrentDisplay string
	SliderMax      int64
	SliderValue    int64
	Playing        bool
	Locked         bool
	Glyph          Glyph
}

// PositionModel holds the last authoritative state and the edit lock.
type PositionModel struct {
	emitter Emitter
	logger  *log.Logger

	title     string
	duration  int64
	current   int64 // last authoritative position
	displayed int64
	playing   bool
	locked    bool
}

// NewPositionModel creates an unlocked model with no track.
func NewPositionModel(emitter Emitter, logger *log.Logger) *PositionModel {
	return &PositionModel{emitter: emitter, logger: logger}
}

// OnServerUpdate applies an authoritative state. The displayed position only moves while unlocked.
func (m *PositionModel) OnServerUpdate(state models.PlaybackState) {
	state = state.Clamp()

	m.title = state.Name
	m.duration = state.Duration
	m.current = state.DurationCurrent
	m.playing = state.IsPlaying

	if !m.locked {
		m.displayed = m.current
		return
	}
	// A shorter track may arrive mid drag.
	m.displayed = min(m.displayed, m.duration)
}

// OnDragStart takes the edit lock. Starting again while locked does nothing.
func (m *PositionModel) OnDragStart() {
	if m.locked {
		return
	}
	m.locked = true
	m.logger.Debug("seek started", "position", m.displayed)
}

// OnDragInput moves the displayed position while locked, clamped to the track.
func (m *PositionModel) OnDragInput(seconds int64) {
	if !m.locked {
		return
	}
	m.displayed = min(max(seconds, 0), m.duration)
}

// Nudge moves the displayed position by delta seconds while locked.
func (m *PositionModel) Nudge(delta int64) {
	m.OnDragInput(m.displayed + delta)
}

// OnDragEnd releases the lock and emits one slide command for the position shown at release.
//
// Calling it without a drag in progress does nothing.
func (m *PositionModel) OnDragEnd() error {
	if !m.locked {
		return nil
	}
	m.locked = false

	display, err := timecode.Format(m.displayed)
	if err != nil {
		return fmt.Errorf("failed to format seek position: %w", err)
	}
	seconds, err := timecode.Parse(display)
	if err != nil {
		return fmt.Errorf("failed to read seek position: %w", err)
	}

	m.logger.Debug("seek committed", "position", display)
	return m.emit(models.SlideCommand(seconds))
}

// OnDragCancel releases the lock and restores the last authoritative position without emitting.
func (m *PositionModel) OnDragCancel() {
	if !m.locked {
		return
	}
	m.locked = false
	m.displayed = m.current
}

// OnToggleRequested emits toggle and flips the local playing flag until the device reports back.
func (m *PositionModel) OnToggleRequested() error {
	m.playing = !m.playing
	return m.emit(models.ToggleCommand())
}

// OnNext asks the device to skip forward.
func (m *PositionModel) OnNext() error {
	return m.emit(models.NextCommand())
}

// OnPrevious asks the device to skip back.
func (m *PositionModel) OnPrevious() error {
	return m.emit(models.PreviousCommand())
}

// Locked reports whether a drag is in progress.
func (m *PositionModel) Locked() bool { return m.locked }

// Displayed returns the position currently shown, in seconds.
func (m *PositionModel) Displayed() int64 { return m.displayed }

// Playing reports the local playing flag.
func (m *PositionModel) Playing() bool { return m.playing }

// View returns a render snapshot.
func (m *PositionModel) View() View {
	glyph := GlyphPlay
	if m.playing {
		glyph = GlyphPause
	}

	return View{
		Title:          m.title,
		TotalDisplay:   timecode.MustFormat(m.duration),
		CurrentDisplay: timecode.MustFormat(m.displayed),
		SliderMax:      m.duration,
		SliderValue:    m.displayed,
		Playing:        m.playing,
		Locked:         m.locked,
		Glyph:          glyph,
	}
}

func (m *PositionModel) emit(cmd models.Command) error {
	if err := m.emitter.Emit(cmd); err != nil {
		m.logger.Warn("failed to send command", "command", cmd.String(), "error", err)
		return fmt.Errorf("failed to send %s: %w", cmd.Type, err)
	}
	return nil
}
