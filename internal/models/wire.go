package models

import (
	"encoding/json"
	"path"
	"strconv"
	"strings"
)

// Message types carried in [Envelope.Type].
const (
	TypeState   = "state"
	TypeRows    = "rows"
	TypeLearned = "learned"

	TypeToggle   = "toggle"
	TypeNext     = "next"
	TypePrevious = "previous"
	TypeSlide    = "slide"
	TypeLearn    = "rfidtracklearn"
)

// Envelope is the frame shape in both directions. Payload is always a string;
// structured payloads are JSON encoded into it.
type Envelope struct {
	Type    string `json:"type"`
	Payload string `json:"payload"`
}

// PlaybackState is the device's view of the current track.
//
// Position and Length are byte offsets into the audio source and are carried
// as received. The control panel works in seconds.
type PlaybackState struct {
	Name            string `json:"name"`
	Duration        int64  `json:"duration"`
	DurationCurrent int64  `json:"duration_current"`
	IsPlaying       bool   `json:"is_playing"`
	Position        int64  `json:"position"`
	Length          int64  `json:"length"`
}

// Clamp returns a copy with Duration non-negative and DurationCurrent within [0, Duration].
func (s PlaybackState) Clamp() PlaybackState {
	s.Duration = max(s.Duration, 0)
	s.DurationCurrent = min(max(s.DurationCurrent, 0), s.Duration)
	return s
}

// TrackRow is one entry of the track table, keyed by Path.
type TrackRow struct {
	Path            string `json:"path"`
	Name            string `json:"name"`
	DirName         string `json:"dirname"`
	CurrentSeconds  int64  `json:"current_seconds"`
	DurationSeconds int64  `json:"duration_seconds"`
	TagID           string `json:"tag_id,omitempty"`

	// View state, never sent by the device.
	Visible  bool `json:"-"`
	Attached bool `json:"-"`
}

// DisplayName returns Name, or the base of Path without its extension when the device omitted it.
func (r TrackRow) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	base := path.Base(r.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

// LearnAck confirms that the device associated TagID with the track at Path.
type LearnAck struct {
	Path  string `json:"path"`
	TagID string `json:"tag_id"`
}

// ParseLearnAck accepts either a JSON object or a bare path.
func ParseLearnAck(payload string) LearnAck {
	trimmed := strings.TrimSpace(payload)
	if strings.HasPrefix(trimmed, "{") {
		var ack LearnAck
		if err := json.Unmarshal([]byte(trimmed), &ack); err == nil {
			return ack
		}
	}
	return LearnAck{Path: trimmed}
}

// Command is an outbound request for the device.
type Command struct {
	Type    string
	Payload string
}

// Envelope wraps the command in its wire frame.
func (c Command) Envelope() Envelope {
	return Envelope{Type: c.Type, Payload: c.Payload}
}

func (c Command) String() string {
	if c.Payload == "" {
		return c.Type
	}
	return c.Type + " " + c.Payload
}

func ToggleCommand() Command   { return Command{Type: TypeToggle} }
func NextCommand() Command     { return Command{Type: TypeNext} }
func PreviousCommand() Command { return Command{Type: TypePrevious} }

// SlideCommand asks the device to seek to seconds.
func SlideCommand(seconds int64) Command {
	return Command{Type: TypeSlide, Payload: strconv.FormatInt(seconds, 10)}
}

// LearnCommand asks the device to associate the next scanned tag with the track at path.
func LearnCommand(path string) Command {
	return Command{Type: TypeLearn, Payload: path}
}
