package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// tickScheduler drives enrollment ticks with [tea.Tick]. Each Every call starts a new generation;
// ticks from older generations are dropped.
type tickScheduler struct {
	gen      int
	interval time.Duration
	fn       func()
	active   bool
	pending  bool
}

func (s *tickScheduler) Every(d time.Duration, fn func()) func() {
	s.gen++
	gen := s.gen
	s.interval = d
	s.fn = fn
	s.active = true
	s.pending = true

	return func() {
		if s.gen == gen {
			s.active = false
			s.pending = false
		}
	}
}

// cmd returns the tick command owed since the last call, if any.
func (s *tickScheduler) cmd() tea.Cmd {
	if !s.pending {
		return nil
	}
	s.pending = false
	gen := s.gen
	return tea.Tick(s.interval, func(time.Time) tea.Msg { return tickMsg(gen) })
}

// fire runs the callback for gen and schedules the next tick while the generation is current.
func (s *tickScheduler) fire(gen int) tea.Cmd {
	if gen != s.gen || !s.active {
		return nil
	}
	s.fn()
	if gen == s.gen && s.active {
		s.pending = true
	}
	return s.cmd()
}

// countdown is the enrollment indicator rendered by the panel.
type countdown struct {
	remaining int
	visible   bool
}

func (c *countdown) Show(remaining int) {
	c.remaining = remaining
	c.visible = true
}

func (c *countdown) Hide() {
	c.visible = false
}
