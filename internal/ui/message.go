package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/godctl/internal/services"
	"github.com/desertthunder/godctl/internal/shared"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgFrame MsgKind = iota
	MsgTick
	MsgConnected
	MsgGlyphs
	MsgConfig
)

// frameMsg is the constructor for [MsgFrame]
func frameMsg(raw []byte) Msg {
	return Msg{kind: MsgFrame, data: raw}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg(gen int) Msg {
	return Msg{kind: MsgTick, data: gen}
}

// connectedMsg is the constructor for [MsgConnected]; err is nil on success.
func connectedMsg(err error) Msg {
	return Msg{kind: MsgConnected, data: err}
}

// glyphsMsg is the constructor for [MsgGlyphs]
func glyphsMsg(g *services.Glyphs) Msg {
	return Msg{kind: MsgGlyphs, data: g}
}

// configMsg is the constructor for [MsgConfig]
func configMsg(cfg *shared.Config, err error) Msg {
	return Msg{
		kind: MsgConfig,
		data: struct {
			cfg *shared.Config
			err error
		}{cfg, err},
	}
}
