package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/godctl/internal/enroll"
	"github.com/desertthunder/godctl/internal/router"
	"github.com/desertthunder/godctl/internal/services"
	"github.com/desertthunder/godctl/internal/session"
	"github.com/desertthunder/godctl/internal/shared"
)

// seekStep is how far one arrow press moves the seek position, in seconds.
const seekStep = 5

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	cfg        *shared.Config
	configPath string
	session    *session.Session
	device     services.Service
	watcher    *shared.ConfigWatcher
	logger     *log.Logger

	scheduler *tickScheduler
	countdown *countdown
	index     *rowIndex
	glyphs    *services.Glyphs

	width    int
	cursor   int
	status   string
	err      error
	help     help.Model
	keys     keyMap
	progress progress.Model
}

// NewModel creates a new TUI model over r. device and watcher may be nil.
func NewModel(ctx context.Context, cfg *shared.Config, configPath string, r *router.Router, device services.Service,
	recorder enroll.Recorder, watcher *shared.ConfigWatcher, logger *log.Logger) *Model {
	m := &Model{
		ctx:        ctx,
		cfg:        cfg,
		configPath: configPath,
		device:     device,
		watcher:    watcher,
		logger:     logger,
		scheduler:  &tickScheduler{},
		countdown:  &countdown{},
		index:      newRowIndex(),
		glyphs:     services.DefaultGlyphs(),
		help:       help.New(),
		keys:       newKeyMap(),
		progress:   progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}

	m.session = session.New(r, logger, session.Options{
		Scheduler:     m.scheduler,
		Indicator:     m.countdown,
		Recorder:      recorder,
		EnrollTimeout: cfg.EnrollTimeout(),
	})
	return m
}

// Session exposes the underlying session.
func (m *Model) Session() *session.Session { return m.session }

// Init connects to the device and starts listening for frames, glyphs and config changes.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.connect(false), m.waitForFrame(), m.waitForConfig()}
	if m.device != nil && m.cfg.UI.FetchGlyphs {
		cmds = append(cmds, m.loadGlyphs())
	}
	return tea.Batch(cmds...)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.progress.Width = max(msg.Width-4, 10)
		return m, nil

	case tea.KeyMsg:
		cmd := m.handleKeys(msg)
		return m, tea.Batch(cmd, m.scheduler.cmd())

	case Msg:
		return m, m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) tea.Cmd {
	switch msg.kind {
	case MsgFrame:
		if err := m.session.Dispatch(msg.data.([]byte)); err != nil {
			m.status = fmt.Sprintf("dropped %d frame(s)", m.session.Dropped())
		}
		if n := m.index.attach(m.session.Table); n > 0 {
			m.logger.Debug("rows attached to panel", "count", n)
		}
		m.clampCursor()
		return tea.Batch(m.waitForFrame(), m.scheduler.cmd())

	case MsgTick:
		return m.scheduler.fire(msg.data.(int))

	case MsgConnected:
		err, _ := msg.data.(error)
		m.setErr(err)
		if err == nil {
			m.status = "connected to " + m.cfg.DeviceAddr()
		}
		return nil

	case MsgGlyphs:
		m.glyphs = msg.data.(*services.Glyphs)
		return nil

	case MsgConfig:
		data := msg.data.(struct {
			cfg *shared.Config
			err error
		})
		if data.err != nil {
			m.setErr(data.err)
			return m.waitForConfig()
		}
		return tea.Batch(m.applyConfig(data.cfg), m.waitForConfig())
	}
	return nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) tea.Cmd {
	s := m.session
	locked := s.Position.Locked()

	switch {
	case key.Matches(msg, m.keys.quit):
		return tea.Quit

	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.toggle):
		m.setErr(s.Toggle())

	case key.Matches(msg, m.keys.next):
		m.setErr(s.Next())

	case key.Matches(msg, m.keys.previous):
		m.setErr(s.Previous())

	case key.Matches(msg, m.keys.seek):
		s.DragStart()

	case key.Matches(msg, m.keys.back):
		if locked {
			s.Nudge(-seekStep)
		}

	case key.Matches(msg, m.keys.forward):
		if locked {
			s.Nudge(seekStep)
		}

	case key.Matches(msg, m.keys.cancel):
		if locked {
			s.DragCancel()
		}

	case key.Matches(msg, m.keys.enter):
		if locked {
			m.setErr(s.DragEnd())
			break
		}
		if line, ok := m.selected(); ok && line.isGroup() {
			s.ToggleGroup(line.group.DirName)
			m.clampCursor()
		}

	case key.Matches(msg, m.keys.up):
		m.cursor = max(m.cursor-1, 0)

	case key.Matches(msg, m.keys.down):
		m.cursor++
		m.clampCursor()

	case key.Matches(msg, m.keys.learn):
		line, ok := m.selected()
		if !ok || line.isGroup() {
			m.setErr(fmt.Errorf("%w: select a track to learn", shared.ErrInvalidInput))
			break
		}
		m.setErr(s.Learn(line.row.Path))

	case key.Matches(msg, m.keys.dismiss):
		s.Dismiss()

	case key.Matches(msg, m.keys.reset):
		m.status = "reconnecting…"
		return m.connect(true)
	}
	return nil
}

func (m *Model) selected() (tableLine, bool) {
	lines := m.index.lines(m.session.Table)
	if m.cursor < 0 || m.cursor >= len(lines) {
		return tableLine{}, false
	}
	return lines[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.index.lines(m.session.Table))
	m.cursor = min(m.cursor, max(n-1, 0))
}

func (m *Model) setErr(err error) {
	m.err = err
	if err != nil {
		m.logger.Warn("panel action failed", "error", err)
	}
}

func (m *Model) applyConfig(cfg *shared.Config) tea.Cmd {
	m.cfg.Enroll = cfg.Enroll
	m.cfg.UI = cfg.UI
	if lvl, err := shared.ParseLogLevel(cfg.Log.Level); err == nil {
		shared.SetLogLevel(m.logger, lvl)
	}

	url := cfg.WebSocketURL()
	if url == m.session.Router.URL() {
		return nil
	}
	m.cfg.Device = cfg.Device
	m.session.Router.SetURL(url)
	m.status = "device changed, reconnecting to " + cfg.DeviceAddr()
	return m.connect(true)
}

// View renders the panel.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("godctl"))
	b.WriteString("\n")
	b.WriteString(m.renderConnection())
	b.WriteString("\n\n")
	b.WriteString(m.renderPlayback())
	b.WriteString("\n")

	if m.countdown.visible {
		target, _ := m.session.Enroll.Target()
		b.WriteString(styles.warn.Render(fmt.Sprintf("Scan a tag for %s … %ds", target.DisplayName(), m.countdown.remaining)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	learning, _ := m.session.Enroll.Target()
	b.WriteString(renderTable(m.index.lines(m.session.Table), m.cursor, m.width, m.session.Table.IsAnyGroupExpanded(), learning.Path))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(styles.err.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(styles.help.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderConnection() string {
	if m.session.Router.Connected() {
		return styles.ok.Render("● ") + m.cfg.DeviceAddr()
	}
	return styles.err.Render("○ ") + m.cfg.DeviceAddr() + styles.help.Render("  disconnected, press r to reconnect")
}

func (m *Model) renderPlayback() string {
	v := m.session.Position.View()

	title := v.Title
	if title == "" {
		title = styles.help.Render("Nothing playing")
	}

	line := fmt.Sprintf("%s  %s / %s", m.glyphs.Symbol(v.Glyph), v.CurrentDisplay, v.TotalDisplay)
	if v.Locked {
		line += styles.warn.Render("  seeking: ←/→ adjust, enter commit, esc cancel")
	}

	ratio := 0.0
	if v.SliderMax > 0 {
		ratio = float64(v.SliderValue) / float64(v.SliderMax)
	}
	return fmt.Sprintf("%s\n%s\n%s", title, line, m.progress.ViewAs(ratio))
}

func (m *Model) connect(reset bool) tea.Cmd {
	r := m.session.Router
	ctx := m.ctx
	return func() tea.Msg {
		if reset {
			return connectedMsg(r.Reset(ctx))
		}
		return connectedMsg(r.Connect(ctx))
	}
}

func (m *Model) waitForFrame() tea.Cmd {
	inbound := m.session.Router.Inbound()
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case raw := <-inbound:
			return frameMsg(raw)
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Model) waitForConfig() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	changes := m.watcher.Changes()
	path := m.configPath
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			cfg, err := shared.LoadConfig(path)
			return configMsg(cfg, err)
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Model) loadGlyphs() tea.Cmd {
	device := m.device
	ctx := m.ctx
	logger := m.logger
	return func() tea.Msg {
		return glyphsMsg(services.LoadGlyphs(ctx, device, logger))
	}
}

// Err returns the most recent action error, if any.
func (m *Model) Err() error { return m.err }
