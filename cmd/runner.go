package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/godctl/internal/router"
	"github.com/desertthunder/godctl/internal/services"
	"github.com/desertthunder/godctl/internal/session"
	"github.com/desertthunder/godctl/internal/shared"
	"github.com/urfave/cli/v3"
)

// shutdownWait bounds how long a command waits for queued frames to reach the device.
const shutdownWait = 2 * time.Second

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	device     services.Service
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Device     services.Service
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Device == nil {
		opts.Device = services.NewDeviceService(opts.Config, nil, opts.Logger)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		device:     opts.Device,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the logger used by subsequent commands.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		tuiCommand, watchCommand, stateCommand, toggleCommand, nextCommand, previousCommand, seekCommand,
		learnCommand, tracksCommand, historyCommand, assetsCommand, openCommand, setupCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// newRouter builds a router for the configured device without connecting it.
func (r *Runner) newRouter() *router.Router {
	return router.New(
		r.config.WebSocketURL(),
		shared.WithLogger(r.logger, "component", "router"),
		router.WithDialTimeout(r.config.DialTimeout()),
	)
}

// openSession connects a new session to the device. The session is returned even when the dial fails so callers
// can fall back to HTTP.
func (r *Runner) openSession(ctx context.Context, opts session.Options) (*session.Session, error) {
	if opts.EnrollTimeout == 0 {
		opts.EnrollTimeout = r.config.EnrollTimeout()
	}

	s := session.New(r.newRouter(), r.logger, opts)
	if err := s.Router.Connect(ctx); err != nil {
		return s, fmt.Errorf("failed to connect to %s: %w", r.config.DeviceAddr(), err)
	}
	return s, nil
}

// closeSession flushes outstanding commands and disconnects.
func (r *Runner) closeSession(s *session.Session) {
	r.closeRouter(s.Router)
}

func (r *Runner) closeRouter(rt *router.Router) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()

	if err := rt.Shutdown(ctx); err != nil {
		r.logger.Warn("connection did not close cleanly", "error", err)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
