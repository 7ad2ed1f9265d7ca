package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/godctl/internal/models"
	"github.com/desertthunder/godctl/internal/services"
	"github.com/desertthunder/godctl/internal/shared"
	tu "github.com/desertthunder/godctl/internal/testing"
	"github.com/urfave/cli/v3"
)

const wait = 3 * time.Second

// deviceConfig points a default config at dev and keeps the database in a temp dir.
func deviceConfig(t *testing.T, dev *tu.FakeDevice) *shared.Config {
	t.Helper()

	u, err := url.Parse(dev.Server.URL)
	if err != nil {
		t.Fatal(err)
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatal(err)
	}

	config := shared.DefaultConfig()
	config.Device.Host = host
	config.Device.Port, _ = strconv.Atoi(port)
	config.Database.Path = filepath.Join(t.TempDir(), "godctl.db")
	return config
}

func offlineConfig(t *testing.T) *shared.Config {
	config := shared.DefaultConfig()
	config.Device.Host = "127.0.0.1"
	config.Device.Port = 1
	config.Device.DialTimeoutSeconds = 1
	config.Database.Path = filepath.Join(t.TempDir(), "godctl.db")
	return config
}

func newTestRunner(config *shared.Config, device services.Service) (*Runner, *bytes.Buffer) {
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: config,
		Device: device,
		Logger: log.New(&bytes.Buffer{}),
		Output: output,
	})
	return runner, output
}

// run executes args against the runner's command tree in the background.
func run(r *Runner, args ...string) <-chan error {
	app := &cli.Command{Name: "godctl", Commands: r.register()}
	done := make(chan error, 1)
	go func() {
		done <- app.Run(context.Background(), append([]string{"godctl"}, args...))
	}()
	return done
}

func envelope(t *testing.T, typ string, payload any) string {
	t.Helper()
	p, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	frame, err := json.Marshal(models.Envelope{Type: typ, Payload: string(p)})
	if err != nil {
		t.Fatal(err)
	}
	return string(frame)
}

func received(t *testing.T, dev *tu.FakeDevice) models.Envelope {
	t.Helper()
	var env models.Envelope
	if err := json.Unmarshal(tu.Wait(t, dev.Received, wait), &env); err != nil {
		t.Fatalf("device received invalid frame: %v", err)
	}
	return env
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			device := &tu.MockService{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				Device:     device,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.device != device {
				t.Error("expected device to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with nil dependencies uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if _, ok := runner.device.(*services.DeviceService); !ok {
				t.Errorf("expected a device service, got %T", runner.device)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			if names[cmd.Name] {
				t.Errorf("command %q registered twice", cmd.Name)
			}
			names[cmd.Name] = true
		}

		for _, want := range []string{
			"tui", "watch", "state", "toggle", "next", "previous", "seek",
			"learn", "tracks", "history", "setup", "config",
		} {
			if !names[want] {
				t.Errorf("expected %q to be registered", want)
			}
		}
	})
}

func TestPlaybackCommands(t *testing.T) {
	t.Run("Simple Commands Reach The Device", func(t *testing.T) {
		for _, tc := range []struct {
			command string
			want    string
		}{
			{"toggle", models.TypeToggle},
			{"next", models.TypeNext},
			{"previous", models.TypePrevious},
			{"prev", models.TypePrevious},
		} {
			t.Run(tc.command, func(t *testing.T) {
				dev := tu.NewFakeDevice(t)
				runner, output := newTestRunner(deviceConfig(t, dev), &tu.MockService{})

				if err := tu.Wait(t, run(runner, tc.command), wait); err != nil {
					t.Fatalf("expected no error, got %v", err)
				}

				env := received(t, dev)
				if env.Type != tc.want || env.Payload != "" {
					t.Errorf("expected %s with empty payload, got %+v", tc.want, env)
				}
				if !strings.Contains(output.String(), "✓ "+tc.want) {
					t.Errorf("expected confirmation, got %q", output.String())
				}
			})
		}
	})

	t.Run("Commands Fail Offline", func(t *testing.T) {
		runner, _ := newTestRunner(offlineConfig(t), &tu.MockService{})

		err := tu.Wait(t, run(runner, "toggle"), wait)
		if !errors.Is(err, shared.ErrTransport) {
			t.Errorf("expected ErrTransport, got %v", err)
		}
	})

	t.Run("State From Websocket", func(t *testing.T) {
		dev := tu.NewFakeDevice(t)
		runner, output := newTestRunner(deviceConfig(t, dev), &tu.MockService{})

		done := run(runner, "state")
		tu.Wait(t, dev.Connected, wait)
		dev.Send(t, envelope(t, models.TypeState, models.PlaybackState{
			Name: "Chapter 1", Duration: 3725, DurationCurrent: 62, IsPlaying: true,
		}))

		if err := tu.Wait(t, done, wait); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		result := output.String()
		for _, want := range []string{"Chapter 1", "01:02 / 01:02:05", "⏸", "source: websocket"} {
			if !strings.Contains(result, want) {
				t.Errorf("expected %q in output:\n%s", want, result)
			}
		}
	})

	t.Run("State Falls Back To HTTP", func(t *testing.T) {
		device := &tu.MockService{State: &models.PlaybackState{Name: "Polled", Duration: 100, DurationCurrent: 10}}
		runner, output := newTestRunner(offlineConfig(t), device)

		if err := tu.Wait(t, run(runner, "state", "--json"), wait); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var got stateOutput
		if err := json.Unmarshal(output.Bytes(), &got); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", output.String(), err)
		}
		if got.Name != "Polled" || got.Source != "http" || got.DurationCurrent != 10 {
			t.Errorf("unexpected state %+v", got)
		}
	})

	t.Run("State Reports Idle Device", func(t *testing.T) {
		runner, _ := newTestRunner(offlineConfig(t), &tu.MockService{})

		err := tu.Wait(t, run(runner, "state"), wait)
		if !errors.Is(err, shared.ErrNoTrack) {
			t.Errorf("expected ErrNoTrack, got %v", err)
		}
	})

	t.Run("Seek", func(t *testing.T) {
		dev := tu.NewFakeDevice(t)
		runner, output := newTestRunner(deviceConfig(t, dev), &tu.MockService{})

		done := run(runner, "seek", "1:30")
		tu.Wait(t, dev.Connected, wait)
		dev.Send(t, envelope(t, models.TypeState, models.PlaybackState{Name: "Song", Duration: 300, DurationCurrent: 12}))

		if err := tu.Wait(t, done, wait); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		env := received(t, dev)
		if env.Type != models.TypeSlide || env.Payload != "90" {
			t.Errorf("expected slide 90, got %+v", env)
		}
		if !strings.Contains(output.String(), "seek to 01:30") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("Seek Clamps To Track Length", func(t *testing.T) {
		dev := tu.NewFakeDevice(t)
		runner, _ := newTestRunner(deviceConfig(t, dev), &tu.MockService{})

		done := run(runner, "seek", "10:00")
		tu.Wait(t, dev.Connected, wait)
		dev.Send(t, envelope(t, models.TypeState, models.PlaybackState{Duration: 200}))

		if err := tu.Wait(t, done, wait); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if env := received(t, dev); env.Payload != "200" {
			t.Errorf("expected slide to the end of the track, got %+v", env)
		}
	})

	t.Run("Seek Rejects Bad Input", func(t *testing.T) {
		runner, _ := newTestRunner(offlineConfig(t), &tu.MockService{})

		for _, args := range [][]string{{"seek"}, {"seek", "1:x"}, {"seek", "1::30"}} {
			err := tu.Wait(t, run(runner, args...), wait)
			if !errors.Is(err, shared.ErrMissingArgument) && !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("%v: expected an argument error, got %v", args, err)
			}
		}
	})
}

func TestTracksCommand(t *testing.T) {
	rows := []models.TrackRow{
		{Path: "books/dune/01.mp3", Name: "Part 1", DirName: "books/dune", DurationSeconds: 1800},
		{Path: "music/a.mp3", DirName: "music", DurationSeconds: 185, TagID: "04AA"},
	}

	t.Run("Prints CSV", func(t *testing.T) {
		dev := tu.NewFakeDevice(t)
		runner, output := newTestRunner(deviceConfig(t, dev), &tu.MockService{})

		done := run(runner, "tracks", "--format", "csv")
		tu.Wait(t, dev.Connected, wait)
		dev.Send(t, envelope(t, models.TypeRows, rows))

		if err := tu.Wait(t, done, wait); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		result := output.String()
		for _, want := range []string{"Group,Path,Name,Position,Duration,Tag", "books/dune,books/dune/01.mp3,Part 1", "04AA"} {
			if !strings.Contains(result, want) {
				t.Errorf("expected %q in output:\n%s", want, result)
			}
		}
	})

	t.Run("Writes File", func(t *testing.T) {
		dev := tu.NewFakeDevice(t)
		runner, _ := newTestRunner(deviceConfig(t, dev), &tu.MockService{})
		path := filepath.Join(t.TempDir(), "tracks.md")

		done := run(runner, "tracks", "-f", "md", "-o", path)
		tu.Wait(t, dev.Connected, wait)
		dev.Send(t, envelope(t, models.TypeRows, rows))

		if err := tu.Wait(t, done, wait); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "music") {
			t.Errorf("expected markdown export, got %q", content)
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		dev := tu.NewFakeDevice(t)
		runner, _ := newTestRunner(deviceConfig(t, dev), &tu.MockService{})

		done := run(runner, "tracks", "--format", "xml")
		tu.Wait(t, dev.Connected, wait)
		dev.Send(t, envelope(t, models.TypeRows, rows))

		if err := tu.Wait(t, done, wait); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestLearnCommand(t *testing.T) {
	t.Run("Succeeds And Records History", func(t *testing.T) {
		dev := tu.NewFakeDevice(t)
		config := deviceConfig(t, dev)
		runner, output := newTestRunner(config, &tu.MockService{})

		done := run(runner, "learn", "music/a.mp3")
		tu.Wait(t, dev.Connected, wait)

		env := received(t, dev)
		if env.Type != models.TypeLearn || env.Payload != "music/a.mp3" {
			t.Fatalf("expected learn request, got %+v", env)
		}
		dev.Send(t, envelope(t, models.TypeLearned, models.LearnAck{Path: "music/a.mp3", TagID: "04A1B2"}))

		if err := tu.Wait(t, done, wait); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "✓ learned 04A1B2 for music/a.mp3") {
			t.Errorf("unexpected output %q", output.String())
		}

		history, historyOutput := newTestRunner(config, &tu.MockService{})
		if err := tu.Wait(t, run(history, "history", "--json"), wait); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var entries []historyEntry
		if err := json.Unmarshal(historyOutput.Bytes(), &entries); err != nil {
			t.Fatalf("expected JSON history, got %q: %v", historyOutput.String(), err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		if entries[0].Outcome != models.OutcomeSucceeded || entries[0].TagID != "04A1B2" || entries[0].Path != "music/a.mp3" {
			t.Errorf("unexpected entry %+v", entries[0])
		}
	})

	t.Run("Expires", func(t *testing.T) {
		dev := tu.NewFakeDevice(t)
		config := deviceConfig(t, dev)
		config.Enroll.TimeoutSeconds = 1
		runner, _ := newTestRunner(config, &tu.MockService{})

		done := run(runner, "learn", "music/b.mp3")
		received(t, dev)

		if err := tu.Wait(t, done, wait); !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}

		history, historyOutput := newTestRunner(config, &tu.MockService{})
		if err := tu.Wait(t, run(history, "history", "--outcome", "expired"), wait); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(historyOutput.String(), "music/b.mp3") {
			t.Errorf("expected expired enrollment in history:\n%s", historyOutput.String())
		}
	})

	t.Run("Requires Path", func(t *testing.T) {
		runner, _ := newTestRunner(offlineConfig(t), &tu.MockService{})

		if err := tu.Wait(t, run(runner, "learn"), wait); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestHistoryCommand(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		runner, output := newTestRunner(offlineConfig(t), &tu.MockService{})

		if err := tu.Wait(t, run(runner, "history"), wait); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "no enrollments recorded") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("Rejects Unknown Outcome", func(t *testing.T) {
		runner, _ := newTestRunner(offlineConfig(t), &tu.MockService{})

		err := tu.Wait(t, run(runner, "history", "--outcome", "lost"), wait)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("Database", func(t *testing.T) {
		config := offlineConfig(t)
		runner, output := newTestRunner(config, &tu.MockService{})

		if err := tu.Wait(t, run(runner, "setup", "database"), wait); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, config.Database.Path)

		if err := tu.Wait(t, run(runner, "setup", "database", "--rollback"), wait); err != nil {
			t.Fatalf("expected rollback to succeed, got %v", err)
		}
		if !strings.Contains(output.String(), "rolled back") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("Config Init", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		runner := NewRunner(RunnerOpts{ConfigPath: path, Output: &bytes.Buffer{}, Logger: log.New(&bytes.Buffer{})})

		if err := tu.Wait(t, run(runner, "config", "init"), wait); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := shared.LoadConfig(path); err != nil {
			t.Errorf("expected a loadable config, got %v", err)
		}

		if err := tu.Wait(t, run(runner, "config", "init"), wait); err == nil {
			t.Error("expected an error when the file exists")
		}
	})

	t.Run("Config Show", func(t *testing.T) {
		runner, output := newTestRunner(shared.DefaultConfig(), &tu.MockService{})

		if err := tu.Wait(t, run(runner, "config", "show"), wait); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, want := range []string{"[device]", "timeout_seconds = 10"} {
			if !strings.Contains(output.String(), want) {
				t.Errorf("expected %q in output:\n%s", want, output.String())
			}
		}
	})

	t.Run("Assets", func(t *testing.T) {
		dir := t.TempDir()
		device := &tu.MockService{Assets: map[string][]byte{
			services.PlayGlyphPath:  []byte("<svg>play</svg>"),
			services.PauseGlyphPath: []byte("<svg>pause</svg>"),
		}}
		runner, _ := newTestRunner(offlineConfig(t), device)

		if err := tu.Wait(t, run(runner, "assets", "-o", dir), wait); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := tu.MustReadFile(t, filepath.Join(dir, "pause.svg")); got != "<svg>pause</svg>" {
			t.Errorf("unexpected pause icon %q", got)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "play.svg"))
	})

	t.Run("Assets Unavailable", func(t *testing.T) {
		runner, _ := newTestRunner(offlineConfig(t), &tu.MockService{})

		err := tu.Wait(t, run(runner, "assets", "-o", t.TempDir()), wait)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}
