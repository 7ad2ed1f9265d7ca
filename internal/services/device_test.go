package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/godctl/internal/playback"
	"github.com/desertthunder/godctl/internal/shared"
)

// newDevice starts a server answering /state with state and serving the given assets.
func newDevice(t *testing.T, state string, status int, assets map[string]string) *DeviceService {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(state))
	})
	for p, body := range assets {
		mux.HandleFunc(p, func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(body)) })
	}

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	host, port, err := net.SplitHostPort(server.Listener.Addr().String())
	if err != nil {
		t.Fatalf("failed to split address: %v", err)
	}
	cfg := shared.DefaultConfig()
	cfg.Device.Host = host
	cfg.Device.Port, _ = strconv.Atoi(port)

	return NewDeviceService(cfg, nil, log.New(io.Discard))
}

func TestDeviceService(t *testing.T) {
	t.Run("FetchState", func(t *testing.T) {
		svc := newDevice(t, `{"is_playing":true,"name":"Song","position":1,"length":2,"duration":125,"duration_current":400}`, http.StatusOK, nil)

		state, err := svc.FetchState(context.Background())
		if err != nil {
			t.Fatalf("FetchState() error = %v", err)
		}
		if state.Name != "Song" || !state.IsPlaying {
			t.Errorf("unexpected state: %+v", state)
		}
		if state.DurationCurrent != 125 {
			t.Errorf("expected position clamped to duration, got %d", state.DurationCurrent)
		}
	})

	t.Run("FetchState Errors", func(t *testing.T) {
		tests := []struct {
			name    string
			body    string
			status  int
			wantErr error
		}{
			{"Nothing Loaded", "null", http.StatusOK, shared.ErrNoTrack},
			{"Empty Body", "", http.StatusOK, shared.ErrNoTrack},
			{"Malformed", "{", http.StatusOK, shared.ErrMalformedPayload},
			{"Server Error", "", http.StatusInternalServerError, shared.ErrAPIRequest},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc := newDevice(t, tt.body, tt.status, nil)
				if _, err := svc.FetchState(context.Background()); !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
			})
		}
	})

	t.Run("Unreachable", func(t *testing.T) {
		cfg := shared.DefaultConfig()
		cfg.Device.Port = 1
		svc := NewDeviceService(cfg, nil, log.New(io.Discard))
		if _, err := svc.FetchState(context.Background()); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestGlyphs(t *testing.T) {
	t.Run("Loaded", func(t *testing.T) {
		svc := newDevice(t, "null", http.StatusOK, map[string]string{
			PlayGlyphPath:  "<svg>play</svg>",
			PauseGlyphPath: "<svg>pause</svg>",
		})

		g := LoadGlyphs(context.Background(), svc, log.New(io.Discard))
		if !g.Loaded() {
			t.Fatal("expected both glyphs loaded")
		}
		if data, ok := g.Asset(playback.GlyphPause); !ok || string(data) != "<svg>pause</svg>" {
			t.Errorf("unexpected pause asset: %q", data)
		}
	})

	t.Run("Fallback", func(t *testing.T) {
		svc := newDevice(t, "null", http.StatusOK, map[string]string{PlayGlyphPath: "<svg>play</svg>"})

		g := LoadGlyphs(context.Background(), svc, log.New(io.Discard))
		if g.Loaded() {
			t.Error("pause glyph should have fallen back")
		}
		if _, ok := g.Asset(playback.GlyphPause); ok {
			t.Error("missing asset reported as loaded")
		}
		if g.Symbol(playback.GlyphPause) != "⏸" || g.Symbol(playback.GlyphPlay) != "▶" {
			t.Error("unexpected text glyphs")
		}
	})

	t.Run("Nil Glyphs", func(t *testing.T) {
		var g *Glyphs
		if g.Loaded() {
			t.Error("nil glyphs cannot be loaded")
		}
		if _, ok := g.Asset(playback.GlyphPlay); ok {
			t.Error("nil glyphs have no assets")
		}
	})
}
