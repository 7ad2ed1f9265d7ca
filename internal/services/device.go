package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/godctl/internal/models"
	"github.com/desertthunder/godctl/internal/playback"
	"github.com/desertthunder/godctl/internal/shared"
)

// Asset paths served by the device.
const (
	PlayGlyphPath  = "/img/play.svg"
	PauseGlyphPath = "/img/pause.svg"
)

// DeviceService implements [Service] on top of [APIService].
type DeviceService struct {
	api       *APIService
	statePath string
	logger    *log.Logger
}

// NewDeviceService creates a service for the device described by cfg.
func NewDeviceService(cfg *shared.Config, client *http.Client, logger *log.Logger) *DeviceService {
	return &DeviceService{
		api:       NewAPIService(cfg.BaseURL(), client),
		statePath: cfg.StatePath(),
		logger:    logger,
	}
}

// FetchState polls the legacy state endpoint.
func (d *DeviceService) FetchState(ctx context.Context) (*models.PlaybackState, error) {
	resp, err := d.api.Get(ctx, d.statePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: GET %s returned %d", shared.ErrAPIRequest, d.statePath, resp.StatusCode)
	}

	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, shared.ErrNoTrack
	}

	var state models.PlaybackState
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("%w: state: %v", shared.ErrMalformedPayload, err)
	}

	clamped := state.Clamp()
	return &clamped, nil
}

// FetchAsset downloads a static asset.
func (d *DeviceService) FetchAsset(ctx context.Context, path string) ([]byte, error) {
	resp, err := d.api.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: GET %s returned %d", shared.ErrAPIRequest, path, resp.StatusCode)
	}
	return resp.Body, nil
}

// Glyphs holds the toggle icons. Text symbols stand in until the device assets are loaded.
type Glyphs struct {
	assets map[playback.Glyph][]byte
}

// DefaultGlyphs returns text-only glyphs.
func DefaultGlyphs() *Glyphs {
	return &Glyphs{assets: make(map[playback.Glyph][]byte)}
}

// LoadGlyphs fetches both icons. A failed fetch leaves that glyph on its text fallback.
func LoadGlyphs(ctx context.Context, svc Service, logger *log.Logger) *Glyphs {
	g := DefaultGlyphs()
	for glyph, p := range map[playback.Glyph]string{playback.GlyphPlay: PlayGlyphPath, playback.GlyphPause: PauseGlyphPath} {
		data, err := svc.FetchAsset(ctx, p)
		if err != nil {
			logger.Warn("using text glyph", "glyph", glyph, "error", err)
			continue
		}
		g.assets[glyph] = data
	}
	return g
}

// Symbol returns the text form of glyph.
func (g *Glyphs) Symbol(glyph playback.Glyph) string {
	if glyph == playback.GlyphPause {
		return "⏸"
	}
	return "▶"
}

// Asset returns the device's markup for glyph, if it was loaded.
func (g *Glyphs) Asset(glyph playback.Glyph) ([]byte, bool) {
	if g == nil {
		return nil, false
	}
	data, ok := g.assets[glyph]
	return data, ok
}

// Loaded reports whether both device icons are available.
func (g *Glyphs) Loaded() bool {
	return g != nil && len(g.assets) == 2
}
