// package services defines interface Service for reading device state over HTTP
package services

import (
	"context"

	"github.com/desertthunder/godctl/internal/models"
)

// Service defines the HTTP surface of the playback device.
type Service interface {
	// FetchState returns the current playback state.
	// Returns [shared.ErrNoTrack] when nothing is loaded.
	FetchState(ctx context.Context) (*models.PlaybackState, error)

	// FetchAsset returns the raw bytes of a static asset.
	FetchAsset(ctx context.Context, path string) ([]byte, error)
}
