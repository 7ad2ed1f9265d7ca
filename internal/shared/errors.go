package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Transport errors
	ErrNotConnected = fmt.Errorf("not connected to device")
	ErrTransport    = fmt.Errorf("transport error")
	ErrTimeout      = fmt.Errorf("operation timed out")

	// Message errors
	ErrMalformedPayload = fmt.Errorf("malformed payload")
	ErrUnknownMessage   = fmt.Errorf("unknown message type")

	// Device and API errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNoTrack            = fmt.Errorf("device reports no current track")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
