// Package services talks to the playback device over plain HTTP.
//
// The websocket carries the live state; HTTP covers what it does not:
//
//   - [APIService] : Raw GET/POST requests against the device
//   - [DeviceService] : The legacy /state endpoint and static assets
//   - [Glyphs] : Play and pause icons with text fallbacks
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAPIRequest] : Non-2xx response
//   - [shared.ErrNoTrack] : /state returned null, nothing is loaded
//   - [shared.ErrMalformedPayload] : Response body could not be decoded
package services
