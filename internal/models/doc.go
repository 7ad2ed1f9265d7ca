// Package models defines domain entities and persistence interfaces for the godctl control panel.
//
// The package contains two categories of types:
//
// 1. Wire types: values exchanged with the playback device
//   - [Envelope] : The {type, payload} frame used in both directions
//   - [PlaybackState] : Authoritative playback snapshot pushed by the device
//   - [TrackRow] : One entry of the device's track table
//   - [Command] : Outbound request built by the control panel
//   - [LearnAck] : Device confirmation that a tag was associated with a track
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Enrollment] : Outcome of a single tag enrollment request
//
// Persistent entities implement [Record] and are stored through a [Repository].
package models
