// Package ui implements the terminal control panel using bubbletea's Elm architecture.
//
// The panel shows, top to bottom:
//  1. Connection status and the device address
//  2. Track title, play/pause glyph, position and a progress bar
//  3. The enrollment countdown while a learn request is pending
//  4. The track table, grouped by directory with expandable headers
//  5. Contextual help via charmbracelet/bubbles/help
//
// The bubbletea program loop is the only goroutine that touches the session models.
// Inbound socket frames, enrollment ticks and config reloads all arrive as messages.
// Ticks carry a generation id so a tick scheduled for a superseded request is ignored.
package ui
