// Package ui implements an interactive terminal browser using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [ReleaseListView] : Browse this week's new releases
//  2. [TrackListView] : The selected album's tracks in provider order
//
// The [Model] owns a [session.Session] and runs every catalog call under the session lock, refreshing the access
// token first when it is within the refresh margin of expiry. A failed refresh keeps the stale token and is shown
// as a warning in the status line rather than ending the program.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, r, q) with contextual help displayed via
// charmbracelet/bubbles/help.
package ui
