// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a small workflow around the queue pipeline:
//  1. [PlaylistListView] : Browse the authenticated user's Spotify playlists
//  2. [QueueRunView] : Run the tempo-filtered enrichment over saved tracks
//  3. [ResultView] : Display the run report (library size, matches, queued minutes)
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// The queue run executes in a background command so the interface stays responsive.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
