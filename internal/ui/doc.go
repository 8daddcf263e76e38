// Package ui implements a terminal progress display using bubbletea's Elm architecture.
//
// The [Model] renders one pipeline run: a spinner for open-ended phases
// (opening the profile, waiting for authorization), a progress bar for
// counted ones (video visits, classification, track searches), and a
// summary with the playlist link once the run completes.
//
// The model implements bubbletea/Elm's standard Init/Update/View pattern,
// receiving messages via the Msg union type. Progress updates flow through
// a channel from the pipeline, providing non-blocking status reporting.
package ui
