package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"songlift/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgress MsgKind = iota
	MsgRunComplete
)

// progressMsg is the constructor for [MsgProgress]
func progressMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgress, data: update}
}

// runCompleteMsg is the constructor for [MsgRunComplete]
func runCompleteMsg(result *tasks.PipelineResult, err error) Msg {
	return Msg{
		kind: MsgRunComplete,
		data: struct {
			result *tasks.PipelineResult
			err    error
		}{result, err},
	}
}
