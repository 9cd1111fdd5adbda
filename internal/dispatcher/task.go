// Package dispatcher implements the two-lane task scheduling engine at the
// heart of agdad. It serializes all work induced by editor commands, the
// Agda response stream, and the view panel, so that at most one
// proof-checker request and at most one prompting view request are in
// flight at any time, while keeping user-interrupt traffic on a lane that
// cannot be starved.
package dispatcher

import (
	"context"
	"fmt"

	"github.com/choukh/agda-mode-vscode/internal/model"
)

// Task is one unit of work popped from a lane by the scheduler. The set of
// variants is closed; each one carries its own payload.
type Task interface {
	isTask()
	fmt.Stringer
}

// DispatchCommand expands an editor command through the command handler
// and enqueues the result on the critical lane.
type DispatchCommand struct {
	Command model.Command
}

// SendRequest issues one proof-checker request. It owns the Agda layer on
// the blocking lane until the response stream terminates.
type SendRequest struct {
	Request model.Request
}

// ViewReq issues a view request. The callback runs once with the panel's
// response; its result is enqueued under the View source. Prompting
// requests gate the blocking lane, all others run on the critical lane.
type ViewReq struct {
	Request  model.ViewRequest
	Callback func(model.ViewResponse) []Task
}

// WithState runs a state-reading or state-mutating callback; the tasks it
// returns are enqueued under the Misc source on the blocking lane.
type WithState struct {
	Callback func(context.Context, State) ([]Task, error)
}

// Terminate destroys the session and stops the lane that executes it.
type Terminate struct{}

// Goal delegates a goal-manipulation action to the goal handler.
type Goal struct {
	Action model.GoalAction
}

// ViewEvent reacts to a view panel lifecycle event.
type ViewEvent struct {
	Event model.ViewEvent
}

// Error routes an error through the error handler.
type Error struct {
	Err error
}

// Debug emits a log line.
type Debug struct {
	Message string
}

func (DispatchCommand) isTask() {}
func (SendRequest) isTask()     {}
func (ViewReq) isTask()         {}
func (WithState) isTask()       {}
func (Terminate) isTask()       {}
func (Goal) isTask()            {}
func (ViewEvent) isTask()       {}
func (Error) isTask()           {}
func (Debug) isTask()           {}

func (t DispatchCommand) String() string { return "DispatchCommand(" + string(t.Command.Kind) + ")" }
func (t SendRequest) String() string     { return "SendRequest(" + string(t.Request.Kind) + ")" }
func (t ViewReq) String() string         { return "ViewReq(" + string(t.Request.Kind) + ")" }
func (WithState) String() string         { return "WithState" }
func (Terminate) String() string         { return "Terminate" }
func (t Goal) String() string            { return "Goal(" + string(t.Action.Kind) + ")" }
func (t ViewEvent) String() string       { return "ViewEvent(" + string(t.Event.Kind) + ")" }
func (t Error) String() string           { return "Error(" + t.Err.Error() + ")" }
func (Debug) String() string             { return "Debug" }
