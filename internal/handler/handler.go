// Package handler supplies the default translation of editor commands,
// Agda responses, errors, and goal actions into dispatcher task lists.
// Handlers are pure: they only build tasks, every side effect happens when
// the dispatcher executes them.
package handler

import (
	"context"

	"github.com/choukh/agda-mode-vscode/internal/dispatcher"
	"github.com/choukh/agda-mode-vscode/internal/model"
)

// GoalStore is the slice of session state the handlers mutate through
// WithState tasks.
type GoalStore interface {
	SetGoalIndices(filePath string, indices []int)
	UpdateGoal(filePath string, index int, content string)
}

// Default implements dispatcher.Handler.
type Default struct{}

// NewDefault returns the stock handler set.
func NewDefault() *Default {
	return &Default{}
}

var _ dispatcher.Handler = (*Default)(nil)

// Error formats an error for the view and records it.
func (h *Default) Error(err error) []dispatcher.Task {
	return []dispatcher.Task{
		dispatcher.ViewReq{Request: model.ViewRequest{
			Kind:   model.ViewDisplay,
			Header: "Error",
			Body:   err.Error(),
		}},
		dispatcher.Debug{Message: "error: " + err.Error()},
	}
}

// withGoalStore wraps a GoalStore mutation in a WithState task. Sessions
// that do not expose goal state make it a no-op.
func withGoalStore(fn func(GoalStore)) dispatcher.Task {
	return dispatcher.WithState{Callback: func(_ context.Context, st dispatcher.State) ([]dispatcher.Task, error) {
		if gs, ok := st.(GoalStore); ok {
			fn(gs)
		}
		return nil, nil
	}}
}
