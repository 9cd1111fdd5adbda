package handler

import (
	"fmt"
	"strings"

	"github.com/choukh/agda-mode-vscode/internal/dispatcher"
	"github.com/choukh/agda-mode-vscode/internal/model"
)

// Goal translates one goal-manipulation action into tasks. The mutation
// itself rides a WithState task so that it runs serialized on the blocking
// lane; the executor routes a Goal's tasks ahead of the work already
// queued there.
func (h *Default) Goal(a model.GoalAction) []dispatcher.Task {
	switch a.Kind {
	case model.GoalUpdateIndices:
		indices := a.Indices
		return []dispatcher.Task{
			withGoalStore(func(gs GoalStore) { gs.SetGoalIndices("", indices) }),
			dispatcher.Debug{Message: fmt.Sprintf("%d interaction point(s)", len(indices))},
		}

	case model.GoalGive:
		return []dispatcher.Task{
			withGoalStore(func(gs GoalStore) { gs.UpdateGoal("", a.GoalIndex, a.Content) }),
			dispatcher.ViewReq{Request: model.ViewRequest{
				Kind:   model.ViewDisplay,
				Header: "Give",
				Body:   fmt.Sprintf("?%d ≔ %s", a.GoalIndex, a.Content),
			}},
		}

	case model.GoalCase:
		clauses := strings.Join(a.Clauses, "\n")
		return []dispatcher.Task{
			withGoalStore(func(gs GoalStore) { gs.UpdateGoal("", a.GoalIndex, clauses) }),
			dispatcher.ViewReq{Request: model.ViewRequest{
				Kind:   model.ViewDisplay,
				Header: "Case split",
				Body:   clauses,
			}},
		}

	case model.GoalSolve:
		return []dispatcher.Task{
			withGoalStore(func(gs GoalStore) { gs.UpdateGoal("", a.GoalIndex, a.Content) }),
		}

	default:
		return []dispatcher.Task{dispatcher.Debug{Message: "unhandled goal action " + string(a.Kind)}}
	}
}
