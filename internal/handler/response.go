package handler

import (
	"fmt"
	"strings"

	"github.com/choukh/agda-mode-vscode/internal/dispatcher"
	"github.com/choukh/agda-mode-vscode/internal/model"
)

// Response interprets one Agda response frame.
func (h *Default) Response(r model.Response) []dispatcher.Task {
	switch r.Kind {
	case model.RespDisplayInfo:
		if r.Info == nil {
			return []dispatcher.Task{dispatcher.Debug{Message: "DisplayInfo without payload"}}
		}
		if r.Info.Error != "" {
			return []dispatcher.Task{
				dispatcher.Error{Err: fmt.Errorf("%s", r.Info.Error)},
			}
		}
		return []dispatcher.Task{
			dispatcher.ViewReq{Request: model.ViewRequest{
				Kind:   model.ViewDisplay,
				Header: r.Info.Kind,
				Body:   r.Info.Message,
			}},
		}

	case model.RespInteractionPoints:
		return []dispatcher.Task{
			dispatcher.Goal{Action: model.GoalAction{
				Kind:    model.GoalUpdateIndices,
				Indices: r.InteractionPoints,
			}},
		}

	case model.RespGiveAction:
		return []dispatcher.Task{
			dispatcher.Goal{Action: model.GoalAction{
				Kind:      model.GoalGive,
				GoalIndex: r.InteractionPoint,
				Content:   r.GiveResult,
			}},
		}

	case model.RespMakeCase:
		return []dispatcher.Task{
			dispatcher.Goal{Action: model.GoalAction{
				Kind:      model.GoalCase,
				GoalIndex: r.InteractionPoint,
				Clauses:   r.Clauses,
			}},
		}

	case model.RespSolveAll:
		tasks := make([]dispatcher.Task, 0, len(r.Solutions))
		for _, sol := range r.Solutions {
			tasks = append(tasks, dispatcher.Goal{Action: model.GoalAction{
				Kind:      model.GoalSolve,
				GoalIndex: sol.InteractionPoint,
				Content:   sol.Expression,
			}})
		}
		return tasks

	case model.RespRunningInfo:
		return []dispatcher.Task{
			dispatcher.ViewReq{Request: model.ViewRequest{
				Kind:   model.ViewDisplay,
				Header: "Running",
				Body:   strings.TrimSpace(r.Message),
			}},
		}

	case model.RespClearRunningInfo, model.RespClearHighlighting:
		return []dispatcher.Task{
			dispatcher.ViewReq{Request: model.ViewRequest{Kind: model.ViewClear}},
		}

	case model.RespStatus, model.RespHighlightingInfo, model.RespDoneAborting, model.RespDoneExiting:
		return []dispatcher.Task{dispatcher.Debug{Message: "response " + string(r.Kind)}}

	default:
		return []dispatcher.Task{dispatcher.Debug{Message: "unhandled response " + string(r.Kind)}}
	}
}
