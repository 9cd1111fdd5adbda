package handler

import (
	"fmt"

	"github.com/choukh/agda-mode-vscode/internal/dispatcher"
	"github.com/choukh/agda-mode-vscode/internal/model"
)

// Command translates one editor command into tasks.
func (h *Default) Command(c model.Command) []dispatcher.Task {
	switch c.Kind {
	case model.CmdLoad:
		return []dispatcher.Task{
			dispatcher.ViewReq{Request: model.ViewRequest{
				Kind:   model.ViewDisplay,
				Header: "Loading",
				Body:   c.FilePath,
			}},
			dispatcher.SendRequest{Request: model.Request{Kind: model.ReqLoad, FilePath: c.FilePath}},
		}

	case model.CmdRestart:
		return []dispatcher.Task{
			withGoalStore(func(gs GoalStore) { gs.SetGoalIndices(c.FilePath, nil) }),
			dispatcher.SendRequest{Request: model.Request{Kind: model.ReqLoad, FilePath: c.FilePath}},
		}

	case model.CmdCompile:
		return []dispatcher.Task{
			dispatcher.SendRequest{Request: model.Request{Kind: model.ReqCompile, FilePath: c.FilePath}},
		}

	case model.CmdShowConstraints:
		return []dispatcher.Task{
			dispatcher.SendRequest{Request: model.Request{Kind: model.ReqShowConstraints, FilePath: c.FilePath}},
		}

	case model.CmdSolveConstraints:
		return []dispatcher.Task{
			dispatcher.SendRequest{Request: model.Request{Kind: model.ReqSolveAll, FilePath: c.FilePath}},
		}

	case model.CmdGive:
		// Ask for the expression first; the answer feeds the request.
		return []dispatcher.Task{h.promptThenSend(c, model.ReqGive, "expression to give")}

	case model.CmdRefine:
		return []dispatcher.Task{
			dispatcher.SendRequest{Request: model.Request{
				Kind: model.ReqRefine, FilePath: c.FilePath, GoalIndex: c.GoalIndex, Expr: c.Text,
			}},
		}

	case model.CmdAuto:
		return []dispatcher.Task{
			dispatcher.SendRequest{Request: model.Request{
				Kind: model.ReqAuto, FilePath: c.FilePath, GoalIndex: c.GoalIndex,
			}},
		}

	case model.CmdCase:
		if c.Text == "" {
			return []dispatcher.Task{h.promptThenSend(c, model.ReqMakeCase, "variable to case split on")}
		}
		return []dispatcher.Task{
			dispatcher.SendRequest{Request: model.Request{
				Kind: model.ReqMakeCase, FilePath: c.FilePath, GoalIndex: c.GoalIndex, Expr: c.Text,
			}},
		}

	case model.CmdInferType:
		if c.Text == "" {
			return []dispatcher.Task{h.promptThenSend(c, model.ReqInferType, "expression to infer")}
		}
		return []dispatcher.Task{
			dispatcher.SendRequest{Request: model.Request{
				Kind: model.ReqInferType, FilePath: c.FilePath, GoalIndex: c.GoalIndex, Expr: c.Text,
			}},
		}

	case model.CmdGoalType:
		return []dispatcher.Task{
			dispatcher.SendRequest{Request: model.Request{
				Kind: model.ReqGoalType, FilePath: c.FilePath, GoalIndex: c.GoalIndex,
			}},
		}

	case model.CmdNextGoal, model.CmdPreviousGoal:
		return []dispatcher.Task{
			dispatcher.ViewReq{Request: model.ViewRequest{
				Kind:   model.ViewDisplay,
				Header: "Goal",
				Body:   fmt.Sprintf("goal %d", c.GoalIndex),
			}},
		}

	case model.CmdEscape:
		return []dispatcher.Task{
			dispatcher.ViewReq{Request: model.ViewRequest{Kind: model.ViewClear}},
		}

	case model.CmdInputSymbol:
		return []dispatcher.Task{
			dispatcher.ViewReq{Request: model.ViewRequest{
				Kind:       model.ViewInputMethod,
				Body:       c.Text,
				Candidates: translateSymbol(c.Text),
			}},
		}

	case model.CmdQuit:
		return []dispatcher.Task{dispatcher.Terminate{}}

	default:
		return []dispatcher.Task{dispatcher.Debug{Message: "unhandled command " + string(c.Kind)}}
	}
}

// promptThenSend builds a prompting view request whose answer becomes a
// proof-checker request. A dismissed or empty prompt produces nothing.
func (h *Default) promptThenSend(c model.Command, kind model.RequestKind, placeholder string) dispatcher.Task {
	return dispatcher.ViewReq{
		Request: model.ViewRequest{
			Kind:        model.ViewPrompt,
			Header:      string(c.Kind),
			Placeholder: placeholder,
		},
		Callback: func(resp model.ViewResponse) []dispatcher.Task {
			if !resp.Success || resp.Interrupted || resp.Input == "" {
				return nil
			}
			return []dispatcher.Task{
				dispatcher.SendRequest{Request: model.Request{
					Kind:      kind,
					FilePath:  c.FilePath,
					GoalIndex: c.GoalIndex,
					Expr:      resp.Input,
				}},
			}
		},
	}
}

// symbolTable maps input-method abbreviations to candidate glyphs, a small
// slice of the agda input method.
var symbolTable = map[string][]string{
	"->":     {"→"},
	"to":     {"→"},
	"forall": {"∀"},
	"all":    {"∀"},
	"ex":     {"∃"},
	"lambda": {"λ"},
	"Gl":     {"λ"},
	"top":    {"⊤"},
	"bot":    {"⊥"},
	"neg":    {"¬"},
	"and":    {"∧"},
	"or":     {"∨"},
	"equiv":  {"≡"},
	"==":     {"≡"},
	"::":     {"∷"},
	"<=":     {"≤"},
	">=":     {"≥"},
	"sub":    {"₀", "₁", "₂", "₃", "₄"},
	"bN":     {"ℕ"},
	"bZ":     {"ℤ"},
}

// translateSymbol returns the candidate glyphs for one abbreviation, or
// nil when it is not an abbreviation in the table. Only exact matches are
// found; a prefix of an abbreviation yields nil.
func translateSymbol(input string) []string {
	if cs, ok := symbolTable[input]; ok {
		return cs
	}
	return nil
}
