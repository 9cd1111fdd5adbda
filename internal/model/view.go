package model

// ViewRequestKind identifies a request sent to the view panel.
type ViewRequestKind string

const (
	// ViewDisplay shows a header/body pane. Fire-and-acknowledge.
	ViewDisplay ViewRequestKind = "display"
	// ViewPrompt asks the user for a line of input. Prompting: it blocks
	// the blocking lane until the user answers or dismisses.
	ViewPrompt ViewRequestKind = "prompt"
	// ViewInputMethod updates the input-method candidate display.
	ViewInputMethod ViewRequestKind = "input_method"
	// ViewClear wipes the panel body.
	ViewClear ViewRequestKind = "clear"
)

// ViewRequest is one request to the view panel.
type ViewRequest struct {
	Kind        ViewRequestKind `json:"kind"`
	Header      string          `json:"header,omitempty"`
	Body        string          `json:"body,omitempty"`
	Placeholder string          `json:"placeholder,omitempty"`
	Candidates  []string        `json:"candidates,omitempty"`
}

// Prompting reports whether the request waits for user input. Only the
// prompt kind blocks; the view protocol has no other waiting shape.
func (r ViewRequest) Prompting() bool {
	return r.Kind == ViewPrompt
}

func (r ViewRequest) String() string {
	return string(r.Kind)
}

// ViewResponse is the panel's answer to a view request.
type ViewResponse struct {
	Success     bool   `json:"success"`
	Input       string `json:"input,omitempty"`
	Interrupted bool   `json:"interrupted,omitempty"`
}

// ViewEventKind identifies a lifecycle event raised by the view panel.
type ViewEventKind string

const (
	ViewEventInitialized ViewEventKind = "initialized"
	ViewEventDestroyed   ViewEventKind = "destroyed"
)

// ViewEvent is a panel lifecycle event injected into the dispatcher by the
// UI host.
type ViewEvent struct {
	Kind ViewEventKind `json:"kind"`
}

// GoalActionKind identifies a goal-manipulation action.
type GoalActionKind string

const (
	// GoalGive replaces a goal with the given expression.
	GoalGive GoalActionKind = "give"
	// GoalCase splits a goal into the given clauses.
	GoalCase GoalActionKind = "case"
	// GoalSolve fills a goal with a solver-produced expression.
	GoalSolve GoalActionKind = "solve"
	// GoalUpdateIndices renumbers goals after a load.
	GoalUpdateIndices GoalActionKind = "update_indices"
)

// GoalAction is one goal-manipulation work item, translated into tasks by
// the goal handler.
type GoalAction struct {
	Kind      GoalActionKind `json:"kind"`
	GoalIndex int            `json:"goal_index,omitempty"`
	Content   string         `json:"content,omitempty"`
	Clauses   []string       `json:"clauses,omitempty"`
	Indices   []int          `json:"indices,omitempty"`
}

func (a GoalAction) String() string {
	return string(a.Kind)
}
