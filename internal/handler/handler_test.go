package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/choukh/agda-mode-vscode/internal/dispatcher"
	"github.com/choukh/agda-mode-vscode/internal/model"
)

// goalRecorder implements dispatcher.State plus GoalStore so withGoalStore
// callbacks can be executed directly.
type goalRecorder struct {
	setIndices [][]int
	updates    []string
}

func (g *goalRecorder) SendRequestToAgda(context.Context, model.Request) (dispatcher.Connection, error) {
	return nil, errors.New("not wired")
}

func (g *goalRecorder) SendRequestToView(context.Context, model.ViewRequest) (model.ViewResponse, error) {
	return model.ViewResponse{}, errors.New("not wired")
}

func (g *goalRecorder) Destroy(context.Context) error { return nil }

func (g *goalRecorder) SetGoalIndices(filePath string, indices []int) {
	g.setIndices = append(g.setIndices, indices)
}

func (g *goalRecorder) UpdateGoal(filePath string, index int, content string) {
	g.updates = append(g.updates, content)
}

// runWithState executes every WithState task in ts against st.
func runWithState(t *testing.T, ts []dispatcher.Task, st dispatcher.State) {
	t.Helper()
	for _, task := range ts {
		ws, ok := task.(dispatcher.WithState)
		if !ok {
			continue
		}
		if _, err := ws.Callback(context.Background(), st); err != nil {
			t.Fatalf("WithState callback: %v", err)
		}
	}
}

func requestOf(t *testing.T, task dispatcher.Task) model.Request {
	t.Helper()
	sr, ok := task.(dispatcher.SendRequest)
	if !ok {
		t.Fatalf("expected SendRequest, got %T", task)
	}
	return sr.Request
}

func TestCommand_Load(t *testing.T) {
	h := NewDefault()
	tasks := h.Command(model.Command{Kind: model.CmdLoad, FilePath: "A.agda"})
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}

	vr, ok := tasks[0].(dispatcher.ViewReq)
	if !ok {
		t.Fatalf("expected ViewReq first, got %T", tasks[0])
	}
	if vr.Request.Kind != model.ViewDisplay || vr.Request.Prompting() {
		t.Errorf("load display request: got %+v", vr.Request)
	}

	req := requestOf(t, tasks[1])
	if req.Kind != model.ReqLoad || req.FilePath != "A.agda" {
		t.Errorf("load request: got %+v", req)
	}
}

func TestCommand_SimpleRequests(t *testing.T) {
	h := NewDefault()
	tests := []struct {
		cmd  model.CommandKind
		want model.RequestKind
	}{
		{model.CmdCompile, model.ReqCompile},
		{model.CmdShowConstraints, model.ReqShowConstraints},
		{model.CmdSolveConstraints, model.ReqSolveAll},
		{model.CmdRefine, model.ReqRefine},
		{model.CmdAuto, model.ReqAuto},
		{model.CmdGoalType, model.ReqGoalType},
	}
	for _, tt := range tests {
		t.Run(string(tt.cmd), func(t *testing.T) {
			tasks := h.Command(model.Command{Kind: tt.cmd, FilePath: "A.agda", GoalIndex: 2})
			last := tasks[len(tasks)-1]
			if got := requestOf(t, last).Kind; got != tt.want {
				t.Errorf("request kind: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCommand_GivePromptsThenSends(t *testing.T) {
	h := NewDefault()
	tasks := h.Command(model.Command{Kind: model.CmdGive, FilePath: "A.agda", GoalIndex: 3})
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	vr, ok := tasks[0].(dispatcher.ViewReq)
	if !ok {
		t.Fatalf("expected ViewReq, got %T", tasks[0])
	}
	if !vr.Request.Prompting() {
		t.Fatal("give must prompt for the expression")
	}

	// The user answers: the callback turns the input into a request.
	out := vr.Callback(model.ViewResponse{Success: true, Input: "suc zero"})
	if len(out) != 1 {
		t.Fatalf("expected 1 follow-up task, got %d", len(out))
	}
	req := requestOf(t, out[0])
	if req.Kind != model.ReqGive || req.GoalIndex != 3 || req.Expr != "suc zero" {
		t.Errorf("give request: got %+v", req)
	}

	// A dismissed or empty prompt produces nothing.
	for _, resp := range []model.ViewResponse{
		{Success: false},
		{Success: true, Interrupted: true},
		{Success: true, Input: ""},
	} {
		if out := vr.Callback(resp); len(out) != 0 {
			t.Errorf("dismissed prompt %+v produced %d tasks", resp, len(out))
		}
	}
}

func TestCommand_CaseWithTextSkipsPrompt(t *testing.T) {
	h := NewDefault()
	tasks := h.Command(model.Command{Kind: model.CmdCase, FilePath: "A.agda", GoalIndex: 1, Text: "n"})
	req := requestOf(t, tasks[0])
	if req.Kind != model.ReqMakeCase || req.Expr != "n" {
		t.Errorf("case request: got %+v", req)
	}

	// Without a variable the handler must ask first.
	tasks = h.Command(model.Command{Kind: model.CmdCase, FilePath: "A.agda", GoalIndex: 1})
	if _, ok := tasks[0].(dispatcher.ViewReq); !ok {
		t.Fatalf("expected prompting ViewReq, got %T", tasks[0])
	}
}

func TestCommand_EscapeAndInputSymbol(t *testing.T) {
	h := NewDefault()

	tasks := h.Command(model.Command{Kind: model.CmdEscape})
	vr := tasks[0].(dispatcher.ViewReq)
	if vr.Request.Kind != model.ViewClear || vr.Request.Prompting() {
		t.Errorf("escape: got %+v", vr.Request)
	}

	tasks = h.Command(model.Command{Kind: model.CmdInputSymbol, Text: "lambda"})
	vr = tasks[0].(dispatcher.ViewReq)
	if vr.Request.Kind != model.ViewInputMethod {
		t.Fatalf("input symbol: got %+v", vr.Request)
	}
	if len(vr.Request.Candidates) != 1 || vr.Request.Candidates[0] != "λ" {
		t.Errorf("lambda candidates: got %v", vr.Request.Candidates)
	}
}

func TestCommand_QuitTerminates(t *testing.T) {
	h := NewDefault()
	tasks := h.Command(model.Command{Kind: model.CmdQuit})
	if _, ok := tasks[0].(dispatcher.Terminate); !ok {
		t.Fatalf("expected Terminate, got %T", tasks[0])
	}
}

func TestCommand_RestartClearsGoals(t *testing.T) {
	h := NewDefault()
	tasks := h.Command(model.Command{Kind: model.CmdRestart, FilePath: "A.agda"})

	rec := &goalRecorder{}
	runWithState(t, tasks, rec)
	if len(rec.setIndices) != 1 || rec.setIndices[0] != nil {
		t.Errorf("restart must clear goal indices, got %v", rec.setIndices)
	}
	if requestOf(t, tasks[len(tasks)-1]).Kind != model.ReqLoad {
		t.Error("restart must reload the file")
	}
}

func TestResponse_DisplayInfo(t *testing.T) {
	h := NewDefault()

	tasks := h.Response(model.Response{
		Kind: model.RespDisplayInfo,
		Info: &model.DisplayInfo{Kind: "AllGoalsWarnings", Message: "?0 : ℕ"},
	})
	vr := tasks[0].(dispatcher.ViewReq)
	if vr.Request.Kind != model.ViewDisplay || vr.Request.Body != "?0 : ℕ" {
		t.Errorf("display info: got %+v", vr.Request)
	}

	// An error payload re-enters the pipeline as an Error task.
	tasks = h.Response(model.Response{
		Kind: model.RespDisplayInfo,
		Info: &model.DisplayInfo{Kind: "Error", Error: "unsolved metas"},
	})
	et, ok := tasks[0].(dispatcher.Error)
	if !ok {
		t.Fatalf("expected Error task, got %T", tasks[0])
	}
	if et.Err.Error() != "unsolved metas" {
		t.Errorf("error payload: got %v", et.Err)
	}
}

func TestResponse_InteractionPoints(t *testing.T) {
	h := NewDefault()
	tasks := h.Response(model.Response{Kind: model.RespInteractionPoints, InteractionPoints: []int{0, 1, 2}})
	g := tasks[0].(dispatcher.Goal)
	if g.Action.Kind != model.GoalUpdateIndices || len(g.Action.Indices) != 3 {
		t.Errorf("interaction points: got %+v", g.Action)
	}
}

func TestResponse_SolveAllFansOut(t *testing.T) {
	h := NewDefault()
	tasks := h.Response(model.Response{Kind: model.RespSolveAll, Solutions: []model.Solution{
		{InteractionPoint: 0, Expression: "zero"},
		{InteractionPoint: 1, Expression: "suc zero"},
	}})
	if len(tasks) != 2 {
		t.Fatalf("expected one goal task per solution, got %d", len(tasks))
	}
	for i, want := range []string{"zero", "suc zero"} {
		g := tasks[i].(dispatcher.Goal)
		if g.Action.Kind != model.GoalSolve || g.Action.Content != want {
			t.Errorf("solution %d: got %+v", i, g.Action)
		}
	}
}

func TestGoal_GiveUpdatesStoreAndView(t *testing.T) {
	h := NewDefault()
	tasks := h.Goal(model.GoalAction{Kind: model.GoalGive, GoalIndex: 1, Content: "refl"})

	rec := &goalRecorder{}
	runWithState(t, tasks, rec)
	if len(rec.updates) != 1 || rec.updates[0] != "refl" {
		t.Errorf("give must update the goal store, got %v", rec.updates)
	}

	var shown bool
	for _, task := range tasks {
		if vr, ok := task.(dispatcher.ViewReq); ok && vr.Request.Kind == model.ViewDisplay {
			shown = true
		}
	}
	if !shown {
		t.Error("give must surface the result in the view")
	}
}

func TestGoal_WithoutStoreIsNoop(t *testing.T) {
	h := NewDefault()
	tasks := h.Goal(model.GoalAction{Kind: model.GoalSolve, GoalIndex: 0, Content: "zero"})

	// A state that is not a GoalStore: callbacks must not produce errors.
	st := struct{ dispatcher.State }{}
	runWithState(t, tasks, st)
}

func TestError_DisplaysInView(t *testing.T) {
	h := NewDefault()
	tasks := h.Error(errors.New("type mismatch at A.agda:3"))

	vr, ok := tasks[0].(dispatcher.ViewReq)
	if !ok {
		t.Fatalf("expected ViewReq, got %T", tasks[0])
	}
	if vr.Request.Header != "Error" || vr.Request.Body != "type mismatch at A.agda:3" {
		t.Errorf("error display: got %+v", vr.Request)
	}
	if vr.Request.Prompting() {
		t.Error("error display must not prompt")
	}
}

func TestTranslateSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"->", "→"},
		{"forall", "∀"},
		{"==", "≡"},
	}
	for _, tt := range tests {
		got := translateSymbol(tt.in)
		if len(got) == 0 || got[0] != tt.want {
			t.Errorf("translateSymbol(%q) = %v, want %q", tt.in, got, tt.want)
		}
	}
	if got := translateSymbol("nosuch"); got != nil {
		t.Errorf("unknown abbreviation: got %v", got)
	}
}
