package dispatcher

import (
	"context"

	"github.com/choukh/agda-mode-vscode/internal/model"
)

// Handler translates domain inputs into task lists. Implementations are
// supplied by the embedder and must be pure: they only build tasks, all
// side effects happen when those tasks execute.
type Handler interface {
	Command(model.Command) []Task
	Response(model.Response) []Task
	Error(error) []Task
	Goal(model.GoalAction) []Task
}

// StreamEvent is one event of an Agda response stream. Exactly one of the
// three shapes is set: a parsed response, a parse error, or the terminal
// Stop marker.
type StreamEvent struct {
	Response *model.Response
	Err      error
	Stop     bool
}

// Connection is a live response stream for one proof-checker request.
// Subscribe registers fn for every subsequent event and returns the
// matching unsubscribe function. The bridge holds exactly one subscription
// per request and releases it when the stream stops.
type Connection interface {
	Subscribe(fn func(StreamEvent)) (unsubscribe func())
}

// State is the session surface the executor operates on.
type State interface {
	// SendRequestToAgda issues req to the proof checker and returns the
	// response stream for it. Failure to reach the process is reported as
	// a *model.ConnError.
	SendRequestToAgda(ctx context.Context, req model.Request) (Connection, error)

	// SendRequestToView sends req to the view panel and blocks until the
	// panel answers.
	SendRequestToView(ctx context.Context, req model.ViewRequest) (model.ViewResponse, error)

	// Destroy tears the session down. The dispatcher calls it at most once,
	// on Terminate; the daemon also calls it during shutdown.
	Destroy(ctx context.Context) error
}
