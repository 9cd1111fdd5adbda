package dispatcher

import (
	"sync"

	"github.com/choukh/agda-mode-vscode/internal/events"
	"github.com/choukh/agda-mode-vscode/internal/model"
)

// runBridge owns the Agda layer on the blocking lane for the lifetime of
// one proof-checker request. It subscribes to the response stream, injects
// handler-produced tasks under the Agda source as events arrive, and
// removes the layer when the stream stops. The subscription is scoped to
// this call: it is released on Stop, on connection failure, and when the
// stream dies with the process.
func (d *Dispatcher) runBridge(req model.Request) {
	conn, err := d.state.SendRequestToAgda(d.ctx, req)
	if err != nil {
		d.log(LogLevelError, "send request %s: %v", req, err)
		d.injectAgda(d.handlers.Error(err)...)
		d.finishBridge()
		return
	}
	d.publish(events.EventAgdaRequestSent, map[string]any{"request": req.String()})

	done := make(chan struct{})
	var once sync.Once
	unsubscribe := conn.Subscribe(func(ev StreamEvent) {
		switch {
		case ev.Stop:
			d.log(LogLevelDebug, ">>| ")
			once.Do(func() { close(done) })
		case ev.Err != nil:
			d.injectAgda(d.handlers.Error(ev.Err)...)
		default:
			d.log(LogLevelDebug, ">>> %s", ev.Response)
			d.injectAgda(d.handlers.Response(*ev.Response)...)
		}
	})
	defer unsubscribe()

	select {
	case <-done:
	case <-d.ctx.Done():
		// Dispatcher teardown: drop the subscription without waiting for
		// the stream's own terminator.
	}
	d.publish(events.EventAgdaStreamStopped, map[string]any{"request": req.String()})
	d.finishBridge()
}

// injectAgda appends tasks under the in-flight Agda layer and re-kicks the
// scheduler. Called from the stream's delivery goroutine.
func (d *Dispatcher) injectAgda(tasks ...Task) {
	if len(tasks) == 0 {
		return
	}
	d.mu.Lock()
	d.blocking.queue.AddTasks(SourceAgda, tasks...)
	d.mu.Unlock()
	d.KickStart()
}

// finishBridge removes the Agda layer, spilling any leftover tasks into
// the layer below, and re-kicks the scheduler.
func (d *Dispatcher) finishBridge() {
	d.mu.Lock()
	d.removeLayer(d.blocking.queue, SourceAgda)
	d.mu.Unlock()
	d.KickStart()
}
