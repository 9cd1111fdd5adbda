package dispatcher

import (
	"github.com/choukh/agda-mode-vscode/internal/events"
	"github.com/choukh/agda-mode-vscode/internal/model"
)

// execute runs one task and reports whether the lane should keep running.
// Errors never escape: every failure is translated into tasks and fed back
// into the pipeline. The only outcomes that stop a lane are Terminate and
// a dispatcher-invariant violation.
func (d *Dispatcher) execute(task Task) bool {
	switch t := task.(type) {
	case DispatchCommand:
		tasks := d.handlers.Command(t.Command)
		d.mu.Lock()
		d.critical.queue.AddTasks(SourceCommand, tasks...)
		d.mu.Unlock()
		return true

	case SendRequest:
		return d.executeSendRequest(t)

	case ViewReq:
		return d.executeViewReq(t)

	case WithState:
		d.mu.Lock()
		d.blocking.queue.Spawn(SourceMisc)
		d.mu.Unlock()
		tasks, err := t.Callback(d.ctx, d.state)
		if err != nil {
			tasks = append(tasks, Error{Err: err})
		}
		d.mu.Lock()
		d.blocking.queue.AddTasks(SourceMisc, tasks...)
		d.removeLayer(d.blocking.queue, SourceMisc)
		d.mu.Unlock()
		return true

	case Terminate:
		d.destroyOnce.Do(func() {
			if err := d.state.Destroy(d.ctx); err != nil {
				d.log(LogLevelError, "destroy session: %v", err)
			}
		})
		return false

	case Goal:
		d.routeOneShot(laneBlocking, d.handlers.Goal(t.Action))
		return true

	case ViewEvent:
		switch t.Event.Kind {
		case model.ViewEventDestroyed:
			d.routeOneShot(laneCritical, []Task{Terminate{}})
		default:
			d.routeOneShot(laneCritical, nil)
		}
		return true

	case Error:
		d.publish(events.EventProofError, map[string]any{"error": t.Err.Error()})
		d.routeOneShot(laneCritical, d.handlers.Error(t.Err))
		return true

	case Debug:
		d.log(LogLevelDebug, "DEBUG %s", t.Message)
		return true

	default:
		d.log(LogLevelWarn, "unknown task %T", task)
		return true
	}
}

// executeSendRequest spawns the Agda layer and starts the request bridge.
// It resolves immediately so the lane can execute tasks arriving on the
// Agda layer while the response stream is live; the layer is removed only
// when the stream terminates.
func (d *Dispatcher) executeSendRequest(t SendRequest) bool {
	d.mu.Lock()
	if d.blocking.queue.CountBySource(SourceAgda) > 0 {
		d.mu.Unlock()
		// A second concurrent request is a dispatcher violation. The
		// request is dropped and the lane stopped so the offender is
		// visible in the log.
		d.log(LogLevelWarn, "dropping %s: a proof-checker request is already in flight", t)
		d.publish(events.EventLaneViolation, map[string]any{"task": t.String()})
		return false
	}
	d.blocking.queue.Spawn(SourceAgda)
	d.mu.Unlock()

	go d.runBridge(t.Request)
	return true
}

// executeViewReq performs one view round-trip. Prompting requests own a
// View layer on the blocking lane, which stalls that lane until the user
// answers; everything else rides the critical lane.
func (d *Dispatcher) executeViewReq(t ViewReq) bool {
	ln := laneCritical
	if t.Request.Prompting() {
		ln = laneBlocking
		d.mu.Lock()
		if d.blocking.queue.CountBySource(SourceView) > 0 {
			d.mu.Unlock()
			d.log(LogLevelWarn, "dropping %s: a prompting view request is already in flight", t)
			d.publish(events.EventLaneViolation, map[string]any{"task": t.String()})
			return false
		}
		d.blocking.queue.Spawn(SourceView)
		d.mu.Unlock()
	} else {
		d.mu.Lock()
		d.critical.queue.Spawn(SourceView)
		d.mu.Unlock()
	}

	resp, err := d.state.SendRequestToView(d.ctx, t.Request)

	var tasks []Task
	if err != nil {
		tasks = d.handlers.Error(err)
	} else if t.Callback != nil {
		tasks = t.Callback(resp)
	}

	d.mu.Lock()
	q := d.laneState(ln).queue
	q.AddTasks(SourceView, tasks...)
	d.removeLayer(q, SourceView)
	d.mu.Unlock()
	return true
}

// routeOneShot runs tasks through a short-lived Misc layer: spawn, add,
// remove. The net effect prepends them ahead of everything already queued
// on the lane.
func (d *Dispatcher) routeOneShot(ln lane, tasks []Task) {
	d.mu.Lock()
	q := d.laneState(ln).queue
	q.Spawn(SourceMisc)
	q.AddTasks(SourceMisc, tasks...)
	d.removeLayer(q, SourceMisc)
	d.mu.Unlock()
}

// removeLayer removes the topmost layer tagged s, logging the
// bottom-layer anomaly Remove reports. Caller holds mu.
func (d *Dispatcher) removeLayer(q *MultiQueue, s Source) {
	if err := q.Remove(s); err != nil {
		d.log(LogLevelError, "remove layer: %v", err)
	}
}
