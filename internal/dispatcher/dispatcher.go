package dispatcher

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/choukh/agda-mode-vscode/internal/events"
	"github.com/choukh/agda-mode-vscode/internal/model"
)

// LogLevel controls logging verbosity.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// ParseLogLevel maps a config string to a LogLevel, defaulting to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Status is a lane's re-entrancy semaphore.
type Status int

const (
	StatusIdle Status = iota
	StatusBusy
)

type lane int

const (
	laneCritical lane = iota
	laneBlocking
)

func (l lane) String() string {
	if l == laneCritical {
		return "critical"
	}
	return "blocking"
}

// laneState is one lane: its queue plus the Busy flag that guarantees at
// most one executor per lane.
type laneState struct {
	queue  *MultiQueue
	status Status
}

// Dispatcher owns the two lanes and drives all task execution. Editor
// commands land on the critical lane; proof-checker requests and the work
// their responses induce live on the blocking lane. All queue mutation
// happens under mu; execution itself runs outside the lock so that
// re-entrant KickStart calls from response callbacks never deadlock.
type Dispatcher struct {
	state    State
	handlers Handler
	logger   *log.Logger
	logLevel LogLevel
	bus      *events.Bus

	ctx context.Context

	mu       sync.Mutex
	critical laneState
	blocking laneState

	destroyOnce sync.Once
}

// New creates a Dispatcher. ctx bounds every await the executor performs;
// cancelling it releases tasks blocked on the view or on WithState
// callbacks during teardown.
func New(ctx context.Context, state State, handlers Handler, logger *log.Logger, level LogLevel) *Dispatcher {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Dispatcher{
		state:    state,
		handlers: handlers,
		logger:   logger,
		logLevel: level,
		ctx:      ctx,
		critical: laneState{queue: NewMultiQueue()},
		blocking: laneState{queue: NewMultiQueue()},
	}
}

// SetEventBus sets the bus lifecycle events are published on.
func (d *Dispatcher) SetEventBus(bus *events.Bus) {
	d.bus = bus
}

// SetLogLevel adjusts verbosity at runtime (config live reload).
func (d *Dispatcher) SetLogLevel(level LogLevel) {
	d.mu.Lock()
	d.logLevel = level
	d.mu.Unlock()
}

// DispatchCommand appends a DispatchCommand task to the critical lane's
// bottom Command layer and kicks the scheduler.
func (d *Dispatcher) DispatchCommand(cmd model.Command) {
	d.mu.Lock()
	d.critical.queue.AddTasks(SourceCommand, DispatchCommand{Command: cmd})
	d.mu.Unlock()
	d.KickStart()
}

// DispatchViewEvent injects a view panel lifecycle event. Events enter as
// tasks on the critical lane so they cannot queue behind an in-flight
// proof-checker request.
func (d *Dispatcher) DispatchViewEvent(ev model.ViewEvent) {
	d.mu.Lock()
	d.critical.queue.AddTasks(SourceCommand, ViewEvent{Event: ev})
	d.mu.Unlock()
	d.KickStart()
}

// KickStart advances both lanes. It is safe to call from any continuation:
// the per-lane Busy flag prevents a second executor from starting on a lane
// that is mid-task, and a call that finds nothing runnable changes nothing.
func (d *Dispatcher) KickStart() {
	d.kickLane(laneCritical)
	d.kickLane(laneBlocking)
}

// Snapshot returns a rendering of both lanes, critical first.
func (d *Dispatcher) Snapshot() (critical, blocking string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.critical.queue.String(), d.blocking.queue.String()
}

func (d *Dispatcher) laneState(l lane) *laneState {
	if l == laneCritical {
		return &d.critical
	}
	return &d.blocking
}

// kickLane claims the lane's next runnable task and hands it to a run
// loop. The blocking lane pops in blocking mode: an empty-but-live top
// layer stalls it until the owning operation completes.
func (d *Dispatcher) kickLane(l lane) {
	d.mu.Lock()
	st := d.laneState(l)
	if st.status == StatusBusy {
		d.mu.Unlock()
		return
	}
	task, ok := st.queue.NextTask(l == laneBlocking)
	if !ok {
		d.mu.Unlock()
		return
	}
	st.status = StatusBusy
	d.logLaneLocked(l, task)
	d.mu.Unlock()

	go d.runLane(l, task)
}

// runLane executes tasks on one lane until the lane runs dry or a task
// asks to stop. An explicit loop instead of recursion: a long response
// burst injects many tasks and must not grow the stack.
func (d *Dispatcher) runLane(l lane, task Task) {
	for {
		d.publish(events.EventTaskStarted, map[string]any{"lane": l.String(), "task": task.String()})
		keep := d.execute(task)
		d.publish(events.EventTaskCompleted, map[string]any{"lane": l.String(), "task": task.String(), "keep": keep})

		d.mu.Lock()
		st := d.laneState(l)
		if !keep {
			st.status = StatusIdle
			d.mu.Unlock()
			return
		}
		next, ok := st.queue.NextTask(l == laneBlocking)
		if !ok {
			st.status = StatusIdle
			d.mu.Unlock()
			// The completed task may have fed the other lane.
			d.kickLane(other(l))
			return
		}
		task = next
		d.logLaneLocked(l, task)
		d.mu.Unlock()
		d.kickLane(other(l))
	}
}

func other(l lane) lane {
	if l == laneCritical {
		return laneBlocking
	}
	return laneCritical
}

// logLaneLocked emits the pre-execution snapshot of both lanes. Caller
// holds mu.
func (d *Dispatcher) logLaneLocked(l lane, task Task) {
	d.log(LogLevelDebug, "%s %s critical=%s blocking=%s",
		l, task, d.critical.queue, d.blocking.queue)
}

func (d *Dispatcher) publish(t events.EventType, data map[string]any) {
	if d.bus != nil {
		d.bus.Publish(t, data)
	}
}

func (d *Dispatcher) log(level LogLevel, format string, args ...any) {
	if d.logger == nil || level < d.logLevel {
		return
	}
	levelStr := "INFO"
	switch level {
	case LogLevelDebug:
		levelStr = "DEBUG"
	case LogLevelWarn:
		levelStr = "WARN"
	case LogLevelError:
		levelStr = "ERROR"
	}
	msg := fmt.Sprintf(format, args...)
	d.logger.Printf("%s %s dispatcher: %s", time.Now().Format(time.RFC3339), levelStr, msg)
}
