package dispatcher

import (
	"fmt"
	"strings"
)

// Source tags which producer owns a queue layer.
type Source string

const (
	SourceCommand Source = "Command"
	SourceAgda    Source = "Agda"
	SourceView    Source = "View"
	SourceMisc    Source = "Misc"
)

// layer is one (Source, FIFO) pair. Tasks append at the tail and pop from
// the head.
type layer struct {
	source Source
	tasks  []Task
}

// MultiQueue is an ordered list of layers; the head layer has the highest
// priority. A freshly made queue holds a single empty Command layer, and
// that bottom layer persists for the queue's lifetime.
//
// MultiQueue is not safe for concurrent use; the Dispatcher guards it.
type MultiQueue struct {
	layers []layer
}

// NewMultiQueue returns a queue containing the single bottom layer
// (Command, empty).
func NewMultiQueue() *MultiQueue {
	return &MultiQueue{layers: []layer{{source: SourceCommand}}}
}

// Spawn prepends a new empty layer tagged s. Layers with the same tag may
// coexist; operations always target the topmost match.
func (q *MultiQueue) Spawn(s Source) {
	q.layers = append([]layer{{source: s}}, q.layers...)
}

// Remove removes the topmost layer tagged s. Remaining tasks in the removed
// layer are prepended, in order, to the layer below, so the merged stream
// keeps its FIFO order. Removing a tag with no matching layer is a no-op.
// Removing the bottom layer discards its tasks and reports an error; under
// the bottom-Command invariant this does not happen in normal operation.
func (q *MultiQueue) Remove(s Source) error {
	for i, l := range q.layers {
		if l.source != s {
			continue
		}
		if i == len(q.layers)-1 {
			q.layers = q.layers[:i]
			return fmt.Errorf("removed last layer %s with %d task(s) discarded", s, len(l.tasks))
		}
		below := &q.layers[i+1]
		below.tasks = append(append([]Task{}, l.tasks...), below.tasks...)
		q.layers = append(q.layers[:i], q.layers[i+1:]...)
		return nil
	}
	return nil
}

// AddTasks appends ts to the tail of the topmost layer tagged s. If no such
// layer exists the queue is unchanged.
func (q *MultiQueue) AddTasks(s Source, ts ...Task) {
	for i := range q.layers {
		if q.layers[i].source == s {
			q.layers[i].tasks = append(q.layers[i].tasks, ts...)
			return
		}
	}
}

// CountBySource counts the layers tagged s.
func (q *MultiQueue) CountBySource(s Source) int {
	n := 0
	for _, l := range q.layers {
		if l.source == s {
			n++
		}
	}
	return n
}

// NextTask pops the next runnable task.
//
// In blocking mode an empty head layer means the lane is stuck waiting for
// that source: nothing is returned even if lower layers have work. This is
// how an in-flight Agda or prompting view request halts the lane.
//
// In non-blocking mode empty layers are skipped (and left in place) and the
// first task found anywhere is returned.
func (q *MultiQueue) NextTask(blocking bool) (Task, bool) {
	for i := range q.layers {
		l := &q.layers[i]
		if len(l.tasks) == 0 {
			if blocking {
				return nil, false
			}
			continue
		}
		t := l.tasks[0]
		l.tasks = l.tasks[1:]
		return t, true
	}
	return nil, false
}

// Empty reports whether every layer is empty.
func (q *MultiQueue) Empty() bool {
	for _, l := range q.layers {
		if len(l.tasks) > 0 {
			return false
		}
	}
	return true
}

// String renders a snapshot like "[Agda(1) Command(2)]", head first.
func (q *MultiQueue) String() string {
	parts := make([]string, len(q.layers))
	for i, l := range q.layers {
		parts[i] = fmt.Sprintf("%s(%d)", l.source, len(l.tasks))
	}
	return "[" + strings.Join(parts, " ") + "]"
}
