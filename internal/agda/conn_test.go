package agda

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/choukh/agda-mode-vscode/internal/dispatcher"
	"github.com/choukh/agda-mode-vscode/internal/model"
)

// interactive fakes agda --interaction-json: every request line on stdin
// produces two response frames followed by the bare JSON> prompt that
// terminates the stream.
const interactive = `if [ "$1" = "--version" ]; then echo "Agda version 2.6.4"; exit 0; fi
while IFS= read -r line; do
  echo 'JSON> {"kind":"ClearHighlighting"}'
  echo '{"kind":"DisplayInfo","info":{"kind":"AllGoalsWarnings","message":"ok"}}'
  echo 'JSON>'
done
`

// collector buffers stream events behind a channel.
type collector struct {
	mu     sync.Mutex
	events []dispatcher.StreamEvent
	stops  chan struct{}
}

func newCollector() *collector {
	return &collector{stops: make(chan struct{}, 8)}
}

func (c *collector) handle(ev dispatcher.StreamEvent) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	if ev.Stop {
		c.stops <- struct{}{}
	}
}

func (c *collector) awaitStop(t *testing.T) {
	t.Helper()
	select {
	case <-c.stops:
	case <-time.After(5 * time.Second):
		t.Fatal("stream never emitted Stop")
	}
}

func (c *collector) snapshot() []dispatcher.StreamEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]dispatcher.StreamEvent(nil), c.events...)
}

func connectFake(t *testing.T, script string) *Conn {
	t.Helper()
	path := writeFakeAgda(t, script)
	conn, err := Connect(model.AgdaConfig{Path: path}, nil, dispatcher.LogLevelError)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestConn_RequestResponseStream(t *testing.T) {
	conn := connectFake(t, interactive)
	if conn.Version() != "2.6.4" {
		t.Errorf("version: got %q", conn.Version())
	}

	col := newCollector()
	unsubscribe := conn.Subscribe(col.handle)
	defer unsubscribe()

	if err := conn.Send(model.Request{Kind: model.ReqLoad, FilePath: "A.agda"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	col.awaitStop(t)

	var responses []model.ResponseKind
	for _, ev := range col.snapshot() {
		if ev.Response != nil {
			responses = append(responses, ev.Response.Kind)
		}
		if ev.Err != nil {
			t.Errorf("unexpected stream error: %v", ev.Err)
		}
	}
	if len(responses) != 2 ||
		responses[0] != model.RespClearHighlighting ||
		responses[1] != model.RespDisplayInfo {
		t.Errorf("responses: got %v", responses)
	}
}

func TestConn_MalformedFrameYieldsParseError(t *testing.T) {
	script := `if [ "$1" = "--version" ]; then echo "Agda version 2.6.4"; exit 0; fi
while IFS= read -r line; do
  echo 'JSON> this is not json'
  echo '{"kind":"NoSuchKind"}'
  echo 'JSON>'
done
`
	conn := connectFake(t, script)

	col := newCollector()
	unsubscribe := conn.Subscribe(col.handle)
	defer unsubscribe()

	if err := conn.Send(model.Request{Kind: model.ReqLoad, FilePath: "A.agda"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	col.awaitStop(t)

	var parseErrs int
	for _, ev := range col.snapshot() {
		if ev.Err != nil {
			var pe *model.ParseError
			if !errors.As(ev.Err, &pe) {
				t.Errorf("expected *model.ParseError, got %T", ev.Err)
			}
			parseErrs++
		}
	}
	// Both the non-JSON line and the unknown kind fail to parse, and the
	// stream survives each of them.
	if parseErrs != 2 {
		t.Errorf("parse errors: got %d, want 2", parseErrs)
	}
}

func TestConn_ProcessDeathEmitsConnErrorThenStop(t *testing.T) {
	script := `if [ "$1" = "--version" ]; then echo "Agda version 2.6.4"; exit 0; fi
read line
exit 3
`
	conn := connectFake(t, script)

	col := newCollector()
	unsubscribe := conn.Subscribe(col.handle)
	defer unsubscribe()

	if err := conn.Send(model.Request{Kind: model.ReqLoad, FilePath: "A.agda"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	col.awaitStop(t)

	events := col.snapshot()
	if len(events) < 2 {
		t.Fatalf("expected conn error followed by Stop, got %v", events)
	}
	last := events[len(events)-1]
	if !last.Stop {
		t.Errorf("last event must be Stop, got %+v", last)
	}
	var sawConnErr bool
	for _, ev := range events {
		var ce *model.ConnError
		if ev.Err != nil && errors.As(ev.Err, &ce) {
			sawConnErr = true
		}
	}
	if !sawConnErr {
		t.Error("no connection error surfaced for the dead process")
	}
}

func TestConn_SendAfterCloseFails(t *testing.T) {
	conn := connectFake(t, interactive)
	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := conn.Send(model.Request{Kind: model.ReqLoad, FilePath: "A.agda"}); err == nil {
		t.Fatal("Send on a closed connection succeeded")
	}
	// Close is idempotent.
	if err := conn.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestConn_UnsubscribeStopsDelivery(t *testing.T) {
	conn := connectFake(t, interactive)

	col := newCollector()
	unsubscribe := conn.Subscribe(col.handle)

	if err := conn.Send(model.Request{Kind: model.ReqLoad, FilePath: "A.agda"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	col.awaitStop(t)
	unsubscribe()

	before := len(col.snapshot())
	if err := conn.Send(model.Request{Kind: model.ReqLoad, FilePath: "B.agda"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	if after := len(col.snapshot()); after != before {
		t.Errorf("events delivered after unsubscribe: %d -> %d", before, after)
	}
}
