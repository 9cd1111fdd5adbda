package agda

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/choukh/agda-mode-vscode/internal/dispatcher"
	"github.com/choukh/agda-mode-vscode/internal/model"
)

// jsonPrompt is the marker agda --interaction-json prints. A line carrying
// a payload after the marker is one response frame; the bare marker means
// the process is ready for the next command, which terminates the current
// response stream.
const jsonPrompt = "JSON>"

// Conn is a live agda --interaction-json process. One Conn serves the
// whole session; each request's stream is scoped by subscribing before the
// request is written and treating the next bare prompt as the terminator.
type Conn struct {
	path    string
	version string

	cmd   *exec.Cmd
	stdin io.WriteCloser

	logger   *log.Logger
	logLevel dispatcher.LogLevel

	mu      sync.Mutex
	subs    map[int]func(dispatcher.StreamEvent)
	nextSub int
	closed  bool

	wg sync.WaitGroup
}

// Connect locates agda, spawns it in JSON interaction mode, and starts the
// response reader.
func Connect(cfg model.AgdaConfig, logger *log.Logger, level dispatcher.LogLevel) (*Conn, error) {
	path, version, err := Locate(cfg)
	if err != nil {
		return nil, err
	}

	args := append([]string{"--interaction-json"}, cfg.Args...)
	cmd := exec.Command(path, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &model.ConnError{Op: "stdin pipe", Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &model.ConnError{Op: "stdout pipe", Err: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &model.ConnError{Op: "start", Err: err}
	}

	c := &Conn{
		path:     path,
		version:  version,
		cmd:      cmd,
		stdin:    stdin,
		logger:   logger,
		logLevel: level,
		subs:     make(map[int]func(dispatcher.StreamEvent)),
	}
	c.log(dispatcher.LogLevelInfo, "agda %s started pid=%d path=%s", version, cmd.Process.Pid, path)

	c.wg.Add(1)
	go c.readLoop(stdout)

	return c, nil
}

// Version reports the version string of the running process.
func (c *Conn) Version() string { return c.version }

// Send writes one request line to the process.
func (c *Conn) Send(req model.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return &model.ConnError{Op: "send", Err: fmt.Errorf("connection closed")}
	}
	line := req.Encode() + "\n"
	if _, err := io.WriteString(c.stdin, line); err != nil {
		return &model.ConnError{Op: "send", Err: err}
	}
	c.log(dispatcher.LogLevelDebug, "<<< %s", req)
	return nil
}

// Subscribe registers fn for every subsequent stream event and returns the
// unsubscribe function. Implements dispatcher.Connection.
func (c *Conn) Subscribe(fn func(dispatcher.StreamEvent)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Close terminates the process and waits for the reader to drain.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	// Closing stdin asks agda to exit; kill if it lingers.
	_ = c.stdin.Close()
	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		_ = c.cmd.Process.Kill()
		<-done
	}
	c.wg.Wait()
	c.log(dispatcher.LogLevelInfo, "agda stopped")
	return nil
}

// readLoop scans stdout line by line, parses response frames, and fans the
// resulting events out to subscribers. When the pipe closes with the
// process, subscribers receive a connection error followed by Stop so that
// no bridge is left waiting.
func (c *Conn) readLoop(stdout io.Reader) {
	defer c.wg.Done()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// The prompt and a frame can share a line: "JSON> {...}".
		if rest, ok := strings.CutPrefix(line, jsonPrompt); ok {
			rest = strings.TrimSpace(rest)
			if rest == "" {
				c.emit(dispatcher.StreamEvent{Stop: true})
				continue
			}
			line = rest
		}

		resp, err := model.ParseResponse(line)
		if err != nil {
			c.log(dispatcher.LogLevelWarn, "parse response: %v", err)
			c.emit(dispatcher.StreamEvent{Err: err})
			continue
		}
		c.emit(dispatcher.StreamEvent{Response: &resp})
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if !closed {
		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}
		c.log(dispatcher.LogLevelError, "agda stream ended: %v", err)
		c.emit(dispatcher.StreamEvent{Err: &model.ConnError{Op: "read", Err: err}})
	}
	c.emit(dispatcher.StreamEvent{Stop: true})
}

func (c *Conn) emit(ev dispatcher.StreamEvent) {
	c.mu.Lock()
	fns := make([]func(dispatcher.StreamEvent), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (c *Conn) log(level dispatcher.LogLevel, format string, args ...any) {
	if c.logger == nil || level < c.logLevel {
		return
	}
	levelStr := "INFO"
	switch level {
	case dispatcher.LogLevelDebug:
		levelStr = "DEBUG"
	case dispatcher.LogLevelWarn:
		levelStr = "WARN"
	case dispatcher.LogLevelError:
		levelStr = "ERROR"
	}
	msg := fmt.Sprintf(format, args...)
	c.logger.Printf("%s %s agda: %s", time.Now().Format(time.RFC3339), levelStr, msg)
}
