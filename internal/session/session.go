// Package session holds the live editing session: the Agda connection,
// the view panel handle, and per-document interaction state.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/choukh/agda-mode-vscode/internal/agda"
	"github.com/choukh/agda-mode-vscode/internal/dispatcher"
	"github.com/choukh/agda-mode-vscode/internal/events"
	"github.com/choukh/agda-mode-vscode/internal/lock"
	"github.com/choukh/agda-mode-vscode/internal/model"
)

// Goal is one interaction point in a loaded document.
type Goal struct {
	Index   int
	Content string
}

// Session implements dispatcher.State. The Agda connection is established
// lazily on the first request; concurrent establishment attempts collapse
// into one through singleflight.
type Session struct {
	cfg    model.Config
	logger *log.Logger
	level  dispatcher.LogLevel
	bus    *events.Bus
	view   ViewTransport

	sf singleflight.Group

	mu   sync.Mutex
	conn *agda.Conn

	docLocks *lock.MutexMap
	docMu    sync.Mutex
	goals    map[string][]Goal

	destroyed bool
}

// ViewTransport is the view server surface the session needs.
type ViewTransport interface {
	Request(ctx context.Context, req model.ViewRequest) (model.ViewResponse, error)
}

// New creates a Session. view may be nil in tests.
func New(cfg model.Config, view ViewTransport, logger *log.Logger, level dispatcher.LogLevel, bus *events.Bus) *Session {
	return &Session{
		cfg:      cfg,
		logger:   logger,
		level:    level,
		bus:      bus,
		view:     view,
		docLocks: lock.NewMutexMap(),
		goals:    make(map[string][]Goal),
	}
}

// SendRequestToAgda writes req to the proof checker, connecting first if
// needed, and returns the live response stream.
func (s *Session) SendRequestToAgda(ctx context.Context, req model.Request) (dispatcher.Connection, error) {
	conn, err := s.ensureConn()
	if err != nil {
		return nil, err
	}
	if err := conn.Send(req); err != nil {
		return nil, err
	}
	return conn, nil
}

// SendRequestToView forwards req to the panel.
func (s *Session) SendRequestToView(ctx context.Context, req model.ViewRequest) (model.ViewResponse, error) {
	if s.view == nil {
		return model.ViewResponse{}, fmt.Errorf("no view transport")
	}
	return s.view.Request(ctx, req)
}

// Destroy tears the session down: the Agda process is stopped and all
// document state dropped. The dispatcher calls it at most once and the
// daemon calls it again on shutdown; a repeated call finds no connection
// left to close.
func (s *Session) Destroy(ctx context.Context) error {
	s.mu.Lock()
	s.destroyed = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	s.docMu.Lock()
	s.goals = make(map[string][]Goal)
	s.docMu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			return fmt.Errorf("close agda: %w", err)
		}
	}
	s.log(dispatcher.LogLevelInfo, "session destroyed")
	return nil
}

// ensureConn returns the live connection, establishing it if absent. All
// concurrent callers share one connection attempt.
func (s *Session) ensureConn() (*agda.Conn, error) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return nil, &model.ConnError{Op: "connect", Err: fmt.Errorf("session destroyed")}
	}
	if s.conn != nil {
		conn := s.conn
		s.mu.Unlock()
		return conn, nil
	}
	s.mu.Unlock()

	v, err, _ := s.sf.Do("agda", func() (any, error) {
		conn, err := agda.Connect(s.cfg.Agda, s.logger, s.level)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		if s.bus != nil {
			s.bus.Publish(events.EventAgdaConnected, map[string]any{"version": conn.Version()})
		}
		return conn, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*agda.Conn), nil
}

// AgdaVersion reports the running Agda's version, or "" before the first
// connection.
func (s *Session) AgdaVersion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ""
	}
	return s.conn.Version()
}

// SetGoalIndices replaces the goal set for one document with fresh, empty
// goals at the given interaction points.
func (s *Session) SetGoalIndices(filePath string, indices []int) {
	goals := make([]Goal, 0, len(indices))
	for _, idx := range indices {
		goals = append(goals, Goal{Index: idx})
	}
	s.SetGoals(filePath, goals)
}

// SetGoals replaces the goal set for one document.
func (s *Session) SetGoals(filePath string, goals []Goal) {
	s.docLocks.Lock(filePath)
	defer s.docLocks.Unlock(filePath)

	s.docMu.Lock()
	s.goals[filePath] = goals
	s.docMu.Unlock()
}

// Goals returns the goal set for one document.
func (s *Session) Goals(filePath string) []Goal {
	s.docMu.Lock()
	defer s.docMu.Unlock()
	return append([]Goal(nil), s.goals[filePath]...)
}

// UpdateGoal rewrites one goal's content.
func (s *Session) UpdateGoal(filePath string, index int, content string) {
	s.docLocks.Lock(filePath)
	defer s.docLocks.Unlock(filePath)

	s.docMu.Lock()
	defer s.docMu.Unlock()
	gs := s.goals[filePath]
	for i := range gs {
		if gs[i].Index == index {
			gs[i].Content = content
			return
		}
	}
	s.goals[filePath] = append(gs, Goal{Index: index, Content: content})
}

func (s *Session) log(level dispatcher.LogLevel, format string, args ...any) {
	if s.logger == nil || level < s.level {
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
	s.logger.Printf("%s %s session: %s", time.Now().Format(time.RFC3339), levelStr, msg)
}
