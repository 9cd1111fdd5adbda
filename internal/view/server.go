package view

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/choukh/agda-mode-vscode/internal/events"
	"github.com/choukh/agda-mode-vscode/internal/model"
)

// EventSink receives view panel lifecycle events. The daemon injects them
// into the dispatcher.
type EventSink func(model.ViewEvent)

// Server accepts a single view panel over /ws and exchanges JSON frames
// with it. Requests block until the panel answers the frame's ID or the
// context expires; panel attach/detach surfaces as view events.
type Server struct {
	cfg    model.ViewConfig
	logger *log.Logger
	bus    *events.Bus
	sink   EventSink

	engine     *gin.Engine
	httpServer *http.Server
	listener   net.Listener
	upgrader   websocket.Upgrader

	mu      sync.Mutex
	panel   *websocket.Conn
	pending map[string]chan model.ViewResponse

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer builds the server. Call Start to begin listening.
func NewServer(cfg model.ViewConfig, logger *log.Logger, bus *events.Bus) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowWebSockets = true
	engine.Use(cors.New(corsConfig))

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:    cfg,
		logger: logger,
		bus:    bus,
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The webview connects from a vscode-webview:// origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pending: make(map[string]chan model.ViewResponse),
		ctx:     ctx,
		cancel:  cancel,
	}

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/ws", s.handleWS)

	return s
}

// SetEventSink installs the lifecycle event sink. Must be called before
// Start.
func (s *Server) SetEventSink(sink EventSink) {
	s.sink = sink
}

// Start begins serving on the configured host and port.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.httpServer = &http.Server{Handler: s.engine}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logf("view server: %v", err)
		}
	}()
	s.logf("view server listening on %s", listener.Addr())
	return nil
}

// Attached reports whether a panel is currently connected.
func (s *Server) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panel != nil
}

// Addr reports the bound address, useful when the configured port is 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, failing all pending requests.
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	if s.panel != nil {
		_ = s.panel.Close()
		s.panel = nil
	}
	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(ctx)
	}
	s.wg.Wait()
	return nil
}

// Request sends req to the panel and blocks until it answers or ctx ends.
// With no panel connected, a non-prompting request is acknowledged as
// unsuccessful rather than failing the pipeline; a prompting request
// errors because its answer feeds back into the task stream.
func (s *Server) Request(ctx context.Context, req model.ViewRequest) (model.ViewResponse, error) {
	id := uuid.NewString()
	frame := outboundFrame{
		ID:          id,
		Kind:        req.Kind,
		Header:      req.Header,
		Body:        req.Body,
		Placeholder: req.Placeholder,
		Candidates:  req.Candidates,
	}

	s.mu.Lock()
	panel := s.panel
	if panel == nil {
		s.mu.Unlock()
		if req.Prompting() {
			return model.ViewResponse{}, fmt.Errorf("view request %s: no panel connected", req)
		}
		return model.ViewResponse{Success: false}, nil
	}
	ch := make(chan model.ViewResponse, 1)
	s.pending[id] = ch
	err := panel.WriteJSON(frame)
	s.mu.Unlock()

	if err != nil {
		s.dropPending(id)
		return model.ViewResponse{}, fmt.Errorf("send view request %s: %w", req, err)
	}

	if req.Prompting() && s.cfg.PromptTimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.PromptTimeoutSec)*time.Second)
		defer cancel()
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return model.ViewResponse{}, fmt.Errorf("view request %s: panel went away", req)
		}
		return resp, nil
	case <-ctx.Done():
		s.dropPending(id)
		return model.ViewResponse{}, fmt.Errorf("view request %s: %w", req, ctx.Err())
	}
}

func (s *Server) dropPending(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// handleWS upgrades the panel connection. A newer panel replaces an older
// one; the view prompting channel is a singleton.
func (s *Server) handleWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logf("upgrade view panel: %v", err)
		return
	}

	s.mu.Lock()
	if s.panel != nil {
		_ = s.panel.Close()
	}
	s.panel = conn
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(events.EventViewConnected, map[string]any{"remote": conn.RemoteAddr().String()})
	}
	s.emitEvent(model.ViewEvent{Kind: model.ViewEventInitialized})

	s.wg.Add(1)
	go s.readLoop(conn)
}

// readLoop drains one panel connection: answers resolve their pending
// requests, event frames surface as view events, and connection loss
// counts as panel destruction.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logf("panic in view readLoop: %v", r)
		}
	}()

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			break
		}

		if frame.Event != "" {
			switch model.ViewEventKind(frame.Event) {
			case model.ViewEventInitialized, model.ViewEventDestroyed:
				s.emitEvent(model.ViewEvent{Kind: model.ViewEventKind(frame.Event)})
			default:
				s.logf("unknown view event %q", frame.Event)
			}
			continue
		}

		s.mu.Lock()
		ch, ok := s.pending[frame.ID]
		if ok {
			delete(s.pending, frame.ID)
		}
		s.mu.Unlock()
		if !ok {
			s.logf("unmatched view response id=%s", frame.ID)
			continue
		}
		ch <- model.ViewResponse{
			Success:     frame.Success,
			Input:       frame.Input,
			Interrupted: frame.Interrupted,
		}
	}

	s.mu.Lock()
	stillCurrent := s.panel == conn
	if stillCurrent {
		s.panel = nil
		for id, ch := range s.pending {
			close(ch)
			delete(s.pending, id)
		}
	}
	s.mu.Unlock()
	_ = conn.Close()

	if stillCurrent && s.ctx.Err() == nil {
		if s.bus != nil {
			s.bus.Publish(events.EventViewDestroyed, nil)
		}
		s.emitEvent(model.ViewEvent{Kind: model.ViewEventDestroyed})
	}
}

func (s *Server) emitEvent(ev model.ViewEvent) {
	if s.sink != nil {
		s.sink(ev)
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf("%s INFO view: %s", time.Now().Format(time.RFC3339), fmt.Sprintf(format, args...))
	}
}
