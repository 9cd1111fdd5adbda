// Package daemon wires the agdad process together: the single-instance
// lock, the dispatcher and its session, the Agda bridge, the view server,
// the editor-facing UDS server, and config live reload.
package daemon

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/choukh/agda-mode-vscode/internal/dispatcher"
	"github.com/choukh/agda-mode-vscode/internal/events"
	"github.com/choukh/agda-mode-vscode/internal/handler"
	"github.com/choukh/agda-mode-vscode/internal/lock"
	"github.com/choukh/agda-mode-vscode/internal/model"
	"github.com/choukh/agda-mode-vscode/internal/notify"
	"github.com/choukh/agda-mode-vscode/internal/session"
	"github.com/choukh/agda-mode-vscode/internal/setup"
	"github.com/choukh/agda-mode-vscode/internal/uds"
	"github.com/choukh/agda-mode-vscode/internal/view"
)

type LogLevel = dispatcher.LogLevel

const (
	LogLevelDebug = dispatcher.LogLevelDebug
	LogLevelInfo  = dispatcher.LogLevelInfo
	LogLevelWarn  = dispatcher.LogLevelWarn
	LogLevelError = dispatcher.LogLevelError
)

// Daemon is the main agdad process.
type Daemon struct {
	baseDir  string
	config   model.Config
	logLevel LogLevel
	logger   *log.Logger
	logFile  io.Closer

	fileLock *lock.FileLock
	server   *uds.Server
	watcher  *fsnotify.Watcher

	bus         *events.Bus
	diagnostics *events.DiagnosticsLogger
	viewServer  *view.Server
	sess        *session.Session
	disp        *dispatcher.Dispatcher

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shutdown sync.Once

	forceExit atomic.Bool
}

// New creates a Daemon instance logging to baseDir/logs/daemon.log.
func New(baseDir string, cfg model.Config) (*Daemon, error) {
	logPath := filepath.Join(baseDir, "logs", "daemon.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open daemon log: %w", err)
	}

	return newDaemon(baseDir, cfg, logFile, logFile)
}

// newDaemon is the internal constructor for testing.
func newDaemon(baseDir string, cfg model.Config, w io.Writer, closer io.Closer) (*Daemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	logger := log.New(w, "", 0)
	level := dispatcher.ParseLogLevel(cfg.Logging.Level)

	bus := events.NewBus(256)
	viewServer := view.NewServer(cfg.View, logger, bus)
	sess := session.New(cfg, viewServer, logger, level, bus)
	disp := dispatcher.New(ctx, sess, handler.NewDefault(), logger, level)
	disp.SetEventBus(bus)
	viewServer.SetEventSink(disp.DispatchViewEvent)

	d := &Daemon{
		baseDir:    baseDir,
		config:     cfg,
		logLevel:   level,
		logger:     logger,
		logFile:    closer,
		fileLock:   lock.NewFileLock(filepath.Join(baseDir, "locks", "daemon.lock")),
		server:     uds.NewServer(filepath.Join(baseDir, uds.DefaultSocketName)),
		bus:        bus,
		viewServer: viewServer,
		sess:       sess,
		disp:       disp,
		ctx:        ctx,
		cancel:     cancel,
	}

	return d, nil
}

// Run starts the daemon and blocks until shutdown completes.
func (d *Daemon) Run() error {
	if err := os.MkdirAll(filepath.Join(d.baseDir, "locks"), 0755); err != nil {
		return fmt.Errorf("create locks dir: %w", err)
	}
	if err := d.fileLock.TryLock(); err != nil {
		return fmt.Errorf("daemon lock: %w", err)
	}
	d.log(LogLevelInfo, "daemon starting pid=%d", os.Getpid())

	// Diagnostics log fed from the event bus
	diag, err := events.NewDiagnosticsLogger(filepath.Join(d.baseDir, "logs", "events.jsonl"), 0)
	if err != nil {
		d.cleanup()
		return fmt.Errorf("open diagnostics log: %w", err)
	}
	diag.Attach(d.bus)
	d.diagnostics = diag

	// Desktop notification hook for proof errors arriving unseen
	d.bus.Subscribe(events.EventProofError, func(e events.Event) {
		if !d.config.Notify.Enabled || d.viewServer.Attached() {
			return
		}
		msg, _ := e.Data["error"].(string)
		if err := notify.Send("Agda", msg); err != nil {
			d.log(LogLevelWarn, "notify: %v", err)
		}
	})

	// Config live reload
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.cleanup()
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	d.watcher = watcher
	if err := watcher.Add(d.baseDir); err != nil {
		d.cleanup()
		return fmt.Errorf("watch %s: %w", d.baseDir, err)
	}

	d.registerHandlers()

	if err := d.server.Start(); err != nil {
		d.cleanup()
		return fmt.Errorf("start UDS server: %w", err)
	}
	d.log(LogLevelInfo, "UDS server listening on %s", filepath.Join(d.baseDir, uds.DefaultSocketName))

	if err := d.viewServer.Start(); err != nil {
		d.cleanup()
		return fmt.Errorf("start view server: %w", err)
	}

	d.wg.Add(1)
	go d.fsnotifyLoop()

	d.log(LogLevelInfo, "daemon ready")
	d.waitSignals()

	return nil
}

// registerHandlers registers UDS request handlers.
func (d *Daemon) registerHandlers() {
	d.server.Handle(uds.CmdPing, func(req *uds.Request) *uds.Response {
		return uds.SuccessResponse(map[string]string{"status": "ok"})
	})

	d.server.Handle(uds.CmdDispatch, d.handleDispatch)
	d.server.Handle(uds.CmdStatus, d.handleStatus)

	d.server.Handle(uds.CmdShutdown, func(req *uds.Request) *uds.Response {
		d.log(LogLevelInfo, "shutdown requested via UDS")
		go d.Shutdown()
		return uds.SuccessResponse(map[string]string{"status": "shutdown_accepted"})
	})
}

// fsnotifyLoop reloads the log level when the config file changes.
func (d *Daemon) fsnotifyLoop() {
	defer d.wg.Done()

	cfgPath := setup.ConfigPath(d.baseDir)
	for {
		select {
		case <-d.ctx.Done():
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Name != cfgPath || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			d.reloadConfig(cfgPath)
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.log(LogLevelError, "fsnotify error=%v", err)
		}
	}
}

// reloadConfig picks up runtime-adjustable settings: log level and
// notification toggle. Everything else requires a restart.
func (d *Daemon) reloadConfig(cfgPath string) {
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		d.log(LogLevelWarn, "config reload failed: %v", err)
		return
	}
	if !strings.EqualFold(cfg.Logging.Level, d.config.Logging.Level) {
		level := dispatcher.ParseLogLevel(cfg.Logging.Level)
		d.logLevel = level
		d.disp.SetLogLevel(level)
		d.log(LogLevelInfo, "log level reloaded to %s", cfg.Logging.Level)
	}
	d.config.Logging = cfg.Logging
	d.config.Notify = cfg.Notify
}

// waitSignals blocks until a shutdown signal is received.
func (d *Daemon) waitSignals() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		d.log(LogLevelInfo, "received signal=%s, initiating graceful shutdown", sig)
	case <-d.ctx.Done():
		// Shutdown was triggered via UDS.
	}

	// Second signal forces exit
	go func() {
		<-sigCh
		d.log(LogLevelWarn, "received second signal, forcing exit")
		d.forceExit.Store(true)
		os.Exit(1)
	}()

	d.Shutdown()
}

// Shutdown performs graceful shutdown (idempotent via sync.Once).
func (d *Daemon) Shutdown() {
	d.shutdown.Do(func() {
		d.log(LogLevelInfo, "shutdown started")

		// 1. Cancel context: releases awaits inside the dispatcher
		d.cancel()

		// 2. Stop producers
		if d.watcher != nil {
			d.watcher.Close()
		}
		if d.server != nil {
			d.server.Stop()
		}
		if d.viewServer != nil {
			d.viewServer.Stop()
		}

		// 3. Tear the session down (stops Agda)
		if err := d.sess.Destroy(context.Background()); err != nil {
			d.log(LogLevelWarn, "destroy session: %v", err)
		}

		// 4. Drain with timeout
		timeout := d.config.Daemon.ShutdownTimeoutSec
		if timeout <= 0 {
			timeout = 30
		}
		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			d.log(LogLevelInfo, "all goroutines drained")
		case <-time.After(time.Duration(timeout) * time.Second):
			d.log(LogLevelWarn, "shutdown timeout after %ds, some operations may be incomplete", timeout)
		}

		d.cleanup()
		d.log(LogLevelInfo, "daemon stopped")
	})
}

func (d *Daemon) cleanup() {
	if d.diagnostics != nil {
		_ = d.diagnostics.Close()
	}
	if d.bus != nil {
		d.bus.Close()
	}
	_ = d.fileLock.Unlock()
	if d.logFile != nil {
		_ = d.logFile.Close()
	}
}

func (d *Daemon) log(level LogLevel, format string, args ...any) {
	if level < d.logLevel {
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
	d.logger.Printf("%s %s daemon: %s", time.Now().Format(time.RFC3339), levelStr, msg)
}
