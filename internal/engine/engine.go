// Package engine assembles the document core and exposes it over the RPC
// surface: one active document, its snapshot history, the autosave
// scheduler, and the tool dispatcher, all sharing one event bus.
package engine

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"draftdesk/engine/internal/appdirs"
	"draftdesk/engine/internal/autosave"
	"draftdesk/engine/internal/config"
	"draftdesk/engine/internal/dispatch"
	"draftdesk/engine/internal/document"
	"draftdesk/engine/internal/event"
	"draftdesk/engine/internal/fileaccess"
	"draftdesk/engine/internal/logging"
	"draftdesk/engine/internal/snapshot"
)

const (
	EngineVersion = "0.1.0"
	APIVersion    = "1"
)

// EventNotificationMethod is the RPC notification that carries bus events.
const EventNotificationMethod = "EngineEvent"

type Notifier func(method string, params any)

type Engine struct {
	dataDir    string
	config     *config.Store
	bus        *event.Bus
	fs         fileaccess.FileAccess
	store      *document.Store
	snapshots  *snapshot.Manager
	scheduler  *autosave.Scheduler
	dispatcher *dispatch.Dispatcher
	watcher    *fileaccess.Watcher
	logger     *slog.Logger

	notifyMu sync.Mutex
	notify   Notifier

	wsMu      sync.Mutex
	workspace string
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func New(opts ...Option) (*Engine, error) {
	e := &Engine{logger: logging.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	dataDir, err := appdirs.DataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	e.dataDir = dataDir
	e.config = config.NewStore(appdirs.SettingsPath(dataDir))
	cfg, err := e.config.Load()
	if err != nil {
		e.logger.Warn("engine.config_load_failed", "error", err.Error())
		cfg = config.Default()
	}

	e.bus = event.NewBus()
	e.fs = fileaccess.NewOS()
	e.store = document.NewStore(e.fs, e.bus,
		document.WithLogger(e.logger.With("component", "document")),
		document.WithSavePolicy(cfg.Retry.Policy()),
	)
	e.snapshots = snapshot.NewManager(e.store, e.bus,
		snapshot.WithLogger(e.logger.With("component", "snapshot")),
	)
	e.store.SetSnapshotRecorder(e.snapshots)
	e.scheduler = autosave.NewScheduler(&guardedSaver{engine: e}, e.bus,
		autosave.WithLogger(e.logger.With("component", "autosave")),
	)
	e.dispatcher = dispatch.NewDispatcher(
		dispatch.WithLogger(e.logger.With("component", "dispatch")),
		dispatch.WithIOPolicy(cfg.Retry.Policy()),
	)

	// Clearing or replacing the document drops the stale autosave timer
	// and starts a fresh history.
	e.store.OnReplace(func() {
		e.scheduler.Disable()
		e.snapshots.Reset()
	})

	watcher, err := fileaccess.NewWatcher(e.bus)
	if err != nil {
		e.logger.Warn("engine.watcher_unavailable", "error", err.Error())
	} else {
		e.watcher = watcher
	}

	e.bus.Subscribe(e.forwardEvent)

	if cfg.AutoSave.Enabled {
		e.scheduler.Enable(cfg.AutoSave.Interval())
	}
	return e, nil
}

// SetNotifier wires the RPC notification sink. Events published before a
// notifier is set are dropped.
func (e *Engine) SetNotifier(notify Notifier) {
	e.notifyMu.Lock()
	e.notify = notify
	e.notifyMu.Unlock()
}

// Close releases the file watcher. The schedulers stop with the process.
func (e *Engine) Close() error {
	e.scheduler.Disable()
	if e.watcher != nil {
		return e.watcher.Close()
	}
	return nil
}

func (e *Engine) forwardEvent(evt event.Event) {
	e.notifyMu.Lock()
	notify := e.notify
	e.notifyMu.Unlock()
	if notify != nil {
		notify(EventNotificationMethod, evt)
	}
}

// Workspace returns the currently open workspace root, or "".
func (e *Engine) Workspace() string {
	e.wsMu.Lock()
	defer e.wsMu.Unlock()
	return e.workspace
}

func (e *Engine) setWorkspace(path string) {
	e.wsMu.Lock()
	e.workspace = path
	e.wsMu.Unlock()
}

// guardedSaver routes autosave writes through the same watcher guard as
// manual saves, so the engine's own writes never surface as external
// changes.
type guardedSaver struct {
	engine *Engine
}

func (g *guardedSaver) IsDirty() bool {
	return g.engine.store.IsDirty()
}

func (g *guardedSaver) Save(ctx context.Context) error {
	return g.engine.saveGuarded(ctx)
}

func (e *Engine) saveGuarded(ctx context.Context) error {
	if e.watcher != nil {
		e.watcher.Suspend()
		defer e.watcher.Resume()
	}
	return e.store.Save(ctx)
}
