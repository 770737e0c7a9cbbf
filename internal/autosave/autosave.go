// Package autosave schedules background persistence for the active
// document. Two triggers feed the same save path: a debounced reaction to
// content_changed events, and a repeating interval tick that catches a
// dirty document the debounce missed.
package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bep/debounce"

	"draftdesk/engine/internal/event"
	"draftdesk/engine/internal/logging"
)

// Saver is the slice of the document store the scheduler drives.
type Saver interface {
	IsDirty() bool
	Save(ctx context.Context) error
}

// Scheduler owns the autosave timers. Enable and Disable may be called
// from any goroutine; re-enabling replaces the previous timer rather than
// stacking a second one.
type Scheduler struct {
	saver  Saver
	bus    *event.Bus
	logger *slog.Logger

	mu        sync.Mutex
	enabled   bool
	interval  time.Duration
	ticker    *time.Ticker
	stop      chan struct{}
	debounced func(func())
	unsub     func()
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

func NewScheduler(saver Saver, bus *event.Bus, opts ...Option) *Scheduler {
	s := &Scheduler{
		saver:  saver,
		bus:    bus,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enable arms autosave with the given interval. A previously armed timer
// is cancelled first.
func (s *Scheduler) Enable(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.mu.Lock()
	s.disableLocked()
	s.enabled = true
	s.interval = interval
	s.ticker = time.NewTicker(interval)
	s.stop = make(chan struct{})
	s.debounced = debounce.New(interval)
	debounced := s.debounced
	s.unsub = s.bus.Subscribe(func(evt event.Event) {
		if evt.Type == event.TypeContentChanged {
			debounced(s.saveIfDirty)
		}
	})
	go s.tickLoop(s.ticker.C, s.stop)
	s.mu.Unlock()
	s.logger.Info("autosave.enabled", "interval", interval.String())
}

// Disable cancels any pending timer. Safe to call when already disabled.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	wasEnabled := s.enabled
	s.disableLocked()
	s.mu.Unlock()
	if wasEnabled {
		s.logger.Info("autosave.disabled")
	}
}

// Enabled reports whether autosave is armed and with what interval.
func (s *Scheduler) Enabled() (bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled, s.interval
}

// disableLocked tears down the timer state. Caller holds s.mu.
func (s *Scheduler) disableLocked() {
	if !s.enabled {
		return
	}
	s.enabled = false
	s.ticker.Stop()
	close(s.stop)
	s.unsub()
	s.ticker = nil
	s.stop = nil
	s.debounced = nil
	s.unsub = nil
}

func (s *Scheduler) tickLoop(ticks <-chan time.Time, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticks:
			s.saveIfDirty()
		}
	}
}

func (s *Scheduler) saveIfDirty() {
	if !s.saver.IsDirty() {
		return
	}
	if err := s.saver.Save(context.Background()); err != nil {
		// Save already emitted the error event; the document stays dirty
		// and the next tick retries.
		s.logger.Warn("autosave.save_failed", "error", err.Error())
	}
}
