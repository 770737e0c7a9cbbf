// Package document owns the single active in-memory document: its content,
// dirty flag, and persistence. All mutating operations are serialized
// behind one mutation lock so overlapping tool calls never interleave
// buffer writes; readers see the latest committed state.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"draftdesk/engine/internal/errinfo"
	"draftdesk/engine/internal/event"
	"draftdesk/engine/internal/fileaccess"
	"draftdesk/engine/internal/logging"
	"draftdesk/engine/internal/position"
	"draftdesk/engine/internal/retry"
)

// MaxContentSize is the hard per-document cap. Mutations that would exceed
// it fail and leave content unchanged.
const MaxContentSize = 10 * 1024 * 1024

// SnapshotRecorder receives full-content copies for the history. Record
// never fails; it returns the new snapshot id.
type SnapshotRecorder interface {
	Record(content, trigger, correlationID string) string
}

// TriggerManualSave and TriggerToolExecution name the snapshot triggers.
const (
	TriggerManualSave    = "manual_save"
	TriggerToolExecution = "tool_execution"
)

// Store is the document store. Construct with NewStore and share one
// instance per engine; tests construct isolated instances.
type Store struct {
	fs         fileaccess.FileAccess
	bus        *event.Bus
	logger     *slog.Logger
	savePolicy retry.Policy

	mu          sync.RWMutex
	path        string
	content     string
	dirty       bool
	lastSavedAt time.Time
	loaded      bool

	recorder  SnapshotRecorder
	onReplace []func()
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithSavePolicy(policy retry.Policy) Option {
	return func(s *Store) { s.savePolicy = policy }
}

func NewStore(fs fileaccess.FileAccess, bus *event.Bus, opts ...Option) *Store {
	s := &Store{
		fs:         fs,
		bus:        bus,
		logger:     logging.Nop(),
		savePolicy: retry.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetSnapshotRecorder wires the snapshot history; called once during
// engine assembly.
func (s *Store) SetSnapshotRecorder(rec SnapshotRecorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = rec
}

// OnReplace registers a callback invoked whenever the active document is
// cleared or replaced. The autosave scheduler uses this to drop its timer
// before it can save through a stale handle.
func (s *Store) OnReplace(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReplace = append(s.onReplace, fn)
}

// Load reads path through FileAccess and makes it the active document,
// discarding any prior one without saving. Read failures propagate without
// retry; retry is a persistence concern, not a load concern.
func (s *Store) Load(ctx context.Context, path string) error {
	content, err := s.fs.Read(ctx, path)
	if err != nil {
		s.logger.Warn("document.load_failed", "path", path, "error", err.Error())
		return err
	}
	if len(content) > MaxContentSize {
		return errinfo.SizeLimitExceeded(fmt.Sprintf("%s is %d bytes, limit is %d", path, len(content), MaxContentSize))
	}

	s.mu.Lock()
	replaced := s.loaded
	callbacks := append([]func(){}, s.onReplace...)
	s.path = path
	s.content = content
	s.dirty = false
	s.loaded = true
	s.lastSavedAt = time.Time{}
	s.mu.Unlock()

	if replaced {
		for _, fn := range callbacks {
			fn()
		}
	}
	s.logger.Info("document.loaded", "path", path, "bytes", len(content))
	s.bus.Publish(event.DocumentLoaded(path))
	return nil
}

// Clear discards the active document without saving. It emits no events;
// registered replace callbacks still run so dependent timers shut down.
func (s *Store) Clear() {
	s.mu.Lock()
	callbacks := append([]func(){}, s.onReplace...)
	s.path = ""
	s.content = ""
	s.dirty = false
	s.loaded = false
	s.lastSavedAt = time.Time{}
	s.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}

// Loaded reports whether a document is active.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Content returns the current buffer. No side effects.
func (s *Store) Content() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content
}

func (s *Store) IsDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

func (s *Store) LastSavedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSavedAt
}

// ApplyEdit validates and applies one edit operation, marks the document
// dirty, and emits content_changed. A NoOp validates the document exists
// and otherwise does nothing.
func (s *Store) ApplyEdit(op position.Op) error {
	s.mu.Lock()
	newContent, err := s.applyLocked(op)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	changed := op.Kind != position.KindNoOp
	s.mu.Unlock()
	if changed {
		s.bus.Publish(event.ContentChanged(newContent))
	}
	return nil
}

// ApplyTransition classifies the whole-buffer transition to newContent
// using the pre-edit selection, applies the resulting operation, and
// returns it. Classification and application happen under one lock
// acquisition so concurrent edits cannot classify against a stale buffer.
func (s *Store) ApplyTransition(newContent string, selStart, selEnd int) (position.Result, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return position.Result{}, errinfo.NoDocumentLoaded()
	}
	result := position.Classify(s.content, newContent, selStart, selEnd)
	applied, err := s.applyLocked(result.Op)
	if err != nil {
		s.mu.Unlock()
		return position.Result{}, err
	}
	changed := result.Op.Kind != position.KindNoOp
	s.mu.Unlock()
	if changed {
		s.bus.Publish(event.ContentChanged(applied))
	}
	return result, nil
}

// Append inserts text at the end of the buffer. The insertion point is
// computed under the mutation lock, so concurrent appends cannot lose
// updates.
func (s *Store) Append(text string) (string, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return "", errinfo.NoDocumentLoaded()
	}
	op := position.Insert(len(s.content), text)
	newContent, err := s.applyLocked(op)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.mu.Unlock()
	s.bus.Publish(event.ContentChanged(newContent))
	return newContent, nil
}

// ReplaceFirst substitutes the first occurrence of target. Locating and
// editing happen under one lock acquisition so the offset cannot go stale.
func (s *Store) ReplaceFirst(target, replacement string) (string, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return "", errinfo.NoDocumentLoaded()
	}
	idx := strings.Index(s.content, target)
	if idx < 0 {
		s.mu.Unlock()
		return "", errinfo.TargetNotFound(fmt.Sprintf("target text not found: %.80q", target))
	}
	op := position.Replace(idx, idx+len(target), replacement)
	newContent, err := s.applyLocked(op)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.mu.Unlock()
	s.bus.Publish(event.ContentChanged(newContent))
	return newContent, nil
}

// applyLocked validates and applies op to s.content. Caller holds s.mu.
func (s *Store) applyLocked(op position.Op) (string, error) {
	if !s.loaded {
		return "", errinfo.NoDocumentLoaded()
	}
	if op.Kind == position.KindNoOp {
		return s.content, nil
	}
	if op.Start < 0 || op.End < op.Start || op.End > len(s.content) {
		return "", errinfo.RangeInvalid(fmt.Sprintf("range [%d, %d) invalid for %d-byte document", op.Start, op.End, len(s.content)))
	}
	var next string
	switch op.Kind {
	case position.KindInsert:
		next = s.content[:op.Start] + op.Text + s.content[op.Start:]
	case position.KindDelete:
		next = s.content[:op.Start] + s.content[op.End:]
	case position.KindReplace:
		next = s.content[:op.Start] + op.Text + s.content[op.End:]
	default:
		return "", errinfo.Unknown(fmt.Sprintf("unknown edit kind %d", op.Kind))
	}
	if len(next) > MaxContentSize {
		return "", errinfo.SizeLimitExceeded(fmt.Sprintf("edit grows document to %d bytes, limit is %d", len(next), MaxContentSize))
	}
	s.content = next
	s.dirty = true
	return next, nil
}

// Save persists the buffer through FileAccess, retrying transient write
// failures with exponential backoff. On success it clears dirty, records
// the manual_save snapshot and emits document_saved; on failure it emits
// an error event and keeps dirty set. An in-flight save always runs to
// completion, even if the caller's context is cancelled.
func (s *Store) Save(ctx context.Context) error {
	s.mu.RLock()
	if !s.loaded {
		s.mu.RUnlock()
		return errinfo.NoDocumentLoaded()
	}
	path := s.path
	content := s.content
	recorder := s.recorder
	s.mu.RUnlock()

	writeCtx := context.WithoutCancel(ctx)
	err := retry.Do(writeCtx, s.savePolicy, func() error {
		return s.fs.Write(writeCtx, path, content)
	})
	if err != nil {
		s.logger.Warn("document.save_failed", "path", path, "error", err.Error())
		s.bus.Publish(event.Error(errinfo.From(err).Error()))
		return err
	}

	now := time.Now()
	s.mu.Lock()
	// Only clear dirty if the buffer did not move on under us while the
	// bytes were in flight.
	if s.path == path && s.content == content {
		s.dirty = false
	}
	s.lastSavedAt = now
	s.mu.Unlock()

	var snapshotID string
	if recorder != nil {
		snapshotID = recorder.Record(content, TriggerManualSave, "")
	}
	s.logger.Info("document.saved", "path", path, "bytes", len(content), "snapshot_id", snapshotID)
	s.bus.Publish(event.DocumentSaved(now))
	return nil
}

// Restore replaces the buffer with snapshot content. Used by the snapshot
// history for revert; clears dirty and emits content_changed.
func (s *Store) Restore(content string) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return errinfo.NoDocumentLoaded()
	}
	if len(content) > MaxContentSize {
		s.mu.Unlock()
		return errinfo.SizeLimitExceeded(fmt.Sprintf("snapshot is %d bytes, limit is %d", len(content), MaxContentSize))
	}
	s.content = content
	s.dirty = false
	s.mu.Unlock()
	s.bus.Publish(event.ContentChanged(content))
	return nil
}
