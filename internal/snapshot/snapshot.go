// Package snapshot keeps the append-only history of document states. Each
// snapshot holds a full zstd-compressed copy of the content; revert restores
// a prior state without discarding anything recorded after it.
package snapshot

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"draftdesk/engine/internal/diff"
	"draftdesk/engine/internal/errinfo"
	"draftdesk/engine/internal/event"
	"draftdesk/engine/internal/logging"
)

// DocumentAccess is the slice of the document store the history needs.
type DocumentAccess interface {
	Loaded() bool
	Content() string
	Restore(content string) error
}

// Snapshot is one recorded document state. Content lives compressed in the
// manager; Snapshot carries metadata only.
type Snapshot struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Trigger       string    `json:"trigger"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Size          int       `json:"size"`
	Hash          string    `json:"hash"`
}

// hashContent returns the sha256 of the uncompressed content.
func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", sum)
}

type entry struct {
	meta       Snapshot
	compressed []byte
}

// Manager owns the snapshot history for the active document.
type Manager struct {
	doc     DocumentAccess
	bus     *event.Bus
	logger  *slog.Logger
	encoder *zstd.Encoder
	decoder *zstd.Decoder

	mu      sync.RWMutex
	history []entry
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func NewManager(doc DocumentAccess, bus *event.Bus, opts ...Option) *Manager {
	encoder, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ := zstd.NewReader(nil)
	m := &Manager{
		doc:     doc,
		bus:     bus,
		logger:  logging.Nop(),
		encoder: encoder,
		decoder: decoder,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Record appends a snapshot of the given content and returns its id. It
// never fails; compression of an in-memory string cannot error. Timestamps
// are strictly increasing even when the wall clock stalls.
func (m *Manager) Record(content, trigger, correlationID string) string {
	compressed := m.encoder.EncodeAll([]byte(content), nil)

	m.mu.Lock()
	ts := time.Now()
	if n := len(m.history); n > 0 && !ts.After(m.history[n-1].meta.Timestamp) {
		ts = m.history[n-1].meta.Timestamp.Add(time.Nanosecond)
	}
	meta := Snapshot{
		ID:            uuid.New().String(),
		Timestamp:     ts,
		Trigger:       trigger,
		CorrelationID: correlationID,
		Size:          len(content),
		Hash:          hashContent(content),
	}
	m.history = append(m.history, entry{meta: meta, compressed: compressed})
	m.mu.Unlock()

	m.logger.Info("snapshot.recorded", "id", meta.ID, "trigger", trigger, "bytes", meta.Size)
	m.bus.Publish(event.SnapshotCreated(meta.ID, trigger))
	return meta.ID
}

// Take records the current document content. Fails only when no document
// is loaded.
func (m *Manager) Take(trigger, correlationID string) (Snapshot, error) {
	if !m.doc.Loaded() {
		return Snapshot{}, errinfo.NoDocumentLoaded()
	}
	id := m.Record(m.doc.Content(), trigger, correlationID)
	snap, ok := m.find(id)
	if !ok {
		return Snapshot{}, errinfo.Unknown("snapshot vanished after record")
	}
	return snap, nil
}

// List returns snapshot metadata oldest first.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, len(m.history))
	for i, e := range m.history {
		out[i] = e.meta
	}
	return out
}

// Content decompresses and returns the content of one snapshot.
func (m *Manager) Content(id string) (string, error) {
	m.mu.RLock()
	var compressed []byte
	for _, e := range m.history {
		if e.meta.ID == id {
			compressed = e.compressed
			break
		}
	}
	m.mu.RUnlock()
	if compressed == nil {
		return "", errinfo.SnapshotNotFound(fmt.Sprintf("no snapshot with id %s", id))
	}
	raw, err := m.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return "", errinfo.Unknown(fmt.Sprintf("decompress snapshot %s: %v", id, err))
	}
	return string(raw), nil
}

// Revert restores the document to the snapshot's content. The history is
// untouched; snapshots recorded after id survive, and reverting twice to
// the same id is a no-op the second time.
func (m *Manager) Revert(id string) error {
	content, err := m.Content(id)
	if err != nil {
		return err
	}
	if err := m.doc.Restore(content); err != nil {
		return err
	}
	m.logger.Info("snapshot.reverted", "id", id)
	return nil
}

// Diff returns the line diff from the snapshot's content to the current
// document content.
func (m *Manager) Diff(id string) ([]diff.Hunk, error) {
	content, err := m.Content(id)
	if err != nil {
		return nil, err
	}
	if !m.doc.Loaded() {
		return nil, errinfo.NoDocumentLoaded()
	}
	return diff.TextDiff(content, m.doc.Content()), nil
}

// Reset drops the history. Wired to the document store's replace hook so a
// newly loaded document starts with a clean history.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.history = nil
	m.mu.Unlock()
}

// Len reports the number of recorded snapshots.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.history)
}

func (m *Manager) find(id string) (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.history {
		if e.meta.ID == id {
			return e.meta, true
		}
	}
	return Snapshot{}, false
}
