package document

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"draftdesk/engine/internal/errinfo"
	"draftdesk/engine/internal/event"
	"draftdesk/engine/internal/fileaccess"
	"draftdesk/engine/internal/position"
	"draftdesk/engine/internal/retry"
)

func newTestStore(t *testing.T, content string) (*Store, string, *event.Bus) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	bus := event.NewBus()
	store := NewStore(fileaccess.NewOS(), bus)
	if err := store.Load(context.Background(), path); err != nil {
		t.Fatalf("load: %v", err)
	}
	return store, path, bus
}

func TestLoadResetsDirtyAndEmitsLoaded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	bus := event.NewBus()
	var events []event.Event
	bus.Subscribe(func(evt event.Event) { events = append(events, evt) })
	store := NewStore(fileaccess.NewOS(), bus)
	if err := store.Load(context.Background(), path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if store.IsDirty() {
		t.Fatalf("fresh load should not be dirty")
	}
	if store.Content() != "hello" {
		t.Fatalf("unexpected content %q", store.Content())
	}
	if len(events) != 1 || events[0].Type != event.TypeDocumentLoaded || events[0].Path != path {
		t.Fatalf("expected document_loaded event, got %+v", events)
	}
}

func TestLoadMissingFilePropagatesWithoutRetry(t *testing.T) {
	bus := event.NewBus()
	store := NewStore(fileaccess.NewOS(), bus)
	err := store.Load(context.Background(), filepath.Join(t.TempDir(), "absent.md"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if errinfo.From(err).ErrorCode != errinfo.CodeFileNotFound {
		t.Fatalf("expected file not found, got %v", err)
	}
	if store.Loaded() {
		t.Fatalf("store should stay empty after failed load")
	}
}

func TestApplyEditRoundTrip(t *testing.T) {
	store, _, _ := newTestStore(t, "hello brave world")
	removed := "brave "
	if err := store.ApplyEdit(position.Delete(6, 12)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if store.Content() != "hello world" {
		t.Fatalf("after delete: %q", store.Content())
	}
	if err := store.ApplyEdit(position.Insert(6, removed)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if store.Content() != "hello brave world" {
		t.Fatalf("round trip failed: %q", store.Content())
	}
	if !store.IsDirty() {
		t.Fatalf("edits should mark document dirty")
	}
}

func TestApplyEditValidatesRange(t *testing.T) {
	store, _, _ := newTestStore(t, "short")
	cases := []position.Op{
		position.Delete(-1, 2),
		position.Delete(3, 2),
		position.Delete(0, 6),
		position.Insert(9, "x"),
	}
	for _, op := range cases {
		err := store.ApplyEdit(op)
		if err == nil {
			t.Fatalf("expected range error for %s", op)
		}
		if errinfo.From(err).ErrorCode != errinfo.CodeRangeInvalid {
			t.Fatalf("expected range error for %s, got %v", op, err)
		}
	}
	if store.Content() != "short" {
		t.Fatalf("failed edits must leave content unchanged")
	}
	if store.IsDirty() {
		t.Fatalf("failed edits must not mark dirty")
	}
}

func TestSizeLimitLeavesContentUnchanged(t *testing.T) {
	store, _, _ := newTestStore(t, strings.Repeat("a", 9*1024*1024))
	_, err := store.Append(strings.Repeat("b", 2*1024*1024))
	if err == nil {
		t.Fatalf("expected size limit error")
	}
	if errinfo.From(err).ErrorCode != errinfo.CodeSizeLimitExceeded {
		t.Fatalf("expected size limit exceeded, got %v", err)
	}
	if len(store.Content()) != 9*1024*1024 {
		t.Fatalf("content changed after failed append")
	}
	if store.IsDirty() {
		t.Fatalf("failed append must not mark dirty")
	}
}

func TestSaveClearsDirtyAndRecordsSnapshot(t *testing.T) {
	store, path, bus := newTestStore(t, "v1")
	rec := &fakeRecorder{}
	store.SetSnapshotRecorder(rec)
	var saved []event.Event
	bus.Subscribe(func(evt event.Event) {
		if evt.Type == event.TypeDocumentSaved {
			saved = append(saved, evt)
		}
	})
	if _, err := store.Append(" v2"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if store.IsDirty() {
		t.Fatalf("save should clear dirty")
	}
	if store.LastSavedAt().IsZero() {
		t.Fatalf("save should record timestamp")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "v1 v2" {
		t.Fatalf("persisted %q", data)
	}
	if len(rec.records) != 1 || rec.records[0].trigger != TriggerManualSave {
		t.Fatalf("expected one manual_save snapshot, got %+v", rec.records)
	}
	if len(saved) != 1 {
		t.Fatalf("expected one document_saved event")
	}
}

func TestSaveFailureKeepsDirtyAndEmitsError(t *testing.T) {
	bus := event.NewBus()
	fs := &flakyFS{failures: 99}
	store := NewStore(fs, bus, WithSavePolicy(retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2}))
	fs.contents = map[string]string{"/doc.md": "v1"}
	if err := store.Load(context.Background(), "/doc.md"); err != nil {
		t.Fatalf("load: %v", err)
	}
	var errEvents int
	bus.Subscribe(func(evt event.Event) {
		if evt.Type == event.TypeError {
			errEvents++
		}
	})
	if _, err := store.Append(" v2"); err != nil {
		t.Fatalf("append: %v", err)
	}
	err := store.Save(context.Background())
	if err == nil {
		t.Fatalf("expected save failure")
	}
	if fs.writes != 3 {
		t.Fatalf("expected 3 write attempts, got %d", fs.writes)
	}
	if !store.IsDirty() {
		t.Fatalf("failed save must keep dirty")
	}
	if errEvents != 1 {
		t.Fatalf("expected error event")
	}
	if store.Content() != "v1 v2" {
		t.Fatalf("failed save must not roll back content")
	}
}

func TestSaveRetriesTransientWriteFailures(t *testing.T) {
	bus := event.NewBus()
	fs := &flakyFS{failures: 2, contents: map[string]string{"/doc.md": "v1"}}
	store := NewStore(fs, bus, WithSavePolicy(retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2}))
	if err := store.Load(context.Background(), "/doc.md"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := store.Save(context.Background()); err != nil {
		t.Fatalf("expected third attempt to succeed: %v", err)
	}
	if fs.writes != 3 {
		t.Fatalf("expected 3 write attempts, got %d", fs.writes)
	}
}

func TestConcurrentAppendsAllLand(t *testing.T) {
	store, _, _ := newTestStore(t, "base")
	var wg sync.WaitGroup
	for _, suffix := range []string{"\nA", "\nB", "\nC"} {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			if _, err := store.Append(text); err != nil {
				t.Errorf("append %q: %v", text, err)
			}
		}(suffix)
	}
	wg.Wait()
	content := store.Content()
	for _, suffix := range []string{"\nA", "\nB", "\nC"} {
		if !strings.Contains(content, suffix) {
			t.Fatalf("lost append %q in %q", suffix, content)
		}
	}
	if len(content) != len("base")+3*len("\nA") {
		t.Fatalf("unexpected final length %d", len(content))
	}
}

func TestClearRunsReplaceCallbacksAndEmitsNothing(t *testing.T) {
	store, _, bus := newTestStore(t, "content")
	var events int
	bus.Subscribe(func(event.Event) { events++ })
	var replaced int
	store.OnReplace(func() { replaced++ })
	store.Clear()
	if store.Loaded() {
		t.Fatalf("clear should discard the document")
	}
	if replaced != 1 {
		t.Fatalf("expected replace callback, got %d", replaced)
	}
	if events != 0 {
		t.Fatalf("clear must emit nothing, got %d events", events)
	}
}

func TestLoadReplacingDocumentRunsCallbacks(t *testing.T) {
	store, _, _ := newTestStore(t, "first")
	var replaced int
	store.OnReplace(func() { replaced++ })
	dir := t.TempDir()
	other := filepath.Join(dir, "other.md")
	if err := os.WriteFile(other, []byte("second"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := store.Load(context.Background(), other); err != nil {
		t.Fatalf("load: %v", err)
	}
	if replaced != 1 {
		t.Fatalf("replacing load should run callbacks once, got %d", replaced)
	}
	if store.Content() != "second" {
		t.Fatalf("unexpected content %q", store.Content())
	}
}

func TestRestoreClearsDirty(t *testing.T) {
	store, _, _ := newTestStore(t, "original")
	if _, err := store.Append(" edited"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Restore("original"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if store.Content() != "original" {
		t.Fatalf("unexpected content %q", store.Content())
	}
	if store.IsDirty() {
		t.Fatalf("restore should clear dirty")
	}
}

type recorded struct {
	content       string
	trigger       string
	correlationID string
}

type fakeRecorder struct {
	records []recorded
}

func (f *fakeRecorder) Record(content, trigger, correlationID string) string {
	f.records = append(f.records, recorded{content, trigger, correlationID})
	return "snap-1"
}

// flakyFS fails the first N writes with a transient error, then succeeds.
type flakyFS struct {
	mu       sync.Mutex
	contents map[string]string
	failures int
	writes   int
}

func (f *flakyFS) Read(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.contents[path]
	if !ok {
		return "", errinfo.FileNotFound(path)
	}
	return content, nil
}

func (f *flakyFS) Write(_ context.Context, path, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.writes <= f.failures {
		return errinfo.FileWriteFailed("transient disk error")
	}
	if f.contents == nil {
		f.contents = map[string]string{}
	}
	f.contents[path] = content
	return nil
}

func (f *flakyFS) List(context.Context, string) ([]fileaccess.Entry, error) {
	return nil, errinfo.NoWorkspaceOpen()
}

func (f *flakyFS) Resolve(_ context.Context, _, rel string) (string, error) {
	return rel, nil
}
