package event

import "time"

// Type discriminates event variants published on the Bus.
type Type string

const (
	TypeContentChanged         Type = "content_changed"
	TypeDocumentSaved          Type = "document_saved"
	TypeDocumentLoaded         Type = "document_loaded"
	TypeSnapshotCreated        Type = "snapshot_created"
	TypeDocumentExternalChange Type = "document_external_change"
	TypeError                  Type = "error"
)

// Event is a tagged variant; only the fields relevant to Type are set.
type Event struct {
	Type       Type      `json:"type"`
	Content    string    `json:"content,omitempty"`
	Path       string    `json:"path,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
	SnapshotID string    `json:"snapshot_id,omitempty"`
	Trigger    string    `json:"trigger,omitempty"`
	Message    string    `json:"message,omitempty"`
}

func ContentChanged(content string) Event {
	return Event{Type: TypeContentChanged, Content: content}
}

func DocumentSaved(at time.Time) Event {
	return Event{Type: TypeDocumentSaved, Timestamp: at}
}

func DocumentLoaded(path string) Event {
	return Event{Type: TypeDocumentLoaded, Path: path}
}

func SnapshotCreated(id, trigger string) Event {
	return Event{Type: TypeSnapshotCreated, SnapshotID: id, Trigger: trigger}
}

func DocumentExternalChange(path string) Event {
	return Event{Type: TypeDocumentExternalChange, Path: path}
}

func Error(message string) Event {
	return Event{Type: TypeError, Message: message}
}
