package engine

import (
	"context"
	"encoding/json"
	"time"

	"draftdesk/engine/internal/errinfo"
	"draftdesk/engine/internal/position"
)

func decodeParams(params json.RawMessage, v any) *errinfo.ErrorInfo {
	if len(params) == 0 {
		return errinfo.Unknown("missing params")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return errinfo.Unknown("invalid params: " + err.Error())
	}
	return nil
}

type documentState struct {
	Loaded      bool   `json:"loaded"`
	Path        string `json:"path,omitempty"`
	Dirty       bool   `json:"dirty"`
	LastSavedAt string `json:"last_saved_at,omitempty"`
	Length      int    `json:"length"`
}

func (e *Engine) documentState() documentState {
	state := documentState{
		Loaded: e.store.Loaded(),
		Path:   e.store.Path(),
		Dirty:  e.store.IsDirty(),
		Length: len(e.store.Content()),
	}
	if at := e.store.LastSavedAt(); !at.IsZero() {
		state.LastSavedAt = at.Format(time.RFC3339)
	}
	return state
}

func (e *Engine) DocumentLoad(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		Path string `json:"path"`
	}
	if errInfo := decodeParams(params, &req); errInfo != nil {
		return nil, errInfo
	}
	if req.Path == "" {
		return nil, errinfo.FileNotFound("path is required")
	}
	if err := e.store.Load(ctx, req.Path); err != nil {
		return nil, errinfo.From(err)
	}
	if e.watcher != nil {
		if err := e.watcher.Watch(req.Path); err != nil {
			e.logger.Warn("engine.watch_failed", "path", req.Path, "error", err.Error())
		}
	}
	return e.documentState(), nil
}

func (e *Engine) DocumentGetContent(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	if !e.store.Loaded() {
		return nil, errinfo.NoDocumentLoaded()
	}
	return map[string]any{"content": e.store.Content()}, nil
}

func (e *Engine) DocumentSave(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	if err := e.saveGuarded(ctx); err != nil {
		return nil, errinfo.From(err)
	}
	return e.documentState(), nil
}

func (e *Engine) DocumentClear(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	e.store.Clear()
	if e.watcher != nil {
		if err := e.watcher.Watch(""); err != nil {
			e.logger.Warn("engine.unwatch_failed", "error", err.Error())
		}
	}
	return e.documentState(), nil
}

type appliedOp struct {
	Kind  string `json:"kind"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text,omitempty"`
}

// DocumentApplyEdit accepts the editor's whole-buffer transition and
// applies the classified minimal operation.
func (e *Engine) DocumentApplyEdit(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		NewContent     string `json:"new_content"`
		SelectionStart int    `json:"selection_start"`
		SelectionEnd   int    `json:"selection_end"`
	}
	if errInfo := decodeParams(params, &req); errInfo != nil {
		return nil, errInfo
	}
	result, err := e.store.ApplyTransition(req.NewContent, req.SelectionStart, req.SelectionEnd)
	if err != nil {
		return nil, errinfo.From(err)
	}
	return map[string]any{
		"op": appliedOp{
			Kind:  result.Op.Kind.String(),
			Start: result.Op.Start,
			End:   result.Op.End,
			Text:  result.Op.Text,
		},
		"caret": result.Caret,
		"noop":  result.Op.Kind == position.KindNoOp,
	}, nil
}
