package engine

import (
	"context"
	"encoding/json"
	"time"

	"draftdesk/engine/internal/config"
	"draftdesk/engine/internal/dispatch"
	"draftdesk/engine/internal/errinfo"
	"draftdesk/engine/internal/llm"
)

func (e *Engine) ToolsList(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	simplified := true
	if len(params) > 0 {
		var req struct {
			Simplified *bool `json:"simplified"`
		}
		if err := json.Unmarshal(params, &req); err == nil && req.Simplified != nil {
			simplified = *req.Simplified
		}
	}
	return map[string]any{"tools": dispatch.AvailableTools(simplified)}, nil
}

func (e *Engine) ToolExecute(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
		CallID    string          `json:"call_id"`
	}
	if errInfo := decodeParams(params, &req); errInfo != nil {
		return nil, errInfo
	}
	if req.Name == "" {
		return nil, errinfo.Unknown("tool name is required")
	}
	args := "{}"
	if len(req.Arguments) > 0 {
		args = string(req.Arguments)
	}
	call := llm.ToolCall{
		ID:   req.CallID,
		Type: "function",
		Function: llm.ToolCallFunction{
			Name:      req.Name,
			Arguments: args,
		},
	}
	result, err := e.dispatcher.Execute(ctx, call, dispatch.ExecContext{
		Store:     e.store,
		Recorder:  e.snapshots,
		Files:     e.fs,
		Bus:       e.bus,
		Workspace: e.Workspace(),
	})
	if err != nil {
		return nil, errinfo.From(err)
	}
	return map[string]any{"result": result}, nil
}

func (e *Engine) WorkspaceOpen(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		Path string `json:"path"`
	}
	if errInfo := decodeParams(params, &req); errInfo != nil {
		return nil, errInfo
	}
	if req.Path == "" {
		return nil, errinfo.NoWorkspaceOpen()
	}
	// Validate up front so a bad path fails here, not on first ls.
	if _, err := e.fs.List(ctx, req.Path); err != nil {
		return nil, errinfo.From(err)
	}
	e.setWorkspace(req.Path)
	return map[string]any{"workspace": req.Path}, nil
}

func (e *Engine) WorkspaceClose(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	e.setWorkspace("")
	return map[string]any{"workspace": ""}, nil
}

func (e *Engine) AutoSaveEnable(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		IntervalMs int `json:"interval_ms"`
	}
	if errInfo := decodeParams(params, &req); errInfo != nil {
		return nil, errInfo
	}
	cfg, err := e.config.Update(func(cfg *config.Config) {
		cfg.AutoSave.Enabled = true
		if req.IntervalMs > 0 {
			cfg.AutoSave.IntervalMs = req.IntervalMs
		}
	})
	if err != nil {
		return nil, errinfo.From(err)
	}
	e.scheduler.Enable(cfg.AutoSave.Interval())
	return e.autoSaveState(), nil
}

func (e *Engine) AutoSaveDisable(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	e.scheduler.Disable()
	if _, err := e.config.Update(func(cfg *config.Config) {
		cfg.AutoSave.Enabled = false
	}); err != nil {
		return nil, errinfo.From(err)
	}
	return e.autoSaveState(), nil
}

func (e *Engine) autoSaveState() map[string]any {
	enabled, interval := e.scheduler.Enabled()
	return map[string]any{
		"enabled":     enabled,
		"interval_ms": int(interval / time.Millisecond),
	}
}

func (e *Engine) EngineGetInfo(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	return map[string]any{
		"engine_version": EngineVersion,
		"api_version":    APIVersion,
		"document":       e.documentState(),
		"autosave":       e.autoSaveState(),
		"snapshot_count": e.snapshots.Len(),
		"workspace":      e.Workspace(),
	}, nil
}
