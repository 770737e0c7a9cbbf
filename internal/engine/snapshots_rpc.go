package engine

import (
	"context"
	"encoding/json"

	"draftdesk/engine/internal/errinfo"
)

func (e *Engine) SnapshotsList(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	return map[string]any{"snapshots": e.snapshots.List()}, nil
}

func (e *Engine) SnapshotRevert(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		ID string `json:"id"`
	}
	if errInfo := decodeParams(params, &req); errInfo != nil {
		return nil, errInfo
	}
	if req.ID == "" {
		return nil, errinfo.SnapshotNotFound("id is required")
	}
	if err := e.snapshots.Revert(req.ID); err != nil {
		return nil, errinfo.From(err)
	}
	return e.documentState(), nil
}

func (e *Engine) SnapshotDiff(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		ID string `json:"id"`
	}
	if errInfo := decodeParams(params, &req); errInfo != nil {
		return nil, errInfo
	}
	if req.ID == "" {
		return nil, errinfo.SnapshotNotFound("id is required")
	}
	hunks, err := e.snapshots.Diff(req.ID)
	if err != nil {
		return nil, errinfo.From(err)
	}
	return map[string]any{"hunks": hunks}, nil
}
