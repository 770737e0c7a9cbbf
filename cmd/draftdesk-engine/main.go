package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"draftdesk/engine/internal/appdirs"
	"draftdesk/engine/internal/engine"
	"draftdesk/engine/internal/envfile"
	"draftdesk/engine/internal/envutil"
	"draftdesk/engine/internal/errinfo"
	"draftdesk/engine/internal/logging"
	"draftdesk/engine/internal/rpc"
)

func main() {
	envResult := envfile.Load()
	debug := envutil.Bool("DRAFTDESK_DEBUG")
	dataDir, err := appdirs.DataDir()
	if err != nil {
		log.Fatalf("engine init failed: %v", err)
	}
	logSetup, logErr := logging.NewFileLogger(dataDir, debug)
	logger := logSetup.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With("component", "engine")
	if logSetup.Enabled {
		logger.Info("engine.logging_enabled", "path", logSetup.Path)
	}
	if envResult.Loaded {
		logger.Debug("engine.env_loaded", "path", envResult.Path, "keys", envResult.Keys)
	}
	if envResult.Err != nil {
		logger.Warn("engine.env_load_failed", "path", envResult.Path, "error", envResult.Err.Error())
	}
	if logErr != nil {
		logger.Warn("engine.log_setup_failed", "error", logErr.Error())
	}
	if logSetup.Close != nil {
		defer logSetup.Close()
	}

	eng, err := engine.New(engine.WithLogger(logger))
	if err != nil {
		logger.Error("engine.init_failed", "error", err.Error())
		log.Fatalf("engine init failed: %v", err)
	}
	defer eng.Close()
	server := rpc.NewServer(engine.APIVersion, os.Stdin, os.Stdout, logger)
	eng.SetNotifier(server.Notify)

	register := func(method string, fn func(context.Context, json.RawMessage) (any, *errinfo.ErrorInfo)) {
		server.Register(method, func(ctx context.Context, params json.RawMessage) (any, *rpc.Error) {
			result, errInfo := fn(ctx, params)
			if errInfo != nil {
				msg := errInfo.ErrorCode
				if errInfo.Detail != "" {
					msg = errInfo.Detail
				}
				return nil, &rpc.Error{Message: msg, Data: errInfo}
			}
			return result, nil
		})
	}

	register("EngineGetInfo", eng.EngineGetInfo)

	register("DocumentLoad", eng.DocumentLoad)
	register("DocumentGetContent", eng.DocumentGetContent)
	register("DocumentApplyEdit", eng.DocumentApplyEdit)
	register("DocumentSave", eng.DocumentSave)
	register("DocumentClear", eng.DocumentClear)

	register("SnapshotsList", eng.SnapshotsList)
	register("SnapshotRevert", eng.SnapshotRevert)
	register("SnapshotDiff", eng.SnapshotDiff)

	register("ToolsList", eng.ToolsList)
	register("ToolExecute", eng.ToolExecute)

	register("WorkspaceOpen", eng.WorkspaceOpen)
	register("WorkspaceClose", eng.WorkspaceClose)

	register("AutoSaveEnable", eng.AutoSaveEnable)
	register("AutoSaveDisable", eng.AutoSaveDisable)

	if err := server.Serve(context.Background()); err != nil {
		logger.Error("rpc.server_error", "error", err.Error())
		log.Fatalf("rpc server error: %v", err)
	}
}
