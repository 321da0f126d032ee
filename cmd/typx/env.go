package main

import (
	"context"
	"time"

	"github.com/pders01/typx/internal/config"
	"github.com/pders01/typx/internal/debuglog"
	"github.com/pders01/typx/internal/editorapi"
	"github.com/pders01/typx/internal/search"
	"github.com/pders01/typx/internal/storage"
	"github.com/pders01/typx/internal/workspace"
)

const watchSettle = 200 * time.Millisecond

// env bundles the backend and the optional session store of one run.
type env struct {
	backend search.Backend
	ws      *workspace.Workspace
	store   *storage.Store
}

// openEnv opens the session store and the backend selected by cfg. A
// store that cannot be opened is skipped unless required.
func openEnv(ctx context.Context, cfg *config.Config, requireStore bool) (*env, error) {
	e := &env{}

	if cfg.Database.Path != "" {
		store, err := storage.NewStore(cfg.Database.Path, storage.Options{
			Timeout:     cfg.Database.Timeout,
			HistorySize: cfg.Search.HistorySize,
		})
		switch {
		case err == nil:
			e.store = store
		case requireStore:
			return nil, err
		default:
			debuglog.Warnf("session store unavailable: %v", err)
		}
	}

	if !cfg.Offline() {
		client, err := editorapi.NewClient(cfg)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.backend = client
		return e, nil
	}

	var sums workspace.ChecksumStore
	if e.store != nil {
		sums = e.store
	}
	ws, err := workspace.Open(cfg.Workspace, sums)
	if err != nil {
		e.Close()
		return nil, err
	}
	stats, err := ws.Rebuild(ctx)
	if err != nil {
		_ = ws.Close()
		e.Close()
		return nil, err
	}
	debuglog.WithFields(debuglog.Fields{
		"indexed":   stats.Indexed,
		"unchanged": stats.Unchanged,
		"removed":   stats.Removed,
	}).Infof("workspace index ready")

	e.ws = ws
	e.backend = ws
	return e, nil
}

func (e *env) Close() {
	if e.ws != nil {
		if err := e.ws.Close(); err != nil {
			debuglog.Warnf("closing workspace: %v", err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			debuglog.Warnf("closing session store: %v", err)
		}
	}
}
