// Package bindings holds the structs the desktop shell binds to the frontend.
package bindings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	wruntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/MJE43/playdeck/internal/app"
	"github.com/MJE43/playdeck/internal/games"
	"github.com/MJE43/playdeck/internal/journal"
	"github.com/MJE43/playdeck/internal/scripting"
)

// SnapshotEvent is emitted to the frontend after every processed intent.
const SnapshotEvent = "playdeck:snapshot"

const dispatchTimeout = 5 * time.Second

var ErrNotStarted = errors.New("bindings: app not started")

type Journal interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

type emitFunc func(ctx context.Context, event string, data ...interface{})

// App is the main binding: the frontend dispatches intents through it and
// receives snapshots as events.
type App struct {
	rt      *app.Runtime
	scripts *scripting.Runner
	journal Journal
	log     *slog.Logger
	emit    emitFunc

	mu          sync.RWMutex
	ctx         context.Context
	unsubscribe func()
}

// New creates the binding. journal may be nil.
func New(rt *app.Runtime, scripts *scripting.Runner, j Journal, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		rt:      rt,
		scripts: scripts,
		journal: j,
		log:     logger.With("component", "bindings"),
		emit:    wruntime.EventsEmit,
	}
}

// Startup keeps the shell context and starts pushing snapshots.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ctx = ctx
	a.unsubscribe = a.rt.Subscribe(func(snap app.Snapshot) {
		a.emit(ctx, SnapshotEvent, snap)
	})
	a.log.Debug("bindings started", "session", a.rt.Session())
}

func (a *App) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	a.ctx = nil
}

func (a *App) context() (context.Context, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.ctx == nil {
		return nil, ErrNotStarted
	}
	return a.ctx, nil
}

// Dispatch applies one intent envelope and returns the resulting snapshot.
func (a *App) Dispatch(env app.Envelope) (app.Snapshot, error) {
	in, err := env.ExternalIntent()
	if err != nil {
		return app.Snapshot{}, err
	}
	return a.send(in)
}

// DispatchJSON is Dispatch for callers holding the raw envelope text.
func (a *App) DispatchJSON(raw string) (app.Snapshot, error) {
	in, err := app.DecodeExternalIntent([]byte(raw))
	if err != nil {
		return app.Snapshot{}, err
	}
	return a.send(in)
}

func (a *App) send(in app.Intent) (app.Snapshot, error) {
	base, err := a.context()
	if err != nil {
		return app.Snapshot{}, err
	}
	ctx, cancel := context.WithTimeout(base, dispatchTimeout)
	defer cancel()
	return a.rt.Send(ctx, in)
}

func (a *App) Snapshot() app.Snapshot { return a.rt.Snapshot() }

func (a *App) Routes() []app.RouteInfo { return app.Routes() }

func (a *App) GetGames() []games.GameSpec { return games.ListGames() }

func (a *App) IntentKinds() []string { return app.IntentKinds() }

// RunScript runs a script and reports its result. Script failures are
// reported in Result.Error rather than as a binding error.
func (a *App) RunScript(source string) (scripting.Result, error) {
	if a.scripts == nil {
		return scripting.Result{}, fmt.Errorf("bindings: scripting disabled")
	}
	ctx, err := a.context()
	if err != nil {
		return scripting.Result{}, err
	}
	res, _ := a.scripts.Run(ctx, source)
	return res, nil
}

// RecentActivity returns the newest journal entries.
func (a *App) RecentActivity(limit int) ([]journal.Entry, error) {
	if a.journal == nil {
		return []journal.Entry{}, nil
	}
	ctx, err := a.context()
	if err != nil {
		return nil, err
	}
	return a.journal.Recent(ctx, limit)
}

// SnapshotJSON is the snapshot as text, for the devtools console.
func (a *App) SnapshotJSON() (string, error) {
	raw, err := json.MarshalIndent(a.rt.Snapshot(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
