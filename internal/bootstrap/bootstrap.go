// Package bootstrap assembles the runtime and its supporting services from a
// Config. Both the desktop shell and the headless daemon start through it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/MJE43/playdeck/internal/app"
	"github.com/MJE43/playdeck/internal/config"
	"github.com/MJE43/playdeck/internal/engine"
	"github.com/MJE43/playdeck/internal/gallery"
	"github.com/MJE43/playdeck/internal/journal"
	"github.com/MJE43/playdeck/internal/localhttp"
	"github.com/MJE43/playdeck/internal/metrics"
	"github.com/MJE43/playdeck/internal/scripting"
	"github.com/MJE43/playdeck/internal/secrets"
)

const (
	journalFlushSize = 20
	secretsFileName  = "secrets.json"
	userAgent        = "playdeck/1.0"
)

// Services owns everything a running app needs. Journal and HTTP are nil
// when disabled or unavailable.
type Services struct {
	Config   config.Config
	Log      *slog.Logger
	Runtime  *app.Runtime
	Metrics  *metrics.Metrics
	Secrets  *secrets.Store
	Scripts  *scripting.Runner
	Journal  *journal.Store
	Recorder *journal.Recorder
	HTTP     *localhttp.Server

	cancel context.CancelFunc
	runErr chan error
}

// New wires the services without starting anything.
func New(cfg config.Config, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Services{
		Config:  cfg,
		Log:     logger,
		Metrics: metrics.New(),
		Secrets: secrets.New(secrets.DefaultService, filepath.Join(config.AppDataDir(), secretsFileName)),
	}

	src, err := rngSource(cfg.RNGSeed)
	if err != nil {
		return nil, err
	}

	recorders := []app.Recorder{s.Metrics}
	if store, err := openJournal(cfg.DBPath); err != nil {
		logger.Warn("journal disabled", "path", cfg.DBPath, "error", err)
	} else {
		s.Journal = store
		s.Recorder = journal.NewRecorder(store, journalFlushSize, logger)
		recorders = append(recorders, s.Recorder)
	}

	container := app.NewContainer(app.Options{
		Source: src,
		Gallery: gallery.Options{
			BatchSize: cfg.BatchSize,
			Lookahead: cfg.Lookahead,
			Namer:     gallery.NewURLNamer(cfg.ImageBaseURL, time.Now),
		},
		Logger: logger,
	})
	s.Runtime = app.NewRuntime(container, app.RuntimeOptions{
		Loader:   s.loader(),
		Recorder: app.MultiRecorder(recorders...),
		Observer: s.Metrics,
		Logger:   logger,
	})
	s.Scripts = scripting.NewRunner(s.Runtime, scripting.Options{Logger: logger})

	if cfg.HTTPPort > 0 {
		deps := localhttp.Deps{
			Runtime: s.Runtime,
			Scripts: s.Scripts,
			Metrics: s.Metrics.Handler(),
			Logger:  logger,
		}
		if s.Journal != nil {
			deps.Journal = s.Journal
		}
		s.HTTP = localhttp.New(deps, cfg.HTTPPort, cfg.HTTPToken)
	}
	return s, nil
}

func rngSource(seed string) (engine.Source, error) {
	if seed == "" {
		return engine.NewSource(), nil
	}
	server, client, err := engine.ParseSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("PLAYDECK_RNG_SEED: %w", err)
	}
	return engine.NewSeededSource(server, client, 0), nil
}

func openJournal(path string) (*journal.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return journal.New(path)
}

func (s *Services) loader() gallery.Loader {
	if s.Config.SimulateLoads {
		return gallery.SimulatedLoader{}
	}
	return gallery.NewHTTPLoader(gallery.HTTPConfig{
		Timeout:   s.Config.LoadTimeout,
		APIKey:    s.Secrets.APIKey,
		UserAgent: userAgent,
	})
}

// Start runs the runtime loop and, when enabled, the local HTTP server.
func (s *Services) Start(ctx context.Context) error {
	if s.cancel != nil {
		return errors.New("bootstrap: already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.runErr = make(chan error, 1)
	go func() { s.runErr <- s.Runtime.Run(ctx) }()

	if s.HTTP != nil {
		if err := s.HTTP.Start(); err != nil {
			s.Log.Error("local http server failed to start", "error", err)
			s.HTTP = nil
		}
	}
	s.Log.Info("playdeck started",
		"session", s.Runtime.Session(),
		"journal", s.Journal != nil,
		"http", s.HTTP != nil,
		"simulated_loads", s.Config.SimulateLoads,
	)
	return nil
}

// Shutdown stops the server, then the runtime, then flushes and closes the
// journal.
func (s *Services) Shutdown(ctx context.Context) error {
	var errs []error
	if s.HTTP != nil {
		if err := s.HTTP.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if s.cancel != nil {
		s.cancel()
		select {
		case err := <-s.runErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				errs = append(errs, fmt.Errorf("runtime: %w", err))
			}
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("runtime: %w", ctx.Err()))
		}
	}
	if s.Recorder != nil {
		if err := s.Recorder.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Journal != nil {
		if err := s.Journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("journal close: %w", err))
		}
	}
	return errors.Join(errs...)
}
