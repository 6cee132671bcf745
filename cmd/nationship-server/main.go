// Package main is the entry point for the Nationship game server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MRamiBalles/Nationship/internal/chatbot"
	"github.com/MRamiBalles/Nationship/internal/engine"
	"github.com/MRamiBalles/Nationship/internal/entropy"
	"github.com/MRamiBalles/Nationship/internal/events"
	"github.com/MRamiBalles/Nationship/internal/infra/storage"
	"github.com/MRamiBalles/Nationship/internal/network"
	"github.com/MRamiBalles/Nationship/internal/platform/config"
	"github.com/MRamiBalles/Nationship/internal/platform/logger"
	"github.com/MRamiBalles/Nationship/internal/platform/metrics"
	"github.com/MRamiBalles/Nationship/internal/platform/optimization"
	"github.com/MRamiBalles/Nationship/internal/scheduler"
	"github.com/MRamiBalles/Nationship/internal/survey"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger().Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	appLogger := logger.NewLoggerWith(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stdout})
	appLogger.Info("initializing nationship server", "addr", cfg.Addr, "db", cfg.DBDialect, "profile", cfg.Profile)

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, appLogger *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tuning, err := optimization.ForProfile(cfg.Profile)
	if err != nil {
		return err
	}

	appLogger.Info("opening database", "dialect", cfg.DBDialect)
	db, err := storage.Open(ctx, storage.Dialect(cfg.DBDialect), cfg.DSN(), storage.Options{
		MaxOpenConns: tuning.DBMaxOpenConns,
		MaxIdleConns: tuning.DBMaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	eventRepo := storage.NewSQLEventRepository(db)
	snapshotRepo := storage.NewSQLSnapshotRepository(db)
	profileRepo := storage.NewSQLProfileRepository(db)

	appLogger.Info("bootstrapping event log")
	eventLog := events.NewEventLog(storage.NewPersister(eventRepo, storage.DefaultWriteTimeout)).
		WithRetention(cfg.EventRetention)
	eventLog.OnPersistError(func(e events.GameEvent, err error) {
		appLogger.Error("event write-through failed", "event_id", e.ID, "type", e.Type, "err", err)
	})

	seed := cfg.Seed
	if seed == 0 {
		if seed, err = entropy.NewSeed(); err != nil {
			return err
		}
	}
	appLogger.Info("bootstrapping engine", "seed", seed, "lapse", cfg.LapseWindow)
	rules := engine.NewRules(entropy.NewSeeded(seed), time.Now).WithLapse(cfg.LapseWindow)

	registry, err := engine.NewRegistry(cfg.RegistrySize, rules, snapshotRepo, eventLog, appLogger)
	if err != nil {
		return err
	}
	reportStoredNations(ctx, snapshotRepo, appLogger)

	ticker := engine.NewTicker(registry, appLogger).WithRate(cfg.DecayCheckRate)
	go ticker.Start(ctx)

	appLogger.Info("bootstrapping chatbot worker")
	sched := scheduler.New(appLogger)
	bots := chatbot.NewWorker(eventLog, registry, sched, entropy.NewSeeded(seed+1), appLogger)
	bots.Start(ctx)

	appLogger.Info("bootstrapping websocket hub")
	hub := network.NewHub(tuning, appLogger)
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, eventLog)

	service := network.NewService(registry, bots, appLogger)
	api := network.NewAPI(service, profileRepo, survey.NewBuilder(time.Now), storage.NewReconstructor(eventRepo), appLogger)

	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	network.NewReplayHandler(eventRepo, appLogger).RegisterRoutes(mux)
	network.NewPresenceHandler(hub).RegisterRoutes(mux)
	mux.HandleFunc("GET /ws", network.ServeWs(hub, service, network.Upgrader(cfg.AllowedOrigins)))
	mux.HandleFunc("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /metrics/prometheus", metrics.PrometheusHandler())

	go snapshotLoop(ctx, registry, tuning, cfg.SnapshotInterval, appLogger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info("http api and websocket server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	appLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("http shutdown incomplete", "err", err)
	}
	ticker.Stop()
	bots.StopAll()
	if saved, err := registry.Flush(shutdownCtx); err != nil {
		appLogger.Error("final snapshot flush failed", "saved", saved, "err", err)
	} else {
		appLogger.Info("final snapshots saved", "saved", saved)
	}
	eventLog.Flush()
	return nil
}

// nationLister lists the nations with a saved snapshot.
type nationLister interface {
	ListNationIDs(ctx context.Context) ([]string, error)
}

// reportStoredNations logs how many nations can be resumed. It returns -1 when the list failed.
func reportStoredNations(ctx context.Context, store nationLister, log *logger.Logger) int {
	ids, err := store.ListNationIDs(ctx)
	if err != nil {
		log.Warn("could not list stored nations", "err", err)
		return -1
	}
	log.Info("stored nations found", "count", len(ids))
	return len(ids)
}

// snapshotLoop periodically saves changed nations and reports tuning advice.
func snapshotLoop(ctx context.Context, registry *engine.Registry, tuning *optimization.Config, every time.Duration, log *logger.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			saved, err := registry.Flush(ctx)
			if err != nil {
				log.Error("snapshot flush failed", "saved", saved, "err", err)
			} else if saved > 0 {
				log.Debug("snapshots saved", "saved", saved)
			}

			// Advice only: live buffers are sized at connect time.
			rec := optimization.Analyze(metrics.Get().Snapshot())
			if len(rec.Notes) > 0 {
				suggested := *tuning
				optimization.ApplyRecommendations(&suggested, rec)
				log.Warn("tuning recommendation", "notes", rec.Notes,
					"client_send_buffer", suggested.ClientSendBuffer, "db_max_open_conns", suggested.DBMaxOpenConns)
			}
		}
	}
}
