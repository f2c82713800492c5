// Package main is the entry point for the airline tycoon simulation server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/openskies-sim/airtycoon/internal/api"
	"github.com/openskies-sim/airtycoon/internal/domain/catalog"
	"github.com/openskies-sim/airtycoon/internal/domain/company"
	"github.com/openskies-sim/airtycoon/internal/engine"
	"github.com/openskies-sim/airtycoon/internal/events"
	"github.com/openskies-sim/airtycoon/internal/infra/storage"
	"github.com/openskies-sim/airtycoon/internal/network"
	"github.com/openskies-sim/airtycoon/internal/platform/config"
	"github.com/openskies-sim/airtycoon/internal/platform/logger"
	"github.com/openskies-sim/airtycoon/internal/platform/metrics"
)

// sqlitePersisterAdapter translates audit events to storage events so the
// events package never imports the storage layer.
type sqlitePersisterAdapter struct {
	repo *storage.EventRepository
}

func (a *sqlitePersisterAdapter) Append(event events.SimEvent) error {
	return a.repo.Append(context.Background(), storage.StoredEvent{
		ID:        event.ID,
		Timestamp: event.Timestamp,
		SimDate:   event.SimDate,
		EventType: string(event.Type),
		CompanyID: event.CompanyID,
		Payload:   event.Payload,
	})
}

func loadCatalog(cfg config.Config, appLogger *logger.Logger) *catalog.Catalog {
	if cfg.CatalogDir == "" {
		appLogger.Info("no catalog directory configured, using built-in demo catalog")
		return catalog.Builtin()
	}
	cat, err := catalog.Load(cfg.CatalogDir)
	if err != nil {
		appLogger.Error("failed to load catalog, falling back to built-in", zap.Error(err))
		return catalog.Builtin()
	}
	appLogger.Info("catalog loaded", zap.String("dir", cfg.CatalogDir))
	return cat
}

func seedCompanies(sim *engine.Simulation, appLogger *logger.Logger) {
	appLogger.Info("seeding starter airlines")
	player := company.New("player", "Player Airways", "NYC", 2000000)
	player.IsPlayer = true
	sim.AddCompany(player)
	sim.AddCompany(company.New("atlantic", "Atlantic Star", "LON", 2000000))
	sim.AddCompany(company.New("pacifica", "Pacifica Air", "TYO", 2000000))
	sim.AddCompany(company.New("meridian", "Meridian Lines", "RIO", 2000000))
}

func restoreOrSeed(ctx context.Context, sim *engine.Simulation, saves *storage.SaveRepository, slot string, appLogger *logger.Logger) {
	rec, err := saves.Load(ctx, slot)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			appLogger.Error("failed to read autosave slot", zap.Error(err))
		}
		seedCompanies(sim, appLogger)
		return
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(rec.Snapshot, &snap); err != nil {
		appLogger.Error("corrupt autosave, starting fresh", zap.Error(err))
		seedCompanies(sim, appLogger)
		return
	}
	if err := sim.Restore(snap); err != nil {
		appLogger.Error("failed to restore autosave, starting fresh", zap.Error(err))
		seedCompanies(sim, appLogger)
		return
	}
	appLogger.Info("restored simulation from autosave",
		zap.String("slot", slot), zap.Time("sim_date", snap.Date))
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shared lock serializing the frame driver and every HTTP handler around
	// the single-threaded engine.
	var mu sync.Mutex
	var sim *engine.Simulation

	cfg, err := config.Load(*configPath, func(fresh config.Config) {
		mu.Lock()
		defer mu.Unlock()
		if sim != nil {
			sim.SetSpeed(fresh.Sim.Speed)
		}
	})
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Log)
	defer appLogger.Sync()
	appLogger.Info("initializing airline tycoon server")

	db, err := storage.InitSQLite(cfg.DatabasePath)
	if err != nil {
		appLogger.Error("failed to initialize SQLite", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	eventRepo := storage.NewEventRepository(db)
	saveRepo := storage.NewSaveRepository(db)

	auditLog := events.NewLog(&sqlitePersisterAdapter{repo: eventRepo})

	cat := loadCatalog(cfg, appLogger)

	simCfg := engine.Config{
		MSPerDay: cfg.Sim.MSPerDay,
		Speed:    cfg.Sim.Speed,
		Seed:     cfg.Sim.Seed,
	}
	if simCfg.Seed == 0 {
		simCfg.Seed = time.Now().UnixNano()
	}
	if start, err := time.Parse("2006-01-02", cfg.Sim.StartDate); err == nil {
		simCfg.Start = start
	} else {
		appLogger.Warn("bad sim.start_date, using 1960-01-01", zap.Error(err))
		simCfg.Start = time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	sim = engine.New(cat, simCfg, appLogger, auditLog)
	restoreOrSeed(ctx, sim, saveRepo, cfg.Sim.AutosaveSlot, appLogger)

	collector := metrics.NewCollector()

	// Year-boundary autosaves go straight to SQLite off the engine thread.
	sim.SetAutosaveHook(func(snap engine.Snapshot) {
		blob, err := json.Marshal(snap)
		if err != nil {
			appLogger.Error("failed to serialize autosave", zap.Error(err))
			return
		}
		go func() {
			saveCtx, saveCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer saveCancel()
			err := saveRepo.Upsert(saveCtx, storage.SaveRecord{
				Slot:     cfg.Sim.AutosaveSlot,
				SimDate:  snap.Date,
				SavedAt:  time.Now().UTC(),
				Snapshot: blob,
			})
			collector.RecordSnapshot(err)
			if err != nil {
				appLogger.Error("autosave failed", zap.Error(err))
			}
		}()
	})

	appLogger.Info("bootstrapping observer hub")
	hub := network.NewHub(appLogger, collector)
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, auditLog)

	// Frame driver: the only goroutine that advances the clock.
	frame := time.Duration(cfg.FrameMS) * time.Millisecond
	if frame <= 0 {
		frame = 100 * time.Millisecond
	}
	go func() {
		ticker := time.NewTicker(frame)
		defer ticker.Stop()
		prev := time.Now()
		cursor := auditLog.Len()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				delta := now.Sub(prev)
				prev = now
				started := time.Now()
				mu.Lock()
				before := sim.Date()
				sim.Advance(float64(delta.Milliseconds()))
				days := int(sim.Date().Sub(before).Hours() / 24)
				mu.Unlock()
				collector.RecordFrame(time.Since(started), days)
				fresh := auditLog.Since(cursor)
				cursor += len(fresh)
				for _, e := range fresh {
					switch e.Type {
					case events.TypeWeekClosed:
						collector.RecordWeekClosed()
					case events.TypeEventFired:
						collector.RecordEventFired()
					}
				}
			}
		}
	}()

	handler := api.New(sim, &mu, appLogger, auditLog, api.Options{
		Saves:   saveRepo,
		Hub:     hub,
		Metrics: collector,
	})

	server := &http.Server{Addr: cfg.ListenAddr, Handler: handler}
	go func() {
		appLogger.Info("HTTP API & WS server listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("server failed", zap.Error(err))
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	appLogger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}
