package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"golang.org/x/time/rate"

	"harvesthorizon/internal/adapter/broadcast"
	"harvesthorizon/internal/adapter/gate"
	httpadapter "harvesthorizon/internal/adapter/http"
	"harvesthorizon/internal/adapter/journal"
	metricsinmem "harvesthorizon/internal/adapter/metrics/inmemory"
	gormrepo "harvesthorizon/internal/adapter/repo/gorm"
	"harvesthorizon/internal/adapter/repo/memory"
	sqliterepo "harvesthorizon/internal/adapter/repo/sqlite"
	"harvesthorizon/internal/adapter/world/fixed"
	"harvesthorizon/internal/adapter/world/generator"
	"harvesthorizon/internal/adapter/ws"
	"harvesthorizon/internal/app/action"
	"harvesthorizon/internal/app/mapview"
	"harvesthorizon/internal/app/maps"
	"harvesthorizon/internal/app/ports"
	"harvesthorizon/internal/app/replay"
	"harvesthorizon/internal/app/status"
	"harvesthorizon/internal/domain/farm"
	"harvesthorizon/internal/platform/config"
	"harvesthorizon/internal/platform/logging"
	"harvesthorizon/internal/platform/otel"
)

const serviceName = "harvesthorizon"

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, logger *slog.Logger) error {
	shutdownTracing, err := otel.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	tuning, err := farm.LoadTuning(cfg.TuningPath)
	if err != nil {
		return err
	}
	rules := farm.NewRules(tuning)

	st, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	alerts := journal.NewAlertJournal(cfg.JournalDir, logger, nil)
	defer alerts.Close()

	hub := broadcast.NewHub(cfg.BroadcastQueue, logger)
	kpi := metricsinmem.NewRecorder()
	ownerGate := gate.MapOwner{Grid: st.grid}

	actionUC := action.UseCase{
		Grid:      st.grid,
		Ledger:    st.ledger,
		Inventory: st.inventory,
		Broadcast: hub,
		Outcomes:  st.outcomes,
		Alerts:    alerts,
		Metrics:   kpi,
		Rules:     rules,
		Logger:    logger,
		Now:       time.Now,
	}
	mapViewUC := mapview.UseCase{Grid: st.grid, Ledger: st.ledger, Now: time.Now}

	h := httpadapter.Handler{
		MapsUC: maps.UseCase{
			TxManager:       st.tx,
			Grid:            st.grid,
			Ledger:          st.ledger,
			Inventory:       st.inventory,
			Generator:       buildGenerator(cfg.MapGenerator, rules),
			Purger:          st.purger,
			Rules:           rules,
			Logger:          logger,
			StartingBalance: cfg.StartingBalance,
			StarterItems:    maps.DefaultStarterItems(rules),
			Now:             time.Now,
		},
		MapViewUC: mapViewUC,
		ActionUC:  actionUC,
		StatusUC:  status.UseCase{Ledger: st.ledger, Inventory: st.inventory},
		ReplayUC:  replay.UseCase{Outcomes: st.outcomes},
		Gate:      ownerGate,
		KPI:       kpi,

		CORSOrigin: cfg.CORSOrigin,
	}

	wsServer := ws.NewServer(ws.Server{
		Hub:         hub,
		Actions:     actionUC,
		MapView:     mapViewUC,
		Gate:        ownerGate,
		IntentRate:  rate.Limit(cfg.IntentRate),
		IntentBurst: cfg.IntentBurst,
		Logger:      logger,
	})
	mux := http.NewServeMux()
	mux.Handle("/ws", wsServer.Handler())
	wsHTTP := &http.Server{Addr: cfg.WSAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	hz := server.Default(server.WithHostPorts(cfg.HTTPAddr))
	h.RegisterRoutes(hz)

	errc := make(chan error, 2)
	go func() { errc <- hz.Run() }()
	go func() {
		if err := wsHTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	logger.Info("harvesthorizon listening", "http_addr", cfg.HTTPAddr, "ws_addr", cfg.WSAddr, "store", st.kind)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := wsHTTP.Shutdown(sctx); err != nil {
		logger.Warn("ws shutdown", "err", err)
	}
	if err := hz.Shutdown(sctx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}
	return runErr
}

type stores struct {
	kind      string
	grid      ports.GridStore
	ledger    ports.LedgerStore
	inventory ports.Inventory
	outcomes  ports.OutcomeRepository
	purger    ports.OutcomePurger
	tx        ports.TxManager
	closers   []func() error
}

func (s stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

// buildStores picks postgres when a DSN is configured and the in-memory
// store otherwise. A sqlite outcome index, when configured, replaces the
// primary store's outcome journal.
func buildStores(ctx context.Context, cfg config.Server, logger *slog.Logger) (stores, error) {
	var st stores
	if cfg.DBDSN == "" {
		mem := memory.NewStore()
		st = stores{
			kind:      "memory",
			grid:      memory.NewGridRepo(mem),
			ledger:    memory.NewLedgerRepo(mem),
			inventory: memory.NewInventoryRepo(mem),
			outcomes:  memory.NewOutcomeRepo(mem),
			tx:        memory.NewTxManager(mem),
		}
	} else {
		db, err := gormrepo.OpenPostgres(cfg.DBDSN)
		if err != nil {
			return stores{}, err
		}
		applied, err := gormrepo.ApplyMigrations(ctx, db, os.DirFS(cfg.MigrationsDir))
		if err != nil {
			return stores{}, fmt.Errorf("migrate: %w", err)
		}
		if len(applied) > 0 {
			logger.Info("migrations applied", "versions", applied)
		}
		st = stores{
			kind:      "postgres",
			grid:      gormrepo.NewGridRepo(db),
			ledger:    gormrepo.NewLedgerRepo(db),
			inventory: gormrepo.NewInventoryRepo(db),
			outcomes:  gormrepo.NewOutcomeRepo(db),
			tx:        gormrepo.NewTxManager(db),
		}
		if sqlDB, err := db.DB(); err == nil {
			st.closers = append(st.closers, sqlDB.Close)
		}
	}

	if cfg.OutcomeIndex != "" {
		idx, err := sqliterepo.Open(cfg.OutcomeIndex)
		if err != nil {
			st.close()
			return stores{}, fmt.Errorf("open outcome index: %w", err)
		}
		st.outcomes = idx
		st.purger = idx
		st.closers = append(st.closers, idx.Close)
	}
	return st, nil
}

func buildGenerator(kind string, rules farm.Rules) ports.MapGenerator {
	if kind == "flat" {
		return fixed.Provider{BaseRadius: generator.DefaultConfig().BaseRadius, ClearLevel: rules.ClearLevel()}
	}
	cfg := generator.DefaultConfig()
	cfg.ClearLevel = rules.ClearLevel()
	return generator.NewProvider(cfg)
}
