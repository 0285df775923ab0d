package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"heater_monitor/internal/config"
	"heater_monitor/internal/handlers"
	"heater_monitor/internal/heater"
	"heater_monitor/internal/lifecycle"
	"heater_monitor/internal/link"
	"heater_monitor/internal/logger"
	"heater_monitor/internal/metrics"
	"heater_monitor/internal/repository"
	"heater_monitor/internal/repository/db"
	"heater_monitor/internal/server"
	"heater_monitor/internal/service"

	"github.com/jonboulle/clockwork"
)

const (
	configDir       = "configs"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load(configDir)
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	log := logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer func() { _ = log.Sync() }()

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	clock := clockwork.NewRealClock()
	m := metrics.New()
	repos := repository.NewRepository(sqlDB)
	tracker := heater.NewTracker(cfg.Heater, cfg.Analog, clock)
	sweeper := newSweeper(cfg, clock, log)

	services := service.NewService(service.Deps{
		Repos:   repos,
		Config:  *cfg,
		Tracker: tracker,
		Sweeper: sweeper,
		Metrics: m,
		Clock:   clock,
		Log:     log.Named("service"),
	})
	registerCollections(sweeper, cfg.Sweeper, services)
	sweeper.OnSweep(m.Sweep)
	sweeper.OnSweep(services.Retention.OnSweep)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := services.Feed.Restore(ctx); err != nil {
		log.Warnw("heater_state_restore_failed", "err", err)
	}

	mgr := startLink(ctx, cfg.Serial, services, repos, m, clock, log)
	if cfg.Analog.Enabled {
		// No acquisition driver ships with this build; AnalogSource is the integration point.
		log.Warnw("analog_source_unavailable", "poll_interval", cfg.Analog.PollInterval)
	}

	go services.Feed.Run(ctx, cfg.Consumer.Tick)
	go sweeper.Run(ctx)

	apiHandler := handlers.NewHandler(services, log, m.Handler())
	srv := &server.Server{}
	runHTTPServer(srv, cfg.HTTP.Port, apiHandler, log)

	waitForShutdown(cancel, srv, mgr, cfg.Serial.StopTimeout, log)
}

// newSweeper builds the lifecycle sweeper. Memory checks are disabled when the
// process cannot be inspected.
func newSweeper(cfg *config.Config, clock clockwork.Clock, log *logger.Logger) *lifecycle.Sweeper {
	var probe lifecycle.MemoryProbe
	pm, err := lifecycle.NewProcessMemory()
	if err != nil {
		log.Warnw("memory_probe_unavailable", "err", err)
	} else {
		probe = pm
	}
	return lifecycle.NewSweeper(cfg.Sweeper, probe, clock, log.Named("sweeper"))
}

func registerCollections(s *lifecycle.Sweeper, cfg config.SweeperConfig, services *service.Service) {
	s.Register("data_log", services.Buffers.DataLog, lifecycle.PolicyFrom(cfg.DataLog))
	s.Register("chart", services.Buffers.Chart, lifecycle.PolicyFrom(cfg.Chart))
	s.Register("analog", services.Buffers.Analog, lifecycle.PolicyFrom(cfg.Analog))
	s.Register("errors", services.Ledger.Records(), lifecycle.PolicyFrom(cfg.Errors))
}

// startLink connects the serial link and attaches it to the services. It returns
// nil when the link is disabled or cannot be built; the API keeps serving.
func startLink(ctx context.Context, cfg config.SerialConfig, services *service.Service, repos *repository.Repository,
	m *metrics.Metrics, clock clockwork.Clock, log *logger.Logger) *link.Manager {
	if !cfg.Enabled {
		log.Infow("serial_link_disabled")
		return nil
	}
	mgr, err := link.NewManager(cfg, services.Feed.HandleLine, link.WithClock(clock), link.WithLogger(log.Named("link")))
	if err != nil {
		log.Errorw("serial_link_init_failed", "err", err)
		return nil
	}
	mgr.Subscribe(service.NewLinkObserver(repos.EventRepo, m, log))
	services.AttachLink(mgr)
	if err := mgr.Start(ctx); err != nil {
		log.Errorw("serial_link_start_failed", "err", err)
		return nil
	}
	log.Infow("serial_link_started", "port", cfg.Port, "baud_rate", cfg.BaudRate)
	return mgr
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
	log.Infow("http_server_started", "port", port)
}

// waitForShutdown listens for termination signals and performs graceful shutdown:
// link worker first, then background loops, then in-flight HTTP requests.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, mgr *link.Manager, linkTimeout time.Duration, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	if mgr != nil {
		if err := mgr.Stop(linkTimeout); err != nil {
			log.Warnw("serial_link_stop_failed", "err", err)
		}
	}

	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
