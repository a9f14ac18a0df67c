package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/yndnr/lockscope-go/internal/core/recorder"
	"github.com/yndnr/lockscope-go/internal/core/stats"
	"github.com/yndnr/lockscope-go/internal/infra/buildinfo"
	"github.com/yndnr/lockscope-go/internal/infra/confloader"
	"github.com/yndnr/lockscope-go/internal/infra/shutdown"
	"github.com/yndnr/lockscope-go/internal/infra/tlsroots"
	"github.com/yndnr/lockscope-go/internal/server/config"
	"github.com/yndnr/lockscope-go/internal/server/httpserver"
	"github.com/yndnr/lockscope-go/internal/server/localserver"
	"github.com/yndnr/lockscope-go/internal/sink"
	"github.com/yndnr/lockscope-go/internal/sink/journal"
	"github.com/yndnr/lockscope-go/internal/sink/store"
	"github.com/yndnr/lockscope-go/internal/telemetry/logger"
	"github.com/yndnr/lockscope-go/internal/telemetry/metric"
	"github.com/yndnr/lockscope-go/pkg/crypto/adaptive"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("lockscope-agent %s\n", buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, slogLogger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	log.Info("starting lockscope-agent",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"config", *configFile,
		"sink_mode", string(cfg.Sink.Mode))

	metrics := metric.NewRegistry()
	agg := stats.NewAggregator()

	sinks, err := initSinks(cfg, slogLogger, metrics)
	if err != nil {
		return fmt.Errorf("init sinks: %w", err)
	}

	rec := recorder.New(
		recorder.Config{
			MinDuration: cfg.Recorder.MinDuration,
			StaleAfter:  cfg.Recorder.StaleAfter,
		},
		recorder.WithSink(sinks.Sink),
		recorder.WithObserver(agg),
		recorder.WithLogger(slogLogger),
		recorder.WithMetrics(metrics),
	)

	sweeper := recorder.NewSweeper(rec, cfg.Recorder.SweepInterval,
		recorder.WithSweeperLogger(slogLogger))
	sweeper.Start()

	routerCfg := httpserver.DefaultRouterConfig()
	routerCfg.Recorder = rec
	routerCfg.Stats = agg
	routerCfg.Metrics = metrics
	routerCfg.Logger = slogLogger
	routerCfg.AdminAllowList = cfg.Agent.HTTP.AdminAllowList
	routerCfg.CORSAllowedOrigins = cfg.Agent.HTTP.CORSOrigins
	routerCfg.GlobalRateLimit = cfg.Agent.HTTP.RateLimit
	if sinks.Store != nil {
		routerCfg.Records = sinks.Store
	}

	httpServer := httpserver.New(cfg.Agent.HTTP.Addr, httpserver.NewRouter(routerCfg))

	localHandler := localserver.NewHandler(rec, agg)
	localServer := localserver.New(cfg.Agent.Local.Path, localHandler, slogLogger)

	shutdownHandler := shutdown.NewHandler(30 * time.Second)
	localHandler.OnShutdown(shutdownHandler.Trigger)
	localHandler.OnReload(func() error {
		return applyReload(*configFile, rec, log)
	})

	watcher, err := watchConfig(*configFile, rec, log, slogLogger)
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}

	var certWatcher *tlsroots.Watcher
	if cfg.Agent.HTTP.TLSCertFile != "" && cfg.Agent.HTTP.TLSKeyFile != "" {
		certWatcher, err = tlsroots.NewWatcher(
			cfg.Agent.HTTP.TLSCertFile,
			cfg.Agent.HTTP.TLSKeyFile,
			tlsroots.WithLogger(slogLogger),
		)
		if err != nil {
			return fmt.Errorf("load TLS certificate: %w", err)
		}
		certWatcher.StartAsync()
	}

	// Shutdown hooks run in reverse order of registration.
	if certWatcher != nil {
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			certWatcher.Stop()
			return nil
		})
	}
	if watcher != nil {
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			return watcher.Stop()
		})
	}
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("closing sinks")
		return sinks.Close()
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		sweeper.Stop()
		return nil
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down local server")
		return localServer.Shutdown(ctx)
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", cfg.Agent.HTTP.Addr)

		var err error
		if certWatcher != nil {
			err = httpServer.ListenAndServeRotatingTLS(certWatcher.GetCertificate)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		if err := localServer.ListenAndServe(); err != nil {
			log.Error("local server error", "error", err, "path", cfg.Agent.Local.Path)
		}
	}()

	log.Info("agent started")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("agent stopped gracefully")
	return nil
}

// loadConfig loads configuration from file, environment and defaults.
func loadConfig(configFile string) (*config.AgentConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func initLogger(cfg *config.AgentConfig) (logger.Logger, *slog.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, nil, err
	}

	logger.SetDefault(log)
	return log, slog.Default(), nil
}

// Sinks holds the record destinations built from the sink config.
type Sinks struct {
	Sink   recorder.Sink
	Store  *store.Store
	Pruner *journal.Pruner

	closers []func() error
}

// Close shuts the sinks down in reverse construction order.
func (s *Sinks) Close() error {
	var lastErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// initSinks builds the record sink chain for the configured mode.
func initSinks(cfg *config.AgentConfig, log *slog.Logger, metrics *metric.Registry) (*Sinks, error) {
	s := &Sinks{}

	newJournal := func() (*journal.Sink, error) {
		jcfg := journal.DefaultConfig(cfg.Sink.Journal.Dir)
		if cfg.Sink.Journal.SyncMode != "" {
			jcfg.SyncMode = journal.SyncMode(cfg.Sink.Journal.SyncMode)
		}
		if cfg.Sink.Journal.SyncInterval > 0 {
			jcfg.SyncInterval = cfg.Sink.Journal.SyncInterval
		}
		if cfg.Sink.Journal.MaxFileSize > 0 {
			jcfg.MaxFileSize = cfg.Sink.Journal.MaxFileSize
		}
		if cfg.Sink.EncryptionKey != "" {
			key := sha256.Sum256([]byte(cfg.Sink.EncryptionKey))
			cipher, err := adaptive.New(key[:])
			if err != nil {
				return nil, fmt.Errorf("init cipher: %w", err)
			}
			jcfg.Cipher = cipher
		}

		js, err := journal.NewSink(jcfg)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		s.closers = append(s.closers, js.Close)

		prunerOpts := []journal.PrunerOption{
			journal.WithPrunerLogger(log),
		}
		if cfg.Sink.Journal.RetainSegments > 0 {
			prunerOpts = append(prunerOpts, journal.WithRetainCount(cfg.Sink.Journal.RetainSegments))
		}
		if cfg.Sink.Journal.MaxAge > 0 {
			prunerOpts = append(prunerOpts, journal.WithMaxAge(cfg.Sink.Journal.MaxAge))
		}
		if cfg.Sink.Journal.PruneInterval > 0 {
			prunerOpts = append(prunerOpts, journal.WithPruneInterval(cfg.Sink.Journal.PruneInterval))
		}
		s.Pruner = journal.NewPruner(cfg.Sink.Journal.Dir, prunerOpts...)
		s.Pruner.Start()
		s.closers = append(s.closers, func() error {
			s.Pruner.Stop()
			return nil
		})

		return js, nil
	}

	newStore := func() (*store.Store, error) {
		scfg := store.DefaultConfig(cfg.Sink.Store.Dir)
		if cfg.Sink.Store.Retention > 0 {
			scfg.Retention = cfg.Sink.Store.Retention
		}
		if cfg.Sink.Store.GCInterval > 0 {
			scfg.GCInterval = cfg.Sink.Store.GCInterval
		}
		scfg.SyncWrites = cfg.Sink.Store.SyncWrites

		st, err := store.NewStore(scfg, log)
		if err != nil {
			return nil, fmt.Errorf("open record store: %w", err)
		}
		st.RegisterMetrics(metrics.Registerer())
		s.Store = st
		s.closers = append(s.closers, st.Close)
		return st, nil
	}

	switch cfg.Sink.Mode {
	case config.SinkModeLog:
		s.Sink = sink.NewLogSink(log)
	case config.SinkModeJournal:
		js, err := newJournal()
		if err != nil {
			return nil, err
		}
		s.Sink = js
	case config.SinkModeStore:
		st, err := newStore()
		if err != nil {
			return nil, err
		}
		s.Sink = st
	case config.SinkModeMulti:
		js, err := newJournal()
		if err != nil {
			return nil, err
		}
		st, err := newStore()
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Sink = sink.NewMultiSink(sink.NewLogSink(log), js, st)
	default:
		return nil, fmt.Errorf("unknown sink mode %q", cfg.Sink.Mode)
	}

	return s, nil
}

// applyReload re-reads the config file and applies hot-reloadable
// settings: the reporting threshold and the log level.
func applyReload(configFile string, rec *recorder.Recorder, log logger.Logger) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	rec.SetMinDuration(cfg.Recorder.MinDuration)
	logger.SetLevel(cfg.Log.Level)

	log.Info("configuration reloaded",
		"min_duration", cfg.Recorder.MinDuration.String(),
		"log_level", cfg.Log.Level)
	return nil
}

// watchConfig hot-reloads recorder settings when the config file
// changes on disk. Returns nil when no config file is in use.
func watchConfig(configFile string, rec *recorder.Recorder, log logger.Logger, slogLogger *slog.Logger) (*confloader.Watcher, error) {
	if configFile == "" {
		return nil, nil
	}

	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(slogLogger))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(configFile); err != nil {
		return nil, err
	}

	watcher.OnChange(func(path string) {
		if err := applyReload(path, rec, log); err != nil {
			log.Warn("config reload failed", "path", path, "error", err)
		}
	})
	watcher.StartAsync()

	return watcher, nil
}
