package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"loanwise/config"
	"loanwise/db"
	lhttp "loanwise/http"
	"loanwise/logger"
	"loanwise/ml"
	"loanwise/monitoring"
)

func main() {
	// 1. Load config
	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Logger
	log := logger.New(logger.Options{
		Namespace:  "loanwise",
		Level:      cfg.Log.Level,
		JSON:       cfg.Log.JSON,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("loanwise stopped", logger.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func configPath() string {
	if p := os.Getenv("LOANWISE_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func run(cfg *config.Config, log logger.ILogger) error {
	// 3. Artifacts; a bad pair is fatal
	engine, err := loadEngine(context.Background(), cfg)
	if err != nil {
		return err
	}
	log.Info("model loaded",
		logger.String("model_type", engine.ModelType()),
		logger.Int("columns", engine.Schema().Len()),
		logger.Bool("registry", cfg.UseRegistry()),
	)

	// 4. Drift watcher for loose files
	var watcher *monitoring.ArtifactWatcher
	if cfg.Artifacts.Watch && !cfg.UseRegistry() {
		watcher, err = monitoring.NewArtifactWatcher(log, cfg.Artifacts.ModelPath, cfg.Artifacts.SchemaPath)
		if err != nil {
			log.Warning("artifact watcher disabled", logger.Error(err))
		} else {
			defer watcher.Close()
		}
	}

	// 5. HTTP server
	server, err := lhttp.NewServer(lhttp.ServerConfig{
		Addr:           cfg.Addr(),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RateLimit:      cfg.RateLimit.Requests,
		RateWindow:     cfg.RateLimit.Window,
		MaxClients:     cfg.RateLimit.MaxClients,
	}, engine, log, watcher, monitoring.NewMetricsCollector())
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() {
		errc <- server.Start()
	}()

	// 6. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case sig := <-quit:
		log.Info("shutting down", logger.String("signal", sig.String()))
	}

	if err := server.Stop(); err != nil {
		return err
	}
	log.Info("exiting")
	return nil
}

// loadEngine builds the engine from loose files or, when a registry is
// configured, from the named artifact pair stored there.
func loadEngine(ctx context.Context, cfg *config.Config) (*ml.Engine, error) {
	if !cfg.UseRegistry() {
		return ml.LoadArtifacts(ml.ArtifactSource{
			ModelType:  cfg.Artifacts.ModelType,
			ModelPath:  cfg.Artifacts.ModelPath,
			SchemaPath: cfg.Artifacts.SchemaPath,
		})
	}

	registry, err := db.Open(cfg.Artifacts.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	defer registry.Close()

	name := cfg.Artifacts.Name
	for _, kind := range []string{db.KindModel, db.KindSchema} {
		if err := registry.Verify(ctx, name, kind); err != nil {
			return nil, fmt.Errorf("registry: %w", err)
		}
	}
	model, err := registry.Get(ctx, name, db.KindModel)
	if err != nil {
		return nil, err
	}
	schema, err := registry.Get(ctx, name, db.KindSchema)
	if err != nil {
		return nil, err
	}
	return ml.ParseArtifacts(model.ModelType, model.Payload, schema.Payload)
}
