package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gamepredict/config"
	"gamepredict/db"
	ghttp "gamepredict/http"
	"gamepredict/logging"
	"gamepredict/ml"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(config.Resolve(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// 2. Initialize database
	if err := db.InitDB(cfg.Database.Path); err != nil {
		logger.Fatal("failed to initialize database", zap.String("path", cfg.Database.Path), zap.Error(err))
	}
	defer db.Close()
	logger.Info("database initialized", zap.String("path", cfg.Database.Path))

	// 3. Load or create the model
	opts := append(cfg.ML.ModelOptions(), ml.WithLogger(logger))
	model := ml.NewGamePredictionModel(cfg.ML.ModelPath, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := ghttp.NewEventHub(logger)
	go events.Run(ctx)

	service, err := ghttp.NewPredictionService(model, cfg.ML.CacheSize, events, logger)
	if err != nil {
		logger.Fatal("failed to create prediction service", zap.Error(err))
	}

	// 4. Reload when the model file is replaced by train_model
	watcher, err := ghttp.NewModelWatcher(cfg.ML.ModelPath, func() { service.Reload() }, logger)
	if err != nil {
		logger.Warn("model watcher disabled", zap.Error(err))
	} else {
		defer watcher.Close()
		go watcher.Run(ctx)
	}

	// 5. Start HTTP server
	server := ghttp.NewServer(ghttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	}, service, events, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// 6. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
	cancel()

	logger.Info("exiting")
}
