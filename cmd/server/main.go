package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/returndesk/return-workflow/internal/application/dispatcher"
	"github.com/returndesk/return-workflow/internal/application/engine"
	"github.com/returndesk/return-workflow/internal/config"
	"github.com/returndesk/return-workflow/internal/infrastructure/persistence/repository"
	"github.com/returndesk/return-workflow/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/returndesk/return-workflow/internal/interfaces/http"
	"github.com/returndesk/return-workflow/pkg/database"
	"github.com/returndesk/return-workflow/pkg/utils"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Return Workflow Service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	txManager := sqlite.NewDB(db.DB, logger)
	requestRepo := repository.NewRequestRepository(db.DB, logger)
	stepRepo := repository.NewStepRepository(db.DB, logger)

	workflowEngine := engine.NewEngine(
		requestRepo,
		stepRepo,
		txManager,
		utils.NewKVLogger(logger, "engine"),
	)

	actionDispatcher := dispatcher.New()

	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		workflowEngine,
		actionDispatcher,
		requestRepo,
		utils.NewKVLogger(logger, "http"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
