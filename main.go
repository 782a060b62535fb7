package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"storeadmin_server/api"
	"storeadmin_server/config"
	"storeadmin_server/database"
	"storeadmin_server/services"
	"storeadmin_server/structs"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/MonkyMars/gecho"
	"github.com/joho/godotenv"
)

var logger *gecho.Logger
var cfg *structs.Config

// init function to load environment variables and initialize logger and database
func init() {
	envErr := godotenv.Load()

	cfg = config.GetConfig()
	logger = config.InitializeLogger()

	if envErr != nil {
		logger.Warn("No .env file found or error loading .env file, proceeding with system environment variables")
	}

	if err := database.Initialize(); err != nil {
		logger.Fatal("Failed to initialize database", gecho.Field("error", err))
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sm := services.NewServiceManager(logger, cfg, database.GetInstance())

	var workers sync.WaitGroup
	startWorkers(ctx, &workers, sm)

	srv := &http.Server{
		Addr:           cfg.Server.Port,
		Handler:        api.App(cfg, sm),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Info(fmt.Sprintf("Starting server (%s) on %s", cfg.Server.AppName, cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to start server", gecho.Field("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", gecho.Field("error", err))
	}

	sm.ChangeFeed.Close()
	workers.Wait()

	if err := sm.CacheService.Close(); err != nil {
		logger.Warn("Cache close failed", gecho.Field("error", err))
	}
	if err := database.CloseInstance(); err != nil {
		logger.Warn("Database close failed", gecho.Field("error", err))
	}
	logger.Info("Shutdown complete")
}

// startWorkers runs the change listener and the stats refresher until ctx ends
func startWorkers(ctx context.Context, workers *sync.WaitGroup, sm *services.ServiceManager) {
	workers.Go(func() {
		sm.Refresher.Run(ctx)
	})

	listenDB, err := database.ConnectListener(cfg.Database, logger)
	if err != nil {
		logger.Warn("Change listener disabled, only local writes reach the feed", gecho.Field("error", err))
		return
	}
	listener := services.NewPgListener(logger, listenDB, cfg.Database.NotifyChan, sm.ChangeFeed)
	workers.Go(func() {
		defer listenDB.Close()
		listener.Run(ctx)
	})
}
