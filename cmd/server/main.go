package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bakary221/Om-Pay/configs"
	"github.com/Bakary221/Om-Pay/internal/engine"
	"github.com/Bakary221/Om-Pay/internal/handlers"
	"github.com/Bakary221/Om-Pay/internal/logger"
	"github.com/Bakary221/Om-Pay/internal/metrics"
	"github.com/Bakary221/Om-Pay/internal/routes"
	"github.com/Bakary221/Om-Pay/internal/seed"
	"github.com/Bakary221/Om-Pay/internal/store"
	"go.uber.org/zap"
)

func main() {
	logger.Init()
	defer logger.Log.Sync()

	configs.LoadConfig()
	store.NewDB()
	store.DBMigrate()

	collector := metrics.New()
	policy := engine.NewPolicy(engine.PolicyConfigFromApp(configs.AppConfig))
	eng := engine.New(store.DB, policy, collector)

	seed.Run(eng)

	router := routes.NewRoutes(handlers.New(eng), collector.Handler())

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("graceful shutdown failed", zap.Error(err))
	}

	sqlDB, err := store.DB.DB()
	if err != nil {
		logger.Log.Error("db close skipped, reason:", zap.Error(err))
	} else {
		sqlDB.Close()
		logger.Log.Info("db closed")
	}

	logger.Log.Info("server stopped")
}
