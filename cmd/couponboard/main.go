// Package main запускает HTTP-сервер сервиса купонов.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/couponboard/internal/admin"
	"github.com/mmeshcher/couponboard/internal/config"
	"github.com/mmeshcher/couponboard/internal/countdown"
	"github.com/mmeshcher/couponboard/internal/geo"
	"github.com/mmeshcher/couponboard/internal/handler"
	"github.com/mmeshcher/couponboard/internal/middleware"
	"github.com/mmeshcher/couponboard/internal/repository"
	"github.com/mmeshcher/couponboard/internal/service"
	"github.com/mmeshcher/couponboard/internal/session"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	// Файл .env необязателен, переменные окружения имеют приоритет.
	_ = godotenv.Load()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	var geoClient *geo.Client
	if cfg.GeoAddress != "" {
		geoClient = geo.NewClient(cfg.GeoAddress, logger)
	}

	svc := service.NewService(repo, geoClient)
	defer svc.Close()

	sessions := session.NewStore(cfg.SessionSecret)
	auth := middleware.NewAuth(sessions)
	gate := admin.NewGate()
	ticks := countdown.NewScheduler(time.Second)

	h := handler.NewHandler(svc, logger, sessions, auth, gate, ticks)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Общий тикер обратного отсчёта для всех подключённых клиентов
	ticks.Start(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting couponboard server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
