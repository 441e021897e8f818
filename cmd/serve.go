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

	"github.com/Dosada05/scrim-system/config"
	"github.com/Dosada05/scrim-system/db"
	"github.com/Dosada05/scrim-system/handlers"
	"github.com/Dosada05/scrim-system/matchmaking"
	"github.com/Dosada05/scrim-system/metrics"
	"github.com/Dosada05/scrim-system/rating"
	"github.com/Dosada05/scrim-system/realtime"
	"github.com/Dosada05/scrim-system/repositories"
	api "github.com/Dosada05/scrim-system/routes"
	"github.com/Dosada05/scrim-system/services"
	"github.com/Dosada05/scrim-system/storage"
	"github.com/go-chi/chi/v5"
)

func serve(cfg *config.Config, logger *slog.Logger, migrate bool) error {
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.Any("map_pool", cfg.MapPool),
		slog.Int("room_capacity", cfg.RoomCapacity),
		slog.String("missing_rating_policy", string(cfg.MissingRatingPolicy)))

	// Подключение к базе данных
	dbConn, err := openDB(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()

	if migrate {
		if err := db.Migrate(dbConn, logger); err != nil {
			return err
		}
	}

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	// Хранилище аватаров опционально
	var uploader storage.FileUploader
	if cfg.R2.Enabled() {
		uploader, err = storage.NewR2Uploader(appCtx, cfg.R2)
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		logger.Info("Cloudflare R2 uploader initialized", slog.String("bucket", cfg.R2.BucketName))
	} else {
		logger.Warn("R2 is not configured, avatar uploads are disabled")
	}

	// Инициализация WebSocket Hub
	wsHub := realtime.NewHub(logger)
	go wsHub.Run(appCtx)
	logger.Info("WebSocket Hub started")

	// Метрики
	registry := metrics.NewRegistry()
	collector := metrics.New(registry)
	metrics.WatchClients(registry, wsHub.TotalClients)

	// Инициализация репозиториев
	txManager := repositories.NewPostgresTransactor(dbConn, txMaxAttempts, logger)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	roomRepo := repositories.NewPostgresRoomRepository(dbConn)
	bpRepo := repositories.NewPostgresBPSessionRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	statRepo := repositories.NewPostgresPlayerStatRepository(dbConn)
	ratingHistoryRepo := repositories.NewPostgresRatingHistoryRepository(dbConn)

	// Инициализация сервисов
	authService := services.NewAuthService(playerRepo)
	playerService := services.NewPlayerService(playerRepo, uploader, logger)
	historyService := services.NewHistoryService(playerRepo, statRepo, ratingHistoryRepo, uploader)
	roomService := services.NewRoomService(txManager, roomRepo, playerRepo, wsHub, logger, services.RoomServiceConfig{
		Capacity: cfg.RoomCapacity,
		IdleTTL:  cfg.RoomIdleTTL,
	})
	matchService := services.NewMatchService(services.MatchServiceDeps{
		Tx:            txManager,
		Rooms:         roomRepo,
		Matches:       matchRepo,
		Players:       playerRepo,
		Stats:         statRepo,
		RatingHistory: ratingHistoryRepo,
		Balancer:      matchmaking.NewBalancer(cfg.MaxBalanceRoster),
		Model:         rating.NewModel(cfg.MissingRatingPolicy),
		Notifier:      wsHub,
		Metrics:       collector,
		Logger:        logger,
	})
	bpService := services.NewBPService(txManager, bpRepo, roomRepo, matchRepo, wsHub, collector, logger, cfg.MapPool)
	logger.Info("Services initialized")

	// Планировщик очистки брошенных комнат
	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		logger.Info("idle room purge scheduler started",
			slog.Duration("interval", purgeInterval), slog.Duration("ttl", cfg.RoomIdleTTL))

		for {
			select {
			case <-appCtx.Done():
				return
			case <-ticker.C:
				if _, err := roomService.PurgeIdleRooms(appCtx); err != nil {
					logger.Error("Scheduler: idle room purge failed", slog.Any("error", err))
				}
			}
		}
	}()

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth:      handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		Player:    handlers.NewPlayerHandler(playerService, historyService),
		Room:      handlers.NewRoomHandler(roomService, matchService),
		BP:        handlers.NewBPHandler(bpService),
		Match:     handlers.NewMatchHandler(matchService),
		History:   handlers.NewHistoryHandler(historyService),
		WebSocket: handlers.NewWebSocketHandler(wsHub),
		Metrics:   metrics.Handler(registry),
	}, []byte(cfg.JWTSecretKey), cfg.CORSAllowedOrigins)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		// Сначала закрываем websocket-клиентов и планировщик, потом HTTP.
		stopApp()
		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server shutdown complete")
	}
	return nil
}
