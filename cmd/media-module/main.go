// Точка входа Media Module — сервиса приёма и хранения медиа-файлов CMS.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/tadcms/media-module/internal/api/handlers"
	"github.com/tadcms/media-module/internal/config"
	"github.com/tadcms/media-module/internal/database"
	"github.com/tadcms/media-module/internal/optimizer"
	"github.com/tadcms/media-module/internal/receiver"
	"github.com/tadcms/media-module/internal/repository"
	"github.com/tadcms/media-module/internal/server"
	"github.com/tadcms/media-module/internal/service"
	"github.com/tadcms/media-module/internal/storage/disk"
	"github.com/tadcms/media-module/internal/upload"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Media Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("upload_disk", cfg.UploadDisk),
		slog.Bool("image_optimizer", cfg.ImageOptimizer),
	)

	ctx := context.Background()

	// --- Инициализация компонентов ---

	// 1. Миграции и подключение к PostgreSQL
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка применения миграций", slog.String("error", err.Error()))
		os.Exit(1)
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к БД", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 2. Диск хранения
	d, err := disk.New(cfg.UploadDisk)
	if err != nil {
		logger.Error("Ошибка инициализации диска", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. Конвейер сохранения
	var opt upload.Optimizer
	if cfg.ImageOptimizer {
		opt = optimizer.NewChain(logger)
	}

	txRunner := repository.NewTxRunner(pool)
	manager := upload.NewManager(
		d,
		service.NewTxRecorder(txRunner),
		opt,
		cfg.FileTypes,
		upload.NewResolver(cfg.TmpDir),
		logger,
	)

	// 4. Приём загрузок (chunked-сессии с TTL)
	rcv := receiver.NewChunkReceiver(cfg.TmpDir, cfg.ChunkSessionMax, cfg.ChunkSessionTTL, logger)

	// 5. Сервис медиа-библиотеки
	mediaRepo := repository.NewMediaRepository(pool)
	mediaSvc := service.NewMediaService(mediaRepo, d, cfg.PublicBaseURL, logger)

	// 6. Мониторинг зависимостей topologymetrics
	sqlDB := stdlib.OpenDBFromPool(pool)
	dephealthSvc, err := service.NewDephealthService(
		cfg.ServiceID,
		cfg.DephealthGroup,
		sqlDB,
		cfg.DatabaseURL(),
		cfg.DephealthCheckInterval,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка инициализации dephealth", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := dephealthSvc.Start(ctx); err != nil {
		logger.Error("Ошибка запуска dephealth", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dephealthSvc.Stop()

	// 7. HTTP-сервер
	srv := server.New(
		cfg,
		logger,
		handlers.NewUploadHandler(rcv, manager, logger),
		handlers.NewMediaHandler(mediaSvc, logger),
		handlers.NewHealthHandler(cfg.UploadDisk, pool),
	)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
