package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"plate-check-service/internal/config"
	"plate-check-service/internal/db"
	httphandler "plate-check-service/internal/http"
	"plate-check-service/internal/importer"
	"plate-check-service/internal/logger"
	"plate-check-service/internal/ocr"
	"plate-check-service/internal/ocr/tesseract"
	"plate-check-service/internal/repository"
	"plate-check-service/internal/service"
	"plate-check-service/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment, cfg.Debug)

	repo, closeRepo, err := openRegistry(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Str("driver", cfg.Registry.Driver).Msg("failed to open registry")
	}
	defer closeRepo()

	extractor := ocr.NewExtractor(
		tesseract.New(cfg.OCR.Languages...),
		ocr.Options{MinConfidence: cfg.OCR.MinConfidence, MinLength: cfg.OCR.MinLength},
		appLogger,
	)

	// R2 is optional; without it check images are not archived.
	var archiver service.ImageArchiver
	r2Client, err := storage.NewR2ClientFromEnv()
	switch {
	case err == nil:
		archiver = r2Client
	case errors.Is(err, storage.ErrNotConfigured):
		appLogger.Warn().Msg("R2 storage not configured, check images will not be archived")
	default:
		appLogger.Fatal().Err(err).Msg("failed to initialize R2 client")
	}

	checkService := service.NewCheckService(repo, extractor, archiver, appLogger)

	ctx := context.Background()
	if err := checkService.SeedDefaults(ctx); err != nil {
		appLogger.Fatal().Err(err).Msg("failed to seed registry")
	}
	if cfg.Registry.SeedFile != "" {
		if err := importSeedFile(ctx, checkService, cfg.Registry.SeedFile); err != nil {
			appLogger.Fatal().Err(err).Str("file", cfg.Registry.SeedFile).Msg("failed to import registry workbook")
		}
	}

	handler := httphandler.NewHandler(checkService, appLogger)
	router := httphandler.NewRouter(handler, cfg, repo, appLogger)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	appLogger.Info().
		Str("addr", addr).
		Str("registry", cfg.Registry.Driver).
		Strs("ocr_languages", cfg.OCR.Languages).
		Msg("starting plate check service")

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error().Err(err).Msg("failed to start server")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info().Msg("server exited")
}

func openRegistry(cfg *config.Config, log zerolog.Logger) (repository.StolenVehicleRepository, func(), error) {
	switch cfg.Registry.Driver {
	case config.RegistryPostgres:
		database, err := db.New(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if sqlDB, err := database.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return repository.NewPostgresRepository(database), closeFn, nil
	case config.RegistrySQLite:
		repo, err := repository.OpenSQLite(cfg.Registry.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.Registry.SQLitePath).Msg("sqlite registry ready")
		return repo, func() { repo.Close() }, nil
	default:
		return repository.NewMemoryRepository(), func() {}, nil
	}
}

func importSeedFile(ctx context.Context, svc *service.CheckService, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := importer.ReadWorkbook(f)
	if err != nil {
		return err
	}
	_, err = svc.Import(ctx, rows)
	return err
}
