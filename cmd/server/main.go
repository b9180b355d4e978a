package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/receiptsplit/internal/api"
	"github.com/mmynk/receiptsplit/internal/auth"
	"github.com/mmynk/receiptsplit/internal/config"
	"github.com/mmynk/receiptsplit/internal/receipt"
	"github.com/mmynk/receiptsplit/internal/service"
	"github.com/mmynk/receiptsplit/internal/storage/sqlstore"
	"github.com/mmynk/receiptsplit/internal/telemetry"
	"github.com/mmynk/receiptsplit/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := logging.Setup()

	if err := run(logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}

	if cfg.DBDriver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabaseURL), 0o755); err != nil {
			return err
		}
	}
	store, err := sqlstore.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("Storage initialized", "driver", cfg.DBDriver)

	metrics := telemetry.New()
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)

	authSvc := service.NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store, logger)
	if err := authSvc.Seed(context.Background(), cfg.Users); err != nil {
		return err
	}

	friends, err := service.NewFriendService(cfg.Friends)
	if err != nil {
		return err
	}

	images, err := receipt.NewFileStore(cfg.ReceiptsDir, cfg.ReceiptsBaseURL)
	if err != nil {
		return err
	}
	var ocr receipt.OCR = receipt.DisabledOCR{}
	if cfg.OCRURL != "" {
		ocr = receipt.NewHTTPOCR(receipt.HTTPOCRConfig{
			URL:     cfg.OCRURL,
			APIKey:  cfg.OCRAPIKey,
			Model:   cfg.OCRModel,
			Timeout: cfg.OCRTimeout,
		}, logger)
		logger.Info("OCR enabled", "url", cfg.OCRURL, "model", cfg.OCRModel)
	} else {
		logger.Warn("OCR_URL not set; receipt uploads fall back to manual entry")
	}

	notifications := service.NewNotificationService(store, metrics, logger)
	handler := api.NewRouter(api.Deps{
		Auth:          authSvc,
		Expenses:      service.NewExpenseService(store, notifications, metrics, logger),
		Friends:       friends,
		Receipts:      service.NewReceiptService(ocr, images, metrics, logger),
		Notifications: notifications,
		JWT:           jwtManager,
		Store:         store,
		Metrics:       metrics,
		Logger:        logger,
		CORSOrigins:   cfg.FrontendURL,
		ReceiptsDir:   images.Dir(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
