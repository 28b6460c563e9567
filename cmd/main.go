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

	"github.com/ipede/mfa-service/internal/application"
	"github.com/ipede/mfa-service/internal/infrastructure/config"
	"github.com/ipede/mfa-service/internal/infrastructure/crypto"
	"github.com/ipede/mfa-service/internal/infrastructure/metrics"
	"github.com/ipede/mfa-service/internal/infrastructure/totp"
	httprouter "github.com/ipede/mfa-service/internal/interfaces/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// @title MFA Service API
// @version 1.0
// @description TOTP multi-factor authentication for user accounts
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cipher, err := crypto.NewCipher(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal("Failed to initialize secret cipher", zap.Error(err))
	}

	store, err := openStorage(ctx, cfg, cipher, logger)
	if err != nil {
		logger.Fatal("Failed to open storage",
			zap.String("backend", cfg.StorageBackend),
			zap.Error(err))
	}
	defer store.close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry, "mfa-service")

	engine := totp.NewEngine(totp.Options{
		Issuer: cfg.TOTPIssuer,
		Period: cfg.TOTPPeriod,
		Skew:   cfg.TOTPSkew,
		Digits: cfg.TOTPDigits,
	}, logger)

	mfaService := application.NewMFAService(
		store.mfa,
		store.users,
		engine,
		totp.NewRecoveryGenerator(logger),
		logger,
		application.WithQRCode(totp.QRCode),
		application.WithRecorder(m),
	)
	userService := application.NewUserService(store.users, logger)

	// Create router
	router := httprouter.NewRouter(httprouter.Dependencies{
		Config:      cfg,
		MFAService:  mfaService,
		UserService: userService,
		Ready:       store.ready,
		Metrics:     m,
		Gatherer:    registry,
		Logger:      logger,
	})
	go router.RunJanitor(ctx)

	// Start server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server",
			zap.Int("port", cfg.ServerPort),
			zap.String("storage", cfg.StorageBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("Server exited properly")
}
