package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/config"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/domain"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/handler"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/cache"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/ingest"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/observability"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/pdf"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/resilience"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/storage"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("db_path", cfg.DBPath),
		zap.Duration("auth_delay", cfg.AuthDelay),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Int("store_max_retries", cfg.StoreMaxRetries),
		zap.Duration("store_initial_backoff", cfg.StoreInitialBackoff),
		zap.Int("max_concurrent_uploads", cfg.MaxConcurrentUploads),
		zap.Bool("tracing_enabled", cfg.TracingEnabled),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("invoicer stopped with error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	endpoint := ""
	if cfg.TracingEnabled {
		endpoint = cfg.OTLPEndpoint
	}
	shutdownTracer, err := observability.InitTracer(endpoint, "invoicer")
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Storage ---
	db, err := storage.OpenSQLite(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	kv := storage.NewResilient(db, resilience.NewCircuitBreaker("kv-store", logger), resilience.Config{
		MaxRetries:     cfg.StoreMaxRetries,
		InitialBackoff: cfg.StoreInitialBackoff,
	})

	// --- Services ---
	creds := service.NewCredentialStore(kv, logger)
	session := service.NewSessionManager(creds, kv, cfg.AuthDelay, metrics, logger)
	session.Start(ctx)
	defer session.Close()

	editor := service.NewInvoiceEditor(
		ingest.NewDataURLIngester(cfg.MaxConcurrentUploads, metrics, logger),
		domain.DocumentOptions{WatermarkText: cfg.BrandWatermark},
		metrics,
		logger,
	)
	editor.OnChange(func(doc domain.Document, totals domain.Totals) {
		logger.Debug("invoice updated",
			zap.Int("line_items", len(doc.LineItems)),
			zap.String("grand_total", domain.FormatMoney(doc.CurrencySymbol, totals.GrandTotal)),
		)
	})

	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.JWTAccessTTL)

	// --- Printing ---
	printCache := cache.New[[]byte](cfg.PrintCacheTTL)
	defer printCache.Stop()
	printer := pdf.NewCachedPrinter(pdf.NewExporter(logger), printCache)

	// --- Router ---
	router := handler.NewRouter(handler.Dependencies{
		Session: session,
		Editor:  editor,
		Tokens:  tokens,
		Printer: printer,
		Store:   db,
		Metrics: metrics,
		Logger:  logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	// --- Graceful shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
