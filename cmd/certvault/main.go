package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pramaanvault/certvault/internal/api/handler"
	"github.com/pramaanvault/certvault/internal/certificate"
	"github.com/pramaanvault/certvault/internal/health"
	"github.com/pramaanvault/certvault/internal/ledger"
	"github.com/pramaanvault/certvault/internal/receipts"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("certvault exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	viper.SetConfigName("certvault")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.rate_limit_rps", 20)
	viper.SetDefault("server.max_upload_bytes", 1<<20)
	viper.SetDefault("server.request_timeout", "2m")
	viper.SetDefault("ledger.backend", "ethereum")
	viper.SetDefault("ledger.rpc_url", "http://localhost:8545")
	viper.SetDefault("ledger.contract_address", "")
	viper.SetDefault("ledger.signer_keys", []string{})
	viper.SetDefault("ledger.gas_price", 0)
	viper.SetDefault("ledger.dial_timeout", "15s")
	viper.SetDefault("ledger.confirm_timeout", "90s")
	viper.SetDefault("receipts.database_url", "")
	viper.SetDefault("health.probe_interval", "1m")
	viper.SetDefault("health.probe_timeout", "10s")
	viper.SetDefault("health.fail_threshold", 3)

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Warn("no config file found, using defaults and env vars")
	}

	// ── Ledger ────────────────────────────────────────────────────────────────
	// The connection and contract are resolved here, at startup: an
	// unreachable node or missing contract keeps the process from coming up
	// at all rather than failing on the first request.
	ledgerClient, err := dialLedger(logger)
	if err != nil {
		return err
	}
	defer ledgerClient.Close()

	// ── Receipts journal (optional) ──────────────────────────────────────────
	var receiptStore *receipts.Store
	if dbURL := viper.GetString("receipts.database_url"); dbURL != "" {
		db, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer db.Close()
		if err := db.Ping(context.Background()); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		receiptStore = receipts.NewStore(db, logger)
		logger.Info("batch receipt journal enabled")
	} else {
		logger.Info("batch receipt journal disabled (set receipts.database_url to enable)")
	}

	// ── Wire up layers ────────────────────────────────────────────────────────
	ingestor := certificate.NewIngestor(ledgerClient, logger)
	if price := viper.GetUint64("ledger.gas_price"); price != 0 {
		ingestor.SetUnitPrice(ledger.UnitPrice(price))
	}
	if receiptStore != nil {
		ingestor.SetRecorder(receiptStore)
	}
	verifier := certificate.NewVerifier(ledgerClient, logger)

	certHandler := handler.NewCertificateHandler(ingestor, verifier, logger)
	infoHandler := handler.NewInfoHandler(ledgerClient, logger)

	// Background goroutines (rate-limit sweeper, ledger monitor) stop when
	// this context is cancelled at shutdown.
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// ── HTTP Router ───────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsOrigins := viper.GetStringSlice("server.cors_origins")
	router.Use(cors.New(cors.Config{
		AllowOrigins:  corsOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	// Security headers
	router.Use(func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	// Request body size limit bounds CSV uploads.
	maxUpload := viper.GetInt64("server.max_upload_bytes")
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUpload)
		c.Next()
	})

	// Per-request deadline. Ledger calls inherit it, so a hung node turns
	// into ErrUnavailable instead of a stuck request.
	requestTimeout := viper.GetDuration("server.request_timeout")
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	if rps := viper.GetInt("server.rate_limit_rps"); rps > 0 {
		router.Use(handler.RateLimiter(bgCtx, rps, rps*2))
	}

	router.Use(handler.PrometheusMiddleware())
	router.Use(requestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", handler.MetricsHandler())

	v1 := router.Group("/api/v1")
	certHandler.Register(v1)
	infoHandler.Register(v1)
	if receiptStore != nil {
		handler.NewReceiptsHandler(receiptStore, logger).Register(v1)
	}

	// ── Background: ledger connectivity monitor ──────────────────────────────
	monitor := health.New(ledgerClient, health.Config{
		ProbeInterval: viper.GetDuration("health.probe_interval"),
		ProbeTimeout:  viper.GetDuration("health.probe_timeout"),
		FailThreshold: viper.GetInt("health.fail_threshold"),
	}, logger)
	monitor.SetMetricsRecord(handler.RecordLedgerProbe)
	go monitor.Run(bgCtx)

	// ── HTTP Server ───────────────────────────────────────────────────────────
	port := viper.GetInt("server.port")
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("certvault HTTP listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	<-quit
	logger.Info("shutting down certvault...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("certvault stopped")
	return nil
}

// dialLedger builds the configured ledger backend.
func dialLedger(logger *zap.Logger) (ledger.Client, error) {
	backend := viper.GetString("ledger.backend")
	switch backend {
	case "memory":
		logger.Warn("using in-memory ledger backend, anchored hashes do not survive restarts")
		return ledger.NewMemory(), nil

	case "ethereum":
		dialCtx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("ledger.dial_timeout"))
		defer cancel()

		client, err := ledger.DialEth(dialCtx, ledger.EthConfig{
			RPCURL:          viper.GetString("ledger.rpc_url"),
			ContractAddress: viper.GetString("ledger.contract_address"),
			SignerKeys:      viper.GetStringSlice("ledger.signer_keys"),
			ConfirmTimeout:  viper.GetDuration("ledger.confirm_timeout"),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to ledger: %w", err)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unknown ledger backend %q", backend)
	}
}

// requestLogger returns a Gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
