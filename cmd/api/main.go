package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/zombar/visibility"
	"github.com/zombar/visibility/ai"
	"github.com/zombar/visibility/api"
	"github.com/zombar/visibility/db"
	"github.com/zombar/visibility/storage"
)

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Setup structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load .env if present; real environment variables win
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded environment from .env file")
	}

	logger.Info("visibility service initializing", "version", "1.0.0")

	// Initialize tracing
	tp, err := initTracer("visibility-api")
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
		logger.Info("tracing initialized successfully")
	}

	// Default values
	defaultPort := getEnv("PORT", "8080")
	defaultArchivePath := getEnv("ARCHIVE_BASE_PATH", "./archive")
	defaultModel := getEnv("OPENAI_MODEL", "gpt-4o-mini")
	defaultAITimeout := getEnv("AI_TIMEOUT_SECONDS", "20")

	// Parse AI call timeout
	aiTimeoutSeconds, err := strconv.Atoi(defaultAITimeout)
	if err != nil || aiTimeoutSeconds < 1 {
		logger.Warn("invalid AI_TIMEOUT_SECONDS value, using default",
			"provided", defaultAITimeout,
			"default", 20,
		)
		aiTimeoutSeconds = 20
	}

	// Command-line flags (override environment variables)
	port := flag.String("port", defaultPort, "Server port")
	model := flag.String("openai-model", defaultModel, "OpenAI model to use for scoring and suggestions")
	aiTimeout := flag.Int("ai-timeout", aiTimeoutSeconds, "Timeout in seconds for a single AI call")
	disableCORS := flag.Bool("disable-cors", false, "Disable CORS")
	flag.Parse()

	// AI client is optional: without a key every probabilistic path degrades
	// to its deterministic fallback
	var aiClient ai.Client
	apiKey := getEnv("OPENAI_API_KEY", "")
	if apiKey != "" {
		client, err := ai.NewOpenAIClient(ai.Config{
			APIKey:  apiKey,
			Model:   *model,
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
		})
		if err != nil {
			logger.Error("failed to create AI client", "error", err)
			os.Exit(1)
		}
		aiClient = client
		logger.Info("AI client configured", "model", *model)
	} else {
		logger.Warn("OPENAI_API_KEY not set, running with heuristic scoring only")
	}

	// PostgreSQL database configuration (optional)
	var database *db.DB
	dbHost := getEnv("DB_HOST", "")
	if dbHost != "" {
		dbPort := getEnv("DB_PORT", "5432")
		dbUser := getEnv("DB_USER", "visibility")
		dbPassword := getEnv("DB_PASSWORD", "visibility_dev_pass")
		dbName := getEnv("DB_NAME", "visibility")

		dbConfig := db.Config{
			DSN: fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", dbHost, dbPort, dbUser, dbPassword, dbName),
		}
		logger.Info("using PostgreSQL database", "host", dbHost, "port", dbPort, "database", dbName)

		database, err = db.New(dbConfig)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}

		// Expose connection pool stats on /metrics
		prometheus.MustRegister(collectors.NewDBStatsCollector(database.DB(), dbName))
		logger.Info("database metrics initialized")
	} else {
		logger.Warn("DB_HOST not set, running without persistence")
	}

	// Report archive: local filesystem by default, S3-compatible when configured
	var archive storage.Store
	archiveBackend := getEnv("ARCHIVE_BACKEND", "local")
	switch archiveBackend {
	case "s3":
		s3Store, err := storage.NewS3Storage(context.Background(), storage.S3Config{
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("S3_BUCKET", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnv("S3_USE_PATH_STYLE", "") == "true",
		})
		if err != nil {
			logger.Error("failed to initialize S3 archive", "error", err)
			os.Exit(1)
		}
		archive = s3Store
		logger.Info("using S3 archive", "bucket", getEnv("S3_BUCKET", ""))
	default:
		localStore, err := storage.New(storage.Config{BasePath: defaultArchivePath})
		if err != nil {
			logger.Error("failed to initialize archive storage", "error", err)
			os.Exit(1)
		}
		archive = localStore
		logger.Info("using local archive", "path", defaultArchivePath)
	}

	// Create the analysis engine
	engineConfig := visibility.DefaultConfig()
	engineConfig.AITimeout = time.Duration(*aiTimeout) * time.Second
	engine := visibility.New(engineConfig, aiClient, archive)

	// Create server
	config := api.Config{
		Addr:        ":" + *port,
		CORSEnabled: !*disableCORS,
	}
	server := api.NewServer(config, engine, database, archive)

	// Start server in a goroutine
	go func() {
		logger.Info("visibility service starting",
			"port", *port,
			"database_host", dbHost,
			"archive_backend", archiveBackend,
			"archive_path", defaultArchivePath,
			"openai_model", *model,
			"ai_configured", aiClient != nil,
			"ai_timeout_seconds", *aiTimeout,
		)

		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	logger.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
