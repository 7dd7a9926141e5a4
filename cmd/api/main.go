package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	appassess "github.com/bryanwahyu/lifeline-triage/internal/application/assessments"
	"github.com/bryanwahyu/lifeline-triage/internal/config"
	domai "github.com/bryanwahyu/lifeline-triage/internal/domain/ai"
	"github.com/bryanwahyu/lifeline-triage/internal/infra/ai/gemini"
	aiopenai "github.com/bryanwahyu/lifeline-triage/internal/infra/ai/openai"
	"github.com/bryanwahyu/lifeline-triage/internal/infra/ai/prompt"
	mysqlp "github.com/bryanwahyu/lifeline-triage/internal/infra/db/mysql"
	"github.com/bryanwahyu/lifeline-triage/internal/infra/httpserver"
	"github.com/bryanwahyu/lifeline-triage/internal/infra/resultstore"
	minioStore "github.com/bryanwahyu/lifeline-triage/internal/infra/storage"
	"github.com/bryanwahyu/lifeline-triage/internal/logger"
	"github.com/bryanwahyu/lifeline-triage/internal/middleware"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.WithError(err).Fatal("config load error")
	}

	ctx := context.Background()

	// connect MySQL
	db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
	if err != nil {
		log.WithError(err).Fatal("mysql connect error")
	}
	defer db.Close()

	// init repos
	repo := mysqlp.NewAssessmentRepository(db)
	errRepo := mysqlp.NewAssessmentErrorRepository(db)

	// init minio
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		log.WithError(err).Fatal("minio init error")
	}

	// analyzer: OpenAI when a key is configured, otherwise the offline
	// pattern screener
	var analyzer domai.Analyzer
	var transcriber domai.Transcriber
	if cfg.OpenAI.APIKey != "" {
		cli := aiopenai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		analyzer = cli
		transcriber = cli
	} else {
		log.Warn("no OpenAI key configured, using offline pattern screening")
		analyzer = prompt.HeuristicAnalyzer{}
	}

	var gatewayAnalyzer domai.Analyzer
	if cfg.Gemini.GatewayURL != "" {
		gatewayAnalyzer = gemini.NewClient(cfg.Gemini.GatewayURL)
	}

	// init service
	svc := appassess.NewService(repo, errRepo, resultstore.NewMemory(), store,
		analyzer, gatewayAnalyzer, transcriber, appassess.SystemClock{})

	// init router
	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	mux.Use(middleware.LoggingMiddleware(log))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.RateLimitMiddleware(30, 5))
	checkers := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}
	if cfg.Gemini.GatewayURL != "" {
		checkers["gateway"] = &middleware.GatewayHealthChecker{URL: cfg.Gemini.GatewayURL}
	}
	mux.Get("/healthz", middleware.HealthHandler(checkers))
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Mount("/", httpserver.NewRouter(svc, cfg.Upload.MaxBytes))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.WithField("addr", addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.WithError(err).Error("shutdown error")
	}
}
