package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/cors"

	"github.com/andrewpaige1/studyplan-api/config"
	"github.com/andrewpaige1/studyplan-api/extract"
	"github.com/andrewpaige1/studyplan-api/handlers"
	"github.com/andrewpaige1/studyplan-api/llm"
	"github.com/andrewpaige1/studyplan-api/logger"
	"github.com/andrewpaige1/studyplan-api/middleware"
	"github.com/andrewpaige1/studyplan-api/scheduler"
)

func init() {
	config.LoadDotEnv()
}

func main() {
	if err := run(); err != nil {
		logger.Error("server stopped", "error", err)
		logger.FlushReports()
		os.Exit(1)
	}
}

func run() error {
	env, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	if err := logger.Configure(logger.Options{Level: env.LogLevel, File: env.LogFile}); err != nil {
		logger.Error("logger configuration incomplete", "error", err)
	}
	host, _ := os.Hostname()
	logger.ConfigureReporting(logger.ReportOptions{
		Token:       env.RollbarToken,
		Environment: env.Name,
		Host:        host,
		CodeVersion: env.CodeVersion,
	})
	defer logger.FlushReports()

	// Initialize database connection
	db, err := config.Connect(env)
	if err != nil {
		return errors.Wrap(err, "connect database")
	}

	if env.AnthropicAPIKey == "" {
		logger.Info("ANTHROPIC_API_KEY not set, plan and summary generation will fail")
	}
	client := llm.NewAnthropicClient(llm.AnthropicConfig{
		APIKey:     env.AnthropicAPIKey,
		Model:      env.AnthropicModel,
		BaseURL:    env.AnthropicBaseURL,
		MaxTokens:  env.LLMMaxTokens,
		Timeout:    env.LLMTimeout,
		MaxRetries: env.LLMMaxRetries,
	})

	DBHandler := &handlers.DBHandler{
		DB:        db,
		LLM:       client,
		Extractor: extract.PlainText{},
		Env:       env,
	}
	authMiddleware, err := middleware.EnsureValidToken(env, handlers.PublicPaths...)
	if err != nil {
		return err
	}

	jobs := scheduler.New(env.Location)
	if _, err := jobs.ScheduleArchive(env.ArchiveSchedule, db, time.Now); err != nil {
		return err
	}
	jobs.Start()
	defer jobs.Stop()

	// Configure CORS with specific options
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   env.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin", handlers.IdempotencyKeyHeader, middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler(middleware.RequestLogger(authMiddleware(DBHandler.Routes())))

	srv := &http.Server{
		Addr:              "0.0.0.0:" + env.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
		// generation requests wait on the model
		WriteTimeout: env.LLMTimeout + 30*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "env", env.Name, "development", env.IsDevelopment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return errors.Wrap(err, "listen")
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
