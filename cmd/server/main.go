package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"speedy-status/internal/config"
	"speedy-status/internal/handler"
	"speedy-status/internal/logger"
	"speedy-status/internal/middleware"
	"speedy-status/internal/repository"
	"speedy-status/internal/service"
)

func main() {
	configFile := flag.String("config", "", "config file path (e.g. etc/config-dev.yaml)")
	flag.Parse()

	cfg := config.Load(*configFile)
	logger.Init(cfg.Log)

	db, err := cfg.OpenGormDB()
	if err != nil {
		slog.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	if err := repository.AutoMigrate(db); err != nil {
		slog.Error("db migrate failed", "err", err)
		os.Exit(1)
	}
	repo := repository.NewRepository(db)

	var notifier service.Notifier = &service.LogNotifier{Log: logger.Component("notifier")}
	generator := service.NewOpenAIGenerator(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Model)

	scheduler := service.NewScheduler(repo, logger.Component("scheduler"))
	dispatcher := service.NewDispatcher(repo, notifier,
		service.RetryPolicy{MaxAttempts: cfg.Engine.DispatchMaxAttempts, BaseDelay: cfg.Engine.DispatchBaseDelay, MaxDelay: time.Minute},
		cfg.Engine.NotifyTimeout, cfg.Engine.DispatchBatch, logger.Component("dispatcher"))
	tracker := service.NewSubmissionTracker(repo)
	orchestrator := service.NewSummaryOrchestrator(repo, tracker, generator,
		service.RetryPolicy{MaxAttempts: cfg.Engine.GenerateMaxAttempts, BaseDelay: cfg.Engine.GenerateBaseDelay, MaxDelay: 30 * time.Second},
		cfg.Engine.GenerateTimeout, cfg.Engine.SubmissionWindow, logger.Component("orchestrator"))

	// The three loops run independently: dispatch to slow channels must not
	// block the next sweep tick or other teams' trigger evaluation.
	engineCtx, stopEngine := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); scheduler.Run(engineCtx, cfg.Engine.SweepInterval) }()
	go func() { defer wg.Done(); dispatcher.Run(engineCtx, cfg.Engine.SweepInterval) }()
	go func() { defer wg.Done(); orchestrator.RunTimeoutSweep(engineCtx, cfg.Engine.SweepInterval) }()

	summaryH := handler.NewSummaryHandler(orchestrator, repo)
	submissionH := handler.NewSubmissionHandler(repo, tracker, orchestrator)
	teamH := handler.NewTeamHandler(repo)
	jobH := handler.NewJobHandler(repo, dispatcher)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/api/v1", middleware.JWTAuth([]byte(cfg.Auth.JWTSecret)))
	api.POST("/summaries/:team_id/generate", summaryH.Generate)
	api.GET("/summaries/:team_id", summaryH.List)
	api.GET("/summaries/:team_id/week", summaryH.Get)
	api.POST("/submissions", submissionH.Create)
	api.GET("/submissions/:team_id/status", submissionH.Status)
	api.PUT("/team/:team_id/schedule", teamH.UpdateSchedule)
	api.GET("/jobs/:team_id", jobH.List)
	api.POST("/jobs/:job_id/redispatch", jobH.Redispatch)

	srv := &http.Server{Addr: cfg.Addr(), Handler: r}
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")

	stopEngine()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "err", err)
	}
	slog.Info("bye")
}
