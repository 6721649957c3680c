package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jengzang/staypoint-backend-go/internal/analysis"
	_ "github.com/jengzang/staypoint-backend-go/internal/analysis/staydetection" // registers stay_detection
	"github.com/jengzang/staypoint-backend-go/internal/api"
	"github.com/jengzang/staypoint-backend-go/internal/config"
	"github.com/jengzang/staypoint-backend-go/internal/database"
	"github.com/jengzang/staypoint-backend-go/internal/middleware"
	"github.com/jengzang/staypoint-backend-go/internal/repository"
	"github.com/jengzang/staypoint-backend-go/internal/service"
)

func main() {
	envPath := flag.String("env", ".env", "optional dotenv file applied before reading the environment")
	issueToken := flag.String("issue-token", "", "print an admin token for this subject and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of an issued token")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// 加载配置
	cfg, err := config.Load(*envPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger = logger.Level(cfg.LogLevel)

	if *issueToken != "" {
		token, err := middleware.IssueToken(cfg.JWTSecret, *issueToken, *tokenTTL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to issue token")
		}
		fmt.Println(token)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	if err := database.Init(ctx, database.Config{Path: cfg.DBPath, Logger: logger}); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer database.Close()
	db := database.GetDB()

	deps := analysis.Deps{
		Tracks:       repository.NewTrackRepository(db),
		Stays:        repository.NewStayRepository(db),
		Tasks:        repository.NewAnalysisTaskRepository(db),
		Logger:       logger,
		StayDefaults: cfg.StayOptions(),
	}
	tasks := service.NewAnalysisTaskService(deps)
	defer tasks.Shutdown()

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	defer limiter.Stop()

	if cfg.LogLevel > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	router := api.SetupRouter(cfg, api.Services{
		Tracks: service.NewTrackService(deps.Tracks, logger),
		Stays:  service.NewStayService(deps.Stays, deps.StayDefaults),
		Tasks:  tasks,
	}, limiter, logger)

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Port).
			Float64("stay_distance_km", cfg.StayDistanceKm).
			Dur("stay_min_duration", cfg.StayMinDuration).
			Strs("skills", analysis.Skills()).
			Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server stopped")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
