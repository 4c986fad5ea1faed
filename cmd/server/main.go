package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"reelmarket/internal/client/boxoffice"
	"reelmarket/internal/client/reviews"
	"reelmarket/internal/config"
	cronrunner "reelmarket/internal/cron"
	"reelmarket/internal/db"
	"reelmarket/internal/handler"
	"reelmarket/internal/logger"
	gormrepository "reelmarket/internal/repository/gorm"
	"reelmarket/internal/resolution"
	"reelmarket/internal/scanner"
	"reelmarket/internal/service"
	"reelmarket/internal/tastematch"
	"reelmarket/internal/trendsetter"

	_ "reelmarket/docs"
)

func main() {
	cfgPath := os.Getenv("RM_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("RM_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	reviewsHTTP := &http.Client{Timeout: cfg.Reviews.Timeout}
	reviewsClient := reviews.NewClient(reviewsHTTP, cfg.Reviews.BaseURL)
	boxOfficeHTTP := &http.Client{Timeout: cfg.BoxOffice.Timeout}
	boxOfficeClient := boxoffice.NewClient(boxOfficeHTTP, cfg.BoxOffice.BaseURL)

	trendsetterEngine := &trendsetter.Engine{Repo: store, Logger: logger}
	tasteMatchEngine := &tastematch.Engine{
		Repo:             store,
		Logger:           logger,
		MinScore:         decimal.NewFromFloat(cfg.TasteMatch.MinScore),
		MinMarketsShared: cfg.TasteMatch.MinMarketsShared,
	}
	orchestrator := &resolution.Orchestrator{
		Repo:        store,
		Trendsetter: trendsetterEngine,
		TasteMatch:  tasteMatchEngine,
		Logger:      logger,
	}
	marketSvc := &service.MarketService{Repo: store, Logger: logger}
	betSvc := &service.BetService{Repo: store, Trendsetter: trendsetterEngine, Logger: logger}
	autoScanner := &scanner.Scanner{
		Repo:         store,
		Orchestrator: orchestrator,
		Reviews:      reviewsClient,
		BoxOffice:    boxOfficeClient,
		Logger:       logger,
		Config: scanner.Config{
			CriticScoreDelay: time.Duration(cfg.AutoResolve.CriticScoreDelayDays) * 24 * time.Hour,
			BoxOfficeDelay:   time.Duration(cfg.AutoResolve.BoxOfficeDelayDays) * 24 * time.Hour,
			MinReviewCount:   cfg.AutoResolve.MinReviewCount,
			BatchSize:        cfg.AutoResolve.BatchSize,
		},
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	marketHandler := &handler.MarketHandler{Service: marketSvc}
	marketHandler.Register(engine)
	betHandler := &handler.BetHandler{Service: betSvc}
	betHandler.Register(engine)
	resolutionHandler := &handler.ResolutionHandler{Repo: store, Orchestrator: orchestrator}
	resolutionHandler.Register(engine)
	userHandler := &handler.UserHandler{Repo: store}
	userHandler.Register(engine)
	scoreHandler := &handler.ScoreHandler{Trendsetter: trendsetterEngine, TasteMatch: tasteMatchEngine}
	scoreHandler.Register(engine)
	adminHandler := &handler.AdminHandler{Scanner: autoScanner, Markets: marketSvc}
	adminHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		if cfg.AutoResolve.Enabled {
			_, err = cronRunner.Add(cfg.Cron.AutoResolve, func(ctx context.Context) {
				result, err := autoScanner.RunScan(ctx)
				if err != nil {
					logger.Warn("cron auto-resolve failed", zap.Error(err))
					return
				}
				logger.Info("cron auto-resolve ok",
					zap.Int("processed", result.Processed),
					zap.Int("successful", result.Successful),
					zap.Int("failed", result.Failed),
					zap.Int("manual_required", result.ManualRequired),
				)
			})
			if err != nil {
				logger.Warn("cron register auto-resolve failed", zap.Error(err))
			}
		}

		_, err = cronRunner.Add(cfg.Cron.LifecycleSweep, func(ctx context.Context) {
			if _, err := marketSvc.LifecycleSweep(ctx); err != nil {
				logger.Warn("cron lifecycle sweep failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register lifecycle sweep failed", zap.Error(err))
		}

		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
