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
	"github.com/google/uuid"
	"go.uber.org/zap"

	"adjudge/internal/cache"
	"adjudge/internal/config"
	cronrunner "adjudge/internal/cron"
	"adjudge/internal/db"
	"adjudge/internal/engine"
	"adjudge/internal/handler"
	"adjudge/internal/logger"
	"adjudge/internal/notify"
	gormrepository "adjudge/internal/repository/gorm"
	"adjudge/internal/service"
	"adjudge/internal/sheet"
)

func main() {
	cfgPath := os.Getenv("ADJ_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("ADJ_ENV_ONLY"); envOnlyRaw != "" {
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
	analysisCache := cache.New()

	settingsSvc := &service.SystemSettingsService{
		Repo:   store,
		Cache:  analysisCache,
		Logger: logger,
		Defaults: service.SettingsDefaults{
			MinSpend:      cfg.Judgment.MinSpend,
			ROASFloor:     cfg.Judgment.ROASFloor,
			MinSampleDays: cfg.Judgment.MinSampleDays,
			LookbackDays:  cfg.Pipeline.LookbackDays,
			CacheTTL:      cfg.Cache.TTL,
		},
	}
	if err := settingsSvc.EnsureDefaults(context.Background()); err != nil {
		logger.Fatal("seed default settings failed", zap.Error(err))
	}

	sheetHTTP := &http.Client{Timeout: cfg.Sheets.Timeout}
	sheetClient := sheet.NewClient(sheetHTTP, cfg.Sheets.BaseURL, os.Getenv(cfg.Sheets.APIKeyEnv))

	analysisCfg := service.AnalysisConfig{
		CurrentSourceID:    cfg.Sheets.CurrentSourceID,
		CurrentRange:       cfg.Sheets.CurrentRange,
		CurrentColumns:     columnMap(cfg.Pipeline.CurrentColumns),
		HistoricalSourceID: cfg.Sheets.HistoricalSourceID,
		HistoricalRange:    cfg.Sheets.HistoricalRange,
		HistoricalColumns:  columnMap(cfg.Pipeline.HistoricalColumns),
		DepartmentPrefix:   cfg.Pipeline.DepartmentPrefix,
		Timezone:           cfg.Sheets.Timezone,
	}
	if err := analysisCfg.Validate(); err != nil {
		logger.Fatal("analysis config invalid", zap.Error(err))
	}

	analysisSvc := &service.AnalysisService{
		Source:   sheetClient,
		Settings: settingsSvc,
		Cache:    analysisCache,
		Config:   analysisCfg,
		Logger:   logger,
	}

	var notifySvc *service.NotifyService
	if cfg.Notify.Enabled && cfg.Notify.WebhookURL != "" {
		notifyHTTP := &http.Client{Timeout: cfg.Notify.Timeout}
		notifySvc = &service.NotifyService{
			Analysis: analysisSvc,
			Sender:   notify.NewClient(notifyHTTP, cfg.Notify.WebhookURL),
			Logger:   logger,
		}
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(router)
	analysisHandler := &handler.AnalysisHandler{Service: analysisSvc, Logger: logger}
	analysisHandler.Register(router)
	settingsHandler := &handler.SettingsHandler{Repo: store, Settings: settingsSvc}
	settingsHandler.Register(router)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.PreloadSpec, func(ctx context.Context) {
			if err := analysisSvc.Preload(ctx); err != nil {
				logger.Warn("cron preload failed", zap.Error(err))
				return
			}
			logger.Info("cron preload ok")
		})
		if err != nil {
			logger.Warn("cron register preload failed", zap.Error(err))
		}
		if notifySvc != nil {
			_, err = cronRunner.Add(cfg.Cron.NotifySpec, func(ctx context.Context) {
				if err := notifySvc.SendSummary(ctx); err != nil {
					logger.Warn("cron judgment summary failed", zap.Error(err))
				}
			})
			if err != nil {
				logger.Warn("cron register notify failed", zap.Error(err))
			}
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	// Warm the cache before taking traffic so the first dashboard load does
	// not pay the upstream fetch.
	{
		warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := analysisSvc.Preload(warmCtx); err != nil {
			logger.Warn("initial preload failed (continuing)", zap.Error(err))
		}
		cancel()
	}

	errCh := make(chan error, 1)
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

func columnMap(c config.ColumnMapConfig) engine.ColumnMap {
	return engine.ColumnMap{
		FirstDataRow:     c.FirstDataRow,
		Date:             c.Date,
		CampaignName:     c.CampaignName,
		MediaName:        c.MediaName,
		Cost:             c.Cost,
		Clicks:           c.Clicks,
		Conversions:      c.Conversions,
		MicroConversions: c.MicroConversions,
		Revenue:          c.Revenue,
		UnitPrice:        c.UnitPrice,
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Actor")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}
