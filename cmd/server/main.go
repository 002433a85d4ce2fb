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
	"go.uber.org/zap"

	"towerads/internal/config"
	cronrunner "towerads/internal/cron"
	"towerads/internal/db"
	"towerads/internal/earnings"
	"towerads/internal/handler"
	"towerads/internal/impression"
	"towerads/internal/inventory"
	"towerads/internal/logger"
	"towerads/internal/mediation"
	"towerads/internal/metrics"
	"towerads/internal/notify"
	"towerads/internal/orders"
	gormrepository "towerads/internal/repository/gorm"
)

func main() {
	cfgPath := os.Getenv("TA_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("TA_ENV_ONLY"); envOnlyRaw != "" {
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
	m := metrics.New("towerads")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher := notify.NewDispatcher(logger, cfg.Notify.BufferSize, &notify.LogSink{Logger: logger})
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	engine := &mediation.Engine{
		Repo:        store,
		Impressions: store,
		Logger:      logger,
		NoFillLimit: cfg.Serving.NoFillLimit,
	}
	reserver := &inventory.Reserver{Repo: store, Logger: logger}
	impressions := &impression.Service{
		Repo:      store,
		Inventory: store,
		Reserver:  reserver,
		Notify:    dispatcher,
		Metrics:   m,
		Logger:    logger,
		DupWindow: cfg.Serving.DuplicateWindow,
	}
	accruer := &earnings.Accruer{
		Repo:       store,
		Metrics:    m,
		Logger:     logger,
		Revshare:   cfg.Earnings.Revshare,
		FreezeDays: cfg.Earnings.FreezeDays,
	}
	unfreezer := &earnings.Unfreezer{Repo: store, Metrics: m, Logger: logger}
	orderSvc := &orders.Service{
		Inventory:  store,
		Placements: store,
		Notify:     dispatcher,
		Logger:     logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(router)
	serveHandler := &handler.ServeHandler{
		Placements:  store,
		Engine:      engine,
		Reserver:    reserver,
		Impressions: impressions,
		Metrics:     m,
		Logger:      logger,
	}
	serveHandler.Register(router)
	earningsHandler := &handler.EarningsHandler{
		Accruer:   accruer,
		Unfreezer: unfreezer,
		Repo:      store,
		Logger:    logger,
	}
	earningsHandler.Register(router)
	mediationHandler := &handler.MediationHandler{Repo: store, Logger: logger}
	mediationHandler.Register(router)
	ordersHandler := &handler.OrdersHandler{
		Service:    orderSvc,
		Inventory:  store,
		Placements: store,
		Logger:     logger,
	}
	ordersHandler.Register(router)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.Accrual, func(ctx context.Context) {
			day := time.Now().UTC().Add(-24 * time.Hour)
			res, err := accruer.Accrue(ctx, day, 0, 0)
			if err != nil {
				logger.Warn("cron accrual failed", zap.Error(err))
				return
			}
			logger.Info("cron accrual ok",
				zap.String("day", res.Day),
				zap.Int("entries", res.EntriesWritten))
		})
		if err != nil {
			logger.Warn("cron register accrual failed", zap.Error(err))
		}

		_, err = cronRunner.Add(cfg.Cron.Unfreeze, func(ctx context.Context) {
			res, err := unfreezer.UnfreezeDue(ctx, time.Now().UTC())
			if err != nil {
				logger.Warn("cron unfreeze failed", zap.Error(err))
				return
			}
			if res.PublishersAffected > 0 {
				logger.Info("cron unfreeze ok",
					zap.Int("publishers", res.PublishersAffected),
					zap.Int("entries", res.EntriesSettled))
			}
		})
		if err != nil {
			logger.Warn("cron register unfreeze failed", zap.Error(err))
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
