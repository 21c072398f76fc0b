package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"keygate/backend/internal/config"
	"keygate/backend/internal/health"
	"keygate/backend/internal/logger"
	"keygate/backend/internal/monitoring"
	"keygate/backend/internal/service"
	"keygate/backend/internal/storage"
	"keygate/backend/internal/storage/hybrid"
	"keygate/backend/internal/storage/memory"
	"keygate/backend/internal/storage/postgres"
	httptransport "keygate/backend/internal/transport/http"
)

// main 启动许可证密钥签发与验证服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     cfg.Log.File,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting keygate server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层。后端在启动时一次性选定，会话中途不再切换。
	store := selectStore(cfg, log)

	// 初始化监控系统
	metrics := monitoring.NewMetrics()

	// 初始化健康检查
	healthChecker := health.NewHealthChecker(store, log)

	// 初始化告警系统
	alertManager := monitoring.NewAlertManager(log)
	alertManager.AddReceiver(monitoring.NewLogAlertReceiver(log))
	alertManager.AddRule(monitoring.HighMemoryUsageRule(512.0)) // 512MB
	alertManager.AddRule(monitoring.StorageConnectionRule(store))

	log.Info("monitoring system initialized")

	// 初始化服务层
	licenseService := service.NewLicenseService(store)
	verifyService := service.NewVerifyService(store)

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:         cfg,
		LicenseService: licenseService,
		VerifyService:  verifyService,
		Metrics:        metrics,
		Logger:         log,
	})

	// 健康检查端点（用于 Kubernetes 等）。就绪检查包含存活检查，
	// 所以 /health 直接复用就绪端点给出完整结论。
	router.GET("/health", gin.WrapF(healthChecker.Ready()))
	router.GET("/health/live", gin.WrapF(healthChecker.Live()))
	router.GET("/health/ready", gin.WrapF(healthChecker.Ready()))

	// Prometheus 指标端点
	router.GET("/metrics", gin.WrapH(metrics.HTTPHandler()))

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 定时刷新密钥数量指标 goroutine
	group.Go(func() error {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-groupCtx.Done():
				log.Info("key gauge refresh task stopped")
				return nil
			case <-ticker.C:
				keys, err := store.ListKeys()
				if err != nil {
					log.Error("failed to refresh key gauge", zap.Error(err))
					continue
				}
				metrics.UpdateKeysActive(len(keys))
			}
		}
	})

	// 告警监控 goroutine
	group.Go(func() error {
		log.Info("starting alert monitoring")
		alertManager.StartMonitoring(groupCtx, 1*time.Minute)
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		if err := store.Close(); err != nil {
			log.Warn("storage close warning", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	// 等待所有 goroutine 完成
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// selectStore 根据配置选择存储后端。
//
// 规则：
//   - 配置了数据库则优先使用数据库（配置了 Redis 时套上记录缓存）
//   - 数据库初始化失败且 database.required 为 false 时回退到内存存储
//   - 未配置数据库直接使用内存存储（开发环境）
//
// 选择只发生一次，失败回退不会在运行期间再切回数据库，避免数据悄悄分裂在两个后端。
func selectStore(cfg *config.Config, log *zap.Logger) storage.Store {
	if cfg.Database.Type == "" {
		log.Info("using memory storage (development mode)")
		return memory.NewStore()
	}

	store, err := initializeDatabaseStorage(cfg, log)
	if err != nil {
		if cfg.Database.Required {
			panic(fmt.Sprintf("failed to initialize database storage: %v", err))
		}
		log.Warn("database storage unavailable, falling back to memory storage",
			zap.String("type", cfg.Database.Type),
			zap.Error(err),
		)
		return memory.NewStore()
	}

	log.Info("using database storage", zap.String("type", cfg.Database.Type))
	return store
}

// initializeDatabaseStorage 初始化数据库存储
func initializeDatabaseStorage(cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	opts := postgres.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	// 配置了 Redis 时使用混合存储（数据库 + 记录缓存）
	if cfg.Redis.Address != "" {
		log.Info("initializing hybrid storage",
			zap.String("database_type", cfg.Database.Type),
			zap.String("redis_address", cfg.Redis.Address),
		)
		store, err := hybrid.NewStoreWithType(
			cfg.Database.Type,
			cfg.Database.DSN,
			opts,
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create hybrid store: %w", err)
		}
		return store, nil
	}

	switch cfg.Database.Type {
	case "mysql":
		return postgres.NewMySQLStore(cfg.Database.DSN, opts)
	default:
		return postgres.NewStore(cfg.Database.DSN, opts)
	}
}
