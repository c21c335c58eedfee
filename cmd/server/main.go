// ShiftSync 员工倦怠风险与排班优化服务
// 主程序入口

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shiftsync/shiftsync/internal/cache"
	"github.com/shiftsync/shiftsync/internal/config"
	"github.com/shiftsync/shiftsync/internal/database"
	"github.com/shiftsync/shiftsync/internal/handler"
	"github.com/shiftsync/shiftsync/internal/metrics"
	"github.com/shiftsync/shiftsync/internal/repository"
	"github.com/shiftsync/shiftsync/pkg/engine"
	"github.com/shiftsync/shiftsync/pkg/fatigue"
	"github.com/shiftsync/shiftsync/pkg/logger"
	"github.com/shiftsync/shiftsync/pkg/optimizer"
	"github.com/shiftsync/shiftsync/pkg/risk"
	"github.com/shiftsync/shiftsync/pkg/stats"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(cfg.LoggerConfig())

	// 打印版本信息
	fmt.Printf("ShiftSync 风险与排班优化引擎 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	if err := run(cfg); err != nil {
		logger.Error().Err(err).Msg("服务异常退出")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// ========================================
	// 引擎
	// ========================================

	var m *metrics.Metrics
	var observer engine.Observer
	if cfg.Metrics.Enabled {
		m = metrics.New(metrics.DefaultConfig())
		observer = m
	}

	policy, err := cfg.Optimizer.ToPolicy()
	if err != nil {
		return err
	}
	opt, err := optimizer.New(policy)
	if err != nil {
		return err
	}

	eng := engine.New(engine.Options{
		Scorer:     fatigue.NewScorer(cfg.Fatigue.Weights()),
		Classifier: loadClassifier(cfg.Model.ArtifactPath),
		Optimizer:  opt,
		Workers:    cfg.Engine.Workers,
		Observer:   observer,
	})
	if m != nil {
		m.ObserveReload(eng.ModelVersion(), nil)
	}

	// ========================================
	// 存储
	// ========================================

	var storage handler.Storage
	if cfg.Database.Enabled {
		var dbOpts []database.Option
		if m != nil {
			dbOpts = append(dbOpts, database.WithQueryObserver(m))
		}
		db, err := database.New(&cfg.Database, dbOpts...)
		if err != nil {
			return err
		}
		defer db.Close()
		if m != nil {
			m.RegisterDB(db.DB, cfg.Database.Name)
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
		err = db.Migrate(ctx)
		cancel()
		if err != nil {
			return err
		}
		storage = repository.NewStore(db)
	} else {
		logger.Warn().Msg("数据库未启用，员工上传与存储相关接口不可用")
	}

	runs, closeRuns, err := newRunStore(cfg)
	if err != nil {
		return err
	}
	defer closeRuns()

	// ========================================
	// HTTP 服务
	// ========================================

	h, err := handler.NewHandler(handler.Options{
		Service:      cfg.App.Name,
		Build:        handler.BuildInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit},
		Engine:       eng,
		Storage:      storage,
		Runs:         runs,
		Analyzer:     stats.NewAnalyzerWithThreshold(cfg.Fatigue.CriticalThreshold),
		Metrics:      m,
		MetricsPath:  cfg.Metrics.Path,
		ArtifactPath: cfg.Model.ArtifactPath,
		Timeout:      cfg.API.Timeout,
		MaxBodyBytes: cfg.API.MaxBodyBytes,
		MaxRows:      cfg.API.MaxUploadRows,
		RateLimit:    cfg.API.RateLimit,
	})
	if err != nil {
		return err
	}
	h.RegisterRoutes()

	port := fmt.Sprintf("%d", cfg.App.Port)
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      h.Mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.API.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	serverErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("port", port).
			Str("version", Version).
			Str("model_version", eng.ModelVersion()).
			Str("policy", string(policy.Kind)).
			Bool("storage", storage != nil).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("服务器启动失败: %w", err)
	case <-quit:
	}

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("服务器关闭失败: %w", err)
	}

	logger.Info().Msg("服务器已关闭")
	return nil
}

// loadClassifier 加载风险模型制品；失败时以不可用状态启动，风险相关接口返回 MODEL_UNAVAILABLE
func loadClassifier(path string) *risk.Classifier {
	bundle, err := risk.LoadBundle(path)
	if err != nil {
		logger.Error().
			Err(err).
			Str("path", path).
			Msg("风险模型加载失败，以降级模式启动")
		return risk.NewUnavailableClassifier(err)
	}

	logger.Info().
		Str("path", path).
		Str("model_version", bundle.Version()).
		Str("kind", bundle.ModelKind()).
		Int("features", len(bundle.Features())).
		Msg("风险模型已加载")
	return risk.NewClassifier(bundle)
}

// newRunStore 创建运行结果缓存；未启用 Redis 时使用进程内存储
func newRunStore(cfg *config.Config) (cache.RunStore, func(), error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryRunStore(cfg.Redis.RunTTL), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	store := cache.NewRedisRunStore(rdb, cfg.Redis.RunTTL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}

	breaker := cache.DefaultBreakerConfig("redis-runs")
	breaker.MaxFailures = cfg.Redis.BreakerFailures
	breaker.Timeout = cfg.Redis.BreakerTimeout

	logger.Info().Str("addr", cfg.Redis.Addr()).Msg("Redis 连接成功")
	return cache.NewBreakerRunStore(store, breaker), func() { rdb.Close() }, nil
}
