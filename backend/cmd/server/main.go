package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/config"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/api/handler"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/api/router"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/repository"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/service"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/database"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/jwt"
	applogger "github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/logger"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/redis"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认查找 ./config/config.yaml）")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(cfg, "server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.Strings("log_output", cfg.Log.Output),
		zap.Bool("log_sampling", cfg.Log.Sampling),
		zap.String("bucket_vocabulary", cfg.Dashboard.BucketVocabulary),
		zap.String("agent_scope", cfg.Access.AgentScope),
	)

	// 2.1 链路追踪（未启用时为空实现）
	shutdownTracing, err := tracing.Init(context.Background(), &cfg.Tracing, logger)
	if err != nil {
		logger.Fatal("初始化链路追踪失败", zap.Error(err))
	}

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if _, err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var (
		store service.TokenStore
		cache service.Cache
	)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单、登录限流与统计缓存将不可用", zap.Error(err))
		rdb = nil
	} else {
		store, cache = rdb, rdb
	}

	// 5. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, store, cache, logger)
	h := handler.NewHandler(svc)

	// 7. 初始化路由
	engine, err := router.Setup(cfg, h, jwtMgr, rdb, sqlDB.PingContext, logger)
	if err != nil {
		logger.Fatal("初始化路由失败", zap.Error(err))
	}

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // 导出大表需要更长写超时
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if err := shutdownTracing(ctx); err != nil {
		logger.Error("链路追踪关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	sqlDB.Close()

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
