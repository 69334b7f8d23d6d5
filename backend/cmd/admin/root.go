package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/config"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/model"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/repository"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/internal/service"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/database"
	"github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/jwt"
	applogger "github.com/Ivin-Mathew/admissioninsider-lead-genaration/backend/pkg/logger"
)

// systemActor CLI 以系统管理员身份调用 Service，ID 不对应任何档案
var systemActor = model.Actor{ID: "system", Role: model.RoleAdmin}

// app 子命令共享的依赖
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	repo    *repository.Repository
	svc     *service.Service
	migrate func() (uint, error)
	close   func() error
}

// bootstrapFunc 按配置文件路径构建依赖，测试中替换为内存实现
type bootstrapFunc func(configPath string) (*app, error)

// bootstrap 连接数据库并组装 Service；CLI 不依赖 Redis
func bootstrap(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := applogger.NewLogger(cfg, "admin")
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	repo := repository.NewRepository(db)
	return &app{
		cfg:     cfg,
		logger:  logger,
		repo:    repo,
		svc:     service.NewService(cfg, repo, jwt.NewManager(&cfg.Auth), nil, nil, logger),
		migrate: func() (uint, error) { return database.RunMigrations(sqlDB, logger) },
		close: func() error {
			_ = logger.Sync()
			return sqlDB.Close()
		},
	}, nil
}

func newRootCmd(boot bootstrapFunc) *cobra.Command {
	var (
		configPath string
		a          *app
	)

	root := &cobra.Command{
		Use:           "admin",
		Short:         "招生申请后台运维工具",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = boot(configPath)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a != nil && a.close != nil {
				return a.close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "配置文件路径（默认查找 ./config/config.yaml）")

	deps := func() *app { return a }
	root.AddCommand(
		newMigrateCmd(deps),
		newCreateProfileCmd(deps),
		newSetRoleCmd(deps),
		newImportCmd(deps),
	)
	return root
}

// resolveActor 按档案 ID 加载操作者，导入时记录 agent_id
func resolveActor(ctx context.Context, repo *repository.Repository, id string) (model.Actor, error) {
	if id == "" {
		return systemActor, nil
	}
	profile, err := repo.Profile.GetByID(ctx, id)
	if err != nil {
		return model.Actor{}, fmt.Errorf("加载操作者 %s 失败: %w", id, err)
	}
	if !profile.Role.Valid() {
		return model.Actor{}, errors.New("操作者角色无效: " + string(profile.Role))
	}
	return model.Actor{ID: profile.ID, Role: profile.Role}, nil
}
