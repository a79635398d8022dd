package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ragayama123/EVM-PM-Tool/config"
	"github.com/ragayama123/EVM-PM-Tool/internal/cli"
	"github.com/ragayama123/EVM-PM-Tool/internal/repository"
	"github.com/ragayama123/EVM-PM-Tool/internal/service"
	"github.com/ragayama123/EVM-PM-Tool/pkg/database"
	applogger "github.com/ragayama123/EVM-PM-Tool/pkg/logger"
	"github.com/ragayama123/EVM-PM-Tool/pkg/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 配置文件路径：环境变量优先，否则按默认路径查找
	cfg, err := config.Load(os.Getenv("EVM_CONFIG"))
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Sync()

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return fmt.Errorf("数据库连接失败: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	defer sqlDB.Close()

	// 快照写入后需要清理 API 侧的分析缓存
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，跳过缓存失效", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	svc := service.NewService(cfg, repository.NewRepository(db), rdb, logger)

	app := &cli.App{
		Migrator: database.NewSQLMigrator(sqlDB, logger),
		EVM:      svc.EVM,
		Holiday:  svc.Holiday,
	}

	return cli.NewRootCmd(app).ExecuteContext(context.Background())
}
