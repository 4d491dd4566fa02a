package main

import (
	"context"
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"team-directory/internal/core/cache"
	"team-directory/internal/core/config"
	"team-directory/internal/core/database"
	"team-directory/internal/core/logger"
	"team-directory/internal/core/server"
	"team-directory/internal/domain"
	"team-directory/internal/repo"
	"team-directory/internal/session"
	"team-directory/internal/source"
	"team-directory/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()
	gin.DefaultWriter = logger.ToWriter(log, zapcore.DebugLevel)

	// 数据源：http / db，可选 redis 读穿缓存
	src, closeSrc := buildSource(cfg, log)
	defer closeSrc()

	mgr := session.NewManager(src, log, session.Options{
		IdleTTL:      cfg.Session.IdleTTL(),
		Max:          cfg.Session.Max,
		FetchTimeout: cfg.Session.FetchTimeout(),
	})

	// 路由（用户端）
	r := router.NewAPIEngine(log, mgr)

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	baseURL := server.BaseURL(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	log.Info("directory api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("metrics", baseURL+"/metrics"),
		zap.String("api_v1", baseURL+"/api/v1"),
		zap.String("source", cfg.Source.Driver),
		zap.Bool("cache", cfg.Source.Cache.Enabled),
	)

	// 关闭会话后 SSE 连接会自行结束
	server.Run(srv, log, "directory api", mgr.Shutdown)
}

func buildSource(cfg *config.Config, l *zap.Logger) (domain.UserSource, func()) {
	var (
		src     domain.UserSource
		closers []func()
	)

	switch cfg.Source.Driver {
	case "db":
		db := mustOpenDB(cfg, l)
		userRepo := repo.NewUserRepo(db)
		if cfg.DB.AutoMigrate {
			if err := userRepo.Migrate(); err != nil {
				l.Fatal("automigrate failed", zap.Error(err))
			}
		}
		if sqlDB, err := db.DB(); err == nil {
			closers = append(closers, func() { _ = sqlDB.Close() })
		}
		src = userRepo
	default:
		src = source.NewRemote(source.RemoteOpts{
			BaseURL:   cfg.Source.BaseURL,
			Timeout:   cfg.Source.Timeout(),
			UserAgent: cfg.Source.UserAgent,
			RPS:       cfg.Source.RPS,
			Burst:     cfg.Source.Burst,
		}, nil, l)
	}

	if cfg.Source.Cache.Enabled {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Source.Cache.Prefix)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := c.Ping(ctx)
		cancel()
		if err != nil {
			// redis 不可用时直接走源
			l.Warn("redis unavailable, user cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = c.Close()
		} else {
			src = source.NewCached(src, c, cfg.Source.Cache.TTL(), l)
			closers = append(closers, func() { _ = c.Close() })
		}
	}

	return src, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	}, l)
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))
	return db
}
