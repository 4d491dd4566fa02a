package main

import (
	"context"
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"team-directory/internal/core/auth"
	"team-directory/internal/core/cache"
	"team-directory/internal/core/config"
	"team-directory/internal/core/database"
	"team-directory/internal/core/logger"
	"team-directory/internal/core/server"
	"team-directory/internal/repo"
	"team-directory/internal/source"
	"team-directory/internal/transport/http/handler"
	"team-directory/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	if cfg.JWT.Secret == "" || cfg.AdminUser.PasswordHash == "" {
		log.Fatal("admin api needs jwt.secret and admin_user.password_hash")
	}

	// DB 连接（失败直接 Fatal）
	db := mustOpenDB(cfg, log)
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	userRepo := repo.NewUserRepo(db)
	if cfg.DB.AutoMigrate {
		if err := userRepo.Migrate(); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	// 导入总是从远端拉
	remote := source.NewRemote(source.RemoteOpts{
		BaseURL:   cfg.Source.BaseURL,
		Timeout:   cfg.Source.Timeout(),
		UserAgent: cfg.Source.UserAgent,
		RPS:       cfg.Source.RPS,
		Burst:     cfg.Source.Burst,
	}, nil, log)

	// 导入后清掉 api 端的读穿缓存
	var inv handler.Invalidator
	if cfg.Source.Cache.Enabled {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Source.Cache.Prefix)
		defer c.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := c.Ping(ctx); err != nil {
			log.Warn("redis unavailable, cache invalidation disabled", zap.Error(err))
		} else {
			inv = source.NewCached(userRepo, c, cfg.Source.Cache.TTL(), log)
		}
		cancel()
	}

	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.TTL(),
	}
	adminH := handler.NewAdminHandler(jwter, cfg.AdminUser, remote, userRepo, inv, log)

	// 路由（后台端）
	r := router.NewAdminEngine(log, jwter, adminH)

	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.Admin.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.Admin.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.Admin.IdleTimeoutSec)*time.Second,
	)

	baseURL := server.BaseURL(cfg.App.Admin.Host, cfg.App.Admin.Port)
	log.Info("admin api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("admin_v1", baseURL+"/admin/v1"),
	)

	server.Run(srv, log, "admin api", nil)
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
