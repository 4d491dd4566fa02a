package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"team-directory/internal/core/server"
	"team-directory/internal/session"
	"team-directory/internal/transport/http/handler"
	mdw "team-directory/internal/transport/http/middleware"
)

func NewAPIEngine(l *zap.Logger, mgr *session.Manager) *gin.Engine {
	r := server.NewRouter(l, false)

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.RateLimitPerIP(50, 100),
		mdw.ConcurrencyLimit(300, handler.EventsPath),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(15*time.Second, handler.EventsPath),
		mdw.Recovery(l),
		mdw.Metrics(handler.EventsPath),
		mdw.AccessLog(l),
	)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 前缀
	api := r.Group("/api/v1")
	new(Registry).
		Register(handler.NewSessionHandler(mgr, l)).
		MountAllAPI(api)

	return r
}
