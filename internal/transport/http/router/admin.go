package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"team-directory/internal/core/auth"
	"team-directory/internal/core/server"
	"team-directory/internal/transport/http/handler"
	mdw "team-directory/internal/transport/http/middleware"
)

func NewAdminEngine(l *zap.Logger, jwter *auth.JWTer, h *handler.AdminHandler) *gin.Engine {
	r := server.NewRouter(l, false)

	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(20, 40),
		mdw.ConcurrencyLimit(50),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(30*time.Second),
		mdw.Recovery(l),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	base := r.Group("/admin/v1")
	// 登录不需要 token
	h.MountPublic(base)

	// 其余统一要求 admin 角色
	admin := base.Group("")
	admin.Use(mdw.AuthJWT(jwter, auth.RoleAdmin))
	new(Registry).Register(h).MountAllAdmin(admin)

	return r
}
