package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"team-directory/internal/core/auth"
	"team-directory/internal/core/config"
	"team-directory/internal/domain"
	"team-directory/internal/transport/http/ez"
	"team-directory/pkg/utils"
)

// UserStore 本地镜像表
type UserStore interface {
	ReplaceAll(ctx context.Context, users []domain.User) (int, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
	List(ctx context.Context, offset, limit int, q string) ([]domain.User, int64, error)
}

// Invalidator 读穿缓存，导入后需要清掉
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type AdminHandler struct {
	jwt    *auth.JWTer
	creds  config.AdminUser
	remote domain.UserSource
	store  UserStore
	cache  Invalidator // 可为 nil
	log    *zap.Logger
}

func NewAdminHandler(j *auth.JWTer, creds config.AdminUser, remote domain.UserSource, store UserStore, cache Invalidator, log *zap.Logger) *AdminHandler {
	return &AdminHandler{jwt: j, creds: creds, remote: remote, store: store, cache: cache, log: log}
}

type LoginIn struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginOut struct {
	Token string `json:"token"`
}

type ImportOut struct {
	Imported int `json:"imported"`
}

type ListIn struct {
	Offset int    `form:"offset" binding:"min=0"`
	Limit  int    `form:"limit" binding:"min=0,max=100"`
	Q      string `form:"q"`
}

type ListOut struct {
	Items []UserView `json:"items"`
	Total int64      `json:"total"`
}

type idIn struct {
	ID int `uri:"id"`
}

// MountPublic 不需要登录的路由
func (h *AdminHandler) MountPublic(g *gin.RouterGroup) {
	ez.RegisterAction(g, ez.Action[LoginIn, LoginOut]{
		Method:  http.MethodPost,
		Path:    "/auth/login",
		Binders: []ez.Binder{ez.BindJSON},
		Handler: func(c *gin.Context, in *LoginIn) (LoginOut, error) {
			userOK := utils.SameString(in.Username, h.creds.Username)
			passOK := utils.CheckPassword(in.Password, h.creds.PasswordHash)
			if !userOK || !passOK {
				return LoginOut{}, ez.Unauthorized("invalid credentials")
			}
			tok, err := h.jwt.Issue(in.Username, auth.RoleAdmin)
			if err != nil {
				return LoginOut{}, ez.Internal("issue token failed", err)
			}
			return LoginOut{Token: tok}, nil
		},
	})
}

// MountAdmin 需要 admin 角色，调用方负责挂 AuthJWT
func (h *AdminHandler) MountAdmin(g *gin.RouterGroup) {
	roles := []string{auth.RoleAdmin}

	ez.RegisterAction(g, ez.Action[struct{}, ImportOut]{
		Method:  http.MethodPost,
		Path:    "/import",
		Binders: []ez.Binder{ez.BindNone},
		Roles:   roles,
		Handler: func(c *gin.Context, _ *struct{}) (ImportOut, error) {
			ctx := c.Request.Context()
			users, err := h.remote.FetchUsers(ctx)
			if err != nil {
				return ImportOut{}, ez.Internal("fetch remote users failed", err)
			}
			n, err := h.store.ReplaceAll(ctx, users)
			if err != nil {
				return ImportOut{}, ez.Internal("save users failed", err)
			}
			if h.cache != nil {
				if err := h.cache.Invalidate(ctx); err != nil {
					h.log.Warn("invalidate user cache", zap.Error(err))
				}
			}
			h.log.Info("users imported", zap.Int("count", n))
			return ImportOut{Imported: n}, nil
		},
	})

	ez.RegisterAction(g, ez.Action[ListIn, ListOut]{
		Method:  http.MethodGet,
		Path:    "/users",
		Binders: []ez.Binder{ez.BindQuery},
		Roles:   roles,
		Handler: func(c *gin.Context, in *ListIn) (ListOut, error) {
			limit := in.Limit
			if limit == 0 {
				limit = 20
			}
			users, total, err := h.store.List(c.Request.Context(), in.Offset, limit, in.Q)
			if err != nil {
				return ListOut{}, err
			}
			return ListOut{Items: NewUserViews(users), Total: total}, nil
		},
	})

	ez.RegisterAction(g, ez.Action[idIn, UserView]{
		Method:  http.MethodGet,
		Path:    "/users/:id",
		Binders: []ez.Binder{ez.BindURI},
		Roles:   roles,
		Handler: func(c *gin.Context, in *idIn) (UserView, error) {
			u, err := h.store.FindByID(c.Request.Context(), in.ID)
			if errors.Is(err, domain.ErrUserNotFound) {
				return UserView{}, ez.NotFound("User not found")
			}
			if err != nil {
				return UserView{}, err
			}
			return NewUserView(*u), nil
		},
	})

	ez.RegisterAction(g, ez.Action[struct{}, gin.H]{
		Method:  http.MethodDelete,
		Path:    "/cache",
		Binders: []ez.Binder{ez.BindNone},
		Roles:   roles,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			if h.cache == nil {
				return gin.H{"cleared": false}, nil
			}
			if err := h.cache.Invalidate(c.Request.Context()); err != nil {
				return nil, ez.Internal("clear cache failed", err)
			}
			return gin.H{"cleared": true}, nil
		},
	})
}
