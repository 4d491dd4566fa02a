package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"team-directory/internal/domain"
	"team-directory/internal/feature/userlist"
	"team-directory/internal/session"
	"team-directory/internal/transport/http/ez"
	resp "team-directory/internal/transport/http/response"
)

// EventsPath SSE 长连接，需跳过超时中间件
const EventsPath = "/api/v1/sessions/:sid/events"

type SessionHandler struct {
	m   *session.Manager
	log *zap.Logger
}

func NewSessionHandler(m *session.Manager, log *zap.Logger) *SessionHandler {
	return &SessionHandler{m: m, log: log}
}

type sidIn struct {
	SID string `uri:"sid" binding:"required"`
}

type refreshIn struct {
	SID  string `uri:"sid" binding:"required"`
	Wait bool   `form:"wait"`
}

type queryIn struct {
	SID   string `uri:"sid" binding:"required"`
	Query string `json:"query"`
}

type detailIn struct {
	SID string `uri:"sid" binding:"required"`
	ID  int    `uri:"id"`
}

type OpenOut struct {
	ID       string       `json:"id"`
	Snapshot SnapshotView `json:"snapshot"`
}

func sessionErr(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return ez.NotFound("session not found")
	case errors.Is(err, session.ErrTooManySessions):
		return ez.TooManyRequests("too many sessions")
	case errors.Is(err, session.ErrClosed):
		return ez.Internal("server shutting down", err)
	}
	return err
}

func (h *SessionHandler) controller(sid string) (*userlist.Controller, error) {
	ctl, err := h.m.Get(sid)
	if err != nil {
		return nil, sessionErr(err)
	}
	return ctl, nil
}

// MountAPI 挂到 /api/v1 下
func (h *SessionHandler) MountAPI(g *gin.RouterGroup) {
	ez.RegisterAction(g, ez.Action[struct{}, OpenOut]{
		Method:  http.MethodPost,
		Path:    "/sessions",
		Binders: []ez.Binder{ez.BindNone},
		Handler: func(c *gin.Context, _ *struct{}) (OpenOut, error) {
			id, ctl, err := h.m.Open()
			if err != nil {
				return OpenOut{}, sessionErr(err)
			}
			h.log.Debug("session opened", zap.String("sid", id))
			return OpenOut{ID: id, Snapshot: NewSnapshotView(ctl.Snapshot())}, nil
		},
	})

	ez.RegisterAction(g, ez.Action[sidIn, SnapshotView]{
		Method:  http.MethodGet,
		Path:    "/sessions/:sid",
		Binders: []ez.Binder{ez.BindURI},
		Handler: func(c *gin.Context, in *sidIn) (SnapshotView, error) {
			ctl, err := h.controller(in.SID)
			if err != nil {
				return SnapshotView{}, err
			}
			return NewSnapshotView(ctl.Snapshot()), nil
		},
	})

	ez.RegisterAction(g, ez.Action[sidIn, gin.H]{
		Method:  http.MethodDelete,
		Path:    "/sessions/:sid",
		Binders: []ez.Binder{ez.BindURI},
		Handler: func(c *gin.Context, in *sidIn) (gin.H, error) {
			if err := h.m.Close(in.SID); err != nil {
				return nil, sessionErr(err)
			}
			return gin.H{"id": in.SID}, nil
		},
	})

	ez.RegisterAction(g, ez.Action[refreshIn, SnapshotView]{
		Method:  http.MethodPost,
		Path:    "/sessions/:sid/refresh",
		Binders: []ez.Binder{ez.BindURI, ez.BindQuery},
		Handler: func(c *gin.Context, in *refreshIn) (SnapshotView, error) {
			ctl, err := h.controller(in.SID)
			if err != nil {
				return SnapshotView{}, err
			}
			done := ctl.Refresh()
			if in.Wait {
				select {
				case <-done:
				case <-c.Request.Context().Done():
				}
			}
			return NewSnapshotView(ctl.Snapshot()), nil
		},
	})

	ez.RegisterAction(g, ez.Action[queryIn, SnapshotView]{
		Method:  http.MethodPut,
		Path:    "/sessions/:sid/query",
		Binders: []ez.Binder{ez.BindURI, ez.BindJSON},
		Handler: func(c *gin.Context, in *queryIn) (SnapshotView, error) {
			ctl, err := h.controller(in.SID)
			if err != nil {
				return SnapshotView{}, err
			}
			ctl.SetQuery(in.Query)
			return NewSnapshotView(ctl.Snapshot()), nil
		},
	})

	ez.RegisterAction(g, ez.Action[sidIn, SnapshotView]{
		Method:  http.MethodDelete,
		Path:    "/sessions/:sid/query",
		Binders: []ez.Binder{ez.BindURI},
		Handler: func(c *gin.Context, in *sidIn) (SnapshotView, error) {
			ctl, err := h.controller(in.SID)
			if err != nil {
				return SnapshotView{}, err
			}
			ctl.ClearQuery()
			return NewSnapshotView(ctl.Snapshot()), nil
		},
	})

	ez.RegisterAction(g, ez.Action[detailIn, UserView]{
		Method:  http.MethodGet,
		Path:    "/sessions/:sid/users/:id",
		Binders: []ez.Binder{ez.BindURI},
		Handler: func(c *gin.Context, in *detailIn) (UserView, error) {
			ctl, err := h.controller(in.SID)
			if err != nil {
				return UserView{}, err
			}
			u, err := ctl.Find(in.ID)
			if errors.Is(err, domain.ErrUserNotFound) {
				return UserView{}, ez.NotFound("User not found")
			}
			if err != nil {
				return UserView{}, err
			}
			return NewUserView(u), nil
		},
	})

	g.GET("/sessions/:sid/events", h.events)
}

// events 每次状态变化推送一条 snapshot 事件；连接期间会话不会被空闲回收
func (h *SessionHandler) events(c *gin.Context) {
	ctl, release, err := h.m.Watch(c.Param("sid"))
	if err != nil {
		c.JSON(http.StatusOK, resp.Error(resp.CodeNotFound, "session not found"))
		return
	}
	defer release()
	ch, cancel := ctl.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case snap, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", NewSnapshotView(snap))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
