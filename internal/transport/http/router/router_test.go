package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"team-directory/internal/core/auth"
	"team-directory/internal/core/config"
	"team-directory/internal/domain"
	"team-directory/internal/session"
	"team-directory/internal/transport/http/handler"
	resp "team-directory/internal/transport/http/response"
)

func init() { gin.SetMode(gin.TestMode) }

type staticSource struct{}

func (staticSource) FetchUsers(context.Context) ([]domain.User, error) {
	return []domain.User{{ID: 1, Name: "Leanne Graham"}}, nil
}

func get(t *testing.T, r http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestAPIEngine(t *testing.T) {
	mgr := session.NewManager(staticSource{}, zap.NewNop(), session.Options{})
	defer mgr.Shutdown()
	r := NewAPIEngine(zap.NewNop(), mgr)

	w := get(t, r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(t, r, http.MethodPost, "/api/v1/sessions")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	var out resp.Resp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, resp.CodeOK, out.Code)
	assert.Equal(t, 1, mgr.Len())

	w = get(t, r, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestAdminEngine(t *testing.T) {
	j := &auth.JWTer{Secret: []byte("k"), Issuer: "test", TTL: time.Hour}
	h := handler.NewAdminHandler(j, config.AdminUser{Username: "admin"}, staticSource{}, nil, nil, zap.NewNop())
	r := NewAdminEngine(zap.NewNop(), j, h)

	// 无 hash 的账号永远登录失败
	req := httptest.NewRequest(http.MethodPost, "/admin/v1/auth/login", strings.NewReader(`{"username":"admin","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out resp.Resp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, resp.CodeUnauthorized, out.Code)

	w = get(t, r, http.MethodDelete, "/admin/v1/cache")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, resp.CodeUnauthorized, out.Code)
}

type ordered struct {
	name string
	prio int
	log  *[]string
}

func (o ordered) MountAPI(*gin.RouterGroup) { *o.log = append(*o.log, o.name) }
func (o ordered) Priority() int              { return o.prio }

func TestRegistryOrder(t *testing.T) {
	var got []string
	reg := new(Registry).Register(
		ordered{name: "b", prio: 200, log: &got},
		ordered{name: "a", prio: 10, log: &got},
		"not a module",
	)
	reg.MountAllAPI(gin.New().Group("/"))
	reg.MountAllAdmin(gin.New().Group("/"))
	assert.Equal(t, []string{"a", "b"}, got)
}
