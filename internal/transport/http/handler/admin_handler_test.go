package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"team-directory/internal/core/auth"
	"team-directory/internal/core/config"
	"team-directory/internal/core/database"
	"team-directory/internal/domain"
	"team-directory/internal/repo"
	mdw "team-directory/internal/transport/http/middleware"
	resp "team-directory/internal/transport/http/response"
	"team-directory/pkg/utils"
)

type failingSource struct{}

func (failingSource) FetchUsers(context.Context) ([]domain.User, error) {
	return nil, errors.New("upstream down")
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.n++
	return nil
}

type adminFixture struct {
	r     *gin.Engine
	store *repo.UserRepo
	inv   *countingInvalidator
	jwt   *auth.JWTer
}

func newAdminFixture(t *testing.T, remote domain.UserSource) *adminFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := database.NewGorm(database.Opts{Driver: "sqlite", DSN: dsn, LogLevel: "silent"}, nil)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	store := repo.NewUserRepo(db)
	require.NoError(t, store.Migrate())

	hash, err := utils.HashPassword("s3cret")
	require.NoError(t, err)
	j := &auth.JWTer{Secret: []byte("test-secret"), Issuer: "test", TTL: time.Hour}
	inv := &countingInvalidator{}
	h := NewAdminHandler(j, config.AdminUser{Username: "admin", PasswordHash: hash}, remote, store, inv, zap.NewNop())

	r := gin.New()
	base := r.Group("/admin/v1")
	h.MountPublic(base)
	g := base.Group("")
	g.Use(mdw.AuthJWT(j, auth.RoleAdmin))
	h.MountAdmin(g)
	return &adminFixture{r: r, store: store, inv: inv, jwt: j}
}

func (f *adminFixture) token(t *testing.T) string {
	t.Helper()
	out := call(t, f.r, http.MethodPost, "/admin/v1/auth/login", `{"username":"admin","password":"s3cret"}`)
	require.Equal(t, resp.CodeOK, out.Code)
	return "Bearer " + decode[LoginOut](t, out).Token
}

func TestAdminLogin(t *testing.T) {
	f := newAdminFixture(t, staticSource{})

	tok := f.token(t)
	claims, err := f.jwt.Parse(tok[len("Bearer "):])
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
	assert.Equal(t, "admin", claims.Subject)

	out := call(t, f.r, http.MethodPost, "/admin/v1/auth/login", `{"username":"admin","password":"nope"}`)
	assert.Equal(t, resp.CodeUnauthorized, out.Code)
	out = call(t, f.r, http.MethodPost, "/admin/v1/auth/login", `{"username":"root","password":"s3cret"}`)
	assert.Equal(t, resp.CodeUnauthorized, out.Code)
	out = call(t, f.r, http.MethodPost, "/admin/v1/auth/login", `{"username":"admin"}`)
	assert.Equal(t, resp.CodeBadRequest, out.Code)
}

func TestAdminRequiresToken(t *testing.T) {
	f := newAdminFixture(t, staticSource{})
	out := call(t, f.r, http.MethodGet, "/admin/v1/users", "")
	assert.Equal(t, resp.CodeUnauthorized, out.Code)

	viewer, err := f.jwt.Issue("bob", "viewer")
	require.NoError(t, err)
	out = call(t, f.r, http.MethodGet, "/admin/v1/users", "", "Authorization", "Bearer "+viewer)
	assert.Equal(t, resp.CodeForbidden, out.Code)
}

func TestAdminImportAndQuery(t *testing.T) {
	f := newAdminFixture(t, staticSource{users: directory()})
	tok := f.token(t)

	out := call(t, f.r, http.MethodPost, "/admin/v1/import", "", "Authorization", tok)
	require.Equal(t, resp.CodeOK, out.Code)
	assert.Equal(t, 2, decode[ImportOut](t, out).Imported)
	assert.Equal(t, 1, f.inv.n)

	list := decode[ListOut](t, call(t, f.r, http.MethodGet, "/admin/v1/users?limit=1", "", "Authorization", tok))
	assert.EqualValues(t, 2, list.Total)
	require.Len(t, list.Items, 1)
	assert.Equal(t, 1, list.Items[0].ID)

	list = decode[ListOut](t, call(t, f.r, http.MethodGet, "/admin/v1/users?q=deckow", "", "Authorization", tok))
	assert.EqualValues(t, 1, list.Total)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Ervin Howell", list.Items[0].Name)

	out = call(t, f.r, http.MethodGet, "/admin/v1/users?limit=1000", "", "Authorization", tok)
	assert.Equal(t, resp.CodeBadRequest, out.Code)

	u := decode[UserView](t, call(t, f.r, http.MethodGet, "/admin/v1/users/2", "", "Authorization", tok))
	assert.Equal(t, "EH", u.Initials)

	out = call(t, f.r, http.MethodGet, "/admin/v1/users/42", "", "Authorization", tok)
	assert.Equal(t, resp.CodeNotFound, out.Code)
	assert.Equal(t, "User not found", out.Msg)

	out = call(t, f.r, http.MethodDelete, "/admin/v1/cache", "", "Authorization", tok)
	assert.Equal(t, resp.CodeOK, out.Code)
	assert.Equal(t, 2, f.inv.n)
}

func TestAdminImportUpstreamError(t *testing.T) {
	f := newAdminFixture(t, failingSource{})
	tok := f.token(t)

	out := call(t, f.r, http.MethodPost, "/admin/v1/import", "", "Authorization", tok)
	assert.Equal(t, resp.CodeServerError, out.Code)
	assert.Equal(t, "fetch remote users failed", out.Msg)
	assert.Equal(t, 0, f.inv.n)
}
