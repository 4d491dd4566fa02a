package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"team-directory/internal/domain"
	"team-directory/internal/session"
	resp "team-directory/internal/transport/http/response"
)

func init() { gin.SetMode(gin.TestMode) }

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type staticSource struct{ users []domain.User }

func (s staticSource) FetchUsers(context.Context) ([]domain.User, error) { return s.users, nil }

func directory() []domain.User {
	return []domain.User{
		{ID: 1, Name: "Leanne Graham", Username: "Bret", Email: "Sincere@april.biz", Company: domain.Company{Name: "Romaguera-Crona"}},
		{ID: 2, Name: "Ervin Howell", Username: "Antonette", Email: "Shanna@melissa.tv", Company: domain.Company{Name: "Deckow-Crist"}},
	}
}

func call(t *testing.T, r http.Handler, method, path, body string, hdr ...string) envelope {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var out envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// snapshotOut 反序列化用，state 只取 status
type snapshotOut struct {
	State struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Count   int    `json:"count"`
	} `json:"state"`
	Query     string     `json:"query"`
	Summary   string     `json:"summary"`
	NoResults bool       `json:"noResults"`
	Total     int        `json:"total"`
	Version   uint64     `json:"version"`
	Users     []UserView `json:"users"`
}

func decode[T any](t *testing.T, e envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(e.Data, &v))
	return v
}

func newSessionEngine(t *testing.T, src domain.UserSource, opt session.Options) *gin.Engine {
	t.Helper()
	m := session.NewManager(src, zap.NewNop(), opt)
	t.Cleanup(m.Shutdown)
	r := gin.New()
	NewSessionHandler(m, zap.NewNop()).MountAPI(r.Group("/api/v1"))
	return r
}

func openSession(t *testing.T, r http.Handler) string {
	t.Helper()
	out := call(t, r, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, resp.CodeOK, out.Code)
	o := decode[OpenOut](t, out)
	require.NotEmpty(t, o.ID)
	return o.ID
}

func TestSessionFlow(t *testing.T) {
	r := newSessionEngine(t, staticSource{users: directory()}, session.Options{})
	sid := openSession(t, r)
	base := "/api/v1/sessions/" + sid

	snap := decode[snapshotOut](t, call(t, r, http.MethodPost, base+"/refresh?wait=true", ""))
	assert.Equal(t, "success", snap.State.Status)
	assert.Equal(t, 2, snap.State.Count)
	assert.Equal(t, "2 users", snap.Summary)
	require.Len(t, snap.Users, 2)
	assert.Equal(t, "LG", snap.Users[0].Initials)
	assert.Contains(t, snap.Users[0].AvatarURL, "name=Leanne+Graham")

	snap = decode[snapshotOut](t, call(t, r, http.MethodPut, base+"/query", `{"query":"howell"}`))
	assert.Equal(t, "howell", snap.Query)
	require.Len(t, snap.Users, 1)
	assert.Equal(t, 2, snap.Users[0].ID)
	assert.Equal(t, 2, snap.Total)

	snap = decode[snapshotOut](t, call(t, r, http.MethodPut, base+"/query", `{"query":"nobody"}`))
	assert.Empty(t, snap.Users)
	assert.True(t, snap.NoResults)

	snap = decode[snapshotOut](t, call(t, r, http.MethodDelete, base+"/query", ""))
	assert.Equal(t, "", snap.Query)
	assert.Len(t, snap.Users, 2)
	assert.False(t, snap.NoResults)

	got := call(t, r, http.MethodGet, base, "")
	assert.Equal(t, resp.CodeOK, got.Code)
}

func TestSessionDetail(t *testing.T) {
	r := newSessionEngine(t, staticSource{users: directory()}, session.Options{})
	sid := openSession(t, r)
	base := "/api/v1/sessions/" + sid
	call(t, r, http.MethodPost, base+"/refresh?wait=true", "")

	u := decode[UserView](t, call(t, r, http.MethodGet, base+"/users/1", ""))
	assert.Equal(t, "Leanne Graham", u.Name)
	assert.Equal(t, "Romaguera-Crona", u.Company.Name)

	out := call(t, r, http.MethodGet, base+"/users/99", "")
	assert.Equal(t, resp.CodeNotFound, out.Code)
	assert.Equal(t, "User not found", out.Msg)

	out = call(t, r, http.MethodGet, base+"/users/abc", "")
	assert.Equal(t, resp.CodeBadRequest, out.Code)
}

func TestSessionNotFound(t *testing.T) {
	r := newSessionEngine(t, staticSource{}, session.Options{})
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/sessions/nope"},
		{http.MethodDelete, "/api/v1/sessions/nope"},
		{http.MethodPost, "/api/v1/sessions/nope/refresh"},
		{http.MethodDelete, "/api/v1/sessions/nope/query"},
		{http.MethodGet, "/api/v1/sessions/nope/users/1"},
		{http.MethodGet, "/api/v1/sessions/nope/events"},
	} {
		out := call(t, r, tc.method, tc.path, "")
		assert.Equal(t, resp.CodeNotFound, out.Code, tc.path)
	}
}

func TestSessionCloseAndLimit(t *testing.T) {
	r := newSessionEngine(t, staticSource{users: directory()}, session.Options{Max: 1})
	sid := openSession(t, r)

	out := call(t, r, http.MethodPost, "/api/v1/sessions", "")
	assert.Equal(t, resp.CodeTooManyRequests, out.Code)

	out = call(t, r, http.MethodDelete, "/api/v1/sessions/"+sid, "")
	assert.Equal(t, resp.CodeOK, out.Code)
	out = call(t, r, http.MethodGet, "/api/v1/sessions/"+sid, "")
	assert.Equal(t, resp.CodeNotFound, out.Code)

	openSession(t, r)
}

func TestSessionEmptyDirectory(t *testing.T) {
	r := newSessionEngine(t, staticSource{}, session.Options{})
	sid := openSession(t, r)
	snap := decode[snapshotOut](t, call(t, r, http.MethodPost, "/api/v1/sessions/"+sid+"/refresh?wait=true", ""))
	assert.Equal(t, "empty", snap.State.Status)
	assert.Equal(t, "No users", snap.Summary)
	assert.NotNil(t, snap.Users)
}

func TestSessionEvents(t *testing.T) {
	r := newSessionEngine(t, staticSource{users: directory()}, session.Options{})
	srv := httptest.NewServer(r)
	defer srv.Close()
	sid := openSession(t, r)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/sessions/"+sid+"/events", nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Contains(t, res.Header.Get("Content-Type"), "text/event-stream")

	// 订阅时立即推送当前快照
	sc := bufio.NewScanner(res.Body)
	var event, data string
	for sc.Scan() {
		line := sc.Text()
		if v, ok := strings.CutPrefix(line, "event:"); ok {
			event = v
		}
		if v, ok := strings.CutPrefix(line, "data:"); ok {
			data = v
			break
		}
	}
	assert.Equal(t, "snapshot", event)
	var snap snapshotOut
	require.NoError(t, json.Unmarshal([]byte(data), &snap))
	assert.NotEmpty(t, snap.Summary)
}
