package ez

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"team-directory/internal/core/auth"
	resp "team-directory/internal/transport/http/response"
)

// KeyClaims AuthJWT 中间件写入的 *auth.Claims
const KeyClaims = "claims"

type Binder string

const (
	BindJSON  Binder = "json"  // 请求体 JSON
	BindQuery Binder = "query" // ?a=b
	BindURI   Binder = "uri"   // 路径参数 /:id
	BindNone  Binder = "none"  // 不绑定
)

// AErr 业务错误，映射到 resp.Error(code, msg)
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error      { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error    { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func Forbidden(msg string) error       { return &AErr{Code: resp.CodeForbidden, Msg: msg} }
func NotFound(msg string) error        { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func TooManyRequests(msg string) error { return &AErr{Code: resp.CodeTooManyRequests, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// Action I 入参，O 出参
type Action[I any, O any] struct {
	Method  string   // GET / POST / PUT / DELETE
	Path    string   // 例："/sessions/:sid/query"
	Binders []Binder // 按顺序绑定，可组合 uri + json
	Roles   []string // 非空时要求 claims.Role 命中其一
	Handler func(c *gin.Context, in *I) (O, error)
}

func RegisterAction[I any, O any](g gin.IRoutes, a Action[I, O]) {
	h := func(c *gin.Context) {
		if len(a.Roles) > 0 {
			claims, _ := c.Get(KeyClaims)
			cl, ok := claims.(*auth.Claims)
			if !ok {
				c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "unauthorized"))
				return
			}
			if !slices.Contains(a.Roles, cl.Role) {
				c.JSON(http.StatusOK, resp.Error(resp.CodeForbidden, "forbidden"))
				return
			}
		}

		var in I
		for _, b := range a.Binders {
			var err error
			switch b {
			case BindJSON:
				err = c.ShouldBindJSON(&in)
			case BindQuery:
				err = c.ShouldBindQuery(&in)
			case BindURI:
				err = c.ShouldBindUri(&in)
			}
			if err != nil {
				c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
				return
			}
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			var ae *AErr
			if errors.As(err, &ae) {
				if ae.Err != nil {
					_ = c.Error(ae.Err)
				}
				c.JSON(http.StatusOK, resp.Error(ae.Code, ae.Error()))
				return
			}
			_ = c.Error(err)
			c.JSON(http.StatusOK, resp.Error(resp.CodeServerError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		g.GET(a.Path, h)
	case http.MethodPut:
		g.PUT(a.Path, h)
	case http.MethodDelete:
		g.DELETE(a.Path, h)
	default:
		g.POST(a.Path, h)
	}
}
