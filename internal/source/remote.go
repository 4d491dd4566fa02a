package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"team-directory/internal/domain"
)

const (
	DefaultBaseURL   = "https://jsonplaceholder.typicode.com/"
	DefaultUserAgent = "team-directory/1.0"
	usersPath        = "users"
)

// StatusError 远端返回非 2xx
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("unexpected status %d", e.Code) }

type RemoteOpts struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	RPS       float64 // 出站限速，<=0 不限
	Burst     int
}

// Remote GET {base}/users
type Remote struct {
	url string
	ua  string
	hc  *http.Client
	lim *rate.Limiter
	log *zap.Logger
}

func NewRemote(o RemoteOpts, hc *http.Client, log *zap.Logger) *Remote {
	base := o.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if hc == nil {
		hc = &http.Client{Timeout: o.Timeout}
	}
	ua := o.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	lim := rate.NewLimiter(rate.Inf, 0)
	if o.RPS > 0 {
		lim = rate.NewLimiter(rate.Limit(o.RPS), max(1, o.Burst))
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Remote{url: base + usersPath, ua: ua, hc: hc, lim: lim, log: log}
}

func (r *Remote) FetchUsers(ctx context.Context) (users []domain.User, err error) {
	start := time.Now()
	defer func() { observe("http", start, err) }()

	if err := r.lim.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", r.ua)

	res, err := r.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4<<10))
		return nil, &StatusError{Code: res.StatusCode}
	}
	if err := json.NewDecoder(res.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	if users == nil {
		users = []domain.User{}
	}
	r.log.Debug("remote users fetched", zap.String("url", r.url), zap.Int("count", len(users)), zap.Duration("latency", time.Since(start)))
	return users, nil
}
