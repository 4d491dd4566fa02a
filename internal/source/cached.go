package source

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"team-directory/internal/core/cache"
	"team-directory/internal/domain"
)

// Cached 给任意 UserSource 加一层 redis 读穿缓存
type Cached struct {
	inner domain.UserSource
	c     *cache.Cache
	ttl   time.Duration
	log   *zap.Logger
}

func NewCached(inner domain.UserSource, c *cache.Cache, ttl time.Duration, log *zap.Logger) *Cached {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cached{inner: inner, c: c, ttl: ttl, log: log}
}

func (s *Cached) key() string { return s.c.Key("users") }

func (s *Cached) FetchUsers(ctx context.Context) (users []domain.User, err error) {
	start := time.Now()
	defer func() { observe("cache", start, err) }()

	out, err := cache.GetOrLoadJSON(s.c, ctx, s.key(), s.ttl, func(ctx context.Context) (*[]domain.User, error) {
		us, e := s.inner.FetchUsers(ctx)
		if e != nil {
			return nil, e
		}
		return &us, nil
	})
	if errors.Is(err, cache.ErrCorrupt) {
		s.log.Warn("user cache entry corrupt, falling back", zap.Error(err))
		return s.inner.FetchUsers(ctx)
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		return []domain.User{}, nil
	}
	return *out, nil
}

// Invalidate 删除缓存的用户列表
func (s *Cached) Invalidate(ctx context.Context) error {
	return s.c.Delete(ctx, s.key())
}
