package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrCorrupt 缓存里的值无法解码，已被删除
var ErrCorrupt = errors.New("corrupt cache entry")

// GetOrLoadJSON 按 JSON 编解码的 GetOrLoad
// 值为 "null" 时返回 nil；解码失败删键并返回 ErrCorrupt，回源错误原样返回
func GetOrLoadJSON[T any](
	c *Cache,
	ctx context.Context,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (*T, error),
) (*T, error) {
	b, err := c.GetOrLoad(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, e := load(ctx)
		if e != nil {
			return nil, e
		}
		return json.Marshal(v)
	})
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	var out T
	if e := json.Unmarshal(b, &out); e != nil {
		_ = c.Delete(ctx, key)
		return nil, fmt.Errorf("%w %q: %v", ErrCorrupt, key, e)
	}
	return &out, nil
}
