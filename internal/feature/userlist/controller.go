package userlist

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"team-directory/internal/domain"
)

// FallbackMessage 拉取失败但错误没有描述时使用
const FallbackMessage = "Unknown error occurred"

type Options struct {
	FetchTimeout time.Duration // 单次拉取超时，0 表示不限制
}

// Controller 一个列表页的状态：加载状态机 + 搜索词 + 过滤视图
//
// 每次 Load 分配递增序号，只有最新一次 Load 的结果会被应用，
// 被覆盖的请求照常跑完，结果直接丢弃（不取消）。
type Controller struct {
	src domain.UserSource
	log *zap.Logger
	opt Options

	ctx    context.Context // Close 时取消
	cancel context.CancelFunc

	mu       sync.Mutex
	state    LoadState
	query    string
	all      []domain.User
	filtered []domain.User
	seq      uint64
	version  uint64
	subs     map[uint64]chan Snapshot
	nextSub  uint64
	closed   bool
}

func New(src domain.UserSource, log *zap.Logger, opt Options) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		src:      src,
		log:      log,
		opt:      opt,
		ctx:      ctx,
		cancel:   cancel,
		state:    Loading(),
		all:      []domain.User{},
		filtered: []domain.User{},
		subs:     make(map[uint64]chan Snapshot),
	}
}

// Load 同步切到 Loading，异步拉取；返回的 channel 在结果应用（或丢弃）后关闭
func (c *Controller) Load() <-chan struct{} {
	done := make(chan struct{})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(done)
		return done
	}
	c.seq++
	seq := c.seq
	c.state = Loading()
	c.publishLocked()
	c.mu.Unlock()

	go func() {
		defer close(done)
		ctx := c.ctx
		if c.opt.FetchTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.opt.FetchTimeout)
			defer cancel()
		}
		users, err := c.src.FetchUsers(ctx)
		c.complete(seq, users, err)
	}()
	return done
}

// Refresh 与 Load 完全相同
func (c *Controller) Refresh() <-chan struct{} { return c.Load() }

func (c *Controller) complete(seq uint64, users []domain.User, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if seq != c.seq {
		c.log.Debug("stale load discarded", zap.Uint64("seq", seq), zap.Uint64("latest", c.seq))
		return
	}

	switch {
	case err != nil:
		msg := err.Error()
		if msg == "" {
			msg = FallbackMessage
		}
		// allUsers / filteredUsers 保持原值
		c.state = Failure(msg)
		c.log.Warn("load users failed", zap.Uint64("seq", seq), zap.Error(err))
	case len(users) == 0:
		c.all = []domain.User{}
		c.filtered = []domain.User{}
		c.state = Empty()
		c.log.Info("load users empty", zap.Uint64("seq", seq))
	default:
		c.all = slices.Clone(users)
		c.state = Success(c.all)
		c.filtered = Filter(c.all, c.query)
		c.log.Info("load users ok", zap.Uint64("seq", seq), zap.Int("count", len(c.all)))
	}
	c.publishLocked()
}

// SetQuery 原样保存，同步重算过滤视图；不改变 loadState
func (c *Controller) SetQuery(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.query = text
	c.filtered = Filter(c.all, c.query)
	c.publishLocked()
}

func (c *Controller) ClearQuery() { c.SetQuery("") }

// Find 在当前已加载列表中按 id 查找
func (c *Controller) Find(id int) (domain.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range c.all {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe 每个订阅者一个容量为 1 的 channel，只保留最新快照
// 订阅时立即收到当前快照；cancel 后 channel 关闭
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if s, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(s)
			}
		})
	}
}

// Close 页面关闭：取消在途请求，关闭所有订阅，之后的调用都是空操作
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	for id, s := range c.subs {
		delete(c.subs, id)
		close(s)
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:   c.state,
		Query:   c.query,
		Users:   c.filtered,
		Total:   len(c.all),
		Version: c.version,
	}
}

func (c *Controller) publishLocked() {
	c.version++
	snap := c.snapshotLocked()
	for _, s := range c.subs {
		select {
		case <-s:
		default:
		}
		select {
		case s <- snap:
		default:
		}
	}
}
