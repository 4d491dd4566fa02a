package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"team-directory/internal/domain"
	"team-directory/internal/feature/userlist"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrTooManySessions = errors.New("too many open sessions")
	ErrClosed          = errors.New("session manager closed")
)

type Options struct {
	IdleTTL      time.Duration // 超过该时长无访问即回收，0 不回收
	Max          int           // 同时打开的会话上限，0 不限
	FetchTimeout time.Duration
}

type entry struct {
	ctl      *userlist.Controller
	lastSeen time.Time
	watchers int // 打开中的事件流，>0 时不回收
}

// Manager 一个会话 = 一个打开的列表页
type Manager struct {
	src domain.UserSource
	log *zap.Logger
	opt Options
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
	closed   bool

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewManager(src domain.UserSource, log *zap.Logger, opt Options) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		src:      src,
		log:      log,
		opt:      opt,
		now:      time.Now,
		sessions: make(map[string]*entry),
		stop:     make(chan struct{}),
	}
	if opt.IdleTTL > 0 {
		m.wg.Add(1)
		go m.janitor(opt.IdleTTL / 2)
	}
	return m
}

// Open 创建控制器并立即开始首次加载
func (m *Manager) Open() (string, *userlist.Controller, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", nil, ErrClosed
	}
	if m.opt.Max > 0 && len(m.sessions) >= m.opt.Max {
		m.mu.Unlock()
		return "", nil, ErrTooManySessions
	}
	id := uuid.NewString()
	ctl := userlist.New(m.src, m.log.With(zap.String("session", id)), userlist.Options{FetchTimeout: m.opt.FetchTimeout})
	m.sessions[id] = &entry{ctl: ctl, lastSeen: m.now()}
	m.mu.Unlock()

	ctl.Load()
	m.log.Info("session opened", zap.String("session", id))
	return id, ctl, nil
}

func (m *Manager) Get(id string) (*userlist.Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastSeen = m.now()
	return e.ctl, nil
}

// Watch 与 Get 相同，但在 release 之前该会话不会被空闲回收
func (m *Manager) Watch(id string) (*userlist.Controller, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	e.watchers++
	e.lastSeen = m.now()

	var once sync.Once
	release := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			e.watchers--
			e.lastSeen = m.now()
		})
	}
	return e.ctl, release, nil
}

func (m *Manager) Close(id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	e.ctl.Close()
	m.log.Info("session closed", zap.String("session", id))
	return nil
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Reap 关闭空闲超过 IdleTTL 的会话，返回关闭数量
func (m *Manager) Reap() int {
	if m.opt.IdleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.opt.IdleTTL)
	var idle []*entry
	m.mu.Lock()
	for id, e := range m.sessions {
		if e.watchers == 0 && e.lastSeen.Before(cutoff) {
			idle = append(idle, e)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, e := range idle {
		e.ctl.Close()
	}
	if len(idle) > 0 {
		m.log.Info("idle sessions reaped", zap.Int("count", len(idle)))
	}
	return len(idle)
}

func (m *Manager) janitor(every time.Duration) {
	defer m.wg.Done()
	if every <= 0 {
		every = time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			m.Reap()
		case <-m.stop:
			return
		}
	}
}

// Shutdown 停止回收协程并关闭全部会话
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()

	m.mu.Lock()
	m.closed = true
	all := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()
	for _, e := range all {
		e.ctl.Close()
	}
}
