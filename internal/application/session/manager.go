package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"ultra-prompt-ai-api/internal/domain/entity"
	workflowport "ultra-prompt-ai-api/internal/workflow/port"
	apperrors "ultra-prompt-ai-api/pkg/errors"
	"ultra-prompt-ai-api/pkg/logger"
	"ultra-prompt-ai-api/pkg/metrics"
)

// Manager 进程内会话表，按空闲时长回收
type Manager struct {
	client workflowport.GenerationClient
	sink   ProjectSink
	opts   Options
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[string]*Machine
}

// NewManager 创建会话管理器，ttl<=0 时不回收
func NewManager(client workflowport.GenerationClient, sink ProjectSink, opts Options, ttl time.Duration) *Manager {
	return &Manager{
		client:   client,
		sink:     sink,
		opts:     opts.withDefaults(),
		ttl:      ttl,
		sessions: make(map[string]*Machine),
	}
}

// Create 为指纹创建新会话
func (m *Manager) Create(owner entity.OwnerFingerprint) *Machine {
	id := uuid.NewString()
	sm := NewMachine(id, owner, m.client, m.sink, m.opts)

	m.mu.Lock()
	m.sessions[id] = sm
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
	return sm
}

// Get 按 id 获取会话，指纹不匹配时视为不存在
func (m *Manager) Get(id string, owner entity.OwnerFingerprint) (*Machine, error) {
	m.mu.RLock()
	sm, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || sm.owner != owner {
		return nil, apperrors.ErrSessionNotFound
	}
	return sm, nil
}

// Delete 删除会话并使其在途响应失效
func (m *Manager) Delete(ctx context.Context, id string, owner entity.OwnerFingerprint) error {
	sm, err := m.Get(id, owner)
	if err != nil {
		return err
	}
	sm.Reset(ctx)

	m.mu.Lock()
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
	return nil
}

// ForgetProject 通知所有会话某项目已被删除
func (m *Manager) ForgetProject(ctx context.Context, projectID string) int {
	m.mu.RLock()
	all := make([]*Machine, 0, len(m.sessions))
	for _, sm := range m.sessions {
		all = append(all, sm)
	}
	m.mu.RUnlock()

	n := 0
	for _, sm := range all {
		if sm.ForgetProject(ctx, projectID) {
			n++
		}
	}
	return n
}

// Len 当前会话数
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep 回收空闲超过 ttl 的会话，在途会话不回收
func (m *Manager) Sweep(ctx context.Context) int {
	if m.ttl <= 0 {
		return 0
	}
	now := m.opts.Now()

	m.mu.Lock()
	removed := 0
	for id, sm := range m.sessions {
		if sm.idleSince(now) > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
	if removed > 0 {
		logger.Info(ctx, "expired sessions swept", "removed", removed, "active", n)
	}
	return removed
}

// Run 周期性回收，直到 ctx 取消
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || m.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}
