// Package cache 缓存排班优化运行结果，供按运行编号回看
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shiftsync/shiftsync/pkg/engine"
	"github.com/shiftsync/shiftsync/pkg/errors"
)

// DefaultTTL 运行结果默认保留时长
const DefaultTTL = 24 * time.Hour

// RunStore 运行结果存储
type RunStore interface {
	Save(ctx context.Context, run *engine.RunResult) error
	Get(ctx context.Context, runID string) (*engine.RunResult, error)
}

type memoryEntry struct {
	run       *engine.RunResult
	expiresAt time.Time
}

// MemoryRunStore 进程内运行结果存储，未配置 Redis 时使用
type MemoryRunStore struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryRunStore 创建进程内存储
func NewMemoryRunStore(ttl time.Duration) *MemoryRunStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryRunStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// Save 保存运行结果，同时清理已过期的条目
func (s *MemoryRunStore) Save(ctx context.Context, run *engine.RunResult) error {
	if run == nil || run.RunID == "" {
		return errors.InvalidInput("run_id", "运行编号不能为空")
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
		}
	}
	s.entries[run.RunID] = memoryEntry{run: run, expiresAt: now.Add(s.ttl)}
	return nil
}

// Get 按运行编号读取
func (s *MemoryRunStore) Get(ctx context.Context, runID string) (*engine.RunResult, error) {
	s.mu.RLock()
	e, ok := s.entries[runID]
	s.mu.RUnlock()
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, errors.NotFound("运行结果", runID)
	}
	return e.run, nil
}

// Len 当前条目数（含未清理的过期条目）
func (s *MemoryRunStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
