package cache

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/shiftsync/shiftsync/pkg/engine"
	"github.com/shiftsync/shiftsync/pkg/errors"
	"github.com/shiftsync/shiftsync/pkg/logger"
)

// BreakerConfig 熔断配置
type BreakerConfig struct {
	Name        string
	MaxFailures uint32        // 连续失败次数阈值
	Timeout     time.Duration // 打开状态持续时间，之后进入半开
	MaxRequests uint32        // 半开状态允许的试探请求数
}

// DefaultBreakerConfig 返回默认熔断配置
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{Name: name, MaxFailures: 5, Timeout: 30 * time.Second, MaxRequests: 1}
}

// BreakerRunStore 为运行结果存储加熔断，后端故障时快速失败
type BreakerRunStore struct {
	next RunStore
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerRunStore 包装运行结果存储
func NewBreakerRunStore(next RunStore, cfg BreakerConfig) *BreakerRunStore {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("熔断器状态变化")
		},
		// 未找到与参数错误属于正常结果，不计入失败
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			code := errors.GetCode(err)
			return code == errors.CodeNotFound || code == errors.CodeInvalidInput
		},
	}

	return &BreakerRunStore{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Save 保存运行结果
func (s *BreakerRunStore) Save(ctx context.Context, run *engine.RunResult) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.Save(ctx, run)
	})
	return s.translate(err)
}

// Get 读取运行结果
func (s *BreakerRunStore) Get(ctx context.Context, runID string) (*engine.RunResult, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.Get(ctx, runID)
	})
	if err != nil {
		return nil, s.translate(err)
	}
	return result.(*engine.RunResult), nil
}

// State 返回熔断器状态
func (s *BreakerRunStore) State() gobreaker.State {
	return s.cb.State()
}

func (s *BreakerRunStore) translate(err error) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return errors.Wrap(err, errors.CodeStorageUnavailable, "运行结果缓存暂时不可用").
			WithField("breaker", s.cb.Name())
	}
	return err
}
