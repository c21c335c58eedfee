package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shiftsync/shiftsync/pkg/engine"
	"github.com/shiftsync/shiftsync/pkg/errors"
)

const runKeyPrefix = "shiftsync:run:"

// RedisRunStore 基于 Redis 的运行结果存储，结果以 JSON 保存并设置过期时间
type RedisRunStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisRunStore 创建 Redis 存储
func NewRedisRunStore(client redis.Cmdable, ttl time.Duration) *RedisRunStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisRunStore{client: client, ttl: ttl}
}

// Save 保存运行结果
func (s *RedisRunStore) Save(ctx context.Context, run *engine.RunResult) error {
	if run == nil || run.RunID == "" {
		return errors.InvalidInput("run_id", "运行编号不能为空")
	}
	data, err := json.Marshal(run)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "序列化运行结果失败")
	}
	if err := s.client.Set(ctx, runKey(run.RunID), data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "写入运行结果缓存失败")
	}
	return nil
}

// Get 按运行编号读取，不存在或已过期返回 NOT_FOUND
func (s *RedisRunStore) Get(ctx context.Context, runID string) (*engine.RunResult, error) {
	data, err := s.client.Get(ctx, runKey(runID)).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, errors.NotFound("运行结果", runID)
		}
		return nil, errors.Wrap(err, errors.CodeInternal, "读取运行结果缓存失败")
	}

	var run engine.RunResult
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "解析运行结果缓存失败")
	}
	return &run, nil
}

// Ping 检查 Redis 连接
func (s *RedisRunStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func runKey(runID string) string {
	return runKeyPrefix + runID
}
