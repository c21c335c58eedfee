package engine

import (
	"context"
	"sync"

	"github.com/shiftsync/shiftsync/pkg/errors"
)

// job 单个待处理项
type job[T any] struct {
	index int
	item  T
}

// jobResult 单个处理结果
type jobResult[R any] struct {
	index int
	value R
	err   error
}

// mapOrdered 用固定数量的工作协程并行处理，结果按输入顺序返回
// 出错时返回下标最小的错误，与顺序执行的结果一致
func mapOrdered[T, R any](ctx context.Context, workers int, items []T, fn func(T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return []R{}, nil
	}
	if workers <= 0 {
		workers = 4
	}
	if workers > len(items) {
		workers = len(items)
	}

	jobChan := make(chan job[T], len(items))
	resultChan := make(chan jobResult[R], len(items))

	// 启动工作协程
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobChan {
				select {
				case <-ctx.Done():
					return
				default:
					v, err := fn(j.item)
					resultChan <- jobResult[R]{index: j.index, value: v, err: err}
				}
			}
		}()
	}

	// 发送任务
	for i, item := range items {
		jobChan <- job[T]{index: i, item: item}
	}
	close(jobChan)

	// 等待完成
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// 收集结果
	results := make([]R, len(items))
	var firstErr error
	firstErrIndex := len(items)
	done := 0
	for r := range resultChan {
		done++
		if r.err != nil {
			if r.index < firstErrIndex {
				firstErr, firstErrIndex = r.err, r.index
			}
			continue
		}
		results[r.index] = r.value
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if done < len(items) {
		return nil, errors.Wrap(ctx.Err(), errors.CodeTimeout, "批次处理已取消")
	}
	return results, nil
}
