package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/remeh/sizedwaitgroup"
)

// DefaultWorkerCount 未指定并发数时使用的工作协程数量
const DefaultWorkerCount = 10

// Handler 处理单个任务
type Handler[T, R any] func(ctx context.Context, item T) (R, error)

// Result 表示任务执行结果
type Result[R any] struct {
	// 任务索引
	Index int
	// 任务结果
	Value R
	// 错误信息
	Error error
	// 上下文取消时尚未派发的任务
	Skipped bool
	// 执行时间
	Duration time.Duration
}

// Pool 有界并发工作池，每个任务产生且只产生一个结果
type Pool[T, R any] struct {
	workerCount int
	handler     Handler[T, R]
	// 已完成任务数
	completed atomic.Int64
	// 总任务数
	total atomic.Int64
}

// NewPool 创建新的工作池
func NewPool[T, R any](workerCount int, handler Handler[T, R]) *Pool[T, R] {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}
	return &Pool[T, R]{
		workerCount: workerCount,
		handler:     handler,
	}
}

// WorkerCount 返回并发上限
func (p *Pool[T, R]) WorkerCount() int {
	return p.workerCount
}

// Execute 并发执行所有任务，结果以完成顺序写入返回的通道
// 上下文取消后不再派发新任务，剩余任务以 Skipped 结果返回；所有结果发送完毕后通道关闭
func (p *Pool[T, R]) Execute(ctx context.Context, items []T) <-chan *Result[R] {
	p.total.Add(int64(len(items)))
	results := make(chan *Result[R], p.workerCount)

	go func() {
		defer close(results)
		swg := sizedwaitgroup.New(p.workerCount)
		for i, item := range items {
			err := ctx.Err()
			if err == nil {
				err = swg.AddWithContext(ctx)
			}
			if err != nil {
				// 等待已派发的任务结束后补齐剩余结果
				for j := i; j < len(items); j++ {
					p.completed.Add(1)
					results <- &Result[R]{Index: j, Error: err, Skipped: true}
				}
				break
			}
			go func(index int, item T) {
				defer swg.Done()
				results <- p.run(ctx, index, item)
			}(i, item)
		}
		swg.Wait()
	}()

	return results
}

// run 执行单个任务，处理器 panic 时转换为错误
func (p *Pool[T, R]) run(ctx context.Context, index int, item T) (result *Result[R]) {
	start := time.Now()
	result = &Result[R]{Index: index}
	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("worker panic: %v", r)
		}
		result.Duration = time.Since(start)
		p.completed.Add(1)
	}()
	result.Value, result.Error = p.handler(ctx, item)
	return result
}

// Progress 获取进度信息
func (p *Pool[T, R]) Progress() (completed, total int64) {
	return p.completed.Load(), p.total.Load()
}

// ExecuteBatch 批量执行任务，返回按任务索引排列的结果
func ExecuteBatch[T, R any](ctx context.Context, items []T, workerCount int, handler Handler[T, R]) []*Result[R] {
	if workerCount <= 0 {
		workerCount = min(len(items), DefaultWorkerCount)
	}
	pool := NewPool(workerCount, handler)
	results := make([]*Result[R], len(items))
	for result := range pool.Execute(ctx, items) {
		results[result.Index] = result
	}
	return results
}
