package task

import (
	"context"
	"sync"

	xerrors "AgentNexus/internal/errors"
)

const defaultMemoryQueueSize = 256

// MemoryQueue 基于有界 channel 的进程内任务队列，
// 适合单机部署与测试场景。
type MemoryQueue struct {
	ch chan string

	closeOnce sync.Once
	closed    chan struct{}
}

// NewMemoryQueue 创建一个进程内队列。size <= 0 时使用默认容量。
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = defaultMemoryQueueSize
	}
	return &MemoryQueue{
		ch:     make(chan string, size),
		closed: make(chan struct{}),
	}
}

// Publish 将任务 ID 入队。队列满时阻塞，直到有空位或 ctx 结束。
func (q *MemoryQueue) Publish(ctx context.Context, taskID string) error {
	select {
	case <-q.closed:
		return xerrors.New(xerrors.CodeQueueFailure, "队列已关闭")
	default:
	}

	select {
	case q.ch <- taskID:
		return nil
	case <-q.closed:
		return xerrors.New(xerrors.CodeQueueFailure, "队列已关闭")
	case <-ctx.Done():
		return xerrors.Wrap(xerrors.CodeQueueFailure, ctx.Err(), "任务入队被取消")
	}
}

// Consume 以 workerCount 个 worker 持续消费任务 ID，
// 直到 ctx 结束或队列关闭。
func (q *MemoryQueue) Consume(ctx context.Context, workerCount int, handler Handler) error {
	if workerCount <= 0 {
		workerCount = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case taskID := <-q.ch:
					// 处理失败由上层记录，进程内队列不做重投递。
					_ = handler(ctx, taskID)
				case <-q.closed:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// Close 关闭队列，唤醒所有阻塞的生产者与消费者。
func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
	return nil
}

var _ Queue = (*MemoryQueue)(nil)
