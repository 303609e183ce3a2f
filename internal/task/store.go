package task

import "context"

// Store 抽象了任务状态的持久化接口。
//
// Update 以记录为粒度执行原子变更：实现必须保证 mutate 在
// 加载与回写之间不会被并发写覆盖。这取代了早期实现中
// “整体读-改-写”造成的丢失更新问题。
type Store interface {
	Create(ctx context.Context, task *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	Update(ctx context.Context, id string, mutate func(*Task) error) (*Task, error)
	List(ctx context.Context, opts ListOptions) ([]*Task, error)
	Stats(ctx context.Context, opts ListOptions) (TaskStats, error)
	Close() error
}
