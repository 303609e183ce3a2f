package task

import "context"

// Handler 处理一条出队的任务消息。返回错误表示处理失败，
// 由具体队列驱动决定是否重新投递。
type Handler func(ctx context.Context, taskID string) error

// Producer 负责任务 ID 的入队。
type Producer interface {
	Publish(ctx context.Context, taskID string) error
}

// Consumer 以 workerCount 个并发 worker 消费任务 ID，
// 直到 ctx 结束。
type Consumer interface {
	Consume(ctx context.Context, workerCount int, handler Handler) error
}

// Queue 同时具备生产与消费能力。
type Queue interface {
	Producer
	Consumer
	Close() error
}
