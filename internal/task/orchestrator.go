package task

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"time"

	xerrors "AgentNexus/internal/errors"
	"AgentNexus/internal/observability/alerting"
	"AgentNexus/internal/observability/metrics"
	"AgentNexus/pkg/logger"
)

const defaultMinProcessingDelay = time.Second

// Orchestrator 从队列消费任务，按应答链逐层尝试生成回复，
// 并把结果回写到存储。
type Orchestrator struct {
	store       Store
	consumer    Consumer
	responders  []Responder
	workerCount int
	minDelay    time.Duration
	logger      *slog.Logger
	alerter     alerting.Dispatcher
	sleep       func(ctx context.Context, d time.Duration)
}

// OrchestratorOption 定义可选配置。
type OrchestratorOption func(*Orchestrator)

// WithWorkerCount 设置消费协程数量。
func WithWorkerCount(workers int) OrchestratorOption {
	return func(o *Orchestrator) {
		if workers > 0 {
			o.workerCount = workers
		}
	}
}

// WithOrchestratorLogger 指定日志输出。
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithAlertDispatcher 配置告警派发器。
func WithAlertDispatcher(dispatcher alerting.Dispatcher) OrchestratorOption {
	return func(o *Orchestrator) {
		o.alerter = dispatcher
	}
}

// WithMinProcessingDelay 设置每个任务的最小处理时长。
// 这段延迟让异步处理在前端可被观察到，设为 0 可关闭。
func WithMinProcessingDelay(delay time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if delay >= 0 {
			o.minDelay = delay
		}
	}
}

// NewOrchestrator 构造 Orchestrator。responders 按优先级排列，
// 第一个返回非空回复的层级胜出。
func NewOrchestrator(store Store, consumer Consumer, responders []Responder, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		consumer:    consumer,
		responders:  responders,
		workerCount: 1,
		minDelay:    defaultMinProcessingDelay,
		sleep: func(ctx context.Context, d time.Duration) {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Start 启动任务处理循环，阻塞直到 ctx 结束。
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.consumer == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "未配置任务消费者")
	}
	return o.consumer.Consume(ctx, o.workerCount, o.handle)
}

func (o *Orchestrator) handle(ctx context.Context, taskID string) error {
	if o.store == nil || len(o.responders) == 0 {
		return xerrors.New(xerrors.CodeInitializationFailure, "编排器未初始化")
	}

	started := time.Now()

	// 领取任务：pending -> processing。已经被别的 worker
	// 领走或已进入终态的任务直接跳过。
	task, err := o.store.Update(ctx, taskID, func(t *Task) error {
		return t.MarkProcessing()
	})
	if err != nil {
		if stdErrors.Is(err, ErrTaskNotFound) || stdErrors.Is(err, ErrTaskConflict) {
			o.logDebug("跳过任务", slog.String("task_id", taskID), slog.String("reason", err.Error()))
			return nil
		}
		logger.L().Error("领取任务失败", slog.Any("error", err), slog.String("task_id", taskID))
		return err
	}

	response, source, tierErr := o.runResponders(ctx, task)

	// 即使应答立即返回也保留一段最小处理时长，
	// 让前端能观察到 processing 状态。
	if elapsed := time.Since(started); elapsed < o.minDelay {
		o.sleep(ctx, o.minDelay-elapsed)
	}

	if response == "" {
		return o.markExhausted(ctx, task, tierErr)
	}
	return o.complete(ctx, task, response, source)
}

// runResponders 按优先级逐层尝试。层级报错时记录并继续下一层，
// 返回最后一层的错误供兜底失败时参考。
func (o *Orchestrator) runResponders(ctx context.Context, task *Task) (string, string, error) {
	var lastErr error
	for _, responder := range o.responders {
		if responder == nil {
			continue
		}
		reply, err := responder.Attempt(ctx, task)
		if err != nil {
			lastErr = err
			o.logDebug("应答层级失败",
				slog.String("task_id", task.ID),
				slog.String("responder", responder.Name()),
				slog.Any("error", err))
			continue
		}
		if reply != "" {
			return reply, responder.Name(), nil
		}
	}
	return "", "", lastErr
}

func (o *Orchestrator) complete(ctx context.Context, task *Task, response, source string) error {
	_, err := o.store.Update(ctx, task.ID, func(t *Task) error {
		return t.Complete(response)
	})
	if err != nil {
		if stdErrors.Is(err, ErrTaskNotFound) {
			return o.recoverLostRecord(ctx, task)
		}
		logger.L().Error("回写任务结果失败", slog.Any("error", err), slog.String("task_id", task.ID))
		return err
	}
	metrics.ObserveTaskOutcome(source, "completed")
	logger.Audit().Info("任务处理完成",
		slog.String("task_id", task.ID),
		slog.String("agent_id", task.AgentID),
		slog.String("source", source),
	)
	return nil
}

func (o *Orchestrator) markExhausted(ctx context.Context, task *Task, tierErr error) error {
	reason := "所有应答层级均未产生回复"
	if tierErr != nil {
		reason = tierErr.Error()
	}
	_, err := o.store.Update(ctx, task.ID, func(t *Task) error {
		return t.Fail(CodeTaskExhausted, reason)
	})
	if err != nil {
		if stdErrors.Is(err, ErrTaskNotFound) {
			return o.recoverLostRecord(ctx, task)
		}
		logger.L().Error("标记任务失败状态出错", slog.Any("error", err), slog.String("task_id", task.ID))
		return err
	}
	metrics.ObserveTaskOutcome("none", "failed")
	logger.Audit().Warn("任务应答层级耗尽",
		slog.String("task_id", task.ID),
		slog.String("agent_id", task.AgentID),
		slog.String("reason", reason),
	)
	o.emitAlert(ctx, task, CodeTaskExhausted, reason)
	return nil
}

// recoverLostRecord 处理记录在处理期间消失的情况：
// 尽力重建一条失败记录，让用户看到结论而不是 404。
func (o *Orchestrator) recoverLostRecord(ctx context.Context, task *Task) error {
	logger.L().Error("任务记录在处理期间丢失", slog.String("task_id", task.ID))

	restored := task.Clone()
	restored.Status = StatusFailed
	restored.LastError = "task record disappeared while processing"
	restored.ErrorCode = string(CodeTaskLost)
	restored.Response = nil
	if err := o.store.Create(ctx, restored); err != nil {
		logger.L().Error("重建丢失任务记录失败", slog.Any("error", err), slog.String("task_id", task.ID))
	}
	metrics.ObserveTaskOutcome("none", "failed")
	o.emitAlert(ctx, task, CodeTaskLost, "任务记录在处理期间丢失")
	return nil
}

func (o *Orchestrator) emitAlert(ctx context.Context, task *Task, code xerrors.Code, message string) {
	if o.alerter == nil {
		return
	}
	event := alerting.Event{
		Code:       code,
		Message:    message,
		Severity:   xerrors.AttributesOf(code).Severity,
		TaskID:     task.ID,
		AgentID:    task.AgentID,
		OccurredAt: time.Now().UTC(),
	}
	if err := o.alerter.Notify(ctx, event); err != nil {
		logger.L().Warn("发送告警失败", slog.Any("error", err), slog.String("task_id", task.ID))
	}
}

func (o *Orchestrator) logDebug(msg string, attrs ...any) {
	if o.logger != nil {
		o.logger.Debug(msg, attrs...)
		return
	}
	logger.L().Debug(msg, attrs...)
}
