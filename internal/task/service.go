package task

import (
	"context"
	stdErrors "errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"AgentNexus/internal/directory"
	xerrors "AgentNexus/internal/errors"
	"AgentNexus/pkg/logger"
)

// SubmitRequest 描述一次任务提交。
type SubmitRequest struct {
	AgentID    string
	AgentName  string
	Message    string
	UserID     string
	WebhookURL string
}

// Service 负责任务的创建与查询。
type Service struct {
	store     Store
	producer  Producer
	directory directory.Provider
	seeds     func(now time.Time) []*Task
	now       func() time.Time
}

// ServiceOption 配置 Service。
type ServiceOption func(*Service)

// WithServiceDirectory 让提交流程通过目录服务解析智能体档案。
func WithServiceDirectory(provider directory.Provider) ServiceOption {
	return func(s *Service) {
		s.directory = provider
	}
}

// WithoutSeeds 关闭示例任务的合并，主要用于测试。
func WithoutSeeds() ServiceOption {
	return func(s *Service) {
		s.seeds = nil
	}
}

// NewService 构造任务服务。
func NewService(store Store, producer Producer, opts ...ServiceOption) *Service {
	service := &Service{
		store:    store,
		producer: producer,
		seeds:    seedTasks,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Submit 创建一个新的任务并推送到队列。
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Task, error) {
	agentID := strings.TrimSpace(req.AgentID)
	if agentID == "" {
		return nil, xerrors.New(CodeTaskValidation, "agent_id 不能为空")
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, xerrors.New(CodeTaskValidation, "任务内容不能为空")
	}
	if s.store == nil || s.producer == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "任务服务未初始化")
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = AnonymousUserID
	}

	agentName := strings.TrimSpace(req.AgentName)
	webhookURL := strings.TrimSpace(req.WebhookURL)
	if s.directory != nil {
		// 目录解析失败不阻塞任务提交，回落到占位档案。
		profile, err := s.directory.Lookup(ctx, agentID)
		if err != nil || profile == nil {
			logger.L().Warn("解析智能体档案失败，使用占位档案",
				slog.String("agent_id", agentID), slog.Any("error", err))
			profile = directory.FallbackProfile(agentID)
		}
		if agentName == "" {
			agentName = profile.Name
		}
		if webhookURL == "" {
			webhookURL = profile.WebhookURL
		}
	}
	if agentName == "" {
		agentName = agentID
	}

	task := &Task{
		ID:         uuid.NewString(),
		AgentID:    agentID,
		AgentName:  agentName,
		Message:    message,
		UserID:     userID,
		Status:     StatusPending,
		WebhookURL: webhookURL,
	}
	if err := s.store.Create(ctx, task); err != nil {
		return nil, err
	}
	if err := s.producer.Publish(ctx, task.ID); err != nil {
		logger.L().Error("任务入队失败", slog.Any("error", err), slog.String("task_id", task.ID))
		wrapped := xerrors.Wrap(CodeTaskPublish, err, "发布任务到队列失败")
		_, _ = s.store.Update(ctx, task.ID, func(t *Task) error {
			return t.Fail(CodeTaskPublish, wrapped.Error())
		})
		return nil, wrapped
	}
	logger.Audit().Info("任务入队成功",
		slog.String("task_id", task.ID),
		slog.String("agent_id", task.AgentID),
		slog.String("user_id", task.UserID),
	)
	return task, nil
}

// Get 返回指定任务的状态。
func (s *Service) Get(ctx context.Context, id string) (*Task, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "任务存储未初始化")
	}
	id = strings.TrimSpace(id)
	task, err := s.store.Get(ctx, id)
	if err == nil {
		return task, nil
	}
	if stdErrors.Is(err, ErrTaskNotFound) && s.seeds != nil {
		for _, seed := range s.seeds(s.now()) {
			if seed.ID == id {
				return seed.Clone(), nil
			}
		}
	}
	return nil, err
}

// List 返回符合过滤条件的任务列表。未指定用户过滤时，
// 示例任务会并入结果以填充目录页。
func (s *Service) List(ctx context.Context, opts ...ListOption) ([]*Task, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "任务存储未初始化")
	}
	options := buildListOptions(opts)
	results, err := s.store.List(ctx, options)
	if err != nil {
		return nil, err
	}
	if s.seeds != nil && options.UserID == "" {
		results = mergeWithSeeds(results, s.seeds(s.now()), options)
	}
	return results, nil
}

// Stats 返回符合过滤条件的任务统计信息。统计只覆盖持久化
// 记录，不包含示例任务。
func (s *Service) Stats(ctx context.Context, opts ...ListOption) (TaskStats, error) {
	if s.store == nil {
		return TaskStats{}, xerrors.New(xerrors.CodeInitializationFailure, "任务存储未初始化")
	}
	options := buildListOptions(opts)
	return s.store.Stats(ctx, options)
}

// WaitUntilTerminal 在 ctx 结束前轮询任务状态，直到任务进入终态。
func (s *Service) WaitUntilTerminal(ctx context.Context, id string, interval time.Duration) (*Task, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		task, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if task.Status.IsTerminal() {
			return task, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close 释放资源。
func (s *Service) Close() error {
	var firstErr error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			firstErr = err
		}
	}
	if closer, ok := s.producer.(io.Closer); ok {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
