package task

import (
	"context"
	"strings"
	"time"

	"AgentNexus/internal/agent"
	"AgentNexus/internal/directory"
	"AgentNexus/internal/webhook"
)

// Responder 是任务应答链中的一个层级。Attempt 返回空字符串
// 且无错误时表示该层放弃，由下一层接手。
type Responder interface {
	Name() string
	Attempt(ctx context.Context, t *Task) (string, error)
}

// Replier 抽象出生成式应答能力，便于测试替换。
type Replier interface {
	Reply(ctx context.Context, req agent.ReplyRequest) *agent.ReplyResult
}

// GenerativeResponder 调用智能体生成回复，是应答链的首选层级。
type GenerativeResponder struct {
	replier   Replier
	directory directory.Provider
}

// GenerativeOption 配置 GenerativeResponder。
type GenerativeOption func(*GenerativeResponder)

// WithResponderDirectory 让生成层在处理时重新解析智能体档案，
// 以获得任务记录里没有保存的人设描述。
func WithResponderDirectory(provider directory.Provider) GenerativeOption {
	return func(r *GenerativeResponder) {
		r.directory = provider
	}
}

// NewGenerativeResponder 创建生成式应答层。
func NewGenerativeResponder(replier Replier, opts ...GenerativeOption) *GenerativeResponder {
	responder := &GenerativeResponder{replier: replier}
	for _, opt := range opts {
		opt(responder)
	}
	return responder
}

func (r *GenerativeResponder) Name() string { return "generative" }

// Attempt 调用智能体生成回复。智能体内部已经处理了降级，
// 因此这里只需要透传结果。
func (r *GenerativeResponder) Attempt(ctx context.Context, t *Task) (string, error) {
	if r.replier == nil {
		return "", nil
	}
	req := agent.ReplyRequest{
		AgentID:   t.AgentID,
		AgentName: t.AgentName,
		Message:   t.Message,
	}
	if r.directory != nil {
		if profile, err := r.directory.Lookup(ctx, t.AgentID); err == nil && profile != nil {
			if profile.Name != "" {
				req.AgentName = profile.Name
			}
			req.Personality = profile.Personality
		}
	}
	result := r.replier.Reply(ctx, req)
	if result == nil {
		return "", nil
	}
	return strings.TrimSpace(result.Response), nil
}

// WebhookNotifier 抽象出回调通知能力，便于测试替换。
type WebhookNotifier interface {
	Notify(ctx context.Context, url string, envelope webhook.Envelope) (string, error)
}

// WebhookResponder 将任务转发给智能体登记的回调地址，
// 把回调返回的内容作为任务回复。
type WebhookResponder struct {
	notifier WebhookNotifier
	now      func() time.Time
}

// NewWebhookResponder 创建回调应答层。
func NewWebhookResponder(notifier WebhookNotifier) *WebhookResponder {
	return &WebhookResponder{notifier: notifier, now: time.Now}
}

func (r *WebhookResponder) Name() string { return "webhook" }

// Attempt 向任务登记的 webhook 发起通知。没有回调地址时直接放弃。
func (r *WebhookResponder) Attempt(ctx context.Context, t *Task) (string, error) {
	if r.notifier == nil || strings.TrimSpace(t.WebhookURL) == "" {
		return "", nil
	}
	reply, err := r.notifier.Notify(ctx, t.WebhookURL, webhook.Envelope{
		TaskID:    t.ID,
		Message:   t.Message,
		UserID:    t.UserID,
		Timestamp: r.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}
