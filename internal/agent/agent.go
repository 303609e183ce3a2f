package agent

import (
	"context"
	"log/slog"
	"time"

	"AgentNexus/internal/llm"
	"AgentNexus/internal/llm/ghost"
	"AgentNexus/internal/persona"
	"AgentNexus/internal/tools"
	"AgentNexus/pkg/logger"
)

// ReplyRequest 描述一次生成式回复所需的上下文。
type ReplyRequest struct {
	AgentID     string        `json:"agent_id"`
	AgentName   string        `json:"agent_name"`
	Personality string        `json:"personality"`
	Message     string        `json:"message"`
	History     []llm.Message `json:"history,omitempty"`
}

// ReplyResult 是回复管线的输出。
type ReplyResult struct {
	Response string `json:"response"`
	Model    string `json:"model"`
	// Fallback 表示本次回复来自本地规则引擎而非远端后端。
	Fallback bool `json:"fallback"`
}

// Agent 将人格指令、网页抓取与生成式后端组合成回复管线。
// 远端后端的任何失败都会降级到确定性规则引擎，
// 因此 Reply 永远返回一段符合人格的文本。
type Agent struct {
	llmClient  llm.Client
	fetcher    *tools.PageFetcher
	fallback   *ghost.Engine
	llmTimeout time.Duration
	maxTokens  int
}

// Option 定义可选的 Agent 配置。
type Option func(*Agent)

// WithLLMTimeout 设置调用生成式后端的超时时间。
func WithLLMTimeout(timeout time.Duration) Option {
	return func(a *Agent) {
		if timeout > 0 {
			a.llmTimeout = timeout
		}
	}
}

// WithMaxTokens 限制后端的生成长度。
func WithMaxTokens(limit int) Option {
	return func(a *Agent) {
		if limit > 0 {
			a.maxTokens = limit
		}
	}
}

// WithPageFetcher 替换网页抓取工具，主要用于测试。
func WithPageFetcher(fetcher *tools.PageFetcher) Option {
	return func(a *Agent) {
		if fetcher != nil {
			a.fetcher = fetcher
		}
	}
}

// New 创建一个 Agent。
func New(llmClient llm.Client, opts ...Option) *Agent {
	ag := &Agent{
		llmClient:  llmClient,
		fetcher:    tools.NewPageFetcher(0),
		fallback:   ghost.NewEngine(),
		llmTimeout: 30 * time.Second,
		maxTokens:  500,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ag)
		}
	}
	return ag
}

// Reply 生成一段回复。该方法不向调用方返回错误：
// 后端失败时落入规则引擎，规则引擎是全函数。
func (a *Agent) Reply(ctx context.Context, req ReplyRequest) *ReplyResult {
	system := persona.BuildSystemPrompt(req.AgentName, req.Personality)
	ack := persona.BuildAcknowledgment(req.AgentName)

	outbound := req.Message
	if a.fetcher != nil {
		outbound += a.fetcher.Context(ctx, req.Message)
	}

	if a.llmClient != nil {
		llmCtx := ctx
		if a.llmTimeout > 0 {
			var cancel context.CancelFunc
			llmCtx, cancel = context.WithTimeout(ctx, a.llmTimeout)
			defer cancel()
		}
		resp, err := a.llmClient.Generate(llmCtx, llm.Request{
			AgentName:      req.AgentName,
			System:         system,
			Acknowledgment: ack,
			History:        req.History,
			Message:        outbound,
			MaxTokens:      a.maxTokens,
		})
		if err == nil && resp != nil && resp.Content != "" {
			return &ReplyResult{Response: resp.Content, Model: resp.Model}
		}
		if err != nil {
			logger.L().Warn("生成式后端调用失败，降级到规则引擎",
				slog.Any("error", err),
				slog.String("agent_id", req.AgentID),
			)
		}
	}

	return &ReplyResult{
		Response: a.fallback.Respond(req.AgentName, req.Message),
		Model:    ghost.ModelName,
		Fallback: true,
	}
}
