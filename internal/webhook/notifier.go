package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	xerrors "AgentNexus/internal/errors"
)

const defaultTimeout = 10 * time.Second

// Envelope 是投递给回调地址的 JSON 负载。
// 字段名是对外契约，保持 camelCase。
type Envelope struct {
	TaskID    string `json:"taskId"`
	Message   string `json:"message"`
	UserID    string `json:"userId"`
	Timestamp string `json:"timestamp"`
}

// Notifier 以尽力而为的方式调用智能体声明的回调地址。
// 总等待时间有硬上限，超时通过 context 显式取消。
type Notifier struct {
	httpClient *http.Client
	timeout    time.Duration
}

// Option 定义可选配置。
type Option func(*Notifier)

// WithHTTPClient 替换底层 HTTP 客户端，主要用于测试。
func WithHTTPClient(client *http.Client) Option {
	return func(n *Notifier) {
		if client != nil {
			n.httpClient = client
		}
	}
}

// NewNotifier 创建回调通知器。timeout <= 0 时使用默认的 10 秒。
func NewNotifier(timeout time.Duration, opts ...Option) *Notifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	n := &Notifier{
		httpClient: &http.Client{},
		timeout:    timeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

// Notify 向回调地址 POST 任务负载。
// 2xx 时按 response → message → 原始 JSON 的顺序提取回复文本；
// 其余情况返回错误，由调用方记录并落入下一级降级。
func (n *Notifier) Notify(ctx context.Context, url string, envelope Envelope) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", xerrors.New(xerrors.CodeInvalidArgument, "回调地址为空")
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "序列化回调负载失败")
	}

	callCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "构建回调请求失败")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return "", xerrors.Wrap(xerrors.CodeTimeout, err, "回调超时")
		}
		return "", xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "请求回调地址失败")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", xerrors.New(xerrors.CodeUpstreamFailure,
			fmt.Sprintf("回调返回状态 %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "读取回调响应失败")
	}
	return extractReply(body), nil
}

// extractReply 在回调响应里依次寻找 response、message 字段，
// 都没有时退回原始 JSON 文本。
func extractReply(body []byte) string {
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return strings.TrimSpace(string(body))
	}
	if value, ok := decoded["response"].(string); ok && value != "" {
		return value
	}
	if value, ok := decoded["message"].(string); ok && value != "" {
		return value
	}
	return strings.TrimSpace(string(body))
}
