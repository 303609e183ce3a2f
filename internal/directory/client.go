package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	xerrors "AgentNexus/internal/errors"
)

const defaultLookupTimeout = 5 * time.Second

// Client 通过 HTTP 查询外部目录服务，失败时退回静态目录。
type Client struct {
	baseURL    string
	httpClient *http.Client
	fallback   Provider
}

// ClientOption 定义可选配置。
type ClientOption func(*Client)

// WithFallback 指定目录服务不可用时的后备数据源。
func WithFallback(provider Provider) ClientOption {
	return func(c *Client) {
		c.fallback = provider
	}
}

// WithHTTPClient 替换底层 HTTP 客户端，主要用于测试。
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient 创建目录客户端。baseURL 为空时使用固定入口。
func NewClient(baseURL string, opts ...ClientOption) *Client {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	c := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultLookupTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Lookup 查询指定智能体的档案。远端失败时依次尝试静态目录，
// 两者都取不到才返回错误，调用方通常用 FallbackProfile 兜底。
func (c *Client) Lookup(ctx context.Context, agentID string) (*AgentProfile, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "agent id 不能为空")
	}

	profile, err := c.lookupRemote(ctx, agentID)
	if err == nil {
		return profile, nil
	}
	if c.fallback != nil {
		if profile, fallbackErr := c.fallback.Lookup(ctx, agentID); fallbackErr == nil {
			return profile, nil
		}
	}
	return nil, err
}

func (c *Client) lookupRemote(ctx context.Context, agentID string) (*AgentProfile, error) {
	endpoint := fmt.Sprintf("%s/api/agents/%s", c.baseURL, agentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "构建目录请求失败")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "请求目录服务失败")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, xerrors.New(xerrors.CodeNotFound, fmt.Sprintf("目录中不存在智能体 %s", agentID))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, xerrors.New(xerrors.CodeUpstreamFailure,
			fmt.Sprintf("目录服务返回状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var profile AgentProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "解析目录响应失败")
	}
	if profile.ID == "" {
		profile.ID = agentID
	}
	return &profile, nil
}
