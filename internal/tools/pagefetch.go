package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	defaultFetchTimeout = 8 * time.Second
	defaultMaxBodyBytes = 100_000
	fetchUserAgent      = "AgentNexus-PageFetch/1.0"
)

// urlPattern 匹配消息中第一个形式良好的 http(s) 链接。
var urlPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)

// PageFetcher 从用户消息中发现链接并抓取其内容作为上下文。
// 所有失败路径都退化为说明性文本，绝不向调用方抛错。
type PageFetcher struct {
	httpClient *http.Client
	maxBody    int
}

// Option 定义可选配置。
type Option func(*PageFetcher)

// WithHTTPClient 替换底层 HTTP 客户端，主要用于测试。
func WithHTTPClient(client *http.Client) Option {
	return func(f *PageFetcher) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// WithMaxBodyBytes 限制注入上下文的正文长度。
func WithMaxBodyBytes(limit int) Option {
	return func(f *PageFetcher) {
		if limit > 0 {
			f.maxBody = limit
		}
	}
}

// NewPageFetcher 创建抓取工具。timeout 为单次抓取的硬超时。
func NewPageFetcher(timeout time.Duration, opts ...Option) *PageFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	f := &PageFetcher{
		httpClient: &http.Client{Timeout: timeout},
		maxBody:    defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Context 扫描消息中的链接并返回可直接拼接到出站消息的上下文块。
// 消息不含链接时返回空字符串。
func (f *PageFetcher) Context(ctx context.Context, message string) string {
	target := urlPattern.FindString(message)
	if target == "" {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return failureBlock(target, fmt.Sprintf("fetch error: %v", err))
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return failureBlock(target, fmt.Sprintf("fetch error: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failureBlock(target, fmt.Sprintf("fetch failed with status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(f.maxBody)))
	if err != nil {
		return failureBlock(target, fmt.Sprintf("fetch error while reading body: %v", err))
	}
	return contextBlock(target, string(body))
}

func contextBlock(url, content string) string {
	var builder strings.Builder
	builder.WriteString("\n\n--- PAGE CONTEXT (")
	builder.WriteString(url)
	builder.WriteString(") ---\n")
	builder.WriteString(content)
	builder.WriteString("\n--- END PAGE CONTEXT ---")
	return builder.String()
}

func failureBlock(url, reason string) string {
	return contextBlock(url, "[page unavailable] "+reason)
}
