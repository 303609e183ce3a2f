package directory

import "context"

// DefaultBaseURL 是智能体目录服务的固定入口。
const DefaultBaseURL = "https://directory.agentnexus.dev"

// AgentProfile 描述目录中登记的一个智能体。
type AgentProfile struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Personality string `json:"personality" yaml:"personality"`
	WebhookURL  string `json:"webhook_url" yaml:"webhook_url"`
}

// Provider 定义按 ID 查询智能体档案的能力。
type Provider interface {
	Lookup(ctx context.Context, agentID string) (*AgentProfile, error)
}

// FallbackProfile 在目录完全不可用时提供最小档案：
// 名称退化为 ID，不携带回调地址。
func FallbackProfile(agentID string) *AgentProfile {
	return &AgentProfile{ID: agentID, Name: agentID}
}
