package llm

import "context"

// Role 表示对话中的一方。后端只识别 user/assistant 两种对话角色。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 是一段对话记录。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request 描述发送给生成式后端的完整上下文。
type Request struct {
	// AgentName 用于降级引擎在失去后端时保持人格。
	AgentName string
	// System 是人格系统指令。
	System string
	// Acknowledgment 是确立身份的预置助手回合。
	Acknowledgment string
	// History 为按时间排序的既往对话。
	History []Message
	// Message 是当前用户输入，调用方可能已经附加了网页上下文。
	Message string
	// MaxTokens 限制生成长度，0 表示使用后端默认值。
	MaxTokens int
}

// Response 是后端生成的回复。
type Response struct {
	Content string
	Model   string
}

// Client 定义了调用生成式后端的统一接口。
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}
