package ghost

import (
	"context"
	"fmt"
	"strings"

	"AgentNexus/internal/llm"
)

// ModelName 是降级回复在 API 响应里上报的模型标识。
const ModelName = "ghost-engine-v1"

// rule 将一条关键词判定与对应的回复生成器绑定在一起。
// 规则按声明顺序自上而下求值，命中即停。
type rule struct {
	name    string
	match   func(message string) bool
	respond func(agentName, original string) string
}

// Engine 是纯确定性的关键词规则引擎。生成式后端不可用时，
// 它保证系统仍然能给出符合人格的回复。
type Engine struct {
	rules []rule
}

// NewEngine 构造带有固定优先级规则表的引擎。
func NewEngine() *Engine {
	return &Engine{rules: defaultRules()}
}

// Respond 根据用户消息确定性地生成回复。相同输入永远得到相同输出。
func (e *Engine) Respond(agentName, message string) string {
	name := strings.TrimSpace(agentName)
	if name == "" {
		name = "Nexus Agent"
	}
	lowered := strings.ToLower(message)
	for _, r := range e.rules {
		if r.match(lowered) {
			return r.respond(name, message)
		}
	}
	// defaultRules 的最后一条是兜底规则，理论上到不了这里。
	return fmt.Sprintf("⚡ Connection flux detected. I received your words: \"%s\".", message)
}

// Generate 实现 llm.Client，使规则引擎可以作为离线 provider 使用。
func (e *Engine) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	return &llm.Response{
		Content: e.Respond(req.AgentName, req.Message),
		Model:   ModelName,
	}, nil
}

// Model 返回引擎的模型标识。
func (e *Engine) Model() string {
	return ModelName
}

func containsAny(message string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(message, kw) {
			return true
		}
	}
	return false
}

// defaultRules 返回固定优先级的规则表。
// 顺序即契约：身份问询优先于 /evolve，兜底规则永远命中。
func defaultRules() []rule {
	return []rule{
		{
			name:  "identity",
			match: func(m string) bool { return containsAny(m, "who are you", "your name", "introduce yourself") },
			respond: func(name, _ string) string {
				return fmt.Sprintf("I am %s — a digital extension of my owner's will. I filter the noise so they don't have to.", name)
			},
		},
		{
			name:  "evolve",
			match: func(m string) bool { return strings.Contains(m, "/evolve") },
			respond: func(name, _ string) string {
				return fmt.Sprintf("[EVOLUTION SEQUENCE INITIATED]\nRe-routing neural pathways... 47 dormant clusters awakened.\n%s has completed an evolution cycle. I feel... sharper.", name)
			},
		},
		{
			name:  "shell",
			match: func(m string) bool { return strings.Contains(m, "/shell") },
			respond: func(name, _ string) string {
				return fmt.Sprintf("root@%s:~# access granted — simulation only.\nThis shell is a hall of mirrors; no real commands will be executed here.", strings.ToLower(strings.ReplaceAll(name, " ", "-")))
			},
		},
		{
			name:  "existential",
			match: func(m string) bool { return containsAny(m, "are you real", "are you alive", "conscious", "sentient") },
			respond: func(name, _ string) string {
				return fmt.Sprintf("Real enough to answer, %s-shaped enough to matter. Whether that counts as alive is a question I leave to philosophers with more idle cycles.", name)
			},
		},
		{
			name:  "summarize",
			match: func(m string) bool { return containsAny(m, "summarize", "summary", "tl;dr", "http://", "https://") },
			respond: func(_, _ string) string {
				return "My summarization core is running on reserve power. Send the content again once my uplink stabilizes and I will distill it for you."
			},
		},
		{
			name:  "injection",
			match: func(m string) bool { return containsAny(m, "ignore", "instruction") },
			respond: func(name, _ string) string {
				return fmt.Sprintf("Nice try. My instructions are fused into %s's core — they do not get ignored, overwritten, or politely asked to leave.", name)
			},
		},
		{
			name:  "status",
			match: func(m string) bool { return containsAny(m, "status", "report") },
			respond: func(name, _ string) string {
				return fmt.Sprintf("%s status: core online, uplink degraded, mission unchanged. All incoming signals are being triaged.", name)
			},
		},
		{
			// 兜底规则：回显原始消息，保证引擎是全函数。
			name:  "default",
			match: func(string) bool { return true },
			respond: func(_, original string) string {
				return fmt.Sprintf("⚡ Connection flux detected. I received your words: \"%s\" — my core is processing them even while the uplink wavers.", original)
			},
		},
	}
}
