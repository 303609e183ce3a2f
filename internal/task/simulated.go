package task

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// SimulatedResponder 是应答链的兜底层级：基于关键词规则
// 生成确认式回复，保证每个任务最终都有响应。
type SimulatedResponder struct {
	agentName string

	mu   sync.Mutex
	rng  *rand.Rand
	pick func(n int) int
}

// SimulatedOption 配置 SimulatedResponder。
type SimulatedOption func(*SimulatedResponder)

// WithPick 注入通用回复的选取函数，测试时用于去掉随机性。
func WithPick(pick func(n int) int) SimulatedOption {
	return func(r *SimulatedResponder) {
		r.pick = pick
	}
}

// NewSimulatedResponder 创建模拟应答层。agentName 为空时使用通用称谓。
func NewSimulatedResponder(agentName string, opts ...SimulatedOption) *SimulatedResponder {
	name := strings.TrimSpace(agentName)
	responder := &SimulatedResponder{
		agentName: name,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(responder)
	}
	return responder
}

func (r *SimulatedResponder) Name() string { return "simulated" }

// Attempt 根据任务内容中的关键词给出回复，永不失败。
func (r *SimulatedResponder) Attempt(_ context.Context, t *Task) (string, error) {
	name := r.agentName
	if name == "" {
		name = t.AgentName
	}
	if name == "" {
		name = "your agent"
	}
	message := strings.ToLower(t.Message)

	switch {
	case containsAny(message, "schedule", "meeting", "calendar", "appointment"):
		return fmt.Sprintf("%s has checked the calendar and blocked a slot for this. You will receive a confirmation shortly.", name), nil
	case containsAny(message, "email", "mail", "inbox"):
		return fmt.Sprintf("%s has drafted the email and placed it in your outbox for review.", name), nil
	case containsAny(message, "who are you", "your name", "introduce"):
		return fmt.Sprintf("I am %s, handling this task on your behalf.", name), nil
	}

	generic := []string{
		fmt.Sprintf("%s has received the task and started working on it.", name),
		fmt.Sprintf("Task acknowledged. %s will report back with results soon.", name),
		fmt.Sprintf("%s is on it. Expect an update once the work completes.", name),
	}
	return generic[r.choose(len(generic))], nil
}

func (r *SimulatedResponder) choose(n int) int {
	if r.pick != nil {
		idx := r.pick(n)
		if idx < 0 || idx >= n {
			return 0
		}
		return idx
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

func containsAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
