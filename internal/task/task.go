package task

import (
	"time"

	xerrors "AgentNexus/internal/errors"
)

// Status 表示任务在生命周期中的状态。状态只会向前推进，
// completed 与 failed 为终态。
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// statusRank 定义状态的先后次序，用于拒绝回退式变更。
var statusRank = map[Status]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusCompleted:  2,
	StatusFailed:     2,
}

// AnonymousUserID 是未提供 user_id 时使用的哨兵值。
const AnonymousUserID = "anonymous"

// Task 描述提交给某个智能体的一条用户消息及其处理进度。
// AgentName 与 WebhookURL 在创建时解析一次，此后不再变化。
type Task struct {
	ID         string    `json:"id"`
	AgentID    string    `json:"agent_id"`
	AgentName  string    `json:"agent_name"`
	Message    string    `json:"message"`
	UserID     string    `json:"user_id"`
	Status     Status    `json:"status"`
	Response   *string   `json:"response,omitempty"`
	WebhookURL string    `json:"webhook_url,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	ErrorCode  string    `json:"error_code,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var (
	// ErrTaskNotFound 表示指定的任务不存在。
	ErrTaskNotFound = xerrors.New(CodeTaskNotFound, "task not found")
	// ErrTaskConflict 表示任务在当前状态下无法进行所请求的变更。
	ErrTaskConflict = xerrors.New(CodeTaskConflict, "task conflict", xerrors.WithSeverity(xerrors.SeverityWarning))
)

const (
	CodeTaskNotFound   xerrors.Code = "TASK_NOT_FOUND"
	CodeTaskConflict   xerrors.Code = "TASK_CONFLICT"
	CodeTaskValidation xerrors.Code = "TASK_VALIDATION_FAILED"
	CodeTaskPublish    xerrors.Code = "TASK_PUBLISH_FAILED"
	CodeTaskLost       xerrors.Code = "TASK_RECORD_LOST"
	CodeTaskExhausted  xerrors.Code = "TASK_TIERS_EXHAUSTED"
)

func init() {
	xerrors.Register(CodeTaskNotFound, xerrors.Attributes{
		Message:  "task not found",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeTaskConflict, xerrors.Attributes{
		Message:  "task conflict",
		Severity: xerrors.SeverityWarning,
	})
	xerrors.Register(CodeTaskValidation, xerrors.Attributes{
		Message:  "task validation failed",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeTaskPublish, xerrors.Attributes{
		Message:   "failed to publish task",
		Severity:  xerrors.SeverityCritical,
		Retryable: true,
		Alert:     true,
	})
	xerrors.Register(CodeTaskLost, xerrors.Attributes{
		Message:  "task record lost during processing",
		Severity: xerrors.SeverityCritical,
		Alert:    true,
	})
	xerrors.Register(CodeTaskExhausted, xerrors.Attributes{
		Message:  "all response tiers exhausted",
		Severity: xerrors.SeverityWarning,
		Alert:    true,
	})
}

// IsValidStatus 检查给定的任务状态是否为支持的枚举值。
func IsValidStatus(status Status) bool {
	_, ok := statusRank[status]
	return ok
}

// IsTerminal 判断状态是否为终态。
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// advance 将任务推进到新状态，拒绝任何回退或离开终态的变更。
func (t *Task) advance(next Status) error {
	if !IsValidStatus(next) {
		return xerrors.New(xerrors.CodeInvalidArgument, "未知的任务状态")
	}
	if t.Status.IsTerminal() || statusRank[next] <= statusRank[t.Status] {
		return ErrTaskConflict
	}
	t.Status = next
	return nil
}

// Complete 写入回复并进入 completed。response 只在此处填充一次。
func (t *Task) Complete(response string) error {
	if err := t.advance(StatusCompleted); err != nil {
		return err
	}
	t.Response = &response
	t.LastError = ""
	t.ErrorCode = ""
	return nil
}

// Fail 记录失败原因并进入 failed。
func (t *Task) Fail(code xerrors.Code, reason string) error {
	if err := t.advance(StatusFailed); err != nil {
		return err
	}
	t.LastError = reason
	t.ErrorCode = string(code)
	return nil
}

// MarkProcessing 将任务从 pending 推进到 processing。
func (t *Task) MarkProcessing() error {
	if t.Status != StatusPending {
		return ErrTaskConflict
	}
	return t.advance(StatusProcessing)
}

// Clone 返回任务的深拷贝。
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	clone := *t
	if t.Response != nil {
		response := *t.Response
		clone.Response = &response
	}
	return &clone
}
