package feedback

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	xerrors "AgentNexus/internal/errors"
)

// Type 表示反馈分类。
type Type string

// 支持的反馈分类
const (
	TypeBug        Type = "bug"
	TypeSuggestion Type = "suggestion"
	TypeOther      Type = "other"
)

// 错误码
const (
	CodeFeedbackValidation xerrors.Code = "FEEDBACK_VALIDATION_FAILED"
)

func init() {
	xerrors.Register(CodeFeedbackValidation, xerrors.Attributes{
		Message:  "feedback validation failed",
		Severity: xerrors.SeverityInfo,
	})
}

// Feedback 表示一条用户反馈。截图只记录有无，不保存内容。
type Feedback struct {
	ID            string            `json:"id"`
	Type          Type              `json:"type"`
	Description   string            `json:"description"`
	Email         string            `json:"email,omitempty"`
	HasScreenshot bool              `json:"has_screenshot"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// SubmitRequest 描述一次反馈提交。
type SubmitRequest struct {
	Type          string
	Description   string
	Email         string
	HasScreenshot bool
	Metadata      map[string]string
}

// Service 管理反馈的提交与导出。存储为进程内内存，
// 重启即清空，导出是唯一的取回途径。
type Service struct {
	mu      sync.RWMutex
	entries []*Feedback
	now     func() time.Time
}

// NewService 创建反馈服务。
func NewService() *Service {
	return &Service{now: time.Now}
}

// Submit 校验并记录一条反馈。
func (s *Service) Submit(_ context.Context, req SubmitRequest) (*Feedback, error) {
	feedbackType, err := parseType(req.Type)
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, xerrors.New(CodeFeedbackValidation, "反馈内容不能为空")
	}

	entry := &Feedback{
		ID:            uuid.NewString(),
		Type:          feedbackType,
		Description:   description,
		Email:         strings.TrimSpace(req.Email),
		HasScreenshot: req.HasScreenshot,
		Metadata:      cloneMetadata(req.Metadata),
		CreatedAt:     s.now().UTC(),
	}

	s.mu.Lock()
	s.entries = append([]*Feedback{entry}, s.entries...)
	s.mu.Unlock()

	return entry.clone(), nil
}

// Export 返回全部反馈，最新在前。邮箱做脱敏处理。
func (s *Service) Export(_ context.Context) []*Feedback {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*Feedback, 0, len(s.entries))
	for _, entry := range s.entries {
		redacted := entry.clone()
		redacted.Email = RedactEmail(redacted.Email)
		results = append(results, redacted)
	}
	return results
}

// Count 返回已记录的反馈数量。
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func parseType(raw string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeBug:
		return TypeBug, nil
	case TypeSuggestion:
		return TypeSuggestion, nil
	case TypeOther, "":
		return TypeOther, nil
	default:
		return "", xerrors.New(CodeFeedbackValidation, "未知的反馈分类")
	}
}

// RedactEmail 保留邮箱首字符与域名，其余用星号代替。
func RedactEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	local, domain := email[:at], email[at:]
	return local[:1] + "***" + domain
}

func cloneMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (f *Feedback) clone() *Feedback {
	copied := *f
	copied.Metadata = cloneMetadata(f.Metadata)
	return &copied
}
