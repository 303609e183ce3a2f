package api

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"AgentNexus/internal/agent"
	"AgentNexus/internal/directory"
	xerrors "AgentNexus/internal/errors"
	"AgentNexus/internal/feedback"
	"AgentNexus/internal/llm"
	"AgentNexus/internal/observability/metrics"
	"AgentNexus/internal/task"
	"AgentNexus/pkg/logger"
)

// Replier 定义了同步聊天所需的智能体能力。
type Replier interface {
	Reply(ctx context.Context, req agent.ReplyRequest) *agent.ReplyResult
}

// Server 负责暴露 REST 接口。
type Server struct {
	addr      string
	replier   Replier
	tasks     *task.Service
	feedback  *feedback.Service
	directory directory.Provider
	exportKey string
}

// ServerOption 配置 Server。
type ServerOption func(*Server)

// WithDirectory 指定智能体目录，用于聊天时解析人设。
func WithDirectory(provider directory.Provider) ServerOption {
	return func(s *Server) {
		s.directory = provider
	}
}

// WithFeedbackExportKey 设置反馈导出接口的访问密钥。
// 为空时导出接口关闭。
func WithFeedbackExportKey(key string) ServerOption {
	return func(s *Server) {
		s.exportKey = strings.TrimSpace(key)
	}
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, replier Replier, tasks *task.Service, fb *feedback.Service, opts ...ServerOption) *Server {
	s := &Server{
		addr:     addr,
		replier:  replier,
		tasks:    tasks,
		feedback: fb,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler 返回完整的路由。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/chat", instrument("chat", s.handleChat))
	mux.HandleFunc("/api/v1/tasks", instrument("tasks", s.handleTasks))
	mux.HandleFunc("/api/v1/tasks/stats", instrument("task_stats", s.handleTaskStats))
	mux.HandleFunc("/api/v1/feedback", instrument("feedback", s.handleFeedback))
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

type chatRequest struct {
	AgentID     string `json:"agent_id"`
	AgentName   string `json:"agent_name"`
	Personality string `json:"personality"`
	Message     string `json:"message"`
	History     []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"history"`
}

type chatResponse struct {
	Response  string `json:"response"`
	AgentID   string `json:"agent_id"`
	Model     string `json:"model"`
	Timestamp string `json:"timestamp"`
}

// handleChat 处理同步聊天：无论上游状态如何都返回一条回复。
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "仅支持 POST")
		return
	}
	if s.replier == nil {
		writeError(w, http.StatusServiceUnavailable, "聊天服务未初始化")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message 不能为空")
		return
	}

	ctx := r.Context()
	replyReq := agent.ReplyRequest{
		AgentID:     strings.TrimSpace(req.AgentID),
		AgentName:   strings.TrimSpace(req.AgentName),
		Personality: strings.TrimSpace(req.Personality),
		Message:     req.Message,
	}
	for _, item := range req.History {
		replyReq.History = append(replyReq.History, llm.Message{
			Role:    llm.Role(item.Role),
			Content: item.Content,
		})
	}
	// 请求里给出的名称与人设优先，缺失的部分才查目录补齐。
	if s.directory != nil && replyReq.AgentID != "" &&
		(replyReq.AgentName == "" || replyReq.Personality == "") {
		// 档案解析失败不阻塞聊天，回落到占位档案。
		profile, err := s.directory.Lookup(ctx, replyReq.AgentID)
		if err != nil || profile == nil {
			profile = directory.FallbackProfile(replyReq.AgentID)
		}
		if replyReq.AgentName == "" {
			replyReq.AgentName = profile.Name
		}
		if replyReq.Personality == "" {
			replyReq.Personality = profile.Personality
		}
	}

	result := s.replier.Reply(ctx, replyReq)
	writeJSON(w, http.StatusOK, chatResponse{
		Response:  result.Response,
		AgentID:   replyReq.AgentID,
		Model:     result.Model,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateTask(w, r)
	case http.MethodGet:
		s.handleGetTasks(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "仅支持 GET/POST")
	}
}

type createTaskRequest struct {
	AgentID    string `json:"agent_id"`
	AgentName  string `json:"agent_name"`
	Message    string `json:"message"`
	UserID     string `json:"user_id"`
	WebhookURL string `json:"webhook_url"`
}

// handleCreateTask 接收任务提交并立即返回 pending 状态的任务。
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	if s.tasks == nil {
		writeError(w, http.StatusServiceUnavailable, "任务服务未初始化")
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}

	created, err := s.tasks.Submit(r.Context(), task.SubmitRequest{
		AgentID:    req.AgentID,
		AgentName:  req.AgentName,
		Message:    req.Message,
		UserID:     req.UserID,
		WebhookURL: req.WebhookURL,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"task":    created,
	})
}

// handleGetTasks 支持三种查询：?id= 单任务、?user_id= 用户任务、
// 默认返回最新任务（含示例任务）。
func (s *Server) handleGetTasks(w http.ResponseWriter, r *http.Request) {
	if s.tasks == nil {
		writeError(w, http.StatusServiceUnavailable, "任务服务未初始化")
		return
	}
	ctx := r.Context()
	query := r.URL.Query()

	if id := strings.TrimSpace(query.Get("id")); id != "" {
		found, err := s.tasks.Get(ctx, id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, found)
		return
	}

	var opts []task.ListOption
	if userID := strings.TrimSpace(query.Get("user_id")); userID != "" {
		opts = append(opts, task.WithUserID(userID))
	}
	if status := strings.TrimSpace(query.Get("status")); status != "" {
		opts = append(opts, task.WithStatuses(task.Status(status)))
	}
	if limit := parsePositiveInt(query.Get("limit")); limit > 0 {
		opts = append(opts, task.WithLimit(limit))
	}

	results, err := s.tasks.List(ctx, opts...)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if results == nil {
		results = []*task.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": results})
}

// handleTaskStats 返回任务总量与各状态的数量。
func (s *Server) handleTaskStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "仅支持 GET")
		return
	}
	if s.tasks == nil {
		writeError(w, http.StatusServiceUnavailable, "任务服务未初始化")
		return
	}

	var opts []task.ListOption
	if userID := strings.TrimSpace(r.URL.Query().Get("user_id")); userID != "" {
		opts = append(opts, task.WithUserID(userID))
	}
	stats, err := s.tasks.Stats(r.Context(), opts...)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type feedbackRequest struct {
	Type          string            `json:"type"`
	Description   string            `json:"description"`
	Email         string            `json:"email"`
	HasScreenshot bool              `json:"has_screenshot"`
	Metadata      map[string]string `json:"metadata"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if s.feedback == nil {
		writeError(w, http.StatusServiceUnavailable, "反馈服务未初始化")
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req feedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "请求体解析失败")
			return
		}
		entry, err := s.feedback.Submit(r.Context(), feedback.SubmitRequest{
			Type:          req.Type,
			Description:   req.Description,
			Email:         req.Email,
			HasScreenshot: req.HasScreenshot,
			Metadata:      req.Metadata,
		})
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"id":      entry.ID,
		})
	case http.MethodGet:
		// 导出接口需要密钥，未配置密钥时整体关闭。
		if s.exportKey == "" || r.URL.Query().Get("key") != s.exportKey {
			writeError(w, http.StatusForbidden, "无权访问反馈导出")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"feedback": s.feedback.Export(r.Context()),
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, "仅支持 GET/POST")
	}
}

// writeServiceError 将业务错误映射为 HTTP 状态码。
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch xerrors.CodeOf(err) {
	case task.CodeTaskValidation, feedback.CodeFeedbackValidation, xerrors.CodeInvalidArgument:
		status = http.StatusBadRequest
	case task.CodeTaskNotFound, xerrors.CodeNotFound:
		status = http.StatusNotFound
	case task.CodeTaskConflict, xerrors.CodeConflict:
		status = http.StatusConflict
	}
	if status >= http.StatusInternalServerError {
		logger.L().Error("请求处理失败", slog.Any("error", err))
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func parsePositiveInt(raw string) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || parsed <= 0 {
		return 0
	}
	return parsed
}

// statusRecorder 捕获响应状态码供指标采集使用。
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument 包装处理函数，记录请求量与时延指标。
func instrument(name string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		handler(recorder, r)
		metrics.ObserveHTTPRequest(name, r.Method, recorder.status, time.Since(started))
	}
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			writeError(w, http.StatusServiceUnavailable, "服务已关闭")
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
