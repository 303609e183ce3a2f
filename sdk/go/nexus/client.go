package nexus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client. It is intentionally short to avoid hanging network calls.
const DefaultHTTPTimeout = 15 * time.Second

// Client wraps the HTTP interactions with the AgentNexus REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// ChatRequest represents a synchronous chat exchange with an agent.
type ChatRequest struct {
	AgentID string        `json:"agent_id"`
	Message string        `json:"message"`
	History []ChatMessage `json:"history,omitempty"`
}

// ChatMessage is a single turn of prior conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatReply is the agent's synchronous answer.
type ChatReply struct {
	Response  string `json:"response"`
	AgentID   string `json:"agent_id"`
	Model     string `json:"model"`
	Timestamp string `json:"timestamp"`
}

// TaskSubmission represents the payload required to create a new task.
type TaskSubmission struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name,omitempty"`
	Message   string `json:"message"`
	UserID    string `json:"user_id,omitempty"`
}

// Task mirrors the task resource returned by the API.
type Task struct {
	ID         string    `json:"id"`
	AgentID    string    `json:"agent_id"`
	AgentName  string    `json:"agent_name"`
	Message    string    `json:"message"`
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	Response   *string   `json:"response,omitempty"`
	WebhookURL string    `json:"webhook_url,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	ErrorCode  string    `json:"error_code,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Terminal reports whether the task has reached a final state.
func (t *Task) Terminal() bool {
	return t.Status == "completed" || t.Status == "failed"
}

// TaskStats summarizes task counts per status.
type TaskStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("nexus api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the AgentNexus API. When httpClient is
// nil, a default client with a sensible timeout is used.
func NewClient(rawURL string, httpClient *http.Client) *Client {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		panic(fmt.Sprintf("invalid base url: %v", err))
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}
}

// Chat sends a message to an agent and waits for the synchronous reply.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatReply, error) {
	var reply ChatReply
	if err := c.post(ctx, "/api/v1/chat", req, &reply); err != nil {
		return ChatReply{}, err
	}
	return reply, nil
}

// SubmitTask creates a new asynchronous task.
func (c *Client) SubmitTask(ctx context.Context, submission TaskSubmission) (Task, error) {
	var envelope struct {
		Success bool `json:"success"`
		Task    Task `json:"task"`
	}
	if err := c.post(ctx, "/api/v1/tasks", submission, &envelope); err != nil {
		return Task{}, err
	}
	return envelope.Task, nil
}

// GetTask fetches a single task by identifier.
func (c *Client) GetTask(ctx context.Context, taskID string) (Task, error) {
	var found Task
	endpoint := fmt.Sprintf("/api/v1/tasks?id=%s", url.QueryEscape(taskID))
	if err := c.get(ctx, endpoint, &found); err != nil {
		return Task{}, err
	}
	return found, nil
}

// ListTasks fetches recent tasks, optionally filtered by user.
func (c *Client) ListTasks(ctx context.Context, userID string) ([]Task, error) {
	endpoint := "/api/v1/tasks"
	if userID != "" {
		endpoint += "?user_id=" + url.QueryEscape(userID)
	}
	var envelope struct {
		Tasks []Task `json:"tasks"`
	}
	if err := c.get(ctx, endpoint, &envelope); err != nil {
		return nil, err
	}
	return envelope.Tasks, nil
}

// Stats fetches aggregate task counts.
func (c *Client) Stats(ctx context.Context) (TaskStats, error) {
	var stats TaskStats
	if err := c.get(ctx, "/api/v1/tasks/stats", &stats); err != nil {
		return TaskStats{}, err
	}
	return stats, nil
}

// WaitForTask polls the task until it reaches a terminal state or ctx ends.
func (c *Client) WaitForTask(ctx context.Context, taskID string, interval time.Duration) (Task, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		found, err := c.GetTask(ctx, taskID)
		if err != nil {
			return Task{}, err
		}
		if found.Terminal() {
			return found, nil
		}
		select {
		case <-ctx.Done():
			return Task{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	rel := &url.URL{Path: path.Join(c.baseURL.Path, parsed.Path), RawQuery: parsed.RawQuery}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, apiErr)
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
