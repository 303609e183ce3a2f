package nexus

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestChatSendsPayloadAndDecodesReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/chat" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode chat request: %v", err)
		}
		if req.AgentID != "atlas-researcher" || req.Message != "summarize this" {
			t.Fatalf("unexpected payload: %+v", req)
		}
		if len(req.History) != 1 || req.History[0].Role != "user" {
			t.Fatalf("history not forwarded: %+v", req.History)
		}
		_ = json.NewEncoder(w).Encode(ChatReply{
			Response: "done",
			AgentID:  req.AgentID,
			Model:    "ghost-engine-v1",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	reply, err := client.Chat(context.Background(), ChatRequest{
		AgentID: "atlas-researcher",
		Message: "summarize this",
		History: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply.Response != "done" || reply.Model != "ghost-engine-v1" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestSubmitTaskUnwrapsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/tasks" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"task":{"id":"task-1","agent_id":"scribe-writer","status":"pending"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	created, err := client.SubmitTask(context.Background(), TaskSubmission{
		AgentID: "scribe-writer",
		Message: "draft the digest",
	})
	if err != nil {
		t.Fatalf("submit task: %v", err)
	}
	if created.ID != "task-1" || created.Status != "pending" {
		t.Fatalf("unexpected task: %+v", created)
	}
}

func TestGetTaskUsesIDQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/tasks" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("id"); got != "task 42" {
			t.Fatalf("id query = %q, want %q", got, "task 42")
		}
		_, _ = w.Write([]byte(`{"id":"task 42","status":"completed"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	found, err := client.GetTask(context.Background(), "task 42")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if !found.Terminal() {
		t.Fatalf("completed task should be terminal: %+v", found)
	}
}

func TestListTasksFiltersByUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("user_id"); got != "demo" {
			t.Fatalf("user_id query = %q", got)
		}
		_, _ = w.Write([]byte(`{"tasks":[{"id":"a"},{"id":"b"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	tasks, err := client.ListTasks(context.Background(), "demo")
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"message is required"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	_, err := client.Chat(context.Background(), ChatRequest{AgentID: "x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "message is required" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestWaitForTaskPollsUntilTerminal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status := "processing"
		if calls.Add(1) >= 3 {
			status = "completed"
		}
		_ = json.NewEncoder(w).Encode(Task{ID: "task-wait", Status: status})
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := NewClient(srv.URL, nil)
	done, err := client.WaitForTask(ctx, "task-wait", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("wait for task: %v", err)
	}
	if done.Status != "completed" {
		t.Fatalf("expected completed task, got %+v", done)
	}
	if calls.Load() < 3 {
		t.Fatalf("expected at least 3 polls, got %d", calls.Load())
	}
}

func TestBaseURLWithPathPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/nexus/api/v1/tasks/stats" {
			t.Fatalf("prefix not preserved: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"total":4,"completed":2}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/nexus", nil)
	stats, err := client.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 4 || stats.Completed != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
