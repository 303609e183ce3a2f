package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"AgentNexus/internal/agent"
	"AgentNexus/internal/directory"
	"AgentNexus/internal/webhook"
)

type stubReplier struct {
	lastRequest agent.ReplyRequest
	result      *agent.ReplyResult
}

func (r *stubReplier) Reply(_ context.Context, req agent.ReplyRequest) *agent.ReplyResult {
	r.lastRequest = req
	return r.result
}

func TestGenerativeResponderReturnsReply(t *testing.T) {
	replier := &stubReplier{result: &agent.ReplyResult{Response: "  generated  "}}
	responder := NewGenerativeResponder(replier)

	reply, err := responder.Attempt(context.Background(), newPendingTask("t1", "u1"))
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if reply != "generated" {
		t.Fatalf("reply should be trimmed, got %q", reply)
	}
}

func TestGenerativeResponderResolvesPersonality(t *testing.T) {
	replier := &stubReplier{result: &agent.ReplyResult{Response: "ok"}}
	responder := NewGenerativeResponder(replier, WithResponderDirectory(&stubDirectory{
		profile: &directory.AgentProfile{ID: "atlas", Name: "Atlas Researcher", Personality: "methodical"},
	}))

	if _, err := responder.Attempt(context.Background(), newPendingTask("t1", "u1")); err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if replier.lastRequest.AgentName != "Atlas Researcher" {
		t.Fatalf("agent name should be refreshed from the directory, got %q", replier.lastRequest.AgentName)
	}
	if replier.lastRequest.Personality != "methodical" {
		t.Fatalf("personality should come from the directory, got %q", replier.lastRequest.Personality)
	}
}

func TestGenerativeResponderWithoutReplier(t *testing.T) {
	responder := NewGenerativeResponder(nil)
	reply, err := responder.Attempt(context.Background(), newPendingTask("t1", "u1"))
	if err != nil || reply != "" {
		t.Fatalf("nil replier should yield empty reply, got %q %v", reply, err)
	}
}

type stubNotifier struct {
	lastURL      string
	lastEnvelope webhook.Envelope
	reply        string
	err          error
}

func (n *stubNotifier) Notify(_ context.Context, url string, envelope webhook.Envelope) (string, error) {
	n.lastURL = url
	n.lastEnvelope = envelope
	return n.reply, n.err
}

func TestWebhookResponderSkipsWithoutURL(t *testing.T) {
	notifier := &stubNotifier{reply: "should not be used"}
	responder := NewWebhookResponder(notifier)

	reply, err := responder.Attempt(context.Background(), newPendingTask("t1", "u1"))
	if err != nil || reply != "" {
		t.Fatalf("missing webhook url should skip the tier, got %q %v", reply, err)
	}
	if notifier.lastURL != "" {
		t.Fatalf("notifier must not be called without a URL")
	}
}

func TestWebhookResponderBuildsEnvelope(t *testing.T) {
	notifier := &stubNotifier{reply: "hook reply"}
	responder := NewWebhookResponder(notifier)

	pending := newPendingTask("t1", "alice")
	pending.WebhookURL = "https://hooks.example.com/atlas"

	reply, err := responder.Attempt(context.Background(), pending)
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if reply != "hook reply" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if notifier.lastURL != pending.WebhookURL {
		t.Fatalf("unexpected url: %q", notifier.lastURL)
	}
	env := notifier.lastEnvelope
	if env.TaskID != "t1" || env.UserID != "alice" || env.Message != pending.Message {
		t.Fatalf("envelope not filled from task: %+v", env)
	}
	if _, parseErr := time.Parse(time.RFC3339, env.Timestamp); parseErr != nil {
		t.Fatalf("timestamp should be RFC3339, got %q", env.Timestamp)
	}
}

func TestWebhookResponderPropagatesError(t *testing.T) {
	notifier := &stubNotifier{err: errors.New("hook down")}
	responder := NewWebhookResponder(notifier)

	pending := newPendingTask("t1", "u1")
	pending.WebhookURL = "https://hooks.example.com/atlas"

	if _, err := responder.Attempt(context.Background(), pending); err == nil {
		t.Fatalf("notifier error should propagate so the next tier runs")
	}
}
