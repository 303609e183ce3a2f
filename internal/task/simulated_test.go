package task

import (
	"context"
	"strings"
	"testing"
)

func TestSimulatedResponderNeverFails(t *testing.T) {
	responder := NewSimulatedResponder("Atlas")
	reply, err := responder.Attempt(context.Background(), newPendingTask("t1", "u1"))
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if reply == "" {
		t.Fatalf("simulated tier must always answer")
	}
}

func TestSimulatedResponderSchedulingRule(t *testing.T) {
	responder := NewSimulatedResponder("Atlas")
	pending := newPendingTask("t1", "u1")
	pending.Message = "please schedule a meeting for tomorrow"

	reply, err := responder.Attempt(context.Background(), pending)
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if !strings.Contains(reply, "calendar") {
		t.Fatalf("scheduling keyword should hit the calendar rule, got %q", reply)
	}
}

func TestSimulatedResponderEmailRule(t *testing.T) {
	responder := NewSimulatedResponder("Atlas")
	pending := newPendingTask("t1", "u1")
	pending.Message = "draft an email to the vendor"

	reply, err := responder.Attempt(context.Background(), pending)
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if !strings.Contains(reply, "outbox") {
		t.Fatalf("email keyword should hit the email rule, got %q", reply)
	}
}

func TestSimulatedResponderGenericIsPicked(t *testing.T) {
	responder := NewSimulatedResponder("Atlas", WithPick(func(int) int { return 1 }))
	pending := newPendingTask("t1", "u1")
	pending.Message = "something entirely different"

	reply, err := responder.Attempt(context.Background(), pending)
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if !strings.Contains(reply, "Task acknowledged") {
		t.Fatalf("injected pick should select the second generic reply, got %q", reply)
	}
}

func TestSimulatedResponderUsesTaskAgentName(t *testing.T) {
	responder := NewSimulatedResponder("")
	pending := newPendingTask("t1", "u1")
	pending.AgentName = "Scribe"
	pending.Message = "who are you"

	reply, err := responder.Attempt(context.Background(), pending)
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if !strings.Contains(reply, "Scribe") {
		t.Fatalf("reply should use the task's agent name, got %q", reply)
	}
}
