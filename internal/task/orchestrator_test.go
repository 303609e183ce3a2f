package task

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubResponder struct {
	name     string
	reply    string
	err      error
	attempts int
}

func (r *stubResponder) Name() string { return r.name }

func (r *stubResponder) Attempt(context.Context, *Task) (string, error) {
	r.attempts++
	return r.reply, r.err
}

func newTestOrchestrator(store Store, responders ...Responder) *Orchestrator {
	return NewOrchestrator(store, nil, responders, WithMinProcessingDelay(0))
}

func createPending(t *testing.T, store Store, id string) {
	t.Helper()
	if err := store.Create(context.Background(), newPendingTask(id, "u1")); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestHandleCompletesWithFirstResponder(t *testing.T) {
	store := NewMemoryStore()
	createPending(t, store, "t1")
	first := &stubResponder{name: "generative", reply: "generated"}
	second := &stubResponder{name: "simulated", reply: "never used"}
	orchestrator := newTestOrchestrator(store, first, second)

	if err := orchestrator.handle(context.Background(), "t1"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if second.attempts != 0 {
		t.Fatalf("later tiers must not run once a reply exists")
	}

	got, err := store.Get(context.Background(), "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCompleted || got.Response == nil || *got.Response != "generated" {
		t.Fatalf("unexpected final state: %+v", got)
	}
}

func TestHandleFallsThroughEmptyTiers(t *testing.T) {
	store := NewMemoryStore()
	createPending(t, store, "t1")
	generative := &stubResponder{name: "generative", reply: ""}
	webhookTier := &stubResponder{name: "webhook", err: errors.New("hook down")}
	simulated := &stubResponder{name: "simulated", reply: "fallback answer"}
	orchestrator := newTestOrchestrator(store, generative, webhookTier, simulated)

	if err := orchestrator.handle(context.Background(), "t1"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if generative.attempts != 1 || webhookTier.attempts != 1 || simulated.attempts != 1 {
		t.Fatalf("all tiers should be attempted in order")
	}

	got, _ := store.Get(context.Background(), "t1")
	if got.Status != StatusCompleted || *got.Response != "fallback answer" {
		t.Fatalf("last tier should win: %+v", got)
	}
}

func TestHandleMarksExhaustedWhenAllTiersEmpty(t *testing.T) {
	store := NewMemoryStore()
	createPending(t, store, "t1")
	orchestrator := newTestOrchestrator(store,
		&stubResponder{name: "generative"},
		&stubResponder{name: "webhook", err: errors.New("hook down")},
	)

	if err := orchestrator.handle(context.Background(), "t1"); err != nil {
		t.Fatalf("handle: %v", err)
	}

	got, _ := store.Get(context.Background(), "t1")
	if got.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if got.ErrorCode != string(CodeTaskExhausted) {
		t.Fatalf("expected exhausted code, got %q", got.ErrorCode)
	}
	if got.LastError == "" {
		t.Fatalf("failure reason should be recorded")
	}
}

func TestHandleSkipsMissingAndClaimedTasks(t *testing.T) {
	store := NewMemoryStore()
	orchestrator := newTestOrchestrator(store, &stubResponder{name: "simulated", reply: "x"})

	// 不存在的任务：跳过，不报错。
	if err := orchestrator.handle(context.Background(), "ghost"); err != nil {
		t.Fatalf("missing task should be skipped, got %v", err)
	}

	// 已被领取的任务：跳过，不报错。
	createPending(t, store, "t1")
	if _, err := store.Update(context.Background(), "t1", func(task *Task) error {
		return task.MarkProcessing()
	}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := orchestrator.handle(context.Background(), "t1"); err != nil {
		t.Fatalf("claimed task should be skipped, got %v", err)
	}
}

func TestHandleRecoversLostRecord(t *testing.T) {
	store := NewMemoryStore()
	createPending(t, store, "t1")

	// 应答层在处理中途删除记录，模拟整文件重写互相覆盖的事故。
	orchestrator := newTestOrchestrator(store, &responderFunc{
		name: "vanishing",
		fn: func(_ context.Context, task *Task) (string, error) {
			store.Delete(task.ID)
			return "reply into the void", nil
		},
	})

	if err := orchestrator.handle(context.Background(), "t1"); err != nil {
		t.Fatalf("handle: %v", err)
	}

	got, err := store.Get(context.Background(), "t1")
	if err != nil {
		t.Fatalf("lost record should be recreated: %v", err)
	}
	if got.Status != StatusFailed || got.ErrorCode != string(CodeTaskLost) {
		t.Fatalf("recreated record should be failed with lost code, got %+v", got)
	}
}

type responderFunc struct {
	name string
	fn   func(ctx context.Context, task *Task) (string, error)
}

func (r *responderFunc) Name() string { return r.name }

func (r *responderFunc) Attempt(ctx context.Context, task *Task) (string, error) {
	return r.fn(ctx, task)
}

func TestHandleHonorsMinProcessingDelay(t *testing.T) {
	store := NewMemoryStore()
	createPending(t, store, "t1")

	var slept time.Duration
	orchestrator := NewOrchestrator(store, nil,
		[]Responder{&stubResponder{name: "simulated", reply: "fast"}},
		WithMinProcessingDelay(250*time.Millisecond),
	)
	orchestrator.sleep = func(_ context.Context, d time.Duration) { slept = d }

	if err := orchestrator.handle(context.Background(), "t1"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if slept <= 0 || slept > 250*time.Millisecond {
		t.Fatalf("remaining delay should be slept, got %s", slept)
	}
}

func TestStartConsumesFromQueue(t *testing.T) {
	store := NewMemoryStore()
	createPending(t, store, "t1")

	queue := NewMemoryQueue(4)
	defer queue.Close()

	orchestrator := NewOrchestrator(store, queue,
		[]Responder{&stubResponder{name: "simulated", reply: "queued answer"}},
		WithMinProcessingDelay(0),
		WithWorkerCount(2),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = orchestrator.Start(ctx)
		close(done)
	}()

	if err := queue.Publish(ctx, "t1"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		got, err := store.Get(context.Background(), "t1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status == StatusCompleted {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("task was not processed in time, status=%s", got.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("orchestrator did not stop after cancel")
	}
}
