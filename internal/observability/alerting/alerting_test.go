package alerting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	xerrors "AgentNexus/internal/errors"
)

type recordingSender struct {
	channel string
	content string
	err     error
}

func (s *recordingSender) Send(_ context.Context, channel, content string) error {
	s.channel = channel
	s.content = content
	return s.err
}

type stubNotifier struct {
	channel Channel
	events  []Event
	err     error
}

func (n *stubNotifier) Channel() Channel { return n.channel }

func (n *stubNotifier) Notify(_ context.Context, event Event) error {
	n.events = append(n.events, event)
	return n.err
}

func TestFanoutBroadcastsToAllChannels(t *testing.T) {
	first := &stubNotifier{channel: ChannelLog}
	second := &stubNotifier{channel: ChannelSlack}
	dispatcher := NewFanout(first, second, nil)

	event := Event{
		Code:       "TASK_RECORD_LOST",
		Message:    "record disappeared",
		Severity:   xerrors.SeverityCritical,
		TaskID:     "task-1",
		OccurredAt: time.Now(),
	}
	if err := dispatcher.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(first.events) != 1 || len(second.events) != 1 {
		t.Fatalf("expected both channels notified, got %d/%d", len(first.events), len(second.events))
	}
	if first.events[0].TaskID != "task-1" {
		t.Fatalf("event not forwarded intact: %+v", first.events[0])
	}
}

func TestFanoutCollectsChannelErrors(t *testing.T) {
	boom := errors.New("slack down")
	healthy := &stubNotifier{channel: ChannelLog}
	broken := &stubNotifier{channel: ChannelSlack, err: boom}
	dispatcher := NewFanout(healthy, broken)

	err := dispatcher.Notify(context.Background(), Event{Code: "TASK_TIERS_EXHAUSTED"})
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("aggregated error should wrap the channel failure: %v", err)
	}
	if len(healthy.events) != 1 {
		t.Fatalf("healthy channel should still be notified")
	}
}

func TestSlackNotifierFormatsMessage(t *testing.T) {
	sender := &recordingSender{}
	notifier := &SlackNotifier{Sender: sender, ChannelID: "C0ALERTS"}

	err := notifier.Notify(context.Background(), Event{
		Code:     "TASK_RECORD_LOST",
		Message:  "record disappeared",
		Severity: xerrors.SeverityCritical,
		TaskID:   "task-9",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sender.channel != "C0ALERTS" {
		t.Fatalf("unexpected channel: %q", sender.channel)
	}
	for _, fragment := range []string{"critical", "TASK_RECORD_LOST", "record disappeared", "task-9"} {
		if !strings.Contains(sender.content, fragment) {
			t.Fatalf("message missing %q: %s", fragment, sender.content)
		}
	}
}

func TestSlackNotifierSkipsWhenUnconfigured(t *testing.T) {
	notifier := &SlackNotifier{}
	if err := notifier.Notify(context.Background(), Event{TaskID: "task-2"}); err != nil {
		t.Fatalf("unconfigured notifier should be a no-op, got %v", err)
	}
}
