package feedback

import (
	"context"
	"testing"

	xerrors "AgentNexus/internal/errors"
)

func TestSubmitValidation(t *testing.T) {
	service := NewService()
	ctx := context.Background()

	if _, err := service.Submit(ctx, SubmitRequest{Type: "bug", Description: "   "}); xerrors.CodeOf(err) != CodeFeedbackValidation {
		t.Fatalf("blank description should fail validation, got %v", err)
	}
	if _, err := service.Submit(ctx, SubmitRequest{Type: "rant", Description: "broken"}); xerrors.CodeOf(err) != CodeFeedbackValidation {
		t.Fatalf("unknown type should fail validation, got %v", err)
	}
}

func TestSubmitDefaultsTypeToOther(t *testing.T) {
	service := NewService()
	entry, err := service.Submit(context.Background(), SubmitRequest{Description: "just a note"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if entry.Type != TypeOther {
		t.Fatalf("empty type should default to other, got %s", entry.Type)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Fatalf("id and timestamp should be set: %+v", entry)
	}
}

func TestSubmitRecordsScreenshotPresenceOnly(t *testing.T) {
	service := NewService()
	entry, err := service.Submit(context.Background(), SubmitRequest{
		Type:          "bug",
		Description:   "screenshot attached",
		HasScreenshot: true,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !entry.HasScreenshot {
		t.Fatalf("screenshot presence should be recorded")
	}
}

func TestExportNewestFirstWithRedactedEmail(t *testing.T) {
	service := NewService()
	ctx := context.Background()

	if _, err := service.Submit(ctx, SubmitRequest{Type: "bug", Description: "first", Email: "alice@example.com"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := service.Submit(ctx, SubmitRequest{Type: "suggestion", Description: "second"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	exported := service.Export(ctx)
	if len(exported) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(exported))
	}
	if exported[0].Description != "second" {
		t.Fatalf("export should be newest first, got %q", exported[0].Description)
	}
	if exported[1].Email != "a***@example.com" {
		t.Fatalf("email should be redacted, got %q", exported[1].Email)
	}
}

func TestRedactEmail(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"alice@example.com": "a***@example.com",
		"not-an-email":      "***",
		"@example.com":      "***",
	}
	for input, want := range cases {
		if got := RedactEmail(input); got != want {
			t.Fatalf("RedactEmail(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCount(t *testing.T) {
	service := NewService()
	if service.Count() != 0 {
		t.Fatalf("fresh service should be empty")
	}
	if _, err := service.Submit(context.Background(), SubmitRequest{Description: "x"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if service.Count() != 1 {
		t.Fatalf("expected 1 entry, got %d", service.Count())
	}
}
