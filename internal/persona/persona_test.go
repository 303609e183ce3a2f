package persona

import (
	"strings"
	"testing"
)

func TestBuildSystemPromptInjectsNameAndPersonality(t *testing.T) {
	prompt := BuildSystemPrompt("Atlas", "methodical, curious")
	if !strings.Contains(prompt, "You are Atlas,") {
		t.Fatalf("prompt should open with the agent name, got %q", prompt[:80])
	}
	if !strings.Contains(prompt, "methodical, curious") {
		t.Fatalf("prompt should carry the personality description")
	}
	if !strings.Contains(prompt, "You are Atlas at all times") {
		t.Fatalf("prompt should repeat the name in the mission section")
	}
}

func TestBuildSystemPromptDefaults(t *testing.T) {
	prompt := BuildSystemPrompt("  ", "")
	if !strings.Contains(prompt, "Nexus Agent") {
		t.Fatalf("blank name should fall back to Nexus Agent")
	}
	if !strings.Contains(prompt, "calm, precise, quietly confident") {
		t.Fatalf("blank personality should fall back to the default traits")
	}
}

func TestBuildSystemPromptOutputContract(t *testing.T) {
	prompt := BuildSystemPrompt("Atlas", "curious")
	for _, required := range []string{"<thinking></thinking>", "/evolve", "/shell", "at most 100 words"} {
		if !strings.Contains(prompt, required) {
			t.Fatalf("prompt is missing %q", required)
		}
	}
}

func TestBuildAcknowledgment(t *testing.T) {
	ack := BuildAcknowledgment("Atlas")
	if !strings.HasPrefix(ack, "<thinking>") {
		t.Fatalf("acknowledgment should model the thinking block, got %q", ack)
	}
	if !strings.Contains(ack, "I am Atlas") {
		t.Fatalf("acknowledgment should confirm the identity, got %q", ack)
	}
}
