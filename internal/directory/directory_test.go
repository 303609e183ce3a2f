package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	xerrors "AgentNexus/internal/errors"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestLoadStaticCatalog(t *testing.T) {
	path := writeCatalog(t, `
agents:
  - id: atlas
    name: Atlas Researcher
    personality: methodical
    webhook_url: https://hooks.example.com/atlas
  - id: "  "
    name: should be skipped
`)
	catalog, err := LoadStaticCatalog(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if catalog.Len() != 1 {
		t.Fatalf("expected 1 agent, got %d", catalog.Len())
	}

	profile, err := catalog.Lookup(context.Background(), "atlas")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if profile.Name != "Atlas Researcher" || profile.WebhookURL != "https://hooks.example.com/atlas" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestStaticCatalogLookupMiss(t *testing.T) {
	path := writeCatalog(t, "agents: []\n")
	catalog, err := LoadStaticCatalog(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if _, err := catalog.Lookup(context.Background(), "ghost"); xerrors.CodeOf(err) != xerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClientLookupRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/agents/atlas" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(AgentProfile{ID: "atlas", Name: "Atlas", Personality: "curious"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	profile, err := client.Lookup(context.Background(), "atlas")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if profile.Name != "Atlas" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestClientFallsBackToCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	path := writeCatalog(t, `
agents:
  - id: atlas
    name: Atlas Local
`)
	catalog, err := LoadStaticCatalog(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	client := NewClient(srv.URL, WithFallback(catalog))
	profile, err := client.Lookup(context.Background(), "atlas")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if profile.Name != "Atlas Local" {
		t.Fatalf("expected fallback profile, got %+v", profile)
	}
}

func TestClientNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if _, err := client.Lookup(context.Background(), "ghost"); xerrors.CodeOf(err) != xerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFallbackProfile(t *testing.T) {
	profile := FallbackProfile("mystery-agent")
	if profile.ID != "mystery-agent" || profile.Name != "mystery-agent" {
		t.Fatalf("fallback profile should reuse the id, got %+v", profile)
	}
}
