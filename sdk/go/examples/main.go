package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"AgentNexus/sdk/go/nexus"
)

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/chat", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(nexus.ChatReply{
			Response:  "Hello! I am Atlas, ready to dig in.",
			AgentID:   "atlas-researcher",
			Model:     "gpt-4o-mini",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/api/v1/tasks", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"task": nexus.Task{
					ID:        "task-demo",
					AgentID:   "atlas-researcher",
					Status:    "pending",
					CreatedAt: time.Now().UTC(),
				},
			})
		default:
			response := "Research finished, see the attached summary."
			_ = json.NewEncoder(w).Encode(nexus.Task{
				ID:        "task-demo",
				AgentID:   "atlas-researcher",
				Status:    "completed",
				Response:  &response,
				CreatedAt: time.Now().Add(-2 * time.Minute).UTC(),
				UpdatedAt: time.Now().UTC(),
			})
		}
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := nexus.NewClient(srv.URL, srv.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := client.Chat(ctx, nexus.ChatRequest{AgentID: "atlas-researcher", Message: "hello"})
	if err != nil {
		panic(err)
	}
	fmt.Printf("chat reply from %s: %s\n", reply.AgentID, reply.Response)

	submitted, err := client.SubmitTask(ctx, nexus.TaskSubmission{
		AgentID: "atlas-researcher",
		Message: "Scan the market for emerging vector database vendors.",
	})
	if err != nil {
		panic(err)
	}
	fmt.Printf("submitted task %s (status=%s)\n", submitted.ID, submitted.Status)

	finished, err := client.WaitForTask(ctx, submitted.ID, 500*time.Millisecond)
	if err != nil {
		panic(err)
	}
	if finished.Response != nil {
		fmt.Printf("task %s finished: %s\n", finished.ID, *finished.Response)
	}
}
