package task

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestFileStoreEmptyDirectory(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	defer store.Close()

	results, err := store.List(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("fresh store should be empty, got %d", len(results))
	}
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := store.Create(ctx, newPendingTask("t1", "u1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Update(ctx, "t1", func(task *Task) error {
		return task.Complete("persisted answer")
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.Status != StatusCompleted || got.Response == nil || *got.Response != "persisted answer" {
		t.Fatalf("task not persisted intact: %+v", got)
	}
}

func TestFileStoreConcurrentCreates(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	ids := []string{"c1", "c2", "c3", "c4", "c5"}
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := store.Create(ctx, newPendingTask(id, "u1")); err != nil {
				t.Errorf("create %s: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	results, err := store.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != len(ids) {
		t.Fatalf("expected %d tasks, got %d", len(ids), len(results))
	}
}

func TestFileStoreUpdateMissingRecord(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	defer store.Close()

	if _, err := store.Update(context.Background(), "nope", func(task *Task) error {
		return task.MarkProcessing()
	}); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
