package queue

import (
	"context"
	"testing"
	"time"
)

func TestMemoryEnqueueDeliversPayload(t *testing.T) {
	q := NewMemory(4)

	job := Job{
		ID:             "job_1",
		FunctionName:   "generate_report",
		Arguments:      map[string]any{"format": "csv"},
		UserID:         "user-1",
		ConversationID: "conv-1",
		MessageID:      "msg-1",
		EnqueuedAt:     time.Now(),
	}

	if err := q.Enqueue(context.Background(), "reports", job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	select {
	case got := <-q.Jobs("reports"):
		if got.FunctionName != "generate_report" {
			t.Errorf("FunctionName = %q, want %q", got.FunctionName, "generate_report")
		}
		if got.UserID != "user-1" || got.ConversationID != "conv-1" || got.MessageID != "msg-1" {
			t.Errorf("context identifiers not preserved: %+v", got)
		}
		if got.Arguments["format"] != "csv" {
			t.Errorf("Arguments not preserved: %+v", got.Arguments)
		}
	default:
		t.Fatal("no job delivered on topic")
	}
}

func TestMemoryEnqueueDoesNotBlock(t *testing.T) {
	q := NewMemory(1)
	ctx := context.Background()

	// Nobody is consuming; the call must still return promptly.
	start := time.Now()
	if err := q.Enqueue(ctx, "slow", Job{ID: "job_a"}); err != nil {
		t.Fatalf("first Enqueue failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Errorf("Enqueue took %v, expected a non-blocking hand-off", elapsed)
	}
}

func TestMemoryEnqueueFullBufferFails(t *testing.T) {
	q := NewMemory(1)
	ctx := context.Background()

	if err := q.Enqueue(ctx, "t", Job{ID: "job_a"}); err != nil {
		t.Fatalf("first Enqueue failed: %v", err)
	}
	if err := q.Enqueue(ctx, "t", Job{ID: "job_b"}); err == nil {
		t.Fatal("second Enqueue should fail on a full buffer, not block or drop silently")
	}
}

func TestMemoryTopicsAreIsolated(t *testing.T) {
	q := NewMemory(2)
	ctx := context.Background()

	q.Enqueue(ctx, "a", Job{ID: "job_a"})
	q.Enqueue(ctx, "b", Job{ID: "job_b"})

	select {
	case got := <-q.Jobs("a"):
		if got.ID != "job_a" {
			t.Errorf("topic a delivered %q, want job_a", got.ID)
		}
	default:
		t.Fatal("topic a empty")
	}
}
