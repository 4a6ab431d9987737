package queue

import (
	"context"
	"time"
)

// Job is the payload handed to a background worker for a queued tool
// call. The field shapes are part of the contract with queue consumers.
type Job struct {
	ID             string         `json:"id"`
	FunctionName   string         `json:"function_name"`
	Arguments      map[string]any `json:"arguments,omitempty"`
	UserID         string         `json:"user_id,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	MessageID      string         `json:"message_id,omitempty"`
	Context        map[string]any `json:"context,omitempty"`
	EnqueuedAt     time.Time      `json:"enqueued_at"`
}

// Queue accepts jobs for background execution. Implementations must not
// block on the job being consumed: Enqueue returns once the job is
// accepted by the transport (channel buffer, broker publish).
type Queue interface {
	Enqueue(ctx context.Context, topic string, job Job) error
}
