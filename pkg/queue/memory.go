package queue

import (
	"context"
	"fmt"
	"sync"
)

const defaultMemoryBuffer = 256

// Memory is an in-process Queue backed by buffered channels, one per
// topic. It is intended for tests and single-binary deployments where a
// worker goroutine drains Jobs directly.
type Memory struct {
	mu     sync.Mutex
	topics map[string]chan Job
	buffer int
}

// Ensure Memory implements Queue at compile time.
var _ Queue = (*Memory)(nil)

// NewMemory creates an in-process queue. If buffer is <= 0, a default
// capacity of 256 jobs per topic is used.
func NewMemory(buffer int) *Memory {
	if buffer <= 0 {
		buffer = defaultMemoryBuffer
	}
	return &Memory{
		topics: make(map[string]chan Job),
		buffer: buffer,
	}
}

// Enqueue accepts a job without waiting for a consumer. A full topic
// buffer is an enqueue failure, not a blocking wait: fire-and-forget
// must never stall the calling request.
func (m *Memory) Enqueue(ctx context.Context, topic string, job Job) error {
	ch := m.topic(topic)

	select {
	case ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("queue topic %q is full (%d jobs buffered)", topic, m.buffer)
	}
}

// Jobs returns the channel of jobs for a topic, for consumers to drain.
func (m *Memory) Jobs(topic string) <-chan Job {
	return m.topic(topic)
}

func (m *Memory) topic(name string) chan Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.topics[name]
	if !ok {
		ch = make(chan Job, m.buffer)
		m.topics[name] = ch
	}
	return ch
}
