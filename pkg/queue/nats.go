package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATS is a Queue that publishes jobs as JSON to NATS subjects. Subjects
// are formed as "<prefix>.<topic>", e.g. "weiche.jobs.reports".
type NATS struct {
	conn   *nats.Conn
	prefix string
}

// Ensure NATS implements Queue at compile time.
var _ Queue = (*NATS)(nil)

// Connect establishes a NATS connection with the client name "weiche"
// and compression enabled, unless options are supplied.
func Connect(url string, opts ...nats.Option) (*nats.Conn, error) {
	if len(opts) == 0 {
		opts = append(opts, nats.Name("weiche"), nats.Compression(true))
	}
	return nats.Connect(url, opts...)
}

// NewNATS creates a NATS-backed queue. If prefix is empty, "weiche.jobs"
// is used.
func NewNATS(conn *nats.Conn, prefix string) *NATS {
	if prefix == "" {
		prefix = "weiche.jobs"
	}
	return &NATS{conn: conn, prefix: prefix}
}

// Enqueue publishes the job to the topic's subject. Publish is
// asynchronous on the NATS client side, so this returns as soon as the
// message is buffered for the wire.
func (q *NATS) Enqueue(ctx context.Context, topic string, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job %q: %w", job.ID, err)
	}

	if err := q.conn.Publish(q.subject(topic), data); err != nil {
		return fmt.Errorf("publishing job %q to %q: %w", job.ID, q.subject(topic), err)
	}
	return nil
}

func (q *NATS) subject(topic string) string {
	return q.prefix + "." + topic
}
