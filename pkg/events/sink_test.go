package events

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

// recordingSink captures emitted events for assertions.
type recordingSink struct {
	events []Event
}

func (r *recordingSink) Emit(_ context.Context, ev Event) {
	r.events = append(r.events, ev)
}

func TestSinksFanOutInOrder(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	sinks := Sinks{first, second}

	sinks.Emit(context.Background(), ToolCalled{Name: "search"})

	if len(first.events) != 1 || len(second.events) != 1 {
		t.Fatalf("expected both sinks to receive the event, got %d and %d",
			len(first.events), len(second.events))
	}
}

func TestSinksIsolatePanickingSink(t *testing.T) {
	boom := SinkFunc(func(context.Context, Event) { panic("sink exploded") })
	after := &recordingSink{}
	sinks := Sinks{boom, after}

	sinks.Emit(context.Background(), ToolFailed{Name: "search", Error: "x"})

	if len(after.events) != 1 {
		t.Fatalf("sink after the panicking one received %d events, want 1", len(after.events))
	}
}

func TestDiscardAcceptsEverything(t *testing.T) {
	// Must not panic.
	Discard.Emit(context.Background(), ResponseGenerated{})
}

func TestLogSinkWritesToolFailureAtWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	sink := LogSink(logger)
	sink.Emit(context.Background(), ToolFailed{Name: "notify", Error: "queue unreachable", ElapsedMS: 12})

	out := buf.String()
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("tool failure should log at warn, got: %s", out)
	}
	if !strings.Contains(out, "notify") || !strings.Contains(out, "queue unreachable") {
		t.Errorf("log entry missing tool name or error: %s", out)
	}
}

func TestEventNames(t *testing.T) {
	cases := []struct {
		ev   Event
		want string
	}{
		{ToolCalled{}, NameToolCalled},
		{ToolCompleted{}, NameToolCompleted},
		{ToolFailed{}, NameToolFailed},
		{ResponseGenerated{}, NameResponseGenerated},
	}
	for _, tc := range cases {
		if got := tc.ev.EventName(); got != tc.want {
			t.Errorf("EventName() = %q, want %q", got, tc.want)
		}
	}
}
