package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/weiche-dev/weiche/pkg/api"
	"github.com/weiche-dev/weiche/pkg/events"
	"github.com/weiche-dev/weiche/pkg/queue"
)

// spyGateway records ExecuteTool invocations and serves scripted results.
type spyGateway struct {
	mu      sync.Mutex
	calls   []string
	results map[string]any
	errs    map[string]error
}

func newSpyGateway() *spyGateway {
	return &spyGateway{results: make(map[string]any), errs: make(map[string]error)}
}

func (g *spyGateway) ExecuteTool(ctx context.Context, server, tool string, args map[string]any) (any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, server+"/"+tool)
	if err, ok := g.errs[tool]; ok {
		return nil, err
	}
	if res, ok := g.results[tool]; ok {
		return res, nil
	}
	return "ok", nil
}

func (g *spyGateway) invocations() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// recordingSink captures emitted events in order.
type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *recordingSink) Emit(ctx context.Context, e events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.events))
	for i, e := range s.events {
		names[i] = e.EventName()
	}
	return names
}

func testMessage() *api.Message {
	return &api.Message{
		Role:    api.RoleUser,
		Content: "please run the tool",
		Metadata: map[string]any{
			api.MetaUserID:         "user-1",
			api.MetaConversationID: "conv-1",
			api.MetaMessageID:      "msg-1",
		},
	}
}

func TestExecuteImmediateToolWrapsGatewayResult(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Descriptor{Name: "get_weather", Kind: KindImmediate, Server: "weather"})

	gw := newSpyGateway()
	gw.results["get_weather"] = map[string]any{"temp": 21}
	sink := &recordingSink{}
	e := NewExecutor(reg, WithGateway(gw), WithSink(sink))

	res, err := e.ExecuteToolCall(context.Background(), testMessage(), api.ToolCall{
		ID:        "call_1",
		Name:      "get_weather",
		Arguments: map[string]any{"city": "Berlin"},
	})
	if err != nil {
		t.Fatalf("ExecuteToolCall failed: %v", err)
	}

	if res.Status != api.ResultSuccess || res.ToolCallID != "call_1" {
		t.Errorf("result = %+v", res)
	}
	if res.Payload["type"] != "mcp_result" || res.Payload["executionMode"] != "immediate" {
		t.Errorf("Payload envelope = %v", res.Payload)
	}
	if gw.calls[0] != "weather/get_weather" {
		t.Errorf("gateway call = %q, want routed to the descriptor's server", gw.calls[0])
	}

	want := []string{events.NameToolCalled, events.NameToolCompleted}
	got := sink.names()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("events = %v, want %v", got, want)
	}
	completed := sink.events[1].(events.ToolCompleted)
	if completed.UserID != "user-1" || completed.ConversationID != "conv-1" || completed.MessageID != "msg-1" {
		t.Errorf("completed identity = %+v, want metadata propagated", completed)
	}
}

func TestExecuteQueuedToolAcknowledgesWithoutWaiting(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Descriptor{Name: "send_report", Kind: KindQueued, Topic: "reports"})

	q := queue.NewMemory(0)
	sink := &recordingSink{}
	e := NewExecutor(reg, WithQueue(q), WithSink(sink))

	start := time.Now()
	res, err := e.ExecuteToolCall(context.Background(), testMessage(), api.ToolCall{
		ID:        "call_2",
		Name:      "send_report",
		Arguments: map[string]any{"period": "weekly"},
	})
	if err != nil {
		t.Fatalf("ExecuteToolCall failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Errorf("queued dispatch took %v, want immediate acknowledgement", elapsed)
	}

	if res.Payload["type"] != "function_event_queued" ||
		res.Payload["status"] != "queued" ||
		res.Payload["executionMode"] != "background" {
		t.Errorf("Payload = %v, want the queued envelope", res.Payload)
	}

	select {
	case job := <-q.Jobs("reports"):
		if job.FunctionName != "send_report" {
			t.Errorf("job.FunctionName = %q", job.FunctionName)
		}
		if job.UserID != "user-1" || job.ConversationID != "conv-1" || job.MessageID != "msg-1" {
			t.Errorf("job identity = %+v, want metadata propagated", job)
		}
		if !api.ValidateJobID(job.ID) {
			t.Errorf("job ID %q invalid", job.ID)
		}
		if job.Context["message_content"] != "please run the tool" {
			t.Errorf("job.Context = %v", job.Context)
		}
	default:
		t.Fatal("no job published to the topic")
	}
}

func TestValidationFailureProducesNoSideEffects(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Descriptor{
		Name:     "get_weather",
		Kind:     KindImmediate,
		Server:   "weather",
		Required: []string{"city"},
	})

	gw := newSpyGateway()
	sink := &recordingSink{}
	e := NewExecutor(reg, WithGateway(gw), WithSink(sink))

	_, err := e.ExecuteToolCall(context.Background(), testMessage(), api.ToolCall{
		ID:        "call_3",
		Name:      "get_weather",
		Arguments: map[string]any{"days": 3},
	})

	var te *api.ToolExecutionError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *api.ToolExecutionError", err)
	}
	if !strings.Contains(te.Reason, "city") {
		t.Errorf("Reason = %q, want the missing argument named", te.Reason)
	}
	if gw.invocations() != 0 {
		t.Errorf("gateway invoked %d times on validation failure, want 0", gw.invocations())
	}

	got := sink.names()
	if len(got) != 1 || got[0] != events.NameToolFailed {
		t.Errorf("events = %v, want only tool.failed", got)
	}
}

func TestUnknownToolReturnsToolNotFound(t *testing.T) {
	e := NewExecutor(NewRegistry())
	_, err := e.ExecuteToolCall(context.Background(), testMessage(), api.ToolCall{Name: "ghost"})

	var nf *api.ToolNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want *api.ToolNotFoundError", err)
	}
	if nf.Name != "ghost" {
		t.Errorf("Name = %q", nf.Name)
	}
}

func TestGatewayFailureEmitsToolFailed(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Descriptor{Name: "flaky", Kind: KindImmediate, Server: "s"})

	gw := newSpyGateway()
	cause := errors.New("connection reset")
	gw.errs["flaky"] = cause
	sink := &recordingSink{}
	e := NewExecutor(reg, WithGateway(gw), WithSink(sink))

	_, err := e.ExecuteToolCall(context.Background(), testMessage(), api.ToolCall{ID: "call_4", Name: "flaky"})
	if !errors.Is(err, cause) {
		t.Errorf("err = %v, want the gateway cause preserved", err)
	}

	got := sink.names()
	if len(got) != 2 || got[1] != events.NameToolFailed {
		t.Errorf("events = %v, want tool.called then tool.failed", got)
	}
}

func TestProcessToolCallsPreservesOrderAndIsolation(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Descriptor{Name: "t1", Kind: KindImmediate, Server: "s"})
	reg.Register(Descriptor{Name: "t2", Kind: KindQueued})
	reg.Register(Descriptor{Name: "t3", Kind: KindImmediate, Server: "s"})

	gw := newSpyGateway()
	gw.errs["t3"] = fmt.Errorf("backend down")
	e := NewExecutor(reg, WithGateway(gw), WithQueue(queue.NewMemory(0)))

	results := e.ProcessToolCalls(context.Background(), testMessage(), []api.ToolCall{
		{ID: "c1", Name: "t1", Arguments: map[string]any{}},
		{ID: "c2", Name: "t2", Arguments: map[string]any{}},
		{ID: "c3", Name: "t3", Arguments: map[string]any{}},
	})

	if len(results) != 3 {
		t.Fatalf("results = %d, want one per call", len(results))
	}
	for i, wantID := range []string{"c1", "c2", "c3"} {
		if results[i].ToolCallID != wantID {
			t.Errorf("results[%d].ToolCallID = %q, want %q (input order)", i, results[i].ToolCallID, wantID)
		}
	}
	if results[0].Status != api.ResultSuccess || results[1].Status != api.ResultSuccess {
		t.Errorf("statuses = %q/%q, want success for the calls before the failure",
			results[0].Status, results[1].Status)
	}
	if results[2].Status != api.ResultError {
		t.Errorf("results[2].Status = %q, want error captured in place", results[2].Status)
	}
	if results[2].Error == "" || !strings.Contains(results[2].Error, "backend down") {
		t.Errorf("results[2].Error = %q, want the cause recorded", results[2].Error)
	}
	if results[1].Payload["executionMode"] != "background" {
		t.Errorf("queued call payload = %v", results[1].Payload)
	}
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Descriptor{Name: "t", Kind: KindImmediate, Server: "old"})
	reg.Register(Descriptor{Name: "t", Kind: KindQueued, Topic: "jobs"})

	desc, ok := reg.Lookup("t")
	if !ok {
		t.Fatal("tool missing after registration")
	}
	if desc.Kind != KindQueued || desc.Topic != "jobs" {
		t.Errorf("descriptor = %+v, want the second registration", desc)
	}

	reg.Register(Descriptor{Name: "a"})
	names := reg.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "t" {
		t.Errorf("Names = %v, want sorted", names)
	}
}
