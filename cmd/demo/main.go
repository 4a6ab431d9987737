package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/weiche-dev/weiche/pkg/api"
	"github.com/weiche-dev/weiche/pkg/events"
	"github.com/weiche-dev/weiche/pkg/pipeline"
	"github.com/weiche-dev/weiche/pkg/provider"
	"github.com/weiche-dev/weiche/pkg/queue"
	"github.com/weiche-dev/weiche/pkg/tools"
	"github.com/weiche-dev/weiche/pkg/usage"
)

// demoGateway answers immediate tool calls locally so the demo runs
// without an MCP server.
type demoGateway struct{}

func (demoGateway) ExecuteTool(ctx context.Context, server, tool string, args map[string]any) (any, error) {
	return map[string]any{"temperature": 18, "conditions": "partly cloudy", "city": args["city"]}, nil
}

func main() {
	fmt.Println("=== weiche pipeline demo ===")
	fmt.Println()

	logger := slog.Default()
	ctx := context.Background()

	// 1. A scripted provider that requests two tool invocations.
	registry := provider.NewRegistry()
	registry.Extend("scripted", func(cfg provider.Config) (provider.Driver, error) {
		d := provider.NewMockDriver(cfg)
		d.Reply = "Checking the weather and filing your report."
		d.ToolCalls = []api.ToolCall{
			{ID: api.NewCallID(), Name: "get_weather", Arguments: map[string]any{"city": "Berlin"}},
			{ID: api.NewCallID(), Name: "send_report", Arguments: map[string]any{"recipient": "ops"}},
		}
		return d, nil
	})
	resolver := provider.NewResolver(registry, nil, "scripted")
	fmt.Println("[1] Provider resolver configured, default = scripted")

	// 2. Tools: one immediate, one queued onto an in-memory topic.
	toolRegistry := tools.NewRegistry()
	toolRegistry.Register(tools.Descriptor{
		Name:     "get_weather",
		Kind:     tools.KindImmediate,
		Required: []string{"city"},
	})
	toolRegistry.Register(tools.Descriptor{
		Name:  "send_report",
		Kind:  tools.KindQueued,
		Topic: "reports",
	})
	fmt.Println("[2] Tools registered:", toolRegistry.Names())

	// 3. Events fan out to the console and a usage ledger.
	ledger := usage.NewMemoryLedger()
	sink := events.Sinks{
		events.SinkFunc(func(ctx context.Context, ev events.Event) {
			fmt.Printf("    event: %s\n", ev.EventName())
		}),
		usage.NewRecorder(ledger, logger),
	}

	jobQueue := queue.NewMemory(16)
	executor := tools.NewExecutor(toolRegistry,
		tools.WithGateway(demoGateway{}),
		tools.WithQueue(jobQueue),
		tools.WithSink(sink),
	)

	terminal := pipeline.NewTerminal(resolver,
		pipeline.WithExecutor(executor),
		pipeline.WithSink(sink),
	)
	p := pipeline.New(terminal,
		pipeline.WithGlobalUnits(pipeline.RequestStamp()),
	)

	// 4. Process a message through the pipeline.
	msg := &api.Message{Role: api.RoleUser, Content: "What's the weather in Berlin? Also send the daily report."}
	msg.EnsureMetadata()[api.MetaUserID] = "user_demo"

	fmt.Println("\n[3] Processing message:")
	resp, err := p.Process(ctx, msg)
	if err != nil {
		fmt.Printf("Process FAILED: %v\n", err)
		return
	}

	data, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Printf("\n[4] Response:\n%s\n", data)
	fmt.Printf("\n[5] Applied middleware: %v\n", msg.AppliedMiddleware())
	fmt.Printf("    Message ID:         %s\n", msg.MetaString(api.MetaMessageID))

	// 5. The queued tool call landed on the "reports" topic.
	select {
	case job := <-jobQueue.Jobs("reports"):
		fmt.Printf("\n[6] Queued job: id=%s function=%s user=%s\n", job.ID, job.FunctionName, job.UserID)
	case <-time.After(time.Second):
		fmt.Println("\n[6] No job arrived (unexpected)")
	}

	// 6. Token usage was recorded by the ledger sink.
	fmt.Println("\n[7] Usage records:")
	for _, rec := range ledger.Records() {
		fmt.Printf("    %s/%s: %d in / %d out / %d total\n",
			rec.Provider, rec.Model, rec.InputTokens, rec.OutputTokens, rec.TotalTokens)
	}

	// 7. Error surfaces: unknown middleware fails before any unit runs.
	fmt.Println("\n[8] Error examples:")
	if _, err := p.Process(ctx, &api.Message{Content: "hi"}, "no_such_unit"); err != nil {
		fmt.Printf("    unknown middleware: %v\n", err)
	}
	if _, err := resolver.Resolve("no_such_provider"); err != nil {
		fmt.Printf("    unknown provider:   %v\n", err)
	}

	fmt.Println("\n=== demo complete ===")
}
