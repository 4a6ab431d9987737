// Command mock-backend runs a deterministic Chat Completions server for
// exercising the openai_compat driver without a real model behind it.
// Responses are keyed off the request content, so pipeline behavior is
// reproducible.
//
// Configuration:
//
//	MOCK_PORT  - Listen port (default: 9090)
//	MOCK_FLAKY - Fail the first N completion requests with 503, then
//	             recover. Useful for watching the driver's retry loop.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"
)

var (
	requestCount atomic.Int64
	flakyBudget  int64
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}
	if v := os.Getenv("MOCK_FLAKY"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			flakyBudget = n
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("GET /v1/models", handleModels)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port, "flaky_budget", flakyBudget)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// --- Request types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// --- Response types ---

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int     `json:"index"`
	Message      chatMsg `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type chatMsg struct {
	Role      string     `json:"role"`
	Content   *string    `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Function funcCall `json:"function"`
}

type funcCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// --- Handler ---

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if n := requestCount.Add(1); n <= flakyBudget {
		slog.Info("simulating transient failure", "request", n)
		http.Error(w, `{"error":{"message":"temporarily overloaded","type":"server_error"}}`, http.StatusServiceUnavailable)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	resp := classifyAndRespond(&req)
	resp.Model = req.Model
	if resp.Model == "" {
		resp.Model = "mock-model"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// classifyAndRespond keys the canned response off the last user message.
func classifyAndRespond(req *chatRequest) chatResponse {
	lastMsg := strings.ToLower(getLastUserMessage(req))

	switch {
	case strings.Contains(lastMsg, "weather"):
		return weatherToolResponse()
	case strings.Contains(lastMsg, "remind"):
		return reminderToolResponse()
	case strings.Contains(lastMsg, "count from 1 to 5"):
		return makeTextResponse("1, 2, 3, 4, 5")
	default:
		return makeTextResponse("Hello, nice day!")
	}
}

func weatherToolResponse() chatResponse {
	return makeToolResponse(toolCall{
		ID:   "call_mock_weather",
		Type: "function",
		Function: funcCall{
			Name:      "get_weather",
			Arguments: `{"city":"Berlin","unit":"celsius"}`,
		},
	})
}

func reminderToolResponse() chatResponse {
	return makeToolResponse(toolCall{
		ID:   "call_mock_reminder",
		Type: "function",
		Function: funcCall{
			Name:      "create_reminder",
			Arguments: `{"title":"standup","time":"09:00"}`,
		},
	})
}

func makeToolResponse(calls ...toolCall) chatResponse {
	return chatResponse{
		ID:     "chatcmpl-mock-tool",
		Object: "chat.completion",
		Choices: []chatChoice{
			{
				Index: 0,
				Message: chatMsg{
					Role:      "assistant",
					Content:   nil,
					ToolCalls: calls,
				},
				FinishReason: "tool_calls",
			},
		},
		Usage: chatUsage{PromptTokens: 20, CompletionTokens: 15, TotalTokens: 35},
	}
}

func makeTextResponse(text string) chatResponse {
	return chatResponse{
		ID:     "chatcmpl-mock-text",
		Object: "chat.completion",
		Choices: []chatChoice{
			{
				Index: 0,
				Message: chatMsg{
					Role:    "assistant",
					Content: &text,
				},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

// --- Models endpoint ---

func handleModels(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": "mock-model", "object": "model", "owned_by": "weiche-mock"},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// --- Helpers ---

func getLastUserMessage(req *chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	return ""
}
