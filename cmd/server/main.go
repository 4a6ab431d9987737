// Command server runs the weiche request pipeline as an HTTP service.
//
// Configuration is loaded from a YAML file (discovered or passed with
// -config) layered with WEICHE_* environment overrides; see pkg/config.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weiche-dev/weiche/pkg/api"
	"github.com/weiche-dev/weiche/pkg/config"
	"github.com/weiche-dev/weiche/pkg/events"
	"github.com/weiche-dev/weiche/pkg/observability"
	"github.com/weiche-dev/weiche/pkg/pipeline"
	"github.com/weiche-dev/weiche/pkg/provider"
	"github.com/weiche-dev/weiche/pkg/provider/openaicompat"
	"github.com/weiche-dev/weiche/pkg/queue"
	"github.com/weiche-dev/weiche/pkg/tools"
	"github.com/weiche-dev/weiche/pkg/tools/mcp"
	"github.com/weiche-dev/weiche/pkg/usage"
	usagepg "github.com/weiche-dev/weiche/pkg/usage/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := slog.Default()
	ctx := context.Background()

	// Providers.
	providerConfigs := make(map[string]provider.Config, len(cfg.Providers))
	for name, p := range cfg.Providers {
		providerConfigs[name] = provider.Config{
			Kind:          provider.Kind(p.Kind),
			APIKey:        p.APIKey,
			BaseURL:       p.BaseURL,
			Timeout:       p.Timeout,
			RetryAttempts: p.RetryAttempts,
			DefaultModel:  p.DefaultModel,
		}
	}
	resolver := provider.NewResolver(
		provider.NewRegistry(),
		providerConfigs,
		cfg.DefaultProvider,
		provider.WithBuiltin(provider.KindOpenAICompat, openaicompat.Creator),
		provider.WithLogger(logger),
	)

	// Job queue.
	var jobQueue queue.Queue
	switch cfg.Queue.Type {
	case "nats":
		conn, err := queue.Connect(cfg.Queue.NATS.URL)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer conn.Close()
		jobQueue = queue.NewNATS(conn, cfg.Queue.NATS.SubjectPrefix)
		logger.Info("queue enabled", "type", "nats", "url", cfg.Queue.NATS.URL)
	default:
		jobQueue = queue.NewMemory(cfg.Queue.Buffer)
		logger.Info("queue enabled", "type", "memory")
	}

	// Usage ledger.
	var ledger usage.Ledger
	switch cfg.Usage.Type {
	case "postgres":
		pg, err := usagepg.New(ctx, usagepg.Config{
			DSN:            cfg.Usage.Postgres.DSN,
			MaxConns:       cfg.Usage.Postgres.MaxConns,
			MigrateOnStart: cfg.Usage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return fmt.Errorf("creating usage ledger: %w", err)
		}
		defer pg.Close()
		ledger = pg
		logger.Info("usage ledger enabled", "type", "postgres")
	default:
		ledger = usage.NewMemoryLedger()
		logger.Info("usage ledger enabled", "type", "memory")
	}

	sink := events.Sinks{
		events.LogSink(logger),
		observability.NewMetricsSink(),
		usage.NewRecorder(ledger, logger),
	}

	// Tools.
	toolRegistry := tools.NewRegistry()
	for _, t := range cfg.Tools {
		toolRegistry.Register(tools.Descriptor{
			Name:     t.Name,
			Kind:     tools.Kind(t.Kind),
			Server:   t.Server,
			Topic:    t.Topic,
			Required: t.Required,
		})
	}

	executorOpts := []tools.ExecutorOption{
		tools.WithQueue(jobQueue),
		tools.WithSink(sink),
		tools.WithLogger(logger),
	}
	if len(cfg.MCP.Servers) > 0 {
		serverConfigs := make([]mcp.ServerConfig, 0, len(cfg.MCP.Servers))
		for _, s := range cfg.MCP.Servers {
			serverConfigs = append(serverConfigs, mcp.ServerConfig{
				Name:      s.Name,
				Transport: s.Transport,
				URL:       s.URL,
				Headers:   s.Headers,
			})
		}
		gateway, err := mcp.ConnectAll(ctx, serverConfigs, logger)
		if err != nil {
			return fmt.Errorf("connecting MCP servers: %w", err)
		}
		defer gateway.Close()
		gateway.RegisterDiscoveredTools(ctx, toolRegistry)
		executorOpts = append(executorOpts, tools.WithGateway(gateway))
	}
	executor := tools.NewExecutor(toolRegistry, executorOpts...)

	// Pipeline.
	terminal := pipeline.NewTerminal(resolver,
		pipeline.WithExecutor(executor),
		pipeline.WithSink(sink),
		pipeline.WithTerminalLogger(logger),
	)
	pipelineOpts := []pipeline.Option{
		pipeline.WithGlobalUnits(pipeline.RequestStamp(), pipeline.RequestLogging(logger)),
		pipeline.WithLogger(logger),
		pipeline.WithSlowThreshold(time.Duration(cfg.Pipeline.SlowThresholdMS) * time.Millisecond),
	}
	if cfg.Pipeline.JWT.Secret != "" {
		pipelineOpts = append(pipelineOpts, pipeline.WithNamedUnit(pipeline.JWTAuth(pipeline.JWTAuthConfig{
			Secret:    []byte(cfg.Pipeline.JWT.Secret),
			UserClaim: cfg.Pipeline.JWT.UserClaim,
			Issuer:    cfg.Pipeline.JWT.Issuer,
		})))
	}
	p := pipeline.New(terminal, pipelineOpts...)

	// HTTP surface.
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/messages", handleMessages(p))
	mux.HandleFunc("GET /healthz", handleHealth(resolver))
	if cfg.Observability.Metrics.Enabled {
		mux.Handle("GET "+cfg.Observability.Metrics.Path, promhttp.Handler())
	}

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port, "default_provider", cfg.DefaultProvider)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Info("shutting down gracefully")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	case err := <-errCh:
		return err
	}
}

// messageRequest is the POST /v1/messages body.
type messageRequest struct {
	Role       string         `json:"role,omitempty"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Middleware []string       `json:"middleware,omitempty"`
}

func handleMessages(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req messageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if req.Content == "" {
			writeError(w, http.StatusBadRequest, "content is required")
			return
		}

		msg := &api.Message{
			Role:     req.Role,
			Content:  req.Content,
			Metadata: req.Metadata,
		}
		if msg.Role == "" {
			msg.Role = api.RoleUser
		}
		if auth := r.Header.Get("Authorization"); auth != "" {
			msg.EnsureMetadata()[api.MetaAuthorization] = auth
		}

		resp, err := p.Process(r.Context(), msg, req.Middleware...)
		if err != nil {
			var mwErr *api.MiddlewareNotFoundError
			if errors.As(err, &mwErr) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}

		payload := map[string]any{
			"response":           resp,
			"applied_middleware": msg.AppliedMiddleware(),
			"message_id":         msg.MetaString(api.MetaMessageID),
		}
		if results, ok := msg.Metadata[api.MetaToolResults]; ok {
			payload["tool_results"] = results
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	}
}

func handleHealth(resolver *provider.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driver, err := resolver.Resolve("")
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		hs := driver.HealthStatus(r.Context())
		status := http.StatusOK
		if !hs.Healthy {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(hs)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"message": msg},
	})
}
