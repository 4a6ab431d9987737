package usage

import (
	"context"
	"log/slog"
	"time"

	"github.com/weiche-dev/weiche/pkg/api"
	"github.com/weiche-dev/weiche/pkg/events"
)

// Record is one usage ledger entry.
type Record struct {
	Provider       string    `json:"provider"`
	Model          string    `json:"model"`
	UserID         string    `json:"user_id,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
	MessageID      string    `json:"message_id,omitempty"`
	InputTokens    int       `json:"input_tokens"`
	OutputTokens   int       `json:"output_tokens"`
	TotalTokens    int       `json:"total_tokens"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// Ledger stores usage records.
type Ledger interface {
	Record(ctx context.Context, rec Record) error

	// ProviderTotals aggregates recorded token counts per provider.
	ProviderTotals(ctx context.Context) (map[string]api.Usage, error)
}

// Recorder is an event sink that writes a ledger record for every
// generated response. Ledger failures are logged, never propagated:
// accounting must not break request processing.
type Recorder struct {
	ledger Ledger
	logger *slog.Logger
}

// Ensure Recorder implements events.Sink at compile time.
var _ events.Sink = (*Recorder)(nil)

// NewRecorder creates a Recorder over the given ledger.
func NewRecorder(ledger Ledger, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{ledger: ledger, logger: logger}
}

// Emit implements events.Sink.
func (r *Recorder) Emit(ctx context.Context, e events.Event) {
	ev, ok := e.(events.ResponseGenerated)
	if !ok {
		return
	}

	rec := Record{
		Provider:     ev.Provider.Provider,
		Model:        ev.Provider.Model,
		InputTokens:  ev.Provider.Usage.InputTokens,
		OutputTokens: ev.Provider.Usage.OutputTokens,
		TotalTokens:  ev.Provider.Usage.TotalTokens,
		RecordedAt:   time.Now().UTC(),
	}
	if ev.Message != nil {
		rec.UserID = ev.Message.MetaString(api.MetaUserID)
		rec.ConversationID = ev.Message.MetaString(api.MetaConversationID)
		rec.MessageID = ev.Message.MetaString(api.MetaMessageID)
	}

	if err := r.ledger.Record(ctx, rec); err != nil {
		r.logger.Warn("recording usage failed",
			"provider", rec.Provider,
			"model", rec.Model,
			"error", err,
		)
	}
}
