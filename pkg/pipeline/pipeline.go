package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/weiche-dev/weiche/pkg/api"
)

const defaultSlowThreshold = 100 * time.Millisecond

// Handler processes a message into a response. The terminal handler and
// every wrapped chain link implement it.
type Handler interface {
	Handle(ctx context.Context, msg *api.Message) (*api.Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg *api.Message) (*api.Response, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, msg *api.Message) (*api.Response, error) {
	return f(ctx, msg)
}

// Unit is one middleware step. A unit decides whether and how to invoke
// next; the pipeline guarantees the chain continues even if the unit
// fails.
type Unit interface {
	Name() string
	Handle(ctx context.Context, msg *api.Message, next Handler) (*api.Response, error)
}

// UnitFunc builds a Unit from a name and a function.
func UnitFunc(name string, fn func(ctx context.Context, msg *api.Message, next Handler) (*api.Response, error)) Unit {
	return &funcUnit{name: name, fn: fn}
}

type funcUnit struct {
	name string
	fn   func(ctx context.Context, msg *api.Message, next Handler) (*api.Response, error)
}

func (u *funcUnit) Name() string { return u.name }

func (u *funcUnit) Handle(ctx context.Context, msg *api.Message, next Handler) (*api.Response, error) {
	return u.fn(ctx, msg, next)
}

// Pipeline composes global units and optional named units around a
// terminal handler.
type Pipeline struct {
	terminal      Handler
	global        []Unit
	named         map[string]Unit
	logger        *slog.Logger
	slowThreshold time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithGlobalUnits sets the units applied to every message, outermost
// first.
func WithGlobalUnits(units ...Unit) Option {
	return func(p *Pipeline) { p.global = units }
}

// WithNamedUnit registers a unit invocable by name through Process.
func WithNamedUnit(unit Unit) Option {
	return func(p *Pipeline) { p.named[unit.Name()] = unit }
}

// WithLogger sets the pipeline's logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithSlowThreshold sets the duration above which a unit's own window
// triggers a slow-middleware warning.
func WithSlowThreshold(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.slowThreshold = d
		}
	}
}

// New creates a Pipeline around the given terminal handler.
func New(terminal Handler, opts ...Option) *Pipeline {
	p := &Pipeline{
		terminal:      terminal,
		named:         make(map[string]Unit),
		logger:        slog.Default(),
		slowThreshold: defaultSlowThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs the message through global units plus the named extras,
// in that order, ending at the terminal handler. Unknown extra names
// fail before any unit executes.
func (p *Pipeline) Process(ctx context.Context, msg *api.Message, extra ...string) (*api.Response, error) {
	units := make([]Unit, 0, len(p.global)+len(extra))
	units = append(units, p.global...)
	for _, name := range extra {
		unit, ok := p.named[name]
		if !ok {
			return nil, &api.MiddlewareNotFoundError{Name: name}
		}
		units = append(units, unit)
	}

	md := msg.EnsureMetadata()
	if _, ok := md[api.MetaProcessingStart]; !ok {
		md[api.MetaProcessingStart] = time.Now()
	}

	handler := p.terminal
	for i := len(units) - 1; i >= 0; i-- {
		handler = p.wrap(units[i], handler)
	}
	return handler.Handle(ctx, msg)
}

// nextRecorder tracks whether a unit drove its downstream chain, and
// with what outcome. It lets the fault-isolation wrapper distinguish
// unit-originated failures from downstream ones and avoid invoking the
// chain twice.
type nextRecorder struct {
	next    Handler
	called  bool
	resp    *api.Response
	err     error
	elapsed time.Duration
}

func (r *nextRecorder) Handle(ctx context.Context, msg *api.Message) (*api.Response, error) {
	r.called = true
	start := time.Now()
	r.resp, r.err = r.next.Handle(ctx, msg)
	r.elapsed = time.Since(start)
	return r.resp, r.err
}

// wrap surrounds one unit with telemetry and fault isolation.
func (p *Pipeline) wrap(unit Unit, next Handler) Handler {
	return HandlerFunc(func(ctx context.Context, msg *api.Message) (*api.Response, error) {
		msg.AppendMiddleware(unit.Name())

		rec := &nextRecorder{next: next}
		start := time.Now()
		resp, err := p.runUnit(ctx, unit, msg, rec)
		ownElapsed := time.Since(start) - rec.elapsed

		p.logger.Debug("middleware unit finished",
			"unit", unit.Name(),
			"duration_ms", ownElapsed.Milliseconds(),
		)
		if ownElapsed > p.slowThreshold {
			p.logger.Warn("slow middleware unit",
				"unit", unit.Name(),
				"duration_ms", ownElapsed.Milliseconds(),
				"threshold_ms", p.slowThreshold.Milliseconds(),
			)
		}

		if err == nil {
			return resp, nil
		}

		// A failure from downstream is not the unit's fault and must
		// reach the caller unchanged.
		if rec.called && err == rec.err {
			return resp, err
		}

		p.logger.Warn("middleware unit failed, continuing chain",
			"unit", unit.Name(),
			"error", err,
		)

		// The failing unit already drove the chain: hand back whatever
		// downstream produced instead of running it a second time.
		if rec.called {
			return rec.resp, rec.err
		}
		return next.Handle(ctx, msg)
	})
}

// runUnit invokes the unit, converting a panic into an error so the
// isolation path treats both the same way.
func (p *Pipeline) runUnit(ctx context.Context, unit Unit, msg *api.Message, next Handler) (resp *api.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("middleware unit %q panicked: %v", unit.Name(), r)
		}
	}()
	return unit.Handle(ctx, msg, next)
}
