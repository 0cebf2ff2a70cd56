// Package tools implements the tool dispatcher for speech sessions: a
// registry of named executors resolved case-insensitively, plus the
// built-in conversational tools (greeting, safety response).
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voxbridge-ai/voxbridge/pkg/sonic"
)

// Dispatch outcomes reported to the observer.
const (
	OutcomeOK          = "ok"
	OutcomeDomainError = "domain_error"
	OutcomeUnsupported = "unsupported"
	OutcomePanic       = "panic"
)

// Executor is one tool: its advertised spec and its implementation.
// Execute returns either a result value for the model or an error for a
// domain failure; domain failures are folded into an {"error": ...}
// result so the session keeps going.
type Executor interface {
	Name() string
	Spec() sonic.ToolSpec
	Execute(ctx context.Context, input sonic.ToolInput) (any, error)
}

// Registry implements sonic.ToolDispatcher over a fixed executor table
// built at startup.
type Registry struct {
	logger  *slog.Logger
	byName  map[string]Executor
	order   []string
	observe func(tool, outcome string)
}

type RegistryOption func(*Registry)

// WithObserver reports every dispatch outcome, typically to metrics.
func WithObserver(fn func(tool, outcome string)) RegistryOption {
	return func(r *Registry) { r.observe = fn }
}

func NewRegistry(logger *slog.Logger, execs []Executor, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		logger:  logger,
		byName:  make(map[string]Executor, len(execs)),
		observe: func(string, string) {},
	}
	for _, ex := range execs {
		key := canonical(ex.Name())
		if _, dup := r.byName[key]; dup {
			continue
		}
		r.byName[key] = ex
		r.order = append(r.order, key)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func canonical(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Specs lists the advertised tool specs in registration order.
func (r *Registry) Specs() []sonic.ToolSpec {
	specs := make([]sonic.ToolSpec, 0, len(r.order))
	for _, key := range r.order {
		specs = append(specs, r.byName[key].Spec())
	}
	return specs
}

// Dispatch resolves the tool case-insensitively and runs it. An unknown
// name is the caller's problem (the model asked for something we never
// advertised); an executor error or panic becomes an {"error": ...}
// result so the model can recover conversationally.
func (r *Registry) Dispatch(ctx context.Context, name string, input sonic.ToolInput) (any, error) {
	key := canonical(name)
	ex, ok := r.byName[key]
	if !ok {
		r.observe(key, OutcomeUnsupported)
		return nil, &sonic.UnsupportedToolError{Name: name}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := r.run(ctx, ex, input)
	switch {
	case errors.Is(err, errToolPanic):
		r.observe(key, OutcomePanic)
		return map[string]any{"error": fmt.Sprintf("tool %s failed", key)}, nil
	case err != nil:
		r.logger.Warn("tool returned domain error", "tool", key, "error", err)
		r.observe(key, OutcomeDomainError)
		return map[string]any{"error": err.Error()}, nil
	}
	r.observe(key, OutcomeOK)
	return result, nil
}

var errToolPanic = errors.New("tool panicked")

func (r *Registry) run(ctx context.Context, ex Executor, input sonic.ToolInput) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked", "tool", ex.Name(), "panic", rec)
			result, err = nil, errToolPanic
		}
	}()
	return ex.Execute(ctx, input)
}

// ParseArgs decodes the tool argument payload. An empty content string
// decodes as an empty object, which is how the model expresses "no
// arguments".
func ParseArgs(input sonic.ToolInput, v any) error {
	content := input.Content
	if strings.TrimSpace(content) == "" {
		content = "{}"
	}
	if err := json.Unmarshal([]byte(content), v); err != nil {
		return fmt.Errorf("invalid tool content: %w", err)
	}
	return nil
}
