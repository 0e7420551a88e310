// Package dispatch routes named tool invocations to registered handlers
// behind schema validation, a per-call timeout, and panic recovery.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/agentgate/agentgate/internal/pkg/apperrors"
	"github.com/agentgate/agentgate/internal/pkg/logger"
	"github.com/agentgate/agentgate/internal/pkg/metrics"
)

// HandlerFunc executes one tool call. Implementations must honor ctx.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// Tool is one registered tool.
type Tool struct {
	Name        string
	Description string
	Schema      Schema
	Handler     HandlerFunc `json:"-"`
	// ReadOnly tools stay available in demo mode; mutating tools do not.
	ReadOnly bool
}

// Result is the dispatch outcome envelope.
type Result struct {
	Tool      string `json:"tool"`
	Status    string `json:"status"` // "ok" or "error"
	Payload   any    `json:"payload,omitempty"`
	Error     *Error `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// Error is the wire form of a dispatch failure.
type Error struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Dispatcher holds the tool registry. Registration happens at startup;
// Dispatch is safe for concurrent use.
type Dispatcher struct {
	mu      sync.RWMutex
	tools   map[string]*Tool
	timeout time.Duration
	log     *slog.Logger
}

func NewDispatcher(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		tools:   make(map[string]*Tool),
		timeout: timeout,
		log:     logger.Component("dispatch"),
	}
}

// Register adds a tool. Duplicate names are a wiring bug, so panic.
func (d *Dispatcher) Register(t Tool) {
	if t.Name == "" || t.Handler == nil {
		panic(fmt.Sprintf("dispatch: invalid tool registration %q", t.Name))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.tools[t.Name]; exists {
		panic(fmt.Sprintf("dispatch: duplicate tool %q", t.Name))
	}
	d.tools[t.Name] = &t
}

// List returns all tools sorted by name, for the discovery endpoint.
func (d *Dispatcher) List() []Tool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Tool, 0, len(d.tools))
	for _, t := range d.tools {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the tool by name, or nil.
func (d *Dispatcher) Lookup(name string) *Tool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tools[name]
}

// Dispatch validates args and runs the named tool under the call timeout.
// Every outcome, success or failure, comes back as a Result; the error
// return is always nil-safe to ignore for callers that only render the
// envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) Result {
	start := time.Now()

	tool := d.Lookup(name)
	if tool == nil {
		return d.fail(name, start, apperrors.NewUnknownTool(name))
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := tool.Schema.Validate(args); err != nil {
		return d.fail(name, start, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	payload, err := d.invoke(callCtx, tool, args)
	if err != nil {
		return d.fail(name, start, err)
	}

	elapsed := time.Since(start)
	metrics.DispatchesTotal.WithLabelValues(name, "ok").Inc()
	metrics.DispatchLatency.WithLabelValues(name).Observe(elapsed.Seconds())
	return Result{Tool: name, Status: "ok", Payload: payload, ElapsedMs: elapsed.Milliseconds()}
}

// invoke runs the handler in its own goroutine so a stuck handler turns
// into a timeout for the caller instead of a wedged dispatcher.
func (d *Dispatcher) invoke(ctx context.Context, tool *Tool, args map[string]any) (any, error) {
	type outcome struct {
		payload any
		err     error
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("tool handler panicked",
					slog.String("tool", tool.Name), slog.Any("panic", r))
				ch <- outcome{err: apperrors.New(apperrors.ErrInternal,
					fmt.Sprintf("tool %s failed unexpectedly", tool.Name), nil)}
			}
		}()
		payload, err := tool.Handler(ctx, args)
		ch <- outcome{payload: payload, err: err}
	}()

	timeoutErr := func() error {
		return apperrors.New(apperrors.ErrToolTimeout,
			fmt.Sprintf("tool %s exceeded the execution timeout", tool.Name), ctx.Err())
	}

	select {
	case out := <-ch:
		// A handler that noticed the expiry itself still reports a timeout.
		if out.err != nil && ctx.Err() == context.DeadlineExceeded {
			return nil, timeoutErr()
		}
		return out.payload, out.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, timeoutErr()
		}
		return nil, apperrors.Wrap(ctx.Err())
	}
}

func (d *Dispatcher) fail(name string, start time.Time, err error) Result {
	appErr := apperrors.Wrap(err)
	elapsed := time.Since(start)

	metrics.DispatchesTotal.WithLabelValues(name, "error").Inc()
	metrics.DispatchLatency.WithLabelValues(name).Observe(elapsed.Seconds())
	d.log.Warn("tool dispatch failed",
		slog.String("tool", name),
		slog.String("error_type", string(appErr.Type)),
		slog.String("message", appErr.Message))

	return Result{
		Tool:   name,
		Status: "error",
		Error: &Error{
			Type:       string(appErr.Type),
			Message:    appErr.Message,
			Suggestion: appErr.Suggestion,
			Reason:     appErr.Reason,
		},
		ElapsedMs: elapsed.Milliseconds(),
	}
}
