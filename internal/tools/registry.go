// Package tools registers the gateway's tool surface: what an agent can
// invoke, each behind schema validation and the governance layers.
package tools

import (
	"github.com/agentgate/agentgate/internal/dispatch"
	"github.com/agentgate/agentgate/internal/execution"
	"github.com/agentgate/agentgate/internal/safety"
	"github.com/agentgate/agentgate/internal/stream"
	"github.com/agentgate/agentgate/internal/upstream"
)

// Deps carries everything the tool handlers reach for.
type Deps struct {
	Upstream  *upstream.Client
	Stream    *stream.Subscriber
	Validator *safety.Validator
	Exposure  safety.ExposureStore
	Executor  execution.Executor
}

// RegisterAll wires every tool into the dispatcher. Called once at
// startup; duplicate registration panics inside the dispatcher.
func RegisterAll(d *dispatch.Dispatcher, deps Deps) {
	registerMarketTools(d, deps)
	registerStreamTools(d, deps)
	registerTradingTools(d, deps)
}

func f64(v float64) *float64 { return &v }
