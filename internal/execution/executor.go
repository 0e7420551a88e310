// Package execution places and cancels orders. The paper executor is the
// default; the live executor talks to the CLOB through the SDK and is
// only wired when credentials are configured and demo mode is off.
package execution

import (
	"context"
	"time"
)

// OrderRequest is a validated order ready for execution. Safety checks
// have already passed by the time a request reaches an executor.
type OrderRequest struct {
	TokenID   string  `json:"token_id"`
	Side      string  `json:"side"` // "BUY" or "SELL"
	Price     float64 `json:"price"`
	Size      float64 `json:"size"`
	SizeUSD   float64 `json:"size_usd"`
	OrderType string  `json:"order_type,omitempty"` // GTC, GTD, FAK, FOK
}

// OrderResult is the execution outcome.
type OrderResult struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	TokenID   string    `json:"token_id"`
	Side      string    `json:"side"`
	Price     float64   `json:"price"`
	Size      float64   `json:"size"`
	Simulated bool      `json:"simulated"`
	PlacedAt  time.Time `json:"placed_at"`
}

// CancelResult reports a cancellation outcome. The CLOB acknowledges
// cancels with a status and a count; the paper executor additionally
// lists the ids it removed.
type CancelResult struct {
	Status   string   `json:"status"`
	Count    int      `json:"count"`
	Canceled []string `json:"canceled,omitempty"`
}

// Executor is the order execution surface.
type Executor interface {
	// Mode identifies the executor for status and audit output.
	Mode() string
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) (*CancelResult, error)
	CancelAll(ctx context.Context) (*CancelResult, error)
}
