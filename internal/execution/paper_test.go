package execution

import (
	"context"
	"errors"
	"testing"

	"github.com/agentgate/agentgate/internal/pkg/apperrors"
)

func TestPaperPlaceOrderFillsInstantly(t *testing.T) {
	p := NewPaperExecutor()

	result, err := p.PlaceOrder(context.Background(), OrderRequest{
		TokenID: "tok-1",
		Side:    "BUY",
		Price:   0.45,
		Size:    100,
		SizeUSD: 45,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if result.OrderID == "" {
		t.Fatalf("expected an order id")
	}
	if !result.Simulated {
		t.Fatalf("paper orders must be flagged simulated")
	}
	if result.Status != "matched" {
		t.Fatalf("expected matched, got %s", result.Status)
	}
}

func TestPaperCancelOrder(t *testing.T) {
	p := NewPaperExecutor()
	ctx := context.Background()

	placed, _ := p.PlaceOrder(ctx, OrderRequest{TokenID: "tok-1", Side: "BUY", Price: 0.5, Size: 10})

	res, err := p.CancelOrder(ctx, placed.OrderID)
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if len(res.Canceled) != 1 || res.Canceled[0] != placed.OrderID {
		t.Fatalf("unexpected cancel result: %+v", res)
	}
	if res.Status != "canceled" || res.Count != 1 {
		t.Fatalf("unexpected cancel ack: %+v", res)
	}

	// Cancelling again is NotFound.
	_, err = p.CancelOrder(ctx, placed.OrderID)
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Type != apperrors.ErrNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestPaperCancelAll(t *testing.T) {
	p := NewPaperExecutor()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p.PlaceOrder(ctx, OrderRequest{TokenID: "tok-1", Side: "BUY", Price: 0.5, Size: 10})
	}

	res, err := p.CancelAll(ctx)
	if err != nil {
		t.Fatalf("CancelAll: %v", err)
	}
	if len(res.Canceled) != 3 || res.Count != 3 {
		t.Fatalf("expected 3 canceled, got %+v", res)
	}

	again, _ := p.CancelAll(ctx)
	if len(again.Canceled) != 0 {
		t.Fatalf("expected empty second cancel, got %+v", again)
	}
}
