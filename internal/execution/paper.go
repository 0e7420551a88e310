package execution

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentgate/agentgate/internal/pkg/apperrors"
)

// PaperExecutor simulates execution in memory. Orders fill instantly at
// the requested price and are tracked so cancels behave sensibly.
type PaperExecutor struct {
	mu     sync.Mutex
	orders map[string]*OrderResult
}

func NewPaperExecutor() *PaperExecutor {
	return &PaperExecutor{orders: make(map[string]*OrderResult)}
}

func (p *PaperExecutor) Mode() string { return "paper" }

func (p *PaperExecutor) PlaceOrder(_ context.Context, req OrderRequest) (*OrderResult, error) {
	result := &OrderResult{
		OrderID:   uuid.NewString(),
		Status:    "matched",
		TokenID:   req.TokenID,
		Side:      req.Side,
		Price:     req.Price,
		Size:      req.Size,
		Simulated: true,
		PlacedAt:  time.Now(),
	}

	p.mu.Lock()
	p.orders[result.OrderID] = result
	p.mu.Unlock()

	return result, nil
}

func (p *PaperExecutor) CancelOrder(_ context.Context, orderID string) (*CancelResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.orders[orderID]; !ok {
		return nil, apperrors.NewNotFound("order " + orderID + " not found")
	}
	delete(p.orders, orderID)
	return &CancelResult{Status: "canceled", Count: 1, Canceled: []string{orderID}}, nil
}

func (p *PaperExecutor) CancelAll(_ context.Context) (*CancelResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	canceled := make([]string, 0, len(p.orders))
	for id := range p.orders {
		canceled = append(canceled, id)
	}
	p.orders = make(map[string]*OrderResult)
	return &CancelResult{Status: "canceled", Count: len(canceled), Canceled: canceled}, nil
}
