package upstream

import (
	"github.com/agentgate/agentgate/internal/pkg/apperrors"
	"github.com/shopspring/decimal"
)

// Market mirrors the upstream market object. Read-only; fetched on demand
// and never cached beyond a single handler invocation.
type Market struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	Description string   `json:"description,omitempty"`
	Slug        string   `json:"slug,omitempty"`
	Category    string   `json:"category,omitempty"`
	Active      bool     `json:"active"`
	Closed      bool     `json:"closed"`
	Volume      float64  `json:"volume"`
	Volume24hr  float64  `json:"volume24hr"`
	Liquidity   float64  `json:"liquidity"`
	EndDate     string   `json:"end_date_iso,omitempty"`
	Tokens      []Token  `json:"tokens"`
	Tags        []string `json:"tags,omitempty"`
}

type Token struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
}

// Validate checks the fields every consumer relies on. A 200 response
// missing these is reported as DataContract, distinct from a transport
// error.
func (m *Market) Validate() error {
	if m.ID == "" {
		return apperrors.New(apperrors.ErrDataContract, "market response missing id", nil)
	}
	if m.Question == "" {
		return apperrors.New(apperrors.ErrDataContract, "market response missing question", nil)
	}
	for _, t := range m.Tokens {
		if t.TokenID == "" {
			return apperrors.New(apperrors.ErrDataContract, "market token missing token_id", nil)
		}
	}
	return nil
}

type Level struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// OrderBook mirrors the CLOB book response. Prices and sizes stay as the
// upstream strings; decimal helpers below do the math.
type OrderBook struct {
	Market  string  `json:"market,omitempty"`
	AssetID string  `json:"asset_id"`
	Bids    []Level `json:"bids"`
	Asks    []Level `json:"asks"`
	Hash    string  `json:"hash,omitempty"`
}

func (b *OrderBook) Validate() error {
	if b.AssetID == "" {
		return apperrors.New(apperrors.ErrDataContract, "order book response missing asset_id", nil)
	}
	return nil
}

// BestBid returns the highest bid, or false when the side is empty.
func (b *OrderBook) BestBid() (decimal.Decimal, bool) {
	return bestLevel(b.Bids, func(cur, best decimal.Decimal) bool { return cur.GreaterThan(best) })
}

// BestAsk returns the lowest ask, or false when the side is empty.
func (b *OrderBook) BestAsk() (decimal.Decimal, bool) {
	return bestLevel(b.Asks, func(cur, best decimal.Decimal) bool { return cur.LessThan(best) })
}

// Spread is best ask minus best bid. Returns false unless both sides
// have at least one parseable level.
func (b *OrderBook) Spread() (decimal.Decimal, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return decimal.Zero, false
	}
	return ask.Sub(bid), true
}

func (b *OrderBook) Midpoint() (decimal.Decimal, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return decimal.Zero, false
	}
	return ask.Add(bid).Div(decimal.NewFromInt(2)), true
}

// Depth sums the size of every parseable level on one side, a rough
// available-liquidity figure for safety checks.
func Depth(levels []Level) decimal.Decimal {
	total := decimal.Zero
	for _, l := range levels {
		size, err := decimal.NewFromString(l.Size)
		if err != nil {
			continue
		}
		total = total.Add(size)
	}
	return total
}

func bestLevel(levels []Level, better func(cur, best decimal.Decimal) bool) (decimal.Decimal, bool) {
	best := decimal.Zero
	found := false
	for _, l := range levels {
		p, err := decimal.NewFromString(l.Price)
		if err != nil {
			continue
		}
		if !found || better(p, best) {
			best = p
			found = true
		}
	}
	return best, found
}

// MarketsFilter holds the supported /markets query parameters.
type MarketsFilter struct {
	Limit  int
	Offset int
	Order  string
	Tag    string
	Active *bool
	Closed *bool
}
