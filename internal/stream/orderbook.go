package stream

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Level is a single price level in the live book.
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// Orderbook is the in-memory state of one token's book, maintained from
// stream messages. Bids sorted high to low, asks low to high.
type Orderbook struct {
	TokenID     string
	Bids        []Level
	Asks        []Level
	LastUpdated time.Time
	mu          sync.RWMutex
}

func NewOrderbook(tokenID string) *Orderbook {
	return &Orderbook{
		TokenID: tokenID,
		Bids:    make([]Level, 0),
		Asks:    make([]Level, 0),
	}
}

// Update applies a price/size update; size 0 removes the level.
func (ob *Orderbook) Update(side string, priceStr, sizeStr string) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return err
	}
	size, err := decimal.NewFromString(sizeStr)
	if err != nil {
		return err
	}

	if side == "BUY" {
		ob.updateLevel(&ob.Bids, price, size, true)
	} else {
		ob.updateLevel(&ob.Asks, price, size, false)
	}
	ob.LastUpdated = time.Now()
	return nil
}

func (ob *Orderbook) updateLevel(levels *[]Level, price, size decimal.Decimal, descending bool) {
	// Linear scan. Polymarket books are sparse; slices stay fast enough.
	idx := -1
	for i, l := range *levels {
		if l.Price.Equal(price) {
			idx = i
			break
		}
	}

	if size.IsZero() {
		if idx != -1 {
			*levels = append((*levels)[:idx], (*levels)[idx+1:]...)
		}
		return
	}

	if idx != -1 {
		(*levels)[idx].Size = size
		return
	}

	*levels = append(*levels, Level{Price: price, Size: size})
	if descending {
		sort.Slice(*levels, func(i, j int) bool {
			return (*levels)[i].Price.GreaterThan((*levels)[j].Price)
		})
	} else {
		sort.Slice(*levels, func(i, j int) bool {
			return (*levels)[i].Price.LessThan((*levels)[j].Price)
		})
	}
}

// GetCopy returns a safe copy of the current state.
func (ob *Orderbook) GetCopy() (bids, asks []Level) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	bids = make([]Level, len(ob.Bids))
	copy(bids, ob.Bids)
	asks = make([]Level, len(ob.Asks))
	copy(asks, ob.Asks)
	return
}

// BestBidAsk returns the top of each side; a zero decimal means the side
// is empty.
func (ob *Orderbook) BestBidAsk() (bid, ask decimal.Decimal) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	if len(ob.Bids) > 0 {
		bid = ob.Bids[0].Price
	}
	if len(ob.Asks) > 0 {
		ask = ob.Asks[0].Price
	}
	return
}

// Age reports how stale the book is.
func (ob *Orderbook) Age() time.Duration {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	if ob.LastUpdated.IsZero() {
		return -1
	}
	return time.Since(ob.LastUpdated)
}
