package stream

import (
	"testing"
)

func TestOrderbookUpdateAndSort(t *testing.T) {
	ob := NewOrderbook("t1")

	for _, l := range [][2]string{{"0.40", "10"}, {"0.45", "20"}, {"0.42", "5"}} {
		if err := ob.Update("BUY", l[0], l[1]); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	for _, l := range [][2]string{{"0.55", "10"}, {"0.50", "20"}} {
		if err := ob.Update("SELL", l[0], l[1]); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	bids, asks := ob.GetCopy()
	if bids[0].Price.String() != "0.45" {
		t.Fatalf("bids not sorted high to low: %v", bids)
	}
	if asks[0].Price.String() != "0.5" {
		t.Fatalf("asks not sorted low to high: %v", asks)
	}

	bid, ask := ob.BestBidAsk()
	if bid.String() != "0.45" || ask.String() != "0.5" {
		t.Fatalf("unexpected top of book: %s / %s", bid, ask)
	}
}

func TestOrderbookZeroSizeRemovesLevel(t *testing.T) {
	ob := NewOrderbook("t1")
	ob.Update("BUY", "0.40", "10")
	ob.Update("BUY", "0.45", "20")
	ob.Update("BUY", "0.45", "0")

	bids, _ := ob.GetCopy()
	if len(bids) != 1 || bids[0].Price.String() != "0.4" {
		t.Fatalf("expected only 0.4 level left, got %v", bids)
	}
}

func TestOrderbookUpdateReplacesSize(t *testing.T) {
	ob := NewOrderbook("t1")
	ob.Update("SELL", "0.55", "10")
	ob.Update("SELL", "0.55", "42")

	_, asks := ob.GetCopy()
	if len(asks) != 1 || asks[0].Size.String() != "42" {
		t.Fatalf("expected single level with size 42, got %v", asks)
	}
}

func TestOrderbookRejectsUnparseablePrices(t *testing.T) {
	ob := NewOrderbook("t1")
	if err := ob.Update("BUY", "not-a-price", "10"); err == nil {
		t.Fatalf("expected error for invalid price")
	}
}

func TestOrderbookGetCopyIsIsolated(t *testing.T) {
	ob := NewOrderbook("t1")
	ob.Update("BUY", "0.40", "10")

	bids, _ := ob.GetCopy()
	bids[0].Size = bids[0].Size.Add(bids[0].Size)

	fresh, _ := ob.GetCopy()
	if fresh[0].Size.String() != "10" {
		t.Fatalf("GetCopy leaked internal state")
	}
}
