package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agentgate/agentgate/internal/config"
	"github.com/agentgate/agentgate/internal/dispatch"
	"github.com/agentgate/agentgate/internal/execution"
	"github.com/agentgate/agentgate/internal/pkg/apperrors"
	"github.com/agentgate/agentgate/internal/ratelimit"
	"github.com/agentgate/agentgate/internal/safety"
	"github.com/agentgate/agentgate/internal/stream"
	"github.com/agentgate/agentgate/internal/upstream"
)

// upstreamStub serves canned gamma and clob responses.
func upstreamStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/markets", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":"m1","question":"Will BTC close above 100k?","slug":"btc-100k","volume":5000,"volume24hr":900,"active":true,"tokens":[{"token_id":"t1","outcome":"Yes","price":0.45}]},
			{"id":"m2","question":"Will ETH flip BTC?","slug":"eth-flip","volume":100,"volume24hr":2000,"active":true,"tokens":[{"token_id":"t2","outcome":"Yes","price":0.05}]}
		]`))
	})
	mux.HandleFunc("/markets/m1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"m1","question":"Will BTC close above 100k?","tokens":[{"token_id":"t1","outcome":"Yes","price":0.45}]}`))
	})
	mux.HandleFunc("/book", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"asset_id":"t1","bids":[{"price":"0.44","size":"1000"}],"asks":[{"price":"0.46","size":"1500"}]}`))
	})
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"OK"}`))
	})
	return httptest.NewServer(mux)
}

func testDeps(t *testing.T, srvURL string, limits safety.Limits) (*dispatch.Dispatcher, Deps) {
	t.Helper()
	limiter := ratelimit.New(ratelimit.Bucket{RPS: 1000, Burst: 1000}, nil)
	deps := Deps{
		Upstream: upstream.NewClient(config.UpstreamConfig{
			GammaBaseURL: srvURL,
			ClobBaseURL:  srvURL,
			TimeoutMs:    2000,
		}, limiter),
		Stream:    stream.NewSubscriber(config.StreamConfig{URL: "ws://127.0.0.1:1/ws"}),
		Validator: safety.NewValidator(limits, nil),
		Exposure:  safety.NewMemoryExposureStore(),
		Executor:  execution.NewPaperExecutor(),
	}
	d := dispatch.NewDispatcher(5 * time.Second)
	RegisterAll(d, deps)
	return d, deps
}

func TestSearchMarketsFiltersByQuery(t *testing.T) {
	srv := upstreamStub(t)
	defer srv.Close()
	d, _ := testDeps(t, srv.URL, safety.Limits{})

	result := d.Dispatch(context.Background(), "search_markets", map[string]any{"query": "btc close"})
	if result.Status != "ok" {
		t.Fatalf("search failed: %+v", result.Error)
	}
	payload := result.Payload.(map[string]any)
	if payload["count"].(int) != 1 {
		t.Fatalf("expected one match, got %v", payload["count"])
	}
}

func TestSearchMarketsMinVolume(t *testing.T) {
	srv := upstreamStub(t)
	defer srv.Close()
	d, _ := testDeps(t, srv.URL, safety.Limits{})

	result := d.Dispatch(context.Background(), "search_markets",
		map[string]any{"query": "will", "min_volume": 1000.0})
	payload := result.Payload.(map[string]any)
	if payload["count"].(int) != 1 {
		t.Fatalf("min_volume should drop the low-volume market, got %v", payload["count"])
	}
}

func TestTrendingOrdersBy24hVolume(t *testing.T) {
	srv := upstreamStub(t)
	defer srv.Close()
	d, _ := testDeps(t, srv.URL, safety.Limits{})

	result := d.Dispatch(context.Background(), "get_trending_markets", map[string]any{"limit": 2.0})
	if result.Status != "ok" {
		t.Fatalf("trending failed: %+v", result.Error)
	}
	payload := result.Payload.(map[string]any)
	markets := payload["markets"].([]upstream.Market)
	if markets[0].ID != "m2" {
		t.Fatalf("expected m2 (higher 24h volume) first, got %s", markets[0].ID)
	}
}

func TestGetSpread(t *testing.T) {
	srv := upstreamStub(t)
	defer srv.Close()
	d, _ := testDeps(t, srv.URL, safety.Limits{})

	result := d.Dispatch(context.Background(), "get_spread", map[string]any{"token_id": "t1"})
	if result.Status != "ok" {
		t.Fatalf("get_spread failed: %+v", result.Error)
	}
	payload := result.Payload.(map[string]any)
	if payload["spread"] != "0.02" {
		t.Fatalf("expected spread 0.02, got %v", payload["spread"])
	}
}

func TestValidateTradeReportsReason(t *testing.T) {
	srv := upstreamStub(t)
	defer srv.Close()
	d, _ := testDeps(t, srv.URL, safety.Limits{MaxOrderSizeUSD: 100})

	result := d.Dispatch(context.Background(), "validate_trade", map[string]any{
		"token_id": "t1", "side": "BUY", "price": 0.5, "size": 400.0,
	})
	if result.Status != "ok" {
		t.Fatalf("validate_trade should not error on rejection: %+v", result.Error)
	}
	payload := result.Payload.(map[string]any)
	if payload["ok"].(bool) {
		t.Fatalf("expected rejection")
	}
	if payload["reason"] != safety.ReasonOrderTooLarge {
		t.Fatalf("expected OrderTooLarge, got %v", payload["reason"])
	}
}

func TestPlaceOrderCommitsExposureOnConfirmation(t *testing.T) {
	srv := upstreamStub(t)
	defer srv.Close()
	d, deps := testDeps(t, srv.URL, safety.Limits{MaxOrderSizeUSD: 100, MaxTotalExposureUSD: 1000})

	result := d.Dispatch(context.Background(), "place_order", map[string]any{
		"token_id": "t1", "side": "BUY", "price": 0.5, "size": 100.0,
	})
	if result.Status != "ok" {
		t.Fatalf("place_order failed: %+v", result.Error)
	}

	snap, _ := deps.Exposure.Snapshot(context.Background())
	if snap.TotalUSD != 50 {
		t.Fatalf("expected committed exposure 50, got %v", snap.TotalUSD)
	}
	if snap.PerMarket["t1"] != 50 {
		t.Fatalf("expected per-market exposure 50, got %v", snap.PerMarket["t1"])
	}
}

func TestPlaceOrderRejectedLeavesExposureUntouched(t *testing.T) {
	srv := upstreamStub(t)
	defer srv.Close()
	d, deps := testDeps(t, srv.URL, safety.Limits{MaxOrderSizeUSD: 10})

	result := d.Dispatch(context.Background(), "place_order", map[string]any{
		"token_id": "t1", "side": "BUY", "price": 0.5, "size": 100.0,
	})
	if result.Status != "error" || result.Error.Type != string(apperrors.ErrSafety) {
		t.Fatalf("expected SAFETY_VIOLATION, got %+v", result)
	}
	if result.Error.Reason != safety.ReasonOrderTooLarge {
		t.Fatalf("expected OrderTooLarge reason, got %s", result.Error.Reason)
	}

	snap, _ := deps.Exposure.Snapshot(context.Background())
	if snap.TotalUSD != 0 {
		t.Fatalf("rejected order must not commit exposure, got %v", snap.TotalUSD)
	}
}

func TestGetLiveBookRequiresSubscription(t *testing.T) {
	srv := upstreamStub(t)
	defer srv.Close()
	d, _ := testDeps(t, srv.URL, safety.Limits{})

	result := d.Dispatch(context.Background(), "get_live_book", map[string]any{"token_id": "t9"})
	if result.Status != "error" || result.Error.Type != string(apperrors.ErrNotFound) {
		t.Fatalf("expected NOT_FOUND for unsubscribed token, got %+v", result)
	}
}

func TestGetSafetyLimits(t *testing.T) {
	srv := upstreamStub(t)
	defer srv.Close()
	d, _ := testDeps(t, srv.URL, safety.Limits{MaxOrderSizeUSD: 100, MaxSpreadTolerance: 0.1})

	result := d.Dispatch(context.Background(), "get_safety_limits", nil)
	if result.Status != "ok" {
		t.Fatalf("get_safety_limits failed: %+v", result.Error)
	}
	payload := result.Payload.(map[string]any)
	if payload["max_order_size_usd"].(float64) != 100 {
		t.Fatalf("unexpected limits payload: %+v", payload)
	}
	if payload["executor_mode"] != "paper" {
		t.Fatalf("expected paper executor, got %v", payload["executor_mode"])
	}
}
