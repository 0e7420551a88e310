package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agentgate/agentgate/internal/config"
	"github.com/agentgate/agentgate/internal/pkg/apperrors"
	"github.com/agentgate/agentgate/internal/ratelimit"
)

func newTestClient(t *testing.T, gammaURL, clobURL string) *Client {
	t.Helper()
	limiter := ratelimit.New(ratelimit.Bucket{RPS: 1000, Burst: 1000}, nil)
	return NewClient(config.UpstreamConfig{
		GammaBaseURL: gammaURL,
		ClobBaseURL:  clobURL,
		TimeoutMs:    2000,
	}, limiter)
}

func errType(t *testing.T, err error) apperrors.ErrorType {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error")
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	return appErr.Type
}

func TestListMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "2" {
			t.Fatalf("expected limit=2, got %q", got)
		}
		w.Write([]byte(`[
			{"id":"m1","question":"Will it rain?","volume":10,"tokens":[{"token_id":"t1","outcome":"Yes"}]},
			{"id":"m2","question":"Will it snow?","volume":5,"tokens":[{"token_id":"t2","outcome":"Yes"}]}
		]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, srv.URL)
	markets, err := client.ListMarkets(context.Background(), &MarketsFilter{Limit: 2})
	if err != nil {
		t.Fatalf("ListMarkets: %v", err)
	}
	if len(markets) != 2 || markets[0].ID != "m1" {
		t.Fatalf("unexpected markets: %+v", markets)
	}
}

func TestGetMarketNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, srv.URL)
	_, err := client.GetMarket(context.Background(), "missing")
	if got := errType(t, err); got != apperrors.ErrNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", got)
	}
}

func TestUpstreamErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, srv.URL)
	_, err := client.GetMarket(context.Background(), "m1")

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Type != apperrors.ErrUpstream {
		t.Fatalf("expected UPSTREAM_ERROR, got %s", appErr.Type)
	}
	if appErr.UpstreamStatus != http.StatusBadGateway {
		t.Fatalf("expected status 502 recorded, got %d", appErr.UpstreamStatus)
	}
}

func TestTimeoutIsDistinctFromUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	limiter := ratelimit.New(ratelimit.Bucket{RPS: 1000, Burst: 1000}, nil)
	client := NewClient(config.UpstreamConfig{
		GammaBaseURL: srv.URL,
		ClobBaseURL:  srv.URL,
		TimeoutMs:    50,
	}, limiter)

	_, err := client.GetMarket(context.Background(), "m1")
	if got := errType(t, err); got != apperrors.ErrUpstreamTimeout {
		t.Fatalf("expected UPSTREAM_TIMEOUT, got %s", got)
	}
}

func TestDataContractViolationOnMissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 200 but missing the required question field.
		w.Write([]byte(`{"id":"m1","tokens":[{"token_id":"t1"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, srv.URL)
	_, err := client.GetMarket(context.Background(), "m1")
	if got := errType(t, err); got != apperrors.ErrDataContract {
		t.Fatalf("expected DATA_CONTRACT, got %s", got)
	}
}

func TestDataContractViolationOnMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "m1",`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, srv.URL)
	_, err := client.GetMarket(context.Background(), "m1")
	if got := errType(t, err); got != apperrors.ErrDataContract {
		t.Fatalf("expected DATA_CONTRACT, got %s", got)
	}
}

func TestRateLimitDenialSkipsNetwork(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	limiter := ratelimit.New(ratelimit.Bucket{RPS: 1, Burst: 1}, nil)
	client := NewClient(config.UpstreamConfig{
		GammaBaseURL: srv.URL,
		ClobBaseURL:  srv.URL,
		TimeoutMs:    1000,
	}, limiter)

	if _, err := client.ListMarkets(context.Background(), nil); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}
	_, err := client.ListMarkets(context.Background(), nil)
	if got := errType(t, err); got != apperrors.ErrRateLimit {
		t.Fatalf("expected RATE_LIMIT_EXCEEDED, got %s", got)
	}
	if hits != 1 {
		t.Fatalf("denied call must not reach the network, got %d hits", hits)
	}
}

func TestGetOrderBook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/book" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("token_id"); got != "t1" {
			t.Fatalf("expected token_id=t1, got %q", got)
		}
		w.Write([]byte(`{"asset_id":"t1","bids":[{"price":"0.45","size":"100"}],"asks":[{"price":"0.55","size":"80"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, srv.URL)
	book, err := client.GetOrderBook(context.Background(), "t1")
	if err != nil {
		t.Fatalf("GetOrderBook: %v", err)
	}
	spread, ok := book.Spread()
	if !ok {
		t.Fatalf("expected a spread")
	}
	if spread.String() != "0.1" {
		t.Fatalf("expected spread 0.1, got %s", spread)
	}
	mid, _ := book.Midpoint()
	if mid.String() != "0.5" {
		t.Fatalf("expected midpoint 0.5, got %s", mid)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ping" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"OK"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, srv.URL)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
