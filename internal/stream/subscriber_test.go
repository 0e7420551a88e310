package stream

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agentgate/agentgate/internal/config"
)

var upgrader = websocket.Upgrader{}

// wsServer accepts connections, records subscribe requests, and lets the
// test push frames or kill the connection.
type wsServer struct {
	*httptest.Server

	mu    sync.Mutex
	conns []*websocket.Conn
	subs  []subscribeRequest
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	ws := &wsServer{}
	ws.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ws.mu.Lock()
		ws.conns = append(ws.conns, conn)
		ws.mu.Unlock()

		for {
			var req subscribeRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			ws.mu.Lock()
			ws.subs = append(ws.subs, req)
			ws.mu.Unlock()
		}
	}))
	return ws
}

func (ws *wsServer) url() string {
	return "ws" + strings.TrimPrefix(ws.Server.URL, "http")
}

func (ws *wsServer) send(t *testing.T, payload string) {
	t.Helper()
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if len(ws.conns) == 0 {
		t.Fatalf("no connection to send on")
	}
	conn := ws.conns[len(ws.conns)-1]
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func (ws *wsServer) dropConnections() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for _, conn := range ws.conns {
		conn.Close()
	}
	ws.conns = nil
}

func (ws *wsServer) connCount() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.conns)
}

func testConfig(url string) config.StreamConfig {
	return config.StreamConfig{
		URL:                 url,
		MinBackoffMs:        10,
		MaxBackoffMs:        50,
		HeartbeatIntervalMs: 500,
		BufferSize:          16,
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestSubscriberConnectsAndTracksBook(t *testing.T) {
	srv := newWSServer(t)
	defer srv.Close()

	sub := NewSubscriber(testConfig(srv.url()))
	sub.Subscribe([]string{"tok-1"})
	sub.Start()
	defer sub.Stop()

	waitFor(t, 2*time.Second, func() bool { return sub.State() == StateConnected })

	srv.send(t, `{"event_type":"book","asset_id":"tok-1","bids":[{"price":"0.40","size":"10"}],"asks":[{"price":"0.60","size":"5"}]}`)

	waitFor(t, 2*time.Second, func() bool {
		book := sub.Book("tok-1")
		if book == nil {
			return false
		}
		bids, asks := book.GetCopy()
		return len(bids) == 1 && len(asks) == 1
	})

	bid, ask := sub.Book("tok-1").BestBidAsk()
	if bid.String() != "0.4" || ask.String() != "0.6" {
		t.Fatalf("unexpected book: %s / %s", bid, ask)
	}
}

func TestSubscriberDeliversEventsInOrder(t *testing.T) {
	srv := newWSServer(t)
	defer srv.Close()

	sub := NewSubscriber(testConfig(srv.url()))
	sub.Subscribe([]string{"tok-1"})

	ch, cancel := sub.Listen()
	defer cancel()

	sub.Start()
	defer sub.Stop()

	waitFor(t, 2*time.Second, func() bool { return sub.State() == StateConnected })

	srv.send(t, `{"event_type":"book","asset_id":"tok-1","hash":"h1"}`)
	srv.send(t, `[{"event_type":"price_change","asset_id":"tok-1","hash":"h2"},{"event_type":"price_change","asset_id":"tok-1","hash":"h3"}]`)

	var got []string
	for len(got) < 3 {
		select {
		case ev := <-ch:
			got = append(got, ev.Hash)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, received %v", got)
		}
	}
	if got[0] != "h1" || got[1] != "h2" || got[2] != "h3" {
		t.Fatalf("events out of order: %v", got)
	}
}

func TestSubscriberReconnectsAfterDrop(t *testing.T) {
	srv := newWSServer(t)
	defer srv.Close()

	sub := NewSubscriber(testConfig(srv.url()))
	sub.Subscribe([]string{"tok-1"})
	sub.Start()
	defer sub.Stop()

	waitFor(t, 2*time.Second, func() bool { return sub.State() == StateConnected })

	srv.dropConnections()

	// A new connection with the subscription replayed.
	waitFor(t, 3*time.Second, func() bool {
		return srv.connCount() > 0 && sub.State() == StateConnected
	})

	if sub.Status().Attempts == 0 && srv.connCount() == 0 {
		t.Fatalf("expected a reconnect to have happened")
	}

	srv.mu.Lock()
	resubscribed := false
	for _, req := range srv.subs {
		if len(req.AssetIDs) == 1 && req.AssetIDs[0] == "tok-1" && req.Type == "market" {
			resubscribed = true
		}
	}
	srv.mu.Unlock()
	if !resubscribed {
		t.Fatalf("subscription was not replayed on reconnect")
	}
}

func TestSubscriberStopIsTerminal(t *testing.T) {
	srv := newWSServer(t)
	defer srv.Close()

	sub := NewSubscriber(testConfig(srv.url()))
	sub.Start()

	waitFor(t, 2*time.Second, func() bool { return sub.State() == StateConnected })

	sub.Stop()
	if sub.State() != StateClosed {
		t.Fatalf("expected Closed after Stop, got %s", sub.State())
	}

	// No reconnect after Stop.
	time.Sleep(100 * time.Millisecond)
	if sub.State() != StateClosed {
		t.Fatalf("subscriber resurrected after Stop")
	}
}

func TestSubscriberConcurrentSubscribes(t *testing.T) {
	srv := newWSServer(t)
	defer srv.Close()

	sub := NewSubscriber(testConfig(srv.url()))
	sub.Start()
	defer sub.Stop()

	waitFor(t, 2*time.Second, func() bool { return sub.State() == StateConnected })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := sub.Subscribe([]string{fmt.Sprintf("tok-%d", i)}); err != nil {
				t.Errorf("Subscribe: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if got := len(sub.Status().Subscriptions); got != 50 {
		t.Fatalf("expected 50 subscriptions, got %d", got)
	}
	if sub.State() != StateConnected {
		t.Fatalf("connection lost under concurrent subscribes: %s", sub.State())
	}

	// The connection survived and still delivers frames.
	srv.send(t, `{"event_type":"book","asset_id":"tok-0","bids":[{"price":"0.40","size":"10"}]}`)
	waitFor(t, 2*time.Second, func() bool {
		book := sub.Book("tok-0")
		if book == nil {
			return false
		}
		bids, _ := book.GetCopy()
		return len(bids) == 1
	})
}

func TestSubscriberReconnectsWhenFeedGoesSilent(t *testing.T) {
	// Accepts connections but never writes a frame nor reads, so pings go
	// unanswered and the read deadline has to fire.
	var (
		mu    sync.Mutex
		conns int
	)
	hold := make(chan struct{})
	defer close(hold)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		conns++
		mu.Unlock()
		<-hold
		conn.Close()
	}))
	defer srv.Close()

	cfg := testConfig("ws" + strings.TrimPrefix(srv.URL, "http"))
	cfg.HeartbeatIntervalMs = 100

	sub := NewSubscriber(cfg)
	sub.Start()
	defer sub.Stop()

	waitFor(t, 2*time.Second, func() bool { return sub.State() == StateConnected })

	// A second accepted connection proves the silent one was abandoned
	// and redialed. Attempts is not polled here since it resets to zero
	// as soon as the redial succeeds.
	waitFor(t, 3*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return conns >= 2
	})
}

func TestSubscriberKeepsRetryingWhileServerDown(t *testing.T) {
	srv := newWSServer(t)
	url := srv.url()
	srv.Close()

	sub := NewSubscriber(testConfig(url))
	sub.Start()
	defer sub.Stop()

	waitFor(t, 2*time.Second, func() bool { return sub.Status().Attempts >= 2 })

	state := sub.State()
	if state != StateReconnecting && state != StateConnecting {
		t.Fatalf("expected Connecting/Reconnecting while server down, got %s", state)
	}
}
