// Package stream maintains a resilient websocket subscription to the
// Polymarket market channel. It owns the connection lifecycle, keeps
// per-token order books current, and fans inbound frames out to
// registered listeners in arrival order.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agentgate/agentgate/internal/config"
	"github.com/agentgate/agentgate/internal/pkg/logger"
	"github.com/agentgate/agentgate/internal/pkg/metrics"
)

// State is the connection lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is one market-channel event as delivered upstream. Frames may
// carry a single event or an array; both are split into Events.
type Event struct {
	EventType string          `json:"event_type"`
	AssetID   string          `json:"asset_id"`
	Market    string          `json:"market"`
	Bids      []rawLevel      `json:"bids"`
	Asks      []rawLevel      `json:"asks"`
	Changes   []priceChange   `json:"changes"`
	Hash      string          `json:"hash"`
	Raw       json.RawMessage `json:"-"`
}

type rawLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type priceChange struct {
	Price string `json:"price"`
	Side  string `json:"side"`
	Size  string `json:"size"`
}

type subscribeRequest struct {
	AssetIDs []string `json:"assets_ids"`
	Type     string   `json:"type"`
}

// Status is a point-in-time snapshot for the status endpoint.
type Status struct {
	State         string    `json:"state"`
	Attempts      int64     `json:"reconnect_attempts"`
	Subscriptions []string  `json:"subscriptions"`
	LastMessageAt time.Time `json:"last_message_at,omitempty"`
}

// Subscriber owns one websocket connection and its reconnect loop.
type Subscriber struct {
	url        string
	backoff    Backoff
	heartbeat  time.Duration
	bufferSize int

	dialer *websocket.Dialer
	log    *slog.Logger

	mu     sync.RWMutex
	conn   *websocket.Conn
	assets []string
	books  map[string]*Orderbook

	// writeMu serializes WriteJSON; gorilla allows one concurrent writer
	// and Subscribe can race the run loop's own post-connect subscribe.
	writeMu sync.Mutex

	listenMu  sync.RWMutex
	listeners map[int]chan Event
	nextID    int

	state    atomic.Int32
	attempts atomic.Int64
	lastMsg  atomic.Int64 // unix nanos of the last inbound frame

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSubscriber(cfg config.StreamConfig) *Subscriber {
	heartbeat := cfg.HeartbeatInterval()
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	backoff := Backoff{Min: cfg.MinBackoff(), Max: cfg.MaxBackoff(), Jitter: cfg.BackoffJitter}
	if backoff.Min <= 0 {
		backoff = DefaultBackoff()
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 256
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscriber{
		url:        cfg.URL,
		backoff:    backoff,
		heartbeat:  heartbeat,
		bufferSize: bufferSize,
		dialer:     websocket.DefaultDialer,
		log:        logger.Component("stream"),
		books:      make(map[string]*Orderbook),
		listeners:  make(map[int]chan Event),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	s.state.Store(int32(StateDisconnected))
	return s
}

// Start launches the connect/read/reconnect loop. Call once.
func (s *Subscriber) Start() {
	go s.run()
}

// Stop closes the connection and terminates the loop. The subscriber
// cannot be restarted afterwards.
func (s *Subscriber) Stop() {
	s.cancel()

	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()

	<-s.done
	s.setState(StateClosed)
}

// Subscribe adds token IDs to the subscription set. On a live connection
// the request is sent immediately; otherwise it takes effect on the next
// (re)connect.
func (s *Subscriber) Subscribe(tokenIDs []string) error {
	s.mu.Lock()
	added := make([]string, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		if id == "" || s.books[id] != nil {
			continue
		}
		s.books[id] = NewOrderbook(id)
		s.assets = append(s.assets, id)
		added = append(added, id)
	}
	conn := s.conn
	all := make([]string, len(s.assets))
	copy(all, s.assets)
	s.mu.Unlock()

	if len(added) == 0 || conn == nil {
		return nil
	}
	return s.sendSubscribe(conn, all)
}

// Listen registers a fan-out channel. Events are delivered in arrival
// order; a listener that falls behind has frames dropped rather than
// stalling the read loop. The returned func unregisters the listener.
func (s *Subscriber) Listen() (<-chan Event, func()) {
	s.listenMu.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan Event, s.bufferSize)
	s.listeners[id] = ch
	s.listenMu.Unlock()

	return ch, func() {
		s.listenMu.Lock()
		if c, ok := s.listeners[id]; ok {
			delete(s.listeners, id)
			close(c)
		}
		s.listenMu.Unlock()
	}
}

// Book returns the live order book for a subscribed token, or nil.
func (s *Subscriber) Book(tokenID string) *Orderbook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.books[tokenID]
}

func (s *Subscriber) State() State {
	return State(s.state.Load())
}

func (s *Subscriber) Status() Status {
	s.mu.RLock()
	subs := make([]string, len(s.assets))
	copy(subs, s.assets)
	s.mu.RUnlock()

	st := Status{
		State:         s.State().String(),
		Attempts:      s.attempts.Load(),
		Subscriptions: subs,
	}
	if ns := s.lastMsg.Load(); ns > 0 {
		st.LastMessageAt = time.Unix(0, ns)
	}
	return st
}

func (s *Subscriber) setState(st State) {
	s.state.Store(int32(st))
}

func (s *Subscriber) run() {
	defer close(s.done)

	for {
		if s.ctx.Err() != nil {
			s.setState(StateDisconnected)
			return
		}

		s.setState(StateConnecting)
		conn, _, err := s.dialer.DialContext(s.ctx, s.url, nil)
		if err != nil {
			if s.ctx.Err() != nil {
				s.setState(StateDisconnected)
				return
			}
			s.scheduleReconnect(err)
			continue
		}

		s.mu.Lock()
		s.conn = conn
		assets := make([]string, len(s.assets))
		copy(assets, s.assets)
		s.mu.Unlock()

		if err := s.sendSubscribe(conn, assets); err != nil {
			conn.Close()
			s.scheduleReconnect(err)
			continue
		}

		s.setState(StateConnected)
		s.attempts.Store(0)
		s.log.Info("stream connected", slog.String("url", s.url), slog.Int("subscriptions", len(assets)))

		err = s.readLoop(conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()

		if s.ctx.Err() != nil {
			s.setState(StateDisconnected)
			return
		}
		s.scheduleReconnect(err)
	}
}

func (s *Subscriber) scheduleReconnect(cause error) {
	s.setState(StateReconnecting)
	attempt := s.attempts.Add(1)
	metrics.StreamReconnects.Inc()

	delay := s.backoff.Delay(int(attempt))
	s.log.Warn("stream disconnected, reconnecting",
		slog.Int64("attempt", attempt),
		slog.Duration("delay", delay),
		slog.Any("error", cause))

	select {
	case <-s.ctx.Done():
	case <-time.After(delay):
	}
}

func (s *Subscriber) sendSubscribe(conn *websocket.Conn, assets []string) error {
	if len(assets) == 0 {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(subscribeRequest{AssetIDs: assets, Type: "market"})
}

// readLoop pumps frames until the connection breaks. Liveness is a read
// deadline refreshed on every frame and pong; a silent connection times
// out and triggers a reconnect instead of hanging forever.
func (s *Subscriber) readLoop(conn *websocket.Conn) error {
	deadline := s.heartbeat * 2
	conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(deadline))
		return nil
	})

	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		ticker := time.NewTicker(s.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-stopPing:
				return
			case <-ticker.C:
				conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(deadline))
		s.lastMsg.Store(time.Now().UnixNano())
		s.handleFrame(data)
	}
}

func (s *Subscriber) handleFrame(data []byte) {
	events := parseFrame(data)
	for _, ev := range events {
		s.applyEvent(ev)
		s.fanOut(ev)
	}
}

// parseFrame splits a frame into events. The market channel sends both
// bare objects and arrays of objects.
func parseFrame(data []byte) []Event {
	if len(data) == 0 {
		return nil
	}
	if data[0] == '[' {
		var raws []json.RawMessage
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil
		}
		events := make([]Event, 0, len(raws))
		for _, r := range raws {
			var ev Event
			if err := json.Unmarshal(r, &ev); err != nil {
				continue
			}
			ev.Raw = r
			events = append(events, ev)
		}
		return events
	}

	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil
	}
	ev.Raw = data
	return []Event{ev}
}

func (s *Subscriber) applyEvent(ev Event) {
	book := s.Book(ev.AssetID)
	if book == nil {
		return
	}

	switch ev.EventType {
	case "book":
		// Full snapshot replaces incremental state.
		fresh := NewOrderbook(ev.AssetID)
		for _, l := range ev.Bids {
			fresh.Update("BUY", l.Price, l.Size)
		}
		for _, l := range ev.Asks {
			fresh.Update("SELL", l.Price, l.Size)
		}
		bids, asks := fresh.GetCopy()
		book.mu.Lock()
		book.Bids = bids
		book.Asks = asks
		book.LastUpdated = time.Now()
		book.mu.Unlock()
	case "price_change":
		for _, ch := range ev.Changes {
			if err := book.Update(ch.Side, ch.Price, ch.Size); err != nil {
				s.log.Debug("unparseable price change",
					slog.String("asset_id", ev.AssetID), slog.Any("error", err))
			}
		}
	}
}

func (s *Subscriber) fanOut(ev Event) {
	s.listenMu.RLock()
	defer s.listenMu.RUnlock()
	for _, ch := range s.listeners {
		select {
		case ch <- ev:
		default:
			// Listener is full; drop rather than block the read loop.
		}
	}
}
