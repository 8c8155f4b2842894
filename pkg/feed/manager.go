package feed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

// Manager owns a single persistent WebSocket connection to the venue's
// market-data channel, decodes frames into typed FeedEvents, and
// reconnects (with resubscription) on any disconnect or parse-fatal error.
type Manager struct {
	url          string
	conn         *websocket.Conn
	logger       *zap.Logger
	reconnectMgr *ReconnectManager
	config       Config
	eventChan    chan types.FeedEvent
	staleChan    chan types.TokenID // tokens to mark forced-stale after a reconnect
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.RWMutex
	subscribed   map[string]bool
	connected    atomic.Bool
	connStart    atomic.Int64
}

// Config holds Feed Client manager configuration.
type Config struct {
	URL               string
	DialTimeout       time.Duration
	PongTimeout       time.Duration
	PingInterval      time.Duration
	IdleTimeout       time.Duration // liveness: reconnect if no message for this long
	ReconnectMinDelay time.Duration
	ReconnectMaxDelay time.Duration
	EventBufferSize   int
	Logger            *zap.Logger
}

// New creates a new Feed Client connection manager.
func New(cfg Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		url:    cfg.URL,
		logger: cfg.Logger,
		reconnectMgr: NewReconnectManager(ReconnectConfig{
			MinDelay: cfg.ReconnectMinDelay,
			MaxDelay: cfg.ReconnectMaxDelay,
		}, cfg.Logger),
		config:     cfg,
		eventChan:  make(chan types.FeedEvent, cfg.EventBufferSize),
		staleChan:  make(chan types.TokenID, cfg.EventBufferSize),
		ctx:        ctx,
		cancel:     cancel,
		subscribed: make(map[string]bool),
	}
}

// Start dials the initial connection and launches the read/ping/reconnect loops.
func (m *Manager) Start() error {
	m.logger.Info("feed-manager-starting", zap.String("url", m.url))

	if err := m.connect(m.ctx); err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	m.wg.Add(3)
	go m.readLoop()
	go m.pingLoop()
	go m.reconnectLoop()

	return nil
}

func (m *Manager) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: m.config.DialTimeout}

	m.logger.Info("connecting-to-feed", zap.String("url", m.url))

	conn, _, err := dialer.DialContext(ctx, m.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(m.config.IdleTimeout))
		return nil
	})
	_ = conn.SetReadDeadline(time.Now().Add(m.config.IdleTimeout))

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	m.connected.Store(true)
	m.connStart.Store(time.Now().Unix())
	ActiveConnections.Set(1)

	m.logger.Info("feed-connected")
	return nil
}

// Subscribe subscribes to the given token IDs (spec §6 wire protocol).
func (m *Manager) Subscribe(ctx context.Context, tokenIDs []string) error {
	if len(tokenIDs) == 0 {
		return nil
	}

	m.mu.Lock()
	newTokens := make([]string, 0, len(tokenIDs))
	for _, t := range tokenIDs {
		if !m.subscribed[t] {
			newTokens = append(newTokens, t)
			m.subscribed[t] = true
		}
	}
	if len(newTokens) == 0 {
		m.mu.Unlock()
		return nil
	}
	isInitial := len(m.subscribed) == len(newTokens)
	total := len(m.subscribed)
	m.mu.Unlock()

	var msg map[string]interface{}
	if isInitial {
		msg = map[string]interface{}{"assets_ids": newTokens, "type": "market"}
	} else {
		msg = map[string]interface{}{"assets_ids": newTokens, "type": "market", "operation": "subscribe"}
	}

	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	if err := conn.WriteJSON(msg); err != nil {
		m.mu.Lock()
		for _, t := range newTokens {
			delete(m.subscribed, t)
		}
		m.mu.Unlock()
		return fmt.Errorf("write subscribe message: %w", err)
	}

	SubscriptionCount.Set(float64(total))
	m.logger.Info("subscribed-to-tokens", zap.Int("new", len(newTokens)), zap.Int("total", total))
	return nil
}

// readLoop reads frames, decodes them into FeedEvents, and forwards them.
func (m *Manager) readLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		m.mu.RLock()
		conn := m.conn
		m.mu.RUnlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			m.logger.Warn("feed-read-error", zap.Error(err))

			if start := m.connStart.Load(); start > 0 {
				ConnectionDuration.Observe(time.Since(time.Unix(start, 0)).Seconds())
			}
			m.connected.Store(false)
			ActiveConnections.Set(0)
			return
		}

		if len(raw) < 10 {
			// Heartbeat or otherwise uninteresting control frame.
			continue
		}

		start := time.Now()
		events, err := decodeFrame(raw)
		if err != nil {
			// Parse errors increment a counter and skip the message (spec §4.1/§7 FeedTransient).
			var probe map[string]interface{}
			if json.Unmarshal(raw, &probe) == nil {
				// Looks like a control/subscription-ack message, not a parse failure worth counting loudly.
				continue
			}
			m.logger.Debug("feed-unparseable-message", zap.Error(err), zap.Int("bytes", len(raw)))
			MessagesDroppedTotal.WithLabelValues("parse_error").Inc()
			continue
		}

		for _, ev := range events {
			label := eventLabel(ev)
			MessagesReceivedTotal.WithLabelValues(label).Inc()

			select {
			case m.eventChan <- ev:
			default:
				m.logger.Warn("event-channel-full", zap.String("event-type", label))
				MessagesDroppedTotal.WithLabelValues("channel_full").Inc()
			}
		}
		MessageLatencySeconds.Observe(time.Since(start).Seconds())
	}
}

func eventLabel(ev types.FeedEvent) string {
	switch ev.(type) {
	case types.BookSnapshotEvent:
		return "book"
	case types.PriceChangeEvent:
		return "price_change"
	case types.TradeEvent:
		return "last_trade_price"
	default:
		return "unknown"
	}
}

// pingLoop sends application-level keepalive pings.
func (m *Manager) pingLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if !m.connected.Load() {
				continue
			}
			m.mu.RLock()
			conn := m.conn
			m.mu.RUnlock()
			if conn == nil {
				continue
			}
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second)); err != nil {
				m.logger.Warn("feed-ping-error", zap.Error(err))
			}
		}
	}
}

// reconnectLoop detects disconnects and drives reconnection + resubscription.
// On successful reconnect, every currently-subscribed token is pushed onto
// staleChan so the Orderbook Store can mark those books ForcedStale until
// the next BookSnapshot arrives (spec §4.1).
func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		if m.connected.Load() {
			time.Sleep(time.Second)
			continue
		}

		m.logger.Warn("feed-connection-lost")

		err := m.reconnectMgr.Reconnect(m.ctx, m.connect)
		if err != nil {
			return
		}

		if err := m.resubscribeAll(); err != nil {
			m.logger.Error("resubscribe-failed", zap.Error(err))
			m.connected.Store(false)
			continue
		}

		m.markSubscribedStale()

		m.wg.Add(1)
		go m.readLoop()
	}
}

func (m *Manager) resubscribeAll() error {
	m.mu.RLock()
	tokenIDs := make([]string, 0, len(m.subscribed))
	for t := range m.subscribed {
		tokenIDs = append(tokenIDs, t)
	}
	conn := m.conn
	m.mu.RUnlock()

	if len(tokenIDs) == 0 {
		return nil
	}

	msg := map[string]interface{}{"assets_ids": tokenIDs, "type": "market"}
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write resubscribe message: %w", err)
	}

	m.logger.Info("resubscribed-after-reconnect", zap.Int("count", len(tokenIDs)))
	return nil
}

func (m *Manager) markSubscribedStale() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for t := range m.subscribed {
		select {
		case m.staleChan <- types.TokenID(t):
		default:
		}
	}
}

// EventChan returns the channel of decoded feed events.
func (m *Manager) EventChan() <-chan types.FeedEvent { return m.eventChan }

// StaleChan returns the channel of tokens to mark forced-stale after reconnect.
func (m *Manager) StaleChan() <-chan types.TokenID { return m.staleChan }

// Close shuts the manager down, closing the underlying connection.
func (m *Manager) Close() error {
	m.logger.Info("closing-feed-manager")
	m.cancel()

	m.mu.RLock()
	if m.conn != nil {
		m.conn.Close()
	}
	m.mu.RUnlock()

	m.wg.Wait()
	close(m.eventChan)
	close(m.staleChan)
	ActiveConnections.Set(0)
	m.logger.Info("feed-manager-closed")
	return nil
}
