// Package marketmaker implements the optional Market-Maker subsystem (spec
// §4.6): on the same Orderbook Store updates the Arbitrage Detector
// consumes, it maintains at most MM_MAX_MARKETS concurrent two-sided
// passive Quotes that improve the best bid by one tick whenever the
// improved bid-sum still clears MM_MIN_MARGIN.
package marketmaker

import (
	"context"
	"sync"
	"time"

	"github.com/mselser95/polymarket-arb/internal/orderbook"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

// MarketLookup resolves a token to its binary market and sibling token,
// the same reverse index the Arbitrage Detector consumes.
type MarketLookup interface {
	MarketFor(token types.TokenID) (market types.MarketID, upToken, downToken types.TokenID, ok bool)
}

// OrderPlacer is the venue collaborator for posting and cancelling the two
// resting limit orders behind a Quote. Satisfied by *internal/execution.OrderClient.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, tokenID string, price float64, size float64, tickSize float64, minSize float64) (*types.OrderSubmissionResponse, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// Config holds Market-Maker configuration (spec §4.6).
type Config struct {
	QuoteSize        float64 // MM_QUOTE_SIZE, tokens per side
	MinMargin        float64 // MM_MIN_MARGIN, decimal
	RequoteThreshold float64 // MM_REQUOTE_THRESHOLD, decimal
	MaxMarkets       int     // MM_MAX_MARKETS
	Logger           *zap.Logger
}

// route is the work item queued from an OnBookUpdate notification: the
// market plus both outcome tokens, so the requote worker never needs to
// re-resolve a token back to its market.
type route struct {
	market    types.MarketID
	upToken   types.TokenID
	downToken types.TokenID
}

// Maker is the Market-Maker subsystem: an Orderbook Store subscriber that
// requotes a bounded set of markets as their books move. A single requote
// worker serializes all quote decisions, so MM_MAX_MARKETS's concurrency
// cap and the per-market Quote map never need their own lock beyond the one
// already implied by single-goroutine access.
type Maker struct {
	cfg     Config
	store   *orderbook.Store
	catalog MarketLookup
	client  OrderPlacer
	logger  *zap.Logger

	quotes map[types.MarketID]types.Quote

	workCh chan route
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Market-Maker. Register it with the Orderbook Store via
// store.Subscribe(maker) before the Store starts consuming events.
func New(cfg Config, store *orderbook.Store, catalog MarketLookup, client OrderPlacer) *Maker {
	return &Maker{
		cfg:     cfg,
		store:   store,
		catalog: catalog,
		client:  client,
		logger:  cfg.Logger,
		quotes:  make(map[types.MarketID]types.Quote),
		workCh:  make(chan route, 1024),
	}
}

// Start launches the requote worker. Non-blocking; book-update notifications
// are handled on a separate goroutine so OnBookUpdate never blocks the
// Orderbook Store's single event-consumer loop on a network call.
func (m *Maker) Start(ctx context.Context) {
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go m.requoteWorker()
	m.logger.Info("market-maker-starting",
		zap.Float64("quote-size", m.cfg.QuoteSize),
		zap.Float64("min-margin", m.cfg.MinMargin),
		zap.Int("max-markets", m.cfg.MaxMarkets))
}

// OnBookUpdate implements orderbook.Subscriber.
func (m *Maker) OnBookUpdate(u orderbook.Update) {
	market, upToken, downToken, ok := m.catalog.MarketFor(u.Token)
	if !ok {
		return
	}
	select {
	case m.workCh <- route{market: market, upToken: upToken, downToken: downToken}:
	default:
		m.logger.Warn("market-maker-work-channel-full", zap.String("market", string(market)))
	}
}

// Close stops the requote worker and cancels every active Quote (spec §4.6
// "cancel all active Quotes before exit").
func (m *Maker) Close() error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for market, q := range m.quotes {
		m.cancelQuote(ctx, q)
		delete(m.quotes, market)
	}
	QuotesActive.Set(0)
	return nil
}

func (m *Maker) requoteWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case r, ok := <-m.workCh:
			if !ok {
				return
			}
			m.refreshQuote(r)
		}
	}
}

// refreshQuote is spec §4.6's quote computation + requote policy: improve
// both best bids by one tick, reject if the improved bid-sum doesn't clear
// MM_MIN_MARGIN, and only cancel-then-repost when either side's price moves
// by at least MM_REQUOTE_THRESHOLD from the last posted Quote.
func (m *Maker) refreshQuote(r route) {
	upBook, ok := m.store.GetBook(r.upToken)
	if !ok {
		return
	}
	downBook, ok := m.store.GetBook(r.downToken)
	if !ok {
		return
	}

	upBid, ok := upBook.BestBid()
	if !ok {
		return
	}
	downBid, ok := downBook.BestBid()
	if !ok {
		return
	}

	ourUp := upBid.Price + types.Tick
	ourDown := downBid.Price + types.Tick

	margin := 1 - (ourUp.Decimal() + ourDown.Decimal())
	if margin < m.cfg.MinMargin {
		QuotesRejectedTotal.WithLabelValues("margin_not_cleared").Inc()
		return
	}

	prior, exists := m.quotes[r.market]
	if !exists && len(m.quotes) >= m.cfg.MaxMarkets {
		QuotesRejectedTotal.WithLabelValues("max_markets_reached").Inc()
		return
	}

	if exists && !m.needsRequote(prior, ourUp, ourDown) {
		return
	}

	ctx, cancel := context.WithTimeout(m.ctx, 10*time.Second)
	defer cancel()

	if exists {
		m.cancelQuote(ctx, prior)
		QuotesRequotedTotal.Inc()
	}

	quote, ok := m.postQuote(ctx, r, ourUp, ourDown)
	if !ok {
		delete(m.quotes, r.market)
		QuotesActive.Set(float64(len(m.quotes)))
		return
	}

	m.quotes[r.market] = quote
	QuotesActive.Set(float64(len(m.quotes)))
	QuotesPostedTotal.Inc()
}

// needsRequote is spec §4.6's requote policy: do nothing unless either side
// moved by at least MM_REQUOTE_THRESHOLD from the stored Quote.
func (m *Maker) needsRequote(prior types.Quote, ourUp, ourDown types.Cents) bool {
	upDiff := ourUp.Decimal() - prior.UpPrice.Decimal()
	downDiff := ourDown.Decimal() - prior.DownPrice.Decimal()
	return absFloat(upDiff) >= m.cfg.RequoteThreshold || absFloat(downDiff) >= m.cfg.RequoteThreshold
}

func (m *Maker) postQuote(ctx context.Context, r route, ourUp, ourDown types.Cents) (types.Quote, bool) {
	upResp, err := m.client.PlaceOrder(ctx, string(r.upToken), ourUp.Decimal(), m.cfg.QuoteSize, 0.01, 5)
	if err != nil {
		m.logger.Warn("market-maker-quote-post-failed",
			zap.String("market", string(r.market)), zap.String("side", "up"), zap.Error(err))
		QuotePostErrorsTotal.Inc()
		return types.Quote{}, false
	}

	downResp, err := m.client.PlaceOrder(ctx, string(r.downToken), ourDown.Decimal(), m.cfg.QuoteSize, 0.01, 5)
	if err != nil {
		m.logger.Warn("market-maker-quote-post-failed",
			zap.String("market", string(r.market)), zap.String("side", "down"), zap.Error(err))
		QuotePostErrorsTotal.Inc()
		// The Up leg already posted; cancel it rather than leave a naked quote.
		_ = m.client.CancelOrder(ctx, upResp.OrderID)
		return types.Quote{}, false
	}

	return types.Quote{
		Market:      r.market,
		UpPrice:     ourUp,
		DownPrice:   ourDown,
		UpOrderID:   upResp.OrderID,
		DownOrderID: downResp.OrderID,
		PostedAt:    time.Now(),
	}, true
}

func (m *Maker) cancelQuote(ctx context.Context, q types.Quote) {
	if err := m.client.CancelOrder(ctx, q.UpOrderID); err != nil {
		m.logger.Warn("market-maker-cancel-failed", zap.String("order-id", q.UpOrderID), zap.Error(err))
		QuoteCancelErrorsTotal.Inc()
	}
	if err := m.client.CancelOrder(ctx, q.DownOrderID); err != nil {
		m.logger.Warn("market-maker-cancel-failed", zap.String("order-id", q.DownOrderID), zap.Error(err))
		QuoteCancelErrorsTotal.Inc()
	}
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
