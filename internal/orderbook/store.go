// Package orderbook maintains per-token Book ladders fed by the Feed Client
// and fans out change notifications to fixed subscribers (the Arbitrage
// Detector and the Market-Maker).
package orderbook

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

// Subscriber receives a notification after every applied Book mutation.
// Registration is fixed at Start time, per spec §9's typed-subscriber design
// note, rather than the teacher's single update channel.
type Subscriber interface {
	OnBookUpdate(update Update)
}

// Update is the post-mutation notification delivered to subscribers.
type Update struct {
	Token  types.TokenID
	Market types.MarketID
	Book   *types.Book
}

// entry holds one token's ladder behind an atomic pointer so reads never
// observe a torn ladder, and a mutex that serializes the writers that build
// the next Book value (spec §4.2 concurrency policy).
type entry struct {
	book    atomic.Pointer[types.Book]
	writeMu sync.Mutex
	market  types.MarketID
}

// Store is the Orderbook Store.
type Store struct {
	maxStalenessMs int64
	logger         *zap.Logger

	mu      sync.RWMutex
	entries map[types.TokenID]*entry

	subsMu sync.RWMutex
	subs   []Subscriber

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config configures the Orderbook Store.
type Config struct {
	MaxBookStalenessMs int64
	Logger             *zap.Logger
}

// New creates an empty Orderbook Store.
func New(cfg Config) *Store {
	if cfg.MaxBookStalenessMs <= 0 {
		cfg.MaxBookStalenessMs = 3000
	}
	return &Store{
		maxStalenessMs: cfg.MaxBookStalenessMs,
		logger:         cfg.Logger,
		entries:        make(map[types.TokenID]*entry),
	}
}

// Subscribe registers a fixed subscriber. Must be called before Start.
func (s *Store) Subscribe(sub Subscriber) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs = append(s.subs, sub)
}

// Register pre-creates an empty entry for a token so GetBook never returns
// "unknown token" for a token the Market Catalog already knows about.
func (s *Store) Register(token types.TokenID, market types.MarketID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[token]; ok {
		return
	}
	e := &entry{market: market}
	e.book.Store(&types.Book{Token: token, Market: market})
	s.entries[token] = e
	SnapshotsTracked.Set(float64(len(s.entries)))
}

// Start launches the event/stale consumer loops.
func (s *Store) Start(ctx context.Context, events <-chan types.FeedEvent, stale <-chan types.TokenID) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(2)
	go s.consumeEvents(events)
	go s.consumeStale(stale)
}

// Close stops the consumer loops.
func (s *Store) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Store) consumeEvents(events <-chan types.FeedEvent) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.apply(ev)
		}
	}
}

func (s *Store) consumeStale(stale <-chan types.TokenID) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case tok, ok := <-stale:
			if !ok {
				return
			}
			s.markForcedStale(tok)
		}
	}
}

func (s *Store) lookup(token types.TokenID) *entry {
	s.mu.RLock()
	e := s.entries[token]
	s.mu.RUnlock()
	return e
}

func (s *Store) getOrCreate(token types.TokenID) *entry {
	s.mu.RLock()
	e := s.entries[token]
	s.mu.RUnlock()
	if e != nil {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e = s.entries[token]; e != nil {
		return e
	}
	e = &entry{}
	e.book.Store(&types.Book{Token: token})
	s.entries[token] = e
	SnapshotsTracked.Set(float64(len(s.entries)))
	return e
}

func (s *Store) apply(ev types.FeedEvent) {
	start := time.Now()
	defer func() { UpdateProcessingDuration.Observe(time.Since(start).Seconds()) }()

	switch e := ev.(type) {
	case types.BookSnapshotEvent:
		s.applySnapshot(e)
		UpdatesTotal.WithLabelValues("book").Inc()
	case types.PriceChangeEvent:
		s.applyDelta(e)
		UpdatesTotal.WithLabelValues("price_change").Inc()
	case types.TradeEvent:
		// Trades don't mutate the ladder; the Detector and Market-Maker
		// both act on book state only.
		UpdatesTotal.WithLabelValues("last_trade_price").Inc()
	}
}

func (s *Store) applySnapshot(ev types.BookSnapshotEvent) {
	en := s.getOrCreate(ev.TokenID)

	lockStart := time.Now()
	en.writeMu.Lock()
	LockContentionDuration.Observe(time.Since(lockStart).Seconds())
	defer en.writeMu.Unlock()

	bids := sortedNonZero(ev.Bids, true)
	asks := sortedNonZero(ev.Asks, false)

	next := &types.Book{
		Token:        ev.TokenID,
		Market:       en.market,
		Bids:         bids,
		Asks:         asks,
		LastUpdate:   time.Now(),
		LastSequence: ev.Sequence,
		HasSnapshot:  true,
		ForcedStale:  false,
	}
	en.book.Store(next)
	s.notify(Update{Token: ev.TokenID, Market: en.market, Book: next})
}

func (s *Store) applyDelta(ev types.PriceChangeEvent) {
	en := s.lookup(ev.TokenID)
	if en == nil {
		// Unknown token; nothing registered it yet, nothing to update.
		return
	}

	lockStart := time.Now()
	en.writeMu.Lock()
	LockContentionDuration.Observe(time.Since(lockStart).Seconds())
	defer en.writeMu.Unlock()

	cur := en.book.Load()
	if cur == nil || !cur.HasSnapshot {
		// Deltas received before the first snapshot are discarded (spec §4.1).
		UpdatesDroppedTotal.WithLabelValues("no_snapshot_yet").Inc()
		return
	}

	bids := types.CloneLevels(cur.Bids)
	asks := types.CloneLevels(cur.Asks)

	for _, d := range ev.BidsDelta {
		bids = upsertLevel(bids, d, false)
	}
	for _, d := range ev.AsksDelta {
		asks = upsertLevel(asks, d, true)
	}

	next := &types.Book{
		Token:        ev.TokenID,
		Market:       en.market,
		Bids:         bids,
		Asks:         asks,
		LastUpdate:   time.Now(),
		LastSequence: ev.Sequence,
		HasSnapshot:  true,
		ForcedStale:  false,
	}
	en.book.Store(next)
	s.notify(Update{Token: ev.TokenID, Market: en.market, Book: next})
}

// upsertLevel applies one delta entry to a sorted ladder (ascending for
// asks, descending for bids): size=0 removes the level if present (a no-op
// if absent), nonzero upserts in place, keeping the ladder sorted without a
// full re-sort (spec §4.2).
func upsertLevel(levels []types.Level, delta types.Level, ascending bool) []types.Level {
	for i, l := range levels {
		if l.Price == delta.Price {
			if delta.Size == 0 {
				return append(levels[:i], levels[i+1:]...)
			}
			levels[i].Size = delta.Size
			return levels
		}
		if (ascending && l.Price > delta.Price) || (!ascending && l.Price < delta.Price) {
			if delta.Size == 0 {
				return levels
			}
			levels = append(levels, types.Level{})
			copy(levels[i+1:], levels[i:])
			levels[i] = delta
			return levels
		}
	}
	if delta.Size == 0 {
		return levels
	}
	return append(levels, delta)
}

func sortedNonZero(levels []types.Level, descending bool) []types.Level {
	out := make([]types.Level, 0, len(levels))
	for _, l := range levels {
		if l.Size > 0 {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if descending {
			return out[i].Price > out[j].Price
		}
		return out[i].Price < out[j].Price
	})
	return out
}

func (s *Store) markForcedStale(token types.TokenID) {
	en := s.lookup(token)
	if en == nil {
		return
	}

	en.writeMu.Lock()
	defer en.writeMu.Unlock()

	cur := en.book.Load()
	if cur == nil {
		return
	}
	next := *cur
	next.ForcedStale = true
	en.book.Store(&next)
	s.logger.Debug("book-marked-forced-stale", zap.String("token", string(token)))
}

func (s *Store) notify(u Update) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.OnBookUpdate(u)
	}
}

// GetBook returns the current Book for a token and whether it is registered.
func (s *Store) GetBook(token types.TokenID) (*types.Book, bool) {
	en := s.lookup(token)
	if en == nil {
		return nil, false
	}
	return en.book.Load(), true
}

// Stale reports whether the token's Book is stale as of now.
func (s *Store) Stale(token types.TokenID) bool {
	b, ok := s.GetBook(token)
	if !ok || b == nil {
		return true
	}
	return b.Stale(time.Now(), s.maxStalenessMs)
}
