package feed

import (
	"context"
	"fmt"
	"hash/crc32"
	"sync"
	"time"

	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

// PoolConfig configures the sharded Feed Client. Shard count is computed
// dynamically as tokens are registered: ceil(total_tokens / MaxTokensPerShard),
// per spec §4.1 ("at most M tokens per connection... larger fleets are
// sharded across multiple connections"), rather than the teacher's
// fixed-size pool.
type PoolConfig struct {
	MaxTokensPerShard int // M, default 450
	WSUrl             string
	DialTimeout       time.Duration
	PongTimeout       time.Duration
	PingInterval      time.Duration
	IdleTimeout       time.Duration
	ReconnectMinDelay time.Duration
	ReconnectMaxDelay time.Duration
	EventBufferSize   int
	Logger            *zap.Logger
}

// Pool is the Feed Client: a dynamically-sized set of independent shard
// connections, each running its own reconnect loop so one shard's failure
// never affects its peers.
type Pool struct {
	cfg          PoolConfig
	mu           sync.RWMutex
	shards       []*Manager
	tokenToShard map[string]int
	eventChan    chan types.FeedEvent
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	logger       *zap.Logger
}

// NewPool creates an empty Feed Client pool; shards are created lazily as
// Subscribe grows the registered token set past shard capacity.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.MaxTokensPerShard <= 0 {
		cfg.MaxTokensPerShard = 450
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		cfg:          cfg,
		tokenToShard: make(map[string]int),
		eventChan:    make(chan types.FeedEvent, cfg.EventBufferSize),
		ctx:          ctx,
		cancel:       cancel,
		logger:       cfg.Logger,
	}
}

// Start brings up the pool with zero shards; shards are created on demand
// by Subscribe.
func (p *Pool) Start() error {
	p.logger.Info("feed-pool-starting", zap.Int("max-tokens-per-shard", p.cfg.MaxTokensPerShard))
	p.wg.Add(1)
	go p.multiplex()
	return nil
}

// shardCountFor returns ceil(totalTokens / M).
func shardCountFor(totalTokens, maxPerShard int) int {
	if totalTokens == 0 {
		return 0
	}
	return (totalTokens + maxPerShard - 1) / maxPerShard
}

// Subscribe registers new token IDs, growing the shard set if needed and
// assigning each new token to shard crc32(token) modulo the current shard
// count. Tokens already registered keep their shard; they are not moved
// when the shard count grows.
func (p *Pool) Subscribe(ctx context.Context, tokenIDs []string) error {
	if len(tokenIDs) == 0 {
		return nil
	}

	p.mu.Lock()
	newTokens := make([]string, 0, len(tokenIDs))
	for _, t := range tokenIDs {
		if _, exists := p.tokenToShard[t]; !exists {
			newTokens = append(newTokens, t)
		}
	}
	if len(newTokens) == 0 {
		p.mu.Unlock()
		return nil
	}

	totalAfter := len(p.tokenToShard) + len(newTokens)
	wantShards := shardCountFor(totalAfter, p.cfg.MaxTokensPerShard)
	if wantShards < 1 {
		wantShards = 1
	}
	if err := p.growShardsLocked(wantShards); err != nil {
		p.mu.Unlock()
		return err
	}

	byShard := make(map[int][]string)
	for _, t := range newTokens {
		idx := int(crc32.ChecksumIEEE([]byte(t))) % len(p.shards)
		p.tokenToShard[t] = idx
		byShard[idx] = append(byShard[idx], t)
	}
	shards := p.shards
	p.mu.Unlock()

	errCh := make(chan error, len(byShard))
	var wg sync.WaitGroup
	for idx, toks := range byShard {
		wg.Add(1)
		go func(i int, tokens []string) {
			defer wg.Done()
			if err := shards[i].Subscribe(ctx, tokens); err != nil {
				errCh <- fmt.Errorf("shard %d subscribe: %w", i, err)
			}
		}(idx, toks)
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("subscribe failed on %d shard(s): %v", len(errs), errs)
	}

	SubscriptionCount.Set(float64(totalAfter))
	p.logger.Info("pool-subscribed", zap.Int("new-tokens", len(newTokens)), zap.Int("shards", len(shards)))
	return nil
}

// growShardsLocked ensures len(p.shards) >= want, starting any new shards.
// Must be called with p.mu held.
func (p *Pool) growShardsLocked(want int) error {
	for len(p.shards) < want {
		idx := len(p.shards)
		mgr := New(Config{
			URL:               p.cfg.WSUrl,
			DialTimeout:       p.cfg.DialTimeout,
			PongTimeout:       p.cfg.PongTimeout,
			PingInterval:      p.cfg.PingInterval,
			IdleTimeout:       p.cfg.IdleTimeout,
			ReconnectMinDelay: p.cfg.ReconnectMinDelay,
			ReconnectMaxDelay: p.cfg.ReconnectMaxDelay,
			EventBufferSize:   p.cfg.EventBufferSize,
			Logger:            p.cfg.Logger.With(zap.Int("shard", idx)),
		})
		if err := mgr.Start(); err != nil {
			return fmt.Errorf("start shard %d: %w", idx, err)
		}
		p.shards = append(p.shards, mgr)
		p.wg.Add(1)
		go p.pumpShard(idx, mgr)
		PoolActiveConnections.Set(float64(len(p.shards)))
	}
	return nil
}

// pumpShard forwards one shard's events into the pool's event channel until
// the shard closes or the pool shuts down. Stale marks are not forwarded
// here; StaleTokens reads them from the shards.
func (p *Pool) pumpShard(idx int, mgr *Manager) {
	defer p.wg.Done()
	events := mgr.EventChan()
	for {
		select {
		case <-p.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			select {
			case p.eventChan <- ev:
			default:
				p.logger.Warn("pool-event-dropped", zap.Int("shard", idx))
			}
		}
	}
}

// multiplex is a placeholder pump kept for symmetry with per-shard pumps
// started in growShardsLocked; shards are pumped individually so no
// reflect.Select fan-in is needed once shard count changes dynamically.
func (p *Pool) multiplex() {
	defer p.wg.Done()
	<-p.ctx.Done()
}

// EventChan returns the multiplexed channel of decoded events across all shards.
func (p *Pool) EventChan() <-chan types.FeedEvent { return p.eventChan }

// StaleTokens drains forced-stale notifications across all shards into one channel.
func (p *Pool) StaleTokens(ctx context.Context) <-chan types.TokenID {
	out := make(chan types.TokenID, p.cfg.EventBufferSize)
	p.mu.RLock()
	shards := append([]*Manager(nil), p.shards...)
	p.mu.RUnlock()

	for _, mgr := range shards {
		go func(m *Manager) {
			for {
				select {
				case <-ctx.Done():
					return
				case t, ok := <-m.StaleChan():
					if !ok {
						return
					}
					select {
					case out <- t:
					default:
					}
				}
			}
		}(mgr)
	}
	return out
}

// Close shuts down every shard and the pool itself.
func (p *Pool) Close() error {
	p.logger.Info("closing-feed-pool")
	p.cancel()

	p.mu.RLock()
	shards := append([]*Manager(nil), p.shards...)
	p.mu.RUnlock()

	var wg sync.WaitGroup
	for _, mgr := range shards {
		wg.Add(1)
		go func(m *Manager) {
			defer wg.Done()
			if err := m.Close(); err != nil {
				p.logger.Error("shard-close-failed", zap.Error(err))
			}
		}(mgr)
	}
	wg.Wait()
	p.wg.Wait()
	close(p.eventChan)

	PoolActiveConnections.Set(0)
	p.logger.Info("feed-pool-closed")
	return nil
}
