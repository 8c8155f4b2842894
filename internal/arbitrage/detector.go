// Package arbitrage implements the paired ask-ladder walk that turns a pair
// of correlated Up/Down Books into an Opportunity.
package arbitrage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/polymarket-arb/internal/orderbook"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

// MarketLookup resolves a token to its binary market and sibling token,
// grounded on the teacher's discoveryService.GetMarketByTokenID reverse
// index (internal/discovery).
type MarketLookup interface {
	MarketFor(token types.TokenID) (market types.MarketID, upToken, downToken types.TokenID, ok bool)
}

// Storage optionally persists detected opportunities for operator reporting.
// Spec §1 treats printed operator reports as an external collaborator;
// storage is therefore best-effort and never blocks detection.
type Storage interface {
	StoreOpportunity(ctx context.Context, opp types.Opportunity) error
}

// Config holds Detector configuration.
type Config struct {
	MinMargin          float64 // decimal, e.g. 0.01
	TakerFeeRate       float64 // decimal, e.g. 0.015
	MaxBookStalenessMs int64
	Logger             *zap.Logger
}

// Detector is the Arbitrage Detector: a fixed Orderbook Store subscriber
// that recomputes the paired ladder walk for a market whenever either side's
// book mutates.
type Detector struct {
	store   *orderbook.Store
	catalog MarketLookup
	config  Config
	logger  *zap.Logger
	storage Storage

	oppChan chan types.Opportunity
	ctx     context.Context
	wg      sync.WaitGroup
}

// New creates a Detector. Register it with the Orderbook Store via
// store.Subscribe(detector) before the Store starts consuming events.
func New(cfg Config, store *orderbook.Store, catalog MarketLookup, storage Storage) *Detector {
	return &Detector{
		store:   store,
		catalog: catalog,
		config:  cfg,
		logger:  cfg.Logger,
		storage: storage,
		oppChan: make(chan types.Opportunity, 1024),
	}
}

// Start records the context used for best-effort storage calls.
func (d *Detector) Start(ctx context.Context) error {
	d.ctx = ctx
	d.logger.Info("arbitrage-detector-starting",
		zap.Float64("min-margin", d.config.MinMargin),
		zap.Float64("taker-fee-rate", d.config.TakerFeeRate))
	return nil
}

// OnBookUpdate implements orderbook.Subscriber. It is invoked on every
// applied book mutation (spec §4.3: "invoked on every book change that
// mutates the ask side for either token of a registered market").
func (d *Detector) OnBookUpdate(u orderbook.Update) {
	market, upToken, downToken, ok := d.catalog.MarketFor(u.Token)
	if !ok {
		return
	}

	start := time.Now()
	d.evaluate(market, upToken, downToken)
	DetectionDurationSeconds.Observe(time.Since(start).Seconds())
}

func (d *Detector) evaluate(market types.MarketID, upToken, downToken types.TokenID) {
	upBook, ok := d.store.GetBook(upToken)
	if !ok {
		return
	}
	downBook, ok := d.store.GetBook(downToken)
	if !ok {
		return
	}

	now := time.Now()
	if upBook.Stale(now, d.config.MaxBookStalenessMs) || downBook.Stale(now, d.config.MaxBookStalenessMs) {
		OpportunitiesRejectedTotal.WithLabelValues("stale_book").Inc()
		return
	}

	opp, ok := d.walk(market, upToken, downToken, upBook.Asks, downBook.Asks)
	if !ok {
		return
	}

	latestUpdate := upBook.LastUpdate
	if downBook.LastUpdate.After(latestUpdate) {
		latestUpdate = downBook.LastUpdate
	}
	EndToEndLatencySeconds.Observe(time.Since(latestUpdate).Seconds())

	OpportunitiesDetectedTotal.Inc()
	OpportunityProfitBPS.Observe(opp.PerPairProfit * 10000)
	NetProfitBPS.Observe(opp.PerPairProfit * 10000)

	if d.storage != nil && d.ctx != nil {
		if err := d.storage.StoreOpportunity(d.ctx, opp); err != nil {
			d.logger.Warn("failed-to-store-opportunity", zap.String("opportunity-id", opp.ID), zap.Error(err))
		}
	}

	select {
	case d.oppChan <- opp:
		d.logger.Info("arbitrage-opportunity-detected",
			zap.String("opportunity-id", opp.ID),
			zap.String("market", string(market)),
			zap.Float64("pairs", opp.Pairs),
			zap.Float64("per-pair-profit", opp.PerPairProfit))
	default:
		d.logger.Warn("opportunity-channel-full", zap.String("market", string(market)))
	}
}

// askable returns the prefix of a sorted-ascending ask ladder with
// price <= 99 cents (spec §4.3 precondition: "at least one ask with
// price ≤ 0.99").
func askable(levels []types.Level) []types.Level {
	out := make([]types.Level, 0, len(levels))
	for _, l := range levels {
		if l.Price > 99 {
			break
		}
		out = append(out, l)
	}
	return out
}

// walk runs the paired ladder walk (spec §4.3) over a pair of ask ladders
// and returns an Opportunity when accumulated volume clears MinMargin.
func (d *Detector) walk(market types.MarketID, upToken, downToken types.TokenID, upAsksIn, downAsksIn []types.Level) (types.Opportunity, bool) {
	upAsks := askable(upAsksIn)
	downAsks := askable(downAsksIn)
	if len(upAsks) == 0 || len(downAsks) == 0 {
		return types.Opportunity{}, false
	}

	// Fast reject (step 2): assuming zero fee, best_ask(up) + best_ask(down)
	// strictly above 1 - MIN_MARGIN can never clear the margin once any
	// nonnegative fee is added, so it is safe to abort early. The boundary
	// (sum exactly equal to 1 - MIN_MARGIN) is left to the full walk, which
	// still emits an Opportunity there when the fee-adjusted net clears
	// MIN_MARGIN (spec §8 boundary behavior).
	bestSum := upAsks[0].Price.Decimal() + downAsks[0].Price.Decimal()
	if bestSum > 1-d.config.MinMargin {
		return types.Opportunity{}, false
	}

	ru := make([]float64, len(upAsks))
	rd := make([]float64, len(downAsks))
	for i, l := range upAsks {
		ru[i] = l.Size
	}
	for i, l := range downAsks {
		rd[i] = l.Size
	}

	var totalPairs, wu, wd float64
	iu, id := 0, 0

	for iu < len(upAsks) && id < len(downAsks) {
		priceU := upAsks[iu].Price
		priceD := downAsks[id].Price
		net := d.netPerPair(priceU, priceD)

		if net < d.config.MinMargin {
			// Advance the pointer whose current price is lower; tie advances Up.
			if priceU <= priceD {
				iu++
			} else {
				id++
			}
			continue
		}

		pairs := ru[iu]
		if rd[id] < pairs {
			pairs = rd[id]
		}

		totalPairs += pairs
		wu += pairs * priceU.Decimal()
		wd += pairs * priceD.Decimal()
		ru[iu] -= pairs
		rd[id] -= pairs

		if ru[iu] <= 0 {
			iu++
		}
		if rd[id] <= 0 {
			id++
		}
	}

	if totalPairs <= 0 {
		OpportunitiesRejectedTotal.WithLabelValues("margin_not_cleared").Inc()
		return types.Opportunity{}, false
	}

	upAvg := wu / totalPairs
	downAvg := wd / totalPairs
	perPairProfit := 1 - upAvg - downAvg

	return types.Opportunity{
		ID:             uuid.New().String(),
		Market:         market,
		UpToken:        upToken,
		DownToken:      downToken,
		UpAvgPrice:     upAvg,
		DownAvgPrice:   downAvg,
		Pairs:          totalPairs,
		PerPairProfit:  perPairProfit,
		FeeRateAssumed: d.config.TakerFeeRate,
		DetectedAt:     time.Now(),
	}, true
}

// netPerPair is step 4 of the paired ladder walk: fee-adjusted profit for
// one unit pair at the given ask prices, assuming taker execution.
func (d *Detector) netPerPair(priceU, priceD types.Cents) float64 {
	pu := priceU.Decimal()
	pd := priceD.Decimal()
	fee := (pu + pd) * d.config.TakerFeeRate
	return 1 - pu - pd - fee
}

// OpportunityChan returns the channel of detected opportunities for the
// Strategy Selector / Order Submitter pipeline to consume.
func (d *Detector) OpportunityChan() <-chan types.Opportunity {
	return d.oppChan
}

// Close drains and closes the Detector. The Orderbook Store must stop
// delivering OnBookUpdate calls before Close is invoked.
func (d *Detector) Close() {
	d.wg.Wait()
	close(d.oppChan)
}
