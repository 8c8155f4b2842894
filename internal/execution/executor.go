// Package execution implements the Order Submitter (spec §4.5): turning a
// detected Opportunity and its Strategy Selector mode into a sized OrderPlan,
// dispatching its suborders concurrently per side, and reconciling fills
// into an Execution.
package execution

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/mselser95/polymarket-arb/internal/circuitbreaker"
	"github.com/mselser95/polymarket-arb/internal/strategy"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

const (
	minSuborderTokens = 5.0  // spec §4.5: suborders below this size are dropped
	baseSuborderSize  = 20.0 // target tokens per suborder before the last, larger chunk
	maxSuborderSize   = 40.0
	defaultBatchSize  = 15 // Polymarket's documented batch-endpoint cap
)

// MetadataLookup resolves tick size and minimum order size for a token.
// Satisfied by *internal/markets.CachedMetadataClient.
type MetadataLookup interface {
	GetTokenMetadata(ctx context.Context, tokenID string) (tickSize, minOrderSize float64, err error)
}

// ExpiryLookup resolves a market's expiry, for Strategy Selector timing.
type ExpiryLookup interface {
	ExpiresAt(market types.MarketID) (time.Time, bool)
}

// BankrollSource reports the current tradeable bankroll for position sizing.
type BankrollSource interface {
	Bankroll() float64
}

// Config holds Order Submitter configuration.
type Config struct {
	DryRun             bool // paper trading: simulate fills instead of calling the venue
	MaxBetSize         float64
	MaxBankrollFrac    float64
	TakerFeeRate       float64
	OrderTimeout       time.Duration // per-suborder dispatch timeout, default 10s
	BatchSize          int           // suborders per side dispatched per wave, default 15
	ImbalanceTolerance float64       // tokens, default 5

	OpportunityChannel <-chan types.Opportunity
	Selector           *strategy.Selector
	OrderClient        *OrderClient
	Metadata           MetadataLookup
	Expiry             ExpiryLookup
	Bankroll           BankrollSource
	CircuitBreaker     *circuitbreaker.BalanceCircuitBreaker
	Logger             *zap.Logger
}

// Executor is the Order Submitter.
type Executor struct {
	cfg    Config
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an Order Submitter.
func New(cfg *Config) *Executor {
	if cfg.OrderTimeout <= 0 {
		cfg.OrderTimeout = 10 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.ImbalanceTolerance <= 0 {
		cfg.ImbalanceTolerance = minSuborderTokens
	}
	return &Executor{cfg: *cfg, logger: cfg.Logger}
}

// Start launches the execution loop. Non-blocking.
func (e *Executor) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.wg.Add(1)
	go e.executionLoop()
	e.logger.Info("order-submitter-starting",
		zap.Bool("dry-run", e.cfg.DryRun),
		zap.Float64("max-bet-size", e.cfg.MaxBetSize),
		zap.Float64("max-bankroll-fraction", e.cfg.MaxBankrollFrac))
	return nil
}

// Close stops the execution loop and waits for in-flight work to finish.
func (e *Executor) Close() error {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	return nil
}

func (e *Executor) executionLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case opp, ok := <-e.cfg.OpportunityChannel:
			if !ok {
				return
			}
			OpportunitiesReceived.Inc()
			e.handle(opp)
		}
	}
}

func (e *Executor) handle(opp types.Opportunity) {
	start := time.Now()
	defer func() { ExecutionDurationSeconds.Observe(time.Since(start).Seconds()) }()

	if e.cfg.CircuitBreaker != nil && e.cfg.CircuitBreaker.IsEnabled() {
		if err := e.cfg.CircuitBreaker.CheckBalance(e.ctx); err != nil {
			e.logger.Warn("opportunity-skipped-circuit-breaker", zap.String("opportunity-id", opp.ID), zap.Error(err))
			OpportunitiesSkippedTotal.WithLabelValues("circuit_breaker").Inc()
			return
		}
	}

	now := time.Now()
	expiresAt := now.Add(60 * time.Second)
	if e.cfg.Expiry != nil {
		if t, ok := e.cfg.Expiry.ExpiresAt(opp.Market); ok {
			expiresAt = t
		}
	}
	mode := e.cfg.Selector.Select(opp, expiresAt, now)

	bankroll := 0.0
	if e.cfg.Bankroll != nil {
		bankroll = e.cfg.Bankroll.Bankroll()
	}
	plan := e.buildPlan(opp, mode, bankroll)
	if len(plan.UpOrders) == 0 || len(plan.DownOrders) == 0 {
		e.logger.Debug("opportunity-skipped-no-plan", zap.String("opportunity-id", opp.ID))
		OpportunitiesSkippedTotal.WithLabelValues("plan_empty").Inc()
		return
	}

	exec := e.dispatch(plan)
	e.reconcile(exec)
}

// buildPlan is spec §4.5's position sizing + suborder splitting:
// side_budget = min(MAX_BET_SIZE, bankroll*MAX_BANKROLL_FRACTION) / 2, then
// the budget is split into ~20-40 token suborders (dropping anything under
// 5 tokens), bounded by the Opportunity's available matched volume.
func (e *Executor) buildPlan(opp types.Opportunity, mode types.ExecutionMode, bankroll float64) types.OrderPlan {
	maxByBankroll := bankroll * e.cfg.MaxBankrollFrac
	budget := e.cfg.MaxBetSize
	if maxByBankroll > 0 && maxByBankroll < budget {
		budget = maxByBankroll
	}
	sideBudget := budget / 2

	return types.OrderPlan{
		Opportunity: opp,
		UpOrders:    suborders(types.Up, opp.UpToken, opp.UpAvgPrice, opp.Pairs, sideBudget, mode),
		DownOrders:  suborders(types.Down, opp.DownToken, opp.DownAvgPrice, opp.Pairs, sideBudget, mode),
	}
}

func suborders(side types.Side, token types.TokenID, avgPrice float64, availablePairs, sideBudget float64, mode types.ExecutionMode) []types.PlannedOrder {
	if avgPrice <= 0 || sideBudget <= 0 {
		return nil
	}

	maxByBudget := sideBudget / avgPrice
	total := math.Min(maxByBudget, availablePairs)
	if total < minSuborderTokens {
		return nil
	}

	price := types.CentsFromFloat(avgPrice)
	var orders []types.PlannedOrder
	remaining := total
	for remaining >= minSuborderTokens {
		size := baseSuborderSize
		if remaining-size < minSuborderTokens {
			// Last suborder absorbs the remainder rather than leaving an
			// unplaceable sub-minimum sliver.
			size = remaining
		}
		if size > maxSuborderSize {
			size = maxSuborderSize
		}
		orders = append(orders, types.PlannedOrder{Side: side, Token: token, Price: price, Size: size, Mode: mode})
		remaining -= size
	}
	return orders
}

// dispatch concurrently submits both sides of an OrderPlan, batching up to
// BatchSize suborders per wave per side (spec §4.5); suborders within a wave
// run in parallel goroutines, each with its own OrderTimeout.
func (e *Executor) dispatch(plan types.OrderPlan) types.Execution {
	var wg sync.WaitGroup
	var upResults, downResults []types.OrderResult

	wg.Add(2)
	go func() {
		defer wg.Done()
		upResults = e.dispatchSide(plan.UpOrders)
	}()
	go func() {
		defer wg.Done()
		downResults = e.dispatchSide(plan.DownOrders)
	}()
	wg.Wait()

	return types.Execution{
		OpportunityID: plan.Opportunity.ID,
		Market:        plan.Opportunity.Market,
		UpResults:     upResults,
		DownResults:   downResults,
		ExecutedAt:    time.Now(),
	}
}

func (e *Executor) dispatchSide(orders []types.PlannedOrder) []types.OrderResult {
	results := make([]types.OrderResult, len(orders))
	for batchStart := 0; batchStart < len(orders); batchStart += e.cfg.BatchSize {
		end := batchStart + e.cfg.BatchSize
		if end > len(orders) {
			end = len(orders)
		}
		var wg sync.WaitGroup
		for i := batchStart; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = e.dispatchOne(orders[i])
			}(i)
		}
		wg.Wait()
	}
	return results
}

func (e *Executor) dispatchOne(order types.PlannedOrder) types.OrderResult {
	start := time.Now()
	if e.cfg.DryRun {
		TradesTotal.WithLabelValues(string(order.Mode), string(order.Side)).Inc()
		return types.OrderResult{
			Success:         true,
			ExchangeOrderID: "paper",
			FilledSize:      order.Size,
			FilledCost:      order.Size * order.Price.Decimal(),
			LatencyMS:       time.Since(start).Milliseconds(),
			Mode:            order.Mode,
			Side:            order.Side,
		}
	}

	ctx, cancel := context.WithTimeout(e.ctx, e.cfg.OrderTimeout)
	defer cancel()

	tickSize, minSize := 0.01, minSuborderTokens
	if e.cfg.Metadata != nil {
		if ts, ms, err := e.cfg.Metadata.GetTokenMetadata(ctx, string(order.Token)); err == nil {
			tickSize, minSize = ts, ms
		}
	}

	resp, err := e.cfg.OrderClient.PlaceOrder(ctx, string(order.Token), order.Price.Decimal(), order.Size, tickSize, minSize)
	if err != nil {
		ExecutionErrorsTotal.Inc()
		ExecutionErrorsByType.WithLabelValues(classifyError(err)).Inc()
		e.logger.Warn("suborder-failed",
			zap.String("token", string(order.Token)),
			zap.String("side", string(order.Side)),
			zap.Error(err))
		return types.OrderResult{Success: false, Mode: order.Mode, Side: order.Side, Err: err, LatencyMS: time.Since(start).Milliseconds()}
	}

	TradesTotal.WithLabelValues(string(order.Mode), string(order.Side)).Inc()

	filled, cost := e.verifyFill(ctx, resp.OrderID, order)
	return types.OrderResult{
		Success:         true,
		ExchangeOrderID: resp.OrderID,
		FilledSize:      filled,
		FilledCost:      cost,
		LatencyMS:       time.Since(start).Milliseconds(),
		Mode:            order.Mode,
		Side:            order.Side,
	}
}

// verifyFill polls the Fill Tracker for a single suborder; a verification
// timeout is treated as a zero fill rather than an error, since the order
// may still fill later and the partial-fill policy already tolerates this.
func (e *Executor) verifyFill(ctx context.Context, orderID string, order types.PlannedOrder) (filled, cost float64) {
	tracker := NewFillTracker(e.cfg.OrderClient, e.logger, &FillTrackerConfig{
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     3 * time.Second,
		BackoffMult:    2.0,
		FillTimeout:    e.cfg.OrderTimeout,
	})

	statuses, err := tracker.VerifyFills(ctx, []string{orderID}, []string{string(order.Side)}, []float64{order.Size})
	if err != nil || len(statuses) == 0 {
		FillVerificationTotal.WithLabelValues("error").Inc()
		return 0, 0
	}

	st := statuses[0]
	switch {
	case st.FullyFilled:
		FillVerificationTotal.WithLabelValues("success").Inc()
	case st.SizeFilled > 0:
		FillVerificationTotal.WithLabelValues("partial").Inc()
	default:
		FillVerificationTotal.WithLabelValues("timeout").Inc()
	}
	if st.ActualPrice > 0 {
		ActualFillPriceDeviation.Observe(st.ActualPrice - order.Price.Decimal())
	}
	return st.SizeFilled, st.SizeFilled * st.ActualPrice
}

// reconcile applies spec §4.5's partial-fill policy: imbalance under
// ImbalanceTolerance is accepted as-is; above it, the Submitter logs the
// imbalance and stops, with no automatic hedging order on either side.
func (e *Executor) reconcile(exec types.Execution) {
	imbalance := exec.Imbalance()
	profit := exec.ExpectedProfit()

	if imbalance > e.cfg.ImbalanceTolerance {
		e.logger.Warn("execution-imbalanced-no-auto-hedge",
			zap.String("opportunity-id", exec.OpportunityID),
			zap.Float64("imbalance", imbalance),
			zap.Float64("matched-pairs", exec.MatchedPairs()))
		FillVerificationTotal.WithLabelValues("imbalanced").Inc()
	} else {
		OpportunitiesExecuted.Inc()
	}

	ProfitRealizedUSD.WithLabelValues(string(execMode(exec))).Add(profit)
	e.logger.Info("execution-complete",
		zap.String("opportunity-id", exec.OpportunityID),
		zap.Float64("matched-pairs", exec.MatchedPairs()),
		zap.Float64("total-cost", exec.TotalCost()),
		zap.Float64("expected-profit", profit),
		zap.Float64("imbalance", imbalance))
}

// execMode returns the mode label for an Execution's metrics, taken from
// whichever side produced a result first.
func execMode(exec types.Execution) types.ExecutionMode {
	if len(exec.UpResults) > 0 {
		return exec.UpResults[0].Mode
	}
	if len(exec.DownResults) > 0 {
		return exec.DownResults[0].Mode
	}
	return ""
}

// classifyError buckets venue errors for the error-rate metric (spec §7's
// error-kind taxonomy), matching the wrapped OrderError code where available
// and falling back to string matching otherwise.
func classifyError(err error) string {
	if err == nil {
		return "none"
	}
	if oerr, ok := err.(*types.OrderError); ok {
		switch oerr.Code {
		case types.ErrNotEnoughBalance:
			return "insufficient_funds"
		case types.ErrInvalidMinTickSize:
			return "validation"
		case types.ErrFOKNotFilled, types.ErrUnmatched:
			return "unmatched"
		case types.ErrMarketNotReady:
			return "market_not_ready"
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "context deadline"):
		return "timeout"
	case strings.Contains(msg, "connection"):
		return "network"
	default:
		return "unknown"
	}
}
