package types

import "time"

// Opportunity is the output of one paired ladder walk (internal/arbitrage).
// Invariant: PerPairProfit >= the configured MIN_MARGIN and Pairs >= 1.
type Opportunity struct {
	ID             string
	Market         MarketID
	UpToken        TokenID
	DownToken      TokenID
	UpAvgPrice     float64 // volume-weighted average fill price, Up side; generally off the cent grid
	DownAvgPrice   float64
	Pairs          float64
	PerPairProfit  float64 // decimal, 1 - up_avg - down_avg
	FeeRateAssumed float64
	DetectedAt     time.Time
}

// CombinedCost is the decimal sum of the two average prices.
func (o Opportunity) CombinedCost() float64 {
	return o.UpAvgPrice + o.DownAvgPrice
}

// ExecutionMode is the Strategy Selector's chosen placement strategy.
type ExecutionMode string

const (
	ModeMaker  ExecutionMode = "maker"
	ModeTaker  ExecutionMode = "taker"
	ModeHybrid ExecutionMode = "hybrid"
)

// PlannedOrder is one suborder within an OrderPlan.
type PlannedOrder struct {
	Side  Side
	Token TokenID
	Price Cents
	Size  float64
	Mode  ExecutionMode
}

// OrderPlan is the ordered sequence of suborders the Order Submitter will
// dispatch for one Opportunity. Invariant: total planned spend per side
// <= that side's budget; each suborder's size is bounded by the ladder
// level it was sized against.
type OrderPlan struct {
	Opportunity Opportunity
	UpOrders    []PlannedOrder
	DownOrders  []PlannedOrder
}

// OrderResult is the outcome of dispatching a single PlannedOrder.
type OrderResult struct {
	Success         bool
	ExchangeOrderID string
	FilledSize      float64
	FilledCost      float64
	LatencyMS       int64
	Mode            ExecutionMode
	Side            Side
	Err             error
}

// Execution aggregates the per-side OrderResults of one OrderPlan dispatch.
type Execution struct {
	OpportunityID string
	Market        MarketID
	UpResults     []OrderResult
	DownResults   []OrderResult
	ExecutedAt    time.Time
}

func sumFilled(results []OrderResult) (size, cost float64) {
	for _, r := range results {
		if r.Success {
			size += r.FilledSize
			cost += r.FilledCost
		}
	}
	return size, cost
}

// MatchedPairs is min(sum_filled_up, sum_filled_down).
func (e Execution) MatchedPairs() float64 {
	upSize, _ := sumFilled(e.UpResults)
	downSize, _ := sumFilled(e.DownResults)
	if upSize < downSize {
		return upSize
	}
	return downSize
}

// TotalCost is the sum of filled cost across both sides.
func (e Execution) TotalCost() float64 {
	_, upCost := sumFilled(e.UpResults)
	_, downCost := sumFilled(e.DownResults)
	return upCost + downCost
}

// ExpectedProfit is MatchedPairs - TotalCost.
func (e Execution) ExpectedProfit() float64 {
	return e.MatchedPairs() - e.TotalCost()
}

// Imbalance is the absolute difference between filled size on each side;
// the Order Submitter's partial-fill policy logs (never auto-hedges) when
// this exceeds the configured tolerance.
func (e Execution) Imbalance() float64 {
	upSize, _ := sumFilled(e.UpResults)
	downSize, _ := sumFilled(e.DownResults)
	diff := upSize - downSize
	if diff < 0 {
		diff = -diff
	}
	return diff
}

// Quote is one active market-maker two-sided posting for a market.
// Invariant: at most one active Quote per market; total active Quotes
// across the process never exceed MM_MAX_MARKETS.
type Quote struct {
	Market          MarketID
	UpPrice         Cents
	DownPrice       Cents
	UpOrderID       string
	DownOrderID     string
	PostedAt        time.Time
}

// SessionState is process-wide, owned by the Session Supervisor and mutated
// only by it and by the Submitter on successful fills.
type SessionState struct {
	Bankroll           float64
	OpportunitiesSeen  int64
	OpportunitiesSkippedStale  int64
	OpportunitiesSkippedMargin int64
	FillsAttempted     int64
	FillsSucceeded     int64
	FillsPartial       int64
	RealizedProfit     float64
	Running            bool
}
