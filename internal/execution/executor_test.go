package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mselser95/polymarket-arb/internal/strategy"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testOpportunity() types.Opportunity {
	return types.Opportunity{
		ID:             "opp-1",
		Market:         types.MarketID("mkt-1"),
		UpToken:        types.TokenID("up-token"),
		DownToken:      types.TokenID("down-token"),
		UpAvgPrice:     0.45,
		DownAvgPrice:   0.50,
		Pairs:          200,
		PerPairProfit:  0.05,
		FeeRateAssumed: 0.015,
		DetectedAt:     time.Now(),
	}
}

func newTestExecutor(t *testing.T, cfg *Config) *Executor {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Selector == nil {
		cfg.Selector = strategy.New(strategy.Config{TakerFeeRate: 0.015, Logger: cfg.Logger})
	}
	return New(cfg)
}

// suborders splits a side's budget into 20-40 token chunks, dropping
// anything under the 5-token floor (spec §4.5).
func TestSuborders_SplitsIntoChunks(t *testing.T) {
	orders := suborders(types.Up, types.TokenID("tok"), 0.40, 1000, 100, types.ModeTaker)
	require.NotEmpty(t, orders)

	var total float64
	for _, o := range orders {
		assert.Equal(t, types.Up, o.Side)
		assert.GreaterOrEqual(t, o.Size, minSuborderTokens)
		assert.LessOrEqual(t, o.Size, maxSuborderSize)
		total += o.Size
	}
	// budget 100 / price 0.40 = 250 tokens, bounded below availablePairs.
	assert.InDelta(t, 250.0, total, 0.01)
}

func TestSuborders_DropsUnderFloor(t *testing.T) {
	orders := suborders(types.Up, types.TokenID("tok"), 1.0, 1000, 4, types.ModeTaker)
	assert.Nil(t, orders)
}

func TestSuborders_LastChunkAbsorbsRemainder(t *testing.T) {
	// 27 tokens: one 20-token suborder would leave 7, which is itself valid,
	// but 22 would leave 5-under-minSuborderTokens type splits should still
	// produce suborders that individually clear the floor.
	orders := suborders(types.Up, types.TokenID("tok"), 1.0, 27, 27, types.ModeTaker)
	require.NotEmpty(t, orders)
	for _, o := range orders {
		assert.GreaterOrEqual(t, o.Size, minSuborderTokens)
	}
}

func TestSuborders_BoundedByAvailablePairs(t *testing.T) {
	// budget allows 1000 tokens but only 30 pairs are available.
	orders := suborders(types.Down, types.TokenID("tok"), 1.0, 30, 1000, types.ModeMaker)
	var total float64
	for _, o := range orders {
		total += o.Size
	}
	assert.InDelta(t, 30.0, total, 0.01)
}

func TestSuborders_ZeroPriceOrBudgetYieldsNil(t *testing.T) {
	assert.Nil(t, suborders(types.Up, types.TokenID("tok"), 0, 100, 100, types.ModeTaker))
	assert.Nil(t, suborders(types.Up, types.TokenID("tok"), 0.5, 100, 0, types.ModeTaker))
}

func TestBuildPlan_SplitsBudgetAcrossSides(t *testing.T) {
	e := newTestExecutor(t, &Config{MaxBetSize: 200, MaxBankrollFrac: 1.0})
	plan := e.buildPlan(testOpportunity(), types.ModeTaker, 10000)

	require.NotEmpty(t, plan.UpOrders)
	require.NotEmpty(t, plan.DownOrders)

	var upTotal, downTotal float64
	for _, o := range plan.UpOrders {
		upTotal += o.Size
	}
	for _, o := range plan.DownOrders {
		downTotal += o.Size
	}
	// side budget = 100; up 100/0.45=222.2, down 100/0.50=200, both under 200 Pairs cap.
	assert.InDelta(t, 200.0, upTotal, 1.0)
	assert.InDelta(t, 200.0, downTotal, 1.0)
}

func TestBuildPlan_BankrollFractionCaps(t *testing.T) {
	e := newTestExecutor(t, &Config{MaxBetSize: 10000, MaxBankrollFrac: 0.01})
	plan := e.buildPlan(testOpportunity(), types.ModeTaker, 1000) // max-by-bankroll = 10
	require.NotEmpty(t, plan.UpOrders)
	var upTotal float64
	for _, o := range plan.UpOrders {
		upTotal += o.Size
	}
	// side budget = 10/2 = 5; 5/0.45 = 11.1 tokens, a single suborder.
	assert.InDelta(t, 11.1, upTotal, 0.2)
}

func TestDispatchOne_DryRunSynthesizesFullFill(t *testing.T) {
	e := newTestExecutor(t, &Config{DryRun: true})
	e.ctx = context.Background()

	order := types.PlannedOrder{Side: types.Up, Token: types.TokenID("tok"), Price: types.CentsFromFloat(0.5), Size: 20, Mode: types.ModeTaker}
	result := e.dispatchOne(order)

	assert.True(t, result.Success)
	assert.Equal(t, "paper", result.ExchangeOrderID)
	assert.Equal(t, 20.0, result.FilledSize)
	assert.InDelta(t, 10.0, result.FilledCost, 0.001)
}

func TestDispatch_RunsBothSidesConcurrently(t *testing.T) {
	e := newTestExecutor(t, &Config{DryRun: true})
	e.ctx = context.Background()

	plan := types.OrderPlan{
		Opportunity: testOpportunity(),
		UpOrders:    []types.PlannedOrder{{Side: types.Up, Token: "up", Price: types.CentsFromFloat(0.45), Size: 20, Mode: types.ModeTaker}},
		DownOrders:  []types.PlannedOrder{{Side: types.Down, Token: "down", Price: types.CentsFromFloat(0.50), Size: 20, Mode: types.ModeTaker}},
	}
	exec := e.dispatch(plan)
	assert.Len(t, exec.UpResults, 1)
	assert.Len(t, exec.DownResults, 1)
	assert.Equal(t, 0.0, exec.Imbalance())
}

func TestReconcile_AcceptsSmallImbalance(t *testing.T) {
	e := newTestExecutor(t, &Config{ImbalanceTolerance: 5})
	exec := types.Execution{
		OpportunityID: "opp-1",
		UpResults:     []types.OrderResult{{Success: true, FilledSize: 20, FilledCost: 9, Mode: types.ModeTaker}},
		DownResults:   []types.OrderResult{{Success: true, FilledSize: 18, FilledCost: 9, Mode: types.ModeTaker}},
	}
	e.reconcile(exec) // imbalance=2 < tolerance=5, should not panic and should count as executed
}

func TestReconcile_LogsImbalanceAboveTolerance(t *testing.T) {
	e := newTestExecutor(t, &Config{ImbalanceTolerance: 5})
	exec := types.Execution{
		OpportunityID: "opp-1",
		UpResults:     []types.OrderResult{{Success: true, FilledSize: 20, FilledCost: 9, Mode: types.ModeTaker}},
		DownResults:   []types.OrderResult{{Success: true, FilledSize: 5, FilledCost: 2.5, Mode: types.ModeTaker}},
	}
	e.reconcile(exec) // imbalance=15 > tolerance=5; log-only, no auto-hedge
}

func TestExecMode_PrefersUpSide(t *testing.T) {
	exec := types.Execution{
		UpResults:   []types.OrderResult{{Mode: types.ModeMaker}},
		DownResults: []types.OrderResult{{Mode: types.ModeTaker}},
	}
	assert.Equal(t, types.ModeMaker, execMode(exec))
}

func TestExecMode_FallsBackToDownSide(t *testing.T) {
	exec := types.Execution{DownResults: []types.OrderResult{{Mode: types.ModeHybrid}}}
	assert.Equal(t, types.ModeHybrid, execMode(exec))
}

func TestClassifyError_OrderErrorCodes(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{types.ErrNotEnoughBalance, "insufficient_funds"},
		{types.ErrInvalidMinTickSize, "validation"},
		{types.ErrFOKNotFilled, "unmatched"},
		{types.ErrUnmatched, "unmatched"},
		{types.ErrMarketNotReady, "market_not_ready"},
	}
	for _, c := range cases {
		err := &types.OrderError{Code: c.code, Message: "boom"}
		assert.Equal(t, c.want, classifyError(err))
	}
}

func TestClassifyError_FallsBackToStringMatching(t *testing.T) {
	assert.Equal(t, "timeout", classifyError(errors.New("context deadline exceeded")))
	assert.Equal(t, "network", classifyError(errors.New("dial tcp: connection refused")))
	assert.Equal(t, "unknown", classifyError(errors.New("something odd")))
	assert.Equal(t, "none", classifyError(nil))
}

func TestHandle_SkipsEmptyPlanWithoutPanicking(t *testing.T) {
	e := newTestExecutor(t, &Config{MaxBetSize: 0, MaxBankrollFrac: 0})
	e.ctx = context.Background()
	opp := testOpportunity()
	opp.Pairs = 0
	e.handle(opp) // MaxBetSize=0 => budget=0 => both sides empty => early return, no panic
}
