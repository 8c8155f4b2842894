package arbitrage

import (
	"context"
	"testing"
	"time"

	"github.com/mselser95/polymarket-arb/internal/orderbook"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	upToken   types.TokenID = "up"
	downToken types.TokenID = "down"
	testMkt   types.MarketID = "mkt-1"
)

type staticLookup struct{}

func (staticLookup) MarketFor(token types.TokenID) (types.MarketID, types.TokenID, types.TokenID, bool) {
	if token != upToken && token != downToken {
		return "", "", "", false
	}
	return testMkt, upToken, downToken, true
}

func newTestDetector(t *testing.T, minMargin, feeRate float64, maxStalenessMs int64) (*Detector, *orderbook.Store) {
	t.Helper()
	store := orderbook.New(orderbook.Config{MaxBookStalenessMs: maxStalenessMs, Logger: zap.NewNop()})
	store.Register(upToken, testMkt)
	store.Register(downToken, testMkt)

	d := New(Config{
		MinMargin:          minMargin,
		TakerFeeRate:       feeRate,
		MaxBookStalenessMs: maxStalenessMs,
		Logger:             zap.NewNop(),
	}, store, staticLookup{}, nil)
	d.Start(context.Background())
	return d, store
}

// seedBooks pushes a snapshot for each token through the Store's public
// event pipeline and waits for both to land.
func seedBooks(t *testing.T, store *orderbook.Store, upAsks, downAsks []types.Level) {
	t.Helper()
	eventCh := make(chan types.FeedEvent, 2)
	staleCh := make(chan types.TokenID, 1)
	eventCh <- types.BookSnapshotEvent{TokenID: upToken, Asks: upAsks}
	eventCh <- types.BookSnapshotEvent{TokenID: downToken, Asks: downAsks}
	close(eventCh)

	store.Start(context.Background(), eventCh, staleCh)
	require.Eventually(t, func() bool {
		ub, ok1 := store.GetBook(upToken)
		db, ok2 := store.GetBook(downToken)
		return ok1 && ok2 && ub.HasSnapshot && db.HasSnapshot
	}, time.Second, time.Millisecond)
	store.Close()
}

func TestWalk_ScenarioA_CleanSingleLevelArb(t *testing.T) {
	d, _ := newTestDetector(t, 0.01, 0, 3000)

	opp, ok := d.walk(testMkt, upToken, downToken,
		[]types.Level{{Price: 48, Size: 100}},
		[]types.Level{{Price: 48, Size: 100}})

	require.True(t, ok)
	require.InDelta(t, 0.48, opp.UpAvgPrice, 1e-9)
	require.InDelta(t, 0.48, opp.DownAvgPrice, 1e-9)
	require.InDelta(t, 100, opp.Pairs, 1e-9)
	require.InDelta(t, 0.04, opp.PerPairProfit, 1e-9)
}

func TestWalk_ScenarioB_LadderWalk(t *testing.T) {
	d, _ := newTestDetector(t, 0.01, 0, 3000)

	opp, ok := d.walk(testMkt, upToken, downToken,
		[]types.Level{{Price: 45, Size: 50}, {Price: 47, Size: 200}},
		[]types.Level{{Price: 50, Size: 30}, {Price: 52, Size: 200}})

	require.True(t, ok)
	require.InDelta(t, 230, opp.Pairs, 1e-9)
	require.InDelta(t, 0.4657, opp.UpAvgPrice, 1e-4)
	require.InDelta(t, 0.5174, opp.DownAvgPrice, 1e-4)
	require.InDelta(t, 0.0170, opp.PerPairProfit, 1e-4)
}

func TestWalk_ScenarioC_MarginEvaporatesWithFee(t *testing.T) {
	d, _ := newTestDetector(t, 0.01, 0.015, 3000)

	// 0.49 + 0.50 = 0.99 leaves 0.01 before fees; the 1.5% fee on 0.99
	// (0.01485) turns the net negative, so no Opportunity is emitted.
	_, ok := d.walk(testMkt, upToken, downToken,
		[]types.Level{{Price: 49, Size: 100}},
		[]types.Level{{Price: 50, Size: 100}})

	require.False(t, ok)
}

func TestDetector_ScenarioD_StaleBookSkipsDetection(t *testing.T) {
	d, store := newTestDetector(t, 0.01, 0, 50) // 50ms staleness window

	seedBooks(t, store, []types.Level{{Price: 48, Size: 100}}, []types.Level{{Price: 48, Size: 100}})
	time.Sleep(80 * time.Millisecond) // age both books past MaxBookStalenessMs

	d.evaluate(testMkt, upToken, downToken)

	select {
	case <-d.OpportunityChan():
		t.Fatal("expected no opportunity for stale books")
	default:
	}
}

func TestWalk_EmptyAskSideYieldsNoOpportunity(t *testing.T) {
	d, _ := newTestDetector(t, 0.01, 0, 3000)

	_, ok := d.walk(testMkt, upToken, downToken, nil, []types.Level{{Price: 48, Size: 100}})
	require.False(t, ok)
}

func TestWalk_BoundaryExactMinMarginWithZeroFeeEmits(t *testing.T) {
	d, _ := newTestDetector(t, 0.01, 0, 3000)

	// best_ask_up + best_ask_down == 1 - MIN_MARGIN exactly (0.99), fee=0,
	// so net == MIN_MARGIN exactly, which clears the walk's ">=" test.
	opp, ok := d.walk(testMkt, upToken, downToken,
		[]types.Level{{Price: 49, Size: 10}},
		[]types.Level{{Price: 50, Size: 10}})

	require.True(t, ok)
	require.GreaterOrEqual(t, opp.Pairs, 1.0)
}

func TestWalk_InvariantPriceProfitSumsToOne(t *testing.T) {
	d, _ := newTestDetector(t, 0.01, 0, 3000)

	opp, ok := d.walk(testMkt, upToken, downToken,
		[]types.Level{{Price: 45, Size: 50}, {Price: 47, Size: 200}},
		[]types.Level{{Price: 50, Size: 30}, {Price: 52, Size: 200}})

	require.True(t, ok)
	require.InDelta(t, 1.0, opp.UpAvgPrice+opp.DownAvgPrice+opp.PerPairProfit, 1e-6)
}
