package app

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mselser95/polymarket-arb/internal/arbitrage"
	"github.com/mselser95/polymarket-arb/internal/discovery"
	"github.com/mselser95/polymarket-arb/internal/orderbook"
	"github.com/mselser95/polymarket-arb/internal/testutil"
	"github.com/mselser95/polymarket-arb/pkg/cache"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap/zaptest"
)

// TestE2E_ArbitrageHappyPath_WithProfitOutput exercises the complete
// detection flow from orderbook snapshots through stored opportunity.
//
// Flow:
// 1. Mock Gamma API returns a binary Up/Down market
// 2. Orderbook Store receives book snapshots with a crossing opportunity
// 3. Arbitrage Detector fires on the second snapshot and stores the result
// 4. Test verifies the stored opportunity and prints a profit breakdown.
func TestE2E_ArbitrageHappyPath_WithProfitOutput(t *testing.T) {
	// Orderbook prices (detected opportunity):
	// - Up ask:   $0.45
	// - Down ask: $0.48
	// - Combined: 0.93, well under $1 minus fees -> arbitrage!
	logger := zaptest.NewLogger(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	market := testutil.CreateTestMarket("test-binary-market", "test-slug", "Will Bitcoin hit $100k by EOY?")
	upToken := types.TokenID(market.Tokens[0].TokenID)
	downToken := types.TokenID(market.Tokens[1].TokenID)
	marketID := types.MarketID(market.ID)

	mockAPI := testutil.NewMockGammaAPI([]*types.Market{market})
	defer mockAPI.Close()

	cacheInterface, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer cacheInterface.Close()

	discoveryClient := discovery.NewClient(mockAPI.URL, logger)
	discoverySvc := discovery.New(&discovery.Config{
		Client:       discoveryClient,
		Cache:        cacheInterface,
		PollInterval: 1 * time.Second,
		MarketLimit:  10,
		Logger:       logger,
	})

	obStore := orderbook.New(orderbook.Config{MaxBookStalenessMs: 3000, Logger: logger})
	obStore.Register(upToken, marketID)
	obStore.Register(downToken, marketID)

	mockStorage := testutil.NewMockStorage()

	detector := arbitrage.New(arbitrage.Config{
		MinMargin:          0.01,
		TakerFeeRate:       0.01,
		MaxBookStalenessMs: 3000,
		Logger:             logger,
	}, obStore, discoverySvc, mockStorage)

	obStore.Subscribe(detector)

	eventChan := make(chan types.FeedEvent, 100)
	staleChan := make(chan types.TokenID, 10)
	obStore.Start(ctx, eventChan, staleChan)
	defer obStore.Close()

	if err := detector.Start(ctx); err != nil {
		t.Fatalf("failed to start detector: %v", err)
	}
	defer detector.Close()

	discoverCtx, discoverCancel := context.WithCancel(ctx)
	defer discoverCancel()
	go func() {
		_ = discoverySvc.Run(discoverCtx)
	}()

	select {
	case <-discoverySvc.NewMarketsChan():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for market discovery")
	}

	upSnapshot, downSnapshot := testutil.CreateArbitrageBookSnapshots(string(upToken), string(downToken), 0.45, 0.48)
	eventChan <- upSnapshot
	eventChan <- downSnapshot

	time.Sleep(500 * time.Millisecond)

	stored := mockStorage.GetOpportunities()
	if len(stored) == 0 {
		t.Fatal("expected at least one stored opportunity")
	}

	opp := stored[0]
	if opp.Market != marketID {
		t.Errorf("expected market ID %s, got %s", marketID, opp.Market)
	}

	combined := opp.CombinedCost()
	if combined >= 1.0 {
		t.Errorf("expected combined cost below 1.0, got %f", combined)
	}

	grossProfit := opp.Pairs * opp.PerPairProfit
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("ARBITRAGE DETECTION SUMMARY")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Market:        %s\n", market.Question)
	fmt.Printf("Up Ask:        $%.4f\n", opp.UpAvgPrice)
	fmt.Printf("Down Ask:      $%.4f\n", opp.DownAvgPrice)
	fmt.Printf("Combined:      $%.4f\n", combined)
	fmt.Printf("Pairs:         %.2f\n", opp.Pairs)
	fmt.Printf("Per-pair (after %.2f%% fee): $%.4f\n", opp.FeeRateAssumed*100, opp.PerPairProfit)
	fmt.Printf("Gross profit:  $%.4f\n", grossProfit)
	fmt.Println(strings.Repeat("=", 70))

	if grossProfit <= 0 {
		t.Errorf("expected positive gross profit, got $%.4f", grossProfit)
	}
}
