package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mselser95/polymarket-arb/internal/discovery"
	"github.com/mselser95/polymarket-arb/internal/orderbook"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/feed"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var executeArbCmd = &cobra.Command{
	Use:   "execute-arb <market-slug>",
	Short: "Watch a single market and report arbitrage opportunities as they cross",
	Long: `Connects to a single market's orderbook, checks the Up/Down books
every 200ms, and prints an Opportunity whenever the combined best-ask
price clears the configured margin after the taker fee. Only the best ask
of each side is considered; deeper ladder levels are not walked. Useful for testing
the detection/sizing logic against a live market without running the
full bot.

Example:
  polymarket-arb execute-arb fed-increases-interest-rates-by-25-bps-after-january-2026-meeting`,
	Args: cobra.ExactArgs(1),
	RunE: runExecuteArb,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(executeArbCmd)
	executeArbCmd.Flags().Float64P("margin", "m", 0.01, "Minimum profit margin (decimal)")
	executeArbCmd.Flags().Float64P("fee", "f", 0.01, "Taker fee (0.01 = 1%)")
	executeArbCmd.Flags().DurationP("watch", "w", 30*time.Second, "How long to watch before giving up")
}

func runExecuteArb(cmd *cobra.Command, args []string) error {
	marketSlug := args[0]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	minMargin, _ := cmd.Flags().GetFloat64("margin")
	takerFee, _ := cmd.Flags().GetFloat64("fee")
	watchFor, _ := cmd.Flags().GetDuration("watch")

	fmt.Printf("=== Polymarket Arbitrage Watcher ===\n\n")
	fmt.Printf("Market: %s\n", marketSlug)
	fmt.Printf("Min Margin: %.4f\n", minMargin)
	fmt.Printf("Taker Fee: %.2f%%\n\n", takerFee*100)

	client := discovery.NewClient(cfg.PolymarketGammaURL, logger)
	market, err := client.FetchMarketBySlug(ctx, marketSlug)
	if err != nil {
		return fmt.Errorf("fetch market: %w", err)
	}
	if len(market.Tokens) < 2 {
		return fmt.Errorf("market %q has fewer than two outcome tokens", marketSlug)
	}

	fmt.Printf("Question: %s\n", market.Question)
	fmt.Printf("Market ID: %s\n\n", market.ID)

	upToken := types.TokenID(market.Tokens[0].TokenID)
	downToken := types.TokenID(market.Tokens[1].TokenID)
	marketID := types.MarketID(market.ID)

	fmt.Printf("Up Token:   %s\n", upToken)
	fmt.Printf("Down Token: %s\n\n", downToken)

	manager := feed.New(feed.Config{
		URL:               cfg.PolymarketWSURL,
		DialTimeout:       cfg.WSDialTimeout,
		PongTimeout:       cfg.WSPongTimeout,
		PingInterval:      cfg.WSPingInterval,
		IdleTimeout:       cfg.WSIdleTimeout,
		ReconnectMinDelay: cfg.WSReconnectInitialDelay,
		ReconnectMaxDelay: cfg.WSReconnectMaxDelay,
		EventBufferSize:   cfg.WSMessageBufferSize,
		Logger:            logger,
	})
	if err := manager.Start(); err != nil {
		return fmt.Errorf("start feed manager: %w", err)
	}
	defer func() { _ = manager.Close() }()

	store := orderbook.New(orderbook.Config{MaxBookStalenessMs: cfg.MaxBookStalenessMs, Logger: logger})
	store.Register(upToken, marketID)
	store.Register(downToken, marketID)
	store.Start(ctx, manager.EventChan(), manager.StaleChan())
	defer store.Close()

	if err := manager.Subscribe(ctx, []string{string(upToken), string(downToken)}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	fmt.Println("Subscribed to orderbook. Watching for a crossing opportunity...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(watchFor)

	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutdown requested")
			return nil
		case <-deadline:
			return fmt.Errorf("timeout waiting for a crossing opportunity")
		case <-ticker.C:
			opp, ok := checkOpportunity(store, marketID, upToken, downToken, minMargin, takerFee)
			if !ok {
				continue
			}
			printOpportunity(opp)
			return nil
		}
	}
}

func checkOpportunity(
	store *orderbook.Store,
	marketID types.MarketID,
	upToken, downToken types.TokenID,
	minMargin, takerFee float64,
) (types.Opportunity, bool) {
	upBook, ok := store.GetBook(upToken)
	if !ok {
		return types.Opportunity{}, false
	}
	downBook, ok := store.GetBook(downToken)
	if !ok {
		return types.Opportunity{}, false
	}

	upAsk, ok := upBook.BestAsk()
	if !ok {
		return types.Opportunity{}, false
	}
	downAsk, ok := downBook.BestAsk()
	if !ok {
		return types.Opportunity{}, false
	}

	upPrice := upAsk.Price.Decimal()
	downPrice := downAsk.Price.Decimal()
	margin := 1 - (upPrice + downPrice) - (upPrice+downPrice)*takerFee
	if margin < minMargin {
		return types.Opportunity{}, false
	}

	pairs := upAsk.Size
	if downAsk.Size < pairs {
		pairs = downAsk.Size
	}

	return types.Opportunity{
		Market:         marketID,
		UpToken:        upToken,
		DownToken:      downToken,
		UpAvgPrice:     upPrice,
		DownAvgPrice:   downPrice,
		Pairs:          pairs,
		PerPairProfit:  margin,
		FeeRateAssumed: takerFee,
		DetectedAt:     time.Now(),
	}, true
}

func printOpportunity(opp types.Opportunity) {
	fmt.Println("\n=== Arbitrage Opportunity ===")
	fmt.Printf("Up Ask:   %.4f\n", opp.UpAvgPrice)
	fmt.Printf("Down Ask: %.4f\n", opp.DownAvgPrice)
	fmt.Printf("Combined: %.4f\n", opp.CombinedCost())
	fmt.Printf("Pairs available: %.2f\n", opp.Pairs)
	fmt.Printf("Per-pair profit (after %.2f%% fee): %.4f\n\n", opp.FeeRateAssumed*100, opp.PerPairProfit)
	fmt.Printf("Estimated total profit: $%.4f\n", opp.PerPairProfit*opp.Pairs)
}
