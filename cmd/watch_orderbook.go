package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/mselser95/polymarket-arb/internal/discovery"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/feed"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var watchOrderbookCmd = &cobra.Command{
	Use:   "watch-orderbook <market-slug>",
	Short: "Watch orderbook updates for a specific market",
	Long: `Connects to Polymarket WebSocket and displays real-time orderbook updates
for a specific market. Useful for debugging and understanding market dynamics.

Example:
  polymarket-arb watch-orderbook trump-popular-vote-2024`,
	Args: cobra.ExactArgs(1),
	RunE: runWatchOrderbook,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(watchOrderbookCmd)
	watchOrderbookCmd.Flags().BoolP("json", "j", false, "Output raw JSON messages")
}

func runWatchOrderbook(cmd *cobra.Command, args []string) error {
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

	jsonOutput, _ := cmd.Flags().GetBool("json")

	client := discovery.NewClient(cfg.PolymarketGammaURL, logger)
	market, err := client.FetchMarketBySlug(ctx, marketSlug)
	if err != nil {
		return fmt.Errorf("fetch market: %w", err)
	}

	fmt.Printf("Market: %s\n", market.Question)
	fmt.Printf("Slug: %s\n", market.Slug)
	fmt.Printf("ID: %s\n\n", market.ID)

	if len(market.Tokens) < 2 {
		return fmt.Errorf("market missing Up/Down tokens")
	}
	upToken := market.Tokens[0].TokenID
	downToken := market.Tokens[1].TokenID

	fmt.Printf("Up Token ID: %s\n", upToken)
	fmt.Printf("Down Token ID: %s\n\n", downToken)

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

	if err := manager.Subscribe(ctx, []string{upToken, downToken}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	fmt.Println("Subscribed! Watching for orderbook updates...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	eventChan := manager.EventChan()

	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutting down...")
			return nil
		case ev, ok := <-eventChan:
			if !ok {
				return fmt.Errorf("event channel closed")
			}

			if jsonOutput {
				jsonBytes, _ := json.MarshalIndent(ev, "", "  ")
				fmt.Println(string(jsonBytes))
			} else {
				printFormattedEvent(w, ev, upToken, downToken)
			}
		}
	}
}

func printFormattedEvent(w *tabwriter.Writer, ev types.FeedEvent, upTokenID, downTokenID string) {
	outcome := "UNKNOWN"
	switch string(ev.Token()) {
	case upTokenID:
		outcome = "UP"
	case downTokenID:
		outcome = "DOWN"
	}

	timestamp := time.Now().Format("15:04:05")

	switch e := ev.(type) {
	case types.BookSnapshotEvent:
		fmt.Fprintf(w, "[%s] %s\tsnapshot\t%s\n", timestamp, outcome, levelSummary(e.Bids, e.Asks))
	case types.PriceChangeEvent:
		fmt.Fprintf(w, "[%s] %s\tdelta\t%s\n", timestamp, outcome, levelSummary(e.BidsDelta, e.AsksDelta))
	case types.TradeEvent:
		fmt.Fprintf(w, "[%s] %s\ttrade\t%s@%.2f\n", timestamp, outcome, e.Price, e.Size)
	default:
		fmt.Fprintf(w, "[%s] %s\tunknown\n", timestamp, outcome)
	}

	w.Flush()
}

func levelSummary(bids, asks []types.Level) string {
	bestBid := "N/A"
	bestAsk := "N/A"

	if len(bids) > 0 {
		bestBid = fmt.Sprintf("%s@%.2f", bids[0].Price, bids[0].Size)
	}
	if len(asks) > 0 {
		bestAsk = fmt.Sprintf("%s@%.2f", asks[0].Price, asks[0].Size)
	}

	return fmt.Sprintf("Bid: %s  Ask: %s", bestBid, bestAsk)
}
