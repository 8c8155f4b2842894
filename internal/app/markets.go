package app

import (
	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

// handleNewMarkets subscribes to new markets as they are discovered.
func (a *App) handleNewMarkets() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case market, ok := <-a.discoveryService.NewMarketsChan():
			if !ok {
				return
			}

			a.subscribeToMarket(market)
		}
	}
}

// subscribeToMarket registers both outcome tokens with the Orderbook Store
// and opens their Feed Client subscription. The first token is Up, the
// second Down, matching internal/discovery's routing convention.
func (a *App) subscribeToMarket(market *types.Market) {
	if len(market.Tokens) < 2 {
		a.logger.Warn("market-missing-tokens",
			zap.String("market-id", market.ID),
			zap.String("slug", market.Slug))
		return
	}

	marketID := types.MarketID(market.ID)
	upToken := types.TokenID(market.Tokens[0].TokenID)
	downToken := types.TokenID(market.Tokens[1].TokenID)

	a.obStore.Register(upToken, marketID)
	a.obStore.Register(downToken, marketID)

	tokenIDs := []string{market.Tokens[0].TokenID, market.Tokens[1].TokenID}
	if err := a.feedPool.Subscribe(a.ctx, tokenIDs); err != nil {
		a.logger.Error("subscribe-failed",
			zap.String("market-id", market.ID),
			zap.String("slug", market.Slug),
			zap.Error(err))
		return
	}

	a.logger.Info("subscribed-to-market",
		zap.String("slug", market.Slug),
		zap.String("question", market.Question))
}
