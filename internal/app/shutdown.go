package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	// Cancel context to signal all components
	a.cancel()

	// Shutdown components in dependency order
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	err := a.shutdownHTTPServer(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	// Cancel market-maker quotes before anything else stops placing orders
	err = a.shutdownMarketMaker()
	if err != nil {
		a.logger.Error("market-maker-close-error", zap.Error(err))
	}

	// Close executor
	err = a.shutdownExecutor()
	if err != nil {
		a.logger.Error("executor-close-error", zap.Error(err))
	}

	// Close arbitrage detector
	err = a.shutdownArbitrageDetector()
	if err != nil {
		a.logger.Error("arbitrage-detector-close-error", zap.Error(err))
	}

	// Close storage
	err = a.shutdownStorage()
	if err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	// Close orderbook store
	a.obStore.Close()

	// Close feed pool
	err = a.shutdownFeedPool()
	if err != nil {
		a.logger.Error("feed-pool-close-error", zap.Error(err))
	}

	// Wait for all goroutines
	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")

	return nil
}

func (a *App) shutdownHTTPServer(ctx context.Context) error {
	return a.httpServer.Shutdown(ctx)
}

func (a *App) shutdownMarketMaker() error {
	if a.marketMaker == nil {
		return nil
	}
	return a.marketMaker.Close()
}

func (a *App) shutdownExecutor() error {
	if a.executor == nil {
		return nil
	}
	return a.executor.Close()
}

func (a *App) shutdownArbitrageDetector() error {
	a.arbDetector.Close()
	return nil
}

func (a *App) shutdownStorage() error {
	return a.storage.Close()
}

func (a *App) shutdownFeedPool() error {
	return a.feedPool.Close()
}
