package app

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mselser95/polymarket-arb/internal/arbitrage"
	"github.com/mselser95/polymarket-arb/internal/circuitbreaker"
	"github.com/mselser95/polymarket-arb/internal/discovery"
	"github.com/mselser95/polymarket-arb/internal/execution"
	"github.com/mselser95/polymarket-arb/internal/marketmaker"
	"github.com/mselser95/polymarket-arb/internal/markets"
	"github.com/mselser95/polymarket-arb/internal/orderbook"
	"github.com/mselser95/polymarket-arb/internal/storage"
	"github.com/mselser95/polymarket-arb/internal/strategy"
	"github.com/mselser95/polymarket-arb/pkg/cache"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/feed"
	"github.com/mselser95/polymarket-arb/pkg/healthprobe"
	"github.com/mselser95/polymarket-arb/pkg/httpserver"
	"github.com/mselser95/polymarket-arb/pkg/wallet"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := setupHealthChecker()

	marketCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	discoveryService := setupDiscoveryService(cfg, logger, marketCache, opts)
	feedPool := setupFeedPool(cfg, logger)
	obStore := setupOrderbookStore(cfg, logger)

	httpServer := setupHTTPServer(cfg, logger, healthChecker, obStore, discoveryService)

	arbStorage, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	arbDetector := setupArbitrageDetector(cfg, logger, obStore, discoveryService, arbStorage)

	metadataClient := markets.NewMetadataClient()
	cachedMetadataClient := markets.NewCachedMetadataClient(metadataClient, marketCache)

	breaker, err := setupCircuitBreaker(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup circuit breaker: %w", err)
	}

	var orderClient *execution.OrderClient
	if cfg.ExecutionMode != "dry-run" && cfg.PolymarketAPIKey != "" {
		orderClient, err = setupOrderClient(cfg, logger)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("setup order client: %w", err)
		}
	}

	executor := setupExecutor(cfg, logger, arbDetector, cachedMetadataClient, discoveryService, breaker, orderClient)

	var maker *marketmaker.Maker
	if cfg.MMEnabled && orderClient != nil {
		maker = setupMarketMaker(cfg, logger, obStore, discoveryService, orderClient)
	}

	return &App{
		cfg:              cfg,
		logger:           logger,
		healthChecker:    healthChecker,
		httpServer:       httpServer,
		discoveryService: discoveryService,
		feedPool:         feedPool,
		obStore:          obStore,
		arbDetector:      arbDetector,
		executor:         executor,
		marketMaker:      maker,
		storage:          arbStorage,
		ctx:              ctx,
		cancel:           cancel,
	}, nil
}

func setupHealthChecker() *healthprobe.HealthChecker {
	return healthprobe.New()
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	obStore *orderbook.Store,
	discoveryService *discovery.Service,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:             cfg.HTTPPort,
		Logger:           logger,
		HealthChecker:    healthChecker,
		OrderbookStore:   obStore,
		DiscoveryService: discoveryService,
	})
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000, // 10x expected max items (1000 markets)
		MaxCost:     1000,  // Maximum 1000 items in cache
		BufferItems: 64,    // Buffer size for Get operations
		Logger:      logger,
	})
}

func setupDiscoveryService(cfg *config.Config, logger *zap.Logger, marketCache cache.Cache, opts *Options) *discovery.Service {
	discoveryClient := discovery.NewClient(cfg.PolymarketGammaURL, logger)
	return discovery.New(&discovery.Config{
		Client:            discoveryClient,
		Cache:             marketCache,
		PollInterval:      cfg.DiscoveryPollInterval,
		MarketLimit:       cfg.DiscoveryMarketLimit,
		MaxMarketDuration: cfg.MaxMarketDuration,
		Logger:            logger,
		SingleMarket:      opts.SingleMarket,
	})
}

func setupFeedPool(cfg *config.Config, logger *zap.Logger) *feed.Pool {
	return feed.NewPool(feed.PoolConfig{
		MaxTokensPerShard: cfg.WSMaxTokensPerShard,
		WSUrl:             cfg.PolymarketWSURL,
		DialTimeout:       cfg.WSDialTimeout,
		PongTimeout:       cfg.WSPongTimeout,
		PingInterval:      cfg.WSPingInterval,
		IdleTimeout:       cfg.WSIdleTimeout,
		ReconnectMinDelay: cfg.WSReconnectInitialDelay,
		ReconnectMaxDelay: cfg.WSReconnectMaxDelay,
		EventBufferSize:   cfg.WSMessageBufferSize,
		Logger:            logger,
	})
}

func setupOrderbookStore(cfg *config.Config, logger *zap.Logger) *orderbook.Store {
	return orderbook.New(orderbook.Config{
		MaxBookStalenessMs: cfg.MaxBookStalenessMs,
		Logger:             logger,
	})
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

func setupArbitrageDetector(
	cfg *config.Config,
	logger *zap.Logger,
	obStore *orderbook.Store,
	discoveryService *discovery.Service,
	arbStorage storage.Storage,
) *arbitrage.Detector {
	return arbitrage.New(
		arbitrage.Config{
			MinMargin:          cfg.MinProfitMargin,
			TakerFeeRate:       cfg.TakerFeeRate,
			MaxBookStalenessMs: cfg.MaxBookStalenessMs,
			Logger:             logger,
		},
		obStore,
		discoveryService,
		arbStorage,
	)
}

// setupCircuitBreaker wires the bankroll circuit breaker (supplemental
// risk-management texture per SPEC_FULL.md §4.7): it derives the signer
// address from POLYMARKET_PRIVATE_KEY and samples on-chain USDC balance on
// an interval, gating new submissions rather than hedging existing ones.
func setupCircuitBreaker(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*circuitbreaker.BalanceCircuitBreaker, error) {
	if !cfg.CircuitBreakerEnabled {
		return nil, nil
	}

	privateKeyHex := os.Getenv("POLYMARKET_PRIVATE_KEY")
	if privateKeyHex == "" {
		logger.Warn("circuit-breaker-disabled-no-private-key",
			zap.String("note", "POLYMARKET_PRIVATE_KEY not set, circuit breaker disabled"))
		return nil, nil
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		logger.Warn("circuit-breaker-disabled-invalid-key", zap.Error(err))
		return nil, nil
	}

	publicKey := privateKey.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		logger.Warn("circuit-breaker-disabled-key-cast-failed")
		return nil, nil
	}
	address := crypto.PubkeyToAddress(*publicKeyECDSA)

	rpcURL := os.Getenv("POLYGON_RPC_URL")
	if rpcURL == "" {
		rpcURL = "https://polygon-rpc.com"
	}

	walletClient, err := wallet.NewClient(rpcURL, logger)
	if err != nil {
		logger.Warn("circuit-breaker-disabled-wallet-client-failed", zap.Error(err))
		return nil, nil
	}

	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:   cfg.CircuitBreakerCheckInterval,
		TradeMultiplier: cfg.CircuitBreakerTradeMultiplier,
		MinAbsolute:     cfg.CircuitBreakerMinAbsolute,
		HysteresisRatio: cfg.CircuitBreakerHysteresisRatio,
		WalletClient:    walletClient,
		Address:         address,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create circuit breaker: %w", err)
	}

	breaker.Start(ctx)

	logger.Info("circuit-breaker-enabled",
		zap.Duration("check_interval", cfg.CircuitBreakerCheckInterval),
		zap.Float64("trade_multiplier", cfg.CircuitBreakerTradeMultiplier),
		zap.Float64("min_absolute", cfg.CircuitBreakerMinAbsolute),
		zap.Float64("hysteresis_ratio", cfg.CircuitBreakerHysteresisRatio))

	return breaker, nil
}

func setupOrderClient(cfg *config.Config, logger *zap.Logger) (*execution.OrderClient, error) {
	privateKeyHex := os.Getenv("POLYMARKET_PRIVATE_KEY")
	if privateKeyHex == "" {
		return nil, fmt.Errorf("POLYMARKET_PRIVATE_KEY must be set outside dry-run mode")
	}

	return execution.NewOrderClient(&execution.OrderClientConfig{
		APIKey:     cfg.PolymarketAPIKey,
		Secret:     cfg.PolymarketSecret,
		Passphrase: cfg.PolymarketPassphrase,
		PrivateKey: privateKeyHex,
		Logger:     logger,
	})
}

// bankrollAdapter satisfies execution.BankrollSource from the circuit
// breaker's last-sampled balance, avoiding a second wallet-balance fetcher.
type bankrollAdapter struct {
	breaker *circuitbreaker.BalanceCircuitBreaker
}

func (b bankrollAdapter) Bankroll() float64 {
	return b.breaker.GetStatus().LastBalance
}

func setupExecutor(
	cfg *config.Config,
	logger *zap.Logger,
	arbDetector *arbitrage.Detector,
	metadata *markets.CachedMetadataClient,
	discoveryService *discovery.Service,
	breaker *circuitbreaker.BalanceCircuitBreaker,
	orderClient *execution.OrderClient,
) *execution.Executor {
	execCfg := &execution.Config{
		DryRun:             cfg.ExecutionMode == "dry-run" || cfg.DryRun,
		MaxBetSize:         cfg.MaxBetSize,
		MaxBankrollFrac:    cfg.MaxBankrollFrac,
		TakerFeeRate:       cfg.TakerFeeRate,
		OpportunityChannel: arbDetector.OpportunityChan(),
		Selector:           strategy.New(strategy.Config{TakerFeeRate: cfg.TakerFeeRate, Logger: logger}),
		OrderClient:        orderClient,
		Metadata:           metadata,
		Expiry:             discoveryService,
		CircuitBreaker:     breaker,
		Logger:             logger,
	}
	if breaker != nil {
		execCfg.Bankroll = bankrollAdapter{breaker: breaker}
	}

	return execution.New(execCfg)
}

func setupMarketMaker(
	cfg *config.Config,
	logger *zap.Logger,
	obStore *orderbook.Store,
	discoveryService *discovery.Service,
	orderClient *execution.OrderClient,
) *marketmaker.Maker {
	return marketmaker.New(marketmaker.Config{
		QuoteSize:        cfg.MMQuoteSize,
		MinMargin:        cfg.MMMinMargin,
		RequoteThreshold: cfg.MMRequoteThreshold,
		MaxMarkets:       cfg.MMMaxMarkets,
		Logger:           logger,
	}, obStore, discoveryService, orderClient)
}
