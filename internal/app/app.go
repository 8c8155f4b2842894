package app

import (
	"context"
	"sync"

	"github.com/mselser95/polymarket-arb/internal/arbitrage"
	"github.com/mselser95/polymarket-arb/internal/discovery"
	"github.com/mselser95/polymarket-arb/internal/execution"
	"github.com/mselser95/polymarket-arb/internal/marketmaker"
	"github.com/mselser95/polymarket-arb/internal/orderbook"
	"github.com/mselser95/polymarket-arb/internal/storage"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/feed"
	"github.com/mselser95/polymarket-arb/pkg/healthprobe"
	"github.com/mselser95/polymarket-arb/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator: it wires the Feed Client into
// the Orderbook Store, the Store into the Arbitrage Detector and
// Market-Maker, and the Detector's opportunities into the Order Submitter.
type App struct {
	cfg              *config.Config
	logger           *zap.Logger
	healthChecker    *healthprobe.HealthChecker
	httpServer       *httpserver.Server
	discoveryService *discovery.Service
	feedPool         *feed.Pool
	obStore          *orderbook.Store
	arbDetector      *arbitrage.Detector
	executor         *execution.Executor
	marketMaker      *marketmaker.Maker
	storage          storage.Storage
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
}

// Options holds application options.
type Options struct {
	SingleMarket string // For debugging: slug of single market to track
}
