// Package strategy implements the Strategy Selector decision table (spec
// §4.4): choosing Maker, Taker, or Hybrid execution for a detected
// Opportunity based on time-to-expiry and fee-coverage.
package strategy

import (
	"time"

	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

// Config holds Strategy Selector configuration.
type Config struct {
	TakerFeeRate float64
	Logger       *zap.Logger
}

// Selector chooses an ExecutionMode per Opportunity.
type Selector struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Selector.
func New(cfg Config) *Selector {
	return &Selector{cfg: cfg, logger: cfg.Logger}
}

// canAbsorbFees is spec §4.4's fee-coverage test:
// margin > 2 * combined_cost * TAKER_FEE_RATE.
func canAbsorbFees(margin, combinedCost, takerFeeRate float64) bool {
	return margin > 2*combinedCost*takerFeeRate
}

// Select applies the decision table to an Opportunity given its expiry.
func (s *Selector) Select(opp types.Opportunity, expiresAt time.Time, now time.Time) types.ExecutionMode {
	secondsToExpiry := expiresAt.Sub(now).Seconds()
	margin := opp.PerPairProfit
	combinedCost := opp.CombinedCost()
	absorbs := canAbsorbFees(margin, combinedCost, s.cfg.TakerFeeRate)

	mode := s.decide(secondsToExpiry, absorbs)

	s.logger.Debug("strategy-selected",
		zap.String("opportunity-id", opp.ID),
		zap.Float64("seconds-to-expiry", secondsToExpiry),
		zap.Bool("can-absorb-fees", absorbs),
		zap.String("mode", string(mode)))

	return mode
}

func (s *Selector) decide(secondsToExpiry float64, canAbsorbFees bool) types.ExecutionMode {
	switch {
	case secondsToExpiry > 120:
		return types.ModeMaker
	case secondsToExpiry >= 60:
		if canAbsorbFees {
			return types.ModeHybrid
		}
		return types.ModeMaker
	case secondsToExpiry >= 30:
		if canAbsorbFees {
			return types.ModeTaker
		}
		return types.ModeHybrid
	default:
		return types.ModeTaker
	}
}
