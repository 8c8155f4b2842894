package feed

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// ReconnectConfig bounds the flat backoff used between reconnect attempts.
// Spec §4.1: "wait a bounded backoff (1-2s, no need for exponential)".
type ReconnectConfig struct {
	MinDelay time.Duration
	MaxDelay time.Duration
}

// ReconnectManager retries a connect function with a flat, randomized
// bounded delay between attempts — deliberately simpler than exponential
// backoff: short-duration markets need fast recovery, and nothing about
// the venue's connection limits warrants a long cooldown.
type ReconnectManager struct {
	cfg    ReconnectConfig
	logger *zap.Logger
}

// NewReconnectManager creates a reconnect manager bounded by cfg.
func NewReconnectManager(cfg ReconnectConfig, logger *zap.Logger) *ReconnectManager {
	return &ReconnectManager{cfg: cfg, logger: logger}
}

// Reconnect retries connectFunc until it succeeds or ctx is cancelled.
func (rm *ReconnectManager) Reconnect(ctx context.Context, connectFunc func(context.Context) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		delay := rm.nextDelay()
		rm.logger.Info("attempting-reconnection", zap.Duration("delay", delay))
		ReconnectAttemptsTotal.Inc()

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		err := connectFunc(ctx)
		if err == nil {
			rm.logger.Info("reconnection-successful")
			return nil
		}

		rm.logger.Warn("reconnection-failed", zap.Error(err))
		ReconnectFailuresTotal.Inc()
	}
}

func (rm *ReconnectManager) nextDelay() time.Duration {
	span := rm.cfg.MaxDelay - rm.cfg.MinDelay
	if span <= 0 {
		return rm.cfg.MinDelay
	}
	return rm.cfg.MinDelay + time.Duration(rand.Int63n(int64(span)))
}
