package storage

import (
	"context"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// Storage is the interface for persisting detected Opportunities, the
// internal/arbitrage.Storage collaborator.
type Storage interface {
	// StoreOpportunity stores an arbitrage opportunity.
	StoreOpportunity(ctx context.Context, opp types.Opportunity) error

	// Close closes the storage connection.
	Close() error
}
