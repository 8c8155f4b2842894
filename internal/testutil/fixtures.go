package testutil

import (
	"time"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// CreateTestMarket creates a test market with Up (Yes) and Down (No) tokens.
// internal/discovery treats Tokens[0] as Up and Tokens[1] as Down regardless
// of outcome label, so token order here matters as much as the labels.
func CreateTestMarket(id string, slug string, question string) *types.Market {
	return &types.Market{
		ID:         id,
		Slug:       slug,
		Question:   question,
		Closed:     false,
		Active:     true,
		Outcomes:   `["Yes", "No"]`,
		ClobTokens: `["` + id + `-yes", "` + id + `-no"]`,
		Tokens: []types.Token{
			{TokenID: id + "-yes", Outcome: "Yes", Price: 0.52},
			{TokenID: id + "-no", Outcome: "No", Price: 0.48},
		},
		CreatedAt:   time.Now(),
		Description: "Test market: " + question,
	}
}

// CreateTestBookSnapshot builds a BookSnapshotEvent with a default two-level
// ladder, suitable as the first event for a freshly registered token.
func CreateTestBookSnapshot(tokenID string) types.BookSnapshotEvent {
	return types.BookSnapshotEvent{
		TokenID: types.TokenID(tokenID),
		Bids: []types.Level{
			{Price: types.CentsFromFloat(0.52), Size: 100.0},
			{Price: types.CentsFromFloat(0.51), Size: 50.0},
		},
		Asks: []types.Level{
			{Price: types.CentsFromFloat(0.53), Size: 100.0},
			{Price: types.CentsFromFloat(0.54), Size: 50.0},
		},
		Sequence: "1",
	}
}

// CreateTestPriceChange builds a PriceChangeEvent that removes the prior best
// bid (0.52) and upserts bidPrice/bidSize, for exercising incremental book
// mutation against the ladder produced by CreateTestBookSnapshot.
func CreateTestPriceChange(tokenID string, bidPrice, bidSize float64) types.PriceChangeEvent {
	return types.PriceChangeEvent{
		TokenID: types.TokenID(tokenID),
		BidsDelta: []types.Level{
			{Price: types.CentsFromFloat(0.52), Size: 0},
			{Price: types.CentsFromFloat(bidPrice), Size: bidSize},
		},
		Sequence: "2",
	}
}

// CreateArbitrageBookSnapshots builds Up/Down BookSnapshotEvents whose best
// asks sum below $1, i.e. a crossing arbitrage opportunity.
func CreateArbitrageBookSnapshots(upTokenID, downTokenID string, upAsk, downAsk float64) (up, down types.BookSnapshotEvent) {
	up = types.BookSnapshotEvent{
		TokenID: types.TokenID(upTokenID),
		Bids:    []types.Level{{Price: types.CentsFromFloat(upAsk - 0.01), Size: 100.0}},
		Asks:    []types.Level{{Price: types.CentsFromFloat(upAsk), Size: 200.0}},
		Sequence: "1",
	}
	down = types.BookSnapshotEvent{
		TokenID: types.TokenID(downTokenID),
		Bids:    []types.Level{{Price: types.CentsFromFloat(downAsk - 0.01), Size: 100.0}},
		Asks:    []types.Level{{Price: types.CentsFromFloat(downAsk), Size: 200.0}},
		Sequence: "1",
	}
	return up, down
}

// CreateMarketsResponse creates a test markets response from the Gamma API.
func CreateMarketsResponse(markets ...*types.Market) *types.MarketsResponse {
	data := make([]types.Market, len(markets))
	for i, m := range markets {
		data[i] = *m
	}

	return &types.MarketsResponse{
		Data:   data,
		Count:  len(markets),
		Limit:  50,
		Offset: 0,
	}
}
