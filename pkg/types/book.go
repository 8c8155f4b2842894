package types

import "time"

// TokenID opaquely identifies one outcome token.
type TokenID string

// MarketID opaquely identifies a binary market; maps to exactly two
// TokenIds tagged Up and Down.
type MarketID string

// Side tags an outcome token's role within its binary market.
type Side string

const (
	Up   Side = "up"
	Down Side = "down"
)

// Level is a single price/size pair in an orderbook ladder.
type Level struct {
	Price Cents
	Size  float64
}

// Book is the per-token orderbook maintained by the Orderbook Store.
// Bids are sorted strictly descending by price, Asks strictly ascending;
// zero-size levels are never present (removal semantics). Book is treated
// as an immutable value once published: the Store swaps in a new *Book
// on every mutation rather than mutating a shared instance in place, so
// concurrent readers never observe a torn ladder.
type Book struct {
	Token          TokenID
	Market         MarketID
	Bids           []Level
	Asks           []Level
	LastUpdate     time.Time
	LastSequence   string
	HasSnapshot    bool // false until the first BookSnapshot has been applied
	ForcedStale    bool // true after reconnect until the next BookSnapshot arrives
}

// BestBid returns the highest bid level, or the zero Level and false if none.
func (b *Book) BestBid() (Level, bool) {
	if len(b.Bids) == 0 {
		return Level{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask level, or the zero Level and false if none.
func (b *Book) BestAsk() (Level, bool) {
	if len(b.Asks) == 0 {
		return Level{}, false
	}
	return b.Asks[0], true
}

// AgeMillis returns the milliseconds elapsed since LastUpdate, relative to now.
func (b *Book) AgeMillis(now time.Time) int64 {
	return now.Sub(b.LastUpdate).Milliseconds()
}

// Stale reports whether the book should be treated as unreliable: either it
// was explicitly marked stale after a reconnect (awaiting resnapshot), or its
// age exceeds maxAgeMs.
func (b *Book) Stale(now time.Time, maxAgeMs int64) bool {
	if b.ForcedStale || !b.HasSnapshot {
		return true
	}
	return b.AgeMillis(now) > maxAgeMs
}

// CloneLevels returns an independent copy of a ladder, safe for a caller
// (e.g. the Detector's ladder walk) to mutate residual sizes on.
func CloneLevels(levels []Level) []Level {
	out := make([]Level, len(levels))
	copy(out, levels)
	return out
}
