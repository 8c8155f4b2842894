package types

// FeedEvent is the tagged variant of a single decoded feed message, replacing
// dynamic dispatch on a flat event_type string field (see SPEC_FULL.md Design
// Notes, "Dynamic event dispatch with heterogeneous JSON messages"). Decoding
// happens once at the wire boundary in pkg/feed; everything downstream
// switches on the concrete type.
type FeedEvent interface {
	Token() TokenID
}

// BookSnapshotEvent is a full-state replacement of a token's ladders.
type BookSnapshotEvent struct {
	TokenID  TokenID
	Bids     []Level
	Asks     []Level
	Sequence string
}

func (e BookSnapshotEvent) Token() TokenID { return e.TokenID }

// PriceChangeEvent is an incremental update. Each delta entry with Size==0
// removes that price level; any other size upserts the level to that size.
type PriceChangeEvent struct {
	TokenID   TokenID
	BidsDelta []Level
	AsksDelta []Level
	Sequence  string
}

func (e PriceChangeEvent) Token() TokenID { return e.TokenID }

// TradeEvent is an informational trade execution notice.
type TradeEvent struct {
	TokenID TokenID
	Price   Cents
	Size    float64
}

func (e TradeEvent) Token() TokenID { return e.TokenID }
