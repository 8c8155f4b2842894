package feed

import (
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// decodeFrame turns one raw wire frame into zero or more typed FeedEvents.
// The venue may send a single JSON object or an array of objects; both
// shapes are handled here. Per SPEC_FULL.md Design Notes, decoding into
// the tagged FeedEvent variant happens exactly once, at this boundary —
// everything downstream switches on the concrete Go type, never on a raw
// "event_type" string.
func decodeFrame(raw []byte) ([]types.FeedEvent, error) {
	var msgs []types.RawFeedMessage
	if err := json.Unmarshal(raw, &msgs); err != nil {
		// Not an array; try a single object.
		var single types.RawFeedMessage
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			return nil, err
		}
		msgs = []types.RawFeedMessage{single}
	}

	events := make([]types.FeedEvent, 0, len(msgs))
	for _, m := range msgs {
		ev, ok := toEvent(m)
		if ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

func toEvent(m types.RawFeedMessage) (types.FeedEvent, bool) {
	switch m.EventType {
	case "book":
		return types.BookSnapshotEvent{
			TokenID: types.TokenID(m.AssetID),
			Bids:    decodeLevels(m.Bids),
			Asks:    decodeLevels(m.Asks),
			Sequence: m.Hash,
		}, true
	case "price_change":
		return types.PriceChangeEvent{
			TokenID:   types.TokenID(m.AssetID),
			BidsDelta: decodeLevels(m.Bids),
			AsksDelta: decodeLevels(m.Asks),
			Sequence:  m.Hash,
		}, true
	case "last_trade_price":
		price, _ := types.CentsFromDecimal(m.Price)
		size := parseSize(m.Size)
		return types.TradeEvent{
			TokenID: types.TokenID(m.AssetID),
			Price:   price,
			Size:    size,
		}, true
	default:
		return nil, false
	}
}

func decodeLevels(raw []types.PriceLevel) []types.Level {
	out := make([]types.Level, 0, len(raw))
	for _, r := range raw {
		price, err := types.CentsFromDecimal(r.Price)
		if err != nil {
			continue
		}
		out = append(out, types.Level{Price: price, Size: parseSize(r.Size)})
	}
	return out
}

func parseSize(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
