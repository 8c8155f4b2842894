package feed

import (
	"testing"

	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame_BookSnapshot(t *testing.T) {
	raw := []byte(`[{"event_type":"book","asset_id":"tok-up","bids":[{"price":"0.40","size":"10"}],"asks":[{"price":"0.48","size":"100"}],"hash":"abc"}]`)

	events, err := decodeFrame(raw)
	require.NoError(t, err)
	require.Len(t, events, 1)

	snap, ok := events[0].(types.BookSnapshotEvent)
	require.True(t, ok)
	require.Equal(t, types.TokenID("tok-up"), snap.TokenID)
	require.Equal(t, "abc", snap.Sequence)
	require.Len(t, snap.Asks, 1)
	require.Equal(t, types.Cents(48), snap.Asks[0].Price)
	require.Equal(t, 100.0, snap.Asks[0].Size)
}

func TestDecodeFrame_SingleObjectNotArray(t *testing.T) {
	raw := []byte(`{"event_type":"last_trade_price","asset_id":"tok-down","price":"0.52","size":"5"}`)

	events, err := decodeFrame(raw)
	require.NoError(t, err)
	require.Len(t, events, 1)

	trade, ok := events[0].(types.TradeEvent)
	require.True(t, ok)
	require.Equal(t, types.Cents(52), trade.Price)
	require.Equal(t, 5.0, trade.Size)
}

func TestDecodeFrame_PriceChangeDeltaSemantics(t *testing.T) {
	raw := []byte(`[{"event_type":"price_change","asset_id":"tok-up","asks":[{"price":"0.47","size":"0"},{"price":"0.49","size":"20"}]}]`)

	events, err := decodeFrame(raw)
	require.NoError(t, err)
	require.Len(t, events, 1)

	pc, ok := events[0].(types.PriceChangeEvent)
	require.True(t, ok)
	require.Len(t, pc.AsksDelta, 2)
	require.Equal(t, 0.0, pc.AsksDelta[0].Size) // size=0 means remove this level
	require.Equal(t, 20.0, pc.AsksDelta[1].Size)
}

func TestDecodeFrame_UnknownEventTypeDropped(t *testing.T) {
	raw := []byte(`[{"event_type":"tick_size_change","asset_id":"tok-up"}]`)

	events, err := decodeFrame(raw)
	require.NoError(t, err)
	require.Empty(t, events)
}
