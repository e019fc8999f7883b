package net

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unsermarkt/internal/common"
	"unsermarkt/internal/fixed"
)

func TestTailBitLayout(t *testing.T) {
	tail := PackTail(common.Sell, common.MarketToLimit, common.GTC)
	// side in the top two bits, kind in the next two, tif below.
	assert.Equal(t, uint32(1)<<30|uint32(2)<<28|uint32(common.GTC), tail)

	side, kind, tif := UnpackTail(tail)
	assert.Equal(t, common.Sell, side)
	assert.Equal(t, common.MarketToLimit, kind)
	assert.Equal(t, common.GTC, tif)

	// A malformed side survives the round trip for the engine to
	// reject.
	side, _, _ = UnpackTail(uint32(3) << 30)
	assert.False(t, side.Valid())
}

func TestOrderFrame(t *testing.T) {
	price, err := fixed.Parse("12.10")
	require.NoError(t, err)
	o := common.Order{
		AgentID:    7,
		SecurityID: 1,
		Price:      price,
		Quantity:   1000,
		Side:       common.Buy,
		Kind:       common.Limit,
		TIF:        common.GTC,
	}

	frame := EncodeOrder(o)
	require.Len(t, frame, headerLen+orderPayloadLen)
	// Type header, then agent id in the first payload word.
	assert.Equal(t, []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x07}, frame[:6])

	msg, err := parseMessage(frame)
	require.NoError(t, err)
	decoded, ok := msg.(NewOrderMessage)
	require.True(t, ok)
	assert.Equal(t, o, decoded.Order)
}

func TestOrderRefFrames(t *testing.T) {
	for _, typeOf := range []MessageType{CancelOrder, SuspendOrder, ResumeOrder} {
		frame := EncodeOrderRef(typeOf, 4242)
		msg, err := parseMessage(frame)
		require.NoError(t, err)
		decoded, ok := msg.(OrderRefMessage)
		require.True(t, ok)
		assert.Equal(t, typeOf, decoded.GetType())
		assert.Equal(t, common.OrderID(4242), decoded.ID)
	}
}

func TestParseMessageErrors(t *testing.T) {
	_, err := parseMessage([]byte{0x01})
	assert.ErrorIs(t, err, ErrMessageTooShort)

	_, err = parseMessage([]byte{0xff, 0xff})
	assert.ErrorIs(t, err, ErrInvalidMessageType)

	// A NewOrder header with a truncated payload.
	_, err = parseMessage([]byte{0x00, 0x01, 0x00, 0x00})
	assert.ErrorIs(t, err, ErrMessageTooShort)
}

func TestMatchFramePacksMicroseconds(t *testing.T) {
	m := common.Match{
		BuyerOrderID:  1,
		SellerOrderID: 2,
		BuyerAgentID:  7,
		SellerAgentID: 20,
		BuyerSecurity: 1,
		SellerSecurity:     1,
		Price:         fixed.New(121000, 1),
		Quantity:      1000,
		TsSec:         1234567890,
		TsUsec:        999_999,
	}

	frame := EncodeMatch(m)
	require.Len(t, frame, headerLen+matchPayloadLen)

	decoded, err := DecodeMatch(frame[headerLen:])
	require.NoError(t, err)
	assert.Equal(t, m, decoded)

	// 999999 needs all 20 bits; anything above the mask is truncated
	// on encode rather than bleeding into neighbouring bits.
	m.TsUsec = usecMask + 1
	decoded, err = DecodeMatch(EncodeMatch(m)[headerLen:])
	require.NoError(t, err)
	assert.Zero(t, decoded.TsUsec)
}

func TestAckFrame(t *testing.T) {
	a := Ack{ID: 9, Code: AckMarketUnfilled, Remaining: 2000}
	decoded, err := DecodeAck(EncodeAck(a)[headerLen:])
	require.NoError(t, err)
	assert.Equal(t, a, decoded)
}

func TestErrorFrame(t *testing.T) {
	frame := EncodeError(ErrInvalidMessageType)
	text, err := DecodeError(frame[headerLen:])
	require.NoError(t, err)
	assert.Equal(t, "invalid message type", text)
}
