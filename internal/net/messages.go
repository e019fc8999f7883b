package net

import (
	"encoding/binary"
	"errors"
	"fmt"

	"unsermarkt/internal/common"
	"unsermarkt/internal/fixed"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short")
)

// Inbound message types.
type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	SuspendOrder
	ResumeOrder
)

// Outbound report types.
type ReportType uint16

const (
	OrderAck ReportType = iota
	ExecutionReport
	ErrorReport
)

// AckCode reports the outcome of an order-entry operation.
type AckCode uint32

const (
	AckOK AckCode = iota
	AckNotFound
	AckInvalidSide
	AckPoolExhausted
	AckMarketUnfilled
	AckMalformed
)

// Frame layout constants. Every frame is a 2-byte big-endian type
// header followed by a fixed-size payload.
const (
	headerLen = 2

	// NewOrder payload: agent, security, price, quantity, and a packed
	// tail of side:2 | kind:2 | tif:28 (top bits first).
	orderPayloadLen = 5 * 4

	// Cancel/suspend/resume payload: the order id.
	orderRefPayloadLen = 4

	// OrderAck payload: id, code, remaining (market shortfall).
	ackPayloadLen = 3 * 4

	// ExecutionReport payload: buyer/seller order ids, agent ids,
	// security ids, price, quantity, ts_sec, and a final word whose
	// low 20 bits hold ts_usec.
	matchPayloadLen = 10 * 4

	usecBits = 20
	usecMask = 1<<usecBits - 1

	sideShift = 30
	kindShift = 28
	tifMask   = 1<<kindShift - 1
)

type Message interface {
	GetType() MessageType
}

type BaseMessage struct {
	TypeOf MessageType
}

func (m BaseMessage) GetType() MessageType {
	return m.TypeOf
}

type NewOrderMessage struct {
	BaseMessage
	Order common.Order
}

// OrderRefMessage carries cancel, suspend and resume requests, which
// all address an order by id.
type OrderRefMessage struct {
	BaseMessage
	ID common.OrderID
}

// PackTail folds side, kind and time-in-force into the wire tail word.
func PackTail(side common.Side, kind common.OrderKind, tif common.TimeInForce) uint32 {
	return uint32(side)<<sideShift | uint32(kind)<<kindShift | uint32(tif)&tifMask
}

// UnpackTail splits the wire tail word. The side is not validated
// here; the engine rejects malformed sides itself.
func UnpackTail(tail uint32) (common.Side, common.OrderKind, common.TimeInForce) {
	return common.Side(tail >> sideShift),
		common.OrderKind(tail >> kindShift & 0x3),
		common.TimeInForce(tail & tifMask)
}

// EncodeOrder serializes a full NewOrder frame.
func EncodeOrder(o common.Order) []byte {
	buf := make([]byte, headerLen+orderPayloadLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	binary.BigEndian.PutUint32(buf[2:6], o.AgentID)
	binary.BigEndian.PutUint32(buf[6:10], o.SecurityID)
	binary.BigEndian.PutUint32(buf[10:14], uint32(o.Price))
	binary.BigEndian.PutUint32(buf[14:18], o.Quantity)
	binary.BigEndian.PutUint32(buf[18:22], PackTail(o.Side, o.Kind, o.TIF))
	return buf
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	if len(msg) < orderPayloadLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	side, kind, tif := UnpackTail(binary.BigEndian.Uint32(msg[16:20]))
	return NewOrderMessage{
		BaseMessage: BaseMessage{TypeOf: NewOrder},
		Order: common.Order{
			AgentID:    binary.BigEndian.Uint32(msg[0:4]),
			SecurityID: binary.BigEndian.Uint32(msg[4:8]),
			Price:      fixed.Fixed30(binary.BigEndian.Uint32(msg[8:12])),
			Quantity:   binary.BigEndian.Uint32(msg[12:16]),
			Side:       side,
			Kind:       kind,
			TIF:        tif,
		},
	}, nil
}

// EncodeOrderRef serializes a cancel, suspend or resume frame.
func EncodeOrderRef(typeOf MessageType, id common.OrderID) []byte {
	buf := make([]byte, headerLen+orderRefPayloadLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(typeOf))
	binary.BigEndian.PutUint32(buf[2:6], uint32(id))
	return buf
}

func parseOrderRef(typeOf MessageType, msg []byte) (OrderRefMessage, error) {
	if len(msg) < orderRefPayloadLen {
		return OrderRefMessage{}, ErrMessageTooShort
	}
	return OrderRefMessage{
		BaseMessage: BaseMessage{TypeOf: typeOf},
		ID:          common.OrderID(binary.BigEndian.Uint32(msg[0:4])),
	}, nil
}

func parseMessage(msg []byte) (Message, error) {
	if len(msg) < headerLen {
		return BaseMessage{}, ErrMessageTooShort
	}

	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	msg = msg[2:]
	switch typeOf {
	case Heartbeat:
		return BaseMessage{TypeOf: Heartbeat}, nil
	case NewOrder:
		return parseNewOrder(msg)
	case CancelOrder, SuspendOrder, ResumeOrder:
		return parseOrderRef(typeOf, msg)
	default:
		return BaseMessage{}, ErrInvalidMessageType
	}
}

// Ack is the decoded form of an OrderAck report.
type Ack struct {
	ID        common.OrderID
	Code      AckCode
	Remaining uint32
}

func EncodeAck(a Ack) []byte {
	buf := make([]byte, headerLen+ackPayloadLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(OrderAck))
	binary.BigEndian.PutUint32(buf[2:6], uint32(a.ID))
	binary.BigEndian.PutUint32(buf[6:10], uint32(a.Code))
	binary.BigEndian.PutUint32(buf[10:14], a.Remaining)
	return buf
}

func DecodeAck(msg []byte) (Ack, error) {
	if len(msg) < ackPayloadLen {
		return Ack{}, ErrMessageTooShort
	}
	return Ack{
		ID:        common.OrderID(binary.BigEndian.Uint32(msg[0:4])),
		Code:      AckCode(binary.BigEndian.Uint32(msg[4:8])),
		Remaining: binary.BigEndian.Uint32(msg[8:12]),
	}, nil
}

// EncodeMatch serializes an ExecutionReport frame. The microsecond
// part is packed into the low 20 bits of the final word.
func EncodeMatch(m common.Match) []byte {
	buf := make([]byte, headerLen+matchPayloadLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(ExecutionReport))
	binary.BigEndian.PutUint32(buf[2:6], uint32(m.BuyerOrderID))
	binary.BigEndian.PutUint32(buf[6:10], uint32(m.SellerOrderID))
	binary.BigEndian.PutUint32(buf[10:14], m.BuyerAgentID)
	binary.BigEndian.PutUint32(buf[14:18], m.SellerAgentID)
	binary.BigEndian.PutUint32(buf[18:22], m.BuyerSecurity)
	binary.BigEndian.PutUint32(buf[22:26], m.SellerSecurity)
	binary.BigEndian.PutUint32(buf[26:30], uint32(m.Price))
	binary.BigEndian.PutUint32(buf[30:34], m.Quantity)
	binary.BigEndian.PutUint32(buf[34:38], m.TsSec)
	binary.BigEndian.PutUint32(buf[38:42], m.TsUsec&usecMask)
	return buf
}

func DecodeMatch(msg []byte) (common.Match, error) {
	if len(msg) < matchPayloadLen {
		return common.Match{}, ErrMessageTooShort
	}
	return common.Match{
		BuyerOrderID:  common.OrderID(binary.BigEndian.Uint32(msg[0:4])),
		SellerOrderID: common.OrderID(binary.BigEndian.Uint32(msg[4:8])),
		BuyerAgentID:  binary.BigEndian.Uint32(msg[8:12]),
		SellerAgentID: binary.BigEndian.Uint32(msg[12:16]),
		BuyerSecurity: binary.BigEndian.Uint32(msg[16:20]),
		SellerSecurity:     binary.BigEndian.Uint32(msg[20:24]),
		Price:         fixed.Fixed30(binary.BigEndian.Uint32(msg[24:28])),
		Quantity:      binary.BigEndian.Uint32(msg[28:32]),
		TsSec:         binary.BigEndian.Uint32(msg[32:36]),
		TsUsec:        binary.BigEndian.Uint32(msg[36:40]) & usecMask,
	}, nil
}

// EncodeError serializes an ErrorReport frame carrying a short
// diagnostic string.
func EncodeError(err error) []byte {
	text := fmt.Sprintf("%v", err)
	buf := make([]byte, headerLen+2+len(text))
	binary.BigEndian.PutUint16(buf[0:2], uint16(ErrorReport))
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(text)))
	copy(buf[4:], text)
	return buf
}

func DecodeError(msg []byte) (string, error) {
	if len(msg) < 2 {
		return "", ErrMessageTooShort
	}
	n := int(binary.BigEndian.Uint16(msg[0:2]))
	if len(msg) < 2+n {
		return "", ErrMessageTooShort
	}
	return string(msg[2 : 2+n]), nil
}
