package common

import (
	"fmt"
	"time"

	"unsermarkt/internal/fixed"
)

// Match records one fill event, full or partial. Matches always price
// at the resting side's level; the aggressor receives any price
// improvement. Records are read-only once emitted.
type Match struct {
	BuyerOrderID  OrderID
	SellerOrderID OrderID
	BuyerAgentID  uint32
	SellerAgentID uint32
	BuyerSecurity uint32
	SellerSecurity     uint32
	Price         fixed.Fixed30
	Quantity      uint32
	TsSec         uint32 // Seconds since the unix epoch
	TsUsec        uint32 // Microsecond fraction, fits 20 bits on the wire
}

// Time reassembles the split timestamp.
func (m Match) Time() time.Time {
	return time.Unix(int64(m.TsSec), int64(m.TsUsec)*1000)
}

func (m Match) String() string {
	return fmt.Sprintf(
		"match %d@%s buyer(order=%d agent=%d) seller(order=%d agent=%d)",
		m.Quantity,
		m.Price,
		m.BuyerOrderID,
		m.BuyerAgentID,
		m.SellerOrderID,
		m.SellerAgentID,
	)
}
