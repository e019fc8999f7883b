package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound covers cancel/suspend/resume/get on an id that
	// is unknown or already terminal.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidSide rejects an order whose side field decoded to
	// neither buy nor sell.
	ErrInvalidSide = errors.New("invalid order side")
)

// MarketUnfilledError reports the remainder of a market order that ran
// out of opposing liquidity. The engine never queues market orders;
// the remainder is dropped, and this error makes the shortfall visible
// to the caller instead of vanishing. Fills recorded before the book
// emptied stand.
type MarketUnfilledError struct {
	Remaining uint32
}

func (e *MarketUnfilledError) Error() string {
	return fmt.Sprintf("market order remainder of %d units unfilled", e.Remaining)
}
