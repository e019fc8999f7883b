package common

import (
	"fmt"

	"unsermarkt/internal/fixed"
)

type Order struct {
	AgentID    uint32        // Submitting agent
	SecurityID uint32        // Traded instrument
	Price      fixed.Fixed30 // Limit price; zero sentinel for market orders
	Quantity   uint32        // Remaining quantity, decreases as fills occur
	Side       Side          //
	Kind       OrderKind     //
	TIF        TimeInForce   // Carried, not interpreted by the engine
}

func (o Order) String() string {
	return fmt.Sprintf(
		"agent=%d security=%d %s %s %d@%s tif=%s",
		o.AgentID,
		o.SecurityID,
		o.Side,
		o.Kind,
		o.Quantity,
		o.Price,
		o.TIF,
	)
}
