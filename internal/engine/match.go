package engine

import (
	"unsermarkt/internal/arena"
	"unsermarkt/internal/common"
	"unsermarkt/internal/fixed"
)

// checkLimit reports whether the incoming order may trade at the
// resting price. Market orders trade at any price; limit and
// market-to-limit orders require the resting price to be at or inside
// their own. Comparison is exponent-aware, never raw bits.
func checkLimit(o *common.Order, restingPrice fixed.Fixed30) bool {
	if o.Kind == common.Market {
		return true
	}
	if o.Side == common.Buy {
		return restingPrice.Cmp(o.Price) <= 0
	}
	return restingPrice.Cmp(o.Price) >= 0
}

// tryMatch walks the opposite side best price first, oldest order
// first, consuming liquidity into the match log. On return o.Quantity
// holds the unmatched remainder. queued reports whether that remainder
// should rest on the book; a market order's remainder never rests and
// comes back as a *MarketUnfilledError instead.
//
// aggressorID is zero for freshly submitted orders, which have no id
// until their remainder is queued; resumed orders match under their
// original id.
func (b *OrderBook) tryMatch(o *common.Order, aggressorID common.OrderID) (queued bool, err error) {
	opp := o.Side.Opposite()
	oppHead := b.headOf(opp)

	// Market-to-limit pegs to the best opposing price on arrival. An
	// empty opposing side leaves the zero sentinel in place, so the
	// order degenerates into a limit at price zero: the worst possible
	// bid, or an ask that crosses everything once liquidity arrives.
	if o.Kind == common.MarketToLimit && *oppHead != arena.None {
		o.Price = b.levels.At(*oppHead).price
	}

	for o.Quantity > 0 {
		lref := *oppHead
		if lref == arena.None {
			break
		}
		lv := b.levels.At(lref)
		if !checkLimit(o, lv.price) {
			break
		}

		oref := lv.head
		cell := b.orders.At(oref)
		if o.Quantity < cell.order.Quantity {
			// The resting order outsizes the remainder: one partial
			// fill and the incoming order is fully consumed.
			qty := o.Quantity
			b.emitMatch(o, aggressorID, cell, lv.price, qty)
			cell.order.Quantity -= qty
			lv.qty -= qty
			cell.status = common.StatusPartiallyFilled
			o.Quantity = 0
			return false, nil
		}

		// Full fill of the resting order at its own price; the
		// aggressor keeps any price improvement.
		qty := cell.order.Quantity
		b.emitMatch(o, aggressorID, cell, lv.price, qty)
		o.Quantity -= qty
		restingID := cell.id
		b.unlinkFromLevel(oref)
		b.registry.Delete(uint32(restingID))
		_ = b.orders.Free(oref)
	}

	if o.Quantity == 0 {
		return false, nil
	}
	if o.Kind == common.Market && *oppHead == arena.None {
		// Market orders never rest; the shortfall is reported rather
		// than silently lost.
		return false, &MarketUnfilledError{Remaining: o.Quantity}
	}
	return true, nil
}

// emitMatch records one fill and delivers it to the registered
// callback before matching continues, so the observer sees fills in
// strict price-time order.
func (b *OrderBook) emitMatch(o *common.Order, aggressorID common.OrderID, resting *restingCell, price fixed.Fixed30, qty uint32) {
	ts := b.now()
	m := common.Match{
		Price:    price,
		Quantity: qty,
		TsSec:    uint32(ts.Unix()),
		TsUsec:   uint32(ts.Nanosecond() / 1000),
	}
	if o.Side == common.Buy {
		m.BuyerOrderID = aggressorID
		m.BuyerAgentID = o.AgentID
		m.BuyerSecurity = o.SecurityID
		m.SellerOrderID = resting.id
		m.SellerAgentID = resting.order.AgentID
		m.SellerSecurity = resting.order.SecurityID
	} else {
		m.SellerOrderID = aggressorID
		m.SellerAgentID = o.AgentID
		m.SellerSecurity = o.SecurityID
		m.BuyerOrderID = resting.id
		m.BuyerAgentID = resting.order.AgentID
		m.BuyerSecurity = resting.order.SecurityID
	}
	b.log.append(m)
	if b.onMatch != nil {
		b.onMatch(m)
	}
}
