package engine

import (
	"unsermarkt/internal/arena"
	"unsermarkt/internal/common"
	"unsermarkt/internal/fixed"
)

// restingCell is the arena cell wrapping an order that lives on the
// book. A cell is chained under exactly one of: a bid level, an ask
// level, or the suspended list.
type restingCell struct {
	order  common.Order
	id     common.OrderID
	status common.OrderStatus
	level  arena.Ref // owning level; arena.None while suspended
	prev   arena.Ref
	next   arena.Ref
}

// levelCell aggregates resting quantity at one price on one side.
// Levels form a singly linked chain per side, best price first. Each
// level keeps its own head and tail refs into the order pool, giving
// O(1) append at the back of the FIFO and O(1) unlink anywhere while
// keeping the price-time visit order obvious.
type levelCell struct {
	price fixed.Fixed30
	qty   uint32 // invariant: sum of chained orders' quantities
	next  arena.Ref
	head  arena.Ref
	tail  arena.Ref
}

// headOf returns the mutable best-first chain head for a side.
func (b *OrderBook) headOf(side common.Side) *arena.Ref {
	if side == common.Buy {
		return &b.bidHead
	}
	return &b.askHead
}

// betterThan reports whether price a takes priority over b on the
// given side: higher bids first, lower asks first.
func betterThan(side common.Side, a, b fixed.Fixed30) bool {
	if side == common.Buy {
		return a.Cmp(b) > 0
	}
	return a.Cmp(b) < 0
}

// findOrCreateLevel scans from the best price outward and returns the
// level at price, splicing in a fresh one immediately before the first
// worse level if none exists. Prices are unique per side by
// construction, so no tie-break is needed.
func (b *OrderBook) findOrCreateLevel(side common.Side, price fixed.Fixed30) (arena.Ref, error) {
	headp := b.headOf(side)
	prev := arena.None
	cur := *headp
	for cur != arena.None {
		lv := b.levels.At(cur)
		if lv.price.Cmp(price) == 0 {
			return cur, nil
		}
		if betterThan(side, price, lv.price) {
			break
		}
		prev = cur
		cur = lv.next
	}

	ref, err := b.levels.Alloc()
	if err != nil {
		return arena.None, err
	}
	lv := b.levels.At(ref)
	lv.price = price
	lv.head, lv.tail = arena.None, arena.None
	lv.next = cur
	if prev == arena.None {
		*headp = ref
	} else {
		b.levels.At(prev).next = ref
	}
	return ref, nil
}

// appendToLevel chains the cell at the tail of the level's FIFO and
// folds its quantity into the aggregate.
func (b *OrderBook) appendToLevel(lref, oref arena.Ref) {
	lv := b.levels.At(lref)
	cell := b.orders.At(oref)
	cell.level = lref
	cell.next = arena.None
	cell.prev = lv.tail
	if lv.tail != arena.None {
		b.orders.At(lv.tail).next = oref
	} else {
		lv.head = oref
	}
	lv.tail = oref
	lv.qty += cell.order.Quantity
}

// unlinkFromLevel removes the cell from its owning level, decrements
// the aggregate by the cell's remaining quantity, and destroys the
// level once it holds nothing. The cell itself is not freed.
func (b *OrderBook) unlinkFromLevel(oref arena.Ref) {
	cell := b.orders.At(oref)
	lref := cell.level
	lv := b.levels.At(lref)

	if cell.prev != arena.None {
		b.orders.At(cell.prev).next = cell.next
	} else {
		lv.head = cell.next
	}
	if cell.next != arena.None {
		b.orders.At(cell.next).prev = cell.prev
	} else {
		lv.tail = cell.prev
	}
	lv.qty -= cell.order.Quantity
	side := cell.order.Side
	cell.level, cell.prev, cell.next = arena.None, arena.None, arena.None

	if lv.head == arena.None {
		b.removeLevel(side, lref)
	}
}

// removeLevel unlinks an empty level from its side chain and releases
// the cell. The chain is singly linked, so the predecessor is found by
// walking from the head.
func (b *OrderBook) removeLevel(side common.Side, lref arena.Ref) {
	next := b.levels.At(lref).next
	headp := b.headOf(side)
	if *headp == lref {
		*headp = next
	} else {
		for cur := *headp; cur != arena.None; cur = b.levels.At(cur).next {
			if b.levels.At(cur).next == lref {
				b.levels.At(cur).next = next
				break
			}
		}
	}
	_ = b.levels.Free(lref)
}

// pushSuspended appends the cell to the suspended list.
func (b *OrderBook) pushSuspended(oref arena.Ref) {
	cell := b.orders.At(oref)
	cell.level = arena.None
	cell.next = arena.None
	cell.prev = b.susTail
	if b.susTail != arena.None {
		b.orders.At(b.susTail).next = oref
	} else {
		b.susHead = oref
	}
	b.susTail = oref
}

// unlinkSuspended removes the cell from the suspended list.
func (b *OrderBook) unlinkSuspended(oref arena.Ref) {
	cell := b.orders.At(oref)
	if cell.prev != arena.None {
		b.orders.At(cell.prev).next = cell.next
	} else {
		b.susHead = cell.next
	}
	if cell.next != arena.None {
		b.orders.At(cell.next).prev = cell.prev
	} else {
		b.susTail = cell.prev
	}
	cell.prev, cell.next = arena.None, arena.None
}
