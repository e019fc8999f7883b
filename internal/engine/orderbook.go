// Package engine implements the order queue core: a continuous
// double-auction matching engine with price-time priority over
// arena-allocated price levels. The engine is a pure in-memory data
// structure: no I/O, no locking, no logging. It must be driven from a
// single logical thread of control; the surrounding daemon serializes
// calls through one goroutine.
package engine

import (
	"time"

	"github.com/tidwall/btree"

	"unsermarkt/internal/arena"
	"unsermarkt/internal/common"
	"unsermarkt/internal/fixed"
)

const defaultMatchLogCapacity = 256

type config struct {
	arenaCap int
	logCap   int
	now      func() time.Time
}

type Option func(*config)

// WithArenaCapacity overrides the cell count of both the order and the
// level pool. The pools never grow; exhaustion is a reported error.
func WithArenaCapacity(n int) Option {
	return func(c *config) { c.arenaCap = n }
}

// WithMatchLogCapacity overrides the bounded match ring size.
func WithMatchLogCapacity(n int) Option {
	return func(c *config) { c.logCap = n }
}

// WithClock substitutes the wall clock used to stamp matches.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// OrderBook is the matching engine for one tradable instrument. It
// exclusively owns its arena cells, levels and match log; only copies
// and opaque ids cross the API boundary.
type OrderBook struct {
	securityID uint32
	fundingID  uint32

	orders *arena.Pool[restingCell]
	levels *arena.Pool[levelCell]

	bidHead arena.Ref
	askHead arena.Ref
	susHead arena.Ref
	susTail arena.Ref

	registry btree.Map[uint32, arena.Ref]

	nextID  common.OrderID
	log     *matchLog
	onMatch func(common.Match)
	now     func() time.Time
}

// New constructs a book for the given security/funding instrument
// pair.
func New(securityID, fundingID uint32, opts ...Option) *OrderBook {
	cfg := config{
		arenaCap: arena.DefaultCapacity,
		logCap:   defaultMatchLogCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &OrderBook{
		securityID: securityID,
		fundingID:  fundingID,
		orders:     arena.New[restingCell](cfg.arenaCap),
		levels:     arena.New[levelCell](cfg.arenaCap),
		bidHead:    arena.None,
		askHead:    arena.None,
		susHead:    arena.None,
		susTail:    arena.None,
		log:        newMatchLog(cfg.logCap),
		now:        cfg.now,
	}
}

func (b *OrderBook) SecurityID() uint32 { return b.securityID }

func (b *OrderBook) FundingID() uint32 { return b.fundingID }

// AddOrder matches the order against the opposite side and queues any
// remainder under a freshly assigned id. A zero id with a nil error
// means the order was fully consumed by matching; a zero id with a
// *MarketUnfilledError means a market-order remainder was dropped.
// Fills recorded before an error stand either way.
func (b *OrderBook) AddOrder(o common.Order) (common.OrderID, error) {
	if !o.Side.Valid() {
		return 0, ErrInvalidSide
	}
	queued, err := b.tryMatch(&o, 0)
	if err != nil || !queued {
		return 0, err
	}

	ref, err := b.orders.Alloc()
	if err != nil {
		return 0, err
	}
	b.nextID++
	id := b.nextID
	cell := b.orders.At(ref)
	cell.order = o
	cell.id = id
	cell.status = common.StatusNew
	cell.level, cell.prev, cell.next = arena.None, arena.None, arena.None

	if err := b.enqueue(ref); err != nil {
		_ = b.orders.Free(ref)
		b.nextID--
		return 0, err
	}
	b.registry.Set(uint32(id), ref)
	return id, nil
}

// enqueue rests the cell on its side's price-level index.
func (b *OrderBook) enqueue(oref arena.Ref) error {
	cell := b.orders.At(oref)
	lref, err := b.findOrCreateLevel(cell.order.Side, cell.order.Price)
	if err != nil {
		return err
	}
	b.appendToLevel(lref, oref)
	return nil
}

// GetOrder returns a copy of the live order registered under id.
func (b *OrderBook) GetOrder(id common.OrderID) (common.Order, bool) {
	ref, ok := b.registry.Get(uint32(id))
	if !ok {
		return common.Order{}, false
	}
	return b.orders.At(ref).order, true
}

// GetStatus reports the status of a live order, or StatusUnknown for
// ids that were never assigned or are already terminal.
func (b *OrderBook) GetStatus(id common.OrderID) common.OrderStatus {
	ref, ok := b.registry.Get(uint32(id))
	if !ok {
		return common.StatusUnknown
	}
	return b.orders.At(ref).status
}

// CancelOrder removes the order from whichever chain holds it and
// releases its cell. Cancelling an unknown or already-terminal id is
// rejected without touching state.
func (b *OrderBook) CancelOrder(id common.OrderID) error {
	ref, ok := b.registry.Get(uint32(id))
	if !ok {
		return ErrOrderNotFound
	}
	cell := b.orders.At(ref)
	if cell.status == common.StatusSuspended {
		b.unlinkSuspended(ref)
	} else {
		b.unlinkFromLevel(ref)
	}
	b.registry.Delete(uint32(id))
	_ = b.orders.Free(ref)
	return nil
}

// SuspendOrder lifts a resting order off its side chain onto the
// suspended list, where it is invisible to matching. Suspending an
// already-suspended id reports not-found, mirroring a scan over the
// live chains only.
func (b *OrderBook) SuspendOrder(id common.OrderID) error {
	ref, ok := b.registry.Get(uint32(id))
	if !ok {
		return ErrOrderNotFound
	}
	cell := b.orders.At(ref)
	if cell.status == common.StatusSuspended {
		return ErrOrderNotFound
	}
	b.unlinkFromLevel(ref)
	cell.status = common.StatusSuspended
	b.pushSuspended(ref)
	return nil
}

// ResumeOrder replays a suspended order through matching as if newly
// submitted, keeping its original id. Resumption can itself fill: a
// fully consumed order releases its cell and reports not-found, since
// there is nothing left to resume.
func (b *OrderBook) ResumeOrder(id common.OrderID) error {
	ref, ok := b.registry.Get(uint32(id))
	if !ok {
		return ErrOrderNotFound
	}
	cell := b.orders.At(ref)
	if cell.status != common.StatusSuspended {
		return ErrOrderNotFound
	}
	b.unlinkSuspended(ref)

	o := cell.order
	queued, err := b.tryMatch(&o, id)
	if err == nil && !queued {
		b.registry.Delete(uint32(id))
		_ = b.orders.Free(ref)
		return ErrOrderNotFound
	}
	if err != nil {
		b.registry.Delete(uint32(id))
		_ = b.orders.Free(ref)
		return err
	}

	cell.order = o
	cell.status = common.StatusNew
	if err := b.enqueue(ref); err != nil {
		b.registry.Delete(uint32(id))
		_ = b.orders.Free(ref)
		return err
	}
	return nil
}

// LevelView is the copy of a price level handed to traversals.
type LevelView struct {
	Price    fixed.Fixed30
	Quantity uint32
	Orders   int
}

func (b *OrderBook) levelView(lref arena.Ref) LevelView {
	lv := b.levels.At(lref)
	n := 0
	for cur := lv.head; cur != arena.None; cur = b.orders.At(cur).next {
		n++
	}
	return LevelView{Price: lv.price, Quantity: lv.qty, Orders: n}
}

func (b *OrderBook) forEachLevel(side common.Side, fn func(LevelView) bool) {
	for cur := *b.headOf(side); cur != arena.None; cur = b.levels.At(cur).next {
		if !fn(b.levelView(cur)) {
			return
		}
	}
}

// ForEachBidLevel visits bid levels best (highest) price first.
// Returning false stops the walk.
func (b *OrderBook) ForEachBidLevel(fn func(LevelView) bool) {
	b.forEachLevel(common.Buy, fn)
}

// ForEachAskLevel visits ask levels best (lowest) price first.
func (b *OrderBook) ForEachAskLevel(fn func(LevelView) bool) {
	b.forEachLevel(common.Sell, fn)
}

// BestBid returns the top bid level, if any.
func (b *OrderBook) BestBid() (LevelView, bool) {
	if b.bidHead == arena.None {
		return LevelView{}, false
	}
	return b.levelView(b.bidHead), true
}

// BestAsk returns the top ask level, if any.
func (b *OrderBook) BestAsk() (LevelView, bool) {
	if b.askHead == arena.None {
		return LevelView{}, false
	}
	return b.levelView(b.askHead), true
}

// Depth counts the price levels on a side.
func (b *OrderBook) Depth(side common.Side) int {
	n := 0
	b.forEachLevel(side, func(LevelView) bool { n++; return true })
	return n
}

// SideVolume sums the resting quantity across a side's levels.
func (b *OrderBook) SideVolume(side common.Side) uint64 {
	var total uint64
	b.forEachLevel(side, func(lv LevelView) bool {
		total += uint64(lv.Quantity)
		return true
	})
	return total
}

// ForEachMatch drains the match ring oldest first.
func (b *OrderBook) ForEachMatch(fn func(common.Match) bool) {
	b.log.forEach(fn)
}

// ForEachMatchReverse drains the match ring newest first.
func (b *OrderBook) ForEachMatchReverse(fn func(common.Match) bool) {
	b.log.forEachReverse(fn)
}

// ClearMatches empties the match ring.
func (b *OrderBook) ClearMatches() {
	b.log.clear()
}

// OnMatch registers a callback invoked synchronously for every match
// at the moment it is recorded, in generation order. A nil callback
// unregisters.
func (b *OrderBook) OnMatch(fn func(common.Match)) {
	b.onMatch = fn
}
