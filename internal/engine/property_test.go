package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"unsermarkt/internal/arena"
	"unsermarkt/internal/common"
	"unsermarkt/internal/fixed"
)

// TestRandomizedInvariants drives the book with a seeded stream of
// adds, cancels, suspends, resumes and market sweeps, re-verifying the
// structural invariants after every mutation and checking quantity
// conservation at the end: everything ever submitted is accounted for
// as resting, suspended, cancelled, matched (once per side) or a
// reported market shortfall.
func TestRandomizedInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	b := newTestBook(WithArenaCapacity(8192), WithMatchLogCapacity(64))

	var submitted, matched, cancelled, dropped uint64
	b.OnMatch(func(m common.Match) { matched += uint64(m.Quantity) })

	prices := []string{"11.90", "11.95", "12.00", "12.05", "12.10", "12.15"}
	var live []common.OrderID

	randomSide := func() common.Side {
		if rng.Intn(2) == 0 {
			return common.Buy
		}
		return common.Sell
	}

	for i := 0; i < 3000; i++ {
		switch op := rng.Intn(10); {
		case op < 6: // limit order
			qty := uint32(1 + rng.Intn(500))
			o := limit(t, uint32(1+rng.Intn(5)), randomSide(), prices[rng.Intn(len(prices))], qty)
			submitted += uint64(qty)
			id, err := b.AddOrder(o)
			require.NoError(t, err)
			if id != 0 {
				live = append(live, id)
			}

		case op == 6: // market order
			qty := uint32(1 + rng.Intn(800))
			submitted += uint64(qty)
			_, err := b.AddOrder(common.Order{
				AgentID:  99,
				Quantity: qty,
				Side:     randomSide(),
				Kind:     common.Market,
			})
			if err != nil {
				var unfilled *MarketUnfilledError
				require.ErrorAs(t, err, &unfilled)
				dropped += uint64(unfilled.Remaining)
			}

		case op == 7 && len(live) > 0: // cancel, id possibly stale
			id := live[rng.Intn(len(live))]
			if o, ok := b.GetOrder(id); ok {
				require.NoError(t, b.CancelOrder(id))
				cancelled += uint64(o.Quantity)
			} else {
				require.ErrorIs(t, b.CancelOrder(id), ErrOrderNotFound)
			}

		case op == 8 && len(live) > 0: // suspend
			id := live[rng.Intn(len(live))]
			status := b.GetStatus(id)
			err := b.SuspendOrder(id)
			if status == common.StatusNew || status == common.StatusPartiallyFilled {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrOrderNotFound)
			}

		case op == 9 && len(live) > 0: // resume, possibly refilling
			id := live[rng.Intn(len(live))]
			if b.GetStatus(id) == common.StatusSuspended {
				err := b.ResumeOrder(id)
				if err != nil {
					require.ErrorIs(t, err, ErrOrderNotFound)
				}
			}
		}
		checkInvariants(t, b)
	}

	var resting uint64
	resting += b.SideVolume(common.Buy)
	resting += b.SideVolume(common.Sell)
	for cur := b.susHead; cur != arena.None; cur = b.orders.At(cur).next {
		resting += uint64(b.orders.At(cur).order.Quantity)
	}

	require.Equal(t, submitted, resting+cancelled+2*matched+dropped,
		"quantity not conserved: submitted=%d resting=%d cancelled=%d matched=%d dropped=%d",
		submitted, resting, cancelled, matched, dropped)
}

// Property: a bid matches a resting ask exactly when the bid price is
// at or above the ask price, and the trade prices at the resting ask.
func TestPropertyPriceCompatibility(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		bidMant := rapid.Uint32Range(1, 1_000_000).Draw(rt, "bid")
		askMant := rapid.Uint32Range(1, 1_000_000).Draw(rt, "ask")
		qty := rapid.Uint32Range(1, 100).Draw(rt, "qty")

		b := newTestBook()
		ask := fixed.New(askMant, 1)
		bid := fixed.New(bidMant, 1)

		askID, err := b.AddOrder(common.Order{
			AgentID: 20, SecurityID: 1, Price: ask, Quantity: qty,
			Side: common.Sell, Kind: common.Limit, TIF: common.GTC,
		})
		if err != nil {
			rt.Fatalf("failed to place ask: %v", err)
		}
		if askID == 0 {
			rt.Fatalf("ask rested on an empty book but got no id")
		}

		bidID, err := b.AddOrder(common.Order{
			AgentID: 7, SecurityID: 1, Price: bid, Quantity: qty,
			Side: common.Buy, Kind: common.Limit, TIF: common.GTC,
		})
		if err != nil {
			rt.Fatalf("failed to place bid: %v", err)
		}

		matches := drainMatches(b)
		if bid.Cmp(ask) >= 0 {
			if len(matches) != 1 {
				rt.Fatalf("expected a trade at bid=%s ask=%s, got %d", bid, ask, len(matches))
			}
			if matches[0].Price.Cmp(ask) != 0 {
				rt.Fatalf("trade priced at %s, want resting ask %s", matches[0].Price, ask)
			}
			if bidID != 0 {
				rt.Fatalf("fully matched bid must not queue")
			}
		} else {
			if len(matches) != 0 {
				rt.Fatalf("unexpected trade at bid=%s ask=%s", bid, ask)
			}
			if bidID == 0 {
				rt.Fatalf("uncrossed bid must rest")
			}
		}
		checkInvariants(t, b)
	})
}
