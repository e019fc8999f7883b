package common

// OrderID is assigned sequentially by the order book; 0 is never a
// valid id and doubles as the "nothing queued" return of AddOrder.
type OrderID uint32

type Side uint8

const (
	Buy Side = iota
	Sell
)

// Valid rejects sides decoded from a malformed wire tail.
func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return "invalid"
}

type OrderKind uint8

const (
	// Market orders execute against the best opposing prices
	// immediately and never rest on the book.
	Market OrderKind = iota
	// Limit orders execute at their price or better and rest
	// otherwise.
	Limit
	// MarketToLimit orders peg to the best opposing price on arrival,
	// then rest at that price like a limit order.
	MarketToLimit
)

func (k OrderKind) String() string {
	switch k {
	case Market:
		return "market"
	case Limit:
		return "limit"
	case MarketToLimit:
		return "market-to-limit"
	}
	return "invalid"
}

// TimeInForce is carried through the engine untouched and stored for
// the surrounding daemons to act on; the engine itself matches every
// order the same way regardless of it.
type TimeInForce uint32

const (
	GTD TimeInForce = iota
	GTC
	FOK
	IOC
	OO
	OC
	OA
	Stop
	MIT
)

func (t TimeInForce) String() string {
	switch t {
	case GTD:
		return "GTD"
	case GTC:
		return "GTC"
	case FOK:
		return "FOK"
	case IOC:
		return "IOC"
	case OO:
		return "OO"
	case OC:
		return "OC"
	case OA:
		return "OA"
	case Stop:
		return "STOP"
	case MIT:
		return "MIT"
	}
	return "invalid"
}

type OrderStatus uint8

const (
	StatusUnknown OrderStatus = iota
	StatusNew
	StatusPartiallyFilled
	StatusFilled
	StatusCancelled
	StatusSuspended
	// Reserved for the surrounding system; the engine never assigns
	// these.
	StatusRejected
	StatusReplaced
	StatusExpired
)

func (s OrderStatus) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusPartiallyFilled:
		return "partially-filled"
	case StatusFilled:
		return "filled"
	case StatusCancelled:
		return "cancelled"
	case StatusSuspended:
		return "suspended"
	case StatusRejected:
		return "rejected"
	case StatusReplaced:
		return "replaced"
	case StatusExpired:
		return "expired"
	}
	return "unknown"
}
