package market

// Direction is the side of the parent order.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// Opposite returns the closing side for protective child orders.
func (d Direction) Opposite() Direction {
	if d == Buy {
		return Sell
	}
	return Buy
}

func (d Direction) Valid() bool {
	return d == Buy || d == Sell
}

// OrderType covers the parent order types the assistant can submit.
type OrderType string

const (
	Limit     OrderType = "LMT"
	Market    OrderType = "MKT"
	StopLimit OrderType = "STOPLMT"

	// Stop is the order type of protective stop-loss legs. It is not a
	// valid parent entry type.
	Stop OrderType = "STP"
)

// Valid reports whether the type is usable for a parent entry order.
func (o OrderType) Valid() bool {
	switch o {
	case Limit, Market, StopLimit:
		return true
	}
	return false
}

// BasisPrice returns the price used for all risk math.
//
// For stop-limit entries the fill is expected near the limit price, not the
// stop trigger, so the limit price is the safer sizing basis. Everything else
// sizes off the entry price. The same rule is applied by the sizer, the
// validator and the target planner so their numbers always agree.
func BasisPrice(orderType OrderType, entry, limit float64) float64 {
	if orderType == StopLimit && limit > 0 {
		return limit
	}
	return entry
}
