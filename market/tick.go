package market

import "github.com/shopspring/decimal"

// US equities trade in penny increments at or above $1.00 and are allowed
// sub-penny (0.0001) increments below it. Gateways reject orders whose price
// violates the instrument's tick size, so every price is rounded before it
// leaves the sizing/building pipeline.
const (
	pennyPlaces    = 2
	subPennyPlaces = 4
)

// RoundPrice rounds a raw price to the instrument's legal increment:
// 2 decimal places at or above $1.00, 4 below. Idempotent.
//
// Rounding goes through shopspring/decimal so the result is exact at the
// target precision instead of the nearest float64 (100.005 must become
// 100.01, not 100.00999...).
func RoundPrice(price float64) float64 {
	places := int32(pennyPlaces)
	if price < 1.0 {
		places = subPennyPlaces
	}
	f, _ := decimal.NewFromFloat(price).Round(places).Float64()
	return f
}

// RoundPrices rounds each price in place and returns the slice.
func RoundPrices(prices []float64) []float64 {
	for i, p := range prices {
		prices[i] = RoundPrice(p)
	}
	return prices
}
