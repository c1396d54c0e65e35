package risk

import (
	"fmt"
	"math"

	"github.com/alexms1504/trade-assistant/market"
)

// DefaultRMultiples are the target multiples suggested when the caller does
// not supply any.
var DefaultRMultiples = []float64{1, 2, 3, 5}

// AllocationError means the active targets' percentages are unusable:
// either one target's percent is outside (0, 100], or they do not total
// 100. It is raised before any gateway call is made.
type AllocationError struct {
	TotalPercent float64
	Percent      float64 // the offending per-target percent
	PerTarget    bool
}

func (e *AllocationError) Error() string {
	if e.PerTarget {
		return fmt.Sprintf("profit target percentage must be in (0, 100] (got %g%%)", e.Percent)
	}
	return fmt.Sprintf("profit target percentages must total 100%% (got %g%%)", e.TotalPercent)
}

// TargetAllocation is one profit target of a scaled exit: its price, the
// share of the position it closes, and the quantity assigned by Allocate.
type TargetAllocation struct {
	Price     float64
	Percent   float64
	RMultiple float64
	Quantity  int
}

// RMultiple returns reward distance over risk distance, both measured from
// the basis price. Returns 0 when the risk distance is 0.
func RMultiple(entry, stop, target float64, orderType market.OrderType, limitPrice float64) float64 {
	basis := market.BasisPrice(orderType, entry, limitPrice)
	risk := math.Abs(basis - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(target-basis) / risk
}

// SuggestTargets derives target prices at the given R-multiples. Direction
// is inferred from whether the stop sits below or above the basis price;
// each target is tick-rounded.
func SuggestTargets(entry, stop float64, rMultiples []float64, orderType market.OrderType, limitPrice float64) []float64 {
	if len(rMultiples) == 0 {
		rMultiples = DefaultRMultiples
	}

	basis := market.BasisPrice(orderType, entry, limitPrice)
	riskDist := math.Abs(basis - stop)
	long := stop < basis

	targets := make([]float64, 0, len(rMultiples))
	for _, r := range rMultiples {
		t := basis + riskDist*r
		if !long {
			t = basis - riskDist*r
		}
		targets = append(targets, market.RoundPrice(t))
	}
	return targets
}

// Allocate assigns whole-share quantities to the active targets so that the
// quantities total exactly totalShares.
//
// Every target except the one with the smallest R-multiple receives
// floor(totalShares * percent / 100); the smallest-R target absorbs the
// rounding remainder. The nearest target fills first and most reliably, so
// it is the safest home for the leftover share(s) — an off-by-one total at
// submission would leave part of the position unprotected.
func Allocate(targets []TargetAllocation, totalShares int) ([]TargetAllocation, error) {
	if len(targets) == 0 {
		return nil, &AllocationError{TotalPercent: 0}
	}

	total := 0.0
	for _, t := range targets {
		// A sum check alone would accept sets like {-10%, 110%}, whose
		// skipped negative target leaves the submitted shares exceeding
		// the position.
		if t.Percent <= 0 || t.Percent > 100 {
			return nil, &AllocationError{Percent: t.Percent, PerTarget: true}
		}
		total += t.Percent
	}
	// Exact within float tolerance; never silently rescaled.
	if math.Abs(total-100) > 0.01 {
		return nil, &AllocationError{TotalPercent: total}
	}

	nearest := 0
	for i, t := range targets {
		if t.RMultiple < targets[nearest].RMultiple {
			nearest = i
		}
	}

	out := make([]TargetAllocation, len(targets))
	copy(out, targets)

	assigned := 0
	for i := range out {
		if i == nearest {
			continue
		}
		out[i].Quantity = int(math.Floor(float64(totalShares) * out[i].Percent / 100))
		assigned += out[i].Quantity
	}
	out[nearest].Quantity = totalShares - assigned

	return out, nil
}
