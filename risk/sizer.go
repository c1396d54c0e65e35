// Package risk converts a trader's risk intent into a concrete, validated
// position: share count and dollar risk from (entry, stop, risk%), a rule
// pipeline gating fully-specified trades, and R-multiple target planning
// with exact share allocation across partial-profit targets.
package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/alexms1504/trade-assistant/account"
	"github.com/alexms1504/trade-assistant/market"
)

// Sizing failure reasons. Sizing fails closed: a failed computation returns
// a zero result plus one of these, never a silent zero that could be read
// as "no risk".
var (
	ErrNoAccountValue = errors.New("account value is zero or negative")
	ErrInvalidPrices  = errors.New("entry and stop prices must be positive")
	ErrMissingLimit   = errors.New("stop-limit order requires a valid limit price")
	ErrZeroRisk       = errors.New("stop equals the sizing basis price")
	ErrInvalidRisk    = errors.New("risk percent must be positive")
)

// SizeInput are the sizing parameters for one trade.
type SizeInput struct {
	Entry       float64
	Stop        float64
	RiskPercent float64 // percent of account value, e.g. 0.3 for 0.3%
	OrderType   market.OrderType
	LimitPrice  float64 // stop-limit orders only
	Account     string
}

// SizeResult is the sizing output. DollarRisk is recomputed from the
// rounded share count, so it is never more than the requested risk.
type SizeResult struct {
	Shares         int
	PositionValue  float64
	DollarRisk     float64
	RiskPerShare   float64
	AccountValue   float64
	MarginRequired float64
	RiskPercent    float64
}

// Sizer computes risk-based position sizes. Account state and the margin
// estimate come from the injected provider.
type Sizer struct {
	provider account.Provider
	log      zerolog.Logger
}

func NewSizer(provider account.Provider, log zerolog.Logger) *Sizer {
	return &Sizer{provider: provider, log: log}
}

// Size computes the share count for the given risk intent.
//
// Shares are floored so the realized dollar risk never exceeds the
// requested risk. Position value and margin use the same basis price as
// the risk-per-share computation.
func (s *Sizer) Size(in SizeInput) (SizeResult, error) {
	if in.Entry <= 0 || in.Stop <= 0 {
		return SizeResult{}, ErrInvalidPrices
	}
	if in.RiskPercent <= 0 {
		return SizeResult{}, ErrInvalidRisk
	}
	if in.OrderType == market.StopLimit && in.LimitPrice <= 0 {
		return SizeResult{}, ErrMissingLimit
	}

	if s.provider == nil {
		return SizeResult{}, account.ErrUnavailable
	}
	accountValue, err := s.provider.NetLiquidation(in.Account)
	if err != nil {
		return SizeResult{}, fmt.Errorf("net liquidation: %w", err)
	}
	if accountValue <= 0 {
		return SizeResult{}, ErrNoAccountValue
	}

	basis := market.BasisPrice(in.OrderType, in.Entry, in.LimitPrice)
	riskPerShare := math.Abs(basis - in.Stop)
	if riskPerShare == 0 {
		return SizeResult{}, ErrZeroRisk
	}

	dollarRisk := accountValue * in.RiskPercent / 100
	shares := int(math.Floor(dollarRisk / riskPerShare))
	positionValue := float64(shares) * basis

	marginRequired, err := s.provider.MarginRequirement(shares, basis, in.Account)
	if err != nil {
		// Margin is an estimate, not a gate. Sizing still stands.
		s.log.Warn().Err(err).Msg("margin estimate unavailable")
		marginRequired = 0
	}

	res := SizeResult{
		Shares:         shares,
		PositionValue:  positionValue,
		DollarRisk:     float64(shares) * riskPerShare,
		RiskPerShare:   riskPerShare,
		AccountValue:   accountValue,
		MarginRequired: marginRequired,
		RiskPercent:    in.RiskPercent,
	}

	s.log.Debug().
		Int("shares", res.Shares).
		Float64("risk_per_share", res.RiskPerShare).
		Float64("dollar_risk", res.DollarRisk).
		Float64("position_value", res.PositionValue).
		Msg("position sized")

	return res, nil
}
