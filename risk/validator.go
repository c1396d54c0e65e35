package risk

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/alexms1504/trade-assistant/account"
	"github.com/alexms1504/trade-assistant/market"
)

// Limits are the validation thresholds. Zero-valued fields fall back to the
// package defaults.
type Limits struct {
	MinStopDistancePct float64 // warn below this stop distance, default 0.5
	MaxPositionPct     float64 // of net liquidation, default 100
	MaxRiskPct         float64 // of net liquidation, default 2.0
}

const (
	defaultMinStopDistancePct = 0.5
	defaultMaxPositionPct     = 100
	defaultMaxRiskPct         = 2.0

	// warnFraction marks the soft band below a hard limit.
	warnFraction = 0.8
)

func (l Limits) withDefaults() Limits {
	if l.MinStopDistancePct == 0 {
		l.MinStopDistancePct = defaultMinStopDistancePct
	}
	if l.MaxPositionPct == 0 {
		l.MaxPositionPct = defaultMaxPositionPct
	}
	if l.MaxRiskPct == 0 {
		l.MaxRiskPct = defaultMaxRiskPct
	}
	return l
}

// TradeCheck is a fully-specified trade handed to the validator.
type TradeCheck struct {
	Symbol     string
	Entry      float64
	Stop       float64
	TakeProfit float64
	Shares     int
	Direction  market.Direction
	OrderType  market.OrderType
	LimitPrice float64
	Account    string
}

// Decision is the merged outcome of the validation pipeline.
type Decision struct {
	Errors   []string
	Warnings []string
}

// OK reports whether the trade passed every hard rule.
func (d Decision) OK() bool { return len(d.Errors) == 0 }

// Messages returns errors first, then warnings, each in rule order.
func (d Decision) Messages() []string {
	out := make([]string, 0, len(d.Errors)+len(d.Warnings))
	out = append(out, d.Errors...)
	out = append(out, d.Warnings...)
	return out
}

func (d *Decision) fail(msg string) { d.Errors = append(d.Errors, msg) }
func (d *Decision) warn(msg string) { d.Warnings = append(d.Warnings, msg) }

// Validator gates trades through a fixed, ordered pipeline of rules. Each
// rule is isolated: a rule that panics is reported as an error message and
// the remaining rules still run, so the caller always gets the complete set
// of issues in one pass. Rules that need account data degrade to a
// "skipped" warning when the provider is unavailable.
type Validator struct {
	provider account.Provider
	limits   Limits
	log      zerolog.Logger
}

func NewValidator(provider account.Provider, limits Limits, log zerolog.Logger) *Validator {
	return &Validator{provider: provider, limits: limits.withDefaults(), log: log}
}

type rule struct {
	name  string
	check func(*Validator, TradeCheck, *Decision)
}

// Pipeline order is part of the contract: Messages() reports issues in this
// order within each severity.
var rules = []rule{
	{"price positivity", (*Validator).checkPrices},
	{"shares positivity", (*Validator).checkShares},
	{"direction consistency", (*Validator).checkDirection},
	{"minimum stop distance", (*Validator).checkStopDistance},
	{"buying power", (*Validator).checkBuyingPower},
	{"position concentration", (*Validator).checkConcentration},
	{"risk percent", (*Validator).checkRiskPercent},
}

// Validate runs the full rule pipeline over the trade.
func (v *Validator) Validate(in TradeCheck) Decision {
	var d Decision
	for _, r := range rules {
		v.runRule(r, in, &d)
	}

	v.log.Debug().
		Str("symbol", in.Symbol).
		Bool("ok", d.OK()).
		Int("errors", len(d.Errors)).
		Int("warnings", len(d.Warnings)).
		Msg("trade validated")

	return d
}

func (v *Validator) runRule(r rule, in TradeCheck, d *Decision) {
	defer func() {
		if rec := recover(); rec != nil {
			d.fail(fmt.Sprintf("%s check failed: %v", r.name, rec))
		}
	}()
	r.check(v, in, d)
}

func (v *Validator) basis(in TradeCheck) float64 {
	return market.BasisPrice(in.OrderType, in.Entry, in.LimitPrice)
}

func (v *Validator) checkPrices(in TradeCheck, d *Decision) {
	if in.Entry <= 0 || in.Stop <= 0 || in.TakeProfit <= 0 {
		d.fail("all prices must be positive")
	}
}

func (v *Validator) checkShares(in TradeCheck, d *Decision) {
	if in.Shares <= 0 {
		d.fail("position size must be positive")
	}
}

func (v *Validator) checkDirection(in TradeCheck, d *Decision) {
	basis := v.basis(in)
	if basis <= 0 {
		return // already reported by the price rule
	}
	switch in.Direction {
	case market.Buy:
		if in.Stop >= basis {
			d.fail("stop loss must be below entry for long positions")
		}
		if in.TakeProfit <= basis {
			d.fail("take profit must be above entry for long positions")
		}
	case market.Sell:
		if in.Stop <= basis {
			d.fail("stop loss must be above entry for short positions")
		}
		if in.TakeProfit >= basis {
			d.fail("take profit must be below entry for short positions")
		}
	default:
		d.fail(fmt.Sprintf("unknown direction %q", in.Direction))
	}
}

func (v *Validator) checkStopDistance(in TradeCheck, d *Decision) {
	basis := v.basis(in)
	if basis <= 0 {
		return
	}
	distancePct := math.Abs(basis-in.Stop) / basis * 100
	if distancePct < v.limits.MinStopDistancePct {
		d.warn(fmt.Sprintf("stop loss is very tight (%.1f%% < %.1f%% minimum)",
			distancePct, v.limits.MinStopDistancePct))
	}
}

func (v *Validator) checkBuyingPower(in TradeCheck, d *Decision) {
	if v.provider == nil {
		d.warn("buying power check skipped: account data unavailable")
		return
	}
	positionValue := float64(in.Shares) * v.basis(in)
	chk, err := v.provider.ValidateOrderBuyingPower(positionValue, in.Account)
	if err != nil {
		d.warn(fmt.Sprintf("buying power check skipped: %v", err))
		return
	}
	switch {
	case !chk.OK:
		d.fail(chk.Message)
	case chk.Warning:
		d.warn(chk.Message)
	}
}

func (v *Validator) checkConcentration(in TradeCheck, d *Decision) {
	netLiq, err := v.netLiquidation(in.Account)
	if err != nil {
		d.warn(fmt.Sprintf("position concentration check skipped: %v", err))
		return
	}
	if netLiq <= 0 {
		return
	}
	positionPct := float64(in.Shares) * v.basis(in) / netLiq * 100
	switch {
	case positionPct > v.limits.MaxPositionPct:
		d.fail(fmt.Sprintf("position too large: %.1f%% of account (max %.0f%%)",
			positionPct, v.limits.MaxPositionPct))
	case positionPct > v.limits.MaxPositionPct*warnFraction:
		d.warn(fmt.Sprintf("large position: %.1f%% of account", positionPct))
	}
}

func (v *Validator) checkRiskPercent(in TradeCheck, d *Decision) {
	netLiq, err := v.netLiquidation(in.Account)
	if err != nil {
		d.warn(fmt.Sprintf("risk percent check skipped: %v", err))
		return
	}
	if netLiq <= 0 {
		return
	}
	dollarRisk := float64(in.Shares) * math.Abs(v.basis(in)-in.Stop)
	riskPct := dollarRisk / netLiq * 100
	switch {
	case riskPct > v.limits.MaxRiskPct:
		d.fail(fmt.Sprintf("risk too high: %.1f%% (max %.1f%%)", riskPct, v.limits.MaxRiskPct))
	case riskPct > v.limits.MaxRiskPct*warnFraction:
		d.warn(fmt.Sprintf("high risk: %.1f%%", riskPct))
	}
}

func (v *Validator) netLiquidation(acct string) (float64, error) {
	if v.provider == nil {
		return 0, account.ErrUnavailable
	}
	return v.provider.NetLiquidation(acct)
}
