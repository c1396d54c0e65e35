// Package engine is the assistant's front door. It wires the account
// provider, brokerage gateway, sizer, validator and order builder together
// and exposes the operations callers (CLI, HTTP API) work with.
package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/alexms1504/trade-assistant/account"
	"github.com/alexms1504/trade-assistant/broker"
	"github.com/alexms1504/trade-assistant/config"
	"github.com/alexms1504/trade-assistant/market"
	"github.com/alexms1504/trade-assistant/orders"
	"github.com/alexms1504/trade-assistant/risk"
)

// Engine bundles the trading assistant's components behind one API.
type Engine struct {
	provider  account.Provider
	gw        broker.Gateway
	sizer     *risk.Sizer
	validator *risk.Validator
	ledger    *orders.Ledger
	builder   *orders.Builder
	cfg       *config.Config
	log       zerolog.Logger
}

// New wires an engine from its collaborators. cfg may be nil, in which case
// the defaults apply.
func New(provider account.Provider, gw broker.Gateway, cfg *config.Config, log zerolog.Logger) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}

	limits := risk.Limits{
		MinStopDistancePct: cfg.Risk.MinStopDistance,
		MaxPositionPct:     cfg.Risk.MaxPositionPercent,
		MaxRiskPct:         cfg.Risk.MaxRiskPercent,
	}
	ordersCfg := orders.Config{
		SettleDelay:       cfg.Orders.Settle(),
		ScaledSettleDelay: cfg.Orders.ScaledSettle(),
		InterBracketDelay: cfg.Orders.InterBracket(),
	}

	ledger := orders.NewLedger(gw, log)
	return &Engine{
		provider:  provider,
		gw:        gw,
		sizer:     risk.NewSizer(provider, log),
		validator: risk.NewValidator(provider, limits, log),
		ledger:    ledger,
		builder:   orders.NewBuilder(gw, ledger, ordersCfg, log),
		cfg:       cfg,
		log:       log,
	}
}

// CalculatePositionSize sizes a position from the trader's risk intent.
// A zero RiskPercent falls back to the configured default.
func (e *Engine) CalculatePositionSize(in risk.SizeInput) (risk.SizeResult, error) {
	if in.RiskPercent == 0 {
		in.RiskPercent = e.cfg.Risk.DefaultRiskPercent
	}
	return e.sizer.Size(in)
}

// ValidateTrade runs the full rule pipeline over a fully-specified trade.
func (e *Engine) ValidateTrade(in risk.TradeCheck) risk.Decision {
	return e.validator.Validate(in)
}

// CalculateRMultiple returns the reward-to-risk ratio of a target price.
func (e *Engine) CalculateRMultiple(entry, stop, target float64, orderType market.OrderType, limitPrice float64) float64 {
	return risk.RMultiple(entry, stop, target, orderType, limitPrice)
}

// SuggestTargets derives tick-rounded target prices at the given
// R-multiples (default 1R/2R/3R/5R).
func (e *Engine) SuggestTargets(entry, stop float64, rMultiples []float64, orderType market.OrderType, limitPrice float64) []float64 {
	return risk.SuggestTargets(entry, stop, rMultiples, orderType, limitPrice)
}

// SubmitBracketOrder submits a single protective bracket.
func (e *Engine) SubmitBracketOrder(ctx context.Context, req orders.BracketRequest) (*orders.BracketResult, error) {
	return e.builder.Submit(ctx, req)
}

// SubmitMultipleTargetOrder submits one independent bracket per profit
// target. When the request carries no targets, the configured default
// scale-out plan is applied.
func (e *Engine) SubmitMultipleTargetOrder(ctx context.Context, req orders.ScaledRequest) (*orders.ScaledResult, error) {
	if len(req.Targets) == 0 {
		req.Targets = e.defaultTargets(req.Entry, req.Stop, req.OrderType, req.LimitPrice)
	}
	return e.builder.SubmitScaled(ctx, req)
}

// defaultTargets turns the configured percent/R plan into priced targets.
func (e *Engine) defaultTargets(entry, stop float64, orderType market.OrderType, limitPrice float64) []risk.TargetAllocation {
	plan := e.cfg.Risk.DefaultTargets
	multiples := make([]float64, 0, len(plan))
	for _, t := range plan {
		multiples = append(multiples, t.RMultiple)
	}

	prices := risk.SuggestTargets(entry, stop, multiples, orderType, limitPrice)
	targets := make([]risk.TargetAllocation, 0, len(plan))
	for i, t := range plan {
		targets = append(targets, risk.TargetAllocation{
			Price:     prices[i],
			Percent:   t.Percent,
			RMultiple: t.RMultiple,
		})
	}
	return targets
}

// CancelOrder asks the gateway to cancel one tracked order.
func (e *Engine) CancelOrder(ctx context.Context, orderID int64) error {
	return e.ledger.Cancel(ctx, orderID)
}

// ActiveOrders refreshes statuses from the gateway when connected,
// then returns the legs still working.
func (e *Engine) ActiveOrders(ctx context.Context) []orders.TrackedOrder {
	if err := e.ledger.Refresh(ctx); err != nil {
		e.log.Warn().Err(err).Msg("status refresh failed; returning last known statuses")
	}
	return e.ledger.Active()
}

// OrderHistory returns every submission attempt, newest last.
func (e *Engine) OrderHistory() []orders.OrderRecord {
	return e.ledger.History()
}

// PurgeCompleted drops terminal legs from the active set.
func (e *Engine) PurgeCompleted() int {
	return e.ledger.PurgeCompleted()
}

// ConfigCheck reports whether the gateway session is usable for order
// submission, with remediation steps for anything that failed.
type ConfigCheck struct {
	Connected   bool     `json:"connected"`
	Accounts    []string `json:"accounts,omitempty"`
	Positions   int      `json:"positions"`
	Issues      []string `json:"issues,omitempty"`
	Remediation []string `json:"remediation,omitempty"`
}

// OK reports whether every probe passed.
func (c ConfigCheck) OK() bool { return c.Connected && len(c.Issues) == 0 }

// CheckAPIConfiguration probes the gateway's account and position read
// access. Brokers commonly ship with the API locked down; the probes catch
// the usual misconfigurations before a live order finds them.
func (e *Engine) CheckAPIConfiguration(ctx context.Context) ConfigCheck {
	chk := ConfigCheck{Connected: e.gw.Connected()}
	if !chk.Connected {
		chk.Issues = append(chk.Issues, "not connected to the brokerage gateway")
		chk.Remediation = append(chk.Remediation,
			"start the broker terminal and verify the API socket port matches the configured one")
		return chk
	}

	accounts, err := e.gw.ManagedAccounts(ctx)
	if err != nil {
		chk.Issues = append(chk.Issues, fmt.Sprintf("managed accounts unavailable: %v", err))
		chk.Remediation = append(chk.Remediation,
			"enable API connections in the broker terminal settings (ActiveX and Socket Clients)")
	} else {
		chk.Accounts = accounts
		if len(accounts) == 0 {
			chk.Issues = append(chk.Issues, "no managed accounts returned")
			chk.Remediation = append(chk.Remediation,
				"log in to an account with trading permissions before connecting the API")
		}
	}

	positions, err := e.gw.PositionCount(ctx)
	if err != nil {
		chk.Issues = append(chk.Issues, fmt.Sprintf("position data unavailable: %v", err))
		chk.Remediation = append(chk.Remediation,
			"disable the Read-Only API setting so the session can read portfolio data")
	} else {
		chk.Positions = positions
	}

	if len(chk.Issues) == 0 {
		chk.Remediation = append(chk.Remediation,
			"enable automatic order transmission (bypass order precautions) to avoid manual confirmation prompts")
	}

	e.log.Info().
		Bool("ok", chk.OK()).
		Int("accounts", len(chk.Accounts)).
		Int("positions", chk.Positions).
		Msg("api configuration checked")

	return chk
}
