// Package orders turns a sized trade into linked parent/stop/target order
// groups: tick rounding, OCA grouping, parent linkage, transmit sequencing
// and exact share allocation across partial-profit targets, plus the ledger
// that tracks what was submitted.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/alexms1504/trade-assistant/broker"
	"github.com/alexms1504/trade-assistant/market"
	"github.com/alexms1504/trade-assistant/pkg/id"
	"github.com/alexms1504/trade-assistant/risk"
)

// RejectedError means every leg of a bracket ended cancelled or inactive
// after the settle wait: the placement calls succeeded but the broker did
// not keep any of them. No funds or risk are committed.
type RejectedError struct {
	Symbol   string
	OrderIDs []int64
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("all bracket legs for %s were cancelled or inactive; check broker terminal configuration", e.Symbol)
}

// confirmationAdvice is surfaced when legs park in PreSubmitted/Inactive:
// the order may still be live, it just needs a human sign-off.
const confirmationAdvice = "orders may require manual confirmation in the broker terminal; " +
	"enable API order transmission (bypass order precautions) to avoid this"

// Config paces bracket submission against the gateway's asynchronous
// acknowledgments. Reading status immediately after placing risks seeing a
// stale "submitted" instead of the broker's actual accept/reject decision.
type Config struct {
	SettleDelay       time.Duration // after a single bracket
	ScaledSettleDelay time.Duration // after a full multi-target submission
	InterBracketDelay time.Duration // between brackets of a scaled submission
}

// DefaultConfig returns the reference pacing.
func DefaultConfig() Config {
	return Config{
		SettleDelay:       time.Second,
		ScaledSettleDelay: 2 * time.Second,
		InterBracketDelay: 500 * time.Millisecond,
	}
}

// BracketRequest describes one protective order group to submit.
type BracketRequest struct {
	Symbol     string
	Quantity   int
	Entry      float64
	Stop       float64
	TakeProfit float64
	Direction  market.Direction
	OrderType  market.OrderType
	LimitPrice float64 // stop-limit orders only
	Account    string
}

// BracketResult reports one submitted bracket. Legs are in submission
// order: parent, take-profit, stop-loss.
type BracketResult struct {
	OCAGroup          string
	Legs              []broker.Leg
	OrderIDs          []int64
	Statuses          map[int64]broker.Status
	NeedsConfirmation bool
	Warnings          []string
}

// ScaledRequest describes a multi-target (scale-out) submission. Percent
// and RMultiple on each target drive the share allocation; quantities are
// assigned here, before any gateway call.
type ScaledRequest struct {
	Symbol     string
	Quantity   int
	Entry      float64
	Stop       float64
	Targets    []risk.TargetAllocation
	Direction  market.Direction
	OrderType  market.OrderType
	LimitPrice float64
	Account    string
}

// ScaledResult reports a multi-target submission. Brackets holds one entry
// per submitted target, including those submitted before a later failure.
type ScaledResult struct {
	Brackets          []*BracketResult
	OrderIDs          []int64
	NeedsConfirmation bool
	Warnings          []string
}

// Builder assembles and submits bracket order groups through the gateway.
type Builder struct {
	gw     broker.Gateway
	ledger *Ledger
	cfg    Config
	ids    *id.Generator
	log    zerolog.Logger
}

func NewBuilder(gw broker.Gateway, ledger *Ledger, cfg Config, log zerolog.Logger) *Builder {
	return &Builder{gw: gw, ledger: ledger, cfg: cfg, ids: id.NewGenerator(), log: log}
}

func (r BracketRequest) validate() error {
	if r.Symbol == "" {
		return errors.New("symbol is required")
	}
	if r.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	if r.Entry <= 0 || r.Stop <= 0 || r.TakeProfit <= 0 {
		return errors.New("all prices must be positive")
	}
	if !r.Direction.Valid() {
		return fmt.Errorf("unknown direction %q", r.Direction)
	}
	if !r.OrderType.Valid() {
		return fmt.Errorf("unknown order type %q", r.OrderType)
	}
	if r.OrderType == market.StopLimit && r.LimitPrice <= 0 {
		return errors.New("stop-limit order requires a limit price")
	}
	return nil
}

// Submit builds, submits and settles a single bracket. Exactly one
// OrderRecord is appended whatever the outcome.
func (b *Builder) Submit(ctx context.Context, req BracketRequest) (*BracketResult, error) {
	res, err := b.submitOne(ctx, req, true)
	b.appendRecord(req.Symbol, req.Direction, req.OrderType, req.Quantity,
		req.Entry, req.Stop, []float64{req.TakeProfit}, res, err)
	return res, err
}

// SubmitScaled validates the share allocation, then builds and submits one
// independent bracket per target with quantity > 0. Each bracket gets its
// own OCA group — sharing one group across targets would let the first
// filled target cancel the others and defeat the scale-out. A failed
// bracket does not roll back the ones already submitted; the partial result
// is returned alongside the error. Exactly one OrderRecord is appended for
// the whole submission.
func (b *Builder) SubmitScaled(ctx context.Context, req ScaledRequest) (*ScaledResult, error) {
	allocated, err := risk.Allocate(req.Targets, req.Quantity)
	if err != nil {
		b.appendRecord(req.Symbol, req.Direction, req.OrderType, req.Quantity,
			req.Entry, req.Stop, targetPrices(req.Targets), nil, err)
		return nil, err
	}

	res := &ScaledResult{}
	var errs []error

	for i, target := range allocated {
		if target.Quantity <= 0 {
			continue
		}

		if len(res.Brackets) > 0 {
			// Pacing between brackets; back-to-back submission risks the
			// gateway reordering or rate-limiting them.
			if werr := waitSettle(ctx, b.cfg.InterBracketDelay); werr != nil {
				res.Warnings = append(res.Warnings, "submission interrupted; remaining targets not placed")
				errs = append(errs, werr)
				break
			}
		}

		one, err := b.submitOne(ctx, BracketRequest{
			Symbol:     req.Symbol,
			Quantity:   target.Quantity,
			Entry:      req.Entry,
			Stop:       req.Stop,
			TakeProfit: target.Price,
			Direction:  req.Direction,
			OrderType:  req.OrderType,
			LimitPrice: req.LimitPrice,
			Account:    req.Account,
		}, false)
		if one != nil {
			res.Brackets = append(res.Brackets, one)
			res.OrderIDs = append(res.OrderIDs, one.OrderIDs...)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("target %d: %w", i+1, err))
		}
	}

	// One settle window for the whole batch, then classify each bracket.
	if len(res.OrderIDs) > 0 {
		if werr := waitSettle(ctx, b.cfg.ScaledSettleDelay); werr != nil {
			res.Warnings = append(res.Warnings, "settle wait interrupted; order statuses unknown")
		} else {
			for _, one := range res.Brackets {
				if cerr := b.classify(ctx, req.Symbol, one); cerr != nil {
					errs = append(errs, cerr)
				}
				res.NeedsConfirmation = res.NeedsConfirmation || one.NeedsConfirmation
				res.Warnings = append(res.Warnings, one.Warnings...)
			}
		}
	}

	err = errors.Join(errs...)
	b.appendScaledRecord(req, allocated, res, err)
	return res, err
}

// submitOne runs steps 1-11 of a single bracket: prepare, place, and (when
// settle is set) wait and classify. It never touches the history; record
// keeping belongs to the public entry points.
func (b *Builder) submitOne(ctx context.Context, req BracketRequest, settle bool) (*BracketResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	// Every price is tick-rounded before it reaches the gateway; gateways
	// reject orders whose increment violates the instrument's tick size.
	req.Entry = market.RoundPrice(req.Entry)
	req.Stop = market.RoundPrice(req.Stop)
	req.TakeProfit = market.RoundPrice(req.TakeProfit)
	if req.LimitPrice > 0 {
		req.LimitPrice = market.RoundPrice(req.LimitPrice)
	}

	if !b.gw.Connected() {
		return nil, broker.ErrNotConnected
	}

	contract, err := b.gw.QualifyContract(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}

	template, err := b.gw.BuildBracketTemplate(ctx, broker.TemplateRequest{
		Action:          req.Direction,
		Quantity:        req.Quantity,
		LimitPrice:      req.Entry,
		TakeProfitPrice: req.TakeProfit,
		StopLossPrice:   req.Stop,
	})
	if err != nil {
		return nil, fmt.Errorf("bracket template: %w", err)
	}

	parent, target, stop, err := identifyLegs(template)
	if err != nil {
		return nil, err
	}

	// One OCA group shared by the protective children only. Tagging the
	// parent too would let the entry cancel its own protection.
	oca := b.ids.New()
	target.OCAGroup = oca
	stop.OCAGroup = oca
	parent.OCAGroup = ""

	// The children must close what the parent opens.
	want := req.Direction.Opposite()
	for _, child := range []*broker.Leg{target, stop} {
		if child.Action != want {
			b.log.Warn().
				Str("symbol", req.Symbol).
				Str("role", string(child.Role)).
				Msg("correcting child leg action")
			child.Action = want
		}
	}

	switch req.OrderType {
	case market.Market:
		parent.OrderType = market.Market
		parent.LimitPrice = 0
	case market.StopLimit:
		parent.OrderType = market.StopLimit
		parent.StopPrice = req.Entry
		parent.LimitPrice = req.LimitPrice
	}

	if req.Account != "" {
		parent.Account = req.Account
		target.Account = req.Account
		stop.Account = req.Account
	}

	// Transmit sequencing: only the last leg submitted carries
	// transmit=true, which is what releases the whole group at the broker.
	parent.Transmit = false
	target.Transmit = false
	stop.Transmit = true

	res := &BracketResult{
		OCAGroup: oca,
		Legs:     []broker.Leg{*parent, *target, *stop},
		Statuses: make(map[int64]broker.Status),
	}

	for i := range res.Legs {
		leg := res.Legs[i]
		orderID, err := b.gw.PlaceOrder(ctx, contract, leg)
		if err != nil {
			return res, fmt.Errorf("place %s leg: %w", leg.Role, err)
		}
		res.Legs[i].ID = orderID
		res.OrderIDs = append(res.OrderIDs, orderID)

		b.ledger.Track(TrackedOrder{
			ID:       orderID,
			Symbol:   req.Symbol,
			Role:     leg.Role,
			Action:   leg.Action,
			Quantity: leg.Quantity,
			OCAGroup: leg.OCAGroup,
			Status:   broker.StatusPendingSubmit,
		})

		b.log.Info().
			Str("symbol", req.Symbol).
			Str("role", string(leg.Role)).
			Int64("order_id", orderID).
			Bool("transmit", leg.Transmit).
			Msg("leg placed")
	}

	if !settle {
		return res, nil
	}

	if err := waitSettle(ctx, b.cfg.SettleDelay); err != nil {
		// Expired wait means status unknown, not failure: the bracket may
		// well be live at the broker.
		res.Warnings = append(res.Warnings, "settle wait interrupted; order statuses unknown")
		return res, nil
	}
	if err := b.classify(ctx, req.Symbol, res); err != nil {
		return res, err
	}
	return res, nil
}

// classify polls each leg after the settle window and sorts the bracket
// into live / needs-confirmation / rejected.
func (b *Builder) classify(ctx context.Context, symbol string, res *BracketResult) error {
	dead := 0
	polled := 0
	for _, orderID := range res.OrderIDs {
		st, err := b.gw.OrderStatus(ctx, orderID)
		if err != nil {
			st = broker.StatusUnknown
			res.Warnings = append(res.Warnings, fmt.Sprintf("status unknown for order %d: %v", orderID, err))
		} else {
			polled++
			if st.Dead() {
				dead++
			}
			if st.NeedsConfirmation() {
				res.NeedsConfirmation = true
			}
		}
		res.Statuses[orderID] = st
		b.ledger.UpdateStatus(orderID, st)
	}

	if polled > 0 && dead == polled {
		return &RejectedError{Symbol: symbol, OrderIDs: res.OrderIDs}
	}
	if res.NeedsConfirmation {
		res.Warnings = append(res.Warnings, confirmationAdvice)
	}
	return nil
}

func (b *Builder) appendRecord(symbol string, dir market.Direction, ot market.OrderType,
	qty int, entry, stop float64, takeProfits []float64, res *BracketResult, err error) {

	rec := OrderRecord{
		ID:          b.ids.New(),
		Timestamp:   time.Now(),
		Symbol:      symbol,
		Direction:   dir,
		OrderType:   ot,
		Quantity:    qty,
		Entry:       market.RoundPrice(entry),
		Stop:        market.RoundPrice(stop),
		TakeProfits: market.RoundPrices(takeProfits),
		Status:      recordStatus(err, res != nil && len(res.OrderIDs) > 0),
	}
	if res != nil {
		rec.LegIDs = append(rec.LegIDs, res.OrderIDs...)
	}
	if err != nil {
		rec.Detail = err.Error()
	}
	b.ledger.Append(rec)
}

func (b *Builder) appendScaledRecord(req ScaledRequest, allocated []risk.TargetAllocation, res *ScaledResult, err error) {
	rec := OrderRecord{
		ID:          b.ids.New(),
		Timestamp:   time.Now(),
		Symbol:      req.Symbol,
		Direction:   req.Direction,
		OrderType:   req.OrderType,
		Quantity:    req.Quantity,
		Entry:       market.RoundPrice(req.Entry),
		Stop:        market.RoundPrice(req.Stop),
		TakeProfits: market.RoundPrices(targetPrices(allocated)),
		Status:      recordStatus(err, res != nil && len(res.OrderIDs) > 0),
	}
	if res != nil {
		rec.LegIDs = append(rec.LegIDs, res.OrderIDs...)
	}
	if err != nil {
		rec.Detail = err.Error()
	}
	b.ledger.Append(rec)
}

func recordStatus(err error, placed bool) string {
	var rejected *RejectedError
	switch {
	case err == nil:
		return RecordSubmitted
	case errors.As(err, &rejected):
		return RecordRejected
	case placed:
		// Some legs went out before the failure; the attempt is rejected,
		// not merely failed, because broker-side state exists.
		return RecordRejected
	default:
		return RecordFailed
	}
}

func targetPrices(targets []risk.TargetAllocation) []float64 {
	out := make([]float64, 0, len(targets))
	for _, t := range targets {
		out = append(out, t.Price)
	}
	return out
}

// identifyLegs sorts the gateway's template into roles by field inspection,
// never by index: the parent has no parent link, the take-profit shares the
// parent's price type but carries a parent link, and the stop is the
// remaining leg. The resolved role is then stored on each leg.
func identifyLegs(template []broker.Leg) (parent, target, stop *broker.Leg, err error) {
	if len(template) != 3 {
		return nil, nil, nil, fmt.Errorf("bracket template has %d legs, want 3", len(template))
	}

	legs := make([]*broker.Leg, 3)
	for i := range template {
		legs[i] = &template[i]
	}

	for _, leg := range legs {
		if leg.ParentID == 0 {
			if parent != nil {
				return nil, nil, nil, errors.New("bracket template has two parent legs")
			}
			parent = leg
		}
	}
	if parent == nil {
		return nil, nil, nil, errors.New("bracket template has no parent leg")
	}

	for _, leg := range legs {
		if leg == parent {
			continue
		}
		if leg.OrderType == parent.OrderType {
			target = leg
		} else {
			stop = leg
		}
	}
	if target == nil || stop == nil {
		return nil, nil, nil, errors.New("bracket template missing take-profit or stop leg")
	}

	parent.Role = broker.RoleParent
	target.Role = broker.RoleTarget
	stop.Role = broker.RoleStop
	return parent, target, stop, nil
}

// waitSettle pauses for the settle duration, or returns early with the
// context's error. Callers treat an interrupted wait as "status unknown".
func waitSettle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
