package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexms1504/trade-assistant/market"
)

var (
	// ErrNotConnected means the gateway session is down. Operations abort;
	// there is no retry at this layer.
	ErrNotConnected = errors.New("not connected to brokerage gateway")
)

// QualificationError means the gateway could not resolve a symbol into a
// tradeable contract.
type QualificationError struct {
	Symbol string
}

func (e *QualificationError) Error() string {
	return fmt.Sprintf("cannot qualify contract for symbol %q", e.Symbol)
}

// Role tags each leg of a bracket explicitly at construction time, instead
// of being re-derived from order-type and parent-link fields after the fact.
type Role string

const (
	RoleParent Role = "PARENT"
	RoleStop   Role = "STOP"
	RoleTarget Role = "TARGET"
)

// Status is the gateway's last known state for an order.
type Status string

const (
	StatusPendingSubmit Status = "PendingSubmit"
	StatusPreSubmitted  Status = "PreSubmitted"
	StatusSubmitted     Status = "Submitted"
	StatusFilled        Status = "Filled"
	StatusCancelled     Status = "Cancelled"
	StatusInactive      Status = "Inactive"

	// StatusUnknown is reported when a bounded settle wait expires before the
	// gateway answered. It must not be treated as a rejection.
	StatusUnknown Status = "Unknown"
)

// Terminal reports whether the order can no longer become active.
func (s Status) Terminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusInactive:
		return true
	}
	return false
}

// NeedsConfirmation reports whether the order is parked waiting for a human
// sign-off at the broker terminal.
func (s Status) NeedsConfirmation() bool {
	return s == StatusPreSubmitted || s == StatusInactive
}

// Dead reports whether the order ended without ever going live.
func (s Status) Dead() bool {
	return s == StatusCancelled || s == StatusInactive
}

// Contract is a qualified, tradeable instrument.
type Contract struct {
	ID       int64
	Symbol   string
	Exchange string
	Currency string
}

// Leg is a single order within a bracket group.
//
// StopPrice is the trigger (aux) price for stop and stop-limit legs.
// ParentID links child legs to their parent; the parent leg has ParentID 0.
// OCAGroup is set on the stop and target legs only. Transmit controls
// whether the broker treats the order as ready for live submission or holds
// it for a subsequent linked order.
type Leg struct {
	ID         int64
	Role       Role
	Action     market.Direction
	OrderType  market.OrderType
	Quantity   int
	LimitPrice float64
	StopPrice  float64
	ParentID   int64
	OCAGroup   string
	Transmit   bool
	Account    string
}

// TemplateRequest asks the gateway for a 3-leg bracket skeleton:
// parent entry, take-profit, stop-loss.
type TemplateRequest struct {
	Action          market.Direction
	Quantity        int
	LimitPrice      float64
	TakeProfitPrice float64
	StopLossPrice   float64
}

// Gateway is the brokerage connection the engine submits through.
//
// Placement and cancellation return immediately with a local order id;
// fills, cancels and confirmations arrive later on the gateway's own event
// stream, so callers must re-poll OrderStatus after a settle delay.
type Gateway interface {
	Connected() bool

	QualifyContract(ctx context.Context, symbol string) (Contract, error)

	// BuildBracketTemplate returns the gateway's three bracket legs. The
	// ordering of the returned slice is not guaranteed; callers identify
	// legs by their fields, never by position.
	BuildBracketTemplate(ctx context.Context, req TemplateRequest) ([]Leg, error)

	PlaceOrder(ctx context.Context, contract Contract, leg Leg) (int64, error)

	// CancelOrder is a request, not a guarantee; the caller must re-poll
	// OrderStatus afterwards.
	CancelOrder(ctx context.Context, orderID int64) error

	OrderStatus(ctx context.Context, orderID int64) (Status, error)

	// ManagedAccounts and PositionCount exist so the engine can probe read
	// permissions without placing anything.
	ManagedAccounts(ctx context.Context) ([]string, error)
	PositionCount(ctx context.Context) (int, error)
}
