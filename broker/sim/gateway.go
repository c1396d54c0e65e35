// Package sim provides an in-process brokerage gateway for demo trading and
// tests. It fabricates bracket templates, assigns order ids, and scripts
// per-order statuses, standing in for a live gateway session.
package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/alexms1504/trade-assistant/broker"
	"github.com/alexms1504/trade-assistant/market"
)

type placedOrder struct {
	leg    broker.Leg
	status broker.Status
}

type Gateway struct {
	mu        sync.Mutex
	connected bool
	symbols   map[string]broker.Contract
	accounts  []string
	positions int
	nextID    int64
	orders    map[int64]*placedOrder

	// RejectAll scripts every placed order to end Cancelled, simulating a
	// terminal that refuses auto-transmitted brackets.
	RejectAll bool

	// HoldForConfirm parks every placed order in PreSubmitted, simulating a
	// broker that wants a human sign-off.
	HoldForConfirm bool

	// WrongChildActions makes bracket templates copy the parent action onto
	// the child legs, exercising the builder's action correction.
	WrongChildActions bool
}

func NewGateway() *Gateway {
	g := &Gateway{
		connected: true,
		symbols:   make(map[string]broker.Contract),
		accounts:  []string{"DU000001"},
		orders:    make(map[int64]*placedOrder),
	}
	for _, sym := range []string{"AAPL", "MSFT", "TSLA", "SPY"} {
		g.AddSymbol(sym)
	}
	return g
}

func (g *Gateway) AddSymbol(symbol string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	g.symbols[symbol] = broker.Contract{
		ID:       g.nextID,
		Symbol:   symbol,
		Exchange: "SMART",
		Currency: "USD",
	}
}

func (g *Gateway) SetAccounts(accounts ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.accounts = accounts
}

func (g *Gateway) SetPositionCount(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.positions = n
}

func (g *Gateway) Disconnect() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = false
}

func (g *Gateway) Connect() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = true
}

func (g *Gateway) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

func (g *Gateway) QualifyContract(ctx context.Context, symbol string) (broker.Contract, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return broker.Contract{}, broker.ErrNotConnected
	}
	c, ok := g.symbols[symbol]
	if !ok {
		return broker.Contract{}, &broker.QualificationError{Symbol: symbol}
	}
	return c, nil
}

// BuildBracketTemplate returns parent, take-profit and stop-loss legs with
// ids pre-assigned and children linked to the parent. The slice is returned
// child-first on purpose: callers must identify legs by their fields, not by
// position.
func (g *Gateway) BuildBracketTemplate(ctx context.Context, req broker.TemplateRequest) ([]broker.Leg, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return nil, broker.ErrNotConnected
	}

	childAction := req.Action.Opposite()
	if g.WrongChildActions {
		childAction = req.Action
	}

	parentID := g.claimID()
	parent := broker.Leg{
		ID:         parentID,
		Role:       broker.RoleParent,
		Action:     req.Action,
		OrderType:  market.Limit,
		Quantity:   req.Quantity,
		LimitPrice: req.LimitPrice,
		Transmit:   false,
	}
	target := broker.Leg{
		ID:         g.claimID(),
		Role:       broker.RoleTarget,
		Action:     childAction,
		OrderType:  market.Limit,
		Quantity:   req.Quantity,
		LimitPrice: req.TakeProfitPrice,
		ParentID:   parentID,
		Transmit:   false,
	}
	stop := broker.Leg{
		ID:        g.claimID(),
		Role:      broker.RoleStop,
		Action:    childAction,
		OrderType: market.Stop,
		Quantity:  req.Quantity,
		StopPrice: req.StopLossPrice,
		ParentID:  parentID,
		Transmit:  true,
	}

	return []broker.Leg{target, stop, parent}, nil
}

func (g *Gateway) claimID() int64 {
	g.nextID++
	return g.nextID
}

func (g *Gateway) PlaceOrder(ctx context.Context, contract broker.Contract, leg broker.Leg) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return 0, broker.ErrNotConnected
	}
	if leg.ID == 0 {
		leg.ID = g.claimID()
	}

	status := broker.StatusSubmitted
	switch {
	case g.RejectAll:
		status = broker.StatusCancelled
	case g.HoldForConfirm:
		status = broker.StatusPreSubmitted
	}

	g.orders[leg.ID] = &placedOrder{leg: leg, status: status}
	return leg.ID, nil
}

func (g *Gateway) CancelOrder(ctx context.Context, orderID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return broker.ErrNotConnected
	}
	o, ok := g.orders[orderID]
	if !ok {
		return fmt.Errorf("unknown order id %d", orderID)
	}
	o.status = broker.StatusCancelled
	return nil
}

func (g *Gateway) OrderStatus(ctx context.Context, orderID int64) (broker.Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	o, ok := g.orders[orderID]
	if !ok {
		return broker.StatusUnknown, fmt.Errorf("unknown order id %d", orderID)
	}
	return o.status, nil
}

func (g *Gateway) ManagedAccounts(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return nil, broker.ErrNotConnected
	}
	return append([]string(nil), g.accounts...), nil
}

func (g *Gateway) PositionCount(ctx context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return 0, broker.ErrNotConnected
	}
	return g.positions, nil
}

// SetStatus scripts the status of a placed order, simulating fills and
// cancels arriving from the gateway's event stream.
func (g *Gateway) SetStatus(orderID int64, status broker.Status) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if o, ok := g.orders[orderID]; ok {
		o.status = status
	}
}

// PlacedLeg returns the leg as it was submitted, for assertions.
func (g *Gateway) PlacedLeg(orderID int64) (broker.Leg, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[orderID]
	if !ok {
		return broker.Leg{}, false
	}
	return o.leg, true
}

var _ broker.Gateway = (*Gateway)(nil)
