package engine

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexms1504/trade-assistant/account"
	"github.com/alexms1504/trade-assistant/broker"
	"github.com/alexms1504/trade-assistant/broker/sim"
	"github.com/alexms1504/trade-assistant/config"
	"github.com/alexms1504/trade-assistant/market"
	"github.com/alexms1504/trade-assistant/orders"
	"github.com/alexms1504/trade-assistant/risk"
)

func testEngine() (*Engine, *sim.Gateway) {
	g := sim.NewGateway()
	acct := &account.Snapshot{
		ID:                "DU000001",
		NetLiquidationVal: 100_000,
		BuyingPowerVal:    200_000,
		DayTrader:         true,
	}

	cfg := config.Default()
	cfg.Orders.SettleDelay = "1ms"
	cfg.Orders.ScaledSettleDelay = "1ms"
	cfg.Orders.InterBracketDelay = "0s"

	return New(acct, g, cfg, zerolog.Nop()), g
}

func TestCalculatePositionSize(t *testing.T) {
	t.Parallel()

	e, _ := testEngine()

	res, err := e.CalculatePositionSize(risk.SizeInput{
		Entry:       100,
		Stop:        95,
		RiskPercent: 1.0,
		OrderType:   market.Limit,
	})
	require.NoError(t, err)
	assert.Equal(t, 200, res.Shares)
	assert.InDelta(t, 1000, res.DollarRisk, 1e-9)
}

func TestCalculatePositionSizeDefaultRisk(t *testing.T) {
	t.Parallel()

	e, _ := testEngine()

	// Zero risk percent uses the configured default (0.3%).
	res, err := e.CalculatePositionSize(risk.SizeInput{
		Entry:     100,
		Stop:      95,
		OrderType: market.Limit,
	})
	require.NoError(t, err)
	assert.Equal(t, 60, res.Shares)
	assert.InDelta(t, 0.3, res.RiskPercent, 1e-9)
}

func TestValidateTrade(t *testing.T) {
	t.Parallel()

	e, _ := testEngine()

	d := e.ValidateTrade(risk.TradeCheck{
		Symbol:     "AAPL",
		Entry:      100,
		Stop:       95,
		TakeProfit: 110,
		Shares:     200,
		Direction:  market.Buy,
		OrderType:  market.Limit,
	})
	assert.True(t, d.OK())
	assert.Empty(t, d.Warnings)
}

func TestCalculateRMultiple(t *testing.T) {
	t.Parallel()

	e, _ := testEngine()
	assert.InDelta(t, 2.0, e.CalculateRMultiple(100, 95, 110, market.Limit, 0), 1e-9)
}

func TestSuggestTargets(t *testing.T) {
	t.Parallel()

	e, _ := testEngine()
	targets := e.SuggestTargets(100, 95, nil, market.Limit, 0)
	assert.Equal(t, []float64{105, 110, 115, 125}, targets)
}

func TestSubmitBracketOrder(t *testing.T) {
	t.Parallel()

	e, _ := testEngine()

	res, err := e.SubmitBracketOrder(context.Background(), orders.BracketRequest{
		Symbol:     "AAPL",
		Quantity:   200,
		Entry:      100,
		Stop:       95,
		TakeProfit: 110,
		Direction:  market.Buy,
		OrderType:  market.Limit,
		Account:    "DU000001",
	})
	require.NoError(t, err)
	assert.Len(t, res.OrderIDs, 3)

	active := e.ActiveOrders(context.Background())
	assert.Len(t, active, 3)
	require.Len(t, e.OrderHistory(), 1)
}

func TestSubmitMultipleTargetOrderDefaultPlan(t *testing.T) {
	t.Parallel()

	e, _ := testEngine()

	// No explicit targets: the configured 25/25/25/25 plan at 2R/4R/6R/20R
	// applies, so four brackets go out.
	res, err := e.SubmitMultipleTargetOrder(context.Background(), orders.ScaledRequest{
		Symbol:    "AAPL",
		Quantity:  400,
		Entry:     100,
		Stop:      95,
		Direction: market.Buy,
		OrderType: market.Limit,
		Account:   "DU000001",
	})
	require.NoError(t, err)
	require.Len(t, res.Brackets, 4)

	total := 0
	for _, br := range res.Brackets {
		total += br.Legs[0].Quantity
	}
	assert.Equal(t, 400, total)

	// 20R target at entry + 20*5 risk.
	assert.InDelta(t, 200.0, res.Brackets[3].Legs[1].LimitPrice, 1e-9)
}

func TestCancelOrder(t *testing.T) {
	t.Parallel()

	e, g := testEngine()

	res, err := e.SubmitBracketOrder(context.Background(), orders.BracketRequest{
		Symbol: "AAPL", Quantity: 100, Entry: 100, Stop: 95, TakeProfit: 110,
		Direction: market.Buy, OrderType: market.Limit,
	})
	require.NoError(t, err)

	parentID := res.OrderIDs[0]
	require.NoError(t, e.CancelOrder(context.Background(), parentID))

	st, err := g.OrderStatus(context.Background(), parentID)
	require.NoError(t, err)
	assert.Equal(t, broker.StatusCancelled, st)

	assert.ErrorIs(t, e.CancelOrder(context.Background(), 999_999), orders.ErrOrderNotFound)
}

func TestActiveOrdersRefreshesStatuses(t *testing.T) {
	t.Parallel()

	e, g := testEngine()

	res, err := e.SubmitBracketOrder(context.Background(), orders.BracketRequest{
		Symbol: "AAPL", Quantity: 100, Entry: 100, Stop: 95, TakeProfit: 110,
		Direction: market.Buy, OrderType: market.Limit,
	})
	require.NoError(t, err)

	// A fill arriving from the gateway drops the leg from the active set on
	// the next listing.
	g.SetStatus(res.OrderIDs[0], broker.StatusFilled)
	active := e.ActiveOrders(context.Background())
	assert.Len(t, active, 2)

	assert.Equal(t, 1, e.PurgeCompleted())
}

func TestCheckAPIConfiguration(t *testing.T) {
	t.Parallel()

	e, g := testEngine()
	g.SetPositionCount(2)

	chk := e.CheckAPIConfiguration(context.Background())
	assert.True(t, chk.OK())
	assert.Equal(t, []string{"DU000001"}, chk.Accounts)
	assert.Equal(t, 2, chk.Positions)
	assert.Empty(t, chk.Issues)
}

func TestCheckAPIConfigurationDisconnected(t *testing.T) {
	t.Parallel()

	e, g := testEngine()
	g.Disconnect()

	chk := e.CheckAPIConfiguration(context.Background())
	assert.False(t, chk.OK())
	require.Len(t, chk.Issues, 1)
	require.Len(t, chk.Remediation, 1)
	assert.Contains(t, chk.Remediation[0], "socket port")
}

func TestCheckAPIConfigurationNoAccounts(t *testing.T) {
	t.Parallel()

	e, g := testEngine()
	g.SetAccounts()

	chk := e.CheckAPIConfiguration(context.Background())
	assert.False(t, chk.OK())
	assert.True(t, chk.Connected)
	require.NotEmpty(t, chk.Issues)
	assert.Contains(t, chk.Issues[0], "no managed accounts")
}

func TestNilConfigUsesDefaults(t *testing.T) {
	t.Parallel()

	g := sim.NewGateway()
	e := New(nil, g, nil, zerolog.Nop())

	d := e.ValidateTrade(risk.TradeCheck{
		Entry: 100, Stop: 95, TakeProfit: 110, Shares: 10,
		Direction: market.Buy, OrderType: market.Limit,
	})
	assert.True(t, d.OK())
	assert.Len(t, d.Warnings, 3) // account-backed rules skipped
}
