package orders

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexms1504/trade-assistant/broker"
	"github.com/alexms1504/trade-assistant/broker/sim"
	"github.com/alexms1504/trade-assistant/market"
	"github.com/alexms1504/trade-assistant/risk"
)

func testConfig() Config {
	return Config{
		SettleDelay:       time.Millisecond,
		ScaledSettleDelay: time.Millisecond,
		InterBracketDelay: 0,
	}
}

func newTestBuilder(g *sim.Gateway) (*Builder, *Ledger) {
	l := NewLedger(g, zerolog.Nop())
	return NewBuilder(g, l, testConfig(), zerolog.Nop()), l
}

func longRequest() BracketRequest {
	return BracketRequest{
		Symbol:     "AAPL",
		Quantity:   200,
		Entry:      100.004, // rounds to 100.00
		Stop:       95.0049, // rounds to 95.00
		TakeProfit: 110.999, // rounds to 111.00
		Direction:  market.Buy,
		OrderType:  market.Limit,
		Account:    "DU000001",
	}
}

func TestSubmitBracket(t *testing.T) {
	t.Parallel()

	g := sim.NewGateway()
	b, l := newTestBuilder(g)

	res, err := b.Submit(context.Background(), longRequest())
	require.NoError(t, err)
	require.Len(t, res.Legs, 3)
	require.Len(t, res.OrderIDs, 3)

	parent, target, stop := res.Legs[0], res.Legs[1], res.Legs[2]

	assert.Equal(t, broker.RoleParent, parent.Role)
	assert.Equal(t, broker.RoleTarget, target.Role)
	assert.Equal(t, broker.RoleStop, stop.Role)

	// Tick rounding applied before anything reached the gateway.
	assert.InDelta(t, 100.00, parent.LimitPrice, 1e-9)
	assert.InDelta(t, 111.00, target.LimitPrice, 1e-9)
	assert.InDelta(t, 95.00, stop.StopPrice, 1e-9)

	// OCA scoping: children share one group, the parent has none.
	assert.Empty(t, parent.OCAGroup)
	assert.NotEmpty(t, res.OCAGroup)
	assert.Equal(t, res.OCAGroup, target.OCAGroup)
	assert.Equal(t, res.OCAGroup, stop.OCAGroup)

	// Transmit sequencing: only the stop, submitted last, transmits.
	assert.False(t, parent.Transmit)
	assert.False(t, target.Transmit)
	assert.True(t, stop.Transmit)
	assert.Equal(t, stop.ID, res.OrderIDs[2])

	// Children close what the parent opens.
	assert.Equal(t, market.Buy, parent.Action)
	assert.Equal(t, market.Sell, target.Action)
	assert.Equal(t, market.Sell, stop.Action)

	for _, leg := range res.Legs {
		assert.Equal(t, "DU000001", leg.Account)
		assert.Equal(t, 200, leg.Quantity)
	}

	// Ledger tracked all legs and one record was appended.
	assert.Len(t, l.Active(), 3)
	history := l.History()
	require.Len(t, history, 1)
	assert.Equal(t, RecordSubmitted, history[0].Status)
	assert.Equal(t, res.OrderIDs, history[0].LegIDs)
}

func TestSubmitMarketOrderClearsLimit(t *testing.T) {
	t.Parallel()

	g := sim.NewGateway()
	b, _ := newTestBuilder(g)

	req := longRequest()
	req.OrderType = market.Market

	res, err := b.Submit(context.Background(), req)
	require.NoError(t, err)

	parent := res.Legs[0]
	assert.Equal(t, market.Market, parent.OrderType)
	assert.Zero(t, parent.LimitPrice)
}

func TestSubmitStopLimitParent(t *testing.T) {
	t.Parallel()

	g := sim.NewGateway()
	b, _ := newTestBuilder(g)

	req := longRequest()
	req.OrderType = market.StopLimit
	req.LimitPrice = 100.50

	res, err := b.Submit(context.Background(), req)
	require.NoError(t, err)

	parent := res.Legs[0]
	assert.Equal(t, market.StopLimit, parent.OrderType)
	assert.InDelta(t, 100.00, parent.StopPrice, 1e-9)  // trigger at entry
	assert.InDelta(t, 100.50, parent.LimitPrice, 1e-9) // fill cap at limit
}

func TestSubmitCorrectsChildActions(t *testing.T) {
	t.Parallel()

	g := sim.NewGateway()
	g.WrongChildActions = true
	b, _ := newTestBuilder(g)

	res, err := b.Submit(context.Background(), longRequest())
	require.NoError(t, err)

	assert.Equal(t, market.Sell, res.Legs[1].Action)
	assert.Equal(t, market.Sell, res.Legs[2].Action)
}

func TestSubmitUnknownSymbol(t *testing.T) {
	t.Parallel()

	g := sim.NewGateway()
	b, l := newTestBuilder(g)

	req := longRequest()
	req.Symbol = "NOPE"

	_, err := b.Submit(context.Background(), req)
	var qe *broker.QualificationError
	require.ErrorAs(t, err, &qe)

	history := l.History()
	require.Len(t, history, 1)
	assert.Equal(t, RecordFailed, history[0].Status)
	assert.Empty(t, history[0].LegIDs)
}

func TestSubmitDisconnected(t *testing.T) {
	t.Parallel()

	g := sim.NewGateway()
	g.Disconnect()
	b, l := newTestBuilder(g)

	_, err := b.Submit(context.Background(), longRequest())
	assert.ErrorIs(t, err, broker.ErrNotConnected)
	require.Len(t, l.History(), 1)
	assert.Equal(t, RecordFailed, l.History()[0].Status)
}

func TestSubmitAllLegsCancelledIsRejected(t *testing.T) {
	t.Parallel()

	g := sim.NewGateway()
	g.RejectAll = true
	b, l := newTestBuilder(g)

	res, err := b.Submit(context.Background(), longRequest())
	var re *RejectedError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "AAPL", re.Symbol)
	require.NotNil(t, res)
	assert.Len(t, res.OrderIDs, 3)

	require.Len(t, l.History(), 1)
	assert.Equal(t, RecordRejected, l.History()[0].Status)
}

func TestSubmitPreSubmittedNeedsConfirmation(t *testing.T) {
	t.Parallel()

	g := sim.NewGateway()
	g.HoldForConfirm = true
	b, _ := newTestBuilder(g)

	// Needs-confirmation is a warning, not a failure: the order may be live.
	res, err := b.Submit(context.Background(), longRequest())
	require.NoError(t, err)
	assert.True(t, res.NeedsConfirmation)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "manual confirmation")
}

func TestSubmitSettleWaitCancelled(t *testing.T) {
	t.Parallel()

	g := sim.NewGateway()
	l := NewLedger(g, zerolog.Nop())
	b := NewBuilder(g, l, Config{SettleDelay: time.Hour}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// An interrupted settle wait is "status unknown", never a failure.
	res, err := b.Submit(ctx, longRequest())
	require.NoError(t, err)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "status")
	assert.Empty(t, res.Statuses)
}

func TestSubmitValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*BracketRequest)
	}{
		{"no symbol", func(r *BracketRequest) { r.Symbol = "" }},
		{"zero quantity", func(r *BracketRequest) { r.Quantity = 0 }},
		{"negative stop", func(r *BracketRequest) { r.Stop = -1 }},
		{"bad direction", func(r *BracketRequest) { r.Direction = "HOLD" }},
		{"bad order type", func(r *BracketRequest) { r.OrderType = "OCO" }},
		{"stop limit without limit", func(r *BracketRequest) { r.OrderType = market.StopLimit }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := sim.NewGateway()
			b, _ := newTestBuilder(g)
			req := longRequest()
			tt.mutate(&req)
			_, err := b.Submit(context.Background(), req)
			assert.Error(t, err)
		})
	}
}

func scaledRequest() ScaledRequest {
	return ScaledRequest{
		Symbol:   "AAPL",
		Quantity: 301,
		Entry:    100.00,
		Stop:     95.00,
		Targets: []risk.TargetAllocation{
			{Price: 105.00, Percent: 40, RMultiple: 1.0},
			{Price: 110.00, Percent: 40, RMultiple: 2.0},
			{Price: 115.00, Percent: 20, RMultiple: 3.0},
		},
		Direction: market.Buy,
		OrderType: market.Limit,
		Account:   "DU000001",
	}
}

func TestSubmitScaled(t *testing.T) {
	t.Parallel()

	g := sim.NewGateway()
	b, l := newTestBuilder(g)

	res, err := b.SubmitScaled(context.Background(), scaledRequest())
	require.NoError(t, err)
	require.Len(t, res.Brackets, 3)
	assert.Len(t, res.OrderIDs, 9)

	// Quantities: floors on the 2R and 3R targets, remainder on the 1R.
	assert.Equal(t, 121, res.Brackets[0].Legs[0].Quantity) // 301-120-60
	assert.Equal(t, 120, res.Brackets[1].Legs[0].Quantity)
	assert.Equal(t, 60, res.Brackets[2].Legs[0].Quantity)

	total := 0
	for _, br := range res.Brackets {
		total += br.Legs[0].Quantity
	}
	assert.Equal(t, 301, total)

	// Each bracket carries its own OCA group: filling one target must not
	// cancel the other brackets.
	groups := make(map[string]bool)
	for _, br := range res.Brackets {
		require.NotEmpty(t, br.OCAGroup)
		assert.False(t, groups[br.OCAGroup], "OCA group reused across brackets")
		groups[br.OCAGroup] = true
	}

	// One record for the whole scaled submission.
	history := l.History()
	require.Len(t, history, 1)
	assert.Equal(t, RecordSubmitted, history[0].Status)
	assert.Len(t, history[0].LegIDs, 9)
	assert.Len(t, history[0].TakeProfits, 3)
}

func TestSubmitScaledRejectsBadAllocationBeforeGateway(t *testing.T) {
	t.Parallel()

	g := sim.NewGateway()
	g.Disconnect() // any gateway call would fail loudly
	b, l := newTestBuilder(g)

	req := scaledRequest()
	req.Targets[2].Percent = 19 // sums to 99

	_, err := b.SubmitScaled(context.Background(), req)
	var ae *risk.AllocationError
	require.ErrorAs(t, err, &ae)

	require.Len(t, l.History(), 1)
	assert.Equal(t, RecordFailed, l.History()[0].Status)
}

func TestSubmitScaledRejectsOutOfRangePercents(t *testing.T) {
	t.Parallel()

	g := sim.NewGateway()
	b, l := newTestBuilder(g)

	// Sums to 100; without the per-target range check the negative target
	// would be skipped and the remaining bracket would oversize the
	// position at the gateway.
	req := scaledRequest()
	req.Targets = []risk.TargetAllocation{
		{Price: 105.00, Percent: -10, RMultiple: 1.0},
		{Price: 110.00, Percent: 110, RMultiple: 2.0},
	}

	res, err := b.SubmitScaled(context.Background(), req)
	var ae *risk.AllocationError
	require.ErrorAs(t, err, &ae)
	assert.True(t, ae.PerTarget)
	assert.Nil(t, res)

	// Nothing reached the gateway; the attempt is still recorded.
	assert.Empty(t, l.Active())
	require.Len(t, l.History(), 1)
	assert.Equal(t, RecordFailed, l.History()[0].Status)
}

func TestSubmitScaledSkipsZeroQuantityTargets(t *testing.T) {
	t.Parallel()

	g := sim.NewGateway()
	b, _ := newTestBuilder(g)

	req := scaledRequest()
	req.Quantity = 4 // 40/40/20 of 4 shares: the 3R target gets 0

	res, err := b.SubmitScaled(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, res.Brackets, 2)
}

func TestSubmitScaledDisconnected(t *testing.T) {
	t.Parallel()

	g := sim.NewGateway()
	b, l := newTestBuilder(g)

	// submitOne leaves record keeping to the public entry points.
	first, err := b.submitOne(context.Background(), BracketRequest{
		Symbol: "AAPL", Quantity: 121, Entry: 100, Stop: 95,
		TakeProfit: 105, Direction: market.Buy, OrderType: market.Limit,
	}, false)
	require.NoError(t, err)
	require.Len(t, first.OrderIDs, 3)
	assert.Empty(t, l.History())

	g.Disconnect()
	res, err := b.SubmitScaled(context.Background(), scaledRequest())
	require.ErrorIs(t, err, broker.ErrNotConnected)
	require.NotNil(t, res)
	assert.Empty(t, res.Brackets)

	// The failed scaled attempt is still recorded.
	require.Len(t, l.History(), 1)
	assert.Equal(t, RecordFailed, l.History()[0].Status)
}
