package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexms1504/trade-assistant/broker"
	"github.com/alexms1504/trade-assistant/market"
)

func TestQualifyContract(t *testing.T) {
	t.Parallel()

	g := NewGateway()
	ctx := context.Background()

	c, err := g.QualifyContract(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", c.Symbol)
	assert.Equal(t, "SMART", c.Exchange)

	_, err = g.QualifyContract(ctx, "NOPE")
	var qe *broker.QualificationError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "NOPE", qe.Symbol)

	g.Disconnect()
	_, err = g.QualifyContract(ctx, "AAPL")
	assert.ErrorIs(t, err, broker.ErrNotConnected)
}

func TestBuildBracketTemplate(t *testing.T) {
	t.Parallel()

	g := NewGateway()
	legs, err := g.BuildBracketTemplate(context.Background(), broker.TemplateRequest{
		Action:          market.Buy,
		Quantity:        100,
		LimitPrice:      100.00,
		TakeProfitPrice: 110.00,
		StopLossPrice:   95.00,
	})
	require.NoError(t, err)
	require.Len(t, legs, 3)

	var parent, target, stop *broker.Leg
	for i := range legs {
		switch {
		case legs[i].ParentID == 0:
			parent = &legs[i]
		case legs[i].OrderType == market.Stop:
			stop = &legs[i]
		default:
			target = &legs[i]
		}
	}
	require.NotNil(t, parent)
	require.NotNil(t, target)
	require.NotNil(t, stop)

	assert.Equal(t, market.Buy, parent.Action)
	assert.Equal(t, market.Sell, target.Action)
	assert.Equal(t, market.Sell, stop.Action)
	assert.Equal(t, parent.ID, target.ParentID)
	assert.Equal(t, parent.ID, stop.ParentID)
	assert.InDelta(t, 110.00, target.LimitPrice, 1e-9)
	assert.InDelta(t, 95.00, stop.StopPrice, 1e-9)
}

func TestPlaceAndCancelOrder(t *testing.T) {
	t.Parallel()

	g := NewGateway()
	ctx := context.Background()
	contract, err := g.QualifyContract(ctx, "MSFT")
	require.NoError(t, err)

	id, err := g.PlaceOrder(ctx, contract, broker.Leg{
		Action:    market.Buy,
		OrderType: market.Limit,
		Quantity:  10,
	})
	require.NoError(t, err)

	st, err := g.OrderStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, broker.StatusSubmitted, st)

	require.NoError(t, g.CancelOrder(ctx, id))
	st, err = g.OrderStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, broker.StatusCancelled, st)

	assert.Error(t, g.CancelOrder(ctx, 99999))
}

func TestScriptedBehaviors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	g := NewGateway()
	g.RejectAll = true
	id, err := g.PlaceOrder(ctx, broker.Contract{}, broker.Leg{Quantity: 1})
	require.NoError(t, err)
	st, _ := g.OrderStatus(ctx, id)
	assert.Equal(t, broker.StatusCancelled, st)

	g = NewGateway()
	g.HoldForConfirm = true
	id, err = g.PlaceOrder(ctx, broker.Contract{}, broker.Leg{Quantity: 1})
	require.NoError(t, err)
	st, _ = g.OrderStatus(ctx, id)
	assert.Equal(t, broker.StatusPreSubmitted, st)
	assert.True(t, st.NeedsConfirmation())
}
