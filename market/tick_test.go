package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundPrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		price float64
		want  float64
	}{
		{"penny regime", 100.456, 100.46},
		{"penny half up", 100.005, 100.01},
		{"already rounded", 25.10, 25.10},
		{"exactly one dollar", 1.0, 1.0},
		{"just above one dollar", 1.005, 1.01},
		{"sub penny regime", 0.45678, 0.4568},
		{"sub penny half up", 0.12345, 0.1235},
		{"regime boundary below", 0.999999, 1.0},
		{"zero", 0.0, 0.0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, RoundPrice(tt.price), 1e-9)
		})
	}
}

func TestRoundPriceIdempotent(t *testing.T) {
	t.Parallel()

	for _, p := range []float64{0.0001, 0.4567, 0.999999, 1.0, 1.005, 99.994, 100.456, 1234.5678} {
		once := RoundPrice(p)
		assert.Equal(t, once, RoundPrice(once), "price %v", p)
	}
}

func TestRoundPrices(t *testing.T) {
	t.Parallel()

	got := RoundPrices([]float64{100.456, 0.45678})
	assert.InDelta(t, 100.46, got[0], 1e-9)
	assert.InDelta(t, 0.4568, got[1], 1e-9)
}

func TestBasisPrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		orderType OrderType
		entry     float64
		limit     float64
		want      float64
	}{
		{"limit order uses entry", Limit, 100, 101, 100},
		{"market order uses entry", Market, 100, 0, 100},
		{"stop limit uses limit", StopLimit, 100, 100.5, 100.5},
		{"stop limit without limit falls back", StopLimit, 100, 0, 100},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, BasisPrice(tt.orderType, tt.entry, tt.limit), 1e-9)
		})
	}
}

func TestDirectionOpposite(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Sell, Buy.Opposite())
	assert.Equal(t, Buy, Sell.Opposite())
	assert.True(t, Buy.Valid())
	assert.False(t, Direction("HOLD").Valid())
	assert.True(t, StopLimit.Valid())
	assert.False(t, OrderType("OCO").Valid())
}
