package broker

import (
	"testing"

	"github.com/rustyeddy/newstrader/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dir     market.Direction
		target  float64
		current float64
		want    OrderKind
	}{
		{"buy below market", market.Buy, 1.0990, 1.1000, BuyLimit},
		{"buy above market", market.Buy, 1.1010, 1.1000, BuyStop},
		{"buy at market", market.Buy, 1.1000, 1.1000, BuyStop},
		{"sell above market", market.Sell, 1.1010, 1.1000, SellLimit},
		{"sell below market", market.Sell, 1.0990, 1.1000, SellStop},
		{"sell at market", market.Sell, 1.1000, 1.1000, SellStop},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := PendingKind(tt.dir, tt.target, tt.current)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Pending())
		})
	}

	_, err := PendingKind(market.None, 1, 1)
	assert.Error(t, err)
	assert.False(t, Market.Pending())
}

func TestResultCodeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "done", CodeDone.String())
	assert.Contains(t, CodeInsufficientMargin.String(), "margin")
	assert.Contains(t, ResultCode(1).String(), "1")
}
