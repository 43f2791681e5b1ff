package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/svandell/allokera/internal/commission"
	"github.com/svandell/allokera/internal/core"
)

func TestNewTransaction(t *testing.T) {
	scheme := commission.NewTiered("avanza_medium", 69, 0.00069)

	tr, err := NewTransaction("XACTOMXS30.ST", core.Buy, 100, 223.50, scheme, "2021-05-03")
	require.NoError(t, err)

	assert.Equal(t, core.Buy, tr.Direction)
	assert.Equal(t, 100.0, tr.Quantity)
	assert.Equal(t, 69.0, tr.Commission, "small trade should hit minimum fee")
	assert.Equal(t, 69.0+100*223.50, tr.TotalCash)
}

func TestNewTransaction_AbsQuantity(t *testing.T) {
	tr, err := NewTransaction("A", core.Sell, -50, 10, commission.Free{}, "2021-05-03")
	require.NoError(t, err)
	assert.Equal(t, 50.0, tr.Quantity, "sign is carried by direction, not quantity")
}

func TestNewTransaction_Validation(t *testing.T) {
	tests := []struct {
		name      string
		direction core.Direction
		quantity  float64
		date      string
		wantErr   *core.Error
	}{
		{"bad direction", core.Direction("SHORT"), 10, "2021-05-03", core.ErrBadDirection},
		{"zero quantity", core.Buy, 0, "2021-05-03", core.ErrBadQuantity},
		{"bad date", core.Buy, 10, "03.05.2021", core.ErrBadDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTransaction("A", tt.direction, tt.quantity, 10, commission.Free{}, tt.date)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
