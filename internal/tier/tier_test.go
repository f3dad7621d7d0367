package tier

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestForDeposits(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name       string
		cumulative int64
		want       Tier
	}{
		{"zero", 0, Standard},
		{"below gold", 9_999_999, Standard},
		{"gold threshold", 10_000_000, Gold},
		{"between gold and vip", 50_000_000, Gold},
		{"vip threshold", 100_000_000, VIP},
		{"above vip", 500_000_000, VIP},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ForDeposits(decimal.NewFromInt(tc.cumulative)))
		})
	}
}

func TestCommission(t *testing.T) {
	t.Parallel()
	assert.True(t, decimal.NewFromInt(25_000).Equal(Standard.Commission()))
	assert.True(t, decimal.NewFromInt(100_000).Equal(Gold.Commission()))
	assert.True(t, decimal.NewFromInt(500_000).Equal(VIP.Commission()))
}
