package engine

import (
	"testing"

	"github.com/Bakary221/Om-Pay/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCheckLimits(t *testing.T) {
	p := NewPolicy(DefaultPolicyConfig())

	cases := []struct {
		name   string
		kind   models.TransactionKind
		amount int64
		bound  LimitBound
	}{
		{"deposit at minimum", models.KindDeposit, 100, ""},
		{"deposit below minimum", models.KindDeposit, 99, BoundMin},
		{"deposit at maximum", models.KindDeposit, 1000000, ""},
		{"deposit above maximum", models.KindDeposit, 1000001, BoundMax},
		{"payment at maximum", models.KindPayment, 500000, ""},
		{"payment above maximum", models.KindPayment, 500001, BoundMax},
		{"transfer at maximum", models.KindTransfer, 100000, ""},
		{"transfer above maximum", models.KindTransfer, 100001, BoundMax},
		{"transfer below minimum", models.KindTransfer, 50, BoundMin},
		{"zero amount", models.KindTransfer, 0, BoundMin},
		{"negative amount", models.KindPayment, -500, BoundMin},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := p.CheckLimits(tc.kind, decimal.NewFromInt(tc.amount))
			if tc.bound == "" {
				require.NoError(t, err)
				return
			}
			var limitErr *LimitError
			require.ErrorAs(t, err, &limitErr)
			require.Equal(t, tc.bound, limitErr.Bound)
			require.Equal(t, tc.kind, limitErr.Kind)
		})
	}
}

func TestTransferFeeTiers(t *testing.T) {
	p := NewPolicy(DefaultPolicyConfig())

	cases := []struct {
		amount int64
		fee    int64
	}{
		{100, 0},
		{5000, 0},
		{5001, 100},
		{10000, 100},
		{50000, 100},
		{50001, 200},
		{100000, 200},
		// above every bracket: free, matching the original fallthrough
		{150000, 0},
	}

	for _, tc := range cases {
		fee := p.Fee(models.KindTransfer, decimal.NewFromInt(tc.amount))
		require.True(t, fee.Equal(decimal.NewFromInt(tc.fee)),
			"amount %d: expected fee %d, got %s", tc.amount, tc.fee, fee)
	}
}

func TestDepositAndPaymentAreFree(t *testing.T) {
	p := NewPolicy(DefaultPolicyConfig())

	require.True(t, p.Fee(models.KindDeposit, decimal.NewFromInt(100000)).IsZero())
	require.True(t, p.Fee(models.KindPayment, decimal.NewFromInt(100000)).IsZero())
}
