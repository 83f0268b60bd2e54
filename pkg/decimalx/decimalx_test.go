package decimalx

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrZero(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want decimal.Decimal
	}{
		{name: "number", in: "26.5", want: decimal.RequireFromString("26.5")},
		{name: "negative", in: "-3", want: decimal.NewFromInt(-3)},
		{name: "spaces", in: " 15000 ", want: decimal.NewFromInt(15000)},
		{name: "empty", in: "", want: decimal.Zero},
		{name: "garbage", in: "n/a", want: decimal.Zero},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.want.Equal(OrZero(tc.in)), "got %s", OrZero(tc.in))
		})
	}
}

func TestSigned(t *testing.T) {
	assert.Equal(t, "+26.0", Signed(MustFromString("26"), 1))
	assert.Equal(t, "-3.50", Signed(MustFromString("-3.5"), 2))
	assert.Equal(t, "+0.0", Signed(decimal.Zero, 1))
}
