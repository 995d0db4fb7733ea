package finance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func Test_Calculate(t *testing.T) {
	testCases := []struct {
		name   string
		input  Inputs
		expect Figures
	}{
		{
			name: "loss-making delivery",
			input: Inputs{
				Weight:             d("10"),
				UnitPrice:          d("1500"),
				HarvestUnitPrice:   d("200"),
				TransportUnitPrice: d("9000"),
			},
			expect: Figures{
				HarvestCost:   d("2000"),
				TransportCost: d("90000"),
				GrossAmount:   d("15000"),
				NetAmount:     d("-77000"),
			},
		},
		{
			name: "profitable delivery",
			input: Inputs{
				Weight:             d("85"),
				UnitPrice:          d("65000"),
				HarvestUnitPrice:   d("8000"),
				TransportUnitPrice: d("11000"),
			},
			expect: Figures{
				HarvestCost:   d("680000"),
				TransportCost: d("935000"),
				GrossAmount:   d("5525000"),
				NetAmount:     d("3910000"),
			},
		},
		{
			name: "fractional weight has no float drift",
			input: Inputs{
				Weight:             d("0.1"),
				UnitPrice:          d("0.2"),
				HarvestUnitPrice:   d("0.1"),
				TransportUnitPrice: d("0.3"),
			},
			expect: Figures{
				HarvestCost:   d("0.01"),
				TransportCost: d("0.03"),
				GrossAmount:   d("0.02"),
				NetAmount:     d("-0.02"),
			},
		},
		{
			name:   "zero inputs",
			input:  Inputs{},
			expect: Figures{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual := Calculate(tc.input)

			assert.True(tc.expect.HarvestCost.Equal(actual.HarvestCost), "harvest cost: want %s, got %s", tc.expect.HarvestCost, actual.HarvestCost)
			assert.True(tc.expect.TransportCost.Equal(actual.TransportCost), "transport cost: want %s, got %s", tc.expect.TransportCost, actual.TransportCost)
			assert.True(tc.expect.GrossAmount.Equal(actual.GrossAmount), "gross: want %s, got %s", tc.expect.GrossAmount, actual.GrossAmount)
			assert.True(tc.expect.NetAmount.Equal(actual.NetAmount), "net: want %s, got %s", tc.expect.NetAmount, actual.NetAmount)
		})
	}
}

func Test_Calculate_deterministic(t *testing.T) {
	assert := assert.New(t)

	in := Inputs{Weight: d("12.5"), UnitPrice: d("1400"), HarvestUnitPrice: d("150"), TransportUnitPrice: d("7000")}

	first := Calculate(in)
	second := Calculate(in)

	assert.Equal(first.NetAmount.String(), second.NetAmount.String())
	assert.Equal(first.GrossAmount.String(), second.GrossAmount.String())
}
