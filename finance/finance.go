// Package finance derives the cost and revenue figures of a delivery from its
// weight and unit prices.
package finance

import "github.com/shopspring/decimal"

// Inputs are the values a delivery's figures are derived from. All prices are
// per unit of weight.
type Inputs struct {
	Weight             decimal.Decimal
	UnitPrice          decimal.Decimal
	HarvestUnitPrice   decimal.Decimal
	TransportUnitPrice decimal.Decimal
}

// Figures are the derived financial values of a delivery.
type Figures struct {
	HarvestCost   decimal.Decimal
	TransportCost decimal.Decimal
	GrossAmount   decimal.Decimal
	NetAmount     decimal.Decimal
}

// Calculate derives the figures for in. It is pure; the same inputs always give
// the same figures, and arithmetic is exact decimal arithmetic.
//
//	harvestCost   = weight * harvestUnitPrice
//	transportCost = weight * transportUnitPrice
//	grossAmount   = weight * unitPrice
//	netAmount     = grossAmount - harvestCost - transportCost
func Calculate(in Inputs) Figures {
	harvest := in.Weight.Mul(in.HarvestUnitPrice)
	transport := in.Weight.Mul(in.TransportUnitPrice)
	gross := in.Weight.Mul(in.UnitPrice)

	return Figures{
		HarvestCost:   harvest,
		TransportCost: transport,
		GrossAmount:   gross,
		NetAmount:     gross.Sub(harvest).Sub(transport),
	}
}
