package dao

import (
	"time"

	"github.com/shopspring/decimal"
)

// LocationPatch is a partial Location. Nil fields are left unchanged by Apply.
type LocationPatch struct {
	Name *string `json:"name,omitempty"`
}

func (p LocationPatch) Apply(l Location) Location {
	if p.Name != nil {
		l.Name = *p.Name
	}
	return l
}

// FacilityPatch is a partial Facility. Nil fields are left unchanged by Apply.
type FacilityPatch struct {
	Name               *string          `json:"name,omitempty"`
	TransportUnitPrice *decimal.Decimal `json:"transportUnitPrice,omitempty"`
}

func (p FacilityPatch) Apply(f Facility) Facility {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.TransportUnitPrice != nil {
		f.TransportUnitPrice = *p.TransportUnitPrice
	}
	return f
}

// OperatorPatch is a partial Operator. Nil fields are left unchanged by Apply.
type OperatorPatch struct {
	Name              *string `json:"name,omitempty"`
	VehicleIdentifier *string `json:"vehicleIdentifier,omitempty"`
}

func (p OperatorPatch) Apply(o Operator) Operator {
	if p.Name != nil {
		o.Name = *p.Name
	}
	if p.VehicleIdentifier != nil {
		o.VehicleIdentifier = *p.VehicleIdentifier
	}
	return o
}

// DeliveryPatch is a partial Delivery. Nil fields are left unchanged by Apply.
//
// The derived fields are plain fields like any other; a patch that changes
// Weight or a price without also supplying new derived values leaves the stored
// derived values as they were.
type DeliveryPatch struct {
	LocationID       *int64           `json:"locationId,omitempty"`
	FacilityID       *int64           `json:"facilityId,omitempty"`
	OperatorID       *int64           `json:"operatorId,omitempty"`
	DeliveryDate     *time.Time       `json:"deliveryDate,omitempty"`
	Weight           *decimal.Decimal `json:"weight,omitempty"`
	UnitPrice        *decimal.Decimal `json:"unitPrice,omitempty"`
	HarvestUnitPrice *decimal.Decimal `json:"harvestUnitPrice,omitempty"`
	HarvestCost      *decimal.Decimal `json:"harvestCost,omitempty"`
	TransportCost    *decimal.Decimal `json:"transportCost,omitempty"`
	GrossAmount      *decimal.Decimal `json:"grossAmount,omitempty"`
	NetAmount        *decimal.Decimal `json:"netAmount,omitempty"`
}

func (p DeliveryPatch) Apply(d Delivery) Delivery {
	if p.LocationID != nil {
		d.LocationID = *p.LocationID
	}
	if p.FacilityID != nil {
		d.FacilityID = *p.FacilityID
	}
	if p.OperatorID != nil {
		d.OperatorID = *p.OperatorID
	}
	if p.DeliveryDate != nil {
		d.DeliveryDate = *p.DeliveryDate
	}
	if p.Weight != nil {
		d.Weight = *p.Weight
	}
	if p.UnitPrice != nil {
		d.UnitPrice = *p.UnitPrice
	}
	if p.HarvestUnitPrice != nil {
		d.HarvestUnitPrice = *p.HarvestUnitPrice
	}
	if p.HarvestCost != nil {
		d.HarvestCost = *p.HarvestCost
	}
	if p.TransportCost != nil {
		d.TransportCost = *p.TransportCost
	}
	if p.GrossAmount != nil {
		d.GrossAmount = *p.GrossAmount
	}
	if p.NetAmount != nil {
		d.NetAmount = *p.NetAmount
	}
	return d
}

// AffectsPricing returns whether the patch changes any input of the derived
// financial figures.
func (p DeliveryPatch) AffectsPricing() bool {
	return p.FacilityID != nil || p.Weight != nil || p.UnitPrice != nil || p.HarvestUnitPrice != nil
}

// Full returns a patch that sets every non-identity field of a Delivery to the
// value it has in d.
func (d Delivery) Full() DeliveryPatch {
	return DeliveryPatch{
		LocationID:       &d.LocationID,
		FacilityID:       &d.FacilityID,
		OperatorID:       &d.OperatorID,
		DeliveryDate:     &d.DeliveryDate,
		Weight:           &d.Weight,
		UnitPrice:        &d.UnitPrice,
		HarvestUnitPrice: &d.HarvestUnitPrice,
		HarvestCost:      &d.HarvestCost,
		TransportCost:    &d.TransportCost,
		GrossAmount:      &d.GrossAmount,
		NetAmount:        &d.NetAmount,
	}
}
