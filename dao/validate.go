package dao

import (
	"strings"

	"github.com/canetrack/canetrack"
	"github.com/shopspring/decimal"
)

// The Validate methods check a model before it is handed to a store. Stores
// never validate; callers that accept input from outside the process are
// expected to.

func (l Location) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return canetrack.Invalid("name: must not be empty")
	}
	return nil
}

func (f Facility) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return canetrack.Invalid("name: must not be empty")
	}
	if !f.TransportUnitPrice.IsPositive() {
		return canetrack.Invalid("transportUnitPrice: must be greater than 0")
	}
	return nil
}

func (o Operator) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return canetrack.Invalid("name: must not be empty")
	}
	if strings.TrimSpace(o.VehicleIdentifier) == "" {
		return canetrack.Invalid("vehicleIdentifier: must not be empty")
	}
	return nil
}

func (d Delivery) Validate() error {
	if d.LocationID < 1 {
		return canetrack.Invalid("locationId: must be set")
	}
	if d.FacilityID < 1 {
		return canetrack.Invalid("facilityId: must be set")
	}
	if d.OperatorID < 1 {
		return canetrack.Invalid("operatorId: must be set")
	}
	if d.DeliveryDate.IsZero() {
		return canetrack.Invalid("deliveryDate: must be set")
	}
	if !d.Weight.IsPositive() {
		return canetrack.Invalid("weight: must be greater than 0")
	}
	if d.UnitPrice.IsNegative() {
		return canetrack.Invalid("unitPrice: must not be negative")
	}
	if d.HarvestUnitPrice.IsNegative() {
		return canetrack.Invalid("harvestUnitPrice: must not be negative")
	}
	return nil
}

func (p LocationPatch) Validate() error {
	if p.Name != nil {
		return Location{Name: *p.Name}.Validate()
	}
	return nil
}

func (p FacilityPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return canetrack.Invalid("name: must not be empty")
	}
	if p.TransportUnitPrice != nil && !p.TransportUnitPrice.IsPositive() {
		return canetrack.Invalid("transportUnitPrice: must be greater than 0")
	}
	return nil
}

func (p OperatorPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return canetrack.Invalid("name: must not be empty")
	}
	if p.VehicleIdentifier != nil && strings.TrimSpace(*p.VehicleIdentifier) == "" {
		return canetrack.Invalid("vehicleIdentifier: must not be empty")
	}
	return nil
}

func (p DeliveryPatch) Validate() error {
	refs := []struct {
		name string
		id   *int64
	}{
		{"locationId", p.LocationID},
		{"facilityId", p.FacilityID},
		{"operatorId", p.OperatorID},
	}
	for _, ref := range refs {
		if ref.id != nil && *ref.id < 1 {
			return canetrack.Invalid(ref.name + ": must be set")
		}
	}
	if p.DeliveryDate != nil && p.DeliveryDate.IsZero() {
		return canetrack.Invalid("deliveryDate: must be set")
	}
	if p.Weight != nil && !p.Weight.IsPositive() {
		return canetrack.Invalid("weight: must be greater than 0")
	}
	if isNegative(p.UnitPrice) {
		return canetrack.Invalid("unitPrice: must not be negative")
	}
	if isNegative(p.HarvestUnitPrice) {
		return canetrack.Invalid("harvestUnitPrice: must not be negative")
	}
	return nil
}

func isNegative(d *decimal.Decimal) bool {
	return d != nil && d.IsNegative()
}
