package dao

import (
	"time"

	"github.com/shopspring/decimal"
)

// Location is a harvest or source site that deliveries originate from.
type Location struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

func (l Location) ModelID() int64 {
	return l.ID
}

func (l Location) CreatedAt() time.Time {
	return l.Created
}

func (l Location) Stamp(id int64, created, modified time.Time) Location {
	l.ID = id
	l.Created = created
	l.Modified = modified
	return l
}

// Facility is a processing plant that receives deliveries. TransportUnitPrice
// is the per-weight-unit transport rate charged for deliveries to it.
type Facility struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	TransportUnitPrice decimal.Decimal `json:"transportUnitPrice"`
	Created            time.Time       `json:"created"`
	Modified           time.Time       `json:"modified"`
}

func (f Facility) ModelID() int64 {
	return f.ID
}

func (f Facility) CreatedAt() time.Time {
	return f.Created
}

func (f Facility) Stamp(id int64, created, modified time.Time) Facility {
	f.ID = id
	f.Created = created
	f.Modified = modified
	return f
}

// Operator is a driver and the vehicle they operate.
type Operator struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	VehicleIdentifier string    `json:"vehicleIdentifier"`
	Created           time.Time `json:"created"`
	Modified          time.Time `json:"modified"`
}

func (o Operator) ModelID() int64 {
	return o.ID
}

func (o Operator) CreatedAt() time.Time {
	return o.Created
}

func (o Operator) Stamp(id int64, created, modified time.Time) Operator {
	o.ID = id
	o.Created = created
	o.Modified = modified
	return o
}

// Delivery is one shipment from a Location to a Facility by an Operator.
//
// LocationID, FacilityID and OperatorID are advisory references; the store does
// not check that they exist and does not touch deliveries when a referenced
// entity is deleted.
//
// HarvestCost, TransportCost, GrossAmount and NetAmount are derived by the
// caller before the delivery is stored. The store keeps whatever it is given.
type Delivery struct {
	ID               int64           `json:"id"`
	LocationID       int64           `json:"locationId"`
	FacilityID       int64           `json:"facilityId"`
	OperatorID       int64           `json:"operatorId"`
	DeliveryDate     time.Time       `json:"deliveryDate"`
	Weight           decimal.Decimal `json:"weight"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
	HarvestUnitPrice decimal.Decimal `json:"harvestUnitPrice"`
	HarvestCost      decimal.Decimal `json:"harvestCost"`
	TransportCost    decimal.Decimal `json:"transportCost"`
	GrossAmount      decimal.Decimal `json:"grossAmount"`
	NetAmount        decimal.Decimal `json:"netAmount"`
	Created          time.Time       `json:"created"`
	Modified         time.Time       `json:"modified"`
}

func (d Delivery) ModelID() int64 {
	return d.ID
}

func (d Delivery) CreatedAt() time.Time {
	return d.Created
}

func (d Delivery) Stamp(id int64, created, modified time.Time) Delivery {
	d.ID = id
	d.Created = created
	d.Modified = modified
	return d
}
