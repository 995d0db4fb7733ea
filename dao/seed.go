package dao

import "github.com/shopspring/decimal"

// Seed is the reference data written to a store when it is first created.
type Seed struct {
	Locations  []Location
	Facilities []Facility
	Operators  []Operator
}

// Empty returns whether the seed holds no records.
func (s Seed) Empty() bool {
	return len(s.Locations) == 0 && len(s.Facilities) == 0 && len(s.Operators) == 0
}

// DefaultSeed returns the reference data that new canetrack stores start out
// with. No deliveries are seeded.
func DefaultSeed() Seed {
	return Seed{
		Locations: []Location{
			{Name: "Gembol"},
			{Name: "Natah"},
			{Name: "Gunung Celeng"},
			{Name: "Pribadi"},
		},
		Facilities: []Facility{
			{Name: "PG Geneng", TransportUnitPrice: decimal.NewFromInt(9000)},
			{Name: "PG Rejo Agung", TransportUnitPrice: decimal.NewFromInt(11000)},
			{Name: "PG Pagotan", TransportUnitPrice: decimal.NewFromInt(11000)},
			{Name: "PG Kecap", TransportUnitPrice: decimal.NewFromInt(7000)},
			{Name: "PG Glodok", TransportUnitPrice: decimal.NewFromInt(10000)},
		},
		Operators: []Operator{
			{Name: "Pras", VehicleIdentifier: "AB-1234-CD"},
			{Name: "Duwex", VehicleIdentifier: "AB-5678-EF"},
		},
	}
}
