package filedb

import (
	"bytes"
	"fmt"

	"github.com/canetrack/canetrack/dao"
	"github.com/dekarrin/rezi/v2"
	"github.com/shopspring/decimal"
)

// decimals are encoded as their exact string form.

func encDecimal(d decimal.Decimal) []byte {
	return rezi.MustEnc(d.String())
}

func decDecimal(rr *rezi.Reader, target *decimal.Decimal) error {
	var s string
	if err := rr.Dec(&s); err != nil {
		return err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("decode %q: %w", s, err)
	}
	*target = d
	return nil
}

type locationRec dao.Location

func (r locationRec) MarshalBinary() ([]byte, error) {
	var enc []byte

	enc = append(enc, rezi.MustEnc(r.ID)...)
	enc = append(enc, rezi.MustEnc(r.Name)...)
	enc = append(enc, rezi.MustEnc(r.Created)...)
	enc = append(enc, rezi.MustEnc(r.Modified)...)

	return enc, nil
}

func (r *locationRec) UnmarshalBinary(data []byte) error {
	rr, err := rezi.NewReader(bytes.NewBuffer(data), nil)
	if err != nil {
		return err
	}

	var decoded locationRec

	if err := rr.Dec(&decoded.ID); err != nil {
		return rezi.Wrapf(0, "id: %s", err)
	}
	if err := rr.Dec(&decoded.Name); err != nil {
		return rezi.Wrapf(0, "name: %s", err)
	}
	if err := rr.Dec(&decoded.Created); err != nil {
		return rezi.Wrapf(0, "created: %s", err)
	}
	if err := rr.Dec(&decoded.Modified); err != nil {
		return rezi.Wrapf(0, "modified: %s", err)
	}

	*r = decoded
	return nil
}

type facilityRec dao.Facility

func (r facilityRec) MarshalBinary() ([]byte, error) {
	var enc []byte

	enc = append(enc, rezi.MustEnc(r.ID)...)
	enc = append(enc, rezi.MustEnc(r.Name)...)
	enc = append(enc, encDecimal(r.TransportUnitPrice)...)
	enc = append(enc, rezi.MustEnc(r.Created)...)
	enc = append(enc, rezi.MustEnc(r.Modified)...)

	return enc, nil
}

func (r *facilityRec) UnmarshalBinary(data []byte) error {
	rr, err := rezi.NewReader(bytes.NewBuffer(data), nil)
	if err != nil {
		return err
	}

	var decoded facilityRec

	if err := rr.Dec(&decoded.ID); err != nil {
		return rezi.Wrapf(0, "id: %s", err)
	}
	if err := rr.Dec(&decoded.Name); err != nil {
		return rezi.Wrapf(0, "name: %s", err)
	}
	if err := decDecimal(rr, &decoded.TransportUnitPrice); err != nil {
		return rezi.Wrapf(0, "transport unit price: %s", err)
	}
	if err := rr.Dec(&decoded.Created); err != nil {
		return rezi.Wrapf(0, "created: %s", err)
	}
	if err := rr.Dec(&decoded.Modified); err != nil {
		return rezi.Wrapf(0, "modified: %s", err)
	}

	*r = decoded
	return nil
}

type operatorRec dao.Operator

func (r operatorRec) MarshalBinary() ([]byte, error) {
	var enc []byte

	enc = append(enc, rezi.MustEnc(r.ID)...)
	enc = append(enc, rezi.MustEnc(r.Name)...)
	enc = append(enc, rezi.MustEnc(r.VehicleIdentifier)...)
	enc = append(enc, rezi.MustEnc(r.Created)...)
	enc = append(enc, rezi.MustEnc(r.Modified)...)

	return enc, nil
}

func (r *operatorRec) UnmarshalBinary(data []byte) error {
	rr, err := rezi.NewReader(bytes.NewBuffer(data), nil)
	if err != nil {
		return err
	}

	var decoded operatorRec

	if err := rr.Dec(&decoded.ID); err != nil {
		return rezi.Wrapf(0, "id: %s", err)
	}
	if err := rr.Dec(&decoded.Name); err != nil {
		return rezi.Wrapf(0, "name: %s", err)
	}
	if err := rr.Dec(&decoded.VehicleIdentifier); err != nil {
		return rezi.Wrapf(0, "vehicle identifier: %s", err)
	}
	if err := rr.Dec(&decoded.Created); err != nil {
		return rezi.Wrapf(0, "created: %s", err)
	}
	if err := rr.Dec(&decoded.Modified); err != nil {
		return rezi.Wrapf(0, "modified: %s", err)
	}

	*r = decoded
	return nil
}

type deliveryRec dao.Delivery

func (r deliveryRec) MarshalBinary() ([]byte, error) {
	var enc []byte

	enc = append(enc, rezi.MustEnc(r.ID)...)
	enc = append(enc, rezi.MustEnc(r.LocationID)...)
	enc = append(enc, rezi.MustEnc(r.FacilityID)...)
	enc = append(enc, rezi.MustEnc(r.OperatorID)...)
	enc = append(enc, rezi.MustEnc(r.DeliveryDate)...)
	enc = append(enc, encDecimal(r.Weight)...)
	enc = append(enc, encDecimal(r.UnitPrice)...)
	enc = append(enc, encDecimal(r.HarvestUnitPrice)...)
	enc = append(enc, encDecimal(r.HarvestCost)...)
	enc = append(enc, encDecimal(r.TransportCost)...)
	enc = append(enc, encDecimal(r.GrossAmount)...)
	enc = append(enc, encDecimal(r.NetAmount)...)
	enc = append(enc, rezi.MustEnc(r.Created)...)
	enc = append(enc, rezi.MustEnc(r.Modified)...)

	return enc, nil
}

func (r *deliveryRec) UnmarshalBinary(data []byte) error {
	rr, err := rezi.NewReader(bytes.NewBuffer(data), nil)
	if err != nil {
		return err
	}

	var decoded deliveryRec

	if err := rr.Dec(&decoded.ID); err != nil {
		return rezi.Wrapf(0, "id: %s", err)
	}
	if err := rr.Dec(&decoded.LocationID); err != nil {
		return rezi.Wrapf(0, "location id: %s", err)
	}
	if err := rr.Dec(&decoded.FacilityID); err != nil {
		return rezi.Wrapf(0, "facility id: %s", err)
	}
	if err := rr.Dec(&decoded.OperatorID); err != nil {
		return rezi.Wrapf(0, "operator id: %s", err)
	}
	if err := rr.Dec(&decoded.DeliveryDate); err != nil {
		return rezi.Wrapf(0, "delivery date: %s", err)
	}

	amounts := []struct {
		name   string
		target *decimal.Decimal
	}{
		{"weight", &decoded.Weight},
		{"unit price", &decoded.UnitPrice},
		{"harvest unit price", &decoded.HarvestUnitPrice},
		{"harvest cost", &decoded.HarvestCost},
		{"transport cost", &decoded.TransportCost},
		{"gross amount", &decoded.GrossAmount},
		{"net amount", &decoded.NetAmount},
	}
	for _, amt := range amounts {
		if err := decDecimal(rr, amt.target); err != nil {
			return rezi.Wrapf(0, amt.name+": %s", err)
		}
	}

	if err := rr.Dec(&decoded.Created); err != nil {
		return rezi.Wrapf(0, "created: %s", err)
	}
	if err := rr.Dec(&decoded.Modified); err != nil {
		return rezi.Wrapf(0, "modified: %s", err)
	}

	*r = decoded
	return nil
}

// snapshot is the entire contents of a store file.
type snapshot struct {
	Name    string
	Version int

	LastLocationID int64
	LastFacilityID int64
	LastOperatorID int64
	LastDeliveryID int64

	Locations  []locationRec
	Facilities []facilityRec
	Operators  []operatorRec
	Deliveries []deliveryRec
}

func (s snapshot) MarshalBinary() ([]byte, error) {
	var enc []byte

	enc = append(enc, rezi.MustEnc(s.Name)...)
	enc = append(enc, rezi.MustEnc(s.Version)...)
	enc = append(enc, rezi.MustEnc(s.LastLocationID)...)
	enc = append(enc, rezi.MustEnc(s.LastFacilityID)...)
	enc = append(enc, rezi.MustEnc(s.LastOperatorID)...)
	enc = append(enc, rezi.MustEnc(s.LastDeliveryID)...)
	enc = append(enc, rezi.MustEnc(s.Locations)...)
	enc = append(enc, rezi.MustEnc(s.Facilities)...)
	enc = append(enc, rezi.MustEnc(s.Operators)...)
	enc = append(enc, rezi.MustEnc(s.Deliveries)...)

	return enc, nil
}

func (s *snapshot) UnmarshalBinary(data []byte) error {
	rr, err := rezi.NewReader(bytes.NewBuffer(data), nil)
	if err != nil {
		return err
	}

	var decoded snapshot

	if err := rr.Dec(&decoded.Name); err != nil {
		return rezi.Wrapf(0, "name: %s", err)
	}
	if err := rr.Dec(&decoded.Version); err != nil {
		return rezi.Wrapf(0, "version: %s", err)
	}
	if err := rr.Dec(&decoded.LastLocationID); err != nil {
		return rezi.Wrapf(0, "location counter: %s", err)
	}
	if err := rr.Dec(&decoded.LastFacilityID); err != nil {
		return rezi.Wrapf(0, "facility counter: %s", err)
	}
	if err := rr.Dec(&decoded.LastOperatorID); err != nil {
		return rezi.Wrapf(0, "operator counter: %s", err)
	}
	if err := rr.Dec(&decoded.LastDeliveryID); err != nil {
		return rezi.Wrapf(0, "delivery counter: %s", err)
	}
	if err := rr.Dec(&decoded.Locations); err != nil {
		return rezi.Wrapf(0, "locations: %s", err)
	}
	if err := rr.Dec(&decoded.Facilities); err != nil {
		return rezi.Wrapf(0, "facilities: %s", err)
	}
	if err := rr.Dec(&decoded.Operators); err != nil {
		return rezi.Wrapf(0, "operators: %s", err)
	}
	if err := rr.Dec(&decoded.Deliveries); err != nil {
		return rezi.Wrapf(0, "deliveries: %s", err)
	}

	*s = decoded
	return nil
}

// convert re-types a slice of records.
func convert[T, U any](src []T, conv func(T) U) []U {
	out := make([]U, len(src))
	for i := range src {
		out[i] = conv(src[i])
	}
	return out
}
