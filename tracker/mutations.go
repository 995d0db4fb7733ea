package tracker

import (
	"context"
	"errors"

	"github.com/canetrack/canetrack"
	"github.com/canetrack/canetrack/dao"
	"github.com/shopspring/decimal"
)

// mutate runs op against the store and then refreshes the snapshot. If op
// fails, nothing was written and no refresh happens. If the refresh fails, the
// write has still been committed; the refresh error is returned and the
// snapshot stays stale until the next successful refresh.
func mutate[R any](ctx context.Context, t *Tracker, desc string, op func(context.Context) (R, error)) (R, error) {
	var zero R

	t.opMtx.Lock()
	defer t.opMtx.Unlock()

	if err := t.usable(); err != nil {
		return zero, err
	}

	result, err := op(ctx)
	if err != nil {
		t.log.Debugf("%s: %s", desc, err)
		return zero, err
	}
	t.log.Debug(desc)

	if err := t.refreshUnsafe(ctx); err != nil {
		return result, err
	}

	return result, nil
}

func deleteOp(repoDelete func(context.Context, int64) error, id int64) func(context.Context) (struct{}, error) {
	return func(ctx context.Context) (struct{}, error) {
		return struct{}{}, repoDelete(ctx, id)
	}
}

// AddLocation stores a new Location and refreshes the snapshot. The returned
// Location carries its assigned ID.
func (t *Tracker) AddLocation(ctx context.Context, l dao.Location) (dao.Location, error) {
	return mutate(ctx, t, "add location", func(ctx context.Context) (dao.Location, error) {
		return t.store.Locations().Create(ctx, l)
	})
}

// UpdateLocation applies p to the Location with the given ID and refreshes the
// snapshot.
func (t *Tracker) UpdateLocation(ctx context.Context, id int64, p dao.LocationPatch) (dao.Location, error) {
	return mutate(ctx, t, "update location", func(ctx context.Context) (dao.Location, error) {
		return t.store.Locations().Update(ctx, id, p)
	})
}

// DeleteLocation removes the Location with the given ID and refreshes the
// snapshot. Deliveries that reference it are left as they are.
func (t *Tracker) DeleteLocation(ctx context.Context, id int64) error {
	_, err := mutate(ctx, t, "delete location", deleteOp(t.store.Locations().Delete, id))
	return err
}

// AddFacility stores a new Facility and refreshes the snapshot.
func (t *Tracker) AddFacility(ctx context.Context, f dao.Facility) (dao.Facility, error) {
	return mutate(ctx, t, "add facility", func(ctx context.Context) (dao.Facility, error) {
		return t.store.Facilities().Create(ctx, f)
	})
}

// UpdateFacility applies p to the Facility with the given ID and refreshes the
// snapshot. Stored deliveries keep the derived figures they were saved with.
func (t *Tracker) UpdateFacility(ctx context.Context, id int64, p dao.FacilityPatch) (dao.Facility, error) {
	return mutate(ctx, t, "update facility", func(ctx context.Context) (dao.Facility, error) {
		return t.store.Facilities().Update(ctx, id, p)
	})
}

// DeleteFacility removes the Facility with the given ID and refreshes the
// snapshot.
func (t *Tracker) DeleteFacility(ctx context.Context, id int64) error {
	_, err := mutate(ctx, t, "delete facility", deleteOp(t.store.Facilities().Delete, id))
	return err
}

// AddOperator stores a new Operator and refreshes the snapshot.
func (t *Tracker) AddOperator(ctx context.Context, o dao.Operator) (dao.Operator, error) {
	return mutate(ctx, t, "add operator", func(ctx context.Context) (dao.Operator, error) {
		return t.store.Operators().Create(ctx, o)
	})
}

// UpdateOperator applies p to the Operator with the given ID and refreshes the
// snapshot.
func (t *Tracker) UpdateOperator(ctx context.Context, id int64, p dao.OperatorPatch) (dao.Operator, error) {
	return mutate(ctx, t, "update operator", func(ctx context.Context) (dao.Operator, error) {
		return t.store.Operators().Update(ctx, id, p)
	})
}

// DeleteOperator removes the Operator with the given ID and refreshes the
// snapshot.
func (t *Tracker) DeleteOperator(ctx context.Context, id int64) error {
	_, err := mutate(ctx, t, "delete operator", deleteOp(t.store.Operators().Delete, id))
	return err
}

// AddDelivery stores d as given and refreshes the snapshot. The derived fields
// are not computed here; use PriceDelivery first, or RecordDelivery instead.
func (t *Tracker) AddDelivery(ctx context.Context, d dao.Delivery) (dao.Delivery, error) {
	return mutate(ctx, t, "add delivery", func(ctx context.Context) (dao.Delivery, error) {
		return t.store.Deliveries().Create(ctx, d)
	})
}

// UpdateDelivery applies p to the Delivery with the given ID and refreshes the
// snapshot.
func (t *Tracker) UpdateDelivery(ctx context.Context, id int64, p dao.DeliveryPatch) (dao.Delivery, error) {
	return mutate(ctx, t, "update delivery", func(ctx context.Context) (dao.Delivery, error) {
		return t.store.Deliveries().Update(ctx, id, p)
	})
}

// RecordDelivery computes the derived fields of d from the transport unit
// price its facility has in the store, stores it and refreshes the snapshot.
// Derived fields already set on d are replaced.
func (t *Tracker) RecordDelivery(ctx context.Context, d dao.Delivery) (dao.Delivery, error) {
	return mutate(ctx, t, "record delivery", func(ctx context.Context) (dao.Delivery, error) {
		rate, err := t.storedRate(ctx, d.FacilityID)
		if err != nil {
			return dao.Delivery{}, err
		}
		return t.store.Deliveries().Create(ctx, price(d, rate))
	})
}

// RepriceDelivery applies p to the stored Delivery with the given ID, computes
// the derived fields of the result from the transport unit price its facility
// has in the store, and writes both. Derived fields set on p are replaced.
// The read and the write happen within one operation, so the stored figures
// always agree with the stored inputs even if the snapshot is stale.
func (t *Tracker) RepriceDelivery(ctx context.Context, id int64, p dao.DeliveryPatch) (dao.Delivery, error) {
	return mutate(ctx, t, "reprice delivery", func(ctx context.Context) (dao.Delivery, error) {
		current, err := t.store.Deliveries().Get(ctx, id)
		if err != nil {
			return dao.Delivery{}, err
		}

		merged := p.Apply(current)
		rate, err := t.storedRate(ctx, merged.FacilityID)
		if err != nil {
			return dao.Delivery{}, err
		}

		priced := price(merged, rate)
		p.HarvestCost = &priced.HarvestCost
		p.TransportCost = &priced.TransportCost
		p.GrossAmount = &priced.GrossAmount
		p.NetAmount = &priced.NetAmount

		return t.store.Deliveries().Update(ctx, id, p)
	})
}

// storedRate reads the transport unit price of a facility from the store. A
// facility that does not exist has a rate of zero.
func (t *Tracker) storedRate(ctx context.Context, facilityID int64) (decimal.Decimal, error) {
	f, err := t.store.Facilities().Get(ctx, facilityID)
	if errors.Is(err, canetrack.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return f.TransportUnitPrice, nil
}

// DeleteDelivery removes the Delivery with the given ID and refreshes the
// snapshot.
func (t *Tracker) DeleteDelivery(ctx context.Context, id int64) error {
	_, err := mutate(ctx, t, "delete delivery", deleteOp(t.store.Deliveries().Delete, id))
	return err
}
