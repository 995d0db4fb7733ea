// Package storetest holds the behaviour checks that every dao.Store backend
// must pass. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/canetrack/canetrack"
	"github.com/canetrack/canetrack/dao"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Opener creates a new, uninitialized Store with the given seed. Each call
// must return a store independent of all previous calls.
type Opener func(t *testing.T, seed dao.Seed) dao.Store

// Run runs all store checks against stores created by open.
func Run(t *testing.T, open Opener) {
	t.Run("Initialize seeds reference data", func(t *testing.T) { testInitializeSeeds(t, open) })
	t.Run("Initialize twice is a no-op", func(t *testing.T) { testInitializeIdempotent(t, open) })
	t.Run("Create assigns increasing ids", func(t *testing.T) { testCreateIDs(t, open) })
	t.Run("ids are not reused after delete", func(t *testing.T) { testIDsNotReused(t, open) })
	t.Run("Get missing id is not found", func(t *testing.T) { testGetNotFound(t, open) })
	t.Run("Update merges patch", func(t *testing.T) { testUpdateMerges(t, open) })
	t.Run("Update missing id is not found", func(t *testing.T) { testUpdateNotFound(t, open) })
	t.Run("Delete is idempotent", func(t *testing.T) { testDeleteIdempotent(t, open) })
	t.Run("Delete leaves references dangling", func(t *testing.T) { testWeakReferences(t, open) })
	t.Run("Delivery round trip", func(t *testing.T) { testDeliveryRoundTrip(t, open) })
}

// SampleDelivery returns a delivery with every field set.
func SampleDelivery() dao.Delivery {
	return dao.Delivery{
		LocationID:       1,
		FacilityID:       1,
		OperatorID:       2,
		DeliveryDate:     time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC),
		Weight:           decimal.RequireFromString("10.5"),
		UnitPrice:        decimal.NewFromInt(1500),
		HarvestUnitPrice: decimal.NewFromInt(200),
		HarvestCost:      decimal.NewFromInt(2100),
		TransportCost:    decimal.NewFromInt(94500),
		GrossAmount:      decimal.NewFromInt(15750),
		NetAmount:        decimal.NewFromInt(-80850),
	}
}

func initialized(t *testing.T, open Opener, seed dao.Seed) dao.Store {
	st := open(t, seed)
	require.NoError(t, st.Initialize(context.Background()))
	t.Cleanup(func() { st.Close() })
	return st
}

func testInitializeSeeds(t *testing.T, open Opener) {
	assert := assert.New(t)
	ctx := context.Background()
	st := initialized(t, open, dao.DefaultSeed())

	locs, err := st.Locations().GetAll(ctx)
	require.NoError(t, err)
	facs, err := st.Facilities().GetAll(ctx)
	require.NoError(t, err)
	ops, err := st.Operators().GetAll(ctx)
	require.NoError(t, err)
	dels, err := st.Deliveries().GetAll(ctx)
	require.NoError(t, err)

	require.Len(t, locs, 4)
	require.Len(t, facs, 5)
	require.Len(t, ops, 2)
	assert.Len(dels, 0)

	assert.Equal("Gembol", locs[0].Name)
	assert.Equal("Pribadi", locs[3].Name)
	assert.Equal("PG Geneng", facs[0].Name)
	assert.True(decimal.NewFromInt(9000).Equal(facs[0].TransportUnitPrice), "got %s", facs[0].TransportUnitPrice)
	assert.Equal("PG Glodok", facs[4].Name)
	assert.True(decimal.NewFromInt(10000).Equal(facs[4].TransportUnitPrice), "got %s", facs[4].TransportUnitPrice)
	assert.Equal("Duwex", ops[1].Name)
	assert.Equal("AB-5678-EF", ops[1].VehicleIdentifier)

	for i, l := range locs {
		assert.Equal(int64(i+1), l.ID)
		assert.False(l.Created.IsZero())
	}
}

func testInitializeIdempotent(t *testing.T, open Opener) {
	assert := assert.New(t)
	ctx := context.Background()
	st := initialized(t, open, dao.DefaultSeed())

	require.NoError(t, st.Initialize(ctx))

	locs, err := st.Locations().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(locs, 4)
}

func testCreateIDs(t *testing.T, open Opener) {
	assert := assert.New(t)
	ctx := context.Background()
	st := initialized(t, open, dao.Seed{})

	before := time.Now().Add(-time.Second)

	first, err := st.Locations().Create(ctx, dao.Location{ID: 99, Name: "Kebun Timur"})
	require.NoError(t, err)
	second, err := st.Locations().Create(ctx, dao.Location{Name: "Kebun Barat"})
	require.NoError(t, err)

	assert.Equal(int64(1), first.ID)
	assert.Equal(int64(2), second.ID)
	assert.Equal("Kebun Timur", first.Name)
	assert.True(first.Created.After(before))
	assert.True(first.Created.Equal(first.Modified))

	got, err := st.Locations().Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal("Kebun Barat", got.Name)
	assert.True(got.Created.Equal(second.Created))

	// collections count independently
	op, err := st.Operators().Create(ctx, dao.Operator{Name: "Sari", VehicleIdentifier: "AD-1-X"})
	require.NoError(t, err)
	assert.Equal(int64(1), op.ID)
}

func testIDsNotReused(t *testing.T, open Opener) {
	assert := assert.New(t)
	ctx := context.Background()
	st := initialized(t, open, dao.Seed{})

	first, err := st.Facilities().Create(ctx, dao.Facility{Name: "PG A", TransportUnitPrice: decimal.NewFromInt(1)})
	require.NoError(t, err)
	second, err := st.Facilities().Create(ctx, dao.Facility{Name: "PG B", TransportUnitPrice: decimal.NewFromInt(2)})
	require.NoError(t, err)

	require.NoError(t, st.Facilities().Delete(ctx, second.ID))
	require.NoError(t, st.Facilities().Delete(ctx, first.ID))

	third, err := st.Facilities().Create(ctx, dao.Facility{Name: "PG C", TransportUnitPrice: decimal.NewFromInt(3)})
	require.NoError(t, err)

	assert.Greater(third.ID, second.ID)
}

func testGetNotFound(t *testing.T, open Opener) {
	assert := assert.New(t)
	st := initialized(t, open, dao.DefaultSeed())

	_, err := st.Deliveries().Get(context.Background(), 1)
	assert.ErrorIs(err, canetrack.ErrNotFound)

	_, err = st.Locations().Get(context.Background(), 400)
	assert.ErrorIs(err, canetrack.ErrNotFound)
}

func testUpdateMerges(t *testing.T, open Opener) {
	assert := assert.New(t)
	ctx := context.Background()
	st := initialized(t, open, dao.DefaultSeed())

	orig, err := st.Operators().Get(ctx, 1)
	require.NoError(t, err)

	newVehicle := "AB-9999-ZZ"
	updated, err := st.Operators().Update(ctx, 1, dao.OperatorPatch{VehicleIdentifier: &newVehicle})
	require.NoError(t, err)

	assert.Equal(int64(1), updated.ID)
	assert.Equal("Pras", updated.Name)
	assert.Equal(newVehicle, updated.VehicleIdentifier)
	assert.True(updated.Created.Equal(orig.Created), "created changed from %v to %v", orig.Created, updated.Created)
	assert.False(updated.Modified.Before(orig.Modified))

	got, err := st.Operators().Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(newVehicle, got.VehicleIdentifier)
	assert.Equal("Pras", got.Name)
	assert.True(got.Created.Equal(orig.Created))
}

func testUpdateNotFound(t *testing.T, open Opener) {
	assert := assert.New(t)
	ctx := context.Background()
	st := initialized(t, open, dao.Seed{})

	name := "Budi"
	_, err := st.Operators().Update(ctx, 2, dao.OperatorPatch{Name: &name})
	assert.ErrorIs(err, canetrack.ErrNotFound)

	all, err := st.Operators().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(all, 0)
}

func testDeleteIdempotent(t *testing.T, open Opener) {
	assert := assert.New(t)
	ctx := context.Background()
	st := initialized(t, open, dao.DefaultSeed())

	assert.NoError(st.Locations().Delete(ctx, 2))
	assert.NoError(st.Locations().Delete(ctx, 2))
	assert.NoError(st.Locations().Delete(ctx, 1000))

	_, err := st.Locations().Get(ctx, 2)
	assert.ErrorIs(err, canetrack.ErrNotFound)

	locs, err := st.Locations().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(locs, 3)
}

func testWeakReferences(t *testing.T, open Opener) {
	assert := assert.New(t)
	ctx := context.Background()
	st := initialized(t, open, dao.DefaultSeed())

	d, err := st.Deliveries().Create(ctx, SampleDelivery())
	require.NoError(t, err)

	require.NoError(t, st.Locations().Delete(ctx, d.LocationID))
	require.NoError(t, st.Facilities().Delete(ctx, d.FacilityID))

	got, err := st.Deliveries().Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(d.LocationID, got.LocationID)
	assert.Equal(d.FacilityID, got.FacilityID)
}

func testDeliveryRoundTrip(t *testing.T, open Opener) {
	assert := assert.New(t)
	ctx := context.Background()

	// a local zone west of UTC would move a UTC midnight to the previous day
	origLocal := time.Local
	time.Local = time.FixedZone("UTC-5", -5*60*60)
	t.Cleanup(func() { time.Local = origLocal })

	st := initialized(t, open, dao.DefaultSeed())

	sample := SampleDelivery()
	created, err := st.Deliveries().Create(ctx, sample)
	require.NoError(t, err)

	got, err := st.Deliveries().Get(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(sample.LocationID, got.LocationID)
	assert.Equal(sample.FacilityID, got.FacilityID)
	assert.Equal(sample.OperatorID, got.OperatorID)
	assert.True(sample.DeliveryDate.Equal(got.DeliveryDate), "date: want %v, got %v", sample.DeliveryDate, got.DeliveryDate)
	assert.Equal(sample.DeliveryDate.Format(time.DateOnly), got.DeliveryDate.Format(time.DateOnly))
	assert.True(sample.Weight.Equal(got.Weight), "weight: got %s", got.Weight)
	assert.True(sample.UnitPrice.Equal(got.UnitPrice), "unitPrice: got %s", got.UnitPrice)
	assert.True(sample.HarvestUnitPrice.Equal(got.HarvestUnitPrice), "harvestUnitPrice: got %s", got.HarvestUnitPrice)
	assert.True(sample.HarvestCost.Equal(got.HarvestCost), "harvestCost: got %s", got.HarvestCost)
	assert.True(sample.TransportCost.Equal(got.TransportCost), "transportCost: got %s", got.TransportCost)
	assert.True(sample.GrossAmount.Equal(got.GrossAmount), "grossAmount: got %s", got.GrossAmount)
	assert.True(sample.NetAmount.Equal(got.NetAmount), "netAmount: got %s", got.NetAmount)

	newWeight := decimal.NewFromInt(12)
	updated, err := st.Deliveries().Update(ctx, created.ID, dao.DeliveryPatch{Weight: &newWeight})
	require.NoError(t, err)
	assert.True(newWeight.Equal(updated.Weight))
	assert.True(sample.NetAmount.Equal(updated.NetAmount), "derived fields must be kept as stored")
	assert.Equal(sample.DeliveryDate.Format(time.DateOnly), updated.DeliveryDate.Format(time.DateOnly))

	all, err := st.Deliveries().GetAll(ctx)
	require.NoError(t, err)
	if assert.Len(all, 1) {
		assert.Equal("2024-03-14", all[0].DeliveryDate.Format(time.DateOnly))
	}
}
