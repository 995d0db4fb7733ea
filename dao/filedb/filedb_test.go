package filedb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/canetrack/canetrack"
	"github.com/canetrack/canetrack/dao"
	"github.com/canetrack/canetrack/internal/storetest"
	"github.com/dekarrin/rezi/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Store(t *testing.T) {
	storetest.Run(t, func(t *testing.T, seed dao.Seed) dao.Store {
		return Open(filepath.Join(t.TempDir(), canetrack.DefaultDataFile), seed)
	})
}

func Test_Store_reopen(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "nested", canetrack.DefaultDataFile)

	st := Open(file, dao.DefaultSeed())
	require.NoError(t, st.Initialize(ctx))

	d, err := st.Deliveries().Create(ctx, storetest.SampleDelivery())
	require.NoError(t, err)
	require.NoError(t, st.Facilities().Delete(ctx, 5))
	require.NoError(t, st.Close())

	_, err = os.Stat(file + ".bak")
	assert.True(errors.Is(err, os.ErrNotExist), "backup file should be removed after a successful write")

	// a different seed shows that reopening does not seed again
	st = Open(file, dao.Seed{Locations: []dao.Location{{Name: "never"}}})
	require.NoError(t, st.Initialize(ctx))
	defer st.Close()

	locs, err := st.Locations().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(locs, 4)

	facs, err := st.Facilities().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(facs, 4)

	got, err := st.Deliveries().Get(ctx, d.ID)
	require.NoError(t, err)
	assert.True(d.Weight.Equal(got.Weight), "weight: got %s", got.Weight)
	assert.True(d.NetAmount.Equal(got.NetAmount), "net: got %s", got.NetAmount)
	assert.True(d.DeliveryDate.Equal(got.DeliveryDate))
	assert.True(d.Created.Equal(got.Created))

	// the deleted facility's id is not handed out again
	f, err := st.Facilities().Create(ctx, dao.Facility{Name: "PG Baru", TransportUnitPrice: decimal.NewFromInt(8000)})
	require.NoError(t, err)
	assert.Equal(int64(6), f.ID)
}

func Test_Store_writeFailureRollsBack(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	st := Open(filepath.Join(t.TempDir(), canetrack.DefaultDataFile), dao.DefaultSeed())
	require.NoError(t, st.Initialize(ctx))
	defer st.Close()

	st.writeFile = func(string, []byte) error {
		return errors.New("no space left on device")
	}

	_, err := st.Locations().Create(ctx, dao.Location{Name: "Kebun"})
	assert.ErrorIs(err, canetrack.ErrWriteFailed)

	name := "Renamed"
	_, err = st.Operators().Update(ctx, 1, dao.OperatorPatch{Name: &name})
	assert.ErrorIs(err, canetrack.ErrWriteFailed)

	err = st.Facilities().Delete(ctx, 1)
	assert.ErrorIs(err, canetrack.ErrWriteFailed)

	locs, err := st.Locations().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(locs, 4)

	op, err := st.Operators().Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal("Pras", op.Name)

	_, err = st.Facilities().Get(ctx, 1)
	assert.NoError(err)
}

func Test_Store_Initialize_badFile(t *testing.T) {
	testCases := []struct {
		name string
		data func(t *testing.T) []byte
	}{
		{
			name: "garbage",
			data: func(t *testing.T) []byte {
				return []byte("not a data file at all")
			},
		},
		{
			name: "wrong version",
			data: func(t *testing.T) []byte {
				return rezi.MustEnc(snapshot{Name: dao.StoreName, Version: dao.SchemaVersion + 1})
			},
		},
		{
			name: "wrong store name",
			data: func(t *testing.T) []byte {
				return rezi.MustEnc(snapshot{Name: "araneastats", Version: dao.SchemaVersion})
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			file := filepath.Join(t.TempDir(), canetrack.DefaultDataFile)
			require.NoError(t, os.WriteFile(file, tc.data(t), 0660))

			st := Open(file, dao.DefaultSeed())
			err := st.Initialize(context.Background())

			assert.ErrorIs(err, canetrack.ErrStoreUnavailable)
		})
	}
}

func Test_Store_closed(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	st := Open(filepath.Join(t.TempDir(), canetrack.DefaultDataFile), dao.DefaultSeed())
	require.NoError(t, st.Initialize(ctx))
	require.NoError(t, st.Close())
	require.NoError(t, st.Close())

	_, err := st.Locations().Create(ctx, dao.Location{Name: "Kebun"})
	assert.ErrorIs(err, canetrack.ErrWriteFailed)
}
