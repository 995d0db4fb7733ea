package inmem

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/canetrack/canetrack"
	"github.com/canetrack/canetrack/dao"
	"github.com/canetrack/canetrack/internal/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Store(t *testing.T) {
	storetest.Run(t, func(t *testing.T, seed dao.Seed) dao.Store {
		return NewStore(seed)
	})
}

func Test_Repo_commitFailureRollsBack(t *testing.T) {
	commitErr := errors.New("disk on fire")

	testCases := []struct {
		name   string
		mutate func(ctx context.Context, r *Repo[dao.Location]) error
		expect []dao.Location
	}{
		{
			name: "create",
			mutate: func(ctx context.Context, r *Repo[dao.Location]) error {
				_, err := r.Create(ctx, dao.Location{Name: "Kebun"})
				return err
			},
			expect: []dao.Location{{ID: 1, Name: "Gembol"}},
		},
		{
			name: "update",
			mutate: func(ctx context.Context, r *Repo[dao.Location]) error {
				name := "Renamed"
				_, err := r.Update(ctx, 1, dao.LocationPatch{Name: &name})
				return err
			},
			expect: []dao.Location{{ID: 1, Name: "Gembol"}},
		},
		{
			name: "delete",
			mutate: func(ctx context.Context, r *Repo[dao.Location]) error {
				return r.Delete(ctx, 1)
			},
			expect: []dao.Location{{ID: 1, Name: "Gembol"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			ctx := context.Background()

			var fail bool
			repo := NewRepo[dao.Location](dao.Locations, &sync.RWMutex{}, func(context.Context) error {
				if fail {
					return commitErr
				}
				return nil
			})
			repo.now = func() time.Time { return time.Time{} }

			_, err := repo.Create(ctx, dao.Location{Name: "Gembol"})
			require.NoError(t, err)

			fail = true
			err = tc.mutate(ctx, repo)

			assert.ErrorIs(err, canetrack.ErrWriteFailed)
			assert.ErrorIs(err, commitErr)

			all, err := repo.GetAll(ctx)
			require.NoError(t, err)
			assert.Equal(tc.expect, all)
			assert.Equal(int64(1), repo.LastID())
		})
	}
}

func Test_Repo_cancelledContext(t *testing.T) {
	assert := assert.New(t)

	st := NewStore(dao.DefaultSeed())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := st.Locations().Create(ctx, dao.Location{Name: "Kebun"})
	assert.ErrorIs(err, context.Canceled)

	require.NoError(t, st.Initialize(context.Background()))
	all, err := st.Locations().GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(all, 4)
}

func Test_Repo_Restore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	repo := NewRepo[dao.Operator](dao.Operators, &sync.RWMutex{}, nil)
	repo.Restore([]dao.Operator{
		{ID: 3, Name: "Pras", VehicleIdentifier: "AB-1234-CD"},
		{ID: 7, Name: "Duwex", VehicleIdentifier: "AB-5678-EF"},
	}, 5)

	assert.Equal(int64(7), repo.LastID())

	created, err := repo.Create(ctx, dao.Operator{Name: "Sari", VehicleIdentifier: "AD-1-X"})
	require.NoError(t, err)
	assert.Equal(int64(8), created.ID)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(int64(3), all[0].ID)
	assert.Equal(int64(7), all[1].ID)
	assert.Equal(int64(8), all[2].ID)
}
