// Package inmem provides an in-memory dao.Store. Nothing it holds survives the
// process; it is used for tests and ephemeral runs, and its Repo type backs the
// file store in package filedb.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/canetrack/canetrack/dao"
)

// Store is an in-memory database holding the four canetrack collections. All of
// its Repos share a single lock.
//
// Its zero-value should not be used; call NewStore to get a Store ready for
// use.
type Store struct {
	mtx         sync.RWMutex
	seed        dao.Seed
	initialized bool

	locations  *Repo[dao.Location]
	facilities *Repo[dao.Facility]
	operators  *Repo[dao.Operator]
	deliveries *Repo[dao.Delivery]
}

// NewStore creates a new, empty Store. The given seed is written by the first
// call to Initialize.
func NewStore(seed dao.Seed) *Store {
	st := &Store{seed: seed}

	st.locations = NewRepo[dao.Location](dao.Locations, &st.mtx, nil)
	st.facilities = NewRepo[dao.Facility](dao.Facilities, &st.mtx, nil)
	st.operators = NewRepo[dao.Operator](dao.Operators, &st.mtx, nil)
	st.deliveries = NewRepo[dao.Delivery](dao.Deliveries, &st.mtx, nil)

	return st
}

func (st *Store) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	st.mtx.Lock()
	defer st.mtx.Unlock()

	if st.initialized {
		return nil
	}

	SeedRepos(st.seed, time.Now(), st.locations, st.facilities, st.operators)
	st.initialized = true
	return nil
}

func (st *Store) Locations() dao.Repo[dao.Location] {
	return st.locations
}

func (st *Store) Facilities() dao.Repo[dao.Facility] {
	return st.facilities
}

func (st *Store) Operators() dao.Repo[dao.Operator] {
	return st.operators
}

func (st *Store) Deliveries() dao.Repo[dao.Delivery] {
	return st.deliveries
}

func (st *Store) Close() error {
	return nil
}

// SeedRepos inserts the records of seed into the given Repos without calling
// their commit functions. The caller must hold the write lock of every Repo.
func SeedRepos(seed dao.Seed, now time.Time, locs *Repo[dao.Location], facs *Repo[dao.Facility], ops *Repo[dao.Operator]) {
	for _, l := range seed.Locations {
		locs.Insert(l, now)
	}
	for _, f := range seed.Facilities {
		facs.Insert(f, now)
	}
	for _, o := range seed.Operators {
		ops.Insert(o, now)
	}
}
