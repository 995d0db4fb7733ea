// Package dao provides the data access objects for canetrack: the entity
// models, the partial-record patches used to update them, and the Repo and
// Store interfaces that every storage backend implements.
//
// Backends live in the subpackages inmem, sqlite and filedb.
package dao

import (
	"context"
	"time"
)

// SchemaVersion is the version of the durable store layout. Stores that find an
// existing store at this version perform no first-run initialization.
const SchemaVersion = 1

// StoreName is the fixed name of the durable store.
const StoreName = "canetrack"

// Collection is the name of one of the four entity collections.
type Collection string

const (
	Locations  Collection = "locations"
	Facilities Collection = "facilities"
	Operators  Collection = "operators"
	Deliveries Collection = "deliveries"
)

func (c Collection) String() string {
	return string(c)
}

// Collections returns every collection in the store in creation order.
func Collections() []Collection {
	return []Collection{Locations, Facilities, Operators, Deliveries}
}

// Model is an entity stored in a collection. It is identified by an int64 ID
// assigned by the store and carries the store-maintained timestamps.
type Model[M any] interface {
	// ModelID returns the store-assigned ID of the model.
	ModelID() int64

	// Stamp returns a copy of the model with its ID and timestamps replaced.
	Stamp(id int64, created, modified time.Time) M

	// CreatedAt returns the time the model was first stored.
	CreatedAt() time.Time
}

// Patch is a partial record of an M. Apply returns a copy of the given model
// with every field present in the patch overwritten.
type Patch[M any] interface {
	Apply(M) M
}

// Repo is a data object repository that maps int64 identifiers to M-typed
// entity models.
type Repo[M any] interface {

	// Create adds a new model to the store based on the provided one. The ID,
	// Created and Modified fields of the provided model are ignored; the store
	// assigns a new ID that has never been used in the collection before and
	// sets both timestamps to the current time.
	//
	// This returns the object as it appears in the store after creation. If
	// the write could not be committed, an error wrapping
	// canetrack.ErrWriteFailed is returned and nothing becomes visible.
	Create(context.Context, M) (M, error)

	// Get retrieves the model with the given ID. If no entity with that ID
	// exists, an error wrapping canetrack.ErrNotFound is returned.
	Get(context.Context, int64) (M, error)

	// GetAll retrieves all entities in the collection in ascending ID order.
	// If no entities exist but no error otherwise occurred, the returned list
	// will have a length of zero and the returned error will be nil.
	GetAll(context.Context) ([]M, error)

	// Update merges the patch into the entity with the given ID and stores the
	// result with a fresh Modified time. The ID and Created time are never
	// changed.
	//
	// This returns the object as it appears in the store after updating. If no
	// entity has the given ID, an error wrapping canetrack.ErrNotFound is
	// returned.
	Update(context.Context, int64, Patch[M]) (M, error)

	// Delete removes the entity with the given ID from the store. Deleting an
	// ID that does not exist is not an error.
	Delete(context.Context, int64) error

	// Close performs any clean-up operations required and flushes pending
	// operations. Not all Repos will actually perform operations, but it should
	// always be called as part of tear-down operations.
	Close() error
}

// Store holds the four entity collections.
type Store interface {

	// Initialize opens the durable store, creating it if it does not yet
	// exist. On first creation only, the four collections and their indexes
	// are created and the reference seed data is written. Calling Initialize
	// on a store that already exists is a no-op.
	//
	// If the durable store cannot be opened, an error wrapping
	// canetrack.ErrStoreUnavailable is returned.
	Initialize(context.Context) error

	Locations() Repo[Location]
	Facilities() Repo[Facility]
	Operators() Repo[Operator]
	Deliveries() Repo[Delivery]

	// Close closes any pending operations on the DAO store and on all of its
	// Repos. It performs any clean-up operations necessary and should always be
	// called once the Store is no longer in use.
	Close() error
}
