// Package sqlite provides a dao.Store backed by a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/canetrack/canetrack"
	"github.com/canetrack/canetrack/dao"
	"modernc.org/sqlite"
)

// DBFilename is the name of the database file created in the storage
// directory.
const DBFilename = dao.StoreName + ".db"

// WrapDBError wraps an error from the SQLite engine into an error useable by
// the rest of canetrack. It should be called on any error returned from SQLite
// before a repo passes the error back to a caller.
func WrapDBError(err error) error {
	if err == nil {
		return nil
	}

	sqliteErr := &sqlite.Error{}
	if errors.As(err, &sqliteErr) {
		primaryCode := sqliteErr.Code() & 0xff
		if primaryCode == 19 {
			return canetrack.NewError(err.Error(), canetrack.ErrConstraintViolation)
		}
		if primaryCode == 1 {
			// this is a generic error and thus the string is not descriptive,
			// so preserve the original error instead
			return err
		}
		return canetrack.NewError(sqlite.ErrorCodeString[sqliteErr.Code()], err)
	} else if errors.Is(err, sql.ErrNoRows) {
		return canetrack.ErrNotFound
	}
	return err
}

// Store is a SQLite database holding the four canetrack collections.
//
// Its zero-value should not be used; call NewStore to get a Store ready for
// use.
type Store struct {
	db         *sql.DB
	dir        string
	dbFilename string
	seed       dao.Seed

	locations  *table[dao.Location]
	facilities *table[dao.Facility]
	operators  *table[dao.Operator]
	deliveries *table[dao.Delivery]
}

// NewStore creates a Store whose database file lives in storageDir. The
// database is not touched until Initialize is called; seed is written if
// Initialize creates it.
func NewStore(storageDir string, seed dao.Seed) (*Store, error) {
	fileName := filepath.Join(storageDir, DBFilename)

	db, err := sql.Open("sqlite", fileName)
	if err != nil {
		return nil, canetrack.WrapUnavailable(WrapDBError(err), "open database")
	}

	// all access goes through one connection so that writers never contend
	// for the file lock
	db.SetMaxOpenConns(1)

	st := newStore(db, seed)
	st.dir = storageDir
	return st, nil
}

func newStore(db *sql.DB, seed dao.Seed) *Store {
	st := &Store{
		db:         db,
		dbFilename: DBFilename,
		seed:       seed,
	}

	st.locations = &table[dao.Location]{
		db:      db,
		name:    dao.Locations,
		columns: []string{"name"},
		values: func(l dao.Location) []any {
			return []any{l.Name}
		},
		scan: scanLocation,
		now:  time.Now,
	}
	st.facilities = &table[dao.Facility]{
		db:      db,
		name:    dao.Facilities,
		columns: []string{"name", "transport_unit_price"},
		values: func(f dao.Facility) []any {
			return []any{f.Name, f.TransportUnitPrice}
		},
		scan: scanFacility,
		now:  time.Now,
	}
	st.operators = &table[dao.Operator]{
		db:      db,
		name:    dao.Operators,
		columns: []string{"name", "vehicle_identifier"},
		values: func(o dao.Operator) []any {
			return []any{o.Name, o.VehicleIdentifier}
		},
		scan: scanOperator,
		now:  time.Now,
	}
	st.deliveries = &table[dao.Delivery]{
		db:   db,
		name: dao.Deliveries,
		columns: []string{
			"location_id", "facility_id", "operator_id", "delivery_date",
			"weight", "unit_price", "harvest_unit_price",
			"harvest_cost", "transport_cost", "gross_amount", "net_amount",
		},
		values: func(d dao.Delivery) []any {
			return []any{
				d.LocationID, d.FacilityID, d.OperatorID, Timestamp(d.DeliveryDate),
				d.Weight, d.UnitPrice, d.HarvestUnitPrice,
				d.HarvestCost, d.TransportCost, d.GrossAmount, d.NetAmount,
			}
		},
		scan: scanDelivery,
		now:  time.Now,
	}

	return st
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS locations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		created INTEGER NOT NULL,
		modified INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS locations_name ON locations (name);`,
	`CREATE TABLE IF NOT EXISTS facilities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		transport_unit_price TEXT NOT NULL,
		created INTEGER NOT NULL,
		modified INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS facilities_name ON facilities (name);`,
	`CREATE TABLE IF NOT EXISTS operators (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		vehicle_identifier TEXT NOT NULL,
		created INTEGER NOT NULL,
		modified INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS operators_name ON operators (name);`,
	`CREATE TABLE IF NOT EXISTS deliveries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		location_id INTEGER NOT NULL,
		facility_id INTEGER NOT NULL,
		operator_id INTEGER NOT NULL,
		delivery_date INTEGER NOT NULL,
		weight TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		harvest_unit_price TEXT NOT NULL,
		harvest_cost TEXT NOT NULL,
		transport_cost TEXT NOT NULL,
		gross_amount TEXT NOT NULL,
		net_amount TEXT NOT NULL,
		created INTEGER NOT NULL,
		modified INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS deliveries_delivery_date ON deliveries (delivery_date);`,
	`CREATE INDEX IF NOT EXISTS deliveries_location_id ON deliveries (location_id);`,
	`CREATE INDEX IF NOT EXISTS deliveries_facility_id ON deliveries (facility_id);`,
	`CREATE INDEX IF NOT EXISTS deliveries_operator_id ON deliveries (operator_id);`,
}

// Initialize creates the storage directory and the database if needed. The
// schema and seed data are written in a single transaction only when the
// database reports a user_version of 0.
func (st *Store) Initialize(ctx context.Context) error {
	if st.dir != "" {
		if err := os.MkdirAll(st.dir, 0770); err != nil {
			return canetrack.WrapUnavailable(err, "create storage directory")
		}
	}

	if err := st.db.PingContext(ctx); err != nil {
		return canetrack.WrapUnavailable(WrapDBError(err), "open database")
	}

	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return canetrack.WrapUnavailable(WrapDBError(err), "begin initialization")
	}
	defer tx.Rollback()

	var version int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&version); err != nil {
		return canetrack.WrapUnavailable(WrapDBError(err), "read schema version")
	}
	if version >= dao.SchemaVersion {
		return nil
	}

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return canetrack.WrapUnavailable(WrapDBError(err), "create schema")
		}
	}

	now := time.Now()
	for _, l := range st.seed.Locations {
		if _, err := st.locations.insert(ctx, tx, l, now); err != nil {
			return canetrack.WrapUnavailable(err, "seed locations")
		}
	}
	for _, f := range st.seed.Facilities {
		if _, err := st.facilities.insert(ctx, tx, f, now); err != nil {
			return canetrack.WrapUnavailable(err, "seed facilities")
		}
	}
	for _, o := range st.seed.Operators {
		if _, err := st.operators.insert(ctx, tx, o, now); err != nil {
			return canetrack.WrapUnavailable(err, "seed operators")
		}
	}

	// PRAGMA does not accept bound parameters
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d;`, dao.SchemaVersion)); err != nil {
		return canetrack.WrapUnavailable(WrapDBError(err), "set schema version")
	}

	if err := tx.Commit(); err != nil {
		return canetrack.WrapUnavailable(WrapDBError(err), "commit initialization")
	}

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
	err := st.db.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", st.dbFilename, err)
	}
	return nil
}
