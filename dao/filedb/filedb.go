// Package filedb provides a dao.Store that keeps all of its data in memory and
// writes the whole store to a single file after every mutation.
//
// Use [Open] to create a [Store] for a data file on disk and then call
// [Store.Initialize] to load it, or to create and seed it if it does not yet
// exist. Each write is applied in memory and then persisted; if persisting
// fails, the in-memory change is undone and the caller receives an error
// wrapping canetrack.ErrWriteFailed.
package filedb

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/canetrack/canetrack"
	"github.com/canetrack/canetrack/dao"
	"github.com/canetrack/canetrack/dao/inmem"
	"github.com/dekarrin/rezi/v2"
)

// Store holds the four canetrack collections and persists them to DataFile.
//
// Store is safe to use from multiple goroutines concurrently. It serializes
// access to internal storage. Store must not be copied once created.
type Store struct {
	// DataFile is the file on disk that the store saves its state to.
	DataFile string

	mtx         sync.RWMutex
	seed        dao.Seed
	initialized bool
	closed      bool

	locations  *inmem.Repo[dao.Location]
	facilities *inmem.Repo[dao.Facility]
	operators  *inmem.Repo[dao.Operator]
	deliveries *inmem.Repo[dao.Delivery]

	// writeFile is replaced in tests.
	writeFile func(file string, data []byte) error
}

// Open creates a new Store that will persist itself to the given data file.
// Nothing is read from or written to disk until Initialize is called. If
// Initialize creates the file, seed is written to it.
func Open(file string, seed dao.Seed) *Store {
	st := &Store{
		DataFile:  file,
		seed:      seed,
		writeFile: writeDataFile,
	}

	commit := func(ctx context.Context) error {
		return st.persistUnsafe()
	}

	st.locations = inmem.NewRepo[dao.Location](dao.Locations, &st.mtx, commit)
	st.facilities = inmem.NewRepo[dao.Facility](dao.Facilities, &st.mtx, commit)
	st.operators = inmem.NewRepo[dao.Operator](dao.Operators, &st.mtx, commit)
	st.deliveries = inmem.NewRepo[dao.Delivery](dao.Deliveries, &st.mtx, commit)

	return st
}

// Initialize loads the data file into memory. If the file does not exist, the
// store is seeded and written to a new file. Calling Initialize again after it
// has succeeded has no effect.
func (st *Store) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	st.mtx.Lock()
	defer st.mtx.Unlock()

	if st.closed {
		return canetrack.NewError("store is closed", canetrack.ErrStoreUnavailable)
	}
	if st.initialized {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(st.DataFile), 0770); err != nil {
		return canetrack.WrapUnavailable(err, "create storage directory")
	}

	data, err := os.ReadFile(st.DataFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return canetrack.WrapUnavailable(err, "read data file")
	}

	if err == nil {
		if err := st.loadUnsafe(data); err != nil {
			return canetrack.WrapUnavailable(err, "load data file")
		}
		st.initialized = true
		return nil
	}

	inmem.SeedRepos(st.seed, time.Now(), st.locations, st.facilities, st.operators)

	// set before persisting; persistUnsafe refuses to write an uninitialized
	// store
	st.initialized = true
	if err := st.persistUnsafe(); err != nil {
		st.initialized = false
		st.locations.Restore(nil, 0)
		st.facilities.Restore(nil, 0)
		st.operators.Restore(nil, 0)
		return canetrack.WrapUnavailable(err, "create data file")
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

// Close ends use of the Store. Every mutation has already been persisted by the
// time it returned, so Close writes nothing. After Close returns, writes to the
// Store fail.
//
// If the Store has already been closed, calling this method will have no effect
// and the returned error will be nil.
func (st *Store) Close() error {
	st.mtx.Lock()
	defer st.mtx.Unlock()

	st.closed = true
	return nil
}

// Export returns the encoded contents of the store, exactly as they would be
// written to the data file.
func (st *Store) Export() ([]byte, error) {
	st.mtx.RLock()
	defer st.mtx.RUnlock()

	return st.exportUnsafe()
}

func (st *Store) exportUnsafe() ([]byte, error) {
	snap := snapshot{
		Name:    dao.StoreName,
		Version: dao.SchemaVersion,

		LastLocationID: st.locations.LastID(),
		LastFacilityID: st.facilities.LastID(),
		LastOperatorID: st.operators.LastID(),
		LastDeliveryID: st.deliveries.LastID(),

		Locations:  convert(st.locations.Records(), func(m dao.Location) locationRec { return locationRec(m) }),
		Facilities: convert(st.facilities.Records(), func(m dao.Facility) facilityRec { return facilityRec(m) }),
		Operators:  convert(st.operators.Records(), func(m dao.Operator) operatorRec { return operatorRec(m) }),
		Deliveries: convert(st.deliveries.Records(), func(m dao.Delivery) deliveryRec { return deliveryRec(m) }),
	}

	return rezi.Enc(snap)
}

// loadUnsafe replaces the in-memory contents with the decoded data. It assumes
// the caller has acquired the write lock.
func (st *Store) loadUnsafe(data []byte) error {
	var snap snapshot
	if _, err := rezi.Dec(data, &snap); err != nil {
		return canetrack.NewError("decode", err, canetrack.ErrDecodingFailure)
	}

	if snap.Name != dao.StoreName {
		return canetrack.NewError(fmt.Sprintf("not a %s data file: %q", dao.StoreName, snap.Name), canetrack.ErrDecodingFailure)
	}
	if snap.Version != dao.SchemaVersion {
		return canetrack.NewError(fmt.Sprintf("unsupported data file version %d", snap.Version), canetrack.ErrDecodingFailure)
	}

	st.locations.Restore(convert(snap.Locations, func(r locationRec) dao.Location { return dao.Location(r) }), snap.LastLocationID)
	st.facilities.Restore(convert(snap.Facilities, func(r facilityRec) dao.Facility { return dao.Facility(r) }), snap.LastFacilityID)
	st.operators.Restore(convert(snap.Operators, func(r operatorRec) dao.Operator { return dao.Operator(r) }), snap.LastOperatorID)
	st.deliveries.Restore(convert(snap.Deliveries, func(r deliveryRec) dao.Delivery { return dao.Delivery(r) }), snap.LastDeliveryID)

	return nil
}

// persistUnsafe writes the entire store to DataFile. It assumes the caller has
// acquired the write lock.
func (st *Store) persistUnsafe() error {
	if st.closed {
		return fmt.Errorf("operation called on closed *Store")
	}
	if !st.initialized {
		return canetrack.NewError("store has not been initialized", canetrack.ErrStoreUnavailable)
	}

	dataBytes, err := st.exportUnsafe()
	if err != nil {
		return fmt.Errorf("get data bytes: %w", err)
	}

	return st.writeFile(st.DataFile, dataBytes)
}

// writeDataFile replaces the contents of file with data. The old file is
// copied to a backup first and restored from it if the write fails; the backup
// is removed once the new contents are on disk.
func writeDataFile(file string, data []byte) error {
	buFile, err := createFileBackup(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// no original to back up; nothing to delete later either
			buFile = ""
		} else {
			return fmt.Errorf("create backup: %w", err)
		}
	}

	if err := writeAndSync(file, data); err != nil {
		if buFile != "" {
			os.Rename(buFile, file)
		}
		return fmt.Errorf("write data file: %w", err)
	}

	if buFile != "" {
		os.Remove(buFile)
	}

	return nil
}

func writeAndSync(file string, data []byte) error {
	wf, err := os.Create(file)
	if err != nil {
		return err
	}
	defer wf.Close()

	w := bufio.NewWriter(wf)
	if _, err := w.Write(data); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := wf.Sync(); err != nil {
		return err
	}
	return wf.Close()
}

// createFileBackup makes a duplicate of file in the same location with '.bak'
// appended to its filename. Any existing backup is overwritten.
//
// returns path to new backup file and any error that occurred.
func createFileBackup(file string) (string, error) {
	backupDir := filepath.Dir(file)
	backupName := filepath.Base(file) + ".bak"

	buPath := filepath.Join(backupDir, backupName)

	rf, err := os.Open(file)
	if err != nil {
		return buPath, fmt.Errorf("open original: %w", err)
	}
	defer rf.Close()
	wf, err := os.Create(buPath)
	if err != nil {
		return buPath, fmt.Errorf("create backup: %w", err)
	}
	defer wf.Close()

	w := bufio.NewWriter(wf)

	if _, err := io.Copy(w, bufio.NewReader(rf)); err != nil {
		return buPath, fmt.Errorf("copy data to backup: %w", err)
	}
	if err := w.Flush(); err != nil {
		return buPath, fmt.Errorf("flush backup: %w", err)
	}

	return buPath, nil
}
