// Package tracker keeps an in-memory, enriched snapshot of a dao.Store and
// exposes the mutating operations presentation code uses on it.
//
// Every mutation goes to the store first and is then followed by a full reload
// of all four collections, so that once a mutating call has returned
// successfully the snapshot reflects it and every mutation before it.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/canetrack/canetrack"
	"github.com/canetrack/canetrack/dao"
	"github.com/canetrack/canetrack/finance"
	"github.com/canetrack/canetrack/logging"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ErrNotReady is returned by mutating operations when the Tracker has not been
// started or its initialization failed.
var ErrNotReady = errors.New("tracker is not ready")

// State is the lifecycle state of a Tracker.
type State int

const (
	// Loading means the snapshot must not be trusted yet. A Tracker is Loading
	// until Start completes and again for the duration of every refresh.
	Loading State = iota

	// Ready means the snapshot reflects the store as of the last refresh.
	Ready

	// Failed means initialization failed. It is terminal.
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// EnrichedDelivery is a Delivery with fields copied from the entities it
// references. A joined field is nil when the referenced entity does not exist.
type EnrichedDelivery struct {
	dao.Delivery

	LocationName       *string          `json:"locationName,omitempty"`
	FacilityName       *string          `json:"facilityName,omitempty"`
	TransportUnitPrice *decimal.Decimal `json:"transportUnitPrice,omitempty"`
	OperatorName       *string          `json:"operatorName,omitempty"`
	VehicleIdentifier  *string          `json:"vehicleIdentifier,omitempty"`
}

// Snapshot is a consistent copy of everything a Tracker holds.
type Snapshot struct {
	Locations  []dao.Location     `json:"locations"`
	Facilities []dao.Facility     `json:"facilities"`
	Operators  []dao.Operator     `json:"operators"`
	Deliveries []dao.Delivery     `json:"deliveries"`
	Enriched   []EnrichedDelivery `json:"enriched"`

	// Refreshed is when the data was last loaded from the store.
	Refreshed time.Time `json:"refreshed"`
}

// Tracker is the synchronization layer between a dao.Store and presentation
// code. Create one with New and call Start before using it.
//
// All mutating operations and refreshes are serialized. Read operations never
// block on a refresh; they return the last loaded data, and callers that care
// check Loading.
type Tracker struct {
	store dao.Store
	log   logging.Logger

	// opMtx serializes Start, Refresh and all mutations.
	opMtx sync.Mutex

	// mtx guards everything below it.
	mtx      sync.RWMutex
	started  bool
	state    State
	err      error
	snap     Snapshot
	rates    map[int64]decimal.Decimal
	vehicles map[int64]string
}

// New creates a Tracker over store. If log is nil, nothing is logged.
func New(store dao.Store, log logging.Logger) *Tracker {
	if log == nil {
		log = logging.NoOpLogger{}
	}

	return &Tracker{
		store:    store,
		log:      log,
		state:    Loading,
		rates:    map[int64]decimal.Decimal{},
		vehicles: map[int64]string{},
	}
}

// Start initializes the store and performs the first refresh. On success the
// Tracker is Ready. If either step fails, the Tracker moves to the terminal
// Failed state, Err returns the cause, and every later mutation fails with
// ErrNotReady.
//
// Calling Start again after it has returned has no effect and returns the
// error of the first call.
func (t *Tracker) Start(ctx context.Context) error {
	t.opMtx.Lock()
	defer t.opMtx.Unlock()

	t.mtx.Lock()
	if t.started {
		err := t.err
		t.mtx.Unlock()
		return err
	}
	t.started = true
	t.mtx.Unlock()

	t.log.Debug("initializing store")
	if err := t.store.Initialize(ctx); err != nil {
		t.fail(err)
		return err
	}

	if err := t.load(ctx); err != nil {
		t.fail(err)
		return err
	}
	t.setState(Ready)

	t.log.Infof("tracker ready: %d locations, %d facilities, %d operators, %d deliveries",
		len(t.snap.Locations), len(t.snap.Facilities), len(t.snap.Operators), len(t.snap.Deliveries))
	return nil
}

func (t *Tracker) fail(err error) {
	t.log.Errorf("tracker initialization failed: %s", err)

	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.state = Failed
	t.err = err
}

// Refresh reloads all four collections from the store and rebuilds the
// enriched deliveries. While it runs, State reports Loading. If it fails, the
// previous snapshot is kept and the Tracker goes back to Ready.
func (t *Tracker) Refresh(ctx context.Context) error {
	t.opMtx.Lock()
	defer t.opMtx.Unlock()

	if err := t.usable(); err != nil {
		return err
	}

	return t.refreshUnsafe(ctx)
}

// refreshUnsafe does the work of Refresh. The caller must hold opMtx.
func (t *Tracker) refreshUnsafe(ctx context.Context) error {
	t.setState(Loading)
	defer t.setState(Ready)

	if err := t.load(ctx); err != nil {
		t.log.Warnf("refresh failed, keeping previous snapshot: %s", err)
		return err
	}
	return nil
}

// load reads all four collections and replaces the snapshot with them. The
// snapshot is left untouched if any read fails. The caller must hold opMtx.
func (t *Tracker) load(ctx context.Context) error {
	var (
		locs []dao.Location
		facs []dao.Facility
		ops  []dao.Operator
		dels []dao.Delivery
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		locs, err = t.store.Locations().GetAll(gCtx)
		return err
	})
	g.Go(func() (err error) {
		facs, err = t.store.Facilities().GetAll(gCtx)
		return err
	})
	g.Go(func() (err error) {
		ops, err = t.store.Operators().GetAll(gCtx)
		return err
	})
	g.Go(func() (err error) {
		dels, err = t.store.Deliveries().GetAll(gCtx)
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	rates := make(map[int64]decimal.Decimal, len(facs))
	vehicles := make(map[int64]string, len(ops))
	snap := Snapshot{
		Locations:  locs,
		Facilities: facs,
		Operators:  ops,
		Deliveries: dels,
		Enriched:   Enrich(dels, locs, facs, ops),
		Refreshed:  time.Now(),
	}
	for _, f := range facs {
		rates[f.ID] = f.TransportUnitPrice
	}
	for _, o := range ops {
		vehicles[o.ID] = o.VehicleIdentifier
	}

	t.mtx.Lock()
	t.snap = snap
	t.rates = rates
	t.vehicles = vehicles
	t.mtx.Unlock()

	t.log.Tracef("loaded snapshot: %d deliveries", len(dels))
	return nil
}

func (t *Tracker) setState(s State) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	// Failed is terminal
	if t.state != Failed {
		t.state = s
	}
}

// usable returns an error wrapping ErrNotReady if the Tracker has not been
// started or has failed.
func (t *Tracker) usable() error {
	t.mtx.RLock()
	defer t.mtx.RUnlock()

	if !t.started {
		return canetrack.NewError("tracker has not been started", ErrNotReady)
	}
	if t.state == Failed {
		return canetrack.NewError("tracker initialization failed", ErrNotReady, t.err)
	}
	return nil
}

// Enrich joins each delivery with the named entities it references. It is the
// pure function behind the enriched view; deliveries whose references do not
// resolve get nil joined fields.
func Enrich(dels []dao.Delivery, locs []dao.Location, facs []dao.Facility, ops []dao.Operator) []EnrichedDelivery {
	locByID := make(map[int64]dao.Location, len(locs))
	for _, l := range locs {
		locByID[l.ID] = l
	}
	facByID := make(map[int64]dao.Facility, len(facs))
	for _, f := range facs {
		facByID[f.ID] = f
	}
	opByID := make(map[int64]dao.Operator, len(ops))
	for _, o := range ops {
		opByID[o.ID] = o
	}

	enriched := make([]EnrichedDelivery, len(dels))
	for i, d := range dels {
		ed := EnrichedDelivery{Delivery: d}

		if l, ok := locByID[d.LocationID]; ok {
			name := l.Name
			ed.LocationName = &name
		}
		if f, ok := facByID[d.FacilityID]; ok {
			name := f.Name
			rate := f.TransportUnitPrice
			ed.FacilityName = &name
			ed.TransportUnitPrice = &rate
		}
		if o, ok := opByID[d.OperatorID]; ok {
			name := o.Name
			vehicle := o.VehicleIdentifier
			ed.OperatorName = &name
			ed.VehicleIdentifier = &vehicle
		}

		enriched[i] = ed
	}

	return enriched
}

// State returns the current lifecycle state.
func (t *Tracker) State() State {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return t.state
}

// Loading returns whether the snapshot should not be trusted yet. It is true
// for any state other than Ready.
func (t *Tracker) Loading() bool {
	return t.State() != Ready
}

// Err returns the error that moved the Tracker to Failed, or nil.
func (t *Tracker) Err() error {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return t.err
}

// Snapshot returns a copy of all data currently held.
func (t *Tracker) Snapshot() Snapshot {
	t.mtx.RLock()
	defer t.mtx.RUnlock()

	return Snapshot{
		Locations:  copyOf(t.snap.Locations),
		Facilities: copyOf(t.snap.Facilities),
		Operators:  copyOf(t.snap.Operators),
		Deliveries: copyOf(t.snap.Deliveries),
		Enriched:   copyOf(t.snap.Enriched),
		Refreshed:  t.snap.Refreshed,
	}
}

// Locations returns a copy of the locations in the current snapshot.
func (t *Tracker) Locations() []dao.Location {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return copyOf(t.snap.Locations)
}

// Facilities returns a copy of the facilities in the current snapshot.
func (t *Tracker) Facilities() []dao.Facility {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return copyOf(t.snap.Facilities)
}

// Operators returns a copy of the operators in the current snapshot.
func (t *Tracker) Operators() []dao.Operator {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return copyOf(t.snap.Operators)
}

// Deliveries returns a copy of the raw deliveries in the current snapshot.
func (t *Tracker) Deliveries() []dao.Delivery {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return copyOf(t.snap.Deliveries)
}

// Enriched returns a copy of the enriched deliveries of the current snapshot.
func (t *Tracker) Enriched() []EnrichedDelivery {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return copyOf(t.snap.Enriched)
}

// TransportUnitPrice returns the transport unit price of the facility with the
// given ID in the current snapshot, or zero if there is no such facility.
func (t *Tracker) TransportUnitPrice(facilityID int64) decimal.Decimal {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return t.rates[facilityID]
}

// VehicleIdentifier returns the vehicle identifier of the operator with the
// given ID in the current snapshot, or "" if there is no such operator.
func (t *Tracker) VehicleIdentifier(operatorID int64) string {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return t.vehicles[operatorID]
}

// PriceDelivery returns d with its derived financial fields computed from its
// weight and prices and the cached transport unit price of its facility.
func (t *Tracker) PriceDelivery(d dao.Delivery) dao.Delivery {
	return price(d, t.TransportUnitPrice(d.FacilityID))
}

func price(d dao.Delivery, transportUnitPrice decimal.Decimal) dao.Delivery {
	fig := finance.Calculate(finance.Inputs{
		Weight:             d.Weight,
		UnitPrice:          d.UnitPrice,
		HarvestUnitPrice:   d.HarvestUnitPrice,
		TransportUnitPrice: transportUnitPrice,
	})

	d.HarvestCost = fig.HarvestCost
	d.TransportCost = fig.TransportCost
	d.GrossAmount = fig.GrossAmount
	d.NetAmount = fig.NetAmount
	return d
}

// copyOf returns a copy of sl that shares no backing array with it. A nil sl
// gives an empty, non-nil slice.
func copyOf[E any](sl []E) []E {
	out := make([]E, len(sl))
	copy(out, sl)
	return out
}
