package inmem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/canetrack/canetrack"
	"github.com/canetrack/canetrack/dao"
	"github.com/canetrack/canetrack/internal/sortby"
)

// CommitFunc is called by a Repo after it has applied a mutation in memory and
// while it still holds the write lock. If it returns an error, the mutation is
// undone and the caller receives an error wrapping canetrack.ErrWriteFailed.
type CommitFunc func(ctx context.Context) error

// Repo is an in-memory dao.Repo for one collection. It keeps a counter of the
// last assigned ID so that IDs are never reused, even after deletes.
//
// The lock guarding a Repo is supplied by its owner so that several Repos can
// share one. Its zero-value should not be used; call NewRepo.
type Repo[M dao.Model[M]] struct {
	coll   dao.Collection
	mtx    *sync.RWMutex
	rows   map[int64]M
	lastID int64
	commit CommitFunc

	// now is replaced in tests.
	now func() time.Time
}

// NewRepo creates a new empty Repo guarded by mtx. If commit is non-nil, it is
// called after every mutation.
func NewRepo[M dao.Model[M]](coll dao.Collection, mtx *sync.RWMutex, commit CommitFunc) *Repo[M] {
	return &Repo[M]{
		coll:   coll,
		mtx:    mtx,
		rows:   make(map[int64]M),
		commit: commit,
		now:    time.Now,
	}
}

func (r *Repo[M]) Close() error {
	return nil
}

func (r *Repo[M]) Create(ctx context.Context, m M) (M, error) {
	var zero M
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	prevID := r.lastID
	created := r.Insert(m, r.now())

	if err := r.runCommit(ctx); err != nil {
		delete(r.rows, created.ModelID())
		r.lastID = prevID
		return zero, canetrack.WrapWriteError(err, fmt.Sprintf("%s: create", r.coll))
	}

	return created, nil
}

func (r *Repo[M]) Get(ctx context.Context, id int64) (M, error) {
	var zero M
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	r.mtx.RLock()
	defer r.mtx.RUnlock()

	m, ok := r.rows[id]
	if !ok {
		return zero, canetrack.NewError(fmt.Sprintf("%s: %d", r.coll, id), canetrack.ErrNotFound)
	}
	return m, nil
}

func (r *Repo[M]) GetAll(ctx context.Context) ([]M, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return r.Records(), nil
}

func (r *Repo[M]) Update(ctx context.Context, id int64, p dao.Patch[M]) (M, error) {
	var zero M
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	existing, ok := r.rows[id]
	if !ok {
		return zero, canetrack.NewError(fmt.Sprintf("%s: %d", r.coll, id), canetrack.ErrNotFound)
	}

	// the patch may not touch identity, so restamp with the existing values
	updated := p.Apply(existing).Stamp(id, existing.CreatedAt(), r.now())
	r.rows[id] = updated

	if err := r.runCommit(ctx); err != nil {
		r.rows[id] = existing
		return zero, canetrack.WrapWriteError(err, fmt.Sprintf("%s: update %d", r.coll, id))
	}

	return updated, nil
}

func (r *Repo[M]) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	existing, ok := r.rows[id]
	if !ok {
		return nil
	}
	delete(r.rows, id)

	if err := r.runCommit(ctx); err != nil {
		r.rows[id] = existing
		return canetrack.WrapWriteError(err, fmt.Sprintf("%s: delete %d", r.coll, id))
	}

	return nil
}

func (r *Repo[M]) runCommit(ctx context.Context) error {
	if r.commit == nil {
		return nil
	}
	return r.commit(ctx)
}

// Insert adds m under the next ID with both timestamps set to now and returns
// the stored record. It does not call the commit function. The caller must hold
// the write lock.
func (r *Repo[M]) Insert(m M, now time.Time) M {
	r.lastID++
	stored := m.Stamp(r.lastID, now, now)
	r.rows[r.lastID] = stored
	return stored
}

// Records returns every record in ascending ID order. The caller must hold at
// least the read lock.
func (r *Repo[M]) Records() []M {
	all := make([]M, 0, len(r.rows))
	for _, m := range r.rows {
		all = append(all, m)
	}

	return sortby.By(all, func(left, right M) bool {
		return left.ModelID() < right.ModelID()
	})
}

// LastID returns the last ID assigned by the Repo. The caller must hold at
// least the read lock.
func (r *Repo[M]) LastID() int64 {
	return r.lastID
}

// Restore replaces the contents of the Repo with records and sets its ID
// counter. If lastID is lower than the highest ID in records, the highest ID is
// used instead. The caller must hold the write lock.
func (r *Repo[M]) Restore(records []M, lastID int64) {
	r.rows = make(map[int64]M, len(records))
	for _, m := range records {
		r.rows[m.ModelID()] = m
		if m.ModelID() > lastID {
			lastID = m.ModelID()
		}
	}
	r.lastID = lastID
}
