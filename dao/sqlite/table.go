package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/canetrack/canetrack"
	"github.com/canetrack/canetrack/dao"
)

// Timestamp is a time.Time variation that stores itself in the DB as the number
// of nanoseconds since the Unix epoch. Scanned values are in UTC.
type Timestamp time.Time

func (ts Timestamp) Value() (driver.Value, error) {
	return time.Time(ts).UnixNano(), nil
}

func (ts *Timestamp) Scan(value interface{}) error {
	iVal, ok := value.(int64)
	if !ok {
		return canetrack.NewError(fmt.Sprintf("not an integer value: %v", value), canetrack.ErrDecodingFailure)
	}

	*ts = Timestamp(time.Unix(0, iVal).UTC())
	return nil
}

func (ts Timestamp) Time() time.Time {
	return time.Time(ts)
}

type scanner interface {
	Scan(dest ...any) error
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// table is a dao.Repo over one SQLite table. Every table has an autoincrement
// id column followed by its model columns and the created and modified
// timestamps; scan must read them in that order.
type table[M dao.Model[M]] struct {
	db      *sql.DB
	name    dao.Collection
	columns []string
	values  func(M) []any
	scan    func(scanner) (M, error)
	now     func() time.Time
}

func (t *table[M]) selectCols() string {
	return "id, " + strings.Join(t.columns, ", ") + ", created, modified"
}

func (t *table[M]) insert(ctx context.Context, ex execer, m M, now time.Time) (M, error) {
	var zero M

	placeholders := strings.Repeat("?, ", len(t.columns)+2)
	placeholders = strings.TrimSuffix(placeholders, ", ")

	stmt := fmt.Sprintf(`INSERT INTO %s (%s, created, modified) VALUES (%s);`, t.name, strings.Join(t.columns, ", "), placeholders)
	args := append(t.values(m), Timestamp(now), Timestamp(now))

	res, err := ex.ExecContext(ctx, stmt, args...)
	if err != nil {
		return zero, WrapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return zero, WrapDBError(err)
	}

	return m.Stamp(id, now, now), nil
}

func (t *table[M]) get(ctx context.Context, ex execer, id int64) (M, error) {
	row := ex.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?;`, t.selectCols(), t.name), id)
	m, err := t.scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return m, canetrack.NewError(fmt.Sprintf("%s: %d", t.name, id), canetrack.ErrNotFound)
		}
		return m, WrapDBError(err)
	}
	return m, nil
}

func (t *table[M]) Create(ctx context.Context, m M) (M, error) {
	var zero M

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, canetrack.WrapWriteError(WrapDBError(err), fmt.Sprintf("%s: begin create", t.name))
	}
	defer tx.Rollback()

	created, err := t.insert(ctx, tx, m, t.now())
	if err != nil {
		return zero, canetrack.WrapWriteError(err, fmt.Sprintf("%s: create", t.name))
	}

	if err := tx.Commit(); err != nil {
		return zero, canetrack.WrapWriteError(WrapDBError(err), fmt.Sprintf("%s: commit create", t.name))
	}

	return created, nil
}

func (t *table[M]) Get(ctx context.Context, id int64) (M, error) {
	return t.get(ctx, t.db, id)
}

func (t *table[M]) GetAll(ctx context.Context) ([]M, error) {
	rows, err := t.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM %s ORDER BY id;`, t.selectCols(), t.name))
	if err != nil {
		return nil, canetrack.WrapUnavailable(WrapDBError(err), fmt.Sprintf("%s: read all", t.name))
	}
	defer rows.Close()

	all := []M{}

	for rows.Next() {
		m, err := t.scan(rows)
		if err != nil {
			return nil, canetrack.WrapUnavailable(WrapDBError(err), fmt.Sprintf("%s: read all", t.name))
		}
		all = append(all, m)
	}

	if err := rows.Err(); err != nil {
		return all, canetrack.WrapUnavailable(WrapDBError(err), fmt.Sprintf("%s: read all", t.name))
	}

	return all, nil
}

func (t *table[M]) Update(ctx context.Context, id int64, p dao.Patch[M]) (M, error) {
	var zero M

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, canetrack.WrapWriteError(WrapDBError(err), fmt.Sprintf("%s: begin update", t.name))
	}
	defer tx.Rollback()

	existing, err := t.get(ctx, tx, id)
	if err != nil {
		return zero, err
	}

	now := t.now()
	updated := p.Apply(existing).Stamp(id, existing.CreatedAt(), now)

	sets := make([]string, len(t.columns))
	for i := range t.columns {
		sets[i] = t.columns[i] + "=?"
	}

	// deliberately not updating created
	stmt := fmt.Sprintf(`UPDATE %s SET %s, modified=? WHERE id=?;`, t.name, strings.Join(sets, ", "))
	args := append(t.values(updated), Timestamp(now), id)

	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return zero, canetrack.WrapWriteError(WrapDBError(err), fmt.Sprintf("%s: update %d", t.name, id))
	}
	rowsAff, err := res.RowsAffected()
	if err != nil {
		return zero, canetrack.WrapWriteError(WrapDBError(err), fmt.Sprintf("%s: update %d", t.name, id))
	}
	if rowsAff < 1 {
		return zero, canetrack.NewError(fmt.Sprintf("%s: %d", t.name, id), canetrack.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return zero, canetrack.WrapWriteError(WrapDBError(err), fmt.Sprintf("%s: commit update %d", t.name, id))
	}

	return updated, nil
}

func (t *table[M]) Delete(ctx context.Context, id int64) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return canetrack.WrapWriteError(WrapDBError(err), fmt.Sprintf("%s: begin delete", t.name))
	}
	defer tx.Rollback()

	// a delete that matches no row is not an error
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?;`, t.name), id); err != nil {
		return canetrack.WrapWriteError(WrapDBError(err), fmt.Sprintf("%s: delete %d", t.name, id))
	}

	if err := tx.Commit(); err != nil {
		return canetrack.WrapWriteError(WrapDBError(err), fmt.Sprintf("%s: commit delete %d", t.name, id))
	}

	return nil
}

// Close is a no-op; the database handle is owned by the Store.
func (t *table[M]) Close() error {
	return nil
}

func scanLocation(s scanner) (dao.Location, error) {
	var l dao.Location
	var created, modified Timestamp
	err := s.Scan(&l.ID, &l.Name, &created, &modified)
	l.Created = created.Time()
	l.Modified = modified.Time()
	return l, err
}

func scanFacility(s scanner) (dao.Facility, error) {
	var f dao.Facility
	var created, modified Timestamp
	err := s.Scan(&f.ID, &f.Name, &f.TransportUnitPrice, &created, &modified)
	f.Created = created.Time()
	f.Modified = modified.Time()
	return f, err
}

func scanOperator(s scanner) (dao.Operator, error) {
	var o dao.Operator
	var created, modified Timestamp
	err := s.Scan(&o.ID, &o.Name, &o.VehicleIdentifier, &created, &modified)
	o.Created = created.Time()
	o.Modified = modified.Time()
	return o, err
}

func scanDelivery(s scanner) (dao.Delivery, error) {
	var d dao.Delivery
	var date, created, modified Timestamp
	err := s.Scan(
		&d.ID,
		&d.LocationID,
		&d.FacilityID,
		&d.OperatorID,
		&date,
		&d.Weight,
		&d.UnitPrice,
		&d.HarvestUnitPrice,
		&d.HarvestCost,
		&d.TransportCost,
		&d.GrossAmount,
		&d.NetAmount,
		&created,
		&modified,
	)
	d.DeliveryDate = date.Time()
	d.Created = created.Time()
	d.Modified = modified.Time()
	return d, err
}
