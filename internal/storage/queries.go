package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DBTX is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Observation is the row shape of the observation table.
type Observation struct {
	ID       int64
	Date     SQLiteDate
	Value    float64
	Category string
	Notes    sql.NullString
}

// SQLiteDate scans a DATE column. The driver may hand back TEXT or a
// time.Time depending on how the value was written.
type SQLiteDate struct {
	time.Time
}

func (d *SQLiteDate) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	case nil:
		d.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("unsupported date type %T", src)
	}
}

func (d *SQLiteDate) parse(s string) error {
	if len(s) > len("2006-01-02") {
		s = s[:len("2006-01-02")]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

const createObservation = `-- name: CreateObservation :one
INSERT INTO observation (date, value, category, notes)
VALUES (?, ?, ?, ?)
RETURNING id, date, value, category, notes
`

type CreateObservationParams struct {
	Date     string
	Value    float64
	Category string
	Notes    string
}

func (q *Queries) CreateObservation(ctx context.Context, arg CreateObservationParams) (Observation, error) {
	row := q.db.QueryRowContext(ctx, createObservation,
		arg.Date,
		arg.Value,
		arg.Category,
		arg.Notes,
	)
	var i Observation
	err := row.Scan(
		&i.ID,
		&i.Date,
		&i.Value,
		&i.Category,
		&i.Notes,
	)
	return i, err
}

const getObservation = `-- name: GetObservation :one
SELECT id, date, value, category, notes FROM observation
WHERE id = ?
`

func (q *Queries) GetObservation(ctx context.Context, id int64) (Observation, error) {
	row := q.db.QueryRowContext(ctx, getObservation, id)
	var i Observation
	err := row.Scan(
		&i.ID,
		&i.Date,
		&i.Value,
		&i.Category,
		&i.Notes,
	)
	return i, err
}

const listObservations = `-- name: ListObservations :many
SELECT id, date, value, category, notes FROM observation
`

func (q *Queries) ListObservations(ctx context.Context) ([]Observation, error) {
	rows, err := q.db.QueryContext(ctx, listObservations)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Observation
	for rows.Next() {
		var i Observation
		if err := rows.Scan(
			&i.ID,
			&i.Date,
			&i.Value,
			&i.Category,
			&i.Notes,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listCategoryValues = `-- name: ListCategoryValues :many
SELECT category, value FROM observation
ORDER BY category, id
`

type ListCategoryValuesRow struct {
	Category string
	Value    float64
}

func (q *Queries) ListCategoryValues(ctx context.Context) ([]ListCategoryValuesRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategoryValues)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListCategoryValuesRow
	for rows.Next() {
		var i ListCategoryValuesRow
		if err := rows.Scan(&i.Category, &i.Value); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getSeriesPoints = `-- name: GetSeriesPoints :many
SELECT date, value, category FROM observation
ORDER BY date, id
`

type GetSeriesPointsRow struct {
	Date     SQLiteDate
	Value    float64
	Category string
}

func (q *Queries) GetSeriesPoints(ctx context.Context) ([]GetSeriesPointsRow, error) {
	rows, err := q.db.QueryContext(ctx, getSeriesPoints)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetSeriesPointsRow
	for rows.Next() {
		var i GetSeriesPointsRow
		if err := rows.Scan(&i.Date, &i.Value, &i.Category); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countObservations = `-- name: CountObservations :one
SELECT COUNT(*) FROM observation
`

func (q *Queries) CountObservations(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countObservations)
	var count int64
	err := row.Scan(&count)
	return count, err
}
