package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"stima/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the durable observation store. It keeps only a pool
// handle; every operation checks out its own connection and returns it
// before the call ends.
type SQLiteRepository struct {
	db   *sql.DB
	path string
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// No idle connections: the file handle is released after each operation.
	db.SetMaxIdleConns(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &SQLiteRepository{db: db, path: dbPath}
	if err := repo.EnsureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

// EnsureSchema creates the observation table if it is missing.
func (r *SQLiteRepository) EnsureSchema() error {
	if err := RunMigrations(r.path); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// withConn runs fn on a dedicated connection and releases it afterwards.
func (r *SQLiteRepository) withConn(ctx context.Context, fn func(q *Queries) error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()
	return fn(New(conn))
}

// Append validates o and inserts it, returning the stored observation with
// its new id.
func (r *SQLiteRepository) Append(ctx context.Context, o core.Observation) (core.Observation, error) {
	if err := o.Validate(); err != nil {
		return core.Observation{}, err
	}

	var row Observation
	err := r.withConn(ctx, func(q *Queries) error {
		var err error
		row, err = q.CreateObservation(ctx, CreateObservationParams{
			Date:     o.Date.String(),
			Value:    o.Value,
			Category: string(o.Category),
			Notes:    o.Notes,
		})
		return err
	})
	if err != nil {
		return core.Observation{}, core.NewError(core.KindPersistence, "append observation", "", err)
	}

	saved := toCore(row)
	slog.InfoContext(ctx, "Observation saved to SQLite",
		"id", saved.ID,
		"date", saved.Date.String(),
		"value", saved.Value,
		"category", saved.Category)

	return saved, nil
}

// Get returns a single observation by id.
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.Observation, error) {
	var row Observation
	err := r.withConn(ctx, func(q *Queries) error {
		var err error
		row, err = q.GetObservation(ctx, id)
		return err
	})
	if err != nil {
		return core.Observation{}, core.NewError(core.KindPersistence, "get observation", strconv.FormatInt(id, 10), err)
	}
	return toCore(row), nil
}

// ListAll returns every observation. Order is not guaranteed.
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Observation, error) {
	var rows []Observation
	err := r.withConn(ctx, func(q *Queries) error {
		var err error
		rows, err = q.ListObservations(ctx)
		return err
	})
	if err != nil {
		return nil, core.NewError(core.KindPersistence, "list observations", "", err)
	}

	out := make([]core.Observation, len(rows))
	for i, row := range rows {
		out[i] = toCore(row)
	}
	return out, nil
}

// SummarizeByCategory returns sum, mean and count per category, rounded to
// two decimals. Values are summed exactly with core.Summarize rather than
// with SQL SUM so both store backends round the same totals.
func (r *SQLiteRepository) SummarizeByCategory(ctx context.Context) (core.Summary, error) {
	var rows []ListCategoryValuesRow
	err := r.withConn(ctx, func(q *Queries) error {
		var err error
		rows, err = q.ListCategoryValues(ctx)
		return err
	})
	if err != nil {
		return nil, core.NewError(core.KindPersistence, "summarize observations", "", err)
	}

	items := make([]core.Observation, len(rows))
	for i, row := range rows {
		items[i] = core.Observation{Category: core.Category(row.Category), Value: row.Value}
	}
	return core.Summarize(items), nil
}

// SeriesForChart returns raw (date, value, category) points in date order.
func (r *SQLiteRepository) SeriesForChart(ctx context.Context) ([]core.SeriesPoint, error) {
	var rows []GetSeriesPointsRow
	err := r.withConn(ctx, func(q *Queries) error {
		var err error
		rows, err = q.GetSeriesPoints(ctx)
		return err
	})
	if err != nil {
		return nil, core.NewError(core.KindPersistence, "series observations", "", err)
	}

	out := make([]core.SeriesPoint, len(rows))
	for i, row := range rows {
		out[i] = core.SeriesPoint{
			Date:     core.Date{Time: row.Date.Time},
			Value:    row.Value,
			Category: core.Category(row.Category),
		}
	}
	return out, nil
}

// Count returns the number of stored observations.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.withConn(ctx, func(q *Queries) error {
		var err error
		n, err = q.CountObservations(ctx)
		return err
	})
	if err != nil {
		return 0, core.NewError(core.KindPersistence, "count observations", "", err)
	}
	return n, nil
}

// IsNotFound reports whether err came from a lookup of a missing id.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func toCore(row Observation) core.Observation {
	return core.Observation{
		ID:       row.ID,
		Date:     core.Date{Time: row.Date.Time},
		Value:    row.Value,
		Category: core.Category(row.Category),
		Notes:    row.Notes.String,
	}
}
