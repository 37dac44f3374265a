package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"stima/internal/core"
)

// Store keeps observations in process memory. It mirrors the SQLite store:
// ids start at 1 and never repeat, rejected rows are never stored.
type Store struct {
	mu     sync.Mutex
	nextID int64
	items  []core.Observation
}

func New() *Store {
	return &Store{nextID: 1}
}

// NewFromFiles seeds the store from base/seed_observations.csv when present.
// Malformed or invalid lines are skipped.
func NewFromFiles(base string) *Store {
	s := New()
	for _, o := range readSeed(filepath.Join(base, "seed_observations.csv")) {
		if _, err := s.Append(context.Background(), o); err != nil {
			slog.Warn("Skipping seed observation", "error", err)
		}
	}
	return s
}

// Append validates o and stores a copy with the next id.
func (s *Store) Append(_ context.Context, o core.Observation) (core.Observation, error) {
	if err := o.Validate(); err != nil {
		return core.Observation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = s.nextID
	s.nextID++
	s.items = append(s.items, o)
	return o, nil
}

func (s *Store) Get(_ context.Context, id int64) (core.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.items {
		if o.ID == id {
			return o, nil
		}
	}
	return core.Observation{}, core.NewError(core.KindPersistence, "get observation",
		strconv.FormatInt(id, 10), errors.New("observation not found"))
}

func (s *Store) ListAll(_ context.Context) ([]core.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Observation{}, s.items...), nil
}

func (s *Store) SummarizeByCategory(ctx context.Context) (core.Summary, error) {
	items, _ := s.ListAll(ctx)
	return core.Summarize(items), nil
}

func (s *Store) SeriesForChart(ctx context.Context) ([]core.SeriesPoint, error) {
	items, _ := s.ListAll(ctx)
	return core.Series(items), nil
}

func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.items)), nil
}

// readSeed parses date,value,category[,notes] lines. A header row and lines
// starting with # are ignored.
func readSeed(path string) []core.Observation {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.Comment = '#'
	r.TrimLeadingSpace = true

	var out []core.Observation
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Warn("Skipping unreadable seed line", "line", line, "error", err)
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "date") {
			continue
		}
		o, err := parseSeedRecord(rec)
		if err != nil {
			slog.Warn("Skipping seed line", "line", line, "error", err)
			continue
		}
		out = append(out, o)
	}
	return out
}

func parseSeedRecord(rec []string) (core.Observation, error) {
	if len(rec) < 3 {
		return core.Observation{}, fmt.Errorf("expected at least 3 fields, got %d", len(rec))
	}
	d, err := core.ParseDate(rec[0])
	if err != nil {
		return core.Observation{}, fmt.Errorf("date: %w", err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
	if err != nil {
		return core.Observation{}, fmt.Errorf("value: %w", err)
	}
	o := core.Observation{Date: d, Value: v, Category: core.Category(strings.TrimSpace(rec[2]))}
	if len(rec) > 3 {
		o.Notes = strings.TrimSpace(rec[3])
	}
	return o, nil
}
