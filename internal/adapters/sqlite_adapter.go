package adapters

import (
	"context"

	"stima/internal/core"
	"stima/internal/services"
	"stima/internal/storage"
)

// SQLiteAdapter sends writes through ObservationService so they are
// announced over AMQP, and serves reads straight from the repository.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.ObservationService
}

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.ObservationService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

// Append implements sheets.ObservationWriter
func (a *SQLiteAdapter) Append(ctx context.Context, o core.Observation) (core.Observation, error) {
	return a.service.CreateObservation(ctx, o)
}

// ListAll implements sheets.ObservationLister
func (a *SQLiteAdapter) ListAll(ctx context.Context) ([]core.Observation, error) {
	return a.storage.ListAll(ctx)
}

// SummarizeByCategory implements sheets.SummaryReader
func (a *SQLiteAdapter) SummarizeByCategory(ctx context.Context) (core.Summary, error) {
	return a.storage.SummarizeByCategory(ctx)
}

// SeriesForChart implements sheets.SeriesReader
func (a *SQLiteAdapter) SeriesForChart(ctx context.Context) ([]core.SeriesPoint, error) {
	return a.storage.SeriesForChart(ctx)
}

func (a *SQLiteAdapter) Count(ctx context.Context) (int64, error) {
	return a.storage.Count(ctx)
}
