package sheets

import (
	"context"

	"stima/internal/core"
)

// Ports for outbound adapters.
type (
	ObservationWriter interface {
		// Append validates and stores o, returning it with its assigned id.
		Append(ctx context.Context, o core.Observation) (core.Observation, error)
	}

	ObservationLister interface {
		ListAll(ctx context.Context) ([]core.Observation, error)
	}

	ObservationGetter interface {
		Get(ctx context.Context, id int64) (core.Observation, error)
	}

	// SummaryReader provides per-category aggregates.
	SummaryReader interface {
		SummarizeByCategory(ctx context.Context) (core.Summary, error)
	}

	SeriesReader interface {
		SeriesForChart(ctx context.Context) ([]core.SeriesPoint, error)
	}

	// RowExporter copies a stored observation to an external sheet.
	RowExporter interface {
		ExportObservation(ctx context.Context, o core.Observation) error
	}
)
