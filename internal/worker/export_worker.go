package worker

import (
	"context"
	"fmt"
	"log/slog"

	"stima/internal/amqp"
	"stima/internal/sheets"
	"stima/internal/storage"
)

// ExportWorker copies newly created observations from the store to a sheet.
type ExportWorker struct {
	store    sheets.ObservationGetter
	exporter sheets.RowExporter
}

func NewExportWorker(store sheets.ObservationGetter, exporter sheets.RowExporter) *ExportWorker {
	return &ExportWorker{store: store, exporter: exporter}
}

// HandleObservationCreated exports the observation named by msg. A row that
// no longer exists is skipped; any other failure is returned so the message
// is requeued.
func (w *ExportWorker) HandleObservationCreated(ctx context.Context, msg *amqp.ObservationCreatedMessage) error {
	slog.InfoContext(ctx, "Processing observation message", "id", msg.ID)

	o, err := w.store.Get(ctx, msg.ID)
	if err != nil {
		if storage.IsNotFound(err) {
			slog.WarnContext(ctx, "Observation not found, skipping export", "id", msg.ID)
			return nil
		}
		return fmt.Errorf("get observation from storage: %w", err)
	}

	if err := w.exporter.ExportObservation(ctx, o); err != nil {
		return fmt.Errorf("export observation to sheets: %w", err)
	}
	return nil
}
