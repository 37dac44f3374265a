package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"stima/internal/core"
)

// Store is the durable side of the service.
type Store interface {
	Append(ctx context.Context, o core.Observation) (core.Observation, error)
	Close() error
}

// Publisher announces stored observations to downstream consumers.
type Publisher interface {
	PublishObservationCreated(ctx context.Context, id int64) error
	Close() error
}

// ObservationService stores observations and announces them. The store is
// authoritative; a failed announcement never fails the request.
type ObservationService struct {
	store     Store
	publisher Publisher
}

func NewObservationService(store Store, publisher Publisher) *ObservationService {
	return &ObservationService{store: store, publisher: publisher}
}

// CreateObservation validates o, saves it and publishes an observation.created message.
func (s *ObservationService) CreateObservation(ctx context.Context, o core.Observation) (core.Observation, error) {
	if err := o.Validate(); err != nil {
		return core.Observation{}, err
	}
	if s.store == nil {
		return core.Observation{}, core.NewError(core.KindPersistence, "create observation", "",
			errors.New("store not configured"))
	}

	saved, err := s.store.Append(ctx, o)
	if err != nil {
		return core.Observation{}, err
	}

	if err := s.publish(ctx, saved.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish observation created message",
			"id", saved.ID, "error", err)
	}
	return saved, nil
}

func (s *ObservationService) publish(ctx context.Context, id int64) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping observation message")
		return nil
	}
	return s.publisher.PublishObservationCreated(ctx, id)
}

// Close closes both storage and AMQP connections.
func (s *ObservationService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close observation service: %w", errors.Join(errs...))
	}
	return nil
}
