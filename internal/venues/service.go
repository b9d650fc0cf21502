// Package venues serves the read-only hall catalog.
package venues

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"boxoffice/internal/domain"
	"boxoffice/internal/shared/apperr"
	"boxoffice/internal/shared/constants"
	"boxoffice/internal/store"
	"boxoffice/pkg/cache"
	"boxoffice/pkg/logger"
)

type Service interface {
	GetHall(ctx context.Context, id uuid.UUID) (*domain.Hall, error)
	GetSeat(ctx context.Context, id uuid.UUID) (*domain.Seat, error)
	GetStandingSector(ctx context.Context, id uuid.UUID) (*domain.StandingSector, error)
}

type service struct {
	store store.Store
	cache cache.Service
	ttl   time.Duration
	log   *logger.Logger
}

// NewService builds the catalog. layoutTTL defaults to TTL_HALL_LAYOUT.
func NewService(st store.Store, c cache.Service, layoutTTL time.Duration, log *logger.Logger) Service {
	if c == nil {
		c = cache.NewNoop()
	}
	if layoutTTL <= 0 {
		layoutTTL = constants.TTL_HALL_LAYOUT
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{store: st, cache: c, ttl: layoutTTL, log: log}
}

// GetHall returns the full layout. Layouts never change once loaded, so the
// cache entry is only ever dropped by its TTL.
func (s *service) GetHall(ctx context.Context, id uuid.UUID) (*domain.Hall, error) {
	var hall domain.Hall
	err := s.cache.GetOrSet(ctx, constants.BuildHallLayoutKey(id), s.ttl, func() (interface{}, error) {
		var out *domain.Hall
		err := s.store.WithTx(ctx, func(tx store.Tx) error {
			var err error
			out, err = tx.GetHall(ctx, id)
			return err
		})
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("hall %s not found", id)
		}
		if err == nil {
			s.log.DebugContext(ctx, "hall layout loaded", "hall_id", id.String())
		}
		return out, err
	}, &hall)
	if err != nil {
		return nil, err
	}
	return &hall, nil
}

func (s *service) GetSeat(ctx context.Context, id uuid.UUID) (*domain.Seat, error) {
	var seat *domain.Seat
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		seats, err := tx.GetSeats(ctx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		if len(seats) == 0 {
			return apperr.NotFound("seat %s not found", id)
		}
		seat = &seats[0]
		return nil
	})
	return seat, err
}

func (s *service) GetStandingSector(ctx context.Context, id uuid.UUID) (*domain.StandingSector, error) {
	var out *domain.StandingSector
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.GetStandingSector(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("standing sector %s not found", id)
		}
		return err
	})
	return out, err
}
