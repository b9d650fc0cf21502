// Package shows manages events, scheduled shows and their sector pricing.
package shows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"boxoffice/internal/domain"
	"boxoffice/internal/ledger"
	"boxoffice/internal/shared/apperr"
	"boxoffice/internal/shared/constants"
	"boxoffice/internal/store"
	"boxoffice/pkg/cache"
	"boxoffice/pkg/logger"
)

var validate = validator.New()

type Service interface {
	CreateEvent(ctx context.Context, in CreateEventInput) (*domain.Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error)
	CreateShow(ctx context.Context, in CreateShowInput) (*domain.Show, error)
	GetShow(ctx context.Context, id uuid.UUID) (*domain.Show, error)
	DeleteShow(ctx context.Context, id uuid.UUID) error
	Availability(ctx context.Context, id uuid.UUID) (*ledger.Availability, error)
}

type CreateEventInput struct {
	Name        string `validate:"required,min=3,max=200"`
	Description string `validate:"max=2000"`
}

type CreateShowInput struct {
	EventID  *uuid.UUID
	HallID   uuid.UUID    `validate:"required"`
	Title    string       `validate:"required,min=1,max=200"`
	StartsAt time.Time    `validate:"required"`
	Prices   []PriceInput `validate:"required,min=1,max=64,dive"`
}

// PriceInput prices exactly one sector or standing sector of the hall.
type PriceInput struct {
	SectorID         *uuid.UUID
	StandingSectorID *uuid.UUID
	Price            string `validate:"required,numeric"`
}

type Config struct {
	Store  store.Store
	Cache  cache.Service
	Ledger *ledger.Ledger
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	store  store.Store
	cache  cache.Service
	ledger *ledger.Ledger
	log    *logger.Logger
	now    func() time.Time
}

func NewService(cfg Config) Service {
	s := &service{
		store:  cfg.Store,
		cache:  cfg.Cache,
		ledger: cfg.Ledger,
		log:    cfg.Logger,
		now:    cfg.Now,
	}
	if s.cache == nil {
		s.cache = cache.NewNoop()
	}
	if s.log == nil {
		s.log = logger.GetDefault()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.ledger == nil {
		s.ledger = ledger.New(ledger.Config{Store: cfg.Store, Cache: s.cache, Logger: s.log})
	}
	return s
}

func (s *service) CreateEvent(ctx context.Context, in CreateEventInput) (*domain.Event, error) {
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	now := s.now()
	e := &domain.Event{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		return tx.CreateEvent(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoWithContext(ctx, "event created", map[string]interface{}{"event_id": e.ID.String()})
	return e, nil
}

func (s *service) GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	var out *domain.Event
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.GetEvent(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("event %s not found", id)
		}
		return err
	})
	return out, err
}

// CreateShow prices sectors of the hall for one performance. Prices are
// rounded here, once. The capacity is the number of seats in priced sectors
// plus the capacity of priced standing sectors.
func (s *service) CreateShow(ctx context.Context, in CreateShowInput) (*domain.Show, error) {
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	now := s.now()
	show := &domain.Show{
		ID:        uuid.New(),
		EventID:   in.EventID,
		HallID:    in.HallID,
		Title:     strings.TrimSpace(in.Title),
		StartsAt:  in.StartsAt.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if in.EventID != nil {
			if _, err := tx.GetEvent(ctx, *in.EventID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return apperr.NotFound("event %s not found", *in.EventID)
				}
				return err
			}
		}
		hall, err := tx.GetHall(ctx, in.HallID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("hall %s not found", in.HallID)
			}
			return err
		}
		if err := priceShow(show, hall, in.Prices); err != nil {
			return err
		}
		return tx.CreateShow(ctx, show)
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoWithContext(ctx, "show created", map[string]interface{}{
		"show_id":  show.ID.String(),
		"hall_id":  show.HallID.String(),
		"capacity": show.Capacity,
	})
	return show, nil
}

func priceShow(show *domain.Show, hall *domain.Hall, prices []PriceInput) error {
	seen := make(map[uuid.UUID]bool, len(prices))
	for i, in := range prices {
		price, err := decimal.NewFromString(in.Price)
		if err != nil {
			return apperr.Validation("price %d: %q is not a number", i, in.Price)
		}
		p := domain.ShowSectorPricing{
			ID:               uuid.New(),
			ShowID:           show.ID,
			Position:         i,
			SectorID:         in.SectorID,
			StandingSectorID: in.StandingSectorID,
			Price:            domain.RoundPrice(price),
		}
		if err := p.Validate(); err != nil {
			return err
		}

		target := p.StandingSectorID
		if p.SectorID != nil {
			target = p.SectorID
			sec, ok := hall.FindSector(*p.SectorID)
			if !ok {
				return apperr.Validation("sector %s is not part of hall %s", *p.SectorID, hall.ID)
			}
			show.Capacity += len(sec.Seats)
		} else {
			ss, ok := hall.FindStandingSector(*p.StandingSectorID)
			if !ok {
				return apperr.Validation("standing sector %s is not part of hall %s", *p.StandingSectorID, hall.ID)
			}
			show.Capacity += ss.Capacity
		}
		if seen[*target] {
			return apperr.Validation("sector %s is priced twice", *target)
		}
		seen[*target] = true
		show.Pricings = append(show.Pricings, p)
	}
	return nil
}

func (s *service) GetShow(ctx context.Context, id uuid.UUID) (*domain.Show, error) {
	var show domain.Show
	err := s.cache.GetOrSet(ctx, constants.BuildShowDetailKey(id), constants.TTL_SHOW_DETAIL, func() (interface{}, error) {
		var out *domain.Show
		err := s.store.WithTx(ctx, func(tx store.Tx) error {
			var err error
			out, err = tx.GetShow(ctx, id)
			return err
		})
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("show %s not found", id)
		}
		return out, err
	}, &show)
	if err != nil {
		return nil, err
	}
	return &show, nil
}

// DeleteShow removes a show and its pricing. A show that has tickets, in any
// state, is kept so that orders and invoices stay resolvable.
func (s *service) DeleteShow(ctx context.Context, id uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetShow(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("show %s not found", id)
			}
			return err
		}
		n, err := tx.CountShowTickets(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("show %s has %d tickets and cannot be deleted", id, n)
		}
		// A ticket committed after the count still blocks the delete.
		if err := tx.DeleteShow(ctx, id); err != nil {
			if errors.Is(err, store.ErrReferenced) {
				return apperr.Conflict("show %s has tickets and cannot be deleted", id)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.ledger.Invalidate(ctx, id)
	s.log.InfoWithContext(ctx, "show deleted", map[string]interface{}{"show_id": id.String()})
	return nil
}

func (s *service) Availability(ctx context.Context, id uuid.UUID) (*ledger.Availability, error) {
	return s.ledger.Availability(ctx, id)
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("%s", err.Error())
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag())
	}
	return apperr.Validation("%s", strings.Join(msgs, "; "))
}
