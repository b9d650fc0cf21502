// Package ledger is the only component that decides whether a seat or a
// standing slot of a show can be allocated.
//
// Occupancy is never stored as a counter. A seat is taken while a live ticket
// (IN_CART, RESERVED, PURCHASED) references it for the show, and a standing
// sector's consumption is the number of live tickets referencing it. Checks
// and inserts run inside the caller's unit of work: seats are protected by the
// storage uniqueness rule on live (show, seat) pairs, standing sectors by a
// row lock on the show's pricing entry held until commit.
package ledger

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"boxoffice/internal/domain"
	"boxoffice/internal/shared/apperr"
	"boxoffice/internal/shared/constants"
	"boxoffice/internal/store"
	"boxoffice/pkg/cache"
	"boxoffice/pkg/logger"
)

type Config struct {
	Store           store.Store
	Cache           cache.Service
	Logger          *logger.Logger
	AvailabilityTTL time.Duration
}

type Ledger struct {
	store store.Store
	cache cache.Service
	log   *logger.Logger
	ttl   time.Duration
	group singleflight.Group
}

func New(cfg Config) *Ledger {
	l := &Ledger{
		store: cfg.Store,
		cache: cfg.Cache,
		log:   cfg.Logger,
		ttl:   cfg.AvailabilityTTL,
	}
	if l.cache == nil {
		l.cache = cache.NewNoop()
	}
	if l.log == nil {
		l.log = logger.GetDefault()
	}
	if l.ttl <= 0 {
		l.ttl = constants.TTL_SHOW_AVAILABILITY
	}
	return l
}

// TryReserveSeat inserts t if its seat has no live ticket for the show.
// Exactly one of several concurrent callers for the same seat succeeds; the
// others get a conflict.
func (l *Ledger) TryReserveSeat(ctx context.Context, tx store.Tx, t *domain.Ticket) error {
	if t.SeatID == nil || t.StandingSectorID != nil {
		return apperr.Validation("ticket %s is not a seat ticket", t.ID)
	}
	if !t.IsLive() {
		return apperr.Validation("ticket %s must be created in a live state, got %s", t.ID, t.State)
	}

	n, err := tx.CountLiveSeatTickets(ctx, t.ShowID, *t.SeatID)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("seat %s is already taken for show %s", *t.SeatID, t.ShowID)
	}

	// A concurrent winner may commit between the count and the insert; the
	// uniqueness rule turns that into a conflict here.
	if err := tx.InsertTickets(ctx, []*domain.Ticket{t}); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.Conflict("seat %s is already taken for show %s", *t.SeatID, t.ShowID)
		}
		return insertError(err, t.ShowID)
	}
	return nil
}

// insertError reports a show deleted under a concurrent insert as missing.
func insertError(err error, showID uuid.UUID) error {
	if errors.Is(err, store.ErrReferenced) {
		return apperr.NotFound("show %s not found", showID)
	}
	return err
}

// TryConsumeStanding inserts tickets if the standing sector they target still
// has room for all of them. Every ticket must reference the same pricing entry.
func (l *Ledger) TryConsumeStanding(ctx context.Context, tx store.Tx, tickets []*domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	first := tickets[0]
	for _, t := range tickets {
		if t.StandingSectorID == nil || t.SeatID != nil {
			return apperr.Validation("ticket %s is not a standing ticket", t.ID)
		}
		if t.PricingID != first.PricingID || t.ShowID != first.ShowID {
			return apperr.Validation("standing tickets of one request must share a show and sector")
		}
		if !t.IsLive() {
			return apperr.Validation("ticket %s must be created in a live state, got %s", t.ID, t.State)
		}
	}

	// Serializes all consumers of this (show, standing sector) pair until commit.
	pricing, err := tx.LockPricing(ctx, first.PricingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("pricing %s not found", first.PricingID)
		}
		return err
	}
	if pricing.ShowID != first.ShowID || pricing.StandingSectorID == nil || *pricing.StandingSectorID != *first.StandingSectorID {
		return apperr.Validation("pricing %s does not cover standing sector %s", pricing.ID, *first.StandingSectorID)
	}

	sector, err := tx.GetStandingSector(ctx, *pricing.StandingSectorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("standing sector %s not found", *pricing.StandingSectorID)
		}
		return err
	}

	consumed, err := tx.CountLiveStandingTickets(ctx, first.ShowID, sector.ID)
	if err != nil {
		return err
	}
	if consumed+int64(len(tickets)) > int64(sector.Capacity) {
		return apperr.Conflict("standing sector %s has %d of %d places left, %d requested",
			sector.ID, max(int64(sector.Capacity)-consumed, 0), sector.Capacity, len(tickets))
	}

	if err := tx.InsertTickets(ctx, tickets); err != nil {
		return insertError(err, first.ShowID)
	}
	return nil
}

// Release hands the capacity held by tickets back to their shows. Tickets
// still IN_CART or RESERVED are deleted; tickets the caller already moved to
// CANCELLED are kept as history. Purchased tickets must be cancelled first.
func (l *Ledger) Release(ctx context.Context, tx store.Tx, tickets []*domain.Ticket) error {
	var drop []uuid.UUID
	for _, t := range tickets {
		switch {
		case t.State == domain.TicketStateCancelled:
			if err := tx.UpdateTicket(ctx, t); err != nil {
				return err
			}
		case t.State.IsRemovable():
			drop = append(drop, t.ID)
		default:
			return apperr.Conflict("ticket %s in state %s cannot be released", t.ID, t.State)
		}
	}
	return tx.DeleteTickets(ctx, drop)
}

// Invalidate drops cached availability and details of the given shows. Call
// it after the unit of work that changed their tickets has committed.
func (l *Ledger) Invalidate(ctx context.Context, showIDs ...uuid.UUID) {
	keys := make([]string, 0, 2*len(showIDs))
	for _, id := range showIDs {
		keys = append(keys, constants.BuildShowAvailabilityKey(id), constants.BuildShowDetailKey(id))
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)
	if err := l.cache.Delete(ctx, keys...); err != nil {
		l.log.WarnWithContext(ctx, "show cache invalidation failed", err, map[string]interface{}{
			"keys": keys,
		})
	}
}
