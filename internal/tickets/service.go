// Package tickets owns the ticket lifecycle. It is the only writer of ticket
// state and of the sold seat counters of shows and events.
package tickets

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"boxoffice/internal/domain"
	"boxoffice/internal/ledger"
	"boxoffice/internal/notifications"
	"boxoffice/internal/shared/apperr"
	"boxoffice/internal/store"
	"boxoffice/pkg/logger"
)

// MaxTicketsPerRequest bounds one create call.
const MaxTicketsPerRequest = 20

// Service is the caller facing part of the lifecycle.
type Service interface {
	Create(ctx context.Context, in CreateTicketsInput) ([]domain.Ticket, error)
	Reserve(ctx context.Context, userID uuid.UUID, ticketIDs []uuid.UUID) ([]domain.Ticket, error)
	Remove(ctx context.Context, userID uuid.UUID, ticketIDs []uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID, state domain.TicketState) ([]domain.Ticket, error)
	Get(ctx context.Context, userID, ticketID uuid.UUID) (*domain.Ticket, error)
	Pass(ctx context.Context, userID, ticketID uuid.UUID) (*domain.Ticket, string, error)
	ExpireReservations(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

// StandingRequest asks for Count places in one standing sector.
type StandingRequest struct {
	StandingSectorID uuid.UUID
	Count            int
}

// CreateTicketsInput describes one all-or-nothing allocation.
type CreateTicketsInput struct {
	ShowID   uuid.UUID
	UserID   uuid.UUID
	Intent   domain.Intent
	SeatIDs  []uuid.UUID
	Standing []StandingRequest
	// SameSector requires every requested unit to fall in one priced sector.
	SameSector bool
}

type Config struct {
	Store         store.Store
	Ledger        *ledger.Ledger
	Logger        *logger.Logger
	Notifier      notifications.Sender
	NotifyTimeout time.Duration
	// RetainRemoved keeps removed and expired tickets as CANCELLED rows.
	RetainRemoved bool
	Now           func() time.Time
}

// Manager implements Service and the transitions used by checkout.
type Manager struct {
	store         store.Store
	ledger        *ledger.Ledger
	log           *logger.Logger
	notifier      notifications.Sender
	notifyTimeout time.Duration
	retainRemoved bool
	now           func() time.Time
}

var _ Service = (*Manager)(nil)

func NewManager(cfg Config) *Manager {
	m := &Manager{
		store:         cfg.Store,
		ledger:        cfg.Ledger,
		log:           cfg.Logger,
		notifier:      cfg.Notifier,
		notifyTimeout: cfg.NotifyTimeout,
		retainRemoved: cfg.RetainRemoved,
		now:           cfg.Now,
	}
	if m.log == nil {
		m.log = logger.GetDefault()
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC() }
	}
	if m.ledger == nil {
		m.ledger = ledger.New(ledger.Config{Store: cfg.Store, Logger: m.log})
	}
	return m
}

func (in *CreateTicketsInput) validate() (domain.TicketState, error) {
	state, ok := in.Intent.InitialState()
	if !ok {
		return "", apperr.Validation("unknown intent %q", in.Intent)
	}
	if in.ShowID == uuid.Nil || in.UserID == uuid.Nil {
		return "", apperr.Validation("show and user are required")
	}
	total := len(in.SeatIDs)
	seen := make(map[uuid.UUID]bool, len(in.SeatIDs))
	for _, id := range in.SeatIDs {
		if seen[id] {
			return "", apperr.Validation("seat %s requested twice", id)
		}
		seen[id] = true
	}
	for _, s := range in.Standing {
		if s.Count < 1 {
			return "", apperr.Validation("standing sector %s: count must be positive", s.StandingSectorID)
		}
		total += s.Count
	}
	if total == 0 {
		return "", apperr.Validation("no seats or standing places requested")
	}
	if total > MaxTicketsPerRequest {
		return "", apperr.Validation("at most %d tickets per request, got %d", MaxTicketsPerRequest, total)
	}
	return state, nil
}

// Create allocates every requested seat and standing place or none of them.
func (m *Manager) Create(ctx context.Context, in CreateTicketsInput) ([]domain.Ticket, error) {
	state, err := in.validate()
	if err != nil {
		return nil, err
	}
	now := m.now()

	var created []domain.Ticket
	err = m.store.WithTx(ctx, func(tx store.Tx) error {
		show, err := tx.GetShow(ctx, in.ShowID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("show %s not found", in.ShowID)
			}
			return err
		}

		seatTickets, err := m.seatTickets(ctx, tx, show, in, state, now)
		if err != nil {
			return err
		}
		standing, err := standingTickets(show, in, state, now)
		if err != nil {
			return err
		}
		if in.SameSector && !samePricing(seatTickets, standing) {
			return apperr.Validation("requested places span more than one sector")
		}

		// Seats go in id order so concurrent batches contend in the same order.
		for _, t := range seatTickets {
			if err := m.ledger.TryReserveSeat(ctx, tx, t); err != nil {
				return err
			}
			created = append(created, *t)
		}
		for _, group := range standing {
			if err := m.ledger.TryConsumeStanding(ctx, tx, group); err != nil {
				return err
			}
			for _, t := range group {
				created = append(created, *t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.ledger.Invalidate(ctx, in.ShowID)
	m.log.LogTicketsCreated(ctx, in.ShowID, in.UserID, ticketIDs(created), string(state))
	return created, nil
}

func (m *Manager) seatTickets(ctx context.Context, tx store.Tx, show *domain.Show, in CreateTicketsInput, state domain.TicketState, now time.Time) ([]*domain.Ticket, error) {
	if len(in.SeatIDs) == 0 {
		return nil, nil
	}
	ids := slices.Clone(in.SeatIDs)
	slices.SortFunc(ids, compareIDs)

	seats, err := tx.GetSeats(ctx, ids)
	if err != nil {
		return nil, err
	}
	bySeat := make(map[uuid.UUID]domain.Seat, len(seats))
	for _, s := range seats {
		bySeat[s.ID] = s
	}

	out := make([]*domain.Ticket, 0, len(ids))
	for _, id := range ids {
		seat, ok := bySeat[id]
		if !ok {
			return nil, apperr.NotFound("seat %s not found", id)
		}
		pricing, ok := show.PricingForSector(seat.SectorID)
		if !ok {
			return nil, apperr.Validation("seat %s is not on sale for show %s", id, show.ID)
		}
		out = append(out, domain.NewSeatTicket(show.ID, in.UserID, id, pricing, state, now))
	}
	return out, nil
}

// standingTickets groups the requested places by pricing entry, merging
// repeated sectors, in pricing id order.
func standingTickets(show *domain.Show, in CreateTicketsInput, state domain.TicketState, now time.Time) ([][]*domain.Ticket, error) {
	groups := make(map[uuid.UUID][]*domain.Ticket)
	var order []uuid.UUID
	for _, req := range in.Standing {
		pricing, ok := show.PricingForStanding(req.StandingSectorID)
		if !ok {
			return nil, apperr.Validation("standing sector %s is not on sale for show %s", req.StandingSectorID, show.ID)
		}
		if _, ok := groups[pricing.ID]; !ok {
			order = append(order, pricing.ID)
		}
		for i := 0; i < req.Count; i++ {
			groups[pricing.ID] = append(groups[pricing.ID], domain.NewStandingTicket(show.ID, in.UserID, pricing, state, now))
		}
	}
	slices.SortFunc(order, compareIDs)

	out := make([][]*domain.Ticket, 0, len(order))
	for _, id := range order {
		out = append(out, groups[id])
	}
	return out, nil
}

func samePricing(seats []*domain.Ticket, standing [][]*domain.Ticket) bool {
	var pricing uuid.UUID
	for _, t := range seats {
		if pricing != uuid.Nil && t.PricingID != pricing {
			return false
		}
		pricing = t.PricingID
	}
	for _, group := range standing {
		if pricing != uuid.Nil && group[0].PricingID != pricing {
			return false
		}
		pricing = group[0].PricingID
	}
	return true
}

// Reserve moves cart tickets to RESERVED. Their capacity is already held.
func (m *Manager) Reserve(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]domain.Ticket, error) {
	now := m.now()
	var out []domain.Ticket
	err := m.store.WithTx(ctx, func(tx store.Tx) error {
		tickets, err := LockOwned(ctx, tx, userID, ids)
		if err != nil {
			return err
		}
		for _, t := range tickets {
			if err := t.TransitionTo(domain.TicketStateReserved, now); err != nil {
				return err
			}
			if err := tx.UpdateTicket(ctx, t); err != nil {
				return err
			}
			out = append(out, *t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Remove drops unpaid tickets and hands their capacity back.
func (m *Manager) Remove(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	var released []*domain.Ticket
	err := m.store.WithTx(ctx, func(tx store.Tx) error {
		tickets, err := LockOwned(ctx, tx, userID, ids)
		if err != nil {
			return err
		}
		for _, t := range tickets {
			if !t.State.IsRemovable() {
				return apperr.Conflict("ticket %s is %s and cannot be removed", t.ID, t.State)
			}
		}
		if err := m.release(ctx, tx, tickets); err != nil {
			return err
		}
		released = tickets
		return nil
	})
	if err != nil {
		return err
	}

	m.ledger.Invalidate(ctx, showIDs(released)...)
	m.log.LogTicketsReleased(ctx, "removed", ticketPtrIDs(released))
	return nil
}

// release frees unpaid tickets through the ledger, cancelling them first
// when removed tickets are retained.
func (m *Manager) release(ctx context.Context, tx store.Tx, tickets []*domain.Ticket) error {
	if m.retainRemoved {
		now := m.now()
		for _, t := range tickets {
			if err := t.TransitionTo(domain.TicketStateCancelled, now); err != nil {
				return err
			}
		}
	}
	return m.ledger.Release(ctx, tx, tickets)
}

func (m *Manager) ListForUser(ctx context.Context, userID uuid.UUID, state domain.TicketState) ([]domain.Ticket, error) {
	if state != "" && !state.IsValid() {
		return nil, apperr.Validation("unknown ticket state %q", state)
	}
	var out []domain.Ticket
	err := m.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListUserTickets(ctx, userID, state)
		return err
	})
	return out, err
}

func (m *Manager) Get(ctx context.Context, userID, ticketID uuid.UUID) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := m.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = getOwned(ctx, tx, userID, ticketID)
		return err
	})
	return out, err
}

// Pass returns a purchased ticket with the reference of its order.
func (m *Manager) Pass(ctx context.Context, userID, ticketID uuid.UUID) (*domain.Ticket, string, error) {
	var (
		t   *domain.Ticket
		ref string
	)
	err := m.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		t, err = getOwned(ctx, tx, userID, ticketID)
		if err != nil {
			return err
		}
		if t.State != domain.TicketStatePurchased || t.OrderID == nil {
			return apperr.Conflict("ticket %s is %s, passes exist only for purchased tickets", t.ID, t.State)
		}
		order, err := tx.GetOrder(ctx, *t.OrderID)
		if err != nil {
			return err
		}
		ref = order.Reference
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return t, ref, nil
}

// ExpireReservations releases IN_CART and RESERVED tickets older than
// olderThan, at most limit of them, and reports how many were released.
func (m *Manager) ExpireReservations(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	if olderThan <= 0 {
		return 0, apperr.Validation("expiry age must be positive")
	}
	cutoff := m.now().Add(-olderThan)

	var released []*domain.Ticket
	err := m.store.WithTx(ctx, func(tx store.Tx) error {
		stale, err := tx.ListStaleTickets(ctx, cutoff, limit)
		if err != nil || len(stale) == 0 {
			return err
		}
		// Re-read under lock; a checkout may have claimed some meanwhile.
		locked, err := tx.LockTickets(ctx, ticketIDs(stale))
		if err != nil {
			return err
		}
		for i := range locked {
			t := &locked[i]
			if t.State.IsRemovable() && t.CreatedAt.Before(cutoff) {
				released = append(released, t)
			}
		}
		return m.release(ctx, tx, released)
	})
	if err != nil {
		return 0, err
	}
	if len(released) == 0 {
		return 0, nil
	}

	m.ledger.Invalidate(ctx, showIDs(released)...)
	m.log.LogTicketsReleased(ctx, "expired", ticketPtrIDs(released))

	byUser := make(map[uuid.UUID][]uuid.UUID)
	var users []uuid.UUID
	for _, t := range released {
		if _, ok := byUser[t.UserID]; !ok {
			users = append(users, t.UserID)
		}
		byUser[t.UserID] = append(byUser[t.UserID], t.ID)
	}
	for _, u := range users {
		notifications.Dispatch(ctx, m.notifier, m.log, m.notifyTimeout, notifications.TicketsExpired(u, byUser[u]))
	}
	return len(released), nil
}

// MarkPurchased moves tickets to PURCHASED, binds them to orderID and raises
// the sold counters. It runs inside the caller's unit of work.
func (m *Manager) MarkPurchased(ctx context.Context, tx store.Tx, tickets []*domain.Ticket, orderID uuid.UUID, at time.Time) error {
	for _, t := range tickets {
		if err := t.Purchase(orderID, at); err != nil {
			return err
		}
		if err := tx.UpdateTicket(ctx, t); err != nil {
			return err
		}
	}
	return m.adjustSold(ctx, tx, tickets, 1)
}

// MarkCancelled moves purchased tickets to CANCELLED, hands their capacity
// back and lowers the sold counters. It runs inside the caller's unit of work.
func (m *Manager) MarkCancelled(ctx context.Context, tx store.Tx, tickets []*domain.Ticket, at time.Time) error {
	for _, t := range tickets {
		if t.State != domain.TicketStatePurchased {
			return apperr.Conflict("ticket %s is %s, only purchased tickets can be cancelled", t.ID, t.State)
		}
		if err := t.TransitionTo(domain.TicketStateCancelled, at); err != nil {
			return err
		}
	}
	if err := m.ledger.Release(ctx, tx, tickets); err != nil {
		return err
	}
	return m.adjustSold(ctx, tx, tickets, -1)
}

func (m *Manager) adjustSold(ctx context.Context, tx store.Tx, tickets []*domain.Ticket, sign int) error {
	perShow := make(map[uuid.UUID]int)
	for _, t := range tickets {
		perShow[t.ShowID]++
	}
	shows := make([]uuid.UUID, 0, len(perShow))
	for id := range perShow {
		shows = append(shows, id)
	}
	slices.SortFunc(shows, compareIDs)

	for _, id := range shows {
		delta := sign * perShow[id]
		if err := tx.AdjustShowSoldSeats(ctx, id, delta); err != nil {
			return err
		}
		show, err := tx.GetShow(ctx, id)
		if err != nil {
			return err
		}
		if show.EventID != nil {
			if err := tx.AdjustEventSoldSeats(ctx, *show.EventID, delta); err != nil {
				return err
			}
		}
	}
	return nil
}

// LockOwned locks the named tickets for a unit of work. Missing tickets and
// tickets of other users are reported as not found.
func LockOwned(ctx context.Context, tx store.Tx, userID uuid.UUID, ids []uuid.UUID) ([]*domain.Ticket, error) {
	if len(ids) == 0 {
		return nil, apperr.Validation("no tickets given")
	}
	uniq := slices.Clone(ids)
	slices.SortFunc(uniq, compareIDs)
	uniq = slices.Compact(uniq)

	rows, err := tx.LockTickets(ctx, uniq)
	if err != nil {
		return nil, err
	}
	if len(rows) != len(uniq) {
		return nil, apperr.NotFound("%d of %d tickets not found", len(uniq)-len(rows), len(uniq))
	}
	out := make([]*domain.Ticket, len(rows))
	for i := range rows {
		if rows[i].UserID != userID {
			return nil, apperr.NotFound("ticket %s not found", rows[i].ID)
		}
		out[i] = &rows[i]
	}
	return out, nil
}

func getOwned(ctx context.Context, tx store.Tx, userID, ticketID uuid.UUID) (*domain.Ticket, error) {
	rows, err := tx.GetTickets(ctx, []uuid.UUID{ticketID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0].UserID != userID {
		return nil, apperr.NotFound("ticket %s not found", ticketID)
	}
	return &rows[0], nil
}

func compareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

func ticketIDs(ts []domain.Ticket) []uuid.UUID {
	out := make([]uuid.UUID, len(ts))
	for i := range ts {
		out[i] = ts[i].ID
	}
	return out
}

func ticketPtrIDs(ts []*domain.Ticket) []uuid.UUID {
	out := make([]uuid.UUID, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

func showIDs(ts []*domain.Ticket) []uuid.UUID {
	out := make([]uuid.UUID, len(ts))
	for i, t := range ts {
		out[i] = t.ShowID
	}
	return out
}
