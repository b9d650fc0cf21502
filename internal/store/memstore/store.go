// Package memstore is an in-process implementation of store.Store.
//
// Units of work are serialized by a single mutex and run against a copy of the
// state that replaces the committed state only when the work succeeds, so a
// failed unit leaves nothing behind. It is used by tests and local runs.
package memstore

import (
	"bytes"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"boxoffice/internal/domain"
	"boxoffice/internal/store"
)

type state struct {
	halls    map[uuid.UUID]domain.Hall
	seats    map[uuid.UUID]domain.Seat
	standing map[uuid.UUID]domain.StandingSector

	events   map[uuid.UUID]domain.Event
	shows    map[uuid.UUID]domain.Show
	pricings map[uuid.UUID]domain.ShowSectorPricing
	tickets  map[uuid.UUID]domain.Ticket
	orders   map[uuid.UUID]domain.Order
	invoices map[uuid.UUID]domain.CancellationInvoice
	refunded map[uuid.UUID]uuid.UUID
}

func (s *state) clone() *state {
	return &state{
		// catalog data is only written by Seed, outside units of work
		halls:    s.halls,
		seats:    s.seats,
		standing: s.standing,

		events:   maps.Clone(s.events),
		shows:    maps.Clone(s.shows),
		pricings: maps.Clone(s.pricings),
		tickets:  maps.Clone(s.tickets),
		orders:   maps.Clone(s.orders),
		invoices: maps.Clone(s.invoices),
		refunded: maps.Clone(s.refunded),
	}
}

// Store keeps all data in memory.
type Store struct {
	mu        sync.Mutex
	st        *state
	commitErr error
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: &state{
		halls:    make(map[uuid.UUID]domain.Hall),
		seats:    make(map[uuid.UUID]domain.Seat),
		standing: make(map[uuid.UUID]domain.StandingSector),
		events:   make(map[uuid.UUID]domain.Event),
		shows:    make(map[uuid.UUID]domain.Show),
		pricings: make(map[uuid.UUID]domain.ShowSectorPricing),
		tickets:  make(map[uuid.UUID]domain.Ticket),
		orders:   make(map[uuid.UUID]domain.Order),
		invoices: make(map[uuid.UUID]domain.CancellationInvoice),
		refunded: make(map[uuid.UUID]uuid.UUID),
	}}
}

// SeedHall registers a hall layout in the catalog.
func (s *Store) SeedHall(h domain.Hall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.halls[h.ID] = h
	for _, sec := range h.Sectors {
		for _, seat := range sec.Seats {
			s.st.seats[seat.ID] = seat
		}
	}
	for _, ss := range h.StandingSectors {
		s.st.standing[ss.ID] = ss
	}
}

// FailNextCommit makes the next unit of work run to completion and then
// report err instead of committing.
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitErr = err
}

// WithTx must not be called from inside fn.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	if s.commitErr != nil {
		err := s.commitErr
		s.commitErr = nil
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

type tx struct {
	st *state
}

func lessID(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

// Catalog

func (t *tx) GetHall(_ context.Context, id uuid.UUID) (*domain.Hall, error) {
	h, ok := t.st.halls[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := h
	out.Sectors = make([]domain.Sector, len(h.Sectors))
	for i, sec := range h.Sectors {
		sec.Seats = slices.Clone(sec.Seats)
		out.Sectors[i] = sec
	}
	out.StandingSectors = slices.Clone(h.StandingSectors)
	return &out, nil
}

func (t *tx) GetSeats(_ context.Context, ids []uuid.UUID) ([]domain.Seat, error) {
	var out []domain.Seat
	for _, id := range ids {
		if seat, ok := t.st.seats[id]; ok {
			out = append(out, seat)
		}
	}
	return out, nil
}

func (t *tx) GetStandingSector(_ context.Context, id uuid.UUID) (*domain.StandingSector, error) {
	ss, ok := t.st.standing[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &ss, nil
}

// Events and shows

func (t *tx) CreateEvent(_ context.Context, e *domain.Event) error {
	if _, ok := t.st.events[e.ID]; ok {
		return store.ErrDuplicate
	}
	t.st.events[e.ID] = *e
	return nil
}

func (t *tx) GetEvent(_ context.Context, id uuid.UUID) (*domain.Event, error) {
	e, ok := t.st.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (t *tx) AdjustEventSoldSeats(_ context.Context, id uuid.UUID, delta int) error {
	e, ok := t.st.events[id]
	if !ok {
		return store.ErrNotFound
	}
	e.SoldSeats += delta
	e.UpdatedAt = time.Now().UTC()
	t.st.events[id] = e
	return nil
}

func (t *tx) CreateShow(_ context.Context, s *domain.Show) error {
	if _, ok := t.st.shows[s.ID]; ok {
		return store.ErrDuplicate
	}
	for _, p := range s.Pricings {
		if _, ok := t.st.pricings[p.ID]; ok {
			return store.ErrDuplicate
		}
	}
	row := *s
	row.Pricings = nil
	t.st.shows[s.ID] = row
	for _, p := range s.Pricings {
		p.ShowID = s.ID
		t.st.pricings[p.ID] = p
	}
	return nil
}

func (t *tx) GetShow(_ context.Context, id uuid.UUID) (*domain.Show, error) {
	s, ok := t.st.shows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for _, p := range t.st.pricings {
		if p.ShowID == id {
			s.Pricings = append(s.Pricings, p)
		}
	}
	slices.SortFunc(s.Pricings, func(a, b domain.ShowSectorPricing) int { return a.Position - b.Position })
	return &s, nil
}

func (t *tx) DeleteShow(_ context.Context, id uuid.UUID) error {
	if _, ok := t.st.shows[id]; !ok {
		return store.ErrNotFound
	}
	for _, tk := range t.st.tickets {
		if tk.ShowID == id {
			return store.ErrReferenced
		}
	}
	for pid, p := range t.st.pricings {
		if p.ShowID == id {
			delete(t.st.pricings, pid)
		}
	}
	delete(t.st.shows, id)
	return nil
}

func (t *tx) LockPricing(_ context.Context, id uuid.UUID) (*domain.ShowSectorPricing, error) {
	p, ok := t.st.pricings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (t *tx) AdjustShowSoldSeats(_ context.Context, id uuid.UUID, delta int) error {
	s, ok := t.st.shows[id]
	if !ok {
		return store.ErrNotFound
	}
	s.SoldSeats += delta
	s.UpdatedAt = time.Now().UTC()
	t.st.shows[id] = s
	return nil
}

// Tickets

func (t *tx) InsertTickets(_ context.Context, tickets []*domain.Ticket) error {
	for i, tk := range tickets {
		if _, ok := t.st.tickets[tk.ID]; ok {
			return store.ErrDuplicate
		}
		if _, ok := t.st.shows[tk.ShowID]; !ok {
			return store.ErrReferenced
		}
		if tk.SeatID != nil && tk.IsLive() {
			if t.liveSeatCount(tk.ShowID, *tk.SeatID) > 0 {
				return store.ErrDuplicate
			}
			for _, other := range tickets[:i] {
				if other.SeatID != nil && other.ShowID == tk.ShowID && *other.SeatID == *tk.SeatID && other.IsLive() {
					return store.ErrDuplicate
				}
			}
		}
	}
	for _, tk := range tickets {
		t.st.tickets[tk.ID] = *tk
	}
	return nil
}

func (t *tx) GetTickets(_ context.Context, ids []uuid.UUID) ([]domain.Ticket, error) {
	var out []domain.Ticket
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if tk, ok := t.st.tickets[id]; ok {
			out = append(out, tk)
		}
	}
	slices.SortFunc(out, func(a, b domain.Ticket) int { return lessID(a.ID, b.ID) })
	return out, nil
}

func (t *tx) LockTickets(ctx context.Context, ids []uuid.UUID) ([]domain.Ticket, error) {
	return t.GetTickets(ctx, ids)
}

func (t *tx) UpdateTicket(_ context.Context, tk *domain.Ticket) error {
	if _, ok := t.st.tickets[tk.ID]; !ok {
		return store.ErrNotFound
	}
	if tk.SeatID != nil && tk.IsLive() {
		for id, other := range t.st.tickets {
			if id != tk.ID && other.SeatID != nil && other.ShowID == tk.ShowID && *other.SeatID == *tk.SeatID && other.IsLive() {
				return store.ErrDuplicate
			}
		}
	}
	t.st.tickets[tk.ID] = *tk
	return nil
}

func (t *tx) DeleteTickets(_ context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		delete(t.st.tickets, id)
	}
	return nil
}

func (t *tx) liveSeatCount(showID, seatID uuid.UUID) int64 {
	var n int64
	for _, tk := range t.st.tickets {
		if tk.ShowID == showID && tk.SeatID != nil && *tk.SeatID == seatID && tk.IsLive() {
			n++
		}
	}
	return n
}

func (t *tx) CountLiveSeatTickets(_ context.Context, showID, seatID uuid.UUID) (int64, error) {
	return t.liveSeatCount(showID, seatID), nil
}

func (t *tx) CountLiveStandingTickets(_ context.Context, showID, standingSectorID uuid.UUID) (int64, error) {
	var n int64
	for _, tk := range t.st.tickets {
		if tk.ShowID == showID && tk.StandingSectorID != nil && *tk.StandingSectorID == standingSectorID && tk.IsLive() {
			n++
		}
	}
	return n, nil
}

func (t *tx) CountShowTickets(_ context.Context, showID uuid.UUID) (int64, error) {
	var n int64
	for _, tk := range t.st.tickets {
		if tk.ShowID == showID {
			n++
		}
	}
	return n, nil
}

func (t *tx) CountPurchasedTickets(_ context.Context, showID uuid.UUID) (int64, error) {
	var n int64
	for _, tk := range t.st.tickets {
		if tk.ShowID == showID && tk.State == domain.TicketStatePurchased {
			n++
		}
	}
	return n, nil
}

func (t *tx) filterTickets(keep func(domain.Ticket) bool) []domain.Ticket {
	var out []domain.Ticket
	for _, tk := range t.st.tickets {
		if keep(tk) {
			out = append(out, tk)
		}
	}
	slices.SortFunc(out, func(a, b domain.Ticket) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return lessID(a.ID, b.ID)
	})
	return out
}

func (t *tx) ListLiveShowTickets(_ context.Context, showID uuid.UUID) ([]domain.Ticket, error) {
	return t.filterTickets(func(tk domain.Ticket) bool { return tk.ShowID == showID && tk.IsLive() }), nil
}

func (t *tx) ListUserTickets(_ context.Context, userID uuid.UUID, state domain.TicketState) ([]domain.Ticket, error) {
	return t.filterTickets(func(tk domain.Ticket) bool {
		return tk.UserID == userID && (state == "" || tk.State == state)
	}), nil
}

func (t *tx) ListOrderTickets(_ context.Context, orderID uuid.UUID) ([]domain.Ticket, error) {
	return t.filterTickets(func(tk domain.Ticket) bool { return tk.OrderID != nil && *tk.OrderID == orderID }), nil
}

func (t *tx) ListStaleTickets(_ context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error) {
	out := t.filterTickets(func(tk domain.Ticket) bool {
		return tk.State.IsRemovable() && tk.CreatedAt.Before(cutoff)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Orders

func (t *tx) orderTicketIDs(orderID uuid.UUID) []uuid.UUID {
	var ids []uuid.UUID
	for _, tk := range t.st.tickets {
		if tk.OrderID != nil && *tk.OrderID == orderID {
			ids = append(ids, tk.ID)
		}
	}
	slices.SortFunc(ids, lessID)
	return ids
}

func (t *tx) CreateOrder(_ context.Context, o *domain.Order) error {
	if _, ok := t.st.orders[o.ID]; ok {
		return store.ErrDuplicate
	}
	for _, existing := range t.st.orders {
		if existing.Reference == o.Reference {
			return store.ErrDuplicate
		}
	}
	row := *o
	row.TicketIDs = nil
	t.st.orders[o.ID] = row
	return nil
}

func (t *tx) GetOrder(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	o.TicketIDs = t.orderTicketIDs(id)
	return &o, nil
}

func (t *tx) LockOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return t.GetOrder(ctx, id)
}

func (t *tx) UpdateOrder(_ context.Context, o *domain.Order) error {
	if _, ok := t.st.orders[o.ID]; !ok {
		return store.ErrNotFound
	}
	row := *o
	row.TicketIDs = nil
	t.st.orders[o.ID] = row
	return nil
}

func (t *tx) ListUserOrders(_ context.Context, userID uuid.UUID) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range t.st.orders {
		if o.UserID == userID {
			o.TicketIDs = t.orderTicketIDs(o.ID)
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b domain.Order) int { return b.OrderDate.Compare(a.OrderDate) })
	return out, nil
}

func (t *tx) CreateInvoice(_ context.Context, inv *domain.CancellationInvoice) error {
	if _, ok := t.st.invoices[inv.ID]; ok {
		return store.ErrDuplicate
	}
	for _, id := range inv.TicketIDs {
		if _, ok := t.st.refunded[id]; ok {
			return store.ErrDuplicate
		}
	}
	row := *inv
	row.TicketIDs = slices.Clone(inv.TicketIDs)
	t.st.invoices[inv.ID] = row
	for _, id := range inv.TicketIDs {
		t.st.refunded[id] = inv.ID
	}
	return nil
}

func (t *tx) ListOrderInvoices(_ context.Context, orderID uuid.UUID) ([]domain.CancellationInvoice, error) {
	var out []domain.CancellationInvoice
	for _, inv := range t.st.invoices {
		if inv.OrderID == orderID {
			inv.TicketIDs = slices.Clone(inv.TicketIDs)
			out = append(out, inv)
		}
	}
	slices.SortFunc(out, func(a, b domain.CancellationInvoice) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}
