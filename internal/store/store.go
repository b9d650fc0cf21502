// Package store declares the persistence contract of the ticketing core.
//
// Every mutation runs inside Store.WithTx. Implementations must guarantee that
// at most one live ticket (IN_CART, RESERVED or PURCHASED) exists per
// (show, seat) pair and report a violation as ErrDuplicate, that a ticket
// cannot outlive its show (ErrReferenced), and that LockPricing serializes
// concurrent transactions touching the same pricing row.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"boxoffice/internal/domain"
)

var (
	ErrNotFound   = errors.New("store: record not found")
	ErrDuplicate  = errors.New("store: duplicate key")
	ErrReferenced = errors.New("store: foreign key violation")
)

// Store runs units of work.
type Store interface {
	// WithTx runs fn in one atomic unit of work. A non-nil error from fn rolls
	// everything back.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}

// Tx is the view of storage available inside a unit of work.
type Tx interface {
	Catalog
	Shows
	Tickets
	Orders
}

// Catalog is read-only venue reference data.
type Catalog interface {
	GetHall(ctx context.Context, id uuid.UUID) (*domain.Hall, error)
	GetSeats(ctx context.Context, ids []uuid.UUID) ([]domain.Seat, error)
	GetStandingSector(ctx context.Context, id uuid.UUID) (*domain.StandingSector, error)
}

type Shows interface {
	CreateEvent(ctx context.Context, e *domain.Event) error
	GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error)
	AdjustEventSoldSeats(ctx context.Context, id uuid.UUID, delta int) error

	// CreateShow inserts the show together with its pricing list.
	CreateShow(ctx context.Context, s *domain.Show) error
	// GetShow loads the show with its pricing list ordered by position.
	GetShow(ctx context.Context, id uuid.UUID) (*domain.Show, error)
	// DeleteShow removes the show and its pricing list. It returns
	// ErrReferenced while tickets of the show exist.
	DeleteShow(ctx context.Context, id uuid.UUID) error
	// LockPricing loads a pricing row and holds an exclusive lock on it until
	// the unit of work ends.
	LockPricing(ctx context.Context, id uuid.UUID) (*domain.ShowSectorPricing, error)
	AdjustShowSoldSeats(ctx context.Context, id uuid.UUID, delta int) error
}

type Tickets interface {
	// InsertTickets returns ErrDuplicate when a seat already has a live ticket
	// and ErrReferenced when the show does not exist.
	InsertTickets(ctx context.Context, tickets []*domain.Ticket) error
	// GetTickets returns the tickets that exist among ids, in id order.
	GetTickets(ctx context.Context, ids []uuid.UUID) ([]domain.Ticket, error)
	// LockTickets is GetTickets holding row locks, acquired in id order.
	LockTickets(ctx context.Context, ids []uuid.UUID) ([]domain.Ticket, error)
	UpdateTicket(ctx context.Context, t *domain.Ticket) error
	DeleteTickets(ctx context.Context, ids []uuid.UUID) error

	CountLiveSeatTickets(ctx context.Context, showID, seatID uuid.UUID) (int64, error)
	CountLiveStandingTickets(ctx context.Context, showID, standingSectorID uuid.UUID) (int64, error)
	CountShowTickets(ctx context.Context, showID uuid.UUID) (int64, error)
	CountPurchasedTickets(ctx context.Context, showID uuid.UUID) (int64, error)

	ListLiveShowTickets(ctx context.Context, showID uuid.UUID) ([]domain.Ticket, error)
	ListUserTickets(ctx context.Context, userID uuid.UUID, state domain.TicketState) ([]domain.Ticket, error)
	ListOrderTickets(ctx context.Context, orderID uuid.UUID) ([]domain.Ticket, error)
	// ListStaleTickets returns IN_CART and RESERVED tickets created before cutoff, oldest first.
	ListStaleTickets(ctx context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error)
}

type Orders interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	LockOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	UpdateOrder(ctx context.Context, o *domain.Order) error
	ListUserOrders(ctx context.Context, userID uuid.UUID) ([]domain.Order, error)

	// CreateInvoice inserts the invoice and one item per refunded ticket.
	CreateInvoice(ctx context.Context, inv *domain.CancellationInvoice) error
	ListOrderInvoices(ctx context.Context, orderID uuid.UUID) ([]domain.CancellationInvoice, error)
}
