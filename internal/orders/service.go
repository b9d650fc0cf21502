// Package orders turns unpaid tickets into paid orders and handles refunds.
//
// Gateway calls run inside the unit of work that holds the ticket locks, so
// no racing operation can change the tickets between the payment and the
// write. If the unit of work fails after a capture and is known to have
// rolled back, the capture is refunded. If the commit itself fails, or a
// refund already went out, the outcome cannot be repaired locally and is
// reported as a reconciliation error.
package orders

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"boxoffice/internal/domain"
	"boxoffice/internal/ledger"
	"boxoffice/internal/notifications"
	"boxoffice/internal/payments"
	"boxoffice/internal/shared/apperr"
	"boxoffice/internal/store"
	"boxoffice/internal/tickets"
	"boxoffice/pkg/logger"
)

// Service interface defines the contract for order business logic
type Service interface {
	Purchase(ctx context.Context, userID uuid.UUID, ticketIDs []uuid.UUID) (*domain.Order, error)
	Cancel(ctx context.Context, userID uuid.UUID, ticketIDs []uuid.UUID) (*CancelResult, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error)
	ListInvoices(ctx context.Context, userID, orderID uuid.UUID) ([]domain.CancellationInvoice, error)
	GetInvoice(ctx context.Context, userID, orderID, invoiceID uuid.UUID) (*domain.CancellationInvoice, *domain.Order, error)
}

// CancelResult is the order after a cancellation and the invoice it produced.
type CancelResult struct {
	Order   *domain.Order
	Invoice *domain.CancellationInvoice
}

type Config struct {
	Store         store.Store
	Tickets       *tickets.Manager
	Ledger        *ledger.Ledger
	Gateway       payments.Gateway
	Notifier      notifications.Sender
	NotifyTimeout time.Duration
	Logger        *logger.Logger
	Currency      string
	Now           func() time.Time
	NewReference  ReferenceFunc
}

type service struct {
	store         store.Store
	tickets       *tickets.Manager
	ledger        *ledger.Ledger
	gateway       payments.Gateway
	notifier      notifications.Sender
	notifyTimeout time.Duration
	log           *logger.Logger
	currency      string
	now           func() time.Time
	newReference  ReferenceFunc
}

func NewService(cfg Config) Service {
	s := &service{
		store:         cfg.Store,
		tickets:       cfg.Tickets,
		ledger:        cfg.Ledger,
		gateway:       cfg.Gateway,
		notifier:      cfg.Notifier,
		notifyTimeout: cfg.NotifyTimeout,
		log:           cfg.Logger,
		currency:      cfg.Currency,
		now:           cfg.Now,
		newReference:  cfg.NewReference,
	}
	if s.log == nil {
		s.log = logger.GetDefault()
	}
	if s.currency == "" {
		s.currency = "EUR"
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newReference == nil {
		s.newReference = NewReference
	}
	if s.ledger == nil {
		s.ledger = ledger.New(ledger.Config{Store: cfg.Store, Logger: s.log})
	}
	if s.tickets == nil {
		s.tickets = tickets.NewManager(tickets.Config{Store: cfg.Store, Ledger: s.ledger, Logger: s.log})
	}
	return s
}

// Purchase charges the user for the named IN_CART or RESERVED tickets and
// binds them to a new order. A declined payment changes nothing.
func (s *service) Purchase(ctx context.Context, userID uuid.UUID, ticketIDs []uuid.UUID) (*domain.Order, error) {
	now := s.now()

	var (
		order      *domain.Order
		bought     []*domain.Ticket
		paymentRef string
		total      decimal.Decimal
		captured   bool
		workErr    error
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		workErr = func() error {
			locked, err := tickets.LockOwned(ctx, tx, userID, ticketIDs)
			if err != nil {
				return err
			}
			prices := make([]decimal.Decimal, len(locked))
			for i, t := range locked {
				if !t.State.IsRemovable() {
					return apperr.Conflict("ticket %s is %s and cannot be purchased", t.ID, t.State)
				}
				prices[i] = t.Price
			}
			total = domain.SumPrices(prices...)

			reference, err := s.newReference(OrderReferencePrefix, now)
			if err != nil {
				return err
			}

			paymentRef, err = s.gateway.AuthorizeAndCapture(ctx, total, s.currency)
			if err != nil {
				return err
			}
			captured = true

			order = &domain.Order{
				ID:              uuid.New(),
				Reference:       reference,
				UserID:          userID,
				Total:           total,
				Currency:        s.currency,
				OrderDate:       now,
				PaymentIntentID: paymentRef,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := tx.CreateOrder(ctx, order); err != nil {
				if errors.Is(err, store.ErrDuplicate) {
					return apperr.Conflict("order reference %s already exists", reference)
				}
				return err
			}
			if err := s.tickets.MarkPurchased(ctx, tx, locked, order.ID, now); err != nil {
				return err
			}
			bought = locked
			return nil
		}()
		return workErr
	})

	if err != nil {
		if !captured {
			return nil, err
		}
		ids := idsOf(ticketIDs)
		if workErr == nil {
			// The commit failed and may or may not have happened.
			return nil, s.reconciliation(ctx, "purchase", paymentRef, ids, total, s.currency, err)
		}
		if refundErr := s.gateway.Refund(context.WithoutCancel(ctx), paymentRef, total); refundErr != nil {
			return nil, s.reconciliation(ctx, "purchase", paymentRef, ids, total, s.currency, errors.Join(err, refundErr))
		}
		return nil, err
	}

	order.TicketIDs = ticketIDsOf(bought)
	s.ledger.Invalidate(ctx, showIDsOf(bought)...)
	s.log.LogOrderPurchased(ctx, order.ID, userID, total.StringFixed(2), paymentRef)
	notifications.Dispatch(ctx, s.notifier, s.log, s.notifyTimeout,
		notifications.OrderPurchased(userID, order.ID, order.Reference, order.TicketIDs, total.StringFixed(2), s.currency))
	return order, nil
}

// Cancel refunds purchased tickets of one order, cancels them and records one
// cancellation invoice. The order is marked cancelled once none of its
// tickets remain purchased.
func (s *service) Cancel(ctx context.Context, userID uuid.UUID, ticketIDs []uuid.UUID) (*CancelResult, error) {
	now := s.now()

	var (
		order     *domain.Order
		invoice   *domain.CancellationInvoice
		cancelled []*domain.Ticket
		refund    decimal.Decimal
		refunded  bool
		workErr   error
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		workErr = func() error {
			locked, err := tickets.LockOwned(ctx, tx, userID, ticketIDs)
			if err != nil {
				return err
			}

			var orderID uuid.UUID
			prices := make([]decimal.Decimal, len(locked))
			for i, t := range locked {
				if t.State != domain.TicketStatePurchased || t.OrderID == nil {
					return apperr.Conflict("ticket %s is %s, only purchased tickets can be cancelled", t.ID, t.State)
				}
				if orderID != uuid.Nil && *t.OrderID != orderID {
					return apperr.Validation("tickets of one cancellation must belong to one order")
				}
				orderID = *t.OrderID
				prices[i] = t.Price
			}

			order, err = tx.LockOrder(ctx, orderID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return apperr.NotFound("order %s not found", orderID)
				}
				return err
			}
			if order.UserID != userID {
				return apperr.NotFound("order %s not found", orderID)
			}
			if order.Cancelled {
				return apperr.Conflict("order %s is already cancelled", order.Reference)
			}

			refund = domain.SumPrices(prices...)
			reference, err := s.newReference(InvoiceReferencePrefix, now)
			if err != nil {
				return err
			}

			if err := s.gateway.Refund(ctx, order.PaymentIntentID, refund); err != nil {
				return err
			}
			refunded = true

			if err := s.tickets.MarkCancelled(ctx, tx, locked, now); err != nil {
				return err
			}
			invoice = &domain.CancellationInvoice{
				ID:        uuid.New(),
				Reference: reference,
				OrderID:   order.ID,
				UserID:    userID,
				Amount:    refund,
				Currency:  order.Currency,
				TicketIDs: ticketIDsOf(locked),
				CreatedAt: now,
			}
			if err := tx.CreateInvoice(ctx, invoice); err != nil {
				if errors.Is(err, store.ErrDuplicate) {
					return apperr.Conflict("ticket already refunded or invoice reference %s taken", reference)
				}
				return err
			}

			remaining, err := tx.ListOrderTickets(ctx, order.ID)
			if err != nil {
				return err
			}
			order.Cancelled = !slices.ContainsFunc(remaining, func(t domain.Ticket) bool {
				return t.State != domain.TicketStateCancelled
			})
			order.CancellationInvoiceID = &invoice.ID
			order.UpdatedAt = now
			if err := tx.UpdateOrder(ctx, order); err != nil {
				return err
			}
			cancelled = locked
			return nil
		}()
		return workErr
	})

	if err != nil {
		if refunded {
			// The refund went out against order, so it is set.
			return nil, s.reconciliation(ctx, "cancel", order.PaymentIntentID, idsOf(ticketIDs), refund, order.Currency, err)
		}
		return nil, err
	}

	s.ledger.Invalidate(ctx, showIDsOf(cancelled)...)
	s.log.LogOrderCancelled(ctx, order.ID, invoice.ID, refund.StringFixed(2), order.Cancelled)
	notifications.Dispatch(ctx, s.notifier, s.log, s.notifyTimeout,
		notifications.OrderCancelled(userID, order.ID, invoice.ID, invoice.Reference, invoice.TicketIDs, refund.StringFixed(2), invoice.Currency))
	return &CancelResult{Order: order, Invoice: invoice}, nil
}

func (s *service) reconciliation(ctx context.Context, op, paymentRef string, ids []uuid.UUID, amount decimal.Decimal, currency string, cause error) error {
	rerr := &apperr.ReconciliationError{
		Operation:        op,
		PaymentReference: paymentRef,
		TicketIDs:        ids,
		Amount:           amount,
		Currency:         currency,
		Err:              cause,
	}
	s.log.LogReconciliationFailure(ctx, op, paymentRef, ids, amount.StringFixed(2), currency, cause)
	return rerr
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error) {
	var out *domain.Order
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = getOwnedOrder(ctx, tx, userID, orderID)
		return err
	})
	return out, err
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	var out []domain.Order
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListUserOrders(ctx, userID)
		return err
	})
	return out, err
}

func (s *service) ListInvoices(ctx context.Context, userID, orderID uuid.UUID) ([]domain.CancellationInvoice, error) {
	var out []domain.CancellationInvoice
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := getOwnedOrder(ctx, tx, userID, orderID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListOrderInvoices(ctx, orderID)
		return err
	})
	return out, err
}

func (s *service) GetInvoice(ctx context.Context, userID, orderID, invoiceID uuid.UUID) (*domain.CancellationInvoice, *domain.Order, error) {
	var (
		order   *domain.Order
		invoice *domain.CancellationInvoice
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		order, err = getOwnedOrder(ctx, tx, userID, orderID)
		if err != nil {
			return err
		}
		all, err := tx.ListOrderInvoices(ctx, orderID)
		if err != nil {
			return err
		}
		for i := range all {
			if all[i].ID == invoiceID {
				invoice = &all[i]
				return nil
			}
		}
		return apperr.NotFound("invoice %s not found", invoiceID)
	})
	if err != nil {
		return nil, nil, err
	}
	return invoice, order, nil
}

func getOwnedOrder(ctx context.Context, tx store.Tx, userID, orderID uuid.UUID) (*domain.Order, error) {
	o, err := tx.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("order %s not found", orderID)
		}
		return nil, err
	}
	if o.UserID != userID {
		return nil, apperr.NotFound("order %s not found", orderID)
	}
	return o, nil
}

func idsOf(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	return slices.Compact(out)
}

func ticketIDsOf(ts []*domain.Ticket) []uuid.UUID {
	out := make([]uuid.UUID, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

func showIDsOf(ts []*domain.Ticket) []uuid.UUID {
	out := make([]uuid.UUID, len(ts))
	for i, t := range ts {
		out[i] = t.ShowID
	}
	return out
}
