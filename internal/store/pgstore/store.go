// Package pgstore implements store.Store on PostgreSQL through gorm.
//
// Seat exclusivity is backed by the partial unique index created in
// database.MigrateConstraints; standing capacity is serialized by locking the
// show_sector_pricings row with SELECT ... FOR UPDATE.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"boxoffice/internal/domain"
	"boxoffice/internal/store"
)

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// New wraps a gorm handle. The handle should be opened with TranslateError so
// unique and foreign key violations surface as gorm sentinels.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&tx{db: db})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

type tx struct {
	db *gorm.DB
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", store.ErrReferenced, err)
	}
	return err
}

func (t *tx) session(ctx context.Context) *gorm.DB {
	return t.db.WithContext(ctx)
}

// Catalog

func (t *tx) GetHall(ctx context.Context, id uuid.UUID) (*domain.Hall, error) {
	var h domain.Hall
	err := t.session(ctx).
		Preload("Sectors", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Preload("Sectors.Seats", func(db *gorm.DB) *gorm.DB { return db.Order("seat_row, seat_column") }).
		Preload("StandingSectors", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		First(&h, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &h, nil
}

func (t *tx) GetSeats(ctx context.Context, ids []uuid.UUID) ([]domain.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var seats []domain.Seat
	if err := t.session(ctx).Where("id IN ?", ids).Find(&seats).Error; err != nil {
		return nil, fmt.Errorf("failed to get seats: %w", err)
	}
	return seats, nil
}

func (t *tx) GetStandingSector(ctx context.Context, id uuid.UUID) (*domain.StandingSector, error) {
	var ss domain.StandingSector
	if err := t.session(ctx).First(&ss, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &ss, nil
}

// Events and shows

func (t *tx) CreateEvent(ctx context.Context, e *domain.Event) error {
	return translate(t.session(ctx).Create(e).Error)
}

func (t *tx) GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	var e domain.Event
	if err := t.session(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (t *tx) AdjustEventSoldSeats(ctx context.Context, id uuid.UUID, delta int) error {
	res := t.session(ctx).Model(&domain.Event{}).Where("id = ?", id).
		Updates(map[string]any{
			"sold_seats": gorm.Expr("sold_seats + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to adjust event sold seats: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *tx) CreateShow(ctx context.Context, s *domain.Show) error {
	// Pricings are inserted through the has-many association.
	return translate(t.session(ctx).Create(s).Error)
}

func (t *tx) GetShow(ctx context.Context, id uuid.UUID) (*domain.Show, error) {
	var s domain.Show
	err := t.session(ctx).
		Preload("Pricings", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (t *tx) DeleteShow(ctx context.Context, id uuid.UUID) error {
	db := t.session(ctx)
	if err := db.Where("show_id = ?", id).Delete(&domain.ShowSectorPricing{}).Error; err != nil {
		return fmt.Errorf("failed to delete show pricings: %w", err)
	}
	res := db.Where("id = ?", id).Delete(&domain.Show{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *tx) LockPricing(ctx context.Context, id uuid.UUID) (*domain.ShowSectorPricing, error) {
	var p domain.ShowSectorPricing
	err := t.session(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (t *tx) AdjustShowSoldSeats(ctx context.Context, id uuid.UUID, delta int) error {
	res := t.session(ctx).Model(&domain.Show{}).Where("id = ?", id).
		Updates(map[string]any{
			"sold_seats": gorm.Expr("sold_seats + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to adjust show sold seats: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Tickets

func (t *tx) InsertTickets(ctx context.Context, tickets []*domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	return translate(t.session(ctx).Create(tickets).Error)
}

func (t *tx) GetTickets(ctx context.Context, ids []uuid.UUID) ([]domain.Ticket, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tickets []domain.Ticket
	if err := t.session(ctx).Where("id IN ?", ids).Order("id").Find(&tickets).Error; err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}
	return tickets, nil
}

func (t *tx) LockTickets(ctx context.Context, ids []uuid.UUID) ([]domain.Ticket, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tickets []domain.Ticket
	err := t.session(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).Order("id").Find(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock tickets: %w", err)
	}
	return tickets, nil
}

func (t *tx) UpdateTicket(ctx context.Context, tk *domain.Ticket) error {
	res := t.session(ctx).Model(&domain.Ticket{}).Where("id = ?", tk.ID).
		Updates(map[string]any{
			"state":        tk.State,
			"order_id":     tk.OrderID,
			"updated_at":   tk.UpdatedAt,
			"purchased_at": tk.PurchasedAt,
			"cancelled_at": tk.CancelledAt,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *tx) DeleteTickets(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := t.session(ctx).Where("id IN ?", ids).Delete(&domain.Ticket{}).Error; err != nil {
		return fmt.Errorf("failed to delete tickets: %w", err)
	}
	return nil
}

func (t *tx) CountLiveSeatTickets(ctx context.Context, showID, seatID uuid.UUID) (int64, error) {
	var n int64
	err := t.session(ctx).Model(&domain.Ticket{}).
		Where("show_id = ? AND seat_id = ? AND state IN ?", showID, seatID, domain.LiveTicketStates).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count seat tickets: %w", err)
	}
	return n, nil
}

func (t *tx) CountLiveStandingTickets(ctx context.Context, showID, standingSectorID uuid.UUID) (int64, error) {
	var n int64
	err := t.session(ctx).Model(&domain.Ticket{}).
		Where("show_id = ? AND standing_sector_id = ? AND state IN ?", showID, standingSectorID, domain.LiveTicketStates).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count standing tickets: %w", err)
	}
	return n, nil
}

func (t *tx) CountShowTickets(ctx context.Context, showID uuid.UUID) (int64, error) {
	var n int64
	if err := t.session(ctx).Model(&domain.Ticket{}).Where("show_id = ?", showID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count show tickets: %w", err)
	}
	return n, nil
}

func (t *tx) CountPurchasedTickets(ctx context.Context, showID uuid.UUID) (int64, error) {
	var n int64
	err := t.session(ctx).Model(&domain.Ticket{}).
		Where("show_id = ? AND state = ?", showID, domain.TicketStatePurchased).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count purchased tickets: %w", err)
	}
	return n, nil
}

func (t *tx) ListLiveShowTickets(ctx context.Context, showID uuid.UUID) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	err := t.session(ctx).Where("show_id = ? AND state IN ?", showID, domain.LiveTicketStates).
		Order("created_at, id").Find(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list show tickets: %w", err)
	}
	return tickets, nil
}

func (t *tx) ListUserTickets(ctx context.Context, userID uuid.UUID, state domain.TicketState) ([]domain.Ticket, error) {
	query := t.session(ctx).Where("user_id = ?", userID)
	if state != "" {
		query = query.Where("state = ?", state)
	}
	var tickets []domain.Ticket
	if err := query.Order("created_at, id").Find(&tickets).Error; err != nil {
		return nil, fmt.Errorf("failed to list user tickets: %w", err)
	}
	return tickets, nil
}

func (t *tx) ListOrderTickets(ctx context.Context, orderID uuid.UUID) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	if err := t.session(ctx).Where("order_id = ?", orderID).Order("created_at, id").Find(&tickets).Error; err != nil {
		return nil, fmt.Errorf("failed to list order tickets: %w", err)
	}
	return tickets, nil
}

func (t *tx) ListStaleTickets(ctx context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error) {
	query := t.session(ctx).
		Where("state IN ? AND created_at < ?", []domain.TicketState{domain.TicketStateInCart, domain.TicketStateReserved}, cutoff).
		Order("created_at, id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var tickets []domain.Ticket
	if err := query.Find(&tickets).Error; err != nil {
		return nil, fmt.Errorf("failed to list stale tickets: %w", err)
	}
	return tickets, nil
}

// Orders

func (t *tx) loadTicketIDs(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	var rows []struct {
		ID      uuid.UUID
		OrderID uuid.UUID
	}
	err := t.session(ctx).Model(&domain.Ticket{}).Select("id, order_id").
		Where("order_id IN ?", ids).Order("id").Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to load order tickets: %w", err)
	}
	byOrder := make(map[uuid.UUID][]uuid.UUID, len(orders))
	for _, r := range rows {
		byOrder[r.OrderID] = append(byOrder[r.OrderID], r.ID)
	}
	for i := range orders {
		orders[i].TicketIDs = byOrder[orders[i].ID]
	}
	return nil
}

func (t *tx) CreateOrder(ctx context.Context, o *domain.Order) error {
	return translate(t.session(ctx).Create(o).Error)
}

func (t *tx) getOrder(ctx context.Context, id uuid.UUID, lock bool) (*domain.Order, error) {
	db := t.session(ctx)
	if lock {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var o domain.Order
	if err := db.First(&o, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	orders := []domain.Order{o}
	if err := t.loadTicketIDs(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (t *tx) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return t.getOrder(ctx, id, false)
}

func (t *tx) LockOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return t.getOrder(ctx, id, true)
}

func (t *tx) UpdateOrder(ctx context.Context, o *domain.Order) error {
	res := t.session(ctx).Model(&domain.Order{}).Where("id = ?", o.ID).
		Updates(map[string]any{
			"cancelled":               o.Cancelled,
			"cancellation_invoice_id": o.CancellationInvoiceID,
			"updated_at":              time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *tx) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	var orders []domain.Order
	if err := t.session(ctx).Where("user_id = ?", userID).Order("order_date DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if err := t.loadTicketIDs(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (t *tx) CreateInvoice(ctx context.Context, inv *domain.CancellationInvoice) error {
	db := t.session(ctx)
	if err := db.Create(inv).Error; err != nil {
		return translate(err)
	}
	items := make([]domain.CancellationInvoiceItem, len(inv.TicketIDs))
	for i, id := range inv.TicketIDs {
		items[i] = domain.CancellationInvoiceItem{InvoiceID: inv.ID, TicketID: id}
	}
	if len(items) > 0 {
		if err := db.Create(&items).Error; err != nil {
			return translate(err)
		}
	}
	return nil
}

func (t *tx) ListOrderInvoices(ctx context.Context, orderID uuid.UUID) ([]domain.CancellationInvoice, error) {
	db := t.session(ctx)
	var invoices []domain.CancellationInvoice
	if err := db.Where("order_id = ?", orderID).Order("created_at").Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	if len(invoices) == 0 {
		return invoices, nil
	}
	ids := make([]uuid.UUID, len(invoices))
	for i := range invoices {
		ids[i] = invoices[i].ID
	}
	var items []domain.CancellationInvoiceItem
	if err := db.Where("invoice_id IN ?", ids).Order("ticket_id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list invoice items: %w", err)
	}
	byInvoice := make(map[uuid.UUID][]uuid.UUID, len(invoices))
	for _, it := range items {
		byInvoice[it.InvoiceID] = append(byInvoice[it.InvoiceID], it.TicketID)
	}
	for i := range invoices {
		invoices[i].TicketIDs = byInvoice[invoices[i].ID]
	}
	return invoices, nil
}
