// Package documents renders committed tickets and cancellation invoices into
// scannable images. Renderers only ever see snapshots of persisted state.
package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"boxoffice/internal/domain"
	"boxoffice/internal/shared/apperr"
)

const (
	KindTicketPass = "ticket_pass"
	KindInvoice    = "cancellation_invoice"
)

// Document is a snapshot that can be rendered.
type Document interface {
	Kind() string
}

// TicketDocument is the pass of one ticket.
type TicketDocument struct {
	TicketID       uuid.UUID          `json:"ticket_id"`
	ShowID         uuid.UUID          `json:"show_id"`
	Type           domain.TicketType  `json:"type"`
	State          domain.TicketState `json:"state"`
	SeatID         *uuid.UUID         `json:"seat_id,omitempty"`
	StandingID     *uuid.UUID         `json:"standing_sector_id,omitempty"`
	Price          string             `json:"price"`
	OrderReference string             `json:"order_reference,omitempty"`
}

func (TicketDocument) Kind() string { return KindTicketPass }

// NewTicketDocument snapshots t. orderReference may be empty for unpaid tickets.
func NewTicketDocument(t *domain.Ticket, orderReference string) TicketDocument {
	return TicketDocument{
		TicketID:       t.ID,
		ShowID:         t.ShowID,
		Type:           t.Type,
		State:          t.State,
		SeatID:         t.SeatID,
		StandingID:     t.StandingSectorID,
		Price:          t.Price.StringFixed(2),
		OrderReference: orderReference,
	}
}

// InvoiceDocument is the record of one cancellation.
type InvoiceDocument struct {
	InvoiceID      uuid.UUID   `json:"invoice_id"`
	Reference      string      `json:"reference"`
	OrderReference string      `json:"order_reference"`
	Amount         string      `json:"amount"`
	Currency       string      `json:"currency"`
	TicketIDs      []uuid.UUID `json:"ticket_ids"`
	IssuedAt       time.Time   `json:"issued_at"`
}

func (InvoiceDocument) Kind() string { return KindInvoice }

func NewInvoiceDocument(inv *domain.CancellationInvoice, order *domain.Order) InvoiceDocument {
	return InvoiceDocument{
		InvoiceID:      inv.ID,
		Reference:      inv.Reference,
		OrderReference: order.Reference,
		Amount:         inv.Amount.StringFixed(2),
		Currency:       inv.Currency,
		TicketIDs:      inv.TicketIDs,
		IssuedAt:       inv.CreatedAt,
	}
}

// Renderer turns a document into bytes.
type Renderer interface {
	Render(ctx context.Context, doc Document) ([]byte, error)
	ContentType() string
}

// QRRenderer encodes the document as JSON inside a PNG QR code.
type QRRenderer struct {
	size  int
	level qrcode.RecoveryLevel
}

func NewQRRenderer(size int) *QRRenderer {
	if size <= 0 {
		size = 256
	}
	return &QRRenderer{size: size, level: qrcode.Medium}
}

func (r *QRRenderer) ContentType() string { return "image/png" }

func (r *QRRenderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.External(err, "render %s", doc.Kind())
	}
	payload, err := Payload(doc)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(string(payload), r.level, r.size)
	if err != nil {
		return nil, apperr.External(err, "render %s", doc.Kind())
	}
	return png, nil
}

// Payload is the text carried by a rendered document.
func Payload(doc Document) ([]byte, error) {
	body, err := json.Marshal(struct {
		Kind string   `json:"kind"`
		Doc  Document `json:"document"`
	}{doc.Kind(), doc})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", doc.Kind(), err)
	}
	return body, nil
}
