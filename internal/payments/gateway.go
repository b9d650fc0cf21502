// Package payments talks to the payment gateway. Every failure it reports is
// an apperr.ErrExternalService and has no side effect at the gateway.
package payments

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"boxoffice/internal/shared/apperr"
	"boxoffice/internal/shared/config"
	"boxoffice/pkg/logger"
)

var (
	ErrDeclined       = errors.New("payment declined")
	ErrUnknownPayment = errors.New("unknown payment reference")
	ErrOverRefund     = errors.New("refund exceeds captured amount")
)

// Gateway captures and refunds money. Both calls are synchronous.
type Gateway interface {
	AuthorizeAndCapture(ctx context.Context, amount decimal.Decimal, currency string) (string, error)
	Refund(ctx context.Context, paymentReference string, amount decimal.Decimal) error
}

// NewGateway builds the configured gateway wrapped with outbound throttling.
func NewGateway(cfg config.PaymentConfig, log *logger.Logger) Gateway {
	sim := NewSimulatedGateway(log)
	sim.SetFailing(cfg.SimulateFailed)
	if cfg.RatePerSecond <= 0 {
		return sim
	}
	return NewThrottledGateway(sim, cfg.RatePerSecond, cfg.Burst)
}

type capture struct {
	amount   decimal.Decimal
	currency string
	refunded decimal.Decimal
}

// SimulatedGateway keeps captures in memory. It stands in for a real
// provider in development and tests.
type SimulatedGateway struct {
	log *logger.Logger

	mu       sync.Mutex
	failing  bool
	captures map[string]*capture
	calls    []Call
}

// Call records one successful gateway call.
type Call struct {
	Kind      string
	Reference string
	Amount    decimal.Decimal
}

func NewSimulatedGateway(log *logger.Logger) *SimulatedGateway {
	if log == nil {
		log = logger.GetDefault()
	}
	return &SimulatedGateway{log: log, captures: make(map[string]*capture)}
}

// SetFailing makes every following call fail with ErrDeclined.
func (g *SimulatedGateway) SetFailing(failing bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failing = failing
}

// Calls returns the successful captures and refunds in call order.
func (g *SimulatedGateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Call, len(g.calls))
	copy(out, g.calls)
	return out
}

func (g *SimulatedGateway) AuthorizeAndCapture(ctx context.Context, amount decimal.Decimal, currency string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperr.External(err, "capture of %s %s", amount.StringFixed(2), currency)
	}
	if amount.IsNegative() {
		return "", apperr.Validation("capture amount %s is negative", amount.StringFixed(2))
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failing {
		return "", apperr.External(ErrDeclined, "capture of %s %s", amount.StringFixed(2), currency)
	}
	ref, err := transactionID()
	if err != nil {
		return "", apperr.External(err, "capture of %s %s", amount.StringFixed(2), currency)
	}
	g.captures[ref] = &capture{amount: amount, currency: currency}
	g.calls = append(g.calls, Call{Kind: "capture", Reference: ref, Amount: amount})

	g.log.InfoWithContext(ctx, "payment captured", map[string]interface{}{
		"payment_reference": ref,
		"amount":            amount.StringFixed(2),
		"currency":          currency,
	})
	return ref, nil
}

func (g *SimulatedGateway) Refund(ctx context.Context, paymentReference string, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return apperr.External(err, "refund of %s under %s", amount.StringFixed(2), paymentReference)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failing {
		return apperr.External(ErrDeclined, "refund of %s under %s", amount.StringFixed(2), paymentReference)
	}
	c, ok := g.captures[paymentReference]
	if !ok {
		return apperr.External(ErrUnknownPayment, "refund under %s", paymentReference)
	}
	if c.refunded.Add(amount).GreaterThan(c.amount) {
		return apperr.External(ErrOverRefund, "refund of %s under %s, %s of %s already refunded",
			amount.StringFixed(2), paymentReference, c.refunded.StringFixed(2), c.amount.StringFixed(2))
	}
	c.refunded = c.refunded.Add(amount)
	g.calls = append(g.calls, Call{Kind: "refund", Reference: paymentReference, Amount: amount})

	g.log.InfoWithContext(ctx, "payment refunded", map[string]interface{}{
		"payment_reference": paymentReference,
		"amount":            amount.StringFixed(2),
		"currency":          c.currency,
	})
	return nil
}

// transactionID returns a reference in the TXN_<unix>_<HEX> format.
func transactionID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate transaction id: %w", err)
	}
	return fmt.Sprintf("TXN_%d_%s", time.Now().Unix(), strings.ToUpper(hex.EncodeToString(b))), nil
}
