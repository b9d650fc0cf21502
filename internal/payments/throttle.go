package payments

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"boxoffice/internal/shared/apperr"
)

// ThrottledGateway limits the rate of outbound gateway calls. A caller that
// cannot get a slot before its context ends gets an external service error
// and the gateway is never called.
type ThrottledGateway struct {
	next    Gateway
	limiter *rate.Limiter
}

func NewThrottledGateway(next Gateway, perSecond float64, burst int) *ThrottledGateway {
	if burst < 1 {
		burst = 1
	}
	return &ThrottledGateway{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (g *ThrottledGateway) AuthorizeAndCapture(ctx context.Context, amount decimal.Decimal, currency string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", apperr.External(err, "payment gateway busy")
	}
	return g.next.AuthorizeAndCapture(ctx, amount, currency)
}

func (g *ThrottledGateway) Refund(ctx context.Context, paymentReference string, amount decimal.Decimal) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return apperr.External(err, "payment gateway busy")
	}
	return g.next.Refund(ctx, paymentReference, amount)
}
