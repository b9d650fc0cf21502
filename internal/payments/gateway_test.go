package payments

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"boxoffice/internal/shared/apperr"
	"boxoffice/pkg/logger"
)

var referencePattern = regexp.MustCompile(`^TXN_\d+_[0-9A-F]{8}$`)

func TestSimulatedCaptureAndRefund(t *testing.T) {
	g := NewSimulatedGateway(logger.Discard())
	ctx := context.Background()

	ref, err := g.AuthorizeAndCapture(ctx, decimal.RequireFromString("150.00"), "EUR")
	if err != nil {
		t.Fatalf("AuthorizeAndCapture: %v", err)
	}
	if !referencePattern.MatchString(ref) {
		t.Errorf("reference %q does not match %s", ref, referencePattern)
	}

	if err := g.Refund(ctx, ref, decimal.RequireFromString("50.00")); err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if err := g.Refund(ctx, ref, decimal.RequireFromString("100.00")); err != nil {
		t.Fatalf("second Refund: %v", err)
	}
	err = g.Refund(ctx, ref, decimal.RequireFromString("0.01"))
	if !errors.Is(err, apperr.ErrExternalService) || !errors.Is(err, ErrOverRefund) {
		t.Fatalf("over refund error = %v, want external service / over refund", err)
	}

	calls := g.Calls()
	if len(calls) != 3 || calls[0].Kind != "capture" || calls[2].Kind != "refund" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestSimulatedFailureHasNoEffect(t *testing.T) {
	g := NewSimulatedGateway(logger.Discard())
	g.SetFailing(true)

	_, err := g.AuthorizeAndCapture(context.Background(), decimal.NewFromInt(10), "EUR")
	if !errors.Is(err, apperr.ErrExternalService) || !errors.Is(err, ErrDeclined) {
		t.Fatalf("error = %v, want declined external service error", err)
	}
	if len(g.Calls()) != 0 {
		t.Errorf("failed capture was recorded")
	}
}

func TestRefundUnknownReference(t *testing.T) {
	g := NewSimulatedGateway(logger.Discard())
	err := g.Refund(context.Background(), "TXN_0_DEADBEEF", decimal.NewFromInt(1))
	if !errors.Is(err, ErrUnknownPayment) {
		t.Fatalf("error = %v, want unknown payment", err)
	}
}

func TestThrottledGatewayGivesUpWhenContextEnds(t *testing.T) {
	sim := NewSimulatedGateway(logger.Discard())
	g := NewThrottledGateway(sim, 0.001, 1)

	if _, err := g.AuthorizeAndCapture(context.Background(), decimal.NewFromInt(1), "EUR"); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := g.AuthorizeAndCapture(ctx, decimal.NewFromInt(1), "EUR")
	if !errors.Is(err, apperr.ErrExternalService) {
		t.Fatalf("error = %v, want external service error", err)
	}
	if n := len(sim.Calls()); n != 1 {
		t.Errorf("gateway calls = %d, want 1", n)
	}
}
