// Package apperr defines the error taxonomy shared by the ticketing services.
// Callers classify errors with errors.Is against the sentinel kinds.
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrExternalService = errors.New("external service failure")
	ErrReconciliation  = errors.New("reconciliation required")
)

type kindError struct {
	kind  error
	msg   string
	cause error
}

func (e *kindError) Error() string {
	var b strings.Builder
	b.WriteString(e.kind.Error())
	if e.msg != "" {
		b.WriteString(": ")
		b.WriteString(e.msg)
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *kindError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// Message returns the human readable part of the error without the kind prefix.
func Message(err error) string {
	var ke *kindError
	if errors.As(err, &ke) && ke.msg != "" {
		return ke.msg
	}
	return err.Error()
}

func Conflict(format string, args ...any) error {
	return &kindError{kind: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &kindError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// External wraps a failure reported by a payment gateway, renderer or other
// collaborator so callers can tell it apart from a rejected request.
func External(cause error, format string, args ...any) error {
	return &kindError{kind: ErrExternalService, msg: fmt.Sprintf(format, args...), cause: cause}
}

// ReconciliationError reports money that moved at the payment gateway without
// the matching local state change being persisted. It is never retried.
type ReconciliationError struct {
	Operation        string
	PaymentReference string
	TicketIDs        []uuid.UUID
	Amount           decimal.Decimal
	Currency         string
	Err              error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("%s: %s of %s %s under payment %s was not persisted for tickets %v: %v",
		ErrReconciliation, e.Operation, e.Amount.StringFixed(2), e.Currency, e.PaymentReference, e.TicketIDs, e.Err)
}

func (e *ReconciliationError) Unwrap() []error {
	return []error{ErrReconciliation, e.Err}
}
